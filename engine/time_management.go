package engine

import (
	"context"
	"time"
)

// TimeHandler tracks the wall-clock budget of one search request. Once it
// reports that time is up it keeps doing so until the next Start.
type TimeHandler struct {
	ctx              context.Context
	timeForMove      time.Time
	stopSearch       bool
	usingCustomDepth bool
	checks           uint64
	nodeLimit        uint64
}

// Start arms the handler. With useCustomDepth the clock is ignored and only
// ctx can stop the search.
func (th *TimeHandler) Start(ctx context.Context, budget time.Duration, useCustomDepth bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if budget < 0 {
		budget = 0
	}
	th.ctx = ctx
	th.timeForMove = time.Now().Add(budget)
	th.stopSearch = ctx.Err() != nil
	th.usingCustomDepth = useCustomDepth
	th.checks = 0
	th.nodeLimit = 0
}

// LimitNodes makes TimeStatus report expiry once it has been polled more
// than n times. Zero removes the limit. Start clears it.
func (th *TimeHandler) LimitNodes(n uint64) {
	th.nodeLimit = n
}

/*
  - True if the budget has run out or the context was cancelled
  - False if we still got time
*/
func (th *TimeHandler) TimeStatus() bool {
	if th.stopSearch {
		return true
	}
	th.checks++
	if th.nodeLimit > 0 && th.checks > th.nodeLimit {
		th.stopSearch = true
		return true
	}
	if th.checks&255 == 0 && th.ctx != nil && th.ctx.Err() != nil {
		th.stopSearch = true
		return true
	}
	if !th.usingCustomDepth && !time.Now().Before(th.timeForMove) {
		th.stopSearch = true
	}
	return th.stopSearch
}

// Stopped reports whether an earlier TimeStatus call observed expiry,
// without looking at the clock again.
func (th *TimeHandler) Stopped() bool {
	return th.stopSearch
}
