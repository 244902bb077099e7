package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultGrace is added to a request's time budget to form the hard
// deadline the client waits for an answer.
const DefaultGrace = 1500 * time.Millisecond

// Limits of one best-move request.
type Limits struct {
	TimeMs   int
	MaxDepth int
	// BookMove is a move to try first, usually the learned recommendation.
	BookMove string
}

// Result of a best-move request. HasMove is false when the position has no
// legal moves, when the request was superseded by a newer one, or when the
// worker missed its deadline (TimedOut).
type Result struct {
	Move         string
	HasMove      bool
	DepthReached int
	TimedOut     bool
}

type outcome struct {
	resp Response
	err  error
}

type pendingRequest struct {
	id    string
	reply chan outcome
}

// Client issues best-move requests to a Worker, at most one at a time.
// Starting a request while another is pending answers the older one with a
// null result first.
type Client struct {
	w     *Worker
	grace time.Duration
	log   zerolog.Logger

	mu      sync.Mutex
	pending *pendingRequest
	done    chan struct{}
}

func NewClient(w *Worker, grace time.Duration, log zerolog.Logger) *Client {
	if grace < 0 {
		grace = DefaultGrace
	}
	c := &Client{
		w:     w,
		grace: grace,
		log:   log.With().Str("component", "worker.client").Logger(),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	for resp := range c.w.Responses() {
		c.mu.Lock()
		p := c.pending
		if p != nil && p.id == resp.ID {
			c.pending = nil
			p.reply <- outcome{resp: resp}
		} else {
			c.log.Debug().Str("id", resp.ID).Msg("dropping stale response")
		}
		c.mu.Unlock()
	}
	c.mu.Lock()
	if c.pending != nil {
		c.pending.reply <- outcome{err: ErrClosed}
		c.pending = nil
	}
	c.mu.Unlock()
}

// BestMove asks the worker for the best move in fen. It waits at most
// limits.TimeMs plus the grace period; past that it returns a null result
// with TimedOut set and frees the slot. Timeouts are not errors. Errors are
// returned for a closed worker, a cancelled ctx and error responses (which
// wrap ErrSearch).
func (c *Client) BestMove(ctx context.Context, fen string, limits Limits) (Result, error) {
	p := &pendingRequest{id: uuid.NewString(), reply: make(chan outcome, 1)}

	c.mu.Lock()
	if prev := c.pending; prev != nil {
		prev.reply <- outcome{resp: bestMoveResponse(prev.id, "", false, 0)}
		c.w.Cancel(prev.id)
		c.log.Debug().Str("id", prev.id).Msg("superseded pending request")
	}
	c.pending = p
	c.mu.Unlock()

	req := Request{
		Type:     TypeBestMove,
		ID:       p.id,
		FEN:      fen,
		TimeMs:   limits.TimeMs,
		MaxDepth: limits.MaxDepth,
		BookMove: limits.BookMove,
	}
	if err := c.w.Send(req); err != nil {
		c.release(p)
		return Result{}, err
	}

	timer := time.NewTimer(time.Duration(limits.TimeMs)*time.Millisecond + c.grace)
	defer timer.Stop()

	select {
	case out := <-p.reply:
		if out.err != nil {
			return Result{}, out.err
		}
		return toResult(out.resp)
	case <-timer.C:
		c.release(p)
		c.w.Cancel(p.id)
		c.log.Warn().Str("id", p.id).Int("time_ms", limits.TimeMs).Msg("search missed its deadline")
		return Result{TimedOut: true}, nil
	case <-ctx.Done():
		c.release(p)
		c.w.Cancel(p.id)
		return Result{}, ctx.Err()
	}
}

func (c *Client) release(p *pendingRequest) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

func toResult(resp Response) (Result, error) {
	if resp.Type == TypeError {
		return Result{}, fmt.Errorf("%w: %s", ErrSearch, resp.Message)
	}
	res := Result{DepthReached: resp.DepthReached}
	if resp.Move != nil {
		res.Move = *resp.Move
		res.HasMove = true
	}
	return res, nil
}

// NewGame asks the worker to reset its engine once the current search is done.
func (c *Client) NewGame() error {
	return c.w.Send(Request{Type: TypeNewGame, ID: uuid.NewString()})
}

// Close shuts the worker down.
func (c *Client) Close() {
	c.w.Close()
	<-c.done
}
