package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/freeeve/uci"

	"chess-ai/position"
)

// stockfishAdjudicator scores capped games with an external UCI engine.
// The engine process is shared, so calls are serialized.
type stockfishAdjudicator struct {
	mu     sync.Mutex
	engine *uci.Engine
	depth  int
	margin int
}

func newStockfishAdjudicator(path string, depth, margin int) (*stockfishAdjudicator, error) {
	eng, err := uci.NewEngine(path)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    64,
		Threads: 1,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}
	return &stockfishAdjudicator{engine: eng, depth: depth, margin: margin}, nil
}

func (a *stockfishAdjudicator) Adjudicate(ctx context.Context, fen string) (position.Winner, error) {
	if err := ctx.Err(); err != nil {
		return position.NoWinner, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.engine.SetFEN(fen); err != nil {
		return position.NoWinner, fmt.Errorf("set FEN: %w", err)
	}
	results, err := a.engine.GoDepth(a.depth, uci.HighestDepthOnly)
	if err != nil {
		return position.NoWinner, fmt.Errorf("adjudicator search: %w", err)
	}
	if len(results.Results) == 0 {
		return position.NoWinner, errors.New("no results from adjudicator")
	}
	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}

	// Scores are from the side to move; turn them white-positive.
	score := best.Score
	if strings.Contains(fen, " b ") {
		score = -score
	}
	switch {
	case best.Mate && score > 0, !best.Mate && score >= a.margin:
		return position.WhiteWins, nil
	case best.Mate && score < 0, !best.Mate && score <= -a.margin:
		return position.BlackWins, nil
	}
	return position.Draw, nil
}

func (a *stockfishAdjudicator) Close() {
	a.engine.Close()
}
