package game

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"chess-ai/learn"
	"chess-ai/position"
	"chess-ai/worker"
)

// serialSearcher keeps a single request in flight; the worker client would
// otherwise supersede one game's search with another's.
type serialSearcher struct {
	mu sync.Mutex
	Searcher
}

func (s *serialSearcher) BestMove(ctx context.Context, fen string, limits worker.Limits) (worker.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Searcher.BestMove(ctx, fen, limits)
}

type turn struct {
	move     position.Move
	uci      string
	book     string
	depth    int
	fallback bool
}

// pickMove chooses the engine's move in pos: the learned move is passed to
// the search as a hint, and a random legal move stands in when the search
// gives nothing playable. Store and search failures are logged and degrade
// play. The error is non-nil only when ctx ends the turn. A zero move means
// pos has no legal moves.
func pickMove(ctx context.Context, pos *position.Position, s Searcher, p Profile, sel *learn.Selector, intn func(int) int, log zerolog.Logger) (turn, error) {
	fen := pos.FEN()
	var t turn
	if sel != nil {
		move, ok, err := sel.Recommend(ctx, fen)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("learned lookup failed, searching without bias")
		case ok:
			t.book = move
		}
	}

	res, err := s.BestMove(ctx, fen, worker.Limits{TimeMs: p.TimeMs, MaxDepth: p.MaxDepth, BookMove: t.book})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return turn{}, err
		}
		log.Warn().Err(err).Msg("search failed, playing a random move")
	}

	if res.HasMove {
		if mv, err := pos.ParseMove(res.Move); err == nil {
			t.move, t.depth = mv, res.DepthReached
		} else {
			log.Warn().Err(err).Str("uci", res.Move).Msg("engine returned an unplayable move")
		}
	}
	if t.move == position.NullMove {
		legal := pos.LegalMoves()
		if len(legal) == 0 {
			return t, nil
		}
		t.move = legal[intn(len(legal))]
		t.fallback = true
	}
	t.uci = position.MoveString(t.move)

	log.Debug().
		Str("uci", t.uci).
		Str("book", t.book).
		Int("depth", t.depth).
		Bool("fallback", t.fallback).
		Bool("timed_out", res.TimedOut).
		Msg("engine moved")
	return t, nil
}
