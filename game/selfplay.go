package game

import (
	"context"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"chess-ai/learn"
	"chess-ai/position"
)

// Player is one engine side of a self-play game.
type Player struct {
	Searcher Searcher
	Profile  Profile
}

// Adjudicator decides games that reach the ply cap.
type Adjudicator interface {
	Adjudicate(ctx context.Context, fen string) (position.Winner, error)
}

type SelfPlayConfig struct {
	Selector *learn.Selector
	Recorder *learn.Recorder
	// MaxPlies caps the game length; 0 means no cap.
	MaxPlies int
	// Adjudicator is optional; capped games are draws without one.
	Adjudicator Adjudicator
	Logger      zerolog.Logger
	Intn        func(n int) int
}

type SelfPlayResult struct {
	Winner      position.Winner
	Status      position.Status
	Moves       []string
	Adjudicated bool
	Fallbacks   int
}

// SelfPlay plays one game between two engine sides from the standard
// position and records both sides' moves, each with its own result.
func SelfPlay(ctx context.Context, white, black Player, cfg SelfPlayConfig) (SelfPlayResult, error) {
	if cfg.Intn == nil {
		cfg.Intn = rand.IntN
	}
	log := cfg.Logger.With().Str("component", "selfplay").Logger()
	pos := position.MustParse(position.StartFEN)
	var res SelfPlayResult
	var traces [2][]learn.TracedMove

	for {
		if res.Status = pos.Status(); res.Status != position.Ongoing {
			res.Winner = pos.Outcome()
			break
		}
		if cfg.MaxPlies > 0 && len(res.Moves) >= cfg.MaxPlies {
			res.Winner = position.Draw
			if cfg.Adjudicator != nil {
				w, err := cfg.Adjudicator.Adjudicate(ctx, pos.FEN())
				if err != nil {
					log.Warn().Err(err).Msg("adjudication failed, scoring a draw")
				} else {
					res.Winner, res.Adjudicated = w, true
				}
			}
			break
		}

		side, p := 0, white
		if !pos.WhiteToMove() {
			side, p = 1, black
		}
		fen := pos.FEN()
		t, err := pickMove(ctx, pos, p.Searcher, p.Profile, cfg.Selector, cfg.Intn, log)
		if err != nil {
			return res, err
		}
		if t.fallback {
			res.Fallbacks++
		}
		traces[side] = append(traces[side], learn.TracedMove{FEN: fen, UCI: t.uci})
		pos.Apply(t.move)
		res.Moves = append(res.Moves, t.uci)
	}

	whiteResult := aiResult(res.Winner, White)
	log.Info().
		Stringer("winner", res.Winner).
		Stringer("status", res.Status).
		Int("plies", len(res.Moves)).
		Bool("adjudicated", res.Adjudicated).
		Msg("self-play game finished")

	if cfg.Recorder != nil {
		rctx := context.WithoutCancel(ctx)
		if err := cfg.Recorder.Record(rctx, traces[0], whiteResult); err != nil {
			log.Warn().Err(err).Msg("recording white's moves failed")
		}
		if err := cfg.Recorder.Record(rctx, traces[1], whiteResult.Invert()); err != nil {
			log.Warn().Err(err).Msg("recording black's moves failed")
		}
	}
	return res, nil
}
