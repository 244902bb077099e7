// Package ingest folds finished games from PGN files into the learned-move
// table, as if the engine had played one side of each game.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"

	"chess-ai/learn"
	"chess-ai/position"
)

// Side picks whose moves are recorded.
type Side int

const (
	SideWhite Side = iota
	SideBlack
	SideBoth
)

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return SideWhite, nil
	case "black", "b":
		return SideBlack, nil
	case "both", "":
		return SideBoth, nil
	}
	return SideBoth, fmt.Errorf("unknown side %q", s)
}

type Config struct {
	Recorder *learn.Recorder
	// Player, when set, records only games where a White or Black tag
	// matches it, and only that player's moves. Side is ignored then.
	Player   string
	Side     Side
	MaxGames int
	Logger   zerolog.Logger
}

type Stats struct {
	Games   int
	Skipped int
	Moves   int
	Failed  int
}

var errNoMatch = errors.New("no legal move matches")

// File replays every game in path (plain or .zst PGN) and records it.
// Games without a decisive or drawn result tag are skipped; a game whose
// moves cannot be replayed is counted as failed and the file goes on.
func File(ctx context.Context, path string, cfg Config) (Stats, error) {
	log := cfg.Logger.With().Str("component", "ingest").Str("file", filepath.Base(path)).Logger()
	start := time.Now()
	lastLog := start
	var st Stats

	parser := pgn.Games(path)
	stopped := false
gameLoop:
	for g := range parser.Games {
		select {
		case <-ctx.Done():
			if !stopped {
				parser.Stop()
				stopped = true
			}
			break gameLoop
		default:
		}
		if cfg.MaxGames > 0 && st.Games >= cfg.MaxGames {
			parser.Stop()
			stopped = true
			break gameLoop
		}

		sides := cfg.sidesFor(g.Tags)
		if len(sides) == 0 {
			st.Skipped++
			continue
		}
		whiteResult, ok := resultForWhite(g.Tags["Result"])
		if !ok {
			st.Skipped++
			continue
		}
		traces, err := Replay(g.Moves)
		if err != nil {
			st.Failed++
			log.Debug().Err(err).Str("white", g.Tags["White"]).Str("black", g.Tags["Black"]).Msg("game skipped")
			continue
		}
		for _, white := range sides {
			trace, result := traces[1], whiteResult.Invert()
			if white {
				trace, result = traces[0], whiteResult
			}
			if err := cfg.Recorder.Record(ctx, trace, result); err != nil {
				return st, fmt.Errorf("record game %d: %w", st.Games+1, err)
			}
			st.Moves += len(trace)
		}
		st.Games++

		if time.Since(lastLog) > 10*time.Second {
			log.Info().Int("games", st.Games).Int("skipped", st.Skipped).Int("moves", st.Moves).Msg("ingest progress")
			lastLog = time.Now()
		}
	}
	if err := parser.Err(); err != nil {
		return st, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}

	log.Info().
		Int("games", st.Games).
		Int("skipped", st.Skipped).
		Int("failed", st.Failed).
		Int("moves", st.Moves).
		Dur("elapsed", time.Since(start)).
		Msg("file ingest complete")
	return st, nil
}

// sidesFor returns the sides to record, true meaning white.
func (c Config) sidesFor(tags map[string]string) []bool {
	if c.Player != "" {
		var sides []bool
		if strings.EqualFold(tags["White"], c.Player) {
			sides = append(sides, true)
		}
		if strings.EqualFold(tags["Black"], c.Player) {
			sides = append(sides, false)
		}
		return sides
	}
	switch c.Side {
	case SideWhite:
		return []bool{true}
	case SideBlack:
		return []bool{false}
	}
	return []bool{true, false}
}

func resultForWhite(tag string) (learn.Result, bool) {
	switch tag {
	case "1-0":
		return learn.Win, true
	case "0-1":
		return learn.Loss, true
	case "1/2-1/2":
		return learn.Draw, true
	}
	return 0, false
}

// Replay plays moves from the standard start and returns the traced moves
// of white and of black.
func Replay(moves []pgn.Mv) (traces [2][]learn.TracedMove, err error) {
	gs := pgn.NewStartingPosition()
	pos := position.MustParse(position.StartFEN)
	for i, mv := range moves {
		fenBefore := pos.FEN()
		side := 0
		if !pos.WhiteToMove() {
			side = 1
		}
		if err := pgn.ApplyMove(gs, mv); err != nil {
			return traces, fmt.Errorf("ply %d: %w", i+1, err)
		}
		m, err := matchMove(pos, mvToUCI(mv), gs.ToFEN())
		if err != nil {
			return traces, fmt.Errorf("ply %d: %w", i+1, err)
		}
		pos.Apply(m)
		traces[side] = append(traces[side], learn.TracedMove{FEN: fenBefore, UCI: position.MoveString(m)})
	}
	return traces, nil
}

// matchMove finds the legal move of pos that reaches the placement of
// fenAfter. The UCI guess is tried first; castling notations differ between
// move generators, so every legal move is tried when it misses.
func matchMove(pos *position.Position, guess, fenAfter string) (position.Move, error) {
	want := placement(fenAfter)
	reaches := func(m position.Move) (ok bool) {
		pos.Visit(m, func() { ok = placement(pos.FEN()) == want })
		return ok
	}
	if m, err := pos.ParseMove(guess); err == nil && reaches(m) {
		return m, nil
	}
	for _, m := range pos.LegalMoves() {
		if reaches(m) {
			return m, nil
		}
	}
	return position.NullMove, fmt.Errorf("%w %s in %s", errNoMatch, guess, pos.FEN())
}

func placement(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}

func mvToUCI(mv pgn.Mv) string {
	const files, ranks = "abcdefgh", "12345678"
	uci := string(files[mv.From%8]) + string(ranks[mv.From/8]) +
		string(files[mv.To%8]) + string(ranks[mv.To/8])
	switch mv.Promo {
	case pgn.PromoQueen:
		uci += "q"
	case pgn.PromoRook:
		uci += "r"
	case pgn.PromoBishop:
		uci += "b"
	case pgn.PromoKnight:
		uci += "n"
	}
	return uci
}
