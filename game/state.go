package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chess-ai/learn"
	"chess-ai/position"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrGameOver       = errors.New("game is over")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrUnknownProfile = errors.New("unknown difficulty")
	ErrInvalidColor   = errors.New("invalid color")
)

type Color int8

const (
	White Color = iota
	Black
)

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	}
	return White, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) Other() Color {
	return 1 - c
}

func colorToMove(pos *position.Position) Color {
	if pos.WhiteToMove() {
		return White
	}
	return Black
}

// Game is one session between a player and the engine. All fields are
// guarded by mu; the Manager hands out State snapshots only.
type Game struct {
	mu sync.Mutex

	id      string
	profile Profile
	aiColor Color
	pos     *position.Position
	moves   []string
	// trace holds the engine's own moves, each with the position it was
	// played from.
	trace []learn.TracedMove

	status   position.Status
	resigned bool
	result   learn.Result // from the engine's side, valid once over
	over     bool

	lastAI    string
	lastDepth int

	createdAt time.Time
	updatedAt time.Time
}

// State is a read-only snapshot of a game.
type State struct {
	ID         string   `json:"id"`
	Difficulty string   `json:"difficulty"`
	AIColor    string   `json:"ai_color"`
	FEN        string   `json:"fen"`
	Turn       string   `json:"turn"`
	Moves      []string `json:"moves"`
	InCheck    bool     `json:"in_check"`
	Status     string   `json:"status"`
	Over       bool     `json:"over"`
	// Winner is white, black or draw once the game is over.
	Winner string `json:"winner,omitempty"`
	// Result is win, draw or loss from the player's side once the game is over.
	Result       string    `json:"result,omitempty"`
	LastAIMove   string    `json:"last_ai_move,omitempty"`
	DepthReached int       `json:"depth_reached"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (g *Game) snapshot() State {
	s := State{
		ID:           g.id,
		Difficulty:   g.profile.Name,
		AIColor:      g.aiColor.String(),
		FEN:          g.pos.FEN(),
		Turn:         colorToMove(g.pos).String(),
		Moves:        append([]string(nil), g.moves...),
		InCheck:      g.pos.InCheck(),
		Status:       g.status.String(),
		Over:         g.over,
		LastAIMove:   g.lastAI,
		DepthReached: g.lastDepth,
		CreatedAt:    g.createdAt,
		UpdatedAt:    g.updatedAt,
	}
	if g.resigned {
		s.Status = "resigned"
	}
	if g.over {
		s.Result = g.result.Invert().String()
		switch {
		case g.result == learn.Draw:
			s.Winner = "draw"
		case g.result == learn.Win:
			s.Winner = g.aiColor.String()
		default:
			s.Winner = g.aiColor.Other().String()
		}
	}
	return s
}

// aiResult converts the position's outcome into the engine's result.
func aiResult(w position.Winner, ai Color) learn.Result {
	switch {
	case w == position.WhiteWins && ai == White, w == position.BlackWins && ai == Black:
		return learn.Win
	case w == position.WhiteWins, w == position.BlackWins:
		return learn.Loss
	}
	return learn.Draw
}
