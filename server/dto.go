package server

import (
	"chess-ai/learn"
)

type NewGameRequest struct {
	// AIColor is white or black; the engine plays black when empty.
	AIColor    string `json:"ai_color"`
	Difficulty string `json:"difficulty"`
}

type MoveRequest struct {
	UCI string `json:"uci"`
}

type LearnedResponse struct {
	Move  *string          `json:"move"`
	Moves []learn.MoveStat `json:"moves"`
}

type BestMoveRequest struct {
	FEN string `json:"fen"`
	// Difficulty fills TimeMs and MaxDepth; explicit values win.
	Difficulty string `json:"difficulty,omitempty"`
	TimeMs     *int   `json:"time_ms,omitempty"`
	MaxDepth   *int   `json:"max_depth,omitempty"`
	BookUCI    string `json:"book_uci,omitempty"`
}

type BestMoveResponse struct {
	UCI          *string `json:"uci"`
	DepthReached int     `json:"depth_reached"`
	TimedOut     bool    `json:"timed_out,omitempty"`
}

// OutcomeRequest reports a finished game. Outcome is from the player's
// side; Moves are the engine's moves.
type OutcomeRequest struct {
	Outcome learn.Result       `json:"outcome"`
	Moves   []learn.TracedMove `json:"moves"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
