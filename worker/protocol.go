// Package worker runs an engine on its own goroutine and talks to it with
// typed request and response messages.
package worker

import "errors"

// Message types.
const (
	TypeBestMove = "bestmove"
	TypeNewGame  = "newgame"
	TypeError    = "error"
)

var (
	// ErrClosed is returned when talking to a worker that has been closed.
	ErrClosed = errors.New("worker closed")
	// ErrSearch wraps error responses coming back from the worker.
	ErrSearch = errors.New("search failed")
)

// Request asks the worker for a best move, or to forget its search state
// when Type is TypeNewGame.
type Request struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	FEN      string `json:"fen,omitempty"`
	TimeMs   int    `json:"timeMs,omitempty"`
	MaxDepth int    `json:"maxDepth,omitempty"`
	BookMove string `json:"bookUci,omitempty"`
}

// Response answers one bestmove Request. Move is nil when the position has
// no legal moves. Error responses carry only Message.
type Response struct {
	Type         string  `json:"type"`
	ID           string  `json:"id"`
	Move         *string `json:"uci"`
	DepthReached int     `json:"depthReached"`
	Message      string  `json:"message,omitempty"`
}

func bestMoveResponse(id string, move string, ok bool, depth int) Response {
	resp := Response{Type: TypeBestMove, ID: id, DepthReached: depth}
	if ok {
		resp.Move = &move
	}
	return resp
}

func errorResponse(id string, message string) Response {
	return Response{Type: TypeError, ID: id, Message: message}
}
