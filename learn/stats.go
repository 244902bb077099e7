// Package learn keeps per-position move statistics gathered from finished
// games and turns them into move recommendations for the search.
package learn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidResult is returned for result strings other than win, draw or loss.
var ErrInvalidResult = errors.New("invalid result")

// Result of a finished game from one side's point of view.
type Result int

const (
	Win Result = iota + 1
	Draw
	Loss
)

func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return Win, nil
	case "draw":
		return Draw, nil
	case "loss":
		return Loss, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidResult, s)
}

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Loss:
		return "loss"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

func (r Result) Valid() bool {
	return r == Win || r == Draw || r == Loss
}

// Invert returns the result as the opponent sees it: a player's win is the
// engine's loss. Draw stays draw.
func (r Result) Invert() Result {
	switch r {
	case Win:
		return Loss
	case Loss:
		return Win
	}
	return r
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResult, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MoveStat is the record for one (position key, move) pair, counted from the
// engine's side. Wins+Draws+Losses always equals Plays.
type MoveStat struct {
	Key    string `json:"key"`
	Move   string `json:"uci"`
	Plays  uint32 `json:"plays"`
	Wins   uint32 `json:"wins"`
	Draws  uint32 `json:"draws"`
	Losses uint32 `json:"losses"`
}

func (s *MoveStat) record(r Result) {
	s.Plays++
	switch r {
	case Win:
		s.Wins++
	case Draw:
		s.Draws++
	case Loss:
		s.Losses++
	}
}
