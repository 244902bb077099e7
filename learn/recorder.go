package learn

import (
	"context"
	"errors"
	"fmt"

	"chess-ai/position"
)

// TracedMove is one move the engine played, with the position it was
// played from.
type TracedMove struct {
	FEN string `json:"position_fen"`
	UCI string `json:"uci"`
}

// Recorder folds finished games into a Store.
//
// Record performs no deduplication across calls: submitting the same game
// twice counts it twice. Callers must submit each finished game once.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

type update struct {
	key  string
	move string
}

// Record validates the whole trace, then adds one play and one result to
// the (reduced key, move) record of every traced move. A malformed trace is
// rejected before anything is written. Store failures do not stop the
// remaining updates; they are joined into the returned error.
func (r *Recorder) Record(ctx context.Context, trace []TracedMove, result Result) error {
	if !result.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidResult, int(result))
	}
	updates, err := prepare(trace)
	if err != nil {
		return err
	}

	var errs []error
	for i, u := range updates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("recorded %d of %d moves: %w", i, len(updates), err))
			break
		}
		if err := r.store.Increment(ctx, u.key, u.move, result); err != nil {
			errs = append(errs, fmt.Errorf("move %d (%s %s): %w", i, u.key, u.move, err))
		}
	}
	return errors.Join(errs...)
}

// prepare resolves every traced move against its position so that stored
// move strings and keys are canonical. Keys come from the parsed position,
// the same way the selector derives them.
func prepare(trace []TracedMove) ([]update, error) {
	updates := make([]update, 0, len(trace))
	var errs []error
	for i, tm := range trace {
		pos, err := position.Parse(tm.FEN)
		if err != nil {
			errs = append(errs, fmt.Errorf("move %d: %w", i, err))
			continue
		}
		m, err := pos.ParseMove(tm.UCI)
		if err != nil {
			errs = append(errs, fmt.Errorf("move %d: %w", i, err))
			continue
		}
		updates = append(updates, update{key: pos.Key(), move: position.MoveString(m)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return updates, nil
}
