package learn

import (
	"context"
	"fmt"
	"math"

	"chess-ai/position"
)

const (
	// DefaultExploration is the UCB1 exploration constant.
	DefaultExploration = 0.9
	// DefaultDrawReward is the reward of a draw; a win is 1 and a loss 0.
	DefaultDrawReward = 0.25
)

// SelectUCB returns the move with the highest avg+bonus over rows, where
//
//	avg   = (wins + drawReward*draws) / max(plays, 1)
//	bonus = c * sqrt(ln(total+1) / max(plays, 1))
//
// and total is the sum of plays over all rows, or 1 when that sum is zero.
// Ties go to the row that comes first. ok is false when rows is empty.
func SelectUCB(rows []MoveStat, c, drawReward float64) (move string, ok bool) {
	if len(rows) == 0 {
		return "", false
	}
	var total float64
	for _, r := range rows {
		total += float64(r.Plays)
	}
	if total == 0 {
		total = 1
	}

	bestScore := math.Inf(-1)
	for _, r := range rows {
		score := ucbScore(r, total, c, drawReward)
		if score > bestScore {
			bestScore = score
			move = r.Move
			ok = true
		}
	}
	return move, ok
}

func ucbScore(r MoveStat, total, c, drawReward float64) float64 {
	plays := math.Max(1, float64(r.Plays))
	avg := (float64(r.Wins) + drawReward*float64(r.Draws)) / plays
	return avg + c*math.Sqrt(math.Log(total+1)/plays)
}

// Selector recommends learned moves for positions.
type Selector struct {
	store       Store
	exploration float64
	drawReward  float64
}

func NewSelector(store Store, exploration, drawReward float64) *Selector {
	return &Selector{store: store, exploration: exploration, drawReward: drawReward}
}

// Recommend returns the learned move for fen, if any. Errors come from a
// malformed FEN or from the store; callers are expected to carry on without
// a recommendation.
func (s *Selector) Recommend(ctx context.Context, fen string) (string, bool, error) {
	key, err := position.ReducedKey(fen)
	if err != nil {
		return "", false, err
	}
	rows, err := s.store.Rows(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("read learned moves: %w", err)
	}
	move, ok := SelectUCB(rows, s.exploration, s.drawReward)
	return move, ok, nil
}
