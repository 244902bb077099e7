package engine

import (
	"sort"

	"chess-ai/position"
)

type move struct {
	move  position.Move
	score int
}

/*
	Move ordering offsets!
	- The learned move goes first when the caller supplied one; the search can still refute it.
	- Killers come next, the newest one slightly ahead of the older one.
	- Promotions and captures sit just below killers. History weight is added on top of everything,
	  so a quiet move with enough history can climb past a capture.
*/
const (
	biasedOffset       = 2_000_000
	killerOffset       = 1_000_000
	secondKillerOffset = 900_000
	captureOffset      = 700_000
	promotionOffset    = 600_000

	// Quiescence only: promotions ahead of ordinary captures.
	qPromotionBonus = 9000
)

// mvvLva scores a capture: most valuable victim first, cheapest attacker
// breaking ties.
func mvvLva(victim, attacker position.Piece) int {
	return int(10*PieceValue(victim) - PieceValue(attacker))
}

func (e *Engine) scoreMove(pos *position.Position, m position.Move, ply int, biased string) int {
	uci := position.MoveString(m)
	score := 0
	if biased != "" && uci == biased {
		score += biasedOffset
	}
	k0, k1 := e.killers.Killers(ply)
	if k0 == uci {
		score += killerOffset
	} else if k1 == uci {
		score += secondKillerOffset
	}
	score += e.history.Get(uci)
	if promo := m.Promote(); promo != position.Nothing {
		score += promotionOffset + int(PieceValue(promo))
	}
	if victim := pos.Captured(m); victim != position.Nothing {
		score += captureOffset + mvvLva(victim, pos.Mover(m))
	}
	return score
}

// orderMoves returns moves sorted by descending ordering score. Equal scores
// keep their generation order. The input slice is not modified.
func (e *Engine) orderMoves(pos *position.Position, moves []position.Move, ply int, biased string) []position.Move {
	list := make([]move, len(moves))
	for i, m := range moves {
		list[i] = move{move: m, score: e.scoreMove(pos, m, ply, biased)}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	ordered := make([]position.Move, len(list))
	for i := range list {
		ordered[i] = list[i].move
	}
	return ordered
}

// noisyMoves keeps captures and promotions, ordered for quiescence.
func noisyMoves(pos *position.Position, moves []position.Move) []position.Move {
	list := make([]move, 0, len(moves))
	for _, m := range moves {
		promo := m.Promote() != position.Nothing
		victim := pos.Captured(m)
		if !promo && victim == position.Nothing {
			continue
		}
		score := 0
		if victim != position.Nothing {
			score = mvvLva(victim, pos.Mover(m))
		}
		if promo {
			score += qPromotionBonus
		}
		list = append(list, move{move: m, score: score})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })
	noisy := make([]position.Move, len(list))
	for i := range list {
		noisy[i] = list[i].move
	}
	return noisy
}
