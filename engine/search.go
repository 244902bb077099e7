package engine

import (
	"context"
	"time"

	"chess-ai/position"
)

// =============================================================================
// SCORE CONSTANTS
// =============================================================================
const (
	MateScore int32 = 999_999
	DrawScore int32 = 0
	Infinity  int32 = 1 << 30

	// Scores beyond this are mates; the margin leaves room for the ply offset.
	mateThreshold = MateScore - 1000

	maxQuiescencePly = 2 * MaxPly
)

// Search runs iterative deepening from depth 1 to limits.MaxDepth and
// returns the best root move of the deepest committed iteration. The
// position is restored before Search returns.
//
// An iteration cut short by the time budget still commits when at least one
// root move was searched to completion; only completed root moves are
// compared. If not even depth 1 commits, the first move in ordering is
// returned with DepthReached 0.
func (e *Engine) Search(ctx context.Context, pos *position.Position, limits Limits) Result {
	start := time.Now()
	e.stats = SearchStats{}
	if e.tt.clearIfFull() {
		e.log.Debug().Int("capacity", e.tt.Capacity()).Msg("transposition table cleared")
	}
	e.timer.Start(ctx, limits.TimeBudget, limits.FixedDepth)
	e.timer.LimitNodes(limits.MaxNodes)

	rootMoves := pos.LegalMoves()
	if len(rootMoves) == 0 {
		e.log.Debug().Str("fen", pos.FEN()).Msg("no legal moves")
		return Result{Elapsed: time.Since(start)}
	}

	maximizing := pos.WhiteToMove()
	maxDepth := Min(limits.MaxDepth, MaxPly)

	var result Result
	var bestMove position.Move
	committed := false

	for depth := 1; depth <= maxDepth; depth++ {
		if e.timer.TimeStatus() {
			break
		}
		ordered := e.orderMoves(pos, rootMoves, 0, limits.BiasedMove)
		move, score, found := e.rootsearch(pos, ordered, depth, maximizing, limits.BiasedMove)
		if found {
			bestMove = move
			committed = true
			result.Score = score
			result.DepthReached = depth
			e.history.Add(position.MoveString(move), rootBonus(depth))
		}
		if e.timer.Stopped() {
			break
		}
		// A forced mate either way will not change with more depth.
		if committed && Abs(result.Score) > mateThreshold {
			break
		}
	}

	if !committed {
		// Nothing finished in time; take the move ordering's favourite.
		bestMove = e.orderMoves(pos, rootMoves, 0, limits.BiasedMove)[0]
		result.Score = Evaluate(pos)
		result.DepthReached = 0
	}

	result.Move = position.MoveString(bestMove)
	result.HasMove = true
	result.Elapsed = time.Since(start)
	result.Stats = e.stats

	e.log.Debug().
		Str("move", result.Move).
		Int("depth", result.DepthReached).
		Int32("score", result.Score).
		Dur("elapsed", result.Elapsed).
		Int("tt_size", e.tt.Len()).
		Object("stats", e.stats).
		Msg("search finished")
	return result
}

// rootsearch searches every root move to depth-1 and reports the best one
// whose subtree completed before the time ran out.
func (e *Engine) rootsearch(pos *position.Position, ordered []position.Move, depth int, maximizing bool, biased string) (best position.Move, bestScore int32, found bool) {
	alpha, beta := -Infinity, Infinity
	for _, m := range ordered {
		if e.timer.TimeStatus() {
			break
		}
		var score int32
		pos.Visit(m, func() {
			score = e.alphabeta(pos, depth-1, alpha, beta, 1, biased)
		})
		if e.timer.Stopped() {
			break
		}
		if !found || (maximizing && score > bestScore) || (!maximizing && score < bestScore) {
			best, bestScore, found = m, score, true
		}
		if maximizing {
			alpha = Max(alpha, bestScore)
		} else {
			beta = Min(beta, bestScore)
		}
	}
	return best, bestScore, found
}

// alphabeta is plain minimax with alpha-beta pruning: white maximises, black
// minimises. Leaves and terminal nodes are resolved by quiescence.
func (e *Engine) alphabeta(pos *position.Position, depth int, alpha, beta int32, ply int, biased string) int32 {
	e.stats.Nodes++
	if e.timer.TimeStatus() {
		return Evaluate(pos)
	}

	hash := pos.Hash()
	if usable, score := e.tt.useEntry(hash, depth, alpha, beta, ply); usable {
		e.stats.TTHits++
		return score
	}

	moves := pos.LegalMoves()
	terminal := len(moves) == 0 || pos.IsDrawQuick()
	if depth <= 0 || terminal || ply >= MaxPly {
		score := e.quiescence(pos, alpha, beta, ply)
		if !e.timer.Stopped() {
			storeDepth := depth
			if !terminal {
				storeDepth = 0
			}
			e.tt.storeEntry(hash, storeDepth, ply, score, boundFlag(score, alpha, beta))
		}
		return score
	}

	alphaOrig, betaOrig := alpha, beta
	maximizing := pos.WhiteToMove()
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	searched := 0

	for _, m := range e.orderMoves(pos, moves, ply, biased) {
		if e.timer.TimeStatus() {
			break
		}
		var score int32
		pos.Visit(m, func() {
			score = e.alphabeta(pos, depth-1, alpha, beta, ply+1, biased)
		})
		if e.timer.Stopped() {
			break
		}
		searched++

		if maximizing {
			best = Max(best, score)
			alpha = Max(alpha, best)
		} else {
			best = Min(best, score)
			beta = Min(beta, best)
		}
		if beta <= alpha {
			uci := position.MoveString(m)
			e.killers.InsertKiller(uci, ply)
			e.history.Add(uci, cutoffBonus(depth))
			e.stats.BetaCutoffs++
			break
		}
	}

	if e.timer.Stopped() {
		if searched == 0 {
			return Evaluate(pos)
		}
		return best
	}
	e.tt.storeEntry(hash, depth, ply, best, boundFlag(best, alphaOrig, betaOrig))
	return best
}

// quiescence resolves captures and promotions until the position is quiet.
// It is fail-hard: results are clamped to the window. When time runs out the
// static evaluation is returned.
func (e *Engine) quiescence(pos *position.Position, alpha, beta int32, ply int) int32 {
	e.stats.QuiescenceNodes++
	if e.timer.TimeStatus() {
		return Evaluate(pos)
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		if !pos.InCheck() {
			return DrawScore
		}
		if pos.WhiteToMove() {
			return -(MateScore - int32(ply))
		}
		return MateScore - int32(ply)
	}
	if pos.IsDrawQuick() {
		return DrawScore
	}

	standpat := Evaluate(pos)
	if ply >= maxQuiescencePly {
		return standpat
	}

	maximizing := pos.WhiteToMove()
	if maximizing {
		if standpat >= beta {
			e.stats.QStandPatCutoffs++
			return beta
		}
		alpha = Max(alpha, standpat)
	} else {
		if standpat <= alpha {
			e.stats.QStandPatCutoffs++
			return alpha
		}
		beta = Min(beta, standpat)
	}

	for _, m := range noisyMoves(pos, moves) {
		if e.timer.TimeStatus() {
			break
		}
		var score int32
		pos.Visit(m, func() {
			score = e.quiescence(pos, alpha, beta, ply+1)
		})
		if maximizing {
			if score >= beta {
				e.stats.QBetaCutoffs++
				return beta
			}
			alpha = Max(alpha, score)
		} else {
			if score <= alpha {
				e.stats.QBetaCutoffs++
				return alpha
			}
			beta = Min(beta, score)
		}
	}

	if maximizing {
		return alpha
	}
	return beta
}
