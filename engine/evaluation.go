package engine

import (
	"chess-ai/position"
)

// Material values indexed by piece type. The king carries no material; it
// can never be traded.
var pieceValue = [7]int32{
	position.Nothing: 0,
	position.Pawn:    100,
	position.Knight:  320,
	position.Bishop:  330,
	position.Rook:    500,
	position.Queen:   900,
	position.King:    0,
}

// PieceValue returns the material value of a piece type.
func PieceValue(p position.Piece) int32 {
	if int(p) >= len(pieceValue) {
		return 0
	}
	return pieceValue[p]
}

// Evaluate scores pos by material alone. Positive favours white, negative
// favours black, regardless of the side to move.
func Evaluate(pos *position.Position) int32 {
	counts := pos.Counts()
	var score int32
	for piece := position.Pawn; piece <= position.King; piece++ {
		score += int32(counts[0][piece]-counts[1][piece]) * pieceValue[piece]
	}
	return score
}
