package position

// Perft counts the leaf nodes of the legal move tree to depth.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		undo := p.board.Apply(m)
		nodes += Perft(p, depth-1)
		undo()
	}
	return nodes
}

// PerftDivide is Perft split by root move.
func PerftDivide(p *Position, depth int) map[string]uint64 {
	out := make(map[string]uint64)
	if depth <= 0 {
		return out
	}
	for _, m := range p.LegalMoves() {
		undo := p.board.Apply(m)
		out[MoveString(m)] = Perft(p, depth-1)
		undo()
	}
	return out
}
