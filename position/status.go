package position

// Status classifies how a game stands in a position.
type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	FiftyMoveRule
	InsufficientMaterial
	ThreefoldRepetition
)

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case FiftyMoveRule:
		return "fifty-move rule"
	case InsufficientMaterial:
		return "insufficient material"
	case ThreefoldRepetition:
		return "threefold repetition"
	}
	return "unknown"
}

// Winner of a finished game.
type Winner int

const (
	NoWinner Winner = iota
	WhiteWins
	BlackWins
	Draw
)

func (w Winner) String() string {
	switch w {
	case WhiteWins:
		return "white"
	case BlackWins:
		return "black"
	case Draw:
		return "draw"
	}
	return "none"
}

func (p *Position) IsCheckmate() bool {
	return p.InCheck() && len(p.LegalMoves()) == 0
}

func (p *Position) IsStalemate() bool {
	return !p.InCheck() && len(p.LegalMoves()) == 0
}

// IsDraw reports stalemate, the fifty-move rule, insufficient material or a
// threefold repetition.
func (p *Position) IsDraw() bool {
	switch p.Status() {
	case Stalemate, FiftyMoveRule, InsufficientMaterial, ThreefoldRepetition:
		return true
	}
	return false
}

func (p *Position) IsGameOver() bool {
	return p.Status() != Ongoing
}

// Status evaluates the position once, checkmate first.
func (p *Position) Status() Status {
	if len(p.LegalMoves()) == 0 {
		if p.InCheck() {
			return Checkmate
		}
		return Stalemate
	}
	if int(p.board.Halfmoveclock) >= fiftyMoveLimit {
		return FiftyMoveRule
	}
	if p.insufficientMaterial() {
		return InsufficientMaterial
	}
	if p.repetitions() >= 3 {
		return ThreefoldRepetition
	}
	return Ongoing
}

// Outcome reports the winner of a finished game, NoWinner while it goes on.
func (p *Position) Outcome() Winner {
	switch p.Status() {
	case Ongoing:
		return NoWinner
	case Checkmate:
		if p.board.Wtomove {
			return BlackWins
		}
		return WhiteWins
	}
	return Draw
}

// IsDrawQuick is the draw test used inside the search. It skips move
// generation, so stalemate is left to the caller.
func (p *Position) IsDrawQuick() bool {
	return int(p.board.Halfmoveclock) >= fiftyMoveLimit ||
		p.insufficientMaterial() ||
		p.repetitions() >= 3
}

// repetitions counts how often the current position occurred since the last
// irreversible move, the current occurrence included.
func (p *Position) repetitions() int {
	n := len(p.history)
	if n == 0 {
		return 0
	}
	current := p.history[n-1]
	window := int(p.board.Halfmoveclock)
	count := 1
	for i := n - 3; i >= 0 && n-1-i <= window; i -= 2 {
		if p.history[i] == current {
			count++
		}
	}
	return count
}

const (
	lightSquares uint64 = 0x55AA55AA55AA55AA
	darkSquares  uint64 = 0xAA55AA55AA55AA55
)

// insufficientMaterial covers K v K, K+minor v K and bishops all on one
// square colour.
func (p *Position) insufficientMaterial() bool {
	w, b := &p.board.White, &p.board.Black
	if w.Pawns|b.Pawns|w.Rooks|b.Rooks|w.Queens|b.Queens != 0 {
		return false
	}
	knights := w.Knights | b.Knights
	bishops := w.Bishops | b.Bishops
	minors := popcount(knights) + popcount(bishops)
	if minors <= 1 {
		return true
	}
	if knights != 0 {
		return false
	}
	return bishops&lightSquares == 0 || bishops&darkSquares == 0
}
