// Package position adapts the dragontoothmg move generator into the small
// capability surface the search needs: legal moves, check and draw detection,
// reversible move application and a reduced key for statistics.
package position

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

type Move = dragontoothmg.Move
type Piece = dragontoothmg.Piece

// NullMove is the zero move; dragontoothmg never generates it.
const NullMove Move = 0

// Piece types, re-exported so callers don't need the move generator import.
const (
	Nothing Piece = dragontoothmg.Nothing
	Pawn    Piece = dragontoothmg.Pawn
	Knight  Piece = dragontoothmg.Knight
	Bishop  Piece = dragontoothmg.Bishop
	Rook    Piece = dragontoothmg.Rook
	Queen   Piece = dragontoothmg.Queen
	King    Piece = dragontoothmg.King
)

const fiftyMoveLimit = 100

// Position is a board plus the hashes of every position reached since it
// was parsed; the hash stack backs threefold-repetition detection.
type Position struct {
	board   dragontoothmg.Board
	history []uint64
}

// Parse validates fen and builds a Position from it.
func Parse(fen string) (pos *Position, err error) {
	norm, err := normalizeFEN(fen)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			pos = nil
			err = fmt.Errorf("%w: %v", ErrInvalidFEN, r)
		}
	}()
	p := &Position{board: dragontoothmg.ParseFen(norm)}
	p.history = append(make([]uint64, 0, 128), p.board.Hash())
	return p, nil
}

// MustParse is Parse for FENs known to be valid, such as StartFEN.
func MustParse(fen string) *Position {
	p, err := Parse(fen)
	if err != nil {
		panic(err)
	}
	return p
}

// Clone returns an independent copy including the repetition history.
func (p *Position) Clone() *Position {
	c := &Position{board: p.board}
	c.history = append(make([]uint64, 0, cap(p.history)), p.history...)
	return c
}

func (p *Position) FEN() string {
	return p.board.ToFen()
}

// Key is the reduced position key: the FEN without its clock fields. The
// en passant field is "-" unless a legal en passant capture exists, since the
// board records a target square after every double pawn push.
func (p *Position) Key() string {
	fields := strings.Fields(p.board.ToFen())
	if len(fields) > 4 {
		fields = fields[:4]
	}
	if len(fields) == 4 && fields[3] != "-" && !p.canCaptureEnPassant(fields[3]) {
		fields[3] = "-"
	}
	return strings.Join(fields, " ")
}

func (p *Position) canCaptureEnPassant(target string) bool {
	sq, err := dragontoothmg.AlgebraicToIndex(target)
	if err != nil {
		return false
	}
	for _, m := range p.LegalMoves() {
		if m.To() == sq && m.From()%8 != sq%8 && p.Mover(m) == Pawn {
			return true
		}
	}
	return false
}

// Hash is the board's Zobrist hash. Clocks are not part of it; the en passant
// target is, so Key rather than Hash is the statistics bucket.
func (p *Position) Hash() uint64 {
	return p.board.Hash()
}

func (p *Position) WhiteToMove() bool {
	return p.board.Wtomove
}

func (p *Position) HalfmoveClock() int {
	return int(p.board.Halfmoveclock)
}

func (p *Position) LegalMoves() []Move {
	return p.board.GenerateLegalMoves()
}

func (p *Position) InCheck() bool {
	return p.board.OurKingInCheck()
}

// Apply plays m and returns the closure that takes it back. The caller must
// call undo exactly once, in LIFO order with other applied moves.
func (p *Position) Apply(m Move) (undo func()) {
	unapply := p.board.Apply(m)
	p.history = append(p.history, p.board.Hash())
	return func() {
		unapply()
		p.history = p.history[:len(p.history)-1]
	}
}

// Visit plays m, runs fn and takes the move back on every exit path,
// panics included.
func (p *Position) Visit(m Move, fn func()) {
	undo := p.Apply(m)
	defer undo()
	fn()
}

// ParseMove resolves a UCI move string against the legal moves of the
// position. A four character pawn move onto the last rank is read as a
// queen promotion.
func (p *Position) ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return NullMove, fmt.Errorf("%w: %q is not a 4-5 character move", ErrIllegalMove, s)
	}
	legal := p.LegalMoves()
	for _, m := range legal {
		if MoveString(m) == s {
			return m, nil
		}
	}
	if len(s) == 4 {
		for _, m := range legal {
			if MoveString(m) == s+"q" {
				return m, nil
			}
		}
	}
	return NullMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, p.FEN())
}

// MoveString is the compact UCI encoding of m, e.g. "e2e4" or "e7e8q".
func MoveString(m Move) string {
	return m.String()
}

// PieceAt reports the piece on sq and whether it is white.
func (p *Position) PieceAt(sq uint8) (piece Piece, white bool, occupied bool) {
	if piece, ok := pieceOn(sq, &p.board.White); ok {
		return piece, true, true
	}
	if piece, ok := pieceOn(sq, &p.board.Black); ok {
		return piece, false, true
	}
	return Nothing, false, false
}

func pieceOn(sq uint8, bb *dragontoothmg.Bitboards) (Piece, bool) {
	mask := uint64(1) << sq
	switch {
	case bb.All&mask == 0:
		return Nothing, false
	case bb.Pawns&mask != 0:
		return Pawn, true
	case bb.Knights&mask != 0:
		return Knight, true
	case bb.Bishops&mask != 0:
		return Bishop, true
	case bb.Rooks&mask != 0:
		return Rook, true
	case bb.Queens&mask != 0:
		return Queen, true
	case bb.Kings&mask != 0:
		return King, true
	}
	return Nothing, false
}

// Mover is the type of the piece m moves.
func (p *Position) Mover(m Move) Piece {
	piece, _, _ := p.PieceAt(m.From())
	return piece
}

// Captured is the type of the piece m takes, Nothing for quiet moves.
// En passant captures report a pawn.
func (p *Position) Captured(m Move) Piece {
	victim, white, occupied := p.PieceAt(m.To())
	if occupied && white != p.board.Wtomove {
		return victim
	}
	if !occupied && p.Mover(m) == Pawn && m.From()%8 != m.To()%8 {
		return Pawn
	}
	return Nothing
}

func (p *Position) IsCapture(m Move) bool {
	return p.Captured(m) != Nothing
}

// Counts returns the number of pieces of each type per side, indexed
// [0=white, 1=black][piece type].
func (p *Position) Counts() (counts [2][7]int) {
	for side, bb := range [2]*dragontoothmg.Bitboards{&p.board.White, &p.board.Black} {
		counts[side][Pawn] = popcount(bb.Pawns)
		counts[side][Knight] = popcount(bb.Knights)
		counts[side][Bishop] = popcount(bb.Bishops)
		counts[side][Rook] = popcount(bb.Rooks)
		counts[side][Queen] = popcount(bb.Queens)
		counts[side][King] = popcount(bb.Kings)
	}
	return counts
}

func popcount(bb uint64) int {
	return bits.OnesCount64(bb)
}
