package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the standard initial chess position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	// ErrInvalidFEN is wrapped by every FEN validation failure.
	ErrInvalidFEN = errors.New("invalid FEN")
	// ErrIllegalMove is returned when a move string does not match a legal move.
	ErrIllegalMove = errors.New("illegal move")
)

// normalizeFEN checks every FEN field and returns the six-field form.
// Four-field FENs (no clocks) get "0 1" appended.
func normalizeFEN(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) != 4 && len(fields) != 6 {
		return "", fmt.Errorf("%w: expected 4 or 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	// 1. Piece placement
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	var whiteKings, blackKings int
	for i, rank := range ranks {
		if rank == "" {
			return "", fmt.Errorf("%w: empty rank %d", ErrInvalidFEN, 8-i)
		}
		files := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				files += int(ch - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", ch):
				files++
				if ch == 'K' {
					whiteKings++
				} else if ch == 'k' {
					blackKings++
				}
				if (ch == 'p' || ch == 'P') && (i == 0 || i == 7) {
					return "", fmt.Errorf("%w: pawn on back rank %d", ErrInvalidFEN, 8-i)
				}
			default:
				return "", fmt.Errorf("%w: unrecognized piece character %q", ErrInvalidFEN, ch)
			}
		}
		if files != 8 {
			return "", fmt.Errorf("%w: rank %d describes %d files", ErrInvalidFEN, 8-i, files)
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return "", fmt.Errorf("%w: need exactly one king per side, got white=%d black=%d", ErrInvalidFEN, whiteKings, blackKings)
	}

	// 2. Side to move
	if fields[1] != "w" && fields[1] != "b" {
		return "", fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	// 3. Castling rights
	if fields[2] != "-" {
		seen := map[rune]bool{}
		for _, ch := range fields[2] {
			if !strings.ContainsRune("KQkq", ch) || seen[ch] {
				return "", fmt.Errorf("%w: castling rights %q", ErrInvalidFEN, fields[2])
			}
			seen[ch] = true
		}
	}

	// 4. En passant target
	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return "", fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, ep)
		}
	}

	// 5/6. Clocks
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	halfmove, err := strconv.Atoi(fields[4])
	if err != nil || halfmove < 0 || halfmove > 255 {
		return "", fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
	}
	fullmove, err := strconv.Atoi(fields[5])
	if err != nil || fullmove < 1 || fullmove > 65535 {
		return "", fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
	}

	return strings.Join(fields, " "), nil
}

// ReducedKey parses fen and returns its Key. Positions that differ only in
// move counters, or in an en passant square no pawn can capture on, share a
// reduced key.
func ReducedKey(fen string) (string, error) {
	pos, err := Parse(fen)
	if err != nil {
		return "", err
	}
	return pos.Key(), nil
}
