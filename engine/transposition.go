package engine

const (
	// Flags
	AlphaFlag int8 = iota // upper bound, the node failed low
	BetaFlag              // lower bound, the node failed high
	ExactFlag

	// DefaultTTCapacity is the entry count past which the table is dropped.
	DefaultTTCapacity = 50000
)

type TTEntry struct {
	Depth int8
	Score int32
	Flag  int8
}

// TransTable maps position hashes to search results. There is no
// replacement scheme: entries are overwritten in place and the whole table is
// cleared once it grows past its capacity.
type TransTable struct {
	entries  map[uint64]TTEntry
	capacity int
}

func NewTransTable(capacity int) *TransTable {
	if capacity <= 0 {
		capacity = DefaultTTCapacity
	}
	return &TransTable{
		entries:  make(map[uint64]TTEntry, 1024),
		capacity: capacity,
	}
}

func (TT *TransTable) Len() int {
	return len(TT.entries)
}

func (TT *TransTable) Capacity() int {
	return TT.capacity
}

func (TT *TransTable) Clear() {
	clear(TT.entries)
}

// clearIfFull drops every entry when the table exceeds its capacity and
// reports whether it did.
func (TT *TransTable) clearIfFull() bool {
	if len(TT.entries) <= TT.capacity {
		return false
	}
	TT.Clear()
	return true
}

func (TT *TransTable) getEntry(hash uint64) (TTEntry, bool) {
	entry, ok := TT.entries[hash]
	return entry, ok
}

// useEntry reports whether a stored result answers a search of the given
// depth and window. Shallower entries are never used.
func (TT *TransTable) useEntry(hash uint64, depth int, alpha, beta int32, ply int) (usable bool, score int32) {
	entry, ok := TT.getEntry(hash)
	if !ok || int(entry.Depth) < depth {
		return false, 0
	}
	score = fromTTScore(entry.Score, ply)
	switch entry.Flag {
	case ExactFlag:
		return true, score
	case AlphaFlag:
		if score <= alpha {
			return true, score
		}
	case BetaFlag:
		if score >= beta {
			return true, score
		}
	}
	return false, 0
}

func (TT *TransTable) storeEntry(hash uint64, depth int, ply int, score int32, flag int8) {
	if depth < 0 {
		depth = 0
	}
	TT.entries[hash] = TTEntry{
		Depth: int8(Min(depth, MaxPly)),
		Score: toTTScore(score, ply),
		Flag:  flag,
	}
}

// boundFlag classifies a result against the window the node was searched with.
func boundFlag(score, alpha, beta int32) int8 {
	switch {
	case score <= alpha:
		return AlphaFlag
	case score >= beta:
		return BetaFlag
	}
	return ExactFlag
}

// Mate scores are stored relative to the node, not the root, so that an entry
// reached at a different ply still reports the right distance to mate.
func toTTScore(score int32, ply int) int32 {
	switch {
	case score > mateThreshold:
		return score + int32(ply)
	case score < -mateThreshold:
		return score - int32(ply)
	}
	return score
}

func fromTTScore(score int32, ply int) int32 {
	switch {
	case score > mateThreshold:
		return score - int32(ply)
	case score < -mateThreshold:
		return score + int32(ply)
	}
	return score
}
