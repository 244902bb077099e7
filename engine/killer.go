package engine

// KillerTable keeps, per ply, the two most recent quiet refutations as move
// strings. Slot 0 is the most recent.
type KillerTable struct {
	KillerMoves [MaxPly + 1][2]string
}

func (k *KillerTable) InsertKiller(move string, ply int) {
	if ply < 0 || ply > MaxPly {
		return
	}
	if move != k.KillerMoves[ply][0] {
		k.KillerMoves[ply][1] = k.KillerMoves[ply][0]
		k.KillerMoves[ply][0] = move
	}
}

// Killers returns both slots for ply; empty strings mean no killer.
func (k *KillerTable) Killers(ply int) (first, second string) {
	if ply < 0 || ply > MaxPly {
		return "", ""
	}
	return k.KillerMoves[ply][0], k.KillerMoves[ply][1]
}

// Clear the killer moves table.
func (k *KillerTable) ClearKillers() {
	for ply := 0; ply <= MaxPly; ply++ {
		k.KillerMoves[ply][0] = ""
		k.KillerMoves[ply][1] = ""
	}
}
