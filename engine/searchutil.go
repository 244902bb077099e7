package engine

// MaxPly bounds the search tree depth; killer slots are allocated per ply.
const MaxPly = 64

/*
HISTORY HEURISTIC
Every move that causes a cutoff gets 2*depth^2 added to its weight, and the best
root move of every committed iteration gets 10*depth^2. Weights are keyed by the
move string alone, so the same from/to pair shares a weight in every position.
There is no ageing; the table only empties on NewGame.
*/
type HistoryTable struct {
	weights map[string]int
}

func NewHistoryTable() *HistoryTable {
	return &HistoryTable{weights: make(map[string]int, 512)}
}

func (h *HistoryTable) Add(move string, amount int) {
	h.weights[move] += amount
}

func (h *HistoryTable) Get(move string) int {
	return h.weights[move]
}

func (h *HistoryTable) Len() int {
	return len(h.weights)
}

// Clear the values in the history table.
func (h *HistoryTable) Clear() {
	clear(h.weights)
}

func cutoffBonus(depth int) int {
	return 2 * depth * depth
}

func rootBonus(depth int) int {
	return 10 * depth * depth
}
