package engine

import (
	"context"
	"testing"
	"time"

	"chess-ai/position"
)

func TestTTDepthCheckedReuse(t *testing.T) {
	tt := NewTransTable(100)
	tt.storeEntry(42, 4, 0, 150, ExactFlag)

	for depth := 0; depth <= 4; depth++ {
		usable, score := tt.useEntry(42, depth, -Infinity, Infinity, 0)
		if !usable || score != 150 {
			t.Fatalf("depth %d: usable=%v score=%d, want 150", depth, usable, score)
		}
	}
	if usable, _ := tt.useEntry(42, 5, -Infinity, Infinity, 0); usable {
		t.Fatalf("entry of depth 4 must not answer depth 5")
	}
	if usable, _ := tt.useEntry(7, 0, -Infinity, Infinity, 0); usable {
		t.Fatalf("missing entry reported usable")
	}
}

func TestTTBoundEntries(t *testing.T) {
	tt := NewTransTable(100)

	tt.storeEntry(1, 3, 0, 50, AlphaFlag)
	if usable, _ := tt.useEntry(1, 3, 0, 100, 0); usable {
		t.Fatalf("upper bound 50 cannot settle window (0, 100)")
	}
	if usable, score := tt.useEntry(1, 3, 60, 100, 0); !usable || score != 50 {
		t.Fatalf("upper bound 50 should fail low against alpha 60, got %v %d", usable, score)
	}

	tt.storeEntry(2, 3, 0, 200, BetaFlag)
	if usable, _ := tt.useEntry(2, 3, 0, 300, 0); usable {
		t.Fatalf("lower bound 200 cannot settle window (0, 300)")
	}
	if usable, score := tt.useEntry(2, 3, 0, 150, 0); !usable || score != 200 {
		t.Fatalf("lower bound 200 should fail high against beta 150, got %v %d", usable, score)
	}
}

func TestTTMateScoresAreNodeRelative(t *testing.T) {
	tt := NewTransTable(100)
	// Mate found 3 plies below a node at ply 2.
	tt.storeEntry(9, 2, 2, MateScore-5, ExactFlag)
	if _, score := tt.useEntry(9, 2, -Infinity, Infinity, 4); score != MateScore-7 {
		t.Fatalf("mate score at ply 4 = %d, want %d", score, MateScore-7)
	}
	tt.storeEntry(10, 2, 1, -(MateScore - 3), ExactFlag)
	if _, score := tt.useEntry(10, 2, -Infinity, Infinity, 1); score != -(MateScore - 3) {
		t.Fatalf("mated score round trip = %d", score)
	}
}

func TestBoundFlag(t *testing.T) {
	if boundFlag(-10, 0, 100) != AlphaFlag || boundFlag(0, 0, 100) != AlphaFlag {
		t.Fatalf("fail-low results must be upper bounds")
	}
	if boundFlag(100, 0, 100) != BetaFlag {
		t.Fatalf("fail-high results must be lower bounds")
	}
	if boundFlag(50, 0, 100) != ExactFlag {
		t.Fatalf("in-window results must be exact")
	}
}

func TestTTClearIfFull(t *testing.T) {
	tt := NewTransTable(3)
	for h := uint64(1); h <= 3; h++ {
		tt.storeEntry(h, 1, 0, 0, ExactFlag)
	}
	if tt.clearIfFull() {
		t.Fatalf("table at capacity must not be cleared")
	}
	tt.storeEntry(4, 1, 0, 0, ExactFlag)
	if !tt.clearIfFull() || tt.Len() != 0 {
		t.Fatalf("table over capacity must be cleared wholesale")
	}
	if NewTransTable(0).Capacity() != DefaultTTCapacity {
		t.Fatalf("zero capacity should fall back to the default")
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		fen  string
		want int32
	}{
		{position.StartFEN, 0},
		{"rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 900},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/1NBQKBNR b Kkq - 0 1", -500},
		{"4k3/8/8/8/8/8/8/2B1KN2 w - - 0 1", 650},
	}
	for _, tc := range cases {
		if got := Evaluate(mustParse(t, tc.fen)); got != tc.want {
			t.Fatalf("Evaluate(%s) = %d, want %d", tc.fen, got, tc.want)
		}
	}
}

func TestTimeHandlerIsSticky(t *testing.T) {
	var th TimeHandler
	th.Start(context.Background(), 5*time.Millisecond, false)
	if th.TimeStatus() {
		t.Fatalf("time reported up immediately")
	}
	time.Sleep(10 * time.Millisecond)
	if !th.TimeStatus() || !th.Stopped() {
		t.Fatalf("time not reported up after the budget")
	}
	th.Start(context.Background(), time.Hour, false)
	if th.Stopped() {
		t.Fatalf("Start did not rearm the handler")
	}

	th.Start(context.Background(), 0, true)
	if th.TimeStatus() {
		t.Fatalf("custom depth search must ignore the clock")
	}
}
