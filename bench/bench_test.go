package bench

import (
	"context"
	"testing"

	"chess-ai/engine"
	"chess-ai/learn"
	"chess-ai/position"
)

const (
	kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	pos6     = "r4rk1/1pp1qppp/p1np1n2/2b1p3/2B1P3/2NP1N2/PPP1QPPP/R4RK1 w - - 0 10"
)

func benchPerft(b *testing.B, fen string, depth int) {
	pos := position.MustParse(fen)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = position.Perft(pos, depth)
	}
}

func BenchmarkPerft_Initial_D4(b *testing.B) {
	benchPerft(b, position.StartFEN, 4)
}

func BenchmarkPerft_Kiwipete_D3(b *testing.B) {
	benchPerft(b, kiwipete, 3)
}

func benchLegalMoves(b *testing.B, fen string) {
	pos := position.MustParse(fen)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pos.LegalMoves()
	}
}

func BenchmarkLegalMoves_Initial(b *testing.B) {
	benchLegalMoves(b, position.StartFEN)
}

func BenchmarkLegalMoves_Kiwipete(b *testing.B) {
	benchLegalMoves(b, kiwipete)
}

func BenchmarkApplyUndo_AllMoves_Initial(b *testing.B) {
	pos := position.MustParse(position.StartFEN)
	moves := pos.LegalMoves()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, m := range moves {
			undo := pos.Apply(m)
			undo()
		}
	}
}

func BenchmarkEvaluate_Pos6(b *testing.B) {
	pos := position.MustParse(pos6)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Evaluate(pos)
	}
}

func benchSearch(b *testing.B, fen string, depth int) {
	pos := position.MustParse(fen)
	eng := engine.New(engine.DefaultOptions())
	limits := engine.Limits{MaxDepth: depth, FixedDepth: true}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.NewGame()
		_ = eng.Search(context.Background(), pos, limits)
	}
}

func BenchmarkSearch_Initial_D4(b *testing.B) {
	benchSearch(b, position.StartFEN, 4)
}

func BenchmarkSearch_Kiwipete_D3(b *testing.B) {
	benchSearch(b, kiwipete, 3)
}

func BenchmarkSelectUCB(b *testing.B) {
	rows := make([]learn.MoveStat, 30)
	for i := range rows {
		rows[i] = learn.MoveStat{Move: "e2e4", Plays: uint32(i + 1), Wins: uint32(i / 2), Draws: 1}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = learn.SelectUCB(rows, learn.DefaultExploration, learn.DefaultDrawReward)
	}
}
