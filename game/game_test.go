package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"chess-ai/learn"
	"chess-ai/position"
	"chess-ai/worker"
)

type fakeSearcher struct {
	mu     sync.Mutex
	calls  []worker.Limits
	fens   []string
	resets int
	reply  func(fen string) (worker.Result, error)
}

func (f *fakeSearcher) BestMove(ctx context.Context, fen string, limits worker.Limits) (worker.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, limits)
	f.fens = append(f.fens, fen)
	f.mu.Unlock()
	if f.reply == nil {
		return worker.Result{}, nil
	}
	return f.reply(fen)
}

func (f *fakeSearcher) NewGame() error {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
	return nil
}

// firstLegal answers with the first legal move, the way a depth-0 search would.
func firstLegal(fen string) (worker.Result, error) {
	pos := position.MustParse(fen)
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return worker.Result{}, nil
	}
	return worker.Result{Move: position.MoveString(legal[0]), HasMove: true, DepthReached: 1}, nil
}

func newTestManager(t *testing.T, s *fakeSearcher, store learn.Store) *Manager {
	t.Helper()
	cfg := Config{
		Searcher: s,
		Logger:   zerolog.Nop(),
		Intn:     func(int) int { return 0 },
	}
	if store != nil {
		cfg.Selector = learn.NewSelector(store, learn.DefaultExploration, learn.DefaultDrawReward)
		cfg.Recorder = learn.NewRecorder(store)
	}
	return NewManager(cfg)
}

func TestNewGameWithEngineAsWhite(t *testing.T) {
	s := &fakeSearcher{reply: firstLegal}
	m := newTestManager(t, s, nil)

	st, err := m.New(context.Background(), White, "hard")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(st.Moves) != 1 || st.Turn != "black" || st.LastAIMove == "" {
		t.Fatalf("engine did not open: %+v", st)
	}
	if s.calls[0].TimeMs != 420 || s.calls[0].MaxDepth != 6 {
		t.Fatalf("hard profile not passed on: %+v", s.calls[0])
	}
	if _, err := m.New(context.Background(), Black, "impossible"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestPlayerMoveGetsReply(t *testing.T) {
	s := &fakeSearcher{reply: firstLegal}
	m := newTestManager(t, s, nil)
	st, err := m.New(context.Background(), Black, "easy")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.calls) != 0 {
		t.Fatalf("engine moved out of turn")
	}

	st, err = m.PlayerMove(context.Background(), st.ID, "e2e4")
	if err != nil {
		t.Fatalf("PlayerMove: %v", err)
	}
	if len(st.Moves) != 2 || st.Moves[0] != "e2e4" || st.Turn != "white" {
		t.Fatalf("state after reply = %+v", st)
	}
	if !strings.HasPrefix(s.fens[0], "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq") {
		t.Fatalf("engine searched %q", s.fens[0])
	}

	if _, err := m.PlayerMove(context.Background(), st.ID, "e2e5"); !errors.Is(err, position.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if _, err := m.AIMove(context.Background(), st.ID); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if _, err := m.PlayerMove(context.Background(), "nope", "e2e4"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestFallbackToLegalMove(t *testing.T) {
	for name, reply := range map[string]func(string) (worker.Result, error){
		"null result": func(string) (worker.Result, error) { return worker.Result{TimedOut: true}, nil },
		"bad move":    func(string) (worker.Result, error) { return worker.Result{Move: "a1a8", HasMove: true}, nil },
		"error":       func(string) (worker.Result, error) { return worker.Result{}, worker.ErrSearch },
	} {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t, &fakeSearcher{reply: reply}, nil)
			st, err := m.New(context.Background(), White, "easy")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if len(st.Moves) != 1 || st.DepthReached != 0 {
				t.Fatalf("no fallback move: %+v", st)
			}
			if _, err := position.MustParse(position.StartFEN).ParseMove(st.Moves[0]); err != nil {
				t.Fatalf("fallback move %q is illegal", st.Moves[0])
			}
		})
	}
}

func TestCancelledContextLeavesEngineToMove(t *testing.T) {
	s := &fakeSearcher{}
	s.reply = func(string) (worker.Result, error) { return worker.Result{}, context.Canceled }
	m := newTestManager(t, s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := m.New(ctx, White, "easy")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(st.Moves) != 0 {
		t.Fatalf("engine moved despite cancellation: %+v", st)
	}

	s.reply = firstLegal
	st, err = m.AIMove(context.Background(), st.ID)
	if err != nil || len(st.Moves) != 1 {
		t.Fatalf("AIMove = %+v %v", st, err)
	}
}

func TestLearnedMoveIsPassedAsBook(t *testing.T) {
	store := learn.NewMemoryStore()
	key, _ := position.ReducedKey(position.StartFEN)
	if err := store.Increment(context.Background(), key, "g1f3", learn.Win); err != nil {
		t.Fatal(err)
	}
	s := &fakeSearcher{reply: firstLegal}
	m := newTestManager(t, s, store)
	if _, err := m.New(context.Background(), White, "medium"); err != nil {
		t.Fatal(err)
	}
	if s.calls[0].BookMove != "g1f3" {
		t.Fatalf("book move = %q, want g1f3", s.calls[0].BookMove)
	}
}

func TestGameEndRecordsOnce(t *testing.T) {
	store := learn.NewMemoryStore()
	s := &fakeSearcher{}
	// Fool's mate with the engine as black: it plays e7e5 and d8h4.
	script := map[string]string{
		"rnbqkbnr/pppppppp/8/8/8/5P2/PPPPP1PP/RNBQKBNR b": "e7e5",
		"rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b": "d8h4",
	}
	s.reply = func(fen string) (worker.Result, error) {
		fields := strings.Fields(fen)
		if mv, ok := script[fields[0]+" "+fields[1]]; ok {
			return worker.Result{Move: mv, HasMove: true, DepthReached: 3}, nil
		}
		return worker.Result{}, nil
	}
	m := newTestManager(t, s, store)

	st, err := m.New(context.Background(), Black, "easy")
	if err != nil {
		t.Fatal(err)
	}
	if st, err = m.PlayerMove(context.Background(), st.ID, "f2f3"); err != nil {
		t.Fatal(err)
	}
	if st, err = m.PlayerMove(context.Background(), st.ID, "g2g4"); err != nil {
		t.Fatal(err)
	}
	if !st.Over || st.Status != "checkmate" || st.Winner != "black" || st.Result != "loss" {
		t.Fatalf("final state = %+v", st)
	}

	key, _ := position.ReducedKey(s.fens[1])
	rows, _ := store.Rows(context.Background(), key)
	if len(rows) != 1 || rows[0].Move != "d8h4" || rows[0].Wins != 1 || rows[0].Plays != 1 {
		t.Fatalf("recorded rows = %+v", rows)
	}
	if store.Len() != 2 {
		t.Fatalf("store holds %d rows, want 2", store.Len())
	}

	if _, err := m.PlayerMove(context.Background(), st.ID, "a2a3"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if _, err := m.Resign(context.Background(), st.ID); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("game recorded twice")
	}
}

func TestResignCountsAsEngineWin(t *testing.T) {
	store := learn.NewMemoryStore()
	s := &fakeSearcher{reply: firstLegal}
	m := newTestManager(t, s, store)
	st, err := m.New(context.Background(), White, "easy")
	if err != nil {
		t.Fatal(err)
	}
	st, err = m.Resign(context.Background(), st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Over || st.Status != "resigned" || st.Winner != "white" || st.Result != "loss" {
		t.Fatalf("state = %+v", st)
	}
	key, _ := position.ReducedKey(position.StartFEN)
	rows, _ := store.Rows(context.Background(), key)
	if len(rows) != 1 || rows[0].Wins != 1 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestResetBetweenGames(t *testing.T) {
	s := &fakeSearcher{reply: firstLegal}
	m := NewManager(Config{Searcher: s, ResetBetweenGames: true, Logger: zerolog.Nop()})
	for i := 0; i < 2; i++ {
		if _, err := m.New(context.Background(), Black, "easy"); err != nil {
			t.Fatal(err)
		}
	}
	if s.resets != 2 || m.Len() != 2 {
		t.Fatalf("resets = %d, games = %d", s.resets, m.Len())
	}
}

func TestParseColor(t *testing.T) {
	if c, err := ParseColor("B"); err != nil || c != Black {
		t.Fatalf("ParseColor(B) = %v %v", c, err)
	}
	if _, err := ParseColor("red"); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("expected ErrInvalidColor, got %v", err)
	}
}
