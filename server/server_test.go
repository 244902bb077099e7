package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"chess-ai/engine"
	"chess-ai/game"
	"chess-ai/learn"
	"chess-ai/position"
	"chess-ai/worker"
)

type testEnv struct {
	srv   *httptest.Server
	store *learn.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := worker.NewClient(worker.New(engine.DefaultOptions()), worker.DefaultGrace, zerolog.Nop())
	t.Cleanup(client.Close)

	store := learn.NewMemoryStore()
	selector := learn.NewSelector(store, learn.DefaultExploration, learn.DefaultDrawReward)
	recorder := learn.NewRecorder(store)
	profiles := game.Profiles{
		"medium": {Name: "medium", TimeMs: 200, MaxDepth: 2},
	}
	games := game.NewManager(game.Config{
		Searcher: client,
		Selector: selector,
		Recorder: recorder,
		Profiles: profiles,
		Logger:   zerolog.Nop(),
	})
	s := New(Config{
		Games:    games,
		Profiles: profiles,
		Store:    store,
		Selector: selector,
		Recorder: recorder,
		Logger:   zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	var ok OKResponse
	resp := env.do(t, http.MethodGet, "/healthz", nil, &ok)
	if resp.StatusCode != http.StatusOK || !ok.OK {
		t.Fatalf("healthz = %d %+v", resp.StatusCode, ok)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestGameFlow(t *testing.T) {
	env := newTestEnv(t)

	var st game.State
	resp := env.do(t, http.MethodPost, "/v1/games", NewGameRequest{}, &st)
	if resp.StatusCode != http.StatusCreated || st.AIColor != "black" || st.Turn != "white" {
		t.Fatalf("new game = %d %+v", resp.StatusCode, st)
	}

	resp = env.do(t, http.MethodPost, "/v1/games/"+st.ID+"/move", MoveRequest{UCI: "e2e4"}, &st)
	if resp.StatusCode != http.StatusOK || len(st.Moves) != 2 || st.Turn != "white" {
		t.Fatalf("move = %d %+v", resp.StatusCode, st)
	}

	var e ErrorResponse
	resp = env.do(t, http.MethodPost, "/v1/games/"+st.ID+"/move", MoveRequest{UCI: "e4e6"}, &e)
	if resp.StatusCode != http.StatusBadRequest || e.Error == "" {
		t.Fatalf("illegal move = %d %+v", resp.StatusCode, e)
	}
	resp = env.do(t, http.MethodPost, "/v1/games/"+st.ID+"/ai", nil, &e)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("ai out of turn = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/v1/games/"+st.ID+"/resign", nil, &st)
	if resp.StatusCode != http.StatusOK || !st.Over || st.Result != "loss" {
		t.Fatalf("resign = %d %+v", resp.StatusCode, st)
	}
	if env.store.Len() != 1 {
		t.Fatalf("resignation recorded %d rows, want 1", env.store.Len())
	}

	resp = env.do(t, http.MethodGet, "/v1/games/"+st.ID, nil, &st)
	if resp.StatusCode != http.StatusOK || !st.Over {
		t.Fatalf("get = %d %+v", resp.StatusCode, st)
	}
	resp = env.do(t, http.MethodDelete, "/v1/games/"+st.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/v1/games/"+st.ID, nil, &e)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d", resp.StatusCode)
	}
}

func TestNewGameRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	var e ErrorResponse
	if resp := env.do(t, http.MethodPost, "/v1/games", NewGameRequest{AIColor: "green"}, &e); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad color = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/v1/games", NewGameRequest{Difficulty: "hard"}, &e); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown difficulty = %d", resp.StatusCode)
	}
}

func TestBestMove(t *testing.T) {
	env := newTestEnv(t)
	depth := 2
	var res BestMoveResponse
	resp := env.do(t, http.MethodPost, "/v1/bestmove", BestMoveRequest{
		FEN:      "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		MaxDepth: &depth,
	}, &res)
	if resp.StatusCode != http.StatusOK || res.UCI == nil || *res.UCI != "a1a8" {
		t.Fatalf("bestmove = %d %+v", resp.StatusCode, res)
	}

	res = BestMoveResponse{}
	resp = env.do(t, http.MethodPost, "/v1/bestmove", BestMoveRequest{FEN: "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"}, &res)
	if resp.StatusCode != http.StatusOK || res.UCI != nil || res.DepthReached != 0 {
		t.Fatalf("stalemate bestmove = %d %+v", resp.StatusCode, res)
	}

	var e ErrorResponse
	if resp := env.do(t, http.MethodPost, "/v1/bestmove", BestMoveRequest{FEN: "garbage"}, &e); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad fen = %d", resp.StatusCode)
	}
	zero := 0
	if resp := env.do(t, http.MethodPost, "/v1/bestmove", BestMoveRequest{FEN: position.StartFEN, MaxDepth: &zero}, &e); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero depth = %d", resp.StatusCode)
	}
}

func TestOutcomeThenLearned(t *testing.T) {
	env := newTestEnv(t)
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

	var learned LearnedResponse
	env.do(t, http.MethodGet, "/v1/learned?fen="+url.QueryEscape(fen), nil, &learned)
	if learned.Move != nil || len(learned.Moves) != 0 {
		t.Fatalf("empty table answered %+v", learned)
	}

	var ok OKResponse
	resp := env.do(t, http.MethodPost, "/v1/outcome", map[string]any{
		"outcome": "loss",
		"moves":   []map[string]string{{"position_fen": fen, "uci": "c7c5"}},
	}, &ok)
	if resp.StatusCode != http.StatusOK || !ok.OK {
		t.Fatalf("outcome = %d", resp.StatusCode)
	}

	// Same position with different clocks shares the bucket.
	env.do(t, http.MethodGet, "/v1/learned?fen="+url.QueryEscape("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 7 9"), nil, &learned)
	if learned.Move == nil || *learned.Move != "c7c5" || len(learned.Moves) != 1 || learned.Moves[0].Wins != 1 {
		t.Fatalf("learned = %+v", learned)
	}

	// A client that writes "-" for the en passant field reads the same bucket.
	env.do(t, http.MethodGet, "/v1/learned?fen="+url.QueryEscape("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"), nil, &learned)
	if learned.Move == nil || *learned.Move != "c7c5" {
		t.Fatalf("learned without en passant square = %+v", learned)
	}

	var e ErrorResponse
	resp = env.do(t, http.MethodPost, "/v1/outcome", map[string]any{"outcome": "maybe", "moves": []any{}}, &e)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad outcome = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodPost, "/v1/outcome", map[string]any{
		"outcome": "win",
		"moves":   []map[string]string{{"position_fen": fen, "uci": "e2e4"}},
	}, &e)
	if resp.StatusCode != http.StatusBadRequest || env.store.Len() != 1 {
		t.Fatalf("illegal traced move = %d, rows = %d", resp.StatusCode, env.store.Len())
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lookup: %w", game.ErrGameNotFound), http.StatusNotFound},
		{game.ErrNotYourTurn, http.StatusConflict},
		{fmt.Errorf("%w: bad", position.ErrInvalidFEN), http.StatusBadRequest},
		{fmt.Errorf("search: %w", worker.ErrClosed), http.StatusServiceUnavailable},
		{context.Canceled, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: boom", worker.ErrSearch), http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
