package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chess-ai/engine"
	"chess-ai/position"
)

func newTestClient(t *testing.T, search func(context.Context, Request) Response, grace time.Duration) *Client {
	t.Helper()
	c := NewClient(newWorker(engine.DefaultOptions(), search), grace, zerolog.Nop())
	t.Cleanup(c.Close)
	return c
}

func TestClientReturnsLegalMove(t *testing.T) {
	c := newTestClient(t, nil, DefaultGrace)
	res, err := c.BestMove(context.Background(), position.StartFEN, Limits{TimeMs: 2000, MaxDepth: 2})
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if !res.HasMove || res.DepthReached < 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := position.MustParse(position.StartFEN).ParseMove(res.Move); err != nil {
		t.Fatalf("illegal move %q: %v", res.Move, err)
	}
	if err := c.NewGame(); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
}

func TestClientNoLegalMovesIsNotAnError(t *testing.T) {
	c := newTestClient(t, nil, DefaultGrace)
	res, err := c.BestMove(context.Background(), "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits{TimeMs: 500, MaxDepth: 3})
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if res.HasMove || res.DepthReached != 0 || res.TimedOut {
		t.Fatalf("result = %+v, want null move at depth 0", res)
	}
}

func TestClientMalformedFENIsAnError(t *testing.T) {
	c := newTestClient(t, nil, DefaultGrace)
	_, err := c.BestMove(context.Background(), "not/a/fen w - -", Limits{TimeMs: 100, MaxDepth: 2})
	if !errors.Is(err, ErrSearch) || !strings.Contains(err.Error(), "invalid FEN") {
		t.Fatalf("expected a wrapped FEN error, got %v", err)
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(ctx context.Context, req Request) Response {
		calls++
		if calls == 1 {
			panic("corrupted board")
		}
		return bestMoveResponse(req.ID, "e2e4", true, 1)
	}, DefaultGrace)

	_, err := c.BestMove(context.Background(), position.StartFEN, Limits{TimeMs: 100})
	if !errors.Is(err, ErrSearch) || !strings.Contains(err.Error(), "corrupted board") {
		t.Fatalf("expected panic to surface as an error, got %v", err)
	}
	res, err := c.BestMove(context.Background(), position.StartFEN, Limits{TimeMs: 100})
	if err != nil || res.Move != "e2e4" {
		t.Fatalf("worker did not survive the panic: %+v %v", res, err)
	}
}

func TestPendingRequestIsSuperseded(t *testing.T) {
	started := make(chan struct{}, 1)
	c := newTestClient(t, func(ctx context.Context, req Request) Response {
		if req.FEN == "slow" {
			started <- struct{}{}
			<-ctx.Done()
			return bestMoveResponse(req.ID, "a2a3", true, 1)
		}
		return bestMoveResponse(req.ID, "b2b3", true, 2)
	}, DefaultGrace)

	first := make(chan Result, 1)
	go func() {
		res, _ := c.BestMove(context.Background(), "slow", Limits{TimeMs: 10_000})
		first <- res
	}()
	<-started

	second, err := c.BestMove(context.Background(), "fast", Limits{TimeMs: 10_000})
	if err != nil {
		t.Fatal(err)
	}
	if second.Move != "b2b3" {
		t.Fatalf("second request got %+v", second)
	}
	select {
	case res := <-first:
		if res.HasMove || res.TimedOut {
			t.Fatalf("superseded request got %+v, want a null result", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("superseded request was never resolved")
	}
}

func TestOuterDeadlineFreesSlot(t *testing.T) {
	c := newTestClient(t, func(ctx context.Context, req Request) Response {
		if req.FEN == "stuck" {
			time.Sleep(300 * time.Millisecond)
		}
		return bestMoveResponse(req.ID, "c2c3", true, 1)
	}, 20*time.Millisecond)

	start := time.Now()
	res, err := c.BestMove(context.Background(), "stuck", Limits{TimeMs: 0})
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimedOut || res.HasMove {
		t.Fatalf("result = %+v, want a timed out null result", res)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("outer deadline not enforced, waited %v", elapsed)
	}

	// The stuck answer arrives later and must be dropped; the next request
	// gets its own answer.
	res, err = c.BestMove(context.Background(), "next", Limits{TimeMs: 5000})
	if err != nil || res.Move != "c2c3" || res.TimedOut {
		t.Fatalf("next request = %+v %v", res, err)
	}
}

func TestClientContextCancel(t *testing.T) {
	c := newTestClient(t, func(ctx context.Context, req Request) Response {
		<-ctx.Done()
		return bestMoveResponse(req.ID, "", false, 0)
	}, DefaultGrace)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.BestMove(ctx, "x", Limits{TimeMs: 10_000}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestClosedWorker(t *testing.T) {
	c := NewClient(New(engine.DefaultOptions()), DefaultGrace, zerolog.Nop())
	c.Close()
	if _, err := c.BestMove(context.Background(), position.StartFEN, Limits{TimeMs: 10}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.NewGame(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from NewGame, got %v", err)
	}
}

func TestResponseJSONShape(t *testing.T) {
	out, err := json.Marshal(bestMoveResponse("r1", "", false, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"type":"bestmove","id":"r1","uci":null,"depthReached":0}` {
		t.Fatalf("null response = %s", out)
	}
	out, _ = json.Marshal(bestMoveResponse("r2", "e7e8q", true, 4))
	if string(out) != `{"type":"bestmove","id":"r2","uci":"e7e8q","depthReached":4}` {
		t.Fatalf("move response = %s", out)
	}
}
