package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chess-ai/engine"
	"chess-ai/position"
)

const queueSize = 8

// Worker owns one engine and runs its searches one at a time on a private
// goroutine. The engine's tables are never touched from anywhere else.
type Worker struct {
	engine    *engine.Engine
	log       zerolog.Logger
	requests  chan Request
	responses chan Response

	search func(ctx context.Context, req Request) Response

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	currentID string
	stopCur   context.CancelFunc
}

// New starts a worker around a fresh engine.
func New(opts engine.Options) *Worker {
	return newWorker(opts, nil)
}

func newWorker(opts engine.Options, search func(context.Context, Request) Response) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		engine:    engine.New(opts),
		log:       opts.Logger.With().Str("component", "worker").Logger(),
		requests:  make(chan Request, queueSize),
		responses: make(chan Response, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	w.search = search
	if w.search == nil {
		w.search = w.runSearch
	}
	go w.loop()
	return w
}

// Send queues a request. It fails only when the worker is closed.
func (w *Worker) Send(req Request) error {
	select {
	case <-w.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case w.requests <- req:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	}
}

// Responses delivers one Response per bestmove request, in request order.
func (w *Worker) Responses() <-chan Response {
	return w.responses
}

// Cancel stops the search for id if it is the one running. The search still
// answers, with whatever it had committed so far.
func (w *Worker) Cancel(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentID == id && w.stopCur != nil {
		w.stopCur()
	}
}

// Close stops the worker and waits for its goroutine to exit. The
// responses channel is closed afterwards.
func (w *Worker) Close() {
	w.cancel()
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)
	defer close(w.responses)
	for {
		select {
		case <-w.ctx.Done():
			return
		case req := <-w.requests:
			switch req.Type {
			case TypeNewGame:
				w.engine.NewGame()
				w.log.Debug().Msg("engine state reset")
				continue
			case TypeBestMove:
			default:
				w.reply(errorResponse(req.ID, fmt.Sprintf("unknown request type %q", req.Type)))
				continue
			}
			w.reply(w.handle(req))
		}
	}
}

func (w *Worker) reply(resp Response) {
	select {
	case w.responses <- resp:
	case <-w.ctx.Done():
	}
}

// handle runs one search; a panic becomes an error response.
func (w *Worker) handle(req Request) (resp Response) {
	ctx, stop := context.WithCancel(w.ctx)
	w.mu.Lock()
	w.currentID, w.stopCur = req.ID, stop
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.currentID, w.stopCur = "", nil
		w.mu.Unlock()
		stop()
		if r := recover(); r != nil {
			w.log.Error().Str("id", req.ID).Interface("panic", r).Msg("search panicked")
			resp = errorResponse(req.ID, fmt.Sprintf("worker error: %v", r))
		}
	}()
	return w.search(ctx, req)
}

func (w *Worker) runSearch(ctx context.Context, req Request) Response {
	pos, err := position.Parse(req.FEN)
	if err != nil {
		return errorResponse(req.ID, err.Error())
	}
	res := w.engine.Search(ctx, pos, engine.Limits{
		MaxDepth:   req.MaxDepth,
		TimeBudget: time.Duration(req.TimeMs) * time.Millisecond,
		BiasedMove: req.BookMove,
	})
	return bestMoveResponse(req.ID, res.Move, res.HasMove, res.DepthReached)
}
