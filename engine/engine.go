package engine

import (
	"time"

	"github.com/rs/zerolog"
)

// Options configure an Engine.
type Options struct {
	// TTCapacity is the entry count past which the transposition table is
	// cleared at the start of the next search.
	TTCapacity int
	// ResetBetweenGames tells owners of the engine to call NewGame when a new
	// game starts. When false, history and the transposition table carry
	// over from one game to the next.
	ResetBetweenGames bool
	Logger            zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		TTCapacity: DefaultTTCapacity,
		Logger:     zerolog.Nop(),
	}
}

// Limits bound a single search request.
type Limits struct {
	MaxDepth   int
	TimeBudget time.Duration
	// BiasedMove is tried first at every node where it is legal.
	BiasedMove string
	// FixedDepth ignores TimeBudget and searches every depth up to MaxDepth.
	FixedDepth bool
	// MaxNodes stops the search after that many time checks, about one per
	// node visited. Zero means no limit. It applies with FixedDepth too.
	MaxNodes uint64
}

// Result is the outcome of a search. HasMove is false only when the root
// position has no legal moves.
type Result struct {
	Move         string
	HasMove      bool
	DepthReached int
	Score        int32
	Elapsed      time.Duration
	Stats        SearchStats
}

// Engine owns the search state that survives between requests: the
// transposition table, killer moves and history weights. An Engine is not
// safe for concurrent use; give every concurrent game its own.
type Engine struct {
	opts    Options
	log     zerolog.Logger
	tt      *TransTable
	killers KillerTable
	history *HistoryTable
	timer   TimeHandler
	stats   SearchStats
}

func New(opts Options) *Engine {
	if opts.TTCapacity <= 0 {
		opts.TTCapacity = DefaultTTCapacity
	}
	return &Engine{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "engine").Logger(),
		tt:      NewTransTable(opts.TTCapacity),
		history: NewHistoryTable(),
	}
}

// NewGame forgets everything learned by earlier searches.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.killers.ClearKillers()
	e.history.Clear()
}

func (e *Engine) ResetBetweenGames() bool {
	return e.opts.ResetBetweenGames
}

// TTLen is the current number of transposition entries.
func (e *Engine) TTLen() int {
	return e.tt.Len()
}

// HistoryWeight is the accumulated history weight of a move string.
func (e *Engine) HistoryWeight(move string) int {
	return e.history.Get(move)
}
