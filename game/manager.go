// Package game runs play sessions against the engine: it asks the learned
// store for a suggestion, searches with the suggestion tried first, falls
// back to a random legal move, and records the engine's moves when a game
// ends.
package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chess-ai/learn"
	"chess-ai/position"
	"chess-ai/worker"
)

// Searcher answers best-move requests; *worker.Client implements it.
type Searcher interface {
	BestMove(ctx context.Context, fen string, limits worker.Limits) (worker.Result, error)
	NewGame() error
}

type Config struct {
	Searcher Searcher
	// Selector and Recorder are optional; without them the engine plays
	// unbiased and nothing is learned.
	Selector *learn.Selector
	Recorder *learn.Recorder
	Profiles Profiles
	// ResetBetweenGames sends a reset to the searcher whenever a game starts.
	ResetBetweenGames bool
	Logger            zerolog.Logger
	// Intn picks the fallback move; math/rand/v2 when nil.
	Intn func(n int) int
}

type Manager struct {
	cfg Config
	log zerolog.Logger

	mu    sync.RWMutex
	games map[string]*Game

	searcher Searcher
}

func NewManager(cfg Config) *Manager {
	if cfg.Profiles == nil {
		cfg.Profiles = DefaultProfiles()
	}
	if cfg.Intn == nil {
		cfg.Intn = rand.IntN
	}
	return &Manager{
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "game").Logger(),
		games:    make(map[string]*Game),
		searcher: &serialSearcher{Searcher: cfg.Searcher},
	}
}

// New starts a game from the standard position. When the engine has white
// it makes its first move before New returns.
func (m *Manager) New(ctx context.Context, aiColor Color, difficulty string) (State, error) {
	profile, err := m.cfg.Profiles.ByName(difficulty)
	if err != nil {
		return State{}, err
	}
	if m.cfg.ResetBetweenGames {
		if err := m.searcher.NewGame(); err != nil {
			m.log.Warn().Err(err).Msg("engine reset failed")
		}
	}

	now := time.Now()
	g := &Game{
		id:        uuid.NewString(),
		profile:   profile,
		aiColor:   aiColor,
		pos:       position.MustParse(position.StartFEN),
		createdAt: now,
		updatedAt: now,
	}
	m.mu.Lock()
	m.games[g.id] = g
	m.mu.Unlock()
	m.log.Info().Str("game", g.id).Str("difficulty", profile.Name).Stringer("ai", aiColor).Msg("game started")

	g.mu.Lock()
	defer g.mu.Unlock()
	if aiColor == White {
		if err := m.aiMove(ctx, g); err != nil {
			return g.snapshot(), err
		}
	}
	return g.snapshot(), nil
}

func (m *Manager) lookup(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

func (m *Manager) Get(id string) (State, error) {
	g, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(), nil
}

// Len is the number of games held, finished ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// Remove forgets a game. Unfinished games are dropped without recording.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	delete(m.games, id)
	return nil
}

// PlayerMove applies the player's move and, unless that ended the game,
// the engine's reply. A 4-character move onto the last rank promotes to a
// queen.
func (m *Manager) PlayerMove(ctx context.Context, id, uci string) (State, error) {
	g, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return g.snapshot(), ErrGameOver
	}
	if colorToMove(g.pos) == g.aiColor {
		return g.snapshot(), ErrNotYourTurn
	}
	mv, err := g.pos.ParseMove(uci)
	if err != nil {
		return g.snapshot(), err
	}
	m.play(g, mv)
	if m.checkEnd(ctx, g) {
		return g.snapshot(), nil
	}
	if err := m.aiMove(ctx, g); err != nil {
		return g.snapshot(), err
	}
	return g.snapshot(), nil
}

// AIMove makes the engine move when it is its turn, for instance after a
// PlayerMove whose reply was cut short by ctx.
func (m *Manager) AIMove(ctx context.Context, id string) (State, error) {
	g, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return g.snapshot(), ErrGameOver
	}
	if colorToMove(g.pos) != g.aiColor {
		return g.snapshot(), ErrNotYourTurn
	}
	if err := m.aiMove(ctx, g); err != nil {
		return g.snapshot(), err
	}
	return g.snapshot(), nil
}

// Resign ends the game as a win for the engine.
func (m *Manager) Resign(ctx context.Context, id string) (State, error) {
	g, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return g.snapshot(), ErrGameOver
	}
	g.resigned = true
	m.finish(ctx, g, learn.Win)
	return g.snapshot(), nil
}

// BestMove runs a one-off search outside any game, queued behind the
// searches of running games.
func (m *Manager) BestMove(ctx context.Context, fen string, limits worker.Limits) (worker.Result, error) {
	return m.searcher.BestMove(ctx, fen, limits)
}

func (m *Manager) play(g *Game, mv position.Move) {
	g.pos.Apply(mv)
	g.moves = append(g.moves, position.MoveString(mv))
	g.updatedAt = time.Now()
}

// aiMove runs the engine's turn. Only ctx ends the turn early, leaving the
// engine to move.
func (m *Manager) aiMove(ctx context.Context, g *Game) error {
	log := m.log.With().Str("game", g.id).Logger()
	fenBefore := g.pos.FEN()
	t, err := pickMove(ctx, g.pos, m.searcher, g.profile, m.cfg.Selector, m.cfg.Intn, log)
	if err != nil {
		return err
	}
	if t.move == position.NullMove {
		m.checkEnd(ctx, g)
		return nil
	}
	g.trace = append(g.trace, learn.TracedMove{FEN: fenBefore, UCI: t.uci})
	m.play(g, t.move)
	g.lastAI = t.uci
	g.lastDepth = t.depth
	m.checkEnd(ctx, g)
	return nil
}

// checkEnd finishes the game when the position is terminal.
func (m *Manager) checkEnd(ctx context.Context, g *Game) bool {
	g.status = g.pos.Status()
	if g.status == position.Ongoing {
		return false
	}
	m.finish(ctx, g, aiResult(g.pos.Outcome(), g.aiColor))
	return true
}

// finish records the engine's moves exactly once. Recording outlives the
// caller's ctx; its failures are logged only.
func (m *Manager) finish(ctx context.Context, g *Game, result learn.Result) {
	if g.over {
		return
	}
	g.over = true
	g.result = result
	g.updatedAt = time.Now()
	log := m.log.With().Str("game", g.id).Logger()
	log.Info().
		Str("status", g.status.String()).
		Bool("resigned", g.resigned).
		Stringer("ai_result", result).
		Int("ai_moves", len(g.trace)).
		Msg("game over")

	if m.cfg.Recorder == nil || len(g.trace) == 0 {
		return
	}
	if err := m.cfg.Recorder.Record(context.WithoutCancel(ctx), g.trace, result); err != nil {
		log.Warn().Err(err).Msg("recording game failed")
	}
}
