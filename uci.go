package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chess-ai/config"
	"chess-ai/engine"
	"chess-ai/learn"
	"chess-ai/logx"
	"chess-ai/position"
)

const defaultClock = 300000 // ms assumed when go carries no clock

func main() {
	configPath := flag.String("config", "", "JSON config file")
	learnedPath := flag.String("learned", "", "learned-move snapshot used to bias the search (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *learnedPath != "" {
		cfg.Learn.StorePath = *learnedPath
	}
	// stdout belongs to the protocol.
	log := logx.NewLoggerTo(os.Stderr, cfg.Log.Level)

	var selector *learn.Selector
	if cfg.Learn.StorePath != "" {
		store, err := learn.OpenFileStore(cfg.Learn.StorePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("open learned store")
		}
		defer store.Close()
		selector = learn.NewSelector(store, cfg.Learn.Exploration, cfg.Learn.DrawReward)
	}

	eng := engine.New(engine.Options{
		TTCapacity:        cfg.Engine.TTCapacity,
		ResetBetweenGames: cfg.Engine.ResetBetweenGames,
		Logger:            log,
	})
	newUCISession(eng, selector, os.Stdout, log).loop(os.Stdin)
}

type uciSession struct {
	eng      *engine.Engine
	selector *learn.Selector
	log      zerolog.Logger
	pos      *position.Position

	outMu sync.Mutex
	out   io.Writer

	cancel context.CancelFunc
	done   chan struct{}
}

func newUCISession(eng *engine.Engine, selector *learn.Selector, out io.Writer, log zerolog.Logger) *uciSession {
	return &uciSession{
		eng:      eng,
		selector: selector,
		log:      log,
		pos:      position.MustParse(position.StartFEN),
		out:      out,
	}
}

func (s *uciSession) println(a ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, a...)
}

// loop reads commands until quit or EOF. At EOF a running search is
// allowed to finish; quit stops it.
func (s *uciSession) loop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			s.println("id name chess-ai")
			s.println("id author chess-ai")
			s.println("uciok")
		case "isready":
			s.println("readyok")
		case "ucinewgame":
			s.wait()
			s.pos = position.MustParse(position.StartFEN)
			if s.eng.ResetBetweenGames() {
				s.eng.NewGame()
			}
		case "position":
			s.wait()
			s.position(tokens[1:])
		case "go":
			s.wait()
			s.goSearch(tokens[1:])
		case "stop":
			s.stop()
		case "eval":
			s.println("info string eval", engine.Evaluate(s.pos))
		case "quit":
			s.stop()
			return
		default:
			s.println("info string Unknown command:", line)
		}
	}
	s.wait()
}

func (s *uciSession) position(tokens []string) {
	if len(tokens) == 0 {
		s.println("info string Malformed position command")
		return
	}
	var pos *position.Position
	rest := tokens[1:]
	switch strings.ToLower(tokens[0]) {
	case "startpos":
		pos = position.MustParse(position.StartFEN)
	case "fen":
		i := 0
		for i < len(rest) && strings.ToLower(rest[i]) != "moves" {
			i++
		}
		p, err := position.Parse(strings.Join(rest[:i], " "))
		if err != nil {
			s.println("info string", err)
			return
		}
		pos, rest = p, rest[i:]
	default:
		s.println("info string Invalid position subcommand")
		return
	}
	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, mv := range rest[1:] {
			m, err := pos.ParseMove(strings.ToLower(mv))
			if err != nil {
				s.println("info string Move", mv, "not found for position", pos.FEN())
				return
			}
			pos.Apply(m)
		}
	}
	s.pos = pos
}

type goParams struct {
	wTime, bTime, wInc, bInc int
	moveTime                 int
	depth                    int
	nodes                    int
	infinite                 bool
}

func parseGo(tokens []string) (goParams, []string) {
	var p goParams
	var warnings []string
	for i := 0; i < len(tokens); i++ {
		tok := strings.ToLower(tokens[i])
		var dst *int
		switch tok {
		case "infinite":
			p.infinite = true
			continue
		case "wtime":
			dst = &p.wTime
		case "btime":
			dst = &p.bTime
		case "winc":
			dst = &p.wInc
		case "binc":
			dst = &p.bInc
		case "movetime":
			dst = &p.moveTime
		case "depth":
			dst = &p.depth
		case "nodes":
			dst = &p.nodes
		default:
			warnings = append(warnings, "Unknown go subcommand "+tok)
			continue
		}
		if i+1 >= len(tokens) {
			warnings = append(warnings, "Malformed go command option "+tok)
			break
		}
		i++
		v, err := strconv.Atoi(tokens[i])
		if err != nil {
			warnings = append(warnings, "Malformed go command option; could not convert "+tok)
			continue
		}
		*dst = v
	}
	return p, warnings
}

// limits turns clock parameters into a search budget: a fixed depth, a
// fixed move time, or a slice of the remaining clock plus half the increment.
// A node count caps whichever budget applies.
func (p goParams) limits(whiteToMove bool) engine.Limits {
	l := p.budget(whiteToMove)
	if p.nodes > 0 {
		l.MaxNodes = uint64(p.nodes)
	}
	return l
}

func (p goParams) budget(whiteToMove bool) engine.Limits {
	if p.depth > 0 {
		return engine.Limits{MaxDepth: engine.Min(p.depth, engine.MaxPly), FixedDepth: true}
	}
	if p.infinite || (p.nodes > 0 && p.moveTime <= 0 && p.wTime <= 0 && p.bTime <= 0) {
		return engine.Limits{MaxDepth: engine.MaxPly, FixedDepth: true}
	}
	if p.moveTime > 0 {
		return engine.Limits{MaxDepth: engine.MaxPly, TimeBudget: time.Duration(p.moveTime) * time.Millisecond}
	}
	clock, inc := p.wTime, p.wInc
	if !whiteToMove {
		clock, inc = p.bTime, p.bInc
	}
	if clock <= 0 {
		clock = defaultClock
	}
	budget := engine.Clamp(clock/30+inc/2, 1, engine.Max(clock-50, 1))
	return engine.Limits{MaxDepth: engine.MaxPly, TimeBudget: time.Duration(budget) * time.Millisecond}
}

func (s *uciSession) goSearch(tokens []string) {
	params, warnings := parseGo(tokens)
	for _, w := range warnings {
		s.println("info string", w)
	}
	limits := params.limits(s.pos.WhiteToMove())
	if s.selector != nil {
		move, ok, err := s.selector.Recommend(context.Background(), s.pos.FEN())
		if err != nil {
			s.log.Warn().Err(err).Msg("learned lookup failed")
		} else if ok {
			limits.BiasedMove = move
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	pos := s.pos.Clone()
	go func(done chan struct{}) {
		defer close(done)
		defer cancel()
		res := s.eng.Search(ctx, pos, limits)
		if !res.HasMove {
			s.println("bestmove (none)")
			return
		}
		// Scores are white-positive; UCI reports them for the side to move.
		score := res.Score
		if !pos.WhiteToMove() {
			score = -score
		}
		s.println(fmt.Sprintf("info depth %d score cp %d nodes %d time %d pv %s",
			res.DepthReached, score, res.Stats.Nodes, res.Elapsed.Milliseconds(), res.Move))
		s.println("bestmove", res.Move)
	}(s.done)
}

func (s *uciSession) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wait()
}

func (s *uciSession) wait() {
	if s.done != nil {
		<-s.done
		s.done = nil
		s.cancel = nil
	}
}
