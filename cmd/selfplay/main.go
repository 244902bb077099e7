package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chess-ai/config"
	"chess-ai/engine"
	"chess-ai/game"
	"chess-ai/learn"
	"chess-ai/logx"
	"chess-ai/position"
	"chess-ai/worker"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON config file")
		storePath  = flag.String("store", "", "learned-move snapshot file (overrides config)")
		games      = flag.Int("games", 10, "number of games to play")
		parallel   = flag.Int("parallel", 2, "games played at once")
		whiteLevel = flag.String("white", "medium", "white's difficulty")
		blackLevel = flag.String("black", "medium", "black's difficulty")
		maxPlies   = flag.Int("max-plies", 200, "plies after which a game is adjudicated (0 = no cap)")
		stockfish  = flag.String("stockfish", "", "path to a UCI engine used to adjudicate capped games")
		sfDepth    = flag.Int("stockfish-depth", 12, "adjudication search depth")
		winMargin  = flag.Int("win-margin", 300, "centipawns needed to adjudicate a win")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *storePath != "" {
		cfg.Learn.StorePath = *storePath
	}
	logger := logx.NewLogger(cfg.Log.Level)
	if cfg.Learn.StorePath == "" {
		logger.Fatal().Msg("a store path is required (-store or learn.store_path)")
	}
	profiles := game.ProfilesFromConfig(cfg.Profiles)
	wp, err := profiles.ByName(*whiteLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad -white")
	}
	bp, err := profiles.ByName(*blackLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad -black")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := learn.OpenFileStore(cfg.Learn.StorePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open learned store")
	}
	store.StartBackgroundFlush(time.Duration(cfg.Learn.FlushIntervalMs) * time.Millisecond)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("flush learned store")
		}
	}()

	r := &runner{
		cfg:      cfg,
		log:      logger,
		white:    wp,
		black:    bp,
		selector: learn.NewSelector(store, cfg.Learn.Exploration, cfg.Learn.DrawReward),
		recorder: learn.NewRecorder(store),
		maxPlies: *maxPlies,
	}
	if *stockfish != "" {
		adj, err := newStockfishAdjudicator(*stockfish, *sfDepth, *winMargin)
		if err != nil {
			logger.Fatal().Err(err).Msg("start adjudicator")
		}
		defer adj.Close()
		r.adjudicator = adj
	}

	start := time.Now()
	if err := r.run(ctx, *games, *parallel); err != nil {
		logger.Error().Err(err).Msg("self-play stopped")
	}
	logger.Info().
		Int64("white_wins", r.whiteWins.Load()).
		Int64("black_wins", r.blackWins.Load()).
		Int64("draws", r.draws.Load()).
		Int("learned_rows", store.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("self-play done")
}

type runner struct {
	cfg         config.Config
	log         zerolog.Logger
	white       game.Profile
	black       game.Profile
	selector    *learn.Selector
	recorder    *learn.Recorder
	maxPlies    int
	adjudicator game.Adjudicator

	whiteWins, blackWins, draws atomic.Int64
}

// run plays n games, at most parallel at a time. Every game slot owns two
// workers, one engine per side, so no search state is shared.
func (r *runner) run(ctx context.Context, n, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 1; i <= n; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for slot := 0; slot < parallel; slot++ {
		g.Go(func() error {
			white, black := r.newClient(), r.newClient()
			defer white.Close()
			defer black.Close()
			for i := range jobs {
				if err := r.playOne(ctx, i, white, black); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *runner) newClient() *worker.Client {
	w := worker.New(engine.Options{
		TTCapacity:        r.cfg.Engine.TTCapacity,
		ResetBetweenGames: r.cfg.Engine.ResetBetweenGames,
		Logger:            r.log,
	})
	return worker.NewClient(w, time.Duration(r.cfg.Worker.GraceMs)*time.Millisecond, r.log)
}

func (r *runner) playOne(ctx context.Context, i int, white, black *worker.Client) error {
	if r.cfg.Engine.ResetBetweenGames {
		for _, c := range []*worker.Client{white, black} {
			if err := c.NewGame(); err != nil {
				return err
			}
		}
	}
	res, err := game.SelfPlay(ctx,
		game.Player{Searcher: white, Profile: r.white},
		game.Player{Searcher: black, Profile: r.black},
		game.SelfPlayConfig{
			Selector:    r.selector,
			Recorder:    r.recorder,
			MaxPlies:    r.maxPlies,
			Adjudicator: r.adjudicator,
			Logger:      r.log.With().Int("game", i).Logger(),
		})
	if err != nil {
		return fmt.Errorf("game %d: %w", i, err)
	}
	switch res.Winner {
	case position.WhiteWins:
		r.whiteWins.Add(1)
	case position.BlackWins:
		r.blackWins.Add(1)
	default:
		r.draws.Add(1)
	}
	return nil
}
