package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chess-ai/config"
	"chess-ai/engine"
	"chess-ai/game"
	"chess-ai/learn"
	"chess-ai/logx"
	"chess-ai/server"
	"chess-ai/worker"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON config file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
		storePath  = flag.String("store", "", "learned-move snapshot file (overrides config)")
		logLevel   = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *storePath != "" {
		cfg.Learn.StorePath = *storePath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger := logx.NewLogger(cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("bye")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, closeStore, err := openStore(cfg.Learn, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error().Err(err).Msg("close learned store")
		}
	}()

	w := worker.New(engine.Options{
		TTCapacity:        cfg.Engine.TTCapacity,
		ResetBetweenGames: cfg.Engine.ResetBetweenGames,
		Logger:            logger,
	})
	client := worker.NewClient(w, time.Duration(cfg.Worker.GraceMs)*time.Millisecond, logger)
	defer client.Close()

	selector := learn.NewSelector(store, cfg.Learn.Exploration, cfg.Learn.DrawReward)
	recorder := learn.NewRecorder(store)
	profiles := game.ProfilesFromConfig(cfg.Profiles)
	games := game.NewManager(game.Config{
		Searcher:          client,
		Selector:          selector,
		Recorder:          recorder,
		Profiles:          profiles,
		ResetBetweenGames: cfg.Engine.ResetBetweenGames,
		Logger:            logger,
	})
	srv := server.New(server.Config{
		Games:    games,
		Profiles: profiles,
		Store:    store,
		Selector: selector,
		Recorder: recorder,
		Logger:   logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		report(ctx, games, store, logger)
		return nil
	})
	return g.Wait()
}

// report logs the number of games and learned rows once a minute.
func report(ctx context.Context, games *game.Manager, store learn.Store, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := logger.Info().Int("games", games.Len())
			if s, ok := store.(interface{ Len() int }); ok {
				ev = ev.Int("learned_rows", s.Len())
			}
			ev.Msg("status")
		}
	}
}

// openStore returns the file-backed store when a path is configured and an
// in-memory one otherwise.
func openStore(cfg config.LearnConfig, logger zerolog.Logger) (learn.Store, func() error, error) {
	if cfg.StorePath == "" {
		logger.Warn().Msg("no store path configured, learned moves are kept in memory only")
		return learn.NewMemoryStore(), func() error { return nil }, nil
	}
	fs, err := learn.OpenFileStore(cfg.StorePath, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.FlushIntervalMs > 0 {
		fs.StartBackgroundFlush(time.Duration(cfg.FlushIntervalMs) * time.Millisecond)
	}
	return fs, fs.Close, nil
}
