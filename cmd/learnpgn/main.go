package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chess-ai/config"
	"chess-ai/ingest"
	"chess-ai/learn"
	"chess-ai/logx"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON config file")
		storePath  = flag.String("store", "", "learned-move snapshot file (overrides config)")
		player     = flag.String("player", "", "record only this player's moves (matched against the White/Black tags)")
		side       = flag.String("side", "both", "side to record when -player is empty: white, black or both")
		maxGames   = flag.Int("max-games", 0, "maximum games per file (0 = unlimited)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: learnpgn [options] <file.pgn[.zst]>...")
		flag.PrintDefaults()
		os.Exit(1)
	}
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
	sd, err := ingest.ParseSide(*side)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad -side")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := learn.OpenFileStore(cfg.Learn.StorePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open learned store")
	}
	before := store.Len()

	icfg := ingest.Config{
		Recorder: learn.NewRecorder(store),
		Player:   *player,
		Side:     sd,
		MaxGames: *maxGames,
		Logger:   logger,
	}
	var total ingest.Stats
	for _, path := range flag.Args() {
		st, err := ingest.File(ctx, path, icfg)
		total.Games += st.Games
		total.Skipped += st.Skipped
		total.Failed += st.Failed
		total.Moves += st.Moves
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("ingest stopped")
			break
		}
	}

	// Close flushes whatever was recorded, interrupted or not.
	if err := store.Close(); err != nil {
		logger.Fatal().Err(err).Msg("flush learned store")
	}
	logger.Info().
		Int("games", total.Games).
		Int("skipped", total.Skipped).
		Int("failed", total.Failed).
		Int("moves", total.Moves).
		Int("new_rows", store.Len()-before).
		Msg("done")
}
