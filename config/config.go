// Package config holds the JSON configuration shared by the binaries.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"chess-ai/engine"
	"chess-ai/learn"
	"chess-ai/worker"
)

type Config struct {
	Engine   EngineConfig             `json:"engine"`
	Learn    LearnConfig              `json:"learn"`
	Worker   WorkerConfig             `json:"worker"`
	Profiles map[string]ProfileConfig `json:"profiles"`
	Server   ServerConfig             `json:"server"`
	Log      LogConfig                `json:"log"`
}

type EngineConfig struct {
	TTCapacity        int  `json:"tt_capacity"`
	ResetBetweenGames bool `json:"reset_between_games"`
	MaxPly            int  `json:"max_ply"`
}

type LearnConfig struct {
	// StorePath is the snapshot file; empty keeps statistics in memory only.
	StorePath       string  `json:"store_path"`
	Exploration     float64 `json:"exploration"`
	DrawReward      float64 `json:"draw_reward"`
	FlushIntervalMs int     `json:"flush_interval_ms"`
}

type WorkerConfig struct {
	GraceMs int `json:"grace_ms"`
}

type ProfileConfig struct {
	TimeMs   int `json:"time_ms"`
	MaxDepth int `json:"max_depth"`
}

type ServerConfig struct {
	Addr string `json:"addr"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{
			TTCapacity:        engine.DefaultTTCapacity,
			ResetBetweenGames: false,
			MaxPly:            engine.MaxPly,
		},
		Learn: LearnConfig{
			StorePath:       "",
			Exploration:     learn.DefaultExploration,
			DrawReward:      learn.DefaultDrawReward,
			FlushIntervalMs: 5000,
		},
		Worker: WorkerConfig{
			GraceMs: int(worker.DefaultGrace.Milliseconds()),
		},
		Profiles: map[string]ProfileConfig{
			"easy":   {TimeMs: 120, MaxDepth: 3},
			"medium": {TimeMs: 240, MaxDepth: 5},
			"hard":   {TimeMs: 420, MaxDepth: 6},
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a JSON file over the defaults. Fields missing from the file
// keep their default values; an empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Engine.TTCapacity <= 0 {
		errs = append(errs, errors.New("engine.tt_capacity must be positive"))
	}
	if c.Engine.MaxPly <= 0 || c.Engine.MaxPly > engine.MaxPly {
		errs = append(errs, fmt.Errorf("engine.max_ply must be within 1..%d", engine.MaxPly))
	}
	if c.Learn.Exploration < 0 {
		errs = append(errs, errors.New("learn.exploration must not be negative"))
	}
	if c.Learn.DrawReward < 0 || c.Learn.DrawReward > 1 {
		errs = append(errs, errors.New("learn.draw_reward must be within 0..1"))
	}
	if c.Worker.GraceMs < 0 {
		errs = append(errs, errors.New("worker.grace_ms must not be negative"))
	}
	if len(c.Profiles) == 0 {
		errs = append(errs, errors.New("at least one profile is required"))
	}
	for name, p := range c.Profiles {
		if p.TimeMs < 0 {
			errs = append(errs, fmt.Errorf("profile %s: time_ms must not be negative", name))
		}
		if p.MaxDepth < 1 || p.MaxDepth > c.Engine.MaxPly {
			errs = append(errs, fmt.Errorf("profile %s: max_depth must be within 1..%d", name, c.Engine.MaxPly))
		}
	}
	return errors.Join(errs...)
}
