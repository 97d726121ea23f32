package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/config"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/observability"
	"github.com/mohammed-shakir/geocoin-engine/internal/game"
	"github.com/mohammed-shakir/geocoin-engine/internal/gameevents"
	"github.com/mohammed-shakir/geocoin-engine/internal/logger"
	"github.com/mohammed-shakir/geocoin-engine/internal/memento"
	"github.com/mohammed-shakir/geocoin-engine/internal/memento/redisstore"
	"github.com/mohammed-shakir/geocoin-engine/internal/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "geocoind",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting geocoind",
		"addr", cfg.Addr,
		"version", Version,
		"tile_size", cfg.TileSize,
		"spawn_probability", cfg.SpawnProbability,
		"visibility_radius", cfg.VisibilityRadius)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mem memento.Store = memento.NewMemStore()
	ready := func() error { return nil }
	if cfg.RedisAddr != "" {
		rs, err := redisstore.New(ctx, cfg.RedisAddr, cfg.MementoTTL)
		if err != nil {
			appLog.Error("redis memento store", "err", err)
			return 1
		}
		defer func() { _ = rs.Close() }()
		mem = rs
		appLog.Info("mementos persisted to redis", "addr", cfg.RedisAddr)
	}

	opts := []game.Option{game.WithMementoStore(mem)}

	if cfg.Events.Enabled {
		pub, err := gameevents.NewPublisher(
			strings.Split(cfg.Events.Brokers, ","), cfg.Events.Topic, cfg.Events.Queue)
		if err != nil {
			// Telemetry is optional; play on without it.
			appLog.Warn("game events disabled", "err", err)
		} else {
			defer func() { _ = pub.Close() }()
			opts = append(opts, game.WithEventSink(pub))
		}
	}

	sess := game.NewSession(game.Config{
		TileSize:         cfg.TileSize,
		SpawnProbability: cfg.SpawnProbability,
		VisibilityRadius: cfg.VisibilityRadius,
		MaxCoins:         cfg.MaxCoins,
		Seed:             cfg.GameSeed,
		Start:            model.Coordinates{Lat: cfg.StartLat, Lng: cfg.StartLng},
		HotHalfLife:      cfg.HotHalfLife,
	}, zl, opts...)

	if err := sess.RestoreState(ctx); err != nil {
		appLog.Error("restore state", "err", err)
		return 1
	}

	if err := server.Run(ctx, cfg, appLog, sess, ready); err != nil {
		appLog.Error("server", "err", err)
		return 1
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.SaveState(saveCtx); err != nil {
		appLog.Error("save state", "err", err)
		return 1
	}
	appLog.Info("shutdown complete")
	return 0
}
