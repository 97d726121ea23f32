// geocoin-sim drives a session with a random walk, collecting and
// depositing along the way. Useful for smoke-testing spawn density and
// memento behavior against real tuning values.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/config"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/game"
	"github.com/mohammed-shakir/geocoin-engine/internal/logger"
)

func main() {
	steps := flag.Int("steps", 1000, "number of walk steps")
	walkSeed := flag.Int64("walk-seed", 1, "seed for the random walk (not the spawn rolls)")
	collectEvery := flag.Int("collect-every", 3, "try a collect every N steps")
	flag.Parse()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "geocoin-sim"}, os.Stdout)

	sess := game.NewSession(game.Config{
		TileSize:         cfg.TileSize,
		SpawnProbability: cfg.SpawnProbability,
		VisibilityRadius: cfg.VisibilityRadius,
		MaxCoins:         cfg.MaxCoins,
		Seed:             cfg.GameSeed,
		Start:            model.Coordinates{Lat: cfg.StartLat, Lng: cfg.StartLng},
	}, zl)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*walkSeed))

	start := time.Now()
	collected, deposited, misses := 0, 0, 0

	active, err := sess.MoveTo(ctx, cfg.StartLat, cfg.StartLng)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initial move:", err)
		os.Exit(1)
	}

	for step := 0; step < *steps; step++ {
		di := rng.Intn(3) - 1
		dj := rng.Intn(3) - 1
		active, err = sess.MoveBy(ctx, di, dj)
		if err != nil {
			fmt.Fprintln(os.Stderr, "move:", err)
			os.Exit(1)
		}

		if *collectEvery > 0 && step%*collectEvery == 0 && len(active) > 0 {
			target := active[rng.Intn(len(active))]
			if _, err := sess.Collect(target.Cell); err != nil {
				misses++
			} else {
				collected++
			}
		}

		// Occasionally give a coin back so deposits get exercised too.
		if step%17 == 0 && len(active) > 0 {
			target := active[rng.Intn(len(active))]
			if _, err := sess.Deposit(target.Cell); err == nil {
				deposited++
			}
		}
	}

	fmt.Printf("steps=%d active=%d collected=%d deposited=%d empty_collects=%d inventory=%d odometer=%.1fm elapsed=%s\n",
		*steps, len(active), collected, deposited, misses,
		len(sess.Inventory()), sess.OdometerM(), time.Since(start).Round(time.Millisecond))

	for _, hot := range sess.HotCells(5) {
		fmt.Printf("hot cell %s score=%.2f\n", hot.Cell, hot.Score)
	}
}
