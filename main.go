package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
	"github.com/pthm-cable/hideseek/observer"
	"github.com/pthm-cable/hideseek/rng"
	"github.com/pthm-cable/hideseek/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	checkpointDB := flag.String("checkpoint-db", "", "Path to the checkpoint SQLite database (empty = disabled)")
	checkpointEvery := flag.Int("checkpoint-every", 0, "Save a world-0 checkpoint every N ticks (0 = disabled)")
	seedA := flag.Uint64("seed-a", 0, "Base RNG key half A (0 = time-based)")
	seedB := flag.Uint64("seed-b", 0, "Base RNG key half B")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	randomActions := flag.Bool("random-actions", false, "Drive all agents with random actions (exercise mode)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	baseKey := rng.Key{A: uint32(*seedA), B: uint32(*seedB)}
	if *seedA == 0 && *seedB == 0 {
		baseKey = rng.Key{A: uint32(time.Now().UnixNano()), B: uint32(time.Now().UnixNano() >> 32)}
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	var store *telemetry.CheckpointStore
	if *checkpointDB != "" {
		store, err = telemetry.OpenCheckpointStore(*checkpointDB)
		if err != nil {
			slog.Error("failed to open checkpoint store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	batch := game.NewBatch(baseKey)
	defer batch.Close()

	var obs *observer.Server
	if cfg.Observer.Addr != "" {
		obs = observer.NewServer(logger)
		go func() {
			if err := obs.Serve(cfg.Observer.Addr); err != nil {
				slog.Error("observer server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = obs.Shutdown(ctx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	slog.Info("starting simulation",
		"run_id", out.RunID(),
		"worlds", batch.NumWorlds(),
		"seed_a", baseKey.A,
		"seed_b", baseKey.B,
		"max_ticks", *maxTicks,
	)

	driver := newActionDriver(*randomActions, baseKey)

	var exports []game.WorldExport
	tick := 0
	start := time.Now()

	for {
		select {
		case <-sigCh:
			slog.Info("interrupted", "tick", tick)
			return
		default:
		}

		if obs != nil {
			obs.Drain(batch)
		}

		driver.apply(batch)
		batch.Step()
		tick++

		if summaries := batch.DrainEpisodes(); len(summaries) > 0 {
			if err := out.WriteEpisodes(summaries); err != nil {
				slog.Error("failed to write episodes", "error", err)
			}
		}

		if obs != nil && cfg.Observer.StreamEvery > 0 && tick%cfg.Observer.StreamEvery == 0 {
			batch.Export(&exports)
			obs.Broadcast(exports)
		}

		if store != nil && *checkpointEvery > 0 && tick%*checkpointEvery == 0 {
			id, err := store.Save(batch.World(0))
			if err != nil {
				slog.Error("failed to save checkpoint", "error", err)
			} else {
				slog.Info("checkpoint saved", "id", id, "tick", tick)
			}
		}

		if cfg.Telemetry.LogEvery > 0 && tick%cfg.Telemetry.LogEvery == 0 {
			elapsed := time.Since(start).Seconds()
			slog.Info("progress",
				"tick", tick,
				"ticks_per_sec", float64(tick)/elapsed,
			)
		}

		if *maxTicks > 0 && tick >= *maxTicks {
			slog.Info("max ticks reached", "tick", tick)
			return
		}
	}
}
