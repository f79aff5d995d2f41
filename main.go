package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output per-generation stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	resume := flag.String("resume", "", "Snapshot file to resume from")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based, or the snapshot's seed when resuming)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N generations (0 = unlimited)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	g, err := game.NewGame(game.Options{
		Seed:        *seed,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		ResumePath:  *resume,
	})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	startGeneration := g.Generation()
	slog.Info("starting headless simulation",
		"seed", g.Seed(),
		"generation", startGeneration,
		"max_generations", *maxGenerations,
		"max_ticks", *maxTicks,
	)

	for {
		if err := g.Update(); err != nil {
			slog.Error("simulation failed", "error", err, "generation", g.Generation())
			g.Unload()
			os.Exit(1)
		}

		if *maxGenerations > 0 && g.Generation()-startGeneration >= *maxGenerations {
			slog.Info("max generations reached", "generation", g.Generation(), "tick", g.Tick())
			break
		}
		if *maxTicks > 0 && g.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "generation", g.Generation(), "tick", g.Tick())
			break
		}
	}

	if err := g.Unload(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}
}
