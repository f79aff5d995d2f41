// Package game drives a headless foraging run. It owns the simulation world
// and the random source, and routes every finished generation through the
// telemetry pipeline: stats, CSV output, bookmarks, hall of fame and
// snapshots.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/neural"
	"github.com/pthm-cable/foragers/simulation"
	"github.com/pthm-cable/foragers/telemetry"
)

// Options configures a Game.
type Options struct {
	Seed        int64  // 0 = time-based, or the snapshot's seed when resuming
	LogStats    bool   // log per-generation stats and perf via slog
	SnapshotDir string // "" disables snapshots
	OutputDir   string // "" disables CSV output
	ResumePath  string // snapshot file to resume from

	// Config overrides config.Cfg(). Required when several games run
	// concurrently with different parameters.
	Config *config.Config

	// StatsCallback, if set, receives every generation's stats.
	StatsCallback func(telemetry.GenerationStats)

	Logger *slog.Logger // nil = slog.Default()
}

// Game is a headless run: one simulation world plus its telemetry.
type Game struct {
	cfg     *config.Config
	logger  *slog.Logger
	rng     *rand.Rand
	rngSeed int64
	world   *simulation.World

	// Telemetry
	collector        *telemetry.Collector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector
	hallOfFame       *telemetry.HallOfFame
	statsCallback    func(telemetry.GenerationStats)
	logStats         bool
	snapshotDir      string

	tick int64 // ticks across all generations of this run
}

// NewGame creates a game, either from generation 0 or from a snapshot.
func NewGame(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var snapshot *telemetry.Snapshot
	if opts.ResumePath != "" {
		s, err := telemetry.LoadSnapshot(opts.ResumePath)
		if err != nil {
			return nil, fmt.Errorf("resuming: %w", err)
		}
		snapshot = s
	}

	seed := opts.Seed
	if seed == 0 && snapshot != nil {
		seed = snapshot.RNGSeed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	simOpts := simulation.OptionsFromConfig(cfg)
	simOpts.Logger = logger

	var (
		world *simulation.World
		err   error
	)
	if snapshot != nil {
		if !slices.Equal(snapshot.Topology, simOpts.Topology) {
			return nil, fmt.Errorf("resuming: %w: snapshot topology %v does not match config %v",
				neural.ErrInvalidTopology, snapshot.Topology, simOpts.Topology)
		}
		if snapshot.WorldWidth != simOpts.Width || snapshot.WorldHeight != simOpts.Height {
			logger.Warn("snapshot world size differs from config, using config",
				"snapshot_width", snapshot.WorldWidth,
				"snapshot_height", snapshot.WorldHeight,
			)
		}
		world, err = simulation.Restore(rng, simOpts, int(snapshot.Generation), snapshot.Chromosomes())
	} else {
		world, err = simulation.New(rng, simOpts)
	}
	if err != nil {
		return nil, err
	}

	outputManager, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		world.Close()
		return nil, err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config", "error", err)
	}

	g := &Game{
		cfg:              cfg,
		logger:           logger,
		rng:              rng,
		rngSeed:          seed,
		world:            world,
		collector:        telemetry.NewCollector(int32(world.Generation())),
		outputManager:    outputManager,
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		hallOfFame:       telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
	}
	logger.Info("game started",
		"seed", seed,
		"generation", g.collector.Generation(),
		"output_dir", outputManager.Dir(),
	)
	return g, nil
}

// Update advances the simulation by one tick and, at a generation
// boundary, flushes telemetry.
func (g *Game) Update() error {
	result, err := g.world.Step(g.rng)
	if err != nil {
		return err
	}
	g.tick++

	g.collector.RecordAll(result.Events)
	if result.Generation != nil {
		g.flushTelemetry(result.Generation)
	}
	return nil
}

// RunGenerations updates until n more generations have completed.
func (g *Game) RunGenerations(n int) error {
	target := g.world.Generation() + n
	for g.world.Generation() < target {
		if err := g.Update(); err != nil {
			return err
		}
	}
	return nil
}

// Tick returns the number of ticks run by this game.
func (g *Game) Tick() int64 {
	return g.tick
}

// Generation returns the generation currently being simulated.
func (g *Game) Generation() int {
	return g.world.Generation()
}

// Seed returns the seed of the game's random source.
func (g *Game) Seed() int64 {
	return g.rngSeed
}

// World returns the underlying simulation.
func (g *Game) World() *simulation.World {
	return g.world
}

// HallOfFame returns the best animals seen so far.
func (g *Game) HallOfFame() *telemetry.HallOfFame {
	return g.hallOfFame
}

// Unload stops the worker pool and flushes output files.
func (g *Game) Unload() error {
	g.world.Close()
	if err := g.outputManager.WriteHallOfFame(g.hallOfFame); err != nil {
		g.logger.Error("failed to write hall of fame", "error", err)
	}
	if best, ok := g.hallOfFame.Top(); ok {
		g.logger.Info("hall of fame",
			"entries", g.hallOfFame.Len(),
			"best_generation", best.Generation,
			"best_satiation", best.Satiation,
		)
	}
	return g.outputManager.Close()
}
