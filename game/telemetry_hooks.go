package game

import (
	"github.com/pthm-cable/foragers/simulation"
	"github.com/pthm-cable/foragers/telemetry"
)

// flushTelemetry turns a finished generation into stats and hands them to
// every telemetry sink. Output failures are logged, not fatal.
func (g *Game) flushTelemetry(summary *simulation.GenerationSummary) {
	stats := g.collector.Flush(int32(summary.Ticks), g.cfg.Population.Foods, summary.Satiation)
	perfStats := g.world.Perf().Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteGeneration(stats); err != nil {
		g.logger.Error("failed to write generation stats", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.Generation); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}

	g.hallOfFame.Consider(telemetry.HallEntry{
		Generation: int32(summary.Generation),
		AnimalID:   summary.Best.ID,
		Satiation:  summary.Best.Satiation,
		Chromosome: summary.Best.Chromosome,
	})

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}

	if every := g.cfg.Telemetry.SnapshotEvery; g.snapshotDir != "" && every > 0 && g.world.Generation()%every == 0 {
		g.saveSnapshot(nil)
	}
}

// saveSnapshot writes the population that will run next to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(g.createSnapshot(bookmark), g.snapshotDir)
	if err != nil {
		g.logger.Error("failed to save snapshot", "error", err)
		return
	}
	g.logger.Info("snapshot saved", "path", path, "generation", g.world.Generation())
}

// createSnapshot builds a snapshot of the current population. It is called
// right after a generation boundary, so every animal is freshly bred.
func (g *Game) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     g.rngSeed,
		WorldWidth:  g.cfg.Derived.WorldW32,
		WorldHeight: g.cfg.Derived.WorldH32,
		Generation:  int32(g.world.Generation()),
		Topology:    g.world.Topology(),
		Bookmark:    bookmark,
	}

	for i, c := range g.world.Chromosomes() {
		snapshot.Animals = append(snapshot.Animals, telemetry.AnimalState{
			ID:         uint32(i),
			Chromosome: c,
		})
	}
	return snapshot
}
