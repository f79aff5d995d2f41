package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/game"
	"github.com/pthm-cable/foragers/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	window      int
	seeds       []int64
	baseConfig  *config.Config
	logger      *slog.Logger

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastMean       float64 // mean satiation from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Each run lasts generations
// generations; fitness averages the last window of them.
func NewFitnessEvaluator(params *ParamVector, generations, window int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		window:      min(max(window, 1), generations),
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastMean returns the mean satiation from the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// runResult holds the results from a single simulation run.
type runResult struct {
	stats      []telemetry.GenerationStats // collected via StatsCallback each generation
	hallOfFame *telemetry.HallOfFame
	err        error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean satiation over the last window of
// generations, averaged across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		slog.Warn("rejected parameters", "error", err)
		return 0
	}
	// Seeds already run concurrently.
	cfg.Parallel.Workers = 1

	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg.Clone(), s)
		}(i, seed)
	}
	wg.Wait()

	means := make([]float64, 0, len(results))
	var bestSeedMean float64 = -1
	var bestSeedHallOfFame *telemetry.HallOfFame
	for i, r := range results {
		if r.err != nil {
			slog.Warn("run failed", "seed", fe.seeds[i], "error", r.err)
			means = append(means, 0)
			continue
		}
		m := fe.windowMean(r.stats)
		means = append(means, m)
		if m > bestSeedMean {
			bestSeedMean = m
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	mean := stat.Mean(means, nil)
	fitness := -mean

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastMean = mean
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes a single headless run for the configured number
// of generations.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}

	g, err := game.NewGame(game.Options{
		Seed:   seed,
		Config: cfg,
		Logger: fe.logger,
		StatsCallback: func(stats telemetry.GenerationStats) {
			result.stats = append(result.stats, stats)
		},
	})
	if err != nil {
		result.err = err
		return result
	}
	defer g.Unload()

	result.err = g.RunGenerations(fe.generations)
	result.hallOfFame = g.HallOfFame()
	return result
}

// windowMean averages the mean satiation of the last window generations.
func (fe *FitnessEvaluator) windowMean(stats []telemetry.GenerationStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	tail := stats[max(len(stats)-fe.window, 0):]
	values := make([]float64, len(tail))
	for i, s := range tail {
		values[i] = s.SatiationMean
	}
	return stat.Mean(values, nil)
}
