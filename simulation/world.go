// Package simulation runs the foraging world: animals steered by neural
// networks compete for food, and a genetic algorithm breeds each new
// generation from the best-fed animals of the last.
package simulation

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/foragers/components"
	"github.com/pthm-cable/foragers/genetic"
	"github.com/pthm-cable/foragers/neural"
	"github.com/pthm-cable/foragers/systems"
	"github.com/pthm-cable/foragers/telemetry"
)

// World holds the ECS world, one brain per animal and the generation clock.
// A World is not safe for concurrent use.
type World struct {
	opts   Options
	logger *slog.Logger

	// ECS
	world        *ecs.World
	animalMapper *ecs.Map4[components.Position, components.Rotation, components.Speed, components.Animal]
	foodMapper   *ecs.Map2[components.Position, components.Food]
	animalFilter *ecs.Filter4[components.Position, components.Rotation, components.Speed, components.Animal]
	foodFilter   *ecs.Filter2[components.Position, components.Food]

	// Entities are created once and reused across generations; index = ID.
	animals []ecs.Entity
	foods   []ecs.Entity
	brains  []*neural.Network

	// Systems
	physics *systems.PhysicsSystem
	feeding *systems.FeedingSystem
	ga      *genetic.GeneticAlgorithm

	parallel      *parallelState
	perf          *telemetry.PerfCollector
	foodPositions []components.Position
	meals         []systems.Meal

	tick       int // age of the current generation in ticks
	generation int
}

// New creates a world and spawns generation 0 with random brains.
func New(rng *rand.Rand, opts Options) (*World, error) {
	w, err := newWorld(opts)
	if err != nil {
		return nil, err
	}

	brains := make([]*neural.Network, w.opts.Animals)
	for i := range brains {
		brain, err := neural.Random(rng, w.opts.Topology)
		if err != nil {
			return nil, fmt.Errorf("creating brain %d: %w", i, err)
		}
		brains[i] = brain
	}
	w.spawn(rng, brains)

	w.logger.Info("world created",
		"animals", w.opts.Animals,
		"foods", w.opts.Foods,
		"weights_per_brain", neural.WeightCount(w.opts.Topology),
	)
	return w, nil
}

// Restore rebuilds a world at the given generation from persisted
// chromosomes, one per animal in ID order. The population size follows
// len(chromosomes). Positions, headings and food are freshly randomized.
func Restore(rng *rand.Rand, opts Options, generation int, chromosomes [][]float32) (*World, error) {
	if len(chromosomes) == 0 {
		return nil, fmt.Errorf("restoring: %w: no chromosomes", genetic.ErrDegeneratePopulation)
	}
	if generation < 0 {
		return nil, fmt.Errorf("restoring: negative generation %d", generation)
	}
	opts.Animals = len(chromosomes)

	w, err := newWorld(opts)
	if err != nil {
		return nil, err
	}

	brains := make([]*neural.Network, len(chromosomes))
	for i, c := range chromosomes {
		brain, err := neural.FromWeights(w.opts.Topology, c)
		if err != nil {
			return nil, fmt.Errorf("restoring animal %d: %w", i, err)
		}
		brains[i] = brain
	}
	w.generation = generation
	w.spawn(rng, brains)

	w.logger.Info("world restored", "generation", generation, "animals", len(brains))
	return w, nil
}

// newWorld validates opts and wires the ECS world and systems without
// creating any entities.
func newWorld(opts Options) (*World, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	opts = opts.withDefaults()

	topo := make([]neural.LayerTopology, len(opts.Topology))
	copy(topo, opts.Topology)
	opts.Topology = topo

	mutation, err := genetic.NewUniformMutation(opts.MutationChance, opts.MutationCoeff)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	bounds := systems.Bounds{Width: opts.Width, Height: opts.Height}

	w := &World{
		opts:         opts,
		logger:       opts.Logger,
		world:        world,
		animalMapper: ecs.NewMap4[components.Position, components.Rotation, components.Speed, components.Animal](world),
		foodMapper:   ecs.NewMap2[components.Position, components.Food](world),
		animalFilter: ecs.NewFilter4[components.Position, components.Rotation, components.Speed, components.Animal](world),
		foodFilter:   ecs.NewFilter2[components.Position, components.Food](world),
		physics:      systems.NewPhysicsSystem(world, opts.Movement, bounds),
		feeding:      systems.NewFeedingSystem(world, opts.FoodRadius, opts.GridCellSize, bounds),
		ga: genetic.New(
			genetic.RouletteWheelSelection{},
			genetic.UniformCrossover{},
			mutation,
		),
		parallel:      newParallelState(opts.Workers, opts.ParallelThreshold, opts.Animals, opts.Eye.Cells),
		perf:          telemetry.NewPerfCollector(opts.PerfWindow),
		foodPositions: make([]components.Position, 0, opts.Foods),
	}
	return w, nil
}

// AnimalView is a read-only copy of one animal's state.
type AnimalView struct {
	ID        uint32
	X, Y      float32
	Heading   float32
	Speed     float32
	Satiation uint32
}

// FoodView is a read-only copy of one food item.
type FoodView struct {
	ID   uint32
	X, Y float32
}

// Animals returns every animal in ID order.
func (w *World) Animals() []AnimalView {
	out := make([]AnimalView, 0, len(w.animals))
	query := w.animalFilter.Query()
	for query.Next() {
		pos, rot, spd, animal := query.Get()
		out = append(out, AnimalView{
			ID:        animal.ID,
			X:         pos.X,
			Y:         pos.Y,
			Heading:   rot.Heading,
			Speed:     spd.Value,
			Satiation: animal.Satiation,
		})
	}
	return out
}

// Foods returns every food item in creation order.
func (w *World) Foods() []FoodView {
	out := make([]FoodView, 0, w.opts.Foods)
	query := w.foodFilter.Query()
	for query.Next() {
		pos, food := query.Get()
		out = append(out, FoodView{ID: food.ID, X: pos.X, Y: pos.Y})
	}
	return out
}

// Tick returns the number of ticks run in the current generation.
func (w *World) Tick() int {
	return w.tick
}

// Generation returns the current generation index, starting at 0.
func (w *World) Generation() int {
	return w.generation
}

// Topology returns a copy of the brain topology.
func (w *World) Topology() []neural.LayerTopology {
	topo := make([]neural.LayerTopology, len(w.opts.Topology))
	copy(topo, w.opts.Topology)
	return topo
}

// Eye returns the eye shared by every animal.
func (w *World) Eye() systems.Eye {
	return w.opts.Eye
}

// Chromosomes returns every animal's chromosome in ID order.
func (w *World) Chromosomes() [][]float32 {
	out := make([][]float32, len(w.brains))
	for i, b := range w.brains {
		out[i] = b.Weights()
	}
	return out
}

// Perf returns the step phase timings.
func (w *World) Perf() *telemetry.PerfCollector {
	return w.perf
}

// Close stops the worker pool. The world must not be stepped afterwards.
func (w *World) Close() {
	w.parallel.stopWorkers()
}
