package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/foragers/components"
)

// Meal records one food consumed during a tick.
type Meal struct {
	AnimalID uint32
	FoodID   uint32
	X, Y     float32 // where the food was eaten
}

// FeedingSystem lets animals eat nearby food. Food is visited in creation
// order and goes to the earliest-created animal within range. Each food is
// eaten at most once per tick and is then relocated uniformly at random.
type FeedingSystem struct {
	animalFilter *ecs.Filter4[components.Position, components.Rotation, components.Speed, components.Animal]
	foodFilter   *ecs.Filter2[components.Position, components.Food]
	animalMap    *ecs.Map1[components.Animal]

	grid   *SpatialGrid
	radius float32
	bounds Bounds

	// Scratch buffers, reused across ticks
	positions []components.Position
	entities  []ecs.Entity
}

// NewFeedingSystem creates a new feeding system.
func NewFeedingSystem(w *ecs.World, radius, cellSize float32, bounds Bounds) *FeedingSystem {
	return &FeedingSystem{
		animalFilter: ecs.NewFilter4[components.Position, components.Rotation, components.Speed, components.Animal](w),
		foodFilter:   ecs.NewFilter2[components.Position, components.Food](w),
		animalMap:    ecs.NewMap1[components.Animal](w),
		grid:         NewSpatialGrid(bounds.Width, bounds.Height, cellSize),
		radius:       radius,
		bounds:       bounds,
	}
}

// Update runs one consumption pass and appends the meals to dst.
// rng is used only to relocate eaten food.
func (s *FeedingSystem) Update(rng *rand.Rand, dst []Meal) []Meal {
	s.positions = s.positions[:0]
	s.entities = s.entities[:0]
	s.grid.Clear()

	query := s.animalFilter.Query()
	for query.Next() {
		pos, _, _, _ := query.Get()
		s.grid.Insert(len(s.positions), pos.X, pos.Y)
		s.positions = append(s.positions, *pos)
		s.entities = append(s.entities, query.Entity())
	}

	foods := s.foodFilter.Query()
	for foods.Next() {
		pos, food := foods.Get()
		winner := s.grid.FirstWithin(pos.X, pos.Y, s.radius, s.positions)
		if winner < 0 {
			continue
		}

		animal := s.animalMap.Get(s.entities[winner])
		animal.Satiation++
		dst = append(dst, Meal{AnimalID: animal.ID, FoodID: food.ID, X: pos.X, Y: pos.Y})

		pos.X = rng.Float32() * s.bounds.Width
		pos.Y = rng.Float32() * s.bounds.Height
	}

	return dst
}
