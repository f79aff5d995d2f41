package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pthm-cable/foragers/components"
	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/genetic"
	"github.com/pthm-cable/foragers/neural"
	"github.com/pthm-cable/foragers/systems"
	"github.com/pthm-cable/foragers/telemetry"
)

// BestAnimal identifies the best-fed animal of a generation.
type BestAnimal struct {
	ID         uint32
	Satiation  uint32
	Chromosome []float32
}

// GenerationSummary describes a generation that just ended.
type GenerationSummary struct {
	Generation int        // index of the finished generation
	Ticks      int        // ticks it ran
	Satiation  []uint32   // final satiation, indexed by animal ID
	Fitness    genetic.Statistics
	Best       BestAnimal // lowest ID among the best-fed
	Reseeded   bool       // next generation is random instead of evolved
}

// LogValue implements slog.LogValuer.
func (s *GenerationSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("ticks", s.Ticks),
		slog.Any("fitness", s.Fitness),
		slog.Int("best_id", int(s.Best.ID)),
		slog.Int("best_satiation", int(s.Best.Satiation)),
		slog.Bool("reseeded", s.Reseeded),
	)
}

// spawn places a generation of animals with the given brains and scatters
// the food. Entities are created on first use and reused afterwards.
// Random draws: x, y, heading per animal in ID order, then x, y per food.
func (w *World) spawn(rng *rand.Rand, brains []*neural.Network) {
	w.brains = brains
	w.tick = 0

	speed := min(max(w.opts.InitialSpeed, w.opts.Movement.SpeedMin), w.opts.Movement.SpeedMax)

	for i := range brains {
		pos := w.randomPosition(rng)
		rot := components.Rotation{Heading: systems.NormalizeAngle(rng.Float32() * 2 * math.Pi)}
		spd := components.Speed{Value: speed}
		animal := components.Animal{ID: uint32(i)}

		if i < len(w.animals) {
			p, r, s, a := w.animalMapper.Get(w.animals[i])
			*p, *r, *s, *a = pos, rot, spd, animal
			continue
		}
		w.animals = append(w.animals, w.animalMapper.NewEntity(&pos, &rot, &spd, &animal))
	}

	if len(w.foods) == 0 {
		for i := 0; i < w.opts.Foods; i++ {
			pos := w.randomPosition(rng)
			food := components.Food{ID: uint32(i)}
			w.foods = append(w.foods, w.foodMapper.NewEntity(&pos, &food))
		}
		return
	}

	query := w.foodFilter.Query()
	for query.Next() {
		pos, _ := query.Get()
		*pos = w.randomPosition(rng)
	}
}

func (w *World) randomPosition(rng *rand.Rand) components.Position {
	return components.Position{
		X: systems.Wrap(rng.Float32()*w.opts.Width, w.opts.Width),
		Y: systems.Wrap(rng.Float32()*w.opts.Height, w.opts.Height),
	}
}

// evolve ends the current generation: it breeds the next set of brains from
// satiation, applies the zero-fitness policy if breeding is impossible and
// respawns the animals.
func (w *World) evolve(rng *rand.Rand) (*GenerationSummary, []telemetry.Event, error) {
	n := len(w.brains)
	population := make([]*individual, n)
	satiation := make([]uint32, n)

	query := w.animalFilter.Query()
	for query.Next() {
		_, _, _, animal := query.Get()
		satiation[animal.ID] = animal.Satiation
		population[animal.ID] = &individual{
			fitness: float32(animal.Satiation),
			brain:   w.brains[animal.ID],
		}
	}

	summary := &GenerationSummary{
		Generation: w.generation,
		Ticks:      w.tick,
		Satiation:  satiation,
		Best:       w.best(satiation),
	}

	var events []telemetry.Event
	offspring, stats, err := genetic.Evolve(w.ga, rng, population, decoder(w.opts.Topology))
	summary.Fitness = stats

	var brains []*neural.Network
	switch {
	case err == nil:
		brains = make([]*neural.Network, n)
		for i, child := range offspring {
			brains[i] = child.brain
		}

	case errors.Is(err, genetic.ErrDegeneratePopulation) && w.opts.ZeroFitnessPolicy == config.ZeroFitnessReseed:
		w.logger.Warn("no animal fed, reseeding with random brains",
			"generation", w.generation,
			"err", err,
		)
		brains, err = w.randomBrains(rng, n)
		if err != nil {
			return nil, nil, fmt.Errorf("reseeding generation %d: %w", w.generation, err)
		}
		summary.Reseeded = true
		events = append(events, telemetry.NewReseedEvent(int32(w.generation), int32(w.tick)))

	default:
		return nil, nil, fmt.Errorf("evolving generation %d: %w", w.generation, err)
	}

	w.logger.Info("generation complete", "summary", summary)

	w.generation++
	w.spawn(rng, brains)

	return summary, events, nil
}

func (w *World) randomBrains(rng *rand.Rand, n int) ([]*neural.Network, error) {
	brains := make([]*neural.Network, n)
	for i := range brains {
		brain, err := neural.Random(rng, w.opts.Topology)
		if err != nil {
			return nil, err
		}
		brains[i] = brain
	}
	return brains, nil
}

// best returns the lowest-ID animal with the highest satiation.
func (w *World) best(satiation []uint32) BestAnimal {
	var b BestAnimal
	for id, s := range satiation {
		if id == 0 || s > b.Satiation {
			b.ID = uint32(id)
			b.Satiation = s
		}
	}
	b.Chromosome = w.brains[b.ID].Weights()
	return b
}
