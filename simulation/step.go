package simulation

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/foragers/telemetry"
)

// StepResult reports what happened during one tick.
type StepResult struct {
	Tick       int                // tick index within the generation that just ran
	Generation *GenerationSummary // non-nil when the tick ended a generation
	Events     []telemetry.Event  // consumption (and reseed) events, in order
}

// Step advances the world by one tick: perceive, decide, move, consume.
// When the generation is complete it also evolves the next one.
// rng is the only source of randomness and is never used concurrently.
func (w *World) Step(rng *rand.Rand) (StepResult, error) {
	w.perf.StartTick()
	defer w.perf.EndTick()

	w.perf.StartPhase(telemetry.PhasePerceive)
	if err := w.perceive(); err != nil {
		return StepResult{}, fmt.Errorf("generation %d tick %d: %w", w.generation, w.tick, err)
	}

	w.perf.StartPhase(telemetry.PhaseMove)
	w.physics.Update(w.parallel.controls)

	w.perf.StartPhase(telemetry.PhaseConsume)
	w.meals = w.feeding.Update(rng, w.meals[:0])

	result := StepResult{Tick: w.tick}
	if len(w.meals) > 0 {
		result.Events = make([]telemetry.Event, len(w.meals))
		for i, m := range w.meals {
			result.Events[i] = telemetry.NewConsumeEvent(int32(w.generation), int32(w.tick), m.AnimalID, m.FoodID, m.X, m.Y)
		}
	}

	w.tick++
	if w.tick < w.opts.GenerationLength {
		return result, nil
	}

	w.perf.StartPhase(telemetry.PhaseEvolve)
	summary, events, err := w.evolve(rng)
	if err != nil {
		return result, err
	}
	result.Generation = summary
	result.Events = append(result.Events, events...)
	return result, nil
}
