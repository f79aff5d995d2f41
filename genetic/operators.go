package genetic

import (
	"fmt"
	"math"
	"math/rand"
)

// RouletteWheelSelection picks members with probability proportional to
// their fitness. Draws are independent and with replacement.
type RouletteWheelSelection struct{}

// Select returns the index of the chosen member. Zero-fitness members are
// never chosen. No uniform fallback is applied for degenerate input.
func (RouletteWheelSelection) Select(rng *rand.Rand, fitness []float32) (int, error) {
	if len(fitness) == 0 {
		return 0, fmt.Errorf("%w: empty population", ErrDegeneratePopulation)
	}

	var total float64
	for i, f := range fitness {
		if f < 0 || math.IsNaN(float64(f)) {
			return 0, fmt.Errorf("%w: member %d has fitness %v", ErrDegeneratePopulation, i, f)
		}
		total += float64(f)
	}
	if total <= 0 || math.IsInf(total, 0) {
		return 0, fmt.Errorf("%w: total fitness %v", ErrDegeneratePopulation, total)
	}

	spin := rng.Float64() * total
	last := 0
	var acc float64
	for i, f := range fitness {
		if f == 0 {
			continue
		}
		acc += float64(f)
		last = i
		if spin < acc {
			return i, nil
		}
	}

	// Rounding can leave spin a hair past the final bucket.
	return last, nil
}

// UniformCrossover takes every gene from either parent with equal
// probability, decided independently per gene.
type UniformCrossover struct{}

// Crossover returns a new child chromosome. The parents are not modified.
func (UniformCrossover) Crossover(rng *rand.Rand, a, b Chromosome) (Chromosome, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d genes", ErrChromosomeMismatch, len(a), len(b))
	}

	child := make(Chromosome, len(a))
	for i := range child {
		if rng.Float32() < 0.5 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child, nil
}

// UniformMutation adds a perturbation drawn from [-Coeff, +Coeff] to each
// gene with probability Chance. Mutated genes are not clamped.
type UniformMutation struct {
	Chance float32 // per-gene mutation probability in [0, 1]
	Coeff  float32 // maximum magnitude of a perturbation
}

// NewUniformMutation validates the parameters.
func NewUniformMutation(chance, coeff float32) (UniformMutation, error) {
	if chance < 0 || chance > 1 {
		return UniformMutation{}, fmt.Errorf("mutation chance %v outside [0, 1]", chance)
	}
	if coeff < 0 {
		return UniformMutation{}, fmt.Errorf("mutation coeff %v is negative", coeff)
	}
	return UniformMutation{Chance: chance, Coeff: coeff}, nil
}

// Mutate perturbs child in place. One draw decides each gene; a mutated gene
// takes a second draw for the perturbation.
func (m UniformMutation) Mutate(rng *rand.Rand, child Chromosome) {
	for i := range child {
		if rng.Float32() < m.Chance {
			child[i] += (rng.Float32()*2 - 1) * m.Coeff
		}
	}
}
