// Package genetic implements a generational genetic algorithm over any
// population whose members expose a fitness score and a flat chromosome.
package genetic

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrDegeneratePopulation is returned when selection cannot be performed:
	// the population is empty, has negative or NaN fitness, or sums to zero.
	ErrDegeneratePopulation = errors.New("degenerate population")

	// ErrChromosomeMismatch is returned when two parents have chromosomes of
	// different lengths.
	ErrChromosomeMismatch = errors.New("chromosome length mismatch")
)

// Chromosome is the flat gene vector of an individual.
type Chromosome []float32

// Clone returns an independent copy.
func (c Chromosome) Clone() Chromosome {
	out := make(Chromosome, len(c))
	copy(out, c)
	return out
}

// Individual is anything the algorithm can select from and breed.
type Individual interface {
	Fitness() float32
	Chromosome() Chromosome
}

// SelectionMethod picks the index of one parent given every member's fitness.
type SelectionMethod interface {
	Select(rng *rand.Rand, fitness []float32) (int, error)
}

// CrossoverMethod combines two parent chromosomes of equal length.
type CrossoverMethod interface {
	Crossover(rng *rand.Rand, a, b Chromosome) (Chromosome, error)
}

// MutationMethod perturbs a child chromosome in place.
type MutationMethod interface {
	Mutate(rng *rand.Rand, child Chromosome)
}

// GeneticAlgorithm bundles the three operators applied for every offspring.
type GeneticAlgorithm struct {
	selection SelectionMethod
	crossover CrossoverMethod
	mutation  MutationMethod
}

// New creates a GeneticAlgorithm. Panics if any method is nil.
func New(selection SelectionMethod, crossover CrossoverMethod, mutation MutationMethod) *GeneticAlgorithm {
	if selection == nil || crossover == nil || mutation == nil {
		panic("genetic: New called with a nil method")
	}
	return &GeneticAlgorithm{
		selection: selection,
		crossover: crossover,
		mutation:  mutation,
	}
}

// Evolve performs one generation transition and returns a population of the
// same size. Each offspring is built by selecting two parents, crossing them
// over, mutating the result and decoding it with create. The returned
// Statistics describe the input population.
//
// Evolve is a function rather than a method because Go methods cannot have
// type parameters.
func Evolve[I Individual](
	ga *GeneticAlgorithm,
	rng *rand.Rand,
	population []I,
	create func(Chromosome) (I, error),
) ([]I, Statistics, error) {
	if len(population) == 0 {
		return nil, Statistics{}, fmt.Errorf("%w: empty population", ErrDegeneratePopulation)
	}

	fitness := make([]float32, len(population))
	chromosomes := make([]Chromosome, len(population))
	for i, ind := range population {
		fitness[i] = ind.Fitness()
		chromosomes[i] = ind.Chromosome()
	}
	stats := NewStatistics(fitness)

	offspring := make([]I, len(population))
	for i := range offspring {
		pa, err := ga.selection.Select(rng, fitness)
		if err != nil {
			return nil, stats, fmt.Errorf("selecting parent a: %w", err)
		}
		pb, err := ga.selection.Select(rng, fitness)
		if err != nil {
			return nil, stats, fmt.Errorf("selecting parent b: %w", err)
		}

		child, err := ga.crossover.Crossover(rng, chromosomes[pa], chromosomes[pb])
		if err != nil {
			return nil, stats, fmt.Errorf("crossover of %d and %d: %w", pa, pb, err)
		}
		ga.mutation.Mutate(rng, child)

		offspring[i], err = create(child)
		if err != nil {
			return nil, stats, fmt.Errorf("decoding offspring %d: %w", i, err)
		}
	}

	return offspring, stats, nil
}
