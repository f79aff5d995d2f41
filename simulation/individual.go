package simulation

import (
	"github.com/pthm-cable/foragers/genetic"
	"github.com/pthm-cable/foragers/neural"
)

// individual adapts an animal's brain and satiation to genetic.Individual.
type individual struct {
	fitness float32
	brain   *neural.Network
}

func (i *individual) Fitness() float32 {
	return i.fitness
}

func (i *individual) Chromosome() genetic.Chromosome {
	return i.brain.Weights()
}

// decoder returns the create callback used by genetic.Evolve.
func decoder(topology []neural.LayerTopology) func(genetic.Chromosome) (*individual, error) {
	return func(c genetic.Chromosome) (*individual, error) {
		brain, err := neural.FromWeights(topology, c)
		if err != nil {
			return nil, err
		}
		return &individual{brain: brain}, nil
	}
}
