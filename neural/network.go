// Package neural provides the feedforward networks used as animal brains.
package neural

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidTopology is returned for topologies that cannot describe a network.
var ErrInvalidTopology = errors.New("invalid topology")

// MismatchedInputSizeError reports a layer fed with the wrong number of inputs.
type MismatchedInputSizeError struct {
	Got      int
	Expected int
}

func (e *MismatchedInputSizeError) Error() string {
	return fmt.Sprintf("mismatched input size: got %d, expected %d", e.Got, e.Expected)
}

// ChromosomeLengthError reports a weight vector that does not match the topology.
type ChromosomeLengthError struct {
	Got      int
	Expected int
}

func (e *ChromosomeLengthError) Error() string {
	return fmt.Sprintf("chromosome length mismatch: got %d weights, expected %d", e.Got, e.Expected)
}

// LayerTopology is the neuron count of one layer. The first entry of a
// topology is the input width; it has no neurons of its own.
type LayerTopology struct {
	Neurons int `yaml:"neurons" json:"neurons"`
}

// Neuron holds a bias and one weight per neuron of the previous layer.
type Neuron struct {
	Bias    float32
	Weights []float32
}

// Layer is a group of neurons sharing the same input width.
type Layer struct {
	Neurons []Neuron
}

// Network is an immutable stack of fully connected ReLU layers.
type Network struct {
	topology []LayerTopology
	layers   []Layer
}

// Validate checks that the topology has an input layer, at least one
// computing layer and no empty layers.
func Validate(topology []LayerTopology) error {
	if len(topology) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidTopology, len(topology))
	}
	for i, t := range topology {
		if t.Neurons <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidTopology, i, t.Neurons)
		}
	}
	return nil
}

// WeightCount returns the chromosome length for a topology: every neuron
// past the input layer contributes one bias plus one weight per input.
func WeightCount(topology []LayerTopology) int {
	n := 0
	for i := 1; i < len(topology); i++ {
		n += topology[i].Neurons * (topology[i-1].Neurons + 1)
	}
	return n
}

// Random builds a network with every bias and weight drawn uniformly from
// [-1, 1]. Values are drawn layer by layer, neuron by neuron, bias first.
func Random(rng *rand.Rand, topology []LayerTopology) (*Network, error) {
	if err := Validate(topology); err != nil {
		return nil, err
	}

	weights := make([]float32, WeightCount(topology))
	for i := range weights {
		weights[i] = rng.Float32()*2 - 1
	}
	return build(topology, weights), nil
}

// FromWeights rebuilds a network from a flat weight vector in the order
// produced by Weights. The vector must match the topology exactly.
func FromWeights(topology []LayerTopology, weights []float32) (*Network, error) {
	if err := Validate(topology); err != nil {
		return nil, err
	}
	if expected := WeightCount(topology); len(weights) != expected {
		return nil, &ChromosomeLengthError{Got: len(weights), Expected: expected}
	}

	// Copy so the caller's slice stays independent of the network.
	arena := make([]float32, len(weights))
	copy(arena, weights)
	return build(topology, arena), nil
}

// build slices neurons out of a single arena. The arena length has
// already been checked against the topology.
func build(topology []LayerTopology, arena []float32) *Network {
	topo := make([]LayerTopology, len(topology))
	copy(topo, topology)

	layers := make([]Layer, len(topology)-1)
	cursor := 0
	for i := range layers {
		inputs := topology[i].Neurons
		neurons := make([]Neuron, topology[i+1].Neurons)
		for j := range neurons {
			neurons[j] = Neuron{
				Bias:    arena[cursor],
				Weights: arena[cursor+1 : cursor+1+inputs : cursor+1+inputs],
			}
			cursor += inputs + 1
		}
		layers[i] = Layer{Neurons: neurons}
	}

	return &Network{topology: topo, layers: layers}
}

// Propagate runs the inputs through every layer. ReLU is applied to every
// layer including the output, so all outputs are >= 0.
func (n *Network) Propagate(inputs []float32) ([]float32, error) {
	for _, layer := range n.layers {
		out, err := layer.propagate(inputs)
		if err != nil {
			return nil, err
		}
		inputs = out
	}
	return inputs, nil
}

func (l *Layer) propagate(inputs []float32) ([]float32, error) {
	outputs := make([]float32, len(l.Neurons))
	for i := range l.Neurons {
		out, err := l.Neurons[i].propagate(inputs)
		if err != nil {
			return nil, err
		}
		outputs[i] = out
	}
	return outputs, nil
}

func (n *Neuron) propagate(inputs []float32) (float32, error) {
	if len(inputs) != len(n.Weights) {
		return 0, &MismatchedInputSizeError{Got: len(inputs), Expected: len(n.Weights)}
	}

	sum := n.Bias
	for i, w := range n.Weights {
		sum += inputs[i] * w
	}
	return relu(sum), nil
}

// relu returns x for positive x and 0 otherwise.
func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

// Weights flattens the network into a new chromosome vector.
func (n *Network) Weights() []float32 {
	out := make([]float32, 0, WeightCount(n.topology))
	for _, layer := range n.layers {
		for _, neuron := range layer.Neurons {
			out = append(out, neuron.Bias)
			out = append(out, neuron.Weights...)
		}
	}
	return out
}

// Topology returns a copy of the layer topology.
func (n *Network) Topology() []LayerTopology {
	topo := make([]LayerTopology, len(n.topology))
	copy(topo, n.topology)
	return topo
}

// InputSize is the number of inputs the network accepts.
func (n *Network) InputSize() int {
	return n.topology[0].Neurons
}

// OutputSize is the number of values Propagate returns.
func (n *Network) OutputSize() int {
	return n.topology[len(n.topology)-1].Neurons
}

// Layers exposes the layers for inspection. Callers must not modify them.
func (n *Network) Layers() []Layer {
	return n.layers
}
