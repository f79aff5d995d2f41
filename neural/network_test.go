package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func testTopology() []LayerTopology {
	return []LayerTopology{{Neurons: 3}, {Neurons: 6}, {Neurons: 2}}
}

func TestWeightCount(t *testing.T) {
	tests := []struct {
		name     string
		topology []LayerTopology
		want     int
	}{
		{"single neuron", []LayerTopology{{2}, {1}}, 3},
		{"three layers", testTopology(), 6*(3+1) + 2*(6+1)},
		{"eye default", []LayerTopology{{9}, {18}, {2}}, 18*10 + 2*19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightCount(tt.topology); got != tt.want {
				t.Errorf("WeightCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		topology []LayerTopology
		wantErr  bool
	}{
		{"valid", testTopology(), false},
		{"input only", []LayerTopology{{3}}, true},
		{"empty", nil, true},
		{"zero layer", []LayerTopology{{3}, {0}, {2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.topology)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("error should wrap ErrInvalidTopology, got %v", err)
			}
		})
	}
}

func TestRandomWeightsInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nn, err := Random(rng, testTopology())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}

	weights := nn.Weights()
	if len(weights) != WeightCount(testTopology()) {
		t.Fatalf("got %d weights, want %d", len(weights), WeightCount(testTopology()))
	}
	for i, w := range weights {
		if w < -1 || w > 1 {
			t.Errorf("weight %d = %v outside [-1, 1]", i, w)
		}
	}
}

func TestRandomUsesCallerStream(t *testing.T) {
	a, _ := Random(rand.New(rand.NewSource(7)), testTopology())
	b, _ := Random(rand.New(rand.NewSource(7)), testTopology())

	wa, wb := a.Weights(), b.Weights()
	for i := range wa {
		if wa[i] != wb[i] {
			t.Fatalf("weight %d differs for identical seeds: %v vs %v", i, wa[i], wb[i])
		}
	}

	// Draw order is bias first, then weights, layer by layer.
	rng := rand.New(rand.NewSource(7))
	for i := range wa {
		want := rng.Float32()*2 - 1
		if wa[i] != want {
			t.Fatalf("weight %d = %v, want draw %v", i, wa[i], want)
		}
	}
}

func TestSingleNeuronPropagate(t *testing.T) {
	nn, err := FromWeights([]LayerTopology{{2}, {1}}, []float32{0.5, -0.3, 0.8})
	if err != nil {
		t.Fatalf("FromWeights: %v", err)
	}

	tests := []struct {
		name   string
		inputs []float32
		want   float32
	}{
		{"negative sum clamps to zero", []float32{-10, -10}, 0},
		{"positive sum", []float32{0.5, 1.0}, 1.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := nn.Propagate(tt.inputs)
			if err != nil {
				t.Fatalf("Propagate: %v", err)
			}
			if len(out) != 1 {
				t.Fatalf("got %d outputs, want 1", len(out))
			}
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("output = %v, want %v", out[0], tt.want)
			}
		})
	}
}

func TestPropagateShapeAndFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nn, _ := Random(rng, testTopology())

	for trial := 0; trial < 50; trial++ {
		inputs := make([]float32, nn.InputSize())
		for i := range inputs {
			inputs[i] = rng.Float32()*4 - 2
		}
		out, err := nn.Propagate(inputs)
		if err != nil {
			t.Fatalf("Propagate: %v", err)
		}
		if len(out) != nn.OutputSize() {
			t.Fatalf("got %d outputs, want %d", len(out), nn.OutputSize())
		}
		for i, v := range out {
			if v < 0 {
				t.Errorf("trial %d output %d = %v, want >= 0", trial, i, v)
			}
		}
	}
}

func TestPropagateDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nn, _ := Random(rng, testTopology())

	inputs := []float32{0.1, 0.7, 0.3}
	first, _ := nn.Propagate(inputs)
	second, _ := nn.Propagate(inputs)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Propagate is not deterministic at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestPropagateMismatchedInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	nn, _ := Random(rng, testTopology())

	_, err := nn.Propagate([]float32{1, 2})
	var mismatch *MismatchedInputSizeError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchedInputSizeError, got %v", err)
	}
	if mismatch.Got != 2 || mismatch.Expected != 3 {
		t.Errorf("got %+v, want Got=2 Expected=3", *mismatch)
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	topologies := [][]LayerTopology{
		{{2}, {1}},
		testTopology(),
		{{9}, {18}, {2}},
		{{4}, {5}, {5}, {3}},
	}

	rng := rand.New(rand.NewSource(3))
	for _, topo := range topologies {
		chromosome := make([]float32, WeightCount(topo))
		for i := range chromosome {
			chromosome[i] = rng.Float32()*10 - 5
		}

		nn, err := FromWeights(topo, chromosome)
		if err != nil {
			t.Fatalf("FromWeights(%v): %v", topo, err)
		}
		got := nn.Weights()
		if len(got) != len(chromosome) {
			t.Fatalf("round trip length %d, want %d", len(got), len(chromosome))
		}
		for i := range got {
			if got[i] != chromosome[i] {
				t.Fatalf("topology %v: weight %d = %v, want %v", topo, i, got[i], chromosome[i])
			}
		}
	}
}

func TestWeightsLayout(t *testing.T) {
	// 2 inputs -> 2 neurons -> 1 neuron: [b0 w00 w01 | b1 w10 w11 | b2 w20 w21]
	weights := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	nn, err := FromWeights([]LayerTopology{{2}, {2}, {1}}, weights)
	if err != nil {
		t.Fatalf("FromWeights: %v", err)
	}

	layers := nn.Layers()
	if layers[0].Neurons[1].Bias != 4 {
		t.Errorf("second neuron bias = %v, want 4", layers[0].Neurons[1].Bias)
	}
	if w := layers[1].Neurons[0].Weights; w[0] != 8 || w[1] != 9 {
		t.Errorf("output neuron weights = %v, want [8 9]", w)
	}
}

func TestFromWeightsLengthMismatch(t *testing.T) {
	topo := testTopology()
	want := WeightCount(topo)

	for _, n := range []int{0, want - 1, want + 1} {
		_, err := FromWeights(topo, make([]float32, n))
		var lengthErr *ChromosomeLengthError
		if !errors.As(err, &lengthErr) {
			t.Fatalf("len %d: expected ChromosomeLengthError, got %v", n, err)
		}
		if lengthErr.Got != n || lengthErr.Expected != want {
			t.Errorf("len %d: got %+v", n, *lengthErr)
		}
	}
}

func TestFromWeightsCopiesInput(t *testing.T) {
	weights := []float32{0.5, -0.3, 0.8}
	nn, _ := FromWeights([]LayerTopology{{2}, {1}}, weights)

	weights[0] = 99
	if nn.Weights()[0] != 0.5 {
		t.Error("network shares memory with the caller's weight slice")
	}
}

func BenchmarkPropagate(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	nn, _ := Random(rng, []LayerTopology{{9}, {18}, {2}})

	inputs := make([]float32, 9)
	for i := range inputs {
		inputs[i] = 0.5
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = nn.Propagate(inputs)
	}
}
