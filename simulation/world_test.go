package simulation

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/genetic"
	"github.com/pthm-cable/foragers/neural"
	"github.com/pthm-cable/foragers/systems"
	"github.com/pthm-cable/foragers/telemetry"
)

func testOptions() Options {
	return Options{
		Width:   1,
		Height:  1,
		Animals: 10,
		Foods:   15,
		Eye: systems.Eye{
			FOVRange: 0.25,
			FOVAngle: math.Pi + math.Pi/4,
			Cells:    9,
		},
		Topology: []neural.LayerTopology{{Neurons: 9}, {Neurons: 18}, {Neurons: 2}},
		Movement: systems.Movement{
			SpeedMin:      0.001,
			SpeedMax:      0.005,
			SpeedAccel:    0.001,
			RotationAccel: math.Pi / 2,
			Midpoint:      0.5,
		},
		InitialSpeed:      0.002,
		FoodRadius:        0.01,
		GridCellSize:      0.05,
		GenerationLength:  20,
		MutationChance:    0.01,
		MutationCoeff:     0.3,
		ZeroFitnessPolicy: config.ZeroFitnessReseed,
		Workers:           1,
		ParallelThreshold: 64,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newTestWorld(t *testing.T, seed int64, opts Options) (*World, *rand.Rand) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	w, err := New(rng, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(w.Close)
	return w, rng
}

func stepN(t *testing.T, w *World, rng *rand.Rand, n int) []StepResult {
	t.Helper()
	results := make([]StepResult, 0, n)
	for i := 0; i < n; i++ {
		r, err := w.Step(rng)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		results = append(results, r)
	}
	return results
}

func TestNewSpawnsGenerationZero(t *testing.T) {
	opts := testOptions()
	w, _ := newTestWorld(t, 42, opts)

	if w.Generation() != 0 || w.Tick() != 0 {
		t.Errorf("generation/tick = %d/%d, want 0/0", w.Generation(), w.Tick())
	}

	animals := w.Animals()
	if len(animals) != opts.Animals {
		t.Fatalf("got %d animals, want %d", len(animals), opts.Animals)
	}
	for i, a := range animals {
		if a.ID != uint32(i) {
			t.Errorf("animal %d has ID %d", i, a.ID)
		}
		if a.X < 0 || a.X >= 1 || a.Y < 0 || a.Y >= 1 {
			t.Errorf("animal %d at (%v, %v) outside the world", i, a.X, a.Y)
		}
		if a.Satiation != 0 || a.Speed != opts.InitialSpeed {
			t.Errorf("animal %d = %+v, want zero satiation and initial speed", i, a)
		}
	}

	if got := len(w.Foods()); got != opts.Foods {
		t.Errorf("got %d foods, want %d", got, opts.Foods)
	}
	if got := len(w.Chromosomes()[0]); got != neural.WeightCount(opts.Topology) {
		t.Errorf("chromosome length = %d, want %d", got, neural.WeightCount(opts.Topology))
	}
	if w.Eye() != opts.Eye {
		t.Errorf("Eye() = %+v, want %+v", w.Eye(), opts.Eye)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		is     error
	}{
		{"eye and input layer disagree", func(o *Options) { o.Eye.Cells = 5 }, neural.ErrInvalidTopology},
		{"three outputs", func(o *Options) { o.Topology[2].Neurons = 3 }, neural.ErrInvalidTopology},
		{"single layer", func(o *Options) { o.Topology = o.Topology[:1] }, neural.ErrInvalidTopology},
		{"no animals", func(o *Options) { o.Animals = 0 }, nil},
		{"inverted speed bounds", func(o *Options) { o.Movement.SpeedMin = 0.01 }, nil},
		{"mutation chance above one", func(o *Options) { o.MutationChance = 2 }, nil},
		{"unknown policy", func(o *Options) { o.ZeroFitnessPolicy = "ignore" }, nil},
		{"zero generation length", func(o *Options) { o.GenerationLength = 0 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.Topology = append([]neural.LayerTopology(nil), opts.Topology...)
			tt.mutate(&opts)

			_, err := New(rand.New(rand.NewSource(1)), opts)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v does not wrap %v", err, tt.is)
			}
		})
	}
}

func TestStepInvariants(t *testing.T) {
	opts := testOptions()
	opts.GenerationLength = 1000
	w, rng := newTestWorld(t, 42, opts)

	for i := 0; i < 200; i++ {
		r, err := w.Step(rng)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if r.Tick != i {
			t.Fatalf("StepResult.Tick = %d, want %d", r.Tick, i)
		}

		for _, a := range w.Animals() {
			if a.X < 0 || a.X >= 1 || a.Y < 0 || a.Y >= 1 {
				t.Fatalf("tick %d: animal %d at (%v, %v)", i, a.ID, a.X, a.Y)
			}
			if a.Speed < opts.Movement.SpeedMin || a.Speed > opts.Movement.SpeedMax {
				t.Fatalf("tick %d: animal %d speed %v out of bounds", i, a.ID, a.Speed)
			}
			if a.Heading < -math.Pi-1e-6 || a.Heading >= math.Pi+1e-6 {
				t.Fatalf("tick %d: animal %d heading %v not normalized", i, a.ID, a.Heading)
			}
		}
		if len(w.Foods()) != opts.Foods {
			t.Fatalf("tick %d: food count changed", i)
		}
	}

	if w.Tick() != 200 {
		t.Errorf("Tick() = %d, want 200", w.Tick())
	}
}

func TestStepSatiationMatchesEvents(t *testing.T) {
	opts := testOptions()
	opts.Animals = 30
	opts.Foods = 80
	opts.FoodRadius = 0.05
	opts.GenerationLength = 1000
	w, rng := newTestWorld(t, 7, opts)

	var meals int
	for _, r := range stepN(t, w, rng, 300) {
		for _, e := range r.Events {
			if e.Type == telemetry.EventConsume {
				meals++
			}
		}
	}

	var satiation int
	for _, a := range w.Animals() {
		satiation += int(a.Satiation)
	}
	if satiation != meals {
		t.Errorf("total satiation %d != %d consume events", satiation, meals)
	}
}

func TestStepFirstAnimalEatsEverything(t *testing.T) {
	opts := testOptions()
	opts.FoodRadius = 2 // every food is in range of every animal
	opts.GridCellSize = 2
	opts.GenerationLength = 100
	w, rng := newTestWorld(t, 42, opts)

	r, err := w.Step(rng)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if len(r.Events) != opts.Foods {
		t.Fatalf("got %d events, want %d (each food eaten once)", len(r.Events), opts.Foods)
	}
	for i, e := range r.Events {
		if e.AnimalID != 0 || e.FoodID != uint32(i) {
			t.Errorf("event %d = animal %d food %d, want animal 0 food %d", i, e.AnimalID, e.FoodID, i)
		}
	}

	animals := w.Animals()
	if animals[0].Satiation != uint32(opts.Foods) {
		t.Errorf("animal 0 satiation = %d, want %d", animals[0].Satiation, opts.Foods)
	}
	for _, a := range animals[1:] {
		if a.Satiation != 0 {
			t.Errorf("animal %d satiation = %d, want 0", a.ID, a.Satiation)
		}
	}
}

func TestGenerationBoundary(t *testing.T) {
	opts := testOptions()
	opts.FoodRadius = 2
	opts.GridCellSize = 2
	opts.GenerationLength = 5
	opts.MutationChance = 0
	w, rng := newTestWorld(t, 42, opts)

	before := w.Chromosomes()
	results := stepN(t, w, rng, 5)

	for _, r := range results[:4] {
		if r.Generation != nil {
			t.Fatalf("tick %d ended a generation early", r.Tick)
		}
	}
	summary := results[4].Generation
	if summary == nil {
		t.Fatal("tick 4 did not end the generation")
	}
	if summary.Generation != 0 || summary.Ticks != 5 || summary.Reseeded {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Best.ID != 0 || summary.Best.Satiation != uint32(5*opts.Foods) {
		t.Errorf("best = %+v, want animal 0 with %d", summary.Best, 5*opts.Foods)
	}
	if summary.Fitness.Size != opts.Animals || summary.Fitness.MaxFitness != float64(5*opts.Foods) {
		t.Errorf("fitness = %+v", summary.Fitness)
	}

	if w.Generation() != 1 || w.Tick() != 0 {
		t.Errorf("generation/tick = %d/%d, want 1/0", w.Generation(), w.Tick())
	}
	for _, a := range w.Animals() {
		if a.Satiation != 0 {
			t.Errorf("animal %d kept satiation %d into the new generation", a.ID, a.Satiation)
		}
	}

	// Only animal 0 fed, so with no mutation every child is its clone.
	for i, c := range w.Chromosomes() {
		for j := range c {
			if c[j] != before[0][j] {
				t.Fatalf("child %d gene %d = %v, want parent gene %v", i, j, c[j], before[0][j])
			}
		}
	}
}

func TestZeroFitnessPolicy(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		opts := testOptions()
		opts.Foods = 0
		opts.GenerationLength = 3
		opts.ZeroFitnessPolicy = config.ZeroFitnessError
		w, rng := newTestWorld(t, 42, opts)

		stepN(t, w, rng, 2)
		_, err := w.Step(rng)
		if !errors.Is(err, genetic.ErrDegeneratePopulation) {
			t.Fatalf("Step = %v, want ErrDegeneratePopulation", err)
		}
	})

	t.Run("reseed", func(t *testing.T) {
		opts := testOptions()
		opts.Foods = 0
		opts.GenerationLength = 3
		opts.ZeroFitnessPolicy = config.ZeroFitnessReseed
		w, rng := newTestWorld(t, 42, opts)

		before := w.Chromosomes()
		results := stepN(t, w, rng, 3)

		last := results[2]
		if last.Generation == nil || !last.Generation.Reseeded {
			t.Fatalf("summary = %+v, want a reseeded generation", last.Generation)
		}
		if len(last.Events) != 1 || last.Events[0].Type != telemetry.EventReseed {
			t.Errorf("events = %+v, want one reseed event", last.Events)
		}
		if w.Generation() != 1 {
			t.Errorf("Generation() = %d, want 1", w.Generation())
		}
		if after := w.Chromosomes(); after[0][0] == before[0][0] && after[1][0] == before[1][0] {
			t.Error("brains were not replaced")
		}
	})
}

func TestDeterminism(t *testing.T) {
	run := func(workers, threshold int) ([]AnimalView, [][]float32) {
		opts := testOptions()
		opts.Animals = 40
		opts.Foods = 60
		opts.FoodRadius = 0.03
		opts.GenerationLength = 50
		opts.Workers = workers
		opts.ParallelThreshold = threshold
		w, rng := newTestWorld(t, 42, opts)
		stepN(t, w, rng, 120)
		return w.Animals(), w.Chromosomes()
	}

	animalsA, chromA := run(1, 64)
	animalsB, chromB := run(1, 64)
	animalsC, chromC := run(4, 1) // worker pool

	for i := range animalsA {
		if animalsA[i] != animalsB[i] {
			t.Fatalf("same seed diverged at animal %d: %+v vs %+v", i, animalsA[i], animalsB[i])
		}
		if animalsA[i] != animalsC[i] {
			t.Fatalf("worker pool changed animal %d: %+v vs %+v", i, animalsA[i], animalsC[i])
		}
	}
	for i := range chromA {
		for j := range chromA[i] {
			if chromA[i][j] != chromB[i][j] || chromA[i][j] != chromC[i][j] {
				t.Fatalf("chromosome %d gene %d differs between runs", i, j)
			}
		}
	}
}

func TestRestore(t *testing.T) {
	opts := testOptions()
	w, rng := newTestWorld(t, 42, opts)
	chromosomes := w.Chromosomes()

	restored, err := Restore(rng, opts, 7, chromosomes)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer restored.Close()

	if restored.Generation() != 7 || restored.Tick() != 0 {
		t.Errorf("generation/tick = %d/%d, want 7/0", restored.Generation(), restored.Tick())
	}
	got := restored.Chromosomes()
	for i := range chromosomes {
		for j := range chromosomes[i] {
			if got[i][j] != chromosomes[i][j] {
				t.Fatalf("chromosome %d gene %d = %v, want %v", i, j, got[i][j], chromosomes[i][j])
			}
		}
	}

	// Population size follows the chromosomes.
	small, err := Restore(rng, opts, 0, chromosomes[:3])
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer small.Close()
	if len(small.Animals()) != 3 {
		t.Errorf("restored %d animals, want 3", len(small.Animals()))
	}
}

func TestRestoreRejectsBadChromosomes(t *testing.T) {
	opts := testOptions()
	rng := rand.New(rand.NewSource(42))

	good := make([]float32, neural.WeightCount(opts.Topology))
	_, err := Restore(rng, opts, 0, [][]float32{good, good[:10]})

	var lenErr *neural.ChromosomeLengthError
	if !errors.As(err, &lenErr) {
		t.Fatalf("Restore = %v, want ChromosomeLengthError", err)
	}
	if lenErr.Got != 10 || lenErr.Expected != len(good) {
		t.Errorf("got %+v", lenErr)
	}

	if _, err := Restore(rng, opts, 0, nil); err == nil {
		t.Error("Restore with no chromosomes succeeded")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	opts := OptionsFromConfig(cfg)
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	if opts.Eye.Cells != cfg.Eye.Cells || opts.Topology[0].Neurons != cfg.Eye.Cells {
		t.Errorf("eye/topology mismatch: %+v %v", opts.Eye, opts.Topology)
	}
	if opts.Animals != cfg.Population.Animals || opts.GenerationLength != cfg.Generation.Length {
		t.Errorf("opts = %+v", opts)
	}
}

func TestCloseIdempotent(t *testing.T) {
	opts := testOptions()
	opts.Workers = 2
	opts.ParallelThreshold = 1
	w, rng := newTestWorld(t, 42, opts)

	stepN(t, w, rng, 3)
	w.Close()
	w.Close()
}

func BenchmarkStep(b *testing.B) {
	opts := testOptions()
	opts.Animals = 40
	opts.Foods = 60
	opts.GenerationLength = 2500
	rng := rand.New(rand.NewSource(42))
	w, err := New(rng, opts)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	defer w.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.Step(rng); err != nil {
			b.Fatalf("Step: %v", err)
		}
	}
}
