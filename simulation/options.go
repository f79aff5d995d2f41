package simulation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/foragers/config"
	"github.com/pthm-cable/foragers/genetic"
	"github.com/pthm-cable/foragers/neural"
	"github.com/pthm-cable/foragers/systems"
)

// Options configures a World. Library code never reads the global config;
// use OptionsFromConfig to bridge.
type Options struct {
	Width, Height float32
	Animals       int
	Foods         int

	Eye      systems.Eye
	Topology []neural.LayerTopology // input width must equal Eye.Cells, output width 2

	Movement     systems.Movement
	InitialSpeed float32

	FoodRadius   float32
	GridCellSize float32 // 0 = FoodRadius

	GenerationLength  int
	MutationChance    float32
	MutationCoeff     float32
	ZeroFitnessPolicy string // config.ZeroFitnessError or config.ZeroFitnessReseed

	Workers           int // 0 = GOMAXPROCS
	ParallelThreshold int // minimum animals before the worker pool is used
	PerfWindow        int

	Logger *slog.Logger // nil = slog.Default()
}

// OptionsFromConfig builds Options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	topo := make([]neural.LayerTopology, len(cfg.Derived.Topology))
	copy(topo, cfg.Derived.Topology)

	return Options{
		Width:   cfg.Derived.WorldW32,
		Height:  cfg.Derived.WorldH32,
		Animals: cfg.Population.Animals,
		Foods:   cfg.Population.Foods,
		Eye: systems.Eye{
			FOVRange: float32(cfg.Eye.FOVRange),
			FOVAngle: float32(cfg.Eye.FOVAngle),
			Cells:    cfg.Eye.Cells,
		},
		Topology: topo,
		Movement: systems.Movement{
			SpeedMin:      float32(cfg.Movement.SpeedMin),
			SpeedMax:      float32(cfg.Movement.SpeedMax),
			SpeedAccel:    float32(cfg.Movement.SpeedAccel),
			RotationAccel: float32(cfg.Movement.RotationAccel),
			Midpoint:      float32(cfg.Movement.OutputMidpoint),
		},
		InitialSpeed:      float32(cfg.Movement.InitialSpeed),
		FoodRadius:        float32(cfg.Feeding.Radius),
		GridCellSize:      float32(cfg.Feeding.GridCellSize),
		GenerationLength:  cfg.Generation.Length,
		MutationChance:    float32(cfg.Genetic.MutationChance),
		MutationCoeff:     float32(cfg.Genetic.MutationCoeff),
		ZeroFitnessPolicy: cfg.Genetic.ZeroFitnessPolicy,
		Workers:           cfg.Parallel.Workers,
		ParallelThreshold: cfg.Parallel.Threshold,
		PerfWindow:        cfg.Telemetry.PerfWindow,
	}
}

// Validate checks that the options describe a runnable world.
func (o Options) Validate() error {
	var errs []error
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %vx%v must be positive", o.Width, o.Height))
	}
	if o.Animals <= 0 {
		errs = append(errs, fmt.Errorf("animal count must be positive, got %d", o.Animals))
	}
	if o.Foods < 0 {
		errs = append(errs, fmt.Errorf("food count must not be negative, got %d", o.Foods))
	}
	if err := o.Eye.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := neural.Validate(o.Topology); err != nil {
		errs = append(errs, err)
	} else {
		if in := o.Topology[0].Neurons; in != o.Eye.Cells {
			errs = append(errs, fmt.Errorf("%w: input layer has %d neurons but the eye has %d cells", neural.ErrInvalidTopology, in, o.Eye.Cells))
		}
		if out := o.Topology[len(o.Topology)-1].Neurons; out != 2 {
			errs = append(errs, fmt.Errorf("%w: output layer has %d neurons, want 2", neural.ErrInvalidTopology, out))
		}
	}
	if o.Movement.SpeedMin < 0 || o.Movement.SpeedMax < o.Movement.SpeedMin {
		errs = append(errs, fmt.Errorf("speed bounds [%v, %v] invalid", o.Movement.SpeedMin, o.Movement.SpeedMax))
	}
	if o.FoodRadius <= 0 {
		errs = append(errs, fmt.Errorf("food radius must be positive, got %v", o.FoodRadius))
	}
	if o.GenerationLength <= 0 {
		errs = append(errs, fmt.Errorf("generation length must be positive, got %d", o.GenerationLength))
	}
	if _, err := genetic.NewUniformMutation(o.MutationChance, o.MutationCoeff); err != nil {
		errs = append(errs, err)
	}
	switch o.ZeroFitnessPolicy {
	case config.ZeroFitnessError, config.ZeroFitnessReseed:
	default:
		errs = append(errs, fmt.Errorf("zero fitness policy %q unknown", o.ZeroFitnessPolicy))
	}
	return errors.Join(errs...)
}

// withDefaults fills zero values that have a sensible default.
func (o Options) withDefaults() Options {
	if o.GridCellSize <= 0 {
		o.GridCellSize = o.FoodRadius
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
