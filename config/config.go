// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/foragers/neural"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Zero-fitness policies applied at a generation boundary.
const (
	ZeroFitnessError  = "error"  // surface the degenerate population error
	ZeroFitnessReseed = "reseed" // start over with fresh random brains
)

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Eye        EyeConfig        `yaml:"eye"`
	Brain      BrainConfig      `yaml:"brain"`
	Movement   MovementConfig   `yaml:"movement"`
	Feeding    FeedingConfig    `yaml:"feeding"`
	Generation GenerationConfig `yaml:"generation"`
	Genetic    GeneticConfig    `yaml:"genetic"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world dimensions. The world wraps on both axes.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PopulationConfig holds entity counts.
type PopulationConfig struct {
	Animals int `yaml:"animals"`
	Foods   int `yaml:"foods"`
}

// EyeConfig holds the field of view shared by every animal.
type EyeConfig struct {
	FOVRange float64 `yaml:"fov_range"` // max sensing distance
	FOVAngle float64 `yaml:"fov_angle"` // total angular width in radians, centered on heading
	Cells    int     `yaml:"cells"`     // number of angular wedges
}

// BrainConfig holds the hidden part of the network topology. Input width
// comes from the eye and output width is fixed at 2 (speed, rotation).
type BrainConfig struct {
	HiddenLayers []int `yaml:"hidden_layers"` // e.g. [18]; empty means 2 * eye cells
}

// MovementConfig holds the output scaling and physical bounds.
type MovementConfig struct {
	SpeedMin       float64 `yaml:"speed_min"`
	SpeedMax       float64 `yaml:"speed_max"`
	InitialSpeed   float64 `yaml:"initial_speed"`
	SpeedAccel     float64 `yaml:"speed_accel"`     // max speed change per tick
	RotationAccel  float64 `yaml:"rotation_accel"`  // max heading change per tick (radians)
	OutputMidpoint float64 `yaml:"output_midpoint"` // brain output mapped to zero delta
}

// FeedingConfig holds consumption parameters.
type FeedingConfig struct {
	Radius       float64 `yaml:"radius"`         // animal-food distance below which food is eaten
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial grid cell size for the consumption pass
}

// GenerationConfig holds the length of one evolutionary cycle.
type GenerationConfig struct {
	Length int `yaml:"length"` // ticks per generation
}

// GeneticConfig holds genetic algorithm parameters.
type GeneticConfig struct {
	MutationChance    float64 `yaml:"mutation_chance"`
	MutationCoeff     float64 `yaml:"mutation_coeff"`
	ZeroFitnessPolicy string  `yaml:"zero_fitness_policy"` // "error" or "reseed"
}

// ParallelConfig holds worker pool settings for the perception phase.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // minimum animals before fanning out
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow      int `yaml:"perf_window"`       // ticks averaged by the perf collector
	SnapshotEvery   int `yaml:"snapshot_every"`    // generations between snapshots (0 = never)
	HallOfFameSize  int `yaml:"hall_of_fame_size"` // best animals kept across the run
	BookmarkHistory int `yaml:"bookmark_history"`  // generations of history for bookmark detection
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Topology []neural.LayerTopology // eye cells, hidden..., 2
	WorldW32 float32
	WorldH32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it
// after modifying a loaded config in place.
func (c *Config) Finalize() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.computeDerived()
	return nil
}

// Validate checks value ranges. It does not touch derived values.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %vx%v must be positive", c.World.Width, c.World.Height))
	}
	if c.Population.Animals <= 0 {
		errs = append(errs, fmt.Errorf("population.animals must be positive, got %d", c.Population.Animals))
	}
	if c.Population.Foods < 0 {
		errs = append(errs, fmt.Errorf("population.foods must not be negative, got %d", c.Population.Foods))
	}
	if c.Eye.Cells <= 0 {
		errs = append(errs, fmt.Errorf("eye.cells must be positive, got %d", c.Eye.Cells))
	}
	if c.Eye.FOVRange <= 0 {
		errs = append(errs, fmt.Errorf("eye.fov_range must be positive, got %v", c.Eye.FOVRange))
	}
	if c.Eye.FOVAngle <= 0 || c.Eye.FOVAngle > 2*math.Pi {
		errs = append(errs, fmt.Errorf("eye.fov_angle must be in (0, 2pi], got %v", c.Eye.FOVAngle))
	}
	for i, n := range c.Brain.HiddenLayers {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("brain.hidden_layers[%d] must be positive, got %d", i, n))
		}
	}
	if c.Movement.SpeedMin < 0 || c.Movement.SpeedMax < c.Movement.SpeedMin {
		errs = append(errs, fmt.Errorf("movement speed bounds [%v, %v] invalid", c.Movement.SpeedMin, c.Movement.SpeedMax))
	}
	if c.Feeding.Radius <= 0 {
		errs = append(errs, fmt.Errorf("feeding.radius must be positive, got %v", c.Feeding.Radius))
	}
	if c.Generation.Length <= 0 {
		errs = append(errs, fmt.Errorf("generation.length must be positive, got %d", c.Generation.Length))
	}
	if c.Genetic.MutationChance < 0 || c.Genetic.MutationChance > 1 {
		errs = append(errs, fmt.Errorf("genetic.mutation_chance %v outside [0, 1]", c.Genetic.MutationChance))
	}
	if c.Genetic.MutationCoeff < 0 {
		errs = append(errs, fmt.Errorf("genetic.mutation_coeff must not be negative, got %v", c.Genetic.MutationCoeff))
	}
	if c.Telemetry.SnapshotEvery < 0 {
		errs = append(errs, fmt.Errorf("telemetry.snapshot_every must not be negative, got %d", c.Telemetry.SnapshotEvery))
	}
	switch c.Genetic.ZeroFitnessPolicy {
	case ZeroFitnessError, ZeroFitnessReseed:
	default:
		errs = append(errs, fmt.Errorf("genetic.zero_fitness_policy %q unknown", c.Genetic.ZeroFitnessPolicy))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	hidden := c.Brain.HiddenLayers
	if len(hidden) == 0 {
		hidden = []int{2 * c.Eye.Cells}
	}

	topo := make([]neural.LayerTopology, 0, len(hidden)+2)
	topo = append(topo, neural.LayerTopology{Neurons: c.Eye.Cells})
	for _, n := range hidden {
		topo = append(topo, neural.LayerTopology{Neurons: n})
	}
	topo = append(topo, neural.LayerTopology{Neurons: 2}) // speed, rotation

	c.Derived.Topology = topo
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
}

// Clone returns a deep copy, including derived values.
func (c *Config) Clone() *Config {
	out := *c
	out.Brain.HiddenLayers = append([]int(nil), c.Brain.HiddenLayers...)
	out.Derived.Topology = append([]neural.LayerTopology(nil), c.Derived.Topology...)
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
