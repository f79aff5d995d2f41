package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase is one stage of a simulation step.
type Phase uint8

const (
	PhasePerceive Phase = iota // eye scan and brain propagation
	PhaseMove
	PhaseConsume
	PhaseEvolve
	numPhases
)

var phaseNames = [numPhases]string{"perceive", "move", "consume", "evolve"}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// tickSample is the timing of one step, split by phase.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times step phases over a ring of the most recent ticks.
// A phase runs from its StartPhase call until the next StartPhase or EndTick.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int

	now     func() time.Time
	current tickSample
	started time.Time
	mark    time.Time
	active  Phase
	inPhase bool
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	return newPerfCollector(window, time.Now)
}

func newPerfCollector(window int, now func() time.Time) *PerfCollector {
	if window < 1 {
		window = 250
	}
	return &PerfCollector{ring: make([]tickSample, window), now: now}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.current = tickSample{}
	p.started = p.now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	t := p.now()
	p.closePhase(t)
	p.active, p.mark, p.inPhase = phase, t, true
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.inPhase && p.active < numPhases {
		p.current.phases[p.active] += t.Sub(p.mark)
	}
	p.inPhase = false
}

// EndTick closes the running phase and stores the step in the ring.
func (p *PerfCollector) EndTick() {
	t := p.now()
	p.closePhase(t)
	p.current.total = t.Sub(p.started)

	p.ring[p.next] = p.current
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// Samples returns how many ticks the window currently holds.
func (p *PerfCollector) Samples() int {
	return p.count
}

// PerfStats summarizes the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // share of the average tick, 0-100
}

// Stats aggregates the ticks in the window. An empty window gives zeros.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	phases := make([][]float64, numPhases)
	for i := range phases {
		phases[i] = make([]float64, p.count)
	}
	for i, sample := range p.ring[:p.count] {
		totals[i] = float64(sample.total)
		for ph, d := range sample.phases {
			phases[ph][i] = float64(d)
		}
	}

	avg := stat.Mean(totals, nil)
	s.AvgTickDuration = time.Duration(avg)
	s.MinTickDuration = time.Duration(floats.Min(totals))
	s.MaxTickDuration = time.Duration(floats.Max(totals))
	if avg > 0 {
		s.TicksPerSecond = float64(time.Second) / avg
	}

	for ph := range phases {
		phaseAvg := stat.Mean(phases[ph], nil)
		s.PhaseAvg[ph] = time.Duration(phaseAvg)
		if avg > 0 {
			s.PhasePct[ph] = phaseAvg / avg * 100
		}
	}
	return s
}

// LogStats logs the window summary at Info.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	Generation  int32   `csv:"generation"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	PerceivePct float64 `csv:"perceive_pct"`
	MovePct     float64 `csv:"move_pct"`
	ConsumePct  float64 `csv:"consume_pct"`
	EvolvePct   float64 `csv:"evolve_pct"`
}

// ToCSV flattens the stats into a perf.csv row for a generation.
func (s PerfStats) ToCSV(generation int32) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:  generation,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MinTickUS:   s.MinTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
		PerceivePct: s.PhasePct[PhasePerceive],
		MovePct:     s.PhasePct[PhaseMove],
		ConsumePct:  s.PhasePct[PhaseConsume],
		EvolvePct:   s.PhasePct[PhaseEvolve],
	}
}
