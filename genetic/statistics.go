package genetic

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes the fitness of a population.
type Statistics struct {
	Size          int
	MinFitness    float64
	MaxFitness    float64
	MeanFitness   float64
	StdDevFitness float64
	TotalFitness  float64
}

// NewStatistics computes fitness statistics. An empty input yields zeros.
func NewStatistics(fitness []float32) Statistics {
	if len(fitness) == 0 {
		return Statistics{}
	}

	values := make([]float64, len(fitness))
	for i, f := range fitness {
		values[i] = float64(f)
	}

	s := Statistics{
		Size:         len(values),
		MinFitness:   floats.Min(values),
		MaxFitness:   floats.Max(values),
		TotalFitness: floats.Sum(values),
	}
	if len(values) > 1 {
		s.MeanFitness, s.StdDevFitness = stat.MeanStdDev(values, nil)
	} else {
		s.MeanFitness = values[0]
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s Statistics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("size", s.Size),
		slog.Float64("min", s.MinFitness),
		slog.Float64("max", s.MaxFitness),
		slog.Float64("mean", s.MeanFitness),
		slog.Float64("std", s.StdDevFitness),
		slog.Float64("total", s.TotalFitness),
	)
}
