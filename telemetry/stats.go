package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds aggregated statistics for one finished generation.
type GenerationStats struct {
	Generation int32 `csv:"generation"`
	Ticks      int32 `csv:"ticks"`
	Animals    int   `csv:"animals"`
	Foods      int   `csv:"foods"`

	// Consumption during the generation
	Meals         int     `csv:"meals"`
	FirstMealTick int32   `csv:"first_meal_tick"` // -1 if nothing was eaten
	MealsPerTick  float64 `csv:"meals_per_tick"`

	// Satiation distribution at the generation boundary
	SatiationMin  float64 `csv:"satiation_min"`
	SatiationMax  float64 `csv:"satiation_max"`
	SatiationMean float64 `csv:"satiation_mean"`
	SatiationStd  float64 `csv:"satiation_std"`
	SatiationP10  float64 `csv:"satiation_p10"`
	SatiationP50  float64 `csv:"satiation_p50"`
	SatiationP90  float64 `csv:"satiation_p90"`
	Starved       int     `csv:"starved"` // animals that ate nothing

	// Set when the next generation was random rather than evolved
	Reseeded bool `csv:"reseeded"`
}

// Percentile returns the p-th quantile of a sorted slice using the
// empirical CDF. p should be in [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// SatiationSummary holds distribution statistics over satiation values.
type SatiationSummary struct {
	Min, Max, Mean, Std float64
	P10, P50, P90       float64
	Zero                int
}

// ComputeSatiationStats calculates the distribution of satiation values.
func ComputeSatiationStats(satiation []uint32) SatiationSummary {
	n := len(satiation)
	if n == 0 {
		return SatiationSummary{}
	}

	values := make([]float64, n)
	var zero int
	for i, s := range satiation {
		values[i] = float64(s)
		if s == 0 {
			zero++
		}
	}
	sort.Float64s(values)

	var sum SatiationSummary
	sum.Zero = zero
	sum.Min = values[0]
	sum.Max = values[n-1]
	if n > 1 {
		sum.Mean, sum.Std = stat.MeanStdDev(values, nil)
	} else {
		sum.Mean = values[0]
	}
	sum.P10 = Percentile(values, 0.10)
	sum.P50 = Percentile(values, 0.50)
	sum.P90 = Percentile(values, 0.90)
	return sum
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", int(s.Generation)),
		slog.Int("ticks", int(s.Ticks)),
		slog.Int("animals", s.Animals),
		slog.Int("foods", s.Foods),
		slog.Int("meals", s.Meals),
		slog.Int("first_meal_tick", int(s.FirstMealTick)),
		slog.Float64("meals_per_tick", s.MealsPerTick),
		slog.Float64("satiation_min", s.SatiationMin),
		slog.Float64("satiation_max", s.SatiationMax),
		slog.Float64("satiation_mean", s.SatiationMean),
		slog.Float64("satiation_std", s.SatiationStd),
		slog.Float64("satiation_p10", s.SatiationP10),
		slog.Float64("satiation_p50", s.SatiationP50),
		slog.Float64("satiation_p90", s.SatiationP90),
		slog.Int("starved", s.Starved),
		slog.Bool("reseeded", s.Reseeded),
	)
}

// LogStats logs the headline numbers using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"meals", s.Meals,
		"satiation_mean", s.SatiationMean,
		"satiation_max", s.SatiationMax,
		"starved", s.Starved,
		"reseeded", s.Reseeded,
	)
}
