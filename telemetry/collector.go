package telemetry

// Collector accumulates events within a generation and produces GenerationStats.
type Collector struct {
	generation    int32
	meals         int
	firstMealTick int32
	reseeded      bool
}

// NewCollector creates a new stats collector starting at the given generation.
func NewCollector(generation int32) *Collector {
	return &Collector{
		generation:    generation,
		firstMealTick: -1,
	}
}

// Record accumulates one event. Events from other generations are ignored.
func (c *Collector) Record(e Event) {
	if e.Generation != c.generation {
		return
	}
	switch e.Type {
	case EventConsume:
		c.meals++
		if c.firstMealTick < 0 || e.Tick < c.firstMealTick {
			c.firstMealTick = e.Tick
		}
	case EventReseed:
		c.reseeded = true
	}
}

// RecordAll accumulates a batch of events.
func (c *Collector) RecordAll(events []Event) {
	for _, e := range events {
		c.Record(e)
	}
}

// Generation returns the generation currently being collected.
func (c *Collector) Generation() int32 {
	return c.generation
}

// Flush builds the stats for the current generation from the accumulated
// events and the final satiation of every animal, then resets for the next
// generation.
func (c *Collector) Flush(ticks int32, foods int, satiation []uint32) GenerationStats {
	sum := ComputeSatiationStats(satiation)

	stats := GenerationStats{
		Generation:    c.generation,
		Ticks:         ticks,
		Animals:       len(satiation),
		Foods:         foods,
		Meals:         c.meals,
		FirstMealTick: c.firstMealTick,
		SatiationMin:  sum.Min,
		SatiationMax:  sum.Max,
		SatiationMean: sum.Mean,
		SatiationStd:  sum.Std,
		SatiationP10:  sum.P10,
		SatiationP50:  sum.P50,
		SatiationP90:  sum.P90,
		Starved:       sum.Zero,
		Reseeded:      c.reseeded,
	}
	if ticks > 0 {
		stats.MealsPerTick = float64(c.meals) / float64(ticks)
	}

	c.generation++
	c.meals = 0
	c.firstMealTick = -1
	c.reseeded = false

	return stats
}
