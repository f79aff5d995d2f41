// Package telemetry provides generation statistics, bookmarking, and snapshots.
package telemetry

import "log/slog"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventConsume EventType = iota // an animal ate a food item
	EventReseed                   // a generation was replaced by random brains
)

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventConsume:
		return "consume"
	case EventReseed:
		return "reseed"
	default:
		return "unknown"
	}
}

// Event represents a single telemetry event.
type Event struct {
	Type       EventType
	Generation int32
	Tick       int32 // tick within the generation
	AnimalID   uint32

	// Optional fields depending on event type
	FoodID uint32
	X, Y   float32 // where the food was eaten
}

// NewConsumeEvent creates a consumption event.
func NewConsumeEvent(generation, tick int32, animalID, foodID uint32, x, y float32) Event {
	return Event{
		Type:       EventConsume,
		Generation: generation,
		Tick:       tick,
		AnimalID:   animalID,
		FoodID:     foodID,
		X:          x,
		Y:          y,
	}
}

// NewReseedEvent creates a reseed event for the generation that replaced a
// degenerate one.
func NewReseedEvent(generation, tick int32) Event {
	return Event{
		Type:       EventReseed,
		Generation: generation,
		Tick:       tick,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.Type.String()),
		slog.Int("generation", int(e.Generation)),
		slog.Int("tick", int(e.Tick)),
	}
	if e.Type == EventConsume {
		attrs = append(attrs,
			slog.Int("animal", int(e.AnimalID)),
			slog.Int("food", int(e.FoodID)),
			slog.Float64("x", float64(e.X)),
			slog.Float64("y", float64(e.Y)),
		)
	}
	return slog.GroupValue(attrs...)
}
