// Package components defines ECS components for the simulation.
package components

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Rotation holds an animal's heading in radians, normalized to [-π, π).
type Rotation struct {
	Heading float32
}

// Speed holds an animal's forward speed in world units per tick.
type Speed struct {
	Value float32
}

// Animal holds animal-specific data.
// ID indexes the world's brain slice and is stable for one generation.
type Animal struct {
	ID        uint32
	Satiation uint32 // foods eaten this generation; used as fitness
}

// Food marks a food entity. Food is relocated when eaten, never removed.
type Food struct {
	ID uint32
}
