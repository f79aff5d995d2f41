// Package systems contains ECS systems for the simulation.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/foragers/components"
)

// Bounds represents the simulation bounds. The world wraps on both axes.
type Bounds struct {
	Width, Height float32
}

// Movement maps brain outputs to speed and heading changes.
type Movement struct {
	SpeedMin      float32
	SpeedMax      float32
	SpeedAccel    float32 // max speed change per tick
	RotationAccel float32 // max heading change per tick
	Midpoint      float32 // output value that means "no change"
}

// Control is the per-tick intent decided by a brain.
type Control struct {
	SpeedDelta    float32
	RotationDelta float32
}

// Control converts the two brain outputs (speed, rotation) into deltas.
// Each output is centered on Midpoint, scaled by 2 and clamped to [-1, 1]
// before being multiplied by the matching acceleration.
func (m Movement) Control(outputs []float32) Control {
	return Control{
		SpeedDelta:    clampFloat(2*(outputs[0]-m.Midpoint), -1, 1) * m.SpeedAccel,
		RotationDelta: clampFloat(2*(outputs[1]-m.Midpoint), -1, 1) * m.RotationAccel,
	}
}

// Integrate applies c to one animal. The speed is clamped first, the
// position then advances along the pre-tick heading, the heading turns and
// the position wraps into bounds.
func (m Movement) Integrate(pos *components.Position, rot *components.Rotation, spd *components.Speed, c Control, b Bounds) {
	spd.Value = clampFloat(spd.Value+c.SpeedDelta, m.SpeedMin, m.SpeedMax)

	h := float64(rot.Heading)
	pos.X += spd.Value * float32(math.Cos(h))
	pos.Y += spd.Value * float32(math.Sin(h))

	rot.Heading = NormalizeAngle(rot.Heading + c.RotationDelta)

	pos.X = Wrap(pos.X, b.Width)
	pos.Y = Wrap(pos.Y, b.Height)
}

// PhysicsSystem moves animals according to their brains' controls.
type PhysicsSystem struct {
	filter   *ecs.Filter4[components.Position, components.Rotation, components.Speed, components.Animal]
	movement Movement
	bounds   Bounds
}

// NewPhysicsSystem creates a new physics system.
func NewPhysicsSystem(w *ecs.World, movement Movement, bounds Bounds) *PhysicsSystem {
	return &PhysicsSystem{
		filter:   ecs.NewFilter4[components.Position, components.Rotation, components.Speed, components.Animal](w),
		movement: movement,
		bounds:   bounds,
	}
}

// Update applies controls[animal.ID] to every animal.
func (s *PhysicsSystem) Update(controls []Control) {
	query := s.filter.Query()
	for query.Next() {
		pos, rot, spd, animal := query.Get()
		s.movement.Integrate(pos, rot, spd, controls[animal.ID], s.bounds)
	}
}
