package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/foragers/components"
)

// Eye is an angular food sensor. The field of view is split into Cells
// equal wedges centered on the heading; each wedge reports how much food
// it sees, weighted by closeness.
type Eye struct {
	FOVRange float32 // max sensing distance
	FOVAngle float32 // total angular width in radians
	Cells    int
}

// Validate checks that the eye can produce output.
func (e Eye) Validate() error {
	if e.Cells <= 0 {
		return fmt.Errorf("eye cells must be positive, got %d", e.Cells)
	}
	if e.FOVRange <= 0 {
		return fmt.Errorf("eye range must be positive, got %v", e.FOVRange)
	}
	// Relative angles live in [-Pi, Pi), so wider wedges could never fire.
	if e.FOVAngle <= 0 || e.FOVAngle > 2*math.Pi {
		return fmt.Errorf("eye angle must be in (0, 2Pi], got %v", e.FOVAngle)
	}
	return nil
}

// Process returns exactly Cells activations in [0, 1] for an observer at
// (x, y) facing heading.
func (e Eye) Process(x, y, heading float32, foods []components.Position) []float32 {
	cells := make([]float32, e.Cells)
	e.ProcessInto(cells, x, y, heading, foods)
	return cells
}

// ProcessInto is Process writing into dst, which must hold Cells values.
// dst is zeroed first.
func (e Eye) ProcessInto(dst []float32, x, y, heading float32, foods []components.Position) {
	for i := range dst {
		dst[i] = 0
	}

	half := e.FOVAngle / 2
	for _, f := range foods {
		d := distance(x, y, f.X, f.Y)
		if d > e.FOVRange {
			continue
		}

		angle := float32(math.Atan2(float64(f.Y-y), float64(f.X-x)))
		rel := NormalizeAngle(angle - heading)
		if rel < -half || rel > half {
			continue
		}

		dst[e.cellFor(rel)] += (e.FOVRange - d) / e.FOVRange
	}

	for i, v := range dst {
		dst[i] = clampFloat(v, 0, 1)
	}
}

// cellFor maps a relative angle inside the window to its wedge. Wedges are
// half-open except the last, which also takes the +FOV/2 edge.
func (e Eye) cellFor(rel float32) int {
	frac := (float64(rel) + float64(e.FOVAngle)/2) / float64(e.FOVAngle)
	cell := int(math.Floor(frac * float64(e.Cells)))
	if cell < 0 {
		return 0
	}
	if cell >= e.Cells {
		return e.Cells - 1
	}
	return cell
}
