package systems

import (
	"testing"

	"github.com/pthm-cable/foragers/components"
)

func newGrid(positions []components.Position) *SpatialGrid {
	g := NewSpatialGrid(1, 1, 0.1)
	for i, p := range positions {
		g.Insert(i, p.X, p.Y)
	}
	return g
}

func TestSpatialGridFirstWithin(t *testing.T) {
	positions := []components.Position{
		{X: 0.9, Y: 0.9},
		{X: 0.505, Y: 0.5},
		{X: 0.495, Y: 0.5},
		{X: 0.001, Y: 0.5},
	}
	g := newGrid(positions)

	tests := []struct {
		name   string
		x, y   float32
		radius float32
		want   int
	}{
		{"lowest slot wins across cells", 0.5, 0.5, 0.01, 1},
		{"nothing nearby", 0.2, 0.2, 0.01, -1},
		{"strictly closer than radius", 0.9, 0.95, 0.05, -1},
		{"no wrap across edges", 0.999, 0.5, 0.01, -1},
		{"radius larger than a cell", 0.7, 0.7, 0.3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.FirstWithin(tt.x, tt.y, tt.radius, positions); got != tt.want {
				t.Errorf("FirstWithin = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSpatialGridClear(t *testing.T) {
	positions := []components.Position{{X: 0.5, Y: 0.5}}
	g := newGrid(positions)
	g.Clear()

	if got := g.FirstWithin(0.5, 0.5, 0.1, positions); got != -1 {
		t.Errorf("FirstWithin after Clear = %d, want -1", got)
	}
}

func TestSpatialGridOutOfBoundsClamped(t *testing.T) {
	positions := []components.Position{{X: 1.0, Y: 1.0}}
	g := newGrid(positions)

	if got := g.FirstWithin(0.995, 0.995, 0.01, positions); got != 0 {
		t.Errorf("FirstWithin = %d, want 0", got)
	}
}
