package systems

import "github.com/pthm-cable/foragers/components"

// SpatialGrid buckets slot indices by position for radius lookups.
// Lookups use plain Euclidean distance and do not wrap around the edges.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	cells    [][]int32 // flat grid of slot lists, ascending within a cell
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int32, cols*rows)
	for i := range cells {
		cells[i] = make([]int32, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all slots from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds slot idx at the given position. Slots must be inserted in
// ascending order for FirstWithin to report the lowest one.
func (g *SpatialGrid) Insert(idx int, x, y float32) {
	col, row := g.cellCoords(x, y)
	i := row*g.cols + col
	g.cells[i] = append(g.cells[i], int32(idx))
}

// FirstWithin returns the lowest slot whose position in positions lies
// strictly closer than radius to (x, y), or -1 if there is none.
func (g *SpatialGrid) FirstWithin(x, y, radius float32, positions []components.Position) int {
	reach := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cellCoords(x, y)

	best := -1
	for row := max(centerRow-reach, 0); row <= min(centerRow+reach, g.rows-1); row++ {
		for col := max(centerCol-reach, 0); col <= min(centerCol+reach, g.cols-1); col++ {
			for _, slot := range g.cells[row*g.cols+col] {
				s := int(slot)
				if best >= 0 && s >= best {
					break
				}
				p := positions[s]
				if distance(x, y, p.X, p.Y) < radius {
					best = s
					break
				}
			}
		}
	}
	return best
}

// cellCoords returns the clamped grid coordinates for a world position.
func (g *SpatialGrid) cellCoords(x, y float32) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)

	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}
