// Package grid models the discrete world the coverage robot moves in.
//
// A Grid is a fixed-size rectangle of square cells. The robot occupies a
// Footprint x Footprint block of cells anchored at its origin cell, so only
// origins with col in [0, Width-Footprint] and row in [0, Height-Footprint]
// are valid placements. Continuous positions (Waypoint) are expressed in the
// same units as CellSize; the waypoint of a cell is the center of the
// footprint anchored there.
package grid

import (
	"fmt"
	"math"
)

// Default grid parameters
const (
	DefaultWidth     = 50
	DefaultHeight    = 50
	DefaultFootprint = 2
	DefaultCellSize  = 16.0
)

// Cell is a column/row pair, 0-indexed
type Cell struct {
	Col int `json:"col" yaml:"col"`
	Row int `json:"row" yaml:"row"`
}

// Waypoint is a point in continuous space
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grid holds the immutable world dimensions
type Grid struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Footprint int     `json:"footprint"`
	CellSize  float64 `json:"cell_size"`
}

// New creates a grid with the given dimensions
func New(width, height, footprint int, cellSize float64) Grid {
	return Grid{
		Width:     width,
		Height:    height,
		Footprint: footprint,
		CellSize:  cellSize,
	}
}

// Default returns the 50x50 grid with a 2x2 footprint and 16 unit cells
func Default() Grid {
	return New(DefaultWidth, DefaultHeight, DefaultFootprint, DefaultCellSize)
}

// Validate checks that the grid can hold at least one footprint placement
func (g Grid) Validate() error {
	if g.Footprint < 1 {
		return fmt.Errorf("grid: footprint must be at least 1, got %d", g.Footprint)
	}
	if g.Width < g.Footprint || g.Height < g.Footprint {
		return fmt.Errorf("grid: %dx%d cannot hold a %dx%d footprint", g.Width, g.Height, g.Footprint, g.Footprint)
	}
	if g.CellSize <= 0 || math.IsNaN(g.CellSize) || math.IsInf(g.CellSize, 0) {
		return fmt.Errorf("grid: cell size must be positive, got %v", g.CellSize)
	}
	return nil
}

// MaxCol returns the largest valid origin column
func (g Grid) MaxCol() int {
	return g.Width - g.Footprint
}

// MaxRow returns the largest valid origin row
func (g Grid) MaxRow() int {
	return g.Height - g.Footprint
}

// IsPlacement reports whether c is a valid footprint origin
func (g Grid) IsPlacement(c Cell) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col <= g.MaxCol() && c.Row <= g.MaxRow()
}

// Placements returns the number of valid footprint origins
func (g Grid) Placements() int {
	if g.MaxCol() < 0 || g.MaxRow() < 0 {
		return 0
	}
	return (g.MaxCol() + 1) * (g.MaxRow() + 1)
}

// IsFootprintForbidden reports whether any cell of the footprint anchored at
// (col, row) lies inside region. Coordinates are not clipped to the grid.
func (g Grid) IsFootprintForbidden(col, row int, region *Region) bool {
	if region == nil {
		return false
	}
	for dx := 0; dx < g.Footprint; dx++ {
		for dy := 0; dy < g.Footprint; dy++ {
			if region.Contains(col+dx, row+dy) {
				return true
			}
		}
	}
	return false
}

// TileCenter maps a footprint origin to the waypoint at the footprint center
func (g Grid) TileCenter(c Cell) Waypoint {
	half := float64(g.Footprint) * g.CellSize / 2
	return Waypoint{
		X: float64(c.Col)*g.CellSize + half,
		Y: float64(c.Row)*g.CellSize + half,
	}
}

// OriginOf maps a waypoint back to the footprint origin whose center it is
func (g Grid) OriginOf(w Waypoint) Cell {
	half := float64(g.Footprint) * g.CellSize / 2
	return Cell{
		Col: int(math.Floor((w.X - half) / g.CellSize)),
		Row: int(math.Floor((w.Y - half) / g.CellSize)),
	}
}

// Extent returns the grid size in continuous units
func (g Grid) Extent() (width, height float64) {
	return float64(g.Width) * g.CellSize, float64(g.Height) * g.CellSize
}

// Index flattens a placement cell into an arena index
func (g Grid) Index(c Cell) int {
	return c.Row*(g.MaxCol()+1) + c.Col
}

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to Cell) int {
	dx := from.Col - to.Col
	if dx < 0 {
		dx = -dx
	}
	dy := from.Row - to.Row
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Distance returns the euclidean distance between two waypoints
func Distance(a, b Waypoint) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
