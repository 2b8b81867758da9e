package grid

import "fmt"

// Region is an inclusive axis-aligned rectangle in cell coordinates
type Region struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// NewRegion builds a region from two opposite corners in any order
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{
		X1: min(x1, x2),
		Y1: min(y1, y2),
		X2: max(x1, x2),
		Y2: max(y1, y2),
	}
}

// Normalized returns a copy with ordered corners
func (r Region) Normalized() Region {
	return NewRegion(r.X1, r.Y1, r.X2, r.Y2)
}

// Contains reports whether the cell (col, row) lies inside the region
func (r Region) Contains(col, row int) bool {
	return col >= r.X1 && col <= r.X2 && row >= r.Y1 && row <= r.Y2
}

// Width returns the number of columns covered
func (r Region) Width() int {
	return r.X2 - r.X1 + 1
}

// Height returns the number of rows covered
func (r Region) Height() int {
	return r.Y2 - r.Y1 + 1
}

// String implements fmt.Stringer
func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// CloneRegion returns a normalized copy of r, or nil
func CloneRegion(r *Region) *Region {
	if r == nil {
		return nil
	}
	n := r.Normalized()
	return &n
}
