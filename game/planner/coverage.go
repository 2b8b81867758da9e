package planner

import "github.com/wricardo/mcp-training/coveragebot/game/grid"

// Plan is a stitched coverage path plus the diagnostics of its construction
type Plan struct {
	Start   grid.Cell       `json:"start"`
	Targets []grid.Cell     `json:"targets"`
	Path    []grid.Waypoint `json:"path"`
	Reached int             `json:"reached"`
	Skipped []grid.Cell     `json:"skipped,omitempty"`
}

// Complete reports whether every coverage target was reached or was the start
func (p Plan) Complete() bool {
	return len(p.Skipped) == 0
}

// CoverageTargets returns the serpentine visitation order for the grid.
// Row bands are stepped by the footprint size; even bands run left to right,
// odd bands right to left. Forbidden placements are omitted.
func CoverageTargets(g grid.Grid, region *grid.Region) []grid.Cell {
	if g.Footprint < 1 || g.MaxCol() < 0 || g.MaxRow() < 0 {
		return nil
	}

	targets := make([]grid.Cell, 0, g.Placements()/g.Footprint+1)
	band := 0
	for row := 0; row <= g.MaxRow(); row += g.Footprint {
		if band%2 == 0 {
			for col := 0; col <= g.MaxCol(); col++ {
				if !g.IsFootprintForbidden(col, row, region) {
					targets = append(targets, grid.Cell{Col: col, Row: row})
				}
			}
		} else {
			for col := g.MaxCol(); col >= 0; col-- {
				if !g.IsFootprintForbidden(col, row, region) {
					targets = append(targets, grid.Cell{Col: col, Row: row})
				}
			}
		}
		band++
	}
	return targets
}

// GenerateCoveragePlan stitches the serpentine targets into one path starting
// at start. Targets that FindPath cannot reach are skipped and recorded; the
// current cell only advances on success.
func GenerateCoveragePlan(g grid.Grid, region *grid.Region, start grid.Cell) Plan {
	plan := Plan{
		Start:   start,
		Targets: CoverageTargets(g, region),
		Path:    []grid.Waypoint{},
	}

	current := start
	for _, target := range plan.Targets {
		if target == current {
			continue
		}
		segment := FindPath(g, region, current, target)
		if len(segment) == 0 {
			plan.Skipped = append(plan.Skipped, target)
			continue
		}
		plan.Path = append(plan.Path, segment...)
		plan.Reached++
		current = target
	}

	return plan
}
