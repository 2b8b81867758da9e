// Package planner generates the paths the coverage robot follows.
//
// Two operations are provided:
//   - FindPath: point-to-point A* over valid footprint origins, 4-connected,
//     uniform step cost and a Manhattan heuristic. Cells whose footprint
//     overlaps the forbidden region are never entered.
//   - GenerateCoveragePlan: a serpentine (boustrophedon) sweep of the grid
//     whose targets are stitched together with FindPath into one continuous
//     path of waypoints.
//
// The planner holds no state between calls. Every search allocates its own
// arena (cost, parent and closed tables) sized to the grid and discards it on
// return, so plans are deterministic for a given grid, region and start cell.
//
// Usage:
//
//	g := grid.Default()
//	region := grid.NewRegion(10, 10, 20, 30)
//	plan := planner.GenerateCoveragePlan(g, &region, grid.Cell{Col: 1, Row: 1})
//	fmt.Println(len(plan.Path), len(plan.Skipped))
package planner
