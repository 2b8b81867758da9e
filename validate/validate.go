// Command validate checks the simulation configs in a directory. For each
// JSON or YAML file it reports:
//   - parse and parameter errors (grid, speed, battery rates, home margin)
//   - a fixed home or start pose that overlaps the forbidden area
//   - coverage reachability: how many serpentine targets are cut off from
//     the home station by the forbidden area
//
// It exits non-zero if any config is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
)

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Reachability summarizes which coverage targets a home station can reach
type Reachability struct {
	Targets int
	// Homes is the number of home cells the robot may be placed on
	Homes int
	// WorstSkipped is the largest number of unreachable targets over all homes
	WorstSkipped int
	// BlockedHomes counts homes from which at least one target is unreachable
	BlockedHomes int
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string, strict bool) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeConfig(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("%v", err)
		return result
	}

	g := config.Grid()
	region := config.ForbiddenArea

	if region != nil {
		if region.X2 < 0 || region.Y2 < 0 || region.X1 >= g.Width || region.Y1 >= g.Height {
			result.warn("forbidden area %s lies outside the %dx%d grid", region, g.Width, g.Height)
		}
	}

	if config.FixedHome != nil && g.IsFootprintForbidden(config.FixedHome.Col, config.FixedHome.Row, region) {
		result.fail("fixed_home (%d, %d) overlaps the forbidden area %s", config.FixedHome.Col, config.FixedHome.Row, region)
	}

	startCell := g.OriginOf(grid.Waypoint{X: config.StartX, Y: config.StartY})
	if g.IsPlacement(startCell) && g.IsFootprintForbidden(startCell.Col, startCell.Row, region) {
		result.warn("start pose (%.0f, %.0f) is inside the forbidden area", config.StartX, config.StartY)
	}

	if !result.Valid {
		return result
	}

	reach := analyzeReachability(g, region, homeCandidates(g, region, config))
	if reach.Homes == 0 {
		result.fail("no home cell is free of the forbidden area within home_margin %d", config.HomeMargin)
		return result
	}
	if reach.WorstSkipped > 0 {
		msg := fmt.Sprintf("Coverage: up to %d/%d targets unreachable (%d/%d home cells affected)",
			reach.WorstSkipped, reach.Targets, reach.BlockedHomes, reach.Homes)
		if strict {
			result.fail("%s", msg)
		} else {
			result.warn("%s", msg)
		}
	}

	result.info("✓ Name: %s", config.Name)
	result.info("✓ Grid: %dx%d, footprint %d, cell size %.0f", g.Width, g.Height, g.Footprint, g.CellSize)
	if region != nil {
		result.info("✓ Forbidden area: %s", region)
	}
	result.info("✓ Battery: drain %.3f, charge %.3f, low threshold %.0f", config.DrainRate, config.ChargeRate, config.LowBatteryThreshold)
	if reach.WorstSkipped == 0 {
		result.info("✓ Coverage: all %d targets reachable from every home cell (%d)", reach.Targets, reach.Homes)
	}
	if config.FixedHome != nil {
		plan := planner.GenerateCoveragePlan(g, region, *config.FixedHome)
		result.info("✓ Plan from fixed home (%d, %d): %d waypoints, %d skipped",
			config.FixedHome.Col, config.FixedHome.Row, len(plan.Path), len(plan.Skipped))
	}

	return result
}

// homeCandidates lists every cell the robot may pick as its home station
func homeCandidates(g grid.Grid, region *grid.Region, config *engine.Config) []grid.Cell {
	if config.FixedHome != nil {
		return []grid.Cell{*config.FixedHome}
	}

	loCol, hiCol := config.HomeMargin, min(g.Width-1-config.HomeMargin, g.MaxCol())
	loRow, hiRow := config.HomeMargin, min(g.Height-1-config.HomeMargin, g.MaxRow())

	var homes []grid.Cell
	for row := loRow; row <= hiRow; row++ {
		for col := loCol; col <= hiCol; col++ {
			if !g.IsFootprintForbidden(col, row, region) {
				homes = append(homes, grid.Cell{Col: col, Row: row})
			}
		}
	}
	return homes
}

// analyzeReachability labels the connected components of free placements
// with a 4-directional flood fill. A coverage target is reachable from a home
// exactly when both lie in the same component.
func analyzeReachability(g grid.Grid, region *grid.Region, homes []grid.Cell) Reachability {
	targets := planner.CoverageTargets(g, region)
	reach := Reachability{Targets: len(targets), Homes: len(homes)}

	component := make(map[grid.Cell]int)
	next := 0
	for row := 0; row <= g.MaxRow(); row++ {
		for col := 0; col <= g.MaxCol(); col++ {
			cell := grid.Cell{Col: col, Row: row}
			if _, seen := component[cell]; seen || g.IsFootprintForbidden(col, row, region) {
				continue
			}
			floodFill(g, region, cell, next, component)
			next++
		}
	}

	targetsPerComponent := make(map[int]int)
	for _, t := range targets {
		targetsPerComponent[component[t]]++
	}

	for _, home := range homes {
		id, ok := component[home]
		reachable := 0
		if ok {
			reachable = targetsPerComponent[id]
		}
		skipped := len(targets) - reachable
		if skipped > 0 {
			reach.BlockedHomes++
		}
		reach.WorstSkipped = max(reach.WorstSkipped, skipped)
	}
	return reach
}

func floodFill(g grid.Grid, region *grid.Region, start grid.Cell, id int, component map[grid.Cell]int) {
	directions := [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	queue := []grid.Cell{start}
	component[start] = id

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dir := range directions {
			n := grid.Cell{Col: current.Col + dir[0], Row: current.Row + dir[1]}
			if _, seen := component[n]; seen {
				continue
			}
			if !g.IsPlacement(n) || g.IsFootprintForbidden(n.Col, n.Row, region) {
				continue
			}
			component[n] = id
			queue = append(queue, n)
		}
	}
}

// findConfigs lists the JSON and YAML files in dir
func findConfigs(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints the results and returns whether all of them are valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate simulation configs and their coverage reachability",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "../configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat unreachable coverage targets as errors",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = findConfigs(cmd.String("config-dir"))
				if err != nil {
					return fmt.Errorf("error finding config files: %w", err)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no config files found in %s", cmd.String("config-dir"))
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file, cmd.Bool("strict")))
			}
			if !report(cmd.Root().Writer, results) {
				return errors.New("some configurations have errors")
			}
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
