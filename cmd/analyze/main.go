// Command analyze prints coverage statistics for simulation configs and runs
// headless simulations to completion.
//
//	analyze plan [config...]       coverage targets, reachability and path length
//	analyze simulate [config...]   ticks to completion, charge cycles, minimum battery
//
// Without config arguments every config in --config-dir is analyzed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/coveragebot/game/config"
	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// PlanReport summarizes the coverage plan of a config
type PlanReport struct {
	Config       string    `json:"config"`
	GridWidth    int       `json:"grid_width"`
	GridHeight   int       `json:"grid_height"`
	Footprint    int       `json:"footprint"`
	Placements   int       `json:"placements"`
	Home         grid.Cell `json:"home"`
	Targets      int       `json:"targets"`
	Reached      int       `json:"reached"`
	Skipped      int       `json:"skipped"`
	Waypoints    int       `json:"waypoints"`
	PathLength   float64   `json:"path_length"`
	MovingTicks  int       `json:"moving_ticks_estimate"`
	ChargeCycles int       `json:"charge_cycles_estimate"`
}

// SimReport summarizes a headless run
type SimReport struct {
	Config       string           `json:"config"`
	Home         grid.Cell        `json:"home"`
	Ticks        int64            `json:"ticks"`
	Completed    bool             `json:"completed"`
	Outcome      string           `json:"outcome"`
	ChargeCycles int              `json:"charge_cycles"`
	MinBattery   float64          `json:"min_battery"`
	FinalBattery float64          `json:"final_battery"`
	Waypoints    int              `json:"waypoints"`
	Skipped      int              `json:"skipped"`
	TicksByMode  map[string]int64 `json:"ticks_by_mode"`
}

// Simulation outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeTickLimit = "tick_limit"
	OutcomeNoPath    = "no_path"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "coverage plan statistics and headless simulation runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing simulation configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print reports as JSON",
			},
			&cli.IntFlag{
				Name:  "seed",
				Value: 1,
				Usage: "random seed for home placement",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "report coverage targets, reachability and path length",
				ArgsUsage: "[config...]",
				Action:    planAction,
			},
			{
				Name:      "simulate",
				Usage:     "run configs headless until coverage completes",
				ArgsUsage: "[config...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-ticks",
						Value: 2_000_000,
						Usage: "give up after this many ticks",
					},
				},
				Action: simulateAction,
			},
		},
	}
}

func planAction(ctx context.Context, cmd *cli.Command) error {
	configs, err := loadConfigs(cmd)
	if err != nil {
		return err
	}

	seed := int64(cmd.Int("seed"))
	var reports []PlanReport
	for _, cfg := range configs {
		report, err := analyzePlan(cfg, seed)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Name, err)
		}
		reports = append(reports, report)
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, reports)
	}
	for _, r := range reports {
		printPlanReport(w, r)
	}
	return nil
}

func simulateAction(ctx context.Context, cmd *cli.Command) error {
	configs, err := loadConfigs(cmd)
	if err != nil {
		return err
	}

	seed := int64(cmd.Int("seed"))
	maxTicks := int64(cmd.Int("max-ticks"))
	var reports []SimReport
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := simulate(cfg, seed, maxTicks)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Name, err)
		}
		reports = append(reports, report)
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, reports)
	}
	for _, r := range reports {
		printSimReport(w, r)
	}
	return nil
}

// loadConfigs resolves the named configs, or every config in the directory
func loadConfigs(cmd *cli.Command) ([]*engine.Config, error) {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no configs found in %s", cmd.String("config-dir"))
	}

	configs := make([]*engine.Config, 0, len(names))
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// newStartedRobot builds a robot with an immediate start and a seeded home
func newStartedRobot(cfg *engine.Config, seed int64) (*engine.Robot, error) {
	c := *cfg
	c.StartDelayMS = 0
	robot, err := engine.NewRobot(c, engine.WithRand(rand.New(rand.NewSource(seed))))
	if err != nil {
		return nil, err
	}
	robot.Start()
	return robot, nil
}

func analyzePlan(cfg *engine.Config, seed int64) (PlanReport, error) {
	robot, err := newStartedRobot(cfg, seed)
	if err != nil {
		return PlanReport{}, err
	}

	g := robot.Grid()
	plan := robot.Plan()
	report := PlanReport{
		Config:     cfg.Name,
		GridWidth:  g.Width,
		GridHeight: g.Height,
		Footprint:  g.Footprint,
		Placements: g.Placements(),
		Home:       robot.HomeCell(),
		Targets:    len(plan.Targets),
		Reached:    plan.Reached,
		Skipped:    len(plan.Skipped),
		Waypoints:  len(plan.Path),
	}

	prev := robot.Home()
	for _, wp := range plan.Path {
		report.PathLength += grid.Distance(prev, wp)
		prev = wp
	}
	report.MovingTicks = int(math.Ceil(report.PathLength / cfg.Speed))

	// battery available per cycle before the robot diverts home
	if budget := engine.MaxBattery - cfg.LowBatteryThreshold; budget > 0 && cfg.DrainRate > 0 {
		drain := float64(report.MovingTicks) * cfg.DrainRate
		report.ChargeCycles = int(math.Ceil(drain/budget)) - 1
		if report.ChargeCycles < 0 {
			report.ChargeCycles = 0
		}
	}
	return report, nil
}

func simulate(cfg *engine.Config, seed, maxTicks int64) (SimReport, error) {
	robot, err := newStartedRobot(cfg, seed)
	if err != nil {
		return SimReport{}, err
	}

	plan := robot.Plan()
	report := SimReport{
		Config:      cfg.Name,
		Home:        robot.HomeCell(),
		MinBattery:  robot.Battery(),
		Waypoints:   len(plan.Path),
		Skipped:     len(plan.Skipped),
		TicksByMode: make(map[string]int64),
	}

	if len(plan.Path) == 0 {
		report.Outcome = OutcomeNoPath
		report.FinalBattery = robot.Battery()
		return report, nil
	}

	report.Outcome = OutcomeTickLimit
	for report.Ticks < maxTicks {
		mode := robot.Mode()
		if mode == engine.Idle {
			report.Completed = true
			report.Outcome = OutcomeCompleted
			break
		}
		report.TicksByMode[string(mode)]++
		robot.Advance()
		report.Ticks++
		report.MinBattery = math.Min(report.MinBattery, robot.Battery())
	}

	for _, e := range robot.Events() {
		if e.To == engine.Charging {
			report.ChargeCycles++
		}
	}
	report.FinalBattery = robot.Battery()
	return report, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPlanReport(w io.Writer, r PlanReport) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.Config)
	fmt.Fprintf(w, "Grid: %d x %d, footprint %d (%d placements)\n", r.GridWidth, r.GridHeight, r.Footprint, r.Placements)
	fmt.Fprintf(w, "Home: (%d, %d)\n", r.Home.Col, r.Home.Row)
	fmt.Fprintf(w, "Targets: %d, reached: %d\n", r.Targets, r.Reached)
	fmt.Fprintf(w, "Waypoints: %d, path length: %.1f units\n", r.Waypoints, r.PathLength)
	fmt.Fprintf(w, "Estimated moving ticks: %d, charge cycles: %d\n", r.MovingTicks, r.ChargeCycles)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d targets are unreachable from home\n", r.Skipped)
	} else {
		fmt.Fprintf(w, "✅ Every coverage target is reachable\n")
	}
}

func printSimReport(w io.Writer, r SimReport) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.Config)
	fmt.Fprintf(w, "Home: (%d, %d), waypoints: %d, skipped targets: %d\n", r.Home.Col, r.Home.Row, r.Waypoints, r.Skipped)
	switch r.Outcome {
	case OutcomeCompleted:
		fmt.Fprintf(w, "✅ Coverage completed in %d ticks\n", r.Ticks)
	case OutcomeNoPath:
		fmt.Fprintf(w, "⚠️  No coverage path: nothing to do\n")
	default:
		fmt.Fprintf(w, "⚠️  Gave up after %d ticks\n", r.Ticks)
	}
	fmt.Fprintf(w, "Charge cycles: %d, min battery: %.2f, final battery: %.2f\n", r.ChargeCycles, r.MinBattery, r.FinalBattery)
	for _, mode := range []engine.Mode{engine.Moving, engine.DivertingToHome, engine.Charging} {
		if n := r.TicksByMode[string(mode)]; n > 0 {
			fmt.Fprintf(w, "  %-18s %d ticks\n", mode, n)
		}
	}
}
