package engine

import (
	"math"
	"testing"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// runUntilIdle advances the robot until it stops or the tick budget runs out
func runUntilIdle(t *testing.T, robot *Robot, maxTicks int) int {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if robot.Mode() == Idle {
			return i
		}
		robot.Advance()
	}
	t.Fatalf("Robot still %s after %d ticks", robot.Mode(), maxTicks)
	return maxTicks
}

func TestAdvanceIdleIsNoop(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	before := robot.Snapshot()

	robot.Advance()

	after := robot.Snapshot()
	if after.Position != before.Position || after.Battery != before.Battery || after.Mode != Idle {
		t.Errorf("Idle tick changed state: before %+v after %+v", before, after)
	}
	if after.Ticks != before.Ticks+1 {
		t.Errorf("Expected tick counter to advance, got %d", after.Ticks)
	}
}

func TestAdvanceMovesTowardWaypoint(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	robot.Start()

	start := robot.Position()
	target := robot.Path()[0]
	robot.Advance()

	moved := grid.Distance(start, robot.Position())
	if math.Abs(moved-2) > 1e-9 {
		t.Errorf("Expected a 2 unit step, moved %v", moved)
	}
	bearing := math.Atan2(target.Y-start.Y, target.X-start.X)
	if robot.Heading() != bearing {
		t.Errorf("Expected heading %v, got %v", bearing, robot.Heading())
	}
	if robot.Battery() != 100-0.05 {
		t.Errorf("Expected battery 99.95, got %v", robot.Battery())
	}
}

func TestAdvanceSnapsOnArrival(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	robot.Start()

	target := robot.Path()[0]
	robot.position = grid.Waypoint{X: target.X - 1.5, Y: target.Y}
	battery := robot.Battery()

	robot.Advance()

	if robot.Position() != target {
		t.Errorf("Expected snap to %+v, got %+v", target, robot.Position())
	}
	if robot.Index() != 1 {
		t.Errorf("Expected index 1, got %d", robot.Index())
	}
	if robot.Battery() != battery-0.05 {
		t.Errorf("Expected drain on arrival, got %v", robot.Battery())
	}
}

func TestLowBatteryBoundary(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	robot.Start()
	for robot.Index() < 3 {
		robot.Advance()
	}
	// leave the snapped waypoint so the next tick is a plain move
	robot.Advance()
	robot.battery = 20.05

	robot.Advance()
	if robot.Battery() != 20 {
		t.Fatalf("Expected battery exactly 20 after drain, got %v", robot.Battery())
	}
	if robot.Mode() != Moving {
		t.Fatalf("Expected still moving at 20, got %s", robot.Mode())
	}

	index := robot.Index()
	position := robot.Position()
	robot.Advance()

	if robot.Mode() != DivertingToHome {
		t.Fatalf("Expected diverting_to_home, got %s", robot.Mode())
	}
	if robot.Snapshot().ResumeIndex != index {
		t.Errorf("Expected resume index %d, got %d", index, robot.Snapshot().ResumeIndex)
	}
	if robot.Battery() != 20 || robot.Position() != position {
		t.Errorf("Diversion tick should not move or drain: battery %v position %+v", robot.Battery(), robot.Position())
	}
	active := robot.ActivePath()
	if len(active) != 1 || active[0] != robot.Home() {
		t.Errorf("Expected active path [home], got %+v", active)
	}
	if len(robot.Path()) == 0 {
		t.Error("Coverage path should survive the diversion")
	}
}

func TestDivertingArrivalStartsCharging(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	robot.Start()
	robot.battery = 15
	robot.mode = DivertingToHome
	robot.homePath = []grid.Waypoint{robot.Home()}
	robot.position = grid.Waypoint{X: robot.Home().X + 1, Y: robot.Home().Y + 1}

	robot.Advance()

	if robot.Mode() != Charging {
		t.Fatalf("Expected charging, got %s", robot.Mode())
	}
	if robot.Position() != robot.Home() {
		t.Errorf("Expected snap to home, got %+v", robot.Position())
	}
	if robot.Battery() != 15 {
		t.Errorf("Arrival tick should not drain, got %v", robot.Battery())
	}
}

func TestDivertingDrainClampsAtZero(t *testing.T) {
	robot := createTestRobot(t, createTestConfig())
	robot.Start()
	robot.battery = 0.01
	robot.mode = DivertingToHome
	robot.homePath = []grid.Waypoint{robot.Home()}
	robot.position = grid.Waypoint{X: 700, Y: 700}

	robot.Advance()
	robot.Advance()

	if robot.Battery() != 0 {
		t.Errorf("Expected battery clamped at 0, got %v", robot.Battery())
	}
	if robot.Mode() != DivertingToHome {
		t.Errorf("Expected robot to keep heading home, got %s", robot.Mode())
	}
	if robot.Snapshot().BatteryStatus != BatteryEmpty {
		t.Errorf("Expected EMPTY status, got %s", robot.Snapshot().BatteryStatus)
	}
}

func TestChargingClampsAndResumes(t *testing.T) {
	tests := []struct {
		name      string
		battery   float64
		wantTicks int
	}{
		{"overshoot clamps", 99.6, 1},
		{"exact fill", 99.0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			robot := createTestRobot(t, createTestConfig())
			robot.Start()
			robot.mode = Charging
			robot.battery = tt.battery
			robot.resumeIndex = 5
			robot.homePath = []grid.Waypoint{robot.Home()}
			robot.position = robot.Home()

			for i := 1; i < tt.wantTicks; i++ {
				robot.Advance()
				if robot.Mode() != Charging {
					t.Fatalf("Charging ended early at tick %d", i)
				}
				if robot.Position() != robot.Home() {
					t.Fatal("Robot moved while charging")
				}
			}
			robot.Advance()

			if robot.Battery() != 100 {
				t.Errorf("Expected battery exactly 100, got %v", robot.Battery())
			}
			if robot.Mode() != Moving {
				t.Errorf("Expected moving after charge, got %s", robot.Mode())
			}
			if robot.Index() != 5 {
				t.Errorf("Expected resume at index 5, got %d", robot.Index())
			}
			if len(robot.ActivePath()) != len(robot.Path()) {
				t.Error("Expected active path to be the coverage path again")
			}
		})
	}
}

func TestEmptyPathIsNoop(t *testing.T) {
	config := createTestConfig()
	config.ForbiddenArea = &grid.Region{X1: 0, Y1: 0, X2: 49, Y2: 49}
	robot := createTestRobot(t, config)

	robot.Start()
	if len(robot.Path()) != 0 {
		t.Fatalf("Expected empty plan on a fully forbidden grid, got %d", len(robot.Path()))
	}
	before := robot.Snapshot()

	for i := 0; i < 10; i++ {
		robot.Advance()
	}

	after := robot.Snapshot()
	if after.Position != before.Position || after.Battery != before.Battery || after.Mode != before.Mode {
		t.Errorf("Empty path tick changed state: before %+v after %+v", before, after)
	}
}

func TestFullCoverageRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full coverage run in short mode")
	}

	config := createTestConfig()
	config.FixedHome = &grid.Cell{Col: 1, Row: 1}
	robot := createTestRobot(t, config)
	robot.Start()

	path := robot.Path()
	if len(path) != 1250 {
		t.Fatalf("Expected 1250 waypoints from (1,1), got %d", len(path))
	}

	var (
		prevMode    = robot.Mode()
		prevBattery = robot.Battery()
		minBattery  = robot.Battery()
		charges     int
	)
	for i := 0; i < 200000 && robot.Mode() != Idle; i++ {
		robot.Advance()

		mode, battery := robot.Mode(), robot.Battery()
		switch {
		case prevMode == Moving && mode == Moving && battery > prevBattery:
			t.Fatalf("Battery rose while moving at tick %d", i)
		case prevMode == Charging && mode == Charging && battery < prevBattery:
			t.Fatalf("Battery fell while charging at tick %d", i)
		case battery < 0 || battery > 100:
			t.Fatalf("Battery out of range: %v", battery)
		}
		if prevMode != Charging && mode == Charging {
			charges++
		}
		minBattery = math.Min(minBattery, battery)
		prevMode, prevBattery = mode, battery
	}

	if robot.Mode() != Idle {
		t.Fatalf("Expected idle after full run, got %s", robot.Mode())
	}
	if robot.Index() != len(path) {
		t.Errorf("Expected index %d, got %d", len(path), robot.Index())
	}
	if robot.Position() != path[len(path)-1] {
		t.Errorf("Expected to finish on the last waypoint, got %+v", robot.Position())
	}
	if charges == 0 {
		t.Error("Expected at least one charge cycle")
	}
	if minBattery > 20 {
		t.Errorf("Expected battery to reach the low threshold, min %v", minBattery)
	}

	last := robot.Events()[len(robot.Events())-1]
	if last.Reason != ReasonPathCompleted || last.To != Idle {
		t.Errorf("Expected final event path_completed, got %+v", last)
	}
}
