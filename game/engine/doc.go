// Package engine simulates a single coverage robot.
//
// A Robot follows the serpentine coverage path produced by the planner
// package, draining battery as it moves. When the battery falls to the
// low threshold it leaves the path, drives straight to its home station,
// charges to full and resumes where it left off.
//
// Modes:
//
//	idle -> moving -> diverting_to_home -> charging -> moving
//
// Stop, Reset and path completion return the robot to idle.
//
// Usage:
//
//	cfg := engine.DefaultConfig()
//	cfg.StartDelayMS = 0
//	robot, err := engine.NewRobot(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	robot.Start()
//	for robot.Mode() != engine.Idle {
//		robot.Advance()
//	}
//
// Start activates the robot after a configurable delay. The delay runs on a
// Scheduler; tests and the service layer inject their own. A Robot is not
// safe for concurrent use: callers serialize commands, ticks and scheduler
// callbacks themselves.
package engine
