// Package config provides configuration management for the coverage robot
// simulator.
//
// Simulation configurations live in a directory as JSON (.json) or YAML
// (.yaml, .yml) files. Fields omitted from a file keep the values of
// engine.DefaultConfig, so a file only needs to state what it changes:
//
//	name: garden_bed
//	description: raised beds with a paved path
//	grid_width: 40
//	grid_height: 30
//	forbidden_area: {x1: 18, y1: 0, x2: 21, y2: 20}
//
// A config is addressed by its file name without extension (the config ID).
// The Manager caches loaded configs and prefers "classic" as the default,
// falling back to the first valid file and then to the built-in defaults.
package config
