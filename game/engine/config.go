package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// Config holds the tunable parameters of a simulation
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	GridWidth  int     `json:"grid_width" yaml:"grid_width"`
	GridHeight int     `json:"grid_height" yaml:"grid_height"`
	Footprint  int     `json:"footprint" yaml:"footprint"`
	CellSize   float64 `json:"cell_size" yaml:"cell_size"`

	Speed               float64 `json:"speed" yaml:"speed"`
	AngularStep         float64 `json:"angular_step" yaml:"angular_step"`
	DrainRate           float64 `json:"drain_rate" yaml:"drain_rate"`
	ChargeRate          float64 `json:"charge_rate" yaml:"charge_rate"`
	LowBatteryThreshold float64 `json:"low_battery_threshold" yaml:"low_battery_threshold"`
	HomeMargin          int     `json:"home_margin" yaml:"home_margin"`
	StartDelayMS        int     `json:"start_delay_ms" yaml:"start_delay_ms"`

	StartX     float64 `json:"start_x" yaml:"start_x"`
	StartY     float64 `json:"start_y" yaml:"start_y"`
	StartAngle float64 `json:"start_angle" yaml:"start_angle"`

	// FixedHome pins the home station instead of drawing it at random
	FixedHome     *grid.Cell   `json:"fixed_home,omitempty" yaml:"fixed_home,omitempty"`
	ForbiddenArea *grid.Region `json:"forbidden_area,omitempty" yaml:"forbidden_area,omitempty"`
}

// DefaultConfig returns the reference simulation parameters
func DefaultConfig() Config {
	return Config{
		Name:                "default",
		Description:         "50x50 open floor with a 2x2 robot",
		GridWidth:           grid.DefaultWidth,
		GridHeight:          grid.DefaultHeight,
		Footprint:           grid.DefaultFootprint,
		CellSize:            grid.DefaultCellSize,
		Speed:               2,
		AngularStep:         math.Pi / 90,
		DrainRate:           0.05,
		ChargeRate:          0.5,
		LowBatteryThreshold: 20,
		HomeMargin:          2,
		StartDelayMS:        1000,
		StartX:              100,
		StartY:              200,
		StartAngle:          0,
	}
}

// Grid returns the grid described by the config
func (c Config) Grid() grid.Grid {
	return grid.New(c.GridWidth, c.GridHeight, c.Footprint, c.CellSize)
}

// StartDelay returns the activation delay used by Start
func (c Config) StartDelay() time.Duration {
	return time.Duration(c.StartDelayMS) * time.Millisecond
}

// ValidateConfig validates a simulation configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	g := config.Grid()
	if err := g.Validate(); err != nil {
		return fmt.Errorf("config validation: %v", err)
	}

	if !positive(config.Speed) {
		return fmt.Errorf("config validation: speed must be positive, got %v", config.Speed)
	}
	if !nonNegative(config.AngularStep) {
		return fmt.Errorf("config validation: angular_step must not be negative, got %v", config.AngularStep)
	}
	if !nonNegative(config.DrainRate) {
		return fmt.Errorf("config validation: drain_rate must not be negative, got %v", config.DrainRate)
	}
	if !positive(config.ChargeRate) {
		return fmt.Errorf("config validation: charge_rate must be positive, got %v", config.ChargeRate)
	}
	if !nonNegative(config.LowBatteryThreshold) || config.LowBatteryThreshold >= MaxBattery {
		return fmt.Errorf("config validation: low_battery_threshold must be in [0, %v), got %v", MaxBattery, config.LowBatteryThreshold)
	}
	if config.StartDelayMS < 0 {
		return fmt.Errorf("config validation: start_delay_ms must not be negative, got %d", config.StartDelayMS)
	}

	if config.HomeMargin < 0 {
		return fmt.Errorf("config validation: home_margin must not be negative, got %d", config.HomeMargin)
	}
	if _, hi := homeRange(g.Width, g.Footprint, config.HomeMargin); hi < config.HomeMargin {
		return fmt.Errorf("config validation: home_margin %d leaves no home column on a %d wide grid", config.HomeMargin, g.Width)
	}
	if _, hi := homeRange(g.Height, g.Footprint, config.HomeMargin); hi < config.HomeMargin {
		return fmt.Errorf("config validation: home_margin %d leaves no home row on a %d high grid", config.HomeMargin, g.Height)
	}

	if config.FixedHome != nil && !g.IsPlacement(*config.FixedHome) {
		return fmt.Errorf("config validation: fixed_home (%d, %d) is outside the placement range (0..%d, 0..%d)",
			config.FixedHome.Col, config.FixedHome.Row, g.MaxCol(), g.MaxRow())
	}

	for _, v := range []float64{config.StartX, config.StartY, config.StartAngle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("config validation: start pose must be finite")
		}
	}

	return nil
}

// DecodeConfig parses a config document over the defaults. format is a file
// extension: ".json", ".yaml" or ".yml".
func DecodeConfig(data []byte, format string) (*Config, error) {
	config := DefaultConfig()

	switch strings.ToLower(format) {
	case ".json", "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if config.ForbiddenArea != nil {
		normalized := config.ForbiddenArea.Normalized()
		config.ForbiddenArea = &normalized
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfig loads a simulation configuration from a JSON or YAML file
func LoadConfig(filename string) (*Config, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := DecodeConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", filepath.Base(configPath), err)
	}
	return config, nil
}

// homeRange returns the inclusive range of home origins along one axis
func homeRange(size, footprint, margin int) (lo, hi int) {
	return margin, min(size-1-margin, size-footprint)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
