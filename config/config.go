// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Region    RegionConfig    `yaml:"region"`
	Grid      GridConfig      `yaml:"grid"`
	Particles ParticlesConfig `yaml:"particles"`
	Emitter   EmitterConfig   `yaml:"emitter"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stream    StreamConfig    `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the debug viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// RegionConfig holds the square simulation region: a center point plus a
// half-width. Y grows downward, so the region's top edge is CenterY-Radius.
type RegionConfig struct {
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
	Radius  float64 `yaml:"radius"`
}

// GridConfig holds the initial quadtree grid layout.
type GridConfig struct {
	Columns    int `yaml:"columns"`     // initial grid columns
	Rows       int `yaml:"rows"`        // initial grid rows
	SpareNodes int `yaml:"spare_nodes"` // extra node slots reserved for subdivision
}

// ParticlesConfig holds particle store parameters.
type ParticlesConfig struct {
	Count  int     `yaml:"count"`  // total particle slots
	Mass   float64 `yaml:"mass"`   // mass of emitted particles
	Radius float64 `yaml:"radius"` // radius of influence of emitted particles
}

// EmitterConfig holds point-emitter parameters. The emitter reactivates
// inactive slots; it never grows the store.
type EmitterConfig struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Rate        int     `yaml:"rate"`         // max activations per frame
	MaxVelocity float64 `yaml:"max_velocity"` // emitted speed is uniform in (0, this]
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // rolling window in seconds
	LogEvery    int     `yaml:"log_every"`    // frames between stats log lines (0 = off)
}

// StreamConfig holds the optional live-stats websocket endpoint.
type StreamConfig struct {
	Addr string `yaml:"addr"` // listen address, empty = disabled
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32       float32 // Physics.DT as float32
	InvDT32    float32 // 1/Physics.DT as float32
	CellWidth  float32 // region width / grid columns
	CellHeight float32 // region height / grid rows
	GridNodes  int     // Columns * Rows
	TotalNodes int     // GridNodes + SpareNodes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.Columns < 1 || c.Grid.Rows < 1 {
		return fmt.Errorf("grid: columns and rows must be at least 1, got %dx%d", c.Grid.Columns, c.Grid.Rows)
	}
	if c.Region.Radius <= 0 {
		return fmt.Errorf("region: radius must be positive, got %v", c.Region.Radius)
	}
	if c.Particles.Count < 1 {
		return fmt.Errorf("particles: count must be at least 1, got %d", c.Particles.Count)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics: dt must be positive, got %v", c.Physics.DT)
	}
	return nil
}

// Recompute refreshes derived values after programmatic mutation, e.g. by
// the grid tuner sweeping grid shapes.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.InvDT32 = float32(1.0 / c.Physics.DT)

	side := float32(2 * c.Region.Radius)
	c.Derived.CellWidth = side / float32(c.Grid.Columns)
	c.Derived.CellHeight = side / float32(c.Grid.Rows)

	c.Derived.GridNodes = c.Grid.Columns * c.Grid.Rows
	c.Derived.TotalNodes = c.Derived.GridNodes + c.Grid.SpareNodes
}
