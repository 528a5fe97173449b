// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim         SimConfig         `yaml:"sim"`
	Arena       ArenaConfig       `yaml:"arena"`
	Teams       TeamsConfig       `yaml:"teams"`
	Objects     ObjectsConfig     `yaml:"objects"`
	Interaction InteractionConfig `yaml:"interaction"`
	Perception  PerceptionConfig  `yaml:"perception"`
	Movement    MovementConfig    `yaml:"movement"`
	Batch       BatchConfig       `yaml:"batch"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Observer    ObserverConfig    `yaml:"observer"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds the episode clock and determinism switches.
type SimConfig struct {
	DT                  float64 `yaml:"dt"`                    // seconds per tick
	PrepSteps           int     `yaml:"prep_steps"`            // seekers frozen for the first P ticks
	EpisodeLen          int     `yaml:"episode_len"`           // total ticks per episode
	FixedWorld          bool    `yaml:"fixed_world"`           // force the zero stream key every episode
	IgnoreEpisodeLength bool    `yaml:"ignore_episode_length"` // disable natural resets (debug)
}

// ArenaConfig holds the playfield bounds and the out-of-bounds penalty.
type ArenaConfig struct {
	Bound           float64 `yaml:"bound"`            // arena spans [-bound, bound] on both axes
	BoundaryPenalty float64 `yaml:"boundary_penalty"` // subtracted when an agent leaves the bounds
}

// TeamsConfig holds the per-episode team size sampling ranges.
type TeamsConfig struct {
	MinHiders  int `yaml:"min_hiders"`
	MaxHiders  int `yaml:"max_hiders"`
	MinSeekers int `yaml:"min_seekers"`
	MaxSeekers int `yaml:"max_seekers"`
}

// ObjectsConfig holds movable object sampling parameters.
type ObjectsConfig struct {
	MinBoxes     int `yaml:"min_boxes"`
	MaxBoxes     int `yaml:"max_boxes"`
	MinElongated int `yaml:"min_elongated"`
	NumRamps     int `yaml:"num_ramps"`
	MaxRejects   int `yaml:"max_rejects"` // rejection-sampling budget per object
}

// InteractionConfig holds lock/grab parameters.
type InteractionConfig struct {
	Range      float64 `yaml:"range"`       // forward ray length for lock and grab
	GrabAnchor float64 `yaml:"grab_anchor"` // forward offset of the agent-side attach point
}

// PerceptionConfig holds visibility and lidar parameters.
type PerceptionConfig struct {
	FOVDegrees float64 `yaml:"fov_degrees"` // total view cone angle
	LidarRange float64 `yaml:"lidar_range"`
}

// MovementConfig holds the discrete action decoding scale.
type MovementConfig struct {
	Buckets   int     `yaml:"buckets"`   // discrete buckets per action field (odd, neutral at center)
	MaxForce  float64 `yaml:"max_force"` // force at the extreme buckets
	MaxTorque float64 `yaml:"max_torque"`
}

// BatchConfig holds the data-parallel execution parameters.
type BatchConfig struct {
	NumWorlds int `yaml:"num_worlds"`
	Workers   int `yaml:"workers"` // 0 = GOMAXPROCS
}

// TelemetryConfig holds output settings.
type TelemetryConfig struct {
	LogEvery int `yaml:"log_every"` // ticks between progress log lines (0 = silent)
}

// ObserverConfig holds the websocket observer endpoint settings.
type ObserverConfig struct {
	Addr        string `yaml:"addr"`         // empty = disabled
	StreamEvery int    `yaml:"stream_every"` // ticks between snapshot broadcasts (0 = never)
}

// DerivedConfig holds values computed from loaded config.
type DerivedConfig struct {
	HalfBuckets       int     // buckets / 2
	ForcePerBucket    float64 // MaxForce / HalfBuckets
	TorquePerBucket   float64 // MaxTorque / HalfBuckets
	CosHalfFOV        float64 // visibility cone test threshold
	MaxAgentsPerWorld int     // MaxHiders + MaxSeekers
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The capacity
// invariants are validated here: a config that cannot fit its sampled
// entities into the fixed tables must not start a simulation.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
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

// maxima of the fixed entity tables; mirrored in the components package.
const (
	tableMaxBoxes         = 9
	tableMaxRamps         = 2
	tableMaxAgents        = 16
	tableMaxAgentsPerTeam = 3
)

// validate checks the capacity model once, at construction time.
func (c *Config) validate() error {
	t := c.Teams
	if t.MinHiders < 0 || t.MinSeekers < 0 {
		return fmt.Errorf("teams: negative minimum team size")
	}
	if t.MinHiders > t.MaxHiders {
		return fmt.Errorf("teams: min_hiders %d > max_hiders %d", t.MinHiders, t.MaxHiders)
	}
	if t.MinSeekers > t.MaxSeekers {
		return fmt.Errorf("teams: min_seekers %d > max_seekers %d", t.MinSeekers, t.MaxSeekers)
	}
	if t.MaxHiders > tableMaxAgentsPerTeam || t.MaxSeekers > tableMaxAgentsPerTeam {
		return fmt.Errorf("teams: per-team maximum exceeds table capacity %d", tableMaxAgentsPerTeam)
	}
	maxAgents := t.MaxHiders + t.MaxSeekers
	if maxAgents <= 0 || maxAgents > tableMaxAgents {
		return fmt.Errorf("teams: total agent capacity %d outside (0, %d]", maxAgents, tableMaxAgents)
	}

	o := c.Objects
	if o.MinBoxes < o.MinElongated {
		return fmt.Errorf("objects: min_boxes %d below min_elongated %d", o.MinBoxes, o.MinElongated)
	}
	if o.MinBoxes > o.MaxBoxes {
		return fmt.Errorf("objects: min_boxes %d > max_boxes %d", o.MinBoxes, o.MaxBoxes)
	}
	if o.MaxBoxes > tableMaxBoxes {
		return fmt.Errorf("objects: max_boxes %d exceeds table capacity %d", o.MaxBoxes, tableMaxBoxes)
	}
	if o.NumRamps > tableMaxRamps {
		return fmt.Errorf("objects: num_ramps %d exceeds table capacity %d", o.NumRamps, tableMaxRamps)
	}
	if o.MaxRejects <= 0 {
		return fmt.Errorf("objects: max_rejects must be positive")
	}

	if c.Sim.PrepSteps <= 0 || c.Sim.EpisodeLen <= c.Sim.PrepSteps {
		return fmt.Errorf("sim: need 0 < prep_steps < episode_len, got %d/%d",
			c.Sim.PrepSteps, c.Sim.EpisodeLen)
	}
	if c.Movement.Buckets < 3 || c.Movement.Buckets%2 == 0 {
		return fmt.Errorf("movement: buckets must be odd and >= 3, got %d", c.Movement.Buckets)
	}
	if c.Batch.NumWorlds <= 0 {
		return fmt.Errorf("batch: num_worlds must be positive")
	}
	if c.Telemetry.LogEvery < 0 {
		return fmt.Errorf("telemetry: log_every must be >= 0, got %d", c.Telemetry.LogEvery)
	}
	if c.Observer.StreamEvery < 0 {
		return fmt.Errorf("observer: stream_every must be >= 0, got %d", c.Observer.StreamEvery)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	half := c.Movement.Buckets / 2
	c.Derived.HalfBuckets = half
	c.Derived.ForcePerBucket = c.Movement.MaxForce / float64(half)
	c.Derived.TorquePerBucket = c.Movement.MaxTorque / float64(half)
	c.Derived.CosHalfFOV = cosDeg(c.Perception.FOVDegrees / 2)
	c.Derived.MaxAgentsPerWorld = c.Teams.MaxHiders + c.Teams.MaxSeekers
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
