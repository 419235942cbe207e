// Package config provides configuration loading and access for the
// scatter simulation.
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
	Domain  DomainConfig  `yaml:"domain"`
	Surface SurfaceConfig `yaml:"surface"`
	Fields  FieldsConfig  `yaml:"fields"`
	Agents  AgentsConfig  `yaml:"agents"`
	Weights WeightsConfig `yaml:"weights"`
	Output  OutputConfig  `yaml:"output"`
}

// DomainConfig holds the parametric domain bounds.
type DomainConfig struct {
	U0 float64 `yaml:"u0"`
	U1 float64 `yaml:"u1"`
	V0 float64 `yaml:"v0"`
	V1 float64 `yaml:"v1"`
}

// SurfaceConfig holds heightmap surface parameters.
type SurfaceConfig struct {
	Size         float64 `yaml:"size"`          // physical extent in model units
	Amp          float64 `yaml:"amp"`           // sine-cosine displacement amplitude
	Freq         float64 `yaml:"freq"`          // periods across the domain
	Phase        float64 `yaml:"phase"`         // phase offset in radians
	NoiseAmp     float64 `yaml:"noise_amp"`     // simplex layer amplitude (0 disables)
	NoiseFreq    float64 `yaml:"noise_freq"`    // simplex base frequency
	NoiseOctaves int     `yaml:"noise_octaves"` // simplex octave count
	Seed         int64   `yaml:"seed"`          // simplex noise seed
}

// FieldsConfig holds field sampling parameters.
type FieldsConfig struct {
	ResU    int       `yaml:"res_u"`   // grid resolution along U (min 2)
	ResV    int       `yaml:"res_v"`   // grid resolution along V (min 2)
	Gravity []float64 `yaml:"gravity"` // gravity vector for the slope field
}

// AgentsConfig holds population and integration parameters.
type AgentsConfig struct {
	Count    int     `yaml:"count"`     // population size
	Seed     int64   `yaml:"seed"`      // spawn RNG seed
	Radius   float64 `yaml:"radius"`    // neighbor radius in UV space
	MaxSpeed float64 `yaml:"max_speed"` // UV velocity cap per step
	Workers  int     `yaml:"workers"`   // compute-phase workers (<2 = single-threaded)
	UseGrid  bool    `yaml:"use_grid"`  // spatial grid neighbor index
}

// WeightsConfig holds the steering force weights.
type WeightsConfig struct {
	Curvature  float64 `yaml:"curvature"`
	Slope      float64 `yaml:"slope"`
	Separation float64 `yaml:"separation"`
	Cohesion   float64 `yaml:"cohesion"`
	Alignment  float64 `yaml:"alignment"`
}

// OutputConfig holds scatter export parameters.
type OutputConfig struct {
	SampleEvery int `yaml:"sample_every"` // write every Nth step (0 = last step only)
	StatsGrid   int `yaml:"stats_grid"`   // occupancy grid resolution for telemetry
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
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

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the construction-time invariants. Violations are fatal
// at load; they are never retried or papered over downstream.
func (c *Config) Validate() error {
	if c.Domain.U0 >= c.Domain.U1 {
		return fmt.Errorf("config: domain u0 %g must be below u1 %g", c.Domain.U0, c.Domain.U1)
	}
	if c.Domain.V0 >= c.Domain.V1 {
		return fmt.Errorf("config: domain v0 %g must be below v1 %g", c.Domain.V0, c.Domain.V1)
	}
	if c.Fields.ResU < 2 || c.Fields.ResV < 2 {
		return fmt.Errorf("config: field resolution %dx%d below minimum 2x2", c.Fields.ResU, c.Fields.ResV)
	}
	if len(c.Fields.Gravity) != 3 {
		return fmt.Errorf("config: gravity must have 3 components, got %d", len(c.Fields.Gravity))
	}
	if c.Agents.Count <= 0 {
		return fmt.Errorf("config: agent count %d must be positive", c.Agents.Count)
	}
	if c.Agents.Radius < 0 {
		return fmt.Errorf("config: negative neighbor radius %g", c.Agents.Radius)
	}
	if c.Agents.MaxSpeed < 0 {
		return fmt.Errorf("config: negative max speed %g", c.Agents.MaxSpeed)
	}
	return nil
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
