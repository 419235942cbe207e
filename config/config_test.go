package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Domain.U0 >= cfg.Domain.U1 || cfg.Domain.V0 >= cfg.Domain.V1 {
		t.Errorf("default domain [%g,%g]x[%g,%g] is degenerate",
			cfg.Domain.U0, cfg.Domain.U1, cfg.Domain.V0, cfg.Domain.V1)
	}
	if cfg.Fields.ResU < 2 || cfg.Fields.ResV < 2 {
		t.Errorf("default field resolution %dx%d below minimum", cfg.Fields.ResU, cfg.Fields.ResV)
	}
	if len(cfg.Fields.Gravity) != 3 {
		t.Errorf("default gravity has %d components, want 3", len(cfg.Fields.Gravity))
	}
	if cfg.Agents.Count <= 0 {
		t.Errorf("default agent count %d not positive", cfg.Agents.Count)
	}
	if cfg.Agents.MaxSpeed <= 0 {
		t.Errorf("default max speed %g not positive", cfg.Agents.MaxSpeed)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("agents:\n  count: 7\nweights:\n  separation: 99\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Agents.Count != 7 {
		t.Errorf("agent count = %d, want overridden 7", cfg.Agents.Count)
	}
	if cfg.Weights.Separation != 99 {
		t.Errorf("separation weight = %g, want overridden 99", cfg.Weights.Separation)
	}

	// Untouched sections keep their defaults.
	defaults, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.Surface.Amp != defaults.Surface.Amp {
		t.Errorf("surface amp = %g, want default %g", cfg.Surface.Amp, defaults.Surface.Amp)
	}
	if cfg.Agents.MaxSpeed != defaults.Agents.MaxSpeed {
		t.Errorf("max speed = %g, want default %g", cfg.Agents.MaxSpeed, defaults.Agents.MaxSpeed)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"inverted u domain", func(c *Config) { c.Domain.U0, c.Domain.U1 = 1, 0 }, true},
		{"degenerate v domain", func(c *Config) { c.Domain.V0, c.Domain.V1 = 0.5, 0.5 }, true},
		{"res_u too small", func(c *Config) { c.Fields.ResU = 1 }, true},
		{"res_v too small", func(c *Config) { c.Fields.ResV = 0 }, true},
		{"short gravity", func(c *Config) { c.Fields.Gravity = []float64{0, -1} }, true},
		{"zero count", func(c *Config) { c.Agents.Count = 0 }, true},
		{"negative radius", func(c *Config) { c.Agents.Radius = -0.1 }, true},
		{"negative max speed", func(c *Config) { c.Agents.MaxSpeed = -1 }, true},
		{"zero radius ok", func(c *Config) { c.Agents.Radius = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load defaults: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	cfg.Agents.Count = 33
	cfg.Weights.Cohesion = 12.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load written file: %v", err)
	}
	if loaded.Agents.Count != 33 {
		t.Errorf("round-tripped count = %d, want 33", loaded.Agents.Count)
	}
	if loaded.Weights.Cohesion != 12.5 {
		t.Errorf("round-tripped cohesion = %g, want 12.5", loaded.Weights.Cohesion)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	old := global
	global = nil
	defer func() {
		global = old
		if r := recover(); r == nil {
			t.Error("Cfg() before Init did not panic")
		}
	}()
	Cfg()
}
