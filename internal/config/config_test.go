package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scenario != "drop" {
		t.Errorf("expected scenario drop, got %s", cfg.Scenario)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	pc, err := cfg.Physics()
	if err != nil {
		t.Fatal(err)
	}
	want := physics.DefaultConfig()
	if diff := cmp.Diff(want, pc); diff != "" {
		t.Errorf("physics config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		target error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, dynamo.ErrInvalidConfig},
		{"negative duration", func(c *Config) { c.Duration = -1 }, dynamo.ErrInvalidConfig},
		{"no substeps", func(c *Config) { c.Substeps = 0 }, dynamo.ErrInvalidConfig},
		{"variable bounds", func(c *Config) { c.Variable = true; c.MinDt = 0.1; c.MaxDt = 0.01 }, dynamo.ErrInvalidConfig},
		{"iterations", func(c *Config) { c.Iterations = 0 }, dynamo.ErrInvalidConfig},
		{"negative pool", func(c *Config) { c.Pools.Sensors = -1 }, dynamo.ErrInvalidConfig},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, dynamo.ErrInvalidConfig},
		{"integrator", func(c *Config) { c.Integrator = "rk45" }, dynamo.ErrInvalidConfig},
		{"scene size", func(c *Config) { c.Scene.Size = 0 }, dynamo.ErrInvalidConfig},
		{"restitution", func(c *Config) { c.Scene.Restitution = 1.5 }, dynamo.ErrInvalidConfig},
		{"material id", func(c *Config) { c.Materials = map[int]physics.Material{300: {}} }, dynamo.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.target) {
				t.Errorf("Validate() = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg, err := GetPreset("stack", "tower")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "stack" || cfg.Iterations != 8 || cfg.Scene.Count != 8 {
		t.Errorf("preset not applied: %+v", cfg)
	}
	if cfg.Dt != DefaultDt || cfg.Scene.Friction != 0.5 {
		t.Errorf("defaults lost: dt=%v friction=%v", cfg.Dt, cfg.Scene.Friction)
	}

	cfg.Scene.Count = 99
	again, _ := GetPreset("stack", "tower")
	if again.Scene.Count != 8 {
		t.Error("mutating a resolved preset changed the preset table")
	}
}

func TestGetPresetNotFound(t *testing.T) {
	if _, err := GetPreset("stack", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent preset")
	}
	if _, err := GetPreset("nonexistent", "three"); !errors.Is(err, dynamo.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestListPresets(t *testing.T) {
	got := ListPresets("slope")
	want := []string{"critical", "grippy", "icy"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListPresets mismatch (-want +got):\n%s", diff)
	}

	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent scenario")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Scenario = "chain"
	cfg.Scene.Count = 7
	cfg.Materials = map[int]physics.Material{3: {Friction: 0.9, Restitution: 0.1, Density: 2}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("scenario: slope\nscene:\n  slope_angle: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scene.SlopeAngle != 30 || cfg.Scene.Size != DefaultSize || cfg.Dt != DefaultDt {
		t.Errorf("unexpected config: %+v", cfg.Scene)
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Materials = map[int]physics.Material{1: {Friction: 1}}

	c := cfg.Clone()
	c.Materials[1] = physics.Material{}
	c.Pools.RigidBodies = 1

	if cfg.Materials[1].Friction != 1 || cfg.Pools.RigidBodies == 1 {
		t.Error("clone shares state with the original")
	}
}
