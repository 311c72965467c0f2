package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/metrics"
)

func TestRegistryList(t *testing.T) {
	want := []string{"chain", "drop", "hover", "pendulum", "ragdoll", "slider", "slope", "stack"}
	got := NewRegistry().List()
	if len(got) != len(want) {
		t.Fatalf("got %d scenarios, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Name != want[i] {
			t.Errorf("scenario %d = %s, want %s", i, s.Name, want[i])
		}
		if s.Description == "" || s.Build == nil {
			t.Errorf("scenario %s is incomplete", s.Name)
		}
	}
}

func TestBuildUnknownScenario(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario = "trebuchet"
	if _, err := NewRegistry().Build(cfg, testr.New(t)); !errors.Is(err, dynamo.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestBuildScenarios(t *testing.T) {
	tests := []struct {
		scenario string
		bodies   int
		joints   int
	}{
		{"drop", 1, 0},
		{"stack", 3, 0},
		{"slope", 1, 0},
		{"pendulum", 1, 1},
		{"chain", 3, 3},
		{"slider", 1, 1},
		{"hover", 1, 0},
		{"ragdoll", 6, 5},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Scenario = tt.scenario
			cfg.Duration = 0.25

			w, err := reg.Build(cfg, testr.New(t))
			if err != nil {
				t.Fatal(err)
			}
			if len(w.Bodies) != tt.bodies || len(w.Joints) != tt.joints {
				t.Errorf("built %d bodies and %d joints, want %d and %d",
					len(w.Bodies), len(w.Joints), tt.bodies, tt.joints)
			}
			if w.Focus == nil {
				t.Error("no focus body")
			}
			if w.Manual == nil {
				t.Error("focus body has no manual controller")
			}
			if len(w.Sim.RigidBodies()) != tt.bodies {
				t.Errorf("simulator holds %d bodies", len(w.Sim.RigidBodies()))
			}
		})
	}
}

func TestHoverTunable(t *testing.T) {
	cfg, err := config.GetPreset("hover", "pid")
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewRegistry().Build(cfg, testr.New(t))
	if err != nil {
		t.Fatal(err)
	}
	if w.Tunable == nil {
		t.Fatal("pid hover has no tunable controller")
	}
	if got := w.Tunable.GetParams()["Target"]; got != 3 {
		t.Errorf("target = %v, want 3", got)
	}
}

func TestBuildRejectsUnknownController(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario = "hover"
	cfg.Controller.Kind = "fuzzy"
	if _, err := NewRegistry().Build(cfg, testr.New(t)); err == nil {
		t.Error("expected error for unknown controller")
	}
}

func TestExperimentRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario = "drop"
	cfg.Duration = 0.5

	e := New(cfg, NewRegistry(), testr.New(t))
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("expected error before Setup")
	}

	if err := e.Setup([]dynamo.Metric{metrics.NewMaxSpeed()}); err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Errorf("run reported errors: %v", res.Errors)
	}
	if res.Metrics["max_speed"] <= 0 {
		t.Errorf("falling box has max speed %v", res.Metrics["max_speed"])
	}
	if y := res.Final().Bodies[0].Pos[1]; y >= cfg.Scene.Height+cfg.Scene.Size {
		t.Errorf("box did not fall: y=%v", y)
	}
}
