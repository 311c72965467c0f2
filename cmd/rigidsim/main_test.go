package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func sceneCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	configFile, preset = "", ""
	cmd := &cobra.Command{Use: "test"}
	addSceneFlags(cmd)
	for k, v := range flags {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(sceneCmd(t, nil), "drop")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "drop" || cfg.Integrator != "midpoint" {
		t.Errorf("got scenario %q integrator %q", cfg.Scenario, cfg.Integrator)
	}
}

func TestResolveConfigFlagsOverridePreset(t *testing.T) {
	cmd := sceneCmd(t, map[string]string{"preset": "pid", "kp": "3", "time": "1.5"})
	cfg, err := resolveConfig(cmd, "hover")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Controller.Kind != "pid" {
		t.Errorf("preset controller lost: %q", cfg.Controller.Kind)
	}
	if cfg.Controller.Kp != 3 || cfg.Duration != 1.5 {
		t.Errorf("flags not applied: kp=%v duration=%v", cfg.Controller.Kp, cfg.Duration)
	}
}

func TestResolveConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
		flags    map[string]string
	}{
		{"unknown preset", "drop", map[string]string{"preset": "nope"}},
		{"bad dt", "drop", map[string]string{"dt": "-1"}},
		{"missing config file", "drop", map[string]string{"config": "does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolveConfig(sceneCmd(t, tt.flags), tt.scenario); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFieldNamesSorted(t *testing.T) {
	names := fieldNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("not sorted: %v", names)
		}
	}
	if _, ok := fields[names[0]]; !ok {
		t.Error("name without field")
	}
}
