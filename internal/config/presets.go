package config

import (
	"fmt"
	"sort"

	"github.com/jinzhu/copier"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Presets holds overrides per scenario. Fields left zero fall back to
// DefaultConfig when the preset is resolved.
var Presets = map[string]map[string]*Config{
	"drop": {
		"box":    {Duration: 5, Scene: SceneConfig{Height: 3, Size: 0.5}},
		"high":   {Duration: 8, Scene: SceneConfig{Height: 20, Size: 0.5}},
		"sphere": {Duration: 5, Scene: SceneConfig{Height: 3, Size: 0.5, Sphere: true, Restitution: 0.8}},
		"spin":   {Duration: 6, Scene: SceneConfig{Height: 3, Size: 0.5, Spin: 6}},
	},
	"stack": {
		"three": {Duration: 6, Scene: SceneConfig{Count: 3, Size: 0.5}},
		"tower": {Duration: 10, Iterations: 8, Scene: SceneConfig{Count: 8, Size: 0.5}},
	},
	"slope": {
		"grippy":   {Duration: 4, Scene: SceneConfig{SlopeAngle: 20, Friction: 1}},
		"icy":      {Duration: 4, Scene: SceneConfig{SlopeAngle: 20, Friction: 0.01}},
		"critical": {Duration: 4, Scene: SceneConfig{SlopeAngle: 27, Friction: 0.5}},
	},
	"pendulum": {
		"small": {Duration: 10, Scene: SceneConfig{Count: 1, Angle: 0.3}},
		"large": {Duration: 10, Scene: SceneConfig{Count: 1, Angle: 1.4}},
	},
	"chain": {
		"short": {Duration: 8, Scene: SceneConfig{Count: 4, Size: 0.2}},
		"long":  {Duration: 12, Iterations: 8, Scene: SceneConfig{Count: 12, Size: 0.2}},
	},
	"slider": {
		"limited": {Duration: 6, Scene: SceneConfig{Size: 0.3}},
	},
	"hover": {
		"pid":    {Duration: 10, Controller: ControllerConfig{Kind: "pid", Kp: 20, Ki: 2, Kd: 8, Target: 3}},
		"gentle": {Duration: 10, Controller: ControllerConfig{Kind: "pid", Kp: 6, Ki: 0.5, Kd: 4, Target: 2}},
	},
	"ragdoll": {
		"fall": {Duration: 6, Scene: SceneConfig{Height: 3}},
	},
}

// GetPreset returns DefaultConfig with the preset applied. The result is a
// deep copy; mutating it leaves Presets untouched.
func GetPreset(scenario, preset string) (*Config, error) {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownScenario, scenario)
	}
	p, ok := scenarioPresets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q for scenario %s", preset, scenario)
	}

	cfg := DefaultConfig()
	if err := copier.CopyWithOption(cfg, p, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return nil, err
	}
	cfg.Scenario = scenario
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		cp := *c
		return &cp
	}
	return out
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
