package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

const (
	DefaultDt                 = 1.0 / 60.0
	DefaultDuration           = 5.0
	DefaultSubsteps           = 2
	DefaultIterations         = 4
	DefaultHighEnergy         = 1.0
	DefaultStackCheckInterval = 5
	DefaultSleepingParameter  = 0.2
	DefaultHeight             = 3.0
	DefaultSize               = 0.5
	DefaultCount              = 3
	DefaultKp                 = 20.0
	DefaultKi                 = 2.0
	DefaultKd                 = 8.0
)

type Config struct {
	Scenario    string  `yaml:"scenario"`
	Integrator  string  `yaml:"integrator"`
	Dt          float64 `yaml:"dt"`
	Duration    float64 `yaml:"duration"`
	Substeps    int     `yaml:"substeps"`
	SampleEvery int     `yaml:"sample_every"`
	Variable    bool    `yaml:"variable"`
	MinDt       float64 `yaml:"min_dt"`
	MaxDt       float64 `yaml:"max_dt"`
	LogLevel    string  `yaml:"log_level"`

	Gravity            [3]float64 `yaml:"gravity"`
	Iterations         int        `yaml:"iterations"`
	HighEnergy         float64    `yaml:"high_energy"`
	RestAngle          float64    `yaml:"rest_angle"`
	StackCheckInterval int        `yaml:"stack_check_interval"`
	SleepingParameter  float64    `yaml:"sleeping_parameter"`

	Pools      PoolConfig               `yaml:"pools"`
	Scene      SceneConfig              `yaml:"scene"`
	Controller ControllerConfig         `yaml:"controller"`
	Materials  map[int]physics.Material `yaml:"materials,omitempty"`
}

type PoolConfig struct {
	RigidBodies     int `yaml:"rigid_bodies"`
	Particles       int `yaml:"particles"`
	CollisionBodies int `yaml:"collision_bodies"`
	Constraints     int `yaml:"constraints"`
	ConstraintSets  int `yaml:"constraint_sets"`
	Controllers     int `yaml:"controllers"`
	Sensors         int `yaml:"sensors"`
	SolverBuffer    int `yaml:"solver_buffer"`
	StackInfos      int `yaml:"stack_infos"`
	StackHeaders    int `yaml:"stack_headers"`
}

// SceneConfig parameterises the scenario builders. Each scenario reads the
// fields that apply to it.
type SceneConfig struct {
	Count       int     `yaml:"count"`
	Height      float64 `yaml:"height"`
	Size        float64 `yaml:"size"`
	SlopeAngle  float64 `yaml:"slope_angle"`
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
	Spin        float64 `yaml:"spin"`
	Angle       float64 `yaml:"angle"`
	Sphere      bool    `yaml:"sphere"`
}

type ControllerConfig struct {
	Kind   string  `yaml:"kind"`
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
	Period int     `yaml:"period"`
}

func DefaultConfig() *Config {
	pc := physics.DefaultConfig()
	return &Config{
		Scenario:    "drop",
		Integrator:  "midpoint",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Substeps:    DefaultSubsteps,
		SampleEvery: 1,
		MinDt:       DefaultDt / 2,
		MaxDt:       DefaultDt,
		LogLevel:    "one",

		Gravity:            [3]float64{0, -9.8, 0},
		Iterations:         DefaultIterations,
		HighEnergy:         DefaultHighEnergy,
		RestAngle:          0.3,
		StackCheckInterval: DefaultStackCheckInterval,
		SleepingParameter:  DefaultSleepingParameter,

		Pools: PoolConfig{
			RigidBodies:     pc.RigidBodies,
			Particles:       pc.Particles,
			CollisionBodies: pc.CollisionBodies,
			Constraints:     pc.Constraints,
			ConstraintSets:  pc.ConstraintSets,
			Controllers:     pc.Controllers,
			Sensors:         pc.Sensors,
			SolverBuffer:    pc.SolverBuffer,
			StackInfos:      pc.StackInfos,
			StackHeaders:    pc.StackHeaders,
		},
		Scene: SceneConfig{
			Count:       DefaultCount,
			Height:      DefaultHeight,
			Size:        DefaultSize,
			SlopeAngle:  20,
			Angle:       0.5,
			Friction:    0.5,
			Restitution: 0.4,
		},
		Controller: ControllerConfig{
			Kind: "none",
			Kp:   DefaultKp,
			Ki:   DefaultKi,
			Kd:   DefaultKd,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run settings here and defers the engine settings to
// physics.Config.Validate.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, c.Duration)
	}
	if c.Substeps < 1 {
		return fmt.Errorf("%w: substeps must be at least 1, got %d", dynamo.ErrInvalidConfig, c.Substeps)
	}
	if c.Variable && (c.MinDt <= 0 || c.MaxDt < c.MinDt) {
		return fmt.Errorf("%w: variable step needs 0 < min_dt <= max_dt", dynamo.ErrInvalidConfig)
	}
	if c.Scene.Size <= 0 {
		return fmt.Errorf("%w: scene size must be positive, got %f", dynamo.ErrInvalidConfig, c.Scene.Size)
	}
	if c.Scene.Friction < 0 || c.Scene.Restitution < 0 || c.Scene.Restitution > 1 {
		return fmt.Errorf("%w: scene friction must be >= 0 and restitution in [0, 1]", dynamo.ErrInvalidConfig)
	}
	if c.SleepingParameter < 0 {
		return fmt.Errorf("%w: sleeping parameter must not be negative", dynamo.ErrInvalidConfig)
	}
	for id := range c.Materials {
		if id < 0 || id >= physics.MaxMaterials {
			return fmt.Errorf("%w: material %d", dynamo.ErrOutOfRange, id)
		}
	}
	_, err := c.Physics()
	return err
}

// Physics converts the engine part of the config.
func (c *Config) Physics() (physics.Config, error) {
	lvl, err := physics.ParseLogLevel(c.LogLevel)
	if err != nil {
		return physics.Config{}, err
	}
	pc := physics.Config{
		Gravity:            mgl64.Vec3(c.Gravity),
		RigidBodies:        c.Pools.RigidBodies,
		Particles:          c.Pools.Particles,
		CollisionBodies:    c.Pools.CollisionBodies,
		Constraints:        c.Pools.Constraints,
		ConstraintSets:     c.Pools.ConstraintSets,
		Controllers:        c.Pools.Controllers,
		Sensors:            c.Pools.Sensors,
		SolverBuffer:       c.Pools.SolverBuffer,
		StackInfos:         c.Pools.StackInfos,
		StackHeaders:       c.Pools.StackHeaders,
		Iterations:         c.Iterations,
		HighEnergy:         c.HighEnergy,
		StackCheckInterval: c.StackCheckInterval,
		LogLevel:           lvl,
		Integrator:         c.Integrator,
	}
	return pc, pc.Validate()
}

// Run converts the stepping part of the config.
func (c *Config) Run() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		Substeps:      c.Substeps,
		SampleEvery:   max(c.SampleEvery, 1),
		Variable:      c.Variable,
		MinDt:         c.MinDt,
		MaxDt:         c.MaxDt,
		ValidateState: true,
	}
}
