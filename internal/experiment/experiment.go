package experiment

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
	"github.com/san-kum/rigidsim/internal/sim"
)

// World is a built scenario: the simulator plus the handles a run or a
// viewer needs.
type World struct {
	Sim    *physics.Simulator
	Bodies []*physics.RigidBody
	Joints []*physics.Constraint
	// Focus is the body plots and the live view follow.
	Focus *physics.RigidBody
	// Tunable is set when the scenario has a controller with live parameters.
	Tunable dynamo.Configurable
	// Manual pushes Focus from outside the step loop.
	Manual *control.Manual
}

func (w *World) Gravity() mgl64.Vec3 { return w.Sim.Gravity() }

func (w *World) addBody(rb *physics.RigidBody) *physics.RigidBody {
	w.Bodies = append(w.Bodies, rb)
	if w.Focus == nil {
		w.Focus = rb
	}
	return rb
}

type Experiment struct {
	cfg    *config.Config
	reg    *Registry
	log    logr.Logger
	world  *World
	runner *sim.Runner
}

func New(cfg *config.Config, reg *Registry, log logr.Logger) *Experiment {
	return &Experiment{cfg: cfg, reg: reg, log: log}
}

// Setup builds the world and attaches the metrics to a fresh runner.
func (e *Experiment) Setup(metrics []dynamo.Metric) error {
	w, err := e.reg.Build(e.cfg, e.log)
	if err != nil {
		return err
	}
	e.world = w
	e.runner = sim.NewRunner(w.Sim)
	for _, m := range metrics {
		e.runner.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	e.log.V(1).Info("run started", "scenario", e.cfg.Scenario, "duration", e.cfg.Duration, "bodies", len(e.world.Bodies))
	res, err := e.runner.Run(ctx, e.cfg.Run())
	if err != nil {
		return res, err
	}
	e.log.V(1).Info("run finished", "steps", res.StepsTaken, "errors", len(res.Errors))
	return res, nil
}

func (e *Experiment) World() *World       { return e.world }
func (e *Experiment) Runner() *sim.Runner { return e.runner }
