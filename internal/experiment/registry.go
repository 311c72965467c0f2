package experiment

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/san-kum/rigidsim/internal/collide"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

// Builder populates an empty world from the scene settings.
type Builder func(cfg *config.Config, w *World) error

type Scenario struct {
	Name        string
	Description string
	Build       Builder
}

type Registry struct {
	scenarios map[string]Scenario
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}

	r.Register(Scenario{"drop", "a box or sphere dropped on flat ground", buildDrop})
	r.Register(Scenario{"stack", "a column of boxes resting on the ground", buildStack})
	r.Register(Scenario{"slope", "a box on a tilted plane", buildSlope})
	r.Register(Scenario{"pendulum", "a bob on a ball joint hanging from the world", buildPendulum})
	r.Register(Scenario{"chain", "boxes linked by ball joints", buildChain})
	r.Register(Scenario{"slider", "a block on a limited slide joint driven by a reversing motor", buildSlider})
	r.Register(Scenario{"hover", "a body held at a height by a controller", buildHover})
	r.Register(Scenario{"ragdoll", "a jointed figure with limits falling on the ground", buildRagdoll})

	return r
}

func (r *Registry) Register(s Scenario) {
	r.scenarios[s.Name] = s
}

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s", dynamo.ErrUnknownScenario, name)
	}
	return s, nil
}

func (r *Registry) List() []Scenario {
	out := make([]Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build creates a simulator from cfg with the collide package wired in and
// runs the scenario builder on it.
func (r *Registry) Build(cfg *config.Config, log logr.Logger) (*World, error) {
	s, err := r.Get(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pc, err := cfg.Physics()
	if err != nil {
		return nil, err
	}
	ps, err := physics.New(pc)
	if err != nil {
		return nil, err
	}
	ps.SetLogger(log)
	ps.SetNarrowPhase(collide.NewNarrow())
	ps.SetBroadPhase(collide.NewSweepAndPrune())

	ground := physics.DefaultMaterial()
	ground.Friction, ground.Restitution = cfg.Scene.Friction, cfg.Scene.Restitution
	ps.SetMaterial(groundMaterial, ground)
	for id, m := range cfg.Materials {
		if err := ps.SetMaterialErr(id, m); err != nil {
			return nil, err
		}
	}

	w := &World{Sim: ps}
	if err := s.Build(cfg, w); err != nil {
		return nil, fmt.Errorf("build %s: %w", s.Name, err)
	}
	for _, rb := range w.Bodies {
		rb.SetSleepingParameter(cfg.SleepingParameter)
	}
	if w.Focus != nil && w.Manual == nil {
		w.Manual = control.NewManual()
		if _, err := ps.AddBodyController(w.Focus, w.Manual.Func(), 0); err != nil {
			return nil, err
		}
	}
	return w, nil
}
