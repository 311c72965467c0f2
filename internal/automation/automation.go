package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/sim"
)

// Script defines a scripted sequence of runs.
type Script struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Steps       []ScriptStep `yaml:"steps"`
}

// ScriptStep is a single run in a script.
type ScriptStep struct {
	Scenario string             `yaml:"scenario"`
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	Metrics  []string           `yaml:"metrics"`
	SaveAs   string             `yaml:"save_as"`
}

// LoadScript loads a script from a YAML file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script %s has no steps", path)
	}
	return &script, nil
}

// Config resolves the step's scenario, preset and parameter overrides.
func (s ScriptStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		p, err := config.GetPreset(s.Scenario, s.Preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	cfg.Scenario = s.Scenario
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	for k, v := range s.Params {
		if err := optim.Apply(cfg, k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func buildMetrics(names []string, g mgl64.Vec3) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		names = metrics.Names()
	}
	out := make([]dynamo.Metric, 0, len(names))
	for _, n := range names {
		m, err := metrics.ByName(n, g)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// RunScript executes all steps in order. On error the results of the
// completed steps are returned with it.
func RunScript(ctx context.Context, script *Script, reg *experiment.Registry, log logr.Logger) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, 0, len(script.Steps))

	for i, step := range script.Steps {
		log.Info("running step", "step", i+1, "of", len(script.Steps), "scenario", step.Scenario, "preset", step.Preset)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		ms, err := buildMetrics(step.Metrics, mgl64.Vec3(cfg.Gravity))
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, reg, log.WithValues("step", i+1))
		if err := exp.Setup(ms); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ParameterSweep runs one simulation per value of a scene parameter.
type ParameterSweep struct {
	Base    *config.Config
	Param   string
	Values  []float64
	Metrics []string
	Workers int
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	Value  float64
	Result *dynamo.Result
}

// RunSweep executes the sweep on a worker pool. Results keep the order of
// Values.
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry, log logr.Logger) ([]SweepResult, error) {
	if err := optim.Apply(sweep.Base.Clone(), sweep.Param, 0); err != nil {
		return nil, err
	}
	if len(sweep.Values) == 0 {
		return nil, fmt.Errorf("sweep over %s has no values", sweep.Param)
	}

	build := func(i int) (*sim.Runner, error) {
		cfg := sweep.Base.Clone()
		if err := optim.Apply(cfg, sweep.Param, sweep.Values[i]); err != nil {
			return nil, err
		}
		w, err := reg.Build(cfg, log.WithValues(sweep.Param, sweep.Values[i]))
		if err != nil {
			return nil, err
		}
		ms, err := buildMetrics(sweep.Metrics, w.Gravity())
		if err != nil {
			return nil, err
		}
		r := sim.NewRunner(w.Sim)
		for _, m := range ms {
			r.AddMetric(m)
		}
		return r, nil
	}

	res, err := sim.Sweep(ctx, len(sweep.Values), sweep.Workers, build, sweep.Base.Run())
	if err != nil {
		return nil, err
	}
	out := make([]SweepResult, len(res))
	for i, r := range res {
		out[i] = SweepResult{Value: sweep.Values[i], Result: r}
	}
	return out, nil
}

// MonteCarloConfig jitters the focus body's starting position and velocity.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	Seed         int64
	Workers      int
	// Bound is the distance from the origin past which a trial counts as
	// unstable. Zero means 1e3.
	Bound float64
}

// MonteCarloResult holds the outcome of one trial.
type MonteCarloResult struct {
	Trial  int
	Offset mgl64.Vec3
	Final  dynamo.BodySample
	Stable bool
}

// RunMonteCarlo executes the trials in parallel. Trial i draws its offset
// from Seed+i, so results do not depend on scheduling.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, reg *experiment.Registry, log logr.Logger) ([]MonteCarloResult, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	bound := cfg.Bound
	if bound <= 0 {
		bound = 1e3
	}

	offsets := make([]mgl64.Vec3, cfg.Trials)
	kicks := make([]mgl64.Vec3, cfg.Trials)
	focus := make([]int, cfg.Trials)
	for i := range offsets {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		jitter := func() mgl64.Vec3 {
			return mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}.Mul(2 * cfg.Perturbation)
		}
		offsets[i], kicks[i] = jitter(), jitter()
	}

	build := func(i int) (*sim.Runner, error) {
		w, err := reg.Build(cfg.Base, log.WithValues("trial", i))
		if err != nil {
			return nil, err
		}
		if w.Focus == nil {
			return nil, fmt.Errorf("scenario %s has no focus body", cfg.Base.Scenario)
		}
		w.Focus.SetPos(w.Focus.Pos().Add(offsets[i]))
		w.Focus.SetVelocity(w.Focus.Velocity().Add(kicks[i]))
		focus[i] = w.Focus.ID()
		return sim.NewRunner(w.Sim), nil
	}

	run := cfg.Base.Run()
	run.SampleEvery = max(int(run.Duration/run.Dt), 1)
	res, err := sim.Sweep(ctx, cfg.Trials, cfg.Workers, build, run)
	if err != nil {
		return nil, err
	}

	out := make([]MonteCarloResult, len(res))
	for i, r := range res {
		final := r.Final()
		b, _ := final.Body(focus[i])
		stable := len(r.Errors) == 0 && final.IsValid() && b.Pos.Len() < bound
		out[i] = MonteCarloResult{Trial: i, Offset: offsets[i], Final: b, Stable: stable}
	}
	return out, nil
}

// MonteCarloStats counts stable trials and the spread of final focus
// positions around their mean.
func MonteCarloStats(results []MonteCarloResult) (stable, unstable int, spread float64) {
	var mean mgl64.Vec3
	for _, r := range results {
		if r.Stable {
			stable++
			mean = mean.Add(r.Final.Pos)
		} else {
			unstable++
		}
	}
	if stable == 0 {
		return stable, unstable, 0
	}
	mean = mean.Mul(1 / float64(stable))
	for _, r := range results {
		if r.Stable {
			spread += r.Final.Pos.Sub(mean).LenSqr()
		}
	}
	return stable, unstable, math.Sqrt(spread / float64(stable))
}
