package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

// Runner steps one physics world and records what the metrics and
// observers see.
type Runner struct {
	world     *physics.Simulator
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	frames    *FramePool
}

func NewRunner(world *physics.Simulator) *Runner {
	return &Runner{
		world:     world,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		frames:    NewFramePool(),
	}
}

func (r *Runner) World() *physics.Simulator { return r.world }

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	every := max(cfg.SampleEvery, 1)
	result := &dynamo.Result{
		Frames:  make([]dynamo.Frame, 0, steps/every+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	r.record(result, 0)

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			r.finish(result)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		err := r.advance(cfg)
		result.StepsTaken++
		if err != nil {
			result.Errors = append(result.Errors, err)
			if cfg.ValidateState && errors.Is(err, dynamo.ErrNumericalInstability) {
				r.record(result, i)
				break
			}
		}

		if i%every == 0 || i == steps {
			r.record(result, i)
		}
	}

	r.finish(result)
	return result, nil
}

// RunWithCallback steps until the duration elapses or fn returns false.
// The frame passed to fn is only valid for the duration of the call.
func (r *Runner) RunWithCallback(ctx context.Context, cfg dynamo.Config, fn func(*dynamo.Frame) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	start := r.world.Elapsed()
	for step := 0; r.world.Elapsed()-start < cfg.Duration; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f := r.frames.Get()
		Capture(r.world, step, f)
		keep := fn(f)
		r.frames.Put(f)
		if !keep {
			return nil
		}

		if err := r.advance(cfg); err != nil && cfg.ValidateState {
			return err
		}
	}
	return nil
}

func (r *Runner) advance(cfg dynamo.Config) error {
	if cfg.Variable {
		return r.world.AdvanceVariable(cfg.Dt, cfg.MinDt, cfg.MaxDt)
	}
	return r.world.Advance(cfg.Dt, max(cfg.Substeps, 1))
}

func (r *Runner) record(result *dynamo.Result, step int) {
	f := r.frames.Get()
	Capture(r.world, step, f)
	for _, m := range r.metrics {
		m.Observe(f)
	}
	for _, o := range r.observers {
		o.OnStep(f)
	}
	result.Frames = append(result.Frames, f.Clone())
	r.frames.Put(f)
}

func (r *Runner) finish(result *dynamo.Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Variable && (cfg.MinDt <= 0 || cfg.MaxDt < cfg.MinDt) {
		return fmt.Errorf("%w: variable step needs 0 < min_dt <= max_dt", dynamo.ErrInvalidConfig)
	}
	return nil
}
