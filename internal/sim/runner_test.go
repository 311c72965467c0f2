package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

func newWorld(t *testing.T, heights ...float64) *physics.Simulator {
	t.Helper()
	w, err := physics.New(physics.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range heights {
		rb, err := w.CreateRigidBody()
		if err != nil {
			t.Fatal(err)
		}
		rb.SetPos(mgl64.Vec3{0, h, 0})
	}
	return w
}

type countMetric struct{ n int }

func (c *countMetric) Name() string            { return "count" }
func (c *countMetric) Observe(f *dynamo.Frame) { c.n++ }
func (c *countMetric) Value() float64          { return float64(c.n) }
func (c *countMetric) Reset()                  { c.n = 0 }

func TestRunnerRun(t *testing.T) {
	r := NewRunner(newWorld(t, 10))
	m := &countMetric{}
	r.AddMetric(m)

	cfg := dynamo.Config{Dt: 0.1, Duration: 1.0, Substeps: 1, SampleEvery: 1}
	result, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Frames) != 11 {
		t.Errorf("expected 11 frames, got %d", len(result.Frames))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}
	if got := result.Metrics["count"]; got != 11 {
		t.Errorf("metric saw %v frames, want 11", got)
	}

	final := result.Final()
	if math.Abs(final.Time-1.0) > 1e-9 {
		t.Errorf("final time = %v, want 1", final.Time)
	}
	b, ok := final.Body(final.Bodies[0].ID)
	if !ok || b.Pos[1] >= 10 {
		t.Errorf("body did not fall: %+v", b)
	}
}

func TestRunnerSampleEvery(t *testing.T) {
	r := NewRunner(newWorld(t, 1))
	cfg := dynamo.Config{Dt: 0.1, Duration: 1.0, Substeps: 1, SampleEvery: 4}
	result, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	// steps 0, 4, 8 and the final step 10
	if len(result.Frames) != 4 {
		t.Errorf("expected 4 frames, got %d", len(result.Frames))
	}
}

func TestRunnerInvalidConfig(t *testing.T) {
	r := NewRunner(newWorld(t))

	tests := []struct {
		name string
		cfg  dynamo.Config
	}{
		{"zero dt", dynamo.Config{Dt: 0, Duration: 1.0}},
		{"negative dt", dynamo.Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", dynamo.Config{Dt: 0.1, Duration: 0}},
		{"variable without bounds", dynamo.Config{Dt: 0.1, Duration: 1.0, Variable: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), tt.cfg)
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRunnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(newWorld(t, 1))
	_, err := r.Run(ctx, dynamo.DefaultConfig())
	if !errors.Is(err, dynamo.ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestRunnerRecordsInstability(t *testing.T) {
	w := newWorld(t, 1)
	w.RigidBodies()[0].SetForce(mgl64.Vec3{math.Inf(1), 0, 0})

	r := NewRunner(w)
	cfg := dynamo.DefaultConfig()
	result, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) == 0 || !errors.Is(result.Errors[0], dynamo.ErrNumericalInstability) {
		t.Errorf("expected a numerical instability error, got %v", result.Errors)
	}
	if result.StepsTaken != 1 {
		t.Errorf("run continued for %d steps after instability", result.StepsTaken)
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	r := NewRunner(newWorld(t, 1))
	calls := 0
	err := r.RunWithCallback(context.Background(), dynamo.DefaultConfig(), func(f *dynamo.Frame) bool {
		calls++
		return calls < 3
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("callback ran %d times, want 3", calls)
	}
}

func TestSweepKeepsOrder(t *testing.T) {
	build := func(i int) (*Runner, error) {
		w, err := physics.New(physics.DefaultConfig())
		if err != nil {
			return nil, err
		}
		w.SetGravity(mgl64.Vec3{})
		rb, err := w.CreateRigidBody()
		if err != nil {
			return nil, err
		}
		rb.SetPos(mgl64.Vec3{0, float64(i), 0})
		return NewRunner(w), nil
	}

	cfg := dynamo.Config{Dt: 0.1, Duration: 0.5, Substeps: 1, SampleEvery: 1}
	results, err := Sweep(context.Background(), 4, 2, build, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, res := range results {
		if y := res.Final().Bodies[0].Pos[1]; math.Abs(y-float64(i)) > 1e-9 {
			t.Errorf("result %d: y = %v, want %d", i, y, i)
		}
	}
}

func TestFramePoolResets(t *testing.T) {
	p := NewFramePool()
	f := p.Get()
	f.Step = 7
	f.Bodies = append(f.Bodies, dynamo.BodySample{ID: 1})
	p.Put(f)

	g := p.Get()
	if g.Step != 0 || len(g.Bodies) != 0 {
		t.Errorf("pooled frame not reset: %+v", g)
	}
}
