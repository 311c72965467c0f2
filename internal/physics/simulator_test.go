package physics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr/funcr"
	"github.com/go-logr/logr/testr"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

func newTestSim(t *testing.T, mutate func(*Config)) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.SetLogger(testr.New(t))
	return s
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative pool", func(c *Config) { c.RigidBodies = -1 }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"zero high energy", func(c *Config) { c.HighEnergy = 0 }},
		{"zero stack interval", func(c *Config) { c.StackCheckInterval = 0 }},
		{"nan gravity", func(c *Config) { c.Gravity = mgl64.Vec3{0, math.NaN(), 0} }},
		{"unknown integrator", func(c *Config) { c.Integrator = "rk4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPoolExhaustionIsLogged(t *testing.T) {
	var lines []string
	s := newTestSim(t, func(c *Config) {
		c.RigidBodies = 1
		c.Particles = 0
		c.Constraints = 0
	})
	s.SetLogger(funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{}))

	if _, err := s.CreateRigidBody(); err != nil {
		t.Fatalf("first CreateRigidBody: %v", err)
	}
	if _, err := s.CreateRigidBody(); !errors.Is(err, dynamo.ErrPoolExhausted) {
		t.Errorf("second CreateRigidBody error = %v, want ErrPoolExhausted", err)
	}
	if _, err := s.CreateRigidParticle(); !errors.Is(err, dynamo.ErrPoolExhausted) {
		t.Errorf("CreateRigidParticle error = %v, want ErrPoolExhausted", err)
	}

	want := []string{msgRigidBodyFull, msgParticleFull}
	if len(lines) != len(want) {
		t.Fatalf("logged %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i, w := range want {
		if !strings.Contains(lines[i], w) {
			t.Errorf("line %d = %q, want it to mention %q", i, lines[i], w)
		}
	}
}

func TestLogLevelNoneIsSilent(t *testing.T) {
	var lines int
	s := newTestSim(t, func(c *Config) { c.RigidBodies = 0 })
	s.SetLogLevel(LogNone)
	s.SetLogger(funcr.New(func(string, string) { lines++ }, funcr.Options{}))

	_, _ = s.CreateRigidBody()
	if lines != 0 {
		t.Errorf("logged %d lines at LogNone", lines)
	}
}

func TestInvalidFree(t *testing.T) {
	s := newTestSim(t, nil)
	other := newTestSim(t, nil)

	rb, _ := s.CreateRigidBody()
	foreign, _ := other.CreateRigidBody()

	if err := s.FreeRigidBody(foreign); !errors.Is(err, dynamo.ErrInvalidFree) {
		t.Errorf("freeing a foreign body: %v", err)
	}
	if err := s.FreeRigidBody(rb); err != nil {
		t.Fatalf("FreeRigidBody: %v", err)
	}
	if err := s.FreeRigidBody(rb); !errors.Is(err, dynamo.ErrInvalidFree) {
		t.Errorf("double free: %v", err)
	}
	if err := s.FreeJoint(nil); !errors.Is(err, dynamo.ErrInvalidFree) {
		t.Errorf("freeing nil joint: %v", err)
	}
	if err := s.FreeCollisionBody(nil); !errors.Is(err, dynamo.ErrInvalidFree) {
		t.Errorf("freeing nil collision body: %v", err)
	}
}

func TestFreeFall(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.SetPos(mgl64.Vec3{0, 10, 0})

	if err := s.Advance(1, 100); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got := rb.Velocity()[1]; math.Abs(got+9.8) > 1e-9 {
		t.Errorf("vy = %v, want -9.8", got)
	}
	if got := rb.Pos()[1]; math.Abs(got-(10-4.9)) > 0.2 {
		t.Errorf("y = %v, want about %v", got, 10-4.9)
	}
	if s.StepCount() != 1 {
		t.Errorf("StepCount() = %d, want 1", s.StepCount())
	}
	if math.Abs(s.Elapsed()-1) > 1e-9 {
		t.Errorf("Elapsed() = %v, want 1", s.Elapsed())
	}
}

func TestGravityDisabled(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.GravityEnable(false)
	rb.SetVelocity(mgl64.Vec3{1, 0, 0})

	if err := s.Advance(0.5, 10); err != nil {
		t.Fatal(err)
	}
	if !rb.Pos().ApproxEqualThreshold(mgl64.Vec3{0.5, 0, 0}, 1e-9) {
		t.Errorf("pos = %v, want (0.5, 0, 0)", rb.Pos())
	}
}

func TestAdvanceRejectsBadTime(t *testing.T) {
	s := newTestSim(t, nil)
	for _, dt := range []float64{0, -1, math.Inf(1)} {
		if err := s.Advance(dt, 1); !errors.Is(err, dynamo.ErrInvalidConfig) {
			t.Errorf("Advance(%v) error = %v", dt, err)
		}
	}
}

func TestNumericalInstabilityIsReported(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.SetPos(mgl64.Vec3{0, 1, 0})
	rb.SetForce(mgl64.Vec3{math.Inf(1), 0, 0})

	err := s.Advance(1.0/60, 1)
	if !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Fatalf("Advance error = %v, want ErrNumericalInstability", err)
	}
	var se *dynamo.StepError
	if !errors.As(err, &se) || se.Body != rb.ID() {
		t.Errorf("error = %v, want a StepError for body %d", err, rb.ID())
	}
	if !vecFinite(rb.Pos()) || !vecFinite(rb.Velocity()) {
		t.Errorf("state not restored: pos %v vel %v", rb.Pos(), rb.Velocity())
	}

	rb.SetForce(mgl64.Vec3{})
	if err := s.Advance(1.0/60, 1); err != nil {
		t.Errorf("simulation unusable after recovery: %v", err)
	}
}

func TestAdvanceVariableCarriesRemainder(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.GravityEnable(false)

	if err := s.AdvanceVariable(0.25, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if s.Elapsed() != 0 {
		t.Errorf("short call advanced %v seconds", s.Elapsed())
	}
	if err := s.AdvanceVariable(0.75, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if s.Elapsed() != 1 || s.Dt() != 1 {
		t.Errorf("Elapsed() = %v Dt() = %v, want 1 and 1", s.Elapsed(), s.Dt())
	}

	// the step may grow by at most 20% per call
	if err := s.AdvanceVariable(3, 0.1, 5); err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Dt()-1.2) > 1e-12 {
		t.Errorf("Dt() = %v, want 1.2", s.Dt())
	}
	if math.Abs(s.Elapsed()-3.4) > 1e-12 {
		t.Errorf("Elapsed() = %v, want 3.4", s.Elapsed())
	}
}

func TestSetGravityWakesIdleBodies(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.BecomeIdle()

	s.SetGravity(mgl64.Vec3{0, 0, -9.8})
	if rb.IsIdle() {
		t.Error("body still idle after gravity change")
	}
	if !s.gravityDir.ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Errorf("gravity direction = %v", s.gravityDir)
	}
}

func TestBodyControllerPeriod(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.GravityEnable(false)

	calls := 0
	_, err := s.AddBodyController(rb, func(c *Controller, _ float64) {
		calls++
		c.ForceA = mgl64.Vec3{1, 0, 0}
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Advance(0.06, 6); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("controller ran %d times in 6 steps with period 2, want 2", calls)
	}
	if rb.Velocity()[0] <= 0 {
		t.Errorf("controller force had no effect: v = %v", rb.Velocity())
	}
}

func TestFreeRigidBodyReleasesJointsAndControllers(t *testing.T) {
	s := newTestSim(t, nil)
	a, _ := s.CreateRigidBody()
	b, _ := s.CreateRigidBody()
	b.SetPos(mgl64.Vec3{1, 0, 0})

	j, err := s.CreateJoint(JointBallSocket, a, RigidRef(b))
	if err != nil {
		t.Fatal(err)
	}
	j.SetFrameWorld(Transform{Pos: mgl64.Vec3{0.5, 0, 0}, Rot: mgl64.Ident3()})
	j.Enable(s, true)
	if _, err := s.AddBodyController(a, nil, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSensor(a, mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}); err != nil {
		t.Fatal(err)
	}

	if err := s.FreeRigidBody(a); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Joints()); n != 0 {
		t.Errorf("%d joints left", n)
	}
	if n := s.controllers.Len(); n != 0 {
		t.Errorf("%d controllers left", n)
	}
	if n := s.sensors.Len(); n != 0 {
		t.Errorf("%d sensors left", n)
	}
	if n := len(s.ConstraintHeaders()); n != 0 {
		t.Errorf("%d constraint headers left", n)
	}
	if b.ConstraintHeader() != nil {
		t.Error("surviving body still points at a header")
	}
}
