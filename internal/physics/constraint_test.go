package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func jointAt(t *testing.T, s *Simulator, a, b *RigidBody, at mgl64.Vec3) *Constraint {
	t.Helper()
	j, err := s.CreateJoint(JointBallSocket, a, RigidRef(b))
	if err != nil {
		t.Fatalf("CreateJoint: %v", err)
	}
	j.SetFrameWorld(Transform{Pos: at, Rot: mgl64.Ident3()})
	j.Enable(s, true)
	return j
}

func chainBodies(t *testing.T, s *Simulator, n int) []*RigidBody {
	t.Helper()
	out := make([]*RigidBody, n)
	for i := range out {
		rb, err := s.CreateRigidBody()
		if err != nil {
			t.Fatal(err)
		}
		rb.SetPos(mgl64.Vec3{float64(i), 0, 0})
		out[i] = rb
	}
	return out
}

func TestJointHeadersMergeAndSplit(t *testing.T) {
	s := newTestSim(t, nil)
	b := chainBodies(t, s, 4)

	jointAt(t, s, b[0], b[1], mgl64.Vec3{0.5, 0, 0})
	jointAt(t, s, b[2], b[3], mgl64.Vec3{2.5, 0, 0})
	if n := len(s.ConstraintHeaders()); n != 2 {
		t.Fatalf("%d headers for two separate joints, want 2", n)
	}

	bridge := jointAt(t, s, b[1], b[2], mgl64.Vec3{1.5, 0, 0})
	headers := s.ConstraintHeaders()
	if len(headers) != 1 {
		t.Fatalf("%d headers after bridging, want 1", len(headers))
	}
	h := headers[0]
	if h.Len() != 3 || len(h.Bodies()) != 4 {
		t.Errorf("merged header has %d joints and %d bodies, want 3 and 4", h.Len(), len(h.Bodies()))
	}
	for i, rb := range b {
		if rb.ConstraintHeader() != h {
			t.Errorf("body %d not in merged header", i)
		}
	}

	if err := s.FreeJoint(bridge); err != nil {
		t.Fatal(err)
	}
	headers = s.ConstraintHeaders()
	if len(headers) != 2 {
		t.Fatalf("%d headers after removing the bridge, want 2", len(headers))
	}
	if b[0].ConstraintHeader() != b[1].ConstraintHeader() || b[2].ConstraintHeader() != b[3].ConstraintHeader() {
		t.Error("pairs were not kept together")
	}
	if b[1].ConstraintHeader() == b[2].ConstraintHeader() {
		t.Error("split halves still share a header")
	}
}

func TestJointPointCount(t *testing.T) {
	tests := []struct {
		jt   JointType
		want int
	}{
		{JointBallSocket, 1},
		{JointHinge, 2},
		{JointSlide, 2},
	}
	s := newTestSim(t, nil)
	for _, tt := range tests {
		t.Run(tt.jt.String(), func(t *testing.T) {
			a, _ := s.CreateRigidBody()
			j, err := s.CreateJoint(tt.jt, a, BodyRef{})
			if err != nil {
				t.Fatal(err)
			}
			if j.PointCount() != tt.want {
				t.Errorf("PointCount() = %d, want %d", j.PointCount(), tt.want)
			}
			if got, ok := ParseJointType(tt.jt.String()); !ok || got != tt.jt {
				t.Errorf("ParseJointType(%q) = %v, %v", tt.jt, got, ok)
			}
		})
	}
}

func TestCreateJointRejectsSelf(t *testing.T) {
	s := newTestSim(t, nil)
	a, _ := s.CreateRigidBody()
	if _, err := s.CreateJoint(JointHinge, a, RigidRef(a)); err == nil {
		t.Error("joint from a body to itself was accepted")
	}
	if _, err := s.CreateJoint(JointHinge, nil, BodyRef{}); err == nil {
		t.Error("joint without body A was accepted")
	}
}

func TestHingePointsStraddleFrame(t *testing.T) {
	s := newTestSim(t, nil)
	a, _ := s.CreateRigidBody()
	j, _ := s.CreateJoint(JointHinge, a, BodyRef{})
	j.SetJointLength(2)
	j.SetFrameWorld(Transform{Pos: mgl64.Vec3{0, 1, 0}, Rot: mgl64.Ident3()})
	j.Enable(s, true)
	j.updateConstraintPoint()

	p0, _ := j.WorldPoints(0)
	p1, _ := j.WorldPoints(1)
	if !p0.ApproxEqual(mgl64.Vec3{0, 2, 0}) || !p1.ApproxEqual(mgl64.Vec3{0, 0, 0}) {
		t.Errorf("hinge points = %v, %v", p0, p1)
	}
}

func TestMotorRejectedOnBallSocket(t *testing.T) {
	s := newTestSim(t, nil)
	a, _ := s.CreateRigidBody()
	j, _ := s.CreateJoint(JointBallSocket, a, BodyRef{})
	if j.SetMotor(1, 1, true) {
		t.Error("ball socket accepted a motor")
	}
	if j.SetLimit(2, 0, 1, true) {
		t.Error("limit index 2 accepted")
	}
	if !j.SetLimit(0, -0.5, 0.5, true) || !j.Limit(0).Enabled {
		t.Error("primary limit not set")
	}
}

func TestWorldPendulumHoldsJoint(t *testing.T) {
	s := newTestSim(t, nil)
	bob, _ := s.CreateRigidBody()
	bob.SetPos(mgl64.Vec3{1, 0, 0})

	j, _ := s.CreateJoint(JointBallSocket, bob, BodyRef{})
	j.SetFrameWorld(Transform{Pos: mgl64.Vec3{}, Rot: mgl64.Ident3()})
	j.Enable(s, true)

	for i := 0; i < 120; i++ {
		if err := s.Advance(1.0/60, 2); err != nil {
			t.Fatal(err)
		}
	}
	pa, pb := j.WorldPoints(0)
	if d := pa.Sub(pb).Len(); d > 0.05 {
		t.Errorf("joint separation %v after 2 s", d)
	}
	if d := bob.Pos().Len(); d < 0.9 || d > 1.1 {
		t.Errorf("bob at distance %v from the pivot, want about 1", d)
	}
	if bob.Pos()[1] >= 0 {
		t.Errorf("bob did not swing down: %v", bob.Pos())
	}
}

func TestDisabledJointIsNotSolved(t *testing.T) {
	s := newTestSim(t, nil)
	bob, _ := s.CreateRigidBody()
	bob.SetPos(mgl64.Vec3{1, 0, 0})
	j, _ := s.CreateJoint(JointBallSocket, bob, BodyRef{})
	j.SetFrameWorld(IdentityTransform())
	j.Enable(s, true)
	j.Enable(s, false)

	if err := s.Advance(1, 60); err != nil {
		t.Fatal(err)
	}
	if bob.Pos()[1] > -4 {
		t.Errorf("disabled joint still held the body: %v", bob.Pos())
	}
}

func TestJointConservesMomentum(t *testing.T) {
	s := newTestSim(t, nil)
	b := chainBodies(t, s, 2)
	for _, rb := range b {
		rb.GravityEnable(false)
	}
	b[0].SetVelocity(mgl64.Vec3{0, 1, 0})
	b[1].SetVelocity(mgl64.Vec3{0.5, -2, 0.3})
	b[1].SetAngularVelocity(mgl64.Vec3{0, 0, 1})
	jointAt(t, s, b[0], b[1], mgl64.Vec3{0.5, 0, 0})

	total := func() mgl64.Vec3 {
		return b[0].LinearMomentum().Add(b[1].LinearMomentum())
	}
	want := total()
	for range 120 {
		if err := s.Advance(1.0/60, 1); err != nil {
			t.Fatal(err)
		}
	}
	if got := total(); !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("linear momentum drifted from %v to %v", want, got)
	}
	a, c := s.Joints()[0].WorldPoints(0)
	if d := a.Sub(c).Len(); d > 0.1 {
		t.Errorf("joint points %v apart", d)
	}
}
