package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCalcNormalImpulse(t *testing.T) {
	s := newTestSim(t, nil)
	s.SetMaterial(1, Material{Friction: 0.5, Restitution: 0.4, Density: 1})

	tests := []struct {
		name    string
		relVel  mgl64.Vec3
		contact bool
		want    mgl64.Vec3
	}{
		{"head on bounces", mgl64.Vec3{0, 0, -2}, false, mgl64.Vec3{0, 0, 2.8}},
		{"resting contact has no restitution", mgl64.Vec3{0, 0, -2}, true, mgl64.Vec3{0, 0, 2}},
		{"sticks inside the cone", mgl64.Vec3{0.5, 0, -2}, true, mgl64.Vec3{-0.5, 0, 2}},
		{"slides on the cone edge", mgl64.Vec3{3, 0, -1}, true, mgl64.Vec3{-0.5, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := &CollisionResult{
				K:            mgl64.Ident3(),
				KInv:         mgl64.Ident3(),
				InitRelVel:   tt.relVel,
				MaterialA:    1,
				MaterialB:    1,
				ImpulseScale: 1,
			}
			got := s.calcNormalImpulse(cr, tt.contact)
			if !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Errorf("impulse = %v, want %v", got, tt.want)
			}
		})
	}
}

func groundImpact(s *Simulator, rb *RigidBody) *CollisionResult {
	cr := &CollisionResult{
		BodyA:        RigidRef(rb),
		BodyB:        s.TerrainRef(),
		Type:         ImpulseNormal,
		ContactA:     mgl64.Vec3{0, -0.5, 0},
		ContactB:     rb.Pos().Add(mgl64.Vec3{0, -0.5, 0}),
		Frame:        collisionFrame(mgl64.Vec3{0, 1, 0}),
		ImpulseScale: 1,
	}
	cr.prepareForSolver(s, false, false)
	return cr
}

func TestHandleCollisionRestitution(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.SetPos(mgl64.Vec3{0, 0.5, 0})
	rb.SetVelocity(mgl64.Vec3{0, -2, 0})

	cr := groundImpact(s, rb)
	if cr.singular {
		t.Fatal("effective mass is singular")
	}
	s.handleCollision(cr, ImpulseNormal, 1)

	if got := rb.Velocity(); !got.ApproxEqualThreshold(mgl64.Vec3{0, 0.8, 0}, 1e-9) {
		t.Errorf("velocity after bounce = %v, want (0, 0.8, 0)", got)
	}
	if w := rb.AngularVelocity(); w.Len() > 1e-9 {
		t.Errorf("central impact spun the body: %v", w)
	}
}

func TestHandleCollisionIgnoresSeparation(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.SetPos(mgl64.Vec3{0, 0.5, 0})
	rb.SetVelocity(mgl64.Vec3{0, 1, 0})

	s.handleCollision(groundImpact(s, rb), ImpulseNormal, 1)
	if got := rb.Velocity(); !got.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("separating body was pushed: %v", got)
	}
}

func TestOffCentreImpactSpins(t *testing.T) {
	s := newTestSim(t, nil)
	rb, _ := s.CreateRigidBody()
	rb.SetPos(mgl64.Vec3{0, 0.5, 0})
	rb.SetVelocity(mgl64.Vec3{0, -2, 0})

	cr := groundImpact(s, rb)
	cr.ContactA = mgl64.Vec3{0.5, -0.5, 0}
	cr.prepareForSolver(s, false, false)
	s.handleCollision(cr, ImpulseNormal, 1)

	if w := rb.AngularVelocity(); w[2] <= 0 {
		t.Errorf("impact right of centre should spin counter-clockwise about z, got %v", w)
	}
	if v := rb.Velocity(); v[1] <= -2 {
		t.Errorf("impulse did not slow the body: %v", v)
	}
}

func TestLimitDeltaAngle(t *testing.T) {
	if _, ok := limitDeltaAngle(0.1, -0.5, 0.01); ok {
		t.Error("a joint already leaving the limit should not be corrected")
	}
	da, ok := limitDeltaAngle(0.1, 0.5, 0.01)
	if !ok || math.Abs(da-(-10.25)) > 1e-9 {
		t.Errorf("limitDeltaAngle(0.1, 0.5) = %v, %v, want -10.25", da, ok)
	}
}

func TestClampTorque(t *testing.T) {
	dl := mgl64.Vec3{3, 4, 0}
	if got := clampTorque(dl, 0, 0.1); got != dl {
		t.Errorf("unlimited clamp changed the torque: %v", got)
	}
	got := clampTorque(dl, 10, 0.1)
	if math.Abs(got.Len()-1) > 1e-9 {
		t.Errorf("clamped |dl| = %v, want 1", got.Len())
	}
}

func TestImpulseTypeString(t *testing.T) {
	if ImpulseContact.String() == ImpulseNormal.String() {
		t.Error("impulse types share a name")
	}
}
