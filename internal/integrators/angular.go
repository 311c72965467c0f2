package integrators

import "github.com/go-gl/mathgl/mgl64"

// AngularState is the rotational part of a rigid body: orientation,
// angular momentum and the quantities derived from them.
type AngularState struct {
	Q    mgl64.Quat
	L    mgl64.Vec3
	W    mgl64.Vec3
	QDot mgl64.Quat
}

type AngularIntegrator interface {
	Name() string
	Step(s AngularState, torque mgl64.Vec3, ibodyInv mgl64.Mat3, dt float64) AngularState
}

// WorldInertiaInv returns R · IbodyInv · Rᵀ for orientation q.
func WorldInertiaInv(q mgl64.Quat, ibodyInv mgl64.Mat3) mgl64.Mat3 {
	r := q.Normalize().Mat4().Mat3()
	return r.Mul3(ibodyInv).Mul3(r.Transpose())
}

// QuatDerivative returns ½·(0,w)·q.
func QuatDerivative(w mgl64.Vec3, q mgl64.Quat) mgl64.Quat {
	return mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5)
}

// Midpoint evaluates the orientation rate at the half step and commits the
// full-step angular momentum with it. Orientation itself is advanced later by
// the position step.
type Midpoint struct{}

func NewMidpoint() *Midpoint { return &Midpoint{} }

func (m *Midpoint) Name() string { return "midpoint" }

func (m *Midpoint) Step(s AngularState, torque mgl64.Vec3, ibodyInv mgl64.Mat3, dt float64) AngularState {
	half := dt * 0.5

	newL := s.L.Add(torque.Mul(dt))

	tmpQ := s.Q.Add(s.QDot.Scale(half)).Normalize()
	tmpL := s.L.Add(torque.Mul(half))
	w := WorldInertiaInv(tmpQ, ibodyInv).Mul3x1(tmpL)

	return AngularState{
		Q:    s.Q,
		L:    newL,
		W:    w,
		QDot: QuatDerivative(w, tmpQ),
	}
}
