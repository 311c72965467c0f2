package integrators

import "github.com/go-gl/mathgl/mgl64"

// Euler is the symplectic Euler angular step. It drifts under the iterative
// contact solver at coarse timesteps and is kept for comparison runs.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(s AngularState, torque mgl64.Vec3, ibodyInv mgl64.Mat3, dt float64) AngularState {
	newL := s.L.Add(torque.Mul(dt))
	w := WorldInertiaInv(s.Q, ibodyInv).Mul3x1(newL)
	return AngularState{
		Q:    s.Q,
		L:    newL,
		W:    w,
		QDot: QuatDerivative(w, s.Q),
	}
}

// ByName returns the angular integrator registered under name.
func ByName(name string) (AngularIntegrator, bool) {
	switch name {
	case "", "midpoint":
		return NewMidpoint(), true
	case "euler":
		return NewEuler(), true
	}
	return nil, false
}
