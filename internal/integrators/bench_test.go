package integrators

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func benchState() (AngularState, mgl64.Mat3) {
	ibodyInv := mgl64.Diag3(mgl64.Vec3{1.0, 0.5, 0.25})
	q := mgl64.QuatIdent()
	l := mgl64.Vec3{0.3, 2.0, 0.1}
	w := WorldInertiaInv(q, ibodyInv).Mul3x1(l)
	return AngularState{Q: q, L: l, W: w, QDot: QuatDerivative(w, q)}, ibodyInv
}

func BenchmarkMidpoint(b *testing.B) {
	integ := NewMidpoint()
	s, ibodyInv := benchState()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s = integ.Step(s, mgl64.Vec3{}, ibodyInv, 1.0/60.0)
		s.Q = Orientation(s.Q, s.QDot, 1.0/60.0)
	}
}

func BenchmarkEuler(b *testing.B) {
	integ := NewEuler()
	s, ibodyInv := benchState()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s = integ.Step(s, mgl64.Vec3{}, ibodyInv, 1.0/60.0)
		s.Q = Orientation(s.Q, s.QDot, 1.0/60.0)
	}
}

func BenchmarkPosition(b *testing.B) {
	x := mgl64.Vec3{0, 10, 0}
	v := mgl64.Vec3{}
	g := mgl64.Vec3{0, -9.8, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = Position(x, v, g, 1.0/60.0)
	}
}
