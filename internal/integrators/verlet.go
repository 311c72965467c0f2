package integrators

import "github.com/go-gl/mathgl/mgl64"

// Position advances x by v·dt + ½·a·dt². The acceleration term is kept so
// large constant forces such as gravity integrate exactly.
func Position(x, v, a mgl64.Vec3, dt float64) mgl64.Vec3 {
	return x.Add(v.Mul(dt)).Add(a.Mul(0.5 * dt * dt))
}

// Velocity advances v by a·dt and applies a multiplicative damping factor.
func Velocity(v, a mgl64.Vec3, damping, dt float64) mgl64.Vec3 {
	return v.Add(a.Mul(dt)).Mul(1 - damping)
}

// Orientation advances q by qDot·dt and renormalizes.
func Orientation(q, qDot mgl64.Quat, dt float64) mgl64.Quat {
	return q.Add(qDot.Scale(dt)).Normalize()
}
