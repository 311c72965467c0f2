package analysis

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/physics"
)

// WorldBuilder builds a world and returns the body whose trajectory is
// compared. offset is added to that body's initial position.
type WorldBuilder func(offset mgl64.Vec3) (*physics.Simulator, *physics.RigidBody, error)

// LyapunovExponent estimates the largest Lyapunov exponent of a scenario by
// stepping a reference world and one perturbed by perturbation along x. A
// positive value indicates chaos.
//
// Algorithm:
// 1. Build two worlds whose tracked bodies differ by perturbation
// 2. Step both and measure the separation of position and velocity
// 3. λ ≈ mean of ln(|δ(t)| / |δ(0)|) per unit time, restarting the
// perturbed world's body at distance δ(0) whenever it drifts past 1
func LyapunovExponent(build WorldBuilder, dt float64, steps int, perturbation float64) (float64, error) {
	if perturbation <= 0 || dt <= 0 || steps < 1 {
		return 0, errors.New("lyapunov: perturbation, dt and steps must be positive")
	}

	ref, a, err := build(mgl64.Vec3{})
	if err != nil {
		return 0, err
	}
	pert, b, err := build(mgl64.Vec3{perturbation, 0, 0})
	if err != nil {
		return 0, err
	}

	d0 := perturbation
	sumLog := 0.0
	count := 0

	for i := 0; i < steps; i++ {
		if err := ref.Advance(dt, 1); err != nil {
			return 0, err
		}
		if err := pert.Advance(dt, 1); err != nil {
			return 0, err
		}

		dp := b.Pos().Sub(a.Pos())
		dv := b.Velocity().Sub(a.Velocity())
		sep := math.Sqrt(dp.LenSqr() + dv.LenSqr())

		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// Renormalize to prevent saturation
		if sep > 1.0 {
			scale := d0 / sep
			b.SetPos(a.Pos().Add(dp.Mul(scale)))
			b.SetVelocity(a.Velocity().Add(dv.Mul(scale)))
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}
