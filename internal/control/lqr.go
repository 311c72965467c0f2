package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

// LQR is state feedback u = -K·[x - target, v] applied per axis, with K
// solved offline for a unit point mass.
type LQR struct {
	K      [2]float64
	Target mgl64.Vec3
	// Weight is cancelled with this gravity before the feedback is added.
	Gravity mgl64.Vec3
}

func NewLQR(k [2]float64, target, gravity mgl64.Vec3) *LQR {
	return &LQR{K: k, Target: target, Gravity: gravity}
}

// unitMassGains minimises ∫ xᵀQx + uᵀRu with Q = diag(10, 1), R = 0.1 for
// ẍ = u.
var unitMassGains = [2]float64{10.0, 5.48}

func NewPointLQR(target, gravity mgl64.Vec3) *LQR {
	return NewLQR(unitMassGains, target, gravity)
}

// Force returns the feedback force for a body of mass m at x moving at v.
func (l *LQR) Force(m float64, x, v mgl64.Vec3) mgl64.Vec3 {
	u := x.Sub(l.Target).Mul(-l.K[0]).Sub(v.Mul(l.K[1]))
	return u.Mul(m).Sub(l.Gravity.Mul(m))
}

func (l *LQR) Func() physics.ControllerFunc {
	return func(c *physics.Controller, _ float64) {
		rb := c.Body()
		if rb == nil {
			return
		}
		c.ForceA = l.Force(rb.Mass(), rb.Pos(), rb.Velocity())
	}
}
