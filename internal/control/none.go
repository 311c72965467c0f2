package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Func() physics.ControllerFunc {
	return func(c *physics.Controller, _ float64) {
		c.ForceA, c.TorqueA = mgl64.Vec3{}, mgl64.Vec3{}
		c.ForceB, c.TorqueB = mgl64.Vec3{}, mgl64.Vec3{}
	}
}

// Constant applies the same force and torque on every call.
type Constant struct {
	Force  mgl64.Vec3
	Torque mgl64.Vec3
}

func NewConstant(force, torque mgl64.Vec3) *Constant {
	return &Constant{Force: force, Torque: torque}
}

func (k *Constant) Func() physics.ControllerFunc {
	return func(c *physics.Controller, _ float64) {
		c.ForceA, c.TorqueA = k.Force, k.Torque
	}
}
