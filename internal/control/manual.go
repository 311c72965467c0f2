package control

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

// Manual applies pushes queued from outside the step loop, such as key
// presses in the live viewer. Each push lasts one controller call.
type Manual struct {
	mu     sync.Mutex
	force  mgl64.Vec3
	torque mgl64.Vec3
}

func NewManual() *Manual {
	return &Manual{}
}

// Push queues a force and torque for the next call.
func (m *Manual) Push(force, torque mgl64.Vec3) {
	m.mu.Lock()
	m.force = m.force.Add(force)
	m.torque = m.torque.Add(torque)
	m.mu.Unlock()
}

func (m *Manual) Func() physics.ControllerFunc {
	return func(c *physics.Controller, _ float64) {
		m.mu.Lock()
		c.ForceA, c.TorqueA = m.force, m.torque
		m.force, m.torque = mgl64.Vec3{}, mgl64.Vec3{}
		m.mu.Unlock()
		if rb := c.Body(); rb != nil && (c.ForceA != mgl64.Vec3{} || c.TorqueA != mgl64.Vec3{}) {
			rb.WakeUp()
		}
	}
}
