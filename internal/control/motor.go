package control

import (
	"github.com/san-kum/rigidsim/internal/physics"
)

// MotorSchedule drives a hinge or slide joint's motor at Speed, reversing
// direction every Every calls.
type MotorSchedule struct {
	Speed    float64
	MaxForce float64
	Every    int

	calls int
	dir   float64
}

func NewMotorSchedule(speed, maxForce float64, every int) *MotorSchedule {
	return &MotorSchedule{Speed: speed, MaxForce: maxForce, Every: max(every, 1), dir: 1}
}

// Direction is +1 or -1.
func (m *MotorSchedule) Direction() float64 { return m.dir }

func (m *MotorSchedule) Func() physics.ControllerFunc {
	return func(c *physics.Controller, _ float64) {
		j := c.Joint()
		if j == nil {
			return
		}
		if m.calls > 0 && m.calls%m.Every == 0 {
			m.dir = -m.dir
		}
		m.calls++
		j.SetMotor(m.dir*m.Speed, m.MaxForce, true)
	}
}
