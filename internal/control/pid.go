package control

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

// Update returns the control output for the measured value at time t.
func (p *PID) Update(measured, t float64) float64 {
	err := p.Target - measured

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.Kp * err
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return u
	}
	return p.Kp * err
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	default:
		return fmt.Errorf("unknown PID parameter %q", name)
	}
	return nil
}

// Hover holds a body at the PID target height. The body's weight is fed
// forward so the PID only handles the error.
type Hover struct {
	PID     *PID
	gravity float64
	lastOut float64
}

func NewHover(pid *PID, gravity float64) *Hover {
	return &Hover{PID: pid, gravity: gravity}
}

func (h *Hover) Func() physics.ControllerFunc {
	return func(c *physics.Controller, t float64) {
		rb := c.Body()
		if rb == nil {
			return
		}
		u := h.PID.Update(rb.Pos().Y(), t)
		h.lastOut = u
		c.ForceA = mgl64.Vec3{0, rb.Mass()*h.gravity + u, 0}
	}
}

// Output is the last PID correction applied.
func (h *Hover) Output() float64 { return h.lastOut }

func (h *Hover) GetParams() map[string]float64 { return h.PID.GetParams() }

func (h *Hover) SetParam(name string, value float64) error {
	return h.PID.SetParam(name, value)
}
