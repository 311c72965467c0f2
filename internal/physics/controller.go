package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// ControllerFunc is called every period steps with the simulated time. It
// writes the forces to apply through the controller's Force and Torque
// fields; they are consumed on the next step.
type ControllerFunc func(c *Controller, elapsed float64)

// Controller is a periodic callback attached to a rigid body or a joint.
// Body controllers use ForceA and TorqueA; joint controllers also drive B
// with ForceB and TorqueB.
type Controller struct {
	handle Handle
	period int
	count  int
	fn     ControllerFunc

	body  *RigidBody
	joint *Constraint

	ForceA  mgl64.Vec3
	TorqueA mgl64.Vec3
	ForceB  mgl64.Vec3
	TorqueB mgl64.Vec3

	UserData any
}

func (c *Controller) Body() *RigidBody   { return c.body }
func (c *Controller) Joint() *Constraint { return c.joint }
func (c *Controller) Period() int        { return c.period }

// SetPeriod sets the number of steps between callbacks. Zero calls every step.
func (c *Controller) SetPeriod(n int) {
	c.period = max(n, 0)
	c.count = min(c.count, c.period)
}

func (c *Controller) tick(s *Simulator) {
	if c.count == 0 {
		if c.fn != nil {
			c.fn(c, s.elapsed)
		}
		c.count = c.period
		return
	}
	c.count--
}

func (s *Simulator) allocController(fn ControllerFunc, period int) (*Controller, error) {
	hnd, c, ok := s.controllers.Alloc()
	if !ok {
		s.logInfo(LogOne, msgControllerFull, "capacity", s.controllers.Cap())
		return nil, fmt.Errorf("controller: %w", dynamo.ErrPoolExhausted)
	}
	*c = Controller{handle: hnd, fn: fn, period: max(period, 0)}
	return c, nil
}

// AddBodyController attaches a periodic controller to rb.
func (s *Simulator) AddBodyController(rb *RigidBody, fn ControllerFunc, period int) (*Controller, error) {
	c, err := s.allocController(fn, period)
	if err != nil {
		return nil, err
	}
	c.body = rb
	rb.controllers = append(rb.controllers, c)
	return c, nil
}

// AddJointController attaches a periodic controller to joint j.
func (s *Simulator) AddJointController(j *Constraint, fn ControllerFunc, period int) (*Controller, error) {
	c, err := s.allocController(fn, period)
	if err != nil {
		return nil, err
	}
	c.joint = j
	j.controllers = append(j.controllers, c)
	return c, nil
}

// FreeController detaches c from its owner and returns it to the pool.
func (s *Simulator) FreeController(c *Controller) error {
	if c == nil || !s.controllers.Valid(c.handle) {
		s.logInfo(LogOne, msgInvalidFree, "object", "controller")
		return fmt.Errorf("controller: %w", dynamo.ErrInvalidFree)
	}
	if c.body != nil {
		c.body.controllers = removeController(c.body.controllers, c)
	}
	if c.joint != nil {
		c.joint.controllers = removeController(c.joint.controllers, c)
	}
	s.controllers.Free(c.handle)
	return nil
}

func removeController(list []*Controller, c *Controller) []*Controller {
	for i, x := range list {
		if x == c {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (s *Simulator) updateConstraintControllers() {
	s.constraints.Each(func(_ Handle, c *Constraint) {
		if len(c.controllers) > 0 {
			c.updateControllers(s)
		}
	})
}
