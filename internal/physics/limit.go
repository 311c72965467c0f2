package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const maxSliderLimitDepth = 0.05

// LimitState bounds one joint axis. For hinges and ball sockets the bounds
// are angles in radians; for slides they are distances along the axis.
type LimitState struct {
	Enabled bool
	Lower   float64
	Upper   float64

	applyImpulse bool
	lowerOn      bool
	limitAxis    mgl64.Vec3
	position     float64
	position2    float64
}

// Position is the measured joint coordinate from the last step.
func (l *LimitState) Position() float64 { return l.position }

// Active reports whether the limit pushed back on the last step.
func (l *LimitState) Active() bool { return l.applyImpulse }

// Motor drives a joint axis toward a target relative velocity with at most
// MaxForce (a torque for hinges). A MaxForce of zero or less is unlimited.
type Motor struct {
	Enabled        bool
	DesireVelocity float64
	MaxForce       float64
}

// updateCurrentPosition refreshes the world joint frames and the measured
// joint coordinate used by the limits.
func (c *Constraint) updateCurrentPosition() {
	c.frameAWorld = c.bodyA.b2w.Mul(c.frameA)
	if c.bodyB.IsNone() {
		c.frameBWorld = c.frameB
	} else {
		c.frameBWorld = c.bodyB.Transform().Mul(c.frameB)
	}

	ls := &c.limits[0]
	ax, bx := c.frameAWorld.Axis(0), c.frameBWorld.Axis(0)
	ay, by := c.frameAWorld.Axis(1), c.frameBWorld.Axis(1)

	switch c.jtype {
	case JointHinge:
		ls.limitAxis = normalizeOrZero(ay.Add(by))
		dot := ax.Dot(bx)
		switch {
		case dot > 1-zeroTolerance:
			ls.position, ls.position2 = 0, 0
		case dot < -1+zeroTolerance:
			ls.position, ls.position2 = math.Pi, -math.Pi
		default:
			cross := normalizeOrZero(bx.Cross(ax))
			t := math.Acos(clamp(dot, -1, 1))
			if ls.limitAxis.Dot(cross) > 0 {
				ls.position, ls.position2 = t, t
			} else {
				ls.position, ls.position2 = 2*math.Pi-t, -t
			}
		}
	case JointBallSocket:
		dot := ax.Dot(bx)
		switch {
		case dot > 1-zeroTolerance:
			ls.limitAxis = ay
			ls.position = 0
		case dot < -1+zeroTolerance:
			ls.limitAxis = ay
			ls.position = math.Pi
		default:
			ls.limitAxis = normalizeOrZero(bx.Cross(ax))
			ls.position = math.Acos(clamp(dot, -1, 1))
		}
		ls.position2 = ls.position
	case JointSlide:
		ls.limitAxis = normalizeOrZero(ay.Add(by))
		ls.position = c.frameAWorld.Pos.Sub(c.frameBWorld.Pos).Dot(by)
		ls.position2 = ls.position
	}
}

// checkLimit emits the limit rows that are currently violated.
func (c *Constraint) checkLimit(s *Simulator) {
	switch c.jtype {
	case JointBallSocket, JointHinge:
		if c.limits[0].Enabled {
			c.checkLimitPrimary(s)
		}
		if c.jtype == JointBallSocket && c.limits[1].Enabled {
			c.checkLimitSecondary(s)
		}
	case JointSlide:
		if c.limits[0].Enabled {
			c.checkLimitPrimarySlider(s)
		}
	}
}

// checkLimitPrimary bounds the swing angle of a ball socket or the rotation
// of a hinge.
func (c *Constraint) checkLimitPrimary(s *Simulator) {
	ls := &c.limits[0]
	ls.applyImpulse = false

	p := ls.position2
	if ls.Lower > 0 || c.jtype == JointBallSocket {
		p = ls.position
	}

	var rot float64
	switch {
	case p < ls.Lower:
		ls.lowerOn = true
		rot = -(ls.Lower - p)
	case p > ls.Upper:
		ls.lowerOn = false
		rot = p - ls.Upper
	default:
		return
	}
	ls.applyImpulse = true

	cr := c.newResult(ImpulseAngularLimitPrimary)
	cr.ContactBBody = ls.limitAxis
	cr.Depth = rot
	cr.prepareForSolver(s, false, false)
	s.addJointResult(cr)
}

// checkLimitSecondary bounds the twist of a ball socket. A's twist axis is
// rotated back by the swing angle and compared against B's.
func (c *Constraint) checkLimitSecondary(s *Simulator) {
	ls := &c.limits[1]
	ls.applyImpulse = false

	ay, by := c.frameAWorld.Axis(1), c.frameBWorld.Axis(1)
	if ay.Dot(by) < 0 {
		return
	}
	q := mgl64.QuatRotate(-c.limits[0].position, c.limits[0].limitAxis)
	za := q.Rotate(c.frameAWorld.Axis(2))
	bz := c.frameBWorld.Axis(2)
	dot := bz.Dot(za)

	var angle float64
	switch {
	case dot > 1-zeroTolerance:
		angle = 0
	case dot < -1+zeroTolerance:
		angle = math.Pi
	default:
		cross := normalizeOrZero(bz.Cross(za))
		angle = math.Acos(clamp(dot, -1, 1))
		if c.frameAWorld.Axis(0).Dot(cross) < 0 {
			angle = -angle
		}
	}

	var depth float64
	switch {
	case angle > ls.Lower:
		depth = angle - ls.Lower
	case angle < -ls.Lower:
		depth = angle + ls.Lower
	default:
		return
	}
	ls.applyImpulse = true
	ls.position = angle

	cr := c.newResult(ImpulseAngularLimitSecondary)
	cr.ContactBBody = c.frameBWorld.Axis(0)
	cr.ContactABody = c.frameAWorld.Axis(0)
	cr.Depth = depth
	cr.ImpulseScale = depth
	cr.K = q.Mat4().Mat3()
	cr.prepareForSolver(s, false, false)
	s.addJointResult(cr)
}

// checkLimitPrimarySlider bounds the travel of a slide joint.
func (c *Constraint) checkLimitPrimarySlider(s *Simulator) {
	ls := &c.limits[0]
	by := c.frameBWorld.Axis(1)
	d := c.frameAWorld.Pos.Sub(c.frameBWorld.Pos).Dot(by)

	var depth, sign float64
	switch {
	case d > ls.Upper:
		depth, sign = d-ls.Upper, 1
		ls.lowerOn = false
	case d < ls.Lower:
		depth, sign = ls.Lower-d, -1
		ls.lowerOn = true
	default:
		ls.applyImpulse = false
		return
	}
	ls.applyImpulse = true
	depth = min(depth, maxSliderLimitDepth)

	cr := c.newResult(ImpulseSliderLimitPrimary)
	cr.ContactA = c.frameAWorld.Pos.Sub(c.bodyA.b2w.Pos)
	if c.bodyB.IsNone() {
		cr.ContactB = c.frameBWorld.Pos
	} else {
		cr.ContactB = c.frameBWorld.Pos.Sub(c.bodyB.Transform().Pos)
	}
	cr.ContactBWorld = by.Mul(sign)
	cr.Depth = depth
	cr.prepareForSolver(s, false, false)
	s.addJointResult(cr)
}

// addMotor emits the primary motor row unless the motor pushes further into
// an active limit.
func (c *Constraint) addMotor(s *Simulator) {
	m := &c.motors[0]
	if !m.Enabled {
		return
	}
	ls := &c.limits[0]
	if ls.Enabled && ls.applyImpulse {
		if ls.lowerOn && m.DesireVelocity < 0 {
			return
		}
		if !ls.lowerOn && m.DesireVelocity > 0 {
			return
		}
	}

	var cr CollisionResult
	switch c.jtype {
	case JointHinge:
		cr = c.newResult(ImpulseAngularMotorPrimary)
	case JointSlide:
		cr = c.newResult(ImpulseRelativeLinearVelocity)
	default:
		return
	}
	cr.FinalRelativeSpeed = m.DesireVelocity
	cr.Depth = m.MaxForce
	cr.ContactBBody = c.frameBWorld.Axis(1)
	cr.ContactABody = c.frameAWorld.Axis(1)
	cr.prepareForSolver(s, false, false)
	s.addJointResult(cr)
}

// applyDamping adds a torque opposing the relative angular velocity about
// the joint's free axes.
func (c *Constraint) applyDamping() {
	if c.damping == 0 {
		return
	}
	wa := c.bodyA.angularVel
	wb := angularVel(c.bodyB)

	var rel mgl64.Vec3
	switch c.jtype {
	case JointBallSocket:
		rel = wa.Sub(wb)
	case JointHinge:
		axis := normalizeOrZero(c.frameAWorld.Axis(1).Add(c.frameBWorld.Axis(1)))
		rel = axis.Mul(wa.Dot(axis)).Sub(axis.Mul(wb.Dot(axis)))
	default:
		return
	}
	t := rel.Mul(c.damping)
	c.bodyA.totalTorque = c.bodyA.totalTorque.Sub(t)
	if rb := c.bodyB.Rigid(); rb != nil {
		rb.totalTorque = rb.totalTorque.Add(t)
	}
}
