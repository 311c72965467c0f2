package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

type JointType uint8

const (
	JointBallSocket JointType = iota
	JointHinge
	JointSlide
)

func (t JointType) String() string {
	switch t {
	case JointBallSocket:
		return "ball-socket"
	case JointHinge:
		return "hinge"
	case JointSlide:
		return "slide"
	}
	return "unknown"
}

// ParseJointType accepts the names returned by JointType.String.
func ParseJointType(s string) (JointType, bool) {
	for _, t := range []JointType{JointBallSocket, JointHinge, JointSlide} {
		if t.String() == s {
			return t, true
		}
	}
	return JointBallSocket, false
}

const defaultJointLength = 1.0

// Constraint binds a rigid body A to a body B: another rigid body, a
// collision body, or the world when B is the zero BodyRef. It is created
// detached; Enable(true) computes its points and links it into a
// ConstraintHeader.
type Constraint struct {
	handle Handle
	id     int
	jtype  JointType

	bodyA *RigidBody
	bodyB BodyRef

	frameA      Transform
	frameB      Transform
	frameAWorld Transform
	frameBWorld Transform
	jointLength float64

	pointCount   int
	cpointsA     [2]mgl64.Vec3
	cpointsB     [2]mgl64.Vec3
	worldPointsA [2]mgl64.Vec3
	worldPointsB [2]mgl64.Vec3

	limits [2]LimitState
	motors [2]Motor

	enabled          bool
	alreadySetup     bool
	collideConnected bool
	damping          float64
	accuracy         float64
	iteration        int

	header      *ConstraintHeader
	controllers []*Controller
}

func (c *Constraint) init(h Handle, id int, t JointType, a *RigidBody, b BodyRef) {
	*c = Constraint{
		handle:      h,
		id:          id,
		jtype:       t,
		bodyA:       a,
		bodyB:       b,
		frameA:      IdentityTransform(),
		frameB:      IdentityTransform(),
		jointLength: defaultJointLength,
		pointCount:  pointCountFor(t),
		iteration:   -1,
	}
}

// pointCountFor is 1 for ball sockets and 2 for hinges and slides.
func pointCountFor(t JointType) int {
	if t == JointBallSocket {
		return 1
	}
	return 2
}

func (c *Constraint) ID() int                   { return c.id }
func (c *Constraint) Type() JointType           { return c.jtype }
func (c *Constraint) BodyA() *RigidBody         { return c.bodyA }
func (c *Constraint) BodyB() BodyRef            { return c.bodyB }
func (c *Constraint) Enabled() bool             { return c.enabled }
func (c *Constraint) PointCount() int           { return c.pointCount }
func (c *Constraint) Header() *ConstraintHeader { return c.header }
func (c *Constraint) JointLength() float64      { return c.jointLength }
func (c *Constraint) Limit(i int) LimitState    { return c.limits[i&1] }
func (c *Constraint) Motor(i int) Motor         { return c.motors[i&1] }
func (c *Constraint) Damping() float64          { return c.damping }
func (c *Constraint) Iteration() int            { return c.iteration }
func (c *Constraint) FrameAWorld() Transform    { return c.frameAWorld }
func (c *Constraint) FrameBWorld() Transform    { return c.frameBWorld }

// WorldPoints returns the world positions of constraint point i on A and B.
func (c *Constraint) WorldPoints(i int) (a, b mgl64.Vec3) {
	return c.worldPointsA[i], c.worldPointsB[i]
}

// SetFrameA sets the joint frame in A's body space.
func (c *Constraint) SetFrameA(f Transform) { c.frameA = f }

// SetFrameB sets the joint frame in B's body space, or in world space when B
// is the world.
func (c *Constraint) SetFrameB(f Transform) { c.frameB = f }

// SetFrameWorld places the joint at a world frame, deriving both body frames
// from the current poses.
func (c *Constraint) SetFrameWorld(f Transform) {
	c.frameA = c.bodyA.b2w.Inverse().Mul(f)
	if c.bodyB.IsNone() {
		c.frameB = f
		return
	}
	c.frameB = c.bodyB.Transform().Inverse().Mul(f)
}

func (c *Constraint) SetJointLength(l float64) {
	if l > 0 {
		c.jointLength = l
	}
}

// SetLimit configures limit i: 0 is the primary axis, 1 the ball-socket twist.
func (c *Constraint) SetLimit(i int, lower, upper float64, enabled bool) bool {
	if i < 0 || i > 1 {
		return false
	}
	ls := &c.limits[i]
	ls.Lower, ls.Upper, ls.Enabled = lower, upper, enabled
	c.wakeBodies()
	return true
}

// SetMotor configures the primary motor. Ball sockets have none.
func (c *Constraint) SetMotor(desire, maxForce float64, enabled bool) bool {
	if c.jtype == JointBallSocket {
		return false
	}
	c.motors[0] = Motor{Enabled: enabled, DesireVelocity: desire, MaxForce: maxForce}
	c.wakeBodies()
	return true
}

func (c *Constraint) SetDampingFactor(d float64) { c.damping = max(d, 0) }

// SetAccuracy is recorded for callers; the solver corrects position error
// with fixed convergence factors.
func (c *Constraint) SetAccuracy(a float64) { c.accuracy = a }
func (c *Constraint) Accuracy() float64     { return c.accuracy }

// SetIteration overrides the solver sweeps for this joint's chain; -1 restores
// the default.
func (c *Constraint) SetIteration(n int) {
	if n < 1 {
		n = -1
	}
	c.iteration = n
}

// SetCollideConnected lets the two jointed bodies collide with each other.
func (c *Constraint) SetCollideConnected(yes bool) { c.collideConnected = yes }

func (c *Constraint) CollideConnected() bool { return c.collideConnected }

func (c *Constraint) wakeBodies() {
	if c.bodyA != nil && c.bodyA.status == StatusIdle {
		c.bodyA.wakeUpAllJoint()
	}
	if rb := c.bodyB.Rigid(); rb != nil && rb.status == StatusIdle {
		rb.wakeUpAllJoint()
	}
}

// Enable switches the joint on or off. The first enable computes the local
// points and links the joint into a ConstraintHeader.
func (c *Constraint) Enable(s *Simulator, yes bool) {
	if c.bodyA == nil || c.enabled == yes {
		return
	}
	if c.alreadySetup {
		c.enabled = yes
		c.wakeBodies()
		return
	}
	if !yes {
		return
	}
	c.generatePointsFromFrame()
	if !c.addToRigidBody(s) {
		return
	}
	c.alreadySetup = true
	c.enabled = true
	c.wakeBodies()
}

// generatePointsFromFrame derives the body-space constraint points. Hinge
// and slide points sit half the joint length either side of the frame
// origin along the frame's y axis.
func (c *Constraint) generatePointsFromFrame() {
	switch c.jtype {
	case JointBallSocket:
		c.cpointsA[0] = c.frameA.Pos
		c.cpointsB[0] = c.frameB.Pos
	case JointHinge:
		h := c.jointLength / 2
		ya, yb := c.frameA.Axis(1).Mul(h), c.frameB.Axis(1).Mul(h)
		c.cpointsA[0] = c.frameA.Pos.Add(ya)
		c.cpointsA[1] = c.frameA.Pos.Sub(ya)
		c.cpointsB[0] = c.frameB.Pos.Add(yb)
		c.cpointsB[1] = c.frameB.Pos.Sub(yb)
	case JointSlide:
		h := c.jointLength / 2
		ya := c.frameA.Axis(1).Mul(h)
		c.cpointsA[0] = c.frameA.Pos.Add(ya)
		c.cpointsA[1] = c.frameA.Pos.Sub(ya)
	}
}

// addToRigidBody links the joint and its rigid bodies into a header,
// merging the headers of A and B when they differ.
func (c *Constraint) addToRigidBody(s *Simulator) bool {
	a := c.bodyA
	a.addConstraint(c)
	if b := c.bodyB.base(); b != nil {
		b.addConstraint(c)
	}

	h := a.header
	bb := c.bodyB.Rigid()

	switch {
	case bb == nil || bb.header == nil:
		if h == nil {
			h = s.newConstraintHeader()
			if h == nil {
				return false
			}
		}
	case h == nil:
		h = bb.header
	case h != bb.header:
		h = s.mergeConstraintHeaders(h, bb.header)
	}

	h.add(c)
	h.addBody(a)
	if bb != nil {
		h.addBody(bb)
	}
	h.needSetup = true
	return true
}

// updateConstraintPoint moves the local points into world space.
func (c *Constraint) updateConstraintPoint() {
	for i := 0; i < c.pointCount; i++ {
		c.worldPointsA[i] = c.bodyA.b2w.Apply(c.cpointsA[i])
	}
	if c.jtype == JointSlide {
		return
	}
	tb := c.bodyB.Transform()
	for i := 0; i < c.pointCount; i++ {
		c.worldPointsB[i] = tb.Apply(c.cpointsB[i])
	}
}

func (c *Constraint) newResult(t ImpulseType) CollisionResult {
	return CollisionResult{
		BodyA:        RigidRef(c.bodyA),
		BodyB:        c.bodyB,
		Type:         t,
		ImpulseScale: 1,
	}
}

// findGreatest emits the point rows for this step, then the limit and motor
// rows, and pulls in the rest contacts of the jointed bodies.
func (c *Constraint) findGreatest(s *Simulator) {
	posA := c.bodyA.b2w.Pos
	bb := c.bodyB.Rigid()

	switch c.jtype {
	case JointBallSocket, JointHinge:
		for i := 0; i < c.pointCount; i++ {
			pa, pb := c.worldPointsA[i], c.worldPointsB[i]
			cr := c.newResult(ImpulseConstraint)
			cr.ContactA = pa.Sub(posA)
			if bb != nil {
				cr.ContactB = pb.Sub(bb.b2w.Pos)
			} else {
				cr.ContactB = pb
				cr.ContactBWorld = pb
			}
			cr.ContactAWorld = pa.Sub(pb)
			cr.Depth = cr.ContactAWorld.Len()
			cr.prepareForSolver(s, false, false)
			s.addJointResult(cr)
		}
	case JointSlide:
		axis := c.frameBWorld.Axis(1)
		origin := c.frameBWorld.Pos
		for i := 0; i < c.pointCount; i++ {
			pa := c.worldPointsA[i]
			pb := axis.Mul(pa.Sub(origin).Dot(axis)).Add(origin)
			c.worldPointsB[i] = pb
			cr := c.newResult(ImpulseSlider)
			cr.ContactA = pa.Sub(posA)
			if bb != nil {
				cr.ContactB = pb.Sub(bb.b2w.Pos)
			} else {
				cr.ContactB = pb
			}
			cr.ContactAWorld = pa.Sub(pb)
			cr.FinalRelativeSpeed = cr.ContactAWorld.Len()
			cr.ContactBWorld = axis
			cr.prepareForSolver(s, false, false)
			s.addJointResult(cr)
		}
	}

	if c.limits[0].Enabled || c.limits[1].Enabled {
		c.checkLimit(s)
	}

	if c.bodyA.stackInfo != nil {
		c.bodyA.addContactConstraint(s)
	}
	if bb != nil && bb.stackInfo != nil {
		bb.addContactConstraint(s)
	}

	c.addMotor(s)
}

// updateControllers runs the joint controllers and feeds their forces to
// the bodies for the next step.
func (c *Constraint) updateControllers(s *Simulator) {
	for _, ctl := range c.controllers {
		ctl.tick(s)
		c.bodyA.cforce = c.bodyA.cforce.Add(ctl.ForceA)
		c.bodyA.ctorque = c.bodyA.ctorque.Add(ctl.TorqueA)
		if rb := c.bodyB.Rigid(); rb != nil {
			rb.cforce = rb.cforce.Add(ctl.ForceB)
			rb.ctorque = rb.ctorque.Add(ctl.TorqueB)
		}
	}
}

// connects reports whether the joint links the two bodies directly.
func (c *Constraint) connects(a, b BodyRef) bool {
	ca := RigidRef(c.bodyA)
	return (ca.Same(a) && c.bodyB.Same(b)) || (ca.Same(b) && c.bodyB.Same(a))
}
