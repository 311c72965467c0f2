package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/integrators"
)

type BodyStatus uint8

const (
	StatusNormal BodyStatus = iota
	StatusIdle
	StatusAnimated
)

func (s BodyStatus) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusIdle:
		return "idle"
	case StatusAnimated:
		return "animated"
	}
	return "unknown"
}

const (
	maxRestRecords = 3
	maxPastRecords = 10

	defaultMass          = 1.0
	defaultSleepingParam = 0.2
)

type pastState struct {
	pos     mgl64.Vec3
	rot     mgl64.Quat
	vel     mgl64.Vec3
	angVel  mgl64.Vec3
	counter int
}

// RigidBody is a dynamic body. Its world inverse inertia is re-derived from
// the orientation every time the orientation changes.
type RigidBody struct {
	bodyBase

	particle bool

	mass      float64
	oneOnMass float64
	ibody     mgl64.Mat3
	ibodyInv  mgl64.Mat3

	q          mgl64.Quat
	angularMom mgl64.Vec3

	linearVel  mgl64.Vec3
	angularVel mgl64.Vec3
	qDot       mgl64.Quat
	iinv       mgl64.Mat3
	acc        mgl64.Vec3

	force   mgl64.Vec3
	torque  mgl64.Vec3
	gforce  mgl64.Vec3
	cforce  mgl64.Vec3
	ctorque mgl64.Vec3

	totalForce  mgl64.Vec3
	totalTorque mgl64.Vec3

	gravityOn     bool
	status        BodyStatus
	linearDamp    float64
	angularDamp   float64
	sleepingParam float64

	header    *ConstraintHeader
	stackInfo *StackInfo
	rest      [maxRestRecords]RestRecord
	hull      RestHull

	velRecord    [maxPastRecords]mgl64.Vec3
	angVelRecord [maxPastRecords]mgl64.Vec3
	dvRecord     [maxPastRecords]mgl64.Vec3
	davRecord    [maxPastRecords]mgl64.Vec3

	lowEnergyCounter int
	old              pastState

	isShifted               bool
	isShifted2              bool
	needSolveContactDynamic bool

	controllers []*Controller
	sensors     []*Sensor

	unstableLogged bool
}

func (rb *RigidBody) init(h Handle, id int, particle bool) {
	rb.bodyBase = bodyBase{
		handle: h,
		id:     id,
		kind:   KindRigid,
		active: true,
		b2w:    IdentityTransform(),
	}
	rb.particle = particle
	rb.q = mgl64.QuatIdent()
	rb.gravityOn = true
	rb.sleepingParam = defaultSleepingParam
	rb.SetMass(defaultMass)
	rb.SetInertiaTensor(mgl64.Ident3())
	for i := range rb.rest {
		rb.rest[i] = RestRecord{}
	}
	rb.syncOldState()
}

func (rb *RigidBody) IsParticle() bool   { return rb.particle }
func (rb *RigidBody) Mass() float64      { return rb.mass }
func (rb *RigidBody) Status() BodyStatus { return rb.status }
func (rb *RigidBody) IsIdle() bool       { return rb.status == StatusIdle }

func (rb *RigidBody) Rotation() mgl64.Quat            { return rb.q }
func (rb *RigidBody) Velocity() mgl64.Vec3            { return rb.linearVel }
func (rb *RigidBody) AngularVelocity() mgl64.Vec3     { return rb.angularVel }
func (rb *RigidBody) AngularMomentum() mgl64.Vec3     { return rb.angularMom }
func (rb *RigidBody) InverseInertiaWorld() mgl64.Mat3 { return rb.iinv }
func (rb *RigidBody) Force() mgl64.Vec3               { return rb.force }
func (rb *RigidBody) Torque() mgl64.Vec3              { return rb.torque }
func (rb *RigidBody) RestHull() RestHull              { return rb.hull }
func (rb *RigidBody) ConstraintHeader() *ConstraintHeader {
	return rb.header
}
func (rb *RigidBody) StackInfo() *StackInfo { return rb.stackInfo }

// LinearMomentum returns m·v.
func (rb *RigidBody) LinearMomentum() mgl64.Vec3 {
	return rb.linearVel.Mul(rb.mass)
}

func (rb *RigidBody) SetMass(m float64) bool {
	if m <= 0 || !finite(m) {
		return false
	}
	rb.mass = m
	rb.oneOnMass = 1 / m
	return true
}

// SetInertiaTensor sets the body-space inertia. Singular tensors are rejected.
func (rb *RigidBody) SetInertiaTensor(i mgl64.Mat3) bool {
	inv, ok := invert(i)
	if !ok {
		return false
	}
	rb.ibody = i
	rb.ibodyInv = inv
	rb.updateDerive()
	return true
}

// BoxInertiaTensor is the inertia of a solid box with half extents h.
func BoxInertiaTensor(h mgl64.Vec3, mass float64) mgl64.Mat3 {
	x, y, z := 2*h[0], 2*h[1], 2*h[2]
	return mgl64.Diag3(mgl64.Vec3{
		mass * (y*y + z*z) / 12,
		mass * (x*x + z*z) / 12,
		mass * (x*x + y*y) / 12,
	})
}

// SphereInertiaTensor is the inertia of a solid sphere of radius r.
func SphereInertiaTensor(r, mass float64) mgl64.Mat3 {
	i := 0.4 * mass * r * r
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (rb *RigidBody) Geometry() Geometry { return rb.geometry }

func (rb *RigidBody) SetGeometry(g Geometry) {
	rb.geometry = g
}

func (rb *RigidBody) SetPos(p mgl64.Vec3) {
	rb.b2w.Pos = p
	rb.WakeUp()
}

func (rb *RigidBody) SetRotation(q mgl64.Quat) {
	rb.q = q
	rb.updateDerive()
	rb.WakeUp()
}

func (rb *RigidBody) SetVelocity(v mgl64.Vec3) {
	rb.linearVel = v
	rb.WakeUp()
}

// SetAngularVelocity sets L = I·w for the current orientation.
func (rb *RigidBody) SetAngularVelocity(w mgl64.Vec3) {
	r := rb.b2w.Rot
	iw := r.Mul3(rb.ibody).Mul3(r.Transpose())
	rb.setAngMom(iw.Mul3x1(w))
	rb.WakeUp()
}

func (rb *RigidBody) SetAngularMomentum(l mgl64.Vec3) {
	rb.setAngMom(l)
	rb.WakeUp()
}

// SetForce sets a persistent applied force. A non-zero force wakes the body.
func (rb *RigidBody) SetForce(f mgl64.Vec3) {
	rb.force = f
	if !vecIsZero(f) {
		rb.WakeUp()
	}
}

// SetForceAtPoint sets the applied force and the torque it produces about
// the body origin when applied at world point p.
func (rb *RigidBody) SetForceAtPoint(f, p mgl64.Vec3) {
	rb.SetForce(f)
	rb.SetTorque(p.Sub(rb.b2w.Pos).Cross(f))
}

func (rb *RigidBody) SetTorque(t mgl64.Vec3) {
	rb.torque = t
	if !vecIsZero(t) {
		rb.WakeUp()
	}
}

// ApplyImpulse applies an instantaneous impulse at world point p.
func (rb *RigidBody) ApplyImpulse(impulse, p mgl64.Vec3) {
	rb.WakeUp()
	rb.applyImpulse(impulse, p.Sub(rb.b2w.Pos))
}

func (rb *RigidBody) GravityEnable(yes bool)         { rb.gravityOn = yes }
func (rb *RigidBody) SetLinearDamping(d float64)     { rb.linearDamp = clamp(d, 0, 1) }
func (rb *RigidBody) SetAngularDamping(d float64)    { rb.angularDamp = clamp(d, 0, 1) }
func (rb *RigidBody) SetSleepingParameter(p float64) { rb.sleepingParam = p }
func (rb *RigidBody) SleepingParameter() float64     { return rb.sleepingParam }

// VelocityAtPoint returns v + w × p for a world offset p from the origin.
func (rb *RigidBody) VelocityAtPoint(p mgl64.Vec3) mgl64.Vec3 {
	return rb.linearVel.Add(rb.angularVel.Cross(p))
}

func (rb *RigidBody) updateDerive() {
	rb.q = rb.q.Normalize()
	rb.b2w.Rot = rb.q.Mat4().Mat3()
	rb.iinv = rb.b2w.Rot.Mul3(rb.ibodyInv).Mul3(rb.b2w.Rot.Transpose())
	rb.angularVel = rb.iinv.Mul3x1(rb.angularMom)
	rb.qDot = integrators.QuatDerivative(rb.angularVel, rb.q)
}

// setAngMom sets the angular momentum and the rates derived from it.
func (rb *RigidBody) setAngMom(l mgl64.Vec3) {
	rb.angularMom = l
	rb.angularVel = rb.iinv.Mul3x1(l)
	rb.qDot = integrators.QuatDerivative(rb.angularVel, rb.q)
}

// advanceDynamic integrates velocity and angular momentum over dt.
func (rb *RigidBody) advanceDynamic(s *Simulator, dt float64) {
	rb.old.counter++

	if rb.status == StatusIdle {
		if !vecIsZero(rb.cforce) || !vecIsZero(rb.ctorque) || !vecIsZero(rb.force) || !vecIsZero(rb.torque) {
			rb.WakeUp()
		}
	}
	if rb.status == StatusIdle && rb.checkStillIdle(s) {
		return
	}
	if rb.status == StatusAnimated {
		return
	}

	rec := s.currentRecord
	rb.dvRecord[rec] = mgl64.Vec3{}
	rb.davRecord[rec] = mgl64.Vec3{}

	saved := rb.snapshot()

	rb.gforce = mgl64.Vec3{}
	if rb.gravityOn {
		rb.gforce = s.gravity.Mul(rb.mass)
	}
	rb.totalForce = rb.totalForce.Add(rb.force).Add(rb.gforce).Add(rb.cforce)
	rb.dvRecord[rec] = rb.totalForce.Mul(rb.oneOnMass * dt)
	rb.acc = rb.totalForce.Mul(rb.oneOnMass)
	rb.linearVel = integrators.Velocity(rb.linearVel, rb.acc, rb.linearDamp, dt)

	rb.totalTorque = rb.totalTorque.Add(rb.torque).Add(rb.ctorque)

	rb.angularMom = rb.angularMom.Mul(1 - rb.angularDamp)
	next := s.angular.Step(integrators.AngularState{
		Q:    rb.q,
		L:    rb.angularMom,
		W:    rb.angularVel,
		QDot: rb.qDot,
	}, rb.totalTorque, rb.ibodyInv, dt)
	rb.angularMom = next.L
	rb.angularVel = next.W
	rb.qDot = next.QDot

	if !vecFinite(rb.linearVel) || !vecFinite(rb.angularMom) || !vecFinite(rb.angularVel) {
		rb.restore(saved)
		s.reportInstability(rb, "advance dynamic")
	}
}

// advancePosition integrates position and orientation, runs body
// controllers and records the velocity sample used by idle detection.
func (rb *RigidBody) advancePosition(s *Simulator, dt float64) {
	saved := rb.snapshot()

	rb.b2w.Pos = integrators.Position(rb.b2w.Pos, rb.linearVel, rb.acc, dt)

	rb.setAngMom(rb.angularMom)
	rb.q = integrators.Orientation(rb.q, rb.qDot, dt)
	rb.updateDerive()

	if !vecFinite(rb.b2w.Pos) || !finite(rb.q.W) || !vecFinite(rb.q.V) || !vecFinite(rb.angularVel) {
		rb.restore(saved)
		s.reportInstability(rb, "advance position")
	}

	rb.updateController(s)

	rb.velRecord[s.currentRecord] = rb.linearVel
	rb.angVelRecord[s.currentRecord] = rb.angularVel
}

// updateController refreshes gravity and controller forces for the next step.
func (rb *RigidBody) updateController(s *Simulator) {
	if rb.gravityOn && rb.status != StatusIdle {
		rb.gforce = s.gravity.Mul(rb.mass)
	} else {
		rb.gforce = mgl64.Vec3{}
	}
	rb.cforce = mgl64.Vec3{}
	rb.ctorque = mgl64.Vec3{}

	for _, c := range rb.controllers {
		c.tick(s)
		rb.cforce = rb.cforce.Add(c.ForceA)
		rb.ctorque = rb.ctorque.Add(c.TorqueA)
	}
}

// ApplyCollisionImpulse applies impulse at world offset contact and records
// the velocity change for idle detection. Non-finite results are rejected.
func (rb *RigidBody) ApplyCollisionImpulse(s *Simulator, impulse, contact mgl64.Vec3) bool {
	dv := impulse.Mul(rb.oneOnMass)
	da := contact.Cross(impulse)
	newAM := rb.angularMom.Add(da)
	if !vecFinite(dv) || !vecFinite(newAM) {
		s.reportInstability(rb, "collision impulse")
		return false
	}

	rb.linearVel = rb.linearVel.Add(dv)
	rb.dvRecord[s.currentRecord] = rb.dvRecord[s.currentRecord].Add(dv)
	rb.davRecord[s.currentRecord] = rb.davRecord[s.currentRecord].Add(rb.iinv.Mul3x1(da))
	rb.setAngMom(newAM)
	return true
}

// applyImpulse is the solver fast path: no bookkeeping beyond the state.
func (rb *RigidBody) applyImpulse(impulse, contact mgl64.Vec3) {
	rb.linearVel = rb.linearVel.Add(impulse.Mul(rb.oneOnMass))
	rb.angularMom = rb.angularMom.Add(contact.Cross(impulse))
	rb.angularVel = rb.iinv.Mul3x1(rb.angularMom)
}

// applyAngular adds dl to the angular momentum.
func (rb *RigidBody) applyAngular(s *Simulator, dl mgl64.Vec3) {
	rb.setAngMom(rb.angularMom.Add(dl))
	rb.davRecord[s.currentRecord] = rb.davRecord[s.currentRecord].Add(rb.iinv.Mul3x1(dl))
}

// UpdateAABB recomputes the world bounds from the current pose.
func (rb *RigidBody) UpdateAABB() {
	if !rb.hasCollision() {
		return
	}
	rb.aabb = obbBounds(rb.b2w, rb.geometry.HalfExtents)
}

// WakeUp returns the body to Normal status.
func (rb *RigidBody) WakeUp() {
	if rb.status == StatusAnimated {
		return
	}
	rb.status = StatusNormal
	rb.lowEnergyCounter = 0
	rb.syncOldState()
}

// wakeUpAllJoint wakes every body in the joint chain of rb.
func (rb *RigidBody) wakeUpAllJoint() {
	if rb.header == nil {
		rb.WakeUp()
		return
	}
	rb.header.WakeUp()
}

// SetAnimated hands the body's motion to the caller.
func (rb *RigidBody) SetAnimated(yes bool) {
	if yes {
		rb.status = StatusAnimated
		rb.zeroMotion()
		return
	}
	rb.status = StatusNormal
	rb.WakeUp()
}

func (rb *RigidBody) syncOldState() {
	rb.old = pastState{
		pos:    rb.b2w.Pos,
		rot:    rb.q,
		vel:    rb.linearVel,
		angVel: rb.angularVel,
	}
}

// BecomeIdle puts the body to sleep and zeroes its motion.
func (rb *RigidBody) BecomeIdle() {
	rb.status = StatusIdle
	rb.zeroMotion()
}

func (rb *RigidBody) zeroMotion() {
	rb.angularVel = mgl64.Vec3{}
	rb.linearVel = mgl64.Vec3{}
	rb.qDot = mgl64.Quat{}
	rb.angularMom = mgl64.Vec3{}
	for i := 0; i < maxPastRecords; i++ {
		rb.velRecord[i] = mgl64.Vec3{}
		rb.angVelRecord[i] = mgl64.Vec3{}
		rb.dvRecord[i] = mgl64.Vec3{}
	}
}

type bodySnapshot struct {
	pos        mgl64.Vec3
	q          mgl64.Quat
	linearVel  mgl64.Vec3
	angularMom mgl64.Vec3
}

func (rb *RigidBody) snapshot() bodySnapshot {
	return bodySnapshot{pos: rb.b2w.Pos, q: rb.q, linearVel: rb.linearVel, angularMom: rb.angularMom}
}

// restore rewinds to s and drops the motion that produced the bad state.
func (rb *RigidBody) restore(s bodySnapshot) {
	rb.b2w.Pos = s.pos
	rb.q = s.q
	rb.linearVel = mgl64.Vec3{}
	rb.angularMom = mgl64.Vec3{}
	rb.acc = mgl64.Vec3{}
	if !vecFinite(s.linearVel) || !vecFinite(s.angularMom) {
		rb.zeroMotion()
	}
	rb.updateDerive()
}

func (s *Simulator) reportInstability(rb *RigidBody, where string) {
	err := &dynamo.StepError{
		Step:    s.stepSoFar,
		Time:    s.elapsed,
		Body:    rb.id,
		Wrapped: dynamo.ErrNumericalInstability,
	}
	s.stepErrs = append(s.stepErrs, err)
	if !rb.unstableLogged {
		rb.unstableLogged = true
		s.logError(LogOne, err, msgNumericalInstability, "body", rb.id, "stage", where)
	}
}
