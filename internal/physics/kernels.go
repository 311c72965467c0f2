package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// solveLocal measures the row's current relative velocity and runs the
// matching kernel. It is one Gauss-Seidel update: impulses are applied to
// the bodies immediately.
func (s *Simulator) solveLocal(cr *CollisionResult) {
	if cr.singular {
		return
	}
	switch cr.Type {
	case ImpulseContact, ImpulseConstraint, ImpulseSlider, ImpulseSliderLimitPrimary:
		rel := cr.BodyA.VelocityAtPoint(cr.ContactA).Sub(cr.BodyB.VelocityAtPoint(cr.ContactB))
		cr.InitRelVelWorld = rel
		switch cr.Type {
		case ImpulseContact:
			cr.InitRelVel = cr.W2C.Mul3x1(rel)
			s.solveContact(cr)
		case ImpulseSlider:
			cr.InitRelVel = removeComponent(rel, cr.ContactBWorld)
			s.solveSlider(cr)
		case ImpulseConstraint:
			cr.InitRelVel = rel
			s.solveConstraint(cr)
		case ImpulseSliderLimitPrimary:
			cr.FinalRelativeSpeed = -rel.Dot(cr.ContactBWorld)
			s.solveSliderLimit(cr)
		}
	case ImpulseAngularLimitPrimary:
		cr.RelativeSpeed = angularVel(cr.BodyA).Sub(angularVel(cr.BodyB)).Dot(cr.ContactBBody)
		s.solveAngular(cr)
	case ImpulseAngularLimitSecondary:
		s.solveAngular3(cr)
	case ImpulseAngularMotorPrimary:
		s.solveAngular2(cr)
	case ImpulseRelativeLinearVelocity:
		s.solveRelativeLinear(cr)
	}
}

func angularVel(r BodyRef) mgl64.Vec3 {
	if rb := r.Rigid(); rb != nil {
		return rb.angularVel
	}
	return mgl64.Vec3{}
}

func linearVel(r BodyRef) mgl64.Vec3 {
	if rb := r.Rigid(); rb != nil {
		return rb.linearVel
	}
	return mgl64.Vec3{}
}

// applyRow applies +impulse to A at ContactA and −impulse to B at ContactB
// through the fast path. A non-finite impulse is dropped.
func (s *Simulator) applyRow(cr *CollisionResult, impulse mgl64.Vec3, skipB bool) {
	if !vecFinite(impulse) {
		if rb := cr.rigidA(); rb != nil {
			s.reportInstability(rb, cr.Type.String())
		} else if rb := cr.rigidB(); rb != nil {
			s.reportInstability(rb, cr.Type.String())
		}
		return
	}
	if rb := cr.rigidA(); rb != nil {
		rb.applyImpulse(impulse, cr.ContactA)
	}
	if skipB {
		return
	}
	if rb := cr.rigidB(); rb != nil {
		rb.applyImpulse(impulse.Mul(-1), cr.ContactB)
	}
}

// applyRowAngular adds dlA to A's angular momentum and subtracts dlB from B's.
func (s *Simulator) applyRowAngular(cr *CollisionResult, dlA, dlB mgl64.Vec3, skipB bool) {
	if !vecFinite(dlA) || !vecFinite(dlB) {
		if rb := cr.rigidA(); rb != nil {
			s.reportInstability(rb, cr.Type.String())
		}
		return
	}
	if rb := cr.rigidA(); rb != nil {
		rb.applyAngular(s, dlA)
	}
	if skipB {
		return
	}
	if rb := cr.rigidB(); rb != nil {
		rb.applyAngular(s, dlB.Mul(-1))
	}
}

// positionBias turns a positional error into a correcting velocity, capping
// the correction at maxCorrection per step.
func (s *Simulator) positionBias(err mgl64.Vec3, depth float64) mgl64.Vec3 {
	tmp := err.Mul(convergeFactorJoint)
	l := depth * convergeFactorJoint
	if l > maxCorrection {
		tmp = err.Mul(maxCorrection / l)
	}
	return tmp.Mul(1 / s.dt)
}

func (s *Simulator) solveConstraint(cr *CollisionResult) {
	var impulse mgl64.Vec3
	if isZero(cr.Depth) {
		impulse = cr.KInv.Mul3x1(cr.InitRelVel).Mul(-1)
	} else {
		du := s.positionBias(cr.ContactAWorld, cr.Depth).Add(cr.InitRelVel.Mul(convergeFactorJoint))
		impulse = cr.KInv.Mul3x1(du).Mul(-1)
	}
	s.applyRow(cr, impulse, false)
}

// solveSlider is solveConstraint with the sliding axis left free.
func (s *Simulator) solveSlider(cr *CollisionResult) {
	var impulse mgl64.Vec3
	if isZero(cr.FinalRelativeSpeed) {
		impulse = cr.KInv.Mul3x1(cr.InitRelVel).Mul(-1)
	} else {
		du := s.positionBias(cr.ContactAWorld, cr.FinalRelativeSpeed).Add(cr.InitRelVel.Mul(convergeFactorJoint))
		impulse = cr.KInv.Mul3x1(du).Mul(-1)
	}
	impulse = removeComponent(impulse, cr.ContactBWorld)
	s.applyRow(cr, impulse, false)
}

func (s *Simulator) solveSliderLimit(cr *CollisionResult) {
	desire := cr.Depth / s.dt * convergeFactorLimit
	if desire <= cr.FinalRelativeSpeed {
		return
	}
	du := desire - cr.FinalRelativeSpeed*convergeFactorLimit
	impulse := cr.KInv.Mul3x1(cr.ContactBWorld.Mul(du)).Mul(-1)
	s.applyRow(cr, impulse, s.lastIteration)
}

// solveContact resolves the approaching part of the contact velocity with
// calcNormalImpulse and, in stage 1, pushes out residual penetration.
func (s *Simulator) solveContact(cr *CollisionResult) {
	var impulse1, impulse2 mgl64.Vec3

	if cr.InitRelVel[2] < 0 {
		impulse1 = s.calcNormalImpulse(cr, s.solverStage != 0)
		cr.InitRelVel[2] = 0
	}

	depth := min(cr.Depth, maxCorrection)
	adjusted := depth - thresholdContact*s.gravityMag
	if depth > 0 && adjusted > 0 && s.solverStage != 0 {
		desire := adjusted / s.dt * convergeFactorContact
		if desire > cr.InitRelVel[2] {
			du := mgl64.Vec3{0, 0, desire - cr.InitRelVel[2]*convergeFactorContact}
			impulse2 = cr.KInv.Mul3x1(du)
		}
	}

	impulse := cr.Frame.Mul3x1(impulse1.Add(impulse2))
	if cr.ImpulseScale > 0 {
		impulse = impulse.Mul(cr.ImpulseScale)
	}
	s.applyRow(cr, impulse, s.lastIteration)
}

func limitDeltaAngle(scaled, relAV, dt float64) (float64, bool) {
	switch {
	case scaled > 0 && relAV > 0, scaled < 0 && relAV < 0:
		return -scaled/dt - relAV*convergeFactorLimit, true
	}
	return 0, false
}

// solveAngular keeps the primary angular limit by removing the relative
// angular velocity that drives further into the limit.
func (s *Simulator) solveAngular(cr *CollisionResult) {
	if cr.Depth == 0 {
		return
	}
	da, ok := limitDeltaAngle(cr.Depth*convergeFactorLimit, cr.RelativeSpeed, s.dt)
	if !ok {
		return
	}
	dl := cr.KInv.Mul3x1(cr.ContactBBody.Mul(da))
	s.applyRowAngular(cr, dl, dl, false)
}

// solveAngular3 keeps the twist limit of a ball socket. K holds the rotation
// that maps B's twist frame onto A's.
func (s *Simulator) solveAngular3(cr *CollisionResult) {
	if cr.Depth == 0 {
		return
	}
	relAV := angularVel(cr.BodyA).Dot(cr.ContactABody) - angularVel(cr.BodyB).Dot(cr.ContactBBody)
	cr.RelativeSpeed = relAV
	scaled := clamp(cr.Depth*convergeFactorLimit, -maxSecondaryDepth, maxSecondaryDepth)
	da, ok := limitDeltaAngle(scaled, relAV, s.dt)
	if !ok {
		return
	}
	dl := cr.KInv.Mul3x1(cr.ContactBBody.Mul(da))
	s.applyRowAngular(cr, cr.K.Transpose().Mul3x1(dl), dl, false)
}

// clampTorque scales dl so that dl/dt stays within maxTorque. A maxTorque of
// zero or less means unlimited.
func clampTorque(dl mgl64.Vec3, maxTorque, dt float64) mgl64.Vec3 {
	if maxTorque <= 0 {
		return dl
	}
	torque := dl.Mul(1 / dt)
	mag := torque.Len()
	if mag > maxTorque {
		return torque.Mul(maxTorque * dt / mag)
	}
	return dl
}

// solveAngular2 drives a hinge motor toward FinalRelativeSpeed, limited to
// the motor torque held in Depth.
func (s *Simulator) solveAngular2(cr *CollisionResult) {
	relAV := angularVel(cr.BodyA).Dot(cr.ContactABody) - angularVel(cr.BodyB).Dot(cr.ContactBBody)
	cr.RelativeSpeed = relAV
	da := cr.FinalRelativeSpeed - relAV

	dlA := clampTorque(cr.KInv.Mul3x1(cr.ContactABody.Mul(da)), cr.Depth, s.dt)
	dlB := clampTorque(cr.KInv.Mul3x1(cr.ContactBBody.Mul(da)), cr.Depth, s.dt)
	s.applyRowAngular(cr, dlA, dlB, false)
}

// solveRelativeLinear drives a slide motor toward FinalRelativeSpeed along
// ContactABody, limited to the motor force held in Depth.
func (s *Simulator) solveRelativeLinear(cr *CollisionResult) {
	axis := cr.ContactABody
	speed := linearVel(cr.BodyA).Dot(axis) - linearVel(cr.BodyB).Dot(axis)
	cr.RelativeSpeed = speed
	mag := cr.KInv.At(0, 0) * (cr.FinalRelativeSpeed - speed)

	var impulse mgl64.Vec3
	switch {
	case cr.Depth > 0 && mag > cr.Depth*s.dt:
		impulse = axis.Mul(cr.Depth * s.dt)
	case cr.Depth > 0 && mag < -cr.Depth*s.dt:
		impulse = axis.Mul(-cr.Depth * s.dt)
	default:
		impulse = axis.Mul(mag)
	}

	if !vecFinite(impulse) {
		s.applyRow(cr, impulse, false)
		return
	}
	if rb := cr.rigidA(); rb != nil {
		rb.applyImpulse(impulse, mgl64.Vec3{})
	}
	if rb := cr.rigidB(); rb != nil {
		rb.applyImpulse(impulse.Mul(-1), mgl64.Vec3{})
	}
}

// calcNormalImpulse returns the contact-frame impulse that stops the
// approach along the normal, with Coulomb friction. When the sticking
// impulse falls outside the friction cone it is projected onto the cone
// surface. Resting contacts get no restitution.
func (s *Simulator) calcNormalImpulse(cr *CollisionResult, isContact bool) mgl64.Vec3 {
	irv := cr.InitRelVel
	k22 := cr.K.At(2, 2)
	if isZero(k22) {
		return mgl64.Vec3{}
	}
	pI := mgl64.Vec3{0, 0, -irv[2] / k22}
	pII := cr.KInv.Mul3x1(irv).Mul(-1)
	pDiff := pII.Sub(pI)

	u, e := s.materials.pair(cr.MaterialA, cr.MaterialB)
	if isContact {
		e = 0
	}

	candidate := pI.Mul(1 + e).Add(pDiff)
	if candidate[0]*candidate[0]+candidate[1]*candidate[1] <= (u*candidate[2])*(u*candidate[2]) {
		return candidate
	}

	kappa := u * (1 + e) * pI[2]
	temp := math.Hypot(pII[0], pII[1]) - u*pDiff[2]
	if math.Abs(temp) <= zeroTolerance {
		return mgl64.Vec3{}
	}
	return pI.Mul(1 + e).Add(pDiff.Mul(kappa / temp))
}

// handleCollision resolves a single row immediately, outside the iterative
// solver. NORMAL rows get restitution; CONTACT rows run the contact kernel.
func (s *Simulator) handleCollision(cr *CollisionResult, t ImpulseType, scale float64) {
	ba, bb := cr.rigidA(), cr.rigidB()
	if ba == nil && bb == nil {
		return
	}
	cr.W2C = cr.Frame.Transpose()

	rel := cr.BodyA.VelocityAtPoint(cr.ContactA).Sub(cr.BodyB.VelocityAtPoint(cr.ContactB))
	cr.InitRelVelWorld = rel
	cr.InitRelVel = cr.W2C.Mul3x1(rel)
	cr.RelativeSpeed = cr.InitRelVel.Len()

	var impulse mgl64.Vec3
	switch t {
	case ImpulseNormal:
		if cr.InitRelVel[2] >= 0 {
			return
		}
		impulse = s.calcNormalImpulse(cr, false)
	case ImpulseContact:
		s.solveContact(cr)
		return
	}

	if !vecFinite(impulse) {
		if ba != nil {
			s.reportInstability(ba, "handle collision")
		} else {
			s.reportInstability(bb, "handle collision")
		}
		return
	}
	impulse = cr.Frame.Mul3x1(impulse).Mul(scale)
	if ba != nil {
		ba.ApplyCollisionImpulse(s, impulse, cr.ContactA)
	}
	if bb != nil {
		bb.ApplyCollisionImpulse(s, impulse.Mul(-1), cr.ContactB)
	}
}
