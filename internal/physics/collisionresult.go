package physics

import "github.com/go-gl/mathgl/mgl64"

// ImpulseType selects the solver kernel for a CollisionResult.
type ImpulseType uint8

const (
	ImpulseNormal ImpulseType = iota
	ImpulseContact
	ImpulseConstraint
	ImpulseSlider
	ImpulseSliderLimitPrimary
	ImpulseAngularLimitPrimary
	ImpulseAngularLimitSecondary
	ImpulseAngularMotorPrimary
	ImpulseRelativeLinearVelocity
)

func (t ImpulseType) String() string {
	switch t {
	case ImpulseNormal:
		return "normal"
	case ImpulseContact:
		return "contact"
	case ImpulseConstraint:
		return "constraint"
	case ImpulseSlider:
		return "slider"
	case ImpulseSliderLimitPrimary:
		return "slider-limit"
	case ImpulseAngularLimitPrimary:
		return "angular-limit"
	case ImpulseAngularLimitSecondary:
		return "angular-limit-secondary"
	case ImpulseAngularMotorPrimary:
		return "angular-motor"
	case ImpulseRelativeLinearVelocity:
		return "linear-motor"
	}
	return "unknown"
}

const (
	convergeFactorJoint   = 0.5
	convergeFactorContact = 0.5
	convergeFactorLimit   = 0.5
	thresholdContact      = 0.0005
	maxCorrection         = 0.05
	maxSecondaryDepth     = 0.1
	idleRelativeSpeed     = 1.0
)

// CollisionResult is one solver row: a contact, a joint point or a joint
// limit/motor between two bodies. Which fields are meaningful depends on
// Type. ContactA and ContactB are world offsets from each body's origin.
type CollisionResult struct {
	BodyA, BodyB BodyRef
	Type         ImpulseType

	ContactA      mgl64.Vec3
	ContactB      mgl64.Vec3
	ContactAWorld mgl64.Vec3
	ContactBWorld mgl64.Vec3
	ContactABody  mgl64.Vec3
	ContactBBody  mgl64.Vec3

	// Frame has the contact normal in column 2; W2C is its transpose.
	Frame mgl64.Mat3
	W2C   mgl64.Mat3
	K     mgl64.Mat3
	KInv  mgl64.Mat3

	InitRelVel         mgl64.Vec3
	InitRelVelWorld    mgl64.Vec3
	RelativeSpeed      float64
	FinalRelativeSpeed float64
	Depth              float64
	ImpulseScale       float64

	MaterialA, MaterialB int

	singular bool
}

func (cr *CollisionResult) rigidA() *RigidBody { return cr.BodyA.Rigid() }
func (cr *CollisionResult) rigidB() *RigidBody { return cr.BodyB.Rigid() }

// prepareForSolver builds the contact frame where needed and the effective
// mass matrix for the row. Idle bodies are treated as immovable.
func (cr *CollisionResult) prepareForSolver(s *Simulator, aIdle, bIdle bool) {
	var ba, bb *RigidBody
	if rb := cr.rigidA(); rb != nil && !aIdle {
		ba = rb
	}
	if rb := cr.rigidB(); rb != nil && !bIdle {
		bb = rb
	}

	switch cr.Type {
	case ImpulseNormal, ImpulseContact:
		n := cr.Frame.Col(2)
		cr.Frame = collisionFrame(n)
		cr.W2C = cr.Frame.Transpose()
		cr.calcCollisionMatrix(ba, bb, false)
	case ImpulseConstraint, ImpulseSlider, ImpulseSliderLimitPrimary:
		cr.calcCollisionMatrix(ba, bb, true)
	case ImpulseAngularLimitPrimary, ImpulseAngularMotorPrimary:
		cr.calcCollisionMatrix2(ba, bb)
	case ImpulseAngularLimitSecondary:
		cr.calcCollisionMatrix3(ba, bb)
	case ImpulseRelativeLinearVelocity:
		oom := 0.0
		if ba != nil {
			oom += ba.oneOnMass
		}
		if bb != nil {
			oom += bb.oneOnMass
		}
		cr.KInv = mgl64.Mat3{}
		if oom > 0 {
			cr.KInv[0] = 1 / oom
		}
	}
	if !matFinite(cr.KInv) {
		cr.KInv = mgl64.Mat3{}
		cr.singular = true
		s.logInfo(LogFull, "singular effective mass", "type", cr.Type.String())
	}
}

func massAndInertia(rb *RigidBody) (float64, mgl64.Mat3) {
	if rb == nil {
		return 0, mgl64.Mat3{}
	}
	return rb.oneOnMass, rb.iinv
}

// calcCollisionMatrix computes K = (1/mA + 1/mB)·I − [rA]×·IinvA·[rA]× −
// [rB]×·IinvB·[rB]×, in world space or in the contact frame.
func (cr *CollisionResult) calcCollisionMatrix(ba, bb *RigidBody, isWorld bool) {
	oomA, iinvA := massAndInertia(ba)
	oomB, iinvB := massAndInertia(bb)

	oom := oomA + oomB
	k := mgl64.Diag3(mgl64.Vec3{oom, oom, oom})

	pa, pb := cr.ContactA, cr.ContactB
	if !isWorld {
		pa = cr.W2C.Mul3x1(pa)
		pb = cr.W2C.Mul3x1(pb)
		iinvA = cr.W2C.Mul3(iinvA).Mul3(cr.Frame)
		iinvB = cr.W2C.Mul3(iinvB).Mul3(cr.Frame)
	}
	sa, sb := skew(pa), skew(pb)
	k = k.Sub(sa.Mul3(iinvA).Mul3(sa))
	k = k.Sub(sb.Mul3(iinvB).Mul3(sb))

	cr.K = k
	cr.setKInv(k)
}

func (cr *CollisionResult) calcCollisionMatrix2(ba, bb *RigidBody) {
	var k mgl64.Mat3
	if ba != nil {
		k = ba.iinv
	}
	if bb != nil {
		k = k.Add(bb.iinv)
	}
	cr.setKInv(k)
}

// calcCollisionMatrix3 expects K to hold the limit rotation.
func (cr *CollisionResult) calcCollisionMatrix3(ba, bb *RigidBody) {
	rotB := mgl64.Ident3()
	if rb := cr.rigidB(); rb != nil {
		rotB = rb.b2w.Rot
	} else if cb := cr.BodyB.Static(); cb != nil {
		rotB = cb.b2w.Rot
	}
	ii := rotB.Mul3(cr.K)
	var kk mgl64.Mat3
	if ba != nil {
		kk = ii.Mul3(ba.iinv).Mul3(ii.Transpose())
	}
	if bb != nil {
		kk = kk.Add(bb.iinv)
	}
	cr.setKInv(kk)
}

func (cr *CollisionResult) setKInv(k mgl64.Mat3) {
	inv, ok := invert(k)
	cr.singular = !ok
	cr.KInv = inv
}

// checkIdle reports whether both sides of a slow contact are asleep. When
// only one side is, that side is dropped from the row so the solver does not
// disturb it.
func (cr *CollisionResult) checkIdle() bool {
	if cr.RelativeSpeed > idleRelativeSpeed {
		return false
	}
	ba, bb := cr.rigidA(), cr.rigidB()
	if ba != nil && ba.status == StatusIdle {
		if bb == nil {
			return true
		}
		if bb.status == StatusIdle {
			return true
		}
		cr.BodyA = BodyRef{}
		return false
	}
	if bb != nil && bb.status == StatusIdle && ba != nil {
		cr.BodyB = BodyRef{}
	}
	return false
}
