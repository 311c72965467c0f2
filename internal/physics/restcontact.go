package physics

import "github.com/go-gl/mathgl/mgl64"

type RestType uint8

const (
	RestNotValid RestType = iota
	RestOnStatic
	RestOnRigid
)

const (
	restSamePointSq       = 0.0025
	validityNormalDist    = 0.01
	validityTangentDistSq = 0.001
	impulseTangentDistSq  = 0.025
	restHullHeight        = 0.01
)

// RestRecord remembers one point where a body rests on another. Points and
// the normal are stored in body space so the record survives motion.
type RestRecord struct {
	rtype RestType
	body  *RigidBody
	other BodyRef

	bodyPoint      mgl64.Vec3
	otherBodyPoint mgl64.Vec3
	normalBody     mgl64.Vec3
	normalWorld    mgl64.Vec3
	depth          float64
	materialA      int
	materialB      int
	counter        int

	worldThisBody  mgl64.Vec3
	worldOtherBody mgl64.Vec3
	worldDiff      mgl64.Vec3

	normalDiff       float64
	tangentialDiffSq float64
}

func (r *RestRecord) IsValid() bool  { return r.rtype != RestNotValid }
func (r *RestRecord) Type() RestType { return r.rtype }
func (r *RestRecord) Other() BodyRef { return r.other }
func (r *RestRecord) Depth() float64 { return r.depth }

// restCandidate carries a fresh contact from the penetration stage into the
// rest-record bookkeeping.
type restCandidate struct {
	other          BodyRef
	bodyPoint      mgl64.Vec3
	otherBodyPoint mgl64.Vec3
	normalBody     mgl64.Vec3
	materialA      int
	materialB      int
	depth          float64
}

func (r *RestRecord) set(s *Simulator, body *RigidBody, c *restCandidate) {
	r.body = body
	r.other = c.other
	r.bodyPoint = c.bodyPoint
	r.otherBodyPoint = c.otherBodyPoint
	r.normalBody = c.normalBody
	r.materialA = c.materialA
	r.materialB = c.materialB
	r.depth = c.depth
	r.counter = s.stepSoFar
	r.rtype = RestOnStatic
	if c.other.Kind == KindRigid {
		r.rtype = RestOnRigid
	}
	if b := r.other.base(); b != nil {
		b.restingOnMe = append(b.restingOnMe, r)
	}
}

// setInvalid clears the record and unregisters it from the supporting body.
func (r *RestRecord) setInvalid() {
	if r.rtype == RestNotValid {
		return
	}
	r.rtype = RestNotValid
	r.counter = 0
	if b := r.other.base(); b != nil {
		for i, x := range b.restingOnMe {
			if x == r {
				b.restingOnMe = append(b.restingOnMe[:i], b.restingOnMe[i+1:]...)
				break
			}
		}
	}
	r.other = BodyRef{}
}

// canConsiderOtherBodyIdle reports whether the supporting body is at rest.
func (r *RestRecord) canConsiderOtherBodyIdle() bool {
	switch r.other.Kind {
	case KindRigid:
		return r.other.rigid.status == StatusIdle
	case KindStatic:
		return !r.other.static.moved
	}
	return true
}

func (r *RestRecord) checkOtherBody() bool {
	if b := r.other.base(); b != nil && b.terrain {
		return true
	}
	return r.other.Alive()
}

// otherPoint returns the world position of the contact on the supporting
// body and refreshes the world normal.
func (r *RestRecord) otherPoint() mgl64.Vec3 {
	t := r.other.Transform()
	r.normalWorld = t.Rot.Mul3x1(r.normalBody)
	return t.Apply(r.otherBodyPoint)
}

// update refreshes the world points and the normal and tangential drift
// between them.
func (r *RestRecord) update() {
	r.worldThisBody = r.body.b2w.Apply(r.bodyPoint)
	r.worldOtherBody = r.otherPoint()
	r.worldDiff = r.worldThisBody.Sub(r.worldOtherBody)
	r.normalDiff = r.worldDiff.Dot(r.normalWorld)
	t := r.worldDiff.Sub(r.normalWorld.Mul(r.normalDiff))
	r.tangentialDiffSq = t.Dot(t)
}

// addRestContact stores c in the body's rest records. A record at nearly the
// same body point is replaced; otherwise a free slot is used, or the
// shallowest record is evicted.
func (rb *RigidBody) addRestContact(s *Simulator, c *restCandidate) {
	freeOne := -1
	shallowest := -1
	shallowDepth := 0.0
	found := -1

	for i := range rb.rest {
		r := &rb.rest[i]
		if !r.IsValid() {
			freeOne = i
			continue
		}
		if shallowest == -1 || r.depth < shallowDepth {
			shallowest = i
			shallowDepth = r.depth
		}
		d := c.bodyPoint.Sub(r.bodyPoint)
		if d.Dot(d) < restSamePointSq {
			found = i
			break
		}
	}

	slot := found
	if slot == -1 {
		if freeOne != -1 {
			slot = freeOne
		} else {
			slot = shallowest
		}
	}
	rb.rest[slot].setInvalid()
	rb.rest[slot].set(s, rb, c)
}

func (rb *RigidBody) validRestCount() int {
	n := 0
	for i := range rb.rest {
		if rb.rest[i].IsValid() {
			n++
		}
	}
	return n
}

// invalidateRestRecords drops every record of rb and every record that
// rests on b.
func invalidateRestRecords(rb *RigidBody, b *bodyBase) {
	if rb != nil {
		for i := range rb.rest {
			rb.rest[i].setInvalid()
		}
		rb.hull.Type = HullNone
	}
	if b == nil {
		return
	}
	for len(b.restingOnMe) > 0 {
		r := b.restingOnMe[0]
		r.setInvalid()
		if r.body != nil {
			r.body.hull.Type = HullNone
		}
	}
}

// checkContactValidity re-validates the rest records after integration and
// returns the number still valid.
func (rb *RigidBody) checkContactValidity(s *Simulator) int {
	if rb.stackInfo == nil {
		return 0
	}

	if rb.status == StatusIdle && !rb.isShifted {
		allIdle := true
		count := 0
		for i := range rb.rest {
			r := &rb.rest[i]
			if !r.IsValid() {
				continue
			}
			if !r.canConsiderOtherBodyIdle() {
				allIdle = false
				break
			}
			count++
		}
		if allIdle {
			return count
		}
	}

	valid := 0
	for i := range rb.rest {
		r := &rb.rest[i]
		if !r.IsValid() {
			continue
		}
		if !r.checkOtherBody() {
			r.setInvalid()
			rb.hull.Type = HullNone
			continue
		}
		r.update()
		if r.normalWorld.Dot(s.gravityDir) > 0 ||
			r.normalDiff > validityNormalDist ||
			r.tangentialDiffSq > validityTangentDistSq {
			r.setInvalid()
			rb.hull.Type = HullNone
			continue
		}
		valid++
	}
	rb.stackInfo.isBroken = valid == 0
	return valid
}

// isRestPointStillValid checks that the supporting points of a line or
// triangle hull have not drifted apart.
func (rb *RigidBody) isRestPointStillValid() bool {
	if rb.stackInfo == nil || rb.stackInfo.isTerminator {
		return false
	}
	var n int
	switch rb.hull.Type {
	case HullLine:
		n = 2
	case HullTriangle:
		n = 3
	default:
		return false
	}
	for i := 0; i < n; i++ {
		r := &rb.rest[rb.hull.Indices[i]]
		if !r.IsValid() {
			rb.hull.Type = HullNone
			return false
		}
		w1 := rb.b2w.Apply(r.bodyPoint)
		w2 := r.otherPoint()
		d := w1.Sub(w2)
		if d.Dot(d) > 0.002 {
			r.setInvalid()
			rb.hull.Type = HullNone
			return false
		}
	}
	return true
}

// contactResult builds the CONTACT collision result for rest record r.
func (rb *RigidBody) contactResult(r *RestRecord, world1, world2 mgl64.Vec3, scale float64) CollisionResult {
	cr := CollisionResult{
		BodyA:        RigidRef(rb),
		BodyB:        r.other,
		Type:         ImpulseContact,
		ContactA:     world1.Sub(rb.b2w.Pos),
		MaterialA:    r.materialA,
		MaterialB:    r.materialB,
		Depth:        -r.normalDiff,
		ContactB:     world2.Sub(r.other.Transform().Pos),
		ImpulseScale: scale,
	}
	cr.Frame = mgl64.Mat3FromCols(mgl64.Vec3{}, mgl64.Vec3{}, r.normalWorld)
	return cr
}

// addContactImpulseRecord turns the valid rest records into CONTACT results
// in the solver's contact buffer and rebuilds the rest hull. Records above
// the contact band get a cubic falloff in impulse scale. It returns the
// number of valid records.
func (rb *RigidBody) addContactImpulseRecord(s *Simulator, withConstraint bool) int {
	var world1, world2 [maxRestRecords]mgl64.Vec3
	var height [maxRestRecords]float64
	var validIdx [maxRestRecords]int
	valid := 0

	for i := range rb.rest {
		r := &rb.rest[i]
		if !r.IsValid() {
			continue
		}
		if !r.checkOtherBody() {
			r.setInvalid()
			continue
		}
		r.update()
		world1[i] = rb.b2w.Apply(r.bodyPoint)
		world2[i] = r.otherPoint()
		diff := world1[i].Sub(world2[i])
		t := removeComponent(diff, r.normalWorld)
		if t.Dot(t) > impulseTangentDistSq {
			r.setInvalid()
			rb.hull.Type = HullNone
			continue
		}
		height[i] = diff.Dot(r.normalWorld)
		validIdx[valid] = i
		valid++
	}

	if valid == 0 {
		rb.hull.Type = HullNone
		return 0
	}

	if valid == 1 && height[validIdx[0]] < 0 {
		i := validIdx[0]
		cr := rb.contactResult(&rb.rest[i], world1[i], world2[i], 1)
		cr.prepareForSolver(s, false, false)
		if withConstraint || !cr.checkIdle() {
			s.addContactResult(cr)
		}
		rb.hull.Type = HullNone
		return 1
	}

	actual := 0
	for k := 0; k < valid; k++ {
		i := validIdx[k]
		if height[i] > restHullHeight {
			continue
		}
		scale := 1.0
		if height[i] > 0 {
			f := (restHullHeight - height[i]) / restHullHeight
			scale = f * f * f
		}
		cr := rb.contactResult(&rb.rest[i], world1[i], world2[i], scale)
		cr.prepareForSolver(s, false, false)
		if withConstraint || !cr.checkIdle() {
			s.addContactResult(cr)
		}
		rb.hull.Indices[actual] = i
		actual++
	}

	switch actual {
	case 3:
		rb.hull.Type = HullTriangle
	case 2:
		rb.hull.Type = HullLine
	case 1:
		rb.hull.Type = HullPoint
	default:
		rb.hull.Type = HullNone
	}
	if actual > 0 {
		var n mgl64.Vec3
		for k := 0; k < actual; k++ {
			n = n.Add(rb.rest[rb.hull.Indices[k]].normalWorld)
		}
		n = normalizeOrZero(n)
		if n.Dot(s.gravityDir) < 0 {
			n = n.Mul(-1)
		}
		rb.hull.Normal = n
	}
	return actual
}

// addContactConstraint queues the body's rest contacts for the joint solver.
// Bodies resting on static geometry go straight into the contact buffer;
// bodies in a stack pull their whole stack header in.
func (rb *RigidBody) addContactConstraint(s *Simulator) {
	si := rb.stackInfo
	if si == nil {
		return
	}
	h := si.header
	if h == nil {
		return
	}
	if h.isHeaderX {
		if rb.needSolveContactDynamic {
			rb.needSolveContactDynamic = false
			rb.addContactImpulseRecord(s, true)
		}
		return
	}
	if !h.dynamicSolved {
		s.pb2 = append(s.pb2, h)
		h.dynamicSolved = true
	}
}
