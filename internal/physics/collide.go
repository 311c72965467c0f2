package physics

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Pair is a broad-phase candidate.
type Pair struct {
	A, B BodyRef
}

// BroadPhase returns the pairs whose bounds overlap. bodies holds every body
// with collision geometry, with AABBs already updated.
type BroadPhase interface {
	Update(bodies []BodyRef) []Pair
}

// NarrowPhase tests one pair in detail and casts sensor rays against a body.
type NarrowPhase interface {
	Test(a, b BodyRef) (Contact, bool)
	Ray(origin, seg mgl64.Vec3, target BodyRef) (RayHit, bool)
}

// Terrain is the static world geometry, collision group TerrainGroup.
type Terrain interface {
	Test(body BodyRef) (Contact, bool)
	Ray(origin, seg mgl64.Vec3) (RayHit, bool)
}

// Contact is a narrow-phase result. Frame holds the normal in column 2,
// pointing from B towards A; Depth is the penetration along it.
type Contact struct {
	Penetrating   bool
	Depth         float64
	Frame         mgl64.Mat3
	ContactAWorld mgl64.Vec3
	ContactBWorld mgl64.Vec3
	MaterialA     int
	MaterialB     int
	// Patch lists the supporting vertices when two faces touch. The impulse
	// uses the single point above; rest records are built from the patch.
	Patch []ContactPoint
}

// ContactPoint is one vertex of a contact patch.
type ContactPoint struct {
	AWorld, BWorld mgl64.Vec3
	Depth          float64
}

// Normal returns the contact normal.
func (c Contact) Normal() mgl64.Vec3 { return c.Frame.Col(2) }

// NewContact builds a Contact from a normal and the two world points.
func NewContact(normal, worldA, worldB mgl64.Vec3, depth float64, matA, matB int) Contact {
	return Contact{
		Penetrating:   true,
		Depth:         depth,
		Frame:         collisionFrame(normal),
		ContactAWorld: worldA,
		ContactBWorld: worldB,
		MaterialA:     matA,
		MaterialB:     matB,
	}
}

// Flip swaps the roles of A and B.
func (c Contact) Flip() Contact {
	c.Frame = collisionFrame(c.Normal().Mul(-1))
	c.ContactAWorld, c.ContactBWorld = c.ContactBWorld, c.ContactAWorld
	c.MaterialA, c.MaterialB = c.MaterialB, c.MaterialA
	if len(c.Patch) > 0 {
		patch := make([]ContactPoint, len(c.Patch))
		for i, p := range c.Patch {
			patch[i] = ContactPoint{AWorld: p.BWorld, BWorld: p.AWorld, Depth: p.Depth}
		}
		c.Patch = patch
	}
	return c
}

// restPoints returns the distinct points of ct to keep as rest records,
// deepest first and at most maxRestRecords of them.
func restPoints(ct Contact) []ContactPoint {
	if len(ct.Patch) == 0 {
		return []ContactPoint{{AWorld: ct.ContactAWorld, BWorld: ct.ContactBWorld, Depth: ct.Depth}}
	}
	pts := slices.Clone(ct.Patch)
	slices.SortStableFunc(pts, func(a, b ContactPoint) int { return cmp.Compare(b.Depth, a.Depth) })

	out := pts[:0]
	for _, p := range pts {
		if len(out) == maxRestRecords {
			break
		}
		dup := false
		for _, q := range out {
			if d := p.AWorld.Sub(q.AWorld); d.Dot(d) < restSamePointSq {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// RayHit is the first surface crossed by a sensor segment.
type RayHit struct {
	Body     BodyRef
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Depth    float64
	Material int
}

// CollisionInfo is passed to the collision callback for every accepted
// penetration whose pair asks for notification.
type CollisionInfo struct {
	BodyA, BodyB         BodyRef
	TypeA, TypeB         BodyKind
	Terrain              bool
	MaterialA, MaterialB int
	GeometryA, GeometryB Geometry
	BodyContactA         mgl64.Vec3
	BodyContactB         mgl64.Vec3
	WorldContactA        mgl64.Vec3
	WorldContactB        mgl64.Vec3
	RelativeVelocity     mgl64.Vec3
	Normal               mgl64.Vec3
	Depth                float64
}

type CollisionCallback func(info CollisionInfo)

// CustomCollisionFunc replaces the narrow phase for pairs where either body
// uses custom collision detection.
type CustomCollisionFunc func(a, b BodyRef) (Contact, bool)

// bruteForce is the broad phase used when none is configured.
type bruteForce struct {
	pairs []Pair
}

func (b *bruteForce) Update(bodies []BodyRef) []Pair {
	b.pairs = b.pairs[:0]
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if bodies[i].AABB().Overlaps(bodies[j].AABB()) {
				b.pairs = append(b.pairs, Pair{A: bodies[i], B: bodies[j]})
			}
		}
	}
	return b.pairs
}

func (s *Simulator) updateAABB() {
	s.eachBody(func(rb *RigidBody) {
		rb.UpdateAABB()
	})
	s.collisionBodies.Each(func(_ Handle, cb *CollisionBody) {
		if cb.moved {
			cb.UpdateAABB()
		}
	})
}

func (s *Simulator) broadPhaseBodies() []BodyRef {
	out := s.refScratch[:0]
	s.eachBody(func(rb *RigidBody) {
		if rb.hasCollision() {
			out = append(out, RigidRef(rb))
		}
	})
	s.collisionBodies.Each(func(_ Handle, cb *CollisionBody) {
		if cb.active && cb.hasCollision() {
			out = append(out, StaticRef(cb))
		}
	})
	s.refScratch = out
	return out
}

// connectedByJoint reports whether a and b share a joint chain and whether
// a joint links them directly with collide-connected set.
func connectedByJoint(a, b *bodyBase) (shared, allowed bool) {
	for _, c := range a.constraints {
		for _, oc := range b.constraints {
			if c == oc {
				return true, c.collideConnected
			}
		}
	}
	return false, false
}

// wantsTest reports whether the pair should be tested this step. Pairs
// where nothing moves are skipped, as are jointed pairs that do not opt in.
func (s *Simulator) wantsTest(a, b BodyRef) bool {
	ra, rb := a.Rigid(), b.Rigid()
	switch {
	case ra == nil && rb == nil:
		return false
	case ra != nil && rb != nil:
		if ra.header != nil && ra.header == rb.header {
			_, allowed := connectedByJoint(&ra.bodyBase, &rb.bodyBase)
			if !allowed && !(ra.collideConnected && rb.collideConnected) {
				return false
			}
			return ra.status != StatusIdle || rb.status != StatusIdle
		}
		return ra.status != StatusIdle || rb.status != StatusIdle || ra.isShifted || rb.isShifted
	default:
		r, cb := ra, b.Static()
		if r == nil {
			r, cb = rb, a.Static()
		}
		return r.status != StatusIdle || r.isShifted || (cb != nil && cb.moved)
	}
}

// checkCollision runs the narrow phase over the broad-phase pairs and
// dispatches each penetration per the response table.
func (s *Simulator) checkCollision() {
	if s.narrow == nil && s.customCD == nil {
		return
	}
	pairs := s.broad.Update(s.broadPhaseBodies())

	for _, p := range pairs {
		a, b := p.A, p.B
		if a.Rigid() == nil && b.Rigid() != nil {
			a, b = b, a
		}
		flag := s.colTable.Get(a.CollisionGroup(), b.CollisionGroup())
		if flag == ResponseIgnore || !s.wantsTest(a, b) {
			continue
		}

		var ct Contact
		var hit, custom bool
		ba, bb := a.base(), b.base()
		if ba.customCD || bb.customCD {
			if s.customCD == nil {
				continue
			}
			custom = true
			ct, hit = s.customCD(a, b)
		} else if s.narrow != nil {
			ct, hit = s.narrow.Test(a, b)
			s.testSensors(a, b)
			s.testSensors(b, a)
		}
		if !hit || !ct.Penetrating {
			continue
		}
		s.dispatch(a, b, ct, flag, custom)
	}
}

func (s *Simulator) dispatch(a, b BodyRef, ct Contact, flag Response, custom bool) {
	n := ct.Normal()
	respond := vecFinite(n) && !vecIsZero(n)

	ra, rb := a.Rigid(), b.Rigid()
	bothAnimated := ra != nil && rb != nil && ra.status == StatusAnimated && rb.status == StatusAnimated
	if b.Static() != nil && ra != nil && ra.status == StatusAnimated {
		bothAnimated = true
	}

	if flag.Has(ResponseImpulse) && respond && !bothAnimated {
		s.registerPenetration(a, b, ct)
	}
	if flag.Has(ResponseCallback) && s.onCollision != nil && !custom {
		s.onCollision(s.collisionInfo(a, b, ct))
	}
}

func (s *Simulator) collisionInfo(a, b BodyRef, ct Contact) CollisionInfo {
	ta, tb := a.Transform(), b.Transform()
	ca := ct.ContactAWorld.Sub(ta.Pos)
	cb := ct.ContactBWorld.Sub(tb.Pos)
	terrain := false
	if base := b.base(); base != nil && base.terrain {
		terrain = true
	}
	return CollisionInfo{
		BodyA:            a,
		BodyB:            b,
		TypeA:            a.Kind,
		TypeB:            b.Kind,
		Terrain:          terrain,
		MaterialA:        ct.MaterialA,
		MaterialB:        ct.MaterialB,
		GeometryA:        a.Geometry(),
		GeometryB:        b.Geometry(),
		BodyContactA:     ta.Rot.Transpose().Mul3x1(ca),
		BodyContactB:     tb.Rot.Transpose().Mul3x1(cb),
		WorldContactA:    ct.ContactAWorld,
		WorldContactB:    ct.ContactBWorld,
		RelativeVelocity: a.VelocityAtPoint(ca).Sub(b.VelocityAtPoint(cb)),
		Normal:           ct.Normal(),
		Depth:            ct.Depth,
	}
}

// checkTerrainCollision tests every awake body against the terrain, then
// ages the shift flags.
func (s *Simulator) checkTerrainCollision() {
	terrain := StaticRef(&s.terrainBody)
	if s.terrain != nil {
		s.eachBody(func(rb *RigidBody) {
			if rb.status == StatusIdle && !rb.isShifted {
				return
			}
			ref := RigidRef(rb)
			ct, hit := s.terrain.Test(ref)
			s.testTerrainSensors(rb)
			if !hit || !ct.Penetrating {
				return
			}
			flag := s.colTable.Get(rb.group, TerrainGroup)
			if flag.Has(ResponseImpulse) && rb.status != StatusAnimated {
				s.registerPenetration(ref, terrain, ct)
			}
			if flag.Has(ResponseCallback) && s.onCollision != nil {
				s.onCollision(s.collisionInfo(ref, terrain, ct))
			}
		})
	}

	s.eachBody(func(rb *RigidBody) {
		rb.isShifted = rb.isShifted2
		rb.isShifted2 = false
	})
}

// registerPenetration decides which body rests on which. The body on top
// gets a rest record and the impact is resolved right away; a body with
// nothing dynamic under it is shifted out instead.
func (s *Simulator) registerPenetration(a, b BodyRef, ct Contact) {
	ra, rb := a.Rigid(), b.Rigid()

	if ba, bb := a.base(), b.base(); ba != nil && bb != nil {
		if shared, allowed := connectedByJoint(ba, bb); shared && !allowed &&
			!(ba.collideDirectlyConnected && bb.collideDirectlyConnected) {
			return
		}
	}

	if ra != nil && rb != nil && ra.particle && !rb.particle {
		a, b = b, a
		ra, rb = rb, ra
		ct = ct.Flip()
	}

	ta, tb := a.Transform(), b.Transform()
	cr := CollisionResult{
		BodyA:        a,
		BodyB:        b,
		Type:         ImpulseNormal,
		ContactA:     ct.ContactAWorld.Sub(ta.Pos),
		ContactB:     ct.ContactBWorld.Sub(tb.Pos),
		Frame:        ct.Frame,
		Depth:        ct.Depth,
		MaterialA:    ct.MaterialA,
		MaterialB:    ct.MaterialB,
		ImpulseScale: 1,
	}

	if ra != nil && rb != nil && rb.particle && !ra.particle {
		s.collisionRigidParticle(&cr)
		return
	}

	toBodyA := func(w mgl64.Vec3) mgl64.Vec3 { return ta.Rot.Transpose().Mul3x1(w.Sub(ta.Pos)) }
	toBodyB := func(w mgl64.Vec3) mgl64.Vec3 { return tb.Rot.Transpose().Mul3x1(w.Sub(tb.Pos)) }
	n := ct.Normal()

	// The angle gate on the gravity alignment is disabled: every contact is
	// classified by which body is on top.
	if n.Dot(s.gravity) < 0 {
		switch {
		case ra != nil:
			cr.prepareForSolver(s, false, false)
			s.handleCollision(&cr, ImpulseNormal, 1)
			normal := tb.Rot.Transpose().Mul3x1(n)
			for _, p := range restPoints(ct) {
				if !ra.addStackInfo(s, &restCandidate{
					other:          b,
					bodyPoint:      toBodyA(p.AWorld),
					otherBodyPoint: toBodyB(p.BWorld),
					normalBody:     normal,
					materialA:      ct.MaterialA,
					materialB:      ct.MaterialB,
					depth:          p.Depth,
				}) {
					break
				}
			}
		case rb != nil:
			s.simpleShift(&cr)
			cr.prepareForSolver(s, false, false)
			s.handleCollision(&cr, ImpulseNormal, 1)
		}
		return
	}

	switch {
	case rb != nil:
		cr.prepareForSolver(s, false, false)
		s.handleCollision(&cr, ImpulseNormal, 1)
		normal := ta.Rot.Transpose().Mul3x1(n.Mul(-1))
		for _, p := range restPoints(ct) {
			if !rb.addStackInfo(s, &restCandidate{
				other:          a,
				bodyPoint:      toBodyB(p.BWorld),
				otherBodyPoint: toBodyA(p.AWorld),
				normalBody:     normal,
				materialA:      ct.MaterialB,
				materialB:      ct.MaterialA,
				depth:          p.Depth,
			}) {
				break
			}
		}
	case ra != nil:
		s.simpleShift(&cr)
		cr.prepareForSolver(s, false, false)
		s.handleCollision(&cr, ImpulseNormal, 1)
	}
}

// collisionRigidParticle resolves the impact and pushes the particle out.
func (s *Simulator) collisionRigidParticle(cr *CollisionResult) {
	cr.prepareForSolver(s, false, false)
	s.handleCollision(cr, ImpulseNormal, 1)
	if p := cr.rigidB(); p != nil {
		p.b2w.Pos = p.b2w.Pos.Sub(cr.Frame.Col(2).Mul(cr.Depth))
	}
}

// simpleShift separates the pair along the normal, split by mass when both
// are dynamic. Shifted bodies stay in collision testing next step.
func (s *Simulator) simpleShift(cr *CollisionResult) {
	shift := cr.Frame.Col(2).Mul(cr.Depth)
	ba, bb := cr.rigidA(), cr.rigidB()

	var ar, br float64
	switch {
	case ba == nil:
		ar, br = 0, 1
		if bb != nil {
			bb.isShifted2 = true
		}
	case bb == nil:
		ar, br = 1, 0
		ba.isShifted2 = true
	default:
		ba.isShifted2 = true
		bb.isShifted2 = true
		total := ba.mass + bb.mass
		ar = bb.mass / total
		br = ba.mass / total
	}
	if ba != nil {
		ba.b2w.Pos = ba.b2w.Pos.Add(shift.Mul(ar))
	}
	if bb != nil {
		bb.b2w.Pos = bb.b2w.Pos.Sub(shift.Mul(br))
	}
}
