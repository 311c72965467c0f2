package physics

import "github.com/go-gl/mathgl/mgl64"

// BodyKind tags the variant held by a BodyRef.
type BodyKind uint8

const (
	KindNone BodyKind = iota
	KindRigid
	KindStatic
)

func (k BodyKind) String() string {
	switch k {
	case KindRigid:
		return "rigid"
	case KindStatic:
		return "static"
	}
	return "none"
}

// BodyRef refers to either a dynamic rigid body or a static collision body.
// The zero BodyRef is the world.
type BodyRef struct {
	Kind   BodyKind
	rigid  *RigidBody
	static *CollisionBody
	gen    uint32
}

func RigidRef(rb *RigidBody) BodyRef {
	if rb == nil {
		return BodyRef{}
	}
	return BodyRef{Kind: KindRigid, rigid: rb, gen: rb.handle.Gen}
}

func StaticRef(cb *CollisionBody) BodyRef {
	if cb == nil {
		return BodyRef{}
	}
	return BodyRef{Kind: KindStatic, static: cb, gen: cb.handle.Gen}
}

func (r BodyRef) IsNone() bool { return r.Kind == KindNone }

// Rigid returns the rigid body, or nil for other variants.
func (r BodyRef) Rigid() *RigidBody {
	if r.Kind != KindRigid {
		return nil
	}
	return r.rigid
}

// Static returns the collision body, or nil for other variants.
func (r BodyRef) Static() *CollisionBody {
	if r.Kind != KindStatic {
		return nil
	}
	return r.static
}

func (r BodyRef) base() *bodyBase {
	switch r.Kind {
	case KindRigid:
		return &r.rigid.bodyBase
	case KindStatic:
		return &r.static.bodyBase
	}
	return nil
}

// Alive reports whether the referenced body has not been freed since the
// reference was taken.
func (r BodyRef) Alive() bool {
	b := r.base()
	if b == nil {
		return false
	}
	if b.terrain {
		return true
	}
	return b.handle.Gen == r.gen && b.active
}

func (r BodyRef) Same(o BodyRef) bool {
	return r.Kind == o.Kind && r.rigid == o.rigid && r.static == o.static
}

func (r BodyRef) ID() int {
	if b := r.base(); b != nil {
		return b.id
	}
	return -1
}

func (r BodyRef) Transform() Transform {
	if b := r.base(); b != nil {
		return b.b2w
	}
	return IdentityTransform()
}

func (r BodyRef) Geometry() Geometry {
	if b := r.base(); b != nil {
		return b.geometry
	}
	return Geometry{}
}

func (r BodyRef) AABB() AABB {
	if b := r.base(); b != nil {
		return b.aabb
	}
	return AABB{}
}

func (r BodyRef) CollisionGroup() int {
	if b := r.base(); b != nil {
		return b.group
	}
	return TerrainGroup
}

// VelocityAtPoint returns the world velocity of the point at world offset p
// from the body origin. Static bodies and the world do not move.
func (r BodyRef) VelocityAtPoint(p mgl64.Vec3) mgl64.Vec3 {
	if rb := r.Rigid(); rb != nil {
		return rb.VelocityAtPoint(p)
	}
	return mgl64.Vec3{}
}

// bodyBase is the state shared by rigid and collision bodies.
type bodyBase struct {
	handle   Handle
	id       int
	kind     BodyKind
	active   bool
	terrain  bool
	b2w      Transform
	geometry Geometry
	group    int
	aabb     AABB
	customCD bool

	collideConnected         bool
	collideDirectlyConnected bool

	constraints []*Constraint
	restingOnMe []*RestRecord

	userData any
}

func (b *bodyBase) ID() int                    { return b.id }
func (b *bodyBase) Handle() Handle             { return b.handle }
func (b *bodyBase) Pos() mgl64.Vec3            { return b.b2w.Pos }
func (b *bodyBase) RotationMatrix() mgl64.Mat3 { return b.b2w.Rot }
func (b *bodyBase) Transform() Transform       { return b.b2w }
func (b *bodyBase) Geometry() Geometry         { return b.geometry }
func (b *bodyBase) AABB() AABB                 { return b.aabb }
func (b *bodyBase) CollisionGroup() int        { return b.group }
func (b *bodyBase) Active() bool               { return b.active }
func (b *bodyBase) UserData() any              { return b.userData }
func (b *bodyBase) SetUserData(v any)          { b.userData = v }

// SetCollisionGroup assigns the group id used for the response table.
func (b *bodyBase) SetCollisionGroup(g int) bool {
	if g < 0 || g >= MaxCollisionGroups {
		return false
	}
	b.group = g
	return true
}

// SetCollideConnected lets the body collide with bodies sharing its joint chain.
func (b *bodyBase) SetCollideConnected(yes bool) { b.collideConnected = yes }

// SetCollideDirectlyConnected lets the body collide with bodies it is jointed to directly.
func (b *bodyBase) SetCollideDirectlyConnected(yes bool) { b.collideDirectlyConnected = yes }

// UseCustomCollisionDetection keeps the body in the broad phase without geometry.
func (b *bodyBase) UseCustomCollisionDetection(yes bool) { b.customCD = yes }

func (b *bodyBase) hasCollision() bool {
	return b.geometry.Shape != ShapeNone || b.customCD
}

// isConstraintNeighbour reports whether both bodies share a constraint.
func (b *bodyBase) isConstraintNeighbour(o *bodyBase) bool {
	for _, c := range b.constraints {
		for _, oc := range o.constraints {
			if c == oc {
				return true
			}
		}
	}
	return false
}

func (b *bodyBase) addConstraint(c *Constraint) {
	for _, x := range b.constraints {
		if x == c {
			return
		}
	}
	b.constraints = append(b.constraints, c)
}

func (b *bodyBase) removeConstraint(c *Constraint) {
	for i, x := range b.constraints {
		if x == c {
			b.constraints = append(b.constraints[:i], b.constraints[i+1:]...)
			return
		}
	}
}
