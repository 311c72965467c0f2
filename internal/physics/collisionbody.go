package physics

import "github.com/go-gl/mathgl/mgl64"

// CollisionBody has infinite mass. It takes part in collision and rest
// contacts but never integrates dynamics; moving it is up to the caller.
type CollisionBody struct {
	bodyBase
	moved bool
}

func (cb *CollisionBody) init(h Handle, id int) {
	cb.bodyBase = bodyBase{
		handle: h,
		id:     id,
		kind:   KindStatic,
		active: true,
		b2w:    IdentityTransform(),
	}
	cb.moved = true
}

func (cb *CollisionBody) SetPos(p mgl64.Vec3) {
	cb.b2w.Pos = p
	cb.moved = true
}

func (cb *CollisionBody) SetRotation(q mgl64.Quat) {
	cb.b2w.Rot = q.Normalize().Mat4().Mat3()
	cb.moved = true
}

func (cb *CollisionBody) SetGeometry(g Geometry) {
	cb.geometry = g
	cb.moved = true
}

// Moved reports whether the body was repositioned during the current frame.
func (cb *CollisionBody) Moved() bool { return cb.moved }

func (cb *CollisionBody) UpdateAABB() {
	if !cb.hasCollision() {
		return
	}
	cb.aabb = obbBounds(cb.b2w, cb.geometry.HalfExtents)
}
