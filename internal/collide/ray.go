package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

// Ray casts the segment origin→origin+seg against target. A segment that
// starts inside the shape does not hit it.
func (n *Narrow) Ray(origin, seg mgl64.Vec3, target physics.BodyRef) (physics.RayHit, bool) {
	g := target.Geometry()
	t := target.Transform()

	var frac float64
	var normal mgl64.Vec3
	var ok bool
	switch g.Shape {
	case physics.ShapeSphere:
		frac, normal, ok = raySphere(origin, seg, t.Pos, g.Radius)
	case physics.ShapeBox:
		frac, normal, ok = rayBox(origin, seg, t, g.HalfExtents)
	}
	if !ok {
		return physics.RayHit{}, false
	}
	return physics.RayHit{
		Body:     target,
		Point:    origin.Add(seg.Mul(frac)),
		Normal:   normal,
		Depth:    seg.Len() * (1 - frac),
		Material: g.Material,
	}, true
}

func raySphere(o, seg, c mgl64.Vec3, r float64) (float64, mgl64.Vec3, bool) {
	m := o.Sub(c)
	cc := m.Dot(m) - r*r
	if cc <= 0 {
		return 0, mgl64.Vec3{}, false
	}
	a := seg.Dot(seg)
	if a < epsilon {
		return 0, mgl64.Vec3{}, false
	}
	b := m.Dot(seg)
	disc := b*b - a*cc
	if b >= 0 || disc < 0 {
		return 0, mgl64.Vec3{}, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, mgl64.Vec3{}, false
	}
	p := o.Add(seg.Mul(t))
	return t, p.Sub(c).Normalize(), true
}

// rayBox is the slab test in the box's frame.
func rayBox(o, seg mgl64.Vec3, t physics.Transform, h mgl64.Vec3) (float64, mgl64.Vec3, bool) {
	rt := t.Rot.Transpose()
	lo := rt.Mul3x1(o.Sub(t.Pos))
	ld := rt.Mul3x1(seg)

	tmin, tmax := 0.0, 1.0
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(ld[i]) < epsilon {
			if lo[i] < -h[i] || lo[i] > h[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		inv := 1 / ld[i]
		t1 := (-h[i] - lo[i]) * inv
		t2 := (h[i] - lo[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, mgl64.Vec3{}, false
		}
	}
	if axis < 0 {
		return 0, mgl64.Vec3{}, false
	}
	var nl mgl64.Vec3
	nl[axis] = sign
	return tmin, t.Rot.Mul3x1(nl), true
}
