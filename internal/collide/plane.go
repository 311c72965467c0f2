package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

// Plane is an infinite half-space terrain: points with Normal·x < Offset are
// inside the ground.
type Plane struct {
	Normal   mgl64.Vec3
	Offset   float64
	Material int
}

func NewPlane(normal mgl64.Vec3, offset float64, material int) *Plane {
	return &Plane{Normal: normal.Normalize(), Offset: offset, Material: material}
}

// NewSlope returns a plane through the origin tilted by deg degrees about
// the z axis, rising towards -x.
func NewSlope(deg float64, material int) *Plane {
	r := mgl64.DegToRad(deg)
	return NewPlane(mgl64.Vec3{math.Sin(r), math.Cos(r), 0}, 0, material)
}

func (p *Plane) distance(x mgl64.Vec3) float64 {
	return p.Normal.Dot(x) - p.Offset
}

func (p *Plane) Test(body physics.BodyRef) (physics.Contact, bool) {
	g := body.Geometry()
	t := body.Transform()
	switch g.Shape {
	case physics.ShapeSphere:
		d := p.distance(t.Pos)
		depth := g.Radius - d
		if depth <= 0 {
			return physics.Contact{}, false
		}
		wa := t.Pos.Sub(p.Normal.Mul(g.Radius))
		wb := t.Pos.Sub(p.Normal.Mul(d))
		return physics.NewContact(p.Normal, wa, wb, depth, g.Material, p.Material), true
	case physics.ShapeBox:
		verts := boxVertices(t, g.HalfExtents)
		deepest, ok := extremeAverage(verts[:], p.Normal.Mul(-1))
		if !ok {
			return physics.Contact{}, false
		}
		d := p.distance(deepest)
		if d >= 0 {
			return physics.Contact{}, false
		}
		wb := deepest.Sub(p.Normal.Mul(d))
		ct := physics.NewContact(p.Normal, deepest, wb, -d, g.Material, p.Material)
		if support := supportPatch(verts[:], p.Normal.Mul(-1)); len(support) > 1 {
			for _, v := range support {
				dv := p.distance(v)
				ct.Patch = append(ct.Patch, physics.ContactPoint{
					AWorld: v,
					BWorld: v.Sub(p.Normal.Mul(dv)),
					Depth:  max(-dv, 0),
				})
			}
		}
		return ct, true
	}
	return physics.Contact{}, false
}

// Ray reports where the segment origin→origin+seg enters the ground.
func (p *Plane) Ray(origin, seg mgl64.Vec3) (physics.RayHit, bool) {
	s0 := p.distance(origin)
	s1 := p.distance(origin.Add(seg))
	if s0 < 0 || s1 >= 0 {
		return physics.RayHit{}, false
	}
	t := s0 / (s0 - s1)
	return physics.RayHit{
		Point:    origin.Add(seg.Mul(t)),
		Normal:   p.Normal,
		Depth:    seg.Len() * (1 - t),
		Material: p.Material,
	}, true
}
