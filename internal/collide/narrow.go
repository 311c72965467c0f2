package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

const (
	// vertices within this distance of the deepest one share the contact
	tieTolerance = 1e-3
	// vertices within this distance of the deepest one form the contact patch
	patchTolerance = 0.01
	// an axis this close to the normal marks a face lying across it
	faceAlign = 0.99
	// edge axes must beat face axes by this factor to be chosen
	edgeBias = 1.05
	epsilon  = 1e-9
)

// Narrow tests box and sphere pairs. Pairs involving other shapes never
// collide.
type Narrow struct{}

func NewNarrow() *Narrow { return &Narrow{} }

func (n *Narrow) Test(a, b physics.BodyRef) (physics.Contact, bool) {
	ga, gb := a.Geometry(), b.Geometry()
	ta, tb := a.Transform(), b.Transform()

	switch {
	case ga.Shape == physics.ShapeSphere && gb.Shape == physics.ShapeSphere:
		return sphereSphere(ga, ta, gb, tb)
	case ga.Shape == physics.ShapeSphere && gb.Shape == physics.ShapeBox:
		return sphereBox(ga, ta, gb, tb)
	case ga.Shape == physics.ShapeBox && gb.Shape == physics.ShapeSphere:
		c, ok := sphereBox(gb, tb, ga, ta)
		if !ok {
			return c, false
		}
		return c.Flip(), true
	case ga.Shape == physics.ShapeBox && gb.Shape == physics.ShapeBox:
		return boxBox(ga, ta, gb, tb)
	}
	return physics.Contact{}, false
}

func sphereSphere(ga physics.Geometry, ta physics.Transform, gb physics.Geometry, tb physics.Transform) (physics.Contact, bool) {
	d := ta.Pos.Sub(tb.Pos)
	dist := d.Len()
	depth := ga.Radius + gb.Radius - dist
	if depth <= 0 {
		return physics.Contact{}, false
	}
	n := mgl64.Vec3{0, 1, 0}
	if dist > epsilon {
		n = d.Mul(1 / dist)
	}
	wa := ta.Pos.Sub(n.Mul(ga.Radius))
	wb := tb.Pos.Add(n.Mul(gb.Radius))
	return physics.NewContact(n, wa, wb, depth, ga.Material, gb.Material), true
}

// sphereBox tests sphere A against box B.
func sphereBox(ga physics.Geometry, ta physics.Transform, gb physics.Geometry, tb physics.Transform) (physics.Contact, bool) {
	h := gb.HalfExtents
	rt := tb.Rot.Transpose()
	c := rt.Mul3x1(ta.Pos.Sub(tb.Pos))

	var q mgl64.Vec3
	for i := 0; i < 3; i++ {
		q[i] = math.Max(-h[i], math.Min(h[i], c[i]))
	}
	d := c.Sub(q)
	dist := d.Len()

	var nLocal mgl64.Vec3
	var depth float64
	if dist > epsilon {
		depth = ga.Radius - dist
		if depth <= 0 {
			return physics.Contact{}, false
		}
		nLocal = d.Mul(1 / dist)
	} else {
		// centre inside the box: push out through the nearest face
		axis, gap := 0, math.Inf(1)
		for i := 0; i < 3; i++ {
			if g := h[i] - math.Abs(c[i]); g < gap {
				axis, gap = i, g
			}
		}
		sign := 1.0
		if c[axis] < 0 {
			sign = -1
		}
		nLocal[axis] = sign
		q[axis] = sign * h[axis]
		depth = ga.Radius + gap
	}

	n := tb.Rot.Mul3x1(nLocal)
	wb := tb.Apply(q)
	wa := ta.Pos.Sub(n.Mul(ga.Radius))
	return physics.NewContact(n, wa, wb, depth, ga.Material, gb.Material), true
}

type satAxis struct {
	dir     mgl64.Vec3
	overlap float64
	kind    int // 0 face of A, 1 face of B, 2 edge pair
	i, j    int
}

// boxBox runs the separating axis test over the 15 candidate axes and
// places the contact at the deepest feature of the minimum axis.
func boxBox(ga physics.Geometry, ta physics.Transform, gb physics.Geometry, tb physics.Transform) (physics.Contact, bool) {
	ha, hb := ga.HalfExtents, gb.HalfExtents
	d := ta.Pos.Sub(tb.Pos)

	project := func(t physics.Transform, h, l mgl64.Vec3) float64 {
		return h[0]*math.Abs(t.Axis(0).Dot(l)) + h[1]*math.Abs(t.Axis(1).Dot(l)) + h[2]*math.Abs(t.Axis(2).Dot(l))
	}

	best := satAxis{overlap: math.Inf(1)}
	try := func(l mgl64.Vec3, kind, i, j int) bool {
		ll := l.Len()
		if ll < 1e-6 {
			return true
		}
		l = l.Mul(1 / ll)
		o := project(ta, ha, l) + project(tb, hb, l) - math.Abs(d.Dot(l))
		if o < 0 {
			return false
		}
		score := o
		if kind == 2 {
			score *= edgeBias
		}
		if score < best.overlap {
			if d.Dot(l) < 0 {
				l = l.Mul(-1)
			}
			best = satAxis{dir: l, overlap: score, kind: kind, i: i, j: j}
		}
		return true
	}

	for i := 0; i < 3; i++ {
		if !try(ta.Axis(i), 0, i, 0) {
			return physics.Contact{}, false
		}
	}
	for i := 0; i < 3; i++ {
		if !try(tb.Axis(i), 1, i, 0) {
			return physics.Contact{}, false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !try(ta.Axis(i).Cross(tb.Axis(j)), 2, i, j) {
				return physics.Contact{}, false
			}
		}
	}

	n := best.dir
	depth := best.overlap
	if best.kind == 2 {
		depth /= edgeBias
		wa, wb := edgeContact(ta, ha, tb, hb, n, best.i, best.j)
		return physics.NewContact(n, wa, wb, depth, ga.Material, gb.Material), true
	}

	var wa, wb mgl64.Vec3
	if best.kind == 1 {
		va := boxVertices(ta, ha)
		wa, _ = extremeAverage(va[:], n.Mul(-1))
		wb = wa.Add(n.Mul(depth))
	} else {
		vb := boxVertices(tb, hb)
		wb, _ = extremeAverage(vb[:], n)
		wa = wb.Sub(n.Mul(depth))
	}

	patch := facePatch(ta, ha, tb, hb, n, depth)
	ct := physics.NewContact(n, wa, wb, depth, ga.Material, gb.Material)
	if len(patch) > 1 {
		var mean mgl64.Vec3
		for _, p := range patch {
			mean = mean.Add(p.AWorld)
		}
		mean = mean.Mul(1 / float64(len(patch)))
		ct = physics.NewContact(n, mean, mean.Add(n.Mul(depth)), depth, ga.Material, gb.Material)
		ct.Patch = patch
	}
	return ct, true
}

// facePatch collects the vertices of each box that sit within
// patchTolerance of its deepest point along n and inside the side faces of
// the other box. A box only contributes when the other box has a face
// across n.
func facePatch(ta physics.Transform, ha mgl64.Vec3, tb physics.Transform, hb mgl64.Vec3, n mgl64.Vec3, depth float64) []physics.ContactPoint {
	var patch []physics.ContactPoint
	if hasFaceAcross(tb, n) {
		va := boxVertices(ta, ha)
		down := n.Mul(-1)
		top := extremeDot(va[:], down)
		for _, v := range supportPatch(va[:], down) {
			if !insideSides(tb, hb, v, n) {
				continue
			}
			d := depth - (top - v.Dot(down))
			patch = append(patch, physics.ContactPoint{AWorld: v, BWorld: v.Add(n.Mul(d)), Depth: max(d, 0)})
		}
	}
	if hasFaceAcross(ta, n) {
		vb := boxVertices(tb, hb)
		top := extremeDot(vb[:], n)
		for _, v := range supportPatch(vb[:], n) {
			if !insideSides(ta, ha, v, n) {
				continue
			}
			d := depth - (top - v.Dot(n))
			a := v.Sub(n.Mul(d))
			if !patchHas(patch, a) {
				patch = append(patch, physics.ContactPoint{AWorld: a, BWorld: v, Depth: max(d, 0)})
			}
		}
	}
	return patch
}

// patchHas reports whether a corner of A already sits at p. Equal faces
// meet corner to corner.
func patchHas(patch []physics.ContactPoint, p mgl64.Vec3) bool {
	for _, q := range patch {
		if q.AWorld.Sub(p).Len() <= patchTolerance {
			return true
		}
	}
	return false
}

func hasFaceAcross(t physics.Transform, n mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if math.Abs(t.Axis(k).Dot(n)) > faceAlign {
			return true
		}
	}
	return false
}

// insideSides reports whether p lies within the box's extent along the two
// axes lying across n.
func insideSides(t physics.Transform, h, p, n mgl64.Vec3) bool {
	local := p.Sub(t.Pos)
	for k := 0; k < 3; k++ {
		ax := t.Axis(k)
		if math.Abs(ax.Dot(n)) > faceAlign {
			continue
		}
		if math.Abs(ax.Dot(local)) > h[k]+patchTolerance {
			return false
		}
	}
	return true
}

// edgeContact returns the closest points of A's edge along axis i and B's
// edge along axis j, each taken on the side facing the other box.
func edgeContact(ta physics.Transform, ha mgl64.Vec3, tb physics.Transform, hb mgl64.Vec3, n mgl64.Vec3, i, j int) (mgl64.Vec3, mgl64.Vec3) {
	pa := ta.Pos
	for k := 0; k < 3; k++ {
		if k == i {
			continue
		}
		ax := ta.Axis(k)
		if ax.Dot(n) > 0 {
			pa = pa.Sub(ax.Mul(ha[k]))
		} else {
			pa = pa.Add(ax.Mul(ha[k]))
		}
	}
	pb := tb.Pos
	for k := 0; k < 3; k++ {
		if k == j {
			continue
		}
		ax := tb.Axis(k)
		if ax.Dot(n) > 0 {
			pb = pb.Add(ax.Mul(hb[k]))
		} else {
			pb = pb.Sub(ax.Mul(hb[k]))
		}
	}

	ea, eb := ta.Axis(i), tb.Axis(j)
	r := pa.Sub(pb)
	b := ea.Dot(eb)
	c := ea.Dot(r)
	f := eb.Dot(r)
	den := 1 - b*b
	s, t := 0.0, 0.0
	if den > epsilon {
		s = (b*f - c) / den
		t = (f - b*c) / den
	}
	s = math.Max(-ha[i], math.Min(ha[i], s))
	t = math.Max(-hb[j], math.Min(hb[j], t))
	return pa.Add(ea.Mul(s)), pb.Add(eb.Mul(t))
}

func boxVertices(t physics.Transform, h mgl64.Vec3) [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for k := 0; k < 8; k++ {
		local := mgl64.Vec3{h[0], h[1], h[2]}
		if k&1 != 0 {
			local[0] = -local[0]
		}
		if k&2 != 0 {
			local[1] = -local[1]
		}
		if k&4 != 0 {
			local[2] = -local[2]
		}
		out[k] = t.Apply(local)
	}
	return out
}

// extremeAverage returns the mean of the vertices furthest along dir,
// treating vertices within tieTolerance as equally far.
func extremeAverage(verts []mgl64.Vec3, dir mgl64.Vec3) (mgl64.Vec3, bool) {
	if len(verts) == 0 {
		return mgl64.Vec3{}, false
	}
	top := math.Inf(-1)
	for _, v := range verts {
		top = math.Max(top, v.Dot(dir))
	}
	var sum mgl64.Vec3
	n := 0
	for _, v := range verts {
		if v.Dot(dir) >= top-tieTolerance {
			sum = sum.Add(v)
			n++
		}
	}
	return sum.Mul(1 / float64(n)), true
}

func extremeDot(verts []mgl64.Vec3, dir mgl64.Vec3) float64 {
	top := math.Inf(-1)
	for _, v := range verts {
		top = math.Max(top, v.Dot(dir))
	}
	return top
}

// supportPatch returns the vertices within patchTolerance of the furthest
// one along dir.
func supportPatch(verts []mgl64.Vec3, dir mgl64.Vec3) []mgl64.Vec3 {
	top := extremeDot(verts, dir)
	var out []mgl64.Vec3
	for _, v := range verts {
		if v.Dot(dir) >= top-patchTolerance {
			out = append(out, v)
		}
	}
	return out
}
