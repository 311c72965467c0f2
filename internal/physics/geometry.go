package physics

import "github.com/go-gl/mathgl/mgl64"

type ShapeKind uint8

const (
	ShapeNone ShapeKind = iota
	ShapeBox
	ShapeSphere
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	}
	return "none"
}

// Geometry is the collision shape of a body, centred on the body origin.
type Geometry struct {
	Shape       ShapeKind
	HalfExtents mgl64.Vec3
	Radius      float64
	Material    int
}

func Box(halfExtents mgl64.Vec3, material int) Geometry {
	return Geometry{Shape: ShapeBox, HalfExtents: halfExtents, Material: material}
}

func Sphere(radius float64, material int) Geometry {
	return Geometry{Shape: ShapeSphere, Radius: radius, HalfExtents: mgl64.Vec3{radius, radius, radius}, Material: material}
}

// BoundingRadius is the radius of the sphere enclosing the shape.
func (g Geometry) BoundingRadius() float64 {
	switch g.Shape {
	case ShapeBox:
		return g.HalfExtents.Len()
	case ShapeSphere:
		return g.Radius
	}
	return 0
}

// InertiaTensor returns the body-space inertia of the solid shape with the
// given density, and its mass.
func (g Geometry) InertiaTensor(density float64) (mgl64.Mat3, float64) {
	switch g.Shape {
	case ShapeBox:
		h := g.HalfExtents
		x, y, z := 2*h[0], 2*h[1], 2*h[2]
		m := density * x * y * z
		return mgl64.Diag3(mgl64.Vec3{
			m * (y*y + z*z) / 12,
			m * (x*x + z*z) / 12,
			m * (x*x + y*y) / 12,
		}), m
	case ShapeSphere:
		r := g.Radius
		m := density * 4.0 / 3.0 * 3.141592653589793 * r * r * r
		i := 0.4 * m * r * r
		return mgl64.Diag3(mgl64.Vec3{i, i, i}), m
	}
	return mgl64.Ident3(), 1
}

// AABB is a world-space axis-aligned bounding box.
type AABB struct {
	Min, Max mgl64.Vec3
}

func (a AABB) Overlaps(b AABB) bool {
	for i := 0; i < 3; i++ {
		if a.Max[i] < b.Min[i] || b.Max[i] < a.Min[i] {
			return false
		}
	}
	return true
}

// obbBounds returns the AABB of the oriented half-extent box h placed at t.
func obbBounds(t Transform, h mgl64.Vec3) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		a := 0.0
		for j := 0; j < 3; j++ {
			a += abs(t.Rot.At(i, j)) * h[j]
		}
		out.Min[i] = t.Pos[i] - a
		out.Max[i] = t.Pos[i] + a
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
