package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

const zeroTolerance = 1.0e-6

// Transform is a rigid placement: world = Rot·p + Pos.
type Transform struct {
	Pos mgl64.Vec3
	Rot mgl64.Mat3
}

func IdentityTransform() Transform {
	return Transform{Rot: mgl64.Ident3()}
}

func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rot.Mul3x1(p).Add(t.Pos)
}

// Mul returns t∘o, the placement of o expressed in t's parent frame.
func (t Transform) Mul(o Transform) Transform {
	return Transform{Pos: t.Apply(o.Pos), Rot: t.Rot.Mul3(o.Rot)}
}

// Inverse returns the placement that undoes t.
func (t Transform) Inverse() Transform {
	rt := t.Rot.Transpose()
	return Transform{Pos: rt.Mul3x1(t.Pos).Mul(-1), Rot: rt}
}

// Axis returns column i of the rotation.
func (t Transform) Axis(i int) mgl64.Vec3 {
	return t.Rot.Col(i)
}

func isZero(x float64) bool {
	return math.Abs(x) < zeroTolerance
}

func vecIsZero(v mgl64.Vec3) bool {
	return isZero(v[0]) && isZero(v[1]) && isZero(v[2])
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func vecFinite(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

func matFinite(m mgl64.Mat3) bool {
	for _, x := range m {
		if !finite(x) {
			return false
		}
	}
	return true
}

func clamp[T constraints.Float | constraints.Integer](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// skew returns the cross-product matrix [a]× so that [a]×·b = a × b.
func skew(a mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{0, -a[2], a[1]},
		mgl64.Vec3{a[2], 0, -a[0]},
		mgl64.Vec3{-a[1], a[0], 0},
	)
}

// removeComponent strips the part of v along the unit vector dir.
func removeComponent(v, dir mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(dir.Mul(v.Dot(dir)))
}

func normalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if isZero(l) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// chooseAxis builds two tangents x and y so that (x, y, normal) is a
// right-handed orthonormal basis.
func chooseAxis(normal mgl64.Vec3) (x, y mgl64.Vec3) {
	i := 0
	for j := 1; j < 3; j++ {
		if math.Abs(normal[j]) > math.Abs(normal[i]) {
			i = j
		}
	}
	x = mgl64.Vec3{1, 1, 1}
	sum := 0.0
	for j := 0; j < 3; j++ {
		if j != i {
			sum += normal[j]
		}
	}
	x[i] = -sum / normal[i]
	x = x.Normalize()
	y = normal.Cross(x)
	return x, y
}

// collisionFrame returns the contact basis with the normal in column 2.
func collisionFrame(normal mgl64.Vec3) mgl64.Mat3 {
	x, y := chooseAxis(normal)
	return mgl64.Mat3FromCols(x, y, normal)
}

// invert returns m⁻¹ and false when m is singular or the result is not finite.
func invert(m mgl64.Mat3) (mgl64.Mat3, bool) {
	if isZero(m.Det()) {
		return mgl64.Mat3{}, false
	}
	inv := m.Inv()
	if !matFinite(inv) {
		return mgl64.Mat3{}, false
	}
	return inv, true
}

// distanceFromLine returns the distance of p from the infinite line through a and b.
func distanceFromLine(p, a, b mgl64.Vec3) float64 {
	ab := b.Sub(a)
	l := ab.Len()
	if isZero(l) {
		return p.Sub(a).Len()
	}
	return ab.Cross(p.Sub(a)).Len() / l
}

// quatAngle returns the rotation angle of q in [0, π].
func quatAngle(q mgl64.Quat) float64 {
	q = q.Normalize()
	w := clamp(math.Abs(q.W), 0, 1)
	return 2 * math.Acos(w)
}
