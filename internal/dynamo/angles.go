package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SafeAcos clamps x into [-1, 1] before taking the arc cosine.
func SafeAcos(x float64) float64 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return math.Acos(x)
}

// WrapAngle maps x into [-π, π).
func WrapAngle(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

// AngleBetween returns the unsigned angle between two vectors, zero when
// either is degenerate.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	return SafeAcos(a.Dot(b) / (la * lb))
}

func Deg(rad float64) float64 { return mgl64.RadToDeg(rad) }

func Rad(deg float64) float64 { return mgl64.DegToRad(deg) }
