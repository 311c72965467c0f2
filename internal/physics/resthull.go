package physics

import "github.com/go-gl/mathgl/mgl64"

type HullType uint8

const (
	HullNone HullType = iota
	HullPoint
	HullLine
	HullTriangle
)

func (h HullType) String() string {
	switch h {
	case HullPoint:
		return "point"
	case HullLine:
		return "line"
	case HullTriangle:
		return "triangle"
	}
	return "none"
}

// RestHull is the support polygon formed by a body's rest contacts.
// Indices point into the body's rest records.
type RestHull struct {
	Type    HullType
	Indices [maxRestRecords]int
	Normal  mgl64.Vec3
}
