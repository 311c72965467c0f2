package analysis

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Pick extracts one coordinate from a body sample.
type Pick func(b dynamo.BodySample) float64

func Height(b dynamo.BodySample) float64          { return b.Pos[1] }
func VerticalSpeed(b dynamo.BodySample) float64   { return b.Vel[1] }
func X(b dynamo.BodySample) float64               { return b.Pos[0] }
func HorizontalSpeed(b dynamo.BodySample) float64 { return b.Vel[0] }

// Tilt is the angle in degrees between the body's up axis and world up.
func Tilt(b dynamo.BodySample) float64 {
	return dynamo.Deg(dynamo.AngleBetween(b.Rot.Rotate(mgl64.Vec3{0, 1, 0}), mgl64.Vec3{0, 1, 0}))
}

// Heading is the body's yaw about world up in degrees, wrapped to [-180, 180).
func Heading(b dynamo.BodySample) float64 {
	fwd := b.Rot.Rotate(mgl64.Vec3{1, 0, 0})
	return dynamo.Deg(dynamo.WrapAngle(math.Atan2(-fwd[2], fwd[0])))
}

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Points []struct{ X, Y float64 }
}

// PhasePortrait collects (x, y) for body id over the recorded frames.
func PhasePortrait(frames []dynamo.Frame, id int, x, y Pick) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		Points: make([]struct{ X, Y float64 }, 0, len(frames)),
	}
	for _, f := range frames {
		b, ok := f.Body(id)
		if !ok {
			continue
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{X: x(b), Y: y(b)})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	// Find bounds
	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	// Create canvas
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	// Plot points
	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	// Convert to string
	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection records points when a trajectory crosses a plane
type PoincareSection struct {
	Points []struct{ X, Y float64 }
}

// GeneratePoincareSection records (x, y) of body id each time cross goes
// upward through threshold, interpolating between the bracketing frames.
func GeneratePoincareSection(frames []dynamo.Frame, id int, cross Pick, threshold float64, x, y Pick) *PoincareSection {
	section := &PoincareSection{
		Points: make([]struct{ X, Y float64 }, 0),
	}

	var prev dynamo.BodySample
	havePrev := false
	for _, f := range frames {
		b, ok := f.Body(id)
		if !ok {
			continue
		}
		if havePrev {
			p, c := cross(prev), cross(b)
			if p < threshold && c >= threshold {
				frac := (threshold - p) / (c - p)
				if math.IsNaN(frac) || math.IsInf(frac, 0) {
					frac = 0.5
				}
				section.Points = append(section.Points, struct{ X, Y float64 }{
					X: x(prev) + frac*(x(b)-x(prev)),
					Y: y(prev) + frac*(y(b)-y(prev)),
				})
			}
		}
		prev, havePrev = b, true
	}

	return section
}

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}

	// Use same logic as phase portrait
	portrait := &PhasePortrait2D{Points: section.Points}
	return PhasePortraitToASCII(portrait, width, height)
}
