package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Camera orbits a target point and projects world space onto a canvas.
type Camera struct {
	Target   mgl64.Vec3
	Distance float64
	Yaw      float64
	Pitch    float64
	Zoom     float64
}

func NewCamera() *Camera {
	return &Camera{Target: mgl64.Vec3{0, 1, 0}, Distance: 12, Yaw: 0.6, Pitch: 0.35, Zoom: 1}
}

func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw += dYaw
	c.Pitch = mgl64.Clamp(c.Pitch+dPitch, -1.4, 1.4)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) view() mgl64.Mat4 {
	eye := mgl64.Vec3{
		c.Distance * math.Cos(c.Pitch) * math.Sin(c.Yaw),
		c.Distance * math.Sin(c.Pitch),
		c.Distance * math.Cos(c.Pitch) * math.Cos(c.Yaw),
	}.Add(c.Target)
	return mgl64.LookAtV(eye, c.Target, mgl64.Vec3{0, 1, 0})
}

// Project converts a world point to canvas sub-pixels. depth grows away
// from the camera; ok is false behind the eye or off the canvas.
func (c *Camera) Project(p mgl64.Vec3, pw, ph int) (x, y int, depth float64, ok bool) {
	v := c.view().Mul4x1(p.Vec4(1))
	depth = -v.Z()
	if depth <= 0.1 {
		return 0, 0, depth, false
	}
	focal := float64(min(pw, ph)) * c.Zoom
	x = int(math.Round(v.X()/depth*focal)) + pw/2
	y = int(math.Round(-v.Y()/depth*focal)) + ph/2
	return x, y, depth, x >= 0 && x < pw && y >= 0 && y < ph
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) AddEdge(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) Clear()                  { w.Edges = w.Edges[:0] }

var boxEdges = [12][2]int{{0, 1}, {1, 3}, {3, 2}, {2, 0}, {4, 5}, {5, 7}, {7, 6}, {6, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}

// defaultExtent is drawn for samples without geometry, such as frames read
// back from a store.
var defaultExtent = mgl64.Vec3{0.25, 0.25, 0.25}

// AddBody adds the oriented bounding box of b.
func (w *Wireframe) AddBody(b dynamo.BodySample) {
	h := b.Extent
	if h == (mgl64.Vec3{}) {
		h = defaultExtent
	}
	var corners [8]mgl64.Vec3
	for i := range corners {
		local := mgl64.Vec3{h[0], h[1], h[2]}
		if i&1 == 0 {
			local[0] = -local[0]
		}
		if i&2 == 0 {
			local[1] = -local[1]
		}
		if i&4 == 0 {
			local[2] = -local[2]
		}
		corners[i] = b.Rot.Rotate(local).Add(b.Pos)
	}
	for _, e := range boxEdges {
		w.AddEdge(corners[e[0]], corners[e[1]])
	}
}

// AddGround adds a square grid on y = 0.
func (w *Wireframe) AddGround(half float64, lines int) {
	if lines < 2 {
		lines = 2
	}
	step := 2 * half / float64(lines-1)
	for i := range lines {
		t := -half + float64(i)*step
		w.AddEdge(mgl64.Vec3{t, 0, -half}, mgl64.Vec3{t, 0, half})
		w.AddEdge(mgl64.Vec3{-half, 0, t}, mgl64.Vec3{half, 0, t})
	}
}

// FrameWireframe builds the wireframe of every body in f over a ground grid.
func FrameWireframe(f *dynamo.Frame, ground bool) *Wireframe {
	w := &Wireframe{}
	if ground {
		w.AddGround(5, 6)
	}
	for _, b := range f.Bodies {
		w.AddBody(b)
	}
	return w
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe far to near.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	pw, ph := c.PixelSize()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, pw, ph)
		x2, y2, d2, v2 := cam.Project(e.End, pw, ph)
		if d1 <= 0.1 || d2 <= 0.1 || !(v1 || v2) {
			continue
		}
		proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth > proj[j].depth })
	for _, e := range proj {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
}

// RenderSide draws the x/y silhouette of every body, looking down -z.
func RenderSide(c *Canvas, f *dynamo.Frame, v Viewport) {
	c.Line(v, v.MinX, 0, v.MaxX, 0)
	w := &Wireframe{}
	for _, b := range f.Bodies {
		w.Clear()
		w.AddBody(b)
		for _, e := range w.Edges {
			c.Line(v, e.Start.X(), e.Start.Y(), e.End.X(), e.End.Y())
		}
	}
}

// FitFrame returns a viewport containing the ground origin and every body.
func FitFrame(f *dynamo.Frame) Viewport {
	v := Viewport{MinX: -2, MaxX: 2, MinY: -0.5, MaxY: 3}
	for _, b := range f.Bodies {
		r := math.Max(b.Extent.Len(), defaultExtent.Len())
		v.Fit(b.Pos.X(), b.Pos.Y(), r+0.5)
	}
	return v
}
