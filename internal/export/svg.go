package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/viz"
)

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, w, h, w, h)
}

// CanvasToSVG converts a braille canvas to one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	pw, ph := canvas.PixelSize()

	var sb strings.Builder
	header(&sb, float64(pw)*scale, float64(ph)*scale)
	sb.WriteString("<g fill=\"#00ff00\">\n")
	r := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// RunToSVG draws a side view of a run: the ground line, every body's x/y
// path, and the outline of each body in the last frame.
func RunToSVG(out io.Writer, frames []dynamo.Frame, width, height int) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to draw")
	}

	v := viz.Viewport{MinX: -1, MaxX: 1, MinY: -0.5, MaxY: 1}
	paths := map[int][][2]float64{}
	var order []int
	for _, f := range frames {
		for _, b := range f.Bodies {
			if _, ok := paths[b.ID]; !ok {
				order = append(order, b.ID)
			}
			paths[b.ID] = append(paths[b.ID], [2]float64{b.Pos.X(), b.Pos.Y()})
			v.Fit(b.Pos.X(), b.Pos.Y(), 1)
		}
	}

	// Same mapping as viz.Viewport, on a width x height pixel grid.
	w, h := float64(width), float64(height)
	sx, sy := w/(v.MaxX-v.MinX), h/(v.MaxY-v.MinY)
	s := min(sx, sy)
	ox := (w - (v.MaxX-v.MinX)*s) / 2
	oy := (h - (v.MaxY-v.MinY)*s) / 2
	px := func(x, y float64) (float64, float64) {
		return ox + (x-v.MinX)*s, h - oy - (y-v.MinY)*s
	}

	var sb strings.Builder
	header(&sb, w, h)

	gx0, gy := px(v.MinX, 0)
	gx1, _ := px(v.MaxX, 0)
	fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"#666666\" stroke-width=\"1\"/>\n", gx0, gy, gx1, gy)

	for i, id := range order {
		pts := paths[id]
		if len(pts) < 2 {
			continue
		}
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" stroke-opacity=\"0.6\" d=\"", palette[i%len(palette)])
		for j, p := range pts {
			x, y := px(p[0], p[1])
			if j == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	last := frames[len(frames)-1]
	wire := &viz.Wireframe{}
	for i, b := range last.Bodies {
		wire.Clear()
		wire.AddBody(b)
		fmt.Fprintf(&sb, "<g stroke=\"%s\" stroke-width=\"1\">\n", palette[i%len(palette)])
		for _, e := range wire.Edges {
			x1, y1 := px(e.Start.X(), e.Start.Y())
			x2, y2 := px(e.End.X(), e.End.Y())
			fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", x1, y1, x2, y2)
		}
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(out, sb.String())
	return err
}
