package viz

import (
	"math"
	"strings"
)

// Braille patterns pack a 2x4 dot grid into one cell:
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille dot grid of Width x Height cells, addressed in
// sub-pixels: (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// PixelSize is the canvas size in sub-pixels.
func (c *Canvas) PixelSize() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, mask rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, rune(pixelMap[y%4][x%2]), true
}

func (c *Canvas) Set(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= mask
	}
}

func (c *Canvas) Unset(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] &^= mask
	}
}

// IsSet reports whether the sub-pixel at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	row, col, mask, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&mask != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps a world rectangle onto a canvas with y pointing up.
type Viewport struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Fit grows v to contain (x, y) with margin on every side.
func (v *Viewport) Fit(x, y, margin float64) {
	v.MinX = math.Min(v.MinX, x-margin)
	v.MaxX = math.Max(v.MaxX, x+margin)
	v.MinY = math.Min(v.MinY, y-margin)
	v.MaxY = math.Max(v.MaxY, y+margin)
}

// ToPixel converts world coordinates to canvas sub-pixels, keeping the
// aspect ratio so boxes stay square.
func (v Viewport) ToPixel(c *Canvas, x, y float64) (int, int) {
	pw, ph := c.PixelSize()
	w, h := v.MaxX-v.MinX, v.MaxY-v.MinY
	if w <= 0 || h <= 0 {
		return pw / 2, ph / 2
	}
	scale := math.Min(float64(pw-1)/w, float64(ph-1)/h)
	ox := (float64(pw-1) - w*scale) / 2
	oy := (float64(ph-1) - h*scale) / 2
	px := ox + (x-v.MinX)*scale
	py := float64(ph-1) - oy - (y-v.MinY)*scale
	return int(math.Round(px)), int(math.Round(py))
}

// Line draws a world-space segment.
func (c *Canvas) Line(v Viewport, x0, y0, x1, y1 float64) {
	ax, ay := v.ToPixel(c, x0, y0)
	bx, by := v.ToPixel(c, x1, y1)
	c.DrawLine(ax, ay, bx, by)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
