package raster

// RGB is a drawing color for the overlay primitives.
type RGB struct {
	R, G, B uint8
}

// Overlay palette shared by the detector visualizations.
var (
	Red     = RGB{255, 0, 0}
	Green   = RGB{0, 255, 0}
	Blue    = RGB{0, 0, 255}
	Yellow  = RGB{255, 255, 0}
	Magenta = RGB{255, 0, 255}
	Cyan    = RGB{0, 255, 255}
	Orange  = RGB{255, 200, 0}
)

// BlendPixel mixes c into (x, y) at the given opacity. Coordinates outside
// the image are ignored.
func BlendPixel(m *Image, x, y int, c RGB, alpha float64) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	i := m.PixOffset(x, y)
	m.Pix[i] = blend(m.Pix[i], c.R, alpha)
	m.Pix[i+1] = blend(m.Pix[i+1], c.G, alpha)
	m.Pix[i+2] = blend(m.Pix[i+2], c.B, alpha)
}

func blend(base, over uint8, alpha float64) uint8 {
	v := alpha*float64(over) + (1-alpha)*float64(base)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func setClamped(m *Image, x, y int, c RGB) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Set(x, y, c.R, c.G, c.B)
}

// stamp paints a stroke*stroke brush anchored just above-left of (x, y),
// approximating a centered pen.
func stamp(m *Image, x, y, stroke int, c RGB) {
	if stroke < 1 {
		stroke = 1
	}
	off := stroke / 2
	for dy := 0; dy < stroke; dy++ {
		for dx := 0; dx < stroke; dx++ {
			setClamped(m, x-off+dx, y-off+dy, c)
		}
	}
}

// DrawLine draws a straight segment between the two points with the given
// stroke width.
func DrawLine(m *Image, x0, y0, x1, y1, stroke int, c RGB) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		stamp(m, x0, y0, stroke, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// StrokeRect outlines the rectangle with corner (x, y) and the given edge
// lengths.
func StrokeRect(m *Image, x, y, w, h, stroke int, c RGB) {
	DrawLine(m, x, y, x+w, y, stroke, c)
	DrawLine(m, x+w, y, x+w, y+h, stroke, c)
	DrawLine(m, x+w, y+h, x, y+h, stroke, c)
	DrawLine(m, x, y+h, x, y, stroke, c)
}

// FillCircle paints a filled disc blended over the image at the given
// opacity.
func FillCircle(m *Image, cx, cy, radius int, c RGB, alpha float64) {
	if radius < 0 {
		return
	}
	rr := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > rr {
				continue
			}
			BlendPixel(m, cx+dx, cy+dy, c, alpha)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
