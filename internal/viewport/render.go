// SPDX-License-Identifier: MIT
package viewport

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"musicpainter/internal/display"

	"golang.org/x/image/vector"
)

const (
	lineWidth = 1.0 // Pixels.
	pointSize = 2.0 // Pixels, edge of the square drawn for a point.
)

var (
	DefaultBackground = color.NRGBA{A: 255}
	DefaultBorder     = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

// Renderer rasterizes one display list for one viewer. It remembers how far
// it has drawn so later calls can draw only what was appended since.
type Renderer struct {
	Background color.Color
	Border     color.Color

	list   *display.List
	cursor int
	z      *vector.Rasterizer
}

// NewRenderer returns a renderer over list with the default colors.
func NewRenderer(list *display.List) *Renderer {
	return &Renderer{
		Background: DefaultBackground,
		Border:     DefaultBorder,
		list:       list,
		z:          vector.NewRasterizer(0, 0),
	}
}

// Cursor returns how many primitives have been drawn.
func (r *Renderer) Cursor() int {
	return r.cursor
}

// Full clears dst and draws every primitive.
func (r *Renderer) Full(dst draw.Image, vp *Viewport) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)
	r.cursor = 0
	r.Incremental(dst, vp)
}

// Incremental draws the primitives appended since the last call and leaves
// the rest of dst alone. A list that shrank since then is redrawn in full.
func (r *Renderer) Incremental(dst draw.Image, vp *Viewport) {
	n := r.list.Len()
	if n < r.cursor {
		r.Full(dst, vp)
		return
	}
	r.cursor = r.list.Range(r.cursor, n, func(_ int, p display.Primitive) bool {
		r.drawPrimitive(dst, vp, p)
		return true
	})
	r.drawBorder(dst)
}

func (r *Renderer) drawBorder(dst draw.Image) {
	b := dst.Bounds()
	if b.Empty() {
		return
	}
	src := image.NewUniform(r.Border)
	for _, edge := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+1),
		image.Rect(b.Min.X, b.Max.Y-1, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+1, b.Max.Y),
		image.Rect(b.Max.X-1, b.Min.Y, b.Max.X, b.Max.Y),
	} {
		draw.Draw(dst, edge, src, image.Point{}, draw.Src)
	}
}

type pt struct{ x, y float64 }

func (r *Renderer) drawPrimitive(dst draw.Image, vp *Viewport, p display.Primitive) {
	screen := func(x, y float64) pt {
		sx, sy := vp.ToScreen(x, y)
		return pt{sx, sy}
	}
	c := p.Paint()

	switch s := p.(type) {
	case display.Point:
		r.fill(dst, c, square(screen(s.X, s.Y), pointSize))
	case display.Line:
		r.fill(dst, c, segment(screen(s.X1, s.Y1), screen(s.X2, s.Y2)))
	case display.Circle:
		center := screen(s.CX, s.CY)
		radius := math.Abs(s.Radius) * vp.Scale()
		if s.Filled || radius <= lineWidth/2 {
			r.fill(dst, c, circle(center, radius, false))
		} else {
			r.fill(dst, c, circle(center, radius+lineWidth/2, false), circle(center, radius-lineWidth/2, true))
		}
	case display.Rectangle:
		a, b := screen(s.X1, s.Y1), screen(s.X2, s.Y2)
		corners := []pt{a, {b.x, a.y}, b, {a.x, b.y}}
		if s.Filled {
			r.fill(dst, c, corners)
		} else {
			r.outline(dst, c, corners)
		}
	case display.Triangle:
		corners := []pt{screen(s.X1, s.Y1), screen(s.X2, s.Y2), screen(s.X3, s.Y3)}
		if s.Filled {
			r.fill(dst, c, corners)
		} else {
			r.outline(dst, c, corners)
		}
	}
}

func (r *Renderer) outline(dst draw.Image, c color.NRGBA, corners []pt) {
	polys := make([][]pt, len(corners))
	for i := range corners {
		polys[i] = segment(corners[i], corners[(i+1)%len(corners)])
	}
	r.fill(dst, c, polys...)
}

// fill rasterizes polygons in pixel coordinates with the non-zero rule and
// composites c over dst. Only the bounding box of the shape is touched.
func (r *Renderer) fill(dst draw.Image, c color.NRGBA, polys ...[]pt) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, q := range poly {
			if math.IsNaN(q.x) || math.IsNaN(q.y) || math.IsInf(q.x, 0) || math.IsInf(q.y, 0) {
				return
			}
			minX, maxX = math.Min(minX, q.x), math.Max(maxX, q.x)
			minY, maxY = math.Min(minY, q.y), math.Max(maxY, q.y)
		}
	}
	if minX > maxX {
		return
	}
	box := image.Rect(
		int(math.Max(math.Floor(minX), math.MinInt32)), int(math.Max(math.Floor(minY), math.MinInt32)),
		int(math.Min(math.Ceil(maxX), math.MaxInt32)), int(math.Min(math.Ceil(maxY), math.MaxInt32)),
	).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}

	w, h := float64(box.Dx()), float64(box.Dy())
	r.z.Reset(box.Dx(), box.Dy())
	drawn := false
	for _, poly := range polys {
		local := make([]pt, len(poly))
		for i, q := range poly {
			local[i] = pt{q.x - float64(box.Min.X), q.y - float64(box.Min.Y)}
		}
		local = clip(local, w, h)
		if len(local) < 3 {
			continue
		}
		r.z.MoveTo(float32(local[0].x), float32(local[0].y))
		for _, q := range local[1:] {
			r.z.LineTo(float32(q.x), float32(q.y))
		}
		r.z.ClosePath()
		drawn = true
	}
	if drawn {
		r.z.Draw(dst, box, image.NewUniform(c), image.Point{})
	}
}

func square(c pt, size float64) []pt {
	h := size / 2
	return []pt{{c.x - h, c.y - h}, {c.x + h, c.y - h}, {c.x + h, c.y + h}, {c.x - h, c.y + h}}
}

// segment returns a quad of lineWidth around a-b with square caps.
func segment(a, b pt) []pt {
	dx, dy := b.x-a.x, b.y-a.y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return square(a, lineWidth)
	}
	h := lineWidth / 2
	ux, uy := dx/length*h, dy/length*h // Along the segment.
	nx, ny := -uy, ux                  // Normal.
	return []pt{
		{a.x - ux + nx, a.y - uy + ny},
		{b.x + ux + nx, b.y + uy + ny},
		{b.x + ux - nx, b.y + uy - ny},
		{a.x - ux - nx, a.y - uy - ny},
	}
}

// circle approximates a circle with a polygon. reverse flips the winding so
// it cuts a hole out of a circle drawn the other way round.
func circle(c pt, radius float64, reverse bool) []pt {
	n := int(math.Min(256, math.Max(16, radius*2)))
	out := make([]pt, n)
	for i := range n {
		theta := 2 * math.Pi * float64(i) / float64(n)
		if reverse {
			theta = -theta
		}
		out[i] = pt{c.x + radius*math.Cos(theta), c.y + radius*math.Sin(theta)}
	}
	return out
}

// clip cuts poly to the rectangle [0, w] x [0, h] (Sutherland-Hodgman).
func clip(poly []pt, w, h float64) []pt {
	edges := []struct {
		inside func(pt) bool
		cross  func(a, b pt) pt
	}{
		{func(p pt) bool { return p.x >= 0 }, func(a, b pt) pt { return lerpX(a, b, 0) }},
		{func(p pt) bool { return p.x <= w }, func(a, b pt) pt { return lerpX(a, b, w) }},
		{func(p pt) bool { return p.y >= 0 }, func(a, b pt) pt { return lerpY(a, b, 0) }},
		{func(p pt) bool { return p.y <= h }, func(a, b pt) pt { return lerpY(a, b, h) }},
	}
	for _, e := range edges {
		if len(poly) == 0 {
			return nil
		}
		in := poly
		poly = make([]pt, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				poly = append(poly, cur)
			case e.inside(cur):
				poly = append(poly, e.cross(prev, cur), cur)
			case e.inside(prev):
				poly = append(poly, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return poly
}

func lerpX(a, b pt, x float64) pt {
	t := (x - a.x) / (b.x - a.x)
	return pt{x, a.y + t*(b.y-a.y)}
}

func lerpY(a, b pt, y float64) pt {
	t := (y - a.y) / (b.y - a.y)
	return pt{a.x + t*(b.x-a.x), y}
}
