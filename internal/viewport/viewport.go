// SPDX-License-Identifier: MIT

// Package viewport maps the logical drawing space onto pixels and
// rasterizes a display list, either in full or from a remembered cursor.
//
// The shorter pixel dimension always spans the logical range [-1, 1] at
// zoom 1; the longer one is stretched by the aspect ratio so circles stay
// round. Logical y grows upwards.
package viewport

import "math"

const (
	MinZoom = 1.0
	MaxZoom = 1000.0

	// WheelScale divides wheel deltas; one notch is usually 120.
	WheelScale = 5000.0
	// DragZoomScale divides modifier-drag distances in pixels.
	DragZoomScale = 100.0
)

// Bounds is the visible logical rectangle.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Viewport holds the pan and zoom state of one viewer. The zero value is
// not usable; call New.
type Viewport struct {
	CX, CY float64 // Center offset, see ToScreen.
	Zoom   float64
	Width  int // Pixels.
	Height int
}

// New returns a viewport of w x h pixels at zoom 1, centered.
func New(w, h int) *Viewport {
	return &Viewport{Zoom: MinZoom, Width: w, Height: h}
}

// SetSize changes the pixel size; center and zoom are kept.
func (v *Viewport) SetSize(w, h int) {
	v.Width, v.Height = w, h
}

// Ranges returns the full logical width and height currently visible.
func (v *Viewport) Ranges() (xRange, yRange float64) {
	w, h := v.pixels()
	xExt, yExt := 1.0, 1.0
	if w >= h {
		xExt = w / h
	} else {
		yExt = h / w
	}
	return 2 * xExt / v.Zoom, 2 * yExt / v.Zoom
}

// Bounds returns the visible logical rectangle.
func (v *Viewport) Bounds() Bounds {
	xr, yr := v.Ranges()
	return Bounds{
		MinX: -v.CX - xr/2, MaxX: -v.CX + xr/2,
		MinY: v.CY - yr/2, MaxY: v.CY + yr/2,
	}
}

// ToScreen maps a logical point to pixel coordinates.
func (v *Viewport) ToScreen(x, y float64) (sx, sy float64) {
	w, h := v.pixels()
	xr, yr := v.Ranges()
	sx = ((x+v.CX)/xr)*w + w/2
	sy = ((v.CY-y)/yr)*h + h/2
	return sx, sy
}

// ToLogical is the inverse of ToScreen.
func (v *Viewport) ToLogical(sx, sy float64) (x, y float64) {
	w, h := v.pixels()
	xr, yr := v.Ranges()
	x = (sx-w/2)/w*xr - v.CX
	y = v.CY - (sy-h/2)/h*yr
	return x, y
}

// Scale returns pixels per logical unit. It is the same on both axes.
func (v *Viewport) Scale() float64 {
	w, _ := v.pixels()
	xr, _ := v.Ranges()
	return w / xr
}

// Pan moves the content by a drag of dx, dy pixels.
func (v *Viewport) Pan(dx, dy float64) {
	w, h := v.pixels()
	xr, yr := v.Ranges()
	v.CX += dx * xr / w
	v.CY += dy * yr / h
}

// Wheel zooms by a wheel delta. The center is unchanged.
func (v *Viewport) Wheel(delta float64) {
	v.SetZoom(v.Zoom * (1 + delta/WheelScale))
}

// DragZoom zooms by a modifier drag of dx, dy pixels.
func (v *Viewport) DragZoom(dx, dy float64) {
	v.SetZoom(v.Zoom * (1 + (dx+dy)/DragZoomScale))
}

// SetZoom sets the zoom factor clamped to [MinZoom, MaxZoom].
func (v *Viewport) SetZoom(z float64) {
	switch {
	case math.IsNaN(z) || z < MinZoom:
		z = MinZoom
	case z > MaxZoom:
		z = MaxZoom
	}
	v.Zoom = z
}

func (v *Viewport) ResetCenter() { v.CX, v.CY = 0, 0 }
func (v *Viewport) ResetZoom()   { v.Zoom = MinZoom }

// Reset restores zoom 1 and the origin as center.
func (v *Viewport) Reset() {
	v.ResetCenter()
	v.ResetZoom()
}

func (v *Viewport) pixels() (w, h float64) {
	return float64(max(v.Width, 1)), float64(max(v.Height, 1))
}
