// SPDX-License-Identifier: MIT
package viewport

import (
	"context"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"
	"time"

	"musicpainter/internal/display"

	"github.com/disintegration/imaging"
)

const eps = 1e-9

func TestZoomClamp(t *testing.T) {
	v := New(800, 600)
	ops := []func(){
		func() { v.Wheel(-1e6) },
		func() { v.Wheel(120) },
		func() { v.DragZoom(1e5, 1e5) },
		func() { v.DragZoom(-300, 0) },
		func() { v.SetZoom(math.NaN()) },
		func() { v.SetZoom(math.Inf(1)) },
	}
	for i := range 200 {
		ops[i%len(ops)]()
		if v.Zoom < MinZoom || v.Zoom > MaxZoom {
			t.Fatalf("zoom %g out of range after op %d", v.Zoom, i)
		}
	}

	v.SetZoom(5000)
	if v.Zoom != MaxZoom {
		t.Errorf("zoom = %g, want %g", v.Zoom, MaxZoom)
	}
	v.SetZoom(0.2)
	if v.Zoom != MinZoom {
		t.Errorf("zoom = %g, want %g", v.Zoom, MinZoom)
	}
}

func TestWheelKeepsCenter(t *testing.T) {
	v := New(400, 400)
	v.Pan(30, -10)
	cx, cy := v.CX, v.CY
	v.Wheel(120)
	if v.CX != cx || v.CY != cy {
		t.Error("zoom must not move the center")
	}
	if want := 1 + 120.0/WheelScale; math.Abs(v.Zoom-want) > eps {
		t.Errorf("zoom = %g, want %g", v.Zoom, want)
	}
	v.DragZoom(50, 50)
	if want := (1 + 120.0/WheelScale) * 2; math.Abs(v.Zoom-want) > eps {
		t.Errorf("zoom after drag = %g, want %g", v.Zoom, want)
	}
}

func TestReset(t *testing.T) {
	v := New(640, 480)
	v.Pan(123, 45)
	v.Wheel(900)

	v.ResetZoom()
	if v.Zoom != 1 || v.CX == 0 {
		t.Errorf("ResetZoom should only reset zoom: %+v", v)
	}
	v.Wheel(900)
	v.ResetCenter()
	if v.CX != 0 || v.CY != 0 || v.Zoom == 1 {
		t.Errorf("ResetCenter should only reset center: %+v", v)
	}
	v.Pan(10, 10)
	v.Reset()
	if v.Zoom != 1 || v.CX != 0 || v.CY != 0 {
		t.Errorf("Reset = %+v, want zoom 1 at the origin", v)
	}
}

func TestAspectBounds(t *testing.T) {
	tests := []struct {
		w, h   int
		zoom   float64
		xr, yr float64
	}{
		{800, 800, 1, 2, 2},
		{800, 400, 1, 4, 2},
		{400, 800, 1, 2, 4},
		{800, 400, 4, 1, 0.5},
	}
	for _, tt := range tests {
		v := New(tt.w, tt.h)
		v.SetZoom(tt.zoom)
		xr, yr := v.Ranges()
		if math.Abs(xr-tt.xr) > eps || math.Abs(yr-tt.yr) > eps {
			t.Errorf("%dx%d zoom %g: ranges = (%g, %g), want (%g, %g)", tt.w, tt.h, tt.zoom, xr, yr, tt.xr, tt.yr)
		}
		// Circles stay round.
		if sx, sy := float64(tt.w)/xr, float64(tt.h)/yr; math.Abs(sx-sy) > eps {
			t.Errorf("%dx%d: x scale %g != y scale %g", tt.w, tt.h, sx, sy)
		}
	}

	v := New(800, 400)
	b := v.Bounds()
	if b.MinX != -2 || b.MaxX != 2 || b.MinY != -1 || b.MaxY != 1 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestToScreen(t *testing.T) {
	v := New(800, 400)
	tests := []struct {
		x, y   float64
		sx, sy float64
	}{
		{0, 0, 400, 200},
		{2, 1, 800, 0},
		{-2, -1, 0, 400},
		{1, 0, 600, 200},
	}
	for _, tt := range tests {
		sx, sy := v.ToScreen(tt.x, tt.y)
		if math.Abs(sx-tt.sx) > eps || math.Abs(sy-tt.sy) > eps {
			t.Errorf("ToScreen(%g, %g) = (%g, %g), want (%g, %g)", tt.x, tt.y, sx, sy, tt.sx, tt.sy)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	v := New(1200, 800)
	v.Pan(37, -112)
	v.Wheel(2000)

	b := v.Bounds()
	for i := range 11 {
		for j := range 11 {
			x := b.MinX + (b.MaxX-b.MinX)*float64(i)/10
			y := b.MinY + (b.MaxY-b.MinY)*float64(j)/10
			sx, sy := v.ToScreen(x, y)
			if sx < -eps || sx > 1200+1e-6 || sy < -eps || sy > 800+1e-6 {
				t.Fatalf("(%g, %g) inside bounds mapped off screen to (%g, %g)", x, y, sx, sy)
			}
			gx, gy := v.ToLogical(sx, sy)
			if math.Abs(gx-x) > 1e-9 || math.Abs(gy-y) > 1e-9 {
				t.Errorf("round trip (%g, %g) -> (%g, %g)", x, y, gx, gy)
			}
		}
	}
}

func TestPanIsOneToOne(t *testing.T) {
	v := New(500, 300)
	v.SetZoom(3)
	x, y := v.ToLogical(100, 100)
	before, _ := v.ToScreen(x, y)
	v.Pan(25, -40)
	sx, sy := v.ToScreen(x, y)
	if math.Abs(sx-before-25) > 1e-9 || math.Abs(sy-(100-40)) > 1e-9 {
		t.Errorf("after Pan(25, -40) point moved to (%g, %g), want (%g, 60)", sx, sy, before+25)
	}
}

var (
	bg    = color.NRGBA{A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func newTarget(w, h int) *image.NRGBA {
	return imaging.New(w, h, bg)
}

func TestRendererFullAndBorder(t *testing.T) {
	list := display.NewList()
	list.Add(display.Rectangle{X1: -0.5, Y1: 0.5, X2: 0.5, Y2: -0.5, Filled: true, Color: red})

	img := newTarget(100, 100)
	r := NewRenderer(list)
	r.Border = white
	r.Full(img, New(100, 100))

	if got := img.NRGBAAt(50, 50); got != red {
		t.Errorf("center pixel = %v, want red", got)
	}
	if got := img.NRGBAAt(10, 50); got != bg {
		t.Errorf("pixel outside the rectangle = %v, want background", got)
	}
	for _, p := range []image.Point{{0, 0}, {99, 0}, {0, 99}, {99, 99}, {50, 0}, {0, 50}} {
		if got := img.NRGBAAt(p.X, p.Y); got != white {
			t.Errorf("border pixel %v = %v, want white", p, got)
		}
	}
	if r.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", r.Cursor())
	}
}

func TestRendererIncrementalMatchesFull(t *testing.T) {
	list := display.NewList()
	vp := New(120, 80)
	inc := newTarget(120, 80)
	r := NewRenderer(list)
	r.Full(inc, vp)

	shapes := []display.Primitive{
		display.Line{X1: -1, Y1: -1, X2: 1, Y2: 1, Color: red},
		display.Circle{CX: 0.2, CY: 0.1, Radius: 0.3, Filled: true, Color: blue},
		display.Triangle{X1: -1, Y1: 0, X2: 0, Y2: 1, X3: 0.5, Y3: -0.5, Filled: false, Color: white},
		display.Point{X: -0.75, Y: 0.75, Color: red},
		display.Circle{CX: 1, CY: -0.5, Radius: 0.4, Color: white},
		display.Rectangle{X1: 1.2, Y1: 0.9, X2: 3, Y2: -3, Filled: true, Color: blue},
	}
	for _, s := range shapes {
		list.Add(s)
		r.Incremental(inc, vp)
	}

	full := newTarget(120, 80)
	NewRenderer(list).Full(full, vp)

	if !equalPixels(inc, full) {
		t.Error("incremental drawing differs from a full redraw")
	}
}

func TestRendererIncrementalLeavesPixels(t *testing.T) {
	list := display.NewList()
	vp := New(50, 50)
	img := newTarget(50, 50)
	r := NewRenderer(list)
	r.Full(img, vp)

	img.SetNRGBA(25, 25, blue) // Not part of the list.
	list.Add(display.Point{X: -0.5, Y: -0.5, Color: red})
	r.Incremental(img, vp)
	if img.NRGBAAt(25, 25) != blue {
		t.Error("incremental redraw touched pixels outside the new primitives")
	}
	sx, sy := vp.ToScreen(-0.5, -0.5)
	if got := img.NRGBAAt(int(sx), int(sy)); got != red {
		t.Errorf("new point pixel = %v, want red", got)
	}

	r.Full(img, vp)
	if img.NRGBAAt(25, 25) != bg {
		t.Error("full redraw should clear to the background")
	}

	list.Reset()
	r.Incremental(img, vp)
	if r.Cursor() != 0 {
		t.Errorf("cursor after list reset = %d, want 0", r.Cursor())
	}
	if got := img.NRGBAAt(int(sx), int(sy)); got != bg {
		t.Error("a shrunken list should trigger a full redraw")
	}
}

func TestTranslucentPrimitive(t *testing.T) {
	list := display.NewList()
	list.Add(display.Rectangle{X1: -1, Y1: 1, X2: 1, Y2: -1, Filled: true, Color: color.NRGBA{R: 255, A: 128}})
	img := newTarget(20, 20)
	NewRenderer(list).Full(img, New(20, 20))
	got := img.NRGBAAt(10, 10)
	if got.R < 120 || got.R > 136 || got.A != 255 {
		t.Errorf("half-transparent red over black = %v, want R about 128", got)
	}
}

func TestCanvasRunAndRenderTo(t *testing.T) {
	list := display.NewList()
	c := NewCanvas(list, 64, 48)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	list.Add(display.Rectangle{X1: -0.2, Y1: 0.2, X2: 0.2, Y2: -0.2, Filled: true, Color: red})
	c.Invalidate(true)

	deadline := time.Now().Add(2 * time.Second)
	for c.Image().NRGBAAt(32, 24) != red {
		if time.Now().After(deadline) {
			t.Fatal("canvas never drew the rectangle")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}

	c.Wheel(5000) // zoom 2
	img := c.RenderTo(640, 480)
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("RenderTo size = %v", img.Bounds())
	}
	// At zoom 2 the rectangle spans +-0.2 * 480/2 * 2 = 96 pixels each way.
	if img.NRGBAAt(320+90, 240) != red || img.NRGBAAt(320+100, 240) != bg {
		t.Error("RenderTo should reuse the canvas zoom")
	}
	if c.Viewport().Width != 64 {
		t.Error("RenderTo must not change the live viewport")
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := SaveImage(path, img); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	back, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if back.Bounds().Dx() != 640 {
		t.Errorf("saved width = %d", back.Bounds().Dx())
	}
}

func TestClipPolygon(t *testing.T) {
	square := []pt{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}}
	got := clip(square, 2, 2)
	area := 0.0
	for i := range got {
		a, b := got[i], got[(i+1)%len(got)]
		area += a.x*b.y - b.x*a.y
	}
	if math.Abs(math.Abs(area/2)-4) > eps {
		t.Errorf("clipped area = %g, want 4", math.Abs(area/2))
	}
	if got := clip([]pt{{10, 10}, {11, 10}, {11, 11}}, 2, 2); len(got) != 0 {
		t.Error("polygon outside the box should clip to nothing")
	}
}

func equalPixels(a, b *image.NRGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for y := a.Bounds().Min.Y; y < a.Bounds().Max.Y; y++ {
		for x := a.Bounds().Min.X; x < a.Bounds().Max.X; x++ {
			if a.NRGBAAt(x, y) != b.NRGBAAt(x, y) {
				return false
			}
		}
	}
	return true
}
