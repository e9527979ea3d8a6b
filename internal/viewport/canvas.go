// SPDX-License-Identifier: MIT
package viewport

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"musicpainter/internal/display"
	applog "musicpainter/internal/log"

	"github.com/disintegration/imaging"
)

// Canvas is a live render target. The session calls Invalidate after each
// chunk; Run redraws on its own goroutine so the session never waits for
// rasterization.
type Canvas struct {
	list *display.List

	mu       sync.Mutex // Guards everything below.
	vp       *Viewport
	img      *image.NRGBA
	renderer *Renderer

	full    atomic.Bool
	pending chan struct{}
	redraws atomic.Uint64
}

// NewCanvas returns a w x h canvas over list.
func NewCanvas(list *display.List, w, h int) *Canvas {
	c := &Canvas{
		list:     list,
		vp:       New(w, h),
		img:      imaging.New(w, h, DefaultBackground),
		renderer: NewRenderer(list),
		pending:  make(chan struct{}, 1),
	}
	c.full.Store(true)
	return c
}

// Invalidate asks for a redraw. It never blocks; a full request survives
// until the next redraw.
func (c *Canvas) Invalidate(full bool) {
	if full {
		c.full.Store(true)
	}
	select {
	case c.pending <- struct{}{}:
	default:
	}
}

// Run redraws on every invalidation until ctx is done, then flushes once
// more so the image reflects the final list.
func (c *Canvas) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.Flush()
			return nil
		case <-c.pending:
			c.Flush()
		}
	}
}

// Flush performs any outstanding redraw now.
func (c *Canvas) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full.Swap(false) {
		c.renderer.Full(c.img, c.vp)
	} else {
		c.renderer.Incremental(c.img, c.vp)
	}
	c.redraws.Add(1)
}

// Redraws returns how many times the canvas was redrawn.
func (c *Canvas) Redraws() uint64 {
	return c.redraws.Load()
}

// Image returns a copy of the current pixels.
func (c *Canvas) Image() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return imaging.Clone(c.img)
}

// Viewport returns a copy of the current view state.
func (c *Canvas) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.vp
}

// Pan, zoom and resize change every pixel, so they request a full redraw.

func (c *Canvas) Pan(dx, dy float64)      { c.update(func(v *Viewport) { v.Pan(dx, dy) }) }
func (c *Canvas) Wheel(delta float64)     { c.update(func(v *Viewport) { v.Wheel(delta) }) }
func (c *Canvas) DragZoom(dx, dy float64) { c.update(func(v *Viewport) { v.DragZoom(dx, dy) }) }
func (c *Canvas) ResetCenter()            { c.update((*Viewport).ResetCenter) }
func (c *Canvas) ResetZoom()              { c.update((*Viewport).ResetZoom) }
func (c *Canvas) Reset()                  { c.update((*Viewport).Reset) }

// SetView sets the center and the zoom at once.
func (c *Canvas) SetView(cx, cy, zoom float64) {
	c.update(func(v *Viewport) {
		v.CX, v.CY = cx, cy
		v.SetZoom(zoom)
	})
}

// Resize replaces the pixel buffer.
func (c *Canvas) Resize(w, h int) {
	c.mu.Lock()
	c.vp.SetSize(w, h)
	c.img = imaging.New(w, h, DefaultBackground)
	c.mu.Unlock()
	c.Invalidate(true)
}

func (c *Canvas) update(fn func(*Viewport)) {
	c.mu.Lock()
	fn(c.vp)
	c.mu.Unlock()
	c.Invalidate(true)
}

// RenderTo draws the whole list into a new w x h image using the current
// center and zoom. The live image and its cursor are not touched.
func (c *Canvas) RenderTo(w, h int) *image.NRGBA {
	c.mu.Lock()
	vp := *c.vp
	c.mu.Unlock()
	return RenderList(c.list, &vp, w, h)
}

// RenderList draws list into a new w x h image with vp's center and zoom.
func RenderList(list *display.List, vp *Viewport, w, h int) *image.NRGBA {
	view := *vp
	view.SetSize(w, h)
	img := imaging.New(w, h, DefaultBackground)
	NewRenderer(list).Full(img, &view)
	return img
}

// SaveImage writes img with the format chosen by the file extension.
func SaveImage(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving image %s: %w", path, err)
	}
	applog.Infof("Viewport: image saved to %s", path)
	return nil
}
