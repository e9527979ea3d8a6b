// SPDX-License-Identifier: MIT
package brush

import (
	"math"
	"math/rand"

	"musicpainter/internal/display"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	driftWeight   = 14.0   // Weight of a vertex against its successor.
	driftHueScale = 5000.0 // Hz per full turn of the hue wheel.
	driftFill     = 0.35   // Triangle alpha.
)

// driftStart is the initial quadrilateral, the corners of [-1, 1]^2 in
// clockwise order.
var driftStart = [8]float64{1, 1, 1, -1, -1, -1, -1, 1}

func init() {
	register(9, "drifting quadrilateral", func(_ Params, _ *rand.Rand) Algorithm {
		return &drift{vertices: driftStart}
	})
}

// drift moves each of four vertices a fifteenth of the way toward the next
// one per chunk, leaving a fan of translucent triangles behind.
type drift struct {
	vertices [8]float64 // x0, y0, x1, y1, ... of the current quadrilateral.
}

func (*drift) Name() string { return "drifting quadrilateral" }

func (a *drift) Draw(c Canvas, f Frame) {
	var f0 float64
	if len(f.Frequencies) > 0 {
		f0 = f.Frequencies[0]
	}
	hue := math.Mod(f0/driftHueScale*360, 360)
	if hue < 0 {
		hue += 360
	}
	base := colorful.Hsv(hue, 1, 1)
	fill := rgba(base, driftFill)
	edge := rgba(base, 1)

	next := step(a.vertices)
	for i := range 4 {
		j := (i + 1) % 4
		c.Add(display.Triangle{
			X1: a.vertices[2*i], Y1: a.vertices[2*i+1],
			X2: next[2*i], Y2: next[2*i+1],
			X3: a.vertices[2*j], Y3: a.vertices[2*j+1],
			Filled: true,
			Color:  fill,
		})
	}
	for i := range 4 {
		j := (i + 1) % 4
		c.Add(display.Line{X1: next[2*i], Y1: next[2*i+1], X2: next[2*j], Y2: next[2*j+1], Color: edge})
	}
	a.vertices = next
}

// step returns the weighted average of every vertex with its successor.
func step(v [8]float64) [8]float64 {
	var out [8]float64
	for i := range 4 {
		j := (i + 1) % 4
		out[2*i] = (driftWeight*v[2*i] + v[2*j]) / (driftWeight + 1)
		out[2*i+1] = (driftWeight*v[2*i+1] + v[2*j+1]) / (driftWeight + 1)
	}
	return out
}
