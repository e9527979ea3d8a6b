// SPDX-License-Identifier: MIT
package brush

import (
	"math/rand"

	"musicpainter/internal/display"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

const (
	channelScale = 5000.0 // Hz mapped to one logical unit by the per-channel algorithms.
	meanScale    = 2000.0 // Hz mapped to one logical unit by the mean-frequency algorithms.
	markSize     = 0.01
)

var (
	red   = rgba(colorful.Color{R: 1}, 1)
	green = rgba(colorful.Color{G: 1}, 1)
)

func init() {
	register(3, "channel bars", func(p Params, _ *rand.Rand) Algorithm { return &channelBars{params: p} })
	register(6, "mean bars", func(p Params, _ *rand.Rand) Algorithm { return &meanMark{params: p, shape: meanLine} })
	register(7, "mean squares", func(p Params, _ *rand.Rand) Algorithm { return &meanMark{params: p, shape: meanSquare} })
	register(8, "mean dots", func(p Params, _ *rand.Rand) Algorithm { return &meanMark{params: p, shape: meanDot} })
}

// channelBars draws a vertical bar per channel: channel 0 above a baseline
// at 0.25, channel 1 above a baseline at -0.75.
type channelBars struct {
	params Params
}

func (*channelBars) Name() string { return "channel bars" }

func (a *channelBars) Draw(c Canvas, f Frame) {
	if len(f.Frequencies) == 0 {
		return
	}
	x := xPosition(a.params, f.Position)

	y := f.Frequencies[0] / channelScale
	c.Add(display.Line{X1: x, Y1: 0.25, X2: x, Y2: y + 0.25, Color: red})

	if len(f.Frequencies) > 1 {
		y = f.Frequencies[1] / channelScale
		c.Add(display.Line{X1: x, Y1: -0.75, X2: x, Y2: y - 0.75, Color: green})
	}
}

type meanShape int

const (
	meanLine meanShape = iota
	meanSquare
	meanDot
)

// meanMark draws one mark per chunk at the mean frequency across channels.
type meanMark struct {
	params Params
	shape  meanShape
}

func (a *meanMark) Name() string {
	switch a.shape {
	case meanSquare:
		return "mean squares"
	case meanDot:
		return "mean dots"
	default:
		return "mean bars"
	}
}

func (a *meanMark) Draw(c Canvas, f Frame) {
	if len(f.Frequencies) == 0 {
		return
	}
	x := xPosition(a.params, f.Position)
	y := stat.Mean(f.Frequencies, nil) / meanScale

	switch a.shape {
	case meanLine:
		c.Add(display.Line{X1: x, Y1: -0.5, X2: x, Y2: y - 0.5, Color: red})
	case meanSquare:
		c.Add(display.Rectangle{X1: x, Y1: y, X2: x + markSize, Y2: y - markSize, Filled: true, Color: red})
	case meanDot:
		c.Add(display.Circle{CX: x, CY: y - 0.5, Radius: markSize, Filled: true, Color: red})
	}
}
