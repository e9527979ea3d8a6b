// SPDX-License-Identifier: MIT
package brush

import (
	"image/color"
	"math/rand"

	"musicpainter/internal/display"

	"github.com/lucasb-eyer/go-colorful"
)

func init() {
	register(4, "channel points", func(p Params, _ *rand.Rand) Algorithm {
		return &channelPoints{
			name:   "channel points",
			params: p,
			colors: [2]color.NRGBA{red, rgba(colorful.Color{G: 0.5}, 1)},
		}
	})
	register(5, "translucent points", func(p Params, _ *rand.Rand) Algorithm {
		return &channelPoints{
			name:   "translucent points",
			params: p,
			colors: [2]color.NRGBA{
				rgba(colorful.Color{R: 0.5, G: 0.3, B: 0.7}, 1),
				rgba(colorful.Color{R: 1, G: 0.7}, 0.5),
			},
		}
	})
}

// channelPoints plots the first two channels as points, y proportional to
// frequency, each channel in a fixed color.
type channelPoints struct {
	name   string
	params Params
	colors [2]color.NRGBA
}

func (a *channelPoints) Name() string { return a.name }

func (a *channelPoints) Draw(c Canvas, f Frame) {
	x := xPosition(a.params, f.Position)
	for ch := 0; ch < len(f.Frequencies) && ch < len(a.colors); ch++ {
		c.Add(display.Point{X: x, Y: f.Frequencies[ch] / channelScale, Color: a.colors[ch]})
	}
}
