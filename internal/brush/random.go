// SPDX-License-Identifier: MIT
package brush

import (
	"math"
	"math/rand"

	"musicpainter/internal/display"
)

func init() {
	register(1, "random points", func(_ Params, rng *rand.Rand) Algorithm { return &randomPoint{rng: rng} })
	register(2, "random circle", func(_ Params, rng *rand.Rand) Algorithm { return &randomCircle{rng: rng} })
}

// randomPoint ignores the audio and scatters points over [-1, 1]^2.
type randomPoint struct {
	rng *rand.Rand
}

func (*randomPoint) Name() string { return "random points" }

func (a *randomPoint) Draw(c Canvas, _ Frame) {
	x := a.rng.Float64()*2 - 1
	y := a.rng.Float64()*2 - 1
	c.Add(display.Point{X: x, Y: y, Color: randomColor(a.rng)})
}

// randomCircle scatters points on the unit circle.
type randomCircle struct {
	rng *rand.Rand
}

func (*randomCircle) Name() string { return "random circle" }

func (a *randomCircle) Draw(c Canvas, _ Frame) {
	theta := a.rng.Float64() * 2 * math.Pi
	c.Add(display.Point{X: math.Cos(theta), Y: math.Sin(theta), Color: randomColor(a.rng)})
}
