// SPDX-License-Identifier: MIT

/*
Package brush holds the rendering algorithms. An algorithm receives one
chunk's dominant frequencies at a time, in chunk order, and appends zero or
more primitives to a canvas. Algorithms are numbered from 1 and register
themselves by index, so adding one means adding a file with an init call.

Each algorithm value owns its own state. A new session builds a new value
with New, which is how algorithm state is reset.
*/
package brush

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"sort"
	"sync"

	"musicpainter/internal/display"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownAlgorithm is returned by New for an index outside 1..Count().
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Canvas receives primitives. *display.List satisfies it.
type Canvas interface {
	Add(p display.Primitive) int
}

// Params are fixed for the whole session.
type Params struct {
	TotalChunks int // Expected chunk count, 0 when unknown (live capture).
	Channels    int
}

// Frame is the input of one Draw call.
type Frame struct {
	Frequencies []float64   // Dominant frequency per channel.
	Position    int         // Zero-based chunk index.
	Spectrum    [][]float64 // Optional magnitudes per channel, nil when not computed.
}

// Algorithm draws one frame at a time.
type Algorithm interface {
	Name() string
	Draw(c Canvas, f Frame)
}

// Factory builds a fresh algorithm for a session. rng is the only source
// of randomness an algorithm may use.
type Factory func(p Params, rng *rand.Rand) Algorithm

type entry struct {
	name    string
	factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = map[int]entry{}
)

// register adds an algorithm under index. Indices must be unique.
func register(index int, name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[index]; dup {
		panic(fmt.Sprintf("brush: algorithm %d registered twice", index))
	}
	registry[index] = entry{name: name, factory: f}
}

// New builds algorithm index (1-based) for a session.
func New(index int, p Params, rng *rand.Rand) (Algorithm, error) {
	registryMu.RLock()
	e, ok := registry[index]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d (have 1..%d)", ErrUnknownAlgorithm, index, Count())
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return e.factory(p, rng), nil
}

// Count returns N, the number of registered algorithms.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Names returns the algorithm names ordered by index; Names()[i] is
// algorithm i+1.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	indices := make([]int, 0, len(registry))
	for i := range registry {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	names := make([]string, len(indices))
	for i, idx := range indices {
		names[i] = registry[idx].name
	}
	return names
}

// xPosition maps a chunk position to [-1, 1) across the session. Without a
// known total the running chunk count is used instead.
func xPosition(p Params, pos int) float64 {
	total := p.TotalChunks
	if total <= 0 {
		total = pos + 1
	}
	return 2*float64(pos)/float64(total) - 1
}

// rgba converts a colorful color with alpha in [0, 1].
func rgba(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

func randomColor(rng *rand.Rand) color.NRGBA {
	return rgba(colorful.Color{R: rng.Float64(), G: rng.Float64(), B: rng.Float64()}, 1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
