// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	applog "musicpainter/internal/log"
	"musicpainter/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions. Rectangular leaves samples untouched,
// which matches the plain real-FFT convention the dominant frequency is
// defined against.
const (
	Rectangular WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results.
	magnitude []float64    // Buffer for calculated magnitudes.
	window    []float64    // Pre-calculated window coefficients, nil for Rectangular.
}

// Analyzer turns one channel of one chunk into a magnitude spectrum and the
// matching bin center frequencies. An Analyzer reuses its workspace between
// calls and is therefore not safe for concurrent use; the session owns one.
type Analyzer struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	fftSize       int          // Number of points for the FFT (power of 2).
	windowType    WindowFunc
	workspace     fftWorkspace
}

// NewAnalyzer creates an analyzer for blocks of fftSize samples.
func NewAnalyzer(fftSize int, windowType WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}

	var coeffs []float64
	if windowType != Rectangular {
		coeffs = make([]float64, fftSize)
		applyWindow(coeffs, windowType)
	}

	applog.Debugf("Analysis: Initializing Analyzer (Size: %d, Window: %s)", fftSize, windowType)

	return &Analyzer{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		windowType:    windowType,
		workspace: fftWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, fftSize/2+1),
			magnitude: make([]float64, fftSize/2+1),
			window:    coeffs,
		},
	}, nil
}

// Size returns the configured FFT size.
func (a *Analyzer) Size() int {
	return a.fftSize
}

// Analyze computes the magnitude spectrum of samples and the center frequency
// of every bin: bin k is k*sampleRate/n for k = 0..n/2. The returned slices
// are freshly allocated and owned by the caller. A block whose length differs
// from the analyzer size is transformed at its own length.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) (magnitudes, frequencies []float64) {
	if len(samples) != a.fftSize {
		return Analyze(samples, sampleRate)
	}

	a.transform(samples)

	magnitudes = make([]float64, len(a.workspace.magnitude))
	copy(magnitudes, a.workspace.magnitude)
	frequencies = make([]float64, len(a.workspace.magnitude))
	for i := range frequencies {
		frequencies[i] = a.binFrequency(i, sampleRate)
	}
	return magnitudes, frequencies
}

// Dominant returns the dominant frequency of one block of samples. For
// blocks of the analyzer size it works entirely in the workspace.
func (a *Analyzer) Dominant(samples []float64, sampleRate int) float64 {
	if len(samples) != a.fftSize {
		return DominantFrequency(Analyze(samples, sampleRate))
	}
	a.transform(samples)
	return a.binFrequency(floats.MaxIdx(a.workspace.magnitude), sampleRate)
}

// transform windows samples into the workspace and fills the magnitude buffer.
func (a *Analyzer) transform(samples []float64) {
	in := a.workspace.input
	if a.workspace.window != nil {
		for i, s := range samples {
			in[i] = s * a.workspace.window[i]
		}
	} else {
		copy(in, samples)
	}

	a.fftCalculator.Coefficients(a.workspace.fftOutput, in)
	for i, c := range a.workspace.fftOutput {
		a.workspace.magnitude[i] = cmplx.Abs(c)
	}
}

// binFrequency returns the center frequency (Hz) of bin i.
func (a *Analyzer) binFrequency(i, sampleRate int) float64 {
	return a.fftCalculator.Freq(i) * float64(sampleRate)
}

// ChunkFrequencies returns one dominant frequency per channel of a chunk,
// in channel order.
func (a *Analyzer) ChunkFrequencies(channels [][]float64, sampleRate int) []float64 {
	out := make([]float64, len(channels))
	for ch, samples := range channels {
		out[ch] = a.Dominant(samples, sampleRate)
	}
	return out
}

// Analyze is the allocation-per-call form of (*Analyzer).Analyze with a
// rectangular window, for one-off blocks of any length.
func Analyze(samples []float64, sampleRate int) (magnitudes, frequencies []float64) {
	n := len(samples)
	if n == 0 {
		return []float64{}, []float64{}
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)
	magnitudes = make([]float64, len(coeffs))
	frequencies = make([]float64, len(coeffs))
	for i, c := range coeffs {
		magnitudes[i] = cmplx.Abs(c)
		frequencies[i] = fft.Freq(i) * float64(sampleRate)
	}
	return magnitudes, frequencies
}

// DominantFrequency returns the frequency of the bin with the largest
// magnitude. Ties go to the first (lowest) bin. Either slice being empty
// yields 0.
func DominantFrequency(magnitudes, frequencies []float64) float64 {
	if len(magnitudes) == 0 || len(frequencies) == 0 {
		return 0
	}
	idx := floats.MaxIdx(magnitudes)
	if idx >= len(frequencies) {
		return 0
	}
	return frequencies[idx]
}

// String returns the lower-case name of the window function.
func (w WindowFunc) String() string {
	switch w {
	case Rectangular:
		return "none"
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Rectangular) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "none", "rectangular":
		return Rectangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall
// back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window functions scale in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
