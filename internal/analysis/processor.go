// SPDX-License-Identifier: MIT
package analysis

// Result is the per-chunk summary handed to the rendering side.
type Result struct {
	Frequencies []float64 // One dominant frequency per channel, zeroed when Capped.
	Capped      bool      // The frequency cap replaced the values with zeros.
}

// ChunkProcessor turns the channels of one chunk into a Result. The session
// depends on this interface rather than on *Processor so tests can feed
// fixed frequencies.
type ChunkProcessor interface {
	Process(channels [][]float64, sampleRate int) Result
}

// Processor runs the analyzer over every channel of a chunk and applies the
// frequency cap. Like the Analyzer it wraps, it is not safe for concurrent use.
type Processor struct {
	analyzer *Analyzer
	cap      FrequencyCap
}

// NewProcessor creates a processor for chunks of chunkSize samples.
func NewProcessor(chunkSize int, windowType WindowFunc, limit FrequencyCap) (*Processor, error) {
	a, err := NewAnalyzer(chunkSize, windowType)
	if err != nil {
		return nil, err
	}
	return &Processor{analyzer: a, cap: limit}, nil
}

// Process implements ChunkProcessor.
func (p *Processor) Process(channels [][]float64, sampleRate int) Result {
	freqs := p.analyzer.ChunkFrequencies(channels, sampleRate)
	return Result{Frequencies: freqs, Capped: p.cap.Apply(freqs)}
}

// Cap returns the configured frequency cap.
func (p *Processor) Cap() FrequencyCap {
	return p.cap
}
