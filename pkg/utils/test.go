// SPDX-License-Identifier: MIT

// Package utils holds signal fixtures and fakes shared by the package tests.
package utils

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MockTransport records every frame it is sent. Err, when set, is returned
// from Send after the frame is recorded.
type MockTransport struct {
	mu     sync.Mutex
	frames []any
	closed bool
	Err    error
}

// Send stores the frame for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
	return m.Err
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Frames returns a copy of the frames received so far.
func (m *MockTransport) Frames() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.frames))
	copy(out, m.frames)
	return out
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateSineWave returns size samples of a sine at frequency with peak
// amplitude amp.
func GenerateSineWave(size int, sampleRate, frequency, amp float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * amp
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return buffer
}

// GenerateTone returns one sine per frequency, each as its own channel.
func GenerateTone(size int, sampleRate float64, frequencies ...float64) [][]float64 {
	channels := make([][]float64, len(frequencies))
	for ch, f := range frequencies {
		channels[ch] = GenerateSineWave(size, sampleRate, f, 0.8)
	}
	return channels
}

// BinFrequency returns the center frequency of bin k for an fftSize-point
// transform.
func BinFrequency(k, fftSize int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(fftSize)
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// WriteWAVFixture writes channels as a 16-bit PCM WAV file. Samples are
// expected in [-1, 1] and every channel must have the same length.
func WriteWAVFixture(path string, sampleRate int, channels [][]float64) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels")
	}
	frames := len(channels[0])
	for ch := range channels {
		if len(channels[ch]) != frames {
			return fmt.Errorf("channel %d has %d samples, want %d", ch, len(channels[ch]), frames)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, len(channels), 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: sampleRate},
		Data:           make([]int, frames*len(channels)),
		SourceBitDepth: 16,
	}
	for i := range frames {
		for ch := range channels {
			buf.Data[i*len(channels)+ch] = int(math.Round(channels[ch][i] * math.MaxInt16))
		}
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
