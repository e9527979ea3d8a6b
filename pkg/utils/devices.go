// SPDX-License-Identifier: MIT
package utils

import (
	"encoding/binary"
	"errors"
	"sync"
)

// MockInput is an in-memory capture device. Every Read returns the next
// entry of Chunks (cycling when Loop is set) until they run out, then
// FailWith (or an error when FailWith is nil).
type MockInput struct {
	Chunks   [][]byte
	Loop     bool
	FailWith error
	OpenErr  error

	mu     sync.Mutex
	next   int
	opened bool
	closed bool
	reads  int
}

// Open marks the device open.
func (m *MockInput) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.opened = true
	return nil
}

// Read ignores frames and returns the next prepared chunk.
func (m *MockInput) Read(frames int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return nil, errors.New("mock input not open")
	}
	if m.next >= len(m.Chunks) {
		if !m.Loop || len(m.Chunks) == 0 {
			if m.FailWith != nil {
				return nil, m.FailWith
			}
			return nil, errors.New("mock input exhausted")
		}
		m.next = 0
	}
	c := m.Chunks[m.next]
	m.next++
	m.reads++
	return c, nil
}

// Close marks the device closed.
func (m *MockInput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Reads returns how many chunks were delivered.
func (m *MockInput) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called.
func (m *MockInput) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockOutput records every chunk written to it. Writes fail with FailWith
// once FailAfter chunks were accepted (FailAfter 0 never fails).
type MockOutput struct {
	FailAfter int
	FailWith  error

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

// Write stores a copy of pcm.
func (m *MockOutput) Write(pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAfter > 0 && len(m.writes) >= m.FailAfter {
		return m.FailWith
	}
	m.writes = append(m.writes, append([]byte(nil), pcm...))
	return nil
}

// Close marks the device closed.
func (m *MockOutput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Writes returns the chunks written so far.
func (m *MockOutput) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

// Closed reports whether Close was called.
func (m *MockOutput) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// PCM16Chunk interleaves channels into 16-bit little endian bytes. Samples
// are expected in [-1, 1].
func PCM16Chunk(channels [][]float64) []byte {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]byte, 0, frames*len(channels)*2)
	for i := range frames {
		for ch := range channels {
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(channels[ch][i]*32767)))
		}
	}
	return out
}
