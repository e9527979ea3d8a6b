// SPDX-License-Identifier: MIT

// Package transport publishes per-chunk frames of a painting session to
// external listeners.
package transport

import (
	"errors"
	"time"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is published once per analyzed chunk.
type Frame struct {
	Session     string    `json:"session"`     // Session id.
	Index       int       `json:"index"`       // Chunk index, zero-based.
	Total       int       `json:"total"`       // Expected chunk count, 0 when unbounded.
	Frequencies []float64 `json:"frequencies"` // Dominant frequency per channel after the cap.
	Capped      bool      `json:"capped"`      // The frequency cap zeroed this chunk.
	Drawn       int       `json:"drawn"`       // Primitives appended for this chunk.
	Timestamp   int64     `json:"timestamp"`   // Unix nanoseconds.
}

// NewFrame stamps a frame with the current time.
func NewFrame(session string, index, total int, freqs []float64, capped bool, drawn int) Frame {
	return Frame{
		Session:     session,
		Index:       index,
		Total:       total,
		Frequencies: freqs,
		Capped:      capped,
		Drawn:       drawn,
		Timestamp:   time.Now().UnixNano(),
	}
}

// Multi fans every Send out to all of its transports.
type Multi []Transport

// Send delivers data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
