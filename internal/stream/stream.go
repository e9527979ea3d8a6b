// SPDX-License-Identifier: MIT

// Package stream cuts audio into fixed-size chunks in sample order. A file
// stream is finite and replayable; a live stream reads from a capture device
// until it is stopped and keeps every raw chunk for export.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"musicpainter/internal/audio"
)

// Chunk is one block of ChunkSize samples per channel.
type Chunk struct {
	Index   int
	Samples [][]float64 // Per channel, each of length ChunkSize.
	Raw     []byte      // Interleaved 16-bit little endian PCM of the same frames.
}

// Stream yields chunks in order. Next returns io.EOF when a finite stream is
// exhausted.
type Stream interface {
	Next() (Chunk, error)
	Channels() int
	SampleRate() int
}

// FileStream slices a loaded source. A trailing partial chunk is never
// emitted.
type FileStream struct {
	src       *audio.Source
	chunkSize int
	next      int
}

// NewFileStream returns a stream over src in chunks of chunkSize samples.
func NewFileStream(src *audio.Source, chunkSize int) (*FileStream, error) {
	if src == nil {
		return nil, fmt.Errorf("no source loaded")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	return &FileStream{src: src, chunkSize: chunkSize}, nil
}

// Count returns the number of chunks the stream produces in total.
func (s *FileStream) Count() int {
	return s.src.TotalSamples() / s.chunkSize
}

func (s *FileStream) Channels() int   { return s.src.Channels }
func (s *FileStream) SampleRate() int { return s.src.SampleRate }

// Next returns the chunk covering [i*chunkSize, (i+1)*chunkSize).
func (s *FileStream) Next() (Chunk, error) {
	if s.next >= s.Count() {
		return Chunk{}, io.EOF
	}
	start := s.next * s.chunkSize
	end := start + s.chunkSize

	samples := make([][]float64, s.src.Channels)
	for ch := range samples {
		samples[ch] = s.src.ChannelSamples(ch)[start:end:end]
	}
	c := Chunk{
		Index:   s.next,
		Samples: samples,
		Raw:     s.src.PCM16(start, s.chunkSize),
	}
	s.next++
	return c, nil
}

// Rewind starts the stream over from the first chunk.
func (s *FileStream) Rewind() {
	s.next = 0
}

// LiveStream reads chunks from a capture device. The device must already
// be open.
type LiveStream struct {
	dev        audio.InputDevice
	chunkSize  int
	channels   int
	sampleRate int
	next       int

	mu  sync.Mutex
	raw [][]byte // Every chunk read so far.
}

// NewLiveStream returns an unbounded stream over dev.
func NewLiveStream(dev audio.InputDevice, chunkSize, channels, sampleRate int) (*LiveStream, error) {
	if dev == nil {
		return nil, fmt.Errorf("no input device")
	}
	if chunkSize <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid live stream format: chunk %d, %d channels", chunkSize, channels)
	}
	return &LiveStream{dev: dev, chunkSize: chunkSize, channels: channels, sampleRate: sampleRate}, nil
}

func (s *LiveStream) Channels() int   { return s.channels }
func (s *LiveStream) SampleRate() int { return s.sampleRate }

// Next blocks until the device delivers one chunk. Device errors are
// returned as is; the stream never ends on its own.
func (s *LiveStream) Next() (Chunk, error) {
	raw, err := s.dev.Read(s.chunkSize)
	if err != nil {
		return Chunk{}, err
	}
	if want := s.chunkSize * s.channels * audio.SampleWidth; len(raw) != want {
		return Chunk{}, fmt.Errorf("%w: short read, %d of %d bytes", audio.ErrDevice, len(raw), want)
	}

	s.mu.Lock()
	s.raw = append(s.raw, raw)
	s.mu.Unlock()

	c := Chunk{Index: s.next, Samples: Deinterleave(raw, s.channels), Raw: raw}
	s.next++
	return c, nil
}

// Recording concatenates every chunk read so far into one buffer.
func (s *LiveStream) Recording() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := 0
	for _, r := range s.raw {
		size += len(r)
	}
	out := make([]byte, 0, size)
	for _, r := range s.raw {
		out = append(out, r...)
	}
	return out
}

// Deinterleave splits 16-bit little endian interleaved PCM into one slice
// per channel, scaled to [-1, 1).
func Deinterleave(raw []byte, channels int) [][]float64 {
	frames := len(raw) / (channels * audio.SampleWidth)
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := range frames * channels {
		v := int16(binary.LittleEndian.Uint16(raw[i*audio.SampleWidth:]))
		out[i%channels][i/channels] = float64(v) / 32768
	}
	return out
}
