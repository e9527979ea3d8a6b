// SPDX-License-Identifier: MIT
package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"musicpainter/internal/audio"
	"musicpainter/internal/config"
	"musicpainter/pkg/utils"
)

// rampSource returns a stereo source whose channel 0 sample i is i%30000
// and channel 1 is its negation, so position is recoverable from value.
func rampSource(t *testing.T, total int) *audio.Source {
	t.Helper()
	pcm := make([]int16, 0, total*2)
	for i := range total {
		v := int16(i % 30000)
		pcm = append(pcm, v, -v)
	}
	src, err := audio.NewSource(44100, 2, pcm)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestFileStreamChunkCounts(t *testing.T) {
	const total = 2*131072 + 777
	src := rampSource(t, total)

	for _, size := range config.ChunkSizes {
		s, err := NewFileStream(src, size)
		if err != nil {
			t.Fatal(err)
		}
		want := total / size
		if s.Count() != want {
			t.Errorf("size %d: Count() = %d, want %d", size, s.Count(), want)
		}

		got := 0
		for {
			c, err := s.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("size %d: Next() error = %v", size, err)
			}
			if c.Index != got {
				t.Fatalf("size %d: chunk index %d, want %d", size, c.Index, got)
			}
			for ch, samples := range c.Samples {
				if len(samples) != size {
					t.Fatalf("size %d: channel %d has %d samples", size, ch, len(samples))
				}
			}
			// First and last sample pin the chunk to [got*size, (got+1)*size).
			first := got * size
			last := first + size - 1
			if c.Samples[0][0] != float64(first%30000)/32768 || c.Samples[0][size-1] != float64(last%30000)/32768 {
				t.Fatalf("size %d chunk %d covers the wrong samples", size, got)
			}
			if len(c.Raw) != size*2*audio.SampleWidth {
				t.Fatalf("size %d: raw chunk has %d bytes", size, len(c.Raw))
			}
			got++
		}
		if got != want {
			t.Errorf("size %d: produced %d chunks, want %d", size, got, want)
		}
		if _, err := s.Next(); err != io.EOF {
			t.Errorf("size %d: Next() after end = %v, want io.EOF", size, err)
		}
	}
}

func TestFileStreamShorterThanChunk(t *testing.T) {
	s, _ := NewFileStream(rampSource(t, 1000), 1024)
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF for a source shorter than one chunk", err)
	}
}

func TestFileStreamRewind(t *testing.T) {
	s, _ := NewFileStream(rampSource(t, 4096), 1024)
	a, _ := s.Next()
	s.Next()
	s.Rewind()
	b, _ := s.Next()
	if a.Index != b.Index || !bytes.Equal(a.Raw, b.Raw) {
		t.Error("Rewind did not restart at the first chunk")
	}
}

func TestNewFileStreamErrors(t *testing.T) {
	if _, err := NewFileStream(nil, 1024); err == nil {
		t.Error("nil source should fail")
	}
	if _, err := NewFileStream(rampSource(t, 10), 0); err == nil {
		t.Error("zero chunk size should fail")
	}
}

func TestLiveStreamAccumulatesRecording(t *testing.T) {
	const size = 256
	var chunks [][]byte
	for i := range 3 {
		f := utils.BinFrequency(4*(i+1), size, 8000)
		chunks = append(chunks, utils.PCM16Chunk(utils.GenerateTone(size, 8000, f, f)))
	}
	dev := &utils.MockInput{Chunks: chunks}
	dev.Open()

	s, err := NewLiveStream(dev, size, 2, 8000)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		c, err := s.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if c.Index != i || len(c.Samples) != 2 || len(c.Samples[1]) != size {
			t.Fatalf("chunk %d has index %d and shape %dx%d", i, c.Index, len(c.Samples), len(c.Samples[1]))
		}
	}
	if _, err := s.Next(); err == nil {
		t.Error("exhausted device should surface an error")
	}

	want := bytes.Join(chunks, nil)
	if got := s.Recording(); !bytes.Equal(got, want) {
		t.Errorf("Recording() has %d bytes, want %d in chunk order", len(got), len(want))
	}
}

func TestLiveStreamShortRead(t *testing.T) {
	dev := &utils.MockInput{Chunks: [][]byte{make([]byte, 10)}}
	dev.Open()
	s, _ := NewLiveStream(dev, 256, 2, 8000)
	if _, err := s.Next(); !errors.Is(err, audio.ErrDevice) {
		t.Errorf("short read error = %v, want ErrDevice", err)
	}
}

func TestDeinterleave(t *testing.T) {
	raw := utils.PCM16Chunk([][]float64{{0.5, -0.5}, {0.25, 0}})
	out := Deinterleave(raw, 2)
	if len(out) != 2 || len(out[0]) != 2 {
		t.Fatalf("shape = %dx%d", len(out), len(out[0]))
	}
	scale := func(v float64) float64 { return float64(int16(v*32767)) / 32768 }
	want := [][]float64{
		{scale(0.5), scale(-0.5)},
		{scale(0.25), 0},
	}
	for ch := range want {
		for i := range want[ch] {
			if out[ch][i] != want[ch][i] {
				t.Errorf("out[%d][%d] = %v, want %v", ch, i, out[ch][i], want[ch][i])
			}
		}
	}
}
