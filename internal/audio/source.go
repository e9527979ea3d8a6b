// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	applog "musicpainter/internal/log"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

var (
	// ErrSourceLoad reports an unreadable file or an unsupported container.
	ErrSourceLoad = errors.New("cannot load audio source")
	// ErrDevice reports an audio device that is unavailable or failed mid-stream.
	ErrDevice = errors.New("audio device error")
)

// SampleWidth is the width in bytes of the PCM the sources and devices
// exchange. Every decoder converts to signed 16-bit little endian.
const SampleWidth = 2

// Source is a fully decoded audio file held in memory.
type Source struct {
	Path       string
	Format     string // Container, lower-case extension without the dot.
	SampleRate int
	Channels   int

	pcm      []int16     // Interleaved samples.
	channels [][]float64 // Per-channel samples in [-1, 1).
}

// NewSource builds a source from interleaved 16-bit samples. A trailing
// partial frame is dropped.
func NewSource(sampleRate, channels int, interleaved []int16) (*Source, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, %d channels", ErrSourceLoad, sampleRate, channels)
	}
	frames := len(interleaved) / channels
	pcm := interleaved[:frames*channels]

	perChannel := make([][]float64, channels)
	for ch := range perChannel {
		perChannel[ch] = make([]float64, frames)
	}
	for i, s := range pcm {
		perChannel[i%channels][i/channels] = float64(s) / 32768
	}
	return &Source{
		SampleRate: sampleRate,
		Channels:   channels,
		pcm:        pcm,
		channels:   perChannel,
	}, nil
}

// TotalSamples returns the number of samples per channel.
func (s *Source) TotalSamples() int {
	if len(s.channels) == 0 {
		return 0
	}
	return len(s.channels[0])
}

// ChannelSamples returns the samples of channel ch. The slice is shared and
// must not be modified.
func (s *Source) ChannelSamples(ch int) []float64 {
	if ch < 0 || ch >= len(s.channels) {
		return nil
	}
	return s.channels[ch]
}

// PCM16 returns n frames starting at frame start as interleaved little
// endian 16-bit bytes, ready for an output device.
func (s *Source) PCM16(start, n int) []byte {
	total := s.TotalSamples()
	if start < 0 {
		start = 0
	}
	if start+n > total {
		n = total - start
	}
	if n <= 0 {
		return nil
	}
	samples := s.pcm[start*s.Channels : (start+n)*s.Channels]
	out := make([]byte, len(samples)*SampleWidth)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*SampleWidth:], uint16(v))
	}
	return out
}

// Duration returns the length of the source in seconds.
func (s *Source) Duration() float64 {
	return float64(s.TotalSamples()) / float64(s.SampleRate)
}

// LoadSource reads and decodes a whole audio file. The format is chosen by
// extension: wav, mp3, flac or ogg. Any failure wraps ErrSourceLoad and no
// partial source is returned.
func LoadSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceLoad, err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	var src *Source
	switch format {
	case "wav":
		src, err = decodeWAV(f)
	case "mp3":
		src, err = decodeMP3(f)
	case "flac":
		src, err = decodeFLAC(f)
	case "ogg":
		src, err = decodeOGG(f)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrSourceLoad, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceLoad, filepath.Base(path), err)
	}
	if src.TotalSamples() == 0 {
		return nil, fmt.Errorf("%w: %s has no samples", ErrSourceLoad, filepath.Base(path))
	}

	src.Path = path
	src.Format = format
	applog.Debugf("Audio: Loaded %s (%s, %d Hz, %d ch, %d samples)",
		path, format, src.SampleRate, src.Channels, src.TotalSamples())
	return src, nil
}

func decodeWAV(r io.ReadSeeker) (*Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	pcm := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch bitDepth {
		case 8:
			// 8-bit WAV is unsigned
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		pcm[i] = clamp16(v)
	}
	return NewSource(int(dec.SampleRate), int(dec.NumChans), pcm)
}

func decodeMP3(r io.Reader) (*Source, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	// go-mp3 always produces 16-bit stereo.
	pcm := make([]int16, len(raw)/SampleWidth)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*SampleWidth:]))
	}
	return NewSource(dec.SampleRate(), 2, pcm)
}

func decodeFLAC(r io.Reader) (*Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	pcm := make([]int16, 0, int(info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := 0; i < frame.Subframes[0].NSamples; i++ {
			for ch := 0; ch < channels; ch++ {
				sample := int(frame.Subframes[ch].Samples[i])
				switch {
				case bps > 16:
					sample >>= (bps - 16)
				case bps < 16:
					sample <<= (16 - bps)
				}
				pcm = append(pcm, clamp16(sample))
			}
		}
	}
	return NewSource(int(info.SampleRate), channels, pcm)
}

func decodeOGG(r io.Reader) (*Source, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}

	channels := reader.Channels()
	pcm := make([]int16, 0, int(reader.Length())*channels)
	samples := make([]float32, 4096*channels)
	for {
		n, err := reader.Read(samples)
		for _, s := range samples[:n] {
			pcm = append(pcm, clamp16(int(math.Round(float64(s)*32767))))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return NewSource(reader.SampleRate(), channels, pcm)
}

func clamp16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
