// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"musicpainter/internal/config"
	applog "musicpainter/internal/log"

	"github.com/ebitengine/oto/v3"
	"github.com/gordonklaus/portaudio"
)

// OutputDevice accepts interleaved 16-bit PCM in chunk order. Write blocks
// until the device has taken the data, which paces playback.
type OutputDevice interface {
	Write(pcm []byte) error
	Close() error
}

// OutputFormat selects a backend and the stream parameters.
type OutputFormat struct {
	Backend         string // config.BackendPortAudio or config.BackendOto.
	DeviceID        int    // PortAudio device index, -1 for the default. Ignored by oto.
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
}

// OpenOutput opens a playback device. Failures wrap ErrDevice.
func OpenOutput(f OutputFormat) (OutputDevice, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("%w: invalid output format %d Hz, %d channels", ErrDevice, f.SampleRate, f.Channels)
	}
	switch strings.ToLower(f.Backend) {
	case "", config.BackendPortAudio:
		return openPortAudioOutput(f)
	case config.BackendOto:
		return openOtoOutput(f)
	default:
		return nil, fmt.Errorf("%w: unknown output backend %q", ErrDevice, f.Backend)
	}
}

// --- PortAudio blocking output ---

type paOutput struct {
	stream   *portaudio.Stream
	buf      []int16 // Bound to the stream, one buffer of frames.
	channels int
}

func openPortAudioOutput(f OutputFormat) (*paOutput, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	info, err := OutputDeviceInfo(f.DeviceID)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	latency := info.DefaultHighOutputLatency
	if f.LowLatency {
		latency = info.DefaultLowOutputLatency
	}
	frames := f.FramesPerBuffer
	if frames <= 0 {
		frames = 1024
	}

	out := &paOutput{
		buf:      make([]int16, frames*f.Channels),
		channels: f.Channels,
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: f.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: frames,
	}
	stream, err := portaudio.OpenStream(params, out.buf)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("%w: opening output stream on %s: %v", ErrDevice, info.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		Terminate()
		return nil, fmt.Errorf("%w: starting output stream: %v", ErrDevice, err)
	}
	out.stream = stream

	applog.Debugf("Audio: PortAudio output on %s (%d Hz, %d ch, %d frames)", info.Name, f.SampleRate, f.Channels, frames)
	return out, nil
}

// Write copies pcm into the stream buffer one buffer at a time. A final
// partial buffer is padded with silence.
func (o *paOutput) Write(pcm []byte) error {
	for len(pcm) > 0 {
		n := 0
		for ; n < len(o.buf) && 2*n+1 < len(pcm); n++ {
			o.buf[n] = int16(binary.LittleEndian.Uint16(pcm[2*n:]))
		}
		clear(o.buf[n:])
		pcm = pcm[min(2*n, len(pcm)):]
		if n == 0 {
			break
		}
		if err := o.stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return fmt.Errorf("%w: %v", ErrDevice, err)
		}
	}
	return nil
}

func (o *paOutput) Close() error {
	defer Terminate()
	if err := o.stream.Stop(); err != nil {
		o.stream.Close()
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if err := o.stream.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}

// --- oto output ---

var (
	globalOtoCtx    *oto.Context
	globalOtoFormat [2]int // sample rate, channels
	otoOnce         sync.Once
	otoInitErr      error
)

// initOto creates the process-wide oto context. oto allows one context per
// process, so later calls must ask for the same format.
func initOto(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			globalOtoFormat = [2]int{sampleRate, channels}
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if globalOtoFormat != [2]int{sampleRate, channels} {
		return nil, fmt.Errorf("oto context already running at %d Hz, %d channels", globalOtoFormat[0], globalOtoFormat[1])
	}
	return globalOtoCtx, nil
}

type otoOutput struct {
	pw     *io.PipeWriter
	player *oto.Player
}

func openOtoOutput(f OutputFormat) (*otoOutput, error) {
	ctx, err := initOto(f.SampleRate, f.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}
	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	applog.Debugf("Audio: oto output (%d Hz, %d ch)", f.SampleRate, f.Channels)
	return &otoOutput{pw: pw, player: player}, nil
}

// Write blocks until the player has pulled pcm from the pipe.
func (o *otoOutput) Write(pcm []byte) error {
	if err := o.player.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if _, err := o.pw.Write(pcm); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}

// Close lets the player drain what it already buffered, then releases it.
func (o *otoOutput) Close() error {
	o.pw.Close()
	for deadline := time.Now().Add(2 * time.Second); o.player.IsPlaying() && time.Now().Before(deadline); {
		time.Sleep(10 * time.Millisecond)
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}
