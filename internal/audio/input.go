// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"

	applog "musicpainter/internal/log"

	"github.com/gordonklaus/portaudio"
)

// InputDevice is a blocking capture device. Open and Close bracket one
// recording; Read returns frames*channels interleaved 16-bit samples as
// little endian bytes.
type InputDevice interface {
	Open() error
	Read(frames int) ([]byte, error)
	Close() error
}

// InputFormat holds the capture parameters.
type InputFormat struct {
	DeviceID        int // PortAudio device index, -1 for the default.
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
}

// PortAudioInput captures from a PortAudio device with a blocking stream.
type PortAudioInput struct {
	format InputFormat
	stream *portaudio.Stream
	buf    []int16 // Bound to the stream.
}

// NewPortAudioInput returns an unopened capture device.
func NewPortAudioInput(f InputFormat) *PortAudioInput {
	if f.FramesPerBuffer <= 0 {
		f.FramesPerBuffer = 1024
	}
	return &PortAudioInput{format: f}
}

// Open initializes PortAudio and starts the capture stream. Failures wrap
// ErrDevice.
func (in *PortAudioInput) Open() error {
	if in.stream != nil {
		return nil
	}
	if err := Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}

	info, err := InputDeviceInfo(in.format.DeviceID)
	if err != nil {
		Terminate()
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	latency := info.DefaultHighInputLatency
	if in.format.LowLatency {
		latency = info.DefaultLowInputLatency
	}

	in.buf = make([]int16, in.format.FramesPerBuffer*in.format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: in.format.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(in.format.SampleRate),
		FramesPerBuffer: in.format.FramesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, in.buf)
	if err != nil {
		Terminate()
		return fmt.Errorf("%w: opening input stream on %s: %v", ErrDevice, info.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		Terminate()
		return fmt.Errorf("%w: starting input stream: %v", ErrDevice, err)
	}
	in.stream = stream

	applog.Infof("Audio: Capturing from %s (%d Hz, %d ch)", info.Name, in.format.SampleRate, in.format.Channels)
	return nil
}

// Read blocks until frames frames have been captured.
func (in *PortAudioInput) Read(frames int) ([]byte, error) {
	if in.stream == nil {
		return nil, fmt.Errorf("%w: input device not open", ErrDevice)
	}
	out := make([]byte, 0, frames*in.format.Channels*SampleWidth)
	want := frames * in.format.Channels
	for got := 0; got < want; {
		if err := in.stream.Read(); err != nil {
			if err != portaudio.InputOverflowed {
				return out, fmt.Errorf("%w: %v", ErrDevice, err)
			}
			applog.Warnf("Audio: Input overflowed")
		}
		n := min(len(in.buf), want-got)
		for _, s := range in.buf[:n] {
			out = binary.LittleEndian.AppendUint16(out, uint16(s))
		}
		got += n
	}
	return out, nil
}

// Close stops the stream and releases PortAudio.
func (in *PortAudioInput) Close() error {
	if in.stream == nil {
		return nil
	}
	defer Terminate()
	stream := in.stream
	in.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return nil
}
