// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	applog "musicpainter/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV serializes raw interleaved little endian PCM as an uncompressed
// WAV stream. sampleWidth is in bytes, 2 to 4.
func WriteWAV(w io.WriteSeeker, raw []byte, channels, sampleWidth, sampleRate int) error {
	if channels <= 0 || sampleRate <= 0 {
		return fmt.Errorf("invalid WAV format: %d channels at %d Hz", channels, sampleRate)
	}
	if sampleWidth < 2 || sampleWidth > 4 {
		return fmt.Errorf("unsupported sample width %d", sampleWidth)
	}
	frameSize := channels * sampleWidth
	if len(raw)%frameSize != 0 {
		return fmt.Errorf("recording length %d is not a multiple of the %d byte frame", len(raw), frameSize)
	}

	enc := wav.NewEncoder(w, sampleRate, sampleWidth*8, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(raw)/sampleWidth),
		SourceBitDepth: sampleWidth * 8,
	}
	for i := range buf.Data {
		b := raw[i*sampleWidth:]
		switch sampleWidth {
		case 2:
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case 3:
			s := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF // sign extend
			}
			buf.Data[i] = int(s)
		case 4:
			buf.Data[i] = int(int32(binary.LittleEndian.Uint32(b)))
		}
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return nil
}

// SaveWAV writes the recording to path, replacing any existing file.
func SaveWAV(path string, raw []byte, channels, sampleWidth, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(file, raw, channels, sampleWidth, sampleRate); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	applog.Infof("Audio: Recording saved to %s (%d bytes)", path, len(raw))
	return nil
}

// RecordingFilename returns the default name for a recording made at t.
func RecordingFilename(t time.Time) string {
	return "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
}
