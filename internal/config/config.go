// SPDX-License-Identifier: MIT
package config

import (
	"errors"

	"musicpainter/pkg/bitint"
)

// Core configuration constants that define the boundaries and defaults
// for a painting session.
const (
	// Session defaults
	DefaultChunkSize    = 16384  // Fifth entry of ChunkSizes
	DefaultAlgorithm    = 1      // Random point baseline
	DefaultFrequencyCap = 8500.0 // Hz, chunks above this are zeroed
	DefaultFFTWindow    = "none" // Plain real FFT, no window
	DefaultLogLevel     = "info"

	// Capture defaults, used by the record command
	DefaultDeviceID       = MinDeviceID // System default device
	DefaultInputChannels  = 2           // Stereo
	DefaultSampleRate     = 44100       // CD-quality audio
	DefaultSampleWidth    = 2           // Bytes per sample (16-bit)
	DefaultOutputBackend  = BackendPortAudio
	DefaultRecordingFile  = "" // Auto-generated filename
	DefaultRecordingDepth = 16

	// Render target defaults
	DefaultWidth  = 1200
	DefaultHeight = 800

	// Transport defaults
	DefaultWebSocketAddr    = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxDimension  = 16384  // Largest render target edge in pixels
)

// Output backends for the play command.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// ChunkSizes is the enumerated set of chunk sizes a session accepts.
var ChunkSizes = []int{1024, 2048, 4096, 8192, 16384, 32768, 65536, 131072}

// ErrInvalid marks a configuration value outside its allowed set.
var ErrInvalid = errors.New("invalid configuration")

// ValidChunkSize reports whether n is one of ChunkSizes.
func ValidChunkSize(n int) bool {
	exp := bitint.Log2(n)
	return exp >= bitint.Log2(ChunkSizes[0]) && exp <= bitint.Log2(ChunkSizes[len(ChunkSizes)-1])
}
