// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, for example
// MUSICPAINTER_SESSION_CHUNK_SIZE=4096.
const EnvPrefix = "MUSICPAINTER"

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug" split_words:"true"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level" split_words:"true"` // Logging level (e.g., "debug", "info", "warn", "error").
	Session   SessionConfig   `yaml:"session" split_words:"true"`   // Parameters handed to the painting core.
	Audio     AudioConfig     `yaml:"audio" split_words:"true"`     // Device settings.
	Recording RecordingConfig `yaml:"recording" split_words:"true"` // Recording export settings.
	Render    RenderConfig    `yaml:"render" split_words:"true"`    // Render target settings.
	Transport TransportConfig `yaml:"transport" split_words:"true"` // Frame publishing settings.

	// Set by the CLI layer, never read from file or environment.
	Command  string        `yaml:"-" ignored:"true"` // Subcommand to run (render, play, record, devices, info, algorithms).
	Args     []string      `yaml:"-" ignored:"true"` // Positional arguments of the subcommand.
	TUIMode  bool          `yaml:"-" ignored:"true"` // Show the terminal monitor while a session runs.
	Duration time.Duration `yaml:"-" ignored:"true"` // Stop a recording after this long, 0 runs until interrupted.
	Pick     bool          `yaml:"-" ignored:"true"` // Choose the capture device in the terminal picker.
}

// SessionConfig holds the two session parameters of the painting core plus
// the analysis options around them.
type SessionConfig struct {
	ChunkSize    int     `yaml:"chunk_size" split_words:"true"`    // Samples per chunk, one of ChunkSizes.
	Algorithm    int     `yaml:"algorithm" split_words:"true"`     // Rendering algorithm index, 1-based.
	FrequencyCap float64 `yaml:"frequency_cap" split_words:"true"` // Chunks whose peak frequency exceeds this are zeroed.
	FFTWindow    string  `yaml:"fft_window" split_words:"true"`    // Window applied before the FFT ("none", "hann", ...).
	Seed         uint64  `yaml:"seed" split_words:"true"`          // Seed for the random algorithms, 0 picks one from the clock.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device" split_words:"true"`   // PortAudio device index for capture (-1 for default).
	OutputDevice  int     `yaml:"output_device" split_words:"true"`  // PortAudio device index for playback (-1 for default).
	OutputBackend string  `yaml:"output_backend" split_words:"true"` // "portaudio" or "oto".
	SampleRate    float64 `yaml:"sample_rate" split_words:"true"`    // Capture sample rate in Hz.
	InputChannels int     `yaml:"input_channels" split_words:"true"` // Capture channel count.
	LowLatency    bool    `yaml:"low_latency" split_words:"true"`    // Request low latency settings from PortAudio device.
}

// RecordingConfig holds settings related to saving a captured session.
type RecordingConfig struct {
	OutputFile string `yaml:"output_file" split_words:"true"` // WAV path, generated from the clock when empty.
	BitDepth   int    `yaml:"bit_depth" split_words:"true"`   // Bit depth of the exported WAV (16 only for now).
}

// RenderConfig holds settings for the offscreen render target.
type RenderConfig struct {
	Width       int     `yaml:"width" split_words:"true"`        // Target width in pixels.
	Height      int     `yaml:"height" split_words:"true"`       // Target height in pixels.
	OutputImage string  `yaml:"output_image" split_words:"true"` // Image written when the session ends, empty to skip.
	CenterX     float64 `yaml:"center_x" split_words:"true"`     // Initial viewport center.
	CenterY     float64 `yaml:"center_y" split_words:"true"`
	Zoom        float64 `yaml:"zoom" split_words:"true"` // Initial zoom factor, clamped to [1, 1000].
}

// TransportConfig holds settings related to publishing per-chunk frames.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled" split_words:"true"`  // Serve frames to websocket clients.
	WebSocketAddr    string `yaml:"websocket_addr" split_words:"true"`     // Listen address for the websocket server.
	UDPEnabled       bool   `yaml:"udp_enabled" split_words:"true"`        // Send frames as UDP packets.
	UDPTargetAddress string `yaml:"udp_target_address" split_words:"true"` // Target address and port for UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Session: SessionConfig{
			ChunkSize:    DefaultChunkSize,
			Algorithm:    DefaultAlgorithm,
			FrequencyCap: DefaultFrequencyCap,
			FFTWindow:    DefaultFFTWindow,
		},
		Audio: AudioConfig{
			InputDevice:   DefaultDeviceID,
			OutputDevice:  DefaultDeviceID,
			OutputBackend: DefaultOutputBackend,
			SampleRate:    DefaultSampleRate,
			InputChannels: DefaultInputChannels,
		},
		Recording: RecordingConfig{
			OutputFile: DefaultRecordingFile,
			BitDepth:   DefaultRecordingDepth,
		},
		Render: RenderConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Zoom:   1,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations. If no file is found, it uses built-in defaults.
// After loading defaults or from file, it applies environment variable overrides
// and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"musicpainter.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides win over the file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every enumerated or bounded value. Errors wrap ErrInvalid.
// The algorithm index is only checked for its lower bound here; the upper
// bound belongs to the algorithm registry and is checked at session start.
func (c *Config) Validate() error {
	if !ValidChunkSize(c.Session.ChunkSize) {
		return fmt.Errorf("%w: session.chunk_size %d not in %v", ErrInvalid, c.Session.ChunkSize, ChunkSizes)
	}
	if c.Session.Algorithm < 1 {
		return fmt.Errorf("%w: session.algorithm must be >= 1, got %d", ErrInvalid, c.Session.Algorithm)
	}
	if c.Session.FrequencyCap <= 0 {
		return fmt.Errorf("%w: session.frequency_cap must be positive, got %g", ErrInvalid, c.Session.FrequencyCap)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate %g outside [%d, %d]", ErrInvalid, c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("%w: audio.input_channels must be >= 1, got %d", ErrInvalid, c.Audio.InputChannels)
	}
	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: device ids must be >= %d", ErrInvalid, MinDeviceID)
	}
	switch strings.ToLower(c.Audio.OutputBackend) {
	case BackendPortAudio, BackendOto:
	default:
		return fmt.Errorf("%w: audio.output_backend %q (want %q or %q)", ErrInvalid, c.Audio.OutputBackend, BackendPortAudio, BackendOto)
	}
	if c.Recording.BitDepth != 16 {
		return fmt.Errorf("%w: recording.bit_depth %d unsupported (16 only)", ErrInvalid, c.Recording.BitDepth)
	}
	if c.Render.Width < 1 || c.Render.Height < 1 || c.Render.Width > MaxDimension || c.Render.Height > MaxDimension {
		return fmt.Errorf("%w: render size %dx%d outside [1, %d]", ErrInvalid, c.Render.Width, c.Render.Height, MaxDimension)
	}
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		return fmt.Errorf("%w: transport.udp_target_address %q appears invalid (missing port?)", ErrInvalid, c.Transport.UDPTargetAddress)
	}
	return nil
}

// applyEnvOverrides reads MUSICPAINTER_* variables on top of the current
// values. Variables that are not set leave the field untouched.
func (c *Config) applyEnvOverrides() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}
