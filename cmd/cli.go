// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strings"
	"time"

	"musicpainter/internal/audio"
	"musicpainter/internal/brush"
	"musicpainter/internal/config"
	"musicpainter/pkg/build"

	"github.com/spf13/cobra"
)

// ParseArgs builds the configuration from the config file, the environment
// and args, in increasing order of precedence. A nil error with an empty
// Command means cobra already handled the invocation (help, version).
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetInfo()

	var (
		configPath string
		executed   *cobra.Command
		positional []string
		duration   time.Duration
		pick       bool
		tuiMode    bool
	)
	// Flag values land here; only flags the user set are copied over the
	// loaded configuration.
	flags := config.Default()

	run := func(c *cobra.Command, a []string) error {
		executed, positional = c, a
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Session parameters
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "",
		"Path to a YAML configuration file (default musicpainter.yaml if present)")
	pf.IntVarP(&flags.Session.ChunkSize, "chunk-size", "n", config.DefaultChunkSize,
		fmt.Sprintf("Samples per chunk, one of %s", joinInts(config.ChunkSizes)))
	pf.IntVarP(&flags.Session.Algorithm, "algorithm", "a", config.DefaultAlgorithm,
		fmt.Sprintf("Rendering algorithm 1..%d, see 'algorithms'", brush.Count()))
	pf.Float64Var(&flags.Session.FrequencyCap, "frequency-cap", config.DefaultFrequencyCap,
		"Zero every chunk whose dominant frequency exceeds this (Hz)")
	pf.StringVar(&flags.Session.FFTWindow, "window", config.DefaultFFTWindow,
		"Window applied before the FFT (none, hann, hamming, blackman, ...)")
	pf.Uint64Var(&flags.Session.Seed, "seed", 0,
		"Seed for the random algorithms, 0 picks one from the clock")

	// Render target
	pf.StringVarP(&flags.Render.OutputImage, "image", "o", "",
		"Save the painting to this image file when the session ends (png, jpg, gif, tif, bmp)")
	pf.IntVar(&flags.Render.Width, "width", config.DefaultWidth, "Image width in pixels")
	pf.IntVar(&flags.Render.Height, "height", config.DefaultHeight, "Image height in pixels")
	pf.Float64Var(&flags.Render.Zoom, "zoom", 1, "Initial zoom factor, 1..1000")

	// Transport
	pf.BoolVar(&flags.Transport.WebSocketEnabled, "websocket", false,
		"Serve per-chunk frames to websocket clients")
	pf.StringVar(&flags.Transport.WebSocketAddr, "websocket-addr", config.DefaultWebSocketAddr,
		"Listen address of the websocket server")
	pf.BoolVar(&flags.Transport.UDPEnabled, "udp", false,
		"Send per-chunk frames as UDP packets")
	pf.StringVar(&flags.Transport.UDPTargetAddress, "udp-target", config.DefaultUDPTargetAddress,
		"Target host:port of the UDP packets")

	// Debug Configuration
	pf.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")
	pf.BoolVarP(&flags.Debug, "verbose", "v", false,
		"Show verbose output")
	pf.BoolVarP(&tuiMode, "tui", "t", false,
		"Show the terminal monitor while the session runs")

	renderCmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Paint an audio file as fast as it can be analyzed",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	playCmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play an audio file and paint it chunk by chunk",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	playCmd.Flags().StringVar(&flags.Audio.OutputBackend, "backend", config.DefaultOutputBackend,
		"Playback backend (portaudio, oto)")
	playCmd.Flags().IntVar(&flags.Audio.OutputDevice, "output-device", config.DefaultDeviceID,
		"PortAudio output device ID, -1 for the default")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Paint live input until interrupted, then save the recording",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	rf := recordCmd.Flags()
	rf.IntVarP(&flags.Audio.InputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'devices' command to see available devices.")
	rf.IntVar(&flags.Audio.InputChannels, "channels", config.DefaultInputChannels,
		"Number of channels to record (1=mono, 2=stereo)")
	rf.Float64VarP(&flags.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rf.BoolVarP(&flags.Audio.LowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	rf.StringVarP(&flags.Recording.OutputFile, "wav", "w", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	rf.DurationVar(&duration, "duration", 0,
		"Stop after this long (e.g. 30s), 0 records until interrupted")
	rf.BoolVar(&pick, "pick", false,
		"Choose the input device and sample rate in a terminal picker")

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	infoCmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show the properties of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	algorithmsCmd := &cobra.Command{
		Use:   "algorithms",
		Short: "List the rendering algorithms",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	rootCmd.AddCommand(renderCmd, playCmd, recordCmd, devicesCmd, infoCmd, algorithmsCmd)

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if executed == nil {
		return &config.Config{}, nil
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	overrides := map[string]func(){
		"chunk-size":     func() { cfg.Session.ChunkSize = flags.Session.ChunkSize },
		"algorithm":      func() { cfg.Session.Algorithm = flags.Session.Algorithm },
		"frequency-cap":  func() { cfg.Session.FrequencyCap = flags.Session.FrequencyCap },
		"window":         func() { cfg.Session.FFTWindow = flags.Session.FFTWindow },
		"seed":           func() { cfg.Session.Seed = flags.Session.Seed },
		"image":          func() { cfg.Render.OutputImage = flags.Render.OutputImage },
		"width":          func() { cfg.Render.Width = flags.Render.Width },
		"height":         func() { cfg.Render.Height = flags.Render.Height },
		"zoom":           func() { cfg.Render.Zoom = flags.Render.Zoom },
		"websocket":      func() { cfg.Transport.WebSocketEnabled = flags.Transport.WebSocketEnabled },
		"websocket-addr": func() { cfg.Transport.WebSocketAddr = flags.Transport.WebSocketAddr },
		"udp":            func() { cfg.Transport.UDPEnabled = flags.Transport.UDPEnabled },
		"udp-target":     func() { cfg.Transport.UDPTargetAddress = flags.Transport.UDPTargetAddress },
		"log-level":      func() { cfg.LogLevel = flags.LogLevel },
		"verbose":        func() { cfg.Debug = flags.Debug },
		"backend":        func() { cfg.Audio.OutputBackend = flags.Audio.OutputBackend },
		"output-device":  func() { cfg.Audio.OutputDevice = flags.Audio.OutputDevice },
		"device":         func() { cfg.Audio.InputDevice = flags.Audio.InputDevice },
		"channels":       func() { cfg.Audio.InputChannels = flags.Audio.InputChannels },
		"sample-rate":    func() { cfg.Audio.SampleRate = flags.Audio.SampleRate },
		"low-latency":    func() { cfg.Audio.LowLatency = flags.Audio.LowLatency },
		"wav":            func() { cfg.Recording.OutputFile = flags.Recording.OutputFile },
	}
	for name, apply := range overrides {
		if f := executed.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	cfg.Command = executed.Name()
	cfg.Args = positional
	cfg.TUIMode = tuiMode
	cfg.Duration = duration
	cfg.Pick = pick

	// Defaults
	if cfg.Command == "record" && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = audio.RecordingFilename(time.Now())
	}

	return cfg, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
