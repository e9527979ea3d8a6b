// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"musicpainter/internal/analysis"
	"musicpainter/internal/audio"
	"musicpainter/internal/config"
	applog "musicpainter/internal/log"
	"musicpainter/internal/session"
	"musicpainter/internal/transport"
	"musicpainter/internal/transport/udp"
	"musicpainter/internal/tui"
	"musicpainter/internal/viewport"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

const logFile = "musicpainter.log"

var errNoDevice = errors.New("no input device chosen")

// runSession paints one render, play or record session and writes its
// outputs. Partial results are saved even when the session failed.
func runSession(ctx context.Context, cfg *config.Config) error {
	window, err := analysis.ParseWindowFunc(cfg.Session.FFTWindow)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	req, err := buildRequest(cfg)
	if err != nil {
		return err
	}

	transports, err := openTransports(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := transports.Close(); err != nil {
			applog.Warnf("Transport: close: %v", err)
		}
	}()

	opts := session.Options{
		FrequencyCap: analysis.FrequencyCap(cfg.Session.FrequencyCap),
		Window:       window,
		Output: audio.OutputFormat{
			Backend:    cfg.Audio.OutputBackend,
			DeviceID:   cfg.Audio.OutputDevice,
			LowLatency: cfg.Audio.LowLatency,
		},
	}
	if len(transports) > 0 {
		opts.Transport = transports
	}
	ctrl := session.NewController(opts)

	canvas := viewport.NewCanvas(ctrl.List(), cfg.Render.Width, cfg.Render.Height)
	canvas.SetView(cfg.Render.CenterX, cfg.Render.CenterY, cfg.Render.Zoom)
	ctrl.AddRedrawer(canvas)

	var bar *progress
	if cfg.TUIMode {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		applog.SetOutput(f)
		defer func() {
			applog.SetOutput(os.Stderr)
			f.Close()
		}()
	} else {
		bar = newProgress(expectedChunks(req), req.Mode)
		ctrl.AddRedrawer(bar)
	}

	if err := ctrl.Start(req); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	canvasCtx, stopCanvas := context.WithCancel(context.Background())

	g.Go(func() error {
		return canvas.Run(canvasCtx)
	})
	g.Go(func() error {
		defer stopCanvas()

		var timeout <-chan time.Time
		if req.Mode == session.ModeRecord && cfg.Duration > 0 {
			timer := time.NewTimer(cfg.Duration)
			defer timer.Stop()
			timeout = timer.C
		}

		select {
		case <-ctrl.Done():
		case <-gctx.Done():
			applog.Infof("Session: stopping...")
			ctrl.Stop()
		case <-timeout:
			applog.Infof("Session: %s elapsed, stopping", cfg.Duration)
			ctrl.Stop()
		}
		return ctrl.Wait()
	})
	if cfg.TUIMode {
		g.Go(func() error {
			return tui.RunMonitor(ctrl, canvas)
		})
	}
	sessionErr := g.Wait()

	if bar != nil {
		bar.finish()
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	var errs []error
	if sessionErr != nil {
		errs = append(errs, sessionErr)
	}
	if req.Mode == session.ModeRecord {
		if rec := ctrl.Recording(); len(rec) > 0 {
			if err := audio.SaveWAV(cfg.Recording.OutputFile, rec, req.Channels, audio.SampleWidth, req.SampleRate); err != nil {
				errs = append(errs, err)
			} else {
				fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
			}
		}
	}
	if cfg.Render.OutputImage != "" {
		img := canvas.RenderTo(cfg.Render.Width, cfg.Render.Height)
		if err := viewport.SaveImage(cfg.Render.OutputImage, img); err != nil {
			errs = append(errs, err)
		} else {
			fmt.Printf("Image saved to: %s\n", cfg.Render.OutputImage)
		}
	}

	st := ctrl.Status()
	applog.Infof("Session: %d chunks, %d capped, %d primitives", st.Chunks, st.Capped, st.Primitives)
	return errors.Join(errs...)
}

// buildRequest loads the source or prepares the capture device.
func buildRequest(cfg *config.Config) (session.Request, error) {
	req := session.Request{
		ChunkSize: cfg.Session.ChunkSize,
		Algorithm: cfg.Session.Algorithm,
		Seed:      int64(cfg.Session.Seed),
	}

	switch cfg.Command {
	case "render", "play":
		req.Mode = session.ModeRender
		if cfg.Command == "play" {
			req.Mode = session.ModePlay
		}
		src, err := audio.LoadSource(cfg.Args[0])
		if err != nil {
			return req, err
		}
		applog.Infof("Audio: %s loaded, %d Hz, %d channels, %.1f s", src.Path, src.SampleRate, src.Channels, src.Duration())
		req.Source = src

	case "record":
		if cfg.Pick {
			sel, ok, err := tui.PickInputDevice()
			if err != nil {
				return req, err
			}
			if !ok {
				return req, errNoDevice
			}
			cfg.Audio.InputDevice = sel.DeviceID
			cfg.Audio.SampleRate = sel.SampleRate
			cfg.Audio.InputChannels = sel.Channels
		}
		req.Mode = session.ModeRecord
		req.Channels = cfg.Audio.InputChannels
		req.SampleRate = int(cfg.Audio.SampleRate)
		req.Input = audio.NewPortAudioInput(audio.InputFormat{
			DeviceID:        cfg.Audio.InputDevice,
			SampleRate:      req.SampleRate,
			Channels:        req.Channels,
			FramesPerBuffer: cfg.Session.ChunkSize,
			LowLatency:      cfg.Audio.LowLatency,
		})

	default:
		return req, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return req, nil
}

// openTransports builds the frame publishers the configuration enables.
func openTransports(cfg *config.Config) (transport.Multi, error) {
	var ts transport.Multi
	if cfg.Debug {
		ts = append(ts, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ts = append(ts, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	if cfg.Transport.UDPEnabled {
		pub, err := udp.Dial(cfg.Transport.UDPTargetAddress)
		if err != nil {
			ts.Close()
			return nil, err
		}
		ts = append(ts, pub)
	}
	return ts, nil
}

func expectedChunks(req session.Request) int {
	if req.Source == nil || req.ChunkSize <= 0 {
		return -1
	}
	return req.Source.TotalSamples() / req.ChunkSize
}

// progress advances a terminal progress bar once per painted chunk. An
// unknown total shows a spinner.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(total int, mode session.Mode) *progress {
	return &progress{bar: progressbar.Default(int64(total), mode.String())}
}

func (p *progress) Invalidate(full bool) {
	if !full {
		p.bar.Add(1)
	}
}

func (p *progress) finish() {
	p.bar.Finish()
}
