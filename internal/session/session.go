// SPDX-License-Identifier: MIT

// Package session runs the per-chunk painting loop: pull a chunk, find its
// dominant frequencies, draw, optionally play it, repeat until the stream
// ends or the session is stopped.
package session

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"musicpainter/internal/analysis"
	"musicpainter/internal/audio"
	"musicpainter/internal/brush"
	"musicpainter/internal/config"
	"musicpainter/internal/display"
	applog "musicpainter/internal/log"
	"musicpainter/internal/stream"
	"musicpainter/internal/transport"
	"musicpainter/pkg/appendlog"

	"github.com/google/uuid"
)

// ErrRunning is returned by operations that need an idle controller.
var ErrRunning = errors.New("session is running")

// Mode selects where chunks come from and where they go.
type Mode int

const (
	ModeRender Mode = iota // File source, no audio output.
	ModePlay               // File source, each chunk written to the output device.
	ModeRecord             // Live capture until stopped.
)

func (m Mode) String() string {
	switch m {
	case ModeRender:
		return "render"
	case ModePlay:
		return "play"
	case ModeRecord:
		return "record"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State of the controller.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Redrawer is told after every chunk that the display list grew. full asks
// for a clear and redraw from the first primitive.
type Redrawer interface {
	Invalidate(full bool)
}

// Request starts one session. ChunkSize and Algorithm are the two session
// parameters; the rest names the collaborators for the chosen mode.
type Request struct {
	Mode      Mode
	ChunkSize int
	Algorithm int // 1..brush.Count()

	Source *audio.Source // ModeRender and ModePlay.

	Input      audio.InputDevice // ModeRecord. Opened by Start, closed when the session ends.
	Channels   int               // ModeRecord capture channels.
	SampleRate int               // ModeRecord capture rate.

	Seed int64 // Seed for the random algorithms, 0 picks one from the clock.
}

// Options configure collaborators that outlive a single session.
type Options struct {
	FrequencyCap analysis.FrequencyCap // Applied to every chunk, both paths.
	Window       analysis.WindowFunc
	Output       audio.OutputFormat // Backend and device for ModePlay; rate and channels come from the source.
	OpenOutput   func(audio.OutputFormat) (audio.OutputDevice, error)
	Transport    transport.Transport // Receives one transport.Frame per chunk, may be nil.
}

// Status is a snapshot of the current or last session.
type Status struct {
	ID         string
	State      State
	Mode       Mode
	Algorithm  string
	ChunkSize  int
	Chunks     int // Chunks processed so far.
	Total      int // Expected chunks, 0 for live capture.
	Capped     int // Chunks zeroed by the frequency cap.
	Primitives int
	Started    time.Time
	Err        error // Why the last session ended early, nil when it completed or was stopped.
}

// Controller owns the display list and the frequency history and runs at
// most one session at a time.
type Controller struct {
	opts Options

	list    *display.List
	history appendlog.Log[[]float64]
	state   atomic.Int32

	mu        sync.Mutex
	run       *run
	redrawers []Redrawer
	recording []byte
}

type run struct {
	id        string
	req       Request
	algorithm string
	total     int
	started   time.Time

	stop   atomic.Bool
	chunks atomic.Int64
	capped atomic.Int64
	done   chan struct{}
	err    error // Written before done is closed.
}

// NewController returns an idle controller.
func NewController(opts Options) *Controller {
	if opts.OpenOutput == nil {
		opts.OpenOutput = audio.OpenOutput
	}
	if opts.FrequencyCap == 0 {
		opts.FrequencyCap = config.DefaultFrequencyCap
	}
	return &Controller{opts: opts, list: display.NewList()}
}

// AddRedrawer registers a viewer. Viewers are never removed; they must not
// outlive the controller.
func (c *Controller) AddRedrawer(r Redrawer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redrawers = append(c.redrawers, r)
}

// List returns the display list. Callers only read it.
func (c *Controller) List() *display.List {
	return c.list
}

// State returns the controller state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start validates req, opens the devices it needs and spawns the loop.
// A Start while a session is running is a no-op. Validation failures wrap
// config.ErrInvalid, a missing source wraps audio.ErrSourceLoad and device
// failures wrap audio.ErrDevice; in every case nothing changes.
func (c *Controller) Start(req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateRunning {
		applog.Warnf("Session: start ignored, session %s is running", c.run.id)
		return nil
	}

	if !config.ValidChunkSize(req.ChunkSize) {
		return fmt.Errorf("%w: chunk size %d not in %v", config.ErrInvalid, req.ChunkSize, config.ChunkSizes)
	}
	if req.Algorithm < 1 || req.Algorithm > brush.Count() {
		return fmt.Errorf("%w: algorithm %d not in 1..%d", config.ErrInvalid, req.Algorithm, brush.Count())
	}

	var (
		st    stream.Stream
		live  *stream.LiveStream
		total int
	)
	switch req.Mode {
	case ModeRender, ModePlay:
		if req.Source == nil {
			return fmt.Errorf("%w: no source loaded", audio.ErrSourceLoad)
		}
		fs, err := stream.NewFileStream(req.Source, req.ChunkSize)
		if err != nil {
			return fmt.Errorf("%w: %v", audio.ErrSourceLoad, err)
		}
		st, total = fs, fs.Count()
	case ModeRecord:
		if req.Input == nil {
			return fmt.Errorf("%w: no input device", audio.ErrDevice)
		}
		ls, err := stream.NewLiveStream(req.Input, req.ChunkSize, req.Channels, req.SampleRate)
		if err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
		st, live = ls, ls
	default:
		return fmt.Errorf("%w: unknown mode %d", config.ErrInvalid, req.Mode)
	}

	proc, err := analysis.NewProcessor(req.ChunkSize, c.opts.Window, c.opts.FrequencyCap)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	algo, err := brush.New(req.Algorithm, brush.Params{TotalChunks: total, Channels: st.Channels()}, rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	// Devices last so a validation failure never leaves one open.
	var out audio.OutputDevice
	switch req.Mode {
	case ModePlay:
		f := c.opts.Output
		f.SampleRate = req.Source.SampleRate
		f.Channels = req.Source.Channels
		if f.FramesPerBuffer <= 0 {
			f.FramesPerBuffer = req.ChunkSize
		}
		out, err = c.opts.OpenOutput(f)
		if err != nil {
			return deviceError(err)
		}
	case ModeRecord:
		if err := req.Input.Open(); err != nil {
			return deviceError(err)
		}
	}

	r := &run{
		id:        uuid.NewString(),
		req:       req,
		algorithm: algo.Name(),
		total:     total,
		started:   time.Now(),
		done:      make(chan struct{}),
	}

	c.list.Reset()
	c.history.Reset()
	c.run = r
	c.state.Store(int32(StateRunning))
	c.invalidate(true)

	applog.Infof("Session: %s started (%s, algorithm %d %q, chunk %d, %d chunks expected)",
		r.id, req.Mode, req.Algorithm, r.algorithm, req.ChunkSize, total)

	go c.loop(r, st, live, proc, algo, out)
	return nil
}

// Stop asks the running session to end at the next chunk boundary. It does
// not wait; use Wait for that.
func (c *Controller) Stop() {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r != nil {
		r.stop.Store(true)
	}
}

// Wait blocks until the current session has ended and returns the error
// that ended it, nil on completion or stop.
func (c *Controller) Wait() error {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Done is closed when the current session ends. Without a session it is
// already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.run.done
}

// Status returns a snapshot of the current or last session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

	s := Status{State: c.State(), Primitives: c.list.Len()}
	if r == nil {
		return s
	}
	s.ID = r.id
	s.Mode = r.req.Mode
	s.Algorithm = r.algorithm
	s.ChunkSize = r.req.ChunkSize
	s.Chunks = int(r.chunks.Load())
	s.Total = r.total
	s.Capped = int(r.capped.Load())
	s.Started = r.started
	select {
	case <-r.done:
		s.Err = r.err
	default:
	}
	return s
}

// History returns the frequency list: one entry per processed chunk with one
// value per channel, in chunk order.
func (c *Controller) History() [][]float64 {
	return c.history.Snapshot()
}

// Recording returns the raw capture of the last record session.
func (c *Controller) Recording() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Clear empties the display list and the history while idle.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateRunning {
		return ErrRunning
	}
	c.list.Reset()
	c.history.Reset()
	c.invalidate(true)
	return nil
}

// invalidate must be called with c.mu held.
func (c *Controller) invalidate(full bool) {
	for _, r := range c.redrawers {
		r.Invalidate(full)
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate(false)
}

func (c *Controller) loop(r *run, st stream.Stream, live *stream.LiveStream, proc analysis.ChunkProcessor, algo brush.Algorithm, out audio.OutputDevice) {
	err := c.process(r, st, proc, algo, out)

	if out != nil {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = deviceError(cerr)
		}
	}
	if r.req.Mode == ModeRecord {
		if cerr := r.req.Input.Close(); cerr != nil && err == nil {
			err = deviceError(cerr)
		}
	}

	c.mu.Lock()
	if live != nil {
		c.recording = live.Recording()
	}
	r.err = err
	c.state.Store(int32(StateIdle))
	c.mu.Unlock()
	close(r.done)

	switch {
	case err != nil:
		applog.Errorf("Session: %s ended after %d chunks: %v", r.id, r.chunks.Load(), err)
	case r.stop.Load():
		applog.Infof("Session: %s stopped after %d chunks", r.id, r.chunks.Load())
	default:
		applog.Infof("Session: %s completed, %d chunks, %d primitives", r.id, r.chunks.Load(), c.list.Len())
	}
}

// process runs chunks until the stream ends, a stop is requested or a
// device fails.
func (c *Controller) process(r *run, st stream.Stream, proc analysis.ChunkProcessor, algo brush.Algorithm, out audio.OutputDevice) error {
	for {
		if r.stop.Load() {
			return nil
		}

		chunk, err := st.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chunk %d: %w", r.chunks.Load(), deviceError(err))
		}

		res := proc.Process(chunk.Samples, st.SampleRate())
		c.history.Append(res.Frequencies)
		if res.Capped {
			r.capped.Add(1)
		}

		if out != nil {
			if err := out.Write(chunk.Raw); err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.Index, deviceError(err))
			}
		}

		// Live capture records silent or capped chunks without drawing them.
		drawn := 0
		if r.req.Mode != ModeRecord || !allZero(res.Frequencies) {
			before := c.list.Len()
			algo.Draw(c.list, brush.Frame{Frequencies: res.Frequencies, Position: chunk.Index})
			drawn = c.list.Len() - before
		}
		r.chunks.Add(1)
		c.notify()

		if c.opts.Transport != nil {
			frame := transport.NewFrame(r.id, chunk.Index, r.total, res.Frequencies, res.Capped, drawn)
			if err := c.opts.Transport.Send(frame); err != nil {
				applog.Warnf("Session: publishing chunk %d: %v", chunk.Index, err)
			}
		}
	}
}

func deviceError(err error) error {
	if errors.Is(err, audio.ErrDevice) {
		return err
	}
	return fmt.Errorf("%w: %w", audio.ErrDevice, err)
}

func allZero(freqs []float64) bool {
	for _, f := range freqs {
		if f != 0 {
			return false
		}
	}
	return true
}
