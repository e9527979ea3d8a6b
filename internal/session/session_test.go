// SPDX-License-Identifier: MIT
package session

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"musicpainter/internal/audio"
	"musicpainter/internal/config"
	"musicpainter/internal/display"
	"musicpainter/internal/transport"
	"musicpainter/pkg/utils"
)

// toneSource builds an in-memory source with one sine per channel.
func toneSource(t *testing.T, rate, frames int, freqs ...float64) *audio.Source {
	t.Helper()
	channels := utils.GenerateTone(frames, float64(rate), freqs...)
	pcm := make([]int16, 0, frames*len(channels))
	for i := range frames {
		for ch := range channels {
			pcm = append(pcm, int16(channels[ch][i]*32767))
		}
	}
	src, err := audio.NewSource(rate, len(channels), pcm)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return src
}

type redrawLog struct {
	mu    sync.Mutex
	calls []bool
}

func (r *redrawLog) Invalidate(full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, full)
}

func (r *redrawLog) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.calls...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRenderEndToEnd(t *testing.T) {
	const rate, chunk = 44100, 4096
	src := toneSource(t, rate, 4*rate, 440, 440)

	tr := &utils.MockTransport{}
	redraws := &redrawLog{}
	c := NewController(Options{Transport: tr})
	c.AddRedrawer(redraws)

	if err := c.Start(Request{Mode: ModeRender, Source: src, ChunkSize: chunk, Algorithm: 3, Seed: 1}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	wantChunks := 4 * rate / chunk
	history := c.History()
	if len(history) != wantChunks {
		t.Fatalf("history length = %d, want %d", len(history), wantChunks)
	}
	binWidth := float64(rate) / chunk
	for i, freqs := range history {
		if len(freqs) != 2 {
			t.Fatalf("entry %d has %d channels, want 2", i, len(freqs))
		}
		for ch, f := range freqs {
			if math.Abs(f-440) > binWidth {
				t.Errorf("entry %d channel %d = %.2f Hz, want 440 within %.2f", i, ch, f, binWidth)
			}
		}
	}

	list := c.List()
	if list.Len() != 2*wantChunks || list.Count(display.KindLine) != 2*wantChunks {
		t.Fatalf("display list has %d primitives (%d lines), want %d lines", list.Len(), list.Count(display.KindLine), 2*wantChunks)
	}
	// Lines come in chunk order: x never decreases.
	prev := math.Inf(-1)
	for i, p := range list.Snapshot() {
		l := p.(display.Line)
		if l.X1 < prev {
			t.Fatalf("line %d at x=%g drawn after x=%g", i, l.X1, prev)
		}
		prev = l.X1
	}

	st := c.Status()
	if st.State != StateIdle || st.Chunks != wantChunks || st.Total != wantChunks || st.Err != nil || st.Capped != 0 {
		t.Errorf("status = %+v", st)
	}

	calls := redraws.snapshot()
	if len(calls) != wantChunks+1 || !calls[0] {
		t.Fatalf("redraw calls = %d (first full=%v), want %d starting with a full redraw", len(calls), len(calls) > 0 && calls[0], wantChunks+1)
	}
	for i, full := range calls[1:] {
		if full {
			t.Errorf("redraw %d after the first should be incremental", i+1)
		}
	}

	frames := tr.Frames()
	if len(frames) != wantChunks {
		t.Fatalf("transport got %d frames, want %d", len(frames), wantChunks)
	}
	last := frames[len(frames)-1].(transport.Frame)
	if last.Session != st.ID || last.Index != wantChunks-1 || last.Total != wantChunks || last.Drawn != 2 {
		t.Errorf("last frame = %+v", last)
	}
}

func TestFileCapStillDraws(t *testing.T) {
	const rate, chunk = 44100, 1024
	src := toneSource(t, rate, 4*chunk, 12000, 440)

	c := NewController(Options{})
	if err := c.Start(Request{Mode: ModeRender, Source: src, ChunkSize: chunk, Algorithm: 3}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	for i, freqs := range c.History() {
		if freqs[0] != 0 || freqs[1] != 0 {
			t.Errorf("chunk %d = %v, want the zero vector", i, freqs)
		}
	}
	if got := c.Status().Capped; got != 4 {
		t.Errorf("capped = %d, want 4", got)
	}
	if c.List().Len() != 8 {
		t.Errorf("file playback should still draw capped chunks: %d primitives, want 8", c.List().Len())
	}
}

func TestLiveCapSkipsDrawing(t *testing.T) {
	const rate, chunk = 44100, 1024
	in := &utils.MockInput{
		Chunks: [][]byte{
			utils.PCM16Chunk(utils.GenerateTone(chunk, rate, 440, 440)),
			utils.PCM16Chunk(utils.GenerateTone(chunk, rate, 12000, 440)),
			utils.PCM16Chunk(utils.GenerateTone(chunk, rate, 880, 880)),
		},
		FailWith: errors.New("end of capture"),
	}

	c := NewController(Options{})
	err := c.Start(Request{Mode: ModeRecord, Input: in, Channels: 2, SampleRate: rate, ChunkSize: chunk, Algorithm: 3})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("Wait error = %v, want ErrDevice once the input runs dry", err)
	}

	history := c.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[1][0] != 0 || history[1][1] != 0 {
		t.Errorf("capped chunk = %v, want the zero vector", history[1])
	}
	if history[0][0] == 0 || history[2][0] == 0 {
		t.Errorf("uncapped chunks should keep their frequencies: %v", history)
	}
	if c.List().Len() != 4 {
		t.Errorf("primitives = %d, want 4 (capped chunk not drawn)", c.List().Len())
	}
	if !in.Closed() {
		t.Error("input device should be closed when the session ends")
	}
	if got, want := len(c.Recording()), 3*chunk*2*audio.SampleWidth; got != want {
		t.Errorf("recording = %d bytes, want %d", got, want)
	}
}

func TestPlayWritesEveryChunk(t *testing.T) {
	const rate, chunk = 8000, 1024
	src := toneSource(t, rate, 5*chunk+100, 500)

	out := &utils.MockOutput{}
	var format audio.OutputFormat
	c := NewController(Options{
		Output: audio.OutputFormat{Backend: config.BackendOto},
		OpenOutput: func(f audio.OutputFormat) (audio.OutputDevice, error) {
			format = f
			return out, nil
		},
	})
	if err := c.Start(Request{Mode: ModePlay, Source: src, ChunkSize: chunk, Algorithm: 6}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if format.SampleRate != rate || format.Channels != 1 || format.Backend != config.BackendOto || format.FramesPerBuffer != chunk {
		t.Errorf("output format = %+v", format)
	}
	writes := out.Writes()
	if len(writes) != 5 {
		t.Fatalf("writes = %d, want 5", len(writes))
	}
	for i, w := range writes {
		if len(w) != chunk*audio.SampleWidth {
			t.Errorf("write %d = %d bytes, want %d", i, len(w), chunk*audio.SampleWidth)
		}
	}
	if !out.Closed() {
		t.Error("output device should be closed when the session ends")
	}
}

func TestDeviceFailureKeepsPartialRender(t *testing.T) {
	const rate, chunk = 8000, 1024
	src := toneSource(t, rate, 10*chunk, 500, 700)

	out := &utils.MockOutput{FailAfter: 3, FailWith: errors.New("unplugged")}
	c := NewController(Options{OpenOutput: func(audio.OutputFormat) (audio.OutputDevice, error) { return out, nil }})
	if err := c.Start(Request{Mode: ModePlay, Source: src, ChunkSize: chunk, Algorithm: 3}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := c.Wait()
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("Wait error = %v, want ErrDevice", err)
	}
	if st := c.Status(); st.State != StateIdle || !errors.Is(st.Err, audio.ErrDevice) {
		t.Errorf("status = %+v", st)
	}
	if c.List().Len() != 6 {
		t.Errorf("primitives = %d, want the 6 drawn before the failure", c.List().Len())
	}
	if len(c.History()) != 4 {
		t.Errorf("history = %d entries, want 4", len(c.History()))
	}
	if !out.Closed() {
		t.Error("output device should be released after a failure")
	}
}

func TestStopRecording(t *testing.T) {
	const rate, chunk = 44100, 1024
	raw := utils.PCM16Chunk(utils.GenerateTone(chunk, rate, 440, 660))
	in := &utils.MockInput{Chunks: [][]byte{raw}, Loop: true}

	c := NewController(Options{})
	req := Request{Mode: ModeRecord, Input: in, Channels: 2, SampleRate: rate, ChunkSize: chunk, Algorithm: 9}
	if err := c.Start(req); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "three chunks", func() bool { return c.Status().Chunks >= 3 })

	id := c.Status().ID
	if err := c.Start(Request{Mode: ModeRender, ChunkSize: 999, Algorithm: 1}); err != nil {
		t.Errorf("second Start while running should be a no-op, got %v", err)
	}
	if c.Status().ID != id {
		t.Error("second Start replaced the running session")
	}
	if err := c.Clear(); !errors.Is(err, ErrRunning) {
		t.Errorf("Clear while running = %v, want ErrRunning", err)
	}

	c.Stop()
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait after Stop: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done should be closed after Wait")
	}

	n := len(c.History())
	if got := len(c.Recording()); got != n*len(raw) {
		t.Errorf("recording = %d bytes, want %d chunks of %d", got, n, len(raw))
	}
	if c.List().Len() == 0 {
		t.Error("stopping should keep the partial render")
	}
	if !in.Closed() {
		t.Error("input should be closed after stop")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.List().Len() != 0 || len(c.History()) != 0 {
		t.Error("Clear should empty the list and history")
	}
}

func TestStartValidation(t *testing.T) {
	src := toneSource(t, 8000, 4096, 500)
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"chunk size", Request{Mode: ModeRender, Source: src, ChunkSize: 1000, Algorithm: 1}, config.ErrInvalid},
		{"algorithm zero", Request{Mode: ModeRender, Source: src, ChunkSize: 1024, Algorithm: 0}, config.ErrInvalid},
		{"algorithm too high", Request{Mode: ModeRender, Source: src, ChunkSize: 1024, Algorithm: 10}, config.ErrInvalid},
		{"no source", Request{Mode: ModePlay, ChunkSize: 1024, Algorithm: 1}, audio.ErrSourceLoad},
		{"no input", Request{Mode: ModeRecord, ChunkSize: 1024, Algorithm: 1, Channels: 2, SampleRate: 44100}, audio.ErrDevice},
		{"input fails to open", Request{Mode: ModeRecord, Input: &utils.MockInput{OpenErr: errors.New("busy")}, ChunkSize: 1024, Algorithm: 1, Channels: 2, SampleRate: 44100}, audio.ErrDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(Options{})
			c.List().Add(display.Point{})
			err := c.Start(tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Start error = %v, want %v", err, tt.want)
			}
			if c.State() != StateIdle {
				t.Error("a rejected start must not enter Running")
			}
			if c.List().Len() != 1 {
				t.Error("a rejected start must not reset the display list")
			}
		})
	}
}

func TestOutputOpenFailure(t *testing.T) {
	src := toneSource(t, 8000, 4096, 500)
	c := NewController(Options{OpenOutput: func(audio.OutputFormat) (audio.OutputDevice, error) {
		return nil, errors.New("no such device")
	}})
	err := c.Start(Request{Mode: ModePlay, Source: src, ChunkSize: 1024, Algorithm: 1})
	if !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("Start error = %v, want ErrDevice", err)
	}
	if c.State() != StateIdle {
		t.Error("controller should stay idle")
	}
	if err := c.Wait(); err != nil {
		t.Errorf("Wait without a session = %v", err)
	}
}

func TestSameSeedSameDrawing(t *testing.T) {
	src := toneSource(t, 8000, 8*1024, 500)
	render := func() []display.Primitive {
		c := NewController(Options{})
		if err := c.Start(Request{Mode: ModeRender, Source: src, ChunkSize: 1024, Algorithm: 1, Seed: 42}); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := c.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		return c.List().Snapshot()
	}
	a, b := render(), render()
	if len(a) != len(b) || len(a) != 8 {
		t.Fatalf("lengths %d and %d, want 8", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("primitive %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
