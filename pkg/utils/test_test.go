// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	for i := range 3 {
		if err := mt.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	frames := mt.Frames()
	if len(frames) != 3 || frames[2] != 2 {
		t.Errorf("Frames() = %v, want [0 1 2]", frames)
	}

	mt.Err = errors.New("boom")
	if err := mt.Send("x"); err == nil {
		t.Error("Send() should return the configured error")
	}
	if len(mt.Frames()) != 4 {
		t.Error("failed sends should still be recorded")
	}

	mt.Close()
	if !mt.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(100, 44100, 441, 0.5)
	if len(wave) != 100 {
		t.Fatalf("len = %d, want 100", len(wave))
	}
	for i, v := range wave {
		if math.Abs(v) > 0.5+1e-12 {
			t.Fatalf("sample %d = %f exceeds amplitude", i, v)
		}
	}
	if wave[0] != 0 {
		t.Errorf("first sample = %f, want 0", wave[0])
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := []float64{0, 1, 5, 3, 5, 2}
	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"full range", 0, 5, 2},
		{"clamped", -3, 99, 2},
		{"tail only", 3, 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}

func TestWriteWAVFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFixture(path, 8000, GenerateTone(800, 8000, 440, 880)); err != nil {
		t.Fatalf("WriteWAVFixture() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// 44 byte header plus 800 frames of two 16-bit samples.
	if want := int64(44 + 800*2*2); info.Size() != want {
		t.Errorf("file size = %d, want %d", info.Size(), want)
	}

	if err := WriteWAVFixture(path, 8000, [][]float64{{0, 1}, {0}}); err == nil {
		t.Error("mismatched channel lengths should fail")
	}
}
