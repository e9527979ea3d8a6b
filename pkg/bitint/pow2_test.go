package bitint

import "testing"

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		input int
		want  bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{1024, true},
		{1000, false},
		{131072, true},
	}
	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.input); got != tt.want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLog2(t *testing.T) {
	tests := []struct {
		input int
		want  int
	}{
		{1, 0},
		{1024, 10},
		{131072, 17},
		{1000, -1},
		{0, -1},
	}
	for _, tt := range tests {
		if got := Log2(tt.input); got != tt.want {
			t.Errorf("Log2(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func BenchmarkIsPowerOfTwo(b *testing.B) {
	for b.Loop() {
		_ = IsPowerOfTwo(16384)
	}
}
