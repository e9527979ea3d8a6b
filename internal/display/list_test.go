// SPDX-License-Identifier: MIT
package display

import (
	"image/color"
	"testing"
)

func TestListAppendOnly(t *testing.T) {
	l := NewList()
	red := color.NRGBA{R: 255, A: 255}

	l.Add(Point{X: 0.5, Y: -0.5, Color: red})
	l.Add(Line{X1: -1, Y1: 0, X2: 1, Y2: 0, Color: red})
	first := l.Snapshot()

	l.Add(Circle{CX: 0, CY: 0, Radius: 0.1, Filled: true, Color: red})
	l.Add(Rectangle{X1: 0, Y1: 0, X2: 0.2, Y2: -0.2, Filled: true, Color: red})
	l.Add(Triangle{X1: 0, Y1: 0, X2: 1, Y2: 0, X3: 0, Y3: 1, Color: red})
	second := l.Snapshot()

	if len(first) != 2 || len(second) != 5 {
		t.Fatalf("snapshot lengths = %d, %d, want 2, 5", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("primitive %d changed between reads: %v -> %v", i, first[i], second[i])
		}
	}

	wantKinds := []Kind{KindPoint, KindLine, KindCircle, KindRectangle, KindTriangle}
	for i, k := range wantKinds {
		p, ok := l.At(i)
		if !ok || p.Kind() != k {
			t.Errorf("At(%d) kind = %v, want %v", i, p, k)
		}
		if p.Paint() != red {
			t.Errorf("At(%d) color = %v, want %v", i, p.Paint(), red)
		}
	}
	if l.Count(KindLine) != 1 {
		t.Errorf("Count(line) = %d, want 1", l.Count(KindLine))
	}
}

func TestListReset(t *testing.T) {
	l := NewList()
	l.Add(Point{})
	before := l.Snapshot()
	l.Reset()

	if l.Len() != 0 {
		t.Errorf("Len() after Reset = %d", l.Len())
	}
	if len(before) != 1 {
		t.Errorf("snapshot taken before Reset changed length to %d", len(before))
	}
}

func TestKindString(t *testing.T) {
	if KindTriangle.String() != "triangle" {
		t.Errorf("KindTriangle = %q", KindTriangle.String())
	}
	text, _ := KindCircle.MarshalText()
	if string(text) != "circle" {
		t.Errorf("MarshalText = %q", text)
	}
	if Kind(42).String() != "Kind(42)" {
		t.Errorf("unknown kind = %q", Kind(42).String())
	}
}
