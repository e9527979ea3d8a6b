// SPDX-License-Identifier: MIT

// Package display holds the drawable primitives and the append-only list a
// painting session produces. Coordinates are logical: nominally [-1, 1] on
// both axes with y pointing up, though algorithms may draw outside it.
package display

import (
	"fmt"
	"image/color"
)

// Kind names a primitive shape.
type Kind uint8

const (
	KindPoint Kind = iota + 1
	KindLine
	KindCircle
	KindRectangle
	KindTriangle
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	case KindRectangle:
		return "rectangle"
	case KindTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// MarshalText lets frames carry the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Primitive is one immutable drawable shape. The set of implementations is
// closed: Point, Line, Circle, Rectangle and Triangle.
type Primitive interface {
	Kind() Kind
	Paint() color.NRGBA
	primitive()
}

// Point is a single pixel at (X, Y).
type Point struct {
	X, Y  float64
	Color color.NRGBA
}

// Line is a one pixel wide segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Color          color.NRGBA
}

// Circle is centered on (CX, CY). Unfilled circles are drawn as a one pixel
// ring.
type Circle struct {
	CX, CY, Radius float64
	Filled         bool
	Color          color.NRGBA
}

// Rectangle spans the two corners in any order.
type Rectangle struct {
	X1, Y1, X2, Y2 float64
	Filled         bool
	Color          color.NRGBA
}

// Triangle has three vertices in any winding.
type Triangle struct {
	X1, Y1, X2, Y2, X3, Y3 float64
	Filled                 bool
	Color                  color.NRGBA
}

func (Point) Kind() Kind     { return KindPoint }
func (Line) Kind() Kind      { return KindLine }
func (Circle) Kind() Kind    { return KindCircle }
func (Rectangle) Kind() Kind { return KindRectangle }
func (Triangle) Kind() Kind  { return KindTriangle }

func (p Point) Paint() color.NRGBA     { return p.Color }
func (l Line) Paint() color.NRGBA      { return l.Color }
func (c Circle) Paint() color.NRGBA    { return c.Color }
func (r Rectangle) Paint() color.NRGBA { return r.Color }
func (t Triangle) Paint() color.NRGBA  { return t.Color }

func (Point) primitive()     {}
func (Line) primitive()      {}
func (Circle) primitive()    {}
func (Rectangle) primitive() {}
func (Triangle) primitive()  {}
