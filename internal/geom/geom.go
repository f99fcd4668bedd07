// Package geom holds the 2D primitives the simulation is built on:
// points, velocity vectors and the axis-aligned rectangles that bound
// roads. Roads are axis-aligned and dogs move along exactly one axis
// per step, so the exit-point computation never has to consider
// diagonal crossings.
package geom

import "fmt"

// Point is a position on the map plane.
type Point struct {
	X float64
	Y float64
}

// Vec is a velocity or displacement in map units per second.
type Vec struct {
	DX float64
	DY float64
}

// Scaled returns v scaled by k.
func (v Vec) Scaled(k float64) Vec {
	return Vec{DX: v.DX * k, DY: v.DY * k}
}

// IsZero reports whether the vector has no magnitude.
func (v Vec) IsZero() bool {
	return v.DX == 0 && v.DY == 0
}

// Add returns the point displaced by v.
func (p Point) Add(v Vec) Point {
	return Point{X: p.X + v.DX, Y: p.Y + v.DY}
}

// Segment is a directed straight step from Start to End.
type Segment struct {
	Start Point
	End   Point
}

// Rect is a closed axis-aligned rectangle.
type Rect struct {
	Min Point
	Max Point
}

// Contains reports closed membership: boundary points are inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// LeavingPoint returns the point on the rectangle boundary where seg
// exits, chosen by the dominant axis sign of the step. seg.Start must
// lie inside the rectangle and the step must be non-zero; a zero-length
// step is a caller bug and yields an error.
func (r Rect) LeavingPoint(seg Segment) (Point, error) {
	switch {
	case seg.End.X > seg.Start.X:
		return Point{X: r.Max.X, Y: seg.Start.Y}, nil
	case seg.End.Y > seg.Start.Y:
		return Point{X: seg.Start.X, Y: r.Max.Y}, nil
	case seg.End.X < seg.Start.X:
		return Point{X: r.Min.X, Y: seg.Start.Y}, nil
	case seg.End.Y < seg.Start.Y:
		return Point{X: seg.Start.X, Y: r.Min.Y}, nil
	}
	return Point{}, fmt.Errorf("leaving point of zero-length segment (%g, %g) -> (%g, %g)",
		seg.Start.X, seg.Start.Y, seg.End.X, seg.End.Y)
}
