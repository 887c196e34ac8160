package geom

import (
	"math"
)

// Point is a point in the plane.
type Point struct {
	X float64
	Y float64
}

// Line is the infinite line through A and B.
type Line struct {
	A Point
	B Point
}

// Dist returns the perpendicular distance from p to the line. A degenerate
// line (A == B) measures the distance to A.
func (l Line) Dist(p Point) float64 {
	dx, dy := l.B.X-l.A.X, l.B.Y-l.A.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-l.A.X, p.Y-l.A.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+l.B.X*l.A.Y-l.B.Y*l.A.X) / length
}
