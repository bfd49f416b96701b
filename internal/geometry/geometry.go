package geometry

import (
	"math"
	"sort"
)

type Point struct{ X, Y float32 }

type Rect struct{ X0, Y0, X1, Y1 float32 }

// Empty is the distinguished empty rectangle. Union treats it as identity.
var Empty = Rect{}

func (r Rect) IsEmpty() bool   { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }
func (r Rect) Width() float32  { return r.X1 - r.X0 }
func (r Rect) Height() float32 { return r.Y1 - r.Y0 }

func (r Rect) Area() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) Center() Point { return Point{(r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2} }

func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{Min32(r.X0, other.X0), Min32(r.Y0, other.Y0), Max32(r.X1, other.X1), Max32(r.Y1, other.Y1)}
}

func (r Rect) Intersect(other Rect) Rect {
	result := Rect{Max32(r.X0, other.X0), Max32(r.Y0, other.Y0), Min32(r.X1, other.X1), Min32(r.Y1, other.Y1)}
	if result.IsEmpty() {
		return Empty
	}
	return result
}

func (r Rect) IntersectArea(other Rect) float32 { return r.Intersect(other).Area() }

// Intersects reports whether the two rectangles share a region of positive area.
func (r Rect) Intersects(other Rect) bool { return !r.Intersect(other).IsEmpty() }

// ContainsPoint uses a margin on every side.
func (r Rect) ContainsPoint(p Point, margin float32) bool {
	return p.X >= r.X0-margin && p.X <= r.X1+margin && p.Y >= r.Y0-margin && p.Y <= r.Y1+margin
}

// Expand grows the rectangle by d on every side.
func (r Rect) Expand(d float32) Rect { return Rect{r.X0 - d, r.Y0 - d, r.X1 + d, r.Y1 + d} }

// IoU is intersection over union, 0 for disjoint or empty rectangles.
func (r Rect) IoU(other Rect) float32 {
	inter := r.IntersectArea(other)
	if inter == 0 {
		return 0
	}
	return inter / (r.Area() + other.Area() - inter)
}

// Bounds returns the rtree-style min/max corners.
func (r Rect) Bounds() (lo, hi [2]float64) {
	return [2]float64{float64(r.X0), float64(r.Y0)}, [2]float64{float64(r.X1), float64(r.Y1)}
}

type Orientation byte

const (
	Horizontal Orientation = 'h'
	Vertical   Orientation = 'v'
)

// Edge is a ruling segment. Horizontal edges have Y0 == Y1, vertical ones X0 == X1.
type Edge struct {
	X0, Y0, X1, Y1 float64
	Orientation    Orientation
}

// Pos is the fixed coordinate of the ruling.
func (e Edge) Pos() float64 {
	if e.Orientation == Horizontal {
		return e.Y0
	}
	return e.X0
}

// Start and End are the running coordinates along the ruling.
func (e Edge) Start() float64 {
	if e.Orientation == Horizontal {
		return math.Min(e.X0, e.X1)
	}
	return math.Min(e.Y0, e.Y1)
}

func (e Edge) End() float64 {
	if e.Orientation == Horizontal {
		return math.Max(e.X0, e.X1)
	}
	return math.Max(e.Y0, e.Y1)
}

func (e Edge) Length() float64 { return e.End() - e.Start() }

func Min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func Max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func Abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Median32 works on a sorted copy; even counts average the two middle values.
func Median32(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
