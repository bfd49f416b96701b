// Package spatial provides a bucketed point set with tolerance-aware
// de-duplication, used to collect ruling intersections.
package spatial

import "math"

const (
	// HashSize is the bucket count; must be a power of two.
	HashSize = 4096
	// CellSize is the side of a grid bucket in page units.
	CellSize = 2.0
	// PointTolerance is the per-axis distance under which two points are the same.
	PointTolerance = 0.1

	primeA = 73856093
	primeB = 19349663
)

type Point struct{ X, Y float64 }

type node struct {
	point Point
	next  int32
}

// Hash stores points in index-linked chains. Nodes live in one slice and link
// by index, so growing the slice never invalidates a chain.
type Hash struct {
	buckets [HashSize]int32
	nodes   []node
}

func New() *Hash {
	h := &Hash{nodes: make([]node, 0, 256)}
	for i := range h.buckets {
		h.buckets[i] = -1
	}
	return h
}

func cellOf(v float64) int64 { return int64(math.Floor(v / CellSize)) }

func bucketOf(ix, iy int64) int {
	return int(((ix * primeA) ^ (iy * primeB)) & (HashSize - 1))
}

// Insert adds p unless a point within PointTolerance is already stored.
// It reports whether p was added.
func (h *Hash) Insert(p Point) bool {
	if h.Contains(p.X, p.Y) {
		return false
	}
	b := bucketOf(cellOf(p.X), cellOf(p.Y))
	h.nodes = append(h.nodes, node{point: p, next: h.buckets[b]})
	h.buckets[b] = int32(len(h.nodes) - 1)
	return true
}

// Contains reports whether a stored point lies within PointTolerance of (x, y).
func (h *Hash) Contains(x, y float64) bool {
	_, ok := h.Near(x, y, PointTolerance)
	return ok
}

// Near returns the stored point closest to (x, y) with both axis distances
// under tol. Buckets within tol of the query are all inspected, so points
// sitting on either side of a cell boundary are found.
func (h *Hash) Near(x, y, tol float64) (Point, bool) {
	best, found := Point{}, false
	bestDist := math.MaxFloat64
	for ix := cellOf(x - tol); ix <= cellOf(x+tol); ix++ {
		for iy := cellOf(y - tol); iy <= cellOf(y+tol); iy++ {
			for i := h.buckets[bucketOf(ix, iy)]; i >= 0; i = h.nodes[i].next {
				p := h.nodes[i].point
				dx, dy := math.Abs(p.X-x), math.Abs(p.Y-y)
				if dx >= tol || dy >= tol {
					continue
				}
				if d := dx*dx + dy*dy; d < bestDist {
					best, bestDist, found = p, d, true
				}
			}
		}
	}
	return best, found
}

// Points returns the stored points in insertion order.
func (h *Hash) Points() []Point {
	out := make([]Point, len(h.nodes))
	for i, n := range h.nodes {
		out[i] = n.point
	}
	return out
}

func (h *Hash) Len() int { return len(h.nodes) }
