package table

import (
	"math"
	"sort"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

func coordToInt(x float64) int { return int(math.Round(x * coordScale)) }

// SplitEdges partitions rulings by orientation, preserving input order.
func SplitEdges(edges []geometry.Edge) (h, v []geometry.Edge) {
	for _, e := range edges {
		if e.Orientation == geometry.Horizontal {
			h = append(h, normalizeEdge(e))
		} else {
			v = append(v, normalizeEdge(e))
		}
	}
	return h, v
}

// normalizeEdge orders the running coordinates so Start is X0/Y0.
func normalizeEdge(e geometry.Edge) geometry.Edge {
	if e.Orientation == geometry.Horizontal {
		e.X0, e.X1 = e.Start(), e.End()
		e.Y1 = e.Y0
	} else {
		e.Y0, e.Y1 = e.Start(), e.End()
		e.X1 = e.X0
	}
	return e
}

func withPos(e geometry.Edge, pos float64) geometry.Edge {
	if e.Orientation == geometry.Horizontal {
		e.Y0, e.Y1 = pos, pos
	} else {
		e.X0, e.X1 = pos, pos
	}
	return e
}

func withEnd(e geometry.Edge, end float64) geometry.Edge {
	if e.Orientation == geometry.Horizontal {
		e.X1 = end
	} else {
		e.Y1 = end
	}
	return e
}

// MergeEdges snaps rulings of one orientation whose positions lie within
// snapTol of the running cluster mean onto that mean, then joins collinear
// segments whose gap is at most joinTol. Output is ordered by (position,
// start).
func MergeEdges(edges []geometry.Edge, snapTol, joinTol float64) []geometry.Edge {
	if len(edges) == 0 {
		return nil
	}
	sorted := make([]geometry.Edge, len(edges))
	for i, e := range edges {
		sorted[i] = normalizeEdge(e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := coordToInt(sorted[i].Pos()), coordToInt(sorted[j].Pos())
		if pi != pj {
			return pi < pj
		}
		return coordToInt(sorted[i].Start()) < coordToInt(sorted[j].Start())
	})

	var result []geometry.Edge
	snapInt, joinInt := coordToInt(snapTol), coordToInt(joinTol)
	for i := 0; i < len(sorted); {
		posSum, count := coordToInt(sorted[i].Pos()), 1
		j := i + 1
		for j < len(sorted) {
			next := coordToInt(sorted[j].Pos())
			if absInt(next-posSum/count) > snapInt {
				break
			}
			posSum += next
			count++
			j++
		}
		snapped := float64(posSum/count) / coordScale

		cluster := sorted[i:j]
		sort.SliceStable(cluster, func(a, b int) bool {
			return coordToInt(cluster[a].Start()) < coordToInt(cluster[b].Start())
		})
		joined := withPos(cluster[0], snapped)
		for _, next := range cluster[1:] {
			if coordToInt(next.Start())-coordToInt(joined.End()) <= joinInt {
				if next.End() > joined.End() {
					joined = withEnd(joined, next.End())
				}
				continue
			}
			result = append(result, joined)
			joined = withPos(next, snapped)
		}
		result = append(result, joined)
		i = j
	}
	return result
}

// hasEdge reports whether one ruling covers the segment from a to b along pos,
// within eps at both ends.
func hasEdge(edges []geometry.Edge, pos, a, b, eps float64) bool {
	lo, hi := math.Min(a, b), math.Max(a, b)
	for _, e := range edges {
		if math.Abs(e.Pos()-pos) <= eps && e.Start()-eps <= lo && e.End()+eps >= hi {
			return true
		}
	}
	return false
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
