package table

import (
	"sort"
	"unicode"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

// DetectDividers recovers a table drawn with row rulings only. Column starts
// are inferred from wide gaps in the text between the first and last ruling.
func DetectDividers(raw *bridge.RawPageData, p Params) *TableArray {
	return detectDividers(raw, newGlyphIndex(raw.Chars), p)
}

func detectDividers(raw *bridge.RawPageData, idx *glyphIndex, p Params) *TableArray {
	page := raw.PageBounds
	pw := float64(page.Width())
	if pw <= 0 || len(raw.Edges) == 0 {
		return nil
	}
	hEdges, vEdges := SplitEdges(raw.Edges)
	snapTol, joinTol := pw*p.SnapTolRatio, pw*p.JoinTolRatio
	hEdges = MergeEdges(hEdges, snapTol, joinTol)
	vEdges = MergeEdges(vEdges, snapTol, joinTol)
	if len(hEdges) == 0 || len(vEdges) >= p.MinGridEdges {
		return nil
	}

	boundaries := clusterPositions(hEdges, p.DividerYTol)
	if len(boundaries) < p.MinDividerBoundaries {
		return nil
	}
	x0, x1 := float32(hEdges[0].Start()), float32(hEdges[0].End())
	for _, e := range hEdges[1:] {
		x0, x1 = geometry.Min32(x0, float32(e.Start())), geometry.Max32(x1, float32(e.End()))
	}
	top, bottom := boundaries[0], boundaries[len(boundaries)-1]

	starts := columnStarts(raw, geometry.Rect{X0: x0, Y0: top, X1: x1, Y1: bottom}, p)
	if len(starts) < 2 {
		Logger.Debug("divider table rejected: too few columns", "columns", len(starts))
		return nil
	}
	bounds := make([]float32, 0, len(starts)+1)
	bounds = append(bounds, geometry.Min32(x0, starts[0]))
	bounds = append(bounds, starts[1:]...)
	bounds = append(bounds, geometry.Max32(x1, starts[len(starts)-1]))

	t := Table{Strategy: "divider"}
	for k := 0; k+1 < len(boundaries); k++ {
		band := geometry.Rect{X0: bounds[0], Y0: boundaries[k], X1: bounds[len(bounds)-1], Y1: boundaries[k+1]}
		if len(idx.centered(band, 0)) == 0 {
			continue
		}
		row := Row{Cells: make([]Cell, len(bounds)-1)}
		for c := range row.Cells {
			row.Cells[c].BBox = geometry.Rect{X0: bounds[c], Y0: band.Y0, X1: bounds[c+1], Y1: band.Y1}
		}
		t.Rows = append(t.Rows, row)
	}
	t.updateBounds()
	if !validate(&t, page, 0, p) {
		return nil
	}
	Logger.Debug("divider table", "rows", len(t.Rows), "cols", t.ColCount())
	return &TableArray{Tables: []Table{t}}
}

// clusterPositions groups ruling positions closer than tol and returns the
// sorted cluster means.
func clusterPositions(edges []geometry.Edge, tol float64) []float32 {
	pos := make([]float64, len(edges))
	for i, e := range edges {
		pos[i] = e.Pos()
	}
	sort.Float64s(pos)
	var out []float32
	for i := 0; i < len(pos); {
		sum, j := pos[i], i+1
		for j < len(pos) && pos[j]-pos[i] <= tol {
			sum += pos[j]
			j++
		}
		out = append(out, float32(sum/float64(j-i)))
		i = j
	}
	return out
}

// columnStarts collects the x positions where text resumes after a wide gap
// on lines inside area. Starts closer than a size-relative tolerance merge.
func columnStarts(raw *bridge.RawPageData, area geometry.Rect, p Params) []float32 {
	var starts []float32
	add := func(x, tol float32) {
		for _, s := range starts {
			if geometry.Abs32(s-x) <= tol {
				return
			}
		}
		if len(starts) < p.MaxDividerColumns {
			starts = append(starts, x)
		}
	}
	for _, line := range raw.Lines {
		if c := line.BBox.Center(); c.Y < area.Y0 || c.Y > area.Y1 || line.BBox.X1 < area.X0 || line.BBox.X0 > area.X1 {
			continue
		}
		var prevX1 float32
		seen := false
		for _, ch := range raw.LineChars(line) {
			if ch.Codepoint == 0 || unicode.IsSpace(ch.Codepoint) {
				continue
			}
			tol := geometry.Max32(ch.Size*0.5, 3)
			if !seen || ch.BBox.X0-prevX1 > geometry.Max32(2*tol, p.MinColumnGap) {
				add(ch.BBox.X0, tol)
			}
			prevX1, seen = ch.BBox.X1, true
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}
