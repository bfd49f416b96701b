package table

import (
	"math"
	"sort"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/spatial"
)

// DetectGrid recovers fully or partially ruled tables from rulings. It
// returns nil when nothing plausible is found.
func DetectGrid(edges []geometry.Edge, page geometry.Rect, p Params) *TableArray {
	pw, ph := float64(page.Width()), float64(page.Height())
	if len(edges) == 0 || pw <= 0 || ph <= 0 {
		return nil
	}
	hEdges, vEdges := SplitEdges(edges)
	snapTol, joinTol := pw*p.SnapTolRatio, pw*p.JoinTolRatio
	hEdges = MergeEdges(hEdges, snapTol, joinTol)
	vEdges = MergeEdges(vEdges, snapTol, joinTol)
	Logger.Debug("merged edges", "hEdges", len(hEdges), "vEdges", len(vEdges))
	if len(hEdges) < p.MinGridEdges || len(vEdges) < p.MinGridEdges {
		return nil
	}

	eps := math.Hypot(pw, ph) * p.IntersectRatio
	points, ok := findIntersections(vEdges, hEdges, eps, p.MaxIntersections)
	if !ok {
		Logger.Debug("grid aborted: too many intersections", "limit", p.MaxIntersections)
		return nil
	}
	Logger.Debug("found intersection points", "count", points.Len())
	if points.Len() < 4 {
		return nil
	}

	cells := findCells(buildLattice(points.Points(), eps), points, hEdges, vEdges, page, eps, p)
	cells = clipToPage(cells, page, p.MaxPageOverflow)
	Logger.Debug("found cells", "count", len(cells))
	if len(cells) == 0 {
		return nil
	}
	cells = deduplicateCells(cells, p)
	return groupCellsIntoTables(cells, page, p)
}

func findIntersections(vEdges, hEdges []geometry.Edge, eps float64, limit int) (*spatial.Hash, bool) {
	hash := spatial.New()
	for _, v := range vEdges {
		for _, h := range hEdges {
			if h.Pos() < v.Start()-eps || h.Pos() > v.End()+eps || v.Pos() < h.Start()-eps || v.Pos() > h.End()+eps {
				continue
			}
			hash.Insert(spatial.Point{X: v.Pos(), Y: h.Pos()})
			if limit > 0 && hash.Len() > limit {
				return nil, false
			}
		}
	}
	return hash, true
}

// lattice holds intersection points grouped into rows of equal y, each row
// ordered by x.
type lattice struct{ rows [][]spatial.Point }

func buildLattice(points []spatial.Point, eps float64) lattice {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})
	var lat lattice
	for i := 0; i < len(points); {
		j := i + 1
		for j < len(points) && points[j].Y-points[i].Y <= eps {
			j++
		}
		row := append([]spatial.Point(nil), points[i:j]...)
		sort.SliceStable(row, func(a, b int) bool { return row[a].X < row[b].X })
		lat.rows = append(lat.rows, row)
		i = j
	}
	return lat
}

// below returns the nearest point under p1 in the same column.
func (l lattice) below(ri int, p1 spatial.Point, eps, minSize float64) (spatial.Point, bool) {
	for rj := ri + 1; rj < len(l.rows); rj++ {
		if len(l.rows[rj]) == 0 || l.rows[rj][0].Y-p1.Y <= minSize {
			continue
		}
		for _, q := range l.rows[rj] {
			if math.Abs(q.X-p1.X) <= eps {
				return q, true
			}
		}
	}
	return spatial.Point{}, false
}

// findCells walks every top-left corner. The lower neighbour must be joined by
// a vertical ruling; the right side is the first point along the top ruling
// that has its own vertical ruling down to the lower neighbour's row, so a
// broken interior ruling widens the cell instead of losing it. A missing
// fourth corner still yields a cell when AcceptWithoutFourthCorner is set.
func findCells(lat lattice, points *spatial.Hash, hEdges, vEdges []geometry.Edge, page geometry.Rect, eps float64, p Params) []geometry.Rect {
	pw, ph := float64(page.Width()), float64(page.Height())
	minSize := math.Min(pw, ph) * float64(p.MinCellRatio)
	maxW, maxH := pw*float64(p.MaxCellWRatio), ph*float64(p.MaxCellHRatio)
	var cells []geometry.Rect
	fallbacks := 0
	for ri, row := range lat.rows {
		for ci, p1 := range row {
			p3, ok := lat.below(ri, p1, eps, minSize)
			if !ok || !hasEdge(vEdges, p1.X, p1.Y, p3.Y, eps) {
				continue
			}
			for _, p2 := range row[ci+1:] {
				if p2.X-p1.X <= minSize {
					continue
				}
				if !hasEdge(hEdges, p1.Y, p1.X, p2.X, eps) {
					break
				}
				if !hasEdge(vEdges, p2.X, p1.Y, p3.Y, eps) {
					continue
				}
				_, exact := points.Near(p2.X, p3.Y, eps)
				if !exact && !p.AcceptWithoutFourthCorner {
					break
				}
				w, h := p2.X-p1.X, p3.Y-p1.Y
				if w > minSize && w < maxW && h > minSize && h < maxH {
					cells = append(cells, geometry.Rect{X0: float32(p1.X), Y0: float32(p1.Y), X1: float32(p2.X), Y1: float32(p3.Y)})
					if !exact {
						fallbacks++
					}
				}
				break
			}
		}
	}
	if fallbacks > 0 {
		Logger.Debug("cells without fourth corner", "count", fallbacks)
	}
	return cells
}

// clipToPage drops cells leaving the page by more than maxOut and clips the rest.
func clipToPage(cells []geometry.Rect, page geometry.Rect, maxOut float32) []geometry.Rect {
	valid := cells[:0]
	for _, cell := range cells {
		out := geometry.Max32(
			geometry.Max32(page.Y0-cell.Y0, cell.Y1-page.Y1),
			geometry.Max32(page.X0-cell.X0, cell.X1-page.X1),
		)
		if out > maxOut {
			continue
		}
		if out > 0 {
			if cell = cell.Intersect(page); cell.IsEmpty() {
				continue
			}
		}
		valid = append(valid, cell)
	}
	return valid
}

// deduplicateCells suppresses overlapping candidates: near-containment or a
// high IoU discards the larger of the pair.
func deduplicateCells(cells []geometry.Rect, p Params) []geometry.Rect {
	if len(cells) <= 1 {
		return cells
	}
	keep := make([]bool, len(cells))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(cells); i++ {
		if !keep[i] {
			continue
		}
		areaI := cells[i].Area()
		for j := i + 1; j < len(cells); j++ {
			if !keep[j] {
				continue
			}
			areaJ, inter := cells[j].Area(), cells[i].IntersectArea(cells[j])
			if inter == 0 {
				continue
			}
			larger := j
			if areaI >= areaJ {
				larger = i
			}
			if inter/geometry.Min32(areaI, areaJ) > p.ContainmentCutoff || cells[i].IoU(cells[j]) > p.IoUCutoff {
				keep[larger] = false
				if larger == i {
					break
				}
			}
		}
	}
	result := make([]geometry.Rect, 0, len(cells))
	for i, k := range keep {
		if k {
			result = append(result, cells[i])
		}
	}
	return result
}

// groupCellsIntoTables forms rows from cells sharing a top edge and starts a
// new table wherever the gap to the previous row exceeds the split gap.
func groupCellsIntoTables(cells []geometry.Rect, page geometry.Rect, p Params) *TableArray {
	if len(cells) == 0 {
		return nil
	}
	sorted := append([]geometry.Rect(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := coordToInt(float64(sorted[i].Y0)), coordToInt(float64(sorted[j].Y0))
		if yi != yj {
			return yi < yj
		}
		return sorted[i].X0 < sorted[j].X0
	})

	splitGap, yTol := page.Height()*p.SplitGapRatio, page.Height()*p.RowYTolRatio
	// Rows shorter than the tolerance would otherwise fold into each other.
	for _, c := range sorted {
		yTol = geometry.Min32(yTol, c.Height()/2)
	}
	var groups [][][]geometry.Rect
	var prevBottom float32
	for i := 0; i < len(sorted); {
		rowY0 := sorted[i].Y0
		j := i + 1
		for j < len(sorted) && sorted[j].Y0-rowY0 <= yTol {
			j++
		}
		row := append([]geometry.Rect(nil), sorted[i:j]...)
		sort.SliceStable(row, func(a, b int) bool { return row[a].X0 < row[b].X0 })
		if len(groups) == 0 || rowY0-prevBottom > splitGap {
			groups = append(groups, nil)
			prevBottom = rowY0
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], row)
		for _, c := range row {
			prevBottom = geometry.Max32(prevBottom, c.Y1)
		}
		i = j
	}

	tables := &TableArray{}
	for _, rows := range groups {
		t, missing := normalizeColumns(rows)
		if !validate(&t, page, missing, p) {
			continue
		}
		t.Strategy = "grid"
		tables.Tables = append(tables.Tables, t)
	}
	Logger.Debug("grid tables", "candidates", len(groups), "accepted", len(tables.Tables))
	if len(tables.Tables) == 0 {
		return nil
	}
	return tables
}

// normalizeColumns maps each cell to the column of the widest row whose x0 is
// nearest, so every row ends up with the same cell count. It also returns how
// many rows were short before mapping.
func normalizeColumns(rows [][]geometry.Rect) (Table, int) {
	ref := 0
	for i, r := range rows {
		if len(r) > len(rows[ref]) {
			ref = i
		}
	}
	refX := make([]float32, len(rows[ref]))
	for i, c := range rows[ref] {
		refX[i] = c.X0
	}

	var t Table
	missing := 0
	for _, r := range rows {
		if len(r) < len(refX) {
			missing++
		}
		cells := make([]Cell, len(refX))
		for _, c := range r {
			col := nearestColumn(refX, c.X0)
			if !cells[col].BBox.IsEmpty() {
				Logger.Debug("cell collides in column", "col", col, "x0", c.X0)
				continue
			}
			cells[col].BBox = c
		}
		t.Rows = append(t.Rows, Row{Cells: cells})
	}
	pruneEmpty(&t)
	t.updateBounds()
	return t, missing
}

func nearestColumn(refX []float32, x float32) int {
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, rx := range refX {
		if d := geometry.Abs32(x - rx); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// pruneEmpty drops rows and columns that hold no cell at all.
func pruneEmpty(t *Table) {
	rows := t.Rows[:0]
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			if !c.BBox.IsEmpty() {
				rows = append(rows, row)
				break
			}
		}
	}
	t.Rows = rows
	if len(t.Rows) == 0 {
		return
	}
	cols := t.ColCount()
	keep := make([]bool, cols)
	for _, row := range t.Rows {
		for c := 0; c < cols && c < len(row.Cells); c++ {
			if !row.Cells[c].BBox.IsEmpty() {
				keep[c] = true
			}
		}
	}
	for ri := range t.Rows {
		old := t.Rows[ri].Cells
		cells := make([]Cell, 0, cols)
		for c := 0; c < cols; c++ {
			if !keep[c] {
				continue
			}
			if c < len(old) {
				cells = append(cells, old[c])
			} else {
				cells = append(cells, Cell{})
			}
		}
		t.Rows[ri].Cells = cells
	}
}
