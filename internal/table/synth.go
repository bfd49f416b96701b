package table

import (
	"sort"
	"unicode"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

type textRun struct {
	rect    geometry.Rect
	visible bool
}

type synthLine struct {
	rect geometry.Rect
	runs []textRun
}

type synthRow struct{ left, right geometry.Rect }

func (r synthRow) full() bool { return !r.left.IsEmpty() && !r.right.IsEmpty() }

// splitRuns cuts a line at gaps wider than max(RunGap, 2*size). Lines with
// more than two runs are not label/value rows.
func splitRuns(chars []bridge.RawChar, p Params) ([]textRun, bool) {
	var runs []textRun
	var prevX1 float32
	for _, ch := range chars {
		if ch.Codepoint == 0 || unicode.IsSpace(ch.Codepoint) {
			continue
		}
		if len(runs) == 0 || ch.BBox.X0-prevX1 > geometry.Max32(p.RunGap, 2*ch.Size) {
			if len(runs) == 2 {
				return nil, false
			}
			runs = append(runs, textRun{rect: geometry.Empty})
		}
		r := &runs[len(runs)-1]
		r.rect = r.rect.Union(ch.BBox)
		if ch.Codepoint >= 33 && ch.Codepoint <= 126 {
			r.visible = true
		}
		prevX1 = ch.BBox.X1
	}
	return runs, len(runs) > 0
}

// Synthesize recovers an unruled two-column label/value table from text
// geometry alone. Two-column prose is rejected by requiring the right column
// to be clearly wider than the left.
func Synthesize(raw *bridge.RawPageData, bodySize float32, p Params) *TableArray {
	if bodySize <= 0 {
		bodySize = 12
	}
	var lines []synthLine
	content := geometry.Empty
	for _, l := range raw.Lines {
		content = content.Union(l.BBox)
		runs, ok := splitRuns(raw.LineChars(l), p)
		if !ok {
			continue
		}
		sl := synthLine{rect: geometry.Empty, runs: runs}
		for _, r := range runs {
			sl.rect = sl.rect.Union(r.rect)
		}
		lines = append(lines, sl)
	}
	if len(lines) < p.MinSynthRows || content.IsEmpty() {
		return nil
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].rect.Y0 != lines[j].rect.Y0 {
			return lines[i].rect.Y0 < lines[j].rect.Y0
		}
		return lines[i].rect.X0 < lines[j].rect.X0
	})

	contentW := content.Width()
	splitTol := geometry.Max32(p.MinSplitTol, p.SplitTolRatio*contentW)
	bandTol := geometry.Max32(4, 0.8*bodySize)
	minSep := geometry.Max32(p.MinColumnSep, p.ColumnSepRatio*contentW)
	bands := groupBands(lines, bandTol)

	var splits, anchors []float32
	for _, band := range bands {
		for _, l := range band {
			if len(l.runs) == 2 && l.runs[0].visible && l.runs[1].visible {
				splits = append(splits, (l.runs[0].rect.X1+l.runs[1].rect.X0)/2)
				anchors = append(anchors, l.runs[1].rect.X0)
			}
		}
		if len(band) == 2 && len(band[0].runs) == 1 && len(band[1].runs) == 1 {
			left, right := band[0].rect, band[1].rect
			if right.X0-left.X1 >= minSep {
				splits = append(splits, (left.X1+right.X0)/2)
				anchors = append(anchors, right.X0)
			}
		}
	}
	if len(splits) < p.MinSynthRows {
		return nil
	}
	split, anchor := geometry.Median32(splits), geometry.Median32(anchors)

	groups := buildSynthGroups(bands, split, anchor, splitTol, bodySize, p)
	best := -1
	for i, g := range groups {
		full := 0
		for _, r := range g {
			if r.full() {
				full++
			}
		}
		if len(g) >= p.MinSynthRows && full >= p.MinFullRows && (best < 0 || len(g) > len(groups[best])) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	rows := groups[best]

	left, right := geometry.Empty, geometry.Empty
	for _, r := range rows {
		left, right = left.Union(r.left), right.Union(r.right)
	}
	if right.Width() < p.RightWidthRatio*left.Width() {
		Logger.Debug("synthesized table rejected: right column too narrow", "left", left.Width(), "right", right.Width())
		return nil
	}

	x0, x1 := geometry.Min32(left.X0, split), geometry.Max32(right.X1, split)
	t := Table{Strategy: "text"}
	for _, r := range rows {
		band := r.left.Union(r.right)
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{BBox: geometry.Rect{X0: x0, Y0: band.Y0, X1: split, Y1: band.Y1}},
			{BBox: geometry.Rect{X0: split, Y0: band.Y0, X1: x1, Y1: band.Y1}},
		}})
	}
	t.updateBounds()
	Logger.Debug("synthesized table", "rows", len(t.Rows), "split", split)
	return &TableArray{Tables: []Table{t}}
}

// groupBands collects lines whose vertical centers lie within tol of the
// first line of the band.
func groupBands(lines []synthLine, tol float32) [][]synthLine {
	var bands [][]synthLine
	for i := 0; i < len(lines); {
		cy := lines[i].rect.Center().Y
		j := i + 1
		for j < len(lines) && geometry.Abs32(lines[j].rect.Center().Y-cy) <= tol {
			j++
		}
		band := append([]synthLine(nil), lines[i:j]...)
		sort.SliceStable(band, func(a, b int) bool { return band[a].rect.X0 < band[b].rect.X0 })
		bands = append(bands, band)
		i = j
	}
	return bands
}

func bandRect(band []synthLine) geometry.Rect {
	r := geometry.Empty
	for _, l := range band {
		r = r.Union(l.rect)
	}
	return r
}

// rowFromBand reports whether a band starts a new row: a two-run line split
// near the inferred split, or a left and a right line straddling it.
func rowFromBand(band []synthLine, split, tol float32) (synthRow, bool) {
	for _, l := range band {
		if len(l.runs) == 2 && geometry.Abs32((l.runs[0].rect.X1+l.runs[1].rect.X0)/2-split) <= tol {
			return synthRow{left: l.runs[0].rect, right: l.runs[1].rect}, true
		}
	}
	row := synthRow{left: geometry.Empty, right: geometry.Empty}
	for _, l := range band {
		if len(l.runs) != 1 {
			continue
		}
		switch {
		case l.rect.X1 < split-0.1*tol && row.left.IsEmpty():
			row.left = l.rect
		case l.rect.X0 > split+0.1*tol && row.right.IsEmpty():
			row.right = l.rect
		}
	}
	return row, row.full()
}

func buildSynthGroups(bands [][]synthLine, split, anchor, tol, bodySize float32, p Params) [][]synthRow {
	var groups [][]synthRow
	var cur []synthRow
	var lastY1 float32
	closeGroup := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
	}
	groupGap := geometry.Max32(p.MinGroupGap, 3*bodySize)
	for _, band := range bands {
		br := bandRect(band)
		if len(cur) > 0 && br.Y0-lastY1 > groupGap {
			closeGroup()
		}
		if row, ok := rowFromBand(band, split, tol); ok {
			cur = append(cur, row)
			lastY1 = br.Y1
			continue
		}
		if len(cur) > 0 && len(band) == 1 && len(band[0].runs) == 1 && br.Y0-lastY1 <= 1.5*bodySize {
			last := &cur[len(cur)-1]
			switch {
			case br.X0 < split && br.X1 < split+0.1*tol:
				last.left = last.left.Union(br)
				lastY1 = br.Y1
				continue
			case br.X0 >= split+0.25*tol && geometry.Abs32(br.X0-anchor) <= tol:
				last.right = last.right.Union(br)
				lastY1 = br.Y1
				continue
			}
		}
		closeGroup()
	}
	closeGroup()
	return groups
}
