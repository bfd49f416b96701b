package table

import (
	"math"
	"sort"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

// cellMargin is the slack around a cell when collecting its glyphs.
const cellMargin = 2

// glyphIndex is an R-tree over the page glyphs keyed by char index.
type glyphIndex struct {
	chars []bridge.RawChar
	tree  rtree.RTreeG[int]
}

func newGlyphIndex(chars []bridge.RawChar) *glyphIndex {
	g := &glyphIndex{chars: chars}
	for i, ch := range chars {
		if ch.Codepoint == 0 || ch.BBox.IsEmpty() {
			continue
		}
		lo, hi := ch.BBox.Bounds()
		g.tree.Insert(lo, hi, i)
	}
	return g
}

// touching returns glyphs whose box meets r grown by margin, in stream order.
func (g *glyphIndex) touching(r geometry.Rect, margin float32) []int {
	lo, hi := r.Expand(margin).Bounds()
	var hits []int
	g.tree.Search(lo, hi, func(_, _ [2]float64, i int) bool {
		hits = append(hits, i)
		return true
	})
	sort.Ints(hits)
	return hits
}

// centered returns glyphs whose center lies in r grown by margin, in stream order.
func (g *glyphIndex) centered(r geometry.Rect, margin float32) []int {
	hits := g.touching(r, margin)
	kept := hits[:0]
	for _, i := range hits {
		if r.ContainsPoint(g.chars[i].BBox.Center(), margin) {
			kept = append(kept, i)
		}
	}
	return kept
}

// shrinkCellsToContent tightens each cell to the glyphs it holds.
func shrinkCellsToContent(tables *TableArray, idx *glyphIndex) {
	for ti := range tables.Tables {
		tbl := &tables.Tables[ti]
		for ri := range tbl.Rows {
			for ci := range tbl.Rows[ri].Cells {
				cell := &tbl.Rows[ri].Cells[ci]
				if cell.BBox.IsEmpty() {
					continue
				}
				content := geometry.Empty
				for _, i := range idx.touching(cell.BBox, cellMargin) {
					content = content.Union(idx.chars[i].BBox)
				}
				if content.IsEmpty() {
					continue
				}
				shrunk := geometry.Rect{
					X0: geometry.Max32(cell.BBox.X0, content.X0),
					Y0: geometry.Max32(cell.BBox.Y0, content.Y0),
					X1: geometry.Min32(cell.BBox.X1, content.X1),
					Y1: geometry.Min32(cell.BBox.Y1, content.Y1),
				}
				if !shrunk.IsEmpty() {
					cell.BBox = shrunk
				}
			}
		}
	}
}

func isPunctOrDigit(r rune) bool {
	return r == '.' || r == ',' || r == '$' || r == '%' || r == ':' || r == ';' || r == '\'' || r == '"' || r == '-' || r == '(' || r == ')' || (r >= '0' && r <= '9')
}

// textInRect joins the glyphs centered in rect, inserting a space wherever the
// pen jumps by more than a size-relative gap. Punctuation and digits get a
// wider allowance since their advance widths are unreliable. It also reports
// the mean glyph size and whether most glyphs are bold.
func (g *glyphIndex) textInRect(rect geometry.Rect) (string, float32, bool) {
	var buf strings.Builder
	var prevX1, prevY0, sizeSum float32
	var prevR rune
	count, bold := 0, 0
	for _, i := range g.centered(rect, cellMargin) {
		ch := &g.chars[i]
		if ch.Codepoint == 0xFEFF {
			continue
		}
		count++
		sizeSum += ch.Size
		if ch.IsBold {
			bold++
		}
		if buf.Len() > 0 {
			yDiff, xGap := math.Abs(float64(ch.BBox.Y0-prevY0)), float64(ch.BBox.X0-prevX1)
			xTol, yTol := math.Max(float64(ch.Size*0.5), 3.0), math.Max(float64(ch.Size*0.3), 2.0)
			if isPunctOrDigit(ch.Codepoint) || isPunctOrDigit(prevR) {
				xTol, yTol = math.Max(xTol, 8.0), math.Max(yTol, 10.0)
			}
			if yDiff > yTol || xGap > xTol {
				buf.WriteByte(' ')
			}
		}
		buf.WriteRune(ch.Codepoint)
		prevX1, prevY0, prevR = ch.BBox.X1, ch.BBox.Y0, ch.Codepoint
	}
	if count == 0 {
		return "", 0, false
	}
	return text.CollapseWhitespace(text.NormalizeGlyphs(buf.String())), sizeSum / float32(count), bold*2 > count
}

func fillCellText(tables *TableArray, idx *glyphIndex) {
	for ti := range tables.Tables {
		for ri := range tables.Tables[ti].Rows {
			cells := tables.Tables[ti].Rows[ri].Cells
			for ci := range cells {
				if !cells[ci].BBox.IsEmpty() {
					cells[ci].Text, cells[ci].FontSize, cells[ci].Bold = idx.textInRect(cells[ci].BBox)
				}
			}
		}
	}
}
