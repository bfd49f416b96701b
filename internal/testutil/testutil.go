// Package testutil builds synthetic raw pages for tests. Glyphs are laid out
// on a fixed advance of half the font size so positions are easy to reason
// about.
package testutil

import (
	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

// Letter is US Letter in points.
var Letter = geometry.Rect{X1: 612, Y1: 792}

// Advance is the glyph width as a fraction of the font size.
const Advance = 0.5

type CharOpt func(*bridge.RawChar)

var (
	Bold      CharOpt = func(c *bridge.RawChar) { c.IsBold = true }
	Italic    CharOpt = func(c *bridge.RawChar) { c.IsItalic = true }
	Mono      CharOpt = func(c *bridge.RawChar) { c.IsMonospaced = true }
	Strikeout CharOpt = func(c *bridge.RawChar) { c.IsStrikeout = true }
)

// Segment is a run of text starting at X on a shared line. Size overrides
// the line size when set; Rise lifts the glyphs (negative lowers them).
type Segment struct {
	X    float32
	Text string
	Opts []CharOpt
	Size float32
	Rise float32
}

type PageBuilder struct {
	page *bridge.RawPageData
	open int
}

func NewPage(bounds geometry.Rect) *PageBuilder {
	return &PageBuilder{page: &bridge.RawPageData{PageNumber: 1, PageBounds: bounds}, open: -1}
}

func (b *PageBuilder) Number(n int) *PageBuilder {
	b.page.PageNumber = n
	return b
}

// Block starts a new text block; following lines join it until the next call.
func (b *PageBuilder) Block() *PageBuilder {
	b.page.Blocks = append(b.page.Blocks, bridge.RawBlock{
		Type:      bridge.BlockText,
		BBox:      geometry.Empty,
		LineStart: len(b.page.Lines),
	})
	b.open = len(b.page.Blocks) - 1
	return b
}

// Line appends one line whose glyph tops sit at y.
func (b *PageBuilder) Line(y, size float32, segs ...Segment) *PageBuilder {
	if b.open < 0 {
		b.Block()
	}
	line := bridge.RawLine{BBox: geometry.Empty, CharStart: len(b.page.Chars)}
	for _, s := range segs {
		x, sz, top := s.X, size, y-s.Rise
		if s.Size > 0 {
			sz = s.Size
		}
		for _, r := range s.Text {
			ch := bridge.RawChar{
				Codepoint: r,
				Size:      sz,
				BBox:      geometry.Rect{X0: x, Y0: top, X1: x + sz*Advance, Y1: top + sz},
			}
			for _, o := range s.Opts {
				o(&ch)
			}
			b.page.Chars = append(b.page.Chars, ch)
			line.BBox = line.BBox.Union(ch.BBox)
			x += sz * Advance
		}
	}
	line.CharCount = len(b.page.Chars) - line.CharStart
	b.page.Lines = append(b.page.Lines, line)
	blk := &b.page.Blocks[b.open]
	blk.LineCount++
	blk.BBox = blk.BBox.Union(line.BBox)
	return b
}

// Text appends a single-segment line.
func (b *PageBuilder) Text(x, y, size float32, s string, opts ...CharOpt) *PageBuilder {
	return b.Line(y, size, Segment{X: x, Text: s, Opts: opts})
}

// Paragraph starts a block and stacks lines at the given leading.
func (b *PageBuilder) Paragraph(x, y, size, leading float32, lines ...string) *PageBuilder {
	b.Block()
	for i, l := range lines {
		b.Text(x, y+float32(i)*leading, size, l)
	}
	return b
}

func (b *PageBuilder) HLine(y, x0, x1 float64) *PageBuilder {
	b.page.Edges = append(b.page.Edges, geometry.Edge{X0: x0, Y0: y, X1: x1, Y1: y, Orientation: geometry.Horizontal})
	return b
}

func (b *PageBuilder) VLine(x, y0, y1 float64) *PageBuilder {
	b.page.Edges = append(b.page.Edges, geometry.Edge{X0: x, Y0: y0, X1: x, Y1: y1, Orientation: geometry.Vertical})
	return b
}

// Grid draws a fully ruled lattice through the given coordinates.
func (b *PageBuilder) Grid(xs, ys []float64) *PageBuilder {
	for _, y := range ys {
		b.HLine(y, xs[0], xs[len(xs)-1])
	}
	for _, x := range xs {
		b.VLine(x, ys[0], ys[len(ys)-1])
	}
	return b
}

func (b *PageBuilder) Link(r geometry.Rect, uri string) *PageBuilder {
	b.page.Links = append(b.page.Links, bridge.RawLink{Rect: r, URI: uri})
	return b
}

func (b *PageBuilder) Build() *bridge.RawPageData { return b.page }
