package bridge

import (
	"fmt"
	"io"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
	// ascent is the share of the font size above the baseline.
	ascent = 0.8
)

// PDF decodes pages with ledongthuc/pdf. Glyph boxes are flipped to a
// top-left origin and grouped into lines and blocks geometrically.
type PDF struct {
	path   string
	file   io.Closer
	reader *lpdf.Reader
}

func OpenPDF(path string) (*PDF, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	Logger.Debug("opened pdf", "path", path, "pages", r.NumPage())
	return &PDF{path: path, file: f, reader: r}, nil
}

// PageCount validates the file with pdfcpu and returns its page count.
func PageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("validate %s: %w", path, err)
	}
	return ctx.PageCount, nil
}

func (d *PDF) NumPages() int { return d.reader.NumPage() }

func (d *PDF) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *PDF) Page(n int) (page *RawPageData, err error) {
	if n < 1 || n > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d: %w", n, ErrPageRange)
	}
	// The decoder panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("decode page %d: %v", n, r)
		}
	}()
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", n)
	}
	box := mediaBox(p)
	content := p.Content()

	flip := func(x, y float64) (float32, float32) {
		return float32(x - box.X0), float32(box.Y1 - y)
	}
	bounds := geometry.Rect{X1: float32(box.X1 - box.X0), Y1: float32(box.Y1 - box.Y0)}
	page = &RawPageData{PageNumber: n, PageBounds: bounds}

	chars := make([]RawChar, 0, len(content.Text))
	for _, t := range content.Text {
		chars = appendGlyphs(chars, t, flip)
	}
	page.Chars, page.Lines, page.Blocks = groupGlyphs(chars)

	boxes := make([]geometry.Rect, 0, len(content.Rect))
	for _, r := range content.Rect {
		x0, y1 := flip(r.Min.X, r.Min.Y)
		x1, y0 := flip(r.Max.X, r.Max.Y)
		boxes = append(boxes, geometry.Rect{X0: geometry.Min32(x0, x1), Y0: geometry.Min32(y0, y1), X1: geometry.Max32(x0, x1), Y1: geometry.Max32(y0, y1)})
	}
	page.Edges = CaptureEdges(boxes, bounds)
	page.Links = linkAnnotations(p, flip)

	Logger.Debug("decoded page", "page", n, "chars", len(page.Chars), "lines", len(page.Lines), "edges", len(page.Edges), "links", len(page.Links))
	return page, nil
}

type pdfBox struct{ X0, Y0, X1, Y1 float64 }

func mediaBox(p lpdf.Page) pdfBox {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.Kind() == lpdf.Array && mb.Len() == 4 {
			b := pdfBox{mb.Index(0).Float64(), mb.Index(1).Float64(), mb.Index(2).Float64(), mb.Index(3).Float64()}
			if b.X1 > b.X0 && b.Y1 > b.Y0 {
				return b
			}
		}
	}
	return pdfBox{X1: defaultPageWidth, Y1: defaultPageHeight}
}

type fontTraits struct{ bold, italic, mono bool }

func traitsOf(font string) fontTraits {
	name := strings.ToLower(font)
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	has := func(parts ...string) bool {
		for _, p := range parts {
			if strings.Contains(name, p) {
				return true
			}
		}
		return false
	}
	return fontTraits{
		bold:   has("bold", "black", "heavy", "semibold", "demi"),
		italic: has("italic", "oblique"),
		mono:   has("courier", "mono", "consol", "menlo", "typewriter"),
	}
}

func appendGlyphs(chars []RawChar, t lpdf.Text, flip func(x, y float64) (float32, float32)) []RawChar {
	runes := []rune(t.S)
	if len(runes) == 0 || t.FontSize <= 0 {
		return chars
	}
	traits := traitsOf(t.Font)
	size := float32(t.FontSize)
	width := t.W / float64(len(runes))
	x := t.X
	for _, r := range runes {
		x0, top := flip(x, t.Y+t.FontSize*ascent)
		chars = append(chars, RawChar{
			Codepoint:    r,
			Size:         size,
			BBox:         geometry.Rect{X0: x0, Y0: top, X1: x0 + float32(width), Y1: top + size},
			IsBold:       traits.bold,
			IsItalic:     traits.italic,
			IsMonospaced: traits.mono,
		})
		x += width
	}
	return chars
}

// groupGlyphs cuts the glyph stream into lines wherever the baseline moves or
// the pen jumps backwards, inserting a space at word-sized gaps, then groups
// consecutive vertically adjacent lines into blocks.
func groupGlyphs(glyphs []RawChar) ([]RawChar, []RawLine, []RawBlock) {
	var chars []RawChar
	var lines []RawLine
	for _, g := range glyphs {
		if len(lines) > 0 {
			cur := &lines[len(lines)-1]
			prev := chars[len(chars)-1]
			sameLine := geometry.Abs32(g.BBox.Y1-prev.BBox.Y1) <= 0.5*geometry.Max32(g.Size, prev.Size) && g.BBox.X0 >= prev.BBox.X0-0.5*g.Size
			if sameLine {
				if gap := g.BBox.X0 - prev.BBox.X1; gap > 0.25*g.Size && prev.Codepoint != ' ' && g.Codepoint != ' ' {
					chars = append(chars, RawChar{Codepoint: ' ', Size: g.Size, BBox: geometry.Rect{X0: prev.BBox.X1, Y0: g.BBox.Y0, X1: g.BBox.X0, Y1: g.BBox.Y1}})
					cur.CharCount++
				}
				chars = append(chars, g)
				cur.CharCount++
				cur.BBox = cur.BBox.Union(g.BBox)
				continue
			}
		}
		lines = append(lines, RawLine{BBox: g.BBox, CharStart: len(chars), CharCount: 1})
		chars = append(chars, g)
	}
	lines = trimBlankLines(chars, lines)

	var blocks []RawBlock
	for i, line := range lines {
		if len(blocks) > 0 {
			b := &blocks[len(blocks)-1]
			prev := lines[i-1]
			size := prev.BBox.Height()
			overlapX := geometry.Min32(b.BBox.X1, line.BBox.X1) - geometry.Max32(b.BBox.X0, line.BBox.X0)
			if gap := line.BBox.Y0 - prev.BBox.Y1; gap >= -0.5*size && gap <= 0.8*size && overlapX > 0 {
				b.LineCount++
				b.BBox = b.BBox.Union(line.BBox)
				continue
			}
		}
		blocks = append(blocks, RawBlock{Type: BlockText, BBox: line.BBox, LineStart: i, LineCount: 1})
	}
	return chars, lines, blocks
}

func trimBlankLines(chars []RawChar, lines []RawLine) []RawLine {
	kept := lines[:0]
	for _, l := range lines {
		for _, c := range chars[l.CharStart : l.CharStart+l.CharCount] {
			if c.Codepoint != ' ' {
				kept = append(kept, l)
				break
			}
		}
	}
	return kept
}

func linkAnnotations(p lpdf.Page, flip func(x, y float64) (float32, float32)) []RawLink {
	annots := p.V.Key("Annots")
	if annots.Kind() != lpdf.Array {
		return nil
	}
	var links []RawLink
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Key("Subtype").Name() != "Link" {
			continue
		}
		uri := a.Key("A").Key("URI").Text()
		rect := a.Key("Rect")
		if uri == "" || rect.Kind() != lpdf.Array || rect.Len() != 4 {
			continue
		}
		x0, y0 := flip(rect.Index(0).Float64(), rect.Index(1).Float64())
		x1, y1 := flip(rect.Index(2).Float64(), rect.Index(3).Float64())
		r := geometry.Rect{X0: geometry.Min32(x0, x1), Y0: geometry.Min32(y0, y1), X1: geometry.Max32(x0, x1), Y1: geometry.Max32(y0, y1)}
		if math.IsNaN(float64(r.X0)) || r.IsEmpty() {
			continue
		}
		links = append(links, RawLink{Rect: r, URI: uri})
	}
	return links
}
