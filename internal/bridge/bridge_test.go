package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

func samplePage(num int) *RawPageData {
	return &RawPageData{
		PageNumber: num,
		PageBounds: geometry.Rect{X1: 612, Y1: 792},
		Blocks:     []RawBlock{{Type: BlockText, BBox: geometry.Rect{X0: 72, Y0: 100, X1: 92, Y1: 110}, LineCount: 1}},
		Lines:      []RawLine{{BBox: geometry.Rect{X0: 72, Y0: 100, X1: 92, Y1: 110}, CharCount: 2}},
		Chars: []RawChar{
			{Codepoint: 'H', Size: 10, BBox: geometry.Rect{X0: 72, Y0: 100, X1: 82, Y1: 110}, IsBold: true},
			{Codepoint: 'é', Size: 10, BBox: geometry.Rect{X0: 82, Y0: 100, X1: 92, Y1: 110}, IsStrikeout: true},
		},
		Edges: []geometry.Edge{{X0: 50, Y0: 300, X1: 500, Y1: 300, Orientation: geometry.Horizontal}},
		Links: []RawLink{{Rect: geometry.Rect{X0: 72, Y0: 100, X1: 92, Y1: 110}, URI: "https://example.com"}},
	}
}

func TestRawPageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{2, 1, 10} {
		_, err := WriteRawPage(dir, samplePage(n))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	doc, err := OpenRawDir(dir)
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 3, doc.NumPages())

	var nums []int
	for i := 1; i <= doc.NumPages(); i++ {
		p, err := doc.Page(i)
		require.NoError(t, err)
		nums = append(nums, p.PageNumber)
	}
	assert.Equal(t, []int{1, 2, 10}, nums)

	got, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, samplePage(1), got)
}

func TestRawDirErrors(t *testing.T) {
	_, err := OpenRawDir(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoPages))

	dir := t.TempDir()
	_, err = WriteRawPage(dir, samplePage(1))
	require.NoError(t, err)
	doc, err := OpenRawDir(dir)
	require.NoError(t, err)
	_, err = doc.Page(2)
	assert.True(t, errors.Is(err, ErrPageRange))
}

func TestEdgesFromRect(t *testing.T) {
	tests := []struct {
		name  string
		rect  geometry.Rect
		want  int
		orien geometry.Orientation
	}{
		{"thin horizontal", geometry.Rect{X0: 10, Y0: 100, X1: 300, Y1: 101}, 1, geometry.Horizontal},
		{"thin vertical", geometry.Rect{X0: 10, Y0: 100, X1: 11, Y1: 300}, 1, geometry.Vertical},
		{"filled box", geometry.Rect{X0: 10, Y0: 100, X1: 200, Y1: 150}, 4, 0},
		{"dot", geometry.Rect{X0: 10, Y0: 10, X1: 11, Y1: 11}, 0, 0},
	}

	for _, tc := range tests {
		edges := EdgesFromRect(tc.rect)
		if len(edges) != tc.want {
			t.Errorf("%s: got %d edges, want %d", tc.name, len(edges), tc.want)
			continue
		}
		if tc.want == 1 && edges[0].Orientation != tc.orien {
			t.Errorf("%s: orientation %c, want %c", tc.name, edges[0].Orientation, tc.orien)
		}
	}

	h := EdgesFromRect(geometry.Rect{X0: 10, Y0: 100, X1: 300, Y1: 102})[0]
	assert.InDelta(t, 101.0, h.Y0, 1e-6)
	assert.InDelta(t, 10.0, h.Start(), 1e-6)
	assert.InDelta(t, 300.0, h.End(), 1e-6)
}

func TestCaptureEdgesSkipsOffPage(t *testing.T) {
	page := geometry.Rect{X1: 612, Y1: 792}
	boxes := []geometry.Rect{
		{X0: 10, Y0: 100, X1: 300, Y1: 101},
		{X0: 700, Y0: 100, X1: 900, Y1: 101},
	}
	assert.Len(t, CaptureEdges(boxes, page), 1)
}

func TestTraitsOf(t *testing.T) {
	tests := []struct {
		font string
		want fontTraits
	}{
		{"ABCDEF+Helvetica-Bold", fontTraits{bold: true}},
		{"Times-BoldItalic", fontTraits{bold: true, italic: true}},
		{"Courier", fontTraits{mono: true}},
		{"Arial-ItalicMT", fontTraits{italic: true}},
		{"Helvetica", fontTraits{}},
	}

	for _, tc := range tests {
		if got := traitsOf(tc.font); got != tc.want {
			t.Errorf("traitsOf(%q) = %+v, want %+v", tc.font, got, tc.want)
		}
	}
}

func glyph(r rune, x, y float32) RawChar {
	return RawChar{Codepoint: r, Size: 10, BBox: geometry.Rect{X0: x, Y0: y, X1: x + 5, Y1: y + 10}}
}

func TestGroupGlyphs(t *testing.T) {
	glyphs := []RawChar{
		glyph('a', 72, 100), glyph('b', 77, 100),
		glyph('c', 95, 100), // word gap
		glyph('d', 72, 112), // next line, same block
		glyph('e', 72, 300), // far below, new block
	}
	chars, lines, blocks := groupGlyphs(glyphs)

	require.Len(t, lines, 3)
	require.Len(t, blocks, 2)
	assert.Equal(t, 4, lines[0].CharCount)
	assert.Equal(t, ' ', chars[2].Codepoint)
	assert.Equal(t, 2, blocks[0].LineCount)
	assert.Equal(t, 1, blocks[1].LineCount)
}
