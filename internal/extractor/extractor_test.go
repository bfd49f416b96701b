package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/testutil"
)

func texts(page models.Page) []string {
	out := make([]string, len(page.Data))
	for i, b := range page.Data {
		out[i] = b.Text()
	}
	return out
}

func TestExtractPageHeadingAndParagraph(t *testing.T) {
	raw := testutil.NewPage(testutil.Letter).Number(3).
		Block().Text(72, 100, 20, "Introduction").
		Paragraph(72, 140, 10, 12, "This is body text that", "continues on a second line.").
		Build()

	page := ExtractPage(raw, DefaultParams())
	assert.Equal(t, 3, page.Number)
	require.Len(t, page.Data, 2)

	h := page.Data[0]
	assert.Equal(t, models.BlockHeading, h.Type())
	assert.Equal(t, 1, h.Level())
	assert.Equal(t, "Introduction", h.Text())
	assert.Equal(t, 3, h.Page)

	p := page.Data[1]
	assert.Equal(t, models.BlockText, p.Type())
	assert.Equal(t, "This is body text that continues on a second line.", p.Text())
	assert.Equal(t, 2, p.Lines)
	assert.Equal(t, float32(10), p.FontSize)
}

func TestExtractPageKeepsNonLatinText(t *testing.T) {
	raw := testutil.NewPage(testutil.Letter).
		Block().Text(72, 100, 20, "Введение").
		Paragraph(72, 140, 10, 12, "Первая строка абзаца", "продолжается ниже").
		Paragraph(72, 200, 10, 12, "日本語の段落です。").
		Build()

	page := ExtractPage(raw, DefaultParams())
	require.Len(t, page.Data, 3)
	assert.Equal(t, []string{"Введение", "Первая строка абзаца продолжается ниже", "日本語の段落です。"}, texts(page))
	assert.Equal(t, models.BlockHeading, page.Data[0].Type())
	assert.Equal(t, 1, page.Data[0].Level())
	assert.Equal(t, models.BlockText, page.Data[1].Type())
	assert.Equal(t, models.BlockText, page.Data[2].Type())
}

func TestExtractPageDropsDecoration(t *testing.T) {
	b := testutil.NewPage(testutil.Letter).
		Block().Text(250, 20, 9, "ANNUAL REPORT").
		Block().Text(300, 770, 10, "12").
		Paragraph(72, 300, 10, 12, "Body text stays here.")
	b.Block()
	for i := 0; i < 25; i++ {
		b.Text(20, 200+float32(i)*10, 9, "X")
	}

	page := ExtractPage(b.Build(), DefaultParams())
	assert.Equal(t, []string{"Body text stays here."}, texts(page))
}

func TestExtractPageTableSuppressesText(t *testing.T) {
	xs := []float64{100, 200, 300, 400}
	ys := []float64{100, 130, 160, 190}
	b := testutil.NewPage(testutil.Letter).Grid(xs, ys)
	labels := [][]string{{"A1", "B1", "C1"}, {"A2", "B2", "C2"}, {"A3", "B3", "C3"}}
	for r, row := range labels {
		b.Block()
		for c, s := range row {
			b.Text(float32(xs[c])+10, float32(ys[r])+10, 10, s)
		}
	}
	b.Paragraph(72, 300, 10, 12, "Notes follow the table.")

	page := ExtractPage(b.Build(), DefaultParams())
	require.Len(t, page.Data, 2)

	tbl, ok := page.Data[0].Table()
	require.True(t, ok)
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, 3, tbl.ColCount())
	for r, row := range tbl.Rows {
		for c, cell := range row.Cells {
			require.Len(t, cell.Spans, 1)
			assert.Equal(t, labels[r][c], cell.Spans[0].Text)
		}
	}
	assert.Equal(t, float32(1), tbl.Confidence)
	assert.Equal(t, "Notes follow the table.", page.Data[1].Text())
}

func TestExtractPageTwoColumnOrder(t *testing.T) {
	raw := testutil.NewPage(testutil.Letter).
		Block().Text(72, 80, 24, "A Study of Two Column Layouts").
		Paragraph(72, 150, 10, 12, "Left column first para.").
		Paragraph(320, 150, 10, 12, "Right column first para.").
		Paragraph(72, 200, 10, 12, "Left column second para.").
		Paragraph(320, 200, 10, 12, "Right column second para.").
		Build()

	page := ExtractPage(raw, DefaultParams())
	assert.Equal(t, []string{
		"A Study of Two Column Layouts",
		"Left column first para.",
		"Left column second para.",
		"Right column first para.",
		"Right column second para.",
	}, texts(page))

	cols := make([]int, len(page.Data))
	for i, b := range page.Data {
		cols[i] = b.ColumnIndex
	}
	assert.Equal(t, []int{0, 1, 1, 2, 2}, cols)
	assert.Equal(t, models.BlockHeading, page.Data[0].Type())
}

func TestExtractPageMergesList(t *testing.T) {
	raw := testutil.NewPage(testutil.Letter).
		Paragraph(72, 80, 10, 12, "Fruit we like:").
		Block().Text(72, 100, 10, "• Apples").
		Block().Text(72, 114, 10, "• Pears").
		Block().Text(72, 128, 10, "• Plums").
		Build()

	page := ExtractPage(raw, DefaultParams())
	require.Len(t, page.Data, 2)
	assert.Equal(t, models.BlockText, page.Data[0].Type())

	lc, ok := page.Data[1].List()
	require.True(t, ok)
	require.Len(t, lc.Items, 3)
	for i, want := range []string{"Apples", "Pears", "Plums"} {
		assert.Equal(t, want, lc.Items[i].Text())
		assert.Equal(t, "•", lc.Items[i].Prefix)
	}
	assert.Equal(t, models.BBox{72, 100, 112, 138}, page.Data[1].BBox)
}

func TestExtractPageAttachesLinks(t *testing.T) {
	uri := "https://example.com/docs"
	segs := []testutil.Segment{
		{X: 72, Text: "See "},
		{X: 92, Text: "docs", Opts: []testutil.CharOpt{testutil.Italic}},
		{X: 112, Text: " here."},
	}
	raw := testutil.NewPage(testutil.Letter).
		Block().Line(100, 10, segs...).
		Link(geometry.Rect{X0: 92, Y0: 100, X1: 112, Y1: 110}, uri).
		Build()

	page := ExtractPage(raw, DefaultParams())
	require.Len(t, page.Data, 1)
	b := page.Data[0]
	assert.Equal(t, "See docs here.", b.Text())
	require.Len(t, b.Links, 1)
	assert.Equal(t, models.Link{Text: "docs", URI: uri, BBox: models.BBox{92, 100, 112, 110}}, b.Links[0])

	require.Len(t, b.Spans, 3)
	assert.Empty(t, b.Spans[0].URI)
	assert.Equal(t, uri, b.Spans[1].URI)
	assert.True(t, b.Spans[1].Style.Italic)
	assert.Empty(t, b.Spans[2].URI)
}

func TestExtractPageMonospaceBullet(t *testing.T) {
	bullet := testutil.Segment{X: 72, Text: "o", Opts: []testutil.CharOpt{testutil.Mono}}
	raw := testutil.NewPage(testutil.Letter).
		Block().Line(100, 10, bullet, testutil.Segment{X: 82, Text: "First point"}).
		Build()

	page := ExtractPage(raw, DefaultParams())
	require.Len(t, page.Data, 1)
	lc, ok := page.Data[0].List()
	require.True(t, ok)
	require.Len(t, lc.Items, 1)
	assert.Equal(t, "First point", lc.Items[0].Text())
	assert.Equal(t, "•", lc.Items[0].Prefix)
	assert.Empty(t, page.Data[0].Spans)
}

func TestExtractPageDegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		raw  *bridge.RawPageData
	}{
		{"nil page", nil},
		{"empty page", &bridge.RawPageData{PageNumber: 2}},
		{"dangling indices", &bridge.RawPageData{
			PageNumber: 4,
			PageBounds: testutil.Letter,
			Blocks:     []bridge.RawBlock{{Type: bridge.BlockText, LineStart: 7, LineCount: 3}},
			Lines:      []bridge.RawLine{{CharStart: 40, CharCount: 5}},
		}},
		{"image only", &bridge.RawPageData{
			PageNumber: 5,
			PageBounds: testutil.Letter,
			Blocks:     []bridge.RawBlock{{Type: bridge.BlockImage, BBox: geometry.Rect{X0: 10, Y0: 10, X1: 100, Y1: 100}}},
		}},
		{"whitespace only", testutil.NewPage(testutil.Letter).Text(72, 100, 10, "    ").Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page models.Page
			require.NotPanics(t, func() { page = ExtractPage(tt.raw, DefaultParams()) })
			assert.Empty(t, page.Data)
			if tt.raw != nil {
				assert.Equal(t, tt.raw.PageNumber, page.Number)
			}
		})
	}
}

func TestExtractPageDeterministic(t *testing.T) {
	build := func() *bridge.RawPageData {
		return testutil.NewPage(testutil.Letter).
			Block().Text(72, 80, 24, "A Study of Two Column Layouts").
			Paragraph(72, 150, 10, 12, "Left column first para.").
			Paragraph(320, 150, 10, 12, "Right column first para.").
			Grid([]float64{100, 200, 300}, []float64{400, 430, 460}).
			Block().Text(110, 410, 10, "k1").Text(210, 410, 10, "v1").
			Block().Text(110, 440, 10, "k2").Text(210, 440, 10, "v2").
			Build()
	}
	first := ExtractPage(build(), DefaultParams())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractPage(build(), DefaultParams()))
	}
}

func TestCleanupSpanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  double  spaced  ", "double spaced"},
		{"bro�ken", "broken"},
		{"ﬁne", "fine"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanupSpanText(tt.in, DefaultCleanup); got != tt.want {
			t.Errorf("cleanupSpanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanupKeepsCodeWhitespace(t *testing.T) {
	blocks := []models.Block{{
		Spans:   []models.Span{{Text: "if x {\n    y()\n}"}},
		Content: models.Code{},
	}}
	out := CleanupPage(blocks, DefaultCleanup)
	assert.Equal(t, "if x {\n    y()\n}", out[0].Text())
}

func TestCleanupBulletJoinsAdjacentList(t *testing.T) {
	mono := models.TextStyle{Monospace: true}
	blocks := []models.Block{
		{Content: models.ListContent{Items: []models.ListItem{{Spans: []models.Span{{Text: "one"}}, ListType: models.Bulleted, Prefix: "•"}}}},
		{Spans: []models.Span{{Text: "o", Style: mono}, {Text: "two"}}, Content: models.Paragraph{}},
	}
	out := CleanupPage(blocks, DefaultCleanup)
	require.Len(t, out, 1)
	lc, _ := out[0].List()
	require.Len(t, lc.Items, 2)
	assert.Equal(t, "two", lc.Items[1].Text())
}
