package models

import (
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockTypeFollowsContent(t *testing.T) {
	tests := []struct {
		content Content
		want    BlockType
	}{
		{nil, BlockOther},
		{Paragraph{}, BlockText},
		{Heading{Level: 2}, BlockHeading},
		{Code{}, BlockCode},
		{Footnote{}, BlockFootnote},
		{Figure{}, BlockFigure},
		{TableContent{}, BlockTable},
		{ListContent{}, BlockList},
	}

	for _, tc := range tests {
		b := Block{Content: tc.content}
		if got := b.Type(); got != tc.want {
			t.Errorf("Block{%T}.Type() = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestBBoxMarshalTwoDecimals(t *testing.T) {
	data, err := json.Marshal(BBox{1, 2.345, 3.5, 4})
	require.NoError(t, err)
	assert.Equal(t, "[1.00,2.35,3.50,4.00]", string(data))
}

func TestHeadingBlockJSON(t *testing.T) {
	b := Block{
		BBox:     BBox{10, 20, 200, 40},
		Length:   5,
		FontSize: 18,
		Lines:    1,
		Spans:    []Span{{Text: "Intro", FontSize: 18, Style: TextStyle{Bold: true}}},
		Content:  Heading{Level: 1},
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "heading", decoded["type"])
	assert.EqualValues(t, 1, decoded["level"])
	assert.NotContains(t, decoded, "rows")
	assert.NotContains(t, decoded, "items")

	spans := decoded["spans"].([]any)
	require.Len(t, spans, 1)
	span := spans[0].(map[string]any)
	assert.Equal(t, true, span["bold"])
	assert.Equal(t, false, span["link"])
}

func TestTableBlockJSON(t *testing.T) {
	rows := []TableRow{
		{Cells: []TableCell{{Spans: []Span{{Text: "a"}}}, {Spans: []Span{{Text: "b"}}}}},
		{Cells: []TableCell{{Spans: []Span{{Text: "c"}}}, {}}},
	}
	data, err := json.Marshal(Block{Content: TableContent{Rows: rows, Confidence: 0.75}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "table", decoded["type"])
	assert.EqualValues(t, 2, decoded["row_count"])
	assert.EqualValues(t, 2, decoded["col_count"])
	assert.EqualValues(t, 4, decoded["cell_count"])
	assert.InDelta(t, 0.75, decoded["confidence"], 1e-6)
	assert.Len(t, decoded["rows"], 2)
}

func TestListItemJSON(t *testing.T) {
	data, err := json.Marshal(ListItem{Spans: []Span{{Text: "first"}}, ListType: Numbered, Indent: 1, Prefix: "1."})
	require.NoError(t, err)
	s := string(data)
	for _, want := range []string{`"list_type":"numbered"`, `"indent":1`, `"prefix":"1."`} {
		if !strings.Contains(s, want) {
			t.Errorf("list item JSON %s missing %s", s, want)
		}
	}
}

func TestDocumentJSONShape(t *testing.T) {
	doc := &Document{Pages: []Page{{Number: 1}, {Number: 2, Data: []Block{{Content: Paragraph{}, Spans: []Span{{Text: "x<y"}}}}}}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `[{"page":1`))
	assert.Contains(t, string(data), "x<y")
}
