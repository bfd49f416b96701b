package models

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

type BBox [4]float32

func (b BBox) X0() float32     { return b[0] }
func (b BBox) Y0() float32     { return b[1] }
func (b BBox) X1() float32     { return b[2] }
func (b BBox) Y1() float32     { return b[3] }
func (b BBox) Width() float32  { return b[2] - b[0] }
func (b BBox) Height() float32 { return b[3] - b[1] }
func (b BBox) IsEmpty() bool   { return b[0] >= b[2] || b[1] >= b[3] }

func (b BBox) Rect() geometry.Rect { return geometry.Rect{X0: b[0], Y0: b[1], X1: b[2], Y1: b[3]} }

func FromRect(r geometry.Rect) BBox { return BBox{r.X0, r.Y0, r.X1, r.Y1} }

func (b BBox) Union(other BBox) BBox { return FromRect(b.Rect().Union(other.Rect())) }

func (b BBox) MarshalJSON() ([]byte, error) {
	return []byte("[" +
		strconv.FormatFloat(float64(b[0]), 'f', 2, 32) + "," +
		strconv.FormatFloat(float64(b[1]), 'f', 2, 32) + "," +
		strconv.FormatFloat(float64(b[2]), 'f', 2, 32) + "," +
		strconv.FormatFloat(float64(b[3]), 'f', 2, 32) + "]"), nil
}

type BlockType string

const (
	BlockText     BlockType = "text"
	BlockHeading  BlockType = "heading"
	BlockTable    BlockType = "table"
	BlockList     BlockType = "list"
	BlockCode     BlockType = "code"
	BlockFootnote BlockType = "footnote"
	BlockFigure   BlockType = "figure"
	BlockOther    BlockType = "other"
)

type TextStyle struct{ Bold, Italic, Monospace, Strikeout, Superscript, Subscript bool }

type Span struct {
	Text     string
	Style    TextStyle
	FontSize float32
	BBox     BBox
	URI      string
}

func (s Span) MarshalJSON() ([]byte, error) {
	link := any(false)
	if s.URI != "" {
		link = s.URI
	}
	return marshalNoEscape(struct {
		Text        string  `json:"text"`
		FontSize    float32 `json:"font_size"`
		Bold        bool    `json:"bold"`
		Italic      bool    `json:"italic"`
		Monospace   bool    `json:"monospace"`
		Strikeout   bool    `json:"strikeout"`
		Superscript bool    `json:"superscript"`
		Subscript   bool    `json:"subscript"`
		Link        any     `json:"link"`
	}{s.Text, round2(s.FontSize), s.Style.Bold, s.Style.Italic, s.Style.Monospace, s.Style.Strikeout, s.Style.Superscript, s.Style.Subscript, link})
}

type Link struct {
	Text string `json:"text"`
	URI  string `json:"uri"`
	BBox BBox   `json:"bbox"`
}

type ListType string

const (
	Bulleted ListType = "bulleted"
	Numbered ListType = "numbered"
)

type ListItem struct {
	Spans    []Span
	ListType ListType
	Indent   int
	Prefix   string
}

func (li ListItem) Text() string { return spanText(li.Spans) }

func (li ListItem) MarshalJSON() ([]byte, error) {
	lt, pre := any(false), any(false)
	if li.ListType != "" {
		lt = li.ListType
	}
	if li.Prefix != "" {
		pre = li.Prefix
	}
	return marshalNoEscape(struct {
		Spans    []Span `json:"spans,omitempty"`
		ListType any    `json:"list_type"`
		Indent   int    `json:"indent"`
		Prefix   any    `json:"prefix"`
	}{li.Spans, lt, li.Indent, pre})
}

type TableCell struct {
	BBox  BBox   `json:"bbox"`
	Spans []Span `json:"spans,omitempty"`
}

type TableRow struct {
	BBox  BBox        `json:"bbox"`
	Cells []TableCell `json:"cells,omitempty"`
}

// Content is the typed payload of a Block. The block type is derived from it,
// so a table or list payload can only ever sit on a table or list block.
type Content interface {
	Type() BlockType
	isContent()
}

type (
	Paragraph struct{}
	Heading   struct{ Level int }
	Code      struct{}
	Footnote  struct{}
	Figure    struct{}
	Other     struct{}
)

type TableContent struct {
	Rows       []TableRow
	Confidence float32
}

type ListContent struct{ Items []ListItem }

func (Paragraph) Type() BlockType    { return BlockText }
func (Heading) Type() BlockType      { return BlockHeading }
func (Code) Type() BlockType         { return BlockCode }
func (Footnote) Type() BlockType     { return BlockFootnote }
func (Figure) Type() BlockType       { return BlockFigure }
func (Other) Type() BlockType        { return BlockOther }
func (TableContent) Type() BlockType { return BlockTable }
func (ListContent) Type() BlockType  { return BlockList }

func (Paragraph) isContent()    {}
func (Heading) isContent()      {}
func (Code) isContent()         {}
func (Footnote) isContent()     {}
func (Figure) isContent()       {}
func (Other) isContent()        {}
func (TableContent) isContent() {}
func (ListContent) isContent()  {}

func (t TableContent) RowCount() int { return len(t.Rows) }

func (t TableContent) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Cells)
}

func (t TableContent) CellCount() int { return t.RowCount() * t.ColCount() }

type Block struct {
	BBox                                              BBox
	Length                                            int
	FontSize                                          float32
	Lines                                             int
	ColumnIndex                                       int
	Page                                              int
	BoldRatio, ItalicRatio, MonoRatio, StrikeoutRatio float32
	Spans                                             []Span
	Links                                             []Link
	Content                                           Content
}

func (b Block) Type() BlockType {
	if b.Content == nil {
		return BlockOther
	}
	return b.Content.Type()
}

func (b *Block) GetBBox() BBox          { return b.BBox }
func (b *Block) SetColumnIndex(idx int) { b.ColumnIndex = idx }

// Level is the heading level, 0 for non-headings.
func (b Block) Level() int {
	if h, ok := b.Content.(Heading); ok {
		return h.Level
	}
	return 0
}

func (b Block) Table() (TableContent, bool) {
	t, ok := b.Content.(TableContent)
	return t, ok
}

func (b Block) List() (ListContent, bool) {
	l, ok := b.Content.(ListContent)
	return l, ok
}

// Text concatenates the span texts.
func (b Block) Text() string { return spanText(b.Spans) }

func (b Block) MarshalJSON() ([]byte, error) {
	out := struct {
		Type           BlockType  `json:"type"`
		BBox           BBox       `json:"bbox"`
		Length         int        `json:"length"`
		FontSize       float32    `json:"font_size"`
		BoldRatio      float32    `json:"bold_ratio"`
		ItalicRatio    float32    `json:"italic_ratio"`
		MonoRatio      float32    `json:"mono_ratio"`
		StrikeoutRatio float32    `json:"strikeout_ratio"`
		Lines          int        `json:"lines"`
		Column         int        `json:"column"`
		Spans          []Span     `json:"spans,omitempty"`
		Links          []Link     `json:"links,omitempty"`
		Level          int        `json:"level,omitempty"`
		RowCount       int        `json:"row_count,omitempty"`
		ColCount       int        `json:"col_count,omitempty"`
		CellCount      int        `json:"cell_count,omitempty"`
		Confidence     *float32   `json:"confidence,omitempty"`
		Rows           []TableRow `json:"rows,omitempty"`
		Items          []ListItem `json:"items,omitempty"`
	}{
		Type:           b.Type(),
		BBox:           b.BBox,
		Length:         b.Length,
		FontSize:       round2(b.FontSize),
		BoldRatio:      round2(b.BoldRatio),
		ItalicRatio:    round2(b.ItalicRatio),
		MonoRatio:      round2(b.MonoRatio),
		StrikeoutRatio: round2(b.StrikeoutRatio),
		Lines:          b.Lines,
		Column:         b.ColumnIndex,
		Spans:          b.Spans,
		Links:          b.Links,
	}
	switch c := b.Content.(type) {
	case Heading:
		out.Level = c.Level
	case TableContent:
		conf := round2(c.Confidence)
		out.RowCount, out.ColCount, out.CellCount = c.RowCount(), c.ColCount(), c.CellCount()
		out.Confidence, out.Rows = &conf, c.Rows
	case ListContent:
		out.Items = c.Items
	}
	return marshalNoEscape(out)
}

type Page struct {
	Number int     `json:"page"`
	Data   []Block `json:"data"`
}

type Document struct{ Pages []Page }

func (d *Document) MarshalJSON() ([]byte, error) { return marshalNoEscape(d.Pages) }

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func round2(v float32) float32 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'f', 2, 32), 32)
	return float32(f)
}

func spanText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
