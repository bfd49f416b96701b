package bridge

import (
	"errors"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
)

var Logger = logger.GetLogger("bridge")

var (
	ErrPageRange   = errors.New("page number out of range")
	ErrNoPages     = errors.New("document has no pages")
	ErrUnsupported = errors.New("unsupported input")
)

// Block types as reported by the decoder. Only text blocks carry lines.
const (
	BlockText  uint8 = 0
	BlockImage uint8 = 1
)

// RawPageData is everything the analysis needs from one decoded page. Blocks
// index into Lines and lines index into Chars, in decoder order.
type RawPageData struct {
	PageNumber int             `json:"page_number"`
	PageBounds geometry.Rect   `json:"page_bounds"`
	Blocks     []RawBlock      `json:"blocks"`
	Lines      []RawLine       `json:"lines"`
	Chars      []RawChar       `json:"chars"`
	Edges      []geometry.Edge `json:"edges"`
	Links      []RawLink       `json:"links,omitempty"`
}

type RawBlock struct {
	Type      uint8         `json:"type"`
	BBox      geometry.Rect `json:"bbox"`
	LineStart int           `json:"line_start"`
	LineCount int           `json:"line_count"`
}

type RawLine struct {
	BBox      geometry.Rect `json:"bbox"`
	CharStart int           `json:"char_start"`
	CharCount int           `json:"char_count"`
}

type RawChar struct {
	Codepoint    rune          `json:"c"`
	Size         float32       `json:"size"`
	BBox         geometry.Rect `json:"bbox"`
	IsBold       bool          `json:"bold,omitempty"`
	IsItalic     bool          `json:"italic,omitempty"`
	IsMonospaced bool          `json:"mono,omitempty"`
	IsStrikeout  bool          `json:"strike,omitempty"`
}

type RawLink struct {
	Rect geometry.Rect `json:"rect"`
	URI  string        `json:"uri"`
}

// LineChars returns the glyphs of a line, clamped to the char slice.
func (p *RawPageData) LineChars(line RawLine) []RawChar {
	start, end := line.CharStart, line.CharStart+line.CharCount
	if start < 0 || start > len(p.Chars) {
		return nil
	}
	if end > len(p.Chars) {
		end = len(p.Chars)
	}
	return p.Chars[start:end]
}

// BlockLines returns the lines of a block, clamped to the line slice.
func (p *RawPageData) BlockLines(block RawBlock) []RawLine {
	start, end := block.LineStart, block.LineStart+block.LineCount
	if start < 0 || start > len(p.Lines) {
		return nil
	}
	if end > len(p.Lines) {
		end = len(p.Lines)
	}
	return p.Lines[start:end]
}

// Document is a read-only handle on a paged source. Pages are 1-based.
// A handle is not safe for concurrent use; open one per worker.
type Document interface {
	NumPages() int
	Page(n int) (*RawPageData, error)
	Close() error
}
