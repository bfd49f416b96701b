package classify

import (
	"strings"
	"unicode"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

// Run is a stretch of consecutive lines of one decoder block that share
// bullet and bold continuity.
type Run struct {
	Text    string
	BBox    geometry.Rect
	Lines   int
	Chars   int
	AvgSize float32

	BoldRatio, ItalicRatio, MonoRatio, StrikeoutRatio float32
	SuperRatio                                        float32
	// FirstSuper is set when the first visible glyph is raised, as with a
	// footnote marker.
	FirstSuper bool

	Spans []models.Span
}

// SplitRuns cuts the lines of a text block into runs. A run breaks when the
// bullet state changes, when bold starts, when bold ends after a wide gap,
// when the line size jumps, or when the gap to the previous line is large.
func SplitRuns(raw *bridge.RawPageData, block bridge.RawBlock, p Params) []Run {
	if block.Type != bridge.BlockText {
		return nil
	}
	lines := raw.BlockLines(block)
	var runs []Run
	for i := 0; i < len(lines); {
		b := runBuilder{bbox: geometry.Empty}
		isList, firstBold := lineStartsWithBullet(raw, lines[i]), lineIsBold(raw, lines[i], p)
		lastSize := float32(-1)
		for n := 0; i < len(lines); i, n = i+1, n+1 {
			line := lines[i]
			size := lineFontSize(raw, line)
			if n > 0 {
				if lineStartsWithBullet(raw, line) != isList {
					break
				}
				gap, bold := line.BBox.Y0-lines[i-1].BBox.Y1, lineIsBold(raw, line, p)
				if (!firstBold && bold) ||
					(firstBold && !bold && gap > size*p.BoldEndGap) ||
					(lastSize > 0 && geometry.Abs32(size-lastSize) > p.SizeJump) ||
					gap > size*p.MaxLineGap {
					break
				}
				sep := "\n"
				if gap < size*p.JoinGap {
					sep = " "
				}
				b.separate(sep)
			}
			lastSize = size
			b.addLine(raw, line, p)
		}
		if run, ok := b.finish(); ok {
			runs = append(runs, run)
		}
	}
	return runs
}

type runBuilder struct {
	text  strings.Builder
	spans []models.Span
	bbox  geometry.Rect
	lines int

	total, bold, italic, mono, strike, super int
	sizeSum                                  float32
	firstSuper, seenVisible                  bool
}

func (b *runBuilder) separate(sep string) {
	b.text.WriteString(sep)
	if len(b.spans) > 0 {
		b.spans[len(b.spans)-1].Text += sep
	}
}

func (b *runBuilder) addLine(raw *bridge.RawPageData, line bridge.RawLine, p Params) {
	chars := raw.LineChars(line)
	top, bottom := referenceBox(chars)
	b.bbox = b.bbox.Union(line.BBox)
	b.lines++
	for _, ch := range chars {
		if ch.Codepoint == 0 {
			continue
		}
		shift := p.ScriptShift * ch.Size
		style := models.TextStyle{
			Bold:      ch.IsBold,
			Italic:    ch.IsItalic,
			Monospace: ch.IsMonospaced,
			Strikeout: ch.IsStrikeout,
		}
		style.Superscript = top-ch.BBox.Y0 > shift
		style.Subscript = !style.Superscript && ch.BBox.Y1-bottom > shift

		b.total++
		b.sizeSum += ch.Size
		b.bold += btoi(ch.IsBold)
		b.italic += btoi(ch.IsItalic)
		b.mono += btoi(ch.IsMonospaced)
		b.strike += btoi(ch.IsStrikeout)
		b.super += btoi(style.Superscript)
		if !b.seenVisible && !unicode.IsSpace(ch.Codepoint) {
			b.seenVisible, b.firstSuper = true, style.Superscript
		}

		b.text.WriteRune(ch.Codepoint)
		if n := len(b.spans); n > 0 && b.spans[n-1].Style == style && geometry.Abs32(ch.Size-b.spans[n-1].FontSize) <= p.SizeJump {
			last := &b.spans[n-1]
			last.Text += string(ch.Codepoint)
			last.BBox = models.FromRect(last.BBox.Rect().Union(ch.BBox))
			continue
		}
		b.spans = append(b.spans, models.Span{
			Text:     string(ch.Codepoint),
			Style:    style,
			FontSize: ch.Size,
			BBox:     models.FromRect(ch.BBox),
		})
	}
}

func (b *runBuilder) finish() (Run, bool) {
	if b.total == 0 {
		return Run{}, false
	}
	spans := tidySpans(b.spans)
	if len(spans) == 0 {
		return Run{}, false
	}
	n := float32(b.total)
	r := Run{
		Text:           text.NormalizeText(b.text.String()),
		BBox:           b.bbox,
		Lines:          b.lines,
		AvgSize:        b.sizeSum / n,
		BoldRatio:      float32(b.bold) / n,
		ItalicRatio:    float32(b.italic) / n,
		MonoRatio:      float32(b.mono) / n,
		StrikeoutRatio: float32(b.strike) / n,
		SuperRatio:     float32(b.super) / n,
		FirstSuper:     b.firstSuper,
		Spans:          spans,
	}
	r.Chars = text.CountUnicodeChars(r.Text)
	return r, true
}

// referenceBox returns the median top and bottom of the line's full-size
// glyphs. Raised or lowered glyphs are measured against it.
func referenceBox(chars []bridge.RawChar) (top, bottom float32) {
	var maxSize float32
	for _, ch := range chars {
		if ch.Codepoint != 0 && !unicode.IsSpace(ch.Codepoint) {
			maxSize = geometry.Max32(maxSize, ch.Size)
		}
	}
	var tops, bottoms []float32
	for _, ch := range chars {
		if ch.Codepoint != 0 && !unicode.IsSpace(ch.Codepoint) && ch.Size >= maxSize-0.5 {
			tops = append(tops, ch.BBox.Y0)
			bottoms = append(bottoms, ch.BBox.Y1)
		}
	}
	if len(tops) == 0 {
		return 0, 0
	}
	return geometry.Median32(tops), geometry.Median32(bottoms)
}

func lineFontSize(raw *bridge.RawPageData, line bridge.RawLine) float32 {
	var sum float32
	count := 0
	for _, ch := range raw.LineChars(line) {
		if ch.Codepoint != 0 {
			sum += ch.Size
			count++
		}
	}
	if count == 0 {
		return defaultSize
	}
	return sum / float32(count)
}

func lineStartsWithBullet(raw *bridge.RawPageData, line bridge.RawLine) bool {
	var buf strings.Builder
	for i, ch := range raw.LineChars(line) {
		if i == 12 {
			break
		}
		if ch.Codepoint != 0 {
			buf.WriteRune(ch.Codepoint)
		}
	}
	return text.StartsWithBullet(buf.String())
}

func lineIsBold(raw *bridge.RawPageData, line bridge.RawLine, p Params) bool {
	bold, total := 0, 0
	for _, ch := range raw.LineChars(line) {
		if ch.Codepoint != 0 && !unicode.IsSpace(ch.Codepoint) {
			total++
			bold += btoi(ch.IsBold)
		}
	}
	return total > 0 && float32(bold)/float32(total) > p.BoldLineRatio
}

const trimSet = " \t\n\r\u00A0"

// tidySpans drops empty spans, moves trailing whitespace out of styled spans
// into the next one, trims the ends and merges neighbours of equal style.
func tidySpans(spans []models.Span) []models.Span {
	var filtered []models.Span
	for _, s := range spans {
		if s.Text != "" {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	for i := 0; i < len(filtered)-1; i++ {
		s := &filtered[i]
		if s.Style != (models.TextStyle{}) {
			if trimmed := strings.TrimRight(s.Text, trimSet); len(trimmed) < len(s.Text) {
				filtered[i+1].Text = s.Text[len(trimmed):] + filtered[i+1].Text
				s.Text = trimmed
			}
		}
	}
	filtered[0].Text = strings.TrimLeft(filtered[0].Text, trimSet)
	last := &filtered[len(filtered)-1]
	last.Text = strings.TrimRight(last.Text, trimSet)

	var out []models.Span
	for _, s := range filtered {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == s.Style && geometry.Abs32(out[n-1].FontSize-s.FontSize) <= 0.5 {
			out[n-1].Text += s.Text
			out[n-1].BBox = out[n-1].BBox.Union(s.BBox)
			continue
		}
		out = append(out, s)
	}
	return out
}

// joinSpanLines turns line breaks inside spans into spaces, first removing
// hyphens that split a word across lines when joinHyphens is set.
func joinSpanLines(spans []models.Span, joinHyphens bool) []models.Span {
	out := make([]models.Span, len(spans))
	copy(out, spans)
	for i := range out {
		t := out[i].Text
		if joinHyphens {
			t = text.JoinHyphenated(t)
			// A hyphen closing one span with the break opening the next.
			if strings.HasSuffix(t, "-") && i+1 < len(out) && strings.HasPrefix(out[i+1].Text, "\n") && endsWithLetterHyphen(t) {
				t = t[:len(t)-1]
				out[i+1].Text = out[i+1].Text[1:]
			}
		}
		out[i].Text = strings.ReplaceAll(t, "\n", " ")
	}
	filtered := out[:0]
	for _, s := range out {
		if s.Text != "" {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func endsWithLetterHyphen(s string) bool {
	r := []rune(s)
	return len(r) >= 2 && r[len(r)-1] == '-' && unicode.IsLetter(r[len(r)-2])
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
