package extractor

import (
	"strings"
	"unicode"

	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

type CleanupOpts struct {
	Normalize      bool `yaml:"normalize"`
	CollapseSpaces bool `yaml:"collapse_spaces"`
	Trim           bool `yaml:"trim"`
	BrokenUnicode  bool `yaml:"broken_unicode"`
	BrokenBullets  bool `yaml:"broken_bullets"`
}

var DefaultCleanup = CleanupOpts{
	Normalize:      true,
	CollapseSpaces: true,
	Trim:           true,
	BrokenUnicode:  true,
	BrokenBullets:  true,
}

// CleanupPage tidies span text in place and turns blocks that open with a
// monospace "o" glyph into list items. Code keeps its whitespace.
func CleanupPage(blocks []models.Block, opts CleanupOpts) []models.Block {
	if opts.BrokenBullets {
		blocks = convertBulletBlocksToLists(blocks)
	}
	codeOpts := CleanupOpts{BrokenUnicode: opts.BrokenUnicode}
	for i := range blocks {
		block := &blocks[i]
		switch c := block.Content.(type) {
		case models.Code:
			block.Spans = cleanupSpans(block.Spans, codeOpts)
		case models.TableContent:
			for j := range c.Rows {
				for k := range c.Rows[j].Cells {
					cell := &c.Rows[j].Cells[k]
					cell.Spans = cleanupSpans(cell.Spans, opts)
				}
			}
		case models.ListContent:
			for j := range c.Items {
				c.Items[j].Spans = cleanupSpans(c.Items[j].Spans, opts)
			}
		default:
			block.Spans = cleanupSpans(block.Spans, opts)
		}
	}
	return blocks
}

// cleanupSpans cleans each span, keeping one space where a span met its
// neighbour on whitespace. Only the outer ends of the run are trimmed.
func cleanupSpans(spans []models.Span, opts CleanupOpts) []models.Span {
	inner := opts
	inner.Trim = false
	out := spans[:0]
	for _, s := range spans {
		if s.Text = cleanupSpanText(s.Text, inner); s.Text != "" {
			out = append(out, s)
		}
	}
	if opts.Trim && len(out) > 0 {
		out[0].Text = strings.TrimLeft(out[0].Text, " \t\n")
		last := &out[len(out)-1]
		last.Text = strings.TrimRight(last.Text, " \t\n")
		kept := out[:0]
		for _, s := range out {
			if s.Text != "" {
				kept = append(kept, s)
			}
		}
		out = kept
	}
	return out
}

func cleanupSpanText(input string, opts CleanupOpts) string {
	if input == "" {
		return ""
	}
	if opts.BrokenUnicode {
		input = strings.ToValidUTF8(input, "")
		input = strings.ReplaceAll(input, "\uFFFD", "")
	}
	if !opts.Normalize && !opts.CollapseSpaces {
		if opts.Trim {
			input = strings.TrimSpace(input)
		}
		return input
	}
	lead := strings.IndexFunc(input, unicode.IsSpace) == 0
	trail := strings.LastIndexFunc(input, unicode.IsSpace) == len(input)-1
	if opts.Normalize {
		input = text.NormalizeText(text.NormalizeGlyphs(input))
	}
	if opts.CollapseSpaces {
		for strings.Contains(input, "  ") {
			input = strings.ReplaceAll(input, "  ", " ")
		}
	}
	if opts.Trim {
		return strings.TrimSpace(input)
	}
	switch {
	case input == "" && (lead || trail):
		return " "
	case input == "":
		return ""
	}
	if lead && !strings.HasPrefix(input, " ") {
		input = " " + input
	}
	if trail && !strings.HasSuffix(input, " ") {
		input += " "
	}
	return input
}

// convertBulletBlocksToLists handles symbol fonts whose bullet decodes as a
// plain "o". The item joins an adjacent list when there is one.
func convertBulletBlocksToLists(blocks []models.Block) []models.Block {
	out := make([]models.Block, 0, len(blocks))
	for i := 0; i < len(blocks); i++ {
		block := blocks[i]
		if !shouldConvertToList(&block) {
			out = append(out, block)
			continue
		}
		item := models.ListItem{Spans: block.Spans[1:], ListType: models.Bulleted, Prefix: string(text.CanonicalBullet)}
		if n := len(out); n > 0 {
			if lc, ok := out[n-1].List(); ok {
				lc.Items = append(lc.Items, item)
				out[n-1].Content = lc
				out[n-1].BBox = out[n-1].BBox.Union(block.BBox)
				continue
			}
		}
		if i+1 < len(blocks) {
			if lc, ok := blocks[i+1].List(); ok {
				lc.Items = append([]models.ListItem{item}, lc.Items...)
				blocks[i+1].Content = lc
				blocks[i+1].BBox = blocks[i+1].BBox.Union(block.BBox)
				continue
			}
		}
		block.Content = models.ListContent{Items: []models.ListItem{item}}
		block.Spans = nil
		out = append(out, block)
	}
	return out
}

func shouldConvertToList(block *models.Block) bool {
	if len(block.Spans) < 2 {
		return false
	}
	switch block.Content.(type) {
	case models.TableContent, models.ListContent, models.Code:
		return false
	}
	first := block.Spans[0]
	return first.Style.Monospace && isOnlyBulletChar(first.Text) && hasASCIIText(block.Spans[1].Text)
}

func isOnlyBulletChar(s string) bool {
	hasO := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if r != 'o' && r != 'O' {
			return false
		}
		hasO = true
	}
	return hasO
}

func hasASCIIText(s string) bool {
	for _, r := range s {
		if r >= 32 && r <= 126 && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
