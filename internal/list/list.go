// Package list merges consecutive list blocks into structured lists.
package list

import (
	"strings"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

var Logger = logger.GetLogger("list")

type Params struct {
	// Blocks merge while the gap is at most max(GapRatio*size, MinGap).
	GapRatio float32 `yaml:"gap_ratio"`
	MinGap   float32 `yaml:"min_gap"`
	// IndentUnit is one indent level in multiples of the base font size.
	IndentUnit   float32 `yaml:"indent_unit"`
	MaxIndent    int     `yaml:"max_indent"`
	MinBaseSize  float32 `yaml:"min_base_size"`
	FallbackSize float32 `yaml:"fallback_size"`
}

func DefaultParams() Params {
	return Params{
		GapRatio:     2.5,
		MinGap:       20,
		IndentUnit:   2,
		MaxIndent:    6,
		MinBaseSize:  8,
		FallbackSize: 12,
	}
}

// Consolidate merges runs of adjacent list blocks sharing a column. Blocks
// must already be in reading order. Merged lists without any visible item
// are dropped; other blocks pass through unchanged.
func Consolidate(blocks []models.Block, p Params) []models.Block {
	out := make([]models.Block, 0, len(blocks))
	for i := 0; i < len(blocks); {
		if blocks[i].Type() != models.BlockList {
			out = append(out, blocks[i])
			i++
			continue
		}
		j := i + 1
		for j < len(blocks) && blocks[j].Type() == models.BlockList && blocks[j].ColumnIndex == blocks[i].ColumnIndex {
			prev := &blocks[j-1]
			if gap := blocks[j].BBox.Y0() - prev.BBox.Y1(); gap > geometry.Max32(prev.FontSize*p.GapRatio, p.MinGap) {
				break
			}
			j++
		}
		if merged, ok := merge(blocks[i:j], p); ok {
			out = append(out, merged)
		} else {
			Logger.Debug("dropping list without visible items", "blocks", j-i)
		}
		i = j
	}
	return out
}

func merge(group []models.Block, p Params) (models.Block, bool) {
	baseX := group[0].BBox.X0()
	for _, b := range group[1:] {
		baseX = geometry.Min32(baseX, b.BBox.X0())
	}
	baseSize := group[0].FontSize
	if baseSize < p.MinBaseSize {
		baseSize = p.FallbackSize
	}

	merged := models.Block{
		BBox:        group[0].BBox,
		ColumnIndex: group[0].ColumnIndex,
		Page:        group[0].Page,
	}
	var items []models.ListItem
	var sizeSum, boldSum float32
	visible := false
	for _, b := range group {
		merged.BBox = merged.BBox.Union(b.BBox)
		merged.Lines += b.Lines
		sizeSum += b.FontSize
		boldSum += b.BoldRatio
		indent := geometry.Clamp(int((b.BBox.X0()-baseX)/(baseSize*p.IndentUnit)), 0, p.MaxIndent)

		for _, line := range strings.Split(b.Text(), "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			rest, prefix, numbered := text.SplitBullet(text.NormalizeGlyphs(line))
			rest = text.CollapseWhitespace(rest)
			if rest == "" {
				continue
			}
			// A line without a marker continues the previous item.
			if prefix == "" && len(items) > 0 {
				last := &items[len(items)-1]
				last.Spans[0].Text += " " + rest
				merged.Length += 1 + text.CountUnicodeChars(rest)
				continue
			}
			kind := models.Bulleted
			if numbered {
				kind = models.Numbered
			}
			items = append(items, models.ListItem{
				Spans:    []models.Span{{Text: rest, FontSize: b.FontSize}},
				ListType: kind,
				Indent:   indent,
				Prefix:   prefix,
			})
			merged.Length += text.CountUnicodeChars(rest)
			if text.HasVisibleContent(rest) {
				visible = true
			}
		}
	}
	if !visible {
		return models.Block{}, false
	}
	n := float32(len(group))
	merged.FontSize, merged.BoldRatio = sizeSum/n, boldSum/n
	merged.Content = models.ListContent{Items: items}
	return merged, true
}
