package table

import (
	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

// Detect runs the ruled grid, the row-divider and the text synthesis
// strategies in that order and keeps the first that finds anything. Cells are
// shrunk to their glyphs and filled with text; tables without any visible
// text are dropped.
func Detect(raw *bridge.RawPageData, bodySize float32, p Params) *TableArray {
	if raw == nil || raw.PageBounds.IsEmpty() {
		return nil
	}
	idx := newGlyphIndex(raw.Chars)
	tables := DetectGrid(raw.Edges, raw.PageBounds, p)
	if tables == nil {
		tables = detectDividers(raw, idx, p)
	}
	if tables == nil {
		tables = Synthesize(raw, bodySize, p)
	}
	if tables == nil {
		return nil
	}
	shrinkCellsToContent(tables, idx)
	fillCellText(tables, idx)

	kept := tables.Tables[:0]
	for _, t := range tables.Tables {
		if hasVisibleText(&t) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	tables.Tables = kept
	return tables
}

func hasVisibleText(t *Table) bool {
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			if text.HasVisibleContent(c.Text) {
				return true
			}
		}
	}
	return false
}

// Confidence scores a table by the share of rows whose cells are all
// present, with bonuses for wide and long tables. The result is in [0, 1].
func Confidence(t *Table, p Params) float32 {
	if len(t.Rows) == 0 {
		return 0
	}
	complete := 0
	for _, row := range t.Rows {
		full := len(row.Cells) > 0
		for _, c := range row.Cells {
			if c.BBox.IsEmpty() {
				full = false
				break
			}
		}
		if full {
			complete++
		}
	}
	score := float32(complete) / float32(len(t.Rows))
	if t.ColCount() >= 4 {
		score += p.ColumnBonus
	}
	if len(t.Rows) >= 6 {
		score += p.RowBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

// ExtractAndConvertTables detects the tables of a page and returns them as
// table blocks. Empty cells keep their place so every row has the same width.
func ExtractAndConvertTables(raw *bridge.RawPageData, bodySize float32, p Params) []models.Block {
	tables := Detect(raw, bodySize, p)
	if tables == nil {
		return nil
	}
	Logger.Debug("detected tables", "page", raw.PageNumber, "count", len(tables.Tables), "strategy", tables.Tables[0].Strategy)
	blocks := make([]models.Block, 0, len(tables.Tables))
	for i := range tables.Tables {
		blocks = append(blocks, toBlock(&tables.Tables[i], raw.PageNumber, p))
	}
	return blocks
}

func toBlock(t *Table, page int, p Params) models.Block {
	var (
		rows           = make([]models.TableRow, 0, len(t.Rows))
		length, filled int
		sizeSum        float32
	)
	for _, row := range t.Rows {
		tr := models.TableRow{BBox: models.FromRect(row.BBox), Cells: make([]models.TableCell, 0, len(row.Cells))}
		for _, c := range row.Cells {
			cell := models.TableCell{}
			if !c.BBox.IsEmpty() {
				cell.BBox = models.FromRect(c.BBox)
			}
			if c.Text != "" {
				cell.Spans = []models.Span{{Text: c.Text, FontSize: c.FontSize, BBox: cell.BBox, Style: models.TextStyle{Bold: c.Bold}}}
				length += text.CountUnicodeChars(c.Text)
				sizeSum += c.FontSize
				filled++
			}
			tr.Cells = append(tr.Cells, cell)
		}
		rows = append(rows, tr)
	}
	b := models.Block{
		BBox:    models.FromRect(t.BBox),
		Length:  length,
		Lines:   len(rows),
		Page:    page,
		Content: models.TableContent{Rows: rows, Confidence: Confidence(t, p)},
	}
	if filled > 0 {
		b.FontSize = sizeSum / float32(filled)
	}
	return b
}
