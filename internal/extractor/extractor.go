// Package extractor assembles the structured blocks of one page from its
// decoded glyphs, rulings and links.
package extractor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/rtree"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/classify"
	"github.com/pymupdf4llm-c/pagestruct/internal/column"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/list"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/table"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

var Logger = logger.GetLogger("extractor")

// sortTol is the tie tolerance when ordering blocks by position.
const sortTol = 1e-3

type Params struct {
	Classify classify.Params `yaml:"classify"`
	Table    table.Params    `yaml:"table"`
	Column   column.Params   `yaml:"column"`
	List     list.Params     `yaml:"list"`
	Cleanup  CleanupOpts     `yaml:"cleanup"`

	// TableOverlapRatio is the share of a text block's own area that must
	// lie inside a table for the block to be suppressed.
	TableOverlapRatio float32 `yaml:"table_overlap_ratio"`
	// MarginRatio is the band at the top and bottom of the page, as a share
	// of its height, where page numbers and running headers are dropped.
	MarginRatio          float32 `yaml:"margin_ratio"`
	MaxMarginChars       int     `yaml:"max_margin_chars"`
	MaxRunningHeaderSize float32 `yaml:"max_running_header_size"`
	// Text narrower than RotatedMaxWidth and taller than RotatedMinHeight is
	// treated as rotated sidebar text and dropped.
	RotatedMaxWidth  float32 `yaml:"rotated_max_width"`
	RotatedMinHeight float32 `yaml:"rotated_min_height"`
}

func DefaultParams() Params {
	return Params{
		Classify:             classify.DefaultParams(),
		Table:                table.DefaultParams(),
		Column:               column.DefaultParams(),
		List:                 list.DefaultParams(),
		Cleanup:              DefaultCleanup,
		TableOverlapRatio:    0.7,
		MarginRatio:          0.08,
		MaxMarginChars:       200,
		MaxRunningHeaderSize: 18,
		RotatedMaxWidth:      30,
		RotatedMinHeight:     200,
	}
}

// ExtractPage turns one decoded page into blocks in reading order. It never
// panics; a page that cannot be analysed comes back without blocks.
func ExtractPage(raw *bridge.RawPageData, p Params) (page models.Page) {
	if raw == nil {
		return models.Page{}
	}
	page.Number = raw.PageNumber
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("page analysis failed", "page", raw.PageNumber, "panic", fmt.Sprint(r))
			page = models.Page{Number: raw.PageNumber}
		}
	}()
	Logger.Debug("extracting page", "page", raw.PageNumber, "blocks", len(raw.Blocks), "chars", len(raw.Chars))

	metrics := classify.Collect(raw).Metrics()
	Logger.Debug("font stats", "bodySize", metrics.BodySize, "medianSize", metrics.MedianSize)

	blocks := textBlocks(raw, metrics, p)
	attachLinks(blocks, raw.Links)

	tables := table.ExtractAndConvertTables(raw, metrics.BodySize, p.Table)
	if len(tables) > 0 {
		blocks = suppressTableText(blocks, tables, p.TableOverlapRatio)
		blocks = append(blocks, tables...)
	}

	colBlocks := make([]column.BlockWithColumn, len(blocks))
	for i := range blocks {
		colBlocks[i] = &blocks[i]
	}
	column.DetectAndAssignColumns(colBlocks, p.Column)
	sortBlocks(blocks)

	blocks = list.Consolidate(blocks, p.List)
	blocks = CleanupPage(blocks, p.Cleanup)

	kept := blocks[:0]
	for _, b := range blocks {
		if hasVisibleContent(b) {
			kept = append(kept, b)
		}
	}
	page.Data = kept
	Logger.Debug("page extraction complete", "page", raw.PageNumber, "blocks", len(kept))
	return page
}

func textBlocks(raw *bridge.RawPageData, m classify.PageMetrics, p Params) []models.Block {
	var blocks []models.Block
	for _, rb := range raw.Blocks {
		for _, run := range classify.SplitRuns(raw, rb, p.Classify) {
			content := classify.Classify(&run, m, p.Classify)
			b := models.Block{
				BBox:           models.FromRect(run.BBox),
				Length:         run.Chars,
				FontSize:       run.AvgSize,
				Lines:          run.Lines,
				Page:           raw.PageNumber,
				BoldRatio:      run.BoldRatio,
				ItalicRatio:    run.ItalicRatio,
				MonoRatio:      run.MonoRatio,
				StrikeoutRatio: run.StrikeoutRatio,
				Spans:          run.Spans,
				Content:        content,
			}
			if dropAsDecoration(&b, raw.PageBounds, p) {
				Logger.Debug("dropping decoration", "page", raw.PageNumber, "text", b.Text())
				continue
			}
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// dropAsDecoration reports rotated sidebar text, lone page numbers in the
// margins, and short running headers at the top of the page.
func dropAsDecoration(b *models.Block, page geometry.Rect, p Params) bool {
	if b.BBox.Width() < p.RotatedMaxWidth && b.BBox.Height() > p.RotatedMinHeight {
		return true
	}
	margin := page.Height() * p.MarginRatio
	top := b.BBox.Y0() < page.Y0+margin
	bottom := b.BBox.Y1() > page.Y1-margin
	if b.Length == 0 || b.Length >= p.MaxMarginChars || !(top || bottom) {
		return false
	}
	txt := b.Text()
	if text.IsLonePageNumber(txt) {
		return true
	}
	return top && (b.Type() == models.BlockHeading || text.IsAllCaps(txt)) && b.FontSize < p.MaxRunningHeaderSize
}

// attachLinks gives every block the links its box intersects and sets the
// URI of each intersecting span.
func attachLinks(blocks []models.Block, links []bridge.RawLink) {
	if len(links) == 0 || len(blocks) == 0 {
		return
	}
	var tr rtree.RTreeG[int]
	for i, l := range links {
		if l.URI == "" || l.Rect.IsEmpty() {
			continue
		}
		lo, hi := l.Rect.Bounds()
		tr.Insert(lo, hi, i)
	}
	for bi := range blocks {
		b := &blocks[bi]
		rect := b.BBox.Rect()
		for _, li := range searchSorted(&tr, rect) {
			link := links[li]
			if !rect.Intersects(link.Rect) {
				continue
			}
			var label strings.Builder
			for si := range b.Spans {
				s := &b.Spans[si]
				if s.BBox.Rect().Intersects(link.Rect) {
					s.URI = link.URI
					label.WriteString(s.Text)
				}
			}
			b.Links = append(b.Links, models.Link{
				Text: text.CollapseWhitespace(label.String()),
				URI:  link.URI,
				BBox: models.FromRect(link.Rect),
			})
		}
	}
}

// suppressTableText drops text blocks that lie mostly inside a table.
func suppressTableText(blocks, tables []models.Block, ratio float32) []models.Block {
	var tr rtree.RTreeG[int]
	for i, t := range tables {
		lo, hi := t.BBox.Rect().Bounds()
		tr.Insert(lo, hi, i)
	}
	kept := blocks[:0]
	for _, b := range blocks {
		rect := b.BBox.Rect()
		area := rect.Area()
		covered := false
		if area > 0 {
			for _, ti := range searchSorted(&tr, rect) {
				if rect.IntersectArea(tables[ti].BBox.Rect())/area > ratio {
					covered = true
					break
				}
			}
		}
		if covered {
			Logger.Debug("suppressing text inside table", "text", b.Text())
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func searchSorted(tr *rtree.RTreeG[int], r geometry.Rect) []int {
	lo, hi := r.Bounds()
	var hits []int
	tr.Search(lo, hi, func(_, _ [2]float64, i int) bool {
		hits = append(hits, i)
		return true
	})
	sort.Ints(hits)
	return hits
}

func sortBlocks(blocks []models.Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		bi, bj := &blocks[i], &blocks[j]
		if bi.ColumnIndex != bj.ColumnIndex {
			return bi.ColumnIndex < bj.ColumnIndex
		}
		if d := bi.BBox.Y0() - bj.BBox.Y0(); geometry.Abs32(d) > sortTol {
			return d < 0
		}
		if d := bi.BBox.X0() - bj.BBox.X0(); geometry.Abs32(d) > sortTol {
			return d < 0
		}
		return false
	})
}

func hasVisibleContent(b models.Block) bool {
	switch c := b.Content.(type) {
	case models.TableContent:
		for _, row := range c.Rows {
			for _, cell := range row.Cells {
				for _, s := range cell.Spans {
					if text.HasVisibleContent(s.Text) {
						return true
					}
				}
			}
		}
		return false
	case models.ListContent:
		for _, item := range c.Items {
			if text.HasVisibleContent(item.Text()) {
				return true
			}
		}
		return false
	}
	return text.HasVisibleText(b.Text())
}
