// Package column partitions a page into reading columns from the horizontal
// occupancy of its blocks.
package column

import (
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
)

var Logger = logger.GetLogger("column")

type BlockWithColumn interface {
	GetBBox() models.BBox
	SetColumnIndex(idx int)
}

type Params struct {
	Bins int `yaml:"bins"`
	// MaxSpanRatio excludes blocks wider than this share of the content
	// width from detection; they are presumed to span every column.
	MaxSpanRatio    float32 `yaml:"max_span_ratio"`
	MinBlockWidth   float32 `yaml:"min_block_width"`
	GapThreshold    float32 `yaml:"gap_threshold"`
	MinContentWidth float32 `yaml:"min_content_width"`
	MinOverlap      float32 `yaml:"min_overlap"`
	MaxColumns      int     `yaml:"max_columns"`
}

func DefaultParams() Params {
	return Params{
		Bins:            1000,
		MaxSpanRatio:    0.6,
		MinBlockWidth:   10,
		GapThreshold:    15,
		MinContentWidth: 100,
		MinOverlap:      10,
		MaxColumns:      8,
	}
}

// Range is a column band in page coordinates.
type Range struct{ X0, X1 float32 }

// DetectAndAssignColumns sets a 1-based column index on every block, or 0
// for blocks that cross columns and for pages with a single column.
func DetectAndAssignColumns(blocks []BlockWithColumn, p Params) []Range {
	if len(blocks) == 0 {
		return nil
	}
	minX, maxX := findBlockBounds(blocks)
	width := maxX - minX
	if width < p.MinContentWidth {
		assignAllToColumn(blocks, 0)
		return nil
	}
	columns := detectColumns(blocks, minX, width, p)
	if len(columns) <= 1 {
		assignAllToColumn(blocks, 0)
		return columns
	}
	Logger.Debug("columns detected", "count", len(columns))
	assignBlocksToColumns(blocks, columns, p)
	return columns
}

func detectColumns(blocks []BlockWithColumn, minX, width float32, p Params) []Range {
	bins := p.Bins
	if bins < 2 {
		bins = 2
	}
	scale := float32(bins-1) / width
	toBin := func(x float32) uint64 {
		return uint64(geometry.Clamp(int((x-minX)*scale), 0, bins-1))
	}
	toX := func(bin uint32) float32 { return minX + float32(bin)/scale }

	occupied := roaring.New()
	for _, b := range blocks {
		bbox := b.GetBBox()
		if bw := bbox.Width(); bw > width*p.MaxSpanRatio || bw <= p.MinBlockWidth {
			continue
		}
		occupied.AddRange(toBin(bbox.X0()), toBin(bbox.X1())+1)
	}
	if occupied.IsEmpty() {
		return nil
	}

	first, last := occupied.Minimum(), occupied.Maximum()
	gaps := roaring.Flip(occupied, uint64(first), uint64(last)+1)
	gapBins := uint32(math.Max(1, float64(p.GapThreshold*scale)))

	var columns []Range
	start := first
	addColumn := func(end uint32) {
		if len(columns) < p.MaxColumns {
			columns = append(columns, Range{X0: toX(start), X1: toX(end)})
		}
	}
	it := gaps.Iterator()
	for it.HasNext() {
		g0 := it.Next()
		g1 := g0
		for it.HasNext() && it.PeekNext() == g1+1 {
			g1 = it.Next()
		}
		if g1-g0+1 >= gapBins {
			addColumn(g0 - 1)
			start = g1 + 1
		}
	}
	addColumn(last)
	return columns
}

// assignBlocksToColumns gives a block the single column it overlaps
// significantly. A block overlapping several is global flow (0); one
// overlapping none goes to the column nearest its center.
func assignBlocksToColumns(blocks []BlockWithColumn, columns []Range, p Params) {
	for _, b := range blocks {
		bbox := b.GetBBox()
		bx0, bx1 := bbox.X0(), bbox.X1()
		need := geometry.Min32(p.MinOverlap, (bx1-bx0)/2)
		hits, col := 0, 0
		for c, r := range columns {
			if overlap := geometry.Min32(bx1, r.X1) - geometry.Max32(bx0, r.X0); overlap > need {
				hits++
				col = c + 1
			}
		}
		switch hits {
		case 0:
			b.SetColumnIndex(nearestColumn(columns, (bx0+bx1)/2))
		case 1:
			b.SetColumnIndex(col)
		default:
			b.SetColumnIndex(0)
		}
	}
}

func nearestColumn(columns []Range, cx float32) int {
	best, bestDist := 0, float32(math.MaxFloat32)
	for c, r := range columns {
		if d := geometry.Abs32(cx - (r.X0+r.X1)/2); d < bestDist {
			best, bestDist = c+1, d
		}
	}
	return best
}

func findBlockBounds(blocks []BlockWithColumn) (minX, maxX float32) {
	minX, maxX = math.MaxFloat32, -math.MaxFloat32
	for _, b := range blocks {
		bbox := b.GetBBox()
		minX, maxX = geometry.Min32(minX, bbox.X0()), geometry.Max32(maxX, bbox.X1())
	}
	return
}

func assignAllToColumn(blocks []BlockWithColumn, col int) {
	for _, b := range blocks {
		b.SetColumnIndex(col)
	}
}
