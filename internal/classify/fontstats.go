package classify

import (
	"math"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
)

const (
	sizeBins    = 512
	defaultSize = 12.0
)

// FontStats is a histogram of glyph sizes rounded to whole points.
type FontStats struct {
	counts     [sizeBins]int
	totalSize  float64
	totalChars int
}

// PageMetrics are the size references used by classification.
type PageMetrics struct {
	BodySize   float32
	MedianSize float32
}

func (f *FontStats) Add(size float32) {
	if size <= 0 || math.IsNaN(float64(size)) {
		return
	}
	idx := geometry.Clamp(int(math.Round(float64(size))), 0, sizeBins-1)
	f.counts[idx]++
	f.totalSize += float64(size)
	f.totalChars++
}

func (f *FontStats) Count() int { return f.totalChars }

// Mode is the most frequent rounded size; the smallest wins ties.
func (f *FontStats) Mode() float32 {
	if f.totalChars == 0 {
		return defaultSize
	}
	bestIdx, bestCount := 0, 0
	for i, c := range f.counts {
		if c > bestCount {
			bestCount, bestIdx = c, i
		}
	}
	if bestIdx == 0 {
		return float32(f.totalSize / float64(f.totalChars))
	}
	return float32(bestIdx)
}

func (f *FontStats) Median() float32 {
	if f.totalChars == 0 {
		return defaultSize
	}
	mid, cum := f.totalChars/2, 0
	for i, c := range f.counts {
		if cum += c; cum > mid {
			if i == 0 {
				break
			}
			return float32(i)
		}
	}
	return float32(f.totalSize / float64(f.totalChars))
}

func (f *FontStats) Metrics() PageMetrics {
	return PageMetrics{BodySize: f.Mode(), MedianSize: f.Median()}
}

// Collect builds the size histogram of every glyph on the page.
func Collect(raw *bridge.RawPageData) *FontStats {
	stats := &FontStats{}
	for _, ch := range raw.Chars {
		if ch.Codepoint != 0 {
			stats.Add(ch.Size)
		}
	}
	return stats
}
