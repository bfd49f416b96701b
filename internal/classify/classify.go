// Package classify groups decoder lines into runs and assigns each run a
// semantic block type.
package classify

import (
	"strings"

	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
	"github.com/pymupdf4llm-c/pagestruct/internal/text"
)

var Logger = logger.GetLogger("classify")

// Classify decides the content type of a run. Paragraph, heading and
// footnote runs have their line breaks folded into spaces, joining words
// hyphenated across lines, so run.Text and run.Spans may be rewritten.
func Classify(run *Run, m PageMetrics, p Params) models.Content {
	c := classify(run, m, p)
	switch c.(type) {
	case models.Paragraph, models.Heading, models.Footnote:
		run.Text = strings.ReplaceAll(text.JoinHyphenated(run.Text), "\n", " ")
		run.Spans = joinSpanLines(run.Spans, true)
		run.Chars = text.CountUnicodeChars(run.Text)
	}
	return c
}

func classify(run *Run, m PageMetrics, p Params) models.Content {
	txt, n := run.Text, run.Chars
	if run.Lines > 1 && text.StartsWithBullet(txt) {
		return models.ListContent{}
	}
	if isFootnote(run, m, p) {
		return models.Footnote{}
	}

	sized := run.AvgSize >= m.MedianSize*p.HeadingSizeRatio && n > 0 && n <= p.MaxHeadingChars
	prefixed := text.StartsWithNumericHeading(txt) || text.StartsWithHeadingKeyword(txt)
	heading := sized || prefixed || (text.IsAllCaps(txt) && n > 0 && n <= p.MaxCapsHeadingChars)
	if sized && run.BoldRatio >= p.SizedBoldRatio {
		heading = true
	}
	if run.BoldRatio >= p.BoldHeadingRatio && n > 0 && n <= p.MaxBoldHeadingChars && run.Lines <= p.MaxBoldHeadingLines {
		heading = true
	}
	if heading && text.EndsWithPunctuation(txt) && !prefixed && (p.VetoSizedHeadings || !sized) {
		Logger.Debug("heading vetoed by trailing punctuation", "text", truncate(txt, 40))
		heading = false
	}
	if heading {
		return models.Heading{Level: headingLevel(run.AvgSize, p)}
	}

	if text.StartsWithBullet(txt) {
		return models.ListContent{}
	}
	if n == 0 || !text.HasVisibleText(txt) {
		return models.Other{}
	}
	if run.MonoRatio >= p.CodeMonoRatio && run.Lines >= p.MinCodeLines {
		return models.Code{}
	}
	return models.Paragraph{}
}

// isFootnote matches short runs set no larger than the median size that are
// mostly raised or open with a raised marker.
func isFootnote(run *Run, m PageMetrics, p Params) bool {
	if run.Chars == 0 || run.Chars >= p.MaxFootnoteChars || run.AvgSize > m.MedianSize {
		return false
	}
	return run.SuperRatio > p.FootnoteSuperRatio || run.FirstSuper
}

func headingLevel(size float32, p Params) int {
	switch {
	case size >= p.Level1Size:
		return 1
	case size >= p.Level2Size:
		return 2
	case size >= p.Level3Size:
		return 3
	}
	return 4
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
