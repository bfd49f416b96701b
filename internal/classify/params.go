package classify

// Params holds the classification and run-splitting thresholds. Sizes are
// in points; ratios are fractions of the glyph count unless noted.
type Params struct {
	HeadingSizeRatio    float32 `yaml:"heading_size_ratio"`
	MaxHeadingChars     int     `yaml:"max_heading_chars"`
	MaxCapsHeadingChars int     `yaml:"max_caps_heading_chars"`
	SizedBoldRatio      float32 `yaml:"sized_bold_ratio"`
	BoldHeadingRatio    float32 `yaml:"bold_heading_ratio"`
	MaxBoldHeadingChars int     `yaml:"max_bold_heading_chars"`
	MaxBoldHeadingLines int     `yaml:"max_bold_heading_lines"`
	// VetoSizedHeadings extends the trailing punctuation veto to candidates
	// qualified by font size alone, so a large sentence ending in "." stays a
	// paragraph. Turning it off exempts size-qualified candidates from the
	// veto. Prefix and keyword headings are never vetoed.
	VetoSizedHeadings bool `yaml:"veto_sized_headings"`

	Level1Size float32 `yaml:"level1_size"`
	Level2Size float32 `yaml:"level2_size"`
	Level3Size float32 `yaml:"level3_size"`

	CodeMonoRatio float32 `yaml:"code_mono_ratio"`
	MinCodeLines  int     `yaml:"min_code_lines"`

	FootnoteSuperRatio float32 `yaml:"footnote_super_ratio"`
	MaxFootnoteChars   int     `yaml:"max_footnote_chars"`
	// ScriptShift is the vertical offset, relative to the glyph size, past
	// which a glyph counts as raised or lowered.
	ScriptShift float32 `yaml:"script_shift"`

	BoldLineRatio float32 `yaml:"bold_line_ratio"`
	// Line gaps below are relative to the line's average glyph size.
	BoldEndGap float32 `yaml:"bold_end_gap"`
	SizeJump   float32 `yaml:"size_jump"`
	MaxLineGap float32 `yaml:"max_line_gap"`
	JoinGap    float32 `yaml:"join_gap"`
}

func DefaultParams() Params {
	return Params{
		HeadingSizeRatio:    1.25,
		MaxHeadingChars:     160,
		MaxCapsHeadingChars: 200,
		SizedBoldRatio:      0.35,
		BoldHeadingRatio:    0.8,
		MaxBoldHeadingChars: 80,
		MaxBoldHeadingLines: 2,
		VetoSizedHeadings:   true,

		Level1Size: 18,
		Level2Size: 14,
		Level3Size: 12,

		CodeMonoRatio: 0.8,
		MinCodeLines:  2,

		FootnoteSuperRatio: 0.5,
		MaxFootnoteChars:   100,
		ScriptShift:        0.3,

		BoldLineRatio: 0.70,
		BoldEndGap:    1.2,
		SizeJump:      0.5,
		MaxLineGap:    1.5,
		JoinGap:       0.2,
	}
}
