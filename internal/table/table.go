package table

import (
	"github.com/pymupdf4llm-c/pagestruct/internal/geometry"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
)

var Logger = logger.GetLogger("table")

const coordScale = 1000.0

type Cell struct {
	BBox     geometry.Rect
	Text     string
	FontSize float32
	Bold     bool
}

type Row struct {
	BBox  geometry.Rect
	Cells []Cell
}

type Table struct {
	BBox geometry.Rect
	Rows []Row
	// Strategy names the detector that produced the table.
	Strategy string
}

type TableArray struct{ Tables []Table }

func (t *Table) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Cells)
}

func (t *Table) updateBounds() {
	t.BBox = geometry.Empty
	for ri := range t.Rows {
		row := &t.Rows[ri]
		row.BBox = geometry.Empty
		for _, c := range row.Cells {
			row.BBox = row.BBox.Union(c.BBox)
		}
		t.BBox = t.BBox.Union(row.BBox)
	}
}

// Params holds the tuned thresholds of the three strategies. Ratios are
// relative to the page width, height or diagonal as named.
type Params struct {
	SnapTolRatio   float64 `yaml:"snap_tol_ratio"`
	JoinTolRatio   float64 `yaml:"join_tol_ratio"`
	IntersectRatio float64 `yaml:"intersect_ratio"`
	MinCellRatio   float32 `yaml:"min_cell_ratio"`
	MaxCellWRatio  float32 `yaml:"max_cell_w_ratio"`
	MaxCellHRatio  float32 `yaml:"max_cell_h_ratio"`
	RowYTolRatio   float32 `yaml:"row_y_tol_ratio"`
	SplitGapRatio  float32 `yaml:"split_gap_ratio"`
	// MaxPageOverflow is how far (pt) a cell may leave the page before it is
	// dropped instead of clipped.
	MaxPageOverflow float32 `yaml:"max_page_overflow"`

	ContainmentCutoff float32 `yaml:"containment_cutoff"`
	IoUCutoff         float32 `yaml:"iou_cutoff"`

	MaxHeightRatio     float32 `yaml:"max_height_ratio"`
	MaxWidthRatio      float32 `yaml:"max_width_ratio"`
	MaxMissingRowRatio float32 `yaml:"max_missing_row_ratio"`

	MinGridEdges              int  `yaml:"min_grid_edges"`
	MaxIntersections          int  `yaml:"max_intersections"`
	AcceptWithoutFourthCorner bool `yaml:"accept_without_fourth_corner"`

	DividerYTol          float64 `yaml:"divider_y_tol"`
	MinDividerBoundaries int     `yaml:"min_divider_boundaries"`
	MaxDividerColumns    int     `yaml:"max_divider_columns"`
	MinColumnGap         float32 `yaml:"min_column_gap"`

	RunGap          float32 `yaml:"run_gap"`
	MinSplitTol     float32 `yaml:"min_split_tol"`
	SplitTolRatio   float32 `yaml:"split_tol_ratio"`
	MinColumnSep    float32 `yaml:"min_column_sep"`
	ColumnSepRatio  float32 `yaml:"column_sep_ratio"`
	MinGroupGap     float32 `yaml:"min_group_gap"`
	MinSynthRows    int     `yaml:"min_synth_rows"`
	MinFullRows     int     `yaml:"min_full_rows"`
	RightWidthRatio float32 `yaml:"right_width_ratio"`

	ColumnBonus float32 `yaml:"column_bonus"`
	RowBonus    float32 `yaml:"row_bonus"`
}

func DefaultParams() Params {
	return Params{
		SnapTolRatio:    0.005,
		JoinTolRatio:    0.005,
		IntersectRatio:  0.0015,
		MinCellRatio:    0.005,
		MaxCellWRatio:   0.95,
		MaxCellHRatio:   0.20,
		RowYTolRatio:    0.015,
		SplitGapRatio:   0.10,
		MaxPageOverflow: 10,

		ContainmentCutoff: 0.9,
		IoUCutoff:         0.6,

		MaxHeightRatio:     0.60,
		MaxWidthRatio:      0.90,
		MaxMissingRowRatio: 0.40,

		MinGridEdges:              3,
		MaxIntersections:          20000,
		AcceptWithoutFourthCorner: true,

		DividerYTol:          2.0,
		MinDividerBoundaries: 3,
		MaxDividerColumns:    32,
		MinColumnGap:         15,

		RunGap:          15,
		MinSplitTol:     12,
		SplitTolRatio:   0.03,
		MinColumnSep:    50,
		ColumnSepRatio:  0.15,
		MinGroupGap:     25,
		MinSynthRows:    3,
		MinFullRows:     2,
		RightWidthRatio: 1.2,

		ColumnBonus: 0.15,
		RowBonus:    0.15,
	}
}

// validate applies the plausibility gates shared by every strategy. missing
// is the number of rows that had fewer cells than the widest row before
// normalization.
func validate(t *Table, page geometry.Rect, missing int, p Params) bool {
	if len(t.Rows) < 2 || t.ColCount() < 2 {
		Logger.Debug("table rejected: too few rows/cols", "rows", len(t.Rows), "cols", t.ColCount())
		return false
	}
	if ph, pw := page.Height(), page.Width(); ph > 0 && pw > 0 {
		hRatio, wRatio := t.BBox.Height()/ph, t.BBox.Width()/pw
		if hRatio > p.MaxHeightRatio || wRatio > p.MaxWidthRatio {
			Logger.Debug("table rejected: too large", "hRatio", hRatio, "wRatio", wRatio)
			return false
		}
	}
	if float32(missing) > float32(len(t.Rows))*p.MaxMissingRowRatio {
		Logger.Debug("table rejected: too many missing rows", "missingRows", missing, "rows", len(t.Rows))
		return false
	}
	return true
}
