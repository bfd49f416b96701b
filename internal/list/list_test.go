package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pymupdf4llm-c/pagestruct/internal/models"
)

func listBlock(x, y float32, lines ...string) models.Block {
	txt := ""
	for i, l := range lines {
		if i > 0 {
			txt += "\n"
		}
		txt += l
	}
	return models.Block{
		BBox:     models.BBox{x, y, x + 200, y + 10*float32(len(lines))},
		FontSize: 10,
		Lines:    len(lines),
		Spans:    []models.Span{{Text: txt, FontSize: 10}},
		Content:  models.ListContent{},
	}
}

func paragraph(y float32, s string) models.Block {
	return models.Block{
		BBox:     models.BBox{72, y, 300, y + 10},
		FontSize: 10,
		Lines:    1,
		Spans:    []models.Span{{Text: s}},
		Content:  models.Paragraph{},
	}
}

func TestConsolidateThreeBullets(t *testing.T) {
	blocks := []models.Block{
		paragraph(80, "Shopping:"),
		listBlock(72, 100, "• Apples"),
		listBlock(72, 114, "• Pears"),
		listBlock(72, 128, "\uf0b7 Plums"),
		paragraph(150, "Done."),
	}
	out := Consolidate(blocks, DefaultParams())
	require.Len(t, out, 3)
	assert.Equal(t, models.BlockText, out[0].Type())
	assert.Equal(t, models.BlockText, out[2].Type())

	lc, ok := out[1].List()
	require.True(t, ok)
	require.Len(t, lc.Items, 3)
	for i, want := range []string{"Apples", "Pears", "Plums"} {
		item := lc.Items[i]
		assert.Equal(t, want, item.Text())
		assert.Equal(t, "•", item.Prefix)
		assert.Equal(t, models.Bulleted, item.ListType)
		assert.Equal(t, 0, item.Indent)
	}
	assert.Equal(t, models.BBox{72, 100, 272, 138}, out[1].BBox)
	assert.Equal(t, 3, out[1].Lines)
	assert.Empty(t, out[1].Spans)
}

func TestConsolidateNumberedAndContinuation(t *testing.T) {
	out := Consolidate([]models.Block{
		listBlock(72, 100, "1. First step", "with more detail", "10) Tenth   step"),
		listBlock(72, 140, "a. Lettered"),
	}, DefaultParams())
	require.Len(t, out, 1)
	lc, _ := out[0].List()
	require.Len(t, lc.Items, 3)
	assert.Equal(t, "First step with more detail", lc.Items[0].Text())
	assert.Equal(t, "1.", lc.Items[0].Prefix)
	assert.Equal(t, models.Numbered, lc.Items[0].ListType)
	assert.Equal(t, "Tenth step", lc.Items[1].Text())
	assert.Equal(t, "10)", lc.Items[1].Prefix)
	assert.Equal(t, "a.", lc.Items[2].Prefix)
}

func TestConsolidateBreaks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []models.Block
		lists  int
	}{
		{"large gap", []models.Block{listBlock(72, 100, "• a"), listBlock(72, 200, "• b")}, 2},
		{"gap at minimum", []models.Block{listBlock(72, 100, "• a"), listBlock(72, 130, "• b")}, 1},
		{"interrupted", []models.Block{listBlock(72, 100, "• a"), paragraph(112, "text"), listBlock(72, 124, "• b")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lists := 0
			for _, b := range Consolidate(tt.blocks, DefaultParams()) {
				if b.Type() == models.BlockList {
					lists++
				}
			}
			assert.Equal(t, tt.lists, lists)
		})
	}
}

func TestConsolidateColumnBreak(t *testing.T) {
	a, b := listBlock(72, 100, "• left"), listBlock(72, 112, "• right")
	a.ColumnIndex, b.ColumnIndex = 1, 2
	assert.Len(t, Consolidate([]models.Block{a, b}, DefaultParams()), 2)
}

func TestConsolidateIndent(t *testing.T) {
	out := Consolidate([]models.Block{
		listBlock(72, 100, "• top"),
		listBlock(92, 112, "• nested"),
		listBlock(400, 124, "• far"),
	}, DefaultParams())
	require.Len(t, out, 1)
	lc, _ := out[0].List()
	require.Len(t, lc.Items, 3)
	assert.Equal(t, []int{0, 1, 6}, []int{lc.Items[0].Indent, lc.Items[1].Indent, lc.Items[2].Indent})
}

func TestConsolidateDropsInvisible(t *testing.T) {
	out := Consolidate([]models.Block{listBlock(72, 100, "•", "•  ")}, DefaultParams())
	assert.Empty(t, out)
}
