package bridge

import "github.com/pymupdf4llm-c/pagestruct/internal/geometry"

// thinStroke is the largest side a filled rectangle may have and still be
// read as a single ruling line.
const thinStroke = 3.0

// EdgesFromRect turns a stroked or filled path box into rulings. A thin box is
// one ruling through its middle; any other box contributes its four sides.
// Boxes smaller than a stroke in both directions are dots and yield nothing.
func EdgesFromRect(r geometry.Rect) []geometry.Edge {
	w, h := float64(r.Width()), float64(r.Height())
	x0, y0, x1, y1 := float64(r.X0), float64(r.Y0), float64(r.X1), float64(r.Y1)
	switch {
	case w < 0 || h < 0:
		return nil
	case h <= thinStroke && w >= thinStroke:
		y := (y0 + y1) / 2
		return []geometry.Edge{{X0: x0, Y0: y, X1: x1, Y1: y, Orientation: geometry.Horizontal}}
	case w <= thinStroke && h >= thinStroke:
		x := (x0 + x1) / 2
		return []geometry.Edge{{X0: x, Y0: y0, X1: x, Y1: y1, Orientation: geometry.Vertical}}
	case w < thinStroke && h < thinStroke:
		return nil
	}
	return []geometry.Edge{
		{X0: x0, Y0: y0, X1: x1, Y1: y0, Orientation: geometry.Horizontal},
		{X0: x0, Y0: y1, X1: x1, Y1: y1, Orientation: geometry.Horizontal},
		{X0: x0, Y0: y0, X1: x0, Y1: y1, Orientation: geometry.Vertical},
		{X0: x1, Y0: y0, X1: x1, Y1: y1, Orientation: geometry.Vertical},
	}
}

// CaptureEdges applies EdgesFromRect to every box, dropping boxes that lie
// entirely outside the page.
func CaptureEdges(boxes []geometry.Rect, page geometry.Rect) []geometry.Edge {
	var edges []geometry.Edge
	for _, b := range boxes {
		if !page.IsEmpty() && !page.Expand(1).Intersects(b.Expand(0.5)) {
			continue
		}
		edges = append(edges, EdgesFromRect(b)...)
	}
	return edges
}
