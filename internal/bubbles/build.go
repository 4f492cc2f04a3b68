package bubbles

import (
	"examgrader/internal/layout"
)

// buildRows converts a layout.Grid's mm-space bubble expectations into
// pixel-space rows grouped by the grid's global row index, the unit the
// two detectors operate in.
func buildRows(bubbleGrid []layout.BubbleExpectation, c layout.LayoutConstants) []rowGroup {
	byRow := map[int][]questionPx{}
	var order []int
	for _, b := range bubbleGrid {
		q := questionPx{
			number:  b.QuestionNumber,
			letters: b.Letters,
			box:     c.RectPx(b.Box),
			centers: c.PointPx2DAll(b.BubbleCenters),
		}
		if _, ok := byRow[b.RowIndex]; !ok {
			order = append(order, b.RowIndex)
		}
		byRow[b.RowIndex] = append(byRow[b.RowIndex], q)
	}
	rows := make([]rowGroup, 0, len(order))
	for _, idx := range order {
		rows = append(rows, rowGroup{rowIndex: idx, questions: byRow[idx]})
	}
	return rows
}
