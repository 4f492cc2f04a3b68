package layout

import (
	"math"

	"examgrader/internal/sheet"
	"examgrader/pkg/geometry"
)

// BubbleExpectation is the derived, per-question geometry the detectors
// search around: the question's box and its bubble centres, all in
// millimetres on the canonical page.
type BubbleExpectation struct {
	QuestionNumber int
	Kind           sheet.QuestionKind
	Options        int
	Letters        []byte
	Box            geometry.Rect // mm
	BubbleCenters  []geometry.Point2D // mm, option order
	RowIndex       int
	ColumnIndex int // 0..4
}

// DigitCell is one expected student-ID digit position on the canonical
// page, in millimetres.
type DigitCell struct {
	CellIndex int
	Rect      geometry.Rect // mm
}

// Grid is the complete derived layout for one exam template: everything
// the bubble and digit detectors need, computed once per scan.
type Grid struct {
	Bubbles []BubbleExpectation
	Digits  []DigitCell
}

// BuildGrid reconstructs the printed-sheet geometry from the template the
// same way contact_grid.go derives expected contact positions from a board
// spec: walk a vertical cursor down the page, accounting for each enabled
// region in turn, emitting one BubbleExpectation per question and one
// DigitCell per student-ID digit. The arithmetic here is the single source
// of truth for the layout contract; a PDF generator targeting this module
// must derive its positions from the same LayoutConstants.
func BuildGrid(t *sheet.ExamTemplate, c LayoutConstants) Grid {
	y := c.StartYMM

	if t.StudentInfoEnabled {
		y += c.StudentInfoBlockMM
	}

	var digits []DigitCell
	if t.StudentIDEnabled && t.StudentIDDigits > 0 {
		y += c.IDLabelLineMM + c.IDInstructionLineMM
		rows := int(math.Ceil(float64(t.StudentIDDigits) / float64(c.IDCellsPerRow)))
		cellTop := y
		for i := 0; i < t.StudentIDDigits; i++ {
			row := i / c.IDCellsPerRow
			col := i % c.IDCellsPerRow
			cellX := c.Margin + float64(col)*(c.IDCellWidthMM+c.IDCellSpacingMM)
			cellY := cellTop + float64(row)*(c.IDCellHeightMM+c.IDCellSpacingMM+c.IDRowExtraMM)
			digits = append(digits, DigitCell{
				CellIndex: i,
				Rect: geometry.Rect{
					X:      cellX,
					Y:      cellY,
					Width:  c.IDCellWidthMM,
					Height: c.IDCellHeightMM,
				},
			})
		}
		y += float64(rows)*(c.IDCellHeightMM+c.IDCellSpacingMM+c.IDRowExtraMM) + c.IDRowTrailMM
		y += c.IDExampleLabelMM + c.IDDigitHeightMM + c.IDTrailingSpaceMM
	}

	y += c.InstructionsLineMM + c.StartMarkerMM

	sections := sheet.BuildSections(t.Questions)

	bubbles := make([]BubbleExpectation, 0, len(t.Questions))
	globalRow := 0
	questionWidth := c.QuestionColumnWidthMM()

	for _, section := range sections {
		y += c.SectionHeaderMM
		rows := int(math.Ceil(float64(len(section.Questions)) / float64(c.QuestionsPerRow)))
		offsets := c.BubbleOffsetsMM(section.Options)

		for i, q := range section.Questions {
			row := i / c.QuestionsPerRow
			col := i % c.QuestionsPerRow

			boxX := c.Margin + float64(col)*questionWidth + c.PaddingMM
			boxY := y + float64(row)*c.RowHeightMM
			boxW := questionWidth - 2*c.PaddingMM
			boxH := c.RowHeightMM - c.PaddingMM

			centerX := boxX + boxW/2
			bubbleY := boxY + c.BubbleRowOffsetMM

			centers := make([]geometry.Point2D, len(offsets))
			for k, off := range offsets {
				centers[k] = geometry.Point2D{X: centerX + off, Y: bubbleY}
			}

			bubbles = append(bubbles, BubbleExpectation{
				QuestionNumber: q.Number,
				Kind:           q.Kind,
				Options:        section.Options,
				Letters:        q.Letters(),
				Box:            geometry.Rect{X: boxX, Y: boxY, Width: boxW, Height: boxH},
				BubbleCenters:  centers,
				RowIndex:       globalRow + row,
				ColumnIndex:    col,
			})
		}

		y += float64(rows)*c.RowHeightMM + c.SectionTrailMM
		globalRow += rows
	}

	return Grid{Bubbles: bubbles, Digits: digits}
}

// BubbleRadiusPx converts the fixed bubble radius to pixels.
func (c LayoutConstants) BubbleRadiusPx() float64 {
	return c.BubbleRadiusMM * c.PxPerMM
}

// MM converts a millimetre value to pixels on the canonical page.
func (c LayoutConstants) MM(mm float64) float64 {
	return mm * c.PxPerMM
}

// PointPx converts an mm point to a pixel point on the canonical page.
func (c LayoutConstants) PointPx(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X * c.PxPerMM, Y: p.Y * c.PxPerMM}
}

// PointPx2DAll converts a slice of mm points to pixel points.
func (c LayoutConstants) PointPx2DAll(pts []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = c.PointPx(p)
	}
	return out
}

// RectPx converts an mm rect to a pixel rect on the canonical page.
func (c LayoutConstants) RectPx(r geometry.Rect) geometry.Rect {
	return geometry.Rect{
		X: r.X * c.PxPerMM, Y: r.Y * c.PxPerMM,
		Width: r.Width * c.PxPerMM, Height: r.Height * c.PxPerMM,
	}
}

// CanvasSizePx returns the canonical page size in pixels.
func (c LayoutConstants) CanvasSizePx() (int, int) {
	return int(math.Round(c.PageWidthMM * c.PxPerMM)), int(math.Round(c.PageHeightMM * c.PxPerMM))
}
