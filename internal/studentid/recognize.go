package studentid

import (
	"gocv.io/x/gocv"

	"examgrader/internal/layout"
)

// Digit is one cell's recognised value, per §3's DigitRecognition.
type Digit struct {
	CellIndex  int
	Value      int // -1 if none
	HasValue   bool
	Confidence float64
}

// Recognize runs both the segment and template-match methods over every
// digit cell and returns all three sequences named in §3's OcrResult
// (segments, template, primary), selecting the primary by whichever
// method produced more non-null digits (§4.8's "Primary selection").
func Recognize(gray gocv.Mat, cells []layout.DigitCell, c layout.LayoutConstants, th layout.DetectorThresholds) (segments, template, primary []Digit) {
	segments = make([]Digit, len(cells))
	template = make([]Digit, len(cells))

	for i, dc := range cells {
		cell := NewCell(gray, c.RectPx(dc.Rect))
		scores := scoreSegments(cell, th)
		digit, ok, conf := Classify(scores, th)
		segments[i] = Digit{CellIndex: dc.CellIndex, Value: digit, HasValue: ok, Confidence: conf}

		tm := MatchTemplate(cell)
		template[i] = Digit{CellIndex: dc.CellIndex, Value: tm.Digit, HasValue: tm.Confidence > 0, Confidence: tm.Confidence}

		cell.Close()
	}

	if countNonNull(segments) >= countNonNull(template) {
		primary = segments
	} else {
		primary = template
	}
	return segments, template, primary
}

func countNonNull(digits []Digit) int {
	n := 0
	for _, d := range digits {
		if d.HasValue {
			n++
		}
	}
	return n
}
