package pipeline

import (
	"examgrader/internal/bubbles"
	"examgrader/internal/studentid"
)

// OcrResult is the pipeline's sole output, per §3: every detector's raw
// results are retained for inspection alongside the primary selections.
type OcrResult struct {
	BubblesPrimary  []bubbles.Result
	BubblesTemplate []bubbles.Result
	BubblesCircle   []bubbles.Result

	DigitsSegments []studentid.Digit
	DigitsTemplate []studentid.Digit
	DigitsPrimary  []studentid.Digit

	ImageQuality      float64
	OverallConfidence float64
	ProcessingMS      int64
	SheetBoundsFound  bool
}
