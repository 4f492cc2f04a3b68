package studentid

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

func TestCountNonNull(t *testing.T) {
	digits := []Digit{{HasValue: true}, {HasValue: false}, {HasValue: true}}
	if got := countNonNull(digits); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
	if got := countNonNull(nil); got != 0 {
		t.Fatalf("empty: got %d want 0", got)
	}
}

// TestRecognizeStudentIDDigits exercises scenario 6 of the spec's
// testable properties: cells darkened to form a known digit string must
// be recognised end to end through Recognize, with both segment and
// template sequences present on the result.
func TestRecognizeStudentIDDigits(t *testing.T) {
	c := layout.DefaultLayoutConstants()
	th := layout.DefaultDetectorThresholds()

	want := []int{1, 2, 3, 4, 5, 6}
	cellWpx, cellHpx := 70, 100
	canvas := gocv.NewMatWithSize(cellHpx, cellWpx*len(want), gocv.MatTypeCV8UC1)
	defer canvas.Close()
	canvas.SetTo(gocv.NewScalar(255, 255, 255, 0))

	cells := make([]layout.DigitCell, len(want))
	for i, d := range want {
		roi := canvas.Region(image.Rect(i*cellWpx, 0, (i+1)*cellWpx, cellHpx))
		drawDigitOnto(&roi, d, cellWpx, cellHpx)
		roi.Close()

		cellWidthMM := float64(cellWpx) / c.PxPerMM
		cells[i] = layout.DigitCell{
			CellIndex: i,
			Rect: geometry.Rect{
				X:      float64(i) * cellWidthMM, // mm; RectPx scales back to the exact px region drawn above
				Y:      0,
				Width:  cellWidthMM,
				Height: float64(cellHpx) / c.PxPerMM,
			},
		}
	}

	segments, template, primary := Recognize(canvas, cells, c, th)
	if len(segments) != len(want) || len(template) != len(want) || len(primary) != len(want) {
		t.Fatalf("expected %d entries in every sequence, got seg=%d tpl=%d primary=%d", len(want), len(segments), len(template), len(primary))
	}

	for i, d := range want {
		if !primary[i].HasValue {
			t.Fatalf("cell %d: expected a recognised digit", i)
		}
		if primary[i].Value != d {
			t.Fatalf("cell %d: got digit %d want %d", i, primary[i].Value, d)
		}
		if primary[i].Confidence < 0.4 {
			t.Fatalf("cell %d: confidence %v below the spec's 0.4 floor for an accepted digit", i, primary[i].Confidence)
		}
	}
}

// drawDigitOnto paints digit's seven-segment glyph directly onto an
// existing Mat region (as opposed to renderDigitCell, which allocates a
// fresh Mat), mirroring how a real scan would already contain every
// cell in one shared canonical-page grayscale image.
func drawDigitOnto(roi *gocv.Mat, digit int, w, h int) {
	for s := segment(0); s < numSegments; s++ {
		if !digitBits[digit][s] {
			continue
		}
		l := relativeSegmentLayouts[s]
		x0 := int(l.rect.X * float64(w))
		y0 := int(l.rect.Y * float64(h))
		x1 := int((l.rect.X + l.rect.Width) * float64(w))
		y1 := int((l.rect.Y + l.rect.Height) * float64(h))
		gocv.Rectangle(roi, image.Rect(x0, y0, x1, y1), gocv.NewScalar(0, 0, 0, 0), -1)
	}
}
