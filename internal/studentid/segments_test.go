package studentid

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
)

// renderDigitCell draws a synthetic seven-segment digit glyph (black bars
// on a white cell), the same way template.go's drawGlyph does but at
// canonical student-ID cell resolution (70x100px, matching
// IDCellWidthMM x IDCellHeightMM at 10 px/mm), so Classify can be
// exercised against a known ground-truth digit without a real scan.
func renderDigitCell(digit int, w, h int) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
	m.SetTo(gocv.NewScalar(255, 255, 255, 0))
	for s := segment(0); s < numSegments; s++ {
		if !digitBits[digit][s] {
			continue
		}
		l := relativeSegmentLayouts[s]
		x0 := int(l.rect.X * float64(w))
		y0 := int(l.rect.Y * float64(h))
		x1 := int((l.rect.X + l.rect.Width) * float64(w))
		y1 := int((l.rect.Y + l.rect.Height) * float64(h))
		gocv.Rectangle(&m, image.Rect(x0, y0, x1, y1), gocv.NewScalar(0, 0, 0, 0), -1)
	}
	return m
}

func TestClassifyRecognizesEachDigit(t *testing.T) {
	th := layout.DefaultDetectorThresholds()
	for digit := 0; digit < 10; digit++ {
		mat := renderDigitCell(digit, 70, 100)
		cell := &Cell{gray: mat}
		scores := scoreSegments(cell, th)
		cell.Close()

		got, ok, conf := Classify(scores, th)
		if !ok {
			t.Fatalf("digit %d: expected acceptance", digit)
		}
		if got != digit {
			t.Fatalf("digit %d: classified as %d", digit, got)
		}
		if conf <= 0 || conf > 1 {
			t.Fatalf("digit %d: confidence %v out of (0,1]", digit, conf)
		}
	}
}

func TestClassifyBlankCellRejected(t *testing.T) {
	th := layout.DefaultDetectorThresholds()
	mat := gocv.NewMatWithSize(100, 70, gocv.MatTypeCV8UC1)
	mat.SetTo(gocv.NewScalar(255, 255, 255, 0))
	cell := &Cell{gray: mat}
	scores := scoreSegments(cell, th)
	cell.Close()

	_, ok, conf := Classify(scores, th)
	if ok {
		t.Fatal("expected blank cell to be rejected")
	}
	if conf != 0 {
		t.Fatalf("expected zero confidence on rejection, got %v", conf)
	}
}

func TestMatchTemplateRecognizesDigit(t *testing.T) {
	for _, digit := range []int{0, 1, 8} {
		mat := renderDigitCell(digit, 70, 100)
		cell := &Cell{gray: mat}
		result := MatchTemplate(cell)
		cell.Close()

		if result.Digit != digit {
			t.Fatalf("digit %d: template match returned %d (confidence %v)", digit, result.Digit, result.Confidence)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Fatalf("digit %d: confidence %v out of [0,1]", digit, result.Confidence)
		}
	}
}
