package studentid

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const glyphSize = 21

// glyphs holds the ten synthetic seven-segment digit templates, built
// lazily and cached, per §4.8's "Template-match method". buildGlyphsOnce
// guards the build: MatchTemplate is reached from Grader.BatchGrade's
// worker pool, so first use can race across goroutines without it.
var glyphs [10]gocv.Mat
var buildGlyphsOnce sync.Once

func buildGlyphs() {
	buildGlyphsOnce.Do(func() {
		for d := 0; d < 10; d++ {
			glyphs[d] = drawGlyph(d)
		}
	})
}

// drawGlyph renders a 21x21 black-on-white seven-segment glyph for digit
// d from the same relative segment layout the scorer uses.
func drawGlyph(d int) gocv.Mat {
	m := gocv.NewMatWithSize(glyphSize, glyphSize, gocv.MatTypeCV8UC1)
	m.SetTo(gocv.NewScalar(255, 255, 255, 0))
	for s := segment(0); s < numSegments; s++ {
		if !digitBits[d][s] {
			continue
		}
		l := relativeSegmentLayouts[s]
		x0 := int(l.rect.X * glyphSize)
		y0 := int(l.rect.Y * glyphSize)
		x1 := int((l.rect.X + l.rect.Width) * glyphSize)
		y1 := int((l.rect.Y + l.rect.Height) * glyphSize)
		gocv.Rectangle(&m, image.Rect(x0, y0, x1, y1), gocv.NewScalar(0, 0, 0, 0), -1)
	}
	return m
}

// TemplateMatchResult is the secondary method's per-cell output (§4.8).
type TemplateMatchResult struct {
	Digit      int
	Confidence float64
}

// MatchTemplate runs normalised cross-correlation against each of the ten
// synthetic glyphs and returns the best match.
func MatchTemplate(cell *Cell) TemplateMatchResult {
	buildGlyphs()

	resized := gocv.NewMat()
	gocv.Resize(cell.Mat(), &resized, image.Pt(glyphSize, glyphSize), 0, 0, gocv.InterpolationLinear)
	defer resized.Close()

	normalized := gocv.NewMat()
	gocv.Normalize(resized, &normalized, 0, 255, gocv.NormMinMax)
	defer normalized.Close()

	bestDigit := 0
	bestScore := -2.0
	for d := 0; d < 10; d++ {
		result := gocv.NewMat()
		gocv.MatchTemplate(normalized, glyphs[d], &result, gocv.TmCcoeffNormed, gocv.NewMat())
		_, maxVal, _, _ := gocv.MinMaxLoc(result)
		result.Close()
		if float64(maxVal) > bestScore {
			bestScore = float64(maxVal)
			bestDigit = d
		}
	}
	return TemplateMatchResult{Digit: bestDigit, Confidence: (bestScore + 1) / 2}
}
