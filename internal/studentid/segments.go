// Package studentid implements the student-ID recognizer (C8): a
// closed-set seven-segment digit classifier (no free-text OCR), with a
// template-matching secondary method. It is grounded on the threshold-
// accept/confidence-formula idiom of the reference tool's
// via.ViaClassifier scoring (the learned-model training half of that file
// is explicitly out of scope; only its deterministic accept/score shape
// carries over) and on via/detector.go's contrast-from-two-strips pattern
// (computeContrast's inner-disk-vs-annulus idea, generalised here to a
// segment-vs-background-strip comparison).
package studentid

import (
	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

// segment names the seven bars of a seven-segment digit glyph.
type segment int

const (
	segA segment = iota // top bar
	segB                // upper right vertical
	segC                // lower right vertical
	segD                // bottom bar
	segE                // upper left vertical
	segF                // lower left vertical
	segG                // middle bar
	numSegments
)

// segmentOrientation is horizontal (bar) or vertical.
type segmentOrientation int

const (
	horizontal segmentOrientation = iota
	vertical
)

// segmentLayout describes one segment's relative bounding box inside a
// normalised [0,1]x[0,1] cell, and which axis its background strips sit
// along (§4.8 step 2).
type segmentLayout struct {
	rect        geometry.Rect // relative, 0..1
	orientation segmentOrientation
}

// relativeSegmentLayouts matches the printed glyph layout named in §4.8:
// top bar ~12% of cell height, middle ~50%, bottom ~88%, verticals ~26% tall.
var relativeSegmentLayouts = map[segment]segmentLayout{
	segA: {rect: geometry.Rect{X: 0.20, Y: 0.06, Width: 0.60, Height: 0.12}, orientation: horizontal},
	segG: {rect: geometry.Rect{X: 0.20, Y: 0.44, Width: 0.60, Height: 0.12}, orientation: horizontal},
	segD: {rect: geometry.Rect{X: 0.20, Y: 0.82, Width: 0.60, Height: 0.12}, orientation: horizontal},
	segB: {rect: geometry.Rect{X: 0.68, Y: 0.15, Width: 0.18, Height: 0.26}, orientation: vertical},
	segC: {rect: geometry.Rect{X: 0.68, Y: 0.56, Width: 0.18, Height: 0.26}, orientation: vertical},
	segE: {rect: geometry.Rect{X: 0.14, Y: 0.15, Width: 0.18, Height: 0.26}, orientation: vertical},
	segF: {rect: geometry.Rect{X: 0.14, Y: 0.56, Width: 0.18, Height: 0.26}, orientation: vertical},
}

// digitBits is the §4.8 truth table, on-bit per segment A..G.
var digitBits = [10][numSegments]bool{
	0: {true, true, true, false, true, true, false},
	1: {false, true, true, false, false, false, false},
	2: {true, true, false, true, true, false, true},
	3: {true, true, true, true, false, false, true},
	4: {false, true, true, true, false, true, false},
	5: {true, false, true, true, false, true, true},
	6: {true, false, true, true, true, true, true},
	7: {true, true, true, false, false, false, false},
	8: {true, true, true, true, true, true, true},
	9: {true, true, true, true, false, true, true},
}

// segmentScore holds one segment's contrast (background-strip mean minus
// segment mean) and that contrast clamped to ±SegmentContrastCap.
type segmentScore struct {
	rawContrast float64
	capped      float64
}

func scoreSegments(cell *Cell, th layout.DetectorThresholds) [numSegments]segmentScore {
	var scores [numSegments]segmentScore
	for s := segment(0); s < numSegments; s++ {
		l := relativeSegmentLayouts[s]
		segMean := cell.MeanInRect(l.rect)
		bgMean := backgroundMean(cell, l, th)
		raw := bgMean - segMean
		capped := raw
		if capped > th.SegmentContrastCap {
			capped = th.SegmentContrastCap
		}
		if capped < -th.SegmentContrastCap {
			capped = -th.SegmentContrastCap
		}
		scores[s] = segmentScore{rawContrast: raw, capped: capped}
	}
	return scores
}

// backgroundMean averages the two strips flanking a segment along its
// long axis, each offset by ~1.8x the segment's thickness (§4.8 step 3).
func backgroundMean(cell *Cell, l segmentLayout, th layout.DetectorThresholds) float64 {
	r := l.rect
	if l.orientation == horizontal {
		pad := r.Height * th.SegmentStripPadFactor
		above := geometry.Rect{X: r.X, Y: r.Y - pad - r.Height, Width: r.Width, Height: r.Height}
		below := geometry.Rect{X: r.X, Y: r.Y + r.Height + pad, Width: r.Width, Height: r.Height}
		return (cell.MeanInRect(above) + cell.MeanInRect(below)) / 2
	}
	pad := r.Width * th.SegmentStripPadFactor
	left := geometry.Rect{X: r.X - pad - r.Width, Y: r.Y, Width: r.Width, Height: r.Height}
	right := geometry.Rect{X: r.X + r.Width + pad, Y: r.Y, Width: r.Width, Height: r.Height}
	return (cell.MeanInRect(left) + cell.MeanInRect(right)) / 2
}

// Classify implements §4.8 steps 4-6: pick the best-scoring digit from the
// truth table and decide acceptance and confidence.
func Classify(scores [numSegments]segmentScore, th layout.DetectorThresholds) (digit int, ok bool, confidence float64) {
	bestDigit := -1
	bestScore := 0.0
	for d := 0; d < 10; d++ {
		onSum, onN, offSum, offN := 0.0, 0, 0.0, 0
		for s := segment(0); s < numSegments; s++ {
			if digitBits[d][s] {
				onSum += scores[s].capped
				onN++
			} else {
				offSum += scores[s].capped
				offN++
			}
		}
		score := onSum/float64(onN) - offSum/float64(offN)
		if bestDigit < 0 || score > bestScore {
			bestDigit = d
			bestScore = score
		}
	}
	if bestDigit < 0 {
		return 0, false, 0
	}

	strongCount := 0
	maxOffContrast := 0.0
	for s := segment(0); s < numSegments; s++ {
		if digitBits[bestDigit][s] && scores[s].rawContrast >= th.SegmentStrongContrast {
			strongCount++
		}
		if !digitBits[bestDigit][s] && scores[s].rawContrast > maxOffContrast {
			maxOffContrast = scores[s].rawContrast
		}
	}

	accept := bestScore >= th.SegmentAcceptScore && strongCount >= 1
	if !accept && strongCount == 1 && bestScore >= th.SegmentEscapeScore && maxOffContrast < th.SegmentEscapeOffMax {
		accept = true
	}
	if !accept {
		return bestDigit, false, 0
	}

	if strongCount >= 2 {
		confidence = clamp01(bestScore / th.SegmentConfidenceScale)
	} else {
		confidence = 0.4
	}
	return bestDigit, true, confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
