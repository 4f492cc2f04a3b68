// Package bubbles implements the two independent bubble detectors (C5, C6)
// and the answer arbiter (C7). The shift-search-then-score structure is
// grounded on the reference tool's gridBasedDetection in contact_grid.go;
// the per-circle confidence scoring borrows the annulus/disk contrast
// idiom from via/detector.go's computeContrast and computeRadialSymmetry.
package bubbles

import (
	"math"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

// ringDarkness implements §4.5's ring_darkness(c, r): one minus the mean
// grayscale in the annulus [1.1r, 1.6r] around c, normalised to [0,1].
func ringDarkness(gray gocv.Mat, c geometry.Point2D, r float64, th layout.DetectorThresholds) float64 {
	inner := r * th.RingInnerFactor
	outer := r * th.RingOuterFactor
	sum, n := annulusSum(gray, c, inner, outer)
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return 1 - mean/255
}

// fill implements §4.5's fill(c, r): the maximum of three signals computed
// on the inner disk and surrounding ring.
func fill(gray, otsu, adaptive gocv.Mat, c geometry.Point2D, r float64, th layout.DetectorThresholds) float64 {
	diskR := r * th.InkDiskFactor

	inkedOtsu := inkedRatio(otsu, c, diskR)
	inkedAdaptive := inkedRatio(adaptive, c, diskR)

	innerSum, innerN := diskSum(gray, c, diskR)
	ringSum, ringN := annulusSum(gray, c, r*th.RingInnerFactor, r*th.RingOuterFactor)
	var ringSignal float64
	if innerN > 0 && ringN > 0 {
		meanInner := innerSum / float64(innerN)
		meanRing := ringSum / float64(ringN)
		if meanRing > 0 {
			ringSignal = th.RingDampFactor * math.Max(0, (meanRing-meanInner)/meanRing)
		}
	}

	best := inkedOtsu
	if inkedAdaptive > best {
		best = inkedAdaptive
	}
	if ringSignal > best {
		best = ringSignal
	}
	return best
}

// inkedRatio returns the fraction of non-zero pixels inside the disk of
// radius r around c on a binary (0/255) Mat.
func inkedRatio(bin gocv.Mat, c geometry.Point2D, r float64) float64 {
	cols, rows := bin.Cols(), bin.Rows()
	cx, cy := int(c.X), int(c.Y)
	ri := int(math.Ceil(r))
	var inked, total int
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) > r*r {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < 0 || x >= cols || y < 0 || y >= rows {
				continue
			}
			total++
			if bin.GetUCharAt(y, x) != 0 {
				inked++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(inked) / float64(total)
}

// diskSum sums grayscale values inside a disk, returning the sum and pixel count.
func diskSum(gray gocv.Mat, c geometry.Point2D, r float64) (float64, int) {
	cols, rows := gray.Cols(), gray.Rows()
	cx, cy := int(c.X), int(c.Y)
	ri := int(math.Ceil(r))
	var sum float64
	var n int
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) > r*r {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < 0 || x >= cols || y < 0 || y >= rows {
				continue
			}
			sum += float64(gray.GetUCharAt(y, x))
			n++
		}
	}
	return sum, n
}

// annulusSum sums grayscale values inside the annulus [inner, outer] around
// c, returning the sum and pixel count.
func annulusSum(gray gocv.Mat, c geometry.Point2D, inner, outer float64) (float64, int) {
	cols, rows := gray.Cols(), gray.Rows()
	cx, cy := int(c.X), int(c.Y)
	ro := int(math.Ceil(outer))
	var sum float64
	var n int
	for dy := -ro; dy <= ro; dy++ {
		for dx := -ro; dx <= ro; dx++ {
			d2 := float64(dx*dx + dy*dy)
			if d2 < inner*inner || d2 > outer*outer {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < 0 || x >= cols || y < 0 || y >= rows {
				continue
			}
			sum += float64(gray.GetUCharAt(y, x))
			n++
		}
	}
	return sum, n
}

// maxFillWithJitter samples fill over a jitter grid around c and returns
// the maximum, per §4.5 step 4.
func maxFillWithJitter(gray, otsu, adaptive gocv.Mat, c geometry.Point2D, r float64, pxPerMM float64, th layout.DetectorThresholds) float64 {
	rangePx := th.JitterRangeMM * pxPerMM
	stepPx := th.JitterStepMM * pxPerMM
	if stepPx <= 0 {
		stepPx = 1
	}
	best := 0.0
	for dy := -rangePx; dy <= rangePx+1e-9; dy += stepPx {
		for dx := -rangePx; dx <= rangePx+1e-9; dx += stepPx {
			p := geometry.Point2D{X: c.X + dx, Y: c.Y + dy}
			f := fill(gray, otsu, adaptive, p, r, th)
			if f > best {
				best = f
			}
		}
	}
	return best
}
