// Package quality implements the quality reporter (C9): a cheap
// sharpness/contrast estimate that flags scans likely to produce
// unreliable bubble and digit detections. Grounded on the reference
// tool's via/detector.go, which uses the same stddev-over-a-derived-image
// idiom (computeRadialSymmetry's coefficient of variation) to turn a raw
// signal into a bounded confidence score.
package quality

import (
	"math"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
)

// Score implements §4.9: sharpness is the stddev of a 64-bit Laplacian of
// the grayscale image; contrast is the stddev of the grayscale image
// itself. Both are folded into image_quality ∈ [0,1], penalised by
// th.MarkerFailurePenalty if the marker locator (C2) failed.
func Score(gray gocv.Mat, markersOK bool, th layout.DetectorThresholds) float64 {
	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.LaplacianWithParams(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	sharpness := stddev(laplacian)
	contrast := stddev(gray)

	q := th.SharpnessWeight*math.Min(1, sharpness/th.SharpnessScale) + th.ContrastWeight*math.Min(1, contrast/th.ContrastScale)
	if !markersOK {
		q *= th.MarkerFailurePenalty
	}
	return clamp01(q)
}

func stddev(m gocv.Mat) float64 {
	mean, std := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer std.Close()
	gocv.MeanStdDev(m, &mean, &std)
	if std.Rows() == 0 {
		return 0
	}
	return std.GetDoubleAt(0, 0)
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
