package pipeline

import (
	"image"

	"gocv.io/x/gocv"
)

// toGray converts a BGR canonical-page Mat to single-channel grayscale.
func toGray(color gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)
	return gray
}

// toBinary derives the same blur->adaptive-threshold->morphology binary
// image the preprocessor produces for the raw scan, applied here to the
// canonical (rectified or resized) page so the detectors always have a
// binary view matching the page they actually search.
func toBinary(gray gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	gocv.AdaptiveThreshold(blurred, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)

	openKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(2, 2))
	defer openKernel.Close()
	opened := gocv.NewMat()
	gocv.MorphologyEx(binary, &opened, gocv.MorphOpen, openKernel)
	binary.Close()

	closeKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer closeKernel.Close()
	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, closeKernel)
	opened.Close()

	return closed
}

// resizeTo resizes src to exactly (w, h), used when markers were not
// found and the page is used un-rectified at canonical-canvas size.
func resizeTo(src gocv.Mat, w, h int) gocv.Mat {
	out := gocv.NewMat()
	gocv.Resize(src, &out, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	return out
}
