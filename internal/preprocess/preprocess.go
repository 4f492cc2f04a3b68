// Package preprocess implements the image-preprocessing stage (C1): it
// turns a decoded raw-scan Mat into the grayscale and binary derivatives
// every downstream component queries, following the same
// blur→threshold→morphology idiom the reference tool's alignment code
// uses before contour search.
package preprocess

import (
	"image"

	"gocv.io/x/gocv"

	"examgrader/internal/visionio"
)

// Image holds the two derived representations of one scanned page, kept
// alive for the duration of a scan and never mutated after construction.
type Image struct {
	Color  gocv.Mat // original (possibly downsampled) BGR
	Gray   gocv.Mat // single-channel 8-bit grayscale
	Binary gocv.Mat // inverted adaptive-threshold + morphology
}

// Close releases the underlying Mats. Safe to call once the Image is no
// longer needed by any component.
func (img Image) Close() {
	img.Color.Close()
	img.Gray.Close()
	img.Binary.Close()
}

// Preprocess decodes raw image bytes, downsamples if needed, and derives
// the grayscale and binary Mats per §4.1: Gaussian blur (3x3) -> adaptive
// Gaussian threshold (block 11, constant 2, inverted) -> morphological
// opening (2x2 ellipse) -> morphological closing (3x3 ellipse).
func Preprocess(backend visionio.Backend, data []byte) (*Image, error) {
	raw, err := backend.Decode(data)
	if err != nil {
		return nil, err
	}
	color := visionio.ResizeToMaxDim(raw)

	gray := gocv.NewMat()
	gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	gocv.AdaptiveThreshold(blurred, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)
	blurred.Close()

	openKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(2, 2))
	opened := gocv.NewMat()
	gocv.MorphologyEx(binary, &opened, gocv.MorphOpen, openKernel)
	openKernel.Close()
	binary.Close()

	closeKernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, closeKernel)
	closeKernel.Close()
	opened.Close()

	return &Image{Color: color, Gray: gray, Binary: closed}, nil
}
