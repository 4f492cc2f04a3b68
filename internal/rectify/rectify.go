// Package rectify implements the page rectifier (C3): given the four
// fiducial corners found by markers.Locate, it warps the raw scan onto a
// fixed-size canonical page. It generalises the reference tool's affine
// RANSAC fitting in transform.go from a 2D affine map to a full projective
// homography, since a photographed page is rarely fronto-parallel.
package rectify

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/internal/markers"
	"examgrader/pkg/geometry"
)

// reprojErrorPx is the RANSAC reprojection threshold used when estimating
// the homography (§4.3).
const reprojErrorPx = 5.0

// Rectify warps raw (BGR) into the canonical page defined by c, using the
// marker corners as source points. The marker's outer edge sits
// MarkerMarginMM from the page edge, so the destination points are
// (margin,margin), (W-margin,margin), (W-margin,H-margin), (margin,H-margin)
// in mm — never (0,0) — per the rectifier's correctness contract.
func Rectify(raw gocv.Mat, corners markers.Corners, c layout.LayoutConstants) (gocv.Mat, error) {
	src := []gocv.Point2f{
		{X: float32(corners.TL.X), Y: float32(corners.TL.Y)},
		{X: float32(corners.TR.X), Y: float32(corners.TR.Y)},
		{X: float32(corners.BR.X), Y: float32(corners.BR.Y)},
		{X: float32(corners.BL.X), Y: float32(corners.BL.Y)},
	}

	m := c.MarkerMarginMM
	dstMM := []geometry.Point2D{
		{X: m, Y: m},
		{X: c.PageWidthMM - m, Y: m},
		{X: c.PageWidthMM - m, Y: c.PageHeightMM - m},
		{X: m, Y: c.PageHeightMM - m},
	}
	dst := make([]gocv.Point2f, 4)
	for i, p := range dstMM {
		dst[i] = gocv.Point2f{X: float32(p.X * c.PxPerMM), Y: float32(p.Y * c.PxPerMM)}
	}

	srcVec := gocv.NewPoint2fVectorFromPoints(src)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(dst)
	defer dstVec.Close()

	homography := gocv.FindHomography(srcVec, dstVec, gocv.HomograpyMethodRANSAC, reprojErrorPx, gocv.NewMat(), 2000, 0.995)
	if homography.Empty() {
		homography.Close()
		var err error
		homography, err = perspectiveFallback(src, dst)
		if err != nil {
			srcPts := make([]geometry.Point2D, len(src))
			for i, p := range src {
				srcPts[i] = geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
			}
			dstPts := make([]geometry.Point2D, len(dst))
			for i, p := range dst {
				dstPts[i] = geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
			}
			h, dltErr := dltHomography(srcPts, dstPts)
			if dltErr != nil {
				return gocv.NewMat(), fmt.Errorf("rectify: homography estimation failed: %w", err)
			}
			homography = homographyToMat(h)
		}
	}
	defer homography.Close()

	w, h := c.CanvasSizePx()
	canonical := gocv.NewMat()
	gocv.WarpPerspectiveWithParams(raw, &canonical, homography, image.Pt(w, h),
		gocv.InterpolationLinear, gocv.BorderReplicate, gocv.Scalar{})

	return canonical, nil
}

// perspectiveFallback computes a plain 4-point perspective transform when
// the RANSAC homography estimator fails outright.
func perspectiveFallback(src, dst []gocv.Point2f) (gocv.Mat, error) {
	if len(src) != 4 || len(dst) != 4 {
		return gocv.Mat{}, fmt.Errorf("need exactly 4 correspondences")
	}
	srcVec := gocv.NewPoint2fVectorFromPoints(src)
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(dst)
	defer dstVec.Close()
	return gocv.GetPerspectiveTransform2fVector(srcVec, dstVec), nil
}
