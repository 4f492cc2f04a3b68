package rectify

import (
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"examgrader/pkg/geometry"
)

// dltHomography estimates a 3x3 homography mapping src points to dst
// points via the Direct Linear Transform, the last-resort fallback when
// both gocv's RANSAC estimator and the plain 4-point perspective
// transform fail to produce a usable matrix. Each correspondence
// contributes two rows to the 2n x 9 coefficient matrix A such that
// Ah=0; the homography (up to scale) is the right singular vector
// belonging to A's smallest singular value.
func dltHomography(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n != len(dst) || n < 4 {
		return geometry.Homography{}, fmt.Errorf("rectify: dlt needs >=4 matching points, got %d/%d", n, len(dst))
	}

	A := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		A.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, x * xp, y * xp, xp})
		A.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, x * yp, y * yp, yp})
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return geometry.Homography{}, fmt.Errorf("rectify: dlt SVD factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	rows, cols := v.Dims()
	lastCol := cols - 1
	var h geometry.Homography
	for r := 0; r < rows && r < 9; r++ {
		h[r] = v.At(r, lastCol)
	}
	if h[8] == 0 {
		return geometry.Homography{}, fmt.Errorf("rectify: dlt produced a degenerate homography (h22=0)")
	}
	for i := range h {
		h[i] /= h[8]
	}
	return h, nil
}

// homographyToMat converts a geometry.Homography into the 3x3 CV64F Mat
// gocv.WarpPerspectiveWithParams expects.
func homographyToMat(h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	rm := h.ToRowMajor()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, rm[r][c])
		}
	}
	return m
}
