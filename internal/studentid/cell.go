package studentid

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"examgrader/pkg/geometry"
)

// Cell wraps one normalised student-ID digit cell's grayscale pixels and
// answers mean-intensity queries against relative (0..1) sub-rectangles,
// the unit both the segment scorer and the template matcher sample from.
type Cell struct {
	gray gocv.Mat // normalised grayscale, owned by caller
}

// NewCell extracts and contrast-normalises one digit cell from the
// canonical-page grayscale Mat. Normalisation stretches the cell's
// intensity range to [0,255] (§4.8 step 1); CLAHE and bilateral filtering
// are applied when available, matching the spec's "optionally" wording.
func NewCell(gray gocv.Mat, rectPx geometry.Rect) *Cell {
	region := gray.Region(image.Rect(int(rectPx.X), int(rectPx.Y), int(rectPx.X+rectPx.Width), int(rectPx.Y+rectPx.Height)))
	defer region.Close()

	normalized := gocv.NewMat()
	gocv.Normalize(region, &normalized, 0, 255, gocv.NormMinMax)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	claheOut := gocv.NewMat()
	clahe.Apply(normalized, &claheOut)
	normalized.Close()

	smoothed := gocv.NewMat()
	gocv.BilateralFilter(claheOut, &smoothed, 9, 75, 75)
	claheOut.Close()

	return &Cell{gray: smoothed}
}

// Close releases the cell's normalised Mat.
func (c *Cell) Close() { c.gray.Close() }

// MeanInRect returns the mean grayscale value inside a relative (0..1)
// sub-rectangle of the cell, clamped to the cell's actual bounds.
func (c *Cell) MeanInRect(rel geometry.Rect) float64 {
	w, h := float64(c.gray.Cols()), float64(c.gray.Rows())
	x0 := int(math.Max(0, rel.X*w))
	y0 := int(math.Max(0, rel.Y*h))
	x1 := int(math.Min(w, (rel.X+rel.Width)*w))
	y1 := int(math.Min(h, (rel.Y+rel.Height)*h))
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	region := c.gray.Region(image.Rect(x0, y0, x1, y1))
	defer region.Close()
	scalar := gocv.Mean(region)
	return scalar.Val1
}

// Mat exposes the underlying normalised Mat for the template-match method.
func (c *Cell) Mat() gocv.Mat { return c.gray }
