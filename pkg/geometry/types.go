// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Homography represents a 3x3 projective transform in row-major form:
//
//	[h00 h01 h02]
//	[h10 h11 h12]
//	[h20 h21 h22]
//
// It maps a photographed (non-fronto-parallel) page onto its canonical
// rectified coordinates, which a plain affine map cannot represent.
type Homography [9]float64

// ToRowMajor returns the transform as a [3][3]float64 array, the layout
// gocv.FindHomography and gocv.GetPerspectiveTransform expect.
func (h Homography) ToRowMajor() [3][3]float64 {
	return [3][3]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}
