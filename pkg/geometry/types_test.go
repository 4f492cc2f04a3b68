package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPoint2DDistance(t *testing.T) {
	p := Point2D{X: 1, Y: 2}
	q := Point2D{X: 3, Y: 4}
	if d := p.Distance(q); !almostEqual(d, math.Sqrt(8)) {
		t.Fatalf("Distance: got %v", d)
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 20}
	if !r.Contains(Point2D{X: 5, Y: 5}) {
		t.Fatal("expected point inside rect")
	}
	if r.Contains(Point2D{X: 11, Y: 5}) {
		t.Fatal("expected point outside rect")
	}
}

func TestHomographyToRowMajor(t *testing.T) {
	h := Homography{1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := h.ToRowMajor()
	want := [3][3]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	if got != want {
		t.Fatalf("ToRowMajor: got %+v want %+v", got, want)
	}
}
