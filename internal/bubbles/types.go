package bubbles

import "examgrader/pkg/geometry"

// Result is one question's detected answer, per §3's BubbleResult.
type Result struct {
	QuestionNumber int
	Answer         byte // 0 if none
	HasAnswer      bool
	Confidence     float64
	Box            geometry.Rect // px, canonical page
}

// DetectedCircle is a circle found by Hough or contour search, with no
// question identity until the assignment step claims it.
type DetectedCircle struct {
	Center geometry.Point2D // px
	Radius float64          // px
}

// shift is a 2D pixel offset applied to a row or question's expected
// geometry during the shift-search steps of §4.5/§4.6.
type shift struct {
	DX, DY float64
}

func (s shift) add(o shift) shift { return shift{DX: s.DX + o.DX, DY: s.DY + o.DY} }

func (s shift) apply(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: p.X + s.DX, Y: p.Y + s.DY}
}
