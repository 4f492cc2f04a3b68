package bubbles

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

// DetectCircle runs Bubble Detector B (§4.6): a single whole-page Hough
// pass, shift search scored by circle proximity instead of ring darkness,
// then per-question circle-to-option assignment.
func DetectCircle(gray, binary gocv.Mat, bubbleGrid []layout.BubbleExpectation, c layout.LayoutConstants, th layout.DetectorThresholds) ([]Result, [][]float64) {
	radius := c.BubbleRadiusPx()
	otsu := otsuThreshold(gray)
	defer otsu.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	circlesMat := gocv.NewMat()
	defer circlesMat.Close()
	gocv.HoughCirclesWithParams(blurred, &circlesMat, gocv.HoughGradient, 1,
		th.HoughMinDistFactor*radius, 100, 30, int(th.HoughMinRadFactor*radius), int(th.HoughMaxRadFactor*radius))

	all := make([]DetectedCircle, circlesMat.Cols())
	for i := 0; i < circlesMat.Cols(); i++ {
		v := circlesMat.GetVecfAt(0, i)
		all[i] = DetectedCircle{Center: geometry.Point2D{X: float64(v[0]), Y: float64(v[1])}, Radius: float64(v[2])}
	}

	rows := buildRows(bubbleGrid, c)
	results := make([]Result, 0)
	fills := make([][]float64, 0)

	unclaimed := append([]DetectedCircle(nil), all...)
	for _, row := range rows {
		rowShift := searchRowShiftByProximity(row, all, th, c)

		for _, q := range row.questions {
			local := searchLocalShiftByProximity(q, unclaimed, rowShift, th, c)
			total := rowShift.add(local)
			expected := make([]geometry.Point2D, len(q.centers))
			for i, center := range q.centers {
				expected[i] = total.apply(center)
			}

			box := tightenBox(q.box, expected, total, th, c)
			inBox := circlesInBox(unclaimed, box)

			assignment := assignCircles(expected, inBox, th.AssignmentMaxDistanceMM*c.PxPerMM)
			unclaimed = removeAssigned(unclaimed, assignment)

			optFills := make([]float64, len(expected))
			for i, exp := range expected {
				center := exp
				r := radius
				if assignment[i] != nil {
					center = assignment[i].Center
					r = assignment[i].Radius
				}
				optFills[i] = fill(gray, otsu, binary, center, r, th)
			}
			fills = append(fills, optFills)
			answer, has, conf := ResolveQuestion(optFills, q.letters, th)
			results = append(results, Result{
				QuestionNumber: q.number,
				Answer:         answer,
				HasAnswer:      has,
				Confidence:     conf,
				Box:            q.box,
			})
		}
	}
	return results, fills
}

func searchRowShiftByProximity(row rowGroup, circles []DetectedCircle, th layout.DetectorThresholds, c layout.LayoutConstants) shift {
	best := shift{}
	bestScore := math.Inf(-1)
	xRange := th.RowShiftXRangeMM * c.PxPerMM
	xStep := th.RowShiftXStepMM * c.PxPerMM
	yRange := th.RowShiftYRangeMM * c.PxPerMM
	yStep := th.RowShiftYStepMM * c.PxPerMM
	threshold := th.CircleProximityThresholdMM * c.PxPerMM

	for dy := -yRange; dy <= yRange+1e-9; dy += yStep {
		for dx := -xRange; dx <= xRange+1e-9; dx += xStep {
			cand := shift{DX: dx, DY: dy}
			score := scoreProximity(row.questions, circles, cand, threshold)
			if score > bestScore || (score == bestScore && cand.DX == 0 && cand.DY == 0) {
				bestScore = score
				best = cand
			}
		}
	}
	if math.Abs(best.DX) <= th.RowShiftXAcceptMM*c.PxPerMM && math.Abs(best.DY) <= th.RowShiftYAcceptMM*c.PxPerMM {
		return best
	}
	return shift{}
}

func searchLocalShiftByProximity(q questionPx, circles []DetectedCircle, rowShift shift, th layout.DetectorThresholds, c layout.LayoutConstants) shift {
	best := shift{}
	bestScore := math.Inf(-1)
	xRange := th.LocalShiftXRangeMM * c.PxPerMM
	yRange := th.LocalShiftYRangeMM * c.PxPerMM
	step := th.LocalShiftStepMM * c.PxPerMM
	if step <= 0 {
		step = 1
	}
	threshold := th.CircleProximityThresholdMM * c.PxPerMM

	for dy := -yRange; dy <= yRange+1e-9; dy += step {
		for dx := -xRange; dx <= xRange+1e-9; dx += step {
			cand := shift{DX: dx, DY: dy}
			score := scoreProximity([]questionPx{q}, circles, rowShift.add(cand), threshold)
			if score > bestScore || (score == bestScore && cand.DX == 0 && cand.DY == 0) {
				bestScore = score
				best = cand
			}
		}
	}
	return best
}

func scoreProximity(qs []questionPx, circles []DetectedCircle, s shift, threshold float64) float64 {
	total := 0.0
	for _, q := range qs {
		for _, center := range q.centers {
			p := s.apply(center)
			d := nearestCircleDistance(p, circles)
			total += math.Max(0, 1-d/threshold)
		}
	}
	return total
}

func nearestCircleDistance(p geometry.Point2D, circles []DetectedCircle) float64 {
	best := math.Inf(1)
	for _, ci := range circles {
		d := p.Distance(ci.Center)
		if d < best {
			best = d
		}
	}
	return best
}

// tightenBox implements §4.6 step 3: narrow the search box horizontally
// and vertically around the shifted expected centers, intersected with
// the original question box.
func tightenBox(orig geometry.Rect, expected []geometry.Point2D, s shift, th layout.DetectorThresholds, c layout.LayoutConstants) geometry.Rect {
	if len(expected) == 0 {
		return orig
	}
	minX, maxX := expected[0].X, expected[0].X
	for _, p := range expected[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
	}
	marginX := th.SearchBoxMarginMM * c.PxPerMM
	marginY := th.SearchBoxVerticalMM * c.PxPerMM
	y := expected[0].Y
	tight := geometry.Rect{
		X:      minX - marginX,
		Y:      y - marginY,
		Width:  (maxX + marginX) - (minX - marginX),
		Height: 2 * marginY,
	}
	shiftedOrig := geometry.Rect{X: orig.X + s.DX, Y: orig.Y + s.DY, Width: orig.Width, Height: orig.Height}
	return intersectRect(tight, shiftedOrig)
}

func intersectRect(a, b geometry.Rect) geometry.Rect {
	x0 := math.Max(a.X, b.X)
	y0 := math.Max(a.Y, b.Y)
	x1 := math.Min(a.X+a.Width, b.X+b.Width)
	y1 := math.Min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return geometry.Rect{}
	}
	return geometry.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func circlesInBox(circles []DetectedCircle, box geometry.Rect) []DetectedCircle {
	var out []DetectedCircle
	for _, ci := range circles {
		if box.Contains(ci.Center) {
			out = append(out, ci)
		}
	}
	return out
}
