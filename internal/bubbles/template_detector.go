package bubbles

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

// rowGroup is one global row's worth of bubble expectations, already
// converted to pixel coordinates.
type rowGroup struct {
	rowIndex  int
	questions []questionPx
}

// questionPx is one question's layout, in canonical-page pixels.
type questionPx struct {
	number  int
	letters []byte
	box     geometry.Rect
	centers []geometry.Point2D
}

// DetectTemplate runs Bubble Detector A (§4.5): row shift search, local
// per-question shift, center refinement by preference order, then jittered
// fill sampling. It returns one Result per question in grid row order and
// the raw per-option fills consumed by the arbiter.
func DetectTemplate(gray, binary gocv.Mat, bubbleGrid []layout.BubbleExpectation, c layout.LayoutConstants, th layout.DetectorThresholds) ([]Result, [][]float64) {
	otsu := otsuThreshold(gray)
	defer otsu.Close()

	results := make([]Result, 0)
	fills := make([][]float64, 0)
	radius := c.BubbleRadiusPx()
	rows := buildRows(bubbleGrid, c)

	for _, row := range rows {
		rowShift := searchRowShift(gray, row, radius, c, th)
		for _, q := range row.questions {
			local := searchLocalShift(gray, q, rowShift, radius, c, th)
			total := rowShift.add(local)
			centers := refineCenters(gray, q, total, radius, c, th)

			optFills := make([]float64, len(centers))
			for i, center := range centers {
				optFills[i] = maxFillWithJitter(gray, otsu, binary, center, radius, c.PxPerMM, th)
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

// searchRowShift sweeps the coarse (Δx, Δy) grid from §4.5 step 1 and
// returns the accepted shift, or (0,0) if none is within tolerance.
func searchRowShift(gray gocv.Mat, row rowGroup, radius float64, c layout.LayoutConstants, th layout.DetectorThresholds) shift {
	best := shift{}
	bestScore := math.Inf(-1)
	xRange := th.RowShiftXRangeMM * c.PxPerMM
	xStep := th.RowShiftXStepMM * c.PxPerMM
	yRange := th.RowShiftYRangeMM * c.PxPerMM
	yStep := th.RowShiftYStepMM * c.PxPerMM

	for dy := -yRange; dy <= yRange+1e-9; dy += yStep {
		for dx := -xRange; dx <= xRange+1e-9; dx += xStep {
			cand := shift{DX: dx, DY: dy}
			score := scoreShiftByDarkness(gray, row.questions, cand, radius, th)
			if score > bestScore {
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

// searchLocalShift sweeps the finer per-question (δx, δy) grid from §4.5
// step 2, on top of the already-accepted row shift.
func searchLocalShift(gray gocv.Mat, q questionPx, rowShift shift, radius float64, c layout.LayoutConstants, th layout.DetectorThresholds) shift {
	best := shift{}
	bestScore := math.Inf(-1)
	xRange := th.LocalShiftXRangeMM * c.PxPerMM
	yRange := th.LocalShiftYRangeMM * c.PxPerMM
	step := th.LocalShiftStepMM * c.PxPerMM
	if step <= 0 {
		step = 1
	}

	for dy := -yRange; dy <= yRange+1e-9; dy += step {
		for dx := -xRange; dx <= xRange+1e-9; dx += step {
			cand := shift{DX: dx, DY: dy}
			score := scoreShiftByDarkness(gray, []questionPx{q}, rowShift.add(cand), radius, th)
			if score > bestScore {
				bestScore = score
				best = cand
			}
		}
	}
	return best
}

func scoreShiftByDarkness(gray gocv.Mat, qs []questionPx, s shift, radius float64, th layout.DetectorThresholds) float64 {
	total := 0.0
	for _, q := range qs {
		for _, center := range q.centers {
			total += ringDarkness(gray, s.apply(center), radius, th)
		}
	}
	return total
}

// refineCenters applies §4.5 step 3's preference order: Hough match, then
// peak-finding line scan, then the shifted template centers unchanged.
func refineCenters(gray gocv.Mat, q questionPx, total shift, radius float64, c layout.LayoutConstants, th layout.DetectorThresholds) []geometry.Point2D {
	expected := make([]geometry.Point2D, len(q.centers))
	for i, center := range q.centers {
		expected[i] = total.apply(center)
	}

	if hough, ok := houghMatch(gray, q.box, total, expected, radius, th); ok {
		return hough
	}
	if peaks, ok := peakLineMatch(gray, expected, radius, c, th); ok {
		return peaks
	}
	return expected
}

// houghMatch implements §4.5 step 3a.
func houghMatch(gray gocv.Mat, box geometry.Rect, s shift, expected []geometry.Point2D, radius float64, th layout.DetectorThresholds) ([]geometry.Point2D, bool) {
	shifted := geometry.Rect{X: box.X + s.DX, Y: box.Y + s.DY, Width: box.Width, Height: box.Height}
	roi := clipRectToMat(gray, shifted)
	if roi.Width <= 0 || roi.Height <= 0 {
		return nil, false
	}
	region := gray.Region(image.Rect(int(roi.X), int(roi.Y), int(roi.X+roi.Width), int(roi.Y+roi.Height)))
	defer region.Close()

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(region, &circles, gocv.HoughGradient, 1, radius*1.5, 100, 30, int(radius*0.5), int(radius*1.5))

	if circles.Cols() < len(expected) {
		return nil, false
	}

	detected := make([]geometry.Point2D, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		detected[i] = geometry.Point2D{X: float64(v[0]) + roi.X, Y: float64(v[1]) + roi.Y}
	}

	matched, meanDist := matchNearest(expected, detected)
	if meanDist > th.HoughMatchRadiusFactor*radius {
		return nil, false
	}
	return matched, true
}

// peakLineMatch implements §4.5 step 3b: scan a horizontal line at the
// expected bubble Y, score each sample by ring darkness (not by fill),
// keep the 4n best-scoring samples as peaks, and match template centers
// to the nearest unused peak within the tolerance.
func peakLineMatch(gray gocv.Mat, expected []geometry.Point2D, radius float64, c layout.LayoutConstants, th layout.DetectorThresholds) ([]geometry.Point2D, bool) {
	if len(expected) == 0 {
		return nil, false
	}
	y := expected[0].Y
	minX, maxX := expected[0].X, expected[0].X
	for _, p := range expected[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
	}
	margin := th.PeakSearchMarginMM * c.PxPerMM
	step := th.PeakStepMM * c.PxPerMM
	if step <= 0 {
		step = 1
	}

	type peak struct {
		x     float64
		score float64
	}
	var peaks []peak
	for x := minX - margin; x <= maxX+margin; x += step {
		center := geometry.Point2D{X: x, Y: y}
		peaks = append(peaks, peak{x: x, score: ringDarkness(gray, center, radius, th)})
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].score > peaks[j].score })

	n := len(expected)
	if len(peaks) > n*4 {
		peaks = peaks[:n*4]
	}

	used := make([]bool, len(peaks))
	out := make([]geometry.Point2D, n)
	maxDist := th.PeakMatchRadiusFactor * radius
	for i, e := range expected {
		bestJ := -1
		bestDist := math.Inf(1)
		for j, p := range peaks {
			if used[j] {
				continue
			}
			d := math.Abs(p.x - e.X)
			if d < bestDist {
				bestDist = d
				bestJ = j
			}
		}
		if bestJ < 0 || bestDist > maxDist {
			out[i] = e
			continue
		}
		used[bestJ] = true
		out[i] = geometry.Point2D{X: peaks[bestJ].x, Y: y}
	}
	return out, true
}

// matchNearest greedily matches each expected point to its nearest
// detected point (without reuse) and returns the matched points in
// expected order plus the mean match distance.
func matchNearest(expected, detected []geometry.Point2D) ([]geometry.Point2D, float64) {
	used := make([]bool, len(detected))
	out := make([]geometry.Point2D, len(expected))
	var totalDist float64
	for i, e := range expected {
		bestJ := -1
		bestDist := math.Inf(1)
		for j, d := range detected {
			if used[j] {
				continue
			}
			dist := e.Distance(d)
			if dist < bestDist {
				bestDist = dist
				bestJ = j
			}
		}
		if bestJ < 0 {
			out[i] = e
			continue
		}
		used[bestJ] = true
		out[i] = detected[bestJ]
		totalDist += bestDist
	}
	if len(expected) == 0 {
		return out, 0
	}
	return out, totalDist / float64(len(expected))
}

func clipRectToMat(m gocv.Mat, r geometry.Rect) geometry.Rect {
	x0 := math.Max(0, r.X)
	y0 := math.Max(0, r.Y)
	x1 := math.Min(float64(m.Cols()), r.X+r.Width)
	y1 := math.Min(float64(m.Rows()), r.Y+r.Height)
	if x1 <= x0 || y1 <= y0 {
		return geometry.Rect{}
	}
	return geometry.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// otsuThreshold computes a binary Otsu threshold of gray, used as one of
// the three fill signals in §4.5.
func otsuThreshold(gray gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.Threshold(gray, &out, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)
	return out
}
