package bubbles

import (
	"sort"

	"gocv.io/x/gocv"

	"examgrader/internal/layout"
	"examgrader/pkg/geometry"
)

// DetectContour is the third, simpler fallback detector named in §4.7: it
// clusters bubble-shaped contours from binary into circles using the same
// thresholding as §4.6 (no Hough), then reuses the circle-based
// assignment and fill logic. Grounded on the reference tool's habit of
// keeping a cheap contour pass available when the geometric detectors
// disagree (alignment/contact_bruteforce.go's brute-force fallback plays
// the analogous role there).
func DetectContour(gray, binary gocv.Mat, bubbleGrid []layout.BubbleExpectation, c layout.LayoutConstants, th layout.DetectorThresholds) ([]Result, [][]float64) {
	radius := c.BubbleRadiusPx()
	otsu := otsuThreshold(gray)
	defer otsu.Close()

	circles := bubbleShapedContours(binary, radius, th)

	rows := buildRows(bubbleGrid, c)
	results := make([]Result, 0)
	fills := make([][]float64, 0)

	for _, row := range rows {
		for _, q := range row.questions {
			box := q.box
			inBox := circlesInBox(circles, box)
			assignment := assignCircles(q.centers, inBox, th.AssignmentMaxDistanceMM*c.PxPerMM)

			optFills := make([]float64, len(q.centers))
			for i, exp := range q.centers {
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
				Box:            box,
			})
		}
	}
	return results, fills
}

// bubbleShapedContours finds contours on binary whose shape and size are
// consistent with a bubble of the expected radius, returning each as a
// DetectedCircle via its minimum enclosing circle.
func bubbleShapedContours(binary gocv.Mat, radius float64, th layout.DetectorThresholds) []DetectedCircle {
	contours := gocv.FindContours(binary, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := 3.14159 * radius * radius * 0.25
	maxArea := 3.14159 * radius * radius * 4

	var out []DetectedCircle
	for i := 0; i < contours.Size(); i++ {
		ct := contours.At(i)
		area := gocv.ContourArea(ct)
		if area < minArea || area > maxArea {
			continue
		}
		center, r := gocv.MinEnclosingCircle(ct)
		if r <= 0 {
			continue
		}
		out = append(out, DetectedCircle{
			Center: geometry.Point2D{X: float64(center.X), Y: float64(center.Y)},
			Radius: float64(r),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Center.X < out[j].Center.X })
	return out
}
