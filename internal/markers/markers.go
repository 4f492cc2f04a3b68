// Package markers implements the fiducial marker locator (C2): it finds
// the four nested-square markers printed in each corner of the exam sheet,
// grounded on the reference tool's DetectBoardCorners/extractCorners in
// corners.go, generalised from "one big quadrilateral" to "a nested-square
// contour with one quadrilateral child" and restricted to a per-corner
// search zone instead of a whole-image scan.
package markers

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"examgrader/pkg/geometry"
)

// Corners are the four fiducial page-facing points in raw-image pixel
// coordinates, in TL, TR, BR, BL order.
type Corners struct {
	TL, TR, BR, BL geometry.Point2D
}

// Points returns the corners as a slice in TL, TR, BR, BL order.
func (c Corners) Points() []geometry.Point2D {
	return []geometry.Point2D{c.TL, c.TR, c.BR, c.BL}
}

// cornerZoneFraction is the fraction of the shorter image dimension that
// defines each corner's search zone (§4.2: "22%-of-min-dim corner zone").
const cornerZoneFraction = 0.22

const (
	minFiducialArea    = 80
	approxEpsilonRatio = 0.05
	parentAspectMin    = 0.75
	parentAspectMax    = 1.3
	childAspectMin     = 0.7
	childAspectMax     = 1.4
	childAreaRatioMin  = 0.1
	childAreaRatioMax  = 0.7
)

// zone identifies one of the four corner search regions.
type zone int

const (
	zoneTL zone = iota
	zoneTR
	zoneBR
	zoneBL
)

// Locate finds the four fiducial corners on the binary (preprocessed)
// image. Returns ok=false if any corner's zone yields neither a nested
// marker nor a fallback largest contour.
func Locate(binary gocv.Mat) (Corners, bool) {
	w, h := binary.Cols(), binary.Rows()
	minDim := w
	if h < minDim {
		minDim = h
	}
	zoneSize := int(float64(minDim) * cornerZoneFraction)

	rects := map[zone]image.Rectangle{
		zoneTL: image.Rect(0, 0, zoneSize, zoneSize),
		zoneTR: image.Rect(w-zoneSize, 0, w, zoneSize),
		zoneBR: image.Rect(w-zoneSize, h-zoneSize, w, h),
		zoneBL: image.Rect(0, h-zoneSize, zoneSize, h),
	}

	found := make(map[zone]geometry.Point2D, 4)
	for z, r := range rects {
		roi := binary.Region(r)
		pt, ok := locateInZone(roi, z)
		roi.Close()
		if !ok {
			return Corners{}, false
		}
		found[z] = geometry.Point2D{X: pt.X + float64(r.Min.X), Y: pt.Y + float64(r.Min.Y)}
	}

	corners := Corners{TL: found[zoneTL], TR: found[zoneTR], BR: found[zoneBR], BL: found[zoneBL]}
	if !plausibleQuad(corners, w, h) {
		return Corners{}, false
	}
	return corners, true
}

// plausibleQuad rejects a corner set that cannot possibly be a photographed
// page: the four points must form a convex quadrilateral (one corner zone
// reporting a point from deep inside another zone would fold it) and must
// enclose the image centre, which every page corner does by construction.
func plausibleQuad(c Corners, w, h int) bool {
	pts := c.Points()
	if !geometry.IsConvex(pts) {
		return false
	}
	center := geometry.Point2D{X: float64(w) / 2, Y: float64(h) / 2}
	return geometry.PointInPolygon(center, pts)
}

// locateInZone finds the fiducial's page-facing corner inside one search
// zone, preferring a nested-square match and falling back to the largest
// outer contour's page-facing corner.
func locateInZone(roi gocv.Mat, z zone) (geometry.Point2D, bool) {
	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(roi, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	if n == 0 {
		return geometry.Point2D{}, false
	}

	type candidate struct {
		rect image.Rectangle
		area float64
	}

	var best *candidate
	var largest *candidate

	for i := 0; i < n; i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < minFiducialArea {
			continue
		}
		rect := gocv.BoundingRect(contour)

		if largest == nil || area > largest.area {
			largest = &candidate{rect: rect, area: area}
		}

		if !isSquareish(contour, parentAspectMin, parentAspectMax) {
			continue
		}

		h := hierarchy.GetVeciAt(0, i)
		childIdx := int(h[2])
		if childIdx < 0 {
			continue
		}
		child := contours.At(childIdx)
		childArea := gocv.ContourArea(child)
		if childArea <= 0 {
			continue
		}
		if !isSquareish(child, childAspectMin, childAspectMax) {
			continue
		}
		ratio := childArea / area
		if ratio < childAreaRatioMin || ratio > childAreaRatioMax {
			continue
		}

		if best == nil || area > best.area {
			best = &candidate{rect: rect, area: area}
		}
	}

	pick := best
	if pick == nil {
		pick = largest
	}
	if pick == nil {
		return geometry.Point2D{}, false
	}

	return pageFacingCorner(pick.rect, z), true
}

// isSquareish reports whether a contour's polygonal approximation has 4
// vertices and an aspect ratio within [min,max].
func isSquareish(contour gocv.PointVector, min, max float64) bool {
	epsilon := approxEpsilonRatio * gocv.ArcLength(contour, true)
	approx := gocv.ApproxPolyDP(contour, epsilon, true)
	defer approx.Close()
	if approx.Size() != 4 {
		return false
	}
	rect := gocv.BoundingRect(contour)
	if rect.Dy() == 0 {
		return false
	}
	aspect := float64(rect.Dx()) / float64(rect.Dy())
	return aspect >= min && aspect <= max
}

// pageFacingCorner returns the corner of rect facing away from the page
// centre, i.e. the one matching the zone's own corner.
func pageFacingCorner(rect image.Rectangle, z zone) geometry.Point2D {
	switch z {
	case zoneTL:
		return geometry.Point2D{X: float64(rect.Min.X), Y: float64(rect.Min.Y)}
	case zoneTR:
		return geometry.Point2D{X: float64(rect.Max.X), Y: float64(rect.Min.Y)}
	case zoneBR:
		return geometry.Point2D{X: float64(rect.Max.X), Y: float64(rect.Max.Y)}
	default: // zoneBL
		return geometry.Point2D{X: float64(rect.Min.X), Y: float64(rect.Max.Y)}
	}
}

// Confidence returns 1.0 when all four corners were found and form a
// non-degenerate quadrilateral (shoelace area of at least 1 px²); 0
// otherwise. Convexity is not checked here. Callers
// combine this with the 0.8 sheet_bounds=none penalty from §4.2/§4.7.
func Confidence(c Corners, ok bool) float64 {
	if !ok {
		return 0
	}
	pts := c.Points()
	area := math.Abs(shoelaceArea(pts))
	if area < 1 {
		return 0
	}
	return 1
}

func shoelaceArea(pts []geometry.Point2D) float64 {
	sum := 0.0
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}
