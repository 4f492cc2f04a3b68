package bubbles

import (
	"math"
	"sort"

	"examgrader/internal/layout"
)

// ResolveQuestion applies §4.7 steps 1-3 to one question's per-option
// fills: pick the best-filled option, decide whether it clears the
// answer/near-threshold/distinctness rule, and compute confidence. Both
// detectors call this so their BubbleResults are directly comparable.
func ResolveQuestion(fills []float64, letters []byte, th layout.DetectorThresholds) (answer byte, has bool, confidence float64) {
	if len(fills) == 0 {
		return 0, false, 0
	}
	maxFill, maxIdx := fills[0], 0
	for i, f := range fills[1:] {
		if f > maxFill {
			maxFill = f
			maxIdx = i + 1
		}
	}
	secondFill := math.Inf(-1)
	for i, f := range fills {
		if i == maxIdx {
			continue
		}
		if f > secondFill {
			secondFill = f
		}
	}
	if secondFill == math.Inf(-1) {
		secondFill = 0
	}

	confidence = clamp01(maxFill / th.ConfidenceFillScale)

	accept := maxFill >= th.FillAnswerThreshold ||
		(maxFill >= th.FillNearThresholdFactor*th.FillAnswerThreshold && maxFill-secondFill >= th.FillDistinctMargin)
	if !accept {
		return 0, false, confidence
	}
	if maxIdx >= len(letters) {
		return 0, false, confidence
	}
	return letters[maxIdx], true, confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DetectorOutput is one detector's full set of per-question results plus
// its aggregate confidence, the unit the arbiter chooses between.
type DetectorOutput struct {
	Name    string
	Results []Result
}

// AggregateConfidence is the mean per-question confidence over a
// detector's results, used to pick the primary detector in §4.7.
func AggregateConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}

// ChoosePrimary implements §4.7's "Arbitration between A and B": prefer
// the higher-aggregate-confidence detector among those clearing the
// AggregateConfidenceFloor; fall back to a third (contour-based) detector
// if neither does.
func ChoosePrimary(candidates []DetectorOutput, fallback DetectorOutput, th layout.DetectorThresholds) DetectorOutput {
	eligible := make([]DetectorOutput, 0, len(candidates))
	for _, c := range candidates {
		if AggregateConfidence(c.Results) >= th.AggregateConfidenceFloor {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return fallback
	}
	sort.Slice(eligible, func(i, j int) bool {
		return AggregateConfidence(eligible[i].Results) > AggregateConfidence(eligible[j].Results)
	})
	return eligible[0]
}

// OverallConfidence implements §4.7's overall_confidence formula, applying
// the sheet_bounds=none penalty when markersOK is false.
func OverallConfidence(results []Result, th layout.DetectorThresholds, markersOK bool) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	var lowCount int
	for _, r := range results {
		sum += r.Confidence
		if r.Confidence < th.LowConfidenceCutoff {
			lowCount++
		}
	}
	mean := sum / float64(len(results))
	frac := float64(lowCount) / float64(len(results))
	conf := clamp01(mean - th.LowConfidencePenalty*frac)
	if !markersOK {
		conf *= th.MarkerFailurePenalty
	}
	return conf
}
