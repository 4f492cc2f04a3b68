package bubbles

import (
	"math"
	"testing"

	"examgrader/internal/layout"
)

func th() layout.DetectorThresholds {
	return layout.DefaultDetectorThresholds()
}

func TestResolveQuestionClearAnswer(t *testing.T) {
	fills := []float64{0.02, 0.9, 0.01, 0.0}
	letters := []byte{'A', 'B', 'C', 'D'}
	answer, has, conf := ResolveQuestion(fills, letters, th())
	if !has || answer != 'B' {
		t.Fatalf("got answer=%q has=%v want B/true", answer, has)
	}
	if conf != 1.0 {
		t.Fatalf("confidence: got %v want 1.0 (clamped)", conf)
	}
}

func TestResolveQuestionBlankQuestion(t *testing.T) {
	fills := []float64{0.0, 0.01, 0.0, 0.0}
	letters := []byte{'A', 'B', 'C', 'D'}
	_, has, conf := ResolveQuestion(fills, letters, th())
	if has {
		t.Fatal("expected no answer for all-blank fills")
	}
	if conf >= 0.4 {
		t.Fatalf("confidence should be low for blank question, got %v", conf)
	}
}

func TestResolveQuestionNearThresholdDistinct(t *testing.T) {
	// max_fill just under 0.08 but >= 0.95*0.08 and distinct by >= 0.02 from second.
	tr := th()
	maxFill := 0.076
	secondFill := 0.0
	fills := []float64{maxFill, secondFill}
	letters := []byte{'T', 'F'}
	answer, has, _ := ResolveQuestion(fills, letters, tr)
	if !has || answer != 'T' {
		t.Fatalf("expected near-threshold-distinct accept, got answer=%q has=%v", answer, has)
	}
}

func TestResolveQuestionNearThresholdNotDistinctRejected(t *testing.T) {
	tr := th()
	fills := []float64{0.076, 0.07} // distinctness 0.006 < 0.02 margin
	letters := []byte{'T', 'F'}
	_, has, _ := ResolveQuestion(fills, letters, tr)
	if has {
		t.Fatal("expected rejection: below threshold and not distinct enough")
	}
}

func TestResolveQuestionTwoOptionsOnlyLegalLetters(t *testing.T) {
	// Scenario from spec §8 boundary behaviour: options=2 must only ever
	// return A/B or T/F, never any other letter, regardless of fill values.
	fills := []float64{0.5, 0.9}
	letters := []byte{'A', 'B'}
	answer, has, _ := ResolveQuestion(fills, letters, th())
	if !has {
		t.Fatal("expected an answer")
	}
	if answer != 'A' && answer != 'B' {
		t.Fatalf("illegal letter %q for a 2-option question", answer)
	}
}

func TestResolveQuestionEmptyFills(t *testing.T) {
	_, has, conf := ResolveQuestion(nil, nil, th())
	if has || conf != 0 {
		t.Fatalf("expected no answer and zero confidence for empty fills, got has=%v conf=%v", has, conf)
	}
}

func TestAggregateConfidence(t *testing.T) {
	results := []Result{{Confidence: 1.0}, {Confidence: 0.0}, {Confidence: 0.5}}
	got := AggregateConfidence(results)
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("got %v want 0.5", got)
	}
	if got := AggregateConfidence(nil); got != 0 {
		t.Fatalf("empty: got %v want 0", got)
	}
}

func TestChoosePrimaryPicksHigherAggregate(t *testing.T) {
	tr := th()
	a := DetectorOutput{Name: "template", Results: []Result{{Confidence: 0.9}, {Confidence: 0.8}}}
	b := DetectorOutput{Name: "circle", Results: []Result{{Confidence: 0.6}, {Confidence: 0.55}}}
	fallback := DetectorOutput{Name: "contour", Results: []Result{{Confidence: 0.1}}}

	got := ChoosePrimary([]DetectorOutput{a, b}, fallback, tr)
	if got.Name != "template" {
		t.Fatalf("expected template detector to win, got %s", got.Name)
	}
}

func TestChoosePrimaryFallsBackBelowFloor(t *testing.T) {
	tr := th()
	a := DetectorOutput{Name: "template", Results: []Result{{Confidence: 0.2}}}
	b := DetectorOutput{Name: "circle", Results: []Result{{Confidence: 0.1}}}
	fallback := DetectorOutput{Name: "contour", Results: []Result{{Confidence: 0.9}}}

	got := ChoosePrimary([]DetectorOutput{a, b}, fallback, tr)
	if got.Name != "contour" {
		t.Fatalf("expected fallback to win when neither clears the floor, got %s", got.Name)
	}
}

func TestOverallConfidencePenalizesLowConfidenceFraction(t *testing.T) {
	tr := th()
	allHigh := []Result{{Confidence: 0.9}, {Confidence: 0.9}, {Confidence: 0.9}}
	mixed := []Result{{Confidence: 0.9}, {Confidence: 0.1}, {Confidence: 0.9}}

	highConf := OverallConfidence(allHigh, tr, true)
	mixedConf := OverallConfidence(mixed, tr, true)

	if mixedConf >= highConf {
		t.Fatalf("expected penalty for low-confidence fraction: allHigh=%v mixed=%v", highConf, mixedConf)
	}
}

func TestOverallConfidenceMarkerFailurePenalty(t *testing.T) {
	tr := th()
	results := []Result{{Confidence: 0.9}, {Confidence: 0.9}}
	withMarkers := OverallConfidence(results, tr, true)
	withoutMarkers := OverallConfidence(results, tr, false)

	if math.Abs(withoutMarkers-withMarkers*tr.MarkerFailurePenalty) > 1e-9 {
		t.Fatalf("got %v want %v", withoutMarkers, withMarkers*tr.MarkerFailurePenalty)
	}
}

func TestOverallConfidenceInRangeAndEmpty(t *testing.T) {
	tr := th()
	if got := OverallConfidence(nil, tr, true); got != 0 {
		t.Fatalf("empty results: got %v want 0", got)
	}
	results := []Result{{Confidence: 1.0}, {Confidence: 1.0}}
	if got := OverallConfidence(results, tr, true); got < 0 || got > 1 {
		t.Fatalf("out of [0,1]: got %v", got)
	}
}
