// Package layout builds the pixel geometry of every expected bubble and
// student-ID cell from an exam template, the way the reference tool's
// contact_grid.go derives expected contact positions from a board spec.
// Every magic number named in the layout contract lives in LayoutConstants
// or DetectorThresholds — nowhere else — so the grid builder and the
// detectors that consume it can never drift apart (design note: "Magic
// constants").
package layout

// LayoutConstants collects every millimetre dimension of the printed-sheet
// layout contract. Changing a value here changes it everywhere the grid is
// consumed; a PDF generator targeting this module must derive its own
// layout from the same numbers.
type LayoutConstants struct {
	PageWidthMM  float64
	PageHeightMM float64
	PxPerMM      float64

	MarkerMarginMM float64 // fiducial outer edge distance from page edge

	StartYMM           float64 // vertical cursor start, before any region
	StudentInfoBlockMM float64

	IDLabelLineMM       float64
	IDInstructionLineMM float64
	IDCellsPerRow       int
	IDCellHeightMM      float64
	IDCellSpacingMM     float64
	IDRowExtraMM        float64
	IDRowTrailMM        float64
	IDExampleLabelMM    float64
	IDDigitHeightMM     float64
	IDTrailingSpaceMM   float64

	InstructionsLineMM float64
	StartMarkerMM      float64

	SectionHeaderMM float64
	RowHeightMM     float64
	SectionTrailMM  float64

	Margin         float64 // left/right page margin
	QuestionsPerRow int
	QuestionWidthMM float64
	PaddingMM       float64
	BubbleRowOffsetMM float64
	BubbleSpacingMM   float64
	BubbleRadiusMM    float64

	IDCellWidthMM float64
}

// DefaultLayoutConstants returns the constants fixed by the layout
// contract (§6 of the exam-sheet specification).
func DefaultLayoutConstants() LayoutConstants {
	return LayoutConstants{
		PageWidthMM:  210,
		PageHeightMM: 297,
		PxPerMM:      10,

		MarkerMarginMM: 5,

		StartYMM:           34,
		StudentInfoBlockMM: 10,

		IDLabelLineMM:       6,
		IDInstructionLineMM: 8,
		IDCellsPerRow:       10,
		IDCellHeightMM:      10,
		IDCellSpacingMM:     1.5,
		IDRowExtraMM:        6,
		IDRowTrailMM:        4,
		IDExampleLabelMM:    5,
		IDDigitHeightMM:     6,
		IDTrailingSpaceMM:   6,

		InstructionsLineMM: 6,
		StartMarkerMM:      8,

		SectionHeaderMM: 8,
		RowHeightMM:     20,
		SectionTrailMM:  5,

		Margin:            20,
		QuestionsPerRow:   5,
		PaddingMM:         2,
		BubbleRowOffsetMM: 8,
		BubbleSpacingMM:   8,
		BubbleRadiusMM:    2.5,

		IDCellWidthMM: 7,
	}
}

// QuestionColumnWidthMM returns the per-question column width derived from the
// page width and margins: (210 - 2*margin) / 5.
func (c LayoutConstants) QuestionColumnWidthMM() float64 {
	return (c.PageWidthMM - 2*c.Margin) / float64(c.QuestionsPerRow)
}

// BubbleOffsetsMM returns the symmetric bubble-centre x-offsets from the
// question column centre, for the given option count (2, 3, or 4).
func (c LayoutConstants) BubbleOffsetsMM(options int) []float64 {
	s := c.BubbleSpacingMM
	switch options {
	case 2:
		return []float64{-s / 2, s / 2}
	case 3:
		return []float64{-s, 0, s}
	case 4:
		return []float64{-s * 1.5, -s / 2, s / 2, s * 1.5}
	default:
		return nil
	}
}

// DetectorThresholds collects every numeric threshold used by the two
// bubble detectors, the arbiter, and the student-ID recognizer, kept apart
// from LayoutConstants because these tune detection behavior rather than
// geometry (design note: "Magic constants").
type DetectorThresholds struct {
	// Row/question shift search (C5, C6)
	RowShiftXRangeMM   float64 // ±10mm coarse sweep
	RowShiftXStepMM    float64
	RowShiftYRangeMM   float64 // ±6mm coarse sweep
	RowShiftYStepMM    float64
	RowShiftXAcceptMM  float64 // accept if |Δx| <= 15mm
	RowShiftYAcceptMM  float64 // accept if |Δy| <= 8mm

	LocalShiftXRangeMM float64 // ±6mm
	LocalShiftYRangeMM float64 // ±8mm
	LocalShiftStepMM   float64

	// Center refinement (C5)
	HoughMatchRadiusFactor float64 // 1.5 * bubble_radius
	PeakSearchMarginMM     float64 // 5mm
	PeakStepMM             float64 // 0.5mm
	PeakMatchRadiusFactor  float64 // 5 * bubble_radius

	JitterRangeMM float64 // ±1.2mm fill-sampling jitter
	JitterStepMM  float64 // 0.6mm

	RingInnerFactor float64 // 1.1 * radius
	RingOuterFactor float64 // 1.6 * radius
	InkDiskFactor   float64 // 0.85 * radius
	RingDampFactor  float64 // 0.5

	// Circle detector (C6)
	CircleProximityThresholdMM float64 // 6mm
	AssignmentMaxDistanceMM    float64 // 12mm
	SearchBoxMarginMM          float64 // 5mm horizontal
	SearchBoxVerticalMM        float64 // 2mm vertical

	HoughMinDistFactor float64 // 1.5 * bubble_radius
	HoughMinRadFactor  float64 // 0.5 * bubble_radius
	HoughMaxRadFactor  float64 // 1.8 * bubble_radius

	// Arbiter (C7)
	FillAnswerThreshold     float64 // 0.08
	FillNearThresholdFactor float64 // 0.95
	FillDistinctMargin      float64 // 0.02
	ConfidenceFillScale     float64 // 0.2
	AggregateConfidenceFloor float64 // 0.5
	LowConfidenceCutoff      float64 // 0.3
	LowConfidencePenalty     float64 // 0.1
	MarkerFailurePenalty     float64 // 0.8

	// Student-ID segment method (C8)
	SegmentContrastCap       float64 // 60
	SegmentAcceptScore       float64 // 8
	SegmentStrongContrast    float64 // 6
	SegmentEscapeScore       float64 // 5
	SegmentEscapeOffMax      float64 // 15
	SegmentConfidenceScale   float64 // 25
	SegmentStripPadFactor    float64 // 1.8

	// Quality (C9)
	SharpnessScale float64 // 100
	ContrastScale  float64 // 60
	SharpnessWeight float64 // 0.6
	ContrastWeight  float64 // 0.4
}

// DefaultDetectorThresholds returns the thresholds fixed by §4.5–§4.9 of
// the exam-sheet specification.
func DefaultDetectorThresholds() DetectorThresholds {
	return DetectorThresholds{
		RowShiftXRangeMM:  10,
		RowShiftXStepMM:   2,
		RowShiftYRangeMM:  6,
		RowShiftYStepMM:   2,
		RowShiftXAcceptMM: 15,
		RowShiftYAcceptMM: 8,

		LocalShiftXRangeMM: 6,
		LocalShiftYRangeMM: 8,
		LocalShiftStepMM:   1,

		HoughMatchRadiusFactor: 1.5,
		PeakSearchMarginMM:     5,
		PeakStepMM:             0.5,
		PeakMatchRadiusFactor:  5,

		JitterRangeMM: 1.2,
		JitterStepMM:  0.6,

		RingInnerFactor: 1.1,
		RingOuterFactor: 1.6,
		InkDiskFactor:   0.85,
		RingDampFactor:  0.5,

		CircleProximityThresholdMM: 6,
		AssignmentMaxDistanceMM:    12,
		SearchBoxMarginMM:          5,
		SearchBoxVerticalMM:        2,

		HoughMinDistFactor: 1.5,
		HoughMinRadFactor:  0.5,
		HoughMaxRadFactor:  1.8,

		FillAnswerThreshold:      0.08,
		FillNearThresholdFactor:  0.95,
		FillDistinctMargin:       0.02,
		ConfidenceFillScale:      0.2,
		AggregateConfidenceFloor: 0.5,
		LowConfidenceCutoff:      0.3,
		LowConfidencePenalty:     0.1,
		MarkerFailurePenalty:     0.8,

		SegmentContrastCap:     60,
		SegmentAcceptScore:     8,
		SegmentStrongContrast:  6,
		SegmentEscapeScore:     5,
		SegmentEscapeOffMax:    15,
		SegmentConfidenceScale: 25,
		SegmentStripPadFactor:  1.8,

		SharpnessScale:  100,
		ContrastScale:   60,
		SharpnessWeight: 0.6,
		ContrastWeight:  0.4,
	}
}
