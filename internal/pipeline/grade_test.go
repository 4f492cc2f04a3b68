package pipeline

import (
	"context"
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"examgrader/internal/sheet"
)

func validTemplate() *sheet.ExamTemplate {
	return &sheet.ExamTemplate{
		Questions: []sheet.Question{
			{Number: 1, Kind: sheet.MultipleChoice, Options: 4},
			{Number: 2, Kind: sheet.TrueFalse},
		},
	}
}

func TestGradeRejectsUndecodableImage(t *testing.T) {
	g := NewGrader()
	_, err := g.Grade(context.Background(), []byte("not an image"), validTemplate())
	if err == nil {
		t.Fatal("expected a decode error")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *pipeline.Error, got %T", err)
	}
	if pe.Kind != ErrDecodeFailure {
		t.Fatalf("got kind %v want ErrDecodeFailure", pe.Kind)
	}
}

func TestGradeRejectsInvalidTemplate(t *testing.T) {
	g := NewGrader()
	bad := &sheet.ExamTemplate{
		Questions: []sheet.Question{{Number: 1, Kind: sheet.MultipleChoice, Options: 9}},
	}
	blank := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer blank.Close()
	buf, err := gocv.IMEncode(gocv.PNGFileExt, blank)
	if err != nil {
		t.Fatalf("IMEncode: %v", err)
	}
	defer buf.Close()

	_, gradeErr := g.Grade(context.Background(), buf.GetBytes(), bad)
	if gradeErr == nil {
		t.Fatal("expected a template mismatch error")
	}
	var pe *Error
	if !errors.As(gradeErr, &pe) {
		t.Fatalf("expected *pipeline.Error, got %T", gradeErr)
	}
	if pe.Kind != ErrTemplateMismatch {
		t.Fatalf("got kind %v want ErrTemplateMismatch", pe.Kind)
	}
}

func TestGradeRespectsCancelledContext(t *testing.T) {
	g := NewGrader()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Grade(ctx, []byte("irrelevant"), validTemplate())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBatchGradePreservesOrderOnAllFailures(t *testing.T) {
	g := NewGrader()
	images := [][]byte{
		[]byte("garbage-0"),
		[]byte("garbage-1"),
		[]byte("garbage-2"),
	}
	results, errs := g.BatchGrade(context.Background(), images, validTemplate(), 2)
	if len(results) != len(images) || len(errs) != len(images) {
		t.Fatalf("expected %d results/errs, got %d/%d", len(images), len(results), len(errs))
	}
	for i, err := range errs {
		if err == nil {
			t.Fatalf("image %d: expected a decode error, got nil", i)
		}
		if results[i] != nil {
			t.Fatalf("image %d: expected nil result on error", i)
		}
	}
}

func TestErrorMessageIsPrefixed(t *testing.T) {
	e := newError(ErrDecodeFailure, "bad bytes: %d", 7)
	if got, want := e.Error(), "pipeline: bad bytes: 7"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
