// Command gradetest runs the grading pipeline on one scanned answer sheet
// and prints the resulting OcrResult, the way the reference tool's
// aligntest/viatest harnesses exercise one pipeline stage from the command
// line without the GUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"examgrader/internal/pipeline"
	"examgrader/internal/sheet"
	"examgrader/internal/version"
)

func main() {
	templatePath := flag.String("template", "", "Path to exam template JSON")
	imagePath := flag.String("image", "", "Path to scanned answer sheet image")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gradetest %s (%s, %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if *templatePath == "" || *imagePath == "" {
		fmt.Println("Usage: gradetest -template <template.json> -image <sheet.jpg>")
		os.Exit(1)
	}

	t, err := sheet.LoadFromFile(*templatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load template: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read image: %v\n", err)
		os.Exit(1)
	}

	grader := pipeline.NewGrader()
	result, err := grader.Grade(context.Background(), data, t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grade: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("sheet_bounds_found: %v\n", result.SheetBoundsFound)
	fmt.Printf("image_quality: %.3f\n", result.ImageQuality)
	fmt.Printf("overall_confidence: %.3f\n", result.OverallConfidence)
	fmt.Printf("processing_ms: %d\n\n", result.ProcessingMS)

	fmt.Println("=== Bubble answers (primary) ===")
	for _, b := range result.BubblesPrimary {
		answer := "none"
		if b.HasAnswer {
			answer = string(b.Answer)
		}
		fmt.Printf("  q%-3d answer=%-4s confidence=%.2f\n", b.QuestionNumber, answer, b.Confidence)
	}

	if len(result.DigitsPrimary) > 0 {
		fmt.Println("\n=== Student ID (primary) ===")
		for _, d := range result.DigitsPrimary {
			val := "?"
			if d.HasValue {
				val = fmt.Sprintf("%d", d.Value)
			}
			fmt.Printf("  cell%-3d digit=%-2s confidence=%.2f\n", d.CellIndex, val, d.Confidence)
		}
	}
}
