package visionio

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestResizeToMaxDimDownsamplesOversizedImage(t *testing.T) {
	mat := gocv.NewMatWithSize(2000, 4000, gocv.MatTypeCV8UC3)
	defer mat.Close()

	resized := ResizeToMaxDim(mat)
	defer resized.Close()

	if resized.Cols() != MaxDim {
		t.Fatalf("expected longest edge resized to %d, got %dx%d", MaxDim, resized.Cols(), resized.Rows())
	}
	wantRows := 2000 * MaxDim / 4000
	if resized.Rows() != wantRows {
		t.Fatalf("expected aspect ratio preserved: got %d rows, want %d", resized.Rows(), wantRows)
	}
}

func TestResizeToMaxDimLeavesSmallImageUntouched(t *testing.T) {
	mat := gocv.NewMatWithSize(100, 200, gocv.MatTypeCV8UC3)
	defer mat.Close()

	resized := ResizeToMaxDim(mat)
	if resized.Cols() != 200 || resized.Rows() != 100 {
		t.Fatalf("expected untouched 200x100, got %dx%d", resized.Cols(), resized.Rows())
	}
}

func TestResizeToMaxDimNeverUpscales(t *testing.T) {
	// A small image's longest edge must never exceed MaxDim after resize,
	// and must never grow past its original size either.
	mat := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8UC3)
	defer mat.Close()
	resized := ResizeToMaxDim(mat)
	if resized.Cols() > 50 || resized.Rows() > 50 {
		t.Fatalf("expected no upscaling, got %dx%d", resized.Cols(), resized.Rows())
	}
}

func TestGocvBackendDecodeRoundTrip(t *testing.T) {
	original := gocv.NewMatWithSize(64, 96, gocv.MatTypeCV8UC3)
	defer original.Close()
	original.SetTo(gocv.NewScalar(10, 20, 30, 0))

	buf, err := gocv.IMEncode(gocv.PNGFileExt, original)
	if err != nil {
		t.Fatalf("IMEncode: %v", err)
	}
	defer buf.Close()

	backend := NewGocvBackend()
	decoded, err := backend.Decode(buf.GetBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer decoded.Close()

	if decoded.Cols() != 96 || decoded.Rows() != 64 {
		t.Fatalf("decoded size mismatch: got %dx%d want 96x64", decoded.Cols(), decoded.Rows())
	}
}

func TestGocvBackendDecodeInvalidData(t *testing.T) {
	backend := NewGocvBackend()
	_, err := backend.Decode([]byte("not an image"))
	if err == nil {
		t.Fatal("expected decode failure for garbage bytes")
	}
}
