// Package visionio decodes raw scanned-page bytes into gocv Mats and
// puts the decode step behind a Backend interface, the way the reference
// tool's image package decodes layers before alignment ever touches pixels.
// The interface covers decoding only; the other stages call gocv directly,
// and GocvBackend is the only implementation in this module.
package visionio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// MaxDim is the longest-edge cap the preprocessor downsamples to. It lives
// here, not in layout.LayoutConstants, because it governs the raw-image
// decode step that precedes any millimetre geometry.
const MaxDim = 3500

// Backend is the decode step the pipeline depends on; the Grader takes it
// as a field, so another implementation can be injected. The only
// implementation here is the gocv-backed GocvBackend, which the tests use.
type Backend interface {
	// Decode turns raw image bytes (JPEG, PNG, or TIFF) into a BGR Mat.
	Decode(data []byte) (gocv.Mat, error)
}

// GocvBackend is the production Backend, decoding through gocv's IMDecode
// with a stdlib-image fallback for formats gocv's build does not cover
// (this mirrors layer.go's blank-imported jpeg/png/tiff decoders).
type GocvBackend struct{}

// NewGocvBackend returns the default production backend.
func NewGocvBackend() *GocvBackend { return &GocvBackend{} }

func (b *GocvBackend) Decode(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}

	img, _, decErr := image.Decode(bytes.NewReader(data))
	if decErr != nil {
		return gocv.NewMat(), fmt.Errorf("visionio: decode image: %w", decErr)
	}
	return imageToMat(img), nil
}

// imageToMat converts a decoded Go image.Image to a gocv Mat in BGR format,
// for the formats gocv's native IMDecode does not recognise (notably TIFF).
func imageToMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat
}

// ResizeToMaxDim returns mat downsampled so its longest edge is at most
// MaxDim, using area averaging. When it resizes, it returns a new Mat and
// closes mat. Images already within the bound are returned unchanged; this
// is a downsample-only operation, per the preprocessor's
// contract (small scans are never upscaled).
func ResizeToMaxDim(mat gocv.Mat) gocv.Mat {
	w, h := mat.Cols(), mat.Rows()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= MaxDim {
		return mat
	}
	scale := float64(MaxDim) / float64(longest)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
	mat.Close()
	return resized
}
