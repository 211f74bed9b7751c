package detection

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"actionpipe/internal/pipeline"
)

// Preprocessor letterboxes frames to the square model input size. The
// frame stays JPEG on both sides; the inference service decodes once.
type Preprocessor struct {
	inputSize int
}

// NewPreprocessor creates a preprocessor for the given input edge.
// Size defaults to 640.
func NewPreprocessor(inputSize int) *Preprocessor {
	if inputSize <= 0 {
		inputSize = 640
	}
	return &Preprocessor{inputSize: inputSize}
}

// Letterbox scales the frame to fit the model input square, padding
// the short edge with black. Frames already at the input size pass
// through without re-encoding.
func (p *Preprocessor) Letterbox(frame *pipeline.FrameData) ([]byte, error) {
	if frame.Width == p.inputSize && frame.Height == p.inputSize {
		return frame.Data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := src.Bounds()
	scale := float64(p.inputSize) / float64(max(bounds.Dx(), bounds.Dy()))
	scaledW := int(float64(bounds.Dx()) * scale)
	scaledH := int(float64(bounds.Dy()) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, p.inputSize, p.inputSize))
	offsetX := (p.inputSize - scaledW) / 2
	offsetY := (p.inputSize - scaledH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+scaledW, offsetY+scaledH)

	draw.CatmullRom.Scale(dst, target, src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
