//go:build ocr

package pagenum

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/tsawler/pageprep/raster"
)

// GosseractEngine recognizes text in-process via the gosseract bindings.
// It avoids the per-call subprocess cost of CommandEngine but requires
// Tesseract's native libraries at build time. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install libtesseract-dev
//
// Build with the "ocr" tag to enable this engine:
//
//	go build -tags ocr
type GosseractEngine struct{}

// NewGosseractEngine constructs the in-process engine.
func NewGosseractEngine() *GosseractEngine { return &GosseractEngine{} }

func (e *GosseractEngine) Name() string { return "gosseract" }

// Available reports true: the native libraries were present at build time.
func (e *GosseractEngine) Available() bool { return true }

// Recognize performs OCR on the crop and reports a mean word confidence.
func (e *GosseractEngine) Recognize(ctx context.Context, img *raster.Image) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	data, err := img.EncodePNG()
	if err != nil {
		return Recognition{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return Recognition{}, fmt.Errorf("set page segmentation mode: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize: %w", err)
	}

	rec := Recognition{Text: text}
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence / 100.0
		}
		rec.Confidence = sum / float64(len(boxes))
		rec.HasConfidence = true
	}
	return rec, nil
}
