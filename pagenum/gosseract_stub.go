//go:build !ocr

package pagenum

import (
	"context"
	"errors"

	"github.com/tsawler/pageprep/raster"
)

// ErrOCRNotEnabled is returned when the in-process engine is used but OCR
// support was not compiled in. Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("in-process OCR not enabled; rebuild with -tags ocr")

// GosseractEngine is the stub used when the "ocr" build tag is not set.
// It reports itself unavailable so extraction degrades to the standard
// no_tesseract reason instead of failing.
type GosseractEngine struct{}

// NewGosseractEngine constructs the stub engine.
func NewGosseractEngine() *GosseractEngine { return &GosseractEngine{} }

func (e *GosseractEngine) Name() string { return "gosseract" }

// Available reports false: OCR support was not compiled in.
func (e *GosseractEngine) Available() bool { return false }

// Recognize returns ErrOCRNotEnabled.
func (e *GosseractEngine) Recognize(context.Context, *raster.Image) (Recognition, error) {
	return Recognition{}, ErrOCRNotEnabled
}
