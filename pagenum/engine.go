package pagenum

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/pageprep/raster"
)

// Recognition is the raw output of an OCR engine for one corner crop.
// HasConfidence distinguishes engines that report a score from those that
// do not; a zero Confidence with HasConfidence=false means "unknown", not
// "certainly wrong".
type Recognition struct {
	Text          string
	Confidence    float64
	HasConfidence bool
}

// Engine is the external OCR capability boundary. The extractor owns corner
// selection, parsing, and fallback policy; engines own only recognition.
// Implementations must honor context cancellation on blocking calls.
type Engine interface {
	Name() string

	// Available reports whether the capability can be invoked at all.
	// Absence must be detectable without an error so the extractor can
	// short-circuit with a reason instead of failing.
	Available() bool

	Recognize(ctx context.Context, img *raster.Image) (Recognition, error)
}

// CommandEngine shells out to the tesseract executable. It is the default
// engine: pure subprocess invocation, no native bindings required.
type CommandEngine struct {
	// Path is the resolved tesseract executable; empty when not installed.
	Path string

	// PSM is the page segmentation mode passed to tesseract. Mode 7
	// (single text line) suits the short page-number crops.
	PSM int
}

// NewCommandEngine resolves the tesseract executable from PATH. The engine
// is still returned when tesseract is missing; Available reports false and
// the extractor degrades gracefully.
func NewCommandEngine() *CommandEngine {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		path = ""
	}
	return &CommandEngine{Path: path, PSM: 7}
}

func (e *CommandEngine) Name() string { return "tesseract" }

// Available reports whether the tesseract executable was found.
func (e *CommandEngine) Available() bool { return e.Path != "" }

// Recognize writes the crop to a temporary PNG and invokes tesseract with
// stdout output. The context bounds the subprocess; on cancellation the
// process is killed and the context error is returned.
func (e *CommandEngine) Recognize(ctx context.Context, img *raster.Image) (Recognition, error) {
	if !e.Available() {
		return Recognition{}, fmt.Errorf("tesseract executable not found")
	}

	dir, err := os.MkdirTemp("", "pageprep-ocr-")
	if err != nil {
		return Recognition{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "corner.png")
	if err := img.Save(inPath); err != nil {
		return Recognition{}, err
	}

	psm := e.PSM
	if psm <= 0 {
		psm = 7
	}
	cmd := exec.CommandContext(ctx, e.Path, inPath, "stdout", "--psm", strconv.Itoa(psm))
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Recognition{}, ctx.Err()
		}
		return Recognition{}, fmt.Errorf("tesseract: %w", err)
	}
	return Recognition{Text: strings.TrimSpace(string(out))}, nil
}

// Unavailable is an Engine that models a missing OCR capability. It lets
// the extractor's fallback policy be exercised without tesseract installed.
type Unavailable struct{}

func (Unavailable) Name() string    { return "unavailable" }
func (Unavailable) Available() bool { return false }

func (Unavailable) Recognize(context.Context, *raster.Image) (Recognition, error) {
	return Recognition{}, fmt.Errorf("ocr capability unavailable")
}
