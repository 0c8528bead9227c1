// Package pagenum extracts printed page numbers from page-image corners.
//
// Recognition itself is delegated to an external OCR capability modeled by
// the Engine interface; this package owns corner selection, digit parsing,
// and the fallback policy. Extraction is always best-effort: a missing or
// failing engine degrades to a null result with a reason code and never
// aborts the surrounding pipeline.
package pagenum

import (
	"context"
	"strconv"
	"time"

	"github.com/tsawler/pageprep/raster"
)

// Reason codes for a null PrintedPage.
const (
	// ReasonNoTesseract means the OCR capability is not installed or not
	// reachable; recognition was never attempted.
	ReasonNoTesseract = "no_tesseract"
	// ReasonNoMatch means no corner yielded a usable digit run.
	ReasonNoMatch = "no_match"
	// ReasonAmbiguous means both corners yielded digit runs and no
	// confidence signal could break the tie.
	ReasonAmbiguous = "ambiguous"
)

// Corner labels for Result.Corner.
const (
	CornerLeft  = "left"
	CornerRight = "right"
)

// Result reports a page-number extraction attempt. Reason is non-empty
// exactly when PrintedPage is nil. RawLeft and RawRight always retain the
// untouched recognizer output for diagnostics, regardless of parse success.
type Result struct {
	PrintedPage *int   `json:"printed_page"`
	Corner      string `json:"corner,omitempty"`
	RawLeft     string `json:"raw_left"`
	RawRight    string `json:"raw_right"`
	Reason      string `json:"reason,omitempty"`
}

// Extractor crops the bottom-left and bottom-right corners of a page image
// and asks an Engine to recognize each.
type Extractor struct {
	// Engine performs recognition. A nil or unavailable engine yields
	// ReasonNoTesseract without any invocation.
	Engine Engine

	// Timeout bounds each recognition call. A timed-out call counts as an
	// unreadable corner rather than hanging the batch.
	Timeout time.Duration

	// StripFrac is the bottom strip of the page searched for numbers.
	StripFrac float64

	// CornerWFrac and CornerHFrac size each corner crop: width as a
	// fraction of page width, height as a fraction of the strip.
	CornerWFrac float64
	CornerHFrac float64

	// MaxPage rejects implausible numbers; digit runs above it are treated
	// as no match for that corner.
	MaxPage int
}

// NewExtractor returns an extractor with the standard corner geometry.
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{
		Engine:      engine,
		Timeout:     10 * time.Second,
		StripFrac:   0.12,
		CornerWFrac: 0.28,
		CornerHFrac: 0.45,
		MaxPage:     5000,
	}
}

// corner holds one recognition attempt.
type corner struct {
	raw    string
	page   *int
	conf   float64
	scored bool
}

// Extract attempts to recover the printed page number from the image's
// bottom corners. It never returns an error; every failure mode maps to a
// null result with a reason.
func (x *Extractor) Extract(ctx context.Context, img *raster.Image) Result {
	if x.Engine == nil || !x.Engine.Available() {
		return Result{Reason: ReasonNoTesseract}
	}

	leftBox, rightBox := x.cornerBoxes(img.Width(), img.Height())
	left := x.recognizeCorner(ctx, img, leftBox)
	right := x.recognizeCorner(ctx, img, rightBox)

	res := Result{RawLeft: left.raw, RawRight: right.raw}
	switch {
	case left.page != nil && right.page != nil:
		if left.scored && right.scored && left.conf != right.conf {
			if left.conf > right.conf {
				res.PrintedPage = left.page
				res.Corner = CornerLeft
			} else {
				res.PrintedPage = right.page
				res.Corner = CornerRight
			}
			return res
		}
		res.Reason = ReasonAmbiguous
		return res
	case left.page != nil:
		res.PrintedPage = left.page
		res.Corner = CornerLeft
		return res
	case right.page != nil:
		res.PrintedPage = right.page
		res.Corner = CornerRight
		return res
	default:
		res.Reason = ReasonNoMatch
		return res
	}
}

func (x *Extractor) recognizeCorner(ctx context.Context, img *raster.Image, box [4]int) corner {
	crop := img.Crop(box[0], box[1], box[2], box[3])

	callCtx := ctx
	if x.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	rec, err := x.Engine.Recognize(callCtx, crop)
	if err != nil {
		// Timeouts and engine failures degrade to an unreadable corner.
		return corner{}
	}

	c := corner{raw: rec.Text, conf: rec.Confidence, scored: rec.HasConfidence}
	if n, ok := x.parsePage(rec.Text); ok {
		c.page = &n
	}
	return c
}

// cornerBoxes computes the bottom-left and bottom-right crop boxes as
// {x0, y0, x1, y1}.
func (x *Extractor) cornerBoxes(w, h int) (left, right [4]int) {
	stripH := int(float64(h) * x.StripFrac)
	if stripH < 1 {
		stripH = 1
	}
	cornerH := int(float64(stripH) * x.CornerHFrac)
	if cornerH < 1 {
		cornerH = 1
	}
	cornerW := int(float64(w) * x.CornerWFrac)
	if cornerW < 1 {
		cornerW = 1
	}
	y0 := h - cornerH
	if y0 < 0 {
		y0 = 0
	}
	left = [4]int{0, y0, cornerW, h}
	x0 := w - cornerW
	if x0 < 0 {
		x0 = 0
	}
	right = [4]int{x0, y0, w, h}
	return left, right
}

// parsePage extracts the longest run of digits from raw text. On ties the
// leftmost run wins. Runs above MaxPage are rejected.
func (x *Extractor) parsePage(text string) (int, bool) {
	best := ""
	current := ""
	for _, r := range text {
		if r >= '0' && r <= '9' {
			current += string(r)
			continue
		}
		if len(current) > len(best) {
			best = current
		}
		current = ""
	}
	if len(current) > len(best) {
		best = current
	}
	if best == "" {
		return 0, false
	}
	n, err := strconv.Atoi(best)
	if err != nil {
		return 0, false
	}
	if x.MaxPage > 0 && n > x.MaxPage {
		return 0, false
	}
	return n, true
}
