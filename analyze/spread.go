// Package analyze implements the page-image heuristics: spread-vs-single
// classification, gutter localization within a spread, and content-bounded
// crop computation. All functions are pure over immutable raster images and
// report diagnostics instead of failing.
package analyze

import (
	"fmt"

	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/raster"
)

// SpreadDecision reports whether an image should be split into two pages,
// with a human-readable reason. It is computed fresh per image.
type SpreadDecision struct {
	IsSpread bool
	Reason   string
}

// ClassifySpread decides whether the image is a two-page spread.
//
// mode=split and mode=crop force the decision regardless of geometry. In
// auto mode the aspect ratio width/height is compared against SplitRatio;
// equality counts as a spread, since failing to split a genuine spread is
// worse than an unnecessary split attempt downstream.
func ClassifySpread(img *raster.Image, cfg config.Effective) SpreadDecision {
	switch cfg.Mode {
	case config.ModeSplit:
		return SpreadDecision{IsSpread: true, Reason: "forced by mode=split"}
	case config.ModeCrop:
		return SpreadDecision{IsSpread: false, Reason: "forced by mode=crop"}
	}

	w, h := img.Width(), img.Height()
	if h <= 0 {
		return SpreadDecision{IsSpread: false, Reason: "image has no height"}
	}
	aspect := float64(w) / float64(h)
	if aspect >= cfg.SplitRatio {
		return SpreadDecision{
			IsSpread: true,
			Reason:   fmt.Sprintf("aspect ratio %.2f >= split_ratio %.2f", aspect, cfg.SplitRatio),
		}
	}
	return SpreadDecision{
		IsSpread: false,
		Reason:   fmt.Sprintf("aspect ratio %.2f < split_ratio %.2f", aspect, cfg.SplitRatio),
	}
}
