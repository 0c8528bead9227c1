package analyze

import (
	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/raster"
)

// Side identifies which half of a split spread a page image came from. The
// outer edge (the one away from the gutter) is the left edge of a left page
// and the right edge of a right page.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// OuterClamp reports the outer-margin clamp computed for one split page.
// BarPx is the detected dark-bar width (auto mode only); ClampPx is the
// width actually clamped off the outer edge.
type OuterClamp struct {
	BarPx   int
	ClampPx int
}

// DetectOuterBarPx measures the width of a dark bar along the page's outer
// edge, as left by a scanner bed or book cradle. Columns are scanned from
// the outer edge inward within searchFrac of the width; a column belongs to
// the bar when at least darkFracCutoff of its pixels are darker than
// darkThreshold. The bar ends once minRunPx consecutive columns drop to
// releaseFrac or below. Returns 0 when no stable bar is found; a bar that
// never releases inside the search window reports the full window.
func DetectOuterBarPx(img *raster.Image, side Side, cfg config.Effective) int {
	gray := img.Gray()
	w, h := img.Width(), img.Height()
	if w <= 0 || h <= 0 {
		return 0
	}

	searchWidth := int(float64(w) * cfg.OuterMarginAutoSearchFrac)
	if searchWidth < 1 {
		searchWidth = 1
	}
	if searchWidth > w {
		searchWidth = w
	}

	threshold := uint8(cfg.OuterMarginDarkThreshold)
	sawBar := false
	release := 0

	for idx := 0; idx < searchWidth; idx++ {
		x := idx
		if side == SideRight {
			x = w - 1 - idx
		}
		dark := 0
		for y := 0; y < h; y++ {
			if gray.GrayAt(x, y).Y < threshold {
				dark++
			}
		}
		darkFrac := float64(dark) / float64(h)

		if darkFrac >= cfg.OuterMarginDarkFracCutoff {
			sawBar = true
			release = 0
			continue
		}
		if sawBar && darkFrac <= cfg.OuterMarginReleaseFrac {
			release++
			if release >= cfg.OuterMarginMinRunPx {
				barWidth := idx - release + 1
				if barWidth < 0 {
					barWidth = 0
				}
				return barWidth
			}
		} else if sawBar {
			release = 0
		}
	}

	if sawBar {
		return searchWidth
	}
	return 0
}

// ResolveOuterClamp turns the configured outer-margin mode into a concrete
// clamp width for one split page. Off yields zero; fixed clamps
// OuterMarginFrac of the width without detection; auto detects the bar and
// clamps just past it, capped at OuterMarginAutoMaxFrac of the width.
func ResolveOuterClamp(img *raster.Image, side Side, cfg config.Effective) OuterClamp {
	w := img.Width()
	switch cfg.OuterMarginMode {
	case config.OuterFixed:
		clamp := int(float64(w) * cfg.OuterMarginFrac)
		if clamp < 0 {
			clamp = 0
		}
		return OuterClamp{ClampPx: clamp}
	case config.OuterAuto:
		bar := DetectOuterBarPx(img, side, cfg)
		if bar <= 0 {
			return OuterClamp{}
		}
		maxClamp := int(float64(w) * cfg.OuterMarginAutoMaxFrac)
		if maxClamp < 0 {
			maxClamp = 0
		}
		clamp := bar + cfg.OuterMarginPadPx
		if clamp > maxClamp {
			clamp = maxClamp
		}
		if clamp < 0 {
			clamp = 0
		}
		return OuterClamp{BarPx: bar, ClampPx: clamp}
	default:
		return OuterClamp{}
	}
}

// FindPageCropBox computes the content crop for one half of a split spread,
// applying the outer-margin clamp to the side away from the gutter. A clamp
// that collapses the box degrades to the full frame like every other crop
// fallback.
func FindPageCropBox(img *raster.Image, side Side, cfg config.Effective) (CropResult, OuterClamp) {
	res := FindCropBox(img, cfg)
	clamp := ResolveOuterClamp(img, side, cfg)
	if clamp.ClampPx <= 0 || res.UsedFallback {
		return res, clamp
	}

	w := img.Width()
	box := res.Box
	if side == SideLeft {
		if box.X0 < clamp.ClampPx {
			box.X0 = clamp.ClampPx
		}
	} else {
		if box.X1 > w-clamp.ClampPx {
			box.X1 = w - clamp.ClampPx
		}
	}
	if box.X1 <= box.X0 {
		return CropResult{
			Box:          FullBox(img),
			UsedFallback: true,
			Note:         "invalid crop bounds after outer margin clamp; used full image",
		}, clamp
	}
	res.Box = box
	return res, clamp
}
