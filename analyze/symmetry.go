package analyze

import (
	"fmt"

	"github.com/tsawler/pageprep/config"
)

// SpreadGeometry relates the two halves of a split spread back to the
// source image so their crop boxes can be reconciled. Boxes are in each
// half's local coordinates; GutterX is in source coordinates and
// RightOffsetX converts a right-half x to source coordinates.
type SpreadGeometry struct {
	LeftWidth    int
	RightWidth   int
	GutterX      int
	RightOffsetX int

	// LeftClampPx and RightClampPx are the outer-margin clamps already
	// applied to each half; symmetry adjustments never re-enter them.
	LeftClampPx  int
	RightClampPx int
}

// ApplySymmetry reconciles the crop boxes of a split spread's two halves
// according to the configured strategy. The note is non-empty when the
// strategy could not be satisfied safely and the original boxes were kept.
//
// match_max_width widens the narrower box toward the gutter until both have
// the width of the wider one. mirror_from_gutter equalizes the gap each box
// leaves at the gutter, so facing pages start at the same distance from the
// seam. Both strategies only ever move the gutter-facing edges; outer edges
// stay where the clamp put them.
func ApplySymmetry(strategy config.Symmetry, left, right CropBox, geo SpreadGeometry) (CropBox, CropBox, string) {
	if strategy == config.SymmetryIndependent {
		return left, right, ""
	}

	origLeft, origRight := left, right

	leftMinX := geo.LeftClampPx
	if leftMinX < 0 {
		leftMinX = 0
	}
	leftMaxX := geo.LeftWidth
	rightMinX := 0
	rightMaxX := geo.RightWidth - geo.RightClampPx
	if rightMaxX < 1 {
		rightMaxX = 1
	}

	switch strategy {
	case config.SymmetryMatchMaxWidth:
		maxWidth := left.Width()
		if right.Width() > maxWidth {
			maxWidth = right.Width()
		}
		if left.Width() < maxWidth {
			left.X1 = minInt(leftMaxX, left.X0+maxWidth)
		}
		if right.Width() < maxWidth {
			right.X0 = maxInt(rightMinX, right.X1-maxWidth)
		}
	case config.SymmetryMirrorFromGutter:
		rightGlobalX0 := geo.RightOffsetX + right.X0
		leftGap := maxInt(0, geo.GutterX-left.X1)
		rightGap := maxInt(0, rightGlobalX0-geo.GutterX)
		targetGap := maxInt(leftGap, rightGap)

		left.X1 = minInt(leftMaxX, maxInt(left.X0+1, geo.GutterX-targetGap))
		mirroredX0 := geo.GutterX + targetGap - geo.RightOffsetX
		right.X0 = maxInt(rightMinX, minInt(right.X1-1, mirroredX0))
	default:
		return origLeft, origRight, "unknown symmetry strategy; used independent"
	}

	left.X0 = maxInt(left.X0, leftMinX)
	right.X1 = minInt(right.X1, rightMaxX)
	left.X1 = minInt(left.X1, leftMaxX)
	right.X0 = maxInt(right.X0, rightMinX)

	if left.X1 <= left.X0 || right.X1 <= right.X0 {
		if strategy == config.SymmetryMirrorFromGutter {
			return origLeft, origRight, "mirror symmetry could not be satisfied safely; used independent"
		}
		return origLeft, origRight, fmt.Sprintf("invalid symmetry bounds for strategy=%s; used independent", strategy)
	}
	return left, right, ""
}
