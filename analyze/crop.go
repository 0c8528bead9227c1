package analyze

import (
	"fmt"

	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/raster"
)

// CropBox is an axis-aligned box in pixel coordinates, half-open on the
// right and bottom. Boxes produced by this package always satisfy
// 0 <= X0 < X1 <= width and 0 <= Y0 < Y1 <= height of their source image.
type CropBox struct {
	X0, Y0, X1, Y1 int
}

// Width returns the box width in pixels.
func (b CropBox) Width() int { return b.X1 - b.X0 }

// Height returns the box height in pixels.
func (b CropBox) Height() int { return b.Y1 - b.Y0 }

// Area returns the box area in pixels.
func (b CropBox) Area() int { return b.Width() * b.Height() }

func (b CropBox) String() string {
	return fmt.Sprintf("[%d,%d,%d,%d]", b.X0, b.Y0, b.X1, b.Y1)
}

// FullBox returns the box covering the whole image.
func FullBox(img *raster.Image) CropBox {
	return CropBox{X0: 0, Y0: 0, X1: img.Width(), Y1: img.Height()}
}

// CropResult carries the computed box plus fallback diagnostics. A
// fallback is never an error: a bad heuristic result must not discard real
// page content, so degraded results keep the full frame and explain why.
type CropResult struct {
	Box          CropBox
	UsedFallback bool
	Note         string
}

// FindCropBox computes a content-bounded crop for a single page image.
//
// The image is binarized with CropThreshold (pixels darker than the
// threshold are content; scanned paper backgrounds are lighter). The
// tightest box enclosing all content pixels is taken; if it covers less
// than MinAreaFrac of the image the content is treated as noise and the
// full frame is kept. The box is then expanded by PadPx (recovering
// content lost to an overly tight threshold) and contracted by EdgeInsetPx
// (trimming faint border noise the padding would re-admit), clamped at
// each stage.
func FindCropBox(img *raster.Image, cfg config.Effective) CropResult {
	w, h := img.Width(), img.Height()
	full := FullBox(img)
	gray := img.Gray()
	threshold := uint8(cfg.CropThreshold)

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := 0; x < w; x++ {
			if row[x] < threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < 0 {
		return CropResult{Box: full, UsedFallback: true, Note: "no content region found; used full image"}
	}

	box := CropBox{X0: minX, Y0: minY, X1: maxX + 1, Y1: maxY + 1}
	if float64(box.Area()) < cfg.MinAreaFrac*float64(w*h) {
		return CropResult{Box: full, UsedFallback: true, Note: "detected content area too small; used full image"}
	}

	// Pad first, then inset. Padding is clamped to the frame.
	box.X0 = maxInt(0, box.X0-cfg.PadPx)
	box.Y0 = maxInt(0, box.Y0-cfg.PadPx)
	box.X1 = minInt(w, box.X1+cfg.PadPx)
	box.Y1 = minInt(h, box.Y1+cfg.PadPx)

	if inset := cfg.EdgeInsetPx; inset > 0 {
		box.X0 = minInt(box.X1-1, box.X0+inset)
		box.Y0 = minInt(box.Y1-1, box.Y0+inset)
		box.X1 = maxInt(box.X0+1, box.X1-inset)
		box.Y1 = maxInt(box.Y0+1, box.Y1-inset)
	}

	if box.X1 <= box.X0 || box.Y1 <= box.Y0 {
		return CropResult{Box: full, UsedFallback: true, Note: "invalid crop bounds after pad/inset; used full image"}
	}
	return CropResult{Box: box}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
