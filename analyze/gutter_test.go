package analyze

import (
	"image"
	"testing"

	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/raster"
)

// newSpreadImage builds a bright 1000x200 spread with a dark vertical seam
// band centered on seamX.
func newSpreadImage(seamX, seamWidth int) *raster.Image {
	g := newGrayImage(1000, 200, 240)
	fillRect(g, image.Rect(seamX-seamWidth/2, 0, seamX+seamWidth/2+1, 200), 20)
	return raster.FromImage(g)
}

func TestLocateGutterKnownSeam(t *testing.T) {
	cfg := config.Default()
	img := newSpreadImage(500, 6)

	res := LocateGutter(img, cfg)
	if diff := absInt(res.GutterX - 500); diff > 4 {
		t.Errorf("expected gutter near 500, got %d", res.GutterX)
	}
	if res.Confidence <= 0 {
		t.Errorf("expected positive confidence for a clear seam, got %v", res.Confidence)
	}
	if res.FellBackToCenter {
		t.Error("clear near-center seam must not fall back")
	}
}

func TestLocateGutterOffCenterSeam(t *testing.T) {
	cfg := config.Default()
	cfg.GutterSearchFrac = 0.5
	img := newSpreadImage(420, 8)

	res := LocateGutter(img, cfg)
	if diff := absInt(res.GutterX - 420); diff > 5 {
		t.Errorf("expected gutter near 420, got %d", res.GutterX)
	}
}

func TestLocateGutterUniformImageTiesToCenter(t *testing.T) {
	cfg := config.Default()
	cfg.XStep = 1
	img := raster.FromImage(newGrayImage(1000, 100, 200))

	res := LocateGutter(img, cfg)
	if res.GutterX != 500 {
		t.Errorf("uniform image should tie-break to the midpoint, got %d", res.GutterX)
	}
}

func TestLocateGutterDeterministic(t *testing.T) {
	cfg := config.Default()
	img := newSpreadImage(510, 4)

	first := LocateGutter(img, cfg)
	second := LocateGutter(img, cfg)
	if first != second {
		t.Errorf("gutter detection must be deterministic: %+v vs %+v", first, second)
	}
}

func TestLocateGutterTinyImage(t *testing.T) {
	cfg := config.Default()
	img := raster.FromImage(newGrayImage(1, 1, 0))
	res := LocateGutter(img, cfg)
	if res.GutterX != 0 {
		t.Errorf("1px image: expected gutter 0, got %d", res.GutterX)
	}
}

func TestSplitSpreadBoundaries(t *testing.T) {
	img := raster.FromImage(newGrayImage(100, 40, 255))

	left, right := SplitSpread(img, 60, 0)
	if left.Width() != 60 {
		t.Errorf("expected left width 60, got %d", left.Width())
	}
	if right.Width() != 40 {
		t.Errorf("expected right width 40, got %d", right.Width())
	}
	if left.Height() != 40 || right.Height() != 40 {
		t.Error("split must preserve height")
	}
}

func TestSplitSpreadTrim(t *testing.T) {
	img := raster.FromImage(newGrayImage(100, 10, 255))

	left, right := SplitSpread(img, 50, 5)
	if left.Width() != 45 {
		t.Errorf("expected left width 45 after trim, got %d", left.Width())
	}
	if right.Width() != 45 {
		t.Errorf("expected right width 45 after trim, got %d", right.Width())
	}
}

func TestSplitSpreadExcessiveTrimClamps(t *testing.T) {
	img := raster.FromImage(newGrayImage(20, 10, 255))

	left, right := SplitSpread(img, 10, 50)
	if left.Width() < 1 || right.Width() < 1 {
		t.Errorf("halves must keep at least one column: left=%d right=%d", left.Width(), right.Width())
	}
}
