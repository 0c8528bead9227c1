package pipeline

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/raster"
)

// writePage saves a white page with a dark content block to dir/name. The
// block sits well inside the frame so crop results are predictable.
func writePage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
	}
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	path := filepath.Join(dir, name)
	if err := raster.FromImage(img).Save(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// writeSpread saves a wide page with content on both halves and a dark
// vertical seam at the horizontal midpoint.
func writeSpread(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
	}
	for _, x0 := range []int{w / 8, 5 * w / 8} {
		for y := h / 4; y < 3*h/4; y++ {
			for x := x0; x < x0+w/4; x++ {
				img.SetGray(x, y, color.Gray{Y: 30})
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := w/2 - 3; x <= w/2+3; x++ {
			img.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	path := filepath.Join(dir, name)
	if err := raster.FromImage(img).Save(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func cropRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = config.ModeCrop
	out := t.TempDir()
	return &Runner{Config: cfg, OutDir: out}, out
}

func TestProcessFileCropMode(t *testing.T) {
	r, out := cropRunner(t)
	src := writePage(t, t.TempDir(), "scan.png", 400, 600)

	recs := r.ProcessFile(context.Background(), src, 1)
	if len(recs) != 1 {
		t.Fatalf("crop mode must yield one record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Status != StatusWritten {
		t.Fatalf("expected written, got %s (%s)", rec.Status, rec.Error)
	}
	want := filepath.Join(out, "scan_p0001.png")
	if rec.Path != want {
		t.Errorf("expected output %s, got %s", want, rec.Path)
	}
	if strings.Contains(rec.Path, "_L") || strings.Contains(rec.Path, "_R") {
		t.Errorf("crop mode must not emit split suffixes: %s", rec.Path)
	}
	if rec.Metadata.CropBox == nil {
		t.Fatal("crop box missing from metadata")
	}

	got, err := raster.Load(rec.Path)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if got.Width() != rec.Metadata.CropBox.Width() || got.Height() != rec.Metadata.CropBox.Height() {
		t.Errorf("output %dx%d does not match crop box %s",
			got.Width(), got.Height(), rec.Metadata.CropBox)
	}
}

func TestProcessFileSplitsSpread(t *testing.T) {
	cfg := config.Default()
	out := t.TempDir()
	r := &Runner{Config: cfg, OutDir: out}
	src := writeSpread(t, t.TempDir(), "spread.png", 1200, 600)

	recs := r.ProcessFile(context.Background(), src, 3)
	if len(recs) != 2 {
		t.Fatalf("spread must yield two records, got %d", len(recs))
	}
	wantL := filepath.Join(out, "spread_p0003_L.png")
	wantR := filepath.Join(out, "spread_p0003_R.png")
	if recs[0].Path != wantL || recs[1].Path != wantR {
		t.Errorf("unexpected output names: %s / %s", recs[0].Path, recs[1].Path)
	}
	for _, rec := range recs {
		if rec.Status != StatusWritten {
			t.Errorf("%s: expected written, got %s (%s)", rec.Path, rec.Status, rec.Error)
		}
		if !rec.Metadata.DetectedSpread {
			t.Error("detected_spread must be set")
		}
		if rec.Metadata.GutterX == nil {
			t.Fatal("gutter position missing from metadata")
		}
	}
	gx := *recs[0].Metadata.GutterX
	if gx < 590 || gx > 610 {
		t.Errorf("gutter expected near 600, got %d", gx)
	}
	if recs[0].Operations[0] != OpSplitLeft || recs[1].Operations[0] != OpSplitRight {
		t.Errorf("split operations not tagged: %v / %v", recs[0].Operations, recs[1].Operations)
	}
}

func TestProcessFileAutoModeTallImageStaysWhole(t *testing.T) {
	cfg := config.Default()
	r := &Runner{Config: cfg, OutDir: t.TempDir()}
	src := writePage(t, t.TempDir(), "tall.png", 400, 600)

	recs := r.ProcessFile(context.Background(), src, 1)
	if len(recs) != 1 {
		t.Fatalf("tall image must not be split, got %d records", len(recs))
	}
	if recs[0].Metadata.DetectedSpread {
		t.Error("tall image misclassified as spread")
	}
}

func TestProcessFileDryRun(t *testing.T) {
	r, _ := cropRunner(t)
	r.DryRun = true
	src := writePage(t, t.TempDir(), "scan.png", 400, 600)

	recs := r.ProcessFile(context.Background(), src, 1)
	if recs[0].Status != StatusDryRun {
		t.Fatalf("expected dry-run status, got %s", recs[0].Status)
	}
	if _, err := os.Stat(recs[0].Path); !os.IsNotExist(err) {
		t.Error("dry-run must not write output files")
	}

	// The record content must match a real run apart from the status.
	r.DryRun = false
	real := r.ProcessFile(context.Background(), src, 1)
	if real[0].Path != recs[0].Path {
		t.Errorf("paths diverge: %s vs %s", real[0].Path, recs[0].Path)
	}
	if *real[0].Metadata.CropBox != *recs[0].Metadata.CropBox {
		t.Errorf("crop boxes diverge: %s vs %s", real[0].Metadata.CropBox, recs[0].Metadata.CropBox)
	}
}

func TestProcessFileSkipsExistingWithoutOverwrite(t *testing.T) {
	r, _ := cropRunner(t)
	src := writePage(t, t.TempDir(), "scan.png", 400, 600)

	first := r.ProcessFile(context.Background(), src, 1)
	if first[0].Status != StatusWritten {
		t.Fatalf("setup write failed: %s", first[0].Error)
	}
	before, err := os.ReadFile(first[0].Path)
	if err != nil {
		t.Fatal(err)
	}

	second := r.ProcessFile(context.Background(), src, 1)
	if second[0].Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", second[0].Status)
	}
	after, err := os.ReadFile(first[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("skip must leave the existing file untouched")
	}

	r.Overwrite = true
	third := r.ProcessFile(context.Background(), src, 1)
	if third[0].Status != StatusWritten {
		t.Errorf("overwrite run expected written, got %s", third[0].Status)
	}
}

func TestProcessFileRerunIsDeterministic(t *testing.T) {
	r, _ := cropRunner(t)
	r.Overwrite = true
	src := writePage(t, t.TempDir(), "scan.png", 400, 600)

	a := r.ProcessFile(context.Background(), src, 1)
	first, err := os.ReadFile(a[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	b := r.ProcessFile(context.Background(), src, 1)
	second, err := os.ReadFile(b[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("reruns must produce byte-identical output")
	}
}

func TestProcessFileUnreadableInput(t *testing.T) {
	r, _ := cropRunner(t)
	srcDir := t.TempDir()
	bad := filepath.Join(srcDir, "corrupt.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	recs := r.ProcessFile(context.Background(), bad, 1)
	if len(recs) != 1 || recs[0].Status != StatusFailed {
		t.Fatalf("expected one failed record, got %+v", recs)
	}
	if recs[0].Error == "" {
		t.Error("failed record must carry the error message")
	}
}

func TestProcessBatchOrderAndIsolation(t *testing.T) {
	r, _ := cropRunner(t)
	r.Workers = 4
	srcDir := t.TempDir()
	paths := []string{
		writePage(t, srcDir, "a.png", 300, 400),
		filepath.Join(srcDir, "broken.png"),
		writePage(t, srcDir, "c.png", 300, 400),
	}
	if err := os.WriteFile(paths[1], []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := r.ProcessBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].SourcePath != paths[0] || recs[1].SourcePath != paths[1] || recs[2].SourcePath != paths[2] {
		t.Errorf("records out of input order: %s, %s, %s",
			recs[0].SourcePath, recs[1].SourcePath, recs[2].SourcePath)
	}
	if recs[1].Status != StatusFailed {
		t.Errorf("broken input must fail, got %s", recs[1].Status)
	}
	if recs[0].Status != StatusWritten || recs[2].Status != StatusWritten {
		t.Error("a failed input must not affect its siblings")
	}
	// Batch indices follow input positions, not completion order.
	if !strings.HasSuffix(recs[0].Path, "a_p0001.png") || !strings.HasSuffix(recs[2].Path, "c_p0003.png") {
		t.Errorf("unexpected indexed names: %s / %s", recs[0].Path, recs[2].Path)
	}
}

func TestProcessBatchNoMatchesLeavesNoOutDir(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeCrop
	out := filepath.Join(t.TempDir(), "out")
	r := &Runner{Config: cfg, OutDir: out}

	recs, err := r.ProcessBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("a run with no inputs must not create the output directory")
	}
}

// writeBarSpread saves a wide spread with a center seam, dark bars along
// both outer edges, and content on both halves.
func writeBarSpread(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 1200, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 1200; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
	}
	for y := 0; y < 600; y++ {
		for x := 0; x < 20; x++ {
			img.SetGray(x, y, color.Gray{Y: 20})
			img.SetGray(1199-x, y, color.Gray{Y: 20})
		}
		for x := 597; x <= 603; x++ {
			img.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	for y := 100; y < 500; y++ {
		for x := 60; x < 500; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
		for x := 700; x < 1100; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	path := filepath.Join(dir, name)
	if err := raster.FromImage(img).Save(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProcessFileOuterMarginClamp(t *testing.T) {
	cfg := config.Default()
	cfg.OuterMarginMode = config.OuterAuto
	cfg.GutterTrimPx = 10
	cfg.PadPx = 0
	r := &Runner{Config: cfg, OutDir: t.TempDir()}
	src := writeBarSpread(t, t.TempDir(), "spread.png")

	recs := r.ProcessFile(context.Background(), src, 1)
	if len(recs) != 2 {
		t.Fatalf("expected two records, got %d", len(recs))
	}
	left, right := recs[0], recs[1]
	if left.Metadata.OuterClampPx == 0 || right.Metadata.OuterClampPx == 0 {
		t.Fatalf("outer clamps missing: %d / %d",
			left.Metadata.OuterClampPx, right.Metadata.OuterClampPx)
	}
	// The bars are darker than crop_threshold, so without the clamp each
	// box would reach its half's outer edge.
	if left.Metadata.CropBox.X0 < left.Metadata.OuterClampPx {
		t.Errorf("left outer edge not clamped: box %s, clamp %d",
			left.Metadata.CropBox, left.Metadata.OuterClampPx)
	}
	if left.Metadata.OuterBarPx == 0 {
		t.Error("detected bar width missing from metadata")
	}
}

func TestProcessFileSymmetryMatchMaxWidth(t *testing.T) {
	cfg := config.Default()
	cfg.SymmetryStrategy = config.SymmetryMatchMaxWidth
	cfg.GutterTrimPx = 10
	cfg.PadPx = 0
	cfg.MinAreaFrac = 0.05
	out := t.TempDir()
	r := &Runner{Config: cfg, OutDir: out}

	// Left content is much wider than right.
	img := image.NewGray(image.Rect(0, 0, 1200, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 1200; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
		for x := 597; x <= 603; x++ {
			img.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	for y := 150; y < 450; y++ {
		for x := 100; x < 500; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
		for x := 1050; x < 1150; x++ {
			img.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "spread.png")
	if err := raster.FromImage(img).Save(src); err != nil {
		t.Fatal(err)
	}

	recs := r.ProcessFile(context.Background(), src, 1)
	if len(recs) != 2 {
		t.Fatalf("expected two records, got %d", len(recs))
	}
	lw := recs[0].Metadata.CropBox.Width()
	rw := recs[1].Metadata.CropBox.Width()
	if lw != rw {
		t.Errorf("halves must end up the same width, got %d and %d", lw, rw)
	}

	lImg, err := raster.Load(recs[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	rImg, err := raster.Load(recs[1].Path)
	if err != nil {
		t.Fatal(err)
	}
	if lImg.Width() != rImg.Width() {
		t.Errorf("output widths diverge: %d vs %d", lImg.Width(), rImg.Width())
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	r, _ := cropRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srcDir := t.TempDir()
	var paths []string
	for _, n := range []string{"a.png", "b.png", "c.png"} {
		paths = append(paths, writePage(t, srcDir, n, 100, 150))
	}
	if _, err := r.ProcessBatch(ctx, paths); err == nil {
		t.Error("cancelled context must surface an error")
	}
}

func TestRunnerPrefixOverride(t *testing.T) {
	r, out := cropRunner(t)
	r.Prefix = "book"
	src := writePage(t, t.TempDir(), "scan.png", 300, 400)

	recs := r.ProcessFile(context.Background(), src, 7)
	want := filepath.Join(out, "book_p0007.png")
	if recs[0].Path != want {
		t.Errorf("expected %s, got %s", want, recs[0].Path)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "b.png", 50, 60)
	writePage(t, dir, "a.png", 50, 60)
	writePage(t, dir, "c.jpg", 50, 60)
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := CollectFiles(dir, "*.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 matches, got %v", files)
	}
	if filepath.Base(files[0]) != "a.png" || filepath.Base(files[1]) != "b.png" {
		t.Errorf("files not sorted: %v", files)
	}
}

func TestGuardInPlace(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()

	if err := GuardInPlace(dir, other, false, false); err != nil {
		t.Errorf("distinct directories must pass: %v", err)
	}
	if err := GuardInPlace(dir, dir, false, false); err == nil {
		t.Error("same directory without in-place must fail")
	}
	if err := GuardInPlace(dir, dir, true, false); err == nil {
		t.Error("in-place without overwrite must fail")
	}
	if err := GuardInPlace(dir, dir, true, true); err != nil {
		t.Errorf("in-place with overwrite must pass: %v", err)
	}
}
