// Package pipeline runs the page-image preparation sequence over files and
// directories: load, spread classification, optional gutter split, content
// crop, optional page-number extraction, and deterministic output naming.
//
// The pipeline never mutates inputs. Every intended output yields exactly
// one ActionRecord whether it was written, skipped, suppressed by dry-run,
// or failed, and a failed input never stops its siblings.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tsawler/pageprep/analyze"
	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/manifest"
	"github.com/tsawler/pageprep/pagenum"
	"github.com/tsawler/pageprep/raster"
)

// Runner executes the pipeline with one resolved configuration. The zero
// value is not usable; populate Config and OutDir first.
type Runner struct {
	// Config is the fully resolved effective configuration.
	Config config.Effective

	// OutDir receives output images. Created on demand unless dry-run.
	OutDir string

	// Prefix overrides the output name prefix. Empty means each output is
	// prefixed with its own source file's stem.
	Prefix string

	// Overwrite allows replacing existing destination files. Without it an
	// existing destination yields a skipped record.
	Overwrite bool

	// DryRun performs the full analysis but suppresses all writes.
	DryRun bool

	// InPlace acknowledges that OutDir may equal the source directory.
	// Writing into the source directory additionally requires Overwrite.
	InPlace bool

	// ExtractPageNumbers enables best-effort page-number OCR per output.
	ExtractPageNumbers bool

	// PageNumbers performs the OCR when enabled. Nil with extraction on
	// records ReasonNoTesseract results.
	PageNumbers *pagenum.Extractor

	// Workers bounds batch concurrency. Values below 1 mean serial.
	Workers int

	// Recorder, when set, receives log lines and per-output actions.
	Recorder *manifest.Recorder
}

// CollectFiles lists the regular files in dir matching the glob pattern,
// sorted lexicographically so batch indices are stable across runs.
func CollectFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// GuardInPlace rejects writing into the source directory unless the caller
// opted in with both the in-place flag and overwrite.
func GuardInPlace(inDir, outDir string, inPlace, overwrite bool) error {
	absIn, err := filepath.Abs(inDir)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if absIn != absOut {
		return nil
	}
	if !inPlace {
		return fmt.Errorf("output directory equals input directory %s; pass the in-place option to allow this", absIn)
	}
	if !overwrite {
		return fmt.Errorf("in-place processing requires overwrite")
	}
	return nil
}

// ProcessBatch runs the pipeline over paths with a bounded worker pool.
// Records are returned grouped by input, in input order, regardless of
// worker scheduling. The only error is context cancellation; per-file
// failures are reported through failed records.
func (r *Runner) ProcessBatch(ctx context.Context, paths []string) ([]ActionRecord, error) {
	// No inputs means no outputs; do not leave an empty directory behind.
	if !r.DryRun && r.OutDir != "" && len(paths) > 0 {
		if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job)
	perInput := make([][]ActionRecord, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				perInput[j.index] = r.ProcessFile(ctx, j.path, j.index+1)
			}
		}()
	}

	for i, p := range paths {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- job{index: i, path: p}:
		}
	}
	close(jobs)
	wg.Wait()

	var records []ActionRecord
	for _, recs := range perInput {
		records = append(records, recs...)
	}
	return records, nil
}

// ProcessFile runs the full sequence for one source image. index is the
// 1-based position of the file in its batch and drives output naming. The
// returned slice holds one record per intended output: two for a split
// spread, one otherwise.
func (r *Runner) ProcessFile(ctx context.Context, path string, index int) []ActionRecord {
	img, err := raster.Load(path)
	if err != nil {
		rec := ActionRecord{
			SourcePath: path,
			Status:     StatusFailed,
			Error:      err.Error(),
			Metadata:   Metadata{ModeUsed: string(r.Config.Mode)},
		}
		r.record(rec)
		return []ActionRecord{rec}
	}

	decision := analyze.ClassifySpread(img, r.Config)
	meta := Metadata{
		ModeUsed:       string(r.Config.Mode),
		DetectedSpread: decision.IsSpread,
		SpreadReason:   decision.Reason,
		PadPx:          r.Config.PadPx,
		EdgeInsetPx:    r.Config.EdgeInsetPx,
	}

	split := decision.IsSpread
	if split && img.Width() < 2 {
		split = false
		meta.Notes = append(meta.Notes, "image too narrow to split; kept whole")
	}

	var pages []*raster.Image
	var tags []string
	var crops []pageCrop
	if split {
		g := analyze.LocateGutter(img, r.Config)
		gx := g.GutterX
		conf := g.Confidence
		meta.GutterX = &gx
		meta.GutterConfidence = &conf
		if g.FellBackToCenter {
			meta.Notes = append(meta.Notes, "gutter fell back to image center")
		}
		left, right := analyze.SplitSpread(img, g.GutterX, r.Config.GutterTrimPx)
		pages = []*raster.Image{left, right}
		tags = []string{"L", "R"}

		leftRes, leftClamp := analyze.FindPageCropBox(left, analyze.SideLeft, r.Config)
		rightRes, rightClamp := analyze.FindPageCropBox(right, analyze.SideRight, r.Config)
		lb, rb, note := analyze.ApplySymmetry(r.Config.SymmetryStrategy, leftRes.Box, rightRes.Box, analyze.SpreadGeometry{
			LeftWidth:    left.Width(),
			RightWidth:   right.Width(),
			GutterX:      g.GutterX,
			RightOffsetX: img.Width() - right.Width(),
			LeftClampPx:  leftClamp.ClampPx,
			RightClampPx: rightClamp.ClampPx,
		})
		if note != "" {
			meta.Notes = append(meta.Notes, note)
		}
		leftRes.Box = lb
		rightRes.Box = rb
		crops = []pageCrop{{res: leftRes, clamp: leftClamp}, {res: rightRes, clamp: rightClamp}}
	} else {
		pages = []*raster.Image{img}
		tags = []string{""}
		crops = []pageCrop{{res: analyze.FindCropBox(img, r.Config)}}
	}

	outPaths := make([]string, len(pages))
	for i, tag := range tags {
		outPaths[i] = r.outputPath(path, index, tag)
	}

	// The whole file is skipped as a unit: emitting only one half of a
	// spread would leave the output set inconsistent.
	if !r.Overwrite {
		for _, op := range outPaths {
			if _, err := os.Stat(op); err == nil {
				var recs []ActionRecord
				for i := range pages {
					rec := ActionRecord{
						Path:       outPaths[i],
						SourcePath: path,
						Operations: r.operations(tags[i]),
						Status:     StatusSkipped,
						Metadata:   meta,
					}
					rec.Metadata.Notes = append(append([]string(nil), meta.Notes...), "destination exists and overwrite is off")
					r.record(rec)
					recs = append(recs, rec)
				}
				return recs
			}
		}
	}

	var recs []ActionRecord
	for i, page := range pages {
		rec := r.processPage(ctx, page, path, outPaths[i], tags[i], meta, crops[i])
		r.record(rec)
		recs = append(recs, rec)
	}
	return recs
}

// pageCrop carries one page's precomputed crop and outer-clamp results.
type pageCrop struct {
	res   analyze.CropResult
	clamp analyze.OuterClamp
}

// processPage applies a precomputed crop, optionally OCRs, and writes one
// output page.
func (r *Runner) processPage(ctx context.Context, page *raster.Image, srcPath, outPath, tag string, meta Metadata, crop pageCrop) ActionRecord {
	// Both halves of a spread receive the same base metadata; clone the
	// notes so per-page appends cannot alias each other.
	meta.Notes = append([]string(nil), meta.Notes...)

	box := crop.res.Box
	meta.CropBox = &box
	meta.CropFallback = crop.res.UsedFallback
	meta.OuterBarPx = crop.clamp.BarPx
	meta.OuterClampPx = crop.clamp.ClampPx
	if crop.res.Note != "" {
		meta.Notes = append(meta.Notes, crop.res.Note)
	}
	cropped := page.Crop(box.X0, box.Y0, box.X1, box.Y1)

	if r.ExtractPageNumbers {
		var res pagenum.Result
		if r.PageNumbers != nil {
			res = r.PageNumbers.Extract(ctx, cropped)
		} else {
			res = pagenum.Result{Reason: pagenum.ReasonNoTesseract}
		}
		meta.PageNumber = &res
	}

	rec := ActionRecord{
		Path:       outPath,
		SourcePath: srcPath,
		Operations: r.operations(tag),
		Metadata:   meta,
	}

	if r.DryRun {
		rec.Status = StatusDryRun
		return rec
	}
	if err := cropped.Save(outPath); err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		return rec
	}
	rec.Status = StatusWritten
	return rec
}

// operations lists the transform tags for one output in application order.
func (r *Runner) operations(tag string) []string {
	var ops []string
	switch tag {
	case "L":
		ops = append(ops, OpSplitLeft)
	case "R":
		ops = append(ops, OpSplitRight)
	}
	ops = append(ops, OpCrop)
	if r.Config.PadPx > 0 {
		ops = append(ops, OpPad)
	}
	if r.Config.EdgeInsetPx > 0 {
		ops = append(ops, OpEdgeInset)
	}
	if r.ExtractPageNumbers {
		ops = append(ops, OpPageNumber)
	}
	return ops
}

// outputPath builds the deterministic destination name
// {prefix}_p{index:04d}[_L|_R]{ext} under OutDir. The extension, and
// therefore the encoding, follows the source file.
func (r *Runner) outputPath(srcPath string, index int, tag string) string {
	ext := filepath.Ext(srcPath)
	prefix := r.Prefix
	if prefix == "" {
		prefix = strings.TrimSuffix(filepath.Base(srcPath), ext)
	}
	name := fmt.Sprintf("%s_p%04d", prefix, index)
	if tag != "" {
		name += "_" + tag
	}
	return filepath.Join(r.OutDir, name+ext)
}

// record forwards one action to the manifest recorder, if any.
func (r *Runner) record(rec ActionRecord) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.AddAction("page_images", string(rec.Status), rec.details())
	switch rec.Status {
	case StatusFailed:
		r.Recorder.Errorf("%s: %s", rec.SourcePath, rec.Error)
	case StatusSkipped:
		r.Recorder.Warnf("skipped %s (destination exists)", rec.Path)
	default:
		r.Recorder.Infof("%s %s -> %s", rec.Status, rec.SourcePath, rec.Path)
	}
}
