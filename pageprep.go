// Package pageprep provides a fluent API for preparing scanned page images
// for OCR: detecting two-page spreads, splitting them at the gutter, and
// cropping each page to its content.
//
// Basic usage:
//
//	report, err := pageprep.Dir("scans").OutDir("prepared").Run(ctx)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(report.Summary())
//
// With options:
//
//	report, err := pageprep.Dir("scans").
//	    OutDir("prepared").
//	    Mode(config.ModeSplit).
//	    Pad(30).
//	    PageNumbers().
//	    Run(ctx)
//
// For advanced use cases, the lower-level config, analyze, and pipeline
// packages are also available.
package pageprep

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/manifest"
	"github.com/tsawler/pageprep/pagenum"
	"github.com/tsawler/pageprep/pipeline"
)

// Version identifies pageprep releases in manifests and command output.
const Version = "0.1.0"

// Dir prepares every file in dir matching the configured glob pattern.
// The returned Job is configured fluently and executed with Run.
//
// Example:
//
//	report, err := pageprep.Dir("scans").OutDir("prepared").Run(ctx)
func Dir(dir string) *Job {
	return &Job{inDir: dir}
}

// Files prepares an explicit list of image files, in the given order. The
// glob pattern is ignored.
func Files(paths ...string) *Job {
	return &Job{files: paths}
}

// Job is a configured but not yet executed preparation run.
type Job struct {
	inDir string
	files []string

	outDir       string
	configPath   string
	overrides    config.Overrides
	prefix       string
	overwrite    bool
	dryRun       bool
	inPlace      bool
	pageNumbers  bool
	engine       pagenum.Engine
	workers      int
	manifestPath string
	logger       *logrus.Logger
}

// Report is the result of a completed run.
type Report struct {
	// Config is the effective configuration the run used.
	Config config.Effective

	// Records lists one entry per intended output, in input order.
	Records []pipeline.ActionRecord
}

// Counts rolls up the records by status.
func (r Report) Counts() map[pipeline.Status]int {
	counts := map[pipeline.Status]int{}
	for _, rec := range r.Records {
		counts[rec.Status]++
	}
	return counts
}

// Summary renders a one-line human-readable outcome.
func (r Report) Summary() string {
	c := r.Counts()
	return fmt.Sprintf("%d written, %d skipped, %d failed, %d dry-run",
		c[pipeline.StatusWritten], c[pipeline.StatusSkipped],
		c[pipeline.StatusFailed], c[pipeline.StatusDryRun])
}

// Failed reports whether any input failed.
func (r Report) Failed() bool {
	return r.Counts()[pipeline.StatusFailed] > 0
}

// Run resolves the configuration, collects the inputs, and executes the
// pipeline. The error covers setup problems (bad config, unreadable
// directory, in-place misuse) and context cancellation; per-file failures
// are reported through the records instead.
func (j *Job) Run(ctx context.Context) (Report, error) {
	var doc *config.Document
	if j.configPath != "" {
		var err error
		doc, err = config.LoadFile(j.configPath)
		if err != nil {
			return Report{}, err
		}
	}
	cfg, err := config.Resolve(doc, j.overrides)
	if err != nil {
		return Report{}, err
	}

	if j.outDir == "" {
		return Report{}, errors.New("no output directory configured")
	}

	paths := j.files
	if len(paths) == 0 {
		if j.inDir == "" {
			return Report{}, errors.New("no input directory or files configured")
		}
		if err := pipeline.GuardInPlace(j.inDir, j.outDir, j.inPlace, j.overwrite); err != nil {
			return Report{}, err
		}
		paths, err = pipeline.CollectFiles(j.inDir, cfg.Glob)
		if err != nil {
			return Report{}, err
		}
	}

	rec := manifest.NewRecorder("pageprep", Version, "page-images", j.logger)
	rec.DryRun = j.dryRun
	rec.SetInput("dir", j.inDir)
	rec.SetInput("files", len(paths))
	rec.SetOutput("out_dir", j.outDir)
	rec.Options = cfg

	runner := &pipeline.Runner{
		Config:             cfg,
		OutDir:             j.outDir,
		Prefix:             j.prefix,
		Overwrite:          j.overwrite,
		DryRun:             j.dryRun,
		InPlace:            j.inPlace,
		ExtractPageNumbers: j.pageNumbers,
		Workers:            j.workers,
		Recorder:           rec,
	}
	if j.pageNumbers {
		engine := j.engine
		if engine == nil {
			engine = pagenum.NewCommandEngine()
		}
		runner.PageNumbers = pagenum.NewExtractor(engine)
	}

	records, err := runner.ProcessBatch(ctx, paths)
	if err != nil {
		return Report{}, err
	}
	report := Report{Config: cfg, Records: records}

	if j.manifestPath != "" {
		counts := map[string]any{}
		for status, n := range report.Counts() {
			counts[string(status)] = n
		}
		if err := rec.Write(j.manifestPath, counts); err != nil {
			return report, fmt.Errorf("write manifest: %w", err)
		}
	}
	return report, nil
}

// Must wraps a call returning (T, error) and panics on error. Intended for
// scripts and tests where error handling would be cumbersome.
//
// Example:
//
//	report := pageprep.Must(pageprep.Dir("scans").OutDir("out").Run(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
