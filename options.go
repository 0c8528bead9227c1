package pageprep

import (
	"github.com/sirupsen/logrus"
	"github.com/tsawler/pageprep/config"
	"github.com/tsawler/pageprep/pagenum"
)

// OutDir sets the directory that receives the prepared images. Required.
func (j *Job) OutDir(dir string) *Job {
	j.outDir = dir
	return j
}

// ConfigFile layers a YAML configuration file under the explicit options:
// explicit setters win, then the file, then built-in defaults.
func (j *Job) ConfigFile(path string) *Job {
	j.configPath = path
	return j
}

// Glob sets the filename pattern used when collecting from a directory.
func (j *Job) Glob(pattern string) *Job {
	j.overrides.Glob = &pattern
	return j
}

// Mode forces spread handling: config.ModeSplit always splits,
// config.ModeCrop never splits, config.ModeAuto decides by aspect ratio.
func (j *Job) Mode(mode config.Mode) *Job {
	j.overrides.Mode = &mode
	return j
}

// SplitRatio sets the width/height ratio at or above which an image counts
// as a two-page spread in auto mode.
func (j *Job) SplitRatio(ratio float64) *Job {
	j.overrides.SplitRatio = &ratio
	return j
}

// GutterSearchFrac sets the width fraction of the central band searched for
// the gutter. Must be in (0, 0.5].
func (j *Job) GutterSearchFrac(frac float64) *Job {
	j.overrides.GutterSearchFrac = &frac
	return j
}

// GutterTrim shaves px columns from both sides of the detected gutter.
func (j *Job) GutterTrim(px int) *Job {
	j.overrides.GutterTrimPx = &px
	return j
}

// XStep sets the column sampling stride used by the gutter search. Larger
// strides are faster and less precise.
func (j *Job) XStep(step int) *Job {
	j.overrides.XStep = &step
	return j
}

// YStep sets the row sampling stride used by the gutter search.
func (j *Job) YStep(step int) *Job {
	j.overrides.YStep = &step
	return j
}

// CropThreshold sets the luminance below which a pixel counts as content.
func (j *Job) CropThreshold(level int) *Job {
	j.overrides.CropThreshold = &level
	return j
}

// MinAreaFrac sets the content-area fraction below which the crop falls
// back to the full frame.
func (j *Job) MinAreaFrac(frac float64) *Job {
	j.overrides.MinAreaFrac = &frac
	return j
}

// Pad expands the detected crop box by px on every side.
func (j *Job) Pad(px int) *Job {
	j.overrides.PadPx = &px
	return j
}

// EdgeInset contracts the padded crop box by px on every side.
func (j *Job) EdgeInset(px int) *Job {
	j.overrides.EdgeInsetPx = &px
	return j
}

// OuterMarginMode controls clamping of the outer edge of split pages:
// config.OuterOff, config.OuterFixed, or config.OuterAuto.
func (j *Job) OuterMarginMode(mode config.OuterMarginMode) *Job {
	j.overrides.OuterMarginMode = &mode
	return j
}

// OuterMarginFrac sets the width fraction clamped in fixed mode.
func (j *Job) OuterMarginFrac(frac float64) *Job {
	j.overrides.OuterMarginFrac = &frac
	return j
}

// OuterMarginAutoMaxFrac caps the auto-detected clamp as a width fraction.
func (j *Job) OuterMarginAutoMaxFrac(frac float64) *Job {
	j.overrides.OuterMarginAutoMaxFrac = &frac
	return j
}

// OuterMarginAutoSearchFrac sets how far from the outer edge the dark bar
// is searched for, as a width fraction.
func (j *Job) OuterMarginAutoSearchFrac(frac float64) *Job {
	j.overrides.OuterMarginAutoSearchFrac = &frac
	return j
}

// OuterMarginDarkThreshold sets the luminance below which a pixel counts
// toward the dark bar.
func (j *Job) OuterMarginDarkThreshold(level int) *Job {
	j.overrides.OuterMarginDarkThreshold = &level
	return j
}

// OuterMarginDarkFracCutoff sets the dark-pixel fraction at which a column
// counts as part of the bar.
func (j *Job) OuterMarginDarkFracCutoff(frac float64) *Job {
	j.overrides.OuterMarginDarkFracCutoff = &frac
	return j
}

// OuterMarginReleaseFrac sets the dark-pixel fraction at or below which a
// column counts as past the bar.
func (j *Job) OuterMarginReleaseFrac(frac float64) *Job {
	j.overrides.OuterMarginReleaseFrac = &frac
	return j
}

// OuterMarginMinRunPx sets how many consecutive released columns end the
// bar.
func (j *Job) OuterMarginMinRunPx(px int) *Job {
	j.overrides.OuterMarginMinRunPx = &px
	return j
}

// OuterMarginPadPx adds px past the detected bar before clamping.
func (j *Job) OuterMarginPadPx(px int) *Job {
	j.overrides.OuterMarginPadPx = &px
	return j
}

// SymmetryStrategy reconciles the crop boxes of a split spread's halves:
// config.SymmetryIndependent, config.SymmetryMatchMaxWidth, or
// config.SymmetryMirrorFromGutter.
func (j *Job) SymmetryStrategy(strategy config.Symmetry) *Job {
	j.overrides.SymmetryStrategy = &strategy
	return j
}

// Prefix overrides the output filename prefix. By default each output is
// prefixed with its source file's stem.
func (j *Job) Prefix(prefix string) *Job {
	j.prefix = prefix
	return j
}

// Overwrite allows replacing existing destination files.
func (j *Job) Overwrite() *Job {
	j.overwrite = true
	return j
}

// DryRun performs the full analysis and reporting without writing files.
func (j *Job) DryRun() *Job {
	j.dryRun = true
	return j
}

// InPlace acknowledges that the output directory may equal the input
// directory. Also requires Overwrite.
func (j *Job) InPlace() *Job {
	j.inPlace = true
	return j
}

// PageNumbers enables best-effort printed page-number extraction on every
// output page, using the tesseract command if installed.
func (j *Job) PageNumbers() *Job {
	j.pageNumbers = true
	return j
}

// PageNumberEngine enables extraction through a specific OCR engine.
func (j *Job) PageNumberEngine(engine pagenum.Engine) *Job {
	j.pageNumbers = true
	j.engine = engine
	return j
}

// Workers bounds how many images are processed concurrently. Values below
// 1 mean serial processing.
func (j *Job) Workers(n int) *Job {
	j.workers = n
	return j
}

// Manifest writes a JSON run manifest to path after the run.
func (j *Job) Manifest(path string) *Job {
	j.manifestPath = path
	return j
}

// Logger echoes progress through the given logrus logger. Without one the
// run is silent apart from the returned report.
func (j *Job) Logger(logger *logrus.Logger) *Job {
	j.logger = logger
	return j
}
