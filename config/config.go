// Package config resolves the effective page-image processing configuration
// from three layered sources: built-in defaults, an optional YAML document,
// and explicitly supplied call-time overrides.
//
// Precedence is evaluated per field, not per document: an explicit override
// for one field never shadows a YAML value for another. Each resolved field
// records which source won so callers can report provenance.
package config

import "fmt"

// Mode selects how input images are handled.
type Mode string

const (
	// ModeAuto splits only when the aspect ratio indicates a two-page spread.
	ModeAuto Mode = "auto"
	// ModeSplit always splits into left and right pages.
	ModeSplit Mode = "split"
	// ModeCrop never splits; images are only cropped.
	ModeCrop Mode = "crop"
)

// OuterMarginMode controls clamping of the outer (non-gutter) edge of each
// split page, where scanner bed shadow often shows as a dark bar.
type OuterMarginMode string

const (
	// OuterOff disables outer-margin clamping.
	OuterOff OuterMarginMode = "off"
	// OuterFixed clamps a fixed fraction of the page width.
	OuterFixed OuterMarginMode = "fixed"
	// OuterAuto detects the dark bar and clamps just past it.
	OuterAuto OuterMarginMode = "auto"
)

// Symmetry selects how the crop boxes of the two halves of a split spread
// are reconciled with each other.
type Symmetry string

const (
	// SymmetryIndependent crops each half on its own.
	SymmetryIndependent Symmetry = "independent"
	// SymmetryMatchMaxWidth widens the narrower half to the wider one.
	SymmetryMatchMaxWidth Symmetry = "match_max_width"
	// SymmetryMirrorFromGutter equalizes the gap each half leaves at the
	// gutter.
	SymmetryMirrorFromGutter Symmetry = "mirror_from_gutter"
)

// Source identifies where a resolved field's value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceYAML     Source = "yaml"
	SourceExplicit Source = "explicit"
)

// Field names used for provenance lookups and error reporting. They match
// the YAML document keys.
const (
	FieldGlob             = "glob"
	FieldMode             = "mode"
	FieldSplitRatio       = "split_ratio"
	FieldGutterSearchFrac = "gutter_search_frac"
	FieldGutterTrimPx     = "gutter_trim_px"
	FieldXStep            = "x_step"
	FieldYStep            = "y_step"
	FieldCropThreshold    = "crop_threshold"
	FieldMinAreaFrac      = "min_area_frac"
	FieldPadPx            = "pad_px"
	FieldEdgeInsetPx      = "edge_inset_px"

	FieldOuterMarginMode           = "outer_margin_mode"
	FieldOuterMarginFrac           = "outer_margin_frac"
	FieldOuterMarginAutoMaxFrac    = "outer_margin_auto_max_frac"
	FieldOuterMarginAutoSearchFrac = "outer_margin_auto_search_frac"
	FieldOuterMarginDarkThreshold  = "outer_margin_dark_threshold"
	FieldOuterMarginDarkFracCutoff = "outer_margin_dark_frac_cutoff"
	FieldOuterMarginReleaseFrac    = "outer_margin_release_frac"
	FieldOuterMarginMinRunPx       = "outer_margin_min_run_px"
	FieldOuterMarginPadPx          = "outer_margin_pad_px"
	FieldSymmetryStrategy          = "symmetry_strategy"
)

// Effective is the fully resolved configuration consumed by the analyzers
// and the pipeline. Values are validated; provenance records the winning
// source per field.
type Effective struct {
	// Glob selects input files when processing a directory.
	Glob string

	// Mode controls spread handling (auto, split, crop).
	Mode Mode

	// SplitRatio is the width/height ratio at or above which an image is
	// treated as a two-page spread in auto mode.
	SplitRatio float64

	// GutterSearchFrac is the fraction of image width, centered on the
	// horizontal midpoint, searched for the gutter column.
	GutterSearchFrac float64

	// GutterTrimPx is shaved symmetrically from both halves at the gutter.
	GutterTrimPx int

	// XStep and YStep are sampling strides for the gutter column scan.
	XStep int
	YStep int

	// CropThreshold binarizes pages: pixels darker than this are content.
	CropThreshold int

	// MinAreaFrac guards against degenerate crops: the content bounding box
	// must cover at least this fraction of the image area.
	MinAreaFrac float64

	// PadPx expands the content box outward before EdgeInsetPx contracts it.
	PadPx       int
	EdgeInsetPx int

	// OuterMarginMode clamps the outer edge of split pages against scanner
	// bed shadow. Fixed mode clamps OuterMarginFrac of the page width; auto
	// mode detects the dark bar with the tuning knobs below.
	OuterMarginMode OuterMarginMode
	OuterMarginFrac float64

	// Auto-detection tuning: the bar is searched within AutoSearchFrac of
	// the page width from the outer edge; a column counts as bar when at
	// least DarkFracCutoff of its pixels are darker than DarkThreshold; the
	// bar ends after MinRunPx consecutive columns fall to ReleaseFrac or
	// below. The applied clamp adds OuterMarginPadPx and is capped at
	// AutoMaxFrac of the page width.
	OuterMarginAutoMaxFrac    float64
	OuterMarginAutoSearchFrac float64
	OuterMarginDarkThreshold  int
	OuterMarginDarkFracCutoff float64
	OuterMarginReleaseFrac    float64
	OuterMarginMinRunPx       int
	OuterMarginPadPx          int

	// SymmetryStrategy reconciles the two crop boxes of a split spread.
	SymmetryStrategy Symmetry

	provenance map[string]Source
}

// SourceOf reports which source produced the named field. Unknown field
// names report SourceDefault.
func (e Effective) SourceOf(field string) Source {
	if s, ok := e.provenance[field]; ok {
		return s
	}
	return SourceDefault
}

// Default returns the built-in configuration with every field sourced from
// defaults.
func Default() Effective {
	e := Effective{
		Glob:             "*.png",
		Mode:             ModeAuto,
		SplitRatio:       1.25,
		GutterSearchFrac: 0.35,
		GutterTrimPx:     0,
		XStep:            2,
		YStep:            4,
		CropThreshold:    180,
		MinAreaFrac:      0.25,
		PadPx:            20,
		EdgeInsetPx:      0,

		OuterMarginMode:           OuterOff,
		OuterMarginFrac:           0.0,
		OuterMarginAutoMaxFrac:    0.15,
		OuterMarginAutoSearchFrac: 0.18,
		OuterMarginDarkThreshold:  80,
		OuterMarginDarkFracCutoff: 0.60,
		OuterMarginReleaseFrac:    0.35,
		OuterMarginMinRunPx:       12,
		OuterMarginPadPx:          4,
		SymmetryStrategy:          SymmetryIndependent,

		provenance: map[string]Source{},
	}
	for _, f := range fieldNames {
		e.provenance[f] = SourceDefault
	}
	return e
}

var fieldNames = []string{
	FieldGlob, FieldMode, FieldSplitRatio, FieldGutterSearchFrac,
	FieldGutterTrimPx, FieldXStep, FieldYStep, FieldCropThreshold,
	FieldMinAreaFrac, FieldPadPx, FieldEdgeInsetPx,
	FieldOuterMarginMode, FieldOuterMarginFrac, FieldOuterMarginAutoMaxFrac,
	FieldOuterMarginAutoSearchFrac, FieldOuterMarginDarkThreshold,
	FieldOuterMarginDarkFracCutoff, FieldOuterMarginReleaseFrac,
	FieldOuterMarginMinRunPx, FieldOuterMarginPadPx, FieldSymmetryStrategy,
}

// Overrides carries call-time values. A nil field means "left at tool
// default" and never shadows a YAML value; a non-nil field is explicit and
// always wins. This distinction is load-bearing for precedence.
type Overrides struct {
	Glob             *string
	Mode             *Mode
	SplitRatio       *float64
	GutterSearchFrac *float64
	GutterTrimPx     *int
	XStep            *int
	YStep            *int
	CropThreshold    *int
	MinAreaFrac      *float64
	PadPx            *int
	EdgeInsetPx      *int

	OuterMarginMode           *OuterMarginMode
	OuterMarginFrac           *float64
	OuterMarginAutoMaxFrac    *float64
	OuterMarginAutoSearchFrac *float64
	OuterMarginDarkThreshold  *int
	OuterMarginDarkFracCutoff *float64
	OuterMarginReleaseFrac    *float64
	OuterMarginMinRunPx       *int
	OuterMarginPadPx          *int
	SymmetryStrategy          *Symmetry
}

// Resolve merges defaults, an optional parsed document, and explicit
// overrides into one validated Effective configuration. It is a pure
// function: identical inputs always produce an identical result.
func Resolve(doc *Document, ov Overrides) (Effective, error) {
	e := Default()

	if doc != nil {
		applyString(&e, FieldGlob, &e.Glob, doc.Glob)
		applyMode(&e, doc.Mode)
		applyFloat(&e, FieldSplitRatio, &e.SplitRatio, doc.SplitRatio)
		applyFloat(&e, FieldGutterSearchFrac, &e.GutterSearchFrac, doc.GutterSearchFrac)
		applyInt(&e, FieldGutterTrimPx, &e.GutterTrimPx, doc.GutterTrimPx)
		applyInt(&e, FieldXStep, &e.XStep, doc.XStep)
		applyInt(&e, FieldYStep, &e.YStep, doc.YStep)
		applyInt(&e, FieldCropThreshold, &e.CropThreshold, doc.CropThreshold)
		applyFloat(&e, FieldMinAreaFrac, &e.MinAreaFrac, doc.MinAreaFrac)
		applyInt(&e, FieldPadPx, &e.PadPx, doc.PadPx)
		applyInt(&e, FieldEdgeInsetPx, &e.EdgeInsetPx, doc.EdgeInsetPx)

		if doc.OuterMarginMode != nil {
			e.OuterMarginMode = OuterMarginMode(*doc.OuterMarginMode)
			e.provenance[FieldOuterMarginMode] = SourceYAML
		}
		applyFloat(&e, FieldOuterMarginFrac, &e.OuterMarginFrac, doc.OuterMarginFrac)
		applyFloat(&e, FieldOuterMarginAutoMaxFrac, &e.OuterMarginAutoMaxFrac, doc.OuterMarginAutoMaxFrac)
		applyFloat(&e, FieldOuterMarginAutoSearchFrac, &e.OuterMarginAutoSearchFrac, doc.OuterMarginAutoSearchFrac)
		applyInt(&e, FieldOuterMarginDarkThreshold, &e.OuterMarginDarkThreshold, doc.OuterMarginDarkThreshold)
		applyFloat(&e, FieldOuterMarginDarkFracCutoff, &e.OuterMarginDarkFracCutoff, doc.OuterMarginDarkFracCutoff)
		applyFloat(&e, FieldOuterMarginReleaseFrac, &e.OuterMarginReleaseFrac, doc.OuterMarginReleaseFrac)
		applyInt(&e, FieldOuterMarginMinRunPx, &e.OuterMarginMinRunPx, doc.OuterMarginMinRunPx)
		applyInt(&e, FieldOuterMarginPadPx, &e.OuterMarginPadPx, doc.OuterMarginPadPx)
		if doc.SymmetryStrategy != nil {
			e.SymmetryStrategy = Symmetry(*doc.SymmetryStrategy)
			e.provenance[FieldSymmetryStrategy] = SourceYAML
		}
	}

	if ov.Glob != nil {
		e.Glob = *ov.Glob
		e.provenance[FieldGlob] = SourceExplicit
	}
	if ov.Mode != nil {
		e.Mode = *ov.Mode
		e.provenance[FieldMode] = SourceExplicit
	}
	if ov.SplitRatio != nil {
		e.SplitRatio = *ov.SplitRatio
		e.provenance[FieldSplitRatio] = SourceExplicit
	}
	if ov.GutterSearchFrac != nil {
		e.GutterSearchFrac = *ov.GutterSearchFrac
		e.provenance[FieldGutterSearchFrac] = SourceExplicit
	}
	if ov.GutterTrimPx != nil {
		e.GutterTrimPx = *ov.GutterTrimPx
		e.provenance[FieldGutterTrimPx] = SourceExplicit
	}
	if ov.XStep != nil {
		e.XStep = *ov.XStep
		e.provenance[FieldXStep] = SourceExplicit
	}
	if ov.YStep != nil {
		e.YStep = *ov.YStep
		e.provenance[FieldYStep] = SourceExplicit
	}
	if ov.CropThreshold != nil {
		e.CropThreshold = *ov.CropThreshold
		e.provenance[FieldCropThreshold] = SourceExplicit
	}
	if ov.MinAreaFrac != nil {
		e.MinAreaFrac = *ov.MinAreaFrac
		e.provenance[FieldMinAreaFrac] = SourceExplicit
	}
	if ov.PadPx != nil {
		e.PadPx = *ov.PadPx
		e.provenance[FieldPadPx] = SourceExplicit
	}
	if ov.EdgeInsetPx != nil {
		e.EdgeInsetPx = *ov.EdgeInsetPx
		e.provenance[FieldEdgeInsetPx] = SourceExplicit
	}
	if ov.OuterMarginMode != nil {
		e.OuterMarginMode = *ov.OuterMarginMode
		e.provenance[FieldOuterMarginMode] = SourceExplicit
	}
	if ov.OuterMarginFrac != nil {
		e.OuterMarginFrac = *ov.OuterMarginFrac
		e.provenance[FieldOuterMarginFrac] = SourceExplicit
	}
	if ov.OuterMarginAutoMaxFrac != nil {
		e.OuterMarginAutoMaxFrac = *ov.OuterMarginAutoMaxFrac
		e.provenance[FieldOuterMarginAutoMaxFrac] = SourceExplicit
	}
	if ov.OuterMarginAutoSearchFrac != nil {
		e.OuterMarginAutoSearchFrac = *ov.OuterMarginAutoSearchFrac
		e.provenance[FieldOuterMarginAutoSearchFrac] = SourceExplicit
	}
	if ov.OuterMarginDarkThreshold != nil {
		e.OuterMarginDarkThreshold = *ov.OuterMarginDarkThreshold
		e.provenance[FieldOuterMarginDarkThreshold] = SourceExplicit
	}
	if ov.OuterMarginDarkFracCutoff != nil {
		e.OuterMarginDarkFracCutoff = *ov.OuterMarginDarkFracCutoff
		e.provenance[FieldOuterMarginDarkFracCutoff] = SourceExplicit
	}
	if ov.OuterMarginReleaseFrac != nil {
		e.OuterMarginReleaseFrac = *ov.OuterMarginReleaseFrac
		e.provenance[FieldOuterMarginReleaseFrac] = SourceExplicit
	}
	if ov.OuterMarginMinRunPx != nil {
		e.OuterMarginMinRunPx = *ov.OuterMarginMinRunPx
		e.provenance[FieldOuterMarginMinRunPx] = SourceExplicit
	}
	if ov.OuterMarginPadPx != nil {
		e.OuterMarginPadPx = *ov.OuterMarginPadPx
		e.provenance[FieldOuterMarginPadPx] = SourceExplicit
	}
	if ov.SymmetryStrategy != nil {
		e.SymmetryStrategy = *ov.SymmetryStrategy
		e.provenance[FieldSymmetryStrategy] = SourceExplicit
	}

	if err := e.validate(); err != nil {
		return Effective{}, err
	}
	return e, nil
}

func applyString(e *Effective, field string, dst *string, src *string) {
	if src != nil {
		*dst = *src
		e.provenance[field] = SourceYAML
	}
}

func applyMode(e *Effective, src *string) {
	if src != nil {
		e.Mode = Mode(*src)
		e.provenance[FieldMode] = SourceYAML
	}
}

func applyFloat(e *Effective, field string, dst *float64, src *float64) {
	if src != nil {
		*dst = *src
		e.provenance[field] = SourceYAML
	}
}

func applyInt(e *Effective, field string, dst *int, src *int) {
	if src != nil {
		*dst = *src
		e.provenance[field] = SourceYAML
	}
}

// validate checks resolved values against their allowed domains.
func (e Effective) validate() error {
	switch e.Mode {
	case ModeAuto, ModeSplit, ModeCrop:
	default:
		return &ValueError{Field: FieldMode, Msg: fmt.Sprintf("must be one of auto, split, crop; got %q", e.Mode)}
	}
	if e.Glob == "" {
		return &ValueError{Field: FieldGlob, Msg: "must not be empty"}
	}
	if e.SplitRatio <= 0 {
		return &ValueError{Field: FieldSplitRatio, Msg: "must be > 0"}
	}
	if e.GutterSearchFrac <= 0 || e.GutterSearchFrac > 0.5 {
		return &ValueError{Field: FieldGutterSearchFrac, Msg: "must be in (0, 0.5]"}
	}
	if e.GutterTrimPx < 0 {
		return &ValueError{Field: FieldGutterTrimPx, Msg: "must be >= 0"}
	}
	if e.XStep <= 0 {
		return &ValueError{Field: FieldXStep, Msg: "must be a positive integer"}
	}
	if e.YStep <= 0 {
		return &ValueError{Field: FieldYStep, Msg: "must be a positive integer"}
	}
	if e.CropThreshold < 0 || e.CropThreshold > 255 {
		return &ValueError{Field: FieldCropThreshold, Msg: "must be in [0, 255]"}
	}
	if e.MinAreaFrac <= 0 || e.MinAreaFrac > 1 {
		return &ValueError{Field: FieldMinAreaFrac, Msg: "must be in (0, 1]"}
	}
	if e.PadPx < 0 {
		return &ValueError{Field: FieldPadPx, Msg: "must be >= 0"}
	}
	if e.EdgeInsetPx < 0 {
		return &ValueError{Field: FieldEdgeInsetPx, Msg: "must be >= 0"}
	}
	switch e.OuterMarginMode {
	case OuterOff, OuterFixed, OuterAuto:
	default:
		return &ValueError{Field: FieldOuterMarginMode, Msg: fmt.Sprintf("must be one of off, fixed, auto; got %q", e.OuterMarginMode)}
	}
	if e.OuterMarginFrac < 0 || e.OuterMarginFrac > 1 {
		return &ValueError{Field: FieldOuterMarginFrac, Msg: "must be in [0, 1]"}
	}
	if e.OuterMarginAutoMaxFrac < 0 || e.OuterMarginAutoMaxFrac > 1 {
		return &ValueError{Field: FieldOuterMarginAutoMaxFrac, Msg: "must be in [0, 1]"}
	}
	if e.OuterMarginAutoSearchFrac <= 0 || e.OuterMarginAutoSearchFrac > 1 {
		return &ValueError{Field: FieldOuterMarginAutoSearchFrac, Msg: "must be in (0, 1]"}
	}
	if e.OuterMarginDarkThreshold < 0 || e.OuterMarginDarkThreshold > 255 {
		return &ValueError{Field: FieldOuterMarginDarkThreshold, Msg: "must be in [0, 255]"}
	}
	if e.OuterMarginDarkFracCutoff <= 0 || e.OuterMarginDarkFracCutoff > 1 {
		return &ValueError{Field: FieldOuterMarginDarkFracCutoff, Msg: "must be in (0, 1]"}
	}
	if e.OuterMarginReleaseFrac < 0 || e.OuterMarginReleaseFrac > 1 {
		return &ValueError{Field: FieldOuterMarginReleaseFrac, Msg: "must be in [0, 1]"}
	}
	if e.OuterMarginMinRunPx <= 0 {
		return &ValueError{Field: FieldOuterMarginMinRunPx, Msg: "must be a positive integer"}
	}
	if e.OuterMarginPadPx < 0 {
		return &ValueError{Field: FieldOuterMarginPadPx, Msg: "must be >= 0"}
	}
	switch e.SymmetryStrategy {
	case SymmetryIndependent, SymmetryMatchMaxWidth, SymmetryMirrorFromGutter:
	default:
		return &ValueError{Field: FieldSymmetryStrategy, Msg: fmt.Sprintf("must be one of independent, match_max_width, mirror_from_gutter; got %q", e.SymmetryStrategy)}
	}
	return nil
}
