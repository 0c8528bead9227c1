package pipeline

import (
	"github.com/tsawler/pageprep/analyze"
	"github.com/tsawler/pageprep/pagenum"
)

// Status is the per-output outcome of a pipeline step.
type Status string

const (
	// StatusWritten means the output file was produced.
	StatusWritten Status = "written"
	// StatusDryRun means analysis ran but the write was suppressed.
	StatusDryRun Status = "dry-run"
	// StatusSkipped means the destination existed and overwrite was off.
	StatusSkipped Status = "skipped"
	// StatusFailed means this file could not be processed; siblings
	// continue unaffected.
	StatusFailed Status = "failed"
)

// Operation tags, in the order they are applied.
const (
	OpSplitLeft  = "split_left"
	OpSplitRight = "split_right"
	OpCrop       = "crop"
	OpPad        = "pad"
	OpEdgeInset  = "edge_inset"
	OpPageNumber = "page_number"
)

// Metadata captures the full chain of derived analysis for one output.
type Metadata struct {
	ModeUsed         string           `json:"mode_used"`
	DetectedSpread   bool             `json:"detected_spread"`
	SpreadReason     string           `json:"spread_reason,omitempty"`
	GutterX          *int             `json:"gutter_x,omitempty"`
	GutterConfidence *float64         `json:"gutter_confidence,omitempty"`
	CropBox          *analyze.CropBox `json:"crop_box,omitempty"`
	CropFallback     bool             `json:"crop_fallback,omitempty"`
	OuterBarPx       int              `json:"outer_bar_px,omitempty"`
	OuterClampPx     int              `json:"outer_clamp_px,omitempty"`
	PadPx            int              `json:"pad_px"`
	EdgeInsetPx      int              `json:"edge_inset_px"`
	PageNumber       *pagenum.Result  `json:"page_number,omitempty"`
	Notes            []string         `json:"notes,omitempty"`
}

// ActionRecord describes one (intended) output file. Records are handed to
// the external manifest writer and never persisted by the pipeline itself.
type ActionRecord struct {
	Path       string   `json:"path"`
	SourcePath string   `json:"source_path"`
	Operations []string `json:"operations"`
	Status     Status   `json:"status"`
	Error      string   `json:"error,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// details flattens the record for the manifest recorder.
func (a ActionRecord) details() map[string]any {
	d := map[string]any{
		"output":     a.Path,
		"input":      a.SourcePath,
		"operations": a.Operations,
		"mode_used":  a.Metadata.ModeUsed,
	}
	if a.Error != "" {
		d["error"] = a.Error
	}
	if a.Metadata.GutterX != nil {
		d["gutter_x"] = *a.Metadata.GutterX
	}
	if a.Metadata.CropBox != nil {
		d["crop_box"] = a.Metadata.CropBox.String()
	}
	if a.Metadata.PageNumber != nil {
		d["page_number"] = *a.Metadata.PageNumber
	}
	if len(a.Metadata.Notes) > 0 {
		d["notes"] = a.Metadata.Notes
	}
	return d
}
