package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WrapperKey is the namespace key for the wrapped document shape.
const WrapperKey = "page_images"

// ShapeError reports a configuration document whose structure matches
// neither the root nor the wrapped shape. It aborts the batch before any
// image is processed.
type ShapeError struct {
	Path string
	Msg  string
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Msg)
}

// ValueError reports a field whose value has the wrong type or falls
// outside its allowed domain. Like ShapeError it is batch-fatal.
type ValueError struct {
	Field string
	Msg   string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("config: field %s %s", e.Field, e.Msg)
}

// Document is the canonical parsed form of a configuration file. Both
// accepted YAML shapes normalize to this single field set at the parse
// boundary; shape ambiguity is never carried further. Nil fields were not
// present in the document.
type Document struct {
	Glob             *string
	Mode             *string
	SplitRatio       *float64
	GutterSearchFrac *float64
	GutterTrimPx     *int
	XStep            *int
	YStep            *int
	CropThreshold    *int
	MinAreaFrac      *float64
	PadPx            *int
	EdgeInsetPx      *int

	OuterMarginMode           *string
	OuterMarginFrac           *float64
	OuterMarginAutoMaxFrac    *float64
	OuterMarginAutoSearchFrac *float64
	OuterMarginDarkThreshold  *int
	OuterMarginDarkFracCutoff *float64
	OuterMarginReleaseFrac    *float64
	OuterMarginMinRunPx       *int
	OuterMarginPadPx          *int
	SymmetryStrategy          *string
}

// LoadFile reads and parses a YAML configuration file. The document may be
// in root shape (fields at top level) or wrapped shape (fields nested under
// the page_images key). Unknown fields are ignored so forward-compatible
// configs keep working; only type mismatches are fatal.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ShapeError{Path: path, Msg: fmt.Sprintf("cannot read: %v", err)}
	}
	doc, err := Parse(data)
	if err != nil {
		if se, ok := err.(*ShapeError); ok {
			se.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse parses YAML bytes into a canonical Document. An empty document is
// valid and yields a Document with no fields set.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ShapeError{Msg: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw == nil {
		return &Document{}, nil
	}
	mapping, ok := raw.(map[string]any)
	if !ok {
		return nil, &ShapeError{Msg: "top level must be a mapping"}
	}

	// Wrapped shape wins when the namespace key is present; root-level
	// siblings of the wrapper are ignored.
	if wrapped, present := mapping[WrapperKey]; present {
		inner, ok := wrapped.(map[string]any)
		if !ok {
			return nil, &ShapeError{Msg: WrapperKey + " must be a mapping"}
		}
		mapping = inner
	}

	return fromMapping(mapping)
}

func fromMapping(m map[string]any) (*Document, error) {
	doc := &Document{}
	for key, value := range m {
		var err error
		switch key {
		case FieldGlob:
			doc.Glob, err = asString(key, value)
		case FieldMode:
			doc.Mode, err = asString(key, value)
		case FieldSplitRatio:
			doc.SplitRatio, err = asFloat(key, value)
		case FieldGutterSearchFrac:
			doc.GutterSearchFrac, err = asFloat(key, value)
		case FieldGutterTrimPx:
			doc.GutterTrimPx, err = asInt(key, value)
		case FieldXStep:
			doc.XStep, err = asInt(key, value)
		case FieldYStep:
			doc.YStep, err = asInt(key, value)
		case FieldCropThreshold:
			doc.CropThreshold, err = asInt(key, value)
		case FieldMinAreaFrac:
			doc.MinAreaFrac, err = asFloat(key, value)
		case FieldPadPx:
			doc.PadPx, err = asInt(key, value)
		case FieldEdgeInsetPx:
			doc.EdgeInsetPx, err = asInt(key, value)
		case FieldOuterMarginMode:
			doc.OuterMarginMode, err = asString(key, value)
		case FieldOuterMarginFrac:
			doc.OuterMarginFrac, err = asFloat(key, value)
		case FieldOuterMarginAutoMaxFrac:
			doc.OuterMarginAutoMaxFrac, err = asFloat(key, value)
		case FieldOuterMarginAutoSearchFrac:
			doc.OuterMarginAutoSearchFrac, err = asFloat(key, value)
		case FieldOuterMarginDarkThreshold:
			doc.OuterMarginDarkThreshold, err = asInt(key, value)
		case FieldOuterMarginDarkFracCutoff:
			doc.OuterMarginDarkFracCutoff, err = asFloat(key, value)
		case FieldOuterMarginReleaseFrac:
			doc.OuterMarginReleaseFrac, err = asFloat(key, value)
		case FieldOuterMarginMinRunPx:
			doc.OuterMarginMinRunPx, err = asInt(key, value)
		case FieldOuterMarginPadPx:
			doc.OuterMarginPadPx, err = asInt(key, value)
		case FieldSymmetryStrategy:
			doc.SymmetryStrategy, err = asString(key, value)
		default:
			// Unknown keys are tolerated for forward compatibility.
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func asString(field string, v any) (*string, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &ValueError{Field: field, Msg: fmt.Sprintf("must be a string, got %T", v)}
	}
	return &s, nil
}

func asFloat(field string, v any) (*float64, error) {
	switch n := v.(type) {
	case float64:
		return &n, nil
	case int:
		f := float64(n)
		return &f, nil
	}
	return nil, &ValueError{Field: field, Msg: fmt.Sprintf("must be a number, got %T", v)}
}

func asInt(field string, v any) (*int, error) {
	n, ok := v.(int)
	if !ok {
		return nil, &ValueError{Field: field, Msg: fmt.Sprintf("must be an integer, got %T", v)}
	}
	return &n, nil
}

// DumpDefaultYAML serializes the built-in defaults in wrapped shape, ready
// to be saved and edited as a starting config file.
func DumpDefaultYAML() string {
	d := Default()
	// yaml.Marshal of a map would sort keys; build the document in the
	// field order users expect instead.
	var b strings.Builder
	b.WriteString(WrapperKey + ":\n")
	fmt.Fprintf(&b, "  %s: %q\n", FieldGlob, d.Glob)
	fmt.Fprintf(&b, "  %s: %s\n", FieldMode, d.Mode)
	fmt.Fprintf(&b, "  %s: %v\n", FieldSplitRatio, d.SplitRatio)
	fmt.Fprintf(&b, "  %s: %v\n", FieldGutterSearchFrac, d.GutterSearchFrac)
	fmt.Fprintf(&b, "  %s: %d\n", FieldGutterTrimPx, d.GutterTrimPx)
	fmt.Fprintf(&b, "  %s: %d\n", FieldXStep, d.XStep)
	fmt.Fprintf(&b, "  %s: %d\n", FieldYStep, d.YStep)
	fmt.Fprintf(&b, "  %s: %d\n", FieldCropThreshold, d.CropThreshold)
	fmt.Fprintf(&b, "  %s: %v\n", FieldMinAreaFrac, d.MinAreaFrac)
	fmt.Fprintf(&b, "  %s: %d\n", FieldPadPx, d.PadPx)
	fmt.Fprintf(&b, "  %s: %d\n", FieldEdgeInsetPx, d.EdgeInsetPx)
	fmt.Fprintf(&b, "  %s: %s\n", FieldOuterMarginMode, d.OuterMarginMode)
	fmt.Fprintf(&b, "  %s: %v\n", FieldOuterMarginFrac, d.OuterMarginFrac)
	fmt.Fprintf(&b, "  %s: %v\n", FieldOuterMarginAutoMaxFrac, d.OuterMarginAutoMaxFrac)
	fmt.Fprintf(&b, "  %s: %v\n", FieldOuterMarginAutoSearchFrac, d.OuterMarginAutoSearchFrac)
	fmt.Fprintf(&b, "  %s: %d\n", FieldOuterMarginDarkThreshold, d.OuterMarginDarkThreshold)
	fmt.Fprintf(&b, "  %s: %v\n", FieldOuterMarginDarkFracCutoff, d.OuterMarginDarkFracCutoff)
	fmt.Fprintf(&b, "  %s: %v\n", FieldOuterMarginReleaseFrac, d.OuterMarginReleaseFrac)
	fmt.Fprintf(&b, "  %s: %d\n", FieldOuterMarginMinRunPx, d.OuterMarginMinRunPx)
	fmt.Fprintf(&b, "  %s: %d\n", FieldOuterMarginPadPx, d.OuterMarginPadPx)
	fmt.Fprintf(&b, "  %s: %s\n", FieldSymmetryStrategy, d.SymmetryStrategy)
	return b.String()
}
