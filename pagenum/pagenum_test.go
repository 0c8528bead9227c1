package pagenum

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/tsawler/pageprep/raster"
)

// fakeEngine returns canned recognitions keyed by call order: the extractor
// always asks for the left corner first, then the right.
type fakeEngine struct {
	recs  []Recognition
	errs  []error
	calls int
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Recognize(ctx context.Context, img *raster.Image) (Recognition, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var rec Recognition
	if i < len(f.recs) {
		rec = f.recs[i]
	}
	return rec, err
}

func testPage() *raster.Image {
	return raster.FromImage(image.NewGray(image.Rect(0, 0, 400, 600)))
}

func TestExtractNoEngine(t *testing.T) {
	x := NewExtractor(nil)
	res := x.Extract(context.Background(), testPage())
	if res.PrintedPage != nil {
		t.Error("expected nil printed page")
	}
	if res.Reason != ReasonNoTesseract {
		t.Errorf("expected %s, got %q", ReasonNoTesseract, res.Reason)
	}
}

func TestExtractUnavailableEngine(t *testing.T) {
	x := NewExtractor(Unavailable{})
	res := x.Extract(context.Background(), testPage())
	if res.Reason != ReasonNoTesseract {
		t.Errorf("expected %s, got %q", ReasonNoTesseract, res.Reason)
	}
	if res.PrintedPage != nil {
		t.Error("expected nil printed page")
	}
}

func TestExtractSingleCornerWins(t *testing.T) {
	cases := []struct {
		name   string
		left   Recognition
		right  Recognition
		page   int
		corner string
	}{
		{"left only", Recognition{Text: "42"}, Recognition{Text: "chapter one"}, 42, CornerLeft},
		{"right only", Recognition{Text: "..."}, Recognition{Text: " 137 "}, 137, CornerRight},
		{"digits inside noise", Recognition{Text: "~ 9l8 ~"}, Recognition{Text: ""}, 9, CornerLeft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := NewExtractor(&fakeEngine{recs: []Recognition{tc.left, tc.right}})
			res := x.Extract(context.Background(), testPage())
			if res.PrintedPage == nil || *res.PrintedPage != tc.page {
				t.Fatalf("expected page %d, got %v (reason %q)", tc.page, res.PrintedPage, res.Reason)
			}
			if res.Corner != tc.corner {
				t.Errorf("expected corner %s, got %s", tc.corner, res.Corner)
			}
			if res.Reason != "" {
				t.Errorf("reason must be empty on success, got %q", res.Reason)
			}
		})
	}
}

func TestExtractBothCornersConfidenceBreaksTie(t *testing.T) {
	x := NewExtractor(&fakeEngine{recs: []Recognition{
		{Text: "12", Confidence: 0.40, HasConfidence: true},
		{Text: "13", Confidence: 0.90, HasConfidence: true},
	}})
	res := x.Extract(context.Background(), testPage())
	if res.PrintedPage == nil || *res.PrintedPage != 13 {
		t.Fatalf("expected higher-confidence page 13, got %v", res.PrintedPage)
	}
	if res.Corner != CornerRight {
		t.Errorf("expected corner right, got %s", res.Corner)
	}
}

func TestExtractBothCornersNoConfidenceIsAmbiguous(t *testing.T) {
	x := NewExtractor(&fakeEngine{recs: []Recognition{
		{Text: "12"},
		{Text: "13"},
	}})
	res := x.Extract(context.Background(), testPage())
	if res.PrintedPage != nil {
		t.Error("expected nil printed page")
	}
	if res.Reason != ReasonAmbiguous {
		t.Errorf("expected %s, got %q", ReasonAmbiguous, res.Reason)
	}
	if res.RawLeft != "12" || res.RawRight != "13" {
		t.Errorf("raw text must be retained: %q / %q", res.RawLeft, res.RawRight)
	}
}

func TestExtractEqualConfidenceIsAmbiguous(t *testing.T) {
	x := NewExtractor(&fakeEngine{recs: []Recognition{
		{Text: "12", Confidence: 0.5, HasConfidence: true},
		{Text: "13", Confidence: 0.5, HasConfidence: true},
	}})
	res := x.Extract(context.Background(), testPage())
	if res.Reason != ReasonAmbiguous {
		t.Errorf("expected %s, got %q", ReasonAmbiguous, res.Reason)
	}
}

func TestExtractNoDigitsAnywhere(t *testing.T) {
	x := NewExtractor(&fakeEngine{recs: []Recognition{
		{Text: "finis"},
		{Text: "~~~"},
	}})
	res := x.Extract(context.Background(), testPage())
	if res.Reason != ReasonNoMatch {
		t.Errorf("expected %s, got %q", ReasonNoMatch, res.Reason)
	}
	if res.RawLeft != "finis" {
		t.Errorf("raw left must be retained, got %q", res.RawLeft)
	}
}

func TestExtractEngineErrorDegrades(t *testing.T) {
	x := NewExtractor(&fakeEngine{
		recs: []Recognition{{}, {Text: "77"}},
		errs: []error{errors.New("boom"), nil},
	})
	res := x.Extract(context.Background(), testPage())
	if res.PrintedPage == nil || *res.PrintedPage != 77 {
		t.Fatalf("one failing corner must not sink the other: %v (%q)", res.PrintedPage, res.Reason)
	}
	if res.Corner != CornerRight {
		t.Errorf("expected corner right, got %s", res.Corner)
	}
}

func TestExtractBothCornersFailing(t *testing.T) {
	x := NewExtractor(&fakeEngine{
		errs: []error{errors.New("boom"), errors.New("boom")},
	})
	res := x.Extract(context.Background(), testPage())
	if res.Reason != ReasonNoMatch {
		t.Errorf("expected %s, got %q", ReasonNoMatch, res.Reason)
	}
}

func TestExtractOutOfRangeRejected(t *testing.T) {
	x := NewExtractor(&fakeEngine{recs: []Recognition{
		{Text: "99999"},
		{Text: ""},
	}})
	res := x.Extract(context.Background(), testPage())
	if res.PrintedPage != nil {
		t.Errorf("page above MaxPage must be rejected, got %v", res.PrintedPage)
	}
	if res.Reason != ReasonNoMatch {
		t.Errorf("expected %s, got %q", ReasonNoMatch, res.Reason)
	}
}

func TestCornerBoxesGeometry(t *testing.T) {
	x := NewExtractor(Unavailable{})
	left, right := x.cornerBoxes(1000, 1500)

	for _, box := range [][4]int{left, right} {
		if !(0 <= box[0] && box[0] < box[2] && box[2] <= 1000) {
			t.Errorf("x bounds out of range: %v", box)
		}
		if !(0 <= box[1] && box[1] < box[3] && box[3] <= 1500) {
			t.Errorf("y bounds out of range: %v", box)
		}
		if box[3] != 1500 {
			t.Errorf("corner must touch the bottom edge: %v", box)
		}
	}
	if left[0] != 0 {
		t.Errorf("left corner must touch the left edge: %v", left)
	}
	if right[2] != 1000 {
		t.Errorf("right corner must touch the right edge: %v", right)
	}
	if left[2] != 280 {
		t.Errorf("expected corner width 280, got %d", left[2])
	}
}

func TestCornerBoxesTinyImage(t *testing.T) {
	x := NewExtractor(Unavailable{})
	left, right := x.cornerBoxes(3, 2)
	for _, box := range [][4]int{left, right} {
		if box[0] >= box[2] || box[1] >= box[3] {
			t.Errorf("degenerate corner box: %v", box)
		}
	}
}

func TestParsePageRuns(t *testing.T) {
	x := NewExtractor(Unavailable{})
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{" 42 ", 42, true},
		{"page 42", 42, true},
		{"4a2", 4, true},     // longest run ties, leftmost wins
		{"1 234", 234, true}, // longest run wins
		{"", 0, false},
		{"no digits", 0, false},
		{"99999", 0, false}, // above MaxPage
	}
	for _, tc := range cases {
		got, ok := x.parsePage(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parsePage(%q) = %d,%v; want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
