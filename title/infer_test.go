package title

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/internal/pptxtest"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
)

type fakeRecognizer struct {
	dets   []ocr.Detection
	err    error
	bounds image.Rectangle
	calls  int
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) ([]ocr.Detection, error) {
	f.calls++
	f.bounds = img.Bounds()
	return f.dets, f.err
}

func det(text string, y, conf float64) ocr.Detection {
	return ocr.Detection{Box: [4]ocr.Point{{X: 0, Y: y}, {X: 10, Y: y}, {X: 10, Y: y + 5}, {X: 0, Y: y + 5}}, Text: text, Confidence: conf}
}

func slideWith(t *testing.T, texts ...string) *pptx.Slide {
	t.Helper()
	data := pptxtest.Build(pptxtest.Deck{Slides: []pptxtest.Slide{{Texts: texts}}})
	pres, err := pptx.ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	return pres.Slides()[0]
}

func screenshot() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1000, 600))
	img.Set(0, 0, color.Black)
	return img
}

func TestInferFromOCR(t *testing.T) {
	rec := &fakeRecognizer{dets: []ocr.Detection{
		det("Region", 20, 0.9),
		det("noise", 5, 0.3),
		det("Sales by", 2, 0.8),
	}}
	e := &Engine{Recognizer: rec}

	c := e.Infer(context.Background(), slideWith(t, "ignored"), screenshot(), 1)
	if c.Source != SourceOCR || c.Text != "Sales by Region" {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.Degraded != "" {
		t.Errorf("OCR title should not be degraded, got %q", c.Degraded)
	}
	if rec.bounds != image.Rect(0, 0, 400, 30) {
		t.Errorf("expected 400x30 header strip, got %v", rec.bounds)
	}
}

func TestInferFallsBackToSlideText(t *testing.T) {
	rec := &fakeRecognizer{dets: []ocr.Detection{det("blurry", 0, 0.1)}}
	e := &Engine{Recognizer: rec}

	c := e.Infer(context.Background(), slideWith(t, "   ", "Q3 Revenue\nsecond line"), screenshot(), 2)
	if c.Source != SourceSlideText || c.Text != "Q3 Revenue" {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.Degraded == "" {
		t.Error("expected a degradation reason")
	}
}

func TestInferOCRErrorIsDegraded(t *testing.T) {
	e := &Engine{Recognizer: &fakeRecognizer{err: errors.New("engine crashed")}}
	c := e.Infer(context.Background(), slideWith(t), screenshot(), 7)
	if c.Source != SourceDefault || c.Text != "Dashboard 7" {
		t.Errorf("unexpected candidate %+v", c)
	}
	if !strings.Contains(c.Degraded, "engine crashed") {
		t.Errorf("expected engine error in reason, got %q", c.Degraded)
	}

	missing := fmt.Errorf("%w: tesseract not found", ocr.ErrUnavailable)
	c = (&Engine{Recognizer: &fakeRecognizer{err: missing}}).Infer(context.Background(), slideWith(t, "Q3 Revenue"), screenshot(), 1)
	if c.Source != SourceSlideText || !errors.Is(c.Err, ocr.ErrUnavailable) {
		t.Errorf("expected the recognizer error to be kept, got %+v", c)
	}
}

func TestInferWithoutImage(t *testing.T) {
	rec := &fakeRecognizer{}
	e := &Engine{Recognizer: rec}
	c := e.Infer(context.Background(), slideWith(t, "Q3 Revenue"), nil, 1)
	if c.Text != "Q3 Revenue" || c.Source != SourceSlideText {
		t.Errorf("unexpected candidate %+v", c)
	}
	if rec.calls != 0 {
		t.Error("recognizer should not run without an image")
	}

	c = (&Engine{}).Infer(context.Background(), nil, nil, 3)
	if c.Text != "Dashboard 3" || c.Source != SourceDefault {
		t.Errorf("unexpected candidate %+v", c)
	}
}

func TestInferTinyImageSkipsOCR(t *testing.T) {
	rec := &fakeRecognizer{dets: []ocr.Detection{det("never", 0, 1)}}
	c := (&Engine{Recognizer: rec}).Infer(context.Background(), nil, image.NewGray(image.Rect(0, 0, 100, 10)), 5)
	if rec.calls != 0 || c.Text != "Dashboard 5" {
		t.Errorf("empty header strip should skip OCR, got %+v after %d calls", c, rec.calls)
	}
}

func TestInferTruncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	rec := &fakeRecognizer{dets: []ocr.Detection{det(long, 0, 0.99)}}
	c := (&Engine{Recognizer: rec}).Infer(context.Background(), nil, screenshot(), 1)
	if n := len([]rune(c.Text)); n != MaxLength {
		t.Errorf("expected %d runes, got %d", MaxLength, n)
	}

	c = (&Engine{}).Infer(context.Background(), slideWith(t, strings.Repeat("x", 300)), nil, 1)
	if len(c.Text) != MaxLength {
		t.Errorf("slide text should be truncated, got %d", len(c.Text))
	}
}

func TestHeaderStripOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 20, 210, 420))
	strip := HeaderStrip(img)
	if strip.Bounds() != image.Rect(10, 20, 90, 40) {
		t.Errorf("unexpected strip %v", strip.Bounds())
	}
}

func TestJoinDetectionsStableOrder(t *testing.T) {
	got := JoinDetections([]ocr.Detection{det("b", 1, 0.5), det("a", 1, 0.5), det(" ", 0, 0.9)})
	if got != "b a" {
		t.Errorf("expected stable order %q, got %q", "b a", got)
	}
	got = JoinDetections([]ocr.Detection{det("  Sales ", 0, 0.9), det("", 1, 0.9), det("Region", 2, 0.9)})
	if got != "Sales Region" {
		t.Errorf("expected blank pieces dropped and pieces trimmed, got %q", got)
	}
	if _, err := SlideText(slideWith(t)); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}

func TestSourceString(t *testing.T) {
	if SourceOCR.String() != "ocr" || SourceSlideText.String() != "slide_text" || SourceDefault.String() != "default" {
		t.Error("unexpected source names")
	}
}
