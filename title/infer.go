// Package title picks and formats the title of each output slide.
package title

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sort"
	"strings"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
)

// MaxLength is the longest title, in runes.
const MaxLength = 120

const (
	// Recognized lines at or below this confidence are ignored.
	minConfidence = 0.3
	// Dashboard titles sit in the top-left corner of the screenshot.
	headerWidth  = 0.4
	headerHeight = 0.05
)

// ErrNoCandidate is returned by SlideText when no shape carries text.
var ErrNoCandidate = errors.New("no title candidate")

// Source records where a title came from.
type Source int

const (
	SourceOCR Source = iota
	SourceSlideText
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceOCR:
		return "ocr"
	case SourceSlideText:
		return "slide_text"
	case SourceDefault:
		return "default"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Candidate is an inferred title. Text is never empty.
type Candidate struct {
	Text   string
	Source Source
	// Degraded explains why OCR did not produce the title; empty when it did.
	Degraded string
	// Err is the recognizer's error, when OCR ran and failed.
	Err error
}

// ShapeLister is implemented by *pptx.Slide.
type ShapeLister interface {
	Shapes() []pptx.Shape
}

// Engine infers slide titles. A nil Recognizer skips OCR.
type Engine struct {
	Recognizer ocr.Recognizer
}

// Infer returns the title for the n-th slide of a batch (1-based). The
// header strip of img is read first, then the slide's own text, and finally
// a numbered placeholder is used. Infer never fails.
func (e *Engine) Infer(ctx context.Context, slide ShapeLister, img image.Image, n int) Candidate {
	text, degraded, err := e.fromImage(ctx, img)
	if text != "" {
		return Candidate{Text: Truncate(text), Source: SourceOCR}
	}
	if slide != nil {
		if text, serr := SlideText(slide); serr == nil {
			return Candidate{Text: Truncate(text), Source: SourceSlideText, Degraded: degraded, Err: err}
		}
	}
	return Candidate{Text: fmt.Sprintf("Dashboard %d", n), Source: SourceDefault, Degraded: degraded, Err: err}
}

// fromImage reads the header strip. On failure it returns "" and the reason,
// plus the recognizer error if there was one.
func (e *Engine) fromImage(ctx context.Context, img image.Image) (string, string, error) {
	if img == nil {
		return "", "no image", nil
	}
	if e.Recognizer == nil {
		return "", "ocr disabled", nil
	}
	crop := HeaderStrip(img)
	if crop == nil {
		return "", "header strip is empty", nil
	}
	dets, err := e.Recognizer.Recognize(ctx, crop)
	if err != nil {
		return "", err.Error(), err
	}
	text := JoinDetections(dets)
	if text == "" {
		return "", "no text above confidence threshold", nil
	}
	return text, "", nil
}

// HeaderStrip returns the top-left region of img that holds a dashboard's
// title: 40% of the width by 5% of the height. It returns nil when the region
// has no pixels.
func HeaderStrip(img image.Image) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * headerWidth)
	h := int(float64(b.Dy()) * headerHeight)
	if w <= 0 || h <= 0 {
		return nil
	}
	r := image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Min.Y+h)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// JoinDetections keeps confident detections, orders them top to bottom and
// joins their text with single spaces.
func JoinDetections(dets []ocr.Detection) string {
	var kept []ocr.Detection
	for _, d := range dets {
		if d.Confidence > minConfidence {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Box[0].Y < kept[j].Box[0].Y
	})
	parts := make([]string, 0, len(kept))
	for _, d := range kept {
		if t := strings.TrimSpace(d.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// SlideText returns the first line of the first shape with non-blank text.
func SlideText(slide ShapeLister) (string, error) {
	for _, sh := range slide.Shapes() {
		text := strings.TrimSpace(sh.Text())
		if text == "" {
			continue
		}
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		return text, nil
	}
	return "", ErrNoCandidate
}

// Truncate cuts s to MaxLength runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxLength {
		return s
	}
	return string(r[:MaxLength])
}
