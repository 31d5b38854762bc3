// Package ocr recognizes text in dashboard screenshots.
//
// Engines are interchangeable behind Recognizer: a local Tesseract binary,
// Google Document AI, or None when recognition is switched off.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/gmfennema/tableau-power-point-stylizer/config"
)

// ErrUnavailable is returned when an engine cannot run on this host.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Point is a pixel position in the recognized image.
type Point struct {
	X, Y float64
}

// Detection is one recognized line of text.
type Detection struct {
	// Box is the bounding quadrilateral, clockwise from the top-left corner.
	Box  [4]Point
	Text string
	// Confidence is in [0, 1].
	Confidence float64
}

// Recognizer detects text in an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)
}

// None is a Recognizer that never finds text.
type None struct{}

func (None) Recognize(context.Context, image.Image) ([]Detection, error) {
	return nil, nil
}

// New builds the recognizer selected by cfg. Callers should Close the result
// when it implements io.Closer.
func New(ctx context.Context, cfg config.OCR) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "tesseract":
		return NewTesseract(cfg.Tesseract, cfg.Language), nil
	case "documentai":
		return NewDocumentAI(ctx, cfg.DocumentAI)
	case "none", "off":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}

// boxFromRect returns the quad of an axis-aligned rectangle.
func boxFromRect(x1, y1, x2, y2 float64) [4]Point {
	return [4]Point{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
}
