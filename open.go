package pptx

import (
	"errors"
	"fmt"
	"io"
)

// ErrNoLayouts is returned by OpenTemplate when the template defines no slide layouts.
var ErrNoLayouts = errors.New("template has no slide layouts")

// Open reads a PPTX file from disk and returns a Presentation.
// This is a convenience wrapper around NewReader + Read.
func Open(path string) (*Presentation, error) {
	reader, err := NewReader(ReaderPowerPoint2007)
	if err != nil {
		return nil, err
	}
	return reader.Read(path)
}

// ReadFrom reads a PPTX from an io.ReaderAt with the given size.
func ReadFrom(r io.ReaderAt, size int64) (*Presentation, error) {
	reader, err := NewReader(ReaderPowerPoint2007)
	if err != nil {
		return nil, err
	}
	return reader.ReadFromReader(r, size)
}

// OpenTemplate opens a PPTX template file and returns a Presentation.
// Unlike Open, this removes all existing slides so you can add new ones
// using the template's layouts. The slide layouts, masters and theme are preserved.
func OpenTemplate(path string) (*Presentation, error) {
	pres, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	return prepareTemplate(pres)
}

// ReadTemplateFrom is OpenTemplate for an in-memory package.
func ReadTemplateFrom(r io.ReaderAt, size int64) (*Presentation, error) {
	pres, err := ReadFrom(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	return prepareTemplate(pres)
}

func prepareTemplate(pres *Presentation) (*Presentation, error) {
	if len(pres.layouts) == 0 {
		return nil, ErrNoLayouts
	}
	pres.removeAllSlides()
	return pres, nil
}

// Save writes the presentation to a PPTX file.
// This is a convenience wrapper around NewWriter + Save.
func (p *Presentation) Save(path string) error {
	writer, err := NewWriter(p, WriterPowerPoint2007)
	if err != nil {
		return err
	}
	return writer.Save(path)
}

// WriteTo writes the presentation to a writer in PPTX format.
func (p *Presentation) WriteTo(w io.Writer) error {
	writer, err := NewWriter(p, WriterPowerPoint2007)
	if err != nil {
		return err
	}
	return writer.WriteTo(w)
}
