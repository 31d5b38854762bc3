package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer is the interface for presentation writers.
type Writer interface {
	Save(path string) error
	WriteTo(w io.Writer) error
}

// WriterType represents the output format.
type WriterType string

const (
	WriterPowerPoint2007 WriterType = "PowerPoint2007"
)

// NewWriter creates a writer for the given format.
func NewWriter(p *Presentation, format WriterType) (Writer, error) {
	switch format {
	case WriterPowerPoint2007:
		return &PPTXWriter{presentation: p}, nil
	default:
		return nil, fmt.Errorf("unsupported writer format: %s", format)
	}
}

// PPTXWriter writes presentations in PPTX format.
type PPTXWriter struct {
	presentation *Presentation
}

// Save writes the presentation to a file.
func (w *PPTXWriter) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writeErr := w.WriteTo(f)
	closeErr := f.Close()

	if writeErr != nil {
		// Attempt cleanup on write failure
		os.Remove(path)
		return writeErr
	}
	return closeErr
}

// WriteTo writes the presentation to a writer. Parts that were never edited
// are copied through unchanged, in their original order.
func (w *PPTXWriter) WriteTo(writer io.Writer) error {
	p := w.presentation
	if p == nil {
		return fmt.Errorf("presentation is nil")
	}
	if err := w.flush(); err != nil {
		return err
	}

	zw := zip.NewWriter(writer)

	// [Content_Types].xml goes first so readers can sniff the package.
	if err := writeXMLToZip(zw, contentTypesPart, p.contentTypes); err != nil {
		return err
	}

	for _, name := range p.order {
		if name == contentTypesPart {
			continue
		}
		data, ok := p.parts[name]
		if !ok {
			continue
		}
		if err := writeRawToZip(zw, name, data); err != nil {
			return err
		}
	}

	return zw.Close()
}

// flush serializes every edited markup tree back into its part.
func (w *PPTXWriter) flush() error {
	p := w.presentation
	if err := p.storeDocument(p.presPart, p.presDoc); err != nil {
		return err
	}
	relsData, err := marshalXML(p.presRels.marshal())
	if err != nil {
		return err
	}
	p.addPart(relsPartName(p.presPart), relsData)

	if p.coreDoc != nil {
		if err := p.storeDocument(p.corePart, p.coreDoc); err != nil {
			return err
		}
	}

	for _, s := range p.slides {
		if err := s.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Presentation) storeDocument(name string, doc interface{ WriteToBytes() ([]byte, error) }) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	p.addPart(name, data)
	return nil
}

// marshalXML encodes v with the standard XML declaration.
func marshalXML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	return buf.Bytes(), nil
}
