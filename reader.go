package pptx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Reader is the interface for presentation readers.
type Reader interface {
	Read(path string) (*Presentation, error)
	ReadFromReader(r io.ReaderAt, size int64) (*Presentation, error)
}

// ReaderType represents the input format.
type ReaderType string

const (
	ReaderPowerPoint2007 ReaderType = "PowerPoint2007"
)

// ErrNotPresentation is returned when a package has no presentation part.
var ErrNotPresentation = errors.New("package has no presentation part")

// NewReader creates a reader for the given format.
func NewReader(format ReaderType) (Reader, error) {
	switch format {
	case ReaderPowerPoint2007:
		return &PPTXReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported reader format: %s", format)
	}
}

// PPTXReader reads PPTX files.
type PPTXReader struct{}

// Read reads a presentation from a file path.
func (r *PPTXReader) Read(path string) (*Presentation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return r.ReadFromReader(f, info.Size())
}

// ReadFromReader reads a presentation from an io.ReaderAt.
func (r *PPTXReader) ReadFromReader(reader io.ReaderAt, size int64) (*Presentation, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid reader size: %d", size)
	}
	if size > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", size, maxZipTotalSize)
	}

	zr, err := zip.NewReader(reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	if len(zr.File) > maxZipEntries {
		return nil, fmt.Errorf("zip archive contains too many entries (%d > %d)", len(zr.File), maxZipEntries)
	}

	pres := &Presentation{
		parts:       make(map[string][]byte, len(zr.File)),
		slideWidth:  defaultSlideWidth,
		slideHeight: defaultSlideHeight,
	}
	if err := r.readParts(zr, pres); err != nil {
		return nil, err
	}

	ctData, ok := pres.parts[contentTypesPart]
	if !ok {
		return nil, fmt.Errorf("file not found in zip: %s", contentTypesPart)
	}
	if pres.contentTypes, err = parseContentTypes(ctData); err != nil {
		return nil, err
	}

	rootRels, err := pres.readRelationships("")
	if err != nil {
		return nil, err
	}
	docRel, ok := rootRels.firstOfType(relTypeOfficeDoc)
	if !ok {
		return nil, ErrNotPresentation
	}
	pres.presPart = rootRels.resolve(docRel)
	if coreRel, ok := rootRels.firstOfType(relTypeCoreProps); ok {
		// Missing or malformed core properties are tolerated.
		if doc, err := pres.readXMLPart(rootRels.resolve(coreRel)); err == nil {
			pres.corePart = rootRels.resolve(coreRel)
			pres.coreDoc = doc
		}
	}

	if pres.presDoc, err = pres.readXMLPart(pres.presPart); err != nil {
		return nil, err
	}
	if pres.presRels, err = pres.readRelationships(pres.presPart); err != nil {
		return nil, err
	}

	r.readSlideSize(pres)

	if err := r.readLayouts(pres); err != nil {
		return nil, err
	}
	if err := r.readSlides(pres); err != nil {
		return nil, err
	}

	return pres, nil
}

// maxZipEntrySize is the maximum allowed size for a single file extracted from a ZIP.
// This prevents zip bomb attacks. 50 MB is generous for any legitimate PPTX part.
const maxZipEntrySize = 50 << 20 // 50 MB

// maxZipTotalSize is the cumulative limit for all extracted content from a single ZIP.
const maxZipTotalSize = 200 << 20 // 200 MB

// maxZipEntries is the maximum number of files allowed in a ZIP archive.
const maxZipEntries = 10000

func (r *PPTXReader) readParts(zr *zip.Reader, pres *Presentation) error {
	var total int64
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if f.UncompressedSize64 > maxZipEntrySize {
			return fmt.Errorf("file %s exceeds maximum allowed size (%d bytes)", f.Name, maxZipEntrySize)
		}
		data, err := readZipFile(f)
		if err != nil {
			return err
		}
		total += int64(len(data))
		if total > maxZipTotalSize {
			return fmt.Errorf("zip content exceeds maximum allowed size (%d bytes)", maxZipTotalSize)
		}
		pres.parts[f.Name] = data
		pres.order = append(pres.order, f.Name)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxZipEntrySize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from zip: %w", f.Name, err)
	}
	if int64(len(data)) > int64(maxZipEntrySize) {
		return nil, fmt.Errorf("file %s actual size exceeds maximum allowed size", f.Name)
	}
	return data, nil
}

func (r *PPTXReader) readSlideSize(pres *Presentation) {
	sz := pres.presDoc.Root().SelectElement("p:sldSz")
	if sz == nil {
		return
	}
	if cx, err := strconv.ParseInt(sz.SelectAttrValue("cx", ""), 10, 64); err == nil && cx > 0 {
		pres.slideWidth = cx
	}
	if cy, err := strconv.ParseInt(sz.SelectAttrValue("cy", ""), 10, 64); err == nil && cy > 0 {
		pres.slideHeight = cy
	}
}

// readLayouts collects the layouts of every slide master in declaration order.
func (r *PPTXReader) readLayouts(pres *Presentation) error {
	masterList := pres.presDoc.Root().SelectElement("p:sldMasterIdLst")
	if masterList == nil {
		return nil
	}
	for _, m := range masterList.SelectElements("p:sldMasterId") {
		rel, ok := pres.presRels.byID(m.SelectAttrValue("r:id", ""))
		if !ok {
			continue
		}
		masterPart := pres.presRels.resolve(rel)
		masterDoc, err := pres.readXMLPart(masterPart)
		if err != nil {
			return fmt.Errorf("failed to read slide master %s: %w", masterPart, err)
		}
		masterRels, err := pres.readRelationships(masterPart)
		if err != nil {
			return err
		}
		layoutList := masterDoc.Root().SelectElement("p:sldLayoutIdLst")
		if layoutList == nil {
			continue
		}
		for _, l := range layoutList.SelectElements("p:sldLayoutId") {
			lrel, ok := masterRels.byID(l.SelectAttrValue("r:id", ""))
			if !ok {
				continue
			}
			layoutPart := masterRels.resolve(lrel)
			layoutDoc, err := pres.readXMLPart(layoutPart)
			if err != nil {
				return fmt.Errorf("failed to read slide layout %s: %w", layoutPart, err)
			}
			pres.layouts = append(pres.layouts, newSlideLayout(layoutPart, masterPart, layoutDoc))
		}
	}
	return nil
}

func (r *PPTXReader) readSlides(pres *Presentation) error {
	list := pres.presDoc.Root().SelectElement("p:sldIdLst")
	if list == nil {
		return nil
	}
	for _, sid := range list.SelectElements("p:sldId") {
		if id, err := strconv.Atoi(sid.SelectAttrValue("id", "")); err == nil && id >= pres.nextSlideID {
			pres.nextSlideID = id + 1
		}
		rel, ok := pres.presRels.byID(sid.SelectAttrValue("r:id", ""))
		if !ok {
			continue
		}
		target := pres.presRels.resolve(rel)
		slide, err := pres.loadSlide(target, rel.ID)
		if err != nil {
			return fmt.Errorf("failed to read slide %s: %w", target, err)
		}
		pres.slides = append(pres.slides, slide)
	}
	return nil
}

// readXMLPart parses a package part into a markup tree.
func (p *Presentation) readXMLPart(name string) (*etree.Document, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("file not found in zip: %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse %s: no root element", name)
	}
	return doc, nil
}

// readRelationships returns the relationships of a part; a missing .rels
// part yields an empty set.
func (p *Presentation) readRelationships(source string) (*relationships, error) {
	data, ok := p.parts[relsPartName(source)]
	if !ok {
		return newRelationships(source), nil
	}
	return parseRelationships(source, data)
}
