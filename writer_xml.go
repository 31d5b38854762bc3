package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// XML namespace constants
const (
	nsRelationships  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeDocRels  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relTypeSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideMaster = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	relTypeSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeOfficeDoc   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeCoreProps   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relTypeImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeNotesSlide  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"

	ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctRels  = "application/vnd.openxmlformats-package.relationships+xml"

	// ContentTypePresentation is the MIME type of a .pptx package.
	ContentTypePresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

const contentTypesPart = "[Content_Types].xml"

func writeXMLToZip(zw *zip.Writer, name string, v interface{}) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", name, err)
	}
	if _, err := fw.Write([]byte(xml.Header)); err != nil {
		return err
	}
	enc := xml.NewEncoder(fw)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}

func writeRawToZip(zw *zip.Writer, name string, content []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", name, err)
	}
	_, err = fw.Write(content)
	return err
}

// --- Content Types ---

type xmlContentTypes struct {
	XMLName   xml.Name      `xml:"Types"`
	Xmlns     string        `xml:"xmlns,attr"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func parseContentTypes(data []byte) (*xmlContentTypes, error) {
	var ct xmlContentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", contentTypesPart, err)
	}
	// The decoded name carries the namespace, which would be emitted a
	// second time next to Xmlns.
	ct.XMLName = xml.Name{}
	ct.Xmlns = nsContentTypes
	return &ct, nil
}

// ensureDefault registers a default content type for ext if none exists.
func (ct *xmlContentTypes) ensureDefault(ext, contentType string) {
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return
		}
	}
	ct.Defaults = append(ct.Defaults, xmlDefault{Extension: ext, ContentType: contentType})
}

func (ct *xmlContentTypes) addOverride(partName, contentType string) {
	ct.removeOverride(partName)
	ct.Overrides = append(ct.Overrides, xmlOverride{PartName: "/" + partName, ContentType: contentType})
}

func (ct *xmlContentTypes) removeOverride(partName string) {
	kept := ct.Overrides[:0]
	for _, o := range ct.Overrides {
		if strings.TrimPrefix(o.PartName, "/") != partName {
			kept = append(kept, o)
		}
	}
	ct.Overrides = kept
}

// --- Relationships ---

type xmlRelationships struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Xmlns         string            `xml:"xmlns,attr"`
	Relationships []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// relationships is the parsed .rels part belonging to one source part.
type relationships struct {
	source string // part the relationships belong to, e.g. "ppt/slides/slide1.xml"
	rels   []xmlRelationship
}

func newRelationships(source string) *relationships {
	return &relationships{source: source}
}

func parseRelationships(source string, data []byte) (*relationships, error) {
	var x xmlRelationships
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("failed to parse relationships of %s: %w", source, err)
	}
	return &relationships{source: source, rels: x.Relationships}, nil
}

// relsPartName returns the .rels part name for a source part.
func relsPartName(source string) string {
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

func (r *relationships) byID(id string) (xmlRelationship, bool) {
	for _, rel := range r.rels {
		if rel.ID == id {
			return rel, true
		}
	}
	return xmlRelationship{}, false
}

func (r *relationships) firstOfType(relType string) (xmlRelationship, bool) {
	for _, rel := range r.rels {
		if rel.Type == relType {
			return rel, true
		}
	}
	return xmlRelationship{}, false
}

// resolve returns the package part name a relationship points to.
func (r *relationships) resolve(rel xmlRelationship) string {
	if rel.TargetMode == "External" {
		return ""
	}
	return resolveRelativePath(path.Dir(r.source), rel.Target)
}

// add appends an internal relationship to target and returns its new ID.
func (r *relationships) add(relType, target string) string {
	id := r.nextID()
	r.rels = append(r.rels, xmlRelationship{
		ID:     id,
		Type:   relType,
		Target: relativeTarget(r.source, target),
	})
	return id
}

func (r *relationships) remove(id string) {
	kept := r.rels[:0]
	for _, rel := range r.rels {
		if rel.ID != id {
			kept = append(kept, rel)
		}
	}
	r.rels = kept
}

func (r *relationships) nextID() string {
	max := 0
	for _, rel := range r.rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

func (r *relationships) marshal() xmlRelationships {
	return xmlRelationships{Xmlns: nsRelationships, Relationships: r.rels}
}

// relativeTarget expresses target as a path relative to the directory of source.
func relativeTarget(source, target string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(target, "/")
	if path.Dir(source) == "." {
		from = nil
	}
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var parts []string
	for j := i; j < len(from); j++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}

// resolveRelativePath joins a relationship target onto the source directory.
func resolveRelativePath(base, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return strings.TrimPrefix(rel, "/")
	}
	if base == "." {
		base = ""
	}
	baseParts := strings.Split(base, "/")
	relParts := strings.Split(rel, "/")

	result := make([]string, 0, len(baseParts)+len(relParts))
	for _, part := range baseParts {
		if part != "" {
			result = append(result, part)
		}
	}
	for _, part := range relParts {
		if part == ".." {
			if len(result) > 0 {
				result = result[:len(result)-1]
			}
		} else if part != "." && part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// guessMimeType maps an image extension to its content type.
func guessMimeType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "svg":
		return "image/svg+xml"
	case "wmf":
		return "image/x-wmf"
	case "emf":
		return "image/x-emf"
	case "tiff", "tif":
		return "image/tiff"
	case "webp":
		return "image/webp"
	case "wdp":
		return "image/vnd.ms-photo"
	default:
		return "image/png"
	}
}

// extensionForContentType is the inverse of guessMimeType for blob extraction.
func extensionForContentType(ct string) string {
	switch ct {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	case "image/x-wmf":
		return "wmf"
	case "image/x-emf":
		return "emf"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	default:
		return "png"
	}
}

// xmlEscape escapes special XML characters using the standard library.
func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
