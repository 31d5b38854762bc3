package pptx

import "github.com/beevik/etree"

// SlideLayout represents a slide layout of the template's slide masters.
type SlideLayout struct {
	Name string

	partName   string
	masterPart string
	doc        *etree.Document
}

func newSlideLayout(partName, masterPart string, doc *etree.Document) *SlideLayout {
	l := &SlideLayout{partName: partName, masterPart: masterPart, doc: doc}
	if cSld := doc.Root().SelectElement("p:cSld"); cSld != nil {
		l.Name = cSld.SelectAttrValue("name", "")
	}
	return l
}

// PartName returns the package part name of the layout.
func (l *SlideLayout) PartName() string { return l.partName }

// HasTitlePlaceholder reports whether the layout defines a title placeholder.
func (l *SlideLayout) HasTitlePlaceholder() bool {
	for _, sp := range l.placeholders() {
		if isTitleType(placeholderType(sp)) {
			return true
		}
	}
	return false
}

// placeholders returns the layout's top-level placeholder shapes.
func (l *SlideLayout) placeholders() []*etree.Element {
	tree := spTree(l.doc)
	if tree == nil {
		return nil
	}
	var out []*etree.Element
	for _, sp := range tree.SelectElements("p:sp") {
		if phElement(sp) != nil {
			out = append(out, sp)
		}
	}
	return out
}

// Placeholder types that PowerPoint does not copy onto a new slide.
var uncloneablePlaceholders = map[string]bool{
	"dt":     true,
	"ftr":    true,
	"sldNum": true,
}

// Placeholder types that receive an empty text body when copied.
var textPlaceholders = map[string]bool{
	"title":    true,
	"ctrTitle": true,
	"subTitle": true,
	"body":     true,
	"obj":      true,
}

func phElement(sp *etree.Element) *etree.Element {
	return sp.FindElement("./p:nvSpPr/p:nvPr/p:ph")
}

// placeholderType returns the ph type of a shape, "" if it is not a
// placeholder. A ph without a type attribute is an object placeholder.
func placeholderType(sp *etree.Element) string {
	ph := phElement(sp)
	if ph == nil {
		return ""
	}
	return ph.SelectAttrValue("type", "obj")
}

func isTitleType(t string) bool {
	return t == "title" || t == "ctrTitle"
}

func spTree(doc *etree.Document) *etree.Element {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	return doc.Root().FindElement("./p:cSld/p:spTree")
}
