// Package pptx reads and edits PowerPoint packages (.pptx) following the
// Office Open XML (OOXML) standard.
//
// Unlike a model that regenerates every part on save, a Presentation keeps
// the package parts it does not touch byte-for-byte, so slide masters,
// layouts and the theme of a brand template survive a round trip. Slides are
// held as markup trees and expose their shapes through small typed views;
// Element gives direct access to the underlying markup when a property has
// no typed setter.
//
// See the Version variable for the current library version.
package pptx

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Default slide size (10 x 7.5 inches) used when presentation.xml omits p:sldSz.
const (
	defaultSlideWidth  = 9144000
	defaultSlideHeight = 6858000
)

// ErrNoCoreProperties is returned by BumpRevision when the package has no
// core properties part.
var ErrNoCoreProperties = errors.New("package has no core properties")

// Presentation represents an opened PowerPoint package.
type Presentation struct {
	parts        map[string][]byte
	order        []string
	contentTypes *xmlContentTypes

	presPart string
	presDoc  *etree.Document
	presRels *relationships

	corePart string
	coreDoc  *etree.Document

	slides      []*Slide
	layouts     []*SlideLayout
	nextSlideID int

	slideWidth  int64
	slideHeight int64
}

// Slides returns all slides in presentation order.
func (p *Presentation) Slides() []*Slide {
	return p.slides
}

// GetSlideCount returns the number of slides.
func (p *Presentation) GetSlideCount() int {
	return len(p.slides)
}

// SlideWidth returns the slide width in EMU.
func (p *Presentation) SlideWidth() int64 { return p.slideWidth }

// SlideHeight returns the slide height in EMU.
func (p *Presentation) SlideHeight() int64 { return p.slideHeight }

// GetSlideLayouts returns all slide layouts from all slide masters, in the
// order the masters declare them.
func (p *Presentation) GetSlideLayouts() []*SlideLayout {
	return p.layouts
}

// GetLayoutByName returns the first SlideLayout with the given name.
func (p *Presentation) GetLayoutByName(name string) (*SlideLayout, error) {
	for _, layout := range p.layouts {
		if layout.Name == name {
			return layout, nil
		}
	}
	return nil, fmt.Errorf("layout %q not found", name)
}

// Revision returns the cp:revision value of the core properties, or 0.
func (p *Presentation) Revision() int {
	if p.coreDoc == nil {
		return 0
	}
	if el := p.coreDoc.Root().SelectElement("cp:revision"); el != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(el.Text())); err == nil {
			return n
		}
	}
	return 0
}

// BumpRevision increments the document revision counter and returns the new
// value. A missing or non-numeric revision counts as 0.
func (p *Presentation) BumpRevision() (int, error) {
	if p.coreDoc == nil {
		return 0, ErrNoCoreProperties
	}
	root := p.coreDoc.Root()
	el := root.SelectElement("cp:revision")
	if el == nil {
		el = root.CreateElement("cp:revision")
	}
	n := p.Revision() + 1
	el.SetText(strconv.Itoa(n))
	return n, nil
}

// AddSlide appends a new slide bound to layout. Like PowerPoint, the slide
// starts with empty copies of the layout's placeholders, except date, footer
// and slide number.
func (p *Presentation) AddSlide(layout *SlideLayout) (*Slide, error) {
	if layout == nil {
		return nil, errors.New("layout is nil")
	}
	partName := p.nextPartName("ppt/slides/slide%d.xml")

	doc := etree.NewDocument()
	if err := doc.ReadFromString(newSlideXML()); err != nil {
		return nil, fmt.Errorf("failed to build slide: %w", err)
	}
	rels := newRelationships(partName)
	rels.add(relTypeSlideLayout, layout.partName)

	slide := &Slide{
		partName: partName,
		doc:      doc,
		rels:     rels,
		pres:     p,
		layout:   layout,
	}
	slide.clonePlaceholders(layout)

	p.parts[partName] = nil
	p.order = append(p.order, partName)
	p.contentTypes.addOverride(partName, ctSlide)

	relID := p.presRels.add(relTypeSlide, partName)
	slide.relID = relID
	list := p.sldIdLst(true)
	if p.nextSlideID < 256 {
		p.nextSlideID = 256
	}
	sid := list.CreateElement("p:sldId")
	sid.CreateAttr("id", strconv.Itoa(p.nextSlideID))
	sid.CreateAttr("r:id", relID)
	p.nextSlideID++

	p.slides = append(p.slides, slide)
	return slide, nil
}

// removeAllSlides drops every slide together with its notes, keeping
// masters, layouts and theme.
func (p *Presentation) removeAllSlides() {
	for _, s := range p.slides {
		if notesRel, ok := s.rels.firstOfType(relTypeNotesSlide); ok {
			p.removePart(s.rels.resolve(notesRel))
		}
		p.removePart(s.partName)
		p.presRels.remove(s.relID)
	}
	p.slides = nil
	if list := p.sldIdLst(false); list != nil {
		p.presDoc.Root().RemoveChild(list)
	}
	// Sections reference slide IDs that no longer exist.
	if extLst := p.presDoc.Root().SelectElement("p:extLst"); extLst != nil {
		for _, ext := range extLst.SelectElements("p:ext") {
			if ext.SelectElement("p14:sectionLst") != nil {
				extLst.RemoveChild(ext)
			}
		}
	}
}

// removePart deletes a part and its relationships from the package.
func (p *Presentation) removePart(name string) {
	for _, n := range []string{name, relsPartName(name)} {
		if _, ok := p.parts[n]; !ok {
			continue
		}
		delete(p.parts, n)
		for i, o := range p.order {
			if o == n {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	p.contentTypes.removeOverride(name)
}

// addPart stores a new binary part, such as an image.
func (p *Presentation) addPart(name string, data []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// nextPartName returns the first unused part name for a numbered pattern.
func (p *Presentation) nextPartName(pattern string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf(pattern, i)
		if _, used := p.parts[name]; !used {
			return name
		}
	}
}

// nextMediaName returns an unused media part name with the given extension.
func (p *Presentation) nextMediaName(ext string) string {
	used := make(map[string]bool)
	for name := range p.parts {
		if strings.HasPrefix(name, "ppt/media/") {
			used[strings.TrimSuffix(name, path.Ext(name))] = true
		}
	}
	for i := 1; ; i++ {
		base := fmt.Sprintf("ppt/media/image%d", i)
		if !used[base] {
			return base + "." + ext
		}
	}
}

// contentTypeOf returns the declared content type of a part.
func (p *Presentation) contentTypeOf(name string) string {
	for _, o := range p.contentTypes.Overrides {
		if strings.TrimPrefix(o.PartName, "/") == name {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, d := range p.contentTypes.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

// sldIdLst returns p:sldIdLst, creating it in schema position when asked.
func (p *Presentation) sldIdLst(create bool) *etree.Element {
	root := p.presDoc.Root()
	if list := root.SelectElement("p:sldIdLst"); list != nil || !create {
		return list
	}
	list := etree.NewElement("p:sldIdLst")
	insertAfterAny(root, list, "p:sldMasterIdLst", "p:notesMasterIdLst", "p:handoutMasterIdLst")
	return list
}

func (p *Presentation) loadSlide(partName, relID string) (*Slide, error) {
	doc, err := p.readXMLPart(partName)
	if err != nil {
		return nil, err
	}
	rels, err := p.readRelationships(partName)
	if err != nil {
		return nil, err
	}
	slide := &Slide{
		partName: partName,
		relID:    relID,
		doc:      doc,
		rels:     rels,
		pres:     p,
	}
	if rel, ok := rels.firstOfType(relTypeSlideLayout); ok {
		target := rels.resolve(rel)
		for _, l := range p.layouts {
			if l.partName == target {
				slide.layout = l
				break
			}
		}
	}
	return slide, nil
}

// insertAfterAny inserts child after the last existing sibling whose tag is
// one of after, or as the first child when none exists.
func insertAfterAny(parent, child *etree.Element, after ...string) {
	index := 0
	for i, c := range parent.ChildElements() {
		for _, tag := range after {
			if c.FullTag() == tag {
				index = i + 1
			}
		}
	}
	children := parent.ChildElements()
	if index >= len(children) {
		parent.AddChild(child)
		return
	}
	parent.InsertChildAt(children[index].Index(), child)
}

// insertBeforeAny inserts child before the first existing child whose tag is
// one of before, or appends it when none exists.
func insertBeforeAny(parent, child *etree.Element, before ...string) {
	for _, c := range parent.ChildElements() {
		for _, tag := range before {
			if c.FullTag() == tag {
				parent.InsertChildAt(c.Index(), child)
				return
			}
		}
	}
	parent.AddChild(child)
}
