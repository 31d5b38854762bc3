package pptx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Slide is one slide of a presentation.
type Slide struct {
	partName string
	relID    string
	doc      *etree.Document
	rels     *relationships
	pres     *Presentation
	layout   *SlideLayout
}

// PartName returns the package part name of the slide.
func (s *Slide) PartName() string { return s.partName }

// Layout returns the layout the slide is based on, or nil if unresolved.
func (s *Slide) Layout() *SlideLayout { return s.layout }

// Shapes returns the slide's top-level shapes in document order.
func (s *Slide) Shapes() []Shape {
	tree := spTree(s.doc)
	if tree == nil {
		return nil
	}
	var shapes []Shape
	for _, el := range tree.ChildElements() {
		base := baseShape{el: el, slide: s}
		switch el.FullTag() {
		case "p:sp":
			shapes = append(shapes, &TextShape{base})
		case "p:pic":
			shapes = append(shapes, &Picture{base})
		case "p:grpSp", "p:graphicFrame", "p:cxnSp", "p:contentPart":
			shapes = append(shapes, &GraphicShape{base})
		}
	}
	return shapes
}

// Pictures returns the picture shapes of the slide.
func (s *Slide) Pictures() []*Picture {
	var pics []*Picture
	for _, sh := range s.Shapes() {
		if p, ok := sh.(*Picture); ok {
			pics = append(pics, p)
		}
	}
	return pics
}

// TitlePlaceholder returns the slide's title placeholder, or nil.
func (s *Slide) TitlePlaceholder() *TextShape {
	for _, sh := range s.Shapes() {
		if t, ok := sh.(*TextShape); ok && isTitleType(t.PlaceholderType()) {
			return t
		}
	}
	return nil
}

// AddTextBox appends an auto-fitting text box at the given position and size (EMU).
func (s *Slide) AddTextBox(x, y, cx, cy int64) (*TextShape, error) {
	id := s.nextShapeID()
	el, err := parseFragment(fmt.Sprintf(`<p:sp>
  <p:nvSpPr>
    <p:cNvPr id="%d" name="TextBox %d"/>
    <p:cNvSpPr txBox="1"/>
    <p:nvPr/>
  </p:nvSpPr>
  <p:spPr>
    <a:xfrm>
      <a:off x="%d" y="%d"/>
      <a:ext cx="%d" cy="%d"/>
    </a:xfrm>
    <a:prstGeom prst="rect">
      <a:avLst/>
    </a:prstGeom>
    <a:noFill/>
  </p:spPr>
  <p:txBody>
    <a:bodyPr wrap="none">
      <a:spAutoFit/>
    </a:bodyPr>
    <a:lstStyle/>
    <a:p/>
  </p:txBody>
</p:sp>`, id, id-1, x, y, cx, cy))
	if err != nil {
		return nil, err
	}
	s.appendShape(el)
	return &TextShape{baseShape{el: el, slide: s}}, nil
}

// AddPicture embeds data as a new media part and appends a picture at the
// origin with the given native size in EMU.
func (s *Slide) AddPicture(data []byte, ext string, cx, cy int64) (*Picture, error) {
	if len(data) == 0 {
		return nil, errors.New("picture data is empty")
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "png"
	}
	media := s.pres.nextMediaName(ext)
	s.pres.addPart(media, data)
	s.pres.contentTypes.ensureDefault(ext, guessMimeType(ext))
	relID := s.rels.add(relTypeImage, media)

	id := s.nextShapeID()
	el, err := parseFragment(fmt.Sprintf(`<p:pic>
  <p:nvPicPr>
    <p:cNvPr id="%d" name="Picture %d" descr="%s"/>
    <p:cNvPicPr>
      <a:picLocks noChangeAspect="1"/>
    </p:cNvPicPr>
    <p:nvPr/>
  </p:nvPicPr>
  <p:blipFill>
    <a:blip r:embed="%s"/>
    <a:stretch>
      <a:fillRect/>
    </a:stretch>
  </p:blipFill>
  <p:spPr>
    <a:xfrm>
      <a:off x="0" y="0"/>
      <a:ext cx="%d" cy="%d"/>
    </a:xfrm>
    <a:prstGeom prst="rect">
      <a:avLst/>
    </a:prstGeom>
  </p:spPr>
</p:pic>`, id, id-1, xmlEscape(media[strings.LastIndex(media, "/")+1:]), relID, cx, cy))
	if err != nil {
		return nil, err
	}
	s.appendShape(el)
	return &Picture{baseShape{el: el, slide: s}}, nil
}

// clonePlaceholders copies the layout's placeholders onto an empty slide.
func (s *Slide) clonePlaceholders(layout *SlideLayout) {
	tree := spTree(s.doc)
	for _, src := range layout.placeholders() {
		phType := placeholderType(src)
		if uncloneablePlaceholders[phType] {
			continue
		}
		name := "Placeholder"
		if c := src.FindElement("./p:nvSpPr/p:cNvPr"); c != nil {
			name = c.SelectAttrValue("name", name)
		}
		ph := phElement(src).Copy()
		ph.RemoveAttr("hasCustomPrompt")
		for _, c := range ph.ChildElements() {
			ph.RemoveChild(c)
		}

		sp := etree.NewElement("p:sp")
		nv := sp.CreateElement("p:nvSpPr")
		cNvPr := nv.CreateElement("p:cNvPr")
		cNvPr.CreateAttr("id", strconv.Itoa(s.nextShapeID()))
		cNvPr.CreateAttr("name", name)
		nv.CreateElement("p:cNvSpPr").CreateElement("a:spLocks").CreateAttr("noGrp", "1")
		nv.CreateElement("p:nvPr").AddChild(ph)
		sp.CreateElement("p:spPr")
		if textPlaceholders[phType] {
			txBody := sp.CreateElement("p:txBody")
			txBody.CreateElement("a:bodyPr")
			txBody.CreateElement("a:lstStyle")
			txBody.CreateElement("a:p")
		}
		tree.AddChild(sp)
	}
}

// appendShape adds a shape element to the shape tree, ahead of any extLst.
func (s *Slide) appendShape(el *etree.Element) {
	insertBeforeAny(spTree(s.doc), el, "p:extLst")
}

func (s *Slide) nextShapeID() int {
	max := 0
	for _, c := range s.doc.FindElements("//p:cNvPr") {
		if id, err := strconv.Atoi(c.SelectAttrValue("id", "")); err == nil && id > max {
			max = id
		}
	}
	return max + 1
}

// flush serializes the slide and its relationships into the package.
func (s *Slide) flush() error {
	data, err := s.doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", s.partName, err)
	}
	s.pres.parts[s.partName] = data
	if len(s.rels.rels) > 0 {
		relsData, err := marshalXML(s.rels.marshal())
		if err != nil {
			return err
		}
		s.pres.addPart(relsPartName(s.partName), relsData)
	}
	return nil
}

func newSlideXML() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, nsDrawingML, nsOfficeDocRels, nsPresentationML)
}

// parseFragment parses a single prefixed element. The prefixes resolve once
// the element is attached to a slide declaring them.
func parseFragment(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(s); err != nil {
		return nil, fmt.Errorf("failed to build shape markup: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("failed to build shape markup: empty fragment")
	}
	return doc.Root().Copy(), nil
}
