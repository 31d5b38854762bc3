package pptx

import (
	"errors"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoShapeProperties is returned when a shape has no p:spPr element to
// carry visual properties.
var ErrNoShapeProperties = errors.New("shape has no shape properties")

// Shape is a read/write view over one top-level element of a slide's shape tree.
type Shape interface {
	// ID returns the cNvPr id, unique within the slide.
	ID() int
	Name() string
	// Text returns the shape's text, paragraphs separated by "\n".
	// Shapes without a text frame return "".
	Text() string
	HasTextFrame() bool
	// Image returns the embedded raster image of a picture shape, or nil.
	Image() *Image
	// Extent returns the shape's size in EMU; zero when not specified.
	Extent() (cx, cy int64)
	// Element exposes the shape's markup.
	Element() *etree.Element
}

// Image is a picture blob embedded in the package.
type Image struct {
	Blob        []byte
	Ext         string // lower-case extension without dot, e.g. "png"
	ContentType string
	PartName    string
}

type baseShape struct {
	el    *etree.Element
	slide *Slide
}

func (b *baseShape) Element() *etree.Element { return b.el }

func (b *baseShape) cNvPr() *etree.Element {
	for _, nv := range b.el.ChildElements() {
		if strings.HasPrefix(nv.Tag, "nv") {
			return nv.SelectElement("p:cNvPr")
		}
	}
	return nil
}

func (b *baseShape) ID() int {
	if c := b.cNvPr(); c != nil {
		id, _ := strconv.Atoi(c.SelectAttrValue("id", "0"))
		return id
	}
	return 0
}

func (b *baseShape) Name() string {
	if c := b.cNvPr(); c != nil {
		return c.SelectAttrValue("name", "")
	}
	return ""
}

func (b *baseShape) Text() string       { return "" }
func (b *baseShape) HasTextFrame() bool { return false }
func (b *baseShape) Image() *Image      { return nil }

func (b *baseShape) xfrm() *etree.Element {
	if spPr := b.el.SelectElement("p:spPr"); spPr != nil {
		return spPr.SelectElement("a:xfrm")
	}
	return b.el.SelectElement("p:xfrm")
}

func (b *baseShape) Extent() (int64, int64) {
	xfrm := b.xfrm()
	if xfrm == nil {
		return 0, 0
	}
	ext := xfrm.SelectElement("a:ext")
	if ext == nil {
		return 0, 0
	}
	cx, _ := strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
	cy, _ := strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
	return cx, cy
}

// Offset returns the shape's position in EMU.
func (b *baseShape) Offset() (int64, int64) {
	xfrm := b.xfrm()
	if xfrm == nil {
		return 0, 0
	}
	off := xfrm.SelectElement("a:off")
	if off == nil {
		return 0, 0
	}
	x, _ := strconv.ParseInt(off.SelectAttrValue("x", "0"), 10, 64)
	y, _ := strconv.ParseInt(off.SelectAttrValue("y", "0"), 10, 64)
	return x, y
}

// ensureXfrm returns spPr/a:xfrm with a:off and a:ext children, creating
// whatever is missing.
func (b *baseShape) ensureXfrm() (off, ext *etree.Element) {
	spPr := b.el.SelectElement("p:spPr")
	if spPr == nil {
		spPr = etree.NewElement("p:spPr")
		insertAfterAny(b.el, spPr, "p:nvSpPr", "p:nvPicPr", "p:blipFill")
	}
	xfrm := spPr.SelectElement("a:xfrm")
	if xfrm == nil {
		xfrm = etree.NewElement("a:xfrm")
		spPr.InsertChildAt(0, xfrm)
	}
	if off = xfrm.SelectElement("a:off"); off == nil {
		off = etree.NewElement("a:off")
		xfrm.InsertChildAt(0, off)
	}
	if ext = xfrm.SelectElement("a:ext"); ext == nil {
		ext = xfrm.CreateElement("a:ext")
	}
	return off, ext
}

// SetPosition sets both offsets in EMU.
func (b *baseShape) SetPosition(x, y int64) {
	off, ext := b.ensureXfrm()
	off.CreateAttr("x", strconv.FormatInt(x, 10))
	off.CreateAttr("y", strconv.FormatInt(y, 10))
	if ext.SelectAttr("cx") == nil {
		ext.CreateAttr("cx", "0")
		ext.CreateAttr("cy", "0")
	}
}

// SetSize sets both width and height in EMU.
func (b *baseShape) SetSize(cx, cy int64) {
	off, ext := b.ensureXfrm()
	ext.CreateAttr("cx", strconv.FormatInt(cx, 10))
	ext.CreateAttr("cy", strconv.FormatInt(cy, 10))
	if off.SelectAttr("x") == nil {
		off.CreateAttr("x", "0")
		off.CreateAttr("y", "0")
	}
}

// TextShape is a p:sp element: a text box, an auto shape or a placeholder.
type TextShape struct {
	baseShape
}

func (t *TextShape) HasTextFrame() bool {
	return t.el.SelectElement("p:txBody") != nil
}

func (t *TextShape) Text() string {
	txBody := t.el.SelectElement("p:txBody")
	if txBody == nil {
		return ""
	}
	var paras []string
	for _, p := range txBody.SelectElements("a:p") {
		var sb strings.Builder
		for _, c := range p.ChildElements() {
			switch c.FullTag() {
			case "a:r", "a:fld":
				if tx := c.SelectElement("a:t"); tx != nil {
					sb.WriteString(tx.Text())
				}
			case "a:br":
				sb.WriteString("\n")
			}
		}
		paras = append(paras, sb.String())
	}
	return strings.Join(paras, "\n")
}

// PlaceholderType returns the ph type, or "" when the shape is not a placeholder.
func (t *TextShape) PlaceholderType() string {
	return placeholderType(t.el)
}

// SetText replaces the text frame content with text; "\n" starts a new paragraph.
func (t *TextShape) SetText(text string) {
	txBody := t.el.SelectElement("p:txBody")
	if txBody == nil {
		txBody = t.el.CreateElement("p:txBody")
		txBody.CreateElement("a:bodyPr")
		txBody.CreateElement("a:lstStyle")
	}
	for _, p := range txBody.SelectElements("a:p") {
		txBody.RemoveChild(p)
	}
	for _, line := range strings.Split(text, "\n") {
		p := txBody.CreateElement("a:p")
		if line == "" {
			continue
		}
		r := p.CreateElement("a:r")
		rPr := r.CreateElement("a:rPr")
		rPr.CreateAttr("lang", "en-US")
		rPr.CreateAttr("dirty", "0")
		r.CreateElement("a:t").SetText(line)
	}
}

// SetFontSize sets the size of every run in the first paragraph, in points.
func (t *TextShape) SetFontSize(pt int) {
	p := t.el.FindElement("./p:txBody/a:p")
	if p == nil {
		return
	}
	for _, r := range p.SelectElements("a:r") {
		rPr := r.SelectElement("a:rPr")
		if rPr == nil {
			rPr = etree.NewElement("a:rPr")
			r.InsertChildAt(0, rPr)
		}
		rPr.CreateAttr("sz", strconv.Itoa(pt*100))
	}
}

// Picture is a p:pic element.
type Picture struct {
	baseShape
}

func (p *Picture) blip() *etree.Element {
	return p.el.FindElement("./p:blipFill/a:blip")
}

// Image resolves the picture's embedded blob. Linked pictures return nil.
func (p *Picture) Image() *Image {
	blip := p.blip()
	if blip == nil {
		return nil
	}
	rel, ok := p.slide.rels.byID(blip.SelectAttrValue("r:embed", ""))
	if !ok {
		return nil
	}
	partName := p.slide.rels.resolve(rel)
	data, ok := p.slide.pres.parts[partName]
	if !ok || len(data) == 0 {
		return nil
	}
	ct := p.slide.pres.contentTypeOf(partName)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(partName), "."))
	if ext == "" {
		ext = extensionForContentType(ct)
	}
	return &Image{Blob: data, Ext: ext, ContentType: ct, PartName: partName}
}

// SetShadowInherit controls whether the picture inherits its effects from
// the theme. Turning inheritance off adds an empty a:effectLst, which
// suppresses any theme shadow; turning it on removes the effect list.
func (p *Picture) SetShadowInherit(inherit bool) error {
	spPr := p.el.SelectElement("p:spPr")
	if spPr == nil {
		return ErrNoShapeProperties
	}
	effectLst := spPr.SelectElement("a:effectLst")
	switch {
	case inherit && effectLst != nil:
		spPr.RemoveChild(effectLst)
	case !inherit && effectLst == nil:
		insertBeforeAny(spPr, etree.NewElement("a:effectLst"), "a:scene3d", "a:sp3d", "a:extLst")
	}
	return nil
}

// SetShadow sets the picture's outer shadow. An invisible shadow removes
// any outer shadow, leaving other effects in place.
func (p *Picture) SetShadow(s *Shadow) error {
	if s == nil {
		return errors.New("shadow is nil")
	}
	if s.Transparency < 0 || s.Transparency > 1 {
		return errors.New("shadow transparency must be within [0, 1]")
	}
	if s.BlurRadius < 0 || s.Distance < 0 {
		return errors.New("shadow blur and distance must not be negative")
	}
	if err := p.SetShadowInherit(false); err != nil {
		return err
	}
	effectLst := p.el.FindElement("./p:spPr/a:effectLst")
	for _, old := range effectLst.SelectElements("a:outerShdw") {
		effectLst.RemoveChild(old)
	}
	if !s.Visible {
		return nil
	}
	shdw := etree.NewElement("a:outerShdw")
	shdw.CreateAttr("blurRad", strconv.FormatInt(s.BlurRadius, 10))
	shdw.CreateAttr("dist", strconv.FormatInt(s.Distance, 10))
	shdw.CreateAttr("dir", strconv.FormatInt(s.AngleUnits(), 10))
	shdw.CreateAttr("algn", "ctr")
	shdw.CreateAttr("rotWithShape", "0")
	clr := shdw.CreateElement("a:srgbClr")
	clr.CreateAttr("val", s.Color.Hex())
	clr.CreateElement("a:alpha").CreateAttr("val", strconv.FormatInt(s.AlphaUnits(), 10))
	// a:outerShdw follows blur, fillOverlay and glow and precedes the rest.
	insertBeforeAny(effectLst, shdw, "a:prstShdw", "a:reflection", "a:softEdge")
	return nil
}

// GraphicShape covers the remaining shape kinds (groups, graphic frames,
// connectors), which carry neither a text frame nor an embedded image.
type GraphicShape struct {
	baseShape
}
