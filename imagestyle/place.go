package imagestyle

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/config"
)

// ErrNoExtent is returned by Place when the picture has no usable size.
var ErrNoExtent = errors.New("picture has no extent")

// Place scales pic to the configured height, keeping its aspect ratio, and
// moves it to the configured offset.
func Place(pic *pptx.Picture, style config.Style) error {
	cx, cy := pic.Extent()
	if cx <= 0 || cy <= 0 {
		return ErrNoExtent
	}
	height := pptx.Inch(style.ImageHeightIn)
	width := int64(float64(height) * float64(cx) / float64(cy))
	pic.SetSize(width, height)
	pic.SetPosition(pptx.Inch(style.ImageLeftIn), pptx.Inch(style.ImageTopIn))
	return nil
}

// ShadowReport records the outcome of both shadow routes. Neither failure
// stops a batch.
type ShadowReport struct {
	Native error
	Markup error
}

// Degraded reports whether either route failed.
func (r ShadowReport) Degraded() bool {
	return r.Native != nil || r.Markup != nil
}

func (r ShadowReport) String() string {
	switch {
	case r.Native != nil && r.Markup != nil:
		return fmt.Sprintf("native: %v; markup: %v", r.Native, r.Markup)
	case r.Native != nil:
		return fmt.Sprintf("native: %v", r.Native)
	case r.Markup != nil:
		return fmt.Sprintf("markup: %v", r.Markup)
	default:
		return "ok"
	}
}

// NewShadow converts the style's shadow settings.
func NewShadow(style config.Style) *pptx.Shadow {
	r, g, b := style.ShadowRGB()
	s := pptx.NewShadow()
	s.Color = pptx.RGB(r, g, b)
	s.SetDirection(style.ShadowAngleDeg).
		SetDistance(pptx.Point(style.ShadowDistancePt)).
		SetBlurRadius(pptx.Point(style.ShadowBlurPt)).
		SetTransparency(style.ShadowTransparency)
	return s
}

// ApplyShadow sets the picture's drop shadow through the shape properties
// and then writes the outer shadow markup directly, so the effect is present
// even where the property route falls short.
func ApplyShadow(pic *pptx.Picture, style config.Style) ShadowReport {
	shadow := NewShadow(style)
	var report ShadowReport
	if err := pic.SetShadowInherit(false); err != nil {
		report.Native = err
	} else if err := pic.SetShadow(shadow); err != nil {
		report.Native = err
	}
	report.Markup = InjectShadow(pic.Element(), shadow)
	return report
}

// InjectShadow writes s as the only a:outerShdw of the shape's effect list,
// creating p:spPr and a:effectLst as needed.
func InjectShadow(shape *etree.Element, s *pptx.Shadow) error {
	if shape == nil {
		return errors.New("shape element is nil")
	}
	spPr := shape.SelectElement("p:spPr")
	if spPr == nil {
		spPr = shape.CreateElement("p:spPr")
	}
	effectLst := spPr.SelectElement("a:effectLst")
	if effectLst == nil {
		effectLst = etree.NewElement("a:effectLst")
		insertBefore(spPr, effectLst, "a:scene3d", "a:sp3d", "a:extLst")
	}
	for _, old := range effectLst.SelectElements("a:outerShdw") {
		effectLst.RemoveChild(old)
	}

	outer := etree.NewElement("a:outerShdw")
	outer.CreateAttr("blurRad", fmt.Sprint(s.BlurRadius))
	outer.CreateAttr("dist", fmt.Sprint(s.Distance))
	outer.CreateAttr("dir", fmt.Sprint(s.AngleUnits()))
	outer.CreateAttr("algn", "ctr")
	clr := outer.CreateElement("a:srgbClr")
	clr.CreateAttr("val", s.Color.Hex())
	clr.CreateElement("a:alpha").CreateAttr("val", fmt.Sprint(s.AlphaUnits()))
	insertBefore(effectLst, outer, "a:prstShdw", "a:reflection", "a:softEdge")
	return nil
}

func insertBefore(parent, child *etree.Element, before ...string) {
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
