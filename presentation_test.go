package pptx

import (
	"bytes"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gmfennema/tableau-power-point-stylizer/internal/pptxtest"
)

// helper: open a fixture package from memory
func openBytes(t *testing.T, data []byte) *Presentation {
	t.Helper()
	pres, err := ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	return pres
}

// helper: open the fixture brand template
func openTemplate(t *testing.T) *Presentation {
	t.Helper()
	data := pptxtest.Template()
	pres, err := ReadTemplateFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadTemplateFrom failed: %v", err)
	}
	return pres
}

// helper: write presentation to buffer and read back
func roundTrip(t *testing.T, p *Presentation) *Presentation {
	t.Helper()
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	return openBytes(t, buf.Bytes())
}

func mustLayout(t *testing.T, p *Presentation, name string) *SlideLayout {
	t.Helper()
	l, err := p.GetLayoutByName(name)
	if err != nil {
		t.Fatalf("GetLayoutByName(%q): %v", name, err)
	}
	return l
}

func TestReadSourceDeck(t *testing.T) {
	png := pptxtest.PNG(8, 4, color.NRGBA{R: 200, A: 255})
	pres := openBytes(t, pptxtest.Build(pptxtest.Deck{
		Slides: []pptxtest.Slide{
			{Texts: []string{"Sales Overview"}, Picture: png},
			{Texts: []string{"Q3 Revenue\nby region"}},
		},
	}))

	if pres.GetSlideCount() != 2 {
		t.Fatalf("expected 2 slides, got %d", pres.GetSlideCount())
	}
	if pres.SlideWidth() != 12192000 || pres.SlideHeight() != 6858000 {
		t.Errorf("unexpected slide size %dx%d", pres.SlideWidth(), pres.SlideHeight())
	}

	first := pres.Slides()[0]
	shapes := first.Shapes()
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
	if shapes[0].Text() != "Sales Overview" {
		t.Errorf("expected text %q, got %q", "Sales Overview", shapes[0].Text())
	}
	if shapes[0].Image() != nil {
		t.Error("text box should not expose an image")
	}
	img := shapes[1].Image()
	if img == nil {
		t.Fatal("expected picture image")
	}
	if img.Ext != "png" || img.ContentType != "image/png" {
		t.Errorf("unexpected image type %q %q", img.Ext, img.ContentType)
	}
	if !bytes.Equal(img.Blob, png) {
		t.Error("image blob does not match media part")
	}
	if shapes[1].HasTextFrame() {
		t.Error("picture should not have a text frame")
	}

	second := pres.Slides()[1]
	if got := second.Shapes()[0].Text(); got != "Q3 Revenue\nby region" {
		t.Errorf("expected two paragraphs, got %q", got)
	}
	if second.Layout() == nil || second.Layout().Name != "Title Only" {
		t.Error("slide layout not resolved")
	}
}

func TestLayoutsInDeclarationOrder(t *testing.T) {
	pres := openTemplate(t)
	var names []string
	for _, l := range pres.GetSlideLayouts() {
		names = append(names, l.Name)
	}
	want := "Title Slide,Title and Content,Title Only,Blank"
	if strings.Join(names, ",") != want {
		t.Errorf("expected layouts %s, got %s", want, strings.Join(names, ","))
	}
	if _, err := pres.GetLayoutByName("Missing"); err == nil {
		t.Error("expected error for unknown layout")
	}
	if !mustLayout(t, pres, "Title Only").HasTitlePlaceholder() {
		t.Error("Title Only should have a title placeholder")
	}
	if mustLayout(t, pres, "Blank").HasTitlePlaceholder() {
		t.Error("Blank should not have a title placeholder")
	}
}

func TestOpenTemplateRemovesSlides(t *testing.T) {
	data := pptxtest.Build(pptxtest.Deck{
		Layouts: []string{"Title Only"},
		Slides: []pptxtest.Slide{
			{Texts: []string{"old"}, Notes: "speaker notes"},
			{Texts: []string{"older"}},
		},
	})
	pres, err := ReadTemplateFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadTemplateFrom failed: %v", err)
	}
	if pres.GetSlideCount() != 0 {
		t.Fatalf("expected template slides removed, got %d", pres.GetSlideCount())
	}
	for name := range pres.parts {
		if strings.HasPrefix(name, "ppt/slides/") || strings.HasPrefix(name, "ppt/notesSlides/") {
			t.Errorf("part %s should have been removed", name)
		}
	}
	if pres.sldIdLst(false) != nil {
		t.Error("slide id list should have been removed")
	}

	back := roundTrip(t, pres)
	if back.GetSlideCount() != 0 {
		t.Errorf("expected 0 slides after round trip, got %d", back.GetSlideCount())
	}
	if len(back.GetSlideLayouts()) != 1 {
		t.Errorf("expected layouts preserved, got %d", len(back.GetSlideLayouts()))
	}
}

func TestOpenTemplateWithoutLayouts(t *testing.T) {
	data := pptxtest.Build(pptxtest.Deck{NoLayouts: true})
	if _, err := ReadTemplateFrom(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrNoLayouts) {
		t.Fatalf("expected ErrNoLayouts, got %v", err)
	}
	// The same package still opens as a source deck.
	if _, err := ReadFrom(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
}

func TestRoundTripPreservesUntouchedParts(t *testing.T) {
	pres := openTemplate(t)
	theme := append([]byte(nil), pres.parts["ppt/theme/theme1.xml"]...)
	layout := append([]byte(nil), pres.parts["ppt/slideLayouts/slideLayout3.xml"]...)

	if _, err := pres.AddSlide(mustLayout(t, pres, "Title Only")); err != nil {
		t.Fatal(err)
	}
	back := roundTrip(t, pres)
	if !bytes.Equal(back.parts["ppt/theme/theme1.xml"], theme) {
		t.Error("theme part changed")
	}
	if !bytes.Equal(back.parts["ppt/slideLayouts/slideLayout3.xml"], layout) {
		t.Error("layout part changed")
	}
}

func TestAddSlideClonesPlaceholders(t *testing.T) {
	pres := openTemplate(t)
	slide, err := pres.AddSlide(mustLayout(t, pres, "Title and Content"))
	if err != nil {
		t.Fatalf("AddSlide failed: %v", err)
	}

	shapes := slide.Shapes()
	if len(shapes) != 2 {
		t.Fatalf("expected title and content placeholders, got %d shapes", len(shapes))
	}
	title := slide.TitlePlaceholder()
	if title == nil {
		t.Fatal("expected title placeholder")
	}
	if title.Text() != "" {
		t.Errorf("cloned placeholder should be empty, got %q", title.Text())
	}
	body, ok := shapes[1].(*TextShape)
	if !ok || body.PlaceholderType() != "obj" {
		t.Errorf("expected object placeholder, got %#v", shapes[1])
	}
	if shapes[0].ID() == shapes[1].ID() {
		t.Error("shape ids must be unique")
	}

	blank, err := pres.AddSlide(mustLayout(t, pres, "Blank"))
	if err != nil {
		t.Fatal(err)
	}
	if len(blank.Shapes()) != 0 {
		t.Errorf("date placeholder should not be cloned, got %d shapes", len(blank.Shapes()))
	}
	if blank.TitlePlaceholder() != nil {
		t.Error("blank slide should have no title placeholder")
	}
}

func TestAddSlideRoundTrip(t *testing.T) {
	pres := openTemplate(t)
	for i := 0; i < 3; i++ {
		slide, err := pres.AddSlide(mustLayout(t, pres, "Title Only"))
		if err != nil {
			t.Fatal(err)
		}
		slide.TitlePlaceholder().SetText(strings.Repeat("x", i+1))
	}
	back := roundTrip(t, pres)
	if back.GetSlideCount() != 3 {
		t.Fatalf("expected 3 slides, got %d", back.GetSlideCount())
	}
	for i, s := range back.Slides() {
		if got := s.TitlePlaceholder().Text(); got != strings.Repeat("x", i+1) {
			t.Errorf("slide %d: expected title %q, got %q", i+1, strings.Repeat("x", i+1), got)
		}
		if s.Layout() == nil || s.Layout().Name != "Title Only" {
			t.Errorf("slide %d: layout not preserved", i+1)
		}
	}
	if err := back.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestTextBoxAndFontSize(t *testing.T) {
	pres := openTemplate(t)
	slide, err := pres.AddSlide(mustLayout(t, pres, "Blank"))
	if err != nil {
		t.Fatal(err)
	}
	tb, err := slide.AddTextBox(Inch(0.7), Inch(0.5), pres.SlideWidth()-Inch(1.4), Inch(0.6))
	if err != nil {
		t.Fatalf("AddTextBox failed: %v", err)
	}
	tb.SetText("Revenue & Margin")
	tb.SetFontSize(28)

	x, y := tb.Offset()
	if x != Inch(0.7) || y != Inch(0.5) {
		t.Errorf("unexpected offset %d,%d", x, y)
	}
	if cx, _ := tb.Extent(); cx != pres.SlideWidth()-Inch(1.4) {
		t.Errorf("unexpected width %d", cx)
	}
	rPr := tb.Element().FindElement(".//a:rPr")
	if rPr == nil || rPr.SelectAttrValue("sz", "") != "2800" {
		t.Error("expected font size 2800")
	}

	back := roundTrip(t, pres)
	if got := back.Slides()[0].Shapes()[0].Text(); got != "Revenue & Margin" {
		t.Errorf("expected escaped text to survive, got %q", got)
	}
}

func TestAddPicture(t *testing.T) {
	pres := openTemplate(t)
	slide, err := pres.AddSlide(mustLayout(t, pres, "Blank"))
	if err != nil {
		t.Fatal(err)
	}
	png := pptxtest.PNG(144, 72, color.NRGBA{B: 255, A: 255})
	pic, err := slide.AddPicture(png, ".PNG", Pixels(144), Pixels(72))
	if err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}
	if cx, cy := pic.Extent(); cx != Inch(2) || cy != Inch(1) {
		t.Errorf("expected native size 2in x 1in, got %d x %d", cx, cy)
	}
	pic.SetSize(Inch(4), Inch(2))
	pic.SetPosition(Inch(2.5), Inch(1.7))

	if _, err := slide.AddPicture(nil, "png", 1, 1); err == nil {
		t.Error("expected error for empty picture data")
	}

	back := roundTrip(t, pres)
	pics := back.Slides()[0].Pictures()
	if len(pics) != 1 {
		t.Fatalf("expected 1 picture, got %d", len(pics))
	}
	img := pics[0].Image()
	if img == nil || !bytes.Equal(img.Blob, png) {
		t.Fatal("picture blob not preserved")
	}
	if img.PartName != "ppt/media/image1.png" {
		t.Errorf("unexpected media part %s", img.PartName)
	}
	x, y := pics[0].Offset()
	cx, cy := pics[0].Extent()
	if x != Inch(2.5) || y != Inch(1.7) || cx != Inch(4) || cy != Inch(2) {
		t.Errorf("unexpected geometry %d,%d %dx%d", x, y, cx, cy)
	}
}

func TestPictureShadow(t *testing.T) {
	pres := openTemplate(t)
	slide, _ := pres.AddSlide(mustLayout(t, pres, "Blank"))
	pic, err := slide.AddPicture(pptxtest.PNG(2, 2, color.White), "png", Pixels(2), Pixels(2))
	if err != nil {
		t.Fatal(err)
	}

	shadow := NewShadow().SetDirection(34).SetDistance(Point(3)).SetBlurRadius(Point(15)).SetTransparency(0.8)
	for i := 0; i < 3; i++ {
		if err := pic.SetShadow(shadow); err != nil {
			t.Fatalf("SetShadow failed: %v", err)
		}
	}
	shdws := pic.Element().FindElements("./p:spPr/a:effectLst/a:outerShdw")
	if len(shdws) != 1 {
		t.Fatalf("expected exactly one outer shadow, got %d", len(shdws))
	}
	s := shdws[0]
	checks := map[string]string{"blurRad": "190500", "dist": "38100", "dir": "2040000", "algn": "ctr"}
	for attr, want := range checks {
		if got := s.SelectAttrValue(attr, ""); got != want {
			t.Errorf("%s: expected %s, got %s", attr, want, got)
		}
	}
	if alpha := s.FindElement("./a:srgbClr/a:alpha"); alpha == nil || alpha.SelectAttrValue("val", "") != "20000" {
		t.Error("expected alpha 20000")
	}

	shadow.Visible = false
	if err := pic.SetShadow(shadow); err != nil {
		t.Fatal(err)
	}
	if len(pic.Element().FindElements(".//a:outerShdw")) != 0 {
		t.Error("invisible shadow should remove the outer shadow")
	}
	if err := pic.SetShadow(NewShadow().SetTransparency(0.5)); err != nil {
		t.Fatal(err)
	}
	if err := pic.SetShadow(&Shadow{Visible: true, Transparency: 2}); err == nil {
		t.Error("expected error for out-of-range transparency")
	}
	if err := pic.SetShadowInherit(true); err != nil {
		t.Fatal(err)
	}
	if pic.Element().FindElement("./p:spPr/a:effectLst") != nil {
		t.Error("inheriting should drop the effect list")
	}
}

func TestBumpRevision(t *testing.T) {
	pres := openTemplate(t)
	if pres.Revision() != 3 {
		t.Fatalf("expected revision 3, got %d", pres.Revision())
	}
	n, err := pres.BumpRevision()
	if err != nil || n != 4 {
		t.Fatalf("expected revision 4, got %d (%v)", n, err)
	}
	if back := roundTrip(t, pres); back.Revision() != 4 {
		t.Errorf("revision not persisted, got %d", back.Revision())
	}

	bare := openBytes(t, pptxtest.Build(pptxtest.Deck{NoCoreProperties: true}))
	if _, err := bare.BumpRevision(); !errors.Is(err, ErrNoCoreProperties) {
		t.Errorf("expected ErrNoCoreProperties, got %v", err)
	}
}

func TestSaveAndOpen(t *testing.T) {
	pres := openTemplate(t)
	slide, _ := pres.AddSlide(mustLayout(t, pres, "Title Only"))
	slide.TitlePlaceholder().SetText("Saved")

	path := filepath.Join(t.TempDir(), "nested", "out.pptx")
	if err := pres.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	back, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := back.Slides()[0].Shapes()[0].Text(); got != "Saved" {
		t.Errorf("expected text Saved, got %q", got)
	}
	if _, err := OpenTemplate(filepath.Join(t.TempDir(), "missing.pptx")); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	data := []byte("not a zip")
	if _, err := ReadFrom(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for non-zip input")
	}
	if _, err := NewReader("Keynote"); err == nil {
		t.Error("expected error for unsupported reader")
	}
	if _, err := NewWriter(nil, "Keynote"); err == nil {
		t.Error("expected error for unsupported writer")
	}
}

func TestValidateReportsBrokenPicture(t *testing.T) {
	pres := openTemplate(t)
	slide, _ := pres.AddSlide(mustLayout(t, pres, "Blank"))
	pic, _ := slide.AddPicture(pptxtest.PNG(1, 1, color.Black), "png", 1, 1)
	pic.blip().CreateAttr("r:embed", "rId99")

	err := pres.Validate()
	if err == nil || !strings.Contains(err.Error(), "missing image") {
		t.Errorf("expected missing image error, got %v", err)
	}
}

func TestRelativeTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"ppt/slides/slide1.xml", "ppt/slideLayouts/slideLayout1.xml", "../slideLayouts/slideLayout1.xml"},
		{"ppt/slides/slide1.xml", "ppt/media/image1.png", "../media/image1.png"},
		{"ppt/presentation.xml", "ppt/slides/slide2.xml", "slides/slide2.xml"},
		{"", "ppt/presentation.xml", "ppt/presentation.xml"},
	}
	for _, tt := range tests {
		if got := relativeTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("relativeTarget(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
		}
		if back := resolveRelativePath(filepath.ToSlash(filepath.Dir(tt.source)), tt.want); back != tt.target {
			t.Errorf("resolveRelativePath round trip = %q, want %q", back, tt.target)
		}
	}
}

func TestUnitsAndColors(t *testing.T) {
	if Inch(1) != 914400 || Point(1) != 12700 || Pixels(72) != 914400 {
		t.Error("unexpected EMU conversion")
	}
	if EMUToInch(Inch(4.9)) < 4.899 || EMUToInch(Point(72)) != 1 {
		t.Error("unexpected EMU back-conversion")
	}
	if AlphaFromTransparency(0.8) != 20000 || AlphaFromTransparency(0) != 100000 || AlphaFromTransparency(1) != 0 {
		t.Error("unexpected alpha conversion")
	}
	if ColorBlack.Hex() != "000000" || (Color{ARGB: "FF8800"}).Hex() != "FF8800" {
		t.Error("unexpected color hex")
	}
	if RGB(1, 2, 3).Hex() != "010203" {
		t.Error("unexpected RGB hex")
	}
	if s := NewShadow(); s.Color != ColorBlack || s.Transparency != 0.5 {
		t.Errorf("unexpected default shadow %+v", s)
	}
	if NewShadow().SetDirection(-26).Direction != 334 {
		t.Error("direction should normalize into 0-359")
	}
}
