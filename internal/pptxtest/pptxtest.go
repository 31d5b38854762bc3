// Package pptxtest builds small in-memory PowerPoint packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	ctBase  = "application/vnd.openxmlformats-officedocument.presentationml."
)

// Slide describes one slide of a fixture deck. Texts become text boxes and
// Picture, when set, becomes a picture shape placed after them.
type Slide struct {
	Texts   []string
	Picture []byte
	// PictureExt defaults to "png".
	PictureExt string
	// PictureCX and PictureCY default to 4in x 3in.
	PictureCX, PictureCY int64
	Notes                string
}

// Deck describes a fixture package.
type Deck struct {
	// Layouts are layout names of the single slide master. Layouts whose
	// name contains "Title" carry a title placeholder.
	Layouts []string
	Slides  []Slide
	// SlideWidth and SlideHeight default to 13.333in x 7.5in.
	SlideWidth, SlideHeight int64
	Revision                int
	// NoCoreProperties drops docProps/core.xml.
	NoCoreProperties bool
	// NoLayouts leaves the slide master without layouts.
	NoLayouts bool
}

// Template returns a brand template with the usual layouts and one
// placeholder slide.
func Template() []byte {
	return Build(Deck{
		Layouts:  []string{"Title Slide", "Title and Content", "Title Only", "Blank"},
		Slides:   []Slide{{Texts: []string{"Template slide"}}},
		Revision: 3,
	})
}

// PNG returns an opaque w x h PNG filled with c.
func PNG(w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Build renders d as a .pptx package.
func Build(d Deck) []byte {
	if d.NoLayouts {
		d.Layouts = nil
	} else if len(d.Layouts) == 0 {
		d.Layouts = []string{"Title Only", "Blank"}
	}
	if d.SlideWidth == 0 {
		d.SlideWidth = 12192000
	}
	if d.SlideHeight == 0 {
		d.SlideHeight = 6858000
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	writeBytes := func(name string, content []byte) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(content); err != nil {
			panic(err)
		}
	}

	var overrides strings.Builder
	override := func(part, ct string) {
		fmt.Fprintf(&overrides, `<Override PartName="/%s" ContentType="%s"/>`, part, ct)
	}
	override("ppt/presentation.xml", ctBase+"presentation.main+xml")
	override("ppt/slideMasters/slideMaster1.xml", ctBase+"slideMaster+xml")
	override("ppt/theme/theme1.xml", "application/vnd.openxmlformats-officedocument.theme+xml")
	for i := range d.Layouts {
		override(fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1), ctBase+"slideLayout+xml")
	}
	for i, s := range d.Slides {
		override(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), ctBase+"slide+xml")
		if s.Notes != "" {
			override(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", i+1), ctBase+"notesSlide+xml")
		}
	}
	if !d.NoCoreProperties {
		override("docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml")
	}
	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
		`<Default Extension="xml" ContentType="application/xml"/>`+
		`<Default Extension="png" ContentType="image/png"/>`+
		`<Default Extension="jpeg" ContentType="image/jpeg"/>`+
		overrides.String()+`</Types>`)

	rootRels := `<Relationship Id="rId1" Type="` + relBase + `officeDocument" Target="ppt/presentation.xml"/>`
	if !d.NoCoreProperties {
		rootRels += `<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`
		write("docProps/core.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Fixture</dc:title><cp:revision>%d</cp:revision></cp:coreProperties>`, d.Revision))
	}
	write("_rels/.rels", rels(rootRels))

	// presentation.xml: rId1 master, rId2 theme, rId3.. slides
	presRels := `<Relationship Id="rId1" Type="` + relBase + `slideMaster" Target="slideMasters/slideMaster1.xml"/>` +
		`<Relationship Id="rId2" Type="` + relBase + `theme" Target="theme/theme1.xml"/>`
	var sldIDs strings.Builder
	for i := range d.Slides {
		presRels += fmt.Sprintf(`<Relationship Id="rId%d" Type="%sslide" Target="slides/slide%d.xml"/>`, i+3, relBase, i+1)
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+3)
	}
	sldIDList := ""
	if sldIDs.Len() > 0 {
		sldIDList = "<p:sldIdLst>" + sldIDs.String() + "</p:sldIdLst>"
	}
	write("ppt/presentation.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>%s<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`,
		nsA, nsR, nsP, sldIDList, d.SlideWidth, d.SlideHeight))
	write("ppt/_rels/presentation.xml.rels", rels(presRels))

	var masterRels, layoutIDs strings.Builder
	for i := range d.Layouts {
		fmt.Fprintf(&masterRels, `<Relationship Id="rId%d" Type="%sslideLayout" Target="../slideLayouts/slideLayout%d.xml"/>`, i+1, relBase, i+1)
		fmt.Fprintf(&layoutIDs, `<p:sldLayoutId id="%d" r:id="rId%d"/>`, 2147483649+i, i+1)
	}
	fmt.Fprintf(&masterRels, `<Relationship Id="rId%d" Type="%stheme" Target="../theme/theme1.xml"/>`, len(d.Layouts)+1, relBase)
	write("ppt/slideMasters/slideMaster1.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/><p:sldLayoutIdLst>%s</p:sldLayoutIdLst></p:sldMaster>`,
		nsA, nsR, nsP, layoutIDs.String()))
	write("ppt/slideMasters/_rels/slideMaster1.xml.rels", rels(masterRels.String()))
	write("ppt/theme/theme1.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="%s" name="Brand"><a:themeElements/></a:theme>`, nsA))

	for i, name := range d.Layouts {
		var shapes strings.Builder
		if strings.Contains(name, "Title") {
			shapes.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>Click to edit title</a:t></a:r></a:p></p:txBody></p:sp>`)
		}
		if strings.Contains(name, "Content") {
			shapes.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`)
		}
		shapes.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="4" name="Date Placeholder 3"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="dt" sz="half" idx="10"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`)
		write(fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1), fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" preserve="1"><p:cSld name="%s"><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`,
			nsA, nsR, nsP, name, shapes.String()))
		write(fmt.Sprintf("ppt/slideLayouts/_rels/slideLayout%d.xml.rels", i+1),
			rels(`<Relationship Id="rId1" Type="`+relBase+`slideMaster" Target="../slideMasters/slideMaster1.xml"/>`))
	}

	media := 0
	for i, s := range d.Slides {
		slideRels := `<Relationship Id="rId1" Type="` + relBase + `slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`
		var shapes strings.Builder
		id := 2
		for _, text := range s.Texts {
			var paras strings.Builder
			for _, line := range strings.Split(text, "\n") {
				fmt.Fprintf(&paras, `<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, escape(line))
			}
			fmt.Fprintf(&shapes, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="914400" y="914400"/><a:ext cx="3657600" cy="457200"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/>%s</p:txBody></p:sp>`, id, id-1, paras.String())
			id++
		}
		if len(s.Picture) > 0 {
			media++
			ext := s.PictureExt
			if ext == "" {
				ext = "png"
			}
			cx, cy := s.PictureCX, s.PictureCY
			if cx == 0 {
				cx = 3657600
			}
			if cy == 0 {
				cy = 2743200
			}
			mediaName := fmt.Sprintf("image%d.%s", media, ext)
			writeBytes("ppt/media/"+mediaName, s.Picture)
			slideRels += `<Relationship Id="rId2" Type="` + relBase + `image" Target="../media/` + mediaName + `"/>`
			fmt.Fprintf(&shapes, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`, id, id-1, cx, cy)
		}
		if s.Notes != "" {
			slideRels += fmt.Sprintf(`<Relationship Id="rId3" Type="%snotesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, relBase, i+1)
			write(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", i+1), fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld></p:notes>`, nsA, nsR, nsP))
		}
		write(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`,
			nsA, nsR, nsP, shapes.String()))
		write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), rels(slideRels))
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func rels(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + body + `</Relationships>`
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
