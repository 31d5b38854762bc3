package deck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/config"
	"github.com/gmfennema/tableau-power-point-stylizer/imagestyle"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
	"github.com/gmfennema/tableau-power-point-stylizer/title"
)

// Title box used when the layout has no title placeholder.
var (
	titleBoxLeft   = pptx.Inch(0.7)
	titleBoxTop    = pptx.Inch(0.5)
	titleBoxMargin = pptx.Inch(1.4)
	titleBoxHeight = pptx.Inch(0.6)
)

// Input is one source deck, read from Path or, when Data is set, from memory.
type Input struct {
	Name string
	Path string
	Data []byte
}

// FileInput returns an Input reading the deck at path.
func FileInput(path string) Input {
	return Input{Name: path, Path: path}
}

func (in Input) open() (*pptx.Presentation, error) {
	if in.Data != nil {
		return pptx.ReadFrom(bytes.NewReader(in.Data), int64(len(in.Data)))
	}
	return pptx.Open(in.Path)
}

// SlideResult describes how one output slide was built.
type SlideResult struct {
	Deck   string
	Index  int // 1-based position in the source deck
	Number int // 1-based position in the output deck

	Title       string
	TitleSource title.Source
	// TitleDegraded explains why OCR did not supply the title.
	TitleDegraded string
	// TitleErr is the OCR engine's error, if it failed.
	TitleErr error

	PicturePlaced bool
	// PictureDegraded explains why the picture was embedded unstyled.
	PictureDegraded string
	Shadow          imagestyle.ShadowReport
}

// Report summarizes a batch.
type Report struct {
	Slides   []SlideResult
	Revision int
}

// Assembler appends one styled slide to Template for every source slide.
type Assembler struct {
	// Template is the output deck, opened with pptx.OpenTemplate.
	Template *pptx.Presentation
	Style    config.Style
	Titles   *title.Engine
	// Layouts overrides DefaultLayouts.
	Layouts []string
	// ScratchDir receives extracted images; a temporary directory when empty.
	ScratchDir string
	Logger     *slog.Logger
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Run processes inputs in order, and every slide of each in order. It stops
// at the first input that cannot be read or slide that cannot be created;
// the slides added so far stay in Template.
func (a *Assembler) Run(ctx context.Context, inputs []Input) (*Report, error) {
	if a.Template == nil {
		return nil, errors.New("template is nil")
	}
	log := a.logger()
	layout := ResolveLayout(a.Template, a.Layouts)
	if layout == nil {
		return nil, pptx.ErrNoLayouts
	}
	titlePath := "text box"
	if layout.HasTitlePlaceholder() {
		titlePath = "placeholder"
	}
	log.Debug("resolved layout", "layout", layout.Name, "title", titlePath)

	report := &Report{}
	if rev, err := a.Template.BumpRevision(); err != nil {
		log.Warn("could not update revision", "error", err)
	} else {
		report.Revision = rev
	}

	scratch := a.ScratchDir
	if scratch == "" {
		dir, err := os.MkdirTemp("", "stylizer-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)
		scratch = dir
	}

	style := a.Style.Normalized()
	titles := a.Titles
	if titles == nil {
		titles = &title.Engine{}
	}

	n := 0
	ocrWarned := false
	for _, in := range inputs {
		src, err := in.open()
		if err != nil {
			return report, fmt.Errorf("failed to open %s: %w", in.Name, err)
		}
		log.Info("processing deck", "deck", in.Name, "slides", src.GetSlideCount())

		for i, s := range src.Slides() {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			n++
			res, err := a.processSlide(ctx, s, layout, style, titles, n, scratch)
			if err != nil {
				return report, fmt.Errorf("%s slide %d: %w", in.Name, i+1, err)
			}
			res.Deck, res.Index, res.Number = in.Name, i+1, n
			report.Slides = append(report.Slides, res)

			log.Info("processed slide", "deck", in.Name, "slide", i+1, "title", res.Title,
				"source", res.TitleSource.String(), "picture", res.PicturePlaced)
			if errors.Is(res.TitleErr, ocr.ErrUnavailable) && !ocrWarned {
				log.Warn("OCR engine unavailable, titles fall back to slide text", "error", res.TitleErr)
				ocrWarned = true
			}
			if res.TitleDegraded != "" {
				log.Debug("title fallback", "slide", n, "reason", res.TitleDegraded)
			}
			if res.PictureDegraded != "" {
				log.Warn("picture not styled", "slide", n, "reason", res.PictureDegraded)
			}
			if res.Shadow.Degraded() {
				log.Warn("shadow degraded", "slide", n, "detail", res.Shadow.String())
			}
		}
	}
	return report, nil
}

// WriteTo validates the output deck and writes it to w.
func (a *Assembler) WriteTo(w io.Writer) error {
	if err := a.Template.Validate(); err != nil {
		return err
	}
	return a.Template.WriteTo(w)
}

// Save validates the output deck and writes it to path.
func (a *Assembler) Save(path string) error {
	if err := a.Template.Validate(); err != nil {
		return err
	}
	return a.Template.Save(path)
}

// extracted is the first raster image of a source slide, written to a
// scratch file. The file is the source for both OCR and corner rounding.
type extracted struct {
	img     *pptx.Image
	shape   pptx.Shape
	path    string
	decoded image.Image
}

func (a *Assembler) processSlide(ctx context.Context, src *pptx.Slide, layout *pptx.SlideLayout,
	style config.Style, titles *title.Engine, n int, scratch string) (SlideResult, error) {
	var res SlideResult

	out, err := a.Template.AddSlide(layout)
	if err != nil {
		return res, err
	}

	ex, err := a.extractImage(src, n, scratch)
	if err != nil {
		return res, err
	}
	if ex != nil {
		defer os.Remove(ex.path)
	}

	cand := titles.Infer(ctx, src, ex.decodedImage(), n)
	res.Title = title.Truncate(title.ApplyCase(cand.Text, style.TitleCase))
	res.TitleSource = cand.Source
	res.TitleDegraded = cand.Degraded
	res.TitleErr = cand.Err
	if err := a.setTitle(out, res.Title, style.TitleFontSizePt); err != nil {
		return res, err
	}

	if ex == nil {
		return res, nil
	}
	pic, degraded, err := a.addPicture(out, ex, style)
	if err != nil {
		return res, err
	}
	res.PicturePlaced = true
	res.PictureDegraded = degraded
	if style.ShadowEnabled {
		res.Shadow = imagestyle.ApplyShadow(pic, style)
	}
	a.checkBounds(pic, n)
	return res, nil
}

// extractImage writes the first image of the slide to _tmp_{n}.{ext} in
// scratch and decodes it from there. The caller removes the file once the
// slide is done. It returns nil when the slide has no image.
func (a *Assembler) extractImage(src *pptx.Slide, n int, scratch string) (*extracted, error) {
	for _, sh := range src.Shapes() {
		img := sh.Image()
		if img == nil {
			continue
		}
		path := filepath.Join(scratch, fmt.Sprintf("_tmp_%d.%s", n, img.Ext))
		if err := os.WriteFile(path, img.Blob, 0600); err != nil {
			return nil, fmt.Errorf("failed to write scratch image: %w", err)
		}
		ex := &extracted{img: img, shape: sh, path: path}
		if decoded, err := imagestyle.DecodeFile(path); err == nil {
			ex.decoded = decoded
		} else {
			a.logger().Debug("image not decodable", "slide", n, "ext", img.Ext, "error", err)
		}
		return ex, nil
	}
	return nil, nil
}

func (e *extracted) decodedImage() image.Image {
	if e == nil {
		return nil
	}
	return e.decoded
}

func (a *Assembler) setTitle(out *pptx.Slide, text string, sizePt int) error {
	if ph := out.TitlePlaceholder(); ph != nil {
		ph.SetText(text)
		ph.SetFontSize(sizePt)
		return nil
	}
	width := a.Template.SlideWidth() - titleBoxMargin
	tb, err := out.AddTextBox(titleBoxLeft, titleBoxTop, width, titleBoxHeight)
	if err != nil {
		return err
	}
	tb.SetText(text)
	tb.SetFontSize(sizePt)
	return nil
}

// addPicture rounds the scratch image, embeds it at its native size and
// places it. Images that cannot be decoded are embedded as they are, sized
// like the source shape; the returned reason says why.
func (a *Assembler) addPicture(out *pptx.Slide, ex *extracted, style config.Style) (*pptx.Picture, string, error) {
	var degraded string
	data, err := os.ReadFile(ex.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read scratch image: %w", err)
	}
	ext := ex.img.Ext
	var cx, cy int64

	if ex.decoded != nil {
		rounded, err := imagestyle.RoundCorners(data, style.BorderRadiusPx)
		if err == nil {
			data, ext = rounded, "png"
		} else {
			degraded = err.Error()
		}
		b := ex.decoded.Bounds()
		cx, cy = pptx.Pixels(b.Dx()), pptx.Pixels(b.Dy())
	} else {
		degraded = "image format cannot be decoded"
		cx, cy = ex.shape.Extent()
	}

	pic, err := out.AddPicture(data, ext, cx, cy)
	if err != nil {
		return nil, "", err
	}
	if err := imagestyle.Place(pic, style); err != nil {
		if degraded == "" {
			degraded = err.Error()
		} else {
			degraded += "; " + err.Error()
		}
	}
	return pic, degraded, nil
}

// checkBounds warns when the placed picture runs past the slide edge.
func (a *Assembler) checkBounds(pic *pptx.Picture, n int) {
	x, y := pic.Offset()
	cx, cy := pic.Extent()
	a.logger().Debug("placed picture", "slide", n,
		"left_in", pptx.EMUToInch(x), "top_in", pptx.EMUToInch(y),
		"width_in", pptx.EMUToInch(cx), "height_in", pptx.EMUToInch(cy))
	if x+cx > a.Template.SlideWidth() || y+cy > a.Template.SlideHeight() {
		a.logger().Warn("picture extends past the slide edge", "slide", n,
			"right_in", pptx.EMUToInch(x+cx), "bottom_in", pptx.EMUToInch(y+cy))
	}
}
