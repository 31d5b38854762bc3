// Package web serves the upload form and runs batches submitted through it.
package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/config"
	"github.com/gmfennema/tableau-power-point-stylizer/deck"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
	"github.com/gmfennema/tableau-power-point-stylizer/title"
)

// OutputName is the download name of the styled deck.
const OutputName = config.DefaultOutput

//go:embed form.html
var formHTML string

var formTemplate = template.Must(template.New("form").Parse(formHTML))

type formView struct {
	Style config.Style
	Color string
	Cases []string
}

type Handler struct {
	recognizer ocr.Recognizer
	defaults   config.Style
	layouts    []string
	heroPath   string
	logger     *slog.Logger
}

// Options configure a Handler. Zero values select the built-in defaults.
type Options struct {
	Recognizer ocr.Recognizer
	// Defaults pre-fill the form; submitted fields override them.
	Defaults *config.Style
	Layouts  []string
	// HeroPath is the PNG served at /hero.png.
	HeroPath string
	Logger   *slog.Logger
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		recognizer: opts.Recognizer,
		defaults:   config.DefaultStyle(),
		layouts:    opts.Layouts,
		heroPath:   opts.HeroPath,
		logger:     opts.Logger,
	}
	if opts.Defaults != nil {
		h.defaults = *opts.Defaults
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(formTemplate)
	r.GET("/", h.GetForm)
	r.POST("/", h.PostBatch)
	r.GET("/hero.png", h.GetHero)
	r.GET("/health", h.GetHealth)
}

func (h *Handler) GetForm(c *gin.Context) {
	c.HTML(http.StatusOK, "form", formView{
		Style: h.defaults,
		Color: strings.TrimPrefix(strings.TrimSpace(h.defaults.ShadowColor), "#"),
		Cases: []string{config.CaseSmart, config.CaseCamel, config.CaseUpper, config.CaseLower},
	})
}

func (h *Handler) PostBatch(c *gin.Context) {
	tplHeader, err := c.FormFile("template")
	if err != nil {
		c.String(http.StatusBadRequest, "Missing template")
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["inputs"]) == 0 {
		c.String(http.StatusBadRequest, "No inputs")
		return
	}

	tplData, err := readUpload(tplHeader)
	if err != nil {
		h.logger.Error("error reading template upload", "error", err)
		c.String(http.StatusBadRequest, "Invalid template")
		return
	}
	tpl, err := pptx.ReadTemplateFrom(bytes.NewReader(tplData), int64(len(tplData)))
	if err != nil {
		h.logger.Warn("rejected template", "file", tplHeader.Filename, "error", err)
		c.String(http.StatusBadRequest, "Invalid template")
		return
	}

	var inputs []deck.Input
	for _, fh := range form.File["inputs"] {
		data, err := readUpload(fh)
		if err != nil {
			h.logger.Error("error reading input upload", "file", fh.Filename, "error", err)
			c.String(http.StatusBadRequest, "Invalid input")
			return
		}
		inputs = append(inputs, deck.Input{Name: fh.Filename, Data: data})
	}

	a := &deck.Assembler{
		Template: tpl,
		Style:    h.styleFromForm(c),
		Titles:   &title.Engine{Recognizer: h.recognizer},
		Layouts:  h.layouts,
		Logger:   h.logger,
	}
	report, err := a.Run(c.Request.Context(), inputs)
	if err != nil {
		h.logger.Error("error processing batch", "error", err)
		c.String(http.StatusInternalServerError, "Processing failed")
		return
	}

	var buf bytes.Buffer
	if err := a.WriteTo(&buf); err != nil {
		h.logger.Error("error writing output deck", "error", err)
		c.String(http.StatusInternalServerError, "Processing failed")
		return
	}
	h.logger.Info("batch complete", "inputs", len(inputs), "slides", len(report.Slides), "bytes", buf.Len())

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, OutputName))
	c.Data(http.StatusOK, pptx.ContentTypePresentation, buf.Bytes())
}

func (h *Handler) GetHero(c *gin.Context) {
	if h.heroPath == "" {
		c.String(http.StatusNotFound, "Hero image not found")
		return
	}
	if info, err := os.Stat(h.heroPath); err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "Hero image not found")
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(h.heroPath)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": pptx.Version,
	})
}

// styleFromForm overlays the submitted style fields on the defaults. The
// shadow is enabled only when the form sends shadow=on.
func (h *Handler) styleFromForm(c *gin.Context) config.Style {
	s := h.defaults
	if v := strings.TrimSpace(c.PostForm("title_case")); v != "" {
		s.TitleCase = v
	}
	s.TitleFontSizePt = h.formInt(c, "title_font_size", s.TitleFontSizePt)
	s.BorderRadiusPx = h.formInt(c, "border_radius", s.BorderRadiusPx)
	s.ShadowEnabled = c.PostForm("shadow") == "on"
	if v := strings.TrimSpace(c.PostForm("shadow_color")); v != "" {
		s.ShadowColor = v
	}
	s.ShadowTransparency = h.formFloat(c, "shadow_transparency", s.ShadowTransparency)
	s.ShadowBlurPt = h.formFloat(c, "shadow_blur", s.ShadowBlurPt)
	s.ShadowAngleDeg = h.formInt(c, "shadow_angle", s.ShadowAngleDeg)
	s.ShadowDistancePt = h.formFloat(c, "shadow_distance", s.ShadowDistancePt)
	s.ImageLeftIn = h.formFloat(c, "image_left", s.ImageLeftIn)
	s.ImageTopIn = h.formFloat(c, "image_top", s.ImageTopIn)
	s.ImageHeightIn = h.formFloat(c, "image_height", s.ImageHeightIn)
	return s
}

func (h *Handler) formInt(c *gin.Context, name string, defaultValue int) int {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.logger.Warn("invalid form field, using default", "field", name, "value", raw, "error", err)
		return defaultValue
	}
	return v
}

func (h *Handler) formFloat(c *gin.Context, name string, defaultValue float64) float64 {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.logger.Warn("invalid form field, using default", "field", name, "value", raw, "error", err)
		return defaultValue
	}
	return v
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
