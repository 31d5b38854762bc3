package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	pptx "github.com/gmfennema/tableau-power-point-stylizer"
	"github.com/gmfennema/tableau-power-point-stylizer/internal/pptxtest"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
)

type fakeRecognizer struct {
	text string
}

func (f fakeRecognizer) Recognize(context.Context, image.Image) ([]ocr.Detection, error) {
	return []ocr.Detection{{Text: f.text, Confidence: 0.95}}, nil
}

type upload struct {
	field, name string
	data        []byte
}

func newTestRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(opts).Register(r)
	return r
}

func multipartRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(f.data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sourceDeck() []byte {
	return pptxtest.Build(pptxtest.Deck{Slides: []pptxtest.Slide{
		{Picture: pptxtest.PNG(200, 120, color.NRGBA{R: 200, A: 255})},
		{Texts: []string{"Q3 Revenue"}},
	}})
}

func readOutput(t *testing.T, body []byte) *pptx.Presentation {
	t.Helper()
	pres, err := pptx.ReadFrom(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("response is not a presentation: %v", err)
	}
	return pres
}

func TestGetForm(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, true, strings.Contains(body, `name="template"`))
	assert.Equal(t, true, strings.Contains(body, `name="inputs"`))
	assert.Equal(t, true, strings.Contains(body, `value="#000000"`))
	assert.Equal(t, true, strings.Contains(body, `<option value="smart" selected>`))
}

func TestPostBatch_MissingTemplate(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{{"inputs", "a.pptx", sourceDeck()}}, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing template", w.Body.String())
}

func TestPostBatch_NoInputs(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{{"template", "brand.pptx", pptxtest.Template()}}, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No inputs", w.Body.String())
}

func TestPostBatch_InvalidTemplate(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{
		{"template", "brand.pptx", []byte("not a zip")},
		{"inputs", "a.pptx", sourceDeck()},
	}, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostBatch_StreamsDeck(t *testing.T) {
	r := newTestRouter(Options{Recognizer: fakeRecognizer{text: "regional SALES overview"}})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{
		{"template", "brand.pptx", pptxtest.Template()},
		{"inputs", "a.pptx", sourceDeck()},
		{"inputs", "b.pptx", pptxtest.Build(pptxtest.Deck{Slides: []pptxtest.Slide{{}}})},
	}, map[string]string{
		"shadow":       "on",
		"shadow_color": "#336699",
		"title_case":   "upper",
		"image_height": "4",
	})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pptx.ContentTypePresentation, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="styled_output.pptx"`, w.Header().Get("Content-Disposition"))

	out := readOutput(t, w.Body.Bytes())
	assert.Equal(t, 3, out.GetSlideCount())

	titles := []string{"REGIONAL SALES OVERVIEW", "Q3 REVENUE", "DASHBOARD 3"}
	for i, s := range out.Slides() {
		assert.Equal(t, titles[i], s.TitlePlaceholder().Text())
	}

	pic := out.Slides()[0].Pictures()[0]
	_, cy := pic.Extent()
	assert.Equal(t, pptx.Inch(4), cy)
	clr := pic.Element().FindElement(".//a:outerShdw/a:srgbClr")
	assert.NotEqual(t, nil, clr)
	assert.Equal(t, "336699", clr.SelectAttrValue("val", ""))
}

func TestPostBatch_ShadowOff(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{
		{"template", "brand.pptx", pptxtest.Template()},
		{"inputs", "a.pptx", sourceDeck()},
	}, map[string]string{"border_radius": "not-a-number"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	pic := readOutput(t, w.Body.Bytes()).Slides()[0].Pictures()[0]
	assert.Equal(t, 0, len(pic.Element().FindElements(".//a:outerShdw")))
}

func TestGetHero(t *testing.T) {
	r := newTestRouter(Options{HeroPath: filepath.Join(t.TempDir(), "hero_image.png")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/hero.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Hero image not found", w.Body.String())

	hero := filepath.Join(t.TempDir(), "hero_image.png")
	png := pptxtest.PNG(4, 4, color.White)
	if err := os.WriteFile(hero, png, 0644); err != nil {
		t.Fatal(err)
	}
	r = newTestRouter(Options{HeroPath: hero})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/hero.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
}

func TestGetHealth(t *testing.T) {
	r := newTestRouter(Options{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "healthy", res["status"])
	assert.Equal(t, pptx.Version, res["version"])
}

func TestPostBatch_InvalidFieldLogsThroughHandlerLogger(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	w := httptest.NewRecorder()
	req := multipartRequest(t, []upload{
		{"template", "brand.pptx", pptxtest.Template()},
		{"inputs", "a.pptx", sourceDeck()},
	}, map[string]string{"border_radius": "not-a-number", "image_top": "high"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := logs.String()
	assert.Equal(t, true, strings.Contains(out, "field=border_radius"))
	assert.Equal(t, true, strings.Contains(out, "field=image_top"))
}
