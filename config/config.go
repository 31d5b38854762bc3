// Package config holds the batch and style settings shared by the command
// line and web front ends.
//
// Settings are layered: Default, then an optional YAML file (Load), then the
// environment (ApplyEnv), then flags or form fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is the file name used when no output path is given.
const DefaultOutput = "styled_output.pptx"

var (
	// ErrMissingTemplate is returned by Validate when no template is set.
	ErrMissingTemplate = errors.New("missing template")
	// ErrNoInputs is returned by Validate when no input deck is set.
	ErrNoInputs = errors.New("no inputs")
)

// Title case modes.
const (
	CaseSmart = "smart"
	CaseCamel = "camel"
	CaseUpper = "upper"
	CaseLower = "lower"
)

// Style controls how every output slide is styled. It is passed by value and
// not modified once a batch starts.
type Style struct {
	TitleCase       string `yaml:"title_case"`
	TitleFontSizePt int    `yaml:"title_font_size"`

	BorderRadiusPx int `yaml:"border_radius"`

	ShadowEnabled      bool    `yaml:"shadow"`
	ShadowColor        string  `yaml:"shadow_color"`
	ShadowTransparency float64 `yaml:"shadow_transparency"`
	ShadowBlurPt       float64 `yaml:"shadow_blur"`
	ShadowDistancePt   float64 `yaml:"shadow_distance"`
	ShadowAngleDeg     int     `yaml:"shadow_angle"`

	ImageLeftIn   float64 `yaml:"image_left"`
	ImageTopIn    float64 `yaml:"image_top"`
	ImageHeightIn float64 `yaml:"image_height"`
}

// DefaultStyle returns the house style.
func DefaultStyle() Style {
	return Style{
		TitleCase:          CaseSmart,
		TitleFontSizePt:    28,
		BorderRadiusPx:     10,
		ShadowEnabled:      true,
		ShadowColor:        "000000",
		ShadowTransparency: 0.8,
		ShadowBlurPt:       15,
		ShadowDistancePt:   3,
		ShadowAngleDeg:     34,
		ImageLeftIn:        2.5,
		ImageTopIn:         1.7,
		ImageHeightIn:      4.9,
	}
}

// ShadowRGB parses ShadowColor as a hex RGB triple, with or without a
// leading "#". Anything unparsable is black.
func (s Style) ShadowRGB() (r, g, b uint8) {
	hex := strings.TrimSpace(s.ShadowColor)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0
	}
	return c.RGB255()
}

// Normalized clamps out-of-range values into their valid ranges.
func (s Style) Normalized() Style {
	if s.BorderRadiusPx < 0 {
		s.BorderRadiusPx = 0
	}
	if s.ShadowTransparency < 0 {
		s.ShadowTransparency = 0
	}
	if s.ShadowTransparency > 1 {
		s.ShadowTransparency = 1
	}
	if s.ShadowBlurPt < 0 {
		s.ShadowBlurPt = 0
	}
	if s.ShadowDistancePt < 0 {
		s.ShadowDistancePt = 0
	}
	if s.TitleFontSizePt <= 0 {
		s.TitleFontSizePt = DefaultStyle().TitleFontSizePt
	}
	if s.ImageHeightIn <= 0 {
		s.ImageHeightIn = DefaultStyle().ImageHeightIn
	}
	return s
}

// OCR selects and configures the text recognizer used for titles.
type OCR struct {
	// Engine is one of "tesseract", "documentai" or "none".
	Engine string `yaml:"engine"`
	// Language is the recognizer locale.
	Language   string     `yaml:"language"`
	Tesseract  string     `yaml:"tesseract_path"`
	DocumentAI DocumentAI `yaml:"documentai"`
}

// DocumentAI holds Google Document AI processor settings.
type DocumentAI struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
	// DebugDir, when set, receives the raw API response for every call.
	DebugDir string `yaml:"debug_dir"`
}

// Batch is one stylizing run.
type Batch struct {
	Template string   `yaml:"template"`
	Inputs   []string `yaml:"inputs"`
	Output   string   `yaml:"output"`
	Style    Style    `yaml:"style"`
	OCR      OCR      `yaml:"ocr"`
	// Layouts lists preferred template layout names, most preferred first.
	Layouts []string `yaml:"layouts"`
}

// Default returns a batch with every default filled in.
func Default() Batch {
	return Batch{
		Output: DefaultOutput,
		Style:  DefaultStyle(),
		OCR: OCR{
			Engine:   "tesseract",
			Language: "eng",
			DocumentAI: DocumentAI{
				Location: "us",
			},
		},
	}
}

// Load overlays the YAML file at path onto b. Keys absent from the file keep
// their current values.
func Load(path string, b *Batch) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, b); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays settings taken from the environment.
func (b *Batch) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&b.OCR.Engine, "STYLIZER_OCR_ENGINE")
	set(&b.OCR.Language, "STYLIZER_OCR_LANGUAGE")
	set(&b.OCR.Tesseract, "STYLIZER_TESSERACT")
	set(&b.OCR.DocumentAI.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&b.OCR.DocumentAI.ProjectID, "DOCUMENTAI_PROJECT_ID")
	set(&b.OCR.DocumentAI.Location, "DOCUMENTAI_LOCATION")
	set(&b.OCR.DocumentAI.ProcessorID, "DOCUMENTAI_PROCESSOR_ID")
}

// Validate reports a missing template or empty input list.
func (b Batch) Validate() error {
	if strings.TrimSpace(b.Template) == "" {
		return ErrMissingTemplate
	}
	if len(b.Inputs) == 0 {
		return ErrNoInputs
	}
	return nil
}
