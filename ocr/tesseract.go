package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// lookPath and execCommand are replaced in tests to simulate the binary.
var (
	lookPath    = exec.LookPath
	execCommand = exec.CommandContext
)

// Tesseract runs the tesseract command line tool and reads its hOCR output.
type Tesseract struct {
	// Path is the binary name or path; "tesseract" when empty.
	Path     string
	Language string
	// PSM is the page segmentation mode; 0 leaves tesseract's default.
	PSM int
}

// NewTesseract returns a recognizer for a single uniform block of text,
// which suits the narrow header strips titles are read from.
func NewTesseract(path, language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Path: path, Language: language, PSM: 6}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	bin := t.Path
	if bin == "" {
		bin = "tesseract"
	}
	resolved, err := lookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrUnavailable, bin, err)
	}

	tmp, err := os.CreateTemp("", "stylizer-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("create temp file for OCR: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp file for OCR: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file for OCR: %w", err)
	}

	args := []string{tmpPath, "stdout", "-l", t.Language}
	if t.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.PSM))
	}
	args = append(args, "hocr")

	var stderr bytes.Buffer
	cmd := execCommand(ctx, resolved, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseHOCR(out)
}

// parseHOCR turns tesseract's hOCR into one detection per text line. A
// line's confidence is the mean of its word confidences.
func parseHOCR(data []byte) ([]Detection, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	var detections []Detection
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isLine(classOf(n)) {
			if d, ok := lineDetection(n); ok {
				detections = append(detections, d)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return detections, nil
}

// decodeCharset converts Latin-1 hOCR to UTF-8; UTF-8 input is returned as is.
func decodeCharset(data []byte) ([]byte, error) {
	head := strings.ToLower(string(data[:min(len(data), 1024)]))
	i := strings.Index(head, "charset=")
	if i < 0 {
		return data, nil
	}
	enc := strings.FieldsFunc(head[i+len("charset="):], func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(enc) == 0 || enc[0] == "utf-8" || enc[0] == "utf8" {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", enc[0], err)
	}
	return decoded, nil
}

func isLine(class string) bool {
	for _, c := range strings.Fields(class) {
		switch c {
		case "ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat":
			return true
		}
	}
	return false
}

func lineDetection(line *html.Node) (Detection, bool) {
	props := parseTitle(attr(line, "title"))
	bbox := props["bbox"]
	if len(bbox) < 4 {
		return Detection{}, false
	}
	var coords [4]float64
	for i := range coords {
		coords[i], _ = strconv.ParseFloat(bbox[i], 64)
	}

	var words []string
	var confSum float64
	var confN int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.Contains(classOf(n), "ocrx_word") {
			text := strings.TrimSpace(nodeText(n))
			if text == "" {
				return
			}
			words = append(words, text)
			if wconf := parseTitle(attr(n, "title"))["x_wconf"]; len(wconf) > 0 {
				if c, err := strconv.ParseFloat(wconf[0], 64); err == nil {
					confSum += c
					confN++
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(line)
	if len(words) == 0 {
		return Detection{}, false
	}

	conf := 0.0
	if confN > 0 {
		conf = confSum / float64(confN) / 100
	}
	return Detection{
		Box:        boxFromRect(coords[0], coords[1], coords[2], coords[3]),
		Text:       strings.Join(words, " "),
		Confidence: conf,
	}, true
}

// parseTitle splits an hOCR title attribute such as
// "bbox 100 200 300 400; x_wconf 95" into its properties.
func parseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func classOf(n *html.Node) string {
	return attr(n, "class")
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
