package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/gmfennema/tableau-power-point-stylizer/config"
)

type processFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)

// DocumentAI recognizes text with a Google Document AI OCR processor.
type DocumentAI struct {
	name     string
	debugDir string
	process  processFunc
	close    func() error
}

// NewDocumentAI connects to the processor named by cfg.
func NewDocumentAI(ctx context.Context, cfg config.DocumentAI) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("%w: Document AI project and processor IDs are required", ErrUnavailable)
	}
	location := cfg.Location
	if location == "" {
		location = "us"
	}
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocumentAI{
		name: fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID),
		process: func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
			return client.ProcessDocument(ctx, req)
		},
		close:    client.Close,
		debugDir: cfg.DebugDir,
	}, nil
}

// Close releases the client connection.
func (d *DocumentAI) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

func (d *DocumentAI) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for Document AI: %w", err)
	}
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  buf.Bytes(),
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
	}
	resp, err := d.process(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	doc := resp.GetDocument()
	d.dump(doc)
	return detectionsFromDocument(doc, img.Bounds()), nil
}

// dump writes the raw response for debugging; failures are ignored.
func (d *DocumentAI) dump(doc *documentaipb.Document) {
	if d.debugDir == "" || doc == nil {
		return
	}
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err != nil {
		return
	}
	name := filepath.Join(d.debugDir, fmt.Sprintf("documentai-%d.json", time.Now().UnixNano()))
	_ = os.WriteFile(name, data, 0644)
}

// detectionsFromDocument converts the lines of the first page.
func detectionsFromDocument(doc *documentaipb.Document, bounds image.Rectangle) []Detection {
	if doc == nil || len(doc.GetPages()) == 0 {
		return nil
	}
	page := doc.GetPages()[0]
	width, height := float64(bounds.Dx()), float64(bounds.Dy())
	if dim := page.GetDimension(); dim != nil && dim.GetWidth() > 0 && dim.GetHeight() > 0 {
		width, height = float64(dim.GetWidth()), float64(dim.GetHeight())
	}

	var detections []Detection
	for _, line := range page.GetLines() {
		layout := line.GetLayout()
		text := strings.Join(strings.Fields(textFromLayout(layout, doc.GetText())), " ")
		if text == "" {
			continue
		}
		box, ok := boxFromPoly(layout.GetBoundingPoly(), width, height)
		if !ok {
			continue
		}
		detections = append(detections, Detection{
			Box:        box,
			Text:       text,
			Confidence: float64(layout.GetConfidence()),
		})
	}
	return detections
}

// boxFromPoly prefers pixel vertices and falls back to normalized ones.
func boxFromPoly(poly *documentaipb.BoundingPoly, width, height float64) ([4]Point, bool) {
	var box [4]Point
	if v := poly.GetVertices(); len(v) >= 4 {
		for i := range box {
			box[i] = Point{float64(v[i].GetX()), float64(v[i].GetY())}
		}
		return box, true
	}
	if v := poly.GetNormalizedVertices(); len(v) >= 4 {
		for i := range box {
			box[i] = Point{float64(v[i].GetX()) * width, float64(v[i].GetY()) * height}
		}
		return box, true
	}
	return box, false
}

// textFromLayout extracts text from a layout's text anchor segments
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}
