package pptx

import (
	"fmt"
	"strings"
)

// Validate checks the presentation for structural issues and returns an error
// describing all problems found, or nil if the presentation is valid.
func (p *Presentation) Validate() error {
	var errs []string

	if p.presDoc == nil {
		errs = append(errs, "presentation part is missing")
	}
	if p.contentTypes == nil {
		errs = append(errs, "content types are missing")
	}
	if p.slideWidth <= 0 {
		errs = append(errs, "slide width must be positive")
	}
	if p.slideHeight <= 0 {
		errs = append(errs, "slide height must be positive")
	}
	if len(p.layouts) == 0 {
		errs = append(errs, "presentation has no slide layouts")
	}

	for i, slide := range p.slides {
		prefix := fmt.Sprintf("slide %d", i+1)
		for _, e := range validateSlide(slide) {
			errs = append(errs, prefix+": "+e)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func validateSlide(s *Slide) []string {
	var errs []string
	if s.layout == nil {
		errs = append(errs, "slide has no layout")
	}
	seen := make(map[int]bool)
	for j, shape := range s.Shapes() {
		prefix := fmt.Sprintf("shape %d", j+1)
		if id := shape.ID(); id > 0 {
			if seen[id] {
				errs = append(errs, fmt.Sprintf("%s: duplicate shape id %d", prefix, id))
			}
			seen[id] = true
		}
		cx, cy := shape.Extent()
		if cx < 0 {
			errs = append(errs, prefix+": width is negative")
		}
		if cy < 0 {
			errs = append(errs, prefix+": height is negative")
		}

		pic, ok := shape.(*Picture)
		if !ok {
			continue
		}
		blip := pic.blip()
		if blip == nil {
			errs = append(errs, prefix+": picture has no image reference")
			continue
		}
		if embed := blip.SelectAttrValue("r:embed", ""); embed != "" {
			img := pic.Image()
			if img == nil {
				errs = append(errs, prefix+": picture references missing image "+embed)
			} else if !isValidImageMime(img.ContentType) {
				errs = append(errs, prefix+": unsupported image MIME type: "+img.ContentType)
			}
		}
	}
	return errs
}

// isValidImageMime checks if a MIME type is a supported image format.
func isValidImageMime(mime string) bool {
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/svg+xml",
		"image/tiff", "image/x-emf", "image/x-wmf", "image/webp", "image/vnd.ms-photo":
		return true
	}
	return false
}
