package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// RegisterFlags binds every style setting to fs, using the current values
// of s as defaults.
func (s *Style) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.TitleCase, "title-case", s.TitleCase, "Title casing: smart, camel, upper or lower")
	fs.IntVar(&s.TitleFontSizePt, "title-font-size", s.TitleFontSizePt, "Title font size in points")
	fs.IntVar(&s.BorderRadiusPx, "border-radius", s.BorderRadiusPx, "Image corner radius in pixels")
	fs.Float64Var(&s.ImageLeftIn, "image-left", s.ImageLeftIn, "Image left offset in inches")
	fs.Float64Var(&s.ImageTopIn, "image-top", s.ImageTopIn, "Image top offset in inches")
	fs.Float64Var(&s.ImageHeightIn, "image-height", s.ImageHeightIn, "Image height in inches")
	fs.BoolVar(&s.ShadowEnabled, "shadow", s.ShadowEnabled, "Add a drop shadow to images")
	fs.Var(negatedBool{&s.ShadowEnabled}, "no-shadow", "Disable the image drop shadow")
	fs.StringVar(&s.ShadowColor, "shadow-color", s.ShadowColor, "Shadow color as hex RGB")
	fs.Float64Var(&s.ShadowTransparency, "shadow-transparency", s.ShadowTransparency, "Shadow transparency from 0 to 1")
	fs.Float64Var(&s.ShadowBlurPt, "shadow-blur", s.ShadowBlurPt, "Shadow blur radius in points")
	fs.IntVar(&s.ShadowAngleDeg, "shadow-angle", s.ShadowAngleDeg, "Shadow angle in degrees")
	fs.Float64Var(&s.ShadowDistancePt, "shadow-distance", s.ShadowDistancePt, "Shadow distance in points")
}

// ListFlag collects a repeatable flag; each value may also be a
// comma-separated list. A value naming an existing file is kept whole, so
// paths containing commas can still be passed.
type ListFlag []string

func (l *ListFlag) String() string { return strings.Join(*l, ",") }

func (l *ListFlag) Set(v string) error {
	if _, err := os.Stat(v); err == nil {
		*l = append(*l, v)
		return nil
	}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// negatedBool is a boolean flag that stores the inverse of its value.
type negatedBool struct{ dst *bool }

func (n negatedBool) IsBoolFlag() bool { return true }

func (n negatedBool) String() string {
	if n.dst == nil {
		return "false"
	}
	return strconv.FormatBool(!*n.dst)
}

func (n negatedBool) Set(v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*n.dst = !b
	return nil
}
