// Package imagestyle rounds, sizes and shadows dashboard pictures.
package imagestyle

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp"
)

// kappa places cubic Bézier control points so that a quarter curve
// approximates a circular arc.
const kappa = 0.5522847498

// Decode decodes a raster image in any registered format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeFile decodes the raster image stored at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// RoundCorners replaces the alpha channel of the image with a rounded
// rectangle mask and returns it as PNG. A radius of 0 leaves every pixel's
// color as is and makes it fully opaque. The radius is clamped to half the
// shorter side.
func RoundCorners(data []byte, radius int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	out := applyMask(img, RoundedMask(img.Bounds().Dx(), img.Bounds().Dy(), radius))
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// RoundedMask rasterizes a w x h rounded rectangle with corner radius r.
func RoundedMask(w, h, r int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return mask
	}
	if r > min(w, h)/2 {
		r = min(w, h) / 2
	}
	if r <= 0 {
		draw.Draw(mask, mask.Bounds(), image.Opaque, image.Point{}, draw.Src)
		return mask
	}

	fw, fh, fr := float32(w), float32(h), float32(r)
	k := fr * kappa
	z := vector.NewRasterizer(w, h)
	z.MoveTo(fr, 0)
	z.LineTo(fw-fr, 0)
	z.CubeTo(fw-fr+k, 0, fw, fr-k, fw, fr)
	z.LineTo(fw, fh-fr)
	z.CubeTo(fw, fh-fr+k, fw-fr+k, fh, fw-fr, fh)
	z.LineTo(fr, fh)
	z.CubeTo(fr-k, fh, 0, fh-fr+k, 0, fh-fr)
	z.LineTo(0, fr)
	z.CubeTo(0, fr-k, fr-k, 0, fr, 0)
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// applyMask copies img into a new NRGBA image whose alpha is taken from mask.
func applyMask(img image.Image, mask *image.Alpha) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = mask.AlphaAt(x, y).A
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}
