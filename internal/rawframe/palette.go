package rawframe

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"annofuse/internal/fileutil"
)

// Palette assigns a colour to each class value.
type Palette [NumClasses]color.RGBA

var (
	// MonoPalette renders 0 black, 1 white, 2 red.
	MonoPalette = Palette{{0, 0, 0, 255}, {255, 255, 255, 255}, {255, 0, 0, 255}}
	// PolarityPalette renders 0 black, 1 red, 2 blue.
	PolarityPalette = Palette{{0, 0, 0, 255}, {255, 0, 0, 255}, {0, 0, 255, 255}}
)

// ParsePalette resolves a palette name ("mono" or "polarity").
func ParsePalette(name string) (Palette, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mono":
		return MonoPalette, nil
	case "polarity":
		return PolarityPalette, nil
	default:
		return Palette{}, fmt.Errorf("unknown palette %q (want mono or polarity)", name)
	}
}

// ToImage colours f and scales it by an integer factor with nearest-neighbour
// sampling. Illegal values render magenta.
func ToImage(f *Frame, p Palette, scale int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	bad := color.RGBA{255, 0, 255, 255}
	for r := range f.Height {
		for c := range f.Width {
			v := f.At(r, c)
			if int(v) < len(p) {
				img.SetRGBA(c, r, p[v])
			} else {
				img.SetRGBA(c, r, bad)
			}
		}
	}
	if scale <= 1 {
		return img
	}
	scaled := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	return scaled
}

// WritePNG renders f to a PNG file at path.
func WritePNG(path string, f *Frame, p Palette, scale int) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, ToImage(f, p, scale)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
