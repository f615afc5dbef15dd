package eyedropper

import (
	"fmt"
	"image"

	"github.com/jo-hoe/gopicker/internal/hexcolor"
)

// SampleColor reads the pixel at (x, y), 0-based from the top-left corner.
//
// Translucent pixels are composited over white, the page background behind
// the displayed image, so the result is the color the user actually sees.
func SampleColor(img image.Image, x, y int) (hexcolor.Color, error) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return hexcolor.Color{}, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	// RGBA returns alpha-premultiplied 16-bit channels
	r, g, b, a := img.At(x, y).RGBA()
	return hexcolor.FromRGB(
		uint8((r+0xffff-a)>>8),
		uint8((g+0xffff-a)>>8),
		uint8((b+0xffff-a)>>8),
	), nil
}
