package hexcolor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidFormat is returned for anything that is not a "#RRGGBB" string.
var ErrInvalidFormat = errors.New("invalid hex color format")

// hexLength is the length of "#RRGGBB"
const hexLength = 7

// RGB holds the three 8-bit channels of a color
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Color is a sampled color. The RGB triplet is always the decoded form of the
// hex string; the only way to obtain a Color is through Parse or FromRGB.
type Color struct {
	hex string
	rgb RGB
}

// Parse decodes a 7-character "#RRGGBB" string. Both upper and lower case
// digits are accepted and the original spelling is kept.
func Parse(hex string) (Color, error) {
	if len(hex) != hexLength || hex[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidFormat, hex)
	}

	var channels [3]uint8
	for i := range channels {
		pair := hex[1+2*i : 3+2*i]
		v, err := strconv.ParseUint(pair, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidFormat, hex)
		}
		channels[i] = uint8(v)
	}

	return Color{
		hex: hex,
		rgb: RGB{R: channels[0], G: channels[1], B: channels[2]},
	}, nil
}

// FromRGB builds a Color from channel values, using lower case hex digits
func FromRGB(r, g, b uint8) Color {
	return Color{
		hex: fmt.Sprintf("#%02x%02x%02x", r, g, b),
		rgb: RGB{R: r, G: g, B: b},
	}
}

// EncodeRGB converts "#RRGGBB" into "rgb(R, G, B)".
func EncodeRGB(hex string) (string, error) {
	c, err := Parse(hex)
	if err != nil {
		return "", err
	}
	return c.RGBString(), nil
}

func (c Color) Hex() string {
	return c.hex
}

func (c Color) RGB() RGB {
	return c.rgb
}

// IsZero reports whether c was never set
func (c Color) IsZero() bool {
	return c.hex == ""
}

// RGBString formats the triplet the way CSS does, e.g. "rgb(255, 0, 161)"
func (c Color) RGBString() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.rgb.R, c.rgb.G, c.rgb.B)
}

// HSLString formats the color as CSS hsl() with whole degrees and percentages
func (c Color) HSLString() string {
	h, s, l := c.colorful().Hsl()
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)",
		int(math.Round(h))%360,
		int(math.Round(s*100)),
		int(math.Round(l*100)))
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.rgb.R) / 255.0,
		G: float64(c.rgb.G) / 255.0,
		B: float64(c.rgb.B) / 255.0,
	}
}

// MarshalJSON stores only the hex string; the triplet is derived on decode.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.hex)
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return err
	}
	parsed, err := Parse(hex)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
