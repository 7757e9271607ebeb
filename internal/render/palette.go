package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

type Palette struct {
	Background color.RGBA
	Foreground color.RGBA
	Accent     color.RGBA
}

// PaletteSpec is a palette as written in the config file, hex encoded.
type PaletteSpec struct {
	Background string
	Foreground string
	Accent     string
}

var defaultPalettes = []Palette{
	{
		Background: color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff},
		Foreground: color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff},
		Accent:     color.RGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff},
	},
	{
		Background: color.RGBA{R: 0x1e, G: 0x1b, B: 0x4b, A: 0xff},
		Foreground: color.RGBA{R: 0xee, G: 0xf2, B: 0xff, A: 0xff},
		Accent:     color.RGBA{R: 0xf4, G: 0x72, B: 0xb6, A: 0xff},
	},
	{
		Background: color.RGBA{R: 0x06, G: 0x2c, B: 0x22, A: 0xff},
		Foreground: color.RGBA{R: 0xec, G: 0xfd, B: 0xf5, A: 0xff},
		Accent:     color.RGBA{R: 0xfb, G: 0xbf, B: 0x24, A: 0xff},
	},
	{
		Background: color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff},
		Foreground: color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff},
		Accent:     color.RGBA{R: 0xe1, G: 0x1d, B: 0x48, A: 0xff},
	},
}

// ParsePalettes converts configured palettes. An empty list selects the
// built-in palettes.
func ParsePalettes(specs []PaletteSpec) ([]Palette, error) {
	if len(specs) == 0 {
		return defaultPalettes, nil
	}

	palettes := make([]Palette, 0, len(specs))
	for i, spec := range specs {
		var p Palette
		var err error
		if p.Background, err = ParseHexColor(spec.Background); err != nil {
			return nil, fmt.Errorf("palette %d background: %w", i, err)
		}
		if p.Foreground, err = ParseHexColor(spec.Foreground); err != nil {
			return nil, fmt.Errorf("palette %d foreground: %w", i, err)
		}
		if p.Accent, err = ParseHexColor(spec.Accent); err != nil {
			return nil, fmt.Errorf("palette %d accent: %w", i, err)
		}
		palettes = append(palettes, p)
	}
	return palettes, nil
}

// ParseHexColor accepts #rgb and #rrggbb, with or without the leading #.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func paletteFor(palettes []Palette, index int) Palette {
	if len(palettes) == 0 {
		palettes = defaultPalettes
	}
	return palettes[index%len(palettes)]
}
