package annotation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque sRGB color.
type Color struct{ R, G, B uint8 }

var (
	Black  = Color{}
	White  = Color{255, 255, 255}
	Red    = Color{R: 220, G: 38, B: 38}
	Yellow = Color{R: 255, G: 235, B: 59}
)

var namedColors = map[string]Color{
	"black":  Black,
	"white":  White,
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"orange": {255, 165, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
}

// ParseColor accepts #rgb, #rrggbb, rgb(r, g, b) and a few CSS names.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	cf, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return fromColorful(cf), nil
}

// MustParseColor is ParseColor for constants.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseRGBFunc(s string) (Color, error) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Color{}, fmt.Errorf("parse color %q: unbalanced parentheses", s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return Color{}, fmt.Errorf("parse color %q: want 3 components", s)
	}
	var out [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("parse color %q: bad component %q", s, parts[i])
		}
		out[i] = uint8(math.Round(v))
	}
	return Color{out[0], out[1], out[2]}, nil
}

func fromColorful(c colorful.Color) Color {
	c = c.Clamped()
	return Color{
		R: uint8(math.Round(c.R * 255)),
		G: uint8(math.Round(c.G * 255)),
		B: uint8(math.Round(c.B * 255)),
	}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string { return c.colorful().Hex() }

func (c Color) String() string { return c.Hex() }

// Unit returns the components in [0, 1].
func (c Color) Unit() (r, g, b float64) {
	cf := c.colorful()
	return cf.R, cf.G, cf.B
}

// Blend mixes c toward o by t in Lab space.
func (c Color) Blend(o Color, t float64) Color {
	return fromColorful(c.colorful().BlendLab(o.colorful(), t))
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
