// Package core provides shared types for the renderer subsystem.
// This package breaks import cycles between buffer, quantize and backend.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a packed 32-bit RGBA value laid out as 0xRRGGBBAA.
//
// The zero value is both the "unset" cell color and the TRANSPARENT pixel
// sentinel: any color with a zero alpha channel means "no content here".
type Color uint32

// ColorDefault leaves the terminal's default color in place.
const ColorDefault Color = 0

// Transparent marks a pixel without content.
const Transparent Color = 0

// Common colors.
const (
	ColorBlack   Color = 0x000000FF
	ColorWhite   Color = 0xFFFFFFFF
	ColorRed     Color = 0xFF0000FF
	ColorGreen   Color = 0x00FF00FF
	ColorBlue    Color = 0x0000FFFF
	ColorYellow  Color = 0xFFFF00FF
	ColorCyan    Color = 0x00FFFFFF
	ColorMagenta Color = 0xFF00FFFF
	ColorGray    Color = 0x808080FF
)

// RGB creates an opaque color from RGB components.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | 0xFF)
}

// RGBA creates a color from RGBA components.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

// ColorFromHex creates a color from a hex string (#RGB, #RRGGBB or #RRGGBBAA).
func ColorFromHex(hex string) (Color, error) {
	hex = strings.TrimPrefix(hex, "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return 0, fmt.Errorf("invalid hex color length: %s", hex)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color: %s", hex)
	}
	return Color(v), nil
}

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 24) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 16) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c >> 8) }

// A returns the alpha channel.
func (c Color) A() uint8 { return uint8(c) }

// RGB returns the three color channels.
func (c Color) RGB() (r, g, b uint8) {
	return c.R(), c.G(), c.B()
}

// IsDefault returns true if the color is unset (or fully transparent).
func (c Color) IsDefault() bool {
	return c.A() == 0
}

// IsTransparent is IsDefault under its pixel-layer name.
func (c Color) IsTransparent() bool {
	return c.A() == 0
}

// Opaque returns the color with its alpha channel forced to 0xFF.
func (c Color) Opaque() Color {
	return c | 0xFF
}

// Luma returns the integer perceptual brightness (r*77 + g*150 + b*29) >> 8.
func (c Color) Luma() int {
	return (int(c.R())*77 + int(c.G())*150 + int(c.B())*29) >> 8
}

// String returns a string representation of the color.
func (c Color) String() string {
	if c.IsDefault() {
		return "default"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R(), c.G(), c.B())
}

// Colorful converts to a go-colorful color for perceptual math.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R()) / 255,
		G: float64(c.G()) / 255,
		B: float64(c.B()) / 255,
	}
}

// FromColorful converts a go-colorful color back to an opaque packed color.
func FromColorful(cf colorful.Color) Color {
	r, g, b := cf.Clamped().RGB255()
	return RGB(r, g, b)
}

// Blend blends two colors in Lab space.
func (c Color) Blend(other Color, amount float64) Color {
	if c.IsDefault() {
		return other
	}
	if other.IsDefault() || amount <= 0 {
		return c
	}
	if amount >= 1 {
		return other
	}
	return FromColorful(c.Colorful().BlendLab(other.Colorful(), amount))
}
