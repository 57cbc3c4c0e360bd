package quantize

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/pixstorm/internal/renderer/core"
)

// ANSI16 is the xterm default 16-color palette.
var ANSI16 = []core.Color{
	0x000000FF, 0xCD0000FF, 0x00CD00FF, 0xCDCD00FF,
	0x0000EEFF, 0xCD00CDFF, 0x00CDCDFF, 0xE5E5E5FF,
	0x7F7F7FFF, 0xFF0000FF, 0x00FF00FF, 0xFFFF00FF,
	0x5C5CFFFF, 0xFF00FFFF, 0x00FFFFFF, 0xFFFFFFFF,
}

// Shade is a glyph drawn in two palette colors whose visual mix
// approximates a target color.
type Shade struct {
	Char string
	Fg   core.Color
	Bg   core.Color

	lab [3]float64
}

// shadeLevels lists the partial block glyphs with their foreground
// coverage.
var shadeLevels = []struct {
	char     string
	coverage float64
}{
	{"░", 0.25},
	{"▒", 0.5},
	{"▓", 0.75},
}

// Palette is a fixed set of terminal colors plus the shades that can be
// mixed from them.
type Palette struct {
	colors []core.Color
	labs   [][3]float64
	shades []Shade
}

// NewPalette builds a palette and its shade table from colors. Duplicate
// and transparent entries are skipped.
func NewPalette(colors []core.Color) *Palette {
	p := &Palette{}
	seen := make(map[core.Color]bool, len(colors))
	for _, c := range colors {
		if c.IsTransparent() {
			continue
		}
		c = c.Opaque()
		if seen[c] {
			continue
		}
		seen[c] = true
		p.colors = append(p.colors, c)
		p.labs = append(p.labs, lab(c.Colorful()))
	}

	for _, c := range p.colors {
		cf := c.Colorful()
		p.shades = append(p.shades, Shade{Char: "█", Fg: c, Bg: c, lab: lab(cf)})
	}
	for i, fg := range p.colors {
		for j, bg := range p.colors {
			if i == j {
				continue
			}
			for _, lvl := range shadeLevels {
				mix := bg.Colorful().BlendRgb(fg.Colorful(), lvl.coverage)
				p.shades = append(p.shades, Shade{Char: lvl.char, Fg: fg, Bg: bg, lab: lab(mix)})
			}
		}
	}
	return p
}

// DefaultPalette returns a palette over ANSI16.
func DefaultPalette() *Palette {
	return NewPalette(ANSI16)
}

// Colors returns the palette entries.
func (p *Palette) Colors() []core.Color {
	return p.colors
}

// Len returns the number of palette entries.
func (p *Palette) Len() int {
	return len(p.colors)
}

// Nearest returns the palette entry closest to c in CIE Lab.
func (p *Palette) Nearest(c core.Color) core.Color {
	if len(p.colors) == 0 {
		return c
	}
	q := lab(c.Colorful())
	best, bestDist := 0, labDist(q, p.labs[0])
	for i := 1; i < len(p.labs); i++ {
		if d := labDist(q, p.labs[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return p.colors[best]
}

// Shade returns the solid or shaded glyph whose mix is closest to c.
func (p *Palette) Shade(c core.Color) Shade {
	if len(p.shades) == 0 {
		return Shade{Char: "█", Fg: c.Opaque(), Bg: c.Opaque()}
	}
	q := lab(c.Colorful())
	best, bestDist := 0, labDist(q, p.shades[0].lab)
	for i := 1; i < len(p.shades); i++ {
		if d := labDist(q, p.shades[i].lab); d < bestDist {
			best, bestDist = i, d
		}
	}
	return p.shades[best]
}

func lab(c colorful.Color) [3]float64 {
	l, a, b := c.Lab()
	return [3]float64{l, a, b}
}

func labDist(x, y [3]float64) float64 {
	dl, da, db := x[0]-y[0], x[1]-y[1], x[2]-y[2]
	return dl*dl + da*da + db*db
}
