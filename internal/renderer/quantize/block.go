package quantize

import "github.com/dshills/pixstorm/internal/renderer/core"

// Block renders each cell as a single solid color.
//
// Cols and Rows set the sampling grid; zero averages every pixel under
// the cell. With a Palette the closest solid or shaded glyph is used.
type Block struct {
	Cols, Rows int
	Palette    *Palette
}

// Quantize implements Quantizer.
func (q Block) Quantize(s *Sampler, cx, cy int, _ *Scratch) (Result, bool) {
	var r, g, b, n int
	add := func(c core.Color) {
		if c.IsTransparent() {
			return
		}
		r += int(c.R())
		g += int(c.G())
		b += int(c.B())
		n++
	}

	if q.Cols > 0 && q.Rows > 0 {
		for sy := 0; sy < q.Rows; sy++ {
			for sx := 0; sx < q.Cols; sx++ {
				add(s.at(s.pos(cx, cy, sx, sy, q.Cols, q.Rows)))
			}
		}
	} else {
		x0 := cx * s.Width / s.TermWidth
		x1 := max((cx+1)*s.Width/s.TermWidth, x0+1)
		y0 := cy * s.Height / s.TermHeight
		y1 := max((cy+1)*s.Height/s.TermHeight, y0+1)
		for py := y0; py < y1; py++ {
			for px := x0; px < x1; px++ {
				add(s.at(px, py))
			}
		}
	}
	if n == 0 {
		return Result{}, false
	}

	avg := core.RGB(uint8(r/n), uint8(g/n), uint8(b/n))
	if q.Palette != nil {
		sh := q.Palette.Shade(avg)
		return Result{Char: sh.Char, Fg: sh.Fg, Bg: sh.Bg}, true
	}
	return Result{Char: " ", Bg: avg}, true
}
