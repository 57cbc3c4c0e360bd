package quantize

// HalfBlock renders each cell as an upper and a lower half using the
// half block glyphs. With a Palette, colors snap to palette entries and
// cells whose halves collapse onto one entry use a shade glyph instead.
type HalfBlock struct {
	Palette *Palette
}

// Quantize implements Quantizer.
func (q HalfBlock) Quantize(s *Sampler, cx, cy int, _ *Scratch) (Result, bool) {
	top := s.at(s.pos(cx, cy, 0, 0, 1, 2))
	bottom := s.at(s.pos(cx, cy, 0, 1, 1, 2))
	topOn, bottomOn := !top.IsTransparent(), !bottom.IsTransparent()
	if !topOn && !bottomOn {
		return Result{}, false
	}
	top, bottom = top.Opaque(), bottom.Opaque()

	if q.Palette != nil {
		rawTop, rawBottom := top, bottom
		if topOn {
			top = q.Palette.Nearest(top)
		}
		if bottomOn {
			bottom = q.Palette.Nearest(bottom)
		}
		if topOn && bottomOn && top == bottom && rawTop != rawBottom {
			sh := q.Palette.Shade(rawTop.Blend(rawBottom, 0.5))
			return Result{Char: sh.Char, Fg: sh.Fg, Bg: sh.Bg}, true
		}
	}

	switch {
	case topOn && bottomOn && top == bottom:
		return Result{Char: "█", Fg: top, Bg: top}, true
	case topOn && bottomOn:
		return Result{Char: "▀", Fg: top, Bg: bottom}, true
	case topOn:
		return Result{Char: "▀", Fg: top}, true
	default:
		return Result{Char: "▄", Fg: bottom}, true
	}
}
