package quantize

import "github.com/dshills/pixstorm/internal/renderer/core"

// sextantGlyphs maps a 6-bit pattern (bit 5 top-left ... bit 0
// bottom-right) to its Unicode sextant or block glyph.
var sextantGlyphs = buildSextantGlyphs()

func buildSextantGlyphs() [64]string {
	var t [64]string
	for p := 0; p < 64; p++ {
		// Unicode numbers sextant cells top-left = 1 ... bottom-right = 32.
		v := 0
		for i := 0; i < 6; i++ {
			if p&(1<<(5-i)) != 0 {
				v |= 1 << i
			}
		}
		switch v {
		case 0:
			t[p] = " "
		case 21:
			t[p] = "▌"
		case 42:
			t[p] = "▐"
		case 63:
			t[p] = "█"
		default:
			off := v - 1
			if v > 21 {
				off--
			}
			if v > 42 {
				off--
			}
			t[p] = string(rune(0x1FB00 + off))
		}
	}
	return t
}

// SextantGlyph returns the glyph for a 6-bit sextant pattern.
func SextantGlyph(pattern uint8) string {
	return sextantGlyphs[pattern&63]
}

// Sextant renders each cell as a 2x3 sextant glyph with two colors.
type Sextant struct{}

// Quantize implements Quantizer.
func (Sextant) Quantize(s *Sampler, cx, cy int, sc *Scratch) (Result, bool) {
	drawMask, imgMask := sc.sample6(s, cx, cy)
	if drawMask == 0 && imgMask == 0 {
		return Result{}, false
	}

	// Both layers present: drawing over image.
	if drawMask != 0 && imgMask != 0 {
		return Result{
			Char: sextantGlyphs[drawMask],
			Fg:   average(&sc.drawing, drawMask),
			Bg:   average(&sc.image, imgMask),
		}, true
	}

	mask := sc.composite6(drawMask, imgMask)
	pattern, fg, bg := split(sc, mask)
	return Result{Char: sextantGlyphs[pattern], Fg: fg, Bg: bg}, true
}

// split partitions the composited samples of sc into an "on" pattern with
// foreground and background colors. Partial coverage keeps the coverage
// mask with a default background. Full coverage splits on brightness.
func split(sc *Scratch, mask uint8) (pattern uint8, fg, bg core.Color) {
	if mask != 63 {
		return mask, average(&sc.comp, mask), core.ColorDefault
	}
	first := sc.comp[0]
	same := true
	for i := 1; i < 6; i++ {
		if sc.comp[i] != first {
			same = false
			break
		}
	}
	if same {
		return 63, first.Opaque(), first.Opaque()
	}
	pattern = Bipartition(&sc.comp, &sc.luma)
	return pattern, average(&sc.comp, pattern), average(&sc.comp, ^pattern&63)
}

// Bipartition splits six opaque samples into two non-empty groups and
// returns the mask of the brighter group. The samples must not all be
// equal.
//
// The split point is the midpoint of the brightness range; when that
// selects every sample it falls back to the mean, and when brightness is
// uniform it splits on the color channel with the largest spread.
func Bipartition(samples *[6]core.Color, luma *[6]int) uint8 {
	lo, hi, sum := 255, 0, 0
	for i, c := range samples {
		l := c.Luma()
		luma[i] = l
		lo = min(lo, l)
		hi = max(hi, l)
		sum += l
	}

	if lo != hi {
		mid := (lo + hi) >> 1
		if m := thresholdMask(luma, mid, true); m != 0 && m != 63 {
			return m
		}
		mean := sum / 6
		if m := thresholdMask(luma, mean, false); m != 0 && m != 63 {
			return m
		}
	}

	// Uniform brightness: use the widest channel.
	var ch [6]int
	best, bestRange := 0, -1
	for k := 0; k < 3; k++ {
		cLo, cHi := 255, 0
		for _, c := range samples {
			v := channel(c, k)
			cLo = min(cLo, v)
			cHi = max(cHi, v)
		}
		if cHi-cLo > bestRange {
			best, bestRange = k, cHi-cLo
		}
	}
	cLo, cHi := 255, 0
	for i, c := range samples {
		ch[i] = channel(c, best)
		cLo = min(cLo, ch[i])
		cHi = max(cHi, ch[i])
	}
	if m := thresholdMask(&ch, (cLo+cHi)>>1, false); m != 0 && m != 63 {
		return m
	}
	if m := thresholdMask(&ch, (cLo+cHi)>>1, true); m != 0 && m != 63 {
		return m
	}
	// Samples differ only in alpha; split off the first one.
	return 1 << 5
}

func thresholdMask(v *[6]int, t int, inclusive bool) uint8 {
	var m uint8
	for i, x := range v {
		if x > t || (inclusive && x == t) {
			m |= 1 << (5 - i)
		}
	}
	return m
}

func channel(c core.Color, k int) int {
	switch k {
	case 0:
		return int(c.R())
	case 1:
		return int(c.G())
	default:
		return int(c.B())
	}
}
