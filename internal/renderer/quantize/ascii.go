package quantize

// asciiPatterns approximates each 2x3 pattern (bit 5 top-left ... bit 0
// bottom-right) with a printable ASCII glyph.
var asciiPatterns = [64]string{
	" ", ",", ".", "_", ">", ";", ".", "j",
	"<", ",", ":", "c", "-", "y", "r", "=",
	"'", "'", "'", "_", "'", "!", "/", "J",
	"'", "(", "F", "[", "-", "(", "/", "d",
	"`", "`", "`", "_", "`", "%", ")", "]",
	"`", "\\", "|", "L", "-", "4", "h", "b",
	"\"", "\"", "\"", "[", "?", "7", "S", "]",
	"\"", "[", "F", "[", "~", "q", "P", "#",
}

// ASCIIGlyph returns the ASCII glyph for a 6-bit pattern.
func ASCIIGlyph(pattern uint8) string {
	return asciiPatterns[pattern&63]
}

// ASCIIPattern renders cells as ASCII glyphs whose shape follows the
// brighter half of the cell.
type ASCIIPattern struct{}

// Quantize implements Quantizer.
func (ASCIIPattern) Quantize(s *Sampler, cx, cy int, sc *Scratch) (Result, bool) {
	drawMask, imgMask := sc.sample6(s, cx, cy)
	mask := sc.composite6(drawMask, imgMask)
	if mask == 0 {
		return Result{}, false
	}
	pattern := mask
	if mask == 63 {
		pattern, _, _ = split(sc, mask)
	}
	return Result{Char: asciiPatterns[pattern], Fg: average(&sc.comp, pattern)}, true
}

// LumaRamp orders glyphs from darkest to brightest.
const LumaRamp = " .:-=+*#%@"

var defaultLuma = splitRamp(LumaRamp)

// ASCIILuma renders cells as a glyph picked from a brightness ramp. The
// zero value uses LumaRamp.
type ASCIILuma struct {
	ramp []string
}

// NewASCIILuma creates a luma quantizer over ramp, ordered darkest to
// brightest. Each rune is one step, so "░▒▓█" is a valid ramp. An empty
// ramp selects LumaRamp.
func NewASCIILuma(ramp string) ASCIILuma {
	if ramp == "" {
		return ASCIILuma{}
	}
	return ASCIILuma{ramp: splitRamp(ramp)}
}

func splitRamp(ramp string) []string {
	glyphs := make([]string, 0, len(ramp))
	for _, r := range ramp {
		glyphs = append(glyphs, string(r))
	}
	return glyphs
}

// Quantize implements Quantizer.
func (q ASCIILuma) Quantize(s *Sampler, cx, cy int, sc *Scratch) (Result, bool) {
	drawMask, imgMask := sc.sample6(s, cx, cy)
	mask := sc.composite6(drawMask, imgMask)
	if mask == 0 {
		return Result{}, false
	}
	ramp := q.ramp
	if len(ramp) == 0 {
		ramp = defaultLuma
	}
	fg := average(&sc.comp, mask)
	ch := ramp[fg.Luma()*len(ramp)/256]
	if ch == " " {
		return Result{}, false
	}
	return Result{Char: ch, Fg: fg}, true
}
