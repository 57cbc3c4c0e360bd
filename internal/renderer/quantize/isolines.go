package quantize

import (
	"math"
	"slices"

	"github.com/dshills/pixstorm/internal/renderer/core"
)

// Channel selects the scalar sampled for contouring.
type Channel uint8

const (
	ChannelLightness Channel = iota // CIE L*
	ChannelLuma
	ChannelRed
	ChannelGreen
	ChannelBlue
	ChannelAlpha
)

// ThresholdMode selects how isovalues are generated.
type ThresholdMode uint8

const (
	ThresholdEqual ThresholdMode = iota
	ThresholdQuantile
	ThresholdExplicit
)

// FillMode selects the background of the filled isolines variant.
type FillMode uint8

const (
	FillNone   FillMode = iota
	FillMean            // mean color of the band
	FillSample          // pixel under the cell center
	FillGray            // grayscale ramp of the scalar
)

// isoGlyphs maps a marching-squares case (tl=8, tr=4, br=2, bl=1) to its
// line glyph. Cases 0 and 15 have no crossing.
var isoGlyphs = [16]string{
	"", "╮", "╭", "─", "╰", "╱", "│", "╯",
	"╯", "│", "╲", "╰", "─", "╭", "╮", "",
}

// IsoGlyph returns the glyph for a marching-squares case, or "" when the
// case has no crossing.
func IsoGlyph(c uint8) string {
	return isoGlyphs[c&15]
}

// Isolines renders contour lines of a scalar field derived from the
// frame. It keeps per-frame state and must not be shared between
// concurrent renders.
type Isolines struct {
	Channel Channel

	// SubSample is the number of grid steps per cell edge. Default 2.
	SubSample int
	// Radius is the half-size in pixels of the neighborhood averaged
	// into each grid point. Default 1.
	Radius int

	Mode   ThresholdMode
	Levels int       // default 4
	Values []float64 // explicit isovalues in [0, 1]

	LineColor core.Color
	Fill      FillMode

	gw, gh     int
	field      []float64
	valid      []bool
	colors     []core.Color
	thresholds []float64
	bands      []core.Color
	lo, hi     float64
}

func (q *Isolines) factor() int {
	if q.SubSample < 1 {
		return 2
	}
	return q.SubSample
}

// Thresholds returns the isovalues computed by the last Prepare.
func (q *Isolines) Thresholds() []float64 {
	return q.thresholds
}

// Prepare samples the scalar field and computes thresholds for a frame.
func (q *Isolines) Prepare(s *Sampler) {
	f := q.factor()
	radius := q.Radius
	if radius <= 0 {
		radius = 1
	}
	q.gw = s.TermWidth*f + 1
	q.gh = s.TermHeight*f + 1
	n := q.gw * q.gh
	q.field = resize(q.field, n)
	q.valid = resize(q.valid, n)
	q.colors = resize(q.colors, n)

	q.lo, q.hi = math.Inf(1), math.Inf(-1)
	for gy := 0; gy < q.gh; gy++ {
		py := min(gy*s.Height/(s.TermHeight*f), s.Height-1)
		for gx := 0; gx < q.gw; gx++ {
			px := min(gx*s.Width/(s.TermWidth*f), s.Width-1)
			i := gy*q.gw + gx
			v, c, ok := q.area(s, px, py, radius)
			q.field[i], q.colors[i], q.valid[i] = v, c, ok
			if ok {
				q.lo = math.Min(q.lo, v)
				q.hi = math.Max(q.hi, v)
			}
		}
	}
	q.computeThresholds()
	if q.Fill == FillMean {
		q.computeBands()
	}
}

// area averages the scalar and color over opaque pixels around (px, py).
func (q *Isolines) area(s *Sampler, px, py, radius int) (float64, core.Color, bool) {
	var sum float64
	var r, g, b, n int
	for y := max(py-radius, 0); y <= min(py+radius, s.Height-1); y++ {
		for x := max(px-radius, 0); x <= min(px+radius, s.Width-1); x++ {
			c := s.at(x, y)
			if c.IsTransparent() {
				continue
			}
			sum += q.scalar(c)
			r += int(c.R())
			g += int(c.G())
			b += int(c.B())
			n++
		}
	}
	if n == 0 {
		return 0, core.Transparent, false
	}
	return sum / float64(n), core.RGB(uint8(r/n), uint8(g/n), uint8(b/n)), true
}

func (q *Isolines) scalar(c core.Color) float64 {
	switch q.Channel {
	case ChannelLuma:
		return float64(c.Luma()) / 255
	case ChannelRed:
		return float64(c.R()) / 255
	case ChannelGreen:
		return float64(c.G()) / 255
	case ChannelBlue:
		return float64(c.B()) / 255
	case ChannelAlpha:
		return float64(c.A()) / 255
	default:
		l, _, _ := c.Colorful().Lab()
		return l
	}
}

func (q *Isolines) computeThresholds() {
	q.thresholds = q.thresholds[:0]
	if q.Mode == ThresholdExplicit {
		q.thresholds = append(q.thresholds, q.Values...)
		return
	}
	if q.lo >= q.hi {
		return
	}
	levels := q.Levels
	if levels <= 0 {
		levels = 4
	}

	if q.Mode == ThresholdQuantile {
		var vals []float64
		for i, ok := range q.valid {
			if ok {
				vals = append(vals, q.field[i])
			}
		}
		slices.Sort(vals)
		for i := 1; i <= levels; i++ {
			t := vals[i*(len(vals)-1)/(levels+1)]
			if len(q.thresholds) == 0 || t > q.thresholds[len(q.thresholds)-1] {
				q.thresholds = append(q.thresholds, t)
			}
		}
		return
	}

	step := (q.hi - q.lo) / float64(levels+1)
	for i := 1; i <= levels; i++ {
		q.thresholds = append(q.thresholds, q.lo+step*float64(i))
	}
}

// band returns how many thresholds v reaches.
func (q *Isolines) band(v float64) int {
	n := 0
	for _, t := range q.thresholds {
		if v >= t {
			n++
		}
	}
	return n
}

func (q *Isolines) computeBands() {
	nb := len(q.thresholds) + 1
	type acc struct{ r, g, b, n int }
	sums := make([]acc, nb)
	for i, ok := range q.valid {
		if !ok {
			continue
		}
		a := &sums[q.band(q.field[i])]
		c := q.colors[i]
		a.r += int(c.R())
		a.g += int(c.G())
		a.b += int(c.B())
		a.n++
	}
	q.bands = resize(q.bands, nb)
	for i, a := range sums {
		if a.n == 0 {
			q.bands[i] = core.ColorDefault
			continue
		}
		q.bands[i] = core.RGB(uint8(a.r/a.n), uint8(a.g/a.n), uint8(a.b/a.n))
	}
}

// Quantize implements Quantizer. Prepare must run first for the frame.
func (q *Isolines) Quantize(s *Sampler, cx, cy int, _ *Scratch) (Result, bool) {
	f := q.factor()
	x0, y0 := cx*f, cy*f
	x1, y1 := x0+f, y0+f
	if x1 >= q.gw || y1 >= q.gh {
		return Result{}, false
	}
	corners := [4]int{
		y0*q.gw + x0, // tl
		y0*q.gw + x1, // tr
		y1*q.gw + x1, // br
		y1*q.gw + x0, // bl
	}
	seen := false
	var v [4]float64
	for i, idx := range corners {
		if q.valid[idx] {
			seen = true
			v[i] = q.field[idx]
		} else {
			v[i] = math.Inf(-1)
		}
	}
	if !seen {
		return Result{}, false
	}

	glyph := ""
	for _, t := range q.thresholds {
		var c uint8
		for i, x := range v {
			if x >= t {
				c |= 8 >> i
			}
		}
		if g := isoGlyphs[c]; g != "" {
			glyph = g
		}
	}

	if q.Fill == FillNone {
		if glyph == "" {
			return Result{}, false
		}
		return Result{Char: glyph, Fg: q.LineColor}, true
	}
	if glyph == "" {
		glyph = " "
	}
	return Result{Char: glyph, Fg: q.LineColor, Bg: q.fill(s, cx, cy, x0+f/2, y0+f/2)}, true
}

func (q *Isolines) fill(s *Sampler, cx, cy, gx, gy int) core.Color {
	switch q.Fill {
	case FillSample:
		c := s.at(s.pos(cx, cy, 0, 0, 1, 1))
		if c.IsTransparent() {
			return core.ColorDefault
		}
		return c.Opaque()
	case FillMean, FillGray:
		i := gy*q.gw + gx
		if !q.valid[i] {
			return core.ColorDefault
		}
		v := q.field[i]
		if q.Fill == FillMean {
			return q.bands[q.band(v)]
		}
		norm := 0.0
		if q.hi > q.lo {
			norm = (v - q.lo) / (q.hi - q.lo)
		}
		g := uint8(math.Round(math.Max(0, math.Min(1, norm)) * 255))
		return core.RGB(g, g, g)
	}
	return core.ColorDefault
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	s = s[:n]
	clear(s)
	return s
}
