// Package quantize turns blocks of pixels into terminal cells.
//
// Every quantizer samples a fixed grid of points per cell, merges the
// drawing and image layers (drawing wins where both are opaque) and emits
// one glyph with a foreground and background color. A cell whose samples
// are all transparent is never written.
package quantize

import (
	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

// Result is the glyph and colors chosen for one cell.
// A ColorDefault color leaves the caller's style in place.
type Result struct {
	Char string
	Fg   core.Color
	Bg   core.Color
}

// Quantizer converts the pixels under one terminal cell into a Result.
// It returns false when the cell must not be written.
type Quantizer interface {
	Quantize(s *Sampler, cx, cy int, sc *Scratch) (Result, bool)
}

// Preparer is implemented by quantizers that need a whole-frame pass
// before per-cell quantization.
type Preparer interface {
	Prepare(s *Sampler)
}

// Sampler reads pixels of one frame at cell-relative sample positions.
type Sampler struct {
	Width, Height         int
	TermWidth, TermHeight int

	Drawing []core.Color
	Image   []core.Color

	// Dithered, when set, is an interleaved RGBA copy of the composited
	// frame that replaces both layers.
	Dithered []uint8

	Background core.Color

	// Foreground, when set, is the default foreground; samples equal to
	// it are not "on".
	Foreground core.Color
}

// NewSampler creates a sampler over a frame. dithered may be nil.
func NewSampler(d *canvas.RenderData, dithered []uint8) *Sampler {
	s := &Sampler{
		Width:      d.Width,
		Height:     d.Height,
		TermWidth:  d.TermWidth,
		TermHeight: d.TermHeight,
		Drawing:    d.Drawing,
		Image:      d.Image,
		Background: d.Background,
		Foreground: d.Foreground,
	}
	if len(dithered) >= d.Width*d.Height*4 {
		s.Dithered = dithered
	}
	return s
}

// pos maps sample (sx, sy) of a cols x rows grid inside cell (cx, cy) to
// the pixel at the center of that sample's area.
func (s *Sampler) pos(cx, cy, sx, sy, cols, rows int) (int, int) {
	gx := cx*cols + sx
	gy := cy*rows + sy
	gw := s.TermWidth * cols
	gh := s.TermHeight * rows
	px := (gx*s.Width + s.Width/2) / gw
	py := (gy*s.Height + s.Height/2) / gh
	return min(px, s.Width-1), min(py, s.Height-1)
}

// layers returns the drawing and image pixel at (px, py).
func (s *Sampler) layers(px, py int) (drawing, img core.Color) {
	if px < 0 || py < 0 || px >= s.Width || py >= s.Height {
		return core.Transparent, core.Transparent
	}
	i := py*s.Width + px
	if s.Dithered != nil {
		o := i * 4
		p := s.Dithered[o : o+4 : o+4]
		return core.RGBA(p[0], p[1], p[2], p[3]), core.Transparent
	}
	drawing = s.Drawing[i]
	if s.Image != nil {
		img = s.Image[i]
	}
	return drawing, img
}

// at returns the composited pixel at (px, py).
func (s *Sampler) at(px, py int) core.Color {
	d, img := s.layers(px, py)
	if !d.IsTransparent() {
		return d
	}
	return img
}

// Scratch holds per-cell working arrays reused across every cell of a
// render call so quantization never allocates.
type Scratch struct {
	drawing [6]core.Color
	image   [6]core.Color
	comp    [6]core.Color
	luma    [6]int
}

// sample6 fills the scratch arrays with the 2x3 samples of a cell in
// order top-left, top-right, middle-left, middle-right, bottom-left,
// bottom-right, and returns the on-masks of both layers (bit 5 is the
// first sample, bit 0 the last). Samples that are not on are stored as
// transparent so composite6 falls through to the other layer.
func (sc *Scratch) sample6(s *Sampler, cx, cy int) (drawMask, imgMask uint8) {
	for i := 0; i < 6; i++ {
		px, py := s.pos(cx, cy, i%2, i/2, 2, 3)
		d, img := s.layers(px, py)
		sc.drawing[i], sc.image[i] = core.Transparent, core.Transparent
		bit := uint8(1) << (5 - i)
		if s.on(d) {
			sc.drawing[i] = d
			drawMask |= bit
		}
		if s.on(img) {
			sc.image[i] = img
			imgMask |= bit
		}
	}
	return drawMask, imgMask
}

// on reports whether a sample is set: opaque and not the default
// foreground.
func (s *Sampler) on(c core.Color) bool {
	if c.IsTransparent() {
		return false
	}
	return s.Foreground.IsDefault() || c != s.Foreground
}

// composite6 merges the sampled layers into sc.comp and returns the mask
// of opaque samples.
func (sc *Scratch) composite6(drawMask, imgMask uint8) uint8 {
	for i := 0; i < 6; i++ {
		if drawMask&(1<<(5-i)) != 0 {
			sc.comp[i] = sc.drawing[i]
		} else {
			sc.comp[i] = sc.image[i]
		}
	}
	return drawMask | imgMask
}

// average returns the mean color of the samples whose bit is set in mask.
func average(samples *[6]core.Color, mask uint8) core.Color {
	var r, g, b, n int
	for i := 0; i < 6; i++ {
		if mask&(1<<(5-i)) == 0 {
			continue
		}
		c := samples[i]
		r += int(c.R())
		g += int(c.G())
		b += int(c.B())
		n++
	}
	if n == 0 {
		return core.ColorDefault
	}
	return core.RGB(uint8(r/n), uint8(g/n), uint8(b/n))
}

// Render quantizes every cell of the frame that falls inside bounds and
// writes it to buf. style supplies attributes and fallback colors. It
// returns the number of cells written.
func Render(buf *buffer.TerminalBuffer, bounds core.ScreenRect, q Quantizer, s *Sampler, sc *Scratch, style core.Style) int {
	if s.Width == 0 || s.Height == 0 || s.TermWidth == 0 || s.TermHeight == 0 {
		return 0
	}
	if p, ok := q.(Preparer); ok {
		p.Prepare(s)
	}
	if sc == nil {
		sc = &Scratch{}
	}

	cols := min(bounds.Width(), s.TermWidth)
	rows := min(bounds.Height(), s.TermHeight)
	bg := style.Background
	if !s.Background.IsDefault() {
		bg = s.Background
	}

	written := 0
	cell := core.Cell{Style: style}
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			res, ok := q.Quantize(s, cx, cy, sc)
			if !ok {
				if s.Background.IsDefault() {
					continue
				}
				res = Result{Char: " "}
			}
			cell.Char = res.Char
			cell.Style.Foreground = style.Foreground
			if !res.Fg.IsDefault() {
				cell.Style.Foreground = res.Fg
			}
			cell.Style.Background = bg
			if !res.Bg.IsDefault() {
				cell.Style.Background = res.Bg
			}
			buf.SetCell(bounds.Left+cx, bounds.Top+cy, cell)
			written++
		}
	}
	return written
}
