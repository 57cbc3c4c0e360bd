// Package canvas holds the per-frame pixel layers the renderer quantizes.
package canvas

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/dshills/pixstorm/internal/renderer/core"
)

// Base sampling resolution of one terminal cell at Scale 1.
const (
	CellPixelsX = 2
	CellPixelsY = 3
)

// RenderData is the frame view handed to the renderer: two equal-sized
// layers of packed RGBA pixels. A Transparent pixel means "no content".
//
// Layers are stored at Scale times the base 2x3-per-cell resolution.
type RenderData struct {
	Width, Height int

	Drawing []core.Color
	Image   []core.Color

	Scale int

	TermWidth, TermHeight int

	// Background is painted under transparent cells when set.
	Background core.Color

	// Foreground is the default drawing color. When set, samples of
	// exactly this color count as unset in the sextant and ASCII pattern
	// modes and render as background.
	Foreground core.Color
}

// New allocates layers for a terminal region of termWidth x termHeight
// cells. Scale values below 1 are treated as 1.
func New(termWidth, termHeight, scale int) *RenderData {
	scale = max(scale, 1)
	termWidth, termHeight = max(termWidth, 0), max(termHeight, 0)
	w := termWidth * CellPixelsX * scale
	h := termHeight * CellPixelsY * scale
	return &RenderData{
		Width:      w,
		Height:     h,
		Drawing:    make([]core.Color, w*h),
		Image:      make([]core.Color, w*h),
		Scale:      scale,
		TermWidth:  termWidth,
		TermHeight: termHeight,
	}
}

// InBounds reports whether (x, y) is a valid pixel.
func (d *RenderData) InBounds(x, y int) bool {
	return x >= 0 && x < d.Width && y >= 0 && y < d.Height
}

// SetPixel writes to the drawing layer. Out-of-range writes are ignored.
func (d *RenderData) SetPixel(x, y int, c core.Color) {
	if d.InBounds(x, y) {
		d.Drawing[y*d.Width+x] = c
	}
}

// SetImagePixel writes to the image layer. Out-of-range writes are ignored.
func (d *RenderData) SetImagePixel(x, y int, c core.Color) {
	if d.InBounds(x, y) && d.Image != nil {
		d.Image[y*d.Width+x] = c
	}
}

// Layers returns the drawing and image pixel at (x, y).
func (d *RenderData) Layers(x, y int) (drawing, img core.Color) {
	if !d.InBounds(x, y) {
		return core.Transparent, core.Transparent
	}
	i := y*d.Width + x
	drawing = d.Drawing[i]
	if d.Image != nil {
		img = d.Image[i]
	}
	return drawing, img
}

// At returns the composited pixel at (x, y); drawing wins where opaque.
func (d *RenderData) At(x, y int) core.Color {
	drawing, img := d.Layers(x, y)
	if !drawing.IsTransparent() {
		return drawing
	}
	return img
}

// ClearDrawing resets the drawing layer to transparent.
func (d *RenderData) ClearDrawing() {
	clear(d.Drawing)
}

// ClearImage resets the image layer to transparent.
func (d *RenderData) ClearImage() {
	clear(d.Image)
}

// Composite merges the layers into dst (reallocated when too small).
func (d *RenderData) Composite(dst []core.Color) []core.Color {
	n := d.Width * d.Height
	if cap(dst) < n {
		dst = make([]core.Color, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		c := d.Drawing[i]
		if c.IsTransparent() && d.Image != nil {
			c = d.Image[i]
		}
		dst[i] = c
	}
	return dst
}

// CompositeNRGBA merges the layers into an interleaved, non-premultiplied
// 8-bit RGBA image, reusing dst when it has the right size.
func (d *RenderData) CompositeNRGBA(dst *image.NRGBA) *image.NRGBA {
	if dst == nil || dst.Rect.Dx() != d.Width || dst.Rect.Dy() != d.Height {
		dst = image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	}
	for y := 0; y < d.Height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < d.Width; x++ {
			c := d.At(x, y)
			o := x * 4
			row[o] = c.R()
			row[o+1] = c.G()
			row[o+2] = c.B()
			row[o+3] = c.A()
		}
	}
	return dst
}

// HasContent reports whether an interleaved RGBA buffer holds any pixel
// that is neither transparent nor equal to bg.
func HasContent(pix []uint8, bg core.Color) bool {
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] == 0 {
			continue
		}
		if bg.IsDefault() || core.RGBA(pix[i], pix[i+1], pix[i+2], pix[i+3]) != bg {
			return true
		}
	}
	return false
}

// DrawImage fits img into the image layer, preserving aspect ratio and
// centering it. Pixels outside the fitted area become transparent.
func (d *RenderData) DrawImage(img image.Image) {
	d.ClearImage()
	if img == nil || d.Width == 0 || d.Height == 0 {
		return
	}
	sb := img.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}

	// Layer pixels are not square: a cell is CellPixelsX wide and
	// CellPixelsY tall but roughly 1:2 on screen.
	const pixelAspect = (1.0 / CellPixelsX) / (2.0 / CellPixelsY)
	srcW := float64(sb.Dx()) / pixelAspect
	srcH := float64(sb.Dy())
	scale := min(float64(d.Width)/srcW, float64(d.Height)/srcH)
	w := max(int(srcW*scale), 1)
	h := max(int(srcH*scale), 1)
	ox := (d.Width - w) / 2
	oy := (d.Height - h) / 2

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*dst.Stride + x*4
			c := core.RGBA(dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3])
			d.SetImagePixel(ox+x, oy+y, c)
		}
	}
}

// ColorModel converts any color.Color to a packed core.Color.
func ColorModel(c color.Color) core.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return core.RGBA(n.R, n.G, n.B, n.A)
}
