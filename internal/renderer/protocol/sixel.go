package protocol

import (
	"bytes"
	"image"
	"image/color"
	"strconv"

	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"

	"github.com/dshills/pixstorm/internal/cache"
	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/renderer/core"
	"github.com/dshills/pixstorm/internal/renderer/dither"
)

// Sixel escape framing.
const (
	sixelIntroducer  = "\x1bP"
	sixelParams      = "0;1;8q" // aspect; transparent background; grid
	stringTerminator = "\x1b\\"
	sixelOffset      = 63
)

// MaxSixelColors stays below 256 because several terminals drop the last
// register of a full 256-entry palette.
const MaxSixelColors = 255

// SixelHeight floors a pixel height to the six-row sixel band so the image
// never bleeds into the row below its region.
func SixelHeight(h int) int {
	return h - h%6
}

// SixelOptions configures the sixel encoder.
type SixelOptions struct {
	// Colors is the palette size, capped at MaxSixelColors.
	Colors int
	// Dither runs after scaling to device pixels.
	Dither dither.Options
}

// SixelEncoder encodes frames as DEC sixel graphics.
type SixelEncoder struct {
	opts     SixelOptions
	palettes *cache.LRU[uint64, color.Palette]
	ditherer *dither.Ditherer
	scaled   *image.NRGBA
}

// NewSixelEncoder creates a sixel encoder whose palette cache holds
// paletteCache entries.
func NewSixelEncoder(opts SixelOptions, paletteCache int) *SixelEncoder {
	if opts.Colors <= 1 || opts.Colors > MaxSixelColors {
		opts.Colors = MaxSixelColors
	}
	return &SixelEncoder{
		opts:     opts,
		palettes: cache.New[uint64, color.Palette]("sixel-palette", paletteCache),
		ditherer: dither.New(opts.Dither),
	}
}

// Protocol implements Encoder.
func (e *SixelEncoder) Protocol() Protocol { return Sixel }

// CacheStats returns palette cache statistics.
func (e *SixelEncoder) CacheStats() cache.Stats {
	return e.palettes.Stats()
}

// Encode implements Encoder.
func (e *SixelEncoder) Encode(f *Frame, caps capability.Capabilities) (Output, error) {
	cw, ch := caps.CellSize()
	cols, rows := f.Bounds.Width(), f.Bounds.Height()
	width := cols * cw
	height := SixelHeight(rows * ch)
	if width <= 0 || height <= 0 {
		return Output{}, ErrNothingToDraw
	}

	img := e.scale(f.Image, width, height)
	if e.opts.Dither.Method != dither.None {
		copy(img.Pix, e.ditherer.Dither(img.Pix, width, height))
	}

	key := hashPixels(img)
	pal, ok := e.palettes.Get(key)
	if !ok {
		pal = median.Quantizer(e.opts.Colors - 1).Quantize(make(color.Palette, 0, e.opts.Colors-1), img)
		e.palettes.Add(key, pal)
	}
	if len(pal) == 0 {
		return Output{}, ErrNothingToDraw
	}
	paletted := image.NewPaletted(img.Rect, pal)
	draw.Draw(paletted, paletted.Rect, img, image.Point{}, draw.Src)

	var buf bytes.Buffer
	buf.Grow(width * height / 2)
	buf.WriteString(position(f.Bounds))
	writeSixel(&buf, img, paletted)

	covered := (height + ch - 1) / ch
	return Output{
		Protocol: Sixel,
		Payload:  buf.Bytes(),
		Bounds:   core.RectFromSize(f.Bounds.Left, f.Bounds.Top, cols, covered),
	}, nil
}

// scale resizes src to width x height with nearest-neighbour sampling,
// reusing the encoder's buffer.
func (e *SixelEncoder) scale(src *image.NRGBA, width, height int) *image.NRGBA {
	if e.scaled == nil || e.scaled.Rect.Dx() != width || e.scaled.Rect.Dy() != height {
		e.scaled = image.NewNRGBA(image.Rect(0, 0, width, height))
	}
	draw.NearestNeighbor.Scale(e.scaled, e.scaled.Rect, src, src.Rect, draw.Src, nil)
	return e.scaled
}

// writeSixel writes the sixel data of a paletted image. Register n+1
// holds palette entry n; pixels with alpha below 128 stay unset.
func writeSixel(buf *bytes.Buffer, img *image.NRGBA, paletted *image.Paletted) {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	nc := len(paletted.Palette) + 1

	buf.WriteString(sixelIntroducer + sixelParams)
	buf.WriteString(`"1;1;`)
	buf.WriteString(strconv.Itoa(width))
	buf.WriteByte(';')
	buf.WriteString(strconv.Itoa(height))

	for n, v := range paletted.Palette {
		r, g, b, _ := v.RGBA()
		buf.WriteByte('#')
		buf.WriteString(strconv.Itoa(n + 1))
		buf.WriteString(";2;")
		buf.WriteString(strconv.Itoa(int((r*100 + 0x7FFF) / 0xFFFF)))
		buf.WriteByte(';')
		buf.WriteString(strconv.Itoa(int((g*100 + 0x7FFF) / 0xFFFF)))
		buf.WriteByte(';')
		buf.WriteString(strconv.Itoa(int((b*100 + 0x7FFF) / 0xFFFF)))
	}

	bits := make([]byte, width*nc)
	used := make([]bool, nc)
	for band := 0; band < (height+5)/6; band++ {
		if band > 0 {
			buf.WriteByte('-')
		}
		for p := 0; p < 6; p++ {
			y := band*6 + p
			if y >= height {
				break
			}
			row := img.Pix[y*img.Stride:]
			for x := 0; x < width; x++ {
				if row[x*4+3] < 128 {
					continue
				}
				idx := int(paletted.ColorIndexAt(x, y)) + 1
				used[idx] = true
				bits[width*idx+x] |= 1 << uint(p)
			}
		}

		first := true
		for n := 1; n < nc; n++ {
			if !used[n] {
				continue
			}
			used[n] = false
			if !first {
				buf.WriteByte('$')
			}
			first = false
			buf.WriteByte('#')
			buf.WriteString(strconv.Itoa(n))

			line := bits[width*n : width*(n+1)]
			run := 0
			prev := byte(0xFF)
			for x, c := range line {
				line[x] = 0
				if c == prev {
					run++
					continue
				}
				if run > 0 {
					writeSixelRun(buf, prev, run)
				}
				prev, run = c, 1
			}
			// Trailing empty columns need not be sent.
			if run > 0 && prev != 0 {
				writeSixelRun(buf, prev, run)
			}
		}
	}
	buf.WriteString(stringTerminator)
}

// writeSixelRun writes count copies of a sixel, run-length encoded when
// that is shorter.
func writeSixelRun(buf *bytes.Buffer, bits byte, count int) {
	s := sixelOffset + bits
	if count <= 3 {
		for i := 0; i < count; i++ {
			buf.WriteByte(s)
		}
		return
	}
	buf.WriteByte('!')
	buf.WriteString(strconv.Itoa(count))
	buf.WriteByte(s)
}
