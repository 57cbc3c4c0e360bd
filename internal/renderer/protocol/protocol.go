// Package protocol encodes composited frames as terminal graphics
// escape sequences: DEC sixel, the kitty graphics protocol and iTerm2
// inline images.
package protocol

import (
	"errors"
	"fmt"
	"image"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

// Protocol identifies a terminal graphics protocol.
type Protocol uint8

const (
	Sixel Protocol = iota
	Kitty
	ITerm2
)

func (p Protocol) String() string {
	switch p {
	case Sixel:
		return "sixel"
	case Kitty:
		return "kitty"
	case ITerm2:
		return "iterm2"
	}
	return fmt.Sprintf("Protocol(%d)", p)
}

// Supported reports whether caps advertises p.
func (p Protocol) Supported(caps capability.Capabilities) bool {
	switch p {
	case Sixel:
		return caps.Sixel
	case Kitty:
		return caps.Kitty
	case ITerm2:
		return caps.ITerm2
	}
	return false
}

var (
	// ErrCapabilityUnsupported means the terminal lacks the protocol.
	ErrCapabilityUnsupported = errors.New("graphics protocol not supported by terminal")
	// ErrNothingToDraw means the frame has no visible content.
	ErrNothingToDraw = errors.New("nothing to draw")
)

// Output is an encoded payload ready to be written to the terminal.
type Output struct {
	Protocol Protocol
	// Payload is positioned with a cursor-addressing escape.
	Payload []byte
	// Bounds is the terminal region the image actually covers.
	Bounds core.ScreenRect
	// FromCache is set when the payload was encoded for an identical
	// earlier frame that is already on screen.
	FromCache bool
}

// Encoder turns a prepared frame into a protocol payload.
type Encoder interface {
	Protocol() Protocol
	Encode(f *Frame, caps capability.Capabilities) (Output, error)
}

// Frame is the composited pixel data of the cells an image will cover.
type Frame struct {
	Image      *image.NRGBA
	Bounds     core.ScreenRect
	Background core.Color

	hash    uint64
	hashSet bool
}

// Hash returns the xxhash64 of the frame pixels.
func (f *Frame) Hash() uint64 {
	if !f.hashSet {
		f.hash = hashPixels(f.Image)
		f.hashSet = true
	}
	return f.hash
}

func hashPixels(img *image.NRGBA) uint64 {
	d := xxhash.New()
	w := img.Rect.Dx() * 4
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, y)
		_, _ = d.Write(img.Pix[off : off+w])
	}
	return d.Sum64()
}

// Prepare runs the steps shared by every encoder: it checks protocol
// support, composites the layers (or adopts the dithered copy), bails out
// on frames without content and computes the covered cell region. A region
// touching the right edge of the terminal loses its last column, which
// some terminals would otherwise scroll.
func Prepare(p Protocol, caps capability.Capabilities, bounds core.ScreenRect, data *canvas.RenderData, dithered []uint8) (*Frame, error) {
	if !p.Supported(caps) {
		return nil, fmt.Errorf("%s: %w", p, ErrCapabilityUnsupported)
	}
	if data == nil || data.Width == 0 || data.Height == 0 {
		return nil, ErrNothingToDraw
	}

	var img *image.NRGBA
	if len(dithered) >= data.Width*data.Height*4 {
		img = &image.NRGBA{
			Pix:    dithered[:data.Width*data.Height*4],
			Stride: data.Width * 4,
			Rect:   image.Rect(0, 0, data.Width, data.Height),
		}
	} else {
		img = data.CompositeNRGBA(nil)
	}
	if !canvas.HasContent(img.Pix, data.Background) {
		return nil, ErrNothingToDraw
	}

	cols := min(bounds.Width(), data.TermWidth)
	rows := min(bounds.Height(), data.TermHeight)
	if caps.Columns > 0 && bounds.Left+cols >= caps.Columns {
		cols = min(cols, caps.Columns-bounds.Left-1)
	}
	if cols <= 0 || rows <= 0 {
		return nil, ErrNothingToDraw
	}

	pw := cols * data.Width / data.TermWidth
	ph := rows * data.Height / data.TermHeight
	if pw < data.Width || ph < data.Height {
		img = img.SubImage(image.Rect(0, 0, pw, ph)).(*image.NRGBA)
	}
	return &Frame{
		Image:      img,
		Bounds:     core.RectFromSize(bounds.Left, bounds.Top, cols, rows),
		Background: data.Background,
	}, nil
}

// cacheKey identifies an encoded payload.
type cacheKey struct {
	content uint64
	bounds  core.ScreenRect
	options uint64
}

func newCacheKey(f *Frame, opts any) cacheKey {
	oh, err := hashstructure.Hash(opts, hashstructure.FormatV2, nil)
	if err != nil {
		oh = 0
	}
	return cacheKey{content: f.Hash(), bounds: f.Bounds, options: oh}
}

// position returns the escape that moves the cursor to a cell.
func position(r core.ScreenRect) string {
	return ansi.CursorPosition(r.Left+1, r.Top+1)
}
