// Package imageio decodes raster images into the pixel form the renderer
// consumes and loads them from files or URLs off the render thread.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/dshills/pixstorm/internal/renderer/canvas"
)

// MaxFileSize is the largest encoded image accepted.
const MaxFileSize = 32 << 20

var (
	// ErrUnsupportedFormat is returned for data no registered decoder
	// recognises.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrTooLarge is returned for inputs above MaxFileSize.
	ErrTooLarge = errors.New("image too large")
)

// Image is a decoded raster in row-major, interleaved 8-bit channels.
type Image struct {
	Width, Height int
	// Pix holds Width*Height*BytesPerPixel bytes, non-premultiplied.
	Pix           []uint8
	BytesPerPixel int
	// Format is the decoder name, e.g. "png" or "webp".
	Format string
}

// Decode decodes PNG, JPEG, GIF (first frame), WebP or BMP data into a
// 4-byte-per-pixel RGBA image.
func Decode(data []byte) (*Image, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(MaxFileSize))
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	b := src.Bounds()
	nrgba, ok := src.(*image.NRGBA)
	if !ok || nrgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Rect, src, b.Min, draw.Src)
	}
	return &Image{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Pix:           nrgba.Pix,
		BytesPerPixel: 4,
		Format:        format,
	}, nil
}

// NRGBA wraps the pixels without copying.
func (im *Image) NRGBA() *image.NRGBA {
	if im.BytesPerPixel == 4 {
		return &image.NRGBA{
			Pix:    im.Pix,
			Stride: im.Width * 4,
			Rect:   image.Rect(0, 0, im.Width, im.Height),
		}
	}
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for i, o := 0, 0; i+im.BytesPerPixel <= len(im.Pix) && o+3 < len(out.Pix); i, o = i+im.BytesPerPixel, o+4 {
		switch im.BytesPerPixel {
		case 1:
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = im.Pix[i], im.Pix[i], im.Pix[i], 0xFF
		case 3:
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = im.Pix[i], im.Pix[i+1], im.Pix[i+2], 0xFF
		}
	}
	return out
}

// ToLayer fits the image into the image layer of d, letterboxed and
// centred. A nil image clears the layer.
func (im *Image) ToLayer(d *canvas.RenderData) {
	if im == nil {
		d.ClearImage()
		return
	}
	d.DrawImage(im.NRGBA())
}
