package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/dshills/pixstorm/internal/cache"
	"github.com/dshills/pixstorm/internal/capability"
)

// ITerm2Options configures the iTerm2 encoder.
type ITerm2Options struct {
	// MultipartThreshold switches to MultipartFile transfer when the
	// encoded image exceeds this many bytes. Zero disables multipart.
	MultipartThreshold int
	// ChunkSize is the base64 size of one FilePart. Default 1 MiB.
	ChunkSize int
}

// ITerm2Encoder encodes frames as iTerm2 inline images. The display size
// is given in device pixels so the image keeps its exact aspect ratio.
type ITerm2Encoder struct {
	opts  ITerm2Options
	cache *cache.LRU[cacheKey, []byte]
	png   png.Encoder
}

// NewITerm2Encoder creates an iTerm2 encoder with a payload cache of
// cacheSize entries.
func NewITerm2Encoder(opts ITerm2Options, cacheSize int) *ITerm2Encoder {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1 << 20
	}
	return &ITerm2Encoder{
		opts:  opts,
		cache: cache.New[cacheKey, []byte]("iterm2", cacheSize),
		png:   png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Protocol implements Encoder.
func (e *ITerm2Encoder) Protocol() Protocol { return ITerm2 }

// CacheStats returns payload cache statistics.
func (e *ITerm2Encoder) CacheStats() cache.Stats { return e.cache.Stats() }

// Encode implements Encoder.
func (e *ITerm2Encoder) Encode(f *Frame, caps capability.Capabilities) (Output, error) {
	cw, ch := caps.CellSize()
	pxW := f.Bounds.Width() * cw
	pxH := f.Bounds.Height() * ch

	key := newCacheKey(f, struct {
		Opts ITerm2Options
		PxW  int
		PxH  int
	}{e.opts, pxW, pxH})
	if payload, ok := e.cache.Get(key); ok {
		return Output{Protocol: ITerm2, Payload: payload, Bounds: f.Bounds, FromCache: true}, nil
	}

	var img bytes.Buffer
	if err := e.png.Encode(&img, f.Image); err != nil {
		return Output{}, fmt.Errorf("iterm2 encode: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(img.Bytes())
	args := fmt.Sprintf("inline=1;size=%d;width=%dpx;height=%dpx;preserveAspectRatio=0",
		img.Len(), pxW, pxH)

	var buf bytes.Buffer
	buf.Grow(len(b64) + 128)
	buf.WriteString(position(f.Bounds))
	if e.opts.MultipartThreshold > 0 && img.Len() > e.opts.MultipartThreshold {
		buf.WriteString("\x1b]1337;MultipartFile=" + args + "\a")
		for i := 0; i < len(b64); i += e.opts.ChunkSize {
			end := min(i+e.opts.ChunkSize, len(b64))
			buf.WriteString("\x1b]1337;FilePart=")
			buf.WriteString(b64[i:end])
			buf.WriteByte('\a')
		}
		buf.WriteString("\x1b]1337;FileEnd\a")
	} else {
		buf.WriteString("\x1b]1337;File=" + args + ":")
		buf.WriteString(b64)
		buf.WriteByte('\a')
	}

	payload := buf.Bytes()
	e.cache.Add(key, payload)
	return Output{Protocol: ITerm2, Payload: payload, Bounds: f.Bounds}, nil
}

// Reset forgets cached payloads.
func (e *ITerm2Encoder) Reset() {
	e.cache.Purge()
}
