package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"

	"github.com/dshills/pixstorm/internal/cache"
	"github.com/dshills/pixstorm/internal/capability"
)

// KittyChunkSize is the largest base64 chunk allowed in one graphics
// command.
const KittyChunkSize = 4096

// KittyOptions configures the kitty encoder.
type KittyOptions struct {
	// Compress deflates the RGBA payload (o=z).
	Compress bool
	// ZIndex places the image relative to text.
	ZIndex int
}

// KittyEncoder encodes frames with the kitty graphics protocol. Every
// frame is transmitted under the same image and placement id so the
// terminal replaces the previous image in place.
type KittyEncoder struct {
	opts  KittyOptions
	id    uint32
	cache *cache.LRU[cacheKey, []byte]
	b64   []byte
}

// NewKittyEncoder creates a kitty encoder with a payload cache of
// cacheSize entries.
func NewKittyEncoder(opts KittyOptions, cacheSize int) *KittyEncoder {
	id := uuid.New().ID() & 0x7FFFFFFF
	if id == 0 {
		id = 1
	}
	return &KittyEncoder{
		opts:  opts,
		id:    id,
		cache: cache.New[cacheKey, []byte]("kitty", cacheSize),
	}
}

// Protocol implements Encoder.
func (e *KittyEncoder) Protocol() Protocol { return Kitty }

// ID returns the stable image id.
func (e *KittyEncoder) ID() uint32 { return e.id }

// CacheStats returns payload cache statistics.
func (e *KittyEncoder) CacheStats() cache.Stats { return e.cache.Stats() }

// Encode implements Encoder.
func (e *KittyEncoder) Encode(f *Frame, _ capability.Capabilities) (Output, error) {
	key := newCacheKey(f, e.opts)
	if payload, ok := e.cache.Get(key); ok {
		return Output{Protocol: Kitty, Payload: payload, Bounds: f.Bounds, FromCache: true}, nil
	}

	img := f.Image
	w, h := img.Rect.Dx(), img.Rect.Dy()
	raw := make([]byte, 0, w*h*4)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, y)
		raw = append(raw, img.Pix[off:off+w*4]...)
	}

	control := fmt.Sprintf("a=T,f=32,i=%d,p=1,s=%d,v=%d,c=%d,r=%d,C=1,q=2",
		e.id, w, h, f.Bounds.Width(), f.Bounds.Height())
	if e.opts.ZIndex != 0 {
		control += ",z=" + strconv.Itoa(e.opts.ZIndex)
	}
	if e.opts.Compress {
		var zb bytes.Buffer
		zw := zlib.NewWriter(&zb)
		if _, err := zw.Write(raw); err != nil {
			return Output{}, fmt.Errorf("kitty compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return Output{}, fmt.Errorf("kitty compress: %w", err)
		}
		raw = zb.Bytes()
		control += ",o=z"
	}

	n := base64.StdEncoding.EncodedLen(len(raw))
	if cap(e.b64) < n {
		e.b64 = make([]byte, n)
	}
	b64 := e.b64[:n]
	base64.StdEncoding.Encode(b64, raw)

	var buf bytes.Buffer
	buf.Grow(n + n/KittyChunkSize*16 + len(control) + 32)
	buf.WriteString(position(f.Bounds))
	writeKittyChunks(&buf, control, b64)

	payload := buf.Bytes()
	e.cache.Add(key, payload)
	return Output{Protocol: Kitty, Payload: payload, Bounds: f.Bounds}, nil
}

// writeKittyChunks splits b64 into KittyChunkSize commands. Only the
// first carries the control keys.
func writeKittyChunks(buf *bytes.Buffer, control string, b64 []byte) {
	for i := 0; i < len(b64) || i == 0; i += KittyChunkSize {
		end := min(i+KittyChunkSize, len(b64))
		more := 0
		if end < len(b64) {
			more = 1
		}
		buf.WriteString("\x1b_G")
		if i == 0 {
			buf.WriteString(control)
			buf.WriteByte(',')
		}
		buf.WriteString("m=")
		buf.WriteByte(byte('0' + more))
		if i > 0 {
			buf.WriteString(",q=2")
		}
		buf.WriteByte(';')
		buf.Write(b64[i:end])
		buf.WriteString(stringTerminator)
	}
}

// Delete returns the command that removes the encoder's image and frees
// its data in the terminal.
func (e *KittyEncoder) Delete() []byte {
	return []byte(fmt.Sprintf("\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", e.id))
}

// Reset forgets cached payloads so the next frame is retransmitted, for
// example after the screen was cleared.
func (e *KittyEncoder) Reset() {
	e.cache.Purge()
}
