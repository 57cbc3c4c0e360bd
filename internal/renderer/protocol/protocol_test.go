package protocol

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/mattn/go-sixel"

	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

var allCaps = capability.Capabilities{
	Sixel:      true,
	Kitty:      true,
	ITerm2:     true,
	CellWidth:  10,
	CellHeight: 20,
}

func gradientCanvas(termW, termH int) *canvas.RenderData {
	d := canvas.New(termW, termH, 1)
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			d.SetPixel(x, y, core.RGB(uint8(x*255/d.Width), uint8(y*255/d.Height), 128))
		}
	}
	return d
}

func mustPrepare(t *testing.T, p Protocol, d *canvas.RenderData) *Frame {
	t.Helper()
	f, err := Prepare(p, allCaps, core.RectFromSize(0, 0, d.TermWidth, d.TermHeight), d, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return f
}

func TestPrepareUnsupported(t *testing.T) {
	d := gradientCanvas(4, 2)
	_, err := Prepare(Kitty, capability.Capabilities{Sixel: true}, core.RectFromSize(0, 0, 4, 2), d, nil)
	if !errors.Is(err, ErrCapabilityUnsupported) {
		t.Errorf("expected ErrCapabilityUnsupported, got %v", err)
	}
}

func TestPrepareNothingToDraw(t *testing.T) {
	d := canvas.New(4, 2, 1)
	if _, err := Prepare(Sixel, allCaps, core.RectFromSize(0, 0, 4, 2), d, nil); !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("expected ErrNothingToDraw for empty layers, got %v", err)
	}

	d.Background = core.ColorBlue
	for i := range d.Drawing {
		d.Drawing[i] = core.ColorBlue
	}
	if _, err := Prepare(Sixel, allCaps, core.RectFromSize(0, 0, 4, 2), d, nil); !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("expected ErrNothingToDraw for background-only frame, got %v", err)
	}
}

func TestPrepareRightEdge(t *testing.T) {
	d := gradientCanvas(10, 2)
	caps := allCaps
	caps.Columns = 10

	f, err := Prepare(Kitty, caps, core.RectFromSize(0, 0, 10, 2), d, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if f.Bounds.Width() != 9 {
		t.Errorf("expected width 9 at right edge, got %d", f.Bounds.Width())
	}
	if got := f.Image.Rect.Dx(); got != 9*canvas.CellPixelsX {
		t.Errorf("expected image cropped to %d px, got %d", 9*canvas.CellPixelsX, got)
	}

	f, _ = Prepare(Kitty, caps, core.RectFromSize(0, 0, 5, 2), d, nil)
	if f.Bounds.Width() != 5 {
		t.Errorf("expected width 5 away from the edge, got %d", f.Bounds.Width())
	}
}

func TestPrepareUsesDitheredBuffer(t *testing.T) {
	d := gradientCanvas(2, 1)
	pix := make([]uint8, d.Width*d.Height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i+3] = 255
	}
	f, err := Prepare(Sixel, allCaps, core.RectFromSize(0, 0, 2, 1), d, pix)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if c := f.Image.NRGBAAt(1, 1); c.R != 0 || c.G != 0 || c.A != 255 {
		t.Errorf("expected dithered pixel, got %v", c)
	}
}

func TestSixelHeight(t *testing.T) {
	tests := []struct{ in, want int }{{100, 96}, {96, 96}, {5, 0}, {0, 0}, {13, 12}}
	for _, tt := range tests {
		if got := SixelHeight(tt.in); got != tt.want {
			t.Errorf("SixelHeight(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSixelEncodeDecodes(t *testing.T) {
	d := gradientCanvas(4, 5)
	f := mustPrepare(t, Sixel, d)

	enc := NewSixelEncoder(SixelOptions{}, 0)
	out, err := enc.Encode(f, allCaps)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(out.Payload, []byte("\x1b[1;1H")) {
		t.Errorf("payload should start with cursor position, got %q", out.Payload[:8])
	}
	if !bytes.Contains(out.Payload, []byte(`"1;1;40;96`)) {
		t.Error("raster attributes should declare 40x96")
	}
	if out.Bounds.Height() != 5 || out.Bounds.Width() != 4 {
		t.Errorf("expected 4x5 coverage, got %dx%d", out.Bounds.Width(), out.Bounds.Height())
	}

	start := bytes.Index(out.Payload, []byte("\x1bP"))
	var img image.Image
	if err := sixel.NewDecoder(bytes.NewReader(out.Payload[start:])).Decode(&img); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 96 {
		t.Errorf("expected decoded 40x96, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestSixelPaletteCache(t *testing.T) {
	d := gradientCanvas(4, 2)
	enc := NewSixelEncoder(SixelOptions{Colors: 16}, 4)
	for i := 0; i < 2; i++ {
		if _, err := enc.Encode(mustPrepare(t, Sixel, d), allCaps); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	s := enc.CacheStats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("expected 1 hit 1 miss, got %d/%d", s.Hits, s.Misses)
	}
}

func TestSixelRunLength(t *testing.T) {
	var buf bytes.Buffer
	writeSixelRun(&buf, 1, 3)
	writeSixelRun(&buf, 2, 10)
	if got := buf.String(); got != "@@@!10A" {
		t.Errorf("expected @@@!10A, got %q", got)
	}
}

// kittyChunks returns the payload of each graphics command.
func kittyChunks(payload []byte) []string {
	var out []string
	for _, part := range strings.Split(string(payload), "\x1b_G")[1:] {
		out = append(out, strings.TrimSuffix(part, "\x1b\\"))
	}
	return out
}

func TestKittyEncodeAndCache(t *testing.T) {
	d := gradientCanvas(20, 10)
	enc := NewKittyEncoder(KittyOptions{}, 0)
	if enc.ID() == 0 {
		t.Fatal("image id must be nonzero")
	}

	out, err := enc.Encode(mustPrepare(t, Kitty, d), allCaps)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out.FromCache {
		t.Error("first encode should not come from cache")
	}

	chunks := kittyChunks(out.Payload)
	// 40x30 RGBA is 4800 bytes, 6400 in base64.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "a=T,f=32,i=") || !strings.Contains(chunks[0], ",m=1;") {
		t.Errorf("unexpected first chunk header %q", chunks[0][:40])
	}
	if !strings.HasPrefix(chunks[1], "m=0,q=2;") {
		t.Errorf("unexpected last chunk header %q", chunks[1][:10])
	}
	for _, c := range chunks {
		_, data, _ := strings.Cut(c, ";")
		if len(data) > KittyChunkSize {
			t.Errorf("chunk of %d bytes exceeds limit", len(data))
		}
	}

	again, _ := enc.Encode(mustPrepare(t, Kitty, d), allCaps)
	if !again.FromCache || !bytes.Equal(again.Payload, out.Payload) {
		t.Error("identical frame should be served from cache")
	}

	d.SetPixel(0, 0, core.ColorWhite)
	changed, _ := enc.Encode(mustPrepare(t, Kitty, d), allCaps)
	if changed.FromCache {
		t.Error("changed frame must not be served from cache")
	}
	if !strings.Contains(string(changed.Payload), "i="+strconv.FormatUint(uint64(enc.ID()), 10)+",") {
		t.Error("changed frame should reuse the stable image id")
	}
}

func TestKittyCompressed(t *testing.T) {
	d := gradientCanvas(4, 2)
	enc := NewKittyEncoder(KittyOptions{Compress: true}, 0)
	out, err := enc.Encode(mustPrepare(t, Kitty, d), allCaps)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var b64 strings.Builder
	for i, c := range kittyChunks(out.Payload) {
		if i == 0 && !strings.Contains(c, ",o=z") {
			t.Error("expected o=z in control data")
		}
		_, data, _ := strings.Cut(c, ";")
		b64.WriteString(data)
	}
	raw, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("zlib: %v", err)
	}
	pix, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if len(pix) != d.Width*d.Height*4 {
		t.Errorf("expected %d bytes of RGBA, got %d", d.Width*d.Height*4, len(pix))
	}
}

func TestKittyDelete(t *testing.T) {
	enc := NewKittyEncoder(KittyOptions{}, 0)
	want := "\x1b_Ga=d,d=I,i=" + strconv.FormatUint(uint64(enc.ID()), 10) + ",q=2\x1b\\"
	if got := string(enc.Delete()); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func decodeITerm2(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return img
}

func TestITerm2Encode(t *testing.T) {
	d := gradientCanvas(4, 3)
	enc := NewITerm2Encoder(ITerm2Options{}, 0)
	out, err := enc.Encode(mustPrepare(t, ITerm2, d), allCaps)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	s := string(out.Payload)
	if !strings.Contains(s, "width=40px;height=60px;preserveAspectRatio=0:") {
		t.Errorf("expected pixel dimensions, got %q", s)
	}
	_, data, _ := strings.Cut(s, "preserveAspectRatio=0:")
	img := decodeITerm2(t, strings.TrimSuffix(data, "\a"))
	if b := img.Bounds(); b.Dx() != d.Width || b.Dy() != d.Height {
		t.Errorf("expected %dx%d image, got %dx%d", d.Width, d.Height, b.Dx(), b.Dy())
	}

	again, _ := enc.Encode(mustPrepare(t, ITerm2, d), allCaps)
	if !again.FromCache {
		t.Error("identical frame should be served from cache")
	}
}

func TestITerm2Multipart(t *testing.T) {
	d := gradientCanvas(8, 4)
	enc := NewITerm2Encoder(ITerm2Options{MultipartThreshold: 1, ChunkSize: 64}, 0)
	out, err := enc.Encode(mustPrepare(t, ITerm2, d), allCaps)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	s := string(out.Payload)
	if !strings.Contains(s, "\x1b]1337;MultipartFile=inline=1;") {
		t.Fatal("expected MultipartFile header")
	}
	if !strings.HasSuffix(s, "\x1b]1337;FileEnd\a") {
		t.Error("expected FileEnd terminator")
	}

	var b64 strings.Builder
	parts := strings.Split(s, "\x1b]1337;FilePart=")
	if len(parts) < 3 {
		t.Fatalf("expected several parts, got %d", len(parts)-1)
	}
	for _, p := range parts[1:] {
		chunk, _, _ := strings.Cut(p, "\a")
		if len(chunk) > 64 {
			t.Errorf("part of %d bytes exceeds chunk size", len(chunk))
		}
		b64.WriteString(chunk)
	}
	decodeITerm2(t, b64.String())
}
