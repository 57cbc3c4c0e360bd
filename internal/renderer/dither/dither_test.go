package dither

import (
	"errors"
	"testing"
)

func gradient(width, height int) []uint8 {
	buf := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			buf[o] = uint8(x * 255 / max(width-1, 1))
			buf[o+1] = uint8(y * 255 / max(height-1, 1))
			buf[o+2] = uint8((x + y) * 255 / max(width+height-2, 1))
			buf[o+3] = 255
		}
	}
	return buf
}

var allMethods = []Method{
	Bayer, FloydSteinberg, Atkinson, Sierra, BlueNoise,
	FloydSteinbergStable, AtkinsonStable, SierraStable,
}

func TestDitherOutputOnLevels(t *testing.T) {
	for _, bits := range []int{1, 2, 3} {
		levels := Options{Bits: bits}.levels()
		allowed := make(map[uint8]bool)
		for v := 0; v < 256; v++ {
			allowed[quantize(float32(v), levels)] = true
		}
		if len(allowed) != levels {
			t.Fatalf("bits %d: %d distinct levels, want %d", bits, len(allowed), levels)
		}
		for _, m := range allMethods {
			buf := gradient(32, 16)
			Apply(buf, 32, 16, Options{Method: m, Bits: bits})
			for i, v := range buf {
				if i%4 == 3 {
					continue
				}
				if !allowed[v] {
					t.Fatalf("%s bits %d: value %d at %d is not a level", m, bits, v, i)
				}
			}
		}
	}
}

func TestDitherDefaultBits(t *testing.T) {
	if got := (Options{}).levels(); got != 8 {
		t.Errorf("expected 8 levels by default, got %d", got)
	}
	if got := (Options{Bits: 12}).levels(); got != 256 {
		t.Errorf("expected bits capped at 8, got %d levels", got)
	}
}

func TestDitherDoesNotMutateSource(t *testing.T) {
	src := gradient(16, 8)
	orig := append([]uint8(nil), src...)

	d := New(Options{Method: FloydSteinberg, Bits: 1})
	out := d.Dither(src, 16, 8)
	if len(out) != len(src) {
		t.Fatalf("expected %d bytes, got %d", len(src), len(out))
	}
	for i := range src {
		if src[i] != orig[i] {
			t.Fatalf("source modified at %d", i)
		}
	}
	if d.Dither(src[:10], 16, 8) != nil {
		t.Error("short source should return nil")
	}
}

func TestDitherSkipsTransparent(t *testing.T) {
	for _, m := range allMethods {
		buf := gradient(8, 8)
		o := (3*8 + 3) * 4
		buf[o], buf[o+1], buf[o+2], buf[o+3] = 77, 88, 99, 0
		Apply(buf, 8, 8, Options{Method: m, Bits: 1})
		if buf[o] != 77 || buf[o+1] != 88 || buf[o+2] != 99 || buf[o+3] != 0 {
			t.Errorf("%s changed a transparent pixel", m)
		}
	}
}

func TestStableMethodsArePositional(t *testing.T) {
	for _, m := range allMethods {
		if !m.Stable() {
			continue
		}
		a := gradient(24, 24)
		b := gradient(24, 24)
		// Change a pixel early in scan order.
		b[0], b[1], b[2] = 200, 10, 90

		Apply(a, 24, 24, Options{Method: m, Bits: 2})
		Apply(b, 24, 24, Options{Method: m, Bits: 2})
		for i := 4; i < len(a); i++ {
			if a[i] != b[i] {
				t.Errorf("%s: output at %d depends on another pixel", m, i)
				break
			}
		}
	}
}

func TestDiffusionPreservesMean(t *testing.T) {
	for _, m := range []Method{FloydSteinberg, Sierra} {
		const w, h = 32, 32
		buf := make([]uint8, w*h*4)
		for i := 0; i < len(buf); i += 4 {
			buf[i], buf[i+1], buf[i+2], buf[i+3] = 100, 100, 100, 255
		}
		Apply(buf, w, h, Options{Method: m, Bits: 1})
		sum := 0
		for i := 0; i < len(buf); i += 4 {
			sum += int(buf[i])
		}
		mean := sum / (w * h)
		if mean < 80 || mean > 120 {
			t.Errorf("%s: mean %d drifted from 100", m, mean)
		}
	}
}

func TestNoneLeavesBufferUnchanged(t *testing.T) {
	buf := gradient(8, 4)
	orig := append([]uint8(nil), buf...)
	Apply(buf, 8, 4, Options{Method: None})
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("None changed byte %d", i)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"", None},
		{"none", None},
		{"bayer", Bayer},
		{"ordered", Bayer},
		{"fs", FloydSteinberg},
		{"Floyd_Steinberg", FloydSteinberg},
		{"atkinson", Atkinson},
		{"sierra", Sierra},
		{"blue-noise", BlueNoise},
		{"bluenoise", BlueNoise},
		{"atkinson-stable", AtkinsonStable},
		{"sierra_stable", SierraStable},
		{"fs-stable", FloydSteinbergStable},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if err != nil {
			t.Errorf("ParseMethod(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseMethod("halftone"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
	for m := range methodNames {
		got, err := ParseMethod(m.String())
		if err != nil || got != m {
			t.Errorf("round trip of %s gave %s, %v", m, got, err)
		}
	}
}

func TestBayerMatrixIsPermutation(t *testing.T) {
	seen := make(map[int]bool)
	for _, row := range bayer8 {
		for _, v := range row {
			seen[v] = true
		}
	}
	for v := 0; v < 64; v++ {
		if !seen[v] {
			t.Fatalf("bayer matrix missing %d", v)
		}
	}
}

func TestVoidAndClusterIsPermutation(t *testing.T) {
	ranks := voidAndCluster(8, 1.5, 3)
	seen := make([]bool, len(ranks))
	for _, r := range ranks {
		if r < 0 || r >= len(ranks) || seen[r] {
			t.Fatalf("invalid or duplicate rank %d", r)
		}
		seen[r] = true
	}
}
