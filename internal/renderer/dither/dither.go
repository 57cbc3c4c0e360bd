// Package dither reduces colour banding in interleaved RGBA buffers before
// they are quantized to terminal cells or encoded for a graphics protocol.
package dither

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Method selects a dithering algorithm.
type Method uint8

const (
	None Method = iota
	Bayer
	FloydSteinberg
	Atkinson
	Sierra
	BlueNoise
	FloydSteinbergStable
	AtkinsonStable
	SierraStable
)

// DefaultBits is the default number of bits kept per channel.
const DefaultBits = 3

// ErrUnknownMethod is returned by ParseMethod for unrecognised names.
var ErrUnknownMethod = errors.New("unknown dither method")

var methodNames = map[Method]string{
	None:                 "none",
	Bayer:                "bayer",
	FloydSteinberg:       "floyd-steinberg",
	Atkinson:             "atkinson",
	Sierra:               "sierra",
	BlueNoise:            "blue-noise",
	FloydSteinbergStable: "floyd-steinberg-stable",
	AtkinsonStable:       "atkinson-stable",
	SierraStable:         "sierra-stable",
}

// String returns the method name.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", m)
}

// ParseMethod parses a method name. Underscores and the short forms "fs",
// "ordered" and "bluenoise" are accepted.
func ParseMethod(s string) (Method, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch name {
	case "", "off":
		return None, nil
	case "fs":
		return FloydSteinberg, nil
	case "fs-stable":
		return FloydSteinbergStable, nil
	case "ordered":
		return Bayer, nil
	case "bluenoise":
		return BlueNoise, nil
	}
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Stable reports whether the method produces the same output for a pixel
// regardless of the rest of the frame.
func (m Method) Stable() bool {
	switch m {
	case None, Bayer, BlueNoise, FloydSteinbergStable, AtkinsonStable, SierraStable:
		return true
	}
	return false
}

// Options configures a dither pass.
type Options struct {
	Method Method
	// Bits per channel kept after dithering, 1..8. Zero means DefaultBits.
	Bits int
}

func (o Options) levels() int {
	bits := o.Bits
	if bits <= 0 {
		bits = DefaultBits
	}
	bits = min(bits, 8)
	return 1 << bits
}

// Ditherer owns the scratch buffers of repeated dither passes.
// A Ditherer must not be used concurrently.
type Ditherer struct {
	opts    Options
	scratch []uint8
	errBuf  []float32
}

// New creates a Ditherer.
func New(opts Options) *Ditherer {
	return &Ditherer{opts: opts}
}

// Options returns the ditherer's configuration.
func (d *Ditherer) Options() Options {
	return d.opts
}

// SetOptions replaces the configuration.
func (d *Ditherer) SetOptions(opts Options) {
	d.opts = opts
}

// Dither copies src into the ditherer's scratch buffer, dithers the copy
// and returns it. src is never modified. The returned slice is reused by
// the next call.
func (d *Ditherer) Dither(src []uint8, width, height int) []uint8 {
	n := width * height * 4
	if n <= 0 || len(src) < n {
		return nil
	}
	if cap(d.scratch) < n {
		d.scratch = make([]uint8, n)
	}
	d.scratch = d.scratch[:n]
	copy(d.scratch, src[:n])
	d.apply(d.scratch, width, height)
	return d.scratch
}

// Apply dithers buf in place.
func Apply(buf []uint8, width, height int, opts Options) {
	d := Ditherer{opts: opts}
	d.apply(buf, width, height)
}

func (d *Ditherer) apply(buf []uint8, width, height int) {
	if width <= 0 || height <= 0 || len(buf) < width*height*4 {
		return
	}
	levels := d.opts.levels()
	switch d.opts.Method {
	case Bayer:
		ordered(buf, width, height, levels, bayerAt)
	case BlueNoise:
		ordered(buf, width, height, levels, blueNoiseAt)
	case FloydSteinberg:
		d.diffuse(buf, width, height, levels, floydSteinberg)
	case Atkinson:
		d.diffuse(buf, width, height, levels, atkinson)
	case Sierra:
		d.diffuse(buf, width, height, levels, sierra)
	case FloydSteinbergStable:
		stable(buf, width, height, levels, floydSteinberg)
	case AtkinsonStable:
		stable(buf, width, height, levels, atkinson)
	case SierraStable:
		stable(buf, width, height, levels, sierra)
	}
}

// quantize snaps v to the nearest of levels evenly spaced values.
func quantize(v float32, levels int) uint8 {
	steps := float32(levels - 1)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	q := float32(math.Round(float64(v*steps/255))) * 255 / steps
	return uint8(q + 0.5)
}

// ordered adds a per-pixel threshold in [-0.5, 0.5) of one step before
// snapping.
func ordered(buf []uint8, width, height, levels int, threshold func(x, y int) float32) {
	step := 255 / float32(levels-1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			if buf[o+3] == 0 {
				continue
			}
			t := threshold(x, y) * step
			for ch := 0; ch < 3; ch++ {
				buf[o+ch] = quantize(float32(buf[o+ch])+t, levels)
			}
		}
	}
}
