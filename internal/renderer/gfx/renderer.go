package gfx

import (
	"errors"

	"github.com/dshills/pixstorm/internal/capability"
	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/canvas"
	"github.com/dshills/pixstorm/internal/renderer/core"
	"github.com/dshills/pixstorm/internal/renderer/protocol"
	"github.com/dshills/pixstorm/internal/renderer/quantize"
)

// Logger receives diagnostic output.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Options configures a Renderer.
type Options struct {
	Caps capability.Capabilities

	// Palette for the *-palette modes. Defaults to the ANSI 16 colours.
	Palette []core.Color

	// Isolines is the template for the isolines modes. Fill is set by
	// the mode.
	Isolines quantize.Isolines

	// BlockCols and BlockRows set the sampling grid of the block modes.
	// Zero averages every pixel under the cell.
	BlockCols, BlockRows int

	// LumaRamp overrides the ascii-luma glyph ramp, darkest first.
	LumaRamp string

	Sixel  protocol.SixelOptions
	Kitty  protocol.KittyOptions
	ITerm2 protocol.ITerm2Options

	// Cache capacities of the sixel palette cache and the kitty and
	// iTerm2 payload caches.
	PaletteCache, KittyCache, ITerm2Cache int

	Logger Logger
}

// Renderer dispatches frames to quantizers or protocol encoders.
// It is not safe for concurrent use.
type Renderer struct {
	caps    capability.Capabilities
	palette *quantize.Palette
	luma    quantize.ASCIILuma
	opts    Options
	log     Logger

	sixel  *protocol.SixelEncoder
	kitty  *protocol.KittyEncoder
	iterm2 *protocol.ITerm2Encoder
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{caps: opts.Caps, opts: opts, log: opts.Logger}
	if r.log == nil {
		r.log = nopLogger{}
	}
	if len(opts.Palette) > 0 {
		r.palette = quantize.NewPalette(opts.Palette)
	} else {
		r.palette = quantize.DefaultPalette()
	}
	r.luma = quantize.NewASCIILuma(opts.LumaRamp)
	return r
}

// Capabilities returns the terminal capabilities in use.
func (r *Renderer) Capabilities() capability.Capabilities {
	return r.caps
}

// SetCapabilities replaces the capabilities, for example after a resize
// changed the cell pixel size.
func (r *Renderer) SetCapabilities(caps capability.Capabilities) {
	r.caps = caps
}

// State holds per-surface scratch data reused across frames. Each drawing
// surface owns one State.
type State struct {
	scratch  quantize.Scratch
	isolines quantize.Isolines
}

// NewState creates render state.
func NewState() *State {
	return &State{}
}

// Result describes what a render call produced.
type Result struct {
	// Mode is the mode actually used.
	Mode Mode
	// Cells is the number of cells written to the buffer.
	Cells int
	// Graphics is set when a protocol encoder produced a payload.
	Graphics *protocol.Output
}

// EffectiveMode resolves a requested mode to one the terminal supports.
//
// hires tries kitty, sixel, then iTerm2 and finally sextant. An explicit
// protocol that is unavailable resolves like hires. Sextant needs the full
// Unicode tier and degrades to halfblock on the basic tier and to block on
// ASCII terminals; the other glyph modes degrade the same way.
func (r *Renderer) EffectiveMode(requested Mode) Mode {
	caps := r.caps
	switch requested {
	case ModeKitty:
		if caps.Kitty {
			return ModeKitty
		}
		return r.EffectiveMode(ModeHires)
	case ModeSixel:
		if caps.Sixel {
			return ModeSixel
		}
		return r.EffectiveMode(ModeHires)
	case ModeITerm2:
		if caps.ITerm2 {
			return ModeITerm2
		}
		return r.EffectiveMode(ModeHires)
	case ModeHires:
		switch {
		case caps.Kitty:
			return ModeKitty
		case caps.Sixel:
			return ModeSixel
		case caps.ITerm2:
			return ModeITerm2
		}
		return r.EffectiveMode(ModeSextant)
	case ModeSextant:
		switch caps.Unicode {
		case capability.UnicodeFull:
			return ModeSextant
		case capability.UnicodeBasic:
			return ModeHalfBlock
		}
		return ModeBlock
	case ModeHalfBlock, ModeHalfBlockPalette, ModeBlockPalette:
		if caps.Unicode == capability.UnicodeASCII {
			return ModeBlock
		}
	case ModeIsolines, ModeIsolinesFilled:
		if caps.Unicode == capability.UnicodeASCII {
			return ModeASCII
		}
	}
	return requested
}

// RenderToTerminal renders one frame into bounds.
//
// Text modes write cells into buf; protocol modes return a positioned
// payload in Result.Graphics for the caller to write after flushing the
// cell diff. dithered, when non-nil, is an interleaved RGBA copy of the
// composited frame that replaces both layers. A protocol that cannot be
// used degrades to the best text mode. A frame with no visible content is
// a no-op.
func (r *Renderer) RenderToTerminal(bounds core.ScreenRect, style core.Style, buf *buffer.TerminalBuffer, data *canvas.RenderData, state *State, dithered []uint8, mode Mode) (Result, error) {
	if data == nil || bounds.IsEmpty() {
		return Result{Mode: mode}, nil
	}
	if state == nil {
		state = NewState()
	}

	eff := r.EffectiveMode(mode)
	if eff != mode {
		r.log.Debug("gfx mode %s resolved to %s", mode, eff)
	}

	if eff.IsProtocol() {
		enc := r.encoder(eff)
		f, err := protocol.Prepare(enc.Protocol(), r.caps, bounds, data, dithered)
		if errors.Is(err, protocol.ErrNothingToDraw) {
			return Result{Mode: eff}, nil
		}
		if err == nil {
			var out protocol.Output
			if out, err = enc.Encode(f, r.caps); err == nil {
				return Result{Mode: eff, Graphics: &out}, nil
			}
		}
		r.log.Warn("%s encode failed, falling back to text: %v", eff, err)
		eff = r.EffectiveMode(ModeSextant)
	}

	q := r.quantizer(eff, state)
	s := quantize.NewSampler(data, dithered)
	n := quantize.Render(buf, bounds, q, s, &state.scratch, style)
	return Result{Mode: eff, Cells: n}, nil
}

func (r *Renderer) quantizer(m Mode, state *State) quantize.Quantizer {
	switch m {
	case ModeBlock:
		return quantize.Block{Cols: r.opts.BlockCols, Rows: r.opts.BlockRows}
	case ModeBlockPalette:
		return quantize.Block{Cols: r.opts.BlockCols, Rows: r.opts.BlockRows, Palette: r.palette}
	case ModeHalfBlock:
		return quantize.HalfBlock{}
	case ModeHalfBlockPalette:
		return quantize.HalfBlock{Palette: r.palette}
	case ModeASCII:
		return quantize.ASCIIPattern{}
	case ModeASCIILuma:
		return r.luma
	case ModeIsolines, ModeIsolinesFilled:
		iso := &state.isolines
		tmpl := r.opts.Isolines
		iso.Channel, iso.SubSample, iso.Radius = tmpl.Channel, tmpl.SubSample, tmpl.Radius
		iso.Mode, iso.Levels, iso.Values = tmpl.Mode, tmpl.Levels, tmpl.Values
		iso.LineColor, iso.Fill = tmpl.LineColor, quantize.FillNone
		if m == ModeIsolinesFilled {
			iso.Fill = tmpl.Fill
			if iso.Fill == quantize.FillNone {
				iso.Fill = quantize.FillMean
			}
		}
		return iso
	}
	return quantize.Sextant{}
}

func (r *Renderer) encoder(m Mode) protocol.Encoder {
	switch m {
	case ModeKitty:
		if r.kitty == nil {
			r.kitty = protocol.NewKittyEncoder(r.opts.Kitty, r.opts.KittyCache)
		}
		return r.kitty
	case ModeITerm2:
		if r.iterm2 == nil {
			r.iterm2 = protocol.NewITerm2Encoder(r.opts.ITerm2, r.opts.ITerm2Cache)
		}
		return r.iterm2
	}
	if r.sixel == nil {
		r.sixel = protocol.NewSixelEncoder(r.opts.Sixel, r.opts.PaletteCache)
	}
	return r.sixel
}

// ResetGraphics drops cached protocol payloads so the next frame is
// retransmitted. Call it after the screen was cleared.
func (r *Renderer) ResetGraphics() {
	if r.kitty != nil {
		r.kitty.Reset()
	}
	if r.iterm2 != nil {
		r.iterm2.Reset()
	}
}

// Cleanup returns escapes that remove images left on screen.
func (r *Renderer) Cleanup() []byte {
	if r.kitty == nil {
		return nil
	}
	return r.kitty.Delete()
}
