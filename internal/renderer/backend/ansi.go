package backend

import (
	"bufio"
	"io"
	"strconv"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/ansi"

	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

// ColorMode selects how colours are encoded in SGR sequences.
type ColorMode uint8

const (
	ColorModeTrueColor ColorMode = iota
	ColorMode256
	ColorModeNone
)

// ColorModeFor maps a detected colour profile to a ColorMode. 16-colour
// terminals get the 256 palette, which they approximate themselves.
func ColorModeFor(p colorprofile.Profile) ColorMode {
	switch p {
	case colorprofile.TrueColor:
		return ColorModeTrueColor
	case colorprofile.ANSI256, colorprofile.ANSI:
		return ColorMode256
	}
	return ColorModeNone
}

var (
	csi      = []byte("\x1b[")
	sgrReset = []byte("\x1b[0m")
)

// ANSIWriter translates cell diffs into cursor-addressing, SGR and glyph
// bytes. It tracks cursor and style across calls so consecutive cells on
// a row and runs of identical style cost no escapes.
type ANSIWriter struct {
	w    *bufio.Writer
	mode ColorMode

	cursorX, cursorY int
	cursorValid      bool

	last      core.Style
	lastValid bool
}

// NewANSIWriter creates a writer.
func NewANSIWriter(w io.Writer, mode ColorMode) *ANSIWriter {
	return &ANSIWriter{
		w:    bufio.NewWriterSize(w, 128*1024),
		mode: mode,
	}
}

// Mode returns the colour encoding in use.
func (a *ANSIWriter) Mode() ColorMode {
	return a.mode
}

// Invalidate forgets cursor and style state, for use after something
// else wrote to the terminal.
func (a *ANSIWriter) Invalidate() {
	a.cursorValid = false
	a.lastValid = false
}

// WriteDiff writes diffs in order and ends with an SGR reset.
func (a *ANSIWriter) WriteDiff(diffs []buffer.Diff) error {
	if len(diffs) == 0 {
		return nil
	}
	for _, d := range diffs {
		c := d.Cell
		if c.Continuation {
			continue
		}
		a.moveTo(d.X, d.Y)
		a.writeStyle(c.Style)

		char := c.Char
		if char == "" {
			char = " "
		}
		a.w.WriteString(char)

		w := int(c.Width)
		if w == 0 {
			w = 1
		}
		a.cursorX += w
	}
	if a.lastValid && a.last.Link != "" {
		a.w.WriteString(ansi.ResetHyperlink())
	}
	a.w.Write(sgrReset)
	a.lastValid = false
	return a.w.Flush()
}

// WritePayload writes a pre-positioned graphics payload verbatim. The
// payload moves the cursor, so cursor state is dropped.
func (a *ANSIWriter) WritePayload(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	a.w.Write(payload)
	a.cursorValid = false
	return a.w.Flush()
}

func (a *ANSIWriter) moveTo(x, y int) {
	if a.cursorValid && y == a.cursorY {
		if x == a.cursorX {
			return
		}
		if x > a.cursorX {
			a.w.WriteString(ansi.CursorForward(x - a.cursorX))
			a.cursorX = x
			return
		}
	}
	a.w.WriteString(ansi.CursorPosition(x+1, y+1))
	a.cursorX, a.cursorY = x, y
	a.cursorValid = true
}

// writeStyle emits one combined SGR sequence when the style changed.
func (a *ANSIWriter) writeStyle(s core.Style) {
	if a.lastValid && s == a.last {
		return
	}

	if !a.lastValid || s.Link != a.last.Link {
		if a.lastValid && a.last.Link != "" {
			a.w.WriteString(ansi.ResetHyperlink())
		}
		if s.Link != "" {
			a.w.WriteString(ansi.SetHyperlink(s.Link))
		}
	}

	attrChanged := !a.lastValid || s.Attributes != a.last.Attributes
	fgChanged := !a.lastValid || s.Foreground != a.last.Foreground
	bgChanged := !a.lastValid || s.Background != a.last.Background

	if attrChanged {
		// Attributes can only be cleared by a full reset, which also
		// drops both colours.
		a.w.Write(csi)
		a.w.WriteByte('0')
		if s.Attributes.Has(core.AttrBold) {
			a.w.WriteString(";1")
		}
		if s.Attributes.Has(core.AttrDim) {
			a.w.WriteString(";2")
		}
		if s.Attributes.Has(core.AttrItalic) {
			a.w.WriteString(";3")
		}
		if s.Attributes.Has(core.AttrUnderline) {
			a.w.WriteString(";4")
		}
		if s.Attributes.Has(core.AttrReverse) {
			a.w.WriteString(";7")
		}
		if !s.Foreground.IsDefault() && a.mode != ColorModeNone {
			a.writeColor(38, s.Foreground, true)
		}
		if !s.Background.IsDefault() && a.mode != ColorModeNone {
			a.writeColor(48, s.Background, true)
		}
		a.w.WriteByte('m')
	} else if fgChanged || bgChanged {
		a.w.Write(csi)
		if fgChanged {
			a.writeColor(38, s.Foreground, false)
		}
		if bgChanged {
			a.writeColor(48, s.Background, fgChanged)
		}
		a.w.WriteByte('m')
	}

	a.last = s
	a.lastValid = true
}

// writeColor writes colour parameters such as "38;2;r;g;b", preceded
// by ';' when sep is set. Default colours and ColorModeNone select the
// terminal default (39 or 49).
func (a *ANSIWriter) writeColor(base int, c core.Color, sep bool) {
	if sep {
		a.w.WriteByte(';')
	}
	if c.IsDefault() || a.mode == ColorModeNone {
		a.w.WriteString(strconv.Itoa(base + 1))
		return
	}
	a.w.WriteString(strconv.Itoa(base))
	r, g, b := c.RGB()
	if a.mode == ColorMode256 {
		a.w.WriteString(";5;")
		a.w.WriteString(strconv.Itoa(int(RGBTo256(r, g, b))))
		return
	}
	a.w.WriteString(";2;")
	a.w.WriteString(strconv.Itoa(int(r)))
	a.w.WriteByte(';')
	a.w.WriteString(strconv.Itoa(int(g)))
	a.w.WriteByte(';')
	a.w.WriteString(strconv.Itoa(int(b)))
}
