// Package capability detects what a terminal can display: graphics
// protocols, Unicode coverage, colour depth and cell pixel size.
package capability

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// UnicodeTier describes how much of Unicode the terminal font can draw.
type UnicodeTier uint8

const (
	// UnicodeFull includes the sextant block of Symbols for Legacy Computing.
	UnicodeFull UnicodeTier = iota
	// UnicodeBasic covers box drawing, half blocks and shades.
	UnicodeBasic
	// UnicodeASCII is printable ASCII only.
	UnicodeASCII
)

// ErrUnknownTier is returned by ParseUnicodeTier.
var ErrUnknownTier = errors.New("unknown unicode tier")

func (t UnicodeTier) String() string {
	switch t {
	case UnicodeFull:
		return "full"
	case UnicodeBasic:
		return "basic"
	case UnicodeASCII:
		return "ascii"
	}
	return fmt.Sprintf("UnicodeTier(%d)", t)
}

// ParseUnicodeTier parses "full", "basic" or "ascii".
func ParseUnicodeTier(s string) (UnicodeTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return UnicodeFull, nil
	case "basic":
		return UnicodeBasic, nil
	case "ascii":
		return UnicodeASCII, nil
	}
	return UnicodeFull, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Default cell size in device pixels when the terminal does not report one.
const (
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

// Capabilities is a snapshot of terminal support flags.
type Capabilities struct {
	Sixel  bool
	Kitty  bool
	ITerm2 bool

	Unicode UnicodeTier
	Profile colorprofile.Profile

	// Terminal size in cells.
	Columns, Rows int
	// Size of one cell in device pixels.
	CellWidth, CellHeight int

	Term    string
	Program string
	Tmux    bool
}

// HasGraphics reports whether any graphics protocol is available.
func (c Capabilities) HasGraphics() bool {
	return c.Sixel || c.Kitty || c.ITerm2
}

// CellSize returns the cell pixel size, falling back to 8x16.
func (c Capabilities) CellSize() (width, height int) {
	width, height = c.CellWidth, c.CellHeight
	if width <= 0 || height <= 0 {
		return DefaultCellWidth, DefaultCellHeight
	}
	return width, height
}

// Overrides force individual capabilities regardless of detection.
type Overrides struct {
	// Graphics selects exactly one protocol: "sixel", "kitty", "iterm2",
	// "none", or "" / "auto" to keep detection.
	Graphics string
	// Unicode forces a tier: "full", "basic", "ascii" or "" to keep
	// detection.
	Unicode string

	CellWidth, CellHeight int
}

// Apply returns c with the overrides applied.
func (o Overrides) Apply(c Capabilities) (Capabilities, error) {
	switch strings.ToLower(strings.TrimSpace(o.Graphics)) {
	case "", "auto":
	case "none":
		c.Sixel, c.Kitty, c.ITerm2 = false, false, false
	case "sixel":
		c.Sixel, c.Kitty, c.ITerm2 = true, false, false
	case "kitty":
		c.Sixel, c.Kitty, c.ITerm2 = false, true, false
	case "iterm2", "iterm":
		c.Sixel, c.Kitty, c.ITerm2 = false, false, true
	default:
		return c, fmt.Errorf("unknown graphics override %q", o.Graphics)
	}
	if o.Unicode != "" {
		tier, err := ParseUnicodeTier(o.Unicode)
		if err != nil {
			return c, err
		}
		c.Unicode = tier
	}
	if o.CellWidth > 0 && o.CellHeight > 0 {
		c.CellWidth, c.CellHeight = o.CellWidth, o.CellHeight
	}
	return c, nil
}

// Detect derives capabilities from environment variables alone.
// environ uses the os.Environ format.
func Detect(environ []string) Capabilities {
	env := envMap(environ)
	termName := env["TERM"]
	program := env["TERM_PROGRAM"]
	c := Capabilities{
		Term:    termName,
		Program: program,
		Tmux:    env["TMUX"] != "" || strings.HasPrefix(termName, "tmux"),
		Unicode: unicodeTier(env),
		Profile: colorprofile.Env(environ),
	}

	switch {
	case termName == "xterm-kitty" || env["KITTY_WINDOW_ID"] != "" || env["KITTY_PID"] != "":
		c.Kitty = true
	case program == "ghostty" || env["GHOSTTY_RESOURCES_DIR"] != "":
		c.Kitty = true
	case program == "WezTerm" || env["WEZTERM_EXECUTABLE"] != "" || env["WEZTERM_PANE"] != "":
		c.Kitty, c.Sixel, c.ITerm2 = true, true, true
	case program == "iTerm.app" || env["LC_TERMINAL"] == "iTerm2":
		c.ITerm2 = true
	case program == "mintty" || env["MINTTY_SHORTCUT"] != "":
		c.ITerm2, c.Sixel = true, true
	case program == "foot" || strings.HasPrefix(termName, "foot"):
		c.Sixel = true
	case program == "konsole" || env["KONSOLE_VERSION"] != "":
		c.Sixel = true
	case env["WT_SESSION"] != "":
		c.Sixel = true
	case strings.Contains(strings.ToLower(termName), "sixel"):
		c.Sixel = true
	}

	// Escape sequences are not passed through tmux by default.
	if c.Tmux {
		c.Sixel, c.Kitty, c.ITerm2 = false, false, false
	}
	return c
}

func unicodeTier(env map[string]string) UnicodeTier {
	if env["TERM"] == "dumb" {
		return UnicodeASCII
	}
	locale := env["LC_ALL"]
	if locale == "" {
		locale = env["LC_CTYPE"]
	}
	if locale == "" {
		locale = env["LANG"]
	}
	l := strings.ToLower(locale)
	if !strings.Contains(l, "utf-8") && !strings.Contains(l, "utf8") {
		return UnicodeASCII
	}
	// The Linux console font has no legacy computing symbols.
	if env["TERM"] == "linux" {
		return UnicodeBasic
	}
	return UnicodeFull
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

// ProbeOptions configures Probe.
type ProbeOptions struct {
	// Environ defaults to os.Environ().
	Environ []string
	// Output is the terminal queried for size. Defaults to os.Stdout.
	Output *os.File
	Overrides Overrides
}

// Probe detects the capabilities of the terminal attached to
// opts.Output. Size queries that fail leave the fallback values in place.
func Probe(opts ProbeOptions) (Capabilities, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	c := Detect(environ)
	c.Profile = colorprofile.Detect(io.Writer(out), environ)
	c.CellWidth, c.CellHeight = DefaultCellWidth, DefaultCellHeight

	fd := int(out.Fd())
	if term.IsTerminal(fd) {
		if cols, rows, err := term.GetSize(fd); err == nil {
			c.Columns, c.Rows = cols, rows
		}
		if ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ); err == nil {
			if ws.Col > 0 && ws.Row > 0 {
				c.Columns, c.Rows = int(ws.Col), int(ws.Row)
			}
			if ws.Xpixel > 0 && ws.Ypixel > 0 && ws.Col > 0 && ws.Row > 0 {
				cw := int(ws.Xpixel) / int(ws.Col)
				ch := int(ws.Ypixel) / int(ws.Row)
				if cw > 0 && ch > 0 {
					c.CellWidth, c.CellHeight = cw, ch
				}
			}
		}
	}
	return opts.Overrides.Apply(c)
}
