// Package gfx is the single entry point that turns a pixel frame into
// terminal output, choosing between text quantizers and graphics
// protocols based on terminal capabilities.
package gfx

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is a rendering strategy.
type Mode uint8

const (
	ModeSextant Mode = iota
	ModeBlock
	ModeBlockPalette
	ModeHalfBlock
	ModeHalfBlockPalette
	ModeASCII
	ModeASCIILuma
	ModeIsolines
	ModeIsolinesFilled
	ModeSixel
	ModeKitty
	ModeITerm2
	// ModeHires picks the best available graphics protocol.
	ModeHires
)

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("unknown graphics mode")

var modeNames = [...]string{
	ModeSextant:          "sextant",
	ModeBlock:            "block",
	ModeBlockPalette:     "block-palette",
	ModeHalfBlock:        "halfblock",
	ModeHalfBlockPalette: "halfblock-palette",
	ModeASCII:            "ascii",
	ModeASCIILuma:        "ascii-luma",
	ModeIsolines:         "isolines",
	ModeIsolinesFilled:   "isolines-filled",
	ModeSixel:            "sixel",
	ModeKitty:            "kitty",
	ModeITerm2:           "iterm2",
	ModeHires:            "hires",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// IsProtocol reports whether m renders through a graphics protocol.
func (m Mode) IsProtocol() bool {
	switch m {
	case ModeSixel, ModeKitty, ModeITerm2, ModeHires:
		return true
	}
	return false
}

// Modes returns every mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, len(modeNames))
	for i := range modeNames {
		out[i] = Mode(i)
	}
	return out
}

// ParseMode parses a mode name. Case, underscores and a "half-block"
// spelling are tolerated.
func ParseMode(s string) (Mode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	name = strings.Replace(name, "half-block", "halfblock", 1)
	if name == "" {
		return ModeSextant, nil
	}
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return ModeSextant, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
