package core

import (
	"github.com/mattn/go-runewidth"
)

var widthCond = &runewidth.Condition{EastAsianWidth: false}

// CharWidth returns the display width of a grapheme cluster.
// Printable ASCII is width 1 without a table lookup.
func CharWidth(char string) int {
	if len(char) == 1 {
		b := char[0]
		if b >= 0x20 && b <= 0x7E {
			return 1
		}
		return 0
	}
	if char == "" {
		return 0
	}
	w := widthCond.StringWidth(char)
	if w > 2 {
		w = 2
	}
	return w
}
