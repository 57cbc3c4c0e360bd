package core

// Cell represents a single terminal cell.
//
// A width-2 cell is always followed on the same row by a width-0
// continuation cell carrying the same style.
type Cell struct {
	// Char is one grapheme cluster.
	Char string

	// Style is the visual style for this cell.
	Style Style

	// Width is the display width of this cell (0, 1 or 2).
	Width uint8

	// Continuation marks the right half of a wide character.
	Continuation bool
}

// EmptyCell returns an empty cell with default style.
func EmptyCell() Cell {
	return Cell{Char: " ", Width: 1}
}

// NewCell creates a cell with the given grapheme and default style.
func NewCell(char string) Cell {
	return Cell{Char: char, Width: uint8(CharWidth(char))}
}

// NewStyledCell creates a cell with the given grapheme and style.
func NewStyledCell(char string, style Style) Cell {
	return Cell{Char: char, Width: uint8(CharWidth(char)), Style: style}
}

// ContinuationCell returns the continuation half for a wide character.
func ContinuationCell(style Style) Cell {
	return Cell{Style: style, Continuation: true}
}

// IsEmpty returns true if this is an empty (space) cell.
func (c Cell) IsEmpty() bool {
	return c.Char == " " || c.Char == ""
}

// IsContinuation returns true if this is a continuation cell.
func (c Cell) IsContinuation() bool {
	return c.Continuation
}

// IsWide returns true if this cell starts a double-width character.
func (c Cell) IsWide() bool {
	return c.Width == 2 && !c.Continuation
}

// Equals compares every field: glyph, colors, attributes, link, width and
// the continuation flag.
func (c Cell) Equals(other Cell) bool {
	return c == other
}
