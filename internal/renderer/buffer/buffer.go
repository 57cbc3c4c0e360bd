// Package buffer provides the terminal cell store and the double-buffered
// frame diffing built on top of it.
package buffer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/pixstorm/internal/renderer/core"
	"github.com/dshills/pixstorm/internal/renderer/dirty"
)

// Diff is one instruction: the terminal cell at (X, Y) must become Cell.
type Diff struct {
	X, Y int
	Cell core.Cell
}

// TerminalBuffer is a grid of cells stored row-major in one flat slice,
// indexed by y*width+x, plus a parallel map of cells covered by a wide
// character.
type TerminalBuffer struct {
	width, height int
	cells         []core.Cell
	wide          []bool

	// ref and dirty are set only while this is the write buffer of a
	// DualBuffer. Writes compare against ref to decide row dirtiness.
	ref   *TerminalBuffer
	dirty *dirty.Rows
}

// NewTerminalBuffer creates a buffer filled with empty cells.
// Negative dimensions are treated as zero.
func NewTerminalBuffer(width, height int) *TerminalBuffer {
	b := &TerminalBuffer{}
	b.allocate(max(width, 0), max(height, 0))
	return b
}

func (b *TerminalBuffer) allocate(width, height int) {
	b.width = width
	b.height = height
	b.cells = make([]core.Cell, width*height)
	b.wide = make([]bool, width*height)
	empty := core.EmptyCell()
	for i := range b.cells {
		b.cells[i] = empty
	}
}

// Size returns the buffer dimensions.
func (b *TerminalBuffer) Size() (width, height int) {
	return b.width, b.height
}

// Width returns the number of columns.
func (b *TerminalBuffer) Width() int { return b.width }

// Height returns the number of rows.
func (b *TerminalBuffer) Height() int { return b.height }

func (b *TerminalBuffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Cell returns the cell at (x, y), or an empty cell when out of range.
func (b *TerminalBuffer) Cell(x, y int) core.Cell {
	if !b.inBounds(x, y) {
		return core.EmptyCell()
	}
	return b.cells[y*b.width+x]
}

// IsWide reports whether (x, y) is covered by either half of a wide character.
func (b *TerminalBuffer) IsWide(x, y int) bool {
	if !b.inBounds(x, y) {
		return false
	}
	return b.wide[y*b.width+x]
}

// SetCell writes one cell. It is the only mutation primitive; every other
// write operation goes through it.
//
// Out-of-range coordinates are ignored. Width is resolved from the cell's
// grapheme. A wide cell without room for its continuation is dropped, and
// zero-width graphemes leave the grid untouched. Any wide character being
// overwritten loses both halves first.
func (b *TerminalBuffer) SetCell(x, y int, cell core.Cell) {
	if !b.inBounds(x, y) {
		return
	}

	w := core.CharWidth(cell.Char)
	if w == 0 {
		return
	}
	if w == 2 && x+1 >= b.width {
		return
	}

	row := y * b.width
	lo, hi := x, x+w-1

	if l, h, ok := b.clearWide(x, y); ok {
		lo, hi = min(lo, l), max(hi, h)
	}
	if w == 2 {
		if l, h, ok := b.clearWide(x+1, y); ok {
			lo, hi = min(lo, l), max(hi, h)
		}
	}

	i := row + x
	dst := &b.cells[i]
	dst.Char = cell.Char
	dst.Style = cell.Style
	dst.Width = uint8(w)
	dst.Continuation = false

	if w == 2 {
		next := &b.cells[i+1]
		next.Char = ""
		next.Style = cell.Style
		next.Width = 0
		next.Continuation = true
		b.wide[i] = true
		b.wide[i+1] = true
	} else {
		b.wide[i] = false
	}

	b.touch(y, lo, hi)
}

// clearWide blanks both halves of the wide character covering (x, y), if
// any, returning the affected column span.
func (b *TerminalBuffer) clearWide(x, y int) (lo, hi int, ok bool) {
	i := y*b.width + x
	if !b.wide[i] {
		return 0, 0, false
	}
	head := x
	if b.cells[i].Continuation {
		head = x - 1
	}
	if head < 0 || head+1 >= b.width {
		b.cells[i] = core.EmptyCell()
		b.wide[i] = false
		return x, x, true
	}
	hi2 := y*b.width + head
	empty := core.EmptyCell()
	b.cells[hi2] = empty
	b.cells[hi2+1] = empty
	b.wide[hi2] = false
	b.wide[hi2+1] = false
	return head, head + 1, true
}

// ClearWideAt blanks the wide character covering the given position.
// Layout code passes fractional coordinates; a NaN coordinate is a caller
// bug and panics.
func (b *TerminalBuffer) ClearWideAt(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		panic(fmt.Sprintf("buffer: NaN coordinate (%v, %v) passed to wide-character clear", x, y))
	}
	ix, iy := int(math.Floor(x)), int(math.Floor(y))
	if !b.inBounds(ix, iy) {
		return
	}
	if lo, hi, ok := b.clearWide(ix, iy); ok {
		b.touch(iy, lo, hi)
	}
}

// touch marks row y dirty when any cell in [lo, hi] differs from the
// reference buffer.
func (b *TerminalBuffer) touch(y, lo, hi int) {
	if b.dirty == nil {
		return
	}
	if b.ref == nil || b.ref.width != b.width || b.ref.height != b.height {
		b.dirty.Mark(y)
		return
	}
	row := y * b.width
	for x := max(lo, 0); x <= hi && x < b.width; x++ {
		if b.cells[row+x] != b.ref.cells[row+x] {
			b.dirty.Mark(y)
			return
		}
	}
}

// SetText writes a string as grapheme clusters starting at (x, y) and
// returns the column after the last cluster. Clusters that would overflow
// the row are skipped; text never wraps.
func (b *TerminalBuffer) SetText(x, y int, text string, style core.Style) int {
	if y < 0 || y >= b.height {
		return x
	}
	if !norm.NFC.IsNormalString(text) {
		text = norm.NFC.String(text)
	}

	col := x
	state := -1
	rest := text
	var cluster string
	for len(rest) > 0 {
		cluster, rest, _, state = uniseg.StepString(rest, state)
		w := core.CharWidth(cluster)
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= b.width {
			b.SetCell(col, y, core.Cell{Char: cluster, Style: style})
		}
		col += w
	}
	return col
}

// FillRect fills a rectangle with the given cell.
func (b *TerminalBuffer) FillRect(rect core.ScreenRect, cell core.Cell) {
	step := max(core.CharWidth(cell.Char), 1)
	for y := max(rect.Top, 0); y < rect.Bottom && y < b.height; y++ {
		for x := rect.Left; x < rect.Right && x < b.width; x += step {
			if x >= 0 && x+step <= rect.Right {
				b.SetCell(x, y, cell)
			}
		}
	}
}

// BorderStyle holds the glyphs used by DrawBorder.
type BorderStyle struct {
	Horizontal, Vertical                       string
	TopLeft, TopRight, BottomLeft, BottomRight string
}

// Border glyph sets.
var (
	BorderSingle  = BorderStyle{"─", "│", "┌", "┐", "└", "┘"}
	BorderDouble  = BorderStyle{"═", "║", "╔", "╗", "╚", "╝"}
	BorderRounded = BorderStyle{"─", "│", "╭", "╮", "╰", "╯"}
	BorderThick   = BorderStyle{"━", "┃", "┏", "┓", "┗", "┛"}
	BorderASCII   = BorderStyle{"-", "|", "+", "+", "+", "+"}
)

// DrawBorder draws a box outline along the edge of rect.
func (b *TerminalBuffer) DrawBorder(rect core.ScreenRect, border BorderStyle, style core.Style) {
	if rect.Width() < 2 || rect.Height() < 2 {
		return
	}
	left, right := rect.Left, rect.Right-1
	top, bottom := rect.Top, rect.Bottom-1

	for x := left + 1; x < right; x++ {
		b.SetCell(x, top, core.Cell{Char: border.Horizontal, Style: style})
		b.SetCell(x, bottom, core.Cell{Char: border.Horizontal, Style: style})
	}
	for y := top + 1; y < bottom; y++ {
		b.SetCell(left, y, core.Cell{Char: border.Vertical, Style: style})
		b.SetCell(right, y, core.Cell{Char: border.Vertical, Style: style})
	}
	b.SetCell(left, top, core.Cell{Char: border.TopLeft, Style: style})
	b.SetCell(right, top, core.Cell{Char: border.TopRight, Style: style})
	b.SetCell(left, bottom, core.Cell{Char: border.BottomLeft, Style: style})
	b.SetCell(right, bottom, core.Cell{Char: border.BottomRight, Style: style})
}

// Resize changes the dimensions, keeping the overlapping top-left region.
// A wide character whose right half would fall outside the new width is
// not carried over.
func (b *TerminalBuffer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == b.width && height == b.height {
		return
	}

	oldCells, oldWide := b.cells, b.wide
	oldWidth, oldHeight := b.width, b.height
	b.allocate(width, height)

	copyW := min(oldWidth, width)
	copyH := min(oldHeight, height)
	for y := 0; y < copyH; y++ {
		for x := 0; x < copyW; x++ {
			src := oldCells[y*oldWidth+x]
			if src.Width == 2 && !src.Continuation && x+1 >= copyW {
				continue
			}
			b.cells[y*width+x] = src
			b.wide[y*width+x] = oldWide[y*oldWidth+x]
		}
	}

	if b.dirty != nil {
		b.dirty.Resize(height)
	}
}

// Clear resets every cell to the empty cell.
func (b *TerminalBuffer) Clear() {
	empty := core.EmptyCell()
	for i := range b.cells {
		b.cells[i] = empty
	}
	clear(b.wide)
	b.touchAll()
}

func (b *TerminalBuffer) touchAll() {
	if b.dirty == nil {
		return
	}
	for y := 0; y < b.height; y++ {
		b.touch(y, 0, b.width-1)
	}
}

// Diff compares every field of every cell and returns the cells of b that
// differ from other, in row-major order. Cells outside other's bounds are
// always reported.
func (b *TerminalBuffer) Diff(other *TerminalBuffer) []Diff {
	var out []Diff
	for y := 0; y < b.height; y++ {
		out = b.diffRow(other, y, out)
	}
	return out
}

func (b *TerminalBuffer) diffRow(other *TerminalBuffer, y int, out []Diff) []Diff {
	row := y * b.width
	sameShape := other != nil && other.width == b.width && other.height == b.height
	for x := 0; x < b.width; x++ {
		c := b.cells[row+x]
		if sameShape {
			if c == other.cells[row+x] {
				continue
			}
		} else if other != nil && other.inBounds(x, y) && c == other.cells[y*other.width+x] {
			continue
		}
		out = append(out, Diff{X: x, Y: y, Cell: c})
	}
	return out
}

// Clone returns an independent copy without dirty tracking attached.
func (b *TerminalBuffer) Clone() *TerminalBuffer {
	c := &TerminalBuffer{
		width:  b.width,
		height: b.height,
		cells:  make([]core.Cell, len(b.cells)),
		wide:   make([]bool, len(b.wide)),
	}
	copy(c.cells, b.cells)
	copy(c.wide, b.wide)
	return c
}

// CopyFrom makes b a structural copy of other, resizing if needed.
func (b *TerminalBuffer) CopyFrom(other *TerminalBuffer) {
	if b.width != other.width || b.height != other.height {
		b.allocate(other.width, other.height)
		if b.dirty != nil {
			b.dirty.Resize(other.height)
		}
	}
	copy(b.cells, other.cells)
	copy(b.wide, other.wide)
	b.touchAll()
}

// RowText returns the visible glyphs of row y, skipping continuation cells.
func (b *TerminalBuffer) RowText(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	var sb strings.Builder
	for _, c := range b.cells[y*b.width : (y+1)*b.width] {
		if !c.Continuation {
			sb.WriteString(c.Char)
		}
	}
	return sb.String()
}

// String returns all rows joined by newlines.
func (b *TerminalBuffer) String() string {
	lines := make([]string, b.height)
	for y := range lines {
		lines[y] = b.RowText(y)
	}
	return strings.Join(lines, "\n")
}
