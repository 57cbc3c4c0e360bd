package buffer

import (
	"time"

	"github.com/dshills/pixstorm/internal/renderer/dirty"
)

// DualBuffer owns the write buffer (current) and the last displayed frame
// (previous) and produces the minimal diff between them.
//
// It is single-threaded: one writer fills current during a frame, then
// SwapAndGetDiff hands the diff to the terminal writer.
type DualBuffer struct {
	current  *TerminalBuffer
	previous *TerminalBuffer
	dirty    *dirty.Rows

	forceFull bool
	stats     Stats
	now       func() time.Time
}

// NewDualBuffer creates a double buffer of the given size.
func NewDualBuffer(width, height int) *DualBuffer {
	d := &DualBuffer{
		current:  NewTerminalBuffer(width, height),
		previous: NewTerminalBuffer(width, height),
		now:      time.Now,
	}
	d.dirty = dirty.NewRows(d.current.height)
	d.attach()
	return d
}

// attach wires dirty tracking into the current buffer.
func (d *DualBuffer) attach() {
	d.current.ref = d.previous
	d.current.dirty = d.dirty
	d.previous.ref = nil
	d.previous.dirty = nil
}

// Current returns the buffer being written this frame.
func (d *DualBuffer) Current() *TerminalBuffer {
	return d.current
}

// DisplayBuffer returns the buffer the application draws the next frame
// into. It is the same buffer as Current.
func (d *DualBuffer) DisplayBuffer() *TerminalBuffer {
	return d.current
}

// Previous returns the last displayed frame.
func (d *DualBuffer) Previous() *TerminalBuffer {
	return d.previous
}

// Size returns the buffer dimensions.
func (d *DualBuffer) Size() (width, height int) {
	return d.current.Size()
}

// Resize resizes both buffers and forces the next diff to scan every row.
func (d *DualBuffer) Resize(width, height int) {
	d.current.dirty = nil
	d.current.Resize(width, height)
	d.previous.Resize(width, height)
	d.dirty.Resize(d.current.height)
	d.attach()
	d.forceFull = true
}

// MarkForceNextRender makes the next SwapAndGetDiff scan every row instead
// of only the dirty ones.
func (d *DualBuffer) MarkForceNextRender() {
	d.forceFull = true
}

// DirtyRows returns the number of rows marked dirty this frame.
func (d *DualBuffer) DirtyRows() int {
	return d.dirty.Len()
}

// DiffOnly computes the pending diff without changing any state.
func (d *DualBuffer) DiffOnly() []Diff {
	diffs, _ := d.collect()
	return diffs
}

func (d *DualBuffer) collect() ([]Diff, int) {
	var out []Diff
	scanned := 0
	if d.forceFull {
		for y := 0; y < d.current.height; y++ {
			out = d.current.diffRow(d.previous, y, out)
		}
		return out, d.current.width * d.current.height
	}
	d.dirty.Each(func(y int) {
		out = d.current.diffRow(d.previous, y, out)
		scanned += d.current.width
	})
	return out, scanned
}

// SwapAndGetDiff returns the cells that changed this frame, then exchanges
// current and previous and clears the new current. The dirty set restarts
// with the rows whose content the clear removed.
func (d *DualBuffer) SwapAndGetDiff() []Diff {
	start := d.now()
	dirtyRows := d.dirty.Len()
	full := d.forceFull

	diffs, scanned := d.collect()
	d.swap()

	d.stats.record(frameSample{
		dirtyRows: dirtyRows,
		scanned:   scanned,
		changed:   len(diffs),
		full:      full,
		took:      d.now().Sub(start),
	})
	return diffs
}

func (d *DualBuffer) swap() {
	d.current, d.previous = d.previous, d.current
	d.attach()
	d.dirty.Reset()
	d.clearTracked()
}

// clearTracked empties current with tracking attached, so every row that
// still holds content in previous starts the frame dirty. A row left
// unwritten this frame must be blanked on the terminal.
func (d *DualBuffer) clearTracked() {
	d.current.Clear()
	d.forceFull = false
}

// ForceRedraw bypasses dirty tracking: it returns every cell of current,
// resynchronizes previous to current and clears current, so the following
// frame diffs against what was just emitted.
func (d *DualBuffer) ForceRedraw() []Diff {
	start := d.now()
	cur := d.current
	diffs := make([]Diff, 0, cur.width*cur.height)
	for y := 0; y < cur.height; y++ {
		row := y * cur.width
		for x := 0; x < cur.width; x++ {
			diffs = append(diffs, Diff{X: x, Y: y, Cell: cur.cells[row+x]})
		}
	}

	d.previous.CopyFrom(cur)
	d.attach()
	d.dirty.Reset()
	d.clearTracked()

	d.stats.record(frameSample{
		dirtyRows: cur.height,
		scanned:   len(diffs),
		changed:   len(diffs),
		full:      true,
		took:      d.now().Sub(start),
	})
	return diffs
}

// Stats returns render statistics accumulated so far.
func (d *DualBuffer) Stats() Stats {
	return d.stats
}
