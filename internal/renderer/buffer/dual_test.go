package buffer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/pixstorm/internal/renderer/core"
)

func TestDualBufferSingleWrite(t *testing.T) {
	d := NewDualBuffer(10, 5)
	d.Current().SetCell(3, 2, core.NewCell("X"))

	diffs := d.SwapAndGetDiff()
	if len(diffs) != 1 {
		t.Fatalf("expected 1 diff, got %d", len(diffs))
	}
	if diffs[0].X != 3 || diffs[0].Y != 2 || diffs[0].Cell.Char != "X" {
		t.Errorf("unexpected diff %+v", diffs[0])
	}
}

func TestDualBufferSwapClearsCurrent(t *testing.T) {
	d := NewDualBuffer(10, 5)
	d.Current().SetCell(3, 2, core.NewCell("X"))
	d.SwapAndGetDiff()

	if d.Current().Cell(3, 2).Char != " " {
		t.Error("new current should be cleared")
	}
	if d.Previous().Cell(3, 2).Char != "X" {
		t.Error("previous should hold the emitted frame")
	}
	// Row 2 still shows X on the terminal until something is emitted there.
	if d.DirtyRows() != 1 {
		t.Errorf("expected the cleared row to stay dirty, got %d", d.DirtyRows())
	}
}

func TestDualBufferIdempotentSwap(t *testing.T) {
	d := NewDualBuffer(10, 5)
	d.Current().SetText(0, 0, "hello", core.DefaultStyle())
	d.SwapAndGetDiff()

	if diffs := d.SwapAndGetDiff(); len(diffs) != 0 {
		t.Errorf("second swap without writes should be empty, got %d", len(diffs))
	}
}

func TestDualBufferUnchangedWriteNotDirty(t *testing.T) {
	d := NewDualBuffer(10, 5)
	d.Current().SetCell(1, 1, core.NewCell("A"))
	d.SwapAndGetDiff()

	d.Current().SetCell(1, 1, core.NewCell("A"))
	d.Current().SetCell(5, 3, core.EmptyCell())
	// Only row 1, cleared by the swap, is dirty; the blank write on row 3
	// matches previous.
	if d.DirtyRows() != 1 {
		t.Errorf("writes matching previous should not dirty rows, got %d", d.DirtyRows())
	}
	if diffs := d.SwapAndGetDiff(); len(diffs) != 0 {
		t.Errorf("redrawing the same frame should emit nothing, got %+v", diffs)
	}
}

func TestDualBufferDirtyMatchesFullScan(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		r := rand.New(rand.NewSource(seed))
		d := NewDualBuffer(16, 6)
		screen := NewTerminalBuffer(16, 6)

		for frame := 0; frame < 8; frame++ {
			cur := d.Current()
			writes := r.Intn(30)
			for i := 0; i < writes; i++ {
				switch r.Intn(4) {
				case 0:
					cur.SetText(r.Intn(16), r.Intn(6), "a中b", core.NewStyle(core.ColorRed))
				case 1:
					cur.FillRect(core.RectFromSize(r.Intn(16), r.Intn(6), 3, 2), core.NewCell("#"))
				default:
					cur.SetCell(r.Intn(18)-1, r.Intn(8)-1, core.NewCell(glyphs[r.Intn(len(glyphs))]))
				}
			}

			want := d.Current().Diff(d.Previous())
			got := d.SwapAndGetDiff()
			if len(got) != len(want) {
				t.Fatalf("seed %d frame %d: expected %d diffs, got %d", seed, frame, len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("seed %d frame %d: diff %d expected %+v, got %+v", seed, frame, i, want[i], got[i])
				}
			}

			applyToScreen(screen, got)
			if diff := d.Previous().Diff(screen); len(diff) != 0 {
				t.Fatalf("seed %d frame %d: terminal diverged from previous at %+v", seed, frame, diff[0])
			}
		}
	}
}

// applyToScreen replays diffs the way a terminal would, cell by cell.
func applyToScreen(screen *TerminalBuffer, diffs []Diff) {
	for _, df := range diffs {
		screen.cells[df.Y*screen.width+df.X] = df.Cell
	}
}

func TestDualBufferContentLeavingRow(t *testing.T) {
	d := NewDualBuffer(10, 5)
	screen := NewTerminalBuffer(10, 5)

	d.Current().SetCell(3, 2, core.NewCell("X"))
	applyToScreen(screen, d.SwapAndGetDiff())

	// The glyph moves down a row; nothing is written on row 2.
	d.Current().SetCell(3, 3, core.NewCell("X"))
	diffs := d.SwapAndGetDiff()
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %+v", diffs)
	}
	applyToScreen(screen, diffs)
	if got := screen.Cell(3, 2).Char; got != " " {
		t.Errorf("expected (3,2) blanked on screen, got %q", got)
	}
	if got := screen.Cell(3, 3).Char; got != "X" {
		t.Errorf("expected X at (3,3), got %q", got)
	}

	// An empty frame removes the remaining glyph.
	diffs = d.SwapAndGetDiff()
	if len(diffs) != 1 || diffs[0].X != 3 || diffs[0].Y != 3 || diffs[0].Cell.Char != " " {
		t.Errorf("expected a single blanking diff at (3,3), got %+v", diffs)
	}
}

func TestDualBufferForceRedrawThenEmptyFrame(t *testing.T) {
	d := NewDualBuffer(4, 3)
	d.Current().SetText(0, 1, "ab", core.DefaultStyle())
	d.ForceRedraw()

	diffs := d.SwapAndGetDiff()
	if len(diffs) != 2 {
		t.Fatalf("expected the redrawn text to be blanked, got %+v", diffs)
	}
	for _, df := range diffs {
		if df.Y != 1 || df.Cell.Char != " " {
			t.Errorf("unexpected diff %+v", df)
		}
	}
}

func TestDualBufferDiffOnlyDoesNotMutate(t *testing.T) {
	d := NewDualBuffer(10, 5)
	d.Current().SetCell(2, 2, core.NewCell("Y"))

	first := d.DiffOnly()
	second := d.DiffOnly()
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 diff twice, got %d and %d", len(first), len(second))
	}
	if d.Current().Cell(2, 2).Char != "Y" {
		t.Error("DiffOnly should not swap buffers")
	}
	if d.Stats().Frames != 0 {
		t.Error("DiffOnly should not record a frame")
	}
}

func TestDualBufferMarkForceNextRender(t *testing.T) {
	d := NewDualBuffer(4, 3)
	d.Current().SetCell(0, 0, core.NewCell("A"))
	d.SwapAndGetDiff()

	// An untracked mutation of previous is invisible to dirty tracking.
	d.Previous().SetCell(3, 2, core.NewCell("Z"))
	d.Current().SetCell(0, 0, core.NewCell("A"))
	if diffs := d.DiffOnly(); len(diffs) != 0 {
		t.Fatalf("expected tracked diff to be empty, got %d", len(diffs))
	}

	d.MarkForceNextRender()
	diffs := d.SwapAndGetDiff()
	found := false
	for _, df := range diffs {
		if df.X == 3 && df.Y == 2 {
			found = true
		}
	}
	if !found {
		t.Error("forced render should scan every row")
	}
	if d.Stats().FullRedraws != 1 {
		t.Errorf("expected 1 full redraw, got %d", d.Stats().FullRedraws)
	}
}

func TestDualBufferForceRedraw(t *testing.T) {
	d := NewDualBuffer(4, 3)
	d.Current().SetText(0, 1, "ab", core.DefaultStyle())

	diffs := d.ForceRedraw()
	if len(diffs) != 12 {
		t.Fatalf("expected every cell, got %d", len(diffs))
	}
	if d.Previous().RowText(1) != "ab  " {
		t.Errorf("previous should be resynchronized, got %q", d.Previous().RowText(1))
	}

	d.Current().SetText(0, 1, "ab", core.DefaultStyle())
	if got := d.SwapAndGetDiff(); len(got) != 0 {
		t.Errorf("frame after force redraw should diff against it, got %d", len(got))
	}
}

func TestDualBufferResize(t *testing.T) {
	d := NewDualBuffer(4, 3)
	d.Resize(8, 6)

	w, h := d.Size()
	if w != 8 || h != 6 {
		t.Errorf("expected 8x6, got %dx%d", w, h)
	}
	d.Current().SetCell(7, 5, core.NewCell("E"))
	diffs := d.SwapAndGetDiff()
	if len(diffs) != 1 || diffs[0].X != 7 || diffs[0].Y != 5 {
		t.Errorf("expected single diff at (7,5), got %+v", diffs)
	}
}

func TestDualBufferStats(t *testing.T) {
	d := NewDualBuffer(10, 5)
	tick := time.Unix(0, 0)
	d.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	d.Current().SetCell(1, 1, core.NewCell("A"))
	d.Current().SetCell(2, 3, core.NewCell("B"))
	d.SwapAndGetDiff()

	s := d.Stats()
	if s.Frames != 1 {
		t.Errorf("expected 1 frame, got %d", s.Frames)
	}
	if s.DirtyRows != 2 {
		t.Errorf("expected 2 dirty rows, got %d", s.DirtyRows)
	}
	if s.ScannedCells != 20 {
		t.Errorf("expected 20 scanned cells, got %d", s.ScannedCells)
	}
	if s.ChangedCells != 2 {
		t.Errorf("expected 2 changed cells, got %d", s.ChangedCells)
	}
	if s.LastDuration != time.Millisecond {
		t.Errorf("expected 1ms, got %v", s.LastDuration)
	}

	doc, err := s.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := gjson.Get(doc, "last.changedCells").Int(); got != 2 {
		t.Errorf("expected changedCells 2 in JSON, got %d", got)
	}
	if got := gjson.Get(doc, "frames").Int(); got != 1 {
		t.Errorf("expected frames 1 in JSON, got %d", got)
	}
}
