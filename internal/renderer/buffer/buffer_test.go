package buffer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/dshills/pixstorm/internal/renderer/core"
)

func TestNewTerminalBuffer(t *testing.T) {
	b := NewTerminalBuffer(80, 24)

	w, h := b.Size()
	if w != 80 || h != 24 {
		t.Errorf("expected size (80, 24), got (%d, %d)", w, h)
	}
	if !b.Cell(0, 0).Equals(core.EmptyCell()) {
		t.Error("new buffer should be filled with empty cells")
	}
}

func TestSetCellOutOfRange(t *testing.T) {
	b := NewTerminalBuffer(10, 5)
	cell := core.NewCell("X")

	b.SetCell(-1, 0, cell)
	b.SetCell(10, 0, cell)
	b.SetCell(0, 5, cell)

	if len(b.Diff(NewTerminalBuffer(10, 5))) != 0 {
		t.Error("out-of-range writes should be ignored")
	}
	if !b.Cell(-1, 0).Equals(core.EmptyCell()) {
		t.Error("out of bounds read should return empty cell")
	}
}

func TestSetCellWide(t *testing.T) {
	b := NewTerminalBuffer(10, 1)
	style := core.NewStyle(core.ColorRed)

	b.SetCell(2, 0, core.Cell{Char: "中", Style: style})

	head := b.Cell(2, 0)
	if head.Width != 2 || head.Continuation {
		t.Errorf("expected wide head, got %+v", head)
	}
	cont := b.Cell(3, 0)
	if !cont.Continuation || cont.Width != 0 {
		t.Errorf("expected continuation, got %+v", cont)
	}
	if cont.Style != style {
		t.Error("continuation should carry the head's style")
	}
	if !b.IsWide(2, 0) || !b.IsWide(3, 0) {
		t.Error("both halves should be marked wide")
	}
}

func TestSetCellWideWithoutRoom(t *testing.T) {
	b := NewTerminalBuffer(4, 1)
	b.SetCell(3, 0, core.NewCell("中"))

	if !b.Cell(3, 0).Equals(core.EmptyCell()) {
		t.Error("wide write at the last column should be dropped")
	}
}

func TestSetCellZeroWidth(t *testing.T) {
	b := NewTerminalBuffer(4, 1)
	b.SetCell(1, 0, core.NewCell("A"))
	b.SetCell(1, 0, core.NewCell("\u0301"))
	b.SetCell(1, 0, core.NewCell(""))

	if b.Cell(1, 0).Char != "A" {
		t.Errorf("zero-width writes should not mutate, got %q", b.Cell(1, 0).Char)
	}
}

func TestOverwriteWideHalves(t *testing.T) {
	tests := []struct {
		name  string
		x     int
		char  string
		clear []int
	}{
		{"narrow over head", 2, "a", []int{3}},
		{"narrow over continuation", 3, "a", []int{2}},
		{"wide over continuation", 3, "日", []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewTerminalBuffer(10, 1)
			b.SetCell(2, 0, core.NewCell("中"))
			b.SetCell(tt.x, 0, core.NewCell(tt.char))

			if b.Cell(tt.x, 0).Char != tt.char {
				t.Errorf("expected %q at %d, got %q", tt.char, tt.x, b.Cell(tt.x, 0).Char)
			}
			for _, x := range tt.clear {
				if !b.Cell(x, 0).Equals(core.EmptyCell()) {
					t.Errorf("expected column %d cleared, got %+v", x, b.Cell(x, 0))
				}
			}
			assertWideInvariant(t, b)
		})
	}
}

func TestClearWideAtNaNPanics(t *testing.T) {
	b := NewTerminalBuffer(4, 1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on NaN coordinate")
		}
	}()
	b.ClearWideAt(math.NaN(), 0)
}

func TestClearWideAt(t *testing.T) {
	b := NewTerminalBuffer(6, 1)
	b.SetCell(1, 0, core.NewCell("中"))
	b.ClearWideAt(2.7, 0)

	if b.IsWide(1, 0) || b.IsWide(2, 0) {
		t.Error("wide character should be cleared")
	}
	b.ClearWideAt(-5, 9) // out of range, ignored
}

func TestSetText(t *testing.T) {
	b := NewTerminalBuffer(10, 2)
	end := b.SetText(0, 0, "hi中x", core.DefaultStyle())

	if end != 5 {
		t.Errorf("expected end column 5, got %d", end)
	}
	if got := b.RowText(0); got != "hi中x     " {
		t.Errorf("unexpected row %q", got)
	}
}

func TestSetTextCombiningMark(t *testing.T) {
	b := NewTerminalBuffer(5, 1)
	b.SetText(0, 0, "e\u0301x", core.DefaultStyle())

	if got := b.Cell(0, 0).Char; got != "\u00e9" {
		t.Errorf("expected composed é, got %q", got)
	}
	if got := b.Cell(1, 0).Char; got != "x" {
		t.Errorf("expected x, got %q", got)
	}
}

func TestSetTextEmojiCluster(t *testing.T) {
	b := NewTerminalBuffer(6, 1)
	b.SetText(0, 0, "👍🏽!", core.DefaultStyle())

	if got := b.Cell(0, 0).Char; got != "👍🏽" {
		t.Errorf("expected one cluster, got %q", got)
	}
	if !b.Cell(1, 0).Continuation {
		t.Error("expected continuation after emoji")
	}
	if got := b.Cell(2, 0).Char; got != "!" {
		t.Errorf("expected !, got %q", got)
	}
}

func TestSetTextNoWrap(t *testing.T) {
	b := NewTerminalBuffer(3, 2)
	b.SetText(1, 0, "a中b", core.DefaultStyle())

	if got := b.RowText(0); got != " a " {
		t.Errorf("expected overflowing clusters skipped, got %q", got)
	}
	if got := b.RowText(1); got != "   " {
		t.Errorf("text must not wrap, got %q", got)
	}
}

func TestFillRect(t *testing.T) {
	b := NewTerminalBuffer(10, 5)
	cell := core.NewCell("#")
	b.FillRect(core.RectFromSize(2, 1, 3, 2), cell)

	if !b.Cell(2, 1).Equals(cell) || !b.Cell(4, 2).Equals(cell) {
		t.Error("cells inside rect should be filled")
	}
	if b.Cell(5, 1).Equals(cell) || b.Cell(2, 3).Equals(cell) {
		t.Error("cells outside rect should not be filled")
	}
}

func TestDrawBorder(t *testing.T) {
	b := NewTerminalBuffer(5, 3)
	b.DrawBorder(core.RectFromSize(0, 0, 5, 3), BorderSingle, core.DefaultStyle())

	want := []string{"┌───┐", "│   │", "└───┘"}
	for y, line := range want {
		if got := b.RowText(y); got != line {
			t.Errorf("row %d: expected %q, got %q", y, line, got)
		}
	}
}

func TestResizePreservesOverlap(t *testing.T) {
	b := NewTerminalBuffer(10, 5)
	b.SetCell(1, 1, core.NewCell("A"))
	b.SetCell(8, 4, core.NewCell("Z"))

	b.Resize(5, 3)
	if b.Cell(1, 1).Char != "A" {
		t.Error("overlapping cell should survive shrink")
	}

	b.Resize(12, 6)
	if b.Cell(1, 1).Char != "A" {
		t.Error("overlapping cell should survive grow")
	}
	if b.Cell(8, 4).Char != " " {
		t.Error("cells cut by shrink should not reappear")
	}
}

func TestResizeDropsSplitWide(t *testing.T) {
	b := NewTerminalBuffer(6, 1)
	b.SetCell(3, 0, core.NewCell("中"))
	b.Resize(4, 1)

	if !b.Cell(3, 0).Equals(core.EmptyCell()) {
		t.Errorf("wide char split by resize should be dropped, got %+v", b.Cell(3, 0))
	}
	assertWideInvariant(t, b)
}

func TestClear(t *testing.T) {
	b := NewTerminalBuffer(4, 2)
	b.SetCell(1, 1, core.NewCell("中"))
	b.Clear()

	if len(b.Diff(NewTerminalBuffer(4, 2))) != 0 {
		t.Error("clear should reset all cells")
	}
	if b.IsWide(1, 1) {
		t.Error("clear should reset the wide map")
	}
}

func TestDiffFields(t *testing.T) {
	a := NewTerminalBuffer(4, 1)
	b := NewTerminalBuffer(4, 1)
	a.SetCell(0, 0, core.NewStyledCell("x", core.DefaultStyle().Bold()))
	b.SetCell(0, 0, core.NewStyledCell("x", core.DefaultStyle()))
	a.SetCell(2, 0, core.NewStyledCell("y", core.DefaultStyle().WithLink("u")))
	b.SetCell(2, 0, core.NewStyledCell("y", core.DefaultStyle()))

	diffs := a.Diff(b)
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(diffs))
	}
	if diffs[0].X != 0 || diffs[1].X != 2 {
		t.Errorf("unexpected diff positions %+v", diffs)
	}
}

func TestCloneRoundTrip(t *testing.T) {
	b := randomBuffer(rand.New(rand.NewSource(1)), 20, 8, 200)
	c := b.Clone()

	if d := c.Diff(b); len(d) != 0 {
		t.Errorf("clone should diff empty, got %d", len(d))
	}
	c.SetCell(0, 0, core.NewCell("Q"))
	if b.Cell(0, 0).Char == "Q" {
		t.Error("clone should be independent")
	}
}

func TestCopyFromRoundTrip(t *testing.T) {
	src := randomBuffer(rand.New(rand.NewSource(2)), 20, 8, 200)
	dst := NewTerminalBuffer(3, 3)
	dst.CopyFrom(src)

	if d := dst.Diff(src); len(d) != 0 {
		t.Errorf("copy should diff empty, got %d", len(d))
	}
}

func TestWideInvariantRandom(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		b := randomBuffer(rand.New(rand.NewSource(seed)), 12, 4, 400)
		assertWideInvariant(t, b)
	}
}

var glyphs = []string{"a", "b", "#", "中", "日", "🙂", "\u0301", "\u00e9"}

func randomBuffer(r *rand.Rand, w, h, writes int) *TerminalBuffer {
	b := NewTerminalBuffer(w, h)
	styles := []core.Style{
		core.DefaultStyle(),
		core.NewStyle(core.ColorRed),
		core.NewStyle(core.ColorBlue).Bold(),
	}
	for i := 0; i < writes; i++ {
		b.SetCell(r.Intn(w+2)-1, r.Intn(h+2)-1, core.Cell{
			Char:  glyphs[r.Intn(len(glyphs))],
			Style: styles[r.Intn(len(styles))],
		})
	}
	return b
}

func assertWideInvariant(t *testing.T, b *TerminalBuffer) {
	t.Helper()
	w, h := b.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := b.Cell(x, y)
			if c.Width == 2 && !c.Continuation {
				if x+1 >= w {
					t.Fatalf("wide cell at (%d,%d) has no room", x, y)
				}
				next := b.Cell(x+1, y)
				if !next.Continuation || next.Width != 0 || next.Style != c.Style {
					t.Fatalf("wide cell at (%d,%d) not followed by matching continuation: %+v", x, y, next)
				}
			}
			if c.Continuation {
				if x == 0 {
					t.Fatalf("dangling continuation at (%d,%d)", x, y)
				}
				prev := b.Cell(x-1, y)
				if prev.Width != 2 || prev.Continuation {
					t.Fatalf("dangling continuation at (%d,%d)", x, y)
				}
			}
		}
	}
}
