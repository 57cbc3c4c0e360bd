package dirty

import (
	"testing"
)

func TestNewRows(t *testing.T) {
	rows := NewRows(24)
	if rows.Len() != 0 {
		t.Errorf("expected 0 dirty rows, got %d", rows.Len())
	}
	if NewRows(-3).Len() != 0 {
		t.Error("negative height should produce an empty set")
	}
}

func TestRowsMark(t *testing.T) {
	rows := NewRows(10)

	rows.Mark(3)
	rows.Mark(3)
	rows.Mark(7)
	rows.Mark(-1)
	rows.Mark(10)

	if rows.Len() != 2 {
		t.Errorf("expected 2 dirty rows, got %d", rows.Len())
	}
	if !rows.IsDirty(3) || !rows.IsDirty(7) {
		t.Error("rows 3 and 7 should be dirty")
	}
	if rows.IsDirty(4) {
		t.Error("row 4 should be clean")
	}
}

func TestRowsEachAscending(t *testing.T) {
	rows := NewRows(10)
	rows.Mark(8)
	rows.Mark(1)
	rows.Mark(5)

	var got []int
	rows.Each(func(y int) { got = append(got, y) })

	want := []int{1, 5, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestRowsReset(t *testing.T) {
	rows := NewRows(5)
	rows.Mark(0)
	rows.Mark(4)
	rows.Reset()

	if rows.Len() != 0 {
		t.Errorf("expected empty set, got %d", rows.Len())
	}
	if rows.IsDirty(0) || rows.IsDirty(4) {
		t.Error("reset should clear all marks")
	}
}

func TestRowsResize(t *testing.T) {
	rows := NewRows(5)
	rows.Mark(2)
	rows.Resize(20)

	if rows.Len() != 0 {
		t.Error("resize should clear the set")
	}
	rows.Mark(19)
	if !rows.IsDirty(19) {
		t.Error("row 19 should be markable after growing")
	}

	rows.Resize(3)
	rows.Mark(4)
	if rows.Len() != 0 {
		t.Error("row 4 is out of range after shrinking")
	}
}
