// Package dirty tracks which terminal rows changed since the last frame.
package dirty

// Rows is a set of dirty row indices.
//
// Membership is a flat bool slice for O(1) marking; the ordered index list
// lets a diff pass visit only the rows that were touched.
type Rows struct {
	marked []bool
	order  []int
}

// NewRows creates a row set for a screen of the given height.
// Negative heights are treated as zero.
func NewRows(height int) *Rows {
	if height < 0 {
		height = 0
	}
	return &Rows{
		marked: make([]bool, height),
		order:  make([]int, 0, height),
	}
}

// Mark flags row y as dirty. Out-of-range rows are ignored.
func (r *Rows) Mark(y int) {
	if y < 0 || y >= len(r.marked) || r.marked[y] {
		return
	}
	r.marked[y] = true
	r.order = append(r.order, y)
}

// IsDirty reports whether row y is marked.
func (r *Rows) IsDirty(y int) bool {
	return y >= 0 && y < len(r.marked) && r.marked[y]
}

// Len returns the number of dirty rows.
func (r *Rows) Len() int {
	return len(r.order)
}

// Each calls fn for every dirty row in ascending order.
func (r *Rows) Each(fn func(y int)) {
	for y, dirty := range r.marked {
		if dirty {
			fn(y)
		}
	}
}

// Reset clears the set without releasing memory.
func (r *Rows) Reset() {
	for _, y := range r.order {
		r.marked[y] = false
	}
	r.order = r.order[:0]
}

// Resize changes the tracked height and clears the set.
func (r *Rows) Resize(height int) {
	if height < 0 {
		height = 0
	}
	if cap(r.marked) >= height {
		r.marked = r.marked[:cap(r.marked)]
		clear(r.marked)
		r.marked = r.marked[:height]
	} else {
		r.marked = make([]bool, height)
	}
	r.order = r.order[:0]
}
