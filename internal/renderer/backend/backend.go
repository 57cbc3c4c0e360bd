// Package backend writes rendered frames to a terminal.
//
// A frame arrives as the cell diff produced by buffer.DualBuffer plus
// optional graphics payloads that are already cursor-addressed. Terminal
// drives a tcell screen; ANSIWriter writes raw escape sequences to any
// io.Writer.
package backend

import (
	"errors"

	"github.com/dshills/pixstorm/internal/renderer/buffer"
	"github.com/dshills/pixstorm/internal/renderer/core"
)

// ErrRawUnsupported is returned when a backend has no byte stream to
// carry graphics payloads.
var ErrRawUnsupported = errors.New("backend cannot write raw payloads")

// EventType identifies the type of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	EventInterrupt
)

// Event represents a terminal event.
type Event struct {
	Type EventType

	// Key event fields
	Key  Key
	Rune rune
	Mod  ModMask

	// Resize event fields
	Width, Height int
}

// Key represents a keyboard key.
type Key int

// Keys the viewer reacts to. Everything else arrives as KeyNone.
const (
	KeyNone Key = iota
	KeyRune     // Regular character (use Rune field)
	KeyEscape
	KeyEnter
	KeyTab
	KeyBacktab
	KeyCtrlC
	KeyCtrlL
)

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has returns true if the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// Backend is a display surface for rendered frames.
type Backend interface {
	// Init prepares the terminal. Must be called before any other method.
	Init() error

	// Shutdown restores terminal state.
	Shutdown()

	// Size returns the terminal dimensions in cells.
	Size() (width, height int)

	// OnResize registers a callback for terminal resize events.
	OnResize(callback func(width, height int))

	// Apply writes a cell diff. Continuation cells are skipped; the wide
	// cell before them covers both columns.
	Apply(diffs []buffer.Diff)

	// WriteRaw queues a graphics payload to be written verbatim after the
	// next Show.
	WriteRaw(payload []byte) error

	// Clear clears the screen and drops queued payloads.
	Clear()

	// Show flushes pending changes to the display.
	Show()

	// PollEvent blocks until the next event.
	PollEvent() Event

	// PostEvent injects an event, typically EventInterrupt to wake a
	// blocked PollEvent.
	PostEvent(event Event)
}

// NullBackend is an in-memory backend for tests.
type NullBackend struct {
	width, height int
	cells         []core.Cell
	raw           [][]byte
	pending       [][]byte
	shows         int
	resizeHandler func(width, height int)
	events        chan Event
}

// NewNullBackend creates a null backend with the given dimensions.
func NewNullBackend(width, height int) *NullBackend {
	return &NullBackend{
		width:  width,
		height: height,
		events: make(chan Event, 100),
	}
}

func (b *NullBackend) Init() error {
	b.cells = make([]core.Cell, b.width*b.height)
	b.Clear()
	return nil
}

func (b *NullBackend) Shutdown() {}

func (b *NullBackend) Size() (int, int) {
	return b.width, b.height
}

func (b *NullBackend) OnResize(callback func(width, height int)) {
	b.resizeHandler = callback
}

func (b *NullBackend) Apply(diffs []buffer.Diff) {
	for _, d := range diffs {
		if d.Cell.Continuation {
			continue
		}
		if d.X >= 0 && d.X < b.width && d.Y >= 0 && d.Y < b.height {
			b.cells[d.Y*b.width+d.X] = d.Cell
		}
	}
}

func (b *NullBackend) WriteRaw(payload []byte) error {
	b.pending = append(b.pending, append([]byte(nil), payload...))
	return nil
}

func (b *NullBackend) Clear() {
	empty := core.EmptyCell()
	for i := range b.cells {
		b.cells[i] = empty
	}
	b.pending = b.pending[:0]
}

func (b *NullBackend) Show() {
	b.shows++
	b.raw = append(b.raw, b.pending...)
	b.pending = b.pending[:0]
}

func (b *NullBackend) PollEvent() Event {
	return <-b.events
}

func (b *NullBackend) PostEvent(event Event) {
	select {
	case b.events <- event:
	default:
		// Event dropped if queue is full (non-blocking for testing)
	}
}

// Cell returns the cell shown at (x, y).
func (b *NullBackend) Cell(x, y int) core.Cell {
	if x >= 0 && x < b.width && y >= 0 && y < b.height {
		return b.cells[y*b.width+x]
	}
	return core.EmptyCell()
}

// Payloads returns the raw payloads flushed so far.
func (b *NullBackend) Payloads() [][]byte {
	return b.raw
}

// Shows returns how many times Show was called.
func (b *NullBackend) Shows() int {
	return b.shows
}

// Resize simulates a terminal resize for testing.
func (b *NullBackend) Resize(width, height int) {
	b.width = width
	b.height = height
	b.cells = make([]core.Cell, width*height)
	b.Clear()
	if b.resizeHandler != nil {
		b.resizeHandler(width, height)
	}
	b.PostEvent(Event{Type: EventResize, Width: width, Height: height})
}
