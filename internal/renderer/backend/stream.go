package backend

import (
	"io"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/dshills/pixstorm/internal/renderer/buffer"
)

// Stream is a Backend that writes escape sequences to a plain byte stream
// such as a pipe or a file. It has a fixed size and no input; PollEvent
// only returns events injected with PostEvent.
type Stream struct {
	mu     sync.Mutex
	out    *ANSIWriter
	raw    io.Writer
	width  int
	height int

	diffs   []buffer.Diff
	pending [][]byte
	err     error

	events chan Event
}

// NewStream creates a stream backend of width x height cells.
func NewStream(w io.Writer, width, height int, mode ColorMode) *Stream {
	return &Stream{
		out:    NewANSIWriter(w, mode),
		raw:    w,
		width:  width,
		height: height,
		events: make(chan Event, 16),
	}
}

func (s *Stream) Init() error {
	return nil
}

// Shutdown leaves the cursor on the line below the last row.
func (s *Stream) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Invalidate()
	if _, err := io.WriteString(s.raw, ansi.CursorPosition(1, s.height)+"\r\n"); err != nil && s.err == nil {
		s.err = err
	}
}

func (s *Stream) Size() (int, int) {
	return s.width, s.height
}

// OnResize is a no-op: a stream never changes size.
func (s *Stream) OnResize(func(width, height int)) {}

func (s *Stream) Apply(diffs []buffer.Diff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffs = append(s.diffs, diffs...)
}

func (s *Stream) WriteRaw(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, append([]byte(nil), payload...))
	return nil
}

func (s *Stream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffs = s.diffs[:0]
	s.pending = nil
	s.out.Invalidate()
	_, _ = io.WriteString(s.raw, ansi.EraseEntireScreen)
}

// Show writes the queued diff followed by queued payloads. The first
// write error is kept and reported by Err.
func (s *Stream) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.out.WriteDiff(s.diffs); err != nil && s.err == nil {
		s.err = err
	}
	s.diffs = s.diffs[:0]
	for _, p := range s.pending {
		if err := s.out.WritePayload(p); err != nil && s.err == nil {
			s.err = err
		}
	}
	s.pending = nil
}

// Err returns the first write error, including one from Shutdown.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) PollEvent() Event {
	return <-s.events
}

func (s *Stream) PostEvent(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
