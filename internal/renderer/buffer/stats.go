package buffer

import (
	"time"

	"github.com/tidwall/sjson"
)

// Stats records per-frame and cumulative diff statistics.
type Stats struct {
	Frames        int
	FullRedraws   int
	DirtyRows     int // last frame
	ScannedCells  int // last frame
	ChangedCells  int // last frame
	TotalChanged  int
	LastDuration  time.Duration
	TotalDuration time.Duration
}

type frameSample struct {
	dirtyRows int
	scanned   int
	changed   int
	full      bool
	took      time.Duration
}

func (s *Stats) record(f frameSample) {
	s.Frames++
	if f.full {
		s.FullRedraws++
	}
	s.DirtyRows = f.dirtyRows
	s.ScannedCells = f.scanned
	s.ChangedCells = f.changed
	s.TotalChanged += f.changed
	s.LastDuration = f.took
	s.TotalDuration += f.took
}

// AverageDuration returns the mean diff time per frame.
func (s Stats) AverageDuration() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Frames)
}

// JSON renders the statistics as a JSON object.
func (s Stats) JSON() (string, error) {
	doc := "{}"
	fields := []struct {
		path  string
		value any
	}{
		{"frames", s.Frames},
		{"fullRedraws", s.FullRedraws},
		{"last.dirtyRows", s.DirtyRows},
		{"last.scannedCells", s.ScannedCells},
		{"last.changedCells", s.ChangedCells},
		{"last.durationMicros", s.LastDuration.Microseconds()},
		{"total.changedCells", s.TotalChanged},
		{"total.durationMicros", s.TotalDuration.Microseconds()},
		{"avgDurationMicros", s.AverageDuration().Microseconds()},
	}
	var err error
	for _, f := range fields {
		doc, err = sjson.Set(doc, f.path, f.value)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}
