package app

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	snapshot := NewMetrics().Snapshot()
	if snapshot.FrameCount != 0 {
		t.Errorf("expected 0 frame count, got %d", snapshot.FrameCount)
	}
	if snapshot.MinFrameTimeNs != 0 {
		t.Errorf("expected 0 min frame time (sentinel handled), got %d", snapshot.MinFrameTimeNs)
	}
}

func TestMetrics_RecordFrame(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(10 * time.Millisecond)
	m.RecordFrame(20 * time.Millisecond)
	m.RecordFrame(6 * time.Millisecond)

	snapshot := m.Snapshot()
	if snapshot.FrameCount != 3 {
		t.Errorf("expected 3 frames, got %d", snapshot.FrameCount)
	}
	if snapshot.MinFrameTimeNs != int64(6*time.Millisecond) {
		t.Errorf("expected min 6ms, got %d ns", snapshot.MinFrameTimeNs)
	}
	if snapshot.MaxFrameTimeNs != int64(20*time.Millisecond) {
		t.Errorf("expected max 20ms, got %d ns", snapshot.MaxFrameTimeNs)
	}
	if snapshot.LastFrameNs != int64(6*time.Millisecond) {
		t.Errorf("expected last 6ms, got %d ns", snapshot.LastFrameNs)
	}
	if snapshot.AvgFrameTimeNs != int64(12*time.Millisecond) {
		t.Errorf("expected avg 12ms, got %d ns", snapshot.AvgFrameTimeNs)
	}
}

func TestMetrics_RecordFrameConcurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.RecordFrame(d)
		}(time.Duration(i) * time.Millisecond)
	}
	wg.Wait()

	s := m.Snapshot()
	if s.FrameCount != 50 {
		t.Errorf("expected 50 frames, got %d", s.FrameCount)
	}
	if s.MinFrameTimeNs != int64(time.Millisecond) || s.MaxFrameTimeNs != int64(50*time.Millisecond) {
		t.Errorf("expected min 1ms max 50ms, got %d/%d", s.MinFrameTimeNs, s.MaxFrameTimeNs)
	}
}

func TestMetrics_Output(t *testing.T) {
	m := NewMetrics()
	m.RecordCells(12, 4)
	m.RecordCells(-1, 3)
	m.RecordPayload(100, false)
	m.RecordPayload(100, true)
	m.RecordShader(time.Millisecond, nil)
	m.RecordShader(time.Millisecond, errors.New("boom"))
	m.RecordDroppedFrame()
	m.RecordFrame(time.Millisecond)

	s := m.Snapshot()
	if s.CellsWritten != 12 || s.DiffCells != 7 {
		t.Errorf("expected cells 12/7, got %d/%d", s.CellsWritten, s.DiffCells)
	}
	if s.Payloads != 1 || s.PayloadBytes != 100 || s.CachedFrames != 1 {
		t.Errorf("expected 1 payload of 100 bytes and 1 cached, got %+v", s)
	}
	if s.ShaderErrors != 1 {
		t.Errorf("expected 1 shader error, got %d", s.ShaderErrors)
	}
	if s.AvgShaderNs != int64(2*time.Millisecond) {
		t.Errorf("expected 2ms shader time per frame, got %d", s.AvgShaderNs)
	}
	if s.DropRate() != 100 {
		t.Errorf("expected drop rate 100, got %f", s.DropRate())
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordFrame(10 * time.Millisecond)
	m.RecordCells(3, 3)
	m.RecordPayload(5, false)
	m.Reset()

	s := m.Snapshot()
	if s.FrameCount != 0 || s.CellsWritten != 0 || s.Payloads != 0 || s.MinFrameTimeNs != 0 {
		t.Errorf("expected zeroed metrics after reset, got %+v", s)
	}
}

func TestMetricsSnapshot_AvgFPS(t *testing.T) {
	tests := []struct {
		name     string
		avgNs    int64
		expected float64
	}{
		{"zero", 0, 0},
		{"60fps", int64(time.Second / 60), 60},
		{"50fps", int64(20 * time.Millisecond), 50},
	}
	for _, tt := range tests {
		s := MetricsSnapshot{AvgFrameTimeNs: tt.avgNs}
		got := s.AvgFPS()
		if got < tt.expected-0.5 || got > tt.expected+0.5 {
			t.Errorf("%s: expected ~%f, got %f", tt.name, tt.expected, got)
		}
	}
}

func TestMetricsSnapshot_DropRate_Empty(t *testing.T) {
	if (MetricsSnapshot{}).DropRate() != 0 {
		t.Error("expected 0 drop rate with no frames")
	}
}

func TestTimer_Stop(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)

	elapsed := timer.Stop()
	if elapsed < 5*time.Millisecond {
		t.Errorf("expected elapsed >= 5ms, got %v", elapsed)
	}
}
