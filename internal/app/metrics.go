package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks frame loop performance. All methods are safe for
// concurrent use.
type Metrics struct {
	// Frame timing
	frameCount    atomic.Uint64
	frameTotalNs  atomic.Int64
	frameMinNs    atomic.Int64
	frameMaxNs    atomic.Int64
	lastFrameNs   atomic.Int64
	droppedFrames atomic.Uint64

	// Output volume
	cellsWritten  atomic.Uint64
	diffCells     atomic.Uint64
	payloads      atomic.Uint64
	payloadBytes  atomic.Uint64
	cachedFrames  atomic.Uint64
	shaderErrors  atomic.Uint64
	shaderTotalNs atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.frameMinNs.Store(1<<63 - 1)
	return m
}

// RecordFrame records the duration of one frame.
func (m *Metrics) RecordFrame(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.frameCount.Add(1)
	m.frameTotalNs.Add(ns)
	m.lastFrameNs.Store(ns)

	for {
		old := m.frameMinNs.Load()
		if ns >= old || m.frameMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.frameMaxNs.Load()
		if ns <= old || m.frameMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordDroppedFrame records a frame that overran its interval.
func (m *Metrics) RecordDroppedFrame() {
	m.droppedFrames.Add(1)
}

// RecordCells records cells written by a quantizer and cells sent to
// the backend after diffing.
func (m *Metrics) RecordCells(written, diffed int) {
	m.cellsWritten.Add(uint64(max(written, 0)))
	m.diffCells.Add(uint64(max(diffed, 0)))
}

// RecordPayload records a graphics payload. Cached payloads were already
// on screen and were not sent again.
func (m *Metrics) RecordPayload(size int, cached bool) {
	if cached {
		m.cachedFrames.Add(1)
		return
	}
	m.payloads.Add(1)
	m.payloadBytes.Add(uint64(max(size, 0)))
}

// RecordShader records one shader pass.
func (m *Metrics) RecordShader(duration time.Duration, err error) {
	m.shaderTotalNs.Add(duration.Nanoseconds())
	if err != nil {
		m.shaderErrors.Add(1)
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	frameCount := m.frameCount.Load()

	var avgFrameNs, avgShaderNs int64
	if frameCount > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frameCount)
		avgShaderNs = m.shaderTotalNs.Load() / int64(frameCount)
	}

	minFrameNs := m.frameMinNs.Load()
	if minFrameNs == 1<<63-1 {
		minFrameNs = 0
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		FrameCount:     frameCount,
		AvgFrameTimeNs: avgFrameNs,
		MinFrameTimeNs: minFrameNs,
		MaxFrameTimeNs: m.frameMaxNs.Load(),
		LastFrameNs:    m.lastFrameNs.Load(),
		DroppedFrames:  m.droppedFrames.Load(),
		CellsWritten:   m.cellsWritten.Load(),
		DiffCells:      m.diffCells.Load(),
		Payloads:       m.payloads.Load(),
		PayloadBytes:   m.payloadBytes.Load(),
		CachedFrames:   m.cachedFrames.Load(),
		ShaderErrors:   m.shaderErrors.Load(),
		AvgShaderNs:    avgShaderNs,
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.frameCount.Store(0)
	m.frameTotalNs.Store(0)
	m.frameMinNs.Store(1<<63 - 1)
	m.frameMaxNs.Store(0)
	m.lastFrameNs.Store(0)
	m.droppedFrames.Store(0)
	m.cellsWritten.Store(0)
	m.diffCells.Store(0)
	m.payloads.Store(0)
	m.payloadBytes.Store(0)
	m.cachedFrames.Store(0)
	m.shaderErrors.Store(0)
	m.shaderTotalNs.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	FrameCount     uint64
	AvgFrameTimeNs int64
	MinFrameTimeNs int64
	MaxFrameTimeNs int64
	LastFrameNs    int64
	DroppedFrames  uint64
	CellsWritten   uint64
	DiffCells      uint64
	Payloads       uint64
	PayloadBytes   uint64
	CachedFrames   uint64
	ShaderErrors   uint64
	AvgShaderNs    int64
}

// AvgFPS returns the frame rate the renderer could sustain, based on
// the average frame time.
func (s MetricsSnapshot) AvgFPS() float64 {
	if s.AvgFrameTimeNs == 0 {
		return 0
	}
	return 1e9 / float64(s.AvgFrameTimeNs)
}

// DropRate returns the percentage of frames that overran.
func (s MetricsSnapshot) DropRate() float64 {
	if s.FrameCount == 0 {
		return 0
	}
	return float64(s.DroppedFrames) / float64(s.FrameCount) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}
