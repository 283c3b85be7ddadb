package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts edit traffic through the application.
type Metrics struct {
	edits       atomic.Uint64
	editTotalNs atomic.Int64
	editMaxNs   atomic.Int64
	rejected    atomic.Uint64
	changes     atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordEdit records an application edit that reached the buffer.
func (m *Metrics) RecordEdit(duration time.Duration) {
	ns := duration.Nanoseconds()
	m.edits.Add(1)
	m.editTotalNs.Add(ns)

	for {
		old := m.editMaxNs.Load()
		if ns <= old || m.editMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordRejected records an edit refused as stale or invalid.
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// RecordChange records a buffer mutation.
func (m *Metrics) RecordChange() {
	m.changes.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Edits    uint64
	EditAvg  time.Duration
	EditMax  time.Duration
	Rejected uint64
	Changes  uint64
	Uptime   time.Duration
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	edits := m.edits.Load()
	var avg time.Duration
	if edits > 0 {
		avg = time.Duration(m.editTotalNs.Load() / int64(edits))
	}
	return MetricsSnapshot{
		Edits:    edits,
		EditAvg:  avg,
		EditMax:  time.Duration(m.editMaxNs.Load()),
		Rejected: m.rejected.Load(),
		Changes:  m.changes.Load(),
		Uptime:   time.Since(m.startTime),
	}
}
