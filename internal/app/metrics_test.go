package app

import (
	"sync"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	if snap.Edits != 0 || snap.EditAvg != 0 || snap.EditMax != 0 {
		t.Errorf("fresh snapshot = %+v", snap)
	}
}

func TestMetrics_RecordEdit(t *testing.T) {
	m := NewMetrics()
	m.RecordEdit(10 * time.Millisecond)
	m.RecordEdit(30 * time.Millisecond)
	m.RecordEdit(5 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Edits != 3 {
		t.Errorf("Edits = %d, want 3", snap.Edits)
	}
	if snap.EditAvg != 15*time.Millisecond {
		t.Errorf("EditAvg = %v, want 15ms", snap.EditAvg)
	}
	if snap.EditMax != 30*time.Millisecond {
		t.Errorf("EditMax = %v, want 30ms", snap.EditMax)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RecordRejected()
	m.RecordRejected()
	m.RecordChange()

	snap := m.Snapshot()
	if snap.Rejected != 2 {
		t.Errorf("Rejected = %d, want 2", snap.Rejected)
	}
	if snap.Changes != 1 {
		t.Errorf("Changes = %d, want 1", snap.Changes)
	}
	if snap.Uptime <= 0 {
		t.Errorf("Uptime = %v", snap.Uptime)
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.RecordEdit(d)
			m.RecordChange()
		}(time.Duration(i) * time.Millisecond)
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Edits != 50 || snap.Changes != 50 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EditMax != 50*time.Millisecond {
		t.Errorf("EditMax = %v, want 50ms", snap.EditMax)
	}
}
