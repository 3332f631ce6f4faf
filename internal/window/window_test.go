package window

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecordAndCount_AccumulatesWithinWindow(t *testing.T) {
	s := New()
	apiID := uuid.New()

	var last int
	for i := 0; i < 5; i++ {
		last = s.RecordAndCount(apiID, "1.2.3.4", float64(i), 60)
	}
	if last != 5 {
		t.Errorf("count = %d, want 5", last)
	}
}

func TestRecordAndCount_PrunesOutsideWindow(t *testing.T) {
	s := New()
	apiID := uuid.New()

	s.RecordAndCount(apiID, "1.2.3.4", 0, 10)
	s.RecordAndCount(apiID, "1.2.3.4", 5, 10)

	// This event is more than windowSeconds after the first two, which must
	// fall out of the window.
	count := s.RecordAndCount(apiID, "1.2.3.4", 20, 10)
	if count != 1 {
		t.Errorf("count after pruning = %d, want 1", count)
	}
}

func TestRecordAndCount_KeysAreIndependent(t *testing.T) {
	s := New()
	apiA := uuid.New()
	apiB := uuid.New()

	s.RecordAndCount(apiA, "1.1.1.1", 0, 60)
	s.RecordAndCount(apiA, "1.1.1.1", 1, 60)
	countA := s.RecordAndCount(apiA, "1.1.1.1", 2, 60)
	countB := s.RecordAndCount(apiB, "1.1.1.1", 2, 60)

	if countA != 3 {
		t.Errorf("countA = %d, want 3", countA)
	}
	if countB != 1 {
		t.Errorf("countB = %d, want 1 (different api_id is a different key)", countB)
	}

	countOtherIP := s.RecordAndCount(apiA, "2.2.2.2", 2, 60)
	if countOtherIP != 1 {
		t.Errorf("countOtherIP = %d, want 1 (different client_ip is a different key)", countOtherIP)
	}
}

func TestSweep_RemovesStaleWindows(t *testing.T) {
	s := New()
	apiID := uuid.New()

	s.RecordAndCount(apiID, "1.2.3.4", 0, 60)

	k := key(apiID, "1.2.3.4")
	sh := s.shardFor(k)

	// Sweep well past 2*windowSeconds after the only recorded timestamp.
	s.Sweep(1000, 60)

	sh.mu.Lock()
	_, exists := sh.windows[k]
	sh.mu.Unlock()

	if exists {
		t.Error("expected stale window to be deleted by Sweep")
	}
}

func TestSweep_KeepsRecentWindows(t *testing.T) {
	s := New()
	apiID := uuid.New()

	s.RecordAndCount(apiID, "1.2.3.4", 100, 60)
	s.Sweep(110, 60)

	k := key(apiID, "1.2.3.4")
	sh := s.shardFor(k)

	sh.mu.Lock()
	events, exists := sh.windows[k]
	sh.mu.Unlock()

	if !exists || len(events) != 1 {
		t.Errorf("expected window to survive Sweep within margin, got exists=%v events=%v", exists, events)
	}
}
