package dedup

import "testing"

func TestHasSeenFirstTimeFalse(t *testing.T) {
	r := NewWithParams(4, 1000)
	if r.HasSeen(2, 100, 0) {
		t.Error("first sighting should report not seen")
	}
}

func TestHasSeenDuplicateWithinWindow(t *testing.T) {
	r := NewWithParams(4, 1000)
	r.HasSeen(2, 100, 0)
	if !r.HasSeen(2, 100, 500) {
		t.Error("duplicate within window should report seen")
	}
}

func TestHasSeenOutsideWindow(t *testing.T) {
	r := NewWithParams(4, 1000)
	r.HasSeen(2, 100, 0)
	if r.HasSeen(2, 100, 1500) {
		t.Error("repeat outside the window should not be treated as a duplicate")
	}
}

func TestHasSeenDistinguishesOriginAndID(t *testing.T) {
	r := NewWithParams(4, 1000)
	r.HasSeen(2, 100, 0)
	if r.HasSeen(3, 100, 10) {
		t.Error("different origin must not collide")
	}
	if r.HasSeen(2, 101, 10) {
		t.Error("different id must not collide")
	}
}

func TestRingEvictsOldestOnOverflow(t *testing.T) {
	r := NewWithParams(2, 10_000)
	r.HasSeen(1, 1, 0)
	r.HasSeen(2, 2, 0)
	r.HasSeen(3, 3, 0) // overwrites the (1,1) slot

	// Check (2,2) first: a match returns early without touching the ring,
	// so this assertion doesn't disturb the state the next one depends on.
	if !r.HasSeen(2, 2, 1) {
		t.Error("entry still within capacity should remain seen")
	}
	if r.HasSeen(1, 1, 1) {
		t.Error("evicted entry should no longer be reported as seen")
	}
}

func TestClear(t *testing.T) {
	r := New()
	r.HasSeen(2, 100, 0)
	r.Clear()
	if r.HasSeen(2, 100, 10) {
		t.Error("Clear should forget all entries")
	}
}
