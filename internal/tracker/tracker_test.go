package tracker

import (
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStableIDAcrossFrames(t *testing.T) {
	trk := New()
	h := landmark.OpenHand()

	first := trk.Update([]landmark.Hand{h}, t0)
	if len(first) != 1 {
		t.Fatalf("expected 1 tracked hand, got %d", len(first))
	}
	id := first[0].ID

	// Small drift should keep the same id
	for i := 1; i <= 10; i++ {
		moved := landmark.Translate(h, float64(i)*0.01, 0, 0)
		got := trk.Update([]landmark.Hand{moved}, t0.Add(time.Duration(i)*33*time.Millisecond))
		if got[0].ID != id {
			t.Fatalf("frame %d: id changed from %d to %d", i, id, got[0].ID)
		}
	}
}

func TestNoSharedIDs(t *testing.T) {
	trk := New()
	left := landmark.Translate(landmark.OpenHand(), -0.25, 0, 0)
	right := landmark.Translate(landmark.Fist(), 0.25, 0, 0)

	for i := 0; i < 20; i++ {
		now := t0.Add(time.Duration(i) * 33 * time.Millisecond)
		got := trk.Update([]landmark.Hand{left, right}, now)
		if len(got) != 2 {
			t.Fatalf("frame %d: expected 2 tracked hands, got %d", i, len(got))
		}
		if got[0].ID == got[1].ID {
			t.Fatalf("frame %d: both hands share id %d", i, got[0].ID)
		}
	}
}

func TestEvictionAfterTimeout(t *testing.T) {
	trk := New()
	h := landmark.OpenHand()

	first := trk.Update([]landmark.Hand{h}, t0)
	id := first[0].ID

	// Nothing for 600ms → the track must be evicted, and a nearby detection
	// afterwards must get a fresh id.
	later := t0.Add(600 * time.Millisecond)
	got := trk.Update([]landmark.Hand{h}, later)
	if got[0].ID == id {
		t.Errorf("expected new id after eviction, got %d again", id)
	}
	if trk.ActiveCount() != 1 {
		t.Errorf("expected 1 active track, got %d", trk.ActiveCount())
	}
}

func TestSurvivesShortGap(t *testing.T) {
	trk := New()
	h := landmark.OpenHand()

	first := trk.Update([]landmark.Hand{h}, t0)
	id := first[0].ID

	// 400ms gap is inside the timeout
	got := trk.Update([]landmark.Hand{h}, t0.Add(400*time.Millisecond))
	if got[0].ID != id {
		t.Errorf("expected id %d after short gap, got %d", id, got[0].ID)
	}
}

func TestGreedyNearestAssignment(t *testing.T) {
	trk := New()
	a := landmark.Translate(landmark.OpenHand(), -0.2, 0, 0)
	b := landmark.Translate(landmark.OpenHand(), 0.2, 0, 0)

	got := trk.Update([]landmark.Hand{a, b}, t0)
	idA, idB := got[0].ID, got[1].ID

	// Swap detection order; ids must follow the positions, not the order.
	got = trk.Update([]landmark.Hand{b, a}, t0.Add(33*time.Millisecond))
	if got[0].ID != idB || got[1].ID != idA {
		t.Errorf("ids did not follow positions: got (%d, %d), want (%d, %d)",
			got[0].ID, got[1].ID, idB, idA)
	}
}

func TestDistantDetectionSpawnsNewTrack(t *testing.T) {
	trk := New()
	h := landmark.OpenHand()

	first := trk.Update([]landmark.Hand{h}, t0)
	id := first[0].ID

	// A detection 0.5 away exceeds the 0.3 matching radius
	far := landmark.Translate(h, 0.5, 0, 0)
	got := trk.Update([]landmark.Hand{far}, t0.Add(33*time.Millisecond))
	if got[0].ID == id {
		t.Error("expected a new track for a distant detection")
	}
	if trk.ActiveCount() != 2 {
		t.Errorf("expected 2 active tracks, got %d", trk.ActiveCount())
	}
}

func TestActiveSnapshot(t *testing.T) {
	trk := New()
	trk.Update([]landmark.Hand{landmark.OpenHand()}, t0)

	active := trk.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active track, got %d", len(active))
	}
	if !active[0].LastSeen.Equal(t0) {
		t.Errorf("expected last seen %v, got %v", t0, active[0].LastSeen)
	}
}
