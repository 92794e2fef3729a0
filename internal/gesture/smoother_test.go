package gesture

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const frameStep = 33 * time.Millisecond

// feed pushes n identical raw classifications, advancing one frame each
// time, and returns any emitted events plus the timestamp after the run.
func feed(s *Smoother, handID int, label string, conf float64, n int, start time.Time) ([]Event, time.Time) {
	var events []Event
	now := start
	for i := 0; i < n; i++ {
		if evt, ok := s.Observe(handID, Result{Label: label, Confidence: conf}, now); ok {
			events = append(events, evt)
		}
		now = now.Add(frameStep)
	}
	return events, now
}

func TestMajorityConfirms(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)

	events, _ := feed(s, 0, "fist", 0.9, 3, t0)
	if len(events) != 1 {
		t.Fatalf("expected 1 event after 3 of 5 frames, got %d", len(events))
	}
	if events[0].Gesture != "fist" {
		t.Errorf("expected fist, got %q", events[0].Gesture)
	}
	if events[0].Confidence < 0.899 || events[0].Confidence > 0.901 {
		t.Errorf("expected mean confidence 0.9, got %f", events[0].Confidence)
	}
	if events[0].HandID != 0 {
		t.Errorf("expected hand 0, got %d", events[0].HandID)
	}
}

func TestNonMajorityConfirmsNothing(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)

	labels := []string{"fist", "open_hand", "peace", "fist", "open_hand"}
	now := t0
	for _, l := range labels {
		if _, ok := s.Observe(0, Result{Label: l, Confidence: 0.95}, now); ok {
			t.Fatalf("no label holds a majority, yet %q was confirmed", l)
		}
		now = now.Add(frameStep)
	}
}

func TestConfirmedConfidenceIsMeanOfMatches(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)

	confs := []float64{0.8, 0.9, 1.0}
	now := t0
	var got *Event
	for _, c := range confs {
		if evt, ok := s.Observe(0, Result{Label: "fist", Confidence: c}, now); ok {
			got = &evt
		}
		now = now.Add(frameStep)
	}
	if got == nil {
		t.Fatal("expected a confirmation")
	}
	if got.Confidence < 0.899 || got.Confidence > 0.901 {
		t.Errorf("expected mean 0.9, got %f", got.Confidence)
	}
}

func TestLatencySpansWindow(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)

	events, _ := feed(s, 0, "fist", 0.9, 3, t0)
	if len(events) != 1 {
		t.Fatal("expected 1 event")
	}
	// Three contributing frames, the first two frameSteps earlier
	if events[0].Latency != 2*frameStep {
		t.Errorf("expected latency %v, got %v", 2*frameStep, events[0].Latency)
	}
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	s := NewSmoother(5, 500*time.Millisecond, nil)

	// 33ms frames: confirmation holds from frame 3 onward, but only the first
	// and the post-cooldown confirmations emit.
	events, _ := feed(s, 0, "fist", 0.9, 30, t0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events over ~1s, got %d", len(events))
	}
	gap := events[1].Timestamp.Sub(events[0].Timestamp)
	if gap < 500*time.Millisecond {
		t.Errorf("second emission after %v, inside the 500ms cooldown", gap)
	}
}

func TestHandsAreIndependent(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)

	now := t0
	for i := 0; i < 3; i++ {
		s.Observe(0, Result{Label: "fist", Confidence: 0.9}, now)
		now = now.Add(frameStep)
	}
	// Hand 1 has seen nothing; a single frame must not confirm.
	if _, ok := s.Observe(1, Result{Label: "fist", Confidence: 0.9}, now); ok {
		t.Error("hand 1 confirmed from hand 0's history")
	}
}

func TestAlternationRaisesBothThresholds(t *testing.T) {
	th := NewAdaptiveThresholds(DefaultBaseThreshold)
	th.Seed("fist", 0.6)
	th.Seed("open_hand", 0.6)
	s := NewSmoother(3, time.Millisecond, th)

	baseFist := th.Threshold("fist")
	baseOpen := th.Threshold("open_hand")

	// Rapid alternation: confirm fist, then open_hand, repeatedly.
	now := t0
	prevFist, prevOpen := baseFist, baseOpen
	for round := 0; round < 5; round++ {
		_, now = feed(s, 0, "fist", 0.99, 3, now)
		_, now = feed(s, 0, "open_hand", 0.99, 3, now)

		curFist, curOpen := th.Threshold("fist"), th.Threshold("open_hand")
		if curFist < prevFist || curOpen < prevOpen {
			t.Fatalf("round %d: thresholds decreased (%f→%f, %f→%f)",
				round, prevFist, curFist, prevOpen, curOpen)
		}
		prevFist, prevOpen = curFist, curOpen
	}

	if prevFist <= baseFist {
		t.Errorf("fist threshold did not rise: %f", prevFist)
	}
	if prevOpen <= baseOpen {
		t.Errorf("open_hand threshold did not rise: %f", prevOpen)
	}
	if prevFist > 0.95 || prevOpen > 0.95 {
		t.Errorf("thresholds exceeded the ceiling: %f, %f", prevFist, prevOpen)
	}
}

func TestStableRunLowersThreshold(t *testing.T) {
	th := NewAdaptiveThresholds(DefaultBaseThreshold)
	th.Seed("fist", 0.6)
	s := NewSmoother(3, time.Millisecond, th)

	base := th.Threshold("fist")
	feed(s, 0, "fist", 0.99, 400, t0)

	got := th.Threshold("fist")
	if got >= base {
		t.Errorf("threshold did not drift down: %f", got)
	}
	if got < 0.5-1e-9 {
		t.Errorf("threshold fell below the floor (base−0.1): %f", got)
	}
}

func TestEmissionRequiresAdaptiveThreshold(t *testing.T) {
	th := NewAdaptiveThresholds(DefaultBaseThreshold)
	th.Seed("fist", 0.9)
	s := NewSmoother(5, DefaultCooldown, th)

	events, _ := feed(s, 0, "fist", 0.7, 10, t0)
	if len(events) != 0 {
		t.Fatalf("confidence 0.7 cleared threshold 0.9: %d events", len(events))
	}
}

func TestForgetDropsHandState(t *testing.T) {
	s := NewSmoother(5, DefaultCooldown, nil)
	_, now := feed(s, 0, "fist", 0.9, 3, t0)

	s.Forget(0)
	if _, ok := s.Observe(0, Result{Label: "fist", Confidence: 0.9}, now); ok {
		t.Error("confirmed immediately after Forget")
	}
}

func TestConfusionCountTracksSwitches(t *testing.T) {
	th := NewAdaptiveThresholds(DefaultBaseThreshold)
	s := NewSmoother(3, time.Millisecond, th)

	now := t0
	_, now = feed(s, 0, "fist", 0.99, 3, now)
	_, now = feed(s, 0, "open_hand", 0.99, 3, now)

	if th.ConfusionCount("fist") == 0 || th.ConfusionCount("open_hand") == 0 {
		t.Error("expected both gestures to record a confusion")
	}
}
