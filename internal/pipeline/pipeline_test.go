package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/sequence"
	"github.com/ayusman/mudra/internal/trajectory"
)

const frameStep = 33 * time.Millisecond

func TestGestureConfirmedThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	var events []gesture.Event
	for i := 0; i < 5; i++ {
		result := p.Process([]landmark.Hand{landmark.OpenHand()}, now)
		events = append(events, result.Gestures...)
		now = now.Add(frameStep)
	}

	if len(events) != 1 {
		t.Fatalf("got %d gesture events, want 1", len(events))
	}
	if events[0].Gesture != "open_hand" {
		t.Errorf("gesture = %q, want open_hand", events[0].Gesture)
	}
	if events[0].HandID != 0 {
		t.Errorf("hand id = %d, want 0", events[0].HandID)
	}
}

func TestInvalidHandDroppedOthersProcess(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	bad := landmark.OpenHand()
	bad.Points[0].X = math.NaN()

	var events []gesture.Event
	for i := 0; i < 5; i++ {
		result := p.Process([]landmark.Hand{landmark.OpenHand(), bad}, now)
		if result.Dropped != 1 {
			t.Fatalf("frame %d: dropped = %d, want 1", i, result.Dropped)
		}
		events = append(events, result.Gestures...)
		now = now.Add(frameStep)
	}

	if len(events) != 1 {
		t.Fatalf("got %d gesture events, want 1", len(events))
	}
	if got := p.Stats().DroppedHands; got != 5 {
		t.Errorf("dropped hands counter = %d, want 5", got)
	}
	if got := p.Stats().ActiveHands; got != 1 {
		t.Errorf("active hands = %d, want 1", got)
	}
}

func TestSequenceCompletesThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	var sequences []sequence.Event
	for i := 0; i < 5; i++ {
		result := p.Process([]landmark.Hand{landmark.OpenHand()}, now)
		sequences = append(sequences, result.Sequences...)
		now = now.Add(frameStep)
	}
	for i := 0; i < 5; i++ {
		result := p.Process([]landmark.Hand{landmark.Fist()}, now)
		sequences = append(sequences, result.Sequences...)
		now = now.Add(frameStep)
	}

	if len(sequences) != 1 {
		t.Fatalf("got %d sequence events, want 1", len(sequences))
	}
	if sequences[0].Sequence != "grab" {
		t.Errorf("sequence = %q, want grab", sequences[0].Sequence)
	}
	if sequences[0].HandID != 0 {
		t.Errorf("hand id = %d, want 0", sequences[0].HandID)
	}
}

func TestTrajectoryMatchedThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	var names []string
	for i := 0; i <= 20; i++ {
		h := landmark.Translate(landmark.OpenHand(), -0.3+0.03*float64(i), 0, 0)
		result := p.Process([]landmark.Hand{h}, now)
		for _, e := range result.Trajectories {
			names = append(names, e.Name)
		}
		now = now.Add(frameStep)
	}
	still := landmark.Translate(landmark.OpenHand(), 0.3, 0, 0)
	for i := 0; i < 6; i++ {
		result := p.Process([]landmark.Hand{still}, now)
		for _, e := range result.Trajectories {
			names = append(names, e.Name)
		}
		now = now.Add(frameStep)
	}

	if len(names) != 1 || names[0] != "swipe_right" {
		t.Fatalf("trajectory events = %v, want [swipe_right]", names)
	}
}

func TestBimanualDetectedThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	left := landmark.Translate(landmark.LShape(), -0.2, 0, 0)
	right := landmark.Translate(landmark.MirrorX(landmark.LShape()), 0.2, 0, 0)

	result := p.Process([]landmark.Hand{left, right}, now)
	if len(result.Bimanual) != 1 || result.Bimanual[0].Gesture != "frame" {
		t.Fatalf("bimanual events = %v, want one frame event", result.Bimanual)
	}
}

func TestEvictionResetsHandState(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	for i := 0; i < 5; i++ {
		p.Process([]landmark.Hand{landmark.OpenHand()}, now)
		now = now.Add(frameStep)
	}

	// A long gap evicts the track; the hand reappears elsewhere.
	now = now.Add(700 * time.Millisecond)
	moved := landmark.Translate(landmark.OpenHand(), 0.4, 0, 0)

	var events []gesture.Event
	for i := 0; i < 3; i++ {
		result := p.Process([]landmark.Hand{moved}, now)
		events = append(events, result.Gestures...)
		now = now.Add(frameStep)
	}

	tracks := p.ActiveTracks()
	if len(tracks) != 1 || tracks[0].ID != 1 {
		t.Fatalf("tracks = %v, want a single track with fresh id 1", tracks)
	}

	// Smoothing restarted: confirmation takes a full fresh majority again.
	if len(events) != 1 {
		t.Fatalf("got %d gesture events after eviction, want 1", len(events))
	}
	if events[0].HandID != 1 {
		t.Errorf("hand id = %d, want 1", events[0].HandID)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	script := func(p *Pipeline) []FrameResult {
		now := time.Unix(100, 0)
		var results []FrameResult

		for i := 0; i < 5; i++ {
			results = append(results, p.Process([]landmark.Hand{landmark.OpenHand()}, now))
			now = now.Add(frameStep)
		}
		for i := 0; i < 5; i++ {
			results = append(results, p.Process([]landmark.Hand{landmark.Fist()}, now))
			now = now.Add(frameStep)
		}
		for i := 0; i <= 20; i++ {
			h := landmark.Translate(landmark.Fist(), -0.3+0.03*float64(i), 0, 0)
			results = append(results, p.Process([]landmark.Hand{h}, now))
			now = now.Add(frameStep)
		}
		left := landmark.Translate(landmark.LShape(), -0.2, 0, 0)
		right := landmark.Translate(landmark.MirrorX(landmark.LShape()), 0.2, 0, 0)
		for i := 0; i < 6; i++ {
			results = append(results, p.Process([]landmark.Hand{left, right}, now))
			now = now.Add(frameStep)
		}
		return results
	}

	first := script(New(Config{}))
	second := script(New(Config{}))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replay diverged (-first +second):\n%s", diff)
	}
}

func TestRuntimeRegistration(t *testing.T) {
	p := New(Config{})

	err := p.RegisterGesture(gesture.Definition{
		Name:          "bad",
		Thumb:         "sideways",
		Index:         gesture.Any,
		Middle:        gesture.Any,
		Ring:          gesture.Any,
		Pinky:         gesture.Any,
		MinConfidence: 0.5,
	})
	if !errors.Is(err, gesture.ErrInvalidDefinition) {
		t.Errorf("invalid gesture error = %v, want ErrInvalidDefinition", err)
	}

	err = p.RegisterGesture(gesture.Definition{
		Name:          "three_up",
		Thumb:         gesture.Curled,
		Index:         gesture.Extended,
		Middle:        gesture.Extended,
		Ring:          gesture.Extended,
		Pinky:         gesture.Curled,
		MinConfidence: 0.9,
	})
	if err != nil {
		t.Fatalf("register gesture: %v", err)
	}
	found := false
	for _, d := range p.Gestures() {
		if d.Name == "three_up" {
			found = true
		}
	}
	if !found {
		t.Error("registered gesture missing from listing")
	}
	if got := p.Stats().Thresholds["three_up"]; got != 0.9 {
		t.Errorf("seeded threshold = %f, want 0.9", got)
	}

	if err := p.RegisterSequence(sequence.Definition{Name: "empty"}); !errors.Is(err, sequence.ErrInvalidDefinition) {
		t.Errorf("invalid sequence error = %v, want ErrInvalidDefinition", err)
	}
	err = p.RegisterSequence(sequence.Definition{
		Name:        "triple_up",
		Gestures:    []string{"three_up", "fist"},
		MaxDuration: time.Second,
	})
	if err != nil {
		t.Fatalf("register sequence: %v", err)
	}

	if err := p.RegisterTrajectory(trajectory.Template{Name: ""}); !errors.Is(err, trajectory.ErrInvalidTemplate) {
		t.Errorf("invalid template error = %v, want ErrInvalidTemplate", err)
	}
}

func TestRecordingControl(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	if _, err := p.StopRecording(0.6); !errors.Is(err, trajectory.ErrNotRecording) {
		t.Errorf("idle stop error = %v, want ErrNotRecording", err)
	}

	if err := p.StartRecording("custom_path"); err != nil {
		t.Fatalf("start recording: %v", err)
	}
	if got := p.Recording(); got != "custom_path" {
		t.Fatalf("recording = %q, want custom_path", got)
	}

	for i := 0; i <= 10; i++ {
		h := landmark.Translate(landmark.Fist(), 0.04*float64(i), 0.02*float64(i), 0)
		p.Process([]landmark.Hand{h}, now)
		now = now.Add(frameStep)
	}

	tmpl, err := p.StopRecording(0.65)
	if err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	if tmpl.Name != "custom_path" {
		t.Errorf("template name = %q, want custom_path", tmpl.Name)
	}

	found := false
	for _, reg := range p.Trajectories() {
		if reg.Name == "custom_path" {
			found = true
		}
	}
	if !found {
		t.Error("recorded template missing from listing")
	}
}

func TestDrawCommandsThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	var lines int
	for i := 0; i < 5; i++ {
		h := landmark.Translate(landmark.Pointing(), float64(i)*0.05, 0, 0)
		result := p.Process([]landmark.Hand{h}, now)
		for _, cmd := range result.Draw {
			if cmd.Type == "line" {
				lines++
			}
		}
		now = now.Add(frameStep)
	}

	if lines == 0 {
		t.Fatal("moving pointing hand drew no lines")
	}
	if len(p.CanvasState()) != lines {
		t.Errorf("canvas history = %d commands, want %d", len(p.CanvasState()), lines)
	}
	if got := p.Stats().TotalDrawCommands; got != lines {
		t.Errorf("total draw commands = %d, want %d", got, lines)
	}

	p.ClearCanvas()
	state := p.CanvasState()
	if len(state) != 1 || state[0].Type != "clear" {
		t.Errorf("cleared canvas state = %+v, want a single clear", state)
	}
}

func TestFistErasesThroughPipeline(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	result := p.Process([]landmark.Hand{landmark.Fist()}, now)
	if len(result.Draw) != 1 || result.Draw[0].Type != "erase" {
		t.Fatalf("draw commands = %+v, want one erase", result.Draw)
	}
}

func TestStatsCounters(t *testing.T) {
	p := New(Config{})
	now := time.Unix(100, 0)

	for i := 0; i < 10; i++ {
		p.Process([]landmark.Hand{landmark.OpenHand()}, now)
		now = now.Add(frameStep)
	}

	stats := p.Stats()
	if stats.TotalFrames != 10 {
		t.Errorf("total frames = %d, want 10", stats.TotalFrames)
	}
	if stats.TotalGestures == 0 {
		t.Error("total gestures = 0, want at least one")
	}
	if stats.ActiveHands != 1 {
		t.Errorf("active hands = %d, want 1", stats.ActiveHands)
	}
	if len(stats.Thresholds) == 0 {
		t.Error("thresholds snapshot empty")
	}
}
