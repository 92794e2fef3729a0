package canvas

import (
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

func handAt(x, y float64) landmark.Hand {
	var h landmark.Hand
	h.Points[landmark.IndexTip] = landmark.Point3D{X: x, Y: y}
	return h
}

func commandTypes(cmds []Command) []string {
	types := make([]string, len(cmds))
	for i, c := range cmds {
		types[i] = c.Type
	}
	return types
}

func TestDrawLine(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cmds := c.Update(handAt(0.1, 0.5), "pointing", base)
	if len(cmds) != 0 {
		t.Errorf("Expected no commands on the first frame, got %v", commandTypes(cmds))
	}

	cmds = c.Update(handAt(0.5, 0.5), "pointing", base.Add(100*time.Millisecond))
	if len(cmds) != 1 || cmds[0].Type != "line" {
		t.Fatalf("Expected one line command, got %v", commandTypes(cmds))
	}
	line := cmds[0]
	if line.X1 != 0.1 || line.Y1 != 0.5 || line.X2 != 0.5 || line.Y2 != 0.5 {
		t.Errorf("Unexpected line coordinates: %+v", line)
	}
	if line.Color != "#ffffff" {
		t.Errorf("Expected white default brush, got %s", line.Color)
	}
	if !c.Drawing() {
		t.Error("Expected canvas to be drawing")
	}
}

func TestEraseOnFist(t *testing.T) {
	c := New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cmds := c.Update(handAt(0.5, 0.5), "fist", base)
	if len(cmds) != 1 || cmds[0].Type != "erase" {
		t.Fatalf("Expected one erase command, got %v", commandTypes(cmds))
	}
	if cmds[0].X != 0.5 || cmds[0].Y != 0.5 {
		t.Errorf("Unexpected erase position: %+v", cmds[0])
	}
	if cmds[0].Radius != DefaultEraseRadius {
		t.Errorf("Expected radius %v, got %v", DefaultEraseRadius, cmds[0].Radius)
	}
	if c.Drawing() {
		t.Error("Erasing should not count as drawing")
	}
}

func TestColorChange(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	cmds := c.Update(handAt(0.3, 0.3), "peace", base)
	if len(cmds) != 1 || cmds[0].Type != "color" {
		t.Fatalf("Expected one color command, got %v", commandTypes(cmds))
	}
	if cmds[0].Color != "#22c55e" {
		t.Errorf("Expected peace to select green, got %s", cmds[0].Color)
	}

	// Same gesture again: no repeat color command, a line instead.
	cmds = c.Update(handAt(0.5, 0.3), "peace", base.Add(100*time.Millisecond))
	if len(cmds) != 1 || cmds[0].Type != "line" {
		t.Fatalf("Expected a single line after the color switch, got %v", commandTypes(cmds))
	}
	if cmds[0].Color != "#22c55e" {
		t.Errorf("Line should use the current brush color, got %s", cmds[0].Color)
	}
}

func TestShakeClears(t *testing.T) {
	c := New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	clears := 0
	for i := 0; i < 10; i++ {
		x := 0.3
		if i%2 == 1 {
			x = 0.5
		}
		cmds := c.Update(handAt(x, 0.5), "open_hand", base.Add(time.Duration(i)*50*time.Millisecond))
		for _, cmd := range cmds {
			if cmd.Type == "clear" {
				clears++
			}
		}
	}

	if clears != 1 {
		t.Fatalf("Expected exactly 1 clear from shaking, got %d", clears)
	}
	state := c.State()
	if len(state) != 1 || state[0].Type != "clear" {
		t.Errorf("Expected history reset to a single clear, got %v", commandTypes(state))
	}
}

func TestSlowWaveDoesNotClear(t *testing.T) {
	c := New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same oscillation but spread over far more than the shake span.
	for i := 0; i < 10; i++ {
		x := 0.3
		if i%2 == 1 {
			x = 0.5
		}
		cmds := c.Update(handAt(x, 0.5), "open_hand", base.Add(time.Duration(i)*400*time.Millisecond))
		for _, cmd := range cmds {
			if cmd.Type == "clear" {
				t.Fatal("Slow movement should not clear the canvas")
			}
		}
	}
}

func TestUnknownGestureLiftsBrush(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Update(handAt(0.1, 0.1), "pointing", base)
	c.Update(handAt(0.2, 0.1), "pointing", base.Add(50*time.Millisecond))

	cmds := c.Update(handAt(0.5, 0.5), "", base.Add(100*time.Millisecond))
	if len(cmds) != 0 {
		t.Errorf("Expected no commands for an unknown gesture, got %v", commandTypes(cmds))
	}
	if c.Drawing() {
		t.Error("Brush should be up after an unknown gesture")
	}

	// Resuming starts a new stroke: the first frame only anchors the point.
	cmds = c.Update(handAt(0.8, 0.8), "pointing", base.Add(150*time.Millisecond))
	if len(cmds) != 0 {
		t.Errorf("Expected no line bridging the gap, got %v", commandTypes(cmds))
	}
}

func TestJitterSuppressed(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Update(handAt(0.5, 0.5), "pointing", base)
	cmds := c.Update(handAt(0.5001, 0.5), "pointing", base.Add(33*time.Millisecond))
	if len(cmds) != 0 {
		t.Errorf("Expected sub-epsilon movement to draw nothing, got %v", commandTypes(cmds))
	}
}

func TestStateAndClear(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c.Update(handAt(0.1, 0.1), "pointing", base)
	c.Update(handAt(0.5, 0.5), "pointing", base.Add(50*time.Millisecond))
	c.Update(handAt(0.6, 0.5), "fist", base.Add(100*time.Millisecond))

	state := c.State()
	if len(state) != 2 {
		t.Fatalf("Expected 2 commands in history, got %d", len(state))
	}
	if state[0].Type != "line" || state[1].Type != "erase" {
		t.Errorf("Unexpected history: %v", commandTypes(state))
	}
	if c.CommandCount() != 2 {
		t.Errorf("CommandCount = %d, want 2", c.CommandCount())
	}

	c.Clear()
	state = c.State()
	if len(state) != 1 || state[0].Type != "clear" {
		t.Errorf("Expected a single clear after Clear, got %v", commandTypes(state))
	}
}

func TestHistoryTrimKeepsClearPrefix(t *testing.T) {
	c := NewWithParams(DefaultLineWidth, DefaultEraseRadius, 1)
	c.maxHistory = 10
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 40; i++ {
		c.Update(handAt(float64(i)*0.01, 0.5), "pointing", base.Add(time.Duration(i)*33*time.Millisecond))
	}

	state := c.State()
	if len(state) > c.maxHistory {
		t.Fatalf("History not trimmed: %d commands", len(state))
	}
	if state[0].Type != "clear" {
		t.Errorf("Trimmed history should start with a clear, got %s", state[0].Type)
	}
}
