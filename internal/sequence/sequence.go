// Package sequence detects ordered multi-gesture sequences, such as
// fist→open_hand ("release"), from the stream of confirmed gesture events.
package sequence

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDefinition is returned when a sequence definition fails
// validation at registration time.
var ErrInvalidDefinition = errors.New("invalid sequence definition")

// Definition is a named, ordered list of gesture names that must all occur
// on one hand within MaxDuration.
type Definition struct {
	Name        string        `json:"name"`
	Gestures    []string      `json:"gestures"`
	MaxDuration time.Duration `json:"max_duration"`
	Description string        `json:"description,omitempty"`
}

// Validate checks the definition's structure.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if len(d.Gestures) == 0 {
		return fmt.Errorf("%w: %q has no gestures", ErrInvalidDefinition, d.Name)
	}
	for i, g := range d.Gestures {
		if g == "" {
			return fmt.Errorf("%w: %q step %d is empty", ErrInvalidDefinition, d.Name, i)
		}
	}
	if d.MaxDuration <= 0 {
		return fmt.Errorf("%w: %q has non-positive max duration", ErrInvalidDefinition, d.Name)
	}
	return nil
}

// Event is a completed gesture sequence on a single hand.
type Event struct {
	Sequence  string        `json:"sequence"`
	Gestures  []string      `json:"gestures"`
	HandID    int           `json:"hand_id"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

type historyEntry struct {
	gesture string
	at      time.Time
}

// Detector matches confirmed gesture streams against registered sequence
// definitions. Histories are strictly per hand; a sequence never spans two
// hand ids.
type Detector struct {
	defs      []Definition
	histories map[int][]historyEntry
	maxWindow time.Duration // longest MaxDuration among definitions
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{histories: make(map[int][]historyEntry)}
}

// Register validates and adds a sequence definition.
func (d *Detector) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	d.defs = append(d.defs, def)
	if def.MaxDuration > d.maxWindow {
		d.maxWindow = def.MaxDuration
	}
	return nil
}

// Definitions returns a copy of the registered definitions in order.
func (d *Detector) Definitions() []Definition {
	out := make([]Definition, len(d.defs))
	copy(out, d.defs)
	return out
}

// Feed appends a confirmed gesture for a hand and reports a completed
// sequence, if any.
//
// A definition completes when its ordered gesture list equals a contiguous
// trailing run of the hand's history ending at this event, and the elapsed
// time from the run's first step is within the definition's max duration.
// When several definitions complete on the same event the longest wins,
// ties resolving to registration order. The matched hand's history is
// cleared on emission so the same material cannot re-trigger.
func (d *Detector) Feed(handID int, gesture string, now time.Time) (Event, bool) {
	hist := append(d.histories[handID], historyEntry{gesture: gesture, at: now})

	// History only needs to cover the longest definition window.
	cutoff := now.Add(-d.maxWindow)
	for len(hist) > 0 && hist[0].at.Before(cutoff) {
		hist = hist[1:]
	}
	d.histories[handID] = hist

	bestIdx := -1
	for i := range d.defs {
		def := &d.defs[i]
		if !d.trailingMatch(def, hist, now) {
			continue
		}
		if bestIdx < 0 || len(def.Gestures) > len(d.defs[bestIdx].Gestures) {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Event{}, false
	}

	def := d.defs[bestIdx]
	runStart := hist[len(hist)-len(def.Gestures)].at
	delete(d.histories, handID)

	return Event{
		Sequence:  def.Name,
		Gestures:  append([]string(nil), def.Gestures...),
		HandID:    handID,
		Duration:  now.Sub(runStart),
		Timestamp: now,
	}, true
}

// trailingMatch reports whether the definition's gesture list matches the
// trailing run of history within its time bound.
func (d *Detector) trailingMatch(def *Definition, hist []historyEntry, now time.Time) bool {
	n := len(def.Gestures)
	if len(hist) < n {
		return false
	}
	tail := hist[len(hist)-n:]
	for i, want := range def.Gestures {
		if tail[i].gesture != want {
			return false
		}
	}
	return now.Sub(tail[0].at) <= def.MaxDuration
}

// Forget drops the history for a hand, used when its track is evicted.
func (d *Detector) Forget(handID int) {
	delete(d.histories, handID)
}

// NewDefaultDetector returns a detector preloaded with the built-in
// sequences.
func NewDefaultDetector() *Detector {
	det := NewDetector()

	builtins := []Definition{
		{
			Name:        "release",
			Gestures:    []string{"fist", "open_hand"},
			MaxDuration: 1500 * time.Millisecond,
			Description: "Open hand from fist — release/drop action",
		},
		{
			Name:        "grab",
			Gestures:    []string{"open_hand", "fist"},
			MaxDuration: 1500 * time.Millisecond,
			Description: "Close hand — grab/pick up action",
		},
		{
			Name:        "pinch_release",
			Gestures:    []string{"ok_sign", "open_hand"},
			MaxDuration: 1500 * time.Millisecond,
			Description: "Release from pinch grip",
		},
		{
			Name:        "peace_out",
			Gestures:    []string{"peace", "fist"},
			MaxDuration: 2 * time.Second,
			Description: "Peace sign then close — dismiss/exit",
		},
		{
			Name:        "wave",
			Gestures:    []string{"open_hand", "fist", "open_hand"},
			MaxDuration: 2 * time.Second,
			Description: "Quick open-close-open — wave gesture",
		},
		{
			Name:        "point_and_click",
			Gestures:    []string{"pointing", "fist"},
			MaxDuration: 1500 * time.Millisecond,
			Description: "Point then click — selection action",
		},
	}

	for _, def := range builtins {
		if err := det.Register(def); err != nil {
			panic(err)
		}
	}
	return det
}
