package gesture

import (
	"time"
)

// Event is a confirmed gesture emission for one tracked hand.
type Event struct {
	Gesture    string        `json:"gesture"`
	Confidence float64       `json:"confidence"`
	HandID     int           `json:"hand_id"`
	Timestamp  time.Time     `json:"timestamp"`
	// Latency is how long the gesture took to clear the smoothing window:
	// the span from the oldest contributing raw classification to now.
	Latency time.Duration `json:"latency"`
}

// Smoothing defaults.
const (
	DefaultWindow        = 5
	DefaultCooldown      = 500 * time.Millisecond
	DefaultConfusionSpan = time.Second
	DefaultBaseThreshold = 0.6
)

// Adaptive threshold tuning. Confused gestures climb quickly; stable ones
// decay slowly, one step per confirmation streak.
const (
	confusionStep  = 0.02
	decayStep      = 0.005
	decayStreak    = 10
	thresholdCeil  = 0.95
	thresholdFloor = 0.3
)

type windowEntry struct {
	label      string
	confidence float64
	at         time.Time
}

type confirmedRecord struct {
	label string
	at    time.Time
}

// AdaptiveThresholds maintains a per-gesture confidence threshold seeded
// from each definition's min confidence. Rapid alternation between
// confirmed gestures raises both thresholds; long stable runs drift a
// gesture's threshold back down toward its floor.
type AdaptiveThresholds struct {
	base       map[string]float64
	current    map[string]float64
	confusions map[string]int
	streaks    map[string]int
	defaultTo  float64
}

// NewAdaptiveThresholds creates the threshold table. Gestures never seeded
// use defaultBase.
func NewAdaptiveThresholds(defaultBase float64) *AdaptiveThresholds {
	return &AdaptiveThresholds{
		base:       make(map[string]float64),
		current:    make(map[string]float64),
		confusions: make(map[string]int),
		streaks:    make(map[string]int),
		defaultTo:  defaultBase,
	}
}

// Seed sets a gesture's starting threshold, typically its definition's
// min confidence. Seeding an already-adapted gesture is a no-op.
func (a *AdaptiveThresholds) Seed(gesture string, base float64) {
	if _, ok := a.base[gesture]; ok {
		return
	}
	a.base[gesture] = base
	a.current[gesture] = base
}

func (a *AdaptiveThresholds) ensure(gesture string) {
	if _, ok := a.current[gesture]; !ok {
		a.base[gesture] = a.defaultTo
		a.current[gesture] = a.defaultTo
	}
}

// Threshold returns the gesture's current emission threshold.
func (a *AdaptiveThresholds) Threshold(gesture string) float64 {
	a.ensure(gesture)
	return a.current[gesture]
}

func (a *AdaptiveThresholds) floorFor(gesture string) float64 {
	f := a.base[gesture] - 0.1
	if f < thresholdFloor {
		f = thresholdFloor
	}
	return f
}

// Confuse records that the gesture took part in a rapid confirmed switch
// and raises its threshold, bounded above.
func (a *AdaptiveThresholds) Confuse(gesture string) {
	a.ensure(gesture)
	a.confusions[gesture]++
	a.streaks[gesture] = 0
	t := a.current[gesture] + confusionStep
	if t > thresholdCeil {
		t = thresholdCeil
	}
	a.current[gesture] = t
}

// Stable records one uninterrupted confirmation. Every full streak lowers
// the threshold a step, bounded below.
func (a *AdaptiveThresholds) Stable(gesture string) {
	a.ensure(gesture)
	a.streaks[gesture]++
	if a.streaks[gesture] < decayStreak {
		return
	}
	a.streaks[gesture] = 0
	t := a.current[gesture] - decayStep
	if f := a.floorFor(gesture); t < f {
		t = f
	}
	a.current[gesture] = t
}

// Snapshot returns the current per-gesture thresholds.
func (a *AdaptiveThresholds) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(a.current))
	for k, v := range a.current {
		out[k] = v
	}
	return out
}

// ConfusionCount returns how many rapid switches a gesture has been part of.
func (a *AdaptiveThresholds) ConfusionCount(gesture string) int {
	return a.confusions[gesture]
}

// Smoother turns raw per-frame classifications into confirmed gesture
// events. Per hand it keeps a sliding window of raw (label, confidence)
// results; a label is confirmed when it holds a strict majority of the
// window, and emitted when its mean confidence clears the gesture's
// adaptive threshold and the per-gesture cooldown has elapsed.
type Smoother struct {
	window        int
	cooldown      time.Duration
	confusionSpan time.Duration

	thresholds *AdaptiveThresholds

	histories     map[int][]windowEntry
	lastConfirmed map[int]confirmedRecord
	lastEmitted   map[int]map[string]time.Time
}

// NewSmoother creates a smoother. window and cooldown fall back to the
// defaults when zero.
func NewSmoother(window int, cooldown time.Duration, thresholds *AdaptiveThresholds) *Smoother {
	if window <= 0 {
		window = DefaultWindow
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if thresholds == nil {
		thresholds = NewAdaptiveThresholds(DefaultBaseThreshold)
	}
	return &Smoother{
		window:        window,
		cooldown:      cooldown,
		confusionSpan: DefaultConfusionSpan,
		thresholds:    thresholds,
		histories:     make(map[int][]windowEntry),
		lastConfirmed: make(map[int]confirmedRecord),
		lastEmitted:   make(map[int]map[string]time.Time),
	}
}

// Thresholds exposes the adaptive threshold table for seeding and stats.
func (s *Smoother) Thresholds() *AdaptiveThresholds {
	return s.thresholds
}

// Observe feeds one raw classification for a hand and reports whether a
// confirmed gesture event should be emitted this frame.
func (s *Smoother) Observe(handID int, raw Result, now time.Time) (Event, bool) {
	hist := append(s.histories[handID], windowEntry{label: raw.Label, confidence: raw.Confidence, at: now})
	if len(hist) > s.window {
		hist = hist[len(hist)-s.window:]
	}
	s.histories[handID] = hist

	label, meanConf, oldest, confirmed := s.majority(hist)
	if !confirmed {
		return Event{}, false
	}

	s.bookkeepConfusion(handID, label, now)

	if meanConf < s.thresholds.Threshold(label) {
		return Event{}, false
	}

	// Per-gesture cooldown, independent of confirmation
	emitted := s.lastEmitted[handID]
	if emitted == nil {
		emitted = make(map[string]time.Time)
		s.lastEmitted[handID] = emitted
	}
	if last, ok := emitted[label]; ok && now.Sub(last) < s.cooldown {
		return Event{}, false
	}
	emitted[label] = now

	return Event{
		Gesture:    label,
		Confidence: meanConf,
		HandID:     handID,
		Timestamp:  now,
		Latency:    now.Sub(oldest),
	}, true
}

// majority finds the label holding a strict majority of the configured
// window size. Confidence is the mean over the matching entries; oldest is
// the timestamp of the earliest matching entry.
func (s *Smoother) majority(hist []windowEntry) (label string, meanConf float64, oldest time.Time, ok bool) {
	counts := make(map[string]int, len(hist))
	for _, e := range hist {
		counts[e.label]++
	}

	best, bestCount := "", 0
	for l, c := range counts {
		if c > bestCount || (c == bestCount && l < best) {
			best, bestCount = l, c
		}
	}

	if bestCount <= s.window/2 {
		return "", 0, time.Time{}, false
	}

	sum := 0.0
	first := true
	for _, e := range hist {
		if e.label != best {
			continue
		}
		sum += e.confidence
		if first || e.at.Before(oldest) {
			oldest = e.at
			first = false
		}
	}
	return best, sum / float64(bestCount), oldest, true
}

// bookkeepConfusion updates the adaptive thresholds: a confirmed gesture
// immediately displaced by a different confirmed gesture within the
// confusion span counts against both; repeats of the same confirmation
// extend that gesture's stable streak.
func (s *Smoother) bookkeepConfusion(handID int, label string, now time.Time) {
	prev, seen := s.lastConfirmed[handID]
	switch {
	case seen && prev.label == label:
		s.thresholds.Stable(label)
	case seen && now.Sub(prev.at) <= s.confusionSpan:
		s.thresholds.Confuse(prev.label)
		s.thresholds.Confuse(label)
	default:
		s.thresholds.Stable(label)
	}
	s.lastConfirmed[handID] = confirmedRecord{label: label, at: now}
}

// Forget drops all smoothing state for a hand, used when its track is
// evicted.
func (s *Smoother) Forget(handID int) {
	delete(s.histories, handID)
	delete(s.lastConfirmed, handID)
	delete(s.lastEmitted, handID)
}
