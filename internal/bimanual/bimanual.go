// Package bimanual detects coordinated two-hand gestures: pinch-to-zoom,
// clap, frame, and conducting motion. It evaluates raw per-tick landmark
// state directly, independent of the single-hand smoothing pipeline, since
// coordination timing matters more than per-frame label stability.
package bimanual

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

// Detector defaults.
const (
	DefaultHistorySize  = 30
	DefaultZoomThresh   = 0.03
	DefaultClapDistance = 0.12
	DefaultClapVelocity = 0.3

	conductMinVelocity = 0.15
	conductWindow      = 8
	clapLookback       = 5

	zoomCooldown    = 100 * time.Millisecond
	clapCooldown    = time.Second
	frameCooldown   = time.Second
	conductCooldown = 300 * time.Millisecond
)

// Event is a detected two-hand gesture. Value carries the gesture's
// semantic quantity: zoom factor for pinch_zoom, convergence velocity for
// clap, inter-hand width for frame, average vertical velocity for conduct.
type Event struct {
	Gesture       string           `json:"gesture"`
	Value         float64          `json:"value"`
	Confidence    float64          `json:"confidence"`
	LeftCentroid  landmark.Point3D `json:"left_centroid"`
	RightCentroid landmark.Point3D `json:"right_centroid"`
	Timestamp     time.Time        `json:"timestamp"`
}

type handState struct {
	hand     landmark.Hand
	centroid landmark.Point3D
}

type snapshot struct {
	left  handState
	right handState
	at    time.Time
}

// Detector evaluates pairs of hands each tick. Left and right are assigned
// by ascending centroid x every tick, not stickily by hand id.
type Detector struct {
	historySize  int
	zoomThresh   float64
	clapDistance float64
	clapVelocity float64

	history      []snapshot
	lastDistance float64
	haveDistance bool
	cooldowns    map[string]time.Time
}

// NewDetector creates a detector with default thresholds.
func NewDetector() *Detector {
	return &Detector{
		historySize:  DefaultHistorySize,
		zoomThresh:   DefaultZoomThresh,
		clapDistance: DefaultClapDistance,
		clapVelocity: DefaultClapVelocity,
		cooldowns:    make(map[string]time.Time),
	}
}

// Update feeds the current tick's hands. Anything other than exactly two
// hands clears the inter-hand distance baseline and detects nothing.
func (d *Detector) Update(hands []landmark.Hand, now time.Time) []Event {
	if len(hands) != 2 {
		d.haveDistance = false
		return nil
	}

	a, b := hands[0], hands[1]
	ca, cb := a.Centroid(), b.Centroid()
	if cb.X < ca.X {
		a, b = b, a
		ca, cb = cb, ca
	}

	d.history = append(d.history, snapshot{
		left:  handState{hand: a, centroid: ca},
		right: handState{hand: b, centroid: cb},
		at:    now,
	})
	if len(d.history) > d.historySize {
		d.history = d.history[len(d.history)-d.historySize:]
	}

	var events []Event
	if evt, ok := d.detectZoom(ca, cb, now); ok {
		events = append(events, evt)
	}
	if evt, ok := d.detectClap(ca, cb, now); ok {
		events = append(events, evt)
	}
	if evt, ok := d.detectFrame(&a, &b, ca, cb, now); ok {
		events = append(events, evt)
	}
	if evt, ok := d.detectConducting(now); ok {
		events = append(events, evt)
	}
	return events
}

// Reset clears all state.
func (d *Detector) Reset() {
	d.history = nil
	d.haveDistance = false
	d.cooldowns = make(map[string]time.Time)
}

func (d *Detector) ready(gesture string, now time.Time, cooldown time.Duration) bool {
	last, ok := d.cooldowns[gesture]
	return !ok || now.Sub(last) >= cooldown
}

// planarDistance measures hand separation on the image plane only; depth
// estimates from the landmark detector are too noisy for thresholds.
func planarDistance(a, b landmark.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (d *Detector) detectZoom(left, right landmark.Point3D, now time.Time) (Event, bool) {
	distance := planarDistance(left, right)

	if d.haveDistance {
		delta := distance - d.lastDistance
		if math.Abs(delta) > d.zoomThresh && d.ready("pinch_zoom", now, zoomCooldown) {
			factor := distance / math.Max(d.lastDistance, 1e-6)
			d.lastDistance = distance
			d.cooldowns["pinch_zoom"] = now
			return Event{
				Gesture:       "pinch_zoom",
				Value:         factor,
				Confidence:    math.Min(1.0, math.Abs(delta)/0.1),
				LeftCentroid:  left,
				RightCentroid: right,
				Timestamp:     now,
			}, true
		}
	}

	d.lastDistance = distance
	d.haveDistance = true
	return Event{}, false
}

func (d *Detector) detectClap(left, right landmark.Point3D, now time.Time) (Event, bool) {
	if !d.ready("clap", now, clapCooldown) {
		return Event{}, false
	}

	distance := planarDistance(left, right)
	if distance > d.clapDistance {
		return Event{}, false
	}
	if len(d.history) < clapLookback {
		return Event{}, false
	}

	prev := d.history[len(d.history)-clapLookback]
	dt := now.Sub(prev.at).Seconds()
	if dt < 1e-6 {
		return Event{}, false
	}

	prevDistance := planarDistance(prev.left.centroid, prev.right.centroid)
	velocity := (prevDistance - distance) / dt
	if velocity <= d.clapVelocity {
		return Event{}, false
	}

	d.cooldowns["clap"] = now
	return Event{
		Gesture:       "clap",
		Value:         velocity,
		Confidence:    math.Min(1.0, velocity),
		LeftCentroid:  left,
		RightCentroid: right,
		Timestamp:     now,
	}, true
}

// isLShape reports whether thumb and index are extended while middle and
// ring are curled, measured by tip vs PIP distance from the wrist.
func isLShape(h *landmark.Hand) bool {
	wrist := h.Points[landmark.Wrist]
	dist := func(i int) float64 {
		return landmark.Distance(h.Points[i], wrist)
	}
	return dist(landmark.ThumbTip) > dist(landmark.ThumbIP) &&
		dist(landmark.IndexTip) > dist(landmark.IndexPIP) &&
		dist(landmark.MiddleTip) < dist(landmark.MiddlePIP) &&
		dist(landmark.RingTip) < dist(landmark.RingPIP)
}

// palmNormal returns the unit normal of the palm plane spanned by the
// wrist-to-index-MCP and wrist-to-pinky-MCP vectors.
func palmNormal(h *landmark.Hand) landmark.Point3D {
	wrist := h.Points[landmark.Wrist]
	u := h.Points[landmark.IndexMCP].Sub(wrist)
	v := h.Points[landmark.PinkyMCP].Sub(wrist)
	n := u.Cross(v)
	norm := n.Norm()
	if norm < 1e-8 {
		return landmark.Point3D{}
	}
	return landmark.Point3D{X: n.X / norm, Y: n.Y / norm, Z: n.Z / norm}
}

func (d *Detector) detectFrame(left, right *landmark.Hand, lc, rc landmark.Point3D, now time.Time) (Event, bool) {
	if !d.ready("frame", now, frameCooldown) {
		return Event{}, false
	}
	if !isLShape(left) || !isLShape(right) {
		return Event{}, false
	}

	// The two L-shapes must face each other: palms on opposite sides.
	if palmNormal(left).Dot(palmNormal(right)) >= 0 {
		return Event{}, false
	}

	d.cooldowns["frame"] = now
	return Event{
		Gesture:       "frame",
		Value:         planarDistance(lc, rc),
		Confidence:    0.85,
		LeftCentroid:  lc,
		RightCentroid: rc,
		Timestamp:     now,
	}, true
}

func (d *Detector) detectConducting(now time.Time) (Event, bool) {
	if !d.ready("conduct", now, conductCooldown) {
		return Event{}, false
	}
	if len(d.history) < conductWindow {
		return Event{}, false
	}

	recent := d.history[len(d.history)-conductWindow:]
	dt := recent[len(recent)-1].at.Sub(recent[0].at).Seconds()
	if dt < 0.05 {
		return Event{}, false
	}

	leftVel := (recent[len(recent)-1].left.centroid.Y - recent[0].left.centroid.Y) / dt
	rightVel := (recent[len(recent)-1].right.centroid.Y - recent[0].right.centroid.Y) / dt

	if math.Abs(leftVel) <= conductMinVelocity || math.Abs(rightVel) <= conductMinVelocity {
		return Event{}, false
	}
	if leftVel*rightVel <= 0 {
		return Event{}, false
	}

	// Image y grows downward.
	gesture := "conduct_up"
	if leftVel > 0 {
		gesture = "conduct_down"
	}
	avg := (math.Abs(leftVel) + math.Abs(rightVel)) / 2

	d.cooldowns["conduct"] = now
	last := recent[len(recent)-1]
	return Event{
		Gesture:       gesture,
		Value:         avg,
		Confidence:    math.Min(1.0, avg/0.5),
		LeftCentroid:  last.left.centroid,
		RightCentroid: last.right.centroid,
		Timestamp:     now,
	}, true
}
