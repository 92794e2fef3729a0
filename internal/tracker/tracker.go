// Package tracker assigns stable identities to hands observed across frames.
package tracker

import (
	"sort"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

// Default matching parameters.
const (
	// DefaultMaxDistance is the largest centroid distance (in normalized
	// frame units) at which a detection can be matched to an existing track.
	DefaultMaxDistance = 0.3
	// DefaultTimeout is how long a track survives without a matching detection.
	DefaultTimeout = 500 * time.Millisecond
)

// Track is one hand identity maintained across frames.
type Track struct {
	ID       int              `json:"id"`
	Centroid landmark.Point3D `json:"centroid"`
	LastSeen time.Time        `json:"last_seen"`
	Frames   int              `json:"frames"`
}

// TrackedHand pairs a stable hand id with the landmarks observed this frame.
type TrackedHand struct {
	ID   int
	Hand landmark.Hand
}

// Tracker matches per-frame detections to existing tracks by centroid
// distance. IDs are monotonic; an id is never shared by two tracks that
// are active at the same time.
type Tracker struct {
	maxDistance float64
	timeout     time.Duration
	nextID      int
	tracks      []*Track
}

// New creates a Tracker with the default distance and timeout parameters.
func New() *Tracker {
	return NewWithParams(DefaultMaxDistance, DefaultTimeout)
}

// NewWithParams creates a Tracker with explicit matching parameters.
func NewWithParams(maxDistance float64, timeout time.Duration) *Tracker {
	return &Tracker{
		maxDistance: maxDistance,
		timeout:     timeout,
	}
}

type candidate struct {
	trackIdx int
	detIdx   int
	dist     float64
}

// Update matches the frame's detections against current tracks and returns
// them with stable ids, in detection order.
//
// Matching is greedy over globally sorted (track, detection) pairs: the
// smallest-distance pair is accepted first, both sides are removed from
// further consideration, and so on. A pair is accepted only if its distance
// is under the max-distance parameter. Unmatched detections spawn new
// tracks; tracks unmatched for longer than the timeout are evicted.
//
// The timestamp is always supplied by the caller so that live capture and
// recorded replay behave identically.
func (t *Tracker) Update(hands []landmark.Hand, now time.Time) []TrackedHand {
	t.evict(now)

	if len(hands) == 0 {
		return nil
	}

	centroids := make([]landmark.Point3D, len(hands))
	for i := range hands {
		centroids[i] = hands[i].Centroid()
	}

	// Enumerate every (track, detection) pair within range.
	var pairs []candidate
	for ti, trk := range t.tracks {
		for di, c := range centroids {
			d := landmark.Distance(trk.Centroid, c)
			if d < t.maxDistance {
				pairs = append(pairs, candidate{trackIdx: ti, detIdx: di, dist: d})
			}
		}
	}

	// Accept pairs in ascending distance order. Ties break on track id then
	// detection index so replay stays deterministic.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		if pairs[i].trackIdx != pairs[j].trackIdx {
			return pairs[i].trackIdx < pairs[j].trackIdx
		}
		return pairs[i].detIdx < pairs[j].detIdx
	})

	assigned := make([]int, len(hands)) // detection → track id
	for i := range assigned {
		assigned[i] = -1
	}
	usedTracks := make(map[int]bool)
	usedDets := make(map[int]bool)

	for _, p := range pairs {
		if usedTracks[p.trackIdx] || usedDets[p.detIdx] {
			continue
		}
		usedTracks[p.trackIdx] = true
		usedDets[p.detIdx] = true

		trk := t.tracks[p.trackIdx]
		trk.Centroid = centroids[p.detIdx]
		trk.LastSeen = now
		trk.Frames++
		assigned[p.detIdx] = trk.ID
	}

	// Unmatched detections become new tracks.
	for di := range hands {
		if assigned[di] >= 0 {
			continue
		}
		trk := &Track{
			ID:       t.nextID,
			Centroid: centroids[di],
			LastSeen: now,
			Frames:   1,
		}
		t.nextID++
		t.tracks = append(t.tracks, trk)
		assigned[di] = trk.ID
	}

	out := make([]TrackedHand, len(hands))
	for di := range hands {
		out[di] = TrackedHand{ID: assigned[di], Hand: hands[di]}
	}
	return out
}

// evict drops tracks unmatched for longer than the timeout.
func (t *Tracker) evict(now time.Time) {
	kept := t.tracks[:0]
	for _, trk := range t.tracks {
		if now.Sub(trk.LastSeen) <= t.timeout {
			kept = append(kept, trk)
		}
	}
	// Zero the tail so evicted tracks can be collected.
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
}

// Active returns a snapshot of all live tracks, ordered by id.
func (t *Tracker) Active() []Track {
	out := make([]Track, len(t.tracks))
	for i, trk := range t.tracks {
		out[i] = *trk
	}
	return out
}

// ActiveCount returns the number of live tracks.
func (t *Tracker) ActiveCount() int {
	return len(t.tracks)
}
