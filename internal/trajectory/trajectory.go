package trajectory

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
)

// ErrInvalidTemplate is returned when a trajectory template fails
// validation at registration time.
var ErrInvalidTemplate = errors.New("invalid trajectory template")

// ErrCorruptTemplate is returned when template data loaded from an
// external resource is unusable (non-finite or truncated points).
var ErrCorruptTemplate = errors.New("corrupt template data")

// ErrNotRecording is returned by StopRecording without a RecordingStart.
var ErrNotRecording = errors.New("not recording")

// ErrRecordingTooShort is returned when a recording ends before enough
// points were captured to form a template.
var ErrRecordingTooShort = errors.New("recording too short")

// ResamplePoints is the fixed number of points every path and template is
// resampled to before matching.
const ResamplePoints = 32

// minRecordingPoints is the smallest raw capture that can become a template.
const minRecordingPoints = 5

// Template is a named trajectory pattern for DTW matching.
type Template struct {
	Name        string  `json:"name"`
	Points      []Point `json:"points"`
	MinScore    float64 `json:"min_score"`
	Description string  `json:"description,omitempty"`
}

// Validate checks the template's structure.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTemplate)
	}
	if len(t.Points) < 2 {
		return fmt.Errorf("%w: %q has %d points, need at least 2", ErrInvalidTemplate, t.Name, len(t.Points))
	}
	if t.MinScore < 0 || t.MinScore > 1 {
		return fmt.Errorf("%w: %q min score %g outside [0, 1]", ErrInvalidTemplate, t.Name, t.MinScore)
	}
	for i, p := range t.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: %q point %d is non-finite", ErrCorruptTemplate, t.Name, i)
		}
	}
	return nil
}

// normalized returns the template path resampled to the standard length and
// normalized into a unit bounding box centered at the origin.
func (t *Template) normalized() []Point {
	return normalizePath(resamplePath(t.Points, ResamplePoints))
}

// Event is a matched spatial trajectory for one hand.
type Event struct {
	Name       string        `json:"name"`
	Score      float64       `json:"score"`
	HandID     int           `json:"hand_id"`
	Duration   time.Duration `json:"duration"`
	PathLength float64       `json:"path_length"`
	Timestamp  time.Time     `json:"timestamp"`
}

type pathSample struct {
	at time.Time
	p  Point
}

// Tracker accumulates per-hand centroid paths and matches completed
// movement segments against registered templates.
//
// A segment begins once instantaneous speed exceeds the start threshold
// and completes once speed falls back below it for a few consecutive
// frames. The completed path is resampled to 32 arc-length-spaced points,
// normalized, and matched with band-constrained DTW.
type Tracker struct {
	window        time.Duration
	minPathLength float64
	speedThresh   float64
	stillFrames   int
	cooldown      time.Duration
	bandWidth     int

	templates []Template
	paths     map[int][]pathSample
	moving    map[int]bool
	stillRun  map[int]int
	lastMatch map[int]time.Time

	recordingName   string
	recordingPoints []Point
}

// Tracker defaults.
const (
	DefaultWindow        = 2 * time.Second
	DefaultMinPathLength = 0.08
	DefaultSpeedThresh   = 0.005 // normalized units per second
	DefaultStillFrames   = 5
	DefaultCooldown      = time.Second
)

// NewTracker creates a tracker with default parameters and no templates.
func NewTracker() *Tracker {
	return &Tracker{
		window:        DefaultWindow,
		minPathLength: DefaultMinPathLength,
		speedThresh:   DefaultSpeedThresh,
		stillFrames:   DefaultStillFrames,
		cooldown:      DefaultCooldown,
		bandWidth:     DefaultBandWidth,
		paths:         make(map[int][]pathSample),
		moving:        make(map[int]bool),
		stillRun:      make(map[int]int),
		lastMatch:     make(map[int]time.Time),
	}
}

// RegisterTemplate validates and adds a template.
func (t *Tracker) RegisterTemplate(tmpl Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}
	t.templates = append(t.templates, tmpl)
	return nil
}

// Templates returns a copy of the registered templates in order.
func (t *Tracker) Templates() []Template {
	out := make([]Template, len(t.templates))
	copy(out, t.templates)
	return out
}

// StartRecording begins raw capture of a custom template under the given
// name, bypassing velocity segmentation until StopRecording.
func (t *Tracker) StartRecording(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTemplate)
	}
	if t.recordingName != "" {
		return fmt.Errorf("already recording %q", t.recordingName)
	}
	t.recordingName = name
	t.recordingPoints = nil
	return nil
}

// Recording reports the name being recorded, or "" when idle.
func (t *Tracker) Recording() string {
	return t.recordingName
}

// StopRecording finishes capture, registers the captured path as a new
// template with the given min score, and returns it.
func (t *Tracker) StopRecording(minScore float64) (Template, error) {
	if t.recordingName == "" {
		return Template{}, ErrNotRecording
	}
	name := t.recordingName
	points := t.recordingPoints
	t.recordingName = ""
	t.recordingPoints = nil

	if len(points) < minRecordingPoints {
		return Template{}, fmt.Errorf("%w: %d points, need %d", ErrRecordingTooShort, len(points), minRecordingPoints)
	}

	tmpl := Template{
		Name:     name,
		Points:   normalizePath(resamplePath(points, ResamplePoints)),
		MinScore: minScore,
	}
	if err := t.RegisterTemplate(tmpl); err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

// Update feeds one centroid observation for a hand and reports a matched
// trajectory, if a movement segment just completed and scored.
func (t *Tracker) Update(handID int, centroid landmark.Point3D, now time.Time) (Event, bool) {
	point := Point{X: centroid.X, Y: centroid.Y}

	if t.recordingName != "" {
		t.recordingPoints = append(t.recordingPoints, point)
	}

	path := t.paths[handID]

	// Prune samples older than the rolling window
	cutoff := now.Add(-t.window)
	for len(path) > 0 && path[0].at.Before(cutoff) {
		path = path[1:]
	}

	speed := 0.0
	if len(path) > 0 {
		last := path[len(path)-1]
		if dt := now.Sub(last.at).Seconds(); dt > 0 {
			speed = pointDistance(point, last.p) / dt
		}
	}

	path = append(path, pathSample{at: now, p: point})
	t.paths[handID] = path

	if speed > t.speedThresh {
		t.moving[handID] = true
		t.stillRun[handID] = 0
		return Event{}, false
	}

	if !t.moving[handID] {
		return Event{}, false
	}

	// Moving hand has slowed down; wait for a few still frames before
	// treating the segment as complete.
	t.stillRun[handID]++
	if t.stillRun[handID] < t.stillFrames {
		return Event{}, false
	}

	t.moving[handID] = false
	t.stillRun[handID] = 0

	if last, ok := t.lastMatch[handID]; ok && now.Sub(last) < t.cooldown {
		return Event{}, false
	}

	evt, ok := t.matchPath(handID, path, now)
	if ok {
		t.lastMatch[handID] = now
		delete(t.paths, handID)
	}
	return evt, ok
}

// matchPath resamples, normalizes, and scores the accumulated path against
// every template, returning the best match above its template's min score.
func (t *Tracker) matchPath(handID int, path []pathSample, now time.Time) (Event, bool) {
	if len(t.templates) == 0 || len(path) < 2 {
		return Event{}, false
	}

	points := make([]Point, len(path))
	for i, s := range path {
		points[i] = s.p
	}

	totalLength := 0.0
	for i := 1; i < len(points); i++ {
		totalLength += pointDistance(points[i-1], points[i])
	}
	if totalLength < t.minPathLength {
		return Event{}, false
	}

	normalized := normalizePath(resamplePath(points, ResamplePoints))
	duration := path[len(path)-1].at.Sub(path[0].at)

	best := Event{}
	found := false
	for i := range t.templates {
		tmpl := &t.templates[i]
		dist := BandedDTWDistance(normalized, tmpl.normalized(), t.bandWidth)
		score := ScoreFromDistance(dist)
		if score < tmpl.MinScore {
			continue
		}
		if !found || score > best.Score {
			best = Event{
				Name:       tmpl.Name,
				Score:      score,
				HandID:     handID,
				Duration:   duration,
				PathLength: totalLength,
				Timestamp:  now,
			}
			found = true
		}
	}
	return best, found
}

// MatchPath scores an arbitrary raw path against the registered templates,
// outside of any per-hand segmentation state. Used for replayed paths and
// introspection.
func (t *Tracker) MatchPath(points []Point) (name string, score float64, ok bool) {
	if len(points) < 2 {
		return "", 0, false
	}
	normalized := normalizePath(resamplePath(points, ResamplePoints))
	for i := range t.templates {
		tmpl := &t.templates[i]
		dist := BandedDTWDistance(normalized, tmpl.normalized(), t.bandWidth)
		s := ScoreFromDistance(dist)
		if s >= tmpl.MinScore && (!ok || s > score) {
			name, score, ok = tmpl.Name, s, true
		}
	}
	return name, score, ok
}

// Forget drops the path state for a hand, used when its track is evicted.
func (t *Tracker) Forget(handID int) {
	delete(t.paths, handID)
	delete(t.moving, handID)
	delete(t.stillRun, handID)
	delete(t.lastMatch, handID)
}

// resamplePath resamples a path to exactly n points spaced evenly by arc
// length, using linear interpolation between the original samples.
func resamplePath(points []Point, n int) []Point {
	if len(points) == 0 || n <= 0 {
		return nil
	}
	if len(points) == 1 || n == 1 {
		out := make([]Point, n)
		for i := range out {
			out[i] = points[0]
		}
		return out
	}

	segLengths := make([]float64, len(points)-1)
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		segLengths[i-1] = pointDistance(points[i-1], points[i])
		cum[i] = cum[i-1] + segLengths[i-1]
	}
	total := cum[len(cum)-1]

	if total < 1e-8 {
		out := make([]Point, n)
		for i := range out {
			out[i] = points[0]
		}
		return out
	}

	out := make([]Point, n)
	seg := 0
	for i := 0; i < n; i++ {
		target := total * float64(i) / float64(n-1)
		for seg < len(segLengths)-1 && cum[seg+1] < target {
			seg++
		}
		segLen := segLengths[seg]
		if segLen < 1e-8 {
			out[i] = points[seg]
			continue
		}
		frac := (target - cum[seg]) / segLen
		out[i] = Point{
			X: points[seg].X + frac*(points[seg+1].X-points[seg].X),
			Y: points[seg].Y + frac*(points[seg+1].Y-points[seg].Y),
		}
	}
	return out
}

// normalizePath centers a path on its centroid and scales each axis into a
// unit bounding box. Degenerate axes (no extent) are left unscaled.
func normalizePath(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}

	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(points))
	cy /= float64(len(points))

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	spanX := maxX - minX
	if spanX < 1e-8 {
		spanX = 1.0
	}
	spanY := maxY - minY
	if spanY < 1e-8 {
		spanY = 1.0
	}

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: (p.X - cx) / spanX, Y: (p.Y - cy) / spanY}
	}
	return out
}

// NewDefaultTracker returns a tracker preloaded with the built-in swipe,
// circle, Z and wave templates.
func NewDefaultTracker() *Tracker {
	t := NewTracker()

	line := func(n int, f func(i int) Point) []Point {
		pts := make([]Point, n)
		for i := range pts {
			pts[i] = f(i)
		}
		return pts
	}

	builtins := []Template{
		{
			Name:        "swipe_right",
			Points:      line(21, func(i int) Point { return Point{X: float64(i) / 20.0} }),
			MinScore:    0.60,
			Description: "Horizontal swipe from left to right",
		},
		{
			Name:        "swipe_left",
			Points:      line(21, func(i int) Point { return Point{X: 1.0 - float64(i)/20.0} }),
			MinScore:    0.60,
			Description: "Horizontal swipe from right to left",
		},
		{
			Name:        "swipe_up",
			Points:      line(21, func(i int) Point { return Point{Y: 1.0 - float64(i)/20.0} }),
			MinScore:    0.60,
			Description: "Vertical swipe upward",
		},
		{
			Name:        "swipe_down",
			Points:      line(21, func(i int) Point { return Point{Y: float64(i) / 20.0} }),
			MinScore:    0.60,
			Description: "Vertical swipe downward",
		},
		{
			Name: "circle_cw",
			Points: line(32, func(i int) Point {
				a := 2 * math.Pi * float64(i) / 32.0
				return Point{X: math.Cos(a), Y: math.Sin(a)}
			}),
			MinScore:    0.55,
			Description: "Clockwise circle",
		},
		{
			Name: "circle_ccw",
			Points: line(32, func(i int) Point {
				a := 2 * math.Pi * float64(31-i) / 32.0
				return Point{X: math.Cos(a), Y: math.Sin(a)}
			}),
			MinScore:    0.55,
			Description: "Counter-clockwise circle",
		},
		{
			Name:        "z_pattern",
			Points:      []Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
			MinScore:    0.55,
			Description: "Z-shaped pattern",
		},
		{
			Name:        "wave",
			Points:      wavePoints(),
			MinScore:    0.50,
			Description: "Horizontal wave motion",
		},
	}

	for _, tmpl := range builtins {
		if err := t.RegisterTemplate(tmpl); err != nil {
			panic(err)
		}
	}
	return t
}

// wavePoints builds a horizontal zigzag: five humps alternating above and
// below the baseline.
func wavePoints() []Point {
	var pts []Point
	for i := 0; i < 5; i++ {
		pts = append(pts, Point{X: float64(i) * 0.25})
		y := 0.3
		if i%2 == 1 {
			y = -0.3
		}
		pts = append(pts, Point{X: float64(i)*0.25 + 0.125, Y: y})
	}
	return append(pts, Point{X: 1.0})
}
