// Package pipeline wires the full per-frame processing chain: hand tracking,
// gesture classification with temporal smoothing, sequence detection,
// trajectory matching, bimanual detection, and the drawing canvas.
//
// A Pipeline is single-threaded and deterministic: timestamps are always
// supplied by the caller, so replaying a recorded observation stream
// produces exactly the events of the live run. Concurrent streams each need
// their own Pipeline instance; instances share no state.
package pipeline

import (
	"time"

	"github.com/ayusman/mudra/internal/bimanual"
	"github.com/ayusman/mudra/internal/canvas"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/sequence"
	"github.com/ayusman/mudra/internal/tracker"
	"github.com/ayusman/mudra/internal/trajectory"
)

// Config holds construction options for a Pipeline. Zero values select the
// built-in defaults.
type Config struct {
	// Registry supplies the rule-based gesture definitions. Defaults to the
	// built-in set.
	Registry *gesture.Registry
	// Classifier overrides the rule classifier, e.g. with a loaded MLP
	// model. When nil the rule classifier over Registry is used.
	Classifier gesture.Classifier
	// Sequences defaults to the built-in sequence definitions.
	Sequences *sequence.Detector
	// Trajectories defaults to the built-in trajectory templates.
	Trajectories *trajectory.Tracker
	// Canvas defaults to a fresh drawing canvas.
	Canvas *canvas.Canvas

	SmoothingWindow int
	Cooldown        time.Duration
}

// FrameResult carries every event produced by one Process call.
type FrameResult struct {
	Gestures     []gesture.Event    `json:"gestures,omitempty"`
	Sequences    []sequence.Event   `json:"sequences,omitempty"`
	Trajectories []trajectory.Event `json:"trajectories,omitempty"`
	Bimanual     []bimanual.Event   `json:"bimanual,omitempty"`
	Draw         []canvas.Command   `json:"draw,omitempty"`
	// Dropped counts observations rejected by validation this frame.
	Dropped int `json:"dropped,omitempty"`
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	TotalFrames       int                `json:"total_frames"`
	TotalGestures     int                `json:"total_gestures"`
	TotalSequences    int                `json:"total_sequences"`
	TotalTrajectories int                `json:"total_trajectories"`
	TotalBimanual     int                `json:"total_bimanual"`
	TotalDrawCommands int                `json:"total_draw_commands"`
	DroppedHands      int                `json:"dropped_hands"`
	ActiveHands       int                `json:"active_hands"`
	Thresholds        map[string]float64 `json:"thresholds"`
}

// Pipeline owns one instance of every processing stage.
type Pipeline struct {
	registry     *gesture.Registry
	classifier   gesture.Classifier
	tracker      *tracker.Tracker
	smoother     *gesture.Smoother
	sequences    *sequence.Detector
	trajectories *trajectory.Tracker
	bimanual     *bimanual.Detector
	canvas       *canvas.Canvas

	known map[int]struct{}

	totalFrames       int
	totalGestures     int
	totalSequences    int
	totalTrajectories int
	totalBimanual     int
	totalDraw         int
	droppedHands      int
}

// New creates a pipeline from the given config.
func New(cfg Config) *Pipeline {
	registry := cfg.Registry
	if registry == nil {
		registry = gesture.DefaultRegistry()
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = gesture.NewRuleClassifier(registry)
	}
	sequences := cfg.Sequences
	if sequences == nil {
		sequences = sequence.NewDefaultDetector()
	}
	trajectories := cfg.Trajectories
	if trajectories == nil {
		trajectories = trajectory.NewDefaultTracker()
	}
	board := cfg.Canvas
	if board == nil {
		board = canvas.New()
	}

	thresholds := gesture.NewAdaptiveThresholds(gesture.DefaultBaseThreshold)
	for _, d := range registry.Definitions() {
		thresholds.Seed(d.Name, d.MinConfidence)
	}

	return &Pipeline{
		registry:     registry,
		classifier:   classifier,
		tracker:      tracker.New(),
		smoother:     gesture.NewSmoother(cfg.SmoothingWindow, cfg.Cooldown, thresholds),
		sequences:    sequences,
		trajectories: trajectories,
		bimanual:     bimanual.NewDetector(),
		canvas:       board,
		known:        make(map[int]struct{}),
	}
}

// Process runs one frame of observations through every stage and returns
// the events it produced. Invalid hands are dropped individually; the rest
// of the frame still processes.
func (p *Pipeline) Process(hands []landmark.Hand, now time.Time) FrameResult {
	p.totalFrames++

	var result FrameResult

	valid := hands[:0:0]
	for i := range hands {
		if err := hands[i].Validate(); err != nil {
			result.Dropped++
			p.droppedHands++
			continue
		}
		valid = append(valid, hands[i])
	}

	tracked := p.tracker.Update(valid, now)
	p.forgetEvicted(tracked)

	for i, th := range tracked {
		normalized := th.Hand.Normalize()
		raw, ok := p.classifier.Classify(&normalized)
		if ok {
			if evt, confirmed := p.smoother.Observe(th.ID, raw, now); confirmed {
				result.Gestures = append(result.Gestures, evt)
				p.totalGestures++

				if seq, matched := p.sequences.Feed(th.ID, evt.Gesture, now); matched {
					result.Sequences = append(result.Sequences, seq)
					p.totalSequences++
				}
			}
		}

		// The first detected hand holds the brush.
		if i == 0 {
			label := ""
			if ok {
				label = raw.Label
			}
			if cmds := p.canvas.Update(th.Hand, label, now); len(cmds) > 0 {
				result.Draw = append(result.Draw, cmds...)
				p.totalDraw += len(cmds)
			}
		}

		if evt, matched := p.trajectories.Update(th.ID, th.Hand.Centroid(), now); matched {
			result.Trajectories = append(result.Trajectories, evt)
			p.totalTrajectories++
		}
	}

	rawHands := make([]landmark.Hand, len(tracked))
	for i := range tracked {
		rawHands[i] = tracked[i].Hand
	}
	if events := p.bimanual.Update(rawHands, now); len(events) > 0 {
		result.Bimanual = append(result.Bimanual, events...)
		p.totalBimanual += len(events)
	}

	return result
}

// forgetEvicted drops per-hand state in every stage for tracks the tracker
// no longer reports live.
func (p *Pipeline) forgetEvicted(tracked []tracker.TrackedHand) {
	live := make(map[int]struct{}, len(tracked))
	for _, trk := range p.tracker.Active() {
		live[trk.ID] = struct{}{}
	}
	for id := range p.known {
		if _, ok := live[id]; !ok {
			p.smoother.Forget(id)
			p.sequences.Forget(id)
			p.trajectories.Forget(id)
			delete(p.known, id)
		}
	}
	for _, th := range tracked {
		p.known[th.ID] = struct{}{}
	}
}

// RegisterGesture validates and adds a gesture definition at runtime, and
// seeds its adaptive threshold from the definition's min confidence.
func (p *Pipeline) RegisterGesture(def gesture.Definition) error {
	if err := p.registry.Register(def); err != nil {
		return err
	}
	p.smoother.Thresholds().Seed(def.Name, def.MinConfidence)
	return nil
}

// RegisterSequence validates and adds a sequence definition at runtime.
func (p *Pipeline) RegisterSequence(def sequence.Definition) error {
	return p.sequences.Register(def)
}

// RegisterTrajectory validates and adds a trajectory template at runtime.
func (p *Pipeline) RegisterTrajectory(tmpl trajectory.Template) error {
	return p.trajectories.RegisterTemplate(tmpl)
}

// Gestures lists the registered gesture definitions.
func (p *Pipeline) Gestures() []gesture.Definition {
	return p.registry.Definitions()
}

// Sequences lists the registered sequence definitions.
func (p *Pipeline) Sequences() []sequence.Definition {
	return p.sequences.Definitions()
}

// Trajectories lists the registered trajectory templates.
func (p *Pipeline) Trajectories() []trajectory.Template {
	return p.trajectories.Templates()
}

// ActiveTracks returns a snapshot of the live hand tracks.
func (p *Pipeline) ActiveTracks() []tracker.Track {
	return p.tracker.Active()
}

// StartRecording begins trajectory template capture under the given name.
func (p *Pipeline) StartRecording(name string) error {
	return p.trajectories.StartRecording(name)
}

// StopRecording finishes trajectory capture and registers the template.
func (p *Pipeline) StopRecording(minScore float64) (trajectory.Template, error) {
	return p.trajectories.StopRecording(minScore)
}

// Recording reports the trajectory template name being recorded, or "".
func (p *Pipeline) Recording() string {
	return p.trajectories.Recording()
}

// CanvasState returns the drawing canvas command history, used to catch up
// clients that join mid-drawing.
func (p *Pipeline) CanvasState() []canvas.Command {
	return p.canvas.State()
}

// ClearCanvas wipes the drawing canvas.
func (p *Pipeline) ClearCanvas() {
	p.canvas.Clear()
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		TotalFrames:       p.totalFrames,
		TotalGestures:     p.totalGestures,
		TotalSequences:    p.totalSequences,
		TotalTrajectories: p.totalTrajectories,
		TotalBimanual:     p.totalBimanual,
		TotalDrawCommands: p.totalDraw,
		DroppedHands:      p.droppedHands,
		ActiveHands:       p.tracker.ActiveCount(),
		Thresholds:        p.smoother.Thresholds().Snapshot(),
	}
}
