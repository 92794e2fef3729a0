// Package gesture provides gesture classification from hand landmarks:
// a declarative rule engine, a learned MLP classifier, and the temporal
// smoothing layer that turns raw per-frame labels into confirmed events.
package gesture

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/landmark"
)

// ErrInvalidDefinition is returned when a gesture definition fails
// structural validation at registration time.
var ErrInvalidDefinition = errors.New("invalid gesture definition")

// FingerState is the expected extension state of one finger.
type FingerState string

const (
	// Extended means the fingertip is farther from the wrist than its PIP joint.
	Extended FingerState = "extended"
	// Curled means the fingertip is closer to the wrist than its PIP joint.
	Curled FingerState = "curled"
	// Any matches either state.
	Any FingerState = "any"
)

func (s FingerState) valid() bool {
	return s == Extended || s == Curled || s == Any
}

// Fingertip and comparison-joint indices, thumb through pinky.
// The thumb compares against its IP joint; the others against their PIP.
var (
	fingerTips = [5]int{landmark.ThumbTip, landmark.IndexTip, landmark.MiddleTip, landmark.RingTip, landmark.PinkyTip}
	fingerPIPs = [5]int{landmark.ThumbIP, landmark.IndexPIP, landmark.MiddlePIP, landmark.RingPIP, landmark.PinkyPIP}
)

// ConstraintType selects the geometric check a Constraint performs.
type ConstraintType string

const (
	// ConstraintDistance bounds the Euclidean distance between two landmarks.
	ConstraintDistance ConstraintType = "distance"
	// ConstraintAngle bounds the angle (degrees) at the middle of three landmarks.
	ConstraintAngle ConstraintType = "angle"
)

// Constraint is a geometric condition over named landmarks.
type Constraint struct {
	Type      ConstraintType `json:"type"`
	Landmarks []int          `json:"landmarks"`
	Min       float64        `json:"min,omitempty"`
	Max       float64        `json:"max,omitempty"`
	MinAngle  float64        `json:"min_angle,omitempty"`
	MaxAngle  float64        `json:"max_angle,omitempty"`
}

func (c *Constraint) validate() error {
	for _, idx := range c.Landmarks {
		if idx < 0 || idx >= landmark.NumLandmarks {
			return fmt.Errorf("%w: landmark index %d out of range", ErrInvalidDefinition, idx)
		}
	}
	switch c.Type {
	case ConstraintDistance:
		if len(c.Landmarks) != 2 {
			return fmt.Errorf("%w: distance constraint needs 2 landmarks, got %d", ErrInvalidDefinition, len(c.Landmarks))
		}
		if c.Max < c.Min {
			return fmt.Errorf("%w: distance bounds [%g, %g] are not monotonic", ErrInvalidDefinition, c.Min, c.Max)
		}
	case ConstraintAngle:
		if len(c.Landmarks) != 3 {
			return fmt.Errorf("%w: angle constraint needs 3 landmarks, got %d", ErrInvalidDefinition, len(c.Landmarks))
		}
		if c.MaxAngle < c.MinAngle {
			return fmt.Errorf("%w: angle bounds [%g, %g] are not monotonic", ErrInvalidDefinition, c.MinAngle, c.MaxAngle)
		}
	default:
		return fmt.Errorf("%w: unknown constraint type %q", ErrInvalidDefinition, c.Type)
	}
	return nil
}

// satisfied reports whether the constraint holds for normalized landmarks.
func (c *Constraint) satisfied(h *landmark.Hand) bool {
	switch c.Type {
	case ConstraintDistance:
		d := landmark.Distance(h.Points[c.Landmarks[0]], h.Points[c.Landmarks[1]])
		return d >= c.Min && d <= c.Max
	case ConstraintAngle:
		a := h.Points[c.Landmarks[0]]
		b := h.Points[c.Landmarks[1]]
		cc := h.Points[c.Landmarks[2]]
		ba := a.Sub(b)
		bc := cc.Sub(b)
		cos := ba.Dot(bc) / (ba.Norm()*bc.Norm() + 1e-8)
		// Clamp before acos to avoid NaN on near-parallel vectors
		cos = math.Max(-1, math.Min(1, cos))
		deg := math.Acos(cos) * 180 / math.Pi
		return deg >= c.MinAngle && deg <= c.MaxAngle
	}
	return false
}

// Definition describes one gesture: an expected state per finger plus
// optional geometric constraints.
type Definition struct {
	Name          string       `json:"name"`
	Thumb         FingerState  `json:"thumb"`
	Index         FingerState  `json:"index"`
	Middle        FingerState  `json:"middle"`
	Ring          FingerState  `json:"ring"`
	Pinky         FingerState  `json:"pinky"`
	MinConfidence float64      `json:"min_confidence"`
	Constraints   []Constraint `json:"constraints,omitempty"`
}

// Validate checks the definition's structure. Definitions are rejected here,
// at registration time, never mid-matching.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	for _, s := range [5]FingerState{d.Thumb, d.Index, d.Middle, d.Ring, d.Pinky} {
		if !s.valid() {
			return fmt.Errorf("%w: %q: unknown finger state %q", ErrInvalidDefinition, d.Name, s)
		}
	}
	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		return fmt.Errorf("%w: %q: min confidence %g outside [0, 1]", ErrInvalidDefinition, d.Name, d.MinConfidence)
	}
	for i := range d.Constraints {
		if err := d.Constraints[i].validate(); err != nil {
			return fmt.Errorf("%q constraint %d: %w", d.Name, i, err)
		}
	}
	return nil
}

// expected returns the finger states in thumb→pinky order.
func (d *Definition) expected() [5]FingerState {
	return [5]FingerState{d.Thumb, d.Index, d.Middle, d.Ring, d.Pinky}
}

// FingerStates determines the extension state of each finger from
// normalized landmarks: a finger is extended when its tip is farther from
// the wrist than its PIP joint.
func FingerStates(h *landmark.Hand) [5]FingerState {
	var states [5]FingerState
	wrist := h.Points[landmark.Wrist]
	for i := 0; i < 5; i++ {
		tipDist := landmark.Distance(h.Points[fingerTips[i]], wrist)
		pipDist := landmark.Distance(h.Points[fingerPIPs[i]], wrist)
		if tipDist > pipDist {
			states[i] = Extended
		} else {
			states[i] = Curled
		}
	}
	return states
}

// Match scores normalized landmarks against the definition.
//
// The finger ratio is matched/checked over non-Any fingers (1.0 when none
// are checked). With constraints present, confidence blends
// 0.7·finger + 0.3·constraint; without, it is the finger ratio alone.
func (d *Definition) Match(h *landmark.Hand) (matched bool, confidence float64) {
	actual := FingerStates(h)
	expected := d.expected()

	matches, checked := 0, 0
	for i := 0; i < 5; i++ {
		if expected[i] == Any {
			continue
		}
		checked++
		if actual[i] == expected[i] {
			matches++
		}
	}

	fingerRatio := 1.0
	if checked > 0 {
		fingerRatio = float64(matches) / float64(checked)
	}

	if len(d.Constraints) == 0 {
		confidence = fingerRatio
	} else {
		satisfied := 0
		for i := range d.Constraints {
			if d.Constraints[i].satisfied(h) {
				satisfied++
			}
		}
		constraintRatio := float64(satisfied) / float64(len(d.Constraints))
		confidence = 0.7*fingerRatio + 0.3*constraintRatio
	}

	return confidence >= d.MinConfidence, confidence
}

// Registry is an ordered, per-pipeline collection of gesture definitions.
// Instances share nothing; each pipeline owns its own registry.
type Registry struct {
	defs []Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register validates and appends a definition. Registration order is the
// tie-break order during matching.
func (r *Registry) Register(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.defs = append(r.defs, d)
	return nil
}

// Match returns the highest-confidence accepted definition for normalized
// landmarks. Equal confidences resolve to the earliest-registered
// definition. ok is false when nothing accepts.
func (r *Registry) Match(h *landmark.Hand) (best Definition, confidence float64, ok bool) {
	for _, d := range r.defs {
		matched, conf := d.Match(h)
		if matched && (!ok || conf > confidence) {
			best = d
			confidence = conf
			ok = true
		}
	}
	return best, confidence, ok
}

// Definitions returns a copy of all registered definitions in order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// MinConfidenceFor returns the registered min confidence for a gesture
// name, or def when the name is unknown.
func (r *Registry) MinConfidenceFor(name string, def float64) float64 {
	for i := range r.defs {
		if r.defs[i].Name == name {
			return r.defs[i].MinConfidence
		}
	}
	return def
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// DefaultRegistry returns a registry preloaded with the common built-in
// gestures.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	builtins := []Definition{
		{
			Name:  "open_hand",
			Thumb: Extended, Index: Extended, Middle: Extended, Ring: Extended, Pinky: Extended,
			MinConfidence: 0.6,
		},
		{
			Name:  "fist",
			Thumb: Curled, Index: Curled, Middle: Curled, Ring: Curled, Pinky: Curled,
			MinConfidence: 0.6,
		},
		{
			Name:  "thumbs_up",
			Thumb: Extended, Index: Curled, Middle: Curled, Ring: Curled, Pinky: Curled,
			MinConfidence: 0.6,
		},
		{
			Name:  "peace",
			Thumb: Curled, Index: Extended, Middle: Extended, Ring: Curled, Pinky: Curled,
			MinConfidence: 0.6,
		},
		{
			Name:  "pointing",
			Thumb: Curled, Index: Extended, Middle: Curled, Ring: Curled, Pinky: Curled,
			MinConfidence: 0.6,
		},
		{
			Name:  "rock_on",
			Thumb: Curled, Index: Extended, Middle: Curled, Ring: Curled, Pinky: Extended,
			MinConfidence: 0.6,
		},
		{
			Name:  "ok_sign",
			Thumb: Extended, Index: Extended, Middle: Extended, Ring: Extended, Pinky: Extended,
			MinConfidence: 0.5,
			Constraints: []Constraint{{
				Type:      ConstraintDistance,
				Landmarks: []int{landmark.ThumbTip, landmark.IndexTip},
				Min:       0.0,
				Max:       0.15,
			}},
		},
	}

	for _, d := range builtins {
		if err := r.Register(d); err != nil {
			// Built-ins are static and validated by tests
			panic(err)
		}
	}
	return r
}
