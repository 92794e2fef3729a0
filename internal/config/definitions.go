package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/sequence"
	"github.com/ayusman/mudra/internal/trajectory"
)

// gestureEntry is one gesture in a definitions document. Finger states live
// in a nested object and default to "any" when omitted; min_confidence
// defaults to 0.6.
type gestureEntry struct {
	Name    string `json:"name"`
	Fingers struct {
		Thumb  string `json:"thumb"`
		Index  string `json:"index"`
		Middle string `json:"middle"`
		Ring   string `json:"ring"`
		Pinky  string `json:"pinky"`
	} `json:"fingers"`
	MinConfidence *float64             `json:"min_confidence"`
	Constraints   []gesture.Constraint `json:"constraints"`
}

type gestureDocument struct {
	Gestures []gestureEntry `json:"gestures"`
}

type sequenceEntry struct {
	Name          string   `json:"name"`
	Gestures      []string `json:"gestures"`
	MaxDurationMs int64    `json:"max_duration_ms"`
	Description   string   `json:"description"`
}

type sequenceDocument struct {
	Sequences []sequenceEntry `json:"sequences"`
}

type trajectoryDocument struct {
	Trajectories []trajectory.Template `json:"trajectories"`
}

func fingerState(s string) gesture.FingerState {
	if s == "" {
		return gesture.Any
	}
	return gesture.FingerState(s)
}

// ParseGestures decodes a gesture definitions document and validates every
// entry. Structural violations surface as ErrInvalidDefinition.
func ParseGestures(data []byte) ([]gesture.Definition, error) {
	var doc gestureDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse gesture document: %w", err)
	}

	defs := make([]gesture.Definition, 0, len(doc.Gestures))
	for _, entry := range doc.Gestures {
		minConf := 0.6
		if entry.MinConfidence != nil {
			minConf = *entry.MinConfidence
		}
		def := gesture.Definition{
			Name:          entry.Name,
			Thumb:         fingerState(entry.Fingers.Thumb),
			Index:         fingerState(entry.Fingers.Index),
			Middle:        fingerState(entry.Fingers.Middle),
			Ring:          fingerState(entry.Fingers.Ring),
			Pinky:         fingerState(entry.Fingers.Pinky),
			MinConfidence: minConf,
			Constraints:   entry.Constraints,
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadGestures reads and parses a gesture definitions file.
func LoadGestures(path string) ([]gesture.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGestures(data)
}

// ParseSequences decodes a sequence definitions document and validates
// every entry.
func ParseSequences(data []byte) ([]sequence.Definition, error) {
	var doc sequenceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sequence document: %w", err)
	}

	defs := make([]sequence.Definition, 0, len(doc.Sequences))
	for _, entry := range doc.Sequences {
		def := sequence.Definition{
			Name:        entry.Name,
			Gestures:    entry.Gestures,
			MaxDuration: time.Duration(entry.MaxDurationMs) * time.Millisecond,
			Description: entry.Description,
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadSequences reads and parses a sequence definitions file.
func LoadSequences(path string) ([]sequence.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSequences(data)
}

// ParseTrajectories decodes a trajectory template document and validates
// every entry.
func ParseTrajectories(data []byte) ([]trajectory.Template, error) {
	var doc trajectoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse trajectory document: %w", err)
	}

	for i := range doc.Trajectories {
		if err := doc.Trajectories[i].Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Trajectories, nil
}

// LoadTrajectories reads and parses a trajectory template file.
func LoadTrajectories(path string) ([]trajectory.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTrajectories(data)
}

// ApplyDefinitions loads every configured definitions document and registers
// its contents with the pipeline. Empty paths are skipped.
func ApplyDefinitions(p *pipeline.Pipeline, defs DefinitionsConfig) error {
	if defs.Gestures != "" {
		loaded, err := LoadGestures(defs.Gestures)
		if err != nil {
			return err
		}
		for _, def := range loaded {
			if err := p.RegisterGesture(def); err != nil {
				return err
			}
		}
	}

	if defs.Sequences != "" {
		loaded, err := LoadSequences(defs.Sequences)
		if err != nil {
			return err
		}
		for _, def := range loaded {
			if err := p.RegisterSequence(def); err != nil {
				return err
			}
		}
	}

	if defs.Trajectories != "" {
		loaded, err := LoadTrajectories(defs.Trajectories)
		if err != nil {
			return err
		}
		for _, tmpl := range loaded {
			if err := p.RegisterTrajectory(tmpl); err != nil {
				return err
			}
		}
	}

	return nil
}
