package gesture

import (
	"github.com/ayusman/mudra/internal/landmark"
)

// Result is one raw classification for a single hand in a single frame.
type Result struct {
	Label      string
	Confidence float64
}

// Classifier maps normalized hand landmarks to a gesture label. The rule
// engine and the learned model both implement this contract; which one a
// pipeline uses is fixed at construction.
type Classifier interface {
	// Classify returns the best label and its confidence for normalized
	// landmarks. ok is false when nothing matches, an ordinary empty
	// outcome rather than an error.
	Classify(h *landmark.Hand) (Result, bool)
}

// RuleClassifier classifies by matching against a definition registry.
type RuleClassifier struct {
	registry *Registry
}

// NewRuleClassifier creates a rule-based classifier over the given
// registry. The registry stays owned by the caller so definitions can be
// registered at runtime.
func NewRuleClassifier(registry *Registry) *RuleClassifier {
	return &RuleClassifier{registry: registry}
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(h *landmark.Hand) (Result, bool) {
	def, confidence, ok := c.registry.Match(h)
	if !ok {
		return Result{}, false
	}
	return Result{Label: def.Name, Confidence: confidence}, true
}

// Registry returns the registry this classifier matches against.
func (c *RuleClassifier) Registry() *Registry {
	return c.registry
}
