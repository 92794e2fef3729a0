package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/landmark"
)

// ErrCorruptModel is returned when learned-model data on disk is missing,
// unparseable, or structurally inconsistent.
var ErrCorruptModel = errors.New("corrupt model data")

// Hidden layer widths of the learned classifier. The architecture is fixed:
// FeatureDim → 128 → 64 → number of classes.
const (
	hidden1 = 128
	hidden2 = 64
)

// MLPClassifier is a feed-forward network over the 81-dim feature vector.
// Inference is a deterministic forward pass; dropout exists only in the
// training tooling that produced the weights.
type MLPClassifier struct {
	labels  []string
	weights []*mat.Dense   // one (out × in) matrix per layer
	biases  []*mat.VecDense
}

type mlpLayerFile struct {
	Weights [][]float64 `json:"weights"` // out × in
	Biases  []float64   `json:"biases"`
}

type mlpModelFile struct {
	Labels []string       `json:"labels"`
	Layers []mlpLayerFile `json:"layers"`
}

// LoadMLP reads a trained model from a JSON weights file.
func LoadMLP(path string) (*MLPClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	return ParseMLP(data)
}

// ParseMLP builds a classifier from serialized model data, verifying the
// fixed architecture before any landmark ever reaches it.
func ParseMLP(data []byte) (*MLPClassifier, error) {
	var file mlpModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}

	if len(file.Labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrCorruptModel)
	}
	if len(file.Layers) != 3 {
		return nil, fmt.Errorf("%w: expected 3 layers, got %d", ErrCorruptModel, len(file.Layers))
	}

	dims := [3][2]int{
		{hidden1, FeatureDim},
		{hidden2, hidden1},
		{len(file.Labels), hidden2},
	}

	c := &MLPClassifier{labels: file.Labels}
	for li, layer := range file.Layers {
		out, in := dims[li][0], dims[li][1]
		if len(layer.Weights) != out {
			return nil, fmt.Errorf("%w: layer %d has %d rows, want %d", ErrCorruptModel, li, len(layer.Weights), out)
		}
		if len(layer.Biases) != out {
			return nil, fmt.Errorf("%w: layer %d has %d biases, want %d", ErrCorruptModel, li, len(layer.Biases), out)
		}

		w := mat.NewDense(out, in, nil)
		for r, row := range layer.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("%w: layer %d row %d has %d columns, want %d", ErrCorruptModel, li, r, len(row), in)
			}
			for cIdx, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("%w: layer %d has non-finite weight", ErrCorruptModel, li)
				}
				w.Set(r, cIdx, v)
			}
		}

		for _, v := range layer.Biases {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: layer %d has non-finite bias", ErrCorruptModel, li)
			}
		}

		c.weights = append(c.weights, w)
		c.biases = append(c.biases, mat.NewVecDense(out, append([]float64(nil), layer.Biases...)))
	}

	return c, nil
}

// Labels returns the class labels in output order.
func (c *MLPClassifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Classify implements Classifier: a forward pass with ReLU activations on
// the hidden layers and a softmax over the output, returning the argmax
// label with its probability as confidence.
func (c *MLPClassifier) Classify(h *landmark.Hand) (Result, bool) {
	x := mat.NewVecDense(FeatureDim, ExtractFeatures(h))

	for li := range c.weights {
		out := c.weights[li].RawMatrix().Rows
		y := mat.NewVecDense(out, nil)
		y.MulVec(c.weights[li], x)
		y.AddVec(y, c.biases[li])

		// ReLU on hidden layers only
		if li < len(c.weights)-1 {
			for i := 0; i < out; i++ {
				if y.AtVec(i) < 0 {
					y.SetVec(i, 0)
				}
			}
		}
		x = y
	}

	probs := softmax(x.RawVector().Data)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return Result{Label: c.labels[best], Confidence: probs[best]}, true
}

// softmax converts logits to probabilities, shifted by the max for
// numerical stability.
func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
