package gesture

import (
	"github.com/ayusman/mudra/internal/landmark"
)

// FeatureDim is the length of the vector produced by ExtractFeatures.
//
//	63 flattened normalized coordinates
//	10 pairwise fingertip distances
//	 5 finger extension ratios
//	 3 palm normal components
const FeatureDim = 81

// ExtractFeatures derives the fixed-size feature vector the learned
// classifier consumes. Landmarks must already be wrist-centered and
// scale-normalized.
func ExtractFeatures(h *landmark.Hand) []float64 {
	features := make([]float64, 0, FeatureDim)

	// Flattened coordinates
	for _, p := range h.Points {
		features = append(features, p.X, p.Y, p.Z)
	}

	// Pairwise fingertip distances, all 5-choose-2 pairs in index order
	for i := 0; i < len(fingerTips); i++ {
		for j := i + 1; j < len(fingerTips); j++ {
			d := landmark.Distance(h.Points[fingerTips[i]], h.Points[fingerTips[j]])
			features = append(features, d)
		}
	}

	// Finger extension ratios: tip distance over PIP distance from the wrist
	wrist := h.Points[landmark.Wrist]
	for i := 0; i < len(fingerTips); i++ {
		tipDist := landmark.Distance(h.Points[fingerTips[i]], wrist)
		pipDist := landmark.Distance(h.Points[fingerPIPs[i]], wrist) + 1e-8
		features = append(features, tipDist/pipDist)
	}

	// Palm normal: cross of wrist→index-MCP and wrist→pinky-MCP, unit length
	v1 := h.Points[landmark.IndexMCP].Sub(wrist)
	v2 := h.Points[landmark.PinkyMCP].Sub(wrist)
	normal := v1.Cross(v2)
	n := normal.Norm() + 1e-8
	features = append(features, normal.X/n, normal.Y/n, normal.Z/n)

	return features
}
