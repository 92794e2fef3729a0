// Package landmark defines the hand landmark data model shared by the engine.
package landmark

import (
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns the vector p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Norm returns the Euclidean length of p treated as a vector.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Dot returns the dot product of p and q treated as vectors.
func (p Point3D) Dot(q Point3D) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// Cross returns the cross product of p and q treated as vectors.
func (p Point3D) Cross(q Point3D) Point3D {
	return Point3D{
		X: p.Y*q.Z - p.Z*q.Y,
		Y: p.Z*q.X - p.X*q.Z,
		Z: p.X*q.Y - p.Y*q.X,
	}
}

// Distance calculates the Euclidean distance between two 3D points.
func Distance(a, b Point3D) float64 {
	return a.Sub(b).Norm()
}

// Hand represents one observed hand: an ordered set of 21 landmarks as
// delivered by the external landmark detector. It carries no identity;
// stable hand ids are assigned by the tracker.
type Hand struct {
	Points [NumLandmarks]Point3D `json:"points"`
}

// FromSlice builds a Hand from a landmark slice, validating the contract
// of the external detector: exactly 21 finite 3D points.
func FromSlice(points []Point3D) (Hand, error) {
	var h Hand
	if len(points) != NumLandmarks {
		return h, fmt.Errorf("expected %d landmarks, got %d", NumLandmarks, len(points))
	}
	copy(h.Points[:], points)
	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// Validate checks that every coordinate is finite. Hands failing validation
// are dropped for the frame they arrived in.
func (h *Hand) Validate() error {
	for i, p := range h.Points {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return fmt.Errorf("landmark %d has non-finite coordinates", i)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Centroid returns the mean position of all 21 landmarks.
func (h *Hand) Centroid() Point3D {
	var c Point3D
	for _, p := range h.Points {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	c.X /= NumLandmarks
	c.Y /= NumLandmarks
	c.Z /= NumLandmarks
	return c
}

// Normalize translates the landmarks so the wrist sits at the origin and
// scales them so the maximum landmark distance from the origin is 1.0.
// This makes downstream features invariant to hand position and distance
// from the camera. Returns a new Hand; the receiver is unchanged.
func (h *Hand) Normalize() Hand {
	var normalized Hand

	wrist := h.Points[Wrist]
	maxDist := 0.0
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = h.Points[i].Sub(wrist)
		if d := normalized.Points[i].Norm(); d > maxDist {
			maxDist = d
		}
	}

	scale := maxDist + 1e-8
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
