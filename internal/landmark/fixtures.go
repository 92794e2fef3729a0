package landmark

// Preset hand poses for tests and demos. Coordinates follow the detector
// convention: x grows rightward, y grows downward, origin at the top-left
// of the frame, all values roughly within [0, 1].

// OpenHand returns a hand with all five fingers extended.
func OpenHand() Hand {
	var h Hand

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}

// Fist returns a hand with all five fingers curled into the palm.
func Fist() Hand {
	var h Hand

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb curled across the palm, tip closer to the wrist than the IP joint
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.71, Z: 0.02}
	h.Points[ThumbIP] = Point3D{X: 0.57, Y: 0.66, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.53, Y: 0.70, Z: -0.02}

	// Index finger curled
	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.65, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.68, Z: -0.04}
	h.Points[IndexTip] = Point3D{X: 0.51, Y: 0.72, Z: -0.02}

	// Middle finger curled
	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.63, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.66, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.71, Z: -0.02}

	// Ring finger curled
	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.65, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.43, Y: 0.68, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.68, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: 0.39, Y: 0.71, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.38, Y: 0.74, Z: -0.02}

	return h
}

// ThumbsUp returns a hand with the thumb extended and the rest curled.
func ThumbsUp() Hand {
	h := Fist()

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	return h
}

// Pointing returns a hand with only the index finger extended.
func Pointing() Hand {
	h := Fist()

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	return h
}

// Peace returns a hand with index and middle fingers extended.
func Peace() Hand {
	h := Pointing()

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	return h
}

// LShape returns a hand with thumb and index extended and the rest curled,
// one half of the two-handed frame gesture.
func LShape() Hand {
	h := Pointing()

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.77, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.76, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.76, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.74, Y: 0.76, Z: 0.0}

	return h
}

// Translate returns a copy of h shifted by (dx, dy, dz).
func Translate(h Hand, dx, dy, dz float64) Hand {
	var out Hand
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
	}
	return out
}

// MirrorX returns a copy of h reflected around the vertical axis x = 0.5.
// Useful for building a plausible opposite hand from a fixture.
func MirrorX(h Hand) Hand {
	var out Hand
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: 1.0 - p.X, Y: p.Y, Z: p.Z}
	}
	return out
}
