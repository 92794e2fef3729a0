package trajectory

import (
	"math"
	"testing"
)

func linePath(n int, f func(i int) Point) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = f(i)
	}
	return pts
}

func TestDTWIdenticalPathsZeroDistance(t *testing.T) {
	path := linePath(32, func(i int) Point { return Point{X: float64(i) / 31.0} })

	if d := DTWDistance(path, path); d != 0 {
		t.Errorf("expected zero distance for identical paths, got %f", d)
	}
	if d := BandedDTWDistance(path, path, DefaultBandWidth); d != 0 {
		t.Errorf("expected zero banded distance for identical paths, got %f", d)
	}
}

func TestDTWEmptyPath(t *testing.T) {
	path := linePath(8, func(i int) Point { return Point{X: float64(i)} })

	if d := DTWDistance(nil, path); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty path, got %f", d)
	}
	if d := BandedDTWDistance(path, nil, DefaultBandWidth); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty path, got %f", d)
	}
}

func TestBandMatchesUnconstrainedInsideBand(t *testing.T) {
	tracker := NewDefaultTracker()

	input := normalizePath(resamplePath(linePath(40, func(i int) Point {
		// A slightly wobbly left-to-right line
		return Point{X: float64(i) / 39.0, Y: 0.02 * math.Sin(float64(i)/4)}
	}), ResamplePoints))

	for _, tmpl := range tracker.Templates() {
		ref := tmpl.normalized()
		full := DTWDistance(input, ref)
		banded := BandedDTWDistance(input, ref, DefaultBandWidth)

		// Restricting the search space never finds a cheaper alignment.
		if banded < full-1e-12 {
			t.Errorf("%s: banded %f below unconstrained %f", tmpl.Name, banded, full)
		}

		// Against a close template the optimal alignment hugs the diagonal
		// and stays inside the band, so the banded distance reproduces the
		// unconstrained one exactly.
		if tmpl.Name == "swipe_right" && math.Abs(full-banded) > 1e-12 {
			t.Errorf("%s: banded %f != unconstrained %f", tmpl.Name, banded, full)
		}
	}
}

func TestDTWToleratesElasticShift(t *testing.T) {
	// The same shape sampled at different densities should stay close.
	a := linePath(32, func(i int) Point { return Point{X: float64(i) / 31.0} })
	b := linePath(48, func(i int) Point { return Point{X: float64(i) / 47.0} })

	if d := DTWDistance(a, b); d > 0.01 {
		t.Errorf("expected near-zero distance for resampled line, got %f", d)
	}
}

func TestDTWSeparatesShapes(t *testing.T) {
	right := linePath(32, func(i int) Point { return Point{X: float64(i) / 31.0} })
	left := linePath(32, func(i int) Point { return Point{X: 1.0 - float64(i)/31.0} })
	up := linePath(32, func(i int) Point { return Point{Y: -float64(i) / 31.0} })

	same := DTWDistance(right, right)
	reversed := DTWDistance(right, left)
	orthogonal := DTWDistance(right, up)

	if !(same < reversed) {
		t.Errorf("identical (%f) should beat reversed (%f)", same, reversed)
	}
	if !(same < orthogonal) {
		t.Errorf("identical (%f) should beat orthogonal (%f)", same, orthogonal)
	}
}

func TestScoreFromDistance(t *testing.T) {
	if s := ScoreFromDistance(0); s != 1.0 {
		t.Errorf("distance 0 should score 1.0, got %f", s)
	}
	if s := ScoreFromDistance(0.25); math.Abs(s-0.5) > 1e-12 {
		t.Errorf("distance 0.25 should score 0.5, got %f", s)
	}
	if s := ScoreFromDistance(10); s != 0 {
		t.Errorf("large distance should clamp to 0, got %f", s)
	}
	if s := ScoreFromDistance(math.Inf(1)); s != 0 {
		t.Errorf("infinite distance should score 0, got %f", s)
	}

	// Monotonically decreasing
	prev := math.Inf(1)
	for d := 0.0; d <= 1.0; d += 0.05 {
		s := ScoreFromDistance(d)
		if s > prev {
			t.Fatalf("score increased from %f to %f at distance %f", prev, s, d)
		}
		prev = s
	}
}
