package angle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	expectNormalized(t, 0, 0)
	expectNormalized(t, 1, 1)
	expectNormalized(t, -1, -1)
	expectNormalized(t, Pi, Pi)
	expectNormalized(t, 3*Pi/2, -Pi/2)
	expectNormalized(t, -3*Pi/2, Pi/2)
	expectNormalized(t, 2*Pi, 0)
	expectNormalized(t, 2*Pi+0.5, 0.5)
	expectNormalized(t, -2*Pi-0.5, -0.5)
}

func TestNormalizeRange(t *testing.T) {
	for h := float32(-50); h < 50; h += 0.037 {
		n := Normalize(h)
		if n <= -Pi || n > Pi {
			t.Errorf("Normalize(%f) = %f, out of range", h, n)
		}
	}
	// -Pi itself is excluded from the range and must fold to the positive side.
	assert.Greater(t, Normalize(-Pi), float32(0))
}

func TestNormalizeIdempotent(t *testing.T) {
	for h := float32(-3.1); h <= 3.1; h += 0.1 {
		n := Normalize(h)
		assert.Equal(t, n, Normalize(n), "heading %f", h)
	}
}

func TestNormalizePeriodic(t *testing.T) {
	for _, h := range []float32{0, 0.25, -1.2, 2.9, -3.0} {
		for k := -3; k <= 3; k++ {
			shifted := float32(float64(h) + 2*math.Pi*float64(k))
			assert.InDelta(t, Normalize(h), Normalize(shifted), 1e-5, "heading %f k=%d", h, k)
		}
	}
}

func TestDiff(t *testing.T) {
	assert.InDelta(t, -0.2, Diff(3.0, -3.083185), 1e-5)
	assert.InDelta(t, 0.5, Diff(1.0, 0.5), 1e-6)
}

func expectNormalized(t *testing.T, in, expected float32) {
	t.Helper()
	actual := Normalize(in)
	if math.Abs(float64(actual-expected)) > 1e-5 {
		t.Errorf("Normalize(%f) = %f, expected %f", in, actual, expected)
	}
}
