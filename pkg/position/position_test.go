package position

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/angle"
)

const wheelDistance = 155

func TestIntegrateStraight(t *testing.T) {
	var p Position
	require.NoError(t, p.Integrate(50, 50, wheelDistance))

	pose := p.Pose()
	assert.InDelta(t, 50, pose.X, 1e-9)
	assert.InDelta(t, 0, pose.Y, 1e-9)
	assert.Zero(t, pose.Heading)
}

func TestIntegrateTurnUsesStartHeading(t *testing.T) {
	var p Position
	require.NoError(t, p.Integrate(0, 100, wheelDistance))

	pose := p.Pose()
	assert.Greater(t, pose.Heading, float32(0))
	assert.InDelta(t, 100.0/wheelDistance, pose.Heading, 1e-6)
	assert.InDelta(t, 50, pose.X, 1e-9)
	assert.Zero(t, pose.Y)
}

func TestIntegrateFollowsHeading(t *testing.T) {
	var p Position
	p.SetPose(10, 20, math.Pi/2)
	require.NoError(t, p.Integrate(30, 30, wheelDistance))

	pose := p.Pose()
	assert.InDelta(t, 10, pose.X, 1e-5)
	assert.InDelta(t, 50, pose.Y, 1e-5)
}

func TestIntegrateWrapsHeading(t *testing.T) {
	var p Position
	p.SetPose(0, 0, 3.1)
	// Spin on the spot anticlockwise by 0.2 rad.
	require.NoError(t, p.Integrate(-15.5, 15.5, wheelDistance))

	h := p.Pose().Heading
	assert.InDelta(t, 3.3-2*math.Pi, h, 1e-5)
	assert.True(t, h > -angle.Pi && h <= angle.Pi)
}

func TestIntegrateRejectsZeroWheelDistance(t *testing.T) {
	var p Position
	assert.ErrorIs(t, p.Integrate(1, 2, 0), ErrZeroWheelDistance)
	assert.Equal(t, Pose{}, p.Pose())
}

func TestSetPoseNormalizes(t *testing.T) {
	var p Position
	p.SetPose(0, 0, 5*math.Pi/2)
	assert.InDelta(t, math.Pi/2, p.Pose().Heading, 1e-5)
}

func TestSetGoalRejectsNonFinite(t *testing.T) {
	var p Position
	require.NoError(t, p.SetGoal(500, 500))
	assert.ErrorIs(t, p.SetGoal(math.NaN(), 1), ErrNotFinite)
	assert.ErrorIs(t, p.SetGoal(1, math.Inf(-1)), ErrNotFinite)
	assert.Equal(t, Goal{X: 500, Y: 500}, p.Goal())
}

// The reached test is a box, not a circle.
func TestGoalReachedIsBox(t *testing.T) {
	var p Position
	require.NoError(t, p.SetGoal(500, 500))

	for _, tc := range []struct {
		x, y    float64
		reached bool
	}{
		{505, 508, true},
		{505, 515, false},
		{490, 510, true},
		{489.9, 500, false},
		{500, 500, true},
		// ~14.1mm away on the diagonal but inside the box.
		{510, 510, true},
	} {
		p.SetPose(tc.x, tc.y, 0)
		assert.Equal(t, tc.reached, p.GoalReached(), "pose (%v, %v)", tc.x, tc.y)
	}
}

func TestGoalVelocitiesStraightAhead(t *testing.T) {
	var p Position
	require.NoError(t, p.SetGoal(1000, 0))
	l, r := p.GoalVelocities(wheelDistance)
	assert.Equal(t, BaseSpeed, l)
	assert.Equal(t, BaseSpeed, r)
}

func TestGoalVelocitiesTurnDirection(t *testing.T) {
	var p Position

	// Goal to the right of the heading: negative error, right wheel faster.
	require.NoError(t, p.SetGoal(1000, -1000))
	l, r := p.GoalVelocities(wheelDistance)
	assert.Less(t, float32(p.HeadingError()), float32(0))
	assert.InDelta(t, BaseSpeed-TurnBias/4, l, 1e-6)
	assert.InDelta(t, BaseSpeed+TurnBias/4, r, 1e-6)

	// Goal to the left: positive error, left wheel faster.
	require.NoError(t, p.SetGoal(1000, 1000))
	l, r = p.GoalVelocities(wheelDistance)
	assert.InDelta(t, BaseSpeed+TurnBias/4, l, 1e-6)
	assert.InDelta(t, BaseSpeed-TurnBias/4, r, 1e-6)
}

func TestGoalVelocitiesAcrossHeadingWrap(t *testing.T) {
	var p Position
	// Facing almost due west; the goal is slightly south of west.  The raw
	// difference is close to -2π but the real error is small and positive.
	p.SetPose(0, 0, 3.0)
	require.NoError(t, p.SetGoal(-1000, -100))

	assert.Greater(t, p.HeadingError(), float32(0))
	assert.Less(t, p.HeadingError(), float32(0.5))
	l, r := p.GoalVelocities(wheelDistance)
	assert.Greater(t, l, r)
}

func TestGoalVelocitiesInRange(t *testing.T) {
	var p Position
	for h := float32(-3.1); h < 3.1; h += 0.2 {
		for _, g := range [][2]float64{{100, 0}, {-100, 5}, {0, -100}, {3, 3}} {
			p.SetPose(0, 0, h)
			require.NoError(t, p.SetGoal(g[0], g[1]))
			l, r := p.GoalVelocities(wheelDistance)
			assert.True(t, l >= -1 && l <= 1 && r >= -1 && r <= 1, "h=%v g=%v -> %v %v", h, g, l, r)
		}
	}
}

func TestDistanceToGoal(t *testing.T) {
	var p Position
	require.NoError(t, p.SetGoal(3, 4))
	assert.InDelta(t, 5, p.DistanceToGoal(), 1e-9)
}
