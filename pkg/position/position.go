// Package position holds the dead-reckoned pose of the robot and the goal it
// is driving to, and turns the difference between them into wheel speeds.
package position

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/angle"
)

const (
	// Tolerance is the half-width in mm of the box around the goal inside
	// which the goal counts as reached.
	Tolerance = 10.0

	// BaseSpeed is the normalized speed of both wheels when heading straight
	// at the goal.
	BaseSpeed = 0.4
	// TurnBias is added to one wheel and taken from the other at a heading
	// error of π.
	TurnBias = 0.4
)

var (
	ErrNotFinite         = errors.New("coordinate is not finite")
	ErrZeroWheelDistance = errors.New("wheel distance must be positive")
)

// Pose is the position of the robot in the world and its orientation.
type Pose struct {
	X, Y    float64
	Heading float32
}

type Goal struct {
	X, Y float64
}

// Position is the robot's pose estimate plus its active goal.
type Position struct {
	pos     r2.Vec
	heading float32
	goal    r2.Vec
}

func (p *Position) SetGoal(x, y float64) error {
	if !finite(x) || !finite(y) {
		return errors.WithMessagef(ErrNotFinite, "goal (%v, %v)", x, y)
	}
	p.goal = r2.Vec{X: x, Y: y}
	return nil
}

// SetPose places the robot; heading is folded into (-π, π].
func (p *Position) SetPose(x, y float64, heading float32) {
	p.pos = r2.Vec{X: x, Y: y}
	p.heading = angle.Normalize(heading)
}

// Integrate applies one tick of wheel travel.  The displacement uses the
// heading from the start of the tick.
func (p *Position) Integrate(left, right, wheelDistance float64) error {
	if wheelDistance == 0 {
		return ErrZeroWheelDistance
	}
	center := (left + right) / 2
	dPhi := (right - left) / wheelDistance

	h := float64(p.heading)
	d := r2.Scale(center, r2.Vec{X: math.Cos(h), Y: math.Sin(h)})
	next := r2.Add(p.pos, d)
	p.SetPose(next.X, next.Y, float32(h+dPhi))
	return nil
}

// GoalReached is an axis-aligned box test, not a radius test: a goal
// approached diagonally is accepted up to Tolerance·√2 away.
func (p *Position) GoalReached() bool {
	return math.Abs(p.pos.X-p.goal.X) <= Tolerance &&
		math.Abs(p.pos.Y-p.goal.Y) <= Tolerance
}

// HeadingError is the bearing to the goal relative to the current heading.
func (p *Position) HeadingError() float32 {
	toGoal := r2.Sub(p.goal, p.pos)
	bearing := float32(math.Atan2(toGoal.Y, toGoal.X))
	return angle.Diff(bearing, p.heading)
}

// GoalVelocities computes normalized wheel speeds that steer towards the
// goal.  A negative heading error speeds up the right wheel and slows the
// left, a positive one the opposite.  The policy only looks at angles, so
// wheelDistance is currently unused.
func (p *Position) GoalVelocities(wheelDistance float64) (left, right float64) {
	dPhi := float64(p.HeadingError())
	bias := TurnBias * math.Abs(dPhi) / math.Pi
	switch {
	case dPhi < 0:
		return BaseSpeed - bias, BaseSpeed + bias
	case dPhi > 0:
		return BaseSpeed + bias, BaseSpeed - bias
	default:
		return BaseSpeed, BaseSpeed
	}
}

func (p *Position) Pose() Pose {
	return Pose{X: p.pos.X, Y: p.pos.Y, Heading: p.heading}
}

func (p *Position) Goal() Goal {
	return Goal{X: p.goal.X, Y: p.goal.Y}
}

// DistanceToGoal is the straight-line distance, for logging.
func (p *Position) DistanceToGoal() float64 {
	return r2.Norm(r2.Sub(p.goal, p.pos))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
