// Package diffdrive is the control core of a two-wheeled robot.  An outer
// loop calls Step at its own cadence; each Step integrates the wheel
// encoders into a pose estimate and drives the wheels towards the current
// goal, advancing through a planner's waypoints as they are reached.
//
// DifferentialDrive is not safe for concurrent use: all calls must come from
// the goroutine that calls Step.
package diffdrive

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/angle"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motor"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/planner"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/position"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/wheel"
)

var ErrZeroWheelDistance = position.ErrZeroWheelDistance

// Recorder receives one Sample per running Step.
type Recorder interface {
	Record(s Sample) error
}

// RangeSource supplies an obstacle distance.  LatestRange must return a
// snapshot without blocking; it is read once per Step.
type RangeSource interface {
	LatestRange() (distanceCM float64, captured time.Time, err error)
}

// Range is the obstacle distance seen during a Step.
type Range struct {
	DistanceCM  float64
	CaptureTime time.Time
	Err         error
}

type Sample struct {
	Time    time.Time
	Elapsed time.Duration

	Pose position.Pose
	Goal position.Goal

	LeftDistance, RightDistance float32
	LeftSpeed, RightSpeed       float64
	GoalReached                 bool

	Range    Range
	HasRange bool
}

// Diagnostics counts the failures Step absorbed.
type Diagnostics struct {
	ConfigErrors   int
	EncoderErrors  int
	MotorErrors    int
	RecorderErrors int
	Exhaustions    int
	LastError      error
}

// DifferentialDrive is the main robot.
type DifferentialDrive struct {
	wheelDistance  float64
	casterDistance float64

	left, right *motor.Motor
	position    position.Position
	planner     *planner.Planner

	running  bool
	loop     bool
	holding  bool
	lastStep time.Time
	now      func() time.Time

	recorder Recorder
	ranges   RangeSource

	// Verbose prints a line per Step.
	Verbose bool

	diag Diagnostics
	last Sample
}

// New creates a differential-drive robot.  wheelDistance is the distance
// between the middles of the wheels, casterDistance the distance from the
// main axle to the caster mounting point; both in mm.
func New(wheelDistance, casterDistance float64) (*DifferentialDrive, error) {
	if !(wheelDistance > 0) {
		return nil, errors.WithMessagef(ErrZeroWheelDistance, "got %v", wheelDistance)
	}
	return &DifferentialDrive{
		wheelDistance:  wheelDistance,
		casterDistance: casterDistance,
		left:           &motor.Motor{},
		right:          &motor.Motor{},
		now:            time.Now,
	}, nil
}

// AddWheel attaches a motorized wheel to the side it declares.  reversed is
// set when the motor and encoder are mounted rotated by 180°.
func (d *DifferentialDrive) AddWheel(w wheel.Wheel, reversed bool, hw hardware.Interface) error {
	m, err := motor.New(w, reversed, hw)
	if err != nil {
		return err
	}
	switch w.Orientation {
	case wheel.Left:
		d.left = m
	case wheel.Right:
		d.right = m
	}
	fmt.Printf("DD: Attached %v wheel on %v/%v reversed=%v\n", w.Orientation, w.Encoder, w.Motor, reversed)
	return nil
}

// Start the robot.  With loop set, the planner's route is replayed forever.
func (d *DifferentialDrive) Start(loop bool) {
	d.running = true
	d.loop = loop
	d.holding = false
	d.lastStep = d.now()
	fmt.Printf("DD: Started (loop=%v)\n", loop)
}

// Halt stops the robot and brakes both motors.  Safe to call repeatedly.
func (d *DifferentialDrive) Halt() {
	if d.running {
		fmt.Println("DD: Halting")
	}
	d.running = false
	d.stopMotors()
}

func (d *DifferentialDrive) Running() bool {
	return d.running
}

func (d *DifferentialDrive) SetGoal(x, y float64) error {
	if err := d.position.SetGoal(x, y); err != nil {
		return err
	}
	d.holding = false
	return nil
}

// AttachPlanner places the robot at the planner's origin and makes its first
// waypoint the goal.
func (d *DifferentialDrive) AttachPlanner(p *planner.Planner) {
	d.planner = p
	if p == nil {
		return
	}
	start := p.Start()
	d.position.SetPose(start.X, start.Y, start.Heading)
	if err := d.position.SetGoal(start.X, start.Y); err != nil {
		d.fail(&d.diag.ConfigErrors, "planner origin", err)
	}
	d.nextGoal()
}

func (d *DifferentialDrive) SetRecorder(r Recorder) {
	d.recorder = r
}

func (d *DifferentialDrive) SetRangeSource(r RangeSource) {
	d.ranges = r
}

// Step is called on each tick: it calculates the new position and how to
// get to the wanted one.  It never fails; problems are logged and counted.
func (d *DifferentialDrive) Step() {
	if !d.running {
		return
	}

	now := d.now()
	elapsed := now.Sub(d.lastStep)

	distL, angleL, err := d.left.Step(elapsed)
	d.noteWheelError("left", err)
	distR, angleR, err := d.right.Step(elapsed)
	d.noteWheelError("right", err)

	if err := d.position.Integrate(float64(distL), float64(distR), d.wheelDistance); err != nil {
		d.fail(&d.diag.ConfigErrors, "integrating", err)
	}

	if d.planner != nil && d.position.GoalReached() {
		d.nextGoal()
	}

	var speedL, speedR float64
	reached := d.position.GoalReached()
	if !reached {
		speedL, speedR = d.position.GoalVelocities(d.wheelDistance)
		if err := d.left.SetSpeed(speedL); err != nil {
			d.fail(&d.diag.MotorErrors, "left motor", err)
		}
		if err := d.right.SetSpeed(speedR); err != nil {
			d.fail(&d.diag.MotorErrors, "right motor", err)
		}
	} else {
		d.stopMotors()
	}

	sample := Sample{
		Time:          now,
		Elapsed:       elapsed,
		Pose:          d.position.Pose(),
		Goal:          d.position.Goal(),
		LeftDistance:  distL,
		RightDistance: distR,
		LeftSpeed:     speedL,
		RightSpeed:    speedR,
		GoalReached:   reached,
	}
	if d.ranges != nil {
		var r Range
		r.DistanceCM, r.CaptureTime, r.Err = d.ranges.LatestRange()
		sample.Range = r
		sample.HasRange = true
	}
	d.last = sample

	if d.Verbose {
		fmt.Printf("Step[%v]: left: %.2fmm, %.3frad, %.1fmm total | right: %.2fmm, %.3frad, %.1fmm total | "+
			"pose (%.1f, %.1f, %.1f°) goal (%.1f, %.1f)\n",
			elapsed, distL, angleL, d.left.TotalDistance(), distR, angleR, d.right.TotalDistance(),
			sample.Pose.X, sample.Pose.Y, angle.Degrees(sample.Pose.Heading), sample.Goal.X, sample.Goal.Y)
	}
	if d.recorder != nil {
		if err := d.recorder.Record(sample); err != nil {
			d.fail(&d.diag.RecorderErrors, "recording telemetry", err)
		}
	}

	d.lastStep = now
}

func (d *DifferentialDrive) nextGoal() {
	goal, err := d.planner.NextGoal()
	if err == nil {
		d.holding = false
		if err := d.position.SetGoal(goal.X, goal.Y); err != nil {
			d.fail(&d.diag.ConfigErrors, "waypoint", err)
			return
		}
		fmt.Printf("DD: Next goal (%.1f, %.1f), %d/%d\n", goal.X, goal.Y, d.planner.Cursor(), d.planner.Len())
		return
	}
	if d.holding {
		return
	}
	d.diag.Exhaustions++
	if d.loop && d.planner.Len() > 0 {
		d.planner.Restart()
		start := d.planner.Start()
		if err := d.position.SetGoal(start.X, start.Y); err != nil {
			d.fail(&d.diag.ConfigErrors, "planner origin", err)
			return
		}
		fmt.Printf("DD: Route finished, looping back to (%.1f, %.1f)\n", start.X, start.Y)
		return
	}
	d.holding = true
	g := d.position.Goal()
	fmt.Printf("DD: Route finished, holding at (%.1f, %.1f)\n", g.X, g.Y)
}

func (d *DifferentialDrive) stopMotors() {
	if err := d.left.Stop(); err != nil && d.left.Attached() {
		d.fail(&d.diag.MotorErrors, "stopping left motor", err)
	}
	if err := d.right.Stop(); err != nil && d.right.Attached() {
		d.fail(&d.diag.MotorErrors, "stopping right motor", err)
	}
}

func (d *DifferentialDrive) noteWheelError(side string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, wheel.ErrUndefinedOrientation) {
		d.fail(&d.diag.ConfigErrors, side+" wheel", err)
		return
	}
	d.fail(&d.diag.EncoderErrors, side+" wheel", err)
}

func (d *DifferentialDrive) fail(counter *int, what string, err error) {
	*counter++
	d.diag.LastError = err
	fmt.Printf("DD: ERROR %s: %v\n", what, err)
}

func (d *DifferentialDrive) Pose() position.Pose {
	return d.position.Pose()
}

func (d *DifferentialDrive) Goal() position.Goal {
	return d.position.Goal()
}

func (d *DifferentialDrive) Diagnostics() Diagnostics {
	return d.diag
}

// LastSample is what the most recent running Step saw and commanded.
func (d *DifferentialDrive) LastSample() Sample {
	return d.last
}

func (d *DifferentialDrive) WheelDistance() float64 {
	return d.wheelDistance
}

func (d *DifferentialDrive) CasterDistance() float64 {
	return d.casterDistance
}

// TotalDistances is how far each wheel drove since the start, in mm.
func (d *DifferentialDrive) TotalDistances() (left, right float32) {
	return d.left.TotalDistance(), d.right.TotalDistance()
}
