// Package wheel describes the geometry of one driven wheel and converts
// encoder ticks into wheel angle and travelled distance.
package wheel

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"
)

// Orientation differentiates between the LEFT and RIGHT side of the robot.
type Orientation int

const (
	// Undefined is the zero value and marks a slot that never had a wheel
	// attached.
	Undefined Orientation = iota
	Left
	Right
)

func (o Orientation) String() string {
	switch o {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "undefined"
	}
}

var (
	ErrUndefinedOrientation = errors.New("wheel orientation is undefined")
	ErrInvalidGeometry      = errors.New("invalid wheel geometry")
)

// Wheel is a motorized wheel with an attached encoder.  Lengths are in mm.
type Wheel struct {
	Orientation       Orientation
	RadiusMM          float32
	Encoder           hardware.EncoderID
	Motor             hardware.MotorID
	GearRatio         float32
	EncoderResolution float32
}

// New creates a wheel on the given side.
func New(o Orientation, radiusMM float32, encoder hardware.EncoderID, motor hardware.MotorID, gearRatio, encoderResolution float32) Wheel {
	return Wheel{
		Orientation:       o,
		RadiusMM:          radiusMM,
		Encoder:           encoder,
		Motor:             motor,
		GearRatio:         gearRatio,
		EncoderResolution: encoderResolution,
	}
}

// NewLeft creates a LEFT-sided wheel.
func NewLeft(radiusMM float32, encoder hardware.EncoderID, motor hardware.MotorID, gearRatio, encoderResolution float32) Wheel {
	return New(Left, radiusMM, encoder, motor, gearRatio, encoderResolution)
}

// NewRight creates a RIGHT-sided wheel.
func NewRight(radiusMM float32, encoder hardware.EncoderID, motor hardware.MotorID, gearRatio, encoderResolution float32) Wheel {
	return New(Right, radiusMM, encoder, motor, gearRatio, encoderResolution)
}

func (w Wheel) Validate() error {
	if w.Orientation != Left && w.Orientation != Right {
		return errors.WithMessagef(ErrUndefinedOrientation, "wheel on %v/%v", w.Encoder, w.Motor)
	}
	if !(w.RadiusMM > 0) || !(w.GearRatio > 0) || !(w.EncoderResolution > 0) {
		return errors.WithMessagef(ErrInvalidGeometry,
			"%v wheel: radius=%v gear ratio=%v resolution=%v",
			w.Orientation, w.RadiusMM, w.GearRatio, w.EncoderResolution)
	}
	if !w.Encoder.Valid() || !w.Motor.Valid() {
		return errors.WithMessagef(ErrInvalidGeometry, "%v wheel: bad channel %v/%v",
			w.Orientation, w.Encoder, w.Motor)
	}
	return nil
}

// TicksToAngle converts an encoder delta into output-shaft rotation.
func (w Wheel) TicksToAngle(delta int32) float32 {
	return float32(delta) / w.EncoderResolution / w.GearRatio
}

func (w Wheel) AngleToDistance(angle float32) float32 {
	return angle * w.RadiusMM * math.Pi
}
