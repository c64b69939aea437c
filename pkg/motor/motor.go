package motor

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/wheel"
)

var ErrNoHardware = errors.New("motor has no hardware attached")

// Motor is a motor with an attached wheel.  It integrates encoder deltas into
// the total wheel angle.  The zero value is an unattached slot.
type Motor struct {
	wheel    wheel.Wheel
	reversed bool
	hw       hardware.Interface

	angle       float32
	lastEncoder int32
	primed      bool
	duty        float64
}

// New attaches a wheel.  reversed is set when the motor and encoder are
// mounted rotated by 180°, whichever side they are on.
func New(w wheel.Wheel, reversed bool, hw hardware.Interface) (*Motor, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if hw == nil {
		return nil, ErrNoHardware
	}
	m := &Motor{
		wheel:    w,
		reversed: reversed,
		hw:       hw,
	}
	// Start counting from wherever the encoder happens to be.
	if enc, err := hw.ReadEncoder(w.Encoder); err == nil {
		m.lastEncoder = enc
		m.primed = true
	} else {
		fmt.Printf("Motor: %v wheel: no initial encoder reading: %v\n", w.Orientation, err)
	}
	return m, nil
}

// Step is called on every calculation step with the time since the last one.
// It returns the distance driven since the last step and the total angle of
// the wheel.  The integration is driven purely by encoder deltas.
func (m *Motor) Step(elapsed time.Duration) (distance, angle float32, err error) {
	if m.wheel.Orientation == wheel.Undefined {
		return 0, m.angle, errors.WithMessagef(wheel.ErrUndefinedOrientation,
			"stepping wheel on %v/%v", m.wheel.Encoder, m.wheel.Motor)
	}

	enc, err := m.hw.ReadEncoder(m.wheel.Encoder)
	if err != nil {
		return 0, m.angle, errors.Wrapf(err, "%v wheel", m.wheel.Orientation)
	}
	if !m.primed {
		m.lastEncoder = enc
		m.primed = true
		return 0, m.angle, nil
	}
	// Counters wrap; int32 subtraction gives the right delta across the wrap.
	diff := enc - m.lastEncoder
	m.lastEncoder = enc

	delta := m.wheel.TicksToAngle(diff)
	if m.reversed {
		delta = -delta
	}
	m.angle += delta
	return m.wheel.AngleToDistance(delta), m.angle, nil
}

// TotalDistance is how far this wheel drove since the start.
func (m *Motor) TotalDistance() float32 {
	return m.wheel.AngleToDistance(m.angle)
}

// SetSpeed sets the speed of the motor in [-1, 1]; negative values drive
// backwards.  Out-of-range values are clamped.
func (m *Motor) SetSpeed(speed float64) error {
	if m.hw == nil {
		return errors.WithMessagef(wheel.ErrUndefinedOrientation, "set speed on %v/%v", m.wheel.Encoder, m.wheel.Motor)
	}
	duty := speed
	if duty > 1 {
		duty = 1
	} else if duty < -1 {
		duty = -1
	}
	if m.reversed {
		duty = -duty
	}
	m.duty = duty
	return m.hw.SetMotorDuty(m.wheel.Motor, duty)
}

// Stop stops the motor and brakes.
func (m *Motor) Stop() error {
	if m.hw == nil {
		return errors.WithMessagef(wheel.ErrUndefinedOrientation, "stop on %v/%v", m.wheel.Encoder, m.wheel.Motor)
	}
	m.duty = 0
	return m.hw.BrakeMotor(m.wheel.Motor)
}

func (m *Motor) Angle() float32 { return m.angle }
func (m *Motor) Duty() float64 { return m.duty }
func (m *Motor) Reversed() bool { return m.reversed }
func (m *Motor) Wheel() wheel.Wheel { return m.wheel }
func (m *Motor) Attached() bool { return m.wheel.Orientation != wheel.Undefined }
