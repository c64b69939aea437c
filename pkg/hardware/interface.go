package hardware

import (
	"fmt"

	"github.com/pkg/errors"
)

// EncoderID names one of the four quadrature encoder channels on the board.
type EncoderID int

const (
	Encoder1 EncoderID = iota + 1
	Encoder2
	Encoder3
	Encoder4
)

func (e EncoderID) Valid() bool {
	return e >= Encoder1 && e <= Encoder4
}

func (e EncoderID) String() string {
	return fmt.Sprintf("encoder%d", int(e))
}

// MotorID names one of the four H-bridge motor outputs on the board.
type MotorID int

const (
	Motor1 MotorID = iota + 1
	Motor2
	Motor3
	Motor4
)

func (m MotorID) Valid() bool {
	return m >= Motor1 && m <= Motor4
}

func (m MotorID) String() string {
	return fmt.Sprintf("motor%d", int(m))
}

const NumChannels = 4

var (
	ErrInvalidChannel = errors.New("invalid encoder/motor channel")
	ErrNotReady       = errors.New("no encoder reading available yet")
)

// Interface is everything the navigation core needs from the hardware.
// Implementations must not block for longer than a register read.
type Interface interface {
	// ReadEncoder returns the raw tick counter, which may wrap.
	ReadEncoder(id EncoderID) (int32, error)
	// SetMotorDuty drives the motor with a duty in [-1, 1].
	SetMotorDuty(id MotorID, duty float64) error
	BrakeMotor(id MotorID) error
}
