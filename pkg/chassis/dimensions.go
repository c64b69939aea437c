package chassis

import "github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"

// Reference robot: BeagleBone Blue with two geared micro motors.
const (
	WheelDistanceMM  float64 = 155
	CasterDistanceMM float64 = 163

	WheelRadiusMM     float32 = 40
	GearRatio         float32 = 3441.0 / 104.0
	EncoderResolution float32 = 32
)

// Wiring of the reference robot.  The left motor is mounted rotated by 180°.
const (
	LeftEncoder  = hardware.Encoder3
	LeftMotor    = hardware.Motor3
	LeftReversed = true

	RightEncoder  = hardware.Encoder2
	RightMotor    = hardware.Motor2
	RightReversed = false
)
