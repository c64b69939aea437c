package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/buttons"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motorboard"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/planner"
	"github.com/tigerbot-team/tigerbot/diffbot/pkg/wheel"
)

const DefaultPath = "/cfg/diffbot.yaml"

var ErrInvalid = errors.New("invalid configuration")

type WheelConfig struct {
	RadiusMM          float32 `yaml:"radius_mm"`
	Encoder           int     `yaml:"encoder"`
	Motor             int     `yaml:"motor"`
	GearRatio         float32 `yaml:"gear_ratio"`
	EncoderResolution float32 `yaml:"encoder_resolution"`
	Reversed          bool    `yaml:"reversed"`
}

type PointConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type RouteConfig struct {
	StartX       float64       `yaml:"start_x"`
	StartY       float64       `yaml:"start_y"`
	StartHeading float32       `yaml:"start_heading"`
	Waypoints    []PointConfig `yaml:"waypoints"`
	Loop         bool          `yaml:"loop"`
}

type HardwareConfig struct {
	I2CBus       string        `yaml:"i2c_bus"`
	BoardAddr    int           `yaml:"board_addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// PinsConfig names GPIO pins as known to periph's gpioreg.  Empty disables
// the feature.
type PinsConfig struct {
	PauseButton       string        `yaml:"pause_button"`
	ModeButton        string        `yaml:"mode_button"`
	ButtonDebounce    time.Duration `yaml:"button_debounce"`
	UltrasonicTrigger string        `yaml:"ultrasonic_trigger"`
	UltrasonicEcho    string        `yaml:"ultrasonic_echo"`
}

type Config struct {
	WheelDistanceMM  float64        `yaml:"wheel_distance_mm"`
	CasterDistanceMM float64        `yaml:"caster_distance_mm"`
	Left             WheelConfig    `yaml:"left"`
	Right            WheelConfig    `yaml:"right"`
	Route            RouteConfig    `yaml:"route"`
	TickInterval     time.Duration  `yaml:"tick_interval"`
	Hardware         HardwareConfig `yaml:"hardware"`
	Pins             PinsConfig     `yaml:"pins"`
	TelemetryPath    string         `yaml:"telemetry_path"`
	Verbose          bool           `yaml:"verbose"`
}

// Default is the reference robot.
func Default() Config {
	return Config{
		WheelDistanceMM:  chassis.WheelDistanceMM,
		CasterDistanceMM: chassis.CasterDistanceMM,
		Left: WheelConfig{
			RadiusMM:          chassis.WheelRadiusMM,
			Encoder:           int(chassis.LeftEncoder),
			Motor:             int(chassis.LeftMotor),
			GearRatio:         chassis.GearRatio,
			EncoderResolution: chassis.EncoderResolution,
			Reversed:          chassis.LeftReversed,
		},
		Right: WheelConfig{
			RadiusMM:          chassis.WheelRadiusMM,
			Encoder:           int(chassis.RightEncoder),
			Motor:             int(chassis.RightMotor),
			GearRatio:         chassis.GearRatio,
			EncoderResolution: chassis.EncoderResolution,
			Reversed:          chassis.RightReversed,
		},
		// Straight ahead along the start heading.  The goal seeker speeds up
		// the wheel on the side of the goal, which turns the robot away from
		// any goal off its heading, so turning routes do not complete.
		Route: RouteConfig{
			Waypoints: []PointConfig{{X: 500, Y: 0}, {X: 1000, Y: 0}},
		},
		TickInterval: 10 * time.Millisecond,
		Hardware: HardwareConfig{
			I2CBus:       "/dev/i2c-1",
			BoardAddr:    motorboard.DefaultAddr,
			PollInterval: hardware.DefaultPollInterval,
		},
		Pins: PinsConfig{
			ButtonDebounce: buttons.DefaultDebounce,
		},
	}
}

// Load reads the file at path over the defaults.  A missing file is not an
// error; the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("Config: %s not found, using defaults\n", path)
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "reading %s", path)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Parse overlays YAML onto cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// WriteInUse records the effective configuration next to the input so a run
// can be reproduced.
func (c Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0666)
}

func (c Config) Validate() error {
	if !(c.WheelDistanceMM > 0) {
		return errors.WithMessagef(ErrInvalid, "wheel_distance_mm must be positive, got %v", c.WheelDistanceMM)
	}
	if c.TickInterval <= 0 {
		return errors.WithMessagef(ErrInvalid, "tick_interval must be positive, got %v", c.TickInterval)
	}
	if err := c.LeftWheel().Validate(); err != nil {
		return errors.WithMessage(ErrInvalid, err.Error())
	}
	if err := c.RightWheel().Validate(); err != nil {
		return errors.WithMessage(ErrInvalid, err.Error())
	}
	if c.Left.Encoder == c.Right.Encoder || c.Left.Motor == c.Right.Motor {
		return errors.WithMessagef(ErrInvalid, "left and right wheels share a channel")
	}
	return nil
}

func (c Config) LeftWheel() wheel.Wheel {
	return c.Left.wheel(wheel.Left)
}

func (c Config) RightWheel() wheel.Wheel {
	return c.Right.wheel(wheel.Right)
}

func (w WheelConfig) wheel(o wheel.Orientation) wheel.Wheel {
	return wheel.New(o, w.RadiusMM, hardware.EncoderID(w.Encoder), hardware.MotorID(w.Motor), w.GearRatio, w.EncoderResolution)
}

func (c Config) Planner() *planner.Planner {
	points := make([]planner.Point, len(c.Route.Waypoints))
	for i, p := range c.Route.Waypoints {
		points[i] = planner.Point{X: p.X, Y: p.Y}
	}
	return planner.FromPoints(planner.Origin{
		X:       c.Route.StartX,
		Y:       c.Route.StartY,
		Heading: c.Route.StartHeading,
	}, points)
}
