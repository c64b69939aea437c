// Package ultrasonic runs an HC-SR04 style range finder in its own sampling
// loop.  The latest reading is published as an immutable snapshot so other
// loops can read it without taking a lock.
package ultrasonic

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

const (
	// SpeedConstant converts echo time to distance:
	// ((speed of sound in the air) * time) / 2, with 343m/s = 0.0343 cm/µs.
	SpeedConstant = 0.0343 / 2.0

	TriggerPulse   = 10 * time.Microsecond
	SampleInterval = 10 * time.Millisecond
	// EchoTimeout is a little over the echo time at the sensor's 4m limit.
	EchoTimeout = 30 * time.Millisecond
)

var (
	ErrNoEcho    = errors.New("no echo from ultrasonic sensor")
	ErrNoReading = errors.New("no ultrasonic reading yet")
	ErrNoSuchPin = errors.New("no such GPIO pin")
)

type Reading struct {
	DistanceCM  float64
	Duration    time.Duration
	CaptureTime time.Time
	Err         error
}

type Ultrasonic struct {
	trigger gpio.PinOut
	echo    gpio.PinIn

	Verbose bool

	latest atomic.Pointer[Reading]
}

func New(trigger gpio.PinOut, echo gpio.PinIn) *Ultrasonic {
	return &Ultrasonic{
		trigger: trigger,
		echo:    echo,
	}
}

// Open looks the pins up by name in the periph registry.  host.Init() must
// have been called.
func Open(triggerName, echoName string) (*Ultrasonic, error) {
	trigger := gpioreg.ByName(triggerName)
	if trigger == nil {
		return nil, errors.WithMessagef(ErrNoSuchPin, "trigger %q", triggerName)
	}
	echo := gpioreg.ByName(echoName)
	if echo == nil {
		return nil, errors.WithMessagef(ErrNoSuchPin, "echo %q", echoName)
	}
	return New(trigger, echo), nil
}

// Init puts the pins into their idle state.
func (u *Ultrasonic) Init() error {
	if err := u.trigger.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "initialising trigger pin")
	}
	if err := u.echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return errors.Wrap(err, "initialising echo pin")
	}
	return nil
}

// MeasureOnce triggers the sensor and times the echo pulse.
func (u *Ultrasonic) MeasureOnce() Reading {
	r := Reading{CaptureTime: time.Now()}
	if err := u.sendPulse(); err != nil {
		r.Err = err
		return r
	}
	if !u.waitForLevel(gpio.High) {
		r.Err = ErrNoEcho
		return r
	}
	start := time.Now()
	if !u.waitForLevel(gpio.Low) {
		r.Err = ErrNoEcho
		return r
	}
	r.Duration = time.Since(start)
	r.DistanceCM = DistanceCM(r.Duration)
	return r
}

func (u *Ultrasonic) sendPulse() error {
	if err := u.trigger.Out(gpio.High); err != nil {
		return errors.Wrap(err, "starting trigger pulse")
	}
	time.Sleep(TriggerPulse)
	return errors.Wrap(u.trigger.Out(gpio.Low), "ending trigger pulse")
}

func (u *Ultrasonic) waitForLevel(l gpio.Level) bool {
	deadline := time.Now().Add(EchoTimeout)
	for u.echo.Read() != l {
		remaining := time.Until(deadline)
		if remaining <= 0 || !u.echo.WaitForEdge(remaining) {
			return false
		}
	}
	return true
}

// Run samples every SampleInterval until the context is cancelled, then puts
// the pins back to a safe state.
func (u *Ultrasonic) Run(ctx context.Context) error {
	if err := u.Init(); err != nil {
		return err
	}
	defer func() {
		_ = u.trigger.Out(gpio.Low)
		_ = u.echo.In(gpio.PullNoChange, gpio.NoEdge)
		fmt.Println("US: Distance loop stopped")
	}()

	for ctx.Err() == nil {
		r := u.MeasureOnce()
		u.latest.Store(&r)
		if u.Verbose {
			fmt.Printf("US: Distance (%v): %.1fcm err=%v\n", r.Duration, r.DistanceCM, r.Err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(SampleInterval):
		}
	}
	return nil
}

// Latest returns the most recent reading.  Safe to call from any goroutine.
func (u *Ultrasonic) Latest() Reading {
	if r := u.latest.Load(); r != nil {
		return *r
	}
	return Reading{Err: ErrNoReading}
}

// LatestRange is Latest flattened for consumers that do not know about
// Reading.
func (u *Ultrasonic) LatestRange() (distanceCM float64, captured time.Time, err error) {
	r := u.Latest()
	return r.DistanceCM, r.CaptureTime, r.Err
}

func DistanceCM(echo time.Duration) float64 {
	return SpeedConstant * float64(echo.Microseconds())
}
