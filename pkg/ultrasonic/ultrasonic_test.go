package ultrasonic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

func newTestSensor() (*Ultrasonic, *gpiotest.Pin, *gpiotest.Pin) {
	trigger := &gpiotest.Pin{N: "trigger"}
	echo := &gpiotest.Pin{N: "echo", EdgesChan: make(chan gpio.Level, 4)}
	return New(trigger, echo), trigger, echo
}

func TestDistanceCM(t *testing.T) {
	assert.InDelta(t, 17.15, DistanceCM(time.Millisecond), 1e-9)
	assert.Zero(t, DistanceCM(0))
}

func TestMeasureOnce(t *testing.T) {
	u, trigger, echo := newTestSensor()
	require.NoError(t, u.Init())

	echo.EdgesChan <- gpio.High
	echo.EdgesChan <- gpio.Low
	r := u.MeasureOnce()

	require.NoError(t, r.Err)
	assert.GreaterOrEqual(t, r.DistanceCM, 0.0)
	assert.False(t, r.CaptureTime.IsZero())
	assert.Equal(t, gpio.Low, trigger.Read(), "trigger must be left low")
}

func TestMeasureOnceNoEcho(t *testing.T) {
	u, _, _ := newTestSensor()
	require.NoError(t, u.Init())

	r := u.MeasureOnce()
	assert.ErrorIs(t, r.Err, ErrNoEcho)
}

func TestLatestBeforeFirstSample(t *testing.T) {
	u, _, _ := newTestSensor()
	assert.ErrorIs(t, u.Latest().Err, ErrNoReading)

	d, at, err := u.LatestRange()
	assert.Zero(t, d)
	assert.True(t, at.IsZero())
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestRunPublishesUntilCancelled(t *testing.T) {
	u, _, _ := newTestSensor()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- u.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return u.Latest().Err == ErrNoEcho
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
