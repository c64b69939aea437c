package buttons

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

func expectPress(t *testing.T, presses <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-presses:
		require.True(t, ok, "channel closed")
	case <-time.After(time.Second):
		t.Fatal("no press reported")
	}
}

func expectNoPress(t *testing.T, presses <-chan struct{}) {
	t.Helper()
	select {
	case <-presses:
		t.Fatal("unexpected press")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatchReportsFallingEdges(t *testing.T) {
	pin := &gpiotest.Pin{N: "pause", EdgesChan: make(chan gpio.Level, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presses, err := Watch(ctx, pin, 0)
	require.NoError(t, err)
	assert.Equal(t, gpio.PullUp, pin.P)

	pin.EdgesChan <- gpio.Low
	expectPress(t, presses)

	// Release is not a press.
	pin.EdgesChan <- gpio.High
	expectNoPress(t, presses)
}

func TestWatchDebounces(t *testing.T) {
	pin := &gpiotest.Pin{N: "mode", EdgesChan: make(chan gpio.Level, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presses, err := Watch(ctx, pin, time.Hour)
	require.NoError(t, err)

	pin.EdgesChan <- gpio.Low
	expectPress(t, presses)
	pin.EdgesChan <- gpio.Low
	expectNoPress(t, presses)
}

func TestWatchClosesOnCancel(t *testing.T) {
	pin := &gpiotest.Pin{N: "pause", EdgesChan: make(chan gpio.Level, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	presses, err := Watch(ctx, pin, DefaultDebounce)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-presses:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
