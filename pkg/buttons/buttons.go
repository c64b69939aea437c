package buttons

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// DefaultDebounce matches the 2ms debounce of the board's button driver.
const DefaultDebounce = 2 * time.Millisecond

var ErrNoSuchPin = errors.New("no such GPIO pin")

// Open looks a button pin up by name.  host.Init() must have been called.
func Open(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.WithMessagef(ErrNoSuchPin, "button %q", name)
	}
	return p, nil
}

// Watch reports presses of an active-low button.  The channel is closed
// when the context is done.  Presses that arrive while the previous one has
// not been consumed are dropped.
func Watch(ctx context.Context, pin gpio.PinIn, debounce time.Duration) (<-chan struct{}, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, errors.Wrapf(err, "configuring button %s", pin)
	}
	presses := make(chan struct{}, 1)
	go func() {
		defer close(presses)
		var lastPress time.Time
		for ctx.Err() == nil {
			if !pin.WaitForEdge(100 * time.Millisecond) {
				continue
			}
			if pin.Read() != gpio.Low {
				continue
			}
			now := time.Now()
			if !lastPress.IsZero() && now.Sub(lastPress) < debounce {
				continue
			}
			lastPress = now
			select {
			case presses <- struct{}{}:
			default:
			}
		}
	}()
	return presses, nil
}
