package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motorboard"
)

// Hardware is the real robot: a motor board on the I²C bus, driven by a
// background I2CController loop.
type Hardware struct {
	*I2CController

	cancel   context.CancelFunc
	loopDone sync.WaitGroup
}

func New(bus string, addr int, pollInterval time.Duration) *Hardware {
	return &Hardware{
		I2CController: NewI2CController(func() (motorboard.Interface, error) {
			return motorboard.New(bus, addr)
		}, pollInterval),
	}
}

var _ Interface = (*Hardware)(nil)

// Start kicks off the I²C loop and waits for the first attempt to bring up
// the board to finish (successfully or not).
func (h *Hardware) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	var initDone sync.WaitGroup
	initDone.Add(1)
	h.loopDone.Add(1)
	go func() {
		defer h.loopDone.Done()
		h.Loop(ctx, &initDone)
	}()
	initDone.Wait()
}

func (h *Hardware) Shutdown() {
	fmt.Println("HW: Braking motors for shut down")
	h.BrakeAll()
	// Give the loop a chance to push the brakes before the board is closed.
	time.Sleep(30 * time.Millisecond)
	if h.cancel != nil {
		h.cancel()
		h.loopDone.Wait()
	}
	fmt.Println("HW: Shut down")
}
