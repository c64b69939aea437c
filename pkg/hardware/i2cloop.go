package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motorboard"
)

const DefaultPollInterval = 2 * time.Millisecond

// I2CController owns the motor board.  Callers only touch the cached values
// under the lock; the loop goroutine does the actual bus traffic, so encoder
// reads and motor commands never block on I²C.
type I2CController struct {
	lock sync.Mutex

	// Desired values.  Stored off in case we need to re-initialise the hardware.
	duties   [NumChannels]float64
	brakes   [NumChannels]bool
	dirty    [NumChannels]bool
	boardErr error

	// Latest measurements.
	encoders    [NumChannels]int32
	haveReading bool
	readErr     error
	readTime    time.Time

	openBoard    func() (motorboard.Interface, error)
	pollInterval time.Duration
}

func NewI2CController(openBoard func() (motorboard.Interface, error), pollInterval time.Duration) *I2CController {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	c := &I2CController{
		openBoard:    openBoard,
		pollInterval: pollInterval,
	}
	for i := range c.brakes {
		c.brakes[i] = true
		c.dirty[i] = true
	}
	return c
}

var _ Interface = (*I2CController)(nil)

func (c *I2CController) ReadEncoder(id EncoderID) (int32, error) {
	if !id.Valid() {
		return 0, errors.WithMessagef(ErrInvalidChannel, "read %v", id)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.haveReading {
		return 0, ErrNotReady
	}
	if c.readErr != nil {
		return c.encoders[id-1], errors.WithMessagef(c.readErr, "read %v", id)
	}
	return c.encoders[id-1], nil
}

func (c *I2CController) SetMotorDuty(id MotorID, duty float64) error {
	if !id.Valid() {
		return errors.WithMessagef(ErrInvalidChannel, "set %v", id)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.duties[id-1] != duty || c.brakes[id-1] {
		c.duties[id-1] = duty
		c.brakes[id-1] = false
		c.dirty[id-1] = true
	}
	return c.boardErr
}

func (c *I2CController) BrakeMotor(id MotorID) error {
	if !id.Valid() {
		return errors.WithMessagef(ErrInvalidChannel, "brake %v", id)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.brakes[id-1] {
		c.duties[id-1] = 0
		c.brakes[id-1] = true
		c.dirty[id-1] = true
	}
	return c.boardErr
}

func (c *I2CController) BrakeAll() {
	for id := Motor1; id <= Motor4; id++ {
		_ = c.BrakeMotor(id)
	}
}

// LastReadTime is when the encoder cache was last refreshed.
func (c *I2CController) LastReadTime() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.readTime
}

func (c *I2CController) Loop(ctx context.Context, initDone *sync.WaitGroup) {
	fmt.Println("I2C loop started")
	defer fmt.Println("I2C loop exited")
	for {
		err := c.loopUntilSomethingBadHappens(ctx, initDone)
		initDone = nil
		if ctx.Err() != nil {
			return
		}
		fmt.Println("===== !!! WARNING !!! I2C FAILURE; TRYING TO RECOVER =====", err)
		c.lock.Lock()
		c.boardErr = err
		c.readErr = err
		for i := range c.dirty {
			c.dirty[i] = true
		}
		c.lock.Unlock()
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (c *I2CController) loopUntilSomethingBadHappens(ctx context.Context, initDone *sync.WaitGroup) error {
	defer func() {
		if initDone != nil {
			initDone.Done()
		}
	}()

	board, err := c.openBoard()
	if err != nil {
		return errors.Wrap(err, "opening motor board")
	}
	defer board.Close()

	if err := c.poll(board); err != nil {
		return err
	}
	c.lock.Lock()
	c.boardErr = nil
	c.lock.Unlock()

	if initDone != nil {
		initDone.Done()
		initDone = nil
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := c.poll(board); err != nil {
			return err
		}
	}
}

// poll pushes any changed motor commands then refreshes the encoder cache.
func (c *I2CController) poll(board motorboard.Interface) error {
	c.lock.Lock()
	duties, brakes, dirty := c.duties, c.brakes, c.dirty
	c.dirty = [NumChannels]bool{}
	c.lock.Unlock()

	for ch := 0; ch < NumChannels; ch++ {
		if !dirty[ch] {
			continue
		}
		var err error
		if brakes[ch] {
			err = board.Brake(ch)
		} else {
			err = board.SetDuty(ch, duties[ch])
		}
		if err != nil {
			c.lock.Lock()
			c.dirty[ch] = true
			c.lock.Unlock()
			return errors.Wrapf(err, "updating motor %d", ch+1)
		}
	}

	counts, err := board.ReadEncoders()
	c.lock.Lock()
	defer c.lock.Unlock()
	if err != nil {
		// Keep the last good counts; the motors only ever see a zero delta.
		c.readErr = err
		fmt.Println("Failed to read encoders", err)
		return nil
	}
	c.encoders = counts
	c.haveReading = true
	c.readErr = nil
	c.readTime = time.Now()
	return nil
}
