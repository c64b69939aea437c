package hardware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/motorboard"
)

type fakeBoard struct {
	lock     sync.Mutex
	duties   [NumChannels]float64
	brakes   [NumChannels]bool
	encoders [NumChannels]int32
	readErr  error
	closed   bool
}

func (f *fakeBoard) SetDuty(ch int, duty float64) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.duties[ch] = duty
	f.brakes[ch] = false
	return nil
}

func (f *fakeBoard) Brake(ch int) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.duties[ch] = 0
	f.brakes[ch] = true
	return nil
}

func (f *fakeBoard) ReadEncoders() ([NumChannels]int32, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.encoders, f.readErr
}

func (f *fakeBoard) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBoard) duty(ch int) float64 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.duties[ch]
}

func TestReadEncoderBeforeFirstPoll(t *testing.T) {
	c := NewI2CController(nil, 0)
	_, err := c.ReadEncoder(Encoder1)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = c.ReadEncoder(EncoderID(9))
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestPollPushesCommandsAndCachesEncoders(t *testing.T) {
	b := &fakeBoard{encoders: [NumChannels]int32{10, 20, 30, 40}}
	c := NewI2CController(nil, 0)

	require.NoError(t, c.SetMotorDuty(Motor2, 0.75))
	require.NoError(t, c.poll(b))

	assert.Equal(t, 0.75, b.duties[1])
	assert.True(t, b.brakes[0], "untouched motors start braked")
	v, err := c.ReadEncoder(Encoder3)
	require.NoError(t, err)
	assert.Equal(t, int32(30), v)

	require.NoError(t, c.BrakeMotor(Motor2))
	require.NoError(t, c.poll(b))
	assert.True(t, b.brakes[1])
}

func TestPollKeepsLastCountsOnReadFailure(t *testing.T) {
	b := &fakeBoard{encoders: [NumChannels]int32{5, 5, 5, 5}}
	c := NewI2CController(nil, 0)
	require.NoError(t, c.poll(b))

	b.encoders = [NumChannels]int32{9, 9, 9, 9}
	b.readErr = errors.New("bus glitch")
	require.NoError(t, c.poll(b))

	v, err := c.ReadEncoder(Encoder1)
	assert.Error(t, err)
	assert.Equal(t, int32(5), v)

	b.readErr = nil
	require.NoError(t, c.poll(b))
	v, err = c.ReadEncoder(Encoder1)
	require.NoError(t, err)
	assert.Equal(t, int32(9), v)
}

func TestLoopRecoversAfterOpenFailure(t *testing.T) {
	b := &fakeBoard{encoders: [NumChannels]int32{1, 2, 3, 4}}
	var opens int
	var openLock sync.Mutex
	c := NewI2CController(func() (motorboard.Interface, error) {
		openLock.Lock()
		defer openLock.Unlock()
		opens++
		if opens == 1 {
			return nil, errors.New("no such device")
		}
		return b, nil
	}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var initDone sync.WaitGroup
	initDone.Add(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Loop(ctx, &initDone)
	}()
	initDone.Wait()

	// May report the failed first open; the command is still queued.
	_ = c.SetMotorDuty(Motor4, -0.5)
	assert.Eventually(t, func() bool {
		v, err := c.ReadEncoder(Encoder4)
		return err == nil && v == 4
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return b.duty(3) == -0.5 }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.True(t, b.closed)
}
