package hardware

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var ErrInjected = errors.New("injected hardware failure")

// Dummy is an in-memory Interface.  Encoder counters are set by the caller
// and every motor command is recorded.
type Dummy struct {
	lock sync.Mutex

	Verbose bool

	encoders [NumChannels]int32
	duties   [NumChannels]float64
	braked   [NumChannels]bool

	failEncoders bool
	failMotors   bool

	commands int
}

func NewDummy() *Dummy {
	return &Dummy{}
}

var _ Interface = (*Dummy)(nil)

func (d *Dummy) ReadEncoder(id EncoderID) (int32, error) {
	if !id.Valid() {
		return 0, errors.WithMessagef(ErrInvalidChannel, "read %v", id)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.failEncoders {
		return 0, errors.WithMessagef(ErrInjected, "read %v", id)
	}
	return d.encoders[id-1], nil
}

func (d *Dummy) SetMotorDuty(id MotorID, duty float64) error {
	if !id.Valid() {
		return errors.WithMessagef(ErrInvalidChannel, "set %v", id)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.commands++
	if d.failMotors {
		return errors.WithMessagef(ErrInjected, "set %v", id)
	}
	if d.Verbose {
		fmt.Printf("DHW: SetMotorDuty %v duty=%.3f\n", id, duty)
	}
	d.duties[id-1] = duty
	d.braked[id-1] = false
	return nil
}

func (d *Dummy) BrakeMotor(id MotorID) error {
	if !id.Valid() {
		return errors.WithMessagef(ErrInvalidChannel, "brake %v", id)
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.commands++
	if d.failMotors {
		return errors.WithMessagef(ErrInjected, "brake %v", id)
	}
	if d.Verbose {
		fmt.Printf("DHW: BrakeMotor %v\n", id)
	}
	d.duties[id-1] = 0
	d.braked[id-1] = true
	return nil
}

func (d *Dummy) SetEncoder(id EncoderID, count int32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.encoders[id-1] = count
}

// AddTicks advances the counter by delta, wrapping like a real int32 counter.
func (d *Dummy) AddTicks(id EncoderID, delta int32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.encoders[id-1] += delta
}

func (d *Dummy) Duty(id MotorID) float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.duties[id-1]
}

func (d *Dummy) Braked(id MotorID) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.braked[id-1]
}

// Commands is the number of duty and brake commands received so far.
func (d *Dummy) Commands() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.commands
}

func (d *Dummy) FailEncoderReads(fail bool) {
	d.lock.Lock()
	d.failEncoders = fail
	d.lock.Unlock()
}

func (d *Dummy) FailMotorCommands(fail bool) {
	d.lock.Lock()
	d.failMotors = fail
	d.lock.Unlock()
}
