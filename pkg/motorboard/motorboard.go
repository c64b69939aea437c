package motorboard

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x44

	// PWMFrequencyKHz matches the 25kHz the motor drivers are rated for.
	PWMFrequencyKHz = 25

	NumChannels = 4

	// DutyFullScale is the register value for a duty of 1.0.
	DutyFullScale = math.MaxInt16
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegPWMFreq
	RegBrakeMask

	RegMot0Duty
	RegMot1Duty
	RegMot2Duty
	RegMot3Duty

	// Encoder counters are 32 bits wide, two registers each.
	RegEnc0
	_
	RegEnc1
	_
	RegEnc2
	_
	RegEnc3
	_
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlResetEncoders
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusEncoderOverflow
)

var (
	ErrBadChannel   = errors.New("motor board channel out of range")
	ErrWriteFailed  = errors.New("motor board write failed after retries")
	ErrBoardFaulted = errors.New("motor board reports a fault")
)

// Interface is the subset of the board used by the hardware loop.
type Interface interface {
	SetDuty(channel int, duty float64) error
	Brake(channel int) error
	ReadEncoders() ([NumChannels]int32, error)
	Close() error
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	Write(buf []byte) error
	Close() error
}

type Board struct {
	dev    port
	reopen func() (port, error)

	configured bool
	brakeMask  uint16
}

var _ Interface = (*Board)(nil)

// New opens the board on the given I²C bus device (e.g. /dev/i2c-1).
func New(bus string, addr int) (*Board, error) {
	open := func() (port, error) {
		return i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	}
	dev, err := open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening motor board at %s:%#x", bus, addr)
	}
	return newBoard(dev, open), nil
}

func newBoard(dev port, reopen func() (port, error)) *Board {
	return &Board{
		dev:    dev,
		reopen: reopen,
	}
}

func (b *Board) SetDuty(channel int, duty float64) error {
	if channel < 0 || channel >= NumChannels {
		return ErrBadChannel
	}
	if err := b.maybeConfigure(); err != nil {
		return err
	}
	if b.brakeMask&(1<<uint(channel)) != 0 {
		b.brakeMask &^= 1 << uint(channel)
		if err := b.writeReg(RegBrakeMask, b.brakeMask); err != nil {
			return err
		}
	}
	return b.writeReg(RegMot0Duty+Register(channel), uint16(scaleDuty(duty)))
}

func (b *Board) Brake(channel int) error {
	if channel < 0 || channel >= NumChannels {
		return ErrBadChannel
	}
	if err := b.writeReg(RegMot0Duty+Register(channel), 0); err != nil {
		return err
	}
	b.brakeMask |= 1 << uint(channel)
	return b.writeReg(RegBrakeMask, b.brakeMask)
}

func (b *Board) ReadEncoders() (counts [NumChannels]int32, err error) {
	var buf [NumChannels * 4]byte
	if err = b.dev.ReadReg(byte(RegEnc0), buf[:]); err != nil {
		return counts, errors.Wrap(err, "reading encoders")
	}
	for i := range counts {
		counts[i] = int32(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return counts, nil
}

func (b *Board) Status() (StatusFlag, error) {
	raw, err := b.readReg(RegStatus)
	if err != nil {
		return 0, err
	}
	return StatusFlag(raw), nil
}

// Close brakes every channel before releasing the bus.
func (b *Board) Close() error {
	for ch := 0; ch < NumChannels; ch++ {
		_ = b.Brake(ch)
	}
	_ = b.writeReg(RegCtrl, RegCtrlEnableI2CControl)
	return b.dev.Close()
}

func (b *Board) maybeConfigure() error {
	if b.configured {
		return nil
	}
	status, err := b.Status()
	if err != nil {
		return err
	}
	if status&RegStatusFault != 0 {
		return errors.WithMessagef(ErrBoardFaulted, "status=%#x", status)
	}
	if err := b.writeReg(RegPWMFreq, PWMFrequencyKHz); err != nil {
		return err
	}
	if err := b.writeReg(RegCtrl, RegCtrlEnableI2CControl|RegCtrlRun); err != nil {
		return err
	}
	b.configured = true
	return nil
}

func (b *Board) writeWithRetries(data []byte) error {
	var err error
	for tries := 0; tries < 5; tries++ {
		err = b.dev.Write(data)
		if err == nil {
			if tries > 0 {
				fmt.Println("Motor board: write succeeded after retries")
			}
			return nil
		}
		fmt.Println("Motor board: failed to write:", err)
		time.Sleep(1 * time.Millisecond)
		if b.reopen == nil {
			continue
		}
		_ = b.dev.Close()
		dev, openErr := b.reopen()
		if openErr != nil {
			continue
		}
		b.dev = dev
		b.configured = false
	}
	return errors.WithMessagef(ErrWriteFailed, "register %d: %v", data[0], err)
}

func (b *Board) writeReg(reg Register, value uint16) error {
	return b.writeWithRetries([]byte{byte(reg), byte(value >> 8), byte(value)})
}

func (b *Board) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	err := b.dev.ReadReg(byte(reg), buf[:])
	if err != nil {
		return 0, errors.Wrapf(err, "reading register %d", reg)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func scaleDuty(duty float64) int16 {
	scaled := duty * DutyFullScale
	if scaled <= -DutyFullScale {
		return -DutyFullScale
	}
	if scaled >= DutyFullScale {
		return DutyFullScale
	}
	return int16(scaled)
}
