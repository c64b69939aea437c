package hardware

// Sim is a Dummy with a crude plant model: every read of an encoder advances
// it by duty * TicksPerRead of the motor paired with it.  Good enough to run
// the whole control loop on a desk.
type Sim struct {
	*Dummy

	TicksPerRead float64

	pairs     map[EncoderID]MotorID
	remainder map[EncoderID]float64
}

func NewSim(ticksPerRead float64, pairs map[MotorID]EncoderID) *Sim {
	s := &Sim{
		Dummy:        NewDummy(),
		TicksPerRead: ticksPerRead,
		pairs:        map[EncoderID]MotorID{},
		remainder:    map[EncoderID]float64{},
	}
	for m, e := range pairs {
		s.pairs[e] = m
	}
	return s
}

var _ Interface = (*Sim)(nil)

func (s *Sim) ReadEncoder(id EncoderID) (int32, error) {
	if m, ok := s.pairs[id]; ok {
		ticks := s.Duty(m)*s.TicksPerRead + s.remainder[id]
		whole := int32(ticks)
		s.remainder[id] = ticks - float64(whole)
		s.AddTicks(id, whole)
	}
	return s.Dummy.ReadEncoder(id)
}
