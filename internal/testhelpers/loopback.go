package testhelpers

import (
	"sync"

	"github.com/Alr2303/irsharp/pkg/pulse"
)

// loopbackSyncGap is the idle period recorded ahead of each looped-back
// frame, standing in for the receiver's inter-frame silence.
const loopbackSyncGap = 45000

// LoopbackTransmitter is a pulse.Transmitter that loops every transmission
// back as a capture buffer, simulating transceiver hardware with its
// emitter taped to its receiver.
type LoopbackTransmitter struct {
	mu        sync.RWMutex
	transmits []LoopbackTransmit
	captures  []pulse.Buffer
	err       error
}

// LoopbackTransmit records one Transmit call.
type LoopbackTransmit struct {
	Train     pulse.Train
	CarrierHz uint32
	Duty      uint8
}

var _ pulse.Transmitter = (*LoopbackTransmitter)(nil)

// NewLoopbackTransmitter creates a new loopback transmitter
func NewLoopbackTransmitter() *LoopbackTransmitter {
	return &LoopbackTransmitter{
		transmits: make([]LoopbackTransmit, 0),
		captures:  make([]pulse.Buffer, 0),
	}
}

// Transmit records the train and queues it back as a capture. The capture
// gets the sync-gap entry a real receiver records ahead of the first mark.
func (l *LoopbackTransmitter) Transmit(train pulse.Train, carrierHz uint32, dutyPercent uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return l.err
	}

	rec := LoopbackTransmit{
		Train:     make(pulse.Train, len(train)),
		CarrierHz: carrierHz,
		Duty:      dutyPercent,
	}
	copy(rec.Train, train)
	l.transmits = append(l.transmits, rec)

	buf := make(pulse.Buffer, 0, len(train)+pulse.StartOffset)
	buf = append(buf, loopbackSyncGap)
	buf = append(buf, train...)
	l.captures = append(l.captures, buf)
	return nil
}

// FailWith makes every following Transmit return err. Pass nil to restore
// normal operation.
func (l *LoopbackTransmitter) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// NextCapture pops the oldest queued capture
func (l *LoopbackTransmitter) NextCapture() (pulse.Buffer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.captures) == 0 {
		return nil, false
	}
	buf := l.captures[0]
	l.captures = l.captures[1:]
	return buf, true
}

// GetCaptures returns all queued captures
func (l *LoopbackTransmitter) GetCaptures() []pulse.Buffer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	captures := make([]pulse.Buffer, len(l.captures))
	copy(captures, l.captures)
	return captures
}

// GetTransmits returns all recorded Transmit calls
func (l *LoopbackTransmitter) GetTransmits() []LoopbackTransmit {
	l.mu.RLock()
	defer l.mu.RUnlock()

	transmits := make([]LoopbackTransmit, len(l.transmits))
	copy(transmits, l.transmits)
	return transmits
}

// GetTransmitCount returns the number of Transmit calls recorded
func (l *LoopbackTransmitter) GetTransmitCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.transmits)
}
