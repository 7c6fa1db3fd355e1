package transceiver

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/Alr2303/irsharp/pkg/config"
	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/pulse"
)

// portReadTimeout bounds each blocking port read so the port lock is
// released periodically and a pending Transmit can take it.
const portReadTimeout = 100 * time.Millisecond

// ackSlack is added to a train's on-air time when waiting for its ack.
const ackSlack = 2 * time.Second

// ErrAckTimeout reports a transmit request the dongle never acknowledged.
var ErrAckTimeout = errors.New("transceiver: timed out waiting for transmit ack")

// errIdle is returned internally when a port read times out with no data.
var errIdle = errors.New("transceiver: port idle")

// Transceiver drives an IR transceiver dongle over a serial port. It
// implements pulse.Transmitter for the encode path and hands captured
// pulse buffers to the decode path via ReadCapture.
//
// The dongle is half duplex: a transmit request holds the port until its
// ack arrives, and capture frames that land in between are queued for the
// next ReadCapture.
type Transceiver struct {
	log    *logger.Logger
	port   io.ReadWriteCloser
	portMu sync.Mutex // serializes port transactions

	rbuf    []byte // undecoded bytes read from the port
	dropped int    // bytes discarded since the last good frame

	pending []pulse.Buffer
	pendMu  sync.Mutex
}

var _ pulse.Transmitter = (*Transceiver)(nil)

// Open opens the configured serial device and returns a Transceiver on it.
func Open(cfg config.TransceiverConfig, log *logger.Logger) (*Transceiver, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: portReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	t := NewTransceiver(port, log)
	t.log.Info("Serial port opened",
		logger.String("device", cfg.Device),
		logger.Int("baud", cfg.Baud))
	return t, nil
}

// NewTransceiver returns a Transceiver on an already-open port. Tests use
// this to substitute an in-memory port for real hardware.
func NewTransceiver(port io.ReadWriteCloser, log *logger.Logger) *Transceiver {
	return &Transceiver{
		log:  log.WithComponent("transceiver"),
		port: port,
	}
}

// Close closes the underlying port, unblocking any reader.
func (t *Transceiver) Close() error {
	return t.port.Close()
}

// Transmit encodes the train as a transmit frame, writes it to the dongle
// and waits for the ack. Capture frames that arrive while waiting are
// queued for ReadCapture.
func (t *Transceiver) Transmit(train pulse.Train, carrierHz uint32, dutyPercent uint8) error {
	req := &Frame{
		Type:      FrameTransmit,
		CarrierHz: carrierHz,
		Duty:      dutyPercent,
		Durations: train,
	}
	data, err := req.EncodeFrame()
	if err != nil {
		return fmt.Errorf("failed to encode transmit frame: %w", err)
	}

	t.portMu.Lock()
	defer t.portMu.Unlock()

	if _, err := t.port.Write(data); err != nil {
		return fmt.Errorf("failed to write transmit frame: %w", err)
	}

	t.log.Debug("Sent transmit frame",
		logger.Int("durations", len(train)),
		logger.Uint32("carrier_hz", carrierHz),
		logger.Int("duty_percent", int(dutyPercent)))

	// The dongle acks after the train has been emitted, so the wait scales
	// with its on-air time.
	deadline := time.Now().Add(train.Duration() + ackSlack)
	for {
		f, err := t.frameLocked()
		if err == errIdle {
			if time.Now().After(deadline) {
				return ErrAckTimeout
			}
			continue
		}
		if err != nil {
			return err
		}

		switch f.Type {
		case FrameAck:
			return nil
		case FrameCapture:
			t.queuePending(pulse.Buffer(f.Durations))
		default:
			t.log.Warn("Unexpected frame while waiting for ack",
				logger.Int("type", int(f.Type)))
		}
	}
}

// ReadCapture blocks until the dongle reports a captured signal and returns
// its pulse buffer. The first duration is the receiver's idle gap preceding
// the signal, matching pulse.Buffer's layout. ReadCapture returns an error
// only when the port does; callers treat that as the device going away.
func (t *Transceiver) ReadCapture() (pulse.Buffer, error) {
	for {
		if buf, ok := t.takePending(); ok {
			return buf, nil
		}

		f, err := t.nextFrame()
		if err == errIdle {
			continue
		}
		if err != nil {
			return nil, err
		}

		switch f.Type {
		case FrameCapture:
			return pulse.Buffer(f.Durations), nil
		default:
			// A stray ack after a transmit deadline expired.
			t.log.Debug("Ignoring non-capture frame", logger.Int("type", int(f.Type)))
		}
	}
}

// nextFrame takes the port for one decode attempt. Returning on errIdle
// (rather than looping under the lock) is what lets Transmit interleave.
func (t *Transceiver) nextFrame() (*Frame, error) {
	t.portMu.Lock()
	defer t.portMu.Unlock()
	return t.frameLocked()
}

// frameLocked decodes the next frame from rbuf, reading from the port as
// needed. Garbage in the stream is discarded a byte at a time until a valid
// frame boundary is found. Callers must hold portMu.
func (t *Transceiver) frameLocked() (*Frame, error) {
	for {
		for len(t.rbuf) >= MinFrameSize {
			f, rest, err := DecodeFrame(t.rbuf)
			if err == nil {
				if t.dropped > 0 {
					t.log.Warn("Resynced frame stream",
						logger.Int("dropped_bytes", t.dropped))
					t.dropped = 0
				}
				t.rbuf = rest
				return f, nil
			}
			if errors.Is(err, ErrShortFrame) {
				break
			}
			t.rbuf = t.rbuf[1:]
			t.dropped++
		}
		if err := t.fillLocked(); err != nil {
			return nil, err
		}
	}
}

// fillLocked appends one port read to rbuf. A zero-byte read is the port's
// read timeout and comes back as errIdle.
func (t *Transceiver) fillLocked() error {
	scratch := make([]byte, 512)
	n, err := t.port.Read(scratch)
	if n > 0 {
		t.rbuf = append(t.rbuf, scratch[:n]...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("serial read: %w", err)
	}
	return errIdle
}

func (t *Transceiver) queuePending(buf pulse.Buffer) {
	t.pendMu.Lock()
	t.pending = append(t.pending, buf)
	t.pendMu.Unlock()
}

func (t *Transceiver) takePending() (pulse.Buffer, bool) {
	t.pendMu.Lock()
	defer t.pendMu.Unlock()
	if len(t.pending) == 0 {
		return nil, false
	}
	buf := t.pending[0]
	t.pending = t.pending[1:]
	return buf, true
}
