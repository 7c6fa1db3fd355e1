package transceiver

import (
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/pulse"
)

// fakePort is an in-memory serial port. Reads drain a scripted byte stream
// and return io.EOF once it is empty; writes are recorded for inspection.
type fakePort struct {
	mu     sync.Mutex
	rdata  []byte
	wdata  []byte
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if len(p.rdata) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.rdata)
	p.rdata = p.rdata[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.wdata = append(p.wdata, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte{}, p.wdata...)
}

func encodeFrame(t *testing.T, f Frame) []byte {
	t.Helper()
	data, err := f.EncodeFrame()
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	return data
}

func TestTransmitWritesFrameAndWaitsForAck(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	port := &fakePort{rdata: encodeFrame(t, Frame{Type: FrameAck})}
	tr := NewTransceiver(port, log)

	train := pulse.Train{260, 1820, 260, 780, 260, 43602}
	if err := tr.Transmit(train, 38000, 33); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}

	sent, rest, err := DecodeFrame(port.written())
	if err != nil {
		t.Fatalf("DecodeFrame(written) error = %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("wrote %d extra bytes after the frame", len(rest))
	}
	if sent.Type != FrameTransmit {
		t.Errorf("sent Type = 0x%02X, want 0x%02X", sent.Type, FrameTransmit)
	}
	if sent.CarrierHz != 38000 {
		t.Errorf("sent CarrierHz = %d, want 38000", sent.CarrierHz)
	}
	if sent.Duty != 33 {
		t.Errorf("sent Duty = %d, want 33", sent.Duty)
	}
	if !reflect.DeepEqual(sent.Durations, []uint32(train)) {
		t.Errorf("sent Durations = %v, want %v", sent.Durations, train)
	}
}

func TestTransmitQueuesInterleavedCapture(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	capture := []uint32{100000, 260, 1820, 260, 780}

	// The dongle reports a capture before acking the transmit.
	script := encodeFrame(t, Frame{Type: FrameCapture, Durations: capture})
	script = append(script, encodeFrame(t, Frame{Type: FrameAck})...)
	port := &fakePort{rdata: script}
	tr := NewTransceiver(port, log)

	if err := tr.Transmit(pulse.Train{260, 780}, 38000, 33); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}

	buf, err := tr.ReadCapture()
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if !reflect.DeepEqual([]uint32(buf), capture) {
		t.Errorf("ReadCapture() = %v, want %v", buf, capture)
	}
}

func TestTransmitPortError(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	port := &fakePort{}
	port.Close()
	tr := NewTransceiver(port, log)

	if err := tr.Transmit(pulse.Train{260, 780}, 38000, 33); err == nil {
		t.Fatal("Transmit() on closed port returned nil error")
	}
}

func TestReadCaptureSkipsGarbageAndAcks(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	capture := []uint32{43602, 260, 1820}

	// Line noise, then a stray ack, then the capture.
	script := []byte{0x00, 0x13, 0x37}
	script = append(script, encodeFrame(t, Frame{Type: FrameAck})...)
	script = append(script, encodeFrame(t, Frame{Type: FrameCapture, Durations: capture})...)
	port := &fakePort{rdata: script}
	tr := NewTransceiver(port, log)

	buf, err := tr.ReadCapture()
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if !reflect.DeepEqual([]uint32(buf), capture) {
		t.Errorf("ReadCapture() = %v, want %v", buf, capture)
	}
}

func TestReadCaptureSplitAcrossReads(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	capture := []uint32{43602, 260, 1820, 260, 780}
	whole := encodeFrame(t, Frame{Type: FrameCapture, Durations: capture})

	// Deliver the frame one byte per Read call.
	port := &bytePort{data: whole}
	tr := NewTransceiver(port, log)

	buf, err := tr.ReadCapture()
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if !reflect.DeepEqual([]uint32(buf), capture) {
		t.Errorf("ReadCapture() = %v, want %v", buf, capture)
	}
}

func TestReadCapturePortError(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	tr := NewTransceiver(&fakePort{}, log)

	if _, err := tr.ReadCapture(); err == nil {
		t.Fatal("ReadCapture() on drained port returned nil error")
	}
}

// bytePort returns one byte per Read to exercise frame reassembly.
type bytePort struct {
	data []byte
}

func (p *bytePort) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, io.EOF
	}
	b[0] = p.data[0]
	p.data = p.data[1:]
	return 1, nil
}

func (p *bytePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *bytePort) Close() error                { return nil }

func TestTransmitRejectsOversizeTrain(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	tr := NewTransceiver(&fakePort{}, log)

	train := make(pulse.Train, MaxDurations+1)
	err := tr.Transmit(train, 38000, 33)
	if !errors.Is(err, ErrTooManyPulse) {
		t.Errorf("Transmit(oversize) error = %v, want %v", err, ErrTooManyPulse)
	}
}
