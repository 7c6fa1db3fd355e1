package testhelpers

import (
	"io"
	"sync"
	"time"
)

// FakeSerialPort is an in-memory io.ReadWriteCloser standing in for a
// serial device. Reads drain bytes queued with Feed; an empty queue reads
// as zero bytes after a short pause, mimicking a port read timeout.
type FakeSerialPort struct {
	mu      sync.Mutex
	rdata   []byte
	written []byte
	closed  bool
}

// NewFakeSerialPort creates a new fake serial port
func NewFakeSerialPort() *FakeSerialPort {
	return &FakeSerialPort{}
}

// Feed queues bytes for subsequent reads
func (p *FakeSerialPort) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rdata = append(p.rdata, data...)
}

// Read drains queued bytes
func (p *FakeSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p.rdata) == 0 {
		p.mu.Unlock()
		// Pace idle reads the way a real port's read timeout does
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(b, p.rdata)
	p.rdata = p.rdata[n:]
	p.mu.Unlock()
	return n, nil
}

// Write records bytes sent to the device
func (p *FakeSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

// Close closes the port
func (p *FakeSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Written returns everything written to the port
func (p *FakeSerialPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.written))
	copy(out, p.written)
	return out
}
