package transceiver

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Serial frame layout: magic, type, big-endian duration count, a carrier
// descriptor on transmit frames, the durations, then an XOR checksum over
// everything between the magic and the checksum.
const (
	FrameMagic0 = 0xA5
	FrameMagic1 = 0x1C

	// FrameHeaderSize is magic + type + count
	FrameHeaderSize = 5
	// FrameCarrierSize is carrier Hz + duty percent, transmit frames only
	FrameCarrierSize = 5
	// FrameChecksumSize is the trailing XOR checksum
	FrameChecksumSize = 1
	// MinFrameSize is the smallest complete frame (an ack)
	MinFrameSize = FrameHeaderSize + FrameChecksumSize

	// MaxDurations bounds a single frame; the longest Sharp train (an A/C
	// frame with repeats) stays well under it.
	MaxDurations = 4096
)

// Frame types
const (
	FrameTransmit = 0x01 // host -> dongle: modulate and emit durations
	FrameCapture  = 0x02 // dongle -> host: measured durations of a received signal
	FrameAck      = 0x03 // dongle -> host: transmit request completed
)

var (
	ErrBadMagic     = errors.New("transceiver: bad frame magic")
	ErrBadType      = errors.New("transceiver: unknown frame type")
	ErrShortFrame   = errors.New("transceiver: incomplete frame")
	ErrChecksum     = errors.New("transceiver: checksum mismatch")
	ErrTooManyPulse = errors.New("transceiver: too many durations for one frame")
)

// Frame is one unit of the serial protocol spoken to the IR dongle.
type Frame struct {
	Type      byte
	CarrierHz uint32 // transmit frames only
	Duty      uint8  // transmit frames only, percent
	Durations []uint32
}

// frameSize returns the encoded size of a frame carrying count durations.
func frameSize(frameType byte, count int) int {
	size := FrameHeaderSize + 4*count + FrameChecksumSize
	if frameType == FrameTransmit {
		size += FrameCarrierSize
	}
	return size
}

// xorChecksum folds every byte between the magic and the checksum itself.
func xorChecksum(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum ^= b
	}
	return sum
}

// EncodeFrame encodes a frame for the wire.
func (f *Frame) EncodeFrame() ([]byte, error) {
	switch f.Type {
	case FrameTransmit, FrameCapture, FrameAck:
	default:
		return nil, fmt.Errorf("type 0x%02X: %w", f.Type, ErrBadType)
	}
	if len(f.Durations) > MaxDurations {
		return nil, fmt.Errorf("%d durations: %w", len(f.Durations), ErrTooManyPulse)
	}

	out := make([]byte, frameSize(f.Type, len(f.Durations)))
	out[0] = FrameMagic0
	out[1] = FrameMagic1
	out[2] = f.Type
	binary.BigEndian.PutUint16(out[3:5], uint16(len(f.Durations)))

	pos := FrameHeaderSize
	if f.Type == FrameTransmit {
		binary.BigEndian.PutUint32(out[pos:pos+4], f.CarrierHz)
		out[pos+4] = f.Duty
		pos += FrameCarrierSize
	}
	for _, d := range f.Durations {
		binary.BigEndian.PutUint32(out[pos:pos+4], d)
		pos += 4
	}
	out[pos] = xorChecksum(out[2:pos])
	return out, nil
}

// DecodeFrame decodes the first frame in data. It returns the frame and any
// remaining bytes after it. ErrShortFrame means more bytes are needed; the
// caller keeps data and reads on.
func DecodeFrame(data []byte) (*Frame, []byte, error) {
	if len(data) < MinFrameSize {
		return nil, data, ErrShortFrame
	}
	if data[0] != FrameMagic0 || data[1] != FrameMagic1 {
		return nil, data, fmt.Errorf("0x%02X%02X: %w", data[0], data[1], ErrBadMagic)
	}

	frameType := data[2]
	switch frameType {
	case FrameTransmit, FrameCapture, FrameAck:
	default:
		return nil, data, fmt.Errorf("type 0x%02X: %w", frameType, ErrBadType)
	}

	count := int(binary.BigEndian.Uint16(data[3:5]))
	if count > MaxDurations {
		return nil, data, fmt.Errorf("%d durations: %w", count, ErrTooManyPulse)
	}
	total := frameSize(frameType, count)
	if len(data) < total {
		return nil, data, ErrShortFrame
	}

	if got, want := data[total-1], xorChecksum(data[2:total-1]); got != want {
		return nil, data, fmt.Errorf("got 0x%02X, want 0x%02X: %w", got, want, ErrChecksum)
	}

	f := &Frame{Type: frameType}
	pos := FrameHeaderSize
	if frameType == FrameTransmit {
		f.CarrierHz = binary.BigEndian.Uint32(data[pos : pos+4])
		f.Duty = data[pos+4]
		pos += FrameCarrierSize
	}
	if count > 0 {
		f.Durations = make([]uint32, count)
		for i := range f.Durations {
			f.Durations[i] = binary.BigEndian.Uint32(data[pos : pos+4])
			pos += 4
		}
	}
	return f, data[total:], nil
}
