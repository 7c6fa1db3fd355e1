package pulse

import (
	"errors"
	"fmt"
)

// ErrBitMismatch reports a mark/space pair that matches neither the one nor
// the zero timing of the scheme.
var ErrBitMismatch = errors.New("pulse: bit mismatch")

// Buffer is a captured pulse sequence: alternating mark and space durations
// in microseconds. Entry 0 is the receiver's synchronization gap preceding
// the frame; protocol data starts at StartOffset.
type Buffer []uint32

// Reader consumes a captured Buffer one entry or one bit pair at a time.
type Reader struct {
	buf Buffer
	pos int
}

// NewReader returns a Reader positioned at StartOffset.
func NewReader(buf Buffer) *Reader {
	return &Reader{buf: buf, pos: StartOffset}
}

// Pos returns the current buffer index.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unconsumed entries.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Peek returns the duration at the current position without consuming it.
func (r *Reader) Peek() (uint32, bool) {
	if r.pos >= len(r.buf) {
		return 0, false
	}
	return r.buf[r.pos], true
}

// Next consumes and returns the next duration.
func (r *Reader) Next() (uint32, bool) {
	d, ok := r.Peek()
	if ok {
		r.pos++
	}
	return d, ok
}

// ReadBits consumes up to nbits mark/space pairs under scheme t and
// classifies each pair as a one or a zero. It returns the accumulated value
// and the number of bits read.
//
// Running out of buffer before nbits is not an error: the partial value and
// count are returned and the caller decides whether that is acceptable. A
// pair matching neither bit timing returns ErrBitMismatch with the partial
// result and rewinds the reader to where the call began, so the caller can
// re-interpret the region as a different frame part.
func (r *Reader) ReadBits(t Timing, nbits uint16, msbFirst bool) (uint64, uint16, error) {
	markTol, spaceTol := t.markTolerance(), t.tolerance()
	start := r.pos
	var value uint64
	var read uint16
	for read < nbits {
		if r.Remaining() < 2 {
			return value, read, nil
		}
		mark, space := r.buf[r.pos], r.buf[r.pos+1]
		var bit uint64
		switch {
		case Match(mark, t.OneMark, markTol, t.Excess) &&
			Match(space, t.OneSpace, spaceTol, t.Excess):
			bit = 1
		case Match(mark, t.ZeroMark, markTol, t.Excess) &&
			Match(space, t.ZeroSpace, spaceTol, t.Excess):
			bit = 0
		default:
			r.pos = start
			return value, read, fmt.Errorf("bit %d (mark %dµs space %dµs): %w",
				read, mark, space, ErrBitMismatch)
		}
		if msbFirst {
			value = value<<1 | bit
		} else {
			value |= bit << read
		}
		r.pos += 2
		read++
	}
	return value, read, nil
}
