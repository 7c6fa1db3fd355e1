package sharp

import (
	"errors"

	"github.com/Alr2303/irsharp/pkg/pulse"
)

// Decode failures are recoverable: they mean the capture is not a valid
// frame of the protocol asked about, and the caller is free to try another
// decoder or drop the capture.
var (
	// ErrTooShort reports a capture buffer below the minimum length for
	// the requested bit count.
	ErrTooShort = errors.New("sharp: buffer too short")

	// ErrBadHeader reports a header or calibration mark/space outside
	// tolerance.
	ErrBadHeader = errors.New("sharp: bad header")

	// ErrBitMismatch reports a data mark/space that matches neither bit
	// timing, a bad footer mark, or a bad trailing gap.
	ErrBitMismatch = pulse.ErrBitMismatch

	// ErrCompliance reports a strict-mode protocol violation: wrong bit
	// count, unexpected expansion or check bit, bad checksum, or a
	// missing/inconsistent inverted copy.
	ErrCompliance = errors.New("sharp: compliance check failed")
)
