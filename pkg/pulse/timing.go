package pulse

// Matching and buffer conventions
const (
	DefaultTolerance = 25 // percent, applied when a Timing carries none
	StartOffset      = 1  // first protocol entry in a capture; entry 0 is the receiver sync gap
)

// Timing is the bit-timing scheme for one frame layout: all durations in
// microseconds. A zero HeaderMark means the frame has no header pair; a zero
// Gap means no trailing gap is emitted. Encode and decode share one scheme.
type Timing struct {
	HeaderMark    uint32 // leading mark, 0 = none
	HeaderSpace   uint32 // space after the leading mark
	OneMark       uint32 // mark of a "1" bit
	OneSpace      uint32 // space of a "1" bit
	ZeroMark      uint32 // mark of a "0" bit
	ZeroSpace     uint32 // space of a "0" bit
	FooterMark    uint32 // trailing mark, 0 = none
	Gap           uint32 // trailing frame gap, 0 = none
	Tolerance     uint8  // match tolerance percent, 0 = DefaultTolerance
	MarkTolerance uint8  // wider tolerance for data marks, 0 = Tolerance
	Excess        uint32 // absolute margin in µs widening both match bounds
}

// tolerance returns the effective space/footer tolerance.
func (t Timing) tolerance() uint8 {
	if t.Tolerance == 0 {
		return DefaultTolerance
	}
	return t.Tolerance
}

// markTolerance returns the effective data-mark tolerance. Short marks are
// matched with a wider tolerance than spaces since relative jitter on them
// is larger.
func (t Timing) markTolerance() uint8 {
	if t.MarkTolerance == 0 {
		return t.tolerance()
	}
	return t.MarkTolerance
}

// Match reports whether a measured duration is within tolerance percent of
// the desired duration, widened by excess µs on both sides:
//
//	desired*(1-tolerance/100) - excess <= measured <= desired*(1+tolerance/100) + excess
//
// The lower bound clamps at zero.
func Match(measured, desired uint32, tolerance uint8, excess uint32) bool {
	return measured >= matchLow(desired, tolerance, excess) &&
		measured <= matchHigh(desired, tolerance, excess)
}

// MatchAtLeast reports whether a measured duration meets the lower match
// bound. Trailing gaps are matched this way as they run until the next
// frame and may be arbitrarily long.
func MatchAtLeast(measured, desired uint32, tolerance uint8, excess uint32) bool {
	return measured >= matchLow(desired, tolerance, excess)
}

func matchLow(desired uint32, tolerance uint8, excess uint32) uint32 {
	margin := uint64(desired) * uint64(tolerance) / 100
	low := int64(desired) - int64(margin) - int64(excess)
	if low < 0 {
		return 0
	}
	return uint32(low)
}

func matchHigh(desired uint32, tolerance uint8, excess uint32) uint32 {
	return uint32(uint64(desired) + uint64(desired)*uint64(tolerance)/100 + uint64(excess))
}
