package pulse

import "time"

// Train is an encoded pulse sequence ready for transmission: alternating
// mark and space durations in microseconds, starting with a mark.
type Train []uint32

// Duration returns the total on-air time of the train.
func (tr Train) Duration() time.Duration {
	var total uint64
	for _, d := range tr {
		total += uint64(d)
	}
	return time.Duration(total) * time.Microsecond
}

// Frame renders nbits of data into a pulse train under the scheme t: the
// header pair if the scheme has one, one mark/space pair per bit, then the
// footer mark and trailing gap.
func (t Timing) Frame(data uint64, nbits uint16, msbFirst bool) Train {
	out := make(Train, 0, 2*int(nbits)+4)
	if t.HeaderMark > 0 {
		out = append(out, t.HeaderMark, t.HeaderSpace)
	}
	out = t.appendBits(out, data, nbits, msbFirst)
	return t.appendFooter(out)
}

// FrameBytes renders a byte sequence into a pulse train under the scheme t.
// Bytes are emitted in array order; msbFirst selects the bit order within
// each byte.
func (t Timing) FrameBytes(data []byte, msbFirst bool) Train {
	out := make(Train, 0, 16*len(data)+4)
	if t.HeaderMark > 0 {
		out = append(out, t.HeaderMark, t.HeaderSpace)
	}
	for _, b := range data {
		out = t.appendBits(out, uint64(b), 8, msbFirst)
	}
	return t.appendFooter(out)
}

func (t Timing) appendBits(out Train, data uint64, nbits uint16, msbFirst bool) Train {
	if msbFirst {
		for i := int(nbits) - 1; i >= 0; i-- {
			out = t.appendBit(out, data>>uint(i)&1 == 1)
		}
	} else {
		for i := 0; i < int(nbits); i++ {
			out = t.appendBit(out, data>>uint(i)&1 == 1)
		}
	}
	return out
}

func (t Timing) appendBit(out Train, one bool) Train {
	if one {
		return append(out, t.OneMark, t.OneSpace)
	}
	return append(out, t.ZeroMark, t.ZeroSpace)
}

func (t Timing) appendFooter(out Train) Train {
	if t.FooterMark > 0 {
		out = append(out, t.FooterMark)
	}
	if t.Gap > 0 {
		out = append(out, t.Gap)
	}
	return out
}
