package sharp

import (
	"fmt"
	"strings"

	"github.com/Alr2303/irsharp/pkg/pulse"
)

// acTiming is the wire scheme of the A/C state frame. Bytes go out in
// array order, LSB-first within each byte, with no inverted second copy.
var acTiming = pulse.Timing{
	HeaderMark:  ACHdrMark,
	HeaderSpace: ACHdrSpace,
	OneMark:     ACBitMark,
	OneSpace:    ACOneSpace,
	ZeroMark:    ACBitMark,
	ZeroSpace:   ACZeroSpace,
	FooterMark:  ACBitMark,
	Gap:         ACGap,
}

// acResetState is the factory state: power off, auto mode, no manual
// temperature or fan. The checksum nibble in the last byte is refreshed on
// every external read, never stored ahead of time.
var acResetState = [ACStateLength]byte{
	0xAA, 0x5A, 0xCF, 0x10, 0x00, 0x01, 0x00, 0x00, 0x08, 0x80, 0x00, 0xE0, 0x01,
}

// ACState is the 13-byte remote state of a Sharp air conditioner. Bytes 0-2
// are the fixed vendor preamble AA 5A CF; the remaining bytes carry the
// bit-packed power, mode, temperature and fan fields, with a 4-bit checksum
// in the high nibble of the last byte. Use NewACState; the zero value is
// not a valid frame.
type ACState struct {
	data [ACStateLength]byte
}

// NewACState returns a state initialized to the factory reset pattern.
func NewACState() *ACState {
	s := &ACState{}
	s.Reset()
	return s
}

// Reset restores the factory state.
func (s *ACState) Reset() {
	s.data = acResetState
}

// CalcACChecksum computes the 4-bit checksum of a state: an XOR fold of the
// first 12 bytes and the low nibble of the last, mixed with its own high
// nibble and masked down.
func CalcACChecksum(state [ACStateLength]byte) uint8 {
	var xorsum uint8
	for _, b := range state[:ACStateLength-1] {
		xorsum ^= b
	}
	xorsum ^= state[ACStateLength-1] & 0xF
	xorsum ^= xorsum >> 4
	return xorsum & 0xF
}

// ValidACChecksum reports whether the checksum nibble of the last byte
// matches the state contents.
func ValidACChecksum(state [ACStateLength]byte) bool {
	return state[ACStateLength-1]>>4 == CalcACChecksum(state)
}

// Checksum recomputes the checksum nibble in place.
func (s *ACState) Checksum() {
	s.data[ACStateLength-1] &= 0x0F
	s.data[ACStateLength-1] |= CalcACChecksum(s.data) << 4
}

// GetRaw returns the state bytes with the checksum nibble refreshed, so an
// externally observed state is never stale.
func (s *ACState) GetRaw() [ACStateLength]byte {
	s.Checksum()
	return s.data
}

// SetRaw adopts a captured state verbatim, checksum nibble included.
func (s *ACState) SetRaw(raw [ACStateLength]byte) {
	s.data = raw
}

// On sets the power flag.
func (s *ACState) On() {
	s.data[acBytePower] |= acBitPower
}

// Off clears the power flag.
func (s *ACState) Off() {
	s.data[acBytePower] &^= acBitPower
}

// SetPower sets or clears the power flag.
func (s *ACState) SetPower(on bool) {
	if on {
		s.On()
	} else {
		s.Off()
	}
}

// GetPower reports the power flag.
func (s *ACState) GetPower() bool {
	return s.data[acBytePower]&acBitPower != 0
}

// SetTemp sets the target temperature in °C, clamped to
// ACMinTemp..ACMaxTemp. Temperature is mode-gated: in auto and dry modes
// the field is forced to its sentinel zero and the whole manual byte is
// cleared, so degrees has no effect until the mode changes.
func (s *ACState) SetTemp(degrees uint8) {
	switch s.GetMode() {
	case ACModeAuto, ACModeDry:
		s.data[acByteTemp] = 0
		s.data[acByteManual] = 0
		return
	default:
		s.data[acByteTemp] = 0xC0
		s.data[acByteManual] |= acBitTempManual
	}
	if degrees < ACMinTemp {
		degrees = ACMinTemp
	}
	if degrees > ACMaxTemp {
		degrees = ACMaxTemp
	}
	s.data[acByteTemp] &^= acMaskTemp
	s.data[acByteTemp] |= degrees - ACMinTemp
}

// GetTemp returns the target temperature in °C. In auto and dry modes the
// field holds its sentinel and this reports ACMinTemp.
func (s *ACState) GetTemp() uint8 {
	return s.data[acByteTemp]&acMaskTemp + ACMinTemp
}

// SetMode selects the operating mode. Auto and dry force the temperature
// field to its sentinel and clear the manual byte, discarding any earlier
// SetTemp; cool and heat keep the current temperature. An unrecognized
// mode falls back to auto.
func (s *ACState) SetMode(mode uint8) {
	switch mode {
	case ACModeAuto, ACModeDry:
		if mode == ACModeAuto {
			s.data[acBytePower] &^= acBitNonAutoMode
		} else {
			s.data[acBytePower] |= acBitNonAutoMode
		}
		s.setModeBits(mode)
		s.SetTemp(0) // mode-gated, lands on the sentinel
	case ACModeCool, ACModeHeat:
		s.data[acBytePower] |= acBitNonAutoMode
		s.setModeBits(mode)
	default:
		s.SetMode(ACModeAuto)
	}
}

func (s *ACState) setModeBits(mode uint8) {
	s.data[acByteMode] &^= acMaskMode
	s.data[acByteMode] |= mode
}

// GetMode returns the operating mode.
func (s *ACState) GetMode() uint8 {
	return s.data[acByteMode] & acMaskMode
}

// SetFan selects the fan speed. Auto clears the manual-fan flag, any fixed
// speed sets it; an unrecognized speed falls back to auto.
func (s *ACState) SetFan(speed uint8) {
	s.data[acByteManual] |= acBitFanManual
	switch speed {
	case ACFanAuto:
		s.data[acByteManual] &^= acBitFanManual
		fallthrough
	case ACFanMin, ACFanMed, ACFanHigh, ACFanMax:
		s.data[acByteFan] &^= acMaskFan
		s.data[acByteFan] |= speed << 4
	default:
		s.SetFan(ACFanAuto)
	}
}

// GetFan returns the fan speed.
func (s *ACState) GetFan() uint8 {
	return (s.data[acByteFan] & acMaskFan) >> 4
}

// String renders the state for logs and CLI output.
func (s *ACState) String() string {
	var b strings.Builder
	b.WriteString("Power: ")
	if s.GetPower() {
		b.WriteString("On")
	} else {
		b.WriteString("Off")
	}
	fmt.Fprintf(&b, ", Mode: %d (%s)", s.GetMode(), ACModeName(s.GetMode()))
	fmt.Fprintf(&b, ", Temp: %dC", s.GetTemp())
	fmt.Fprintf(&b, ", Fan: %d (%s)", s.GetFan(), ACFanName(s.GetFan()))
	return b.String()
}

// ACModeName returns a human-readable name for an operating mode.
func ACModeName(mode uint8) string {
	switch mode {
	case ACModeAuto:
		return "AUTO"
	case ACModeCool:
		return "COOL"
	case ACModeHeat:
		return "HEAT"
	case ACModeDry:
		return "DRY"
	default:
		return "UNKNOWN"
	}
}

// ACFanName returns a human-readable name for a fan speed.
func ACFanName(speed uint8) string {
	switch speed {
	case ACFanAuto:
		return "AUTO"
	case ACFanMin:
		return "MIN"
	case ACFanMed:
		return "MED"
	case ACFanHigh:
		return "HIGH"
	case ACFanMax:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// BuildAC renders a 13-byte state into its pulse train, repeated repeat
// additional times.
func BuildAC(state [ACStateLength]byte, repeat uint16) pulse.Train {
	frame := acTiming.FrameBytes(state[:], false)
	out := make(pulse.Train, 0, (int(repeat)+1)*len(frame))
	for i := uint16(0); i <= repeat; i++ {
		out = append(out, frame...)
	}
	return out
}

// SendAC emits a raw 13-byte state exactly as given.
func SendAC(tx pulse.Transmitter, state [ACStateLength]byte, repeat uint16) error {
	return tx.Transmit(BuildAC(state, repeat), CarrierHz, ACDutyPercent)
}

// Send refreshes the checksum and emits the state.
func (s *ACState) Send(tx pulse.Transmitter, repeat uint16) error {
	return SendAC(tx, s.GetRaw(), repeat)
}

// ACDecodeConfig controls DecodeAC. The zero value decodes a full ACBits
// frame without compliance checks.
type ACDecodeConfig struct {
	Bits   uint16 // expected data bits, 0 means ACBits
	Strict bool   // require the full bit count and a valid checksum
}

// DecodedAC is a successfully decoded A/C state frame.
type DecodedAC struct {
	Bits  uint16              // data bits decoded
	State [ACStateLength]byte // state bytes in wire order
}

// ACState returns the decoded state as a mutable record.
func (d *DecodedAC) ACState() *ACState {
	s := &ACState{}
	s.SetRaw(d.State)
	return s
}

// DecodeAC decodes a captured A/C state frame. Bytes are matched one at a
// time and recorded straight into the state array: the frame is longer
// than any integer accumulator, and a capture cut short still yields its
// leading bytes, with Bits reporting how many made it, unless Strict
// demands them all.
func DecodeAC(buf pulse.Buffer, cfg ACDecodeConfig) (*DecodedAC, error) {
	nbits := cfg.Bits
	if nbits == 0 {
		nbits = ACBits
	}
	if len(buf) < 2*int(nbits)+headerEntries+footerEntries-1 {
		return nil, fmt.Errorf("sharp_ac: %d entries for %d bits: %w", len(buf), nbits, ErrTooShort)
	}
	if cfg.Strict && nbits != ACBits {
		return nil, fmt.Errorf("sharp_ac: requested %d bits, protocol has %d: %w",
			nbits, ACBits, ErrCompliance)
	}

	r := pulse.NewReader(buf)

	if mark, ok := r.Next(); !ok || !pulse.Match(mark, ACHdrMark, pulse.DefaultTolerance, 0) {
		return nil, fmt.Errorf("sharp_ac: header mark %dµs: %w", mark, ErrBadHeader)
	}
	if space, ok := r.Next(); !ok || !pulse.Match(space, ACHdrSpace, pulse.DefaultTolerance, 0) {
		return nil, fmt.Errorf("sharp_ac: header space %dµs: %w", space, ErrBadHeader)
	}

	// A byte read that fails rewinds to the byte boundary, where the
	// footer match below takes over.
	var out DecodedAC
	for i := 0; r.Remaining() >= 16 && out.Bits < nbits && i < ACStateLength; i++ {
		b, read, err := r.ReadBits(acTiming, 8, false)
		if err != nil || read < 8 {
			break
		}
		out.State[i] = byte(b)
		out.Bits += 8
	}

	if mark, ok := r.Next(); !ok || !pulse.Match(mark, ACBitMark, pulse.DefaultTolerance, 0) {
		return nil, fmt.Errorf("sharp_ac: footer mark %dµs: %w", mark, ErrBitMismatch)
	}
	if gap, ok := r.Peek(); ok && !pulse.MatchAtLeast(gap, ACGap, pulse.DefaultTolerance, 0) {
		return nil, fmt.Errorf("sharp_ac: trailing gap %dµs: %w", gap, ErrBitMismatch)
	}

	if cfg.Strict {
		if out.Bits != ACBits {
			return nil, fmt.Errorf("sharp_ac: decoded %d of %d bits: %w",
				out.Bits, ACBits, ErrCompliance)
		}
		if !ValidACChecksum(out.State) {
			return nil, fmt.Errorf("sharp_ac: checksum mismatch: %w", ErrCompliance)
		}
	}
	return &out, nil
}
