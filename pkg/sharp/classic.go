package sharp

import (
	"fmt"

	"github.com/Alr2303/irsharp/pkg/pulse"
)

// classicTiming is the wire scheme of the classic frame. There is no
// header: the first bit mark doubles as the decoder's calibration
// reference.
var classicTiming = pulse.Timing{
	OneMark:       ClassicBitMark,
	OneSpace:      ClassicOneSpace,
	ZeroMark:      ClassicBitMark,
	ZeroSpace:     ClassicZeroSpace,
	FooterMark:    ClassicBitMark,
	Gap:           ClassicGap,
	MarkTolerance: classicMarkTolerance,
}

// EncodeClassic packs a classic frame value from its fields. Out-of-range
// inputs are masked down, never rejected.
//
// The protocol transmits address and command LSB-first. Unless msbFirst is
// set, both fields are bit-reversed here so the packed value carries them
// in wire order; msbFirst reproduces the historical (wrong-order) frames.
func EncodeClassic(address, command uint16, expansion, check uint8, msbFirst bool) uint32 {
	address &= ClassicAddressMask
	command &= ClassicCommandMask
	expansion &= 1
	check &= 1

	if !msbFirst {
		address = uint16(reverseBits(uint64(address), ClassicAddressBits))
		command = uint16(reverseBits(uint64(command), ClassicCommandBits))
	}
	return uint32(address)<<(ClassicCommandBits+2) | uint32(command)<<2 |
		uint32(expansion)<<1 | uint32(check)
}

// BuildClassic renders a classic frame value into its full pulse train,
// repeated repeat additional times. The protocol demands every transmission
// go out twice: once as given, then with all non-address bits inverted.
// XORing with the toggle mask twice restores the original, so each repeat
// starts from the caller's value again.
func BuildClassic(value uint64, nbits, repeat uint16) pulse.Train {
	out := make(pulse.Train, 0, (int(repeat)+1)*2*(2*int(nbits)+footerEntries))
	for i := uint16(0); i <= repeat; i++ {
		for n := 0; n < 2; n++ {
			out = append(out, classicTiming.Frame(value, nbits, true)...)
			value ^= ClassicToggleMask
		}
	}
	return out
}

// SendClassicRaw emits a classic frame value, blocking until the train is
// out.
func SendClassicRaw(tx pulse.Transmitter, value uint64, nbits, repeat uint16) error {
	return tx.Transmit(BuildClassic(value, nbits, repeat), CarrierHz, ClassicDutyPercent)
}

// SendClassicLegacy sends address and command in MSB-first field order with
// the expansion bit set and the check bit clear.
//
// Deprecated: the protocol orders both fields LSB-first; this entry point
// reproduces the historical MSB-first behavior for callers holding values
// recorded against it. Use EncodeClassic with SendClassicRaw instead.
func SendClassicLegacy(tx pulse.Transmitter, address, command uint16, nbits, repeat uint16) error {
	return SendClassicRaw(tx, uint64(EncodeClassic(address, command, 1, 0, true)), nbits, repeat)
}

// ClassicDecodeConfig controls DecodeClassic. The zero value decodes a
// ClassicBits frame without compliance checks.
type ClassicDecodeConfig struct {
	Bits   uint16 // expected data bits, 0 means ClassicBits
	Strict bool   // enforce protocol compliance beyond the timing match

	// ExpectExpansion is the expansion bit value strict mode requires.
	// Only consulted when Strict is set.
	ExpectExpansion bool

	// ValidateInvertedCopy additionally requires the frame's inverted
	// second transmission to be captured and to restore the first value.
	// Most receivers time out on the inter-frame gap and never capture
	// the copy, so this is off by default.
	ValidateInvertedCopy bool
}

// DefaultClassicDecodeConfig returns the canonical decode settings: a
// 15-bit frame with the expansion bit expected set.
func DefaultClassicDecodeConfig() ClassicDecodeConfig {
	return ClassicDecodeConfig{Bits: ClassicBits, ExpectExpansion: true}
}

// DecodedClassic is a successfully decoded classic frame.
type DecodedClassic struct {
	Bits    uint16 // data bits decoded
	Value   uint64 // raw frame value in wire order, suitable for SendClassicRaw
	Address uint16 // address corrected back to logical LSB-first order
	Command uint16 // command corrected back to logical LSB-first order
}

// DecodeClassic decodes a captured classic frame. The tick unit is
// calibrated from the first observed mark, so a receiver running slightly
// fast or slow shifts every expected duration together.
func DecodeClassic(buf pulse.Buffer, cfg ClassicDecodeConfig) (*DecodedClassic, error) {
	nbits := cfg.Bits
	if nbits == 0 {
		nbits = ClassicBits
	}
	if len(buf) < 2*int(nbits)+footerEntries-1 {
		return nil, fmt.Errorf("classic: %d entries for %d bits: %w", len(buf), nbits, ErrTooShort)
	}
	if cfg.Strict && nbits != ClassicBits {
		return nil, fmt.Errorf("classic: requested %d bits, protocol has %d: %w",
			nbits, ClassicBits, ErrCompliance)
	}
	if cfg.ValidateInvertedCopy && len(buf) < 2*(2*int(nbits)+footerEntries) {
		return nil, fmt.Errorf("classic: %d entries cannot hold an inverted copy: %w",
			len(buf), ErrTooShort)
	}

	r := pulse.NewReader(buf)

	// No header. Calibrate the tick unit off the first bit mark; the mark
	// stays unconsumed and decodes again as data.
	first, _ := r.Peek()
	if !pulse.Match(first, ClassicBitMark, classicMarkTolerance, 0) {
		return nil, fmt.Errorf("classic: calibration mark %dµs: %w", first, ErrBadHeader)
	}
	scaled := classicScaled(first / ClassicBitMarkTicks)

	value, read, err := r.ReadBits(scaled, nbits, true)
	if err != nil {
		return nil, fmt.Errorf("classic: %w", err)
	}
	if read != nbits {
		return nil, fmt.Errorf("classic: pulses ran out after %d of %d bits: %w",
			read, nbits, ErrBitMismatch)
	}
	if err := matchClassicFooter(r, scaled); err != nil {
		return nil, err
	}

	if cfg.Strict {
		if expansion := value>>1&1 == 1; expansion != cfg.ExpectExpansion {
			return nil, fmt.Errorf("classic: expansion bit %v, want %v: %w",
				expansion, cfg.ExpectExpansion, ErrCompliance)
		}
		if value&1 != 0 {
			return nil, fmt.Errorf("classic: check bit set: %w", ErrCompliance)
		}
	}
	if cfg.ValidateInvertedCopy {
		if err := validateInvertedCopy(r, scaled, value, nbits); err != nil {
			return nil, err
		}
	}

	return &DecodedClassic{
		Bits:    nbits,
		Value:   value,
		Address: uint16(reverseBits(value, nbits) & ClassicAddressMask),
		Command: uint16(reverseBits(value>>2&ClassicCommandMask, ClassicCommandBits)),
	}, nil
}

// classicScaled is the classic scheme with every duration rescaled to an
// observed tick.
func classicScaled(tick uint32) pulse.Timing {
	return pulse.Timing{
		OneMark:       ClassicBitMarkTicks * tick,
		OneSpace:      ClassicOneSpaceTicks * tick,
		ZeroMark:      ClassicBitMarkTicks * tick,
		ZeroSpace:     ClassicZeroSpaceTicks * tick,
		FooterMark:    ClassicBitMarkTicks * tick,
		Gap:           ClassicGapTicks * tick,
		MarkTolerance: classicMarkTolerance,
	}
}

// matchClassicFooter consumes the footer mark at the default tolerance. The
// trailing gap, when captured, only has to be long enough: it runs until
// the next frame.
func matchClassicFooter(r *pulse.Reader, scaled pulse.Timing) error {
	mark, ok := r.Next()
	if !ok || !pulse.Match(mark, scaled.FooterMark, pulse.DefaultTolerance, 0) {
		return fmt.Errorf("classic: footer mark %dµs: %w", mark, ErrBitMismatch)
	}
	if gap, ok := r.Peek(); ok && !pulse.MatchAtLeast(gap, scaled.Gap, pulse.DefaultTolerance, 0) {
		return fmt.Errorf("classic: trailing gap %dµs: %w", gap, ErrBitMismatch)
	}
	return nil
}

// validateInvertedCopy consumes the inter-frame gap and the second
// transmission, and checks the copy restores the first value through the
// toggle mask.
func validateInvertedCopy(r *pulse.Reader, scaled pulse.Timing, value uint64, nbits uint16) error {
	gap, ok := r.Next()
	if !ok || !pulse.Match(gap, scaled.Gap, pulse.DefaultTolerance, 0) {
		return fmt.Errorf("classic: repeat gap %dµs: %w", gap, ErrBitMismatch)
	}
	second, read, err := r.ReadBits(scaled, nbits, true)
	if err != nil {
		return fmt.Errorf("classic: inverted copy: %w", err)
	}
	if read != nbits {
		return fmt.Errorf("classic: inverted copy ran out after %d of %d bits: %w",
			read, nbits, ErrBitMismatch)
	}
	if err := matchClassicFooter(r, scaled); err != nil {
		return err
	}
	if value != second^ClassicToggleMask {
		return fmt.Errorf("classic: inverted copy 0x%04X does not restore 0x%04X: %w",
			second, value, ErrCompliance)
	}
	return nil
}
