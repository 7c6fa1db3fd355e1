package sharp

// Classic protocol tick timing. The carrier period at 38kHz is ~26µs and
// every classic duration is a whole number of ticks, which lets the decoder
// rescale all of them from one observed reference mark.
const (
	ClassicTick           = 26 // µs per tick
	ClassicBitMarkTicks   = 10
	ClassicOneSpaceTicks  = 70
	ClassicZeroSpaceTicks = 30
	ClassicGapTicks       = 1677
)

// Classic protocol timing (µs)
const (
	ClassicBitMark   = ClassicBitMarkTicks * ClassicTick   // 260
	ClassicOneSpace  = ClassicOneSpaceTicks * ClassicTick  // 1820
	ClassicZeroSpace = ClassicZeroSpaceTicks * ClassicTick // 780
	ClassicGap       = ClassicGapTicks * ClassicTick       // 43602
)

// Classic frame layout: address(5) + command(8) + expansion(1) + check(1)
const (
	ClassicBits        = 15
	ClassicAddressBits = 5
	ClassicCommandBits = 8
)

// Classic frame masks
const (
	ClassicToggleMask  = 1<<(ClassicBits-ClassicAddressBits) - 1 // 0x3FF, every non-address bit
	ClassicAddressMask = 1<<ClassicAddressBits - 1               // 0x1F
	ClassicCommandMask = 1<<ClassicCommandBits - 1               // 0xFF
)

// The classic bit mark is short enough that relative jitter on it runs well
// past the default tolerance, so marks are matched at 35%.
const classicMarkTolerance = 35

// Carrier parameters
const (
	CarrierHz          = 38000 // both protocols modulate at 38kHz
	ClassicDutyPercent = 33
	ACDutyPercent      = 50
)

// A/C protocol timing (µs)
const (
	ACHdrMark   = 3800
	ACHdrSpace  = 1900
	ACBitMark   = 470
	ACOneSpace  = 1400
	ACZeroSpace = 500
	ACGap       = 100000 // inter-message gap
)

// A/C state frame size
const (
	ACStateLength = 13
	ACBits        = ACStateLength * 8
)

// A/C temperature range (°C)
const (
	ACMinTemp = 15
	ACMaxTemp = 30
)

// A/C operating modes
const (
	ACModeAuto = 0x00
	ACModeHeat = 0x01
	ACModeCool = 0x02
	ACModeDry  = 0x03
)

// A/C fan speeds
const (
	ACFanAuto = 0x02
	ACFanMed  = 0x03
	ACFanMin  = 0x04
	ACFanHigh = 0x05
	ACFanMax  = 0x07
)

// A/C state byte indexes and field masks
const (
	acByteTemp       = 4
	acMaskTemp       = 0x0F // degrees above ACMinTemp
	acBytePower      = 5
	acBitPower       = 0x10
	acBitNonAutoMode = 0x20 // set in every mode except auto
	acByteMode       = 6
	acMaskMode       = 0x03 // bits 0-1
	acByteFan        = 6
	acMaskFan        = 0x70 // bits 4-6
	acByteManual     = 10
	acBitFanManual   = 0x02
	acBitTempManual  = 0x04
)

// Entries a header or footer region occupies in a capture buffer
const (
	headerEntries = 2
	footerEntries = 2
)
