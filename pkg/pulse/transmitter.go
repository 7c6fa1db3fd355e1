package pulse

// Transmitter is the hardware side of the encode path: it modulates the
// given carrier and emits the train's mark/space durations. Transmit blocks
// until the whole train has been emitted.
type Transmitter interface {
	Transmit(train Train, carrierHz uint32, dutyPercent uint8) error
}
