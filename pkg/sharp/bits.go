package sharp

// reverseBits reverses the low nbits of input and keeps any remaining
// higher bits on top of them.
func reverseBits(input uint64, nbits uint16) uint64 {
	if nbits <= 1 {
		return input
	}
	if nbits > 64 {
		nbits = 64
	}
	var output uint64
	for i := uint16(0); i < nbits; i++ {
		output = output<<1 | input&1
		input >>= 1
	}
	return input<<nbits | output
}
