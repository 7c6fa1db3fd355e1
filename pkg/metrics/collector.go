package metrics

import (
	"sync"
)

// Collector collects IR codec and transceiver metrics
type Collector struct {
	mu sync.RWMutex

	// Capture metrics
	capturesTotal  uint64
	pulsesReceived uint64

	// Decode metrics
	decodes        map[string]uint64            // key: protocol
	decodeFailures map[string]map[string]uint64 // protocol -> reason -> count

	// Transmit metrics
	transmits        map[string]uint64 // key: protocol
	transmitFailures uint64

	// Archive metrics
	archived uint64

	// Transceiver link state
	transceiverUp bool
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		decodes:        make(map[string]uint64),
		decodeFailures: make(map[string]map[string]uint64),
		transmits:      make(map[string]uint64),
	}
}

// CaptureReceived records a pulse buffer arriving from the transceiver
func (c *Collector) CaptureReceived(pulseCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturesTotal++
	c.pulsesReceived += uint64(pulseCount)
}

// DecodeSucceeded records a successful decode for a protocol
func (c *Collector) DecodeSucceeded(protocol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.decodes[protocol]++
}

// DecodeFailed records a decode failure for a protocol, keyed by reason
func (c *Collector) DecodeFailed(protocol, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byReason := c.decodeFailures[protocol]
	if byReason == nil {
		byReason = make(map[string]uint64)
		c.decodeFailures[protocol] = byReason
	}
	byReason[reason]++
}

// TransmitSent records a completed transmission for a protocol
func (c *Collector) TransmitSent(protocol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transmits[protocol]++
}

// TransmitFailed records a transmission the dongle did not complete
func (c *Collector) TransmitFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transmitFailures++
}

// CaptureArchived records a capture written to the archive
func (c *Collector) CaptureArchived() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.archived++
}

// SetTransceiverUp records the serial link state
func (c *Collector) SetTransceiverUp(up bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transceiverUp = up
}

// Reset clears all metrics (useful for testing)
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capturesTotal = 0
	c.pulsesReceived = 0
	c.decodes = make(map[string]uint64)
	c.decodeFailures = make(map[string]map[string]uint64)
	c.transmits = make(map[string]uint64)
	c.transmitFailures = 0
	c.archived = 0
	c.transceiverUp = false
}

// Getters for metrics

// GetCaptures returns total pulse buffers received
func (c *Collector) GetCaptures() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capturesTotal
}

// GetPulsesReceived returns total pulse durations received
func (c *Collector) GetPulsesReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pulsesReceived
}

// GetDecodes returns successful decodes for a protocol
func (c *Collector) GetDecodes(protocol string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decodes[protocol]
}

// GetDecodeFailures returns decode failures for a protocol across all reasons
func (c *Collector) GetDecodeFailures(protocol string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total uint64
	for _, n := range c.decodeFailures[protocol] {
		total += n
	}
	return total
}

// GetTransmits returns completed transmissions for a protocol
func (c *Collector) GetTransmits(protocol string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transmits[protocol]
}

// GetTransmitFailures returns failed transmissions
func (c *Collector) GetTransmitFailures() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transmitFailures
}

// GetArchived returns captures written to the archive
func (c *Collector) GetArchived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.archived
}

// IsTransceiverUp returns the serial link state
func (c *Collector) IsTransceiverUp() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transceiverUp
}

// Snapshot accessors for the exposition handler. Each returns a copy so the
// caller can iterate without holding the collector's lock.

// DecodeCounts returns successful decode counts per protocol
func (c *Collector) DecodeCounts() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]uint64, len(c.decodes))
	for k, v := range c.decodes {
		out[k] = v
	}
	return out
}

// DecodeFailureCounts returns decode failure counts per protocol and reason
func (c *Collector) DecodeFailureCounts() map[string]map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]uint64, len(c.decodeFailures))
	for proto, byReason := range c.decodeFailures {
		m := make(map[string]uint64, len(byReason))
		for reason, n := range byReason {
			m[reason] = n
		}
		out[proto] = m
	}
	return out
}

// TransmitCounts returns completed transmission counts per protocol
func (c *Collector) TransmitCounts() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]uint64, len(c.transmits))
	for k, v := range c.transmits {
		out[k] = v
	}
	return out
}
