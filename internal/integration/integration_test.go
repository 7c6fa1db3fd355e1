//go:build integration
// +build integration

package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/Alr2303/irsharp/internal/testhelpers"
	"github.com/Alr2303/irsharp/pkg/archive"
	"github.com/Alr2303/irsharp/pkg/metrics"
	"github.com/Alr2303/irsharp/pkg/mqtt"
	"github.com/Alr2303/irsharp/pkg/pulse"
	"github.com/Alr2303/irsharp/pkg/sharp"
	"github.com/Alr2303/irsharp/pkg/transceiver"
)

// TestClassicLoopbackRoundTrip transmits a classic frame through the
// loopback and decodes the capture
func TestClassicLoopbackRoundTrip(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	value := sharp.EncodeClassic(0x01, 0x16, 1, 0, false)
	if err := sharp.SendClassicRaw(suite.Loopback, uint64(value), sharp.ClassicBits, 0); err != nil {
		t.Fatalf("Failed to transmit: %v", err)
	}

	rec := suite.Loopback.GetTransmits()[0]
	if rec.CarrierHz != sharp.CarrierHz {
		t.Errorf("Expected carrier %d, got %d", sharp.CarrierHz, rec.CarrierHz)
	}
	if rec.Duty != sharp.ClassicDutyPercent {
		t.Errorf("Expected duty %d, got %d", sharp.ClassicDutyPercent, rec.Duty)
	}

	buf, ok := suite.Loopback.NextCapture()
	if !ok {
		t.Fatal("Expected a looped-back capture")
	}

	decoded, err := sharp.DecodeClassic(buf, sharp.DefaultClassicDecodeConfig())
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if decoded.Value != uint64(value) {
		t.Errorf("Value mismatch: expected 0x%04X, got 0x%04X", value, decoded.Value)
	}
	if decoded.Address != 0x01 {
		t.Errorf("Address mismatch: expected 0x01, got 0x%02X", decoded.Address)
	}
	if decoded.Command != 0x16 {
		t.Errorf("Command mismatch: expected 0x16, got 0x%02X", decoded.Command)
	}

	// The loopback capture holds both transmissions, so the inverted-copy
	// check can run against it too.
	strict := sharp.DefaultClassicDecodeConfig()
	strict.Strict = true
	strict.ValidateInvertedCopy = true
	if _, err := sharp.DecodeClassic(buf, strict); err != nil {
		t.Errorf("Strict decode with inverted copy failed: %v", err)
	}
}

// TestACLoopbackRoundTrip transmits an A/C state through the loopback and
// decodes the capture
func TestACLoopbackRoundTrip(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	state := sharp.NewACState()
	state.On()
	state.SetMode(sharp.ACModeCool)
	state.SetTemp(22)
	state.SetFan(sharp.ACFanMed)

	if err := state.Send(suite.Loopback, 0); err != nil {
		t.Fatalf("Failed to transmit: %v", err)
	}

	buf, ok := suite.Loopback.NextCapture()
	if !ok {
		t.Fatal("Expected a looped-back capture")
	}

	decoded, err := sharp.DecodeAC(buf, sharp.ACDecodeConfig{Strict: true})
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if decoded.Bits != sharp.ACBits {
		t.Errorf("Expected %d bits, got %d", sharp.ACBits, decoded.Bits)
	}
	if !sharp.ValidACChecksum(decoded.State) {
		t.Error("Expected a valid checksum on the looped-back state")
	}

	got := decoded.ACState()
	if !got.GetPower() {
		t.Error("Expected power on")
	}
	if got.GetMode() != sharp.ACModeCool {
		t.Errorf("Expected mode COOL, got %d", got.GetMode())
	}
	if got.GetTemp() != 22 {
		t.Errorf("Expected temp 22, got %d", got.GetTemp())
	}
	if got.GetFan() != sharp.ACFanMed {
		t.Errorf("Expected fan MED, got %d", got.GetFan())
	}
}

// TestCaptureArchivePipeline drains the loopback receiver the way the
// daemon loop does and archives what decodes
func TestCaptureArchivePipeline(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()

	// Put two classic frames and one A/C frame on the air
	valueA := sharp.EncodeClassic(0x01, 0x16, 1, 0, false)
	valueB := sharp.EncodeClassic(0x0A, 0x42, 1, 0, false)
	if err := sharp.SendClassicRaw(suite.Loopback, uint64(valueA), sharp.ClassicBits, 0); err != nil {
		t.Fatalf("Failed to transmit classic frame: %v", err)
	}
	if err := sharp.SendClassicRaw(suite.Loopback, uint64(valueB), sharp.ClassicBits, 0); err != nil {
		t.Fatalf("Failed to transmit classic frame: %v", err)
	}

	state := sharp.NewACState()
	state.On()
	state.SetMode(sharp.ACModeHeat)
	state.SetTemp(24)
	if err := state.Send(suite.Loopback, 0); err != nil {
		t.Fatalf("Failed to transmit A/C frame: %v", err)
	}

	db, err := archive.NewDB(archive.Config{Path: suite.TempArchive("pipeline")}, suite.Logger)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer func() { _ = db.Close() }()
	repo := archive.NewCaptureRepository(db.GetDB())

	// Drain the receiver: classic first, A/C as the fallback
	for {
		buf, ok := suite.Loopback.NextCapture()
		if !ok {
			break
		}
		collector.CaptureReceived(len(buf))

		if d, err := sharp.DecodeClassic(buf, sharp.DefaultClassicDecodeConfig()); err == nil {
			collector.DecodeSucceeded(archive.ProtocolClassic)
			rec := &archive.Capture{
				Protocol:   archive.ProtocolClassic,
				Bits:       d.Bits,
				Value:      d.Value,
				Address:    uint8(d.Address),
				Command:    uint8(d.Command),
				ChecksumOK: true,
				Source:     archive.SourceReceiver,
			}
			if err := repo.Create(rec); err != nil {
				t.Fatalf("Failed to archive classic capture: %v", err)
			}
			collector.CaptureArchived()
			continue
		}

		d, err := sharp.DecodeAC(buf, sharp.ACDecodeConfig{Strict: true})
		if err != nil {
			t.Fatalf("Capture decoded by neither protocol: %v", err)
		}
		collector.DecodeSucceeded(archive.ProtocolAC)
		rec := &archive.Capture{
			Protocol:   archive.ProtocolAC,
			Bits:       d.Bits,
			State:      fmt.Sprintf("%X", d.State),
			ChecksumOK: sharp.ValidACChecksum(d.State),
			Source:     archive.SourceReceiver,
		}
		if err := repo.Create(rec); err != nil {
			t.Fatalf("Failed to archive A/C capture: %v", err)
		}
		collector.CaptureArchived()
	}

	counts, err := repo.CountByProtocol()
	if err != nil {
		t.Fatalf("Failed to count captures: %v", err)
	}
	if counts[archive.ProtocolClassic] != 2 {
		t.Errorf("Expected 2 classic captures, got %d", counts[archive.ProtocolClassic])
	}
	if counts[archive.ProtocolAC] != 1 {
		t.Errorf("Expected 1 A/C capture, got %d", counts[archive.ProtocolAC])
	}

	recent, err := repo.GetRecent(10)
	if err != nil {
		t.Fatalf("Failed to query recent captures: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("Expected 3 recent captures, got %d", len(recent))
	}

	if collector.GetCaptures() != 3 {
		t.Errorf("Expected 3 captures counted, got %d", collector.GetCaptures())
	}
	if collector.GetArchived() != 3 {
		t.Errorf("Expected 3 captures archived, got %d", collector.GetArchived())
	}
	if collector.GetDecodes(archive.ProtocolClassic) != 2 {
		t.Errorf("Expected 2 classic decodes, got %d", collector.GetDecodes(archive.ProtocolClassic))
	}
}

// TestTransceiverSerialRoundTrip runs both transceiver paths over a fake
// serial port: a queued capture frame through ReadCapture into the decoder,
// and a transmit request back out as wire bytes
func TestTransceiverSerialRoundTrip(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	port := testhelpers.NewFakeSerialPort()
	trx := transceiver.NewTransceiver(port, suite.Logger)

	// Queue the capture frame the dongle would emit for an incoming signal
	value := sharp.EncodeClassic(0x02, 0x37, 1, 0, false)
	train := sharp.BuildClassic(uint64(value), sharp.ClassicBits, 0)
	capFrame := &transceiver.Frame{
		Type:      transceiver.FrameCapture,
		Durations: append(pulse.Train{45000}, train...),
	}
	data, err := capFrame.EncodeFrame()
	if err != nil {
		t.Fatalf("Failed to encode capture frame: %v", err)
	}
	port.Feed(data)

	buf, err := trx.ReadCapture()
	if err != nil {
		t.Fatalf("ReadCapture failed: %v", err)
	}

	decoded, err := sharp.DecodeClassic(buf, sharp.DefaultClassicDecodeConfig())
	if err != nil {
		t.Fatalf("Failed to decode capture: %v", err)
	}
	if decoded.Address != 0x02 || decoded.Command != 0x37 {
		t.Errorf("Decoded addr=0x%02X cmd=0x%02X, want addr=0x02 cmd=0x37",
			decoded.Address, decoded.Command)
	}

	// Transmit path: queue the ack, send, decode what went over the wire
	ack := &transceiver.Frame{Type: transceiver.FrameAck}
	ackData, err := ack.EncodeFrame()
	if err != nil {
		t.Fatalf("Failed to encode ack frame: %v", err)
	}
	port.Feed(ackData)

	if err := sharp.SendClassicRaw(trx, uint64(value), sharp.ClassicBits, 0); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}

	sent, rest, err := transceiver.DecodeFrame(port.Written())
	if err != nil {
		t.Fatalf("Failed to decode transmitted frame: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("Expected no trailing bytes on the wire, got %d", len(rest))
	}
	if sent.Type != transceiver.FrameTransmit {
		t.Errorf("Expected transmit frame type, got 0x%02X", sent.Type)
	}
	if sent.CarrierHz != sharp.CarrierHz {
		t.Errorf("Expected carrier %d, got %d", sharp.CarrierHz, sent.CarrierHz)
	}
	if sent.Duty != sharp.ClassicDutyPercent {
		t.Errorf("Expected duty %d, got %d", sharp.ClassicDutyPercent, sent.Duty)
	}
	if len(sent.Durations) != len(train) {
		t.Fatalf("Expected %d durations on the wire, got %d", len(train), len(sent.Durations))
	}
	for i, d := range train {
		if sent.Durations[i] != d {
			t.Fatalf("Duration %d: expected %d, got %d", i, d, sent.Durations[i])
		}
	}
}

// TestMQTTEventPublishing tests MQTT event publishing functionality
func TestMQTTEventPublishing(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	// Create MQTT publisher (disabled for testing)
	config := mqtt.Config{
		Enabled:     false,
		TopicPrefix: "irsharp/test",
	}
	publisher := mqtt.New(config, suite.Logger)

	// Test publishing a capture event
	captureEvent := mqtt.CaptureEvent{
		Protocol:   archive.ProtocolClassic,
		Bits:       15,
		Value:      0x41A6,
		Address:    0x01,
		Command:    0x16,
		ChecksumOK: true,
		Source:     archive.SourceReceiver,
		Timestamp:  time.Now(),
	}

	err := publisher.PublishCapture(captureEvent)
	if err != nil {
		t.Errorf("Failed to publish capture event: %v", err)
	}

	// Test publishing a transmit event
	transmitEvent := mqtt.TransmitEvent{
		Protocol:  archive.ProtocolAC,
		State:     "AA5ACF10DA21C008800000E041",
		Repeats:   1,
		Timestamp: time.Now(),
	}

	err = publisher.PublishTransmit(transmitEvent)
	if err != nil {
		t.Errorf("Failed to publish transmit event: %v", err)
	}

	// Test publishing an A/C state event
	stateEvent := mqtt.StateEvent{
		Power:     true,
		Mode:      "COOL",
		Temp:      22,
		Fan:       "MED",
		State:     "AA5ACF10DA21C008800000E041",
		Timestamp: time.Now(),
	}

	err = publisher.PublishState(stateEvent)
	if err != nil {
		t.Errorf("Failed to publish state event: %v", err)
	}
}

// TestMetricsCollection tests metrics collection functionality
func TestMetricsCollection(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()

	// Simulate incoming captures
	for i := 0; i < 5; i++ {
		collector.CaptureReceived(34)
	}

	if collector.GetCaptures() != 5 {
		t.Errorf("Expected 5 captures, got %d", collector.GetCaptures())
	}
	if collector.GetPulsesReceived() != 170 {
		t.Errorf("Expected 170 pulses, got %d", collector.GetPulsesReceived())
	}

	// Simulate decode outcomes
	collector.DecodeSucceeded(archive.ProtocolClassic)
	collector.DecodeSucceeded(archive.ProtocolClassic)
	collector.DecodeSucceeded(archive.ProtocolAC)
	collector.DecodeFailed(archive.ProtocolClassic, "bit_mismatch")
	collector.DecodeFailed(archive.ProtocolAC, "too_short")

	if collector.GetDecodes(archive.ProtocolClassic) != 2 {
		t.Errorf("Expected 2 classic decodes, got %d", collector.GetDecodes(archive.ProtocolClassic))
	}
	if collector.GetDecodeFailures(archive.ProtocolAC) != 1 {
		t.Errorf("Expected 1 A/C decode failure, got %d", collector.GetDecodeFailures(archive.ProtocolAC))
	}

	// Simulate transmissions
	collector.TransmitSent(archive.ProtocolClassic)
	collector.TransmitSent(archive.ProtocolAC)
	collector.TransmitFailed()

	if collector.GetTransmits(archive.ProtocolClassic) != 1 {
		t.Errorf("Expected 1 classic transmit, got %d", collector.GetTransmits(archive.ProtocolClassic))
	}
	if collector.GetTransmitFailures() != 1 {
		t.Errorf("Expected 1 transmit failure, got %d", collector.GetTransmitFailures())
	}

	// Simulate archive writes
	for i := 0; i < 3; i++ {
		collector.CaptureArchived()
	}
	if collector.GetArchived() != 3 {
		t.Errorf("Expected 3 archived captures, got %d", collector.GetArchived())
	}

	// Transceiver link state
	collector.SetTransceiverUp(true)
	if !collector.IsTransceiverUp() {
		t.Error("Expected transceiver up")
	}
	collector.SetTransceiverUp(false)
	if collector.IsTransceiverUp() {
		t.Error("Expected transceiver down")
	}
}

// TestMetricsConcurrency tests concurrent metrics updates
func TestMetricsConcurrency(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()

	// Simulate concurrent capture handling
	const workers = 50
	done := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				collector.CaptureReceived(34)
				collector.DecodeSucceeded(archive.ProtocolClassic)
			}
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < workers; i++ {
		<-done
	}

	// Verify metrics
	expectedCaptures := uint64(workers * 10)
	expectedPulses := uint64(workers * 10 * 34)

	if collector.GetCaptures() != expectedCaptures {
		t.Errorf("Expected %d captures, got %d", expectedCaptures, collector.GetCaptures())
	}
	if collector.GetPulsesReceived() != expectedPulses {
		t.Errorf("Expected %d pulses, got %d", expectedPulses, collector.GetPulsesReceived())
	}
	if collector.GetDecodes(archive.ProtocolClassic) != expectedCaptures {
		t.Errorf("Expected %d decodes, got %d", expectedCaptures, collector.GetDecodes(archive.ProtocolClassic))
	}
}

// TestIntegrationSuite_WaitForAdvanced tests advanced WaitFor scenarios
func TestIntegrationSuite_WaitForAdvanced(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()

	// Start background goroutine that will eventually meet condition
	go func() {
		time.Sleep(100 * time.Millisecond)
		for i := 0; i < 10; i++ {
			collector.CaptureReceived(34)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	// Wait for captures to be counted
	condition := func() bool {
		return collector.GetCaptures() >= 10
	}

	success := suite.WaitFor(condition, 2*time.Second, "10 captures received")
	if !success {
		t.Error("WaitFor failed: expected 10 captures to be received")
	}

	if collector.GetCaptures() < 10 {
		t.Errorf("Expected at least 10 captures, got %d", collector.GetCaptures())
	}
}
