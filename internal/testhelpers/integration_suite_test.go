//go:build integration
// +build integration

package testhelpers

import (
	"errors"
	"testing"
	"time"

	"github.com/Alr2303/irsharp/pkg/pulse"
)

// TestIntegrationSuite_Basic tests basic integration suite functionality
func TestIntegrationSuite_Basic(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	if suite.Logger == nil {
		t.Error("Expected logger to be initialized")
	}

	if suite.Ctx == nil {
		t.Error("Expected context to be initialized")
	}

	if suite.Loopback == nil {
		t.Error("Expected loopback transmitter to be initialized")
	}

	if suite.Config == nil {
		t.Error("Expected config to be initialized")
	}
}

// TestIntegrationSuite_Loopback tests the loopback transmitter
func TestIntegrationSuite_Loopback(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	train := pulse.Train{260, 1820, 260, 780, 260, 43602}
	if err := suite.Loopback.Transmit(train, 38000, 33); err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}

	if suite.Loopback.GetTransmitCount() != 1 {
		t.Errorf("Expected 1 transmit, got %d", suite.Loopback.GetTransmitCount())
	}

	rec := suite.Loopback.GetTransmits()[0]
	if rec.CarrierHz != 38000 {
		t.Errorf("Expected carrier 38000, got %d", rec.CarrierHz)
	}
	if rec.Duty != 33 {
		t.Errorf("Expected duty 33, got %d", rec.Duty)
	}

	buf, ok := suite.Loopback.NextCapture()
	if !ok {
		t.Fatal("Expected a queued capture")
	}
	if len(buf) != len(train)+pulse.StartOffset {
		t.Errorf("Expected capture length %d, got %d", len(train)+pulse.StartOffset, len(buf))
	}
	if buf[pulse.StartOffset] != train[0] {
		t.Errorf("Expected first data entry %d, got %d", train[0], buf[pulse.StartOffset])
	}

	if _, ok := suite.Loopback.NextCapture(); ok {
		t.Error("Expected capture queue to be drained")
	}
}

// TestIntegrationSuite_LoopbackFailure tests transmit error injection
func TestIntegrationSuite_LoopbackFailure(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	wantErr := errors.New("emitter offline")
	suite.Loopback.FailWith(wantErr)

	err := suite.Loopback.Transmit(pulse.Train{260, 1820}, 38000, 33)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected injected error, got %v", err)
	}

	if suite.Loopback.GetTransmitCount() != 0 {
		t.Errorf("Expected no recorded transmits, got %d", suite.Loopback.GetTransmitCount())
	}

	suite.Loopback.FailWith(nil)
	if err := suite.Loopback.Transmit(pulse.Train{260, 1820}, 38000, 33); err != nil {
		t.Errorf("Expected transmit to succeed after clearing, got %v", err)
	}
}

// TestIntegrationSuite_WaitFor tests the WaitFor helper
func TestIntegrationSuite_WaitFor(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	counter := 0
	condition := func() bool {
		counter++
		return counter >= 5
	}

	result := suite.WaitFor(condition, 1*time.Second, "counter >= 5")
	if !result {
		t.Error("Expected WaitFor to succeed")
	}

	if counter < 5 {
		t.Errorf("Expected counter >= 5, got %d", counter)
	}
}

// TestIntegrationSuite_WaitForTimeout tests WaitFor timeout
func TestIntegrationSuite_WaitForTimeout(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	condition := func() bool {
		return false
	}

	result := suite.WaitFor(condition, 100*time.Millisecond, "always false")
	if result {
		t.Error("Expected WaitFor to timeout")
	}
}

// TestIntegrationSuite_GetFreePort tests getting a free port
func TestIntegrationSuite_GetFreePort(t *testing.T) {
	suite := NewIntegrationSuite(t)
	defer suite.Cleanup()

	port := suite.GetFreePort()
	if port <= 0 || port > 65535 {
		t.Errorf("Invalid port number: %d", port)
	}
}

// TestDefaultConfig tests creating a default configuration
func TestDefaultConfig(t *testing.T) {
	cfg := CreateDefaultConfig()

	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}

	if cfg.Server.Name != "Test irsharpd" {
		t.Errorf("Expected server name 'Test irsharpd', got %s", cfg.Server.Name)
	}

	if !cfg.Decode.Classic.Enabled {
		t.Error("Expected classic decoder enabled")
	}

	if !cfg.Decode.AC.Strict {
		t.Error("Expected strict A/C decoding")
	}

	if cfg.Web.Enabled || cfg.MQTT.Enabled || cfg.Metrics.Enabled {
		t.Error("Expected outward-facing services disabled")
	}
}
