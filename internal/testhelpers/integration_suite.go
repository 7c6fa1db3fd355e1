package testhelpers

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/Alr2303/irsharp/pkg/config"
	"github.com/Alr2303/irsharp/pkg/logger"
)

// IntegrationSuite provides infrastructure for integration tests
type IntegrationSuite struct {
	T        *testing.T
	Config   *config.Config
	Logger   *logger.Logger
	Ctx      context.Context
	Cancel   context.CancelFunc
	Loopback *LoopbackTransmitter
	dbPaths  []string
}

// NewIntegrationSuite creates a new integration test suite
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	return &IntegrationSuite{
		T:        t,
		Config:   CreateDefaultConfig(),
		Logger:   log,
		Ctx:      ctx,
		Cancel:   cancel,
		Loopback: NewLoopbackTransmitter(),
	}
}

// TempArchive returns a throwaway database path that Cleanup removes,
// including the WAL sidecar files.
func (s *IntegrationSuite) TempArchive(name string) string {
	path := fmt.Sprintf("/tmp/%s_%d.db", name, time.Now().UnixNano())
	s.dbPaths = append(s.dbPaths, path)
	return path
}

// GetFreePort gets a free port for testing
func (s *IntegrationSuite) GetFreePort() int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		s.T.Fatal(err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.T.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// Cleanup cleans up resources
func (s *IntegrationSuite) Cleanup() {
	// Remove archive databases
	for _, path := range s.dbPaths {
		_ = os.Remove(path)
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	}

	// Cancel context
	s.Cancel()
}

// WaitFor waits for a condition to be true
func (s *IntegrationSuite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually asserts that a condition becomes true within timeout
func (s *IntegrationSuite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// CreateDefaultConfig creates a default test configuration
func CreateDefaultConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Name:        "Test irsharpd",
			Description: "Integration test daemon",
		},
		Transceiver: config.TransceiverConfig{
			Device: "/dev/ttyUSB0",
			Baud:   115200,
		},
		Decode: config.DecodeConfig{
			Classic: config.ClassicDecodeConfig{
				Enabled:         true,
				ExpectExpansion: true,
			},
			AC: config.ACDecodeConfig{
				Enabled: true,
				Strict:  true,
			},
		},
		Archive: config.ArchiveConfig{
			Enabled: false,
		},
		Web: config.WebConfig{
			Enabled: false,
		},
		MQTT: config.MQTTConfig{
			Enabled: false,
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}
