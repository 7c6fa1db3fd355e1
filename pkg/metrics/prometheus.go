package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Alr2303/irsharp/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	// Capture metrics
	output.WriteString("# HELP ir_captures_total Total pulse buffers received from the transceiver\n")
	output.WriteString("# TYPE ir_captures_total counter\n")
	output.WriteString(fmt.Sprintf("ir_captures_total %d\n", h.collector.GetCaptures()))

	output.WriteString("# HELP ir_pulses_received_total Total pulse durations received\n")
	output.WriteString("# TYPE ir_pulses_received_total counter\n")
	output.WriteString(fmt.Sprintf("ir_pulses_received_total %d\n", h.collector.GetPulsesReceived()))

	// Decode metrics
	output.WriteString("# HELP ir_decodes_total Successful decodes by protocol\n")
	output.WriteString("# TYPE ir_decodes_total counter\n")
	decodes := h.collector.DecodeCounts()
	for _, proto := range sortedKeys(decodes) {
		output.WriteString(fmt.Sprintf("ir_decodes_total{protocol=%q} %d\n",
			proto, decodes[proto]))
	}

	output.WriteString("# HELP ir_decode_failures_total Decode failures by protocol and reason\n")
	output.WriteString("# TYPE ir_decode_failures_total counter\n")
	failures := h.collector.DecodeFailureCounts()
	for _, proto := range sortedKeys(failures) {
		byReason := failures[proto]
		for _, reason := range sortedKeys(byReason) {
			output.WriteString(fmt.Sprintf("ir_decode_failures_total{protocol=%q,reason=%q} %d\n",
				proto, reason, byReason[reason]))
		}
	}

	// Transmit metrics
	output.WriteString("# HELP ir_transmits_total Completed transmissions by protocol\n")
	output.WriteString("# TYPE ir_transmits_total counter\n")
	transmits := h.collector.TransmitCounts()
	for _, proto := range sortedKeys(transmits) {
		output.WriteString(fmt.Sprintf("ir_transmits_total{protocol=%q} %d\n",
			proto, transmits[proto]))
	}

	output.WriteString("# HELP ir_transmit_failures_total Transmissions the dongle did not complete\n")
	output.WriteString("# TYPE ir_transmit_failures_total counter\n")
	output.WriteString(fmt.Sprintf("ir_transmit_failures_total %d\n", h.collector.GetTransmitFailures()))

	// Archive metrics
	output.WriteString("# HELP ir_captures_archived_total Captures written to the archive\n")
	output.WriteString("# TYPE ir_captures_archived_total counter\n")
	output.WriteString(fmt.Sprintf("ir_captures_archived_total %d\n", h.collector.GetArchived()))

	// Transceiver link state
	output.WriteString("# HELP ir_transceiver_up Whether the serial link to the transceiver is open\n")
	output.WriteString("# TYPE ir_transceiver_up gauge\n")
	up := 0
	if h.collector.IsTransceiverUp() {
		up = 1
	}
	output.WriteString(fmt.Sprintf("ir_transceiver_up %d\n", up))

	w.Write([]byte(output.String()))
}

// sortedKeys returns the map's keys in lexical order so the exposition is
// stable between scrapes.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	// Start server
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
}
