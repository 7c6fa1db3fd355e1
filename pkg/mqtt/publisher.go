package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Alr2303/irsharp/pkg/logger"
)

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Publisher handles MQTT event publishing
type Publisher struct {
	config Config
	log    *logger.Logger
}

// Event types for MQTT publishing

// CaptureEvent represents a decoded IR signal
type CaptureEvent struct {
	Protocol   string    `json:"protocol"`
	Bits       uint16    `json:"bits"`
	Value      uint64    `json:"value,omitempty"`
	Address    uint8     `json:"address,omitempty"`
	Command    uint8     `json:"command,omitempty"`
	State      string    `json:"state,omitempty"`
	ChecksumOK bool      `json:"checksum_ok"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransmitEvent represents a completed IR transmission
type TransmitEvent struct {
	Protocol  string    `json:"protocol"`
	Value     uint64    `json:"value,omitempty"`
	Address   uint8     `json:"address,omitempty"`
	Command   uint8     `json:"command,omitempty"`
	State     string    `json:"state,omitempty"`
	Repeats   int       `json:"repeats"`
	Timestamp time.Time `json:"timestamp"`
}

// StateEvent represents the A/C settings carried by a state frame
type StateEvent struct {
	Power     bool      `json:"power"`
	Mode      string    `json:"mode"`
	Temp      uint8     `json:"temp"`
	Fan       string    `json:"fan"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("mqtt"),
	}
}

// Start starts the MQTT publisher
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	// TODO: Implement actual MQTT connection when paho.mqtt library is added
	// For now, this is a no-op stub that allows the daemon to start
	p.log.Warn("MQTT connection not yet implemented - events will not be published")

	return nil
}

// Stop stops the MQTT publisher
func (p *Publisher) Stop() {
	if !p.config.Enabled {
		return
	}

	p.log.Info("Stopping MQTT publisher")
	// TODO: Disconnect MQTT client when implemented
}

// PublishCapture publishes a decoded capture event
func (p *Publisher) PublishCapture(event CaptureEvent) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("captures")
	return p.publish(topic, event)
}

// PublishTransmit publishes a completed transmission event
func (p *Publisher) PublishTransmit(event TransmitEvent) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("transmits")
	return p.publish(topic, event)
}

// PublishState publishes decoded A/C settings
func (p *Publisher) PublishState(event StateEvent) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("state")
	return p.publish(topic, event)
}

// publish publishes an event to a topic
func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := p.serializeEvent(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	// TODO: Implement actual MQTT publish when paho.mqtt library is added
	p.log.Debug("Would publish MQTT event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))

	return nil
}

// serializeEvent serializes an event to JSON
func (p *Publisher) serializeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// formatTopic formats a topic with the configured prefix
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
