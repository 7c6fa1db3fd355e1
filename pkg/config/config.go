package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transceiver TransceiverConfig `mapstructure:"transceiver"`
	Decode      DecodeConfig      `mapstructure:"decode"`
	Transmit    TransmitConfig    `mapstructure:"transmit"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Web         WebConfig         `mapstructure:"web"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds daemon identification
type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// TransceiverConfig holds the serial IR transceiver settings
type TransceiverConfig struct {
	Device string `mapstructure:"device"` // Serial device path
	Baud   int    `mapstructure:"baud"`   // Serial baud rate
}

// DecodeConfig holds per-protocol decoder settings
type DecodeConfig struct {
	Classic ClassicDecodeConfig `mapstructure:"classic"`
	AC      ACDecodeConfig      `mapstructure:"ac"`
}

// ClassicDecodeConfig holds the classic Sharp decoder settings
type ClassicDecodeConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	Strict               bool `mapstructure:"strict"`                 // Enforce protocol compliance checks
	ExpectExpansion      bool `mapstructure:"expect_expansion"`       // Expansion bit value strict mode requires
	ValidateInvertedCopy bool `mapstructure:"validate_inverted_copy"` // Require the inverted second transmission
}

// ACDecodeConfig holds the Sharp A/C decoder settings
type ACDecodeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Strict  bool `mapstructure:"strict"` // Require full frame and valid checksum
}

// TransmitConfig holds transmit-side settings
type TransmitConfig struct {
	Repeat int `mapstructure:"repeat"` // Extra repeats per transmission
}

// ArchiveConfig holds capture archive configuration
type ArchiveConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`           // Path to SQLite database file
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps captures forever
}

// WebConfig holds web dashboard configuration
type WebConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	AuthRequired bool   `mapstructure:"auth_required"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
}

// MQTTConfig holds MQTT client configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/irsharp")
	}

	// Environment variables
	viper.SetEnvPrefix("IRSHARP")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal to struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.name", "irsharpd")
	viper.SetDefault("server.description", "Sharp IR capture and transmit daemon")

	// Transceiver defaults
	viper.SetDefault("transceiver.device", "/dev/ttyUSB0")
	viper.SetDefault("transceiver.baud", 115200)

	// Decoder defaults
	viper.SetDefault("decode.classic.enabled", true)
	viper.SetDefault("decode.classic.strict", false)
	viper.SetDefault("decode.classic.expect_expansion", true)
	viper.SetDefault("decode.classic.validate_inverted_copy", false)
	viper.SetDefault("decode.ac.enabled", true)
	viper.SetDefault("decode.ac.strict", true)

	// Transmit defaults
	viper.SetDefault("transmit.repeat", 0)

	// Archive defaults
	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.path", "irsharp.db")
	viper.SetDefault("archive.retention_days", 30)

	// Web defaults
	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("web.auth_required", false)

	// MQTT defaults
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "irsharp")
	viper.SetDefault("mqtt.client_id", "irsharpd")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 7)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
