package config

import (
	"fmt"
)

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate transceiver config
	if cfg.Transceiver.Device == "" {
		return fmt.Errorf("transceiver.device is required")
	}
	if cfg.Transceiver.Baud <= 0 {
		return fmt.Errorf("transceiver.baud must be positive")
	}

	// Validate decoder config
	if !cfg.Decode.Classic.Enabled && !cfg.Decode.AC.Enabled {
		return fmt.Errorf("decode: at least one protocol must be enabled")
	}

	// Validate transmit config
	if cfg.Transmit.Repeat < 0 {
		return fmt.Errorf("transmit.repeat must not be negative")
	}

	// Validate archive config
	if cfg.Archive.Enabled {
		if cfg.Archive.Path == "" {
			return fmt.Errorf("archive.path is required when archive is enabled")
		}
		if cfg.Archive.RetentionDays < 0 {
			return fmt.Errorf("archive.retention_days must not be negative")
		}
	}

	// Validate web config
	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
		if cfg.Web.AuthRequired && cfg.Web.Username == "" {
			return fmt.Errorf("web.username is required when auth is enabled")
		}
	}

	// Validate MQTT config
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	// Validate metrics config
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
		if cfg.Metrics.Prometheus.Path == "" {
			return fmt.Errorf("metrics.prometheus.path is required when prometheus is enabled")
		}
	}

	return nil
}
