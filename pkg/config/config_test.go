package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	// Reset viper to avoid cross-test pollution
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// Spot-check a few defaults
	if cfg.Transceiver.Device != "/dev/ttyUSB0" {
		t.Errorf("expected Transceiver.Device default /dev/ttyUSB0, got %s", cfg.Transceiver.Device)
	}
	if cfg.Transceiver.Baud != 115200 {
		t.Errorf("expected Transceiver.Baud default 115200, got %d", cfg.Transceiver.Baud)
	}
	if !cfg.Decode.Classic.Enabled {
		t.Error("expected Decode.Classic.Enabled default true")
	}
	if !cfg.Decode.Classic.ExpectExpansion {
		t.Error("expected Decode.Classic.ExpectExpansion default true")
	}
	if cfg.Decode.Classic.ValidateInvertedCopy {
		t.Error("expected Decode.Classic.ValidateInvertedCopy default false")
	}
	if !cfg.Decode.AC.Strict {
		t.Error("expected Decode.AC.Strict default true")
	}
	if cfg.Archive.Path != "irsharp.db" {
		t.Errorf("expected Archive.Path default irsharp.db, got %s", cfg.Archive.Path)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected Web.Port default 8080, got %d", cfg.Web.Port)
	}
	if cfg.Logging.Level == "" {
		t.Errorf("expected Logging.Level to be set (default info)")
	}
	if cfg.Metrics.Prometheus.Port != 9090 {
		t.Errorf("expected Prometheus.Port default 9090, got %d", cfg.Metrics.Prometheus.Port)
	}
}

func TestValidate_Errors(t *testing.T) {
	// valid returns a configuration that passes validation; each case breaks
	// one section of it.
	valid := func() *Config {
		return &Config{
			Transceiver: TransceiverConfig{Device: "/dev/ttyUSB0", Baud: 115200},
			Decode:      DecodeConfig{Classic: ClassicDecodeConfig{Enabled: true}},
			Archive:     ArchiveConfig{Enabled: true, Path: "irsharp.db", RetentionDays: 30},
			Web:         WebConfig{Enabled: true, Port: 8080},
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: PrometheusConfig{Enabled: true, Port: 9090, Path: "/metrics"},
			},
		}
	}

	if err := validate(valid()); err != nil {
		t.Fatalf("expected valid baseline config, got %v", err)
	}

	t.Run("missing transceiver device", func(t *testing.T) {
		cfg := valid()
		cfg.Transceiver.Device = ""
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for empty transceiver.device")
		}
	})

	t.Run("non-positive baud", func(t *testing.T) {
		cfg := valid()
		cfg.Transceiver.Baud = 0
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for non-positive transceiver.baud")
		}
	})

	t.Run("all decoders disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Decode.Classic.Enabled = false
		cfg.Decode.AC.Enabled = false
		if err := validate(cfg); err == nil {
			t.Fatal("expected error when no decode protocol is enabled")
		}
	})

	t.Run("negative retention", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.RetentionDays = -1
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for negative archive.retention_days")
		}
	})

	t.Run("archive path not required when disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.Enabled = false
		cfg.Archive.Path = ""
		if err := validate(cfg); err != nil {
			t.Fatalf("expected disabled archive to skip path check, got %v", err)
		}
	})

	t.Run("invalid web port when enabled", func(t *testing.T) {
		cfg := valid()
		cfg.Web.Port = 70000
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for invalid web.port out of range")
		}
	})

	t.Run("mqtt enabled without broker", func(t *testing.T) {
		cfg := valid()
		cfg.MQTT = MQTTConfig{Enabled: true}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for MQTT without broker")
		}
	})

	t.Run("invalid mqtt qos", func(t *testing.T) {
		cfg := valid()
		cfg.MQTT = MQTTConfig{Enabled: true, Broker: "tcp://localhost:1883", QoS: 3}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for mqtt.qos above 2")
		}
	})

	t.Run("invalid prometheus port", func(t *testing.T) {
		cfg := valid()
		cfg.Metrics.Prometheus.Port = 0
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for invalid metrics.prometheus.port")
		}
	})
}
