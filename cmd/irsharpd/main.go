package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Alr2303/irsharp/pkg/archive"
	"github.com/Alr2303/irsharp/pkg/config"
	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/metrics"
	"github.com/Alr2303/irsharp/pkg/mqtt"
	"github.com/Alr2303/irsharp/pkg/transceiver"
	"github.com/Alr2303/irsharp/pkg/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("irsharpd %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	// Initialize basic logger for startup
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	log.Info("Starting irsharpd",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	// Validate only mode
	if *validate {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	log.Info("Configuration loaded successfully",
		logger.String("config_file", *configFile))

	// Reinitialize logger with config settings
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	web.SetVersionInfo(web.VersionInfo{
		Version:   version,
		Commit:    gitCommit,
		BuildTime: buildTime,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize wait group
	var wg sync.WaitGroup

	// Initialize metrics collector
	collector := metrics.NewCollector()

	// Start Prometheus metrics server if enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metricsServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				collector,
				log,
			)
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
		log.Info("Prometheus metrics server started",
			logger.Int("port", cfg.Metrics.Prometheus.Port),
			logger.String("path", cfg.Metrics.Prometheus.Path))
	}

	// Open capture archive if enabled
	var captures *archive.CaptureRepository
	if cfg.Archive.Enabled {
		db, err := archive.NewDB(archive.Config{
			Path: cfg.Archive.Path,
		}, log.WithComponent("archive"))
		if err != nil {
			log.Error("Failed to open capture archive", logger.Error(err))
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close capture archive", logger.Error(err))
			}
		}()

		captures = archive.NewCaptureRepository(db.GetDB())
		log.Info("Capture archive opened",
			logger.String("path", cfg.Archive.Path))
	} else {
		log.Info("Capture archive disabled")
	}

	// Initialize MQTT publisher if enabled
	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.New(
			mqtt.Config{
				Enabled:     cfg.MQTT.Enabled,
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				QoS:         cfg.MQTT.QoS,
				Retained:    cfg.MQTT.Retained,
			},
			log,
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := publisher.Start(ctx); err != nil && err != context.Canceled {
				log.Error("MQTT publisher error", logger.Error(err))
			}
		}()
		log.Info("MQTT publisher started",
			logger.String("broker", cfg.MQTT.Broker),
			logger.String("topic_prefix", cfg.MQTT.TopicPrefix))
	}

	// Start web server if enabled
	var hub *web.WebSocketHub
	if cfg.Web.Enabled {
		webServer := web.NewServer(cfg.Web, log.WithComponent("web"))
		webServer.GetAPI().SetCollector(collector)
		if captures != nil {
			webServer.GetAPI().SetCaptureRepository(captures)
		}
		hub = webServer.GetHub()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Web server error", logger.Error(err))
			}
		}()
		log.Info("Web server started",
			logger.String("host", cfg.Web.Host),
			logger.Int("port", cfg.Web.Port))
	}

	// Open the IR transceiver
	trx, err := transceiver.Open(cfg.Transceiver, log)
	if err != nil {
		log.Error("Failed to open transceiver", logger.Error(err))
		os.Exit(1)
	}
	collector.SetTransceiverUp(true)

	// Start the capture pipeline
	p := &pipeline{
		cfg:       cfg,
		log:       log.WithComponent("pipeline"),
		trx:       trx,
		captures:  captures,
		collector: collector,
		hub:       hub,
		publisher: publisher,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.run(ctx); err != nil {
			log.Error("Capture pipeline error", logger.Error(err))
			cancel()
		}
	}()

	// Prune the archive on a daily schedule
	if captures != nil && cfg.Archive.RetentionDays > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runRetention(ctx, cfg.Archive.RetentionDays)
		}()
	}

	log.Info("irsharpd initialized",
		logger.String("server_name", cfg.Server.Name),
		logger.String("device", cfg.Transceiver.Device))

	// Wait for a shutdown signal or a fatal component error
	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal",
			logger.String("signal", sig.String()))
	case <-ctx.Done():
		log.Warn("Shutting down after component failure")
	}

	// Cancel context to trigger graceful shutdown
	cancel()

	// Closing the port unblocks the capture loop's pending read
	if err := trx.Close(); err != nil {
		log.Error("Error closing transceiver", logger.Error(err))
	}
	collector.SetTransceiverUp(false)

	// Stop MQTT publisher if running
	if publisher != nil {
		publisher.Stop()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Clean shutdown completed")
	case <-time.After(5 * time.Second):
		log.Warn("Shutdown timeout, forcing exit")
	}

	log.Info("irsharpd stopped")
}
