package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alr2303/irsharp/pkg/archive"
	"github.com/Alr2303/irsharp/pkg/config"
	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/metrics"
	"github.com/Alr2303/irsharp/pkg/mqtt"
	"github.com/Alr2303/irsharp/pkg/pulse"
	"github.com/Alr2303/irsharp/pkg/sharp"
	"github.com/Alr2303/irsharp/pkg/transceiver"
	"github.com/Alr2303/irsharp/pkg/web"
)

// pipeline is the daemon's capture path: buffers off the transceiver,
// through the enabled decoders, into the archive and out to subscribers.
// The archive repository, hub and publisher are optional; a nil one is
// skipped.
type pipeline struct {
	cfg       *config.Config
	log       *logger.Logger
	trx       *transceiver.Transceiver
	captures  *archive.CaptureRepository
	collector *metrics.Collector
	hub       *web.WebSocketHub
	publisher *mqtt.Publisher
}

// run reads captures until the port closes. It returns nil on shutdown and
// the port error otherwise.
func (p *pipeline) run(ctx context.Context) error {
	for {
		buf, err := p.trx.ReadCapture()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.collector.SetTransceiverUp(false)
			return fmt.Errorf("transceiver read: %w", err)
		}

		p.collector.CaptureReceived(len(buf))
		p.log.Debug("Capture received", logger.Int("pulses", len(buf)))
		p.handleCapture(buf)
	}
}

// handleCapture runs the capture through the enabled decoders, classic
// first. A buffer neither decoder accepts is dropped after the failures
// are counted.
func (p *pipeline) handleCapture(buf pulse.Buffer) {
	if p.cfg.Decode.Classic.Enabled {
		d, err := sharp.DecodeClassic(buf, classicDecodeConfig(p.cfg.Decode.Classic))
		if err == nil {
			p.recordClassic(d)
			return
		}
		p.collector.DecodeFailed(archive.ProtocolClassic, failureReason(err))
		p.log.Debug("Classic decode failed", logger.Error(err))
	}

	if p.cfg.Decode.AC.Enabled {
		d, err := sharp.DecodeAC(buf, sharp.ACDecodeConfig{Strict: p.cfg.Decode.AC.Strict})
		if err == nil {
			p.recordAC(d)
			return
		}
		p.collector.DecodeFailed(archive.ProtocolAC, failureReason(err))
		p.log.Debug("A/C decode failed", logger.Error(err))
	}
}

// recordClassic archives and broadcasts a decoded classic frame.
func (p *pipeline) recordClassic(d *sharp.DecodedClassic) {
	p.collector.DecodeSucceeded(archive.ProtocolClassic)

	p.archiveAndBroadcast(&archive.Capture{
		Protocol:   archive.ProtocolClassic,
		Bits:       d.Bits,
		Value:      d.Value,
		Address:    uint8(d.Address),
		Command:    uint8(d.Command),
		ChecksumOK: true,
		Source:     archive.SourceReceiver,
		ReceivedAt: time.Now(),
	})
}

// recordAC archives and broadcasts a decoded A/C state frame, and publishes
// the settings it carries.
func (p *pipeline) recordAC(d *sharp.DecodedAC) {
	p.collector.DecodeSucceeded(archive.ProtocolAC)

	rec := &archive.Capture{
		Protocol:   archive.ProtocolAC,
		Bits:       d.Bits,
		State:      fmt.Sprintf("%X", d.State),
		ChecksumOK: sharp.ValidACChecksum(d.State),
		Source:     archive.SourceReceiver,
		ReceivedAt: time.Now(),
	}
	p.archiveAndBroadcast(rec)

	if p.publisher != nil {
		s := d.ACState()
		if err := p.publisher.PublishState(mqtt.StateEvent{
			Power:     s.GetPower(),
			Mode:      sharp.ACModeName(s.GetMode()),
			Temp:      s.GetTemp(),
			Fan:       sharp.ACFanName(s.GetFan()),
			State:     rec.State,
			Timestamp: rec.ReceivedAt,
		}); err != nil {
			p.log.Warn("Failed to publish state event", logger.Error(err))
		}
	}
}

// archiveAndBroadcast fans a decoded capture out to the archive, the
// websocket hub and the MQTT publisher.
func (p *pipeline) archiveAndBroadcast(rec *archive.Capture) {
	p.log.Info("Capture decoded",
		logger.String("label", rec.Label()),
		logger.Uint16("bits", rec.Bits))

	if p.captures != nil {
		if err := p.captures.Create(rec); err != nil {
			p.log.Error("Failed to archive capture", logger.Error(err))
		} else {
			p.collector.CaptureArchived()
		}
	}

	if p.hub != nil {
		p.hub.BroadcastCapture(rec)
	}

	if p.publisher != nil {
		if err := p.publisher.PublishCapture(mqtt.CaptureEvent{
			Protocol:   rec.Protocol,
			Bits:       rec.Bits,
			Value:      rec.Value,
			Address:    rec.Address,
			Command:    rec.Command,
			State:      rec.State,
			ChecksumOK: rec.ChecksumOK,
			Source:     rec.Source,
			Timestamp:  rec.ReceivedAt,
		}); err != nil {
			p.log.Warn("Failed to publish capture event", logger.Error(err))
		}
	}
}

// runRetention prunes captures past the retention window once at startup
// and then daily.
func (p *pipeline) runRetention(ctx context.Context, days int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		p.pruneArchive(days)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *pipeline) pruneArchive(days int) {
	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := p.captures.DeleteOlderThan(cutoff)
	if err != nil {
		p.log.Error("Failed to prune capture archive", logger.Error(err))
		return
	}
	if deleted > 0 {
		p.log.Info("Pruned capture archive",
			logger.Int64("deleted", deleted),
			logger.Int("retention_days", days))
	}
}

// classicDecodeConfig maps the daemon's classic decoder settings onto the
// codec's.
func classicDecodeConfig(cfg config.ClassicDecodeConfig) sharp.ClassicDecodeConfig {
	return sharp.ClassicDecodeConfig{
		Strict:               cfg.Strict,
		ExpectExpansion:      cfg.ExpectExpansion,
		ValidateInvertedCopy: cfg.ValidateInvertedCopy,
	}
}

// failureReason buckets a decode error for the failure counters.
func failureReason(err error) string {
	switch {
	case errors.Is(err, sharp.ErrTooShort):
		return "too_short"
	case errors.Is(err, sharp.ErrBadHeader):
		return "bad_header"
	case errors.Is(err, sharp.ErrBitMismatch):
		return "bit_mismatch"
	case errors.Is(err, sharp.ErrCompliance):
		return "compliance"
	default:
		return "other"
	}
}
