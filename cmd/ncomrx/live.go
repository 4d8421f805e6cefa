package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ncomrx/internal/capture"
	"ncomrx/internal/config"
	"ncomrx/internal/metrics"
	"ncomrx/internal/mqttpub"
	"ncomrx/internal/ncom"
	"ncomrx/internal/source"
	"ncomrx/internal/textout"
	"ncomrx/internal/trigout"
	"ncomrx/internal/web"
)

type byteSource interface {
	Start(ctx context.Context) error
	Close()
	Snapshot() source.Snapshot
}

// pipeline fans one decoded stream out to every configured sink. All chunk
// handling is serialized: sources deliver from a single goroutine each, and
// only one source is active at a time.
type pipeline struct {
	mu   sync.Mutex
	dec  *ncom.Decoder
	prev ncom.Counters

	router textout.Router
	status *web.Status
	hub    *web.Hub
	m      *metrics.Metrics
	trig   *trigout.Service
	rec    *capture.Writer

	pubQ chan ncom.Record
}

func (p *pipeline) handleChunk(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rec != nil {
		if err := p.rec.WriteChunk(time.Now(), data); err != nil {
			log.Printf("capture write failed: %v", err)
			p.m.ObservePublishError("capture")
		}
	}

	for _, b := range data {
		if p.dec.Feed(b) {
			p.handleUpdateLocked(p.dec.Record())
		}
	}

	cur := p.dec.Counters()
	p.m.ObserveCounters(p.prev, cur)
	p.prev = cur
	p.status.SetCounters(cur)
}

func (p *pipeline) handleUpdateLocked(rec ncom.Record) {
	now := time.Now().UTC()
	p.status.MarkUpdate(now, rec, p.dec.Counters())
	p.m.ObserveUpdate(rec)
	if sats, ok := p.dec.Satellites(); ok {
		p.status.SetSatellites(sats)
		p.m.SetSatellites(sats)
	}

	if err := p.router.Route(rec); err != nil {
		log.Printf("csv write failed: %v", err)
		p.m.ObservePublishError("csv")
	}

	p.hub.Broadcast(web.ViewOf(rec))

	if p.pubQ != nil {
		select {
		case p.pubQ <- rec:
		default:
			// Broker is slow; drop rather than stall the decoder.
			p.m.ObservePublishError("mqtt")
		}
	}

	if p.trig != nil && rec.Classification == ncom.ClassIn1Down {
		if err := p.trig.Pulse(); err != nil {
			log.Printf("trigout pulse failed: %v", err)
		}
	}
}

func runLive(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := web.NewStatus()
	hub := web.NewHub()
	m := metrics.New(prometheus.DefaultRegisterer)

	p := &pipeline{
		dec:    ncom.New(),
		status: status,
		hub:    hub,
		m:      m,
	}

	// CSV sinks.
	if cfg.Outputs.CSV.Path != "" || cfg.Outputs.CSV.TriggerPath != "" {
		loc := time.Local
		if tz := strings.TrimSpace(cfg.Outputs.CSV.Timezone); tz != "" {
			loc, err = time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("load timezone %q: %w", tz, err)
			}
		}
		if path := cfg.Outputs.CSV.Path; path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			bw := bufio.NewWriter(f)
			defer bw.Flush()
			p.router.Regular = textout.NewWriter(bw, loc)
		}
		if path := cfg.Outputs.CSV.TriggerPath; path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			bw := bufio.NewWriter(f)
			defer bw.Flush()
			p.router.Trigger = textout.NewWriter(bw, loc)
		}
	}

	// MQTT publishing.
	if cfg.Outputs.MQTT.Enable {
		pub := mqttpub.New(mqttpub.Config{
			Broker:       cfg.Outputs.MQTT.Broker,
			ClientID:     cfg.Outputs.MQTT.ClientID,
			Topic:        cfg.Outputs.MQTT.Topic,
			TriggerTopic: cfg.Outputs.MQTT.TriggerTopic,
		})
		defer pub.Close()

		q := make(chan ncom.Record, 64)
		p.pubQ = q
		go func() {
			// Connect retries in the background; updates queue meanwhile.
			if err := pub.Connect(); err != nil {
				log.Printf("mqtt connect failed: %v", err)
			}
			for {
				select {
				case <-ctx.Done():
					return
				case rec := <-q:
					if err := pub.Publish(rec); err != nil {
						log.Printf("mqtt publish failed: %v", err)
						m.ObservePublishError("mqtt")
					}
				}
			}
		}()
	}

	// Trigger GPIO mirror.
	if cfg.TriggerOut.Enable {
		trig := trigout.New(trigout.Config{Pin: cfg.TriggerOut.Pin, Pulse: cfg.TriggerOut.Pulse})
		if err := trig.Start(); err != nil {
			// Keep running without the mirror; triggers still reach CSV/MQTT.
			log.Printf("trigout init failed: %v", err)
		} else {
			defer trig.Close()
			p.trig = trig
		}
	}

	// Raw stream capture.
	if cfg.Outputs.Capture.Record.Enable {
		w, err := capture.CreateWriter(cfg.Outputs.Capture.Record.Path)
		if err != nil {
			return fmt.Errorf("capture create failed: %w", err)
		}
		defer w.Close()
		p.rec = w
	}

	// Input: replay file or a live source.
	if cfg.Outputs.Capture.Replay.Enable {
		f, err := os.Open(cfg.Outputs.Capture.Replay.Path)
		if err != nil {
			return fmt.Errorf("replay open failed: %w", err)
		}
		chunks, err := capture.NewReader(f).ReadAll()
		f.Close()
		if err != nil {
			return fmt.Errorf("replay read failed: %w", err)
		}

		status.SetSource(source.Snapshot{Type: "replay", Device: cfg.Outputs.Capture.Replay.Path})
		log.Printf("replay path=%s speed=%v loop=%v chunks=%d",
			cfg.Outputs.Capture.Replay.Path, cfg.Outputs.Capture.Replay.Speed, cfg.Outputs.Capture.Replay.Loop, len(chunks))

		go func() {
			err := capture.Play(chunks, cfg.Outputs.Capture.Replay.Speed, cfg.Outputs.Capture.Replay.Loop, nil, func(data []byte) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				p.handleChunk(data)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("replay stopped: %v", err)
			}
			cancel()
		}()
	} else {
		var src byteSource
		switch cfg.Source.Type {
		case "udp":
			src = source.NewUDP(source.UDPConfig{Listen: cfg.Source.UDP.Listen}, p.handleChunk)
		case "serial":
			src = source.NewSerial(source.SerialConfig{
				Device: cfg.Source.Serial.Device,
				Baud:   cfg.Source.Serial.Baud,
			}, p.handleChunk)
		case "sim":
			src = source.NewSim(source.SimConfig{
				RateHz:        cfg.Sim.RateHz,
				CenterLatDeg:  cfg.Sim.CenterLatDeg,
				CenterLonDeg:  cfg.Sim.CenterLonDeg,
				RadiusM:       cfg.Sim.RadiusM,
				SpeedMps:      cfg.Sim.SpeedMps,
				TriggerPeriod: cfg.Sim.TriggerPeriod,
				UTCOffsetSec:  cfg.Sim.UTCOffsetSec,
			}, p.handleChunk)
		default:
			return fmt.Errorf("unknown source type %q", cfg.Source.Type)
		}

		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("source start failed: %w", err)
		}
		defer src.Close()
		status.SetSource(src.Snapshot())
	}

	// Web status/metrics/stream.
	if cfg.Web.Listen != "" {
		go func() {
			err := web.Serve(ctx, cfg.Web.Listen, status, hub, prometheus.DefaultGatherer)
			if err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
	}

	log.Printf("ncomrx starting source=%s", cfg.Source.Type)
	<-ctx.Done()
	log.Printf("ncomrx stopping")
	return nil
}
