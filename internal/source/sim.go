package source

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"ncomrx/internal/ncom"
)

type SimConfig struct {
	RateHz        int
	CenterLatDeg  float64
	CenterLonDeg  float64
	RadiusM       float64
	SpeedMps      float64
	TriggerPeriod time.Duration
	UTCOffsetSec  int
}

const earthMetersPerDegLat = 111320.0

// Generator produces encoded frames for a vehicle driving a circle around
// the configured center at constant speed. It is deterministic given the
// sequence of step durations, which keeps it testable without a clock.
type Generator struct {
	cfg SimConfig

	angle float64 // radians around the circle
	dist  float64 // meters traveled

	ms        uint32 // ms into the GPS minute
	minutes   uint32
	sinceTrig time.Duration
	frameIdx  uint64
	trigArmed bool
}

func NewGenerator(cfg SimConfig) *Generator {
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = 500
	}
	if cfg.SpeedMps <= 0 {
		cfg.SpeedMps = 15
	}
	if cfg.TriggerPeriod <= 0 {
		cfg.TriggerPeriod = 10 * time.Second
	}
	// Minutes start nonzero so replayed time is visibly monotonic.
	return &Generator{cfg: cfg, minutes: 1}
}

// Next advances the vehicle by dt and returns the next encoded frame.
func (g *Generator) Next(dt time.Duration) []byte {
	if dt < 0 {
		dt = 0
	}

	g.angle += (g.cfg.SpeedMps / g.cfg.RadiusM) * dt.Seconds()
	g.dist += g.cfg.SpeedMps * dt.Seconds()

	msStep := uint32(dt.Milliseconds())
	g.ms += msStep
	for g.ms >= 60000 {
		g.ms -= 60000
		g.minutes++
	}

	g.sinceTrig += dt
	status := uint8(ncom.StatusLocked)
	if g.sinceTrig >= g.cfg.TriggerPeriod {
		if !g.trigArmed {
			status = ncom.StatusTrigDown
			g.trigArmed = true
		} else {
			status = ncom.StatusTrigUp
			g.trigArmed = false
			g.sinceTrig = 0
		}
	}

	lat := g.cfg.CenterLatDeg + (g.cfg.RadiusM/earthMetersPerDegLat)*math.Sin(g.angle)
	lon := g.cfg.CenterLonDeg + (g.cfg.RadiusM/earthMetersPerDegLat)*math.Cos(g.angle)/math.Cos(g.cfg.CenterLatDeg*math.Pi/180)

	f := ncom.Frame{
		MS:        uint16(g.ms),
		NavStatus: status,
		PosValid:  true,
		DistValid: true,
		LatDeg:    lat,
		LonDeg:    lon,
		Dist2D:    g.dist,
	}

	// Alternate status channels so the sticky decoder state stays fresh.
	if g.frameIdx%2 == 0 {
		f.Channel = ncom.ChannelTime
		f.Payload = ncom.TimePayload(g.minutes, int8(g.cfg.UTCOffsetSec), true)
	} else {
		f.Channel = ncom.ChannelSatellites
		f.Payload = ncom.SatellitesPayload(12)
	}
	g.frameIdx++

	return f.Encode()
}

type Sim struct {
	cfg     SimConfig
	handler Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSim(cfg SimConfig, handler Handler) *Sim {
	return &Sim{cfg: cfg, handler: handler}
}

func (s *Sim) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("sim source is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.handler == nil {
		return fmt.Errorf("handler is nil")
	}
	if s.cancel != nil {
		return nil
	}

	rate := s.cfg.RateHz
	if rate <= 0 {
		rate = 10
	}
	interval := time.Second / time.Duration(rate)

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("source sim rate_hz=%d center=%.5f,%.5f", rate, s.cfg.CenterLatDeg, s.cfg.CenterLonDeg)

		g := NewGenerator(s.cfg)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-childCtx.Done():
				return
			case <-t.C:
				s.handler(g.Next(interval))
			}
		}
	}()

	return nil
}

func (s *Sim) Close() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.wg.Wait()
}

func (s *Sim) Snapshot() Snapshot {
	return Snapshot{Type: "sim"}
}
