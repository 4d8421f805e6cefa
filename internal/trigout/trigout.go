package trigout

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Service mirrors received IN1 falling-edge triggers onto a local GPIO pin,
// so downstream bench equipment (camera shutters, lap counters) can observe
// the event without speaking NCom.

type Config struct {
	Pin   int
	Pulse time.Duration
}

type driver interface {
	Set(v int) error
	Close() error
}

type Service struct {
	cfg Config

	mu     sync.Mutex
	drv    driver
	timer  *time.Timer
	pulses uint64
}

func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

func (s *Service) Start() error {
	if s == nil {
		return fmt.Errorf("trigout service is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drv != nil {
		return nil
	}

	drv, err := openGPIOFn(s.cfg.Pin)
	if err != nil {
		return err
	}
	s.drv = drv
	log.Printf("trigout enabled pin=%d pulse=%s", s.cfg.Pin, s.cfg.Pulse)
	return nil
}

// Pulse drives the pin high for the configured duration. A pulse arriving
// while the pin is already high extends the window instead of glitching low.
func (s *Service) Pulse() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drv == nil {
		return fmt.Errorf("trigout not started")
	}

	if err := s.drv.Set(1); err != nil {
		return err
	}
	s.pulses++

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Pulse, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.drv != nil {
			_ = s.drv.Set(0)
		}
	})
	return nil
}

// Pulses reports the number of pulses driven since Start.
func (s *Service) Pulses() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.drv != nil {
		_ = s.drv.Close()
		s.drv = nil
	}
}
