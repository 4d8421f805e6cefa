package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

type SerialConfig struct {
	Device string
	Baud   int
}

type Serial struct {
	cfg     SerialConfig
	handler Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer
}

func NewSerial(cfg SerialConfig, handler Handler) *Serial {
	s := &Serial{cfg: cfg, handler: handler}
	s.last.Store(Snapshot{Type: "serial", Device: cfg.Device, Baud: cfg.Baud})
	return s
}

func (s *Serial) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("serial source is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.handler == nil {
		return fmt.Errorf("handler is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	baud := s.cfg.Baud
	if baud == 0 {
		baud = 115200
	}

	f, err := openSerial(s.cfg.Device, baud)
	if err != nil {
		return fmt.Errorf("serial open device=%s baud=%d: %w", s.cfg.Device, baud, err)
	}
	s.closer = f

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = f.Close() }()

		log.Printf("source serial device=%s baud=%d", s.cfg.Device, baud)

		buf := make([]byte, 512)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				s.handler(buf[:n])
			}
			if err != nil {
				select {
				case <-childCtx.Done():
					return
				default:
				}
				s.setError(fmt.Sprintf("serial read stopped: %v", err))
				return
			}
		}
	}()

	return nil
}

func (s *Serial) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Serial) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Serial) setError(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	s.last.Store(cur)
}
