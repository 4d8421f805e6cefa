package source

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// Handler receives one chunk of raw stream bytes. The slice is reused
// between calls.
type Handler func(data []byte)

type Snapshot struct {
	Type      string `json:"type"`
	Addr      string `json:"addr,omitempty"`
	Device    string `json:"device,omitempty"`
	Baud      int    `json:"baud,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type UDPConfig struct {
	Listen string
}

type UDP struct {
	cfg     UDPConfig
	handler Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu   sync.Mutex
	conn net.PacketConn
}

func NewUDP(cfg UDPConfig, handler Handler) *UDP {
	u := &UDP{cfg: cfg, handler: handler}
	u.last.Store(Snapshot{Type: "udp", Addr: cfg.Listen})
	return u
}

func (u *UDP) Start(ctx context.Context) error {
	if u == nil {
		return fmt.Errorf("udp source is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if u.handler == nil {
		return fmt.Errorf("handler is nil")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		return nil
	}

	conn, err := net.ListenPacket("udp", u.cfg.Listen)
	if err != nil {
		return fmt.Errorf("udp listen %s: %w", u.cfg.Listen, err)
	}
	u.conn = conn

	childCtx, cancel := context.WithCancel(ctx)
	u.cancel = cancel

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer func() { _ = conn.Close() }()

		log.Printf("source udp listening addr=%s", conn.LocalAddr())

		buf := make([]byte, 2048)
		for {
			n, _, err := conn.ReadFrom(buf)
			if n > 0 {
				u.handler(buf[:n])
			}
			if err != nil {
				select {
				case <-childCtx.Done():
					return
				default:
				}
				u.setError(fmt.Sprintf("udp read stopped: %v", err))
				return
			}
		}
	}()

	return nil
}

func (u *UDP) Close() {
	if u == nil {
		return
	}
	u.mu.Lock()
	cancel := u.cancel
	conn := u.conn
	u.cancel = nil
	u.conn = nil
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	u.wg.Wait()
}

func (u *UDP) Snapshot() Snapshot {
	if u == nil {
		return Snapshot{}
	}
	v := u.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (u *UDP) setError(msg string) {
	cur := u.Snapshot()
	cur.LastError = msg
	u.last.Store(cur)
}
