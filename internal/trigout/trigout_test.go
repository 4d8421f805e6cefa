package trigout

import (
	"sync"
	"testing"
	"time"
)

type fakeDriver struct {
	mu     sync.Mutex
	values []int
	closed bool
}

func (f *fakeDriver) Set(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, v)
	return nil
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDriver) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.values))
	copy(out, f.values)
	return out
}

func withFakeDriver(t *testing.T, f *fakeDriver) {
	t.Helper()
	orig := openGPIOFn
	openGPIOFn = func(pin int) (driver, error) { return f, nil }
	t.Cleanup(func() { openGPIOFn = orig })
}

func TestPulse_DrivesHighThenLow(t *testing.T) {
	f := &fakeDriver{}
	withFakeDriver(t, f)

	s := New(Config{Pin: 18, Pulse: 20 * time.Millisecond})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Close()

	if err := s.Pulse(); err != nil {
		t.Fatalf("Pulse() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		v := f.snapshot()
		if len(v) >= 2 && v[len(v)-1] == 0 {
			if v[0] != 1 {
				t.Fatalf("values=%v want leading 1", v)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pin never returned low, values=%v", f.snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := s.Pulses(); got != 1 {
		t.Fatalf("pulses=%d want 1", got)
	}
}

func TestPulse_BeforeStartFails(t *testing.T) {
	s := New(Config{Pin: 18, Pulse: time.Millisecond})
	if err := s.Pulse(); err == nil {
		t.Fatalf("expected error before Start")
	}
}

func TestClose_ReleasesDriver(t *testing.T) {
	f := &fakeDriver{}
	withFakeDriver(t, f)

	s := New(Config{Pin: 18, Pulse: time.Millisecond})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	s.Close()

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if !closed {
		t.Fatalf("driver not closed")
	}
	if err := s.Pulse(); err == nil {
		t.Fatalf("expected error after Close")
	}
}
