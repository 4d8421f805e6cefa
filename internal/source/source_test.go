package source

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"ncomrx/internal/ncom"
)

func TestUDP_DeliversChunks(t *testing.T) {
	got := make(chan []byte, 8)
	u := NewUDP(UDPConfig{Listen: "127.0.0.1:0"}, func(data []byte) {
		b := make([]byte, len(data))
		copy(b, data)
		got <- b
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := u.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer u.Close()

	addr := u.conn.LocalAddr().String()
	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte{0xE7, 0x01, 0x02}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	select {
	case b := <-got:
		if len(b) != 3 || b[0] != 0xE7 {
			t.Fatalf("chunk=%v want [e7 01 02]", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chunk")
	}
}

func TestUDP_StartFailsOnBadListen(t *testing.T) {
	u := NewUDP(UDPConfig{Listen: "not-an-addr"}, func([]byte) {})
	if err := u.Start(context.Background()); err == nil {
		u.Close()
		t.Fatalf("expected listen error")
	}
}

func TestGenerator_FramesDecode(t *testing.T) {
	g := NewGenerator(SimConfig{
		CenterLatDeg:  51.5,
		CenterLonDeg:  -0.1,
		RadiusM:       500,
		SpeedMps:      15,
		TriggerPeriod: time.Hour,
		UTCOffsetSec:  -18,
	})

	d := ncom.New()
	updates := 0
	for i := 0; i < 20; i++ {
		for _, b := range g.Next(100 * time.Millisecond) {
			if d.Feed(b) {
				updates++
			}
		}
	}
	if updates != 20 {
		t.Fatalf("updates=%d want 20", updates)
	}

	rec := d.Record()
	if !rec.LatValid || !rec.LonValid || !rec.Dist2DValid {
		t.Fatalf("expected valid nav fields, got %+v", rec)
	}
	if !rec.TimeValid || !rec.UTCOffsetValid {
		t.Fatalf("expected valid time fields, got %+v", rec)
	}
	if rec.Classification != ncom.ClassRegular {
		t.Fatalf("classification=%v want regular", rec.Classification)
	}
	// 20 steps of 100ms at 15 m/s.
	if math.Abs(rec.Dist2D-30) > 1e-6 {
		t.Fatalf("dist=%v want 30", rec.Dist2D)
	}
	// Position must stay near the configured circle.
	if math.Abs(rec.LatDeg-51.5) > 0.01 || math.Abs(rec.LonDeg-(-0.1)) > 0.02 {
		t.Fatalf("position drifted: %v,%v", rec.LatDeg, rec.LonDeg)
	}
}

func TestGenerator_EmitsTriggerPair(t *testing.T) {
	g := NewGenerator(SimConfig{
		CenterLatDeg:  51.5,
		CenterLonDeg:  -0.1,
		TriggerPeriod: 300 * time.Millisecond,
	})

	d := ncom.New()
	var classes []ncom.Classification
	for i := 0; i < 10; i++ {
		for _, b := range g.Next(100 * time.Millisecond) {
			if d.Feed(b) {
				classes = append(classes, d.Record().Classification)
			}
		}
	}

	var downs, ups int
	for i, c := range classes {
		switch c {
		case ncom.ClassIn1Down:
			downs++
			// A falling edge is always followed by the rising edge.
			if i+1 >= len(classes) || classes[i+1] != ncom.ClassIn1Up {
				t.Fatalf("falling edge at %d not followed by rising edge: %v", i, classes)
			}
		case ncom.ClassIn1Up:
			ups++
		}
	}
	if downs == 0 || downs != ups {
		t.Fatalf("downs=%d ups=%d want equal and nonzero", downs, ups)
	}
}

func TestGenerator_TimeAdvancesAcrossMinutes(t *testing.T) {
	g := NewGenerator(SimConfig{TriggerPeriod: time.Hour})
	d := ncom.New()

	var last float64 = -1
	for i := 0; i < 700; i++ { // 70 seconds at 100ms, crosses a minute
		for _, b := range g.Next(100 * time.Millisecond) {
			if d.Feed(b) {
				rec := d.Record()
				if rec.TimeValid {
					if rec.Time < last {
						t.Fatalf("time went backwards: %v then %v", last, rec.Time)
					}
					last = rec.Time
				}
			}
		}
	}
	if last < 60 {
		t.Fatalf("time=%v, expected to cross a minute boundary", last)
	}
}
