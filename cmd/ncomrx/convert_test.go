package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ncomrx/internal/ncom"
)

func timeFrame(ms uint16, minutes uint32, lat, lon float64) []byte {
	return ncom.Frame{
		MS:        ms,
		NavStatus: ncom.StatusLocked,
		PosValid:  true,
		DistValid: true,
		LatDeg:    lat,
		LonDeg:    lon,
		Dist2D:    100.5,
		Channel:   ncom.ChannelTime,
		Payload:   ncom.TimePayload(minutes, -18, true),
	}.Encode()
}

func trigFrame(ms uint16, lat, lon float64) []byte {
	return ncom.Frame{
		MS:        ms,
		NavStatus: ncom.StatusTrigDown,
		PosValid:  true,
		LatDeg:    lat,
		LonDeg:    lon,
		Channel:   ncom.ChannelNone,
	}.Encode()
}

func TestConvert_RoutesRegularAndTrigger(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x10, 0x20, 0x30}) // leading noise
	stream.Write(timeFrame(40000, 1666, 51.5, -0.1))
	stream.Write(trigFrame(40100, 51.5001, -0.1001))
	stream.Write(timeFrame(40200, 1666, 51.5002, -0.1002))
	stream.Write(timeFrame(40300, 1666, 51.5003, -0.1003)[:15]) // trailing partial frame

	var reg, trig strings.Builder
	counters, err := convert(convertOpts{
		in:      &stream,
		regular: &reg,
		trigger: &trig,
		loc:     time.UTC,
	})
	if err != nil {
		t.Fatalf("convert() error: %v", err)
	}

	if got := strings.Count(reg.String(), "\n"); got != 2 {
		t.Fatalf("regular rows=%d want 2, output:\n%s", got, reg.String())
	}
	if got := strings.Count(trig.String(), "\n"); got != 1 {
		t.Fatalf("trigger rows=%d want 1, output:\n%s", got, trig.String())
	}

	// minutes 1666 * 60 + 40s = 100000s.
	if !strings.HasPrefix(reg.String(), "100000.000,") {
		t.Fatalf("first regular row=%q", reg.String())
	}
	if !strings.Contains(reg.String(), "51.50000000,-0.10000000,100.500") {
		t.Fatalf("nav fields missing:\n%s", reg.String())
	}

	if counters.Packets != 3 {
		t.Fatalf("packets=%d want 3", counters.Packets)
	}
	// Only the leading noise is skipped; the trailing partial stays pending.
	if counters.Skipped != 3 {
		t.Fatalf("skipped=%d want 3", counters.Skipped)
	}
	if counters.Bytes != uint64(3+40+40+40+15) {
		t.Fatalf("bytes=%d want %d", counters.Bytes, 3+40+40+40+15)
	}
}

func TestConvert_ProgressReport(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(timeFrame(1000, 5, 51.5, -0.1))

	var reg, progress strings.Builder
	if _, err := convert(convertOpts{
		in:       &stream,
		regular:  &reg,
		loc:      time.UTC,
		progress: &progress,
	}); err != nil {
		t.Fatalf("convert() error: %v", err)
	}
	if !strings.Contains(progress.String(), "Bytes Read 40, Packets Read 1, Bytes Skipped 0") {
		t.Fatalf("progress=%q", progress.String())
	}
}

func TestRunConvert_MissingInputFails(t *testing.T) {
	if err := runConvert("", "out.csv", "", "", nil); err == nil {
		t.Fatalf("expected error for empty -in")
	}
	if err := runConvert(filepath.Join(t.TempDir(), "nope.ncom"), "out.csv", "", "", nil); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}

func TestRunConvert_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "stream.ncom")
	outPath := filepath.Join(dir, "out.csv")
	trigPath := filepath.Join(dir, "trig.csv")

	var stream bytes.Buffer
	stream.Write(timeFrame(0, 100, 51.5, -0.1))
	stream.Write(trigFrame(500, 51.5, -0.1))
	if err := os.WriteFile(inPath, stream.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if err := runConvert(inPath, outPath, trigPath, "UTC", nil); err != nil {
		t.Fatalf("runConvert() error: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile(out) error: %v", err)
	}
	trig, err := os.ReadFile(trigPath)
	if err != nil {
		t.Fatalf("ReadFile(trig) error: %v", err)
	}
	if got := strings.Count(string(out), "\n"); got != 1 {
		t.Fatalf("out rows=%d want 1:\n%s", got, out)
	}
	if got := strings.Count(string(trig), "\n"); got != 1 {
		t.Fatalf("trig rows=%d want 1:\n%s", got, trig)
	}
}
