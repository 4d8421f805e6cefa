package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ncomrx/internal/ncom"
)

func TestReader_ParsesChunksAndMarkers(t *testing.T) {
	in := `# comment
START
0,e701
1000000,0203

START
500,ff
`
	chunks, err := NewReader(strings.NewReader(in)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(chunks) != 5 {
		t.Fatalf("chunks=%d want 5", len(chunks))
	}
	if chunks[0].Data != nil || chunks[3].Data != nil {
		t.Fatalf("expected START markers at 0 and 3")
	}
	if chunks[1].At != 0 || len(chunks[1].Data) != 2 || chunks[1].Data[0] != 0xE7 {
		t.Fatalf("unexpected first chunk: %+v", chunks[1])
	}
	if chunks[2].At != time.Millisecond {
		t.Fatalf("at=%s want 1ms", chunks[2].At)
	}
}

func TestReader_RejectsMalformedLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"MissingComma", "123\n"},
		{"EmptyHex", "123,\n"},
		{"BadHex", "123,zz\n"},
		{"NegativeTimestamp", "-1,e7\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewReader(strings.NewReader(tc.in)).ReadAll(); err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
		})
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.ncomlog")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	start := time.Now()
	if err := w.WriteChunk(start, []byte{0xE7, 0x01, 0x02}); err != nil {
		t.Fatalf("WriteChunk() error: %v", err)
	}
	if err := w.WriteChunk(start.Add(5*time.Millisecond), []byte{0x03}); err != nil {
		t.Fatalf("WriteChunk() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()
	chunks, err := NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	// START marker + 2 data chunks.
	if len(chunks) != 3 {
		t.Fatalf("chunks=%d want 3", len(chunks))
	}
	if chunks[1].Data[0] != 0xE7 || len(chunks[1].Data) != 3 {
		t.Fatalf("unexpected data chunk: %+v", chunks[1])
	}
	if chunks[2].At < chunks[1].At {
		t.Fatalf("timestamps not monotonic: %s then %s", chunks[1].At, chunks[2].At)
	}
}

func TestWriter_RejectsAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.ncomlog")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteChunk(time.Now(), []byte{0x01}); err == nil {
		t.Fatalf("expected error writing to closed writer")
	}
}

type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }

func TestPlay_TimingAndSpeed(t *testing.T) {
	chunks := []Chunk{
		{At: 0, Data: nil}, // START
		{At: 0, Data: []byte{0x01}},
		{At: 100 * time.Millisecond, Data: []byte{0x02}},
		{At: 300 * time.Millisecond, Data: []byte{0x03}},
	}

	var got [][]byte
	fs := &fakeSleeper{}
	err := Play(chunks, 2.0, false, fs, func(data []byte) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("chunks played=%d want 3", len(got))
	}
	// 2x speed halves the waits.
	if len(fs.slept) != 2 || fs.slept[0] != 50*time.Millisecond || fs.slept[1] != 100*time.Millisecond {
		t.Fatalf("slept=%v want [50ms 100ms]", fs.slept)
	}
}

func TestPlay_FeedsDecoderAcrossChunkBoundaries(t *testing.T) {
	// A frame split across two chunks must still decode on replay.
	frame := ncom.Frame{
		MS:        1000,
		NavStatus: ncom.StatusLocked,
		PosValid:  true,
		LatDeg:    51.5,
		LonDeg:    -0.1,
		Channel:   ncom.ChannelTime,
		Payload:   ncom.TimePayload(10, -18, true),
	}.Encode()

	chunks := []Chunk{
		{At: 0, Data: nil},
		{At: 0, Data: frame[:17]},
		{At: time.Millisecond, Data: frame[17:]},
	}

	d := ncom.New()
	updates := 0
	err := Play(chunks, 1000, false, &fakeSleeper{}, func(data []byte) error {
		for _, b := range data {
			if d.Feed(b) {
				updates++
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if updates != 1 {
		t.Fatalf("updates=%d want 1", updates)
	}
	if rec := d.Record(); !rec.LatValid || rec.LatDeg != 51.5 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
