package capture

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Capture log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" resets the origin (next chunk time is relative to 0 again).
// - Data lines are: <t_ns>,<hex>
//   where t_ns is nanoseconds since START (monotonic), and hex is a raw run
//   of NCom stream bytes exactly as received (chunks need not align with
//   frame boundaries; the decoder resynchronizes on replay).
//
// This is intentionally simple and stable for deterministic decoder
// regression tests against real receiver traffic.

type Chunk struct {
	At   time.Duration
	Data []byte
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (cr *Reader) ReadAll() ([]Chunk, error) {
	s := bufio.NewScanner(cr.r)
	// Allow reasonably large receive bursts.
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	chunks := make([]Chunk, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			chunks = append(chunks, Chunk{At: 0, Data: nil})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("invalid capture line (missing comma): %q", line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		hexStr := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || hexStr == "" {
			return nil, fmt.Errorf("invalid capture line (empty field): %q", line)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid capture timestamp %q: %w", tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("invalid capture timestamp (negative): %d", tsNs)
		}

		hexStr = strings.ReplaceAll(hexStr, " ", "")
		b, err := hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("invalid capture hex payload: %w", err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("invalid capture payload (empty)")
		}

		chunks = append(chunks, Chunk{At: time.Duration(tsNs) * time.Nanosecond, Data: b})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("START\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (cw *Writer) WriteChunk(now time.Time, data []byte) error {
	if cw.closed {
		return errors.New("capture writer is closed")
	}
	if len(data) == 0 {
		return errors.New("chunk is empty")
	}

	// Use monotonic component of time when available.
	d := now.Sub(cw.start)
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(cw.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(data)); err != nil {
		return err
	}
	return nil
}

func (cw *Writer) Flush() error {
	if cw.closed {
		return nil
	}
	return cw.w.Flush()
}

func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	if err := cw.w.Flush(); err != nil {
		_ = cw.f.Close()
		return err
	}
	return cw.f.Close()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play replays chunks with their relative timing.
//
// The callback is invoked for each chunk carrying data (Chunk.Data != nil).
// START markers are honored by resetting the origin.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(chunks []Chunk, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(data []byte) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(chunks) == 0 {
		return errors.New("no chunks")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, c := range chunks {
			if c.Data == nil {
				// START marker.
				origin = c.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := c.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(c.Data); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
