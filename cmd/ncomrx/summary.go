package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"ncomrx/internal/capture"
	"ncomrx/internal/ncom"
)

type streamSummary struct {
	Segments    int
	Chunks      int
	MaxDuration time.Duration

	Counters    ncom.Counters
	ClassCounts map[string]int
}

// summarizeCapture runs a capture log through the real decoder so the
// reported figures match exactly what live mode would have produced.
func summarizeCapture(chunks []capture.Chunk) streamSummary {
	s := streamSummary{ClassCounts: map[string]int{}}
	if len(chunks) == 0 {
		return s
	}

	dec := ncom.New()
	origin := time.Duration(0)
	segments := 0
	hasChunks := false

	for _, c := range chunks {
		if c.Data == nil {
			segments++
			origin = c.At
			continue
		}
		hasChunks = true
		s.Chunks++

		at := c.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}

		for _, b := range c.Data {
			if dec.Feed(b) {
				s.ClassCounts[dec.Record().Classification.String()]++
			}
		}
	}
	if segments == 0 && hasChunks {
		segments = 1
	}
	s.Segments = segments
	s.Counters = dec.Counters()

	return s
}

func printStreamSummary(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("-log is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	chunks, err := capture.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	s := summarizeCapture(chunks)

	fmt.Printf("path: %s\n", path)
	fmt.Printf("segments: %d\n", s.Segments)
	fmt.Printf("chunks: %d\n", s.Chunks)
	fmt.Printf("max_duration: %s\n", s.MaxDuration)
	fmt.Printf("bytes: %d\n", s.Counters.Bytes)
	fmt.Printf("packets: %d\n", s.Counters.Packets)
	fmt.Printf("skipped: %d\n", s.Counters.Skipped)

	keys := make([]string, 0, len(s.ClassCounts))
	for k := range s.ClassCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("class_counts:\n")
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, s.ClassCounts[k])
	}
	return nil
}
