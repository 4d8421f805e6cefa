package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ncomrx/internal/ncom"
	"ncomrx/internal/textout"
)

// progressInterval is how often (in consumed bytes) the running counters are
// reported while converting.
const progressInterval = 4096

type convertOpts struct {
	in       io.Reader
	regular  io.Writer // may be nil
	trigger  io.Writer // may be nil
	loc      *time.Location
	progress io.Writer // may be nil
}

// convert drains the input stream through the decoder, routing each accepted
// update to the CSV sink matching its classification.
//
// A trailing partial frame is not an error: real captures end mid-frame all
// the time, and the bytes simply remain unaccounted in the final counters.
func convert(o convertOpts) (ncom.Counters, error) {
	dec := ncom.New()

	router := textout.Router{}
	if o.regular != nil {
		router.Regular = textout.NewWriter(o.regular, o.loc)
	}
	if o.trigger != nil {
		router.Trigger = textout.NewWriter(o.trigger, o.loc)
	}

	br := bufio.NewReaderSize(o.in, 64*1024)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dec.Counters(), fmt.Errorf("read input: %w", err)
		}

		if dec.Feed(b) {
			if werr := router.Route(dec.Record()); werr != nil {
				return dec.Counters(), fmt.Errorf("write output: %w", werr)
			}
		}

		if o.progress != nil && dec.NumBytes()%progressInterval == 0 {
			reportProgress(o.progress, dec.Counters())
		}
	}

	if o.progress != nil {
		reportProgress(o.progress, dec.Counters())
		fmt.Fprintln(o.progress)
	}
	return dec.Counters(), nil
}

func reportProgress(w io.Writer, c ncom.Counters) {
	fmt.Fprintf(w, "\rBytes Read %d, Packets Read %d, Bytes Skipped %d", c.Bytes, c.Packets, c.Skipped)
}

func runConvert(inPath, outPath, trigPath, timezone string, progress io.Writer) error {
	inPath = strings.TrimSpace(inPath)
	if inPath == "" {
		return fmt.Errorf("-in is required")
	}
	if strings.TrimSpace(outPath) == "" && strings.TrimSpace(trigPath) == "" {
		return fmt.Errorf("at least one of -out and -trig is required")
	}

	loc := time.Local
	if tz := strings.TrimSpace(timezone); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	o := convertOpts{in: in, loc: loc, progress: progress}

	if p := strings.TrimSpace(outPath); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		defer bw.Flush()
		o.regular = bw
	}
	if p := strings.TrimSpace(trigPath); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		defer bw.Flush()
		o.trigger = bw
	}

	_, err = convert(o)
	return err
}
