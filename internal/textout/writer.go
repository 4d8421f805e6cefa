package textout

// Package textout renders decoded records as CSV-style text rows and routes
// them to per-classification sinks. Fields whose validity flag is clear are
// rendered empty, never as zero.

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"ncomrx/internal/ncom"
)

// gps2unix shifts GPS seconds (epoch 1980-01-06) to Unix seconds
// (epoch 1970-01-01). Leap seconds are handled via the decoded UTC offset.
const gps2unix = 315964800.0

type Writer struct {
	w   io.Writer
	loc *time.Location
}

// NewWriter renders rows to w, formatting civil time in loc.
// A nil loc means local time.
func NewWriter(w io.Writer, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{w: w, loc: loc}
}

// WriteRecord writes one row: device time, civil time, latitude, longitude,
// horizontal distance. Civil time needs both the device time and the UTC
// offset to be valid.
func (tw *Writer) WriteRecord(rec ncom.Record) error {
	var b strings.Builder

	if rec.TimeValid {
		fmt.Fprintf(&b, "%10.3f,", rec.Time)
		if rec.UTCOffsetValid {
			b.WriteString(civilTime(rec.Time+gps2unix+rec.UTCOffset, tw.loc))
		}
		b.WriteByte(',')
	} else {
		b.WriteString(",,")
	}

	if rec.LatValid {
		fmt.Fprintf(&b, "%.8f", rec.LatDeg)
	}
	b.WriteByte(',')

	if rec.LonValid {
		fmt.Fprintf(&b, "%.8f", rec.LonDeg)
	}
	b.WriteByte(',')

	if rec.Dist2DValid {
		fmt.Fprintf(&b, "%.3f", rec.Dist2D)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(tw.w, b.String())
	return err
}

func civilTime(unixSec float64, loc *time.Location) string {
	sec := math.Floor(unixSec)
	ms := int(math.Floor(0.5 + (unixSec-sec)*1000))
	if ms < 0 {
		ms = 0
	} else if ms > 999 {
		ms = 999
	}
	t := time.Unix(int64(sec), 0).In(loc)
	return fmt.Sprintf("%s.%03d", t.Format("2006-01-02 15:04:05"), ms)
}

// Router sends regular updates to one sink and falling-edge trigger updates
// to another. Other classifications are ignored. Either sink may be nil.
type Router struct {
	Regular *Writer
	Trigger *Writer
}

func (r *Router) Route(rec ncom.Record) error {
	switch rec.Classification {
	case ncom.ClassRegular:
		if r.Regular != nil {
			return r.Regular.WriteRecord(rec)
		}
	case ncom.ClassIn1Down:
		if r.Trigger != nil {
			return r.Trigger.WriteRecord(rec)
		}
	}
	return nil
}
