package web

import (
	"sync/atomic"
	"time"

	"ncomrx/internal/ncom"
	"ncomrx/internal/source"
)

type Status struct {
	startUnixNano  int64
	lastUpdateNano int64

	counters atomic.Value // ncom.Counters
	record   atomic.Value // RecordView
	source   atomic.Value // source.Snapshot
	sats     atomic.Value // satsView
}

type satsView struct {
	count int
	known bool
}

func NewStatus() *Status {
	s := &Status{}
	now := time.Now().UTC()
	atomic.StoreInt64(&s.startUnixNano, now.UnixNano())
	s.counters.Store(ncom.Counters{})
	s.record.Store(RecordView{Classification: "none"})
	s.source.Store(source.Snapshot{})
	s.sats.Store(satsView{})
	return s
}

// RecordView is a UI-friendly view of the latest navigation record.
//
// Invalid fields are omitted (null) rather than rendered as zero.
type RecordView struct {
	TimeSec        *float64 `json:"time_sec,omitempty"`
	UTCOffsetSec   *float64 `json:"utc_offset_sec,omitempty"`
	LatDeg         *float64 `json:"lat_deg,omitempty"`
	LonDeg         *float64 `json:"lon_deg,omitempty"`
	Dist2DM        *float64 `json:"dist2d_m,omitempty"`
	Classification string   `json:"classification"`
	LastUpdateUTC  string   `json:"last_update_utc,omitempty"`
}

func ViewOf(rec ncom.Record) RecordView {
	v := RecordView{Classification: rec.Classification.String()}
	if rec.TimeValid {
		t := rec.Time
		v.TimeSec = &t
	}
	if rec.UTCOffsetValid {
		o := rec.UTCOffset
		v.UTCOffsetSec = &o
	}
	if rec.LatValid {
		lat := rec.LatDeg
		v.LatDeg = &lat
	}
	if rec.LonValid {
		lon := rec.LonDeg
		v.LonDeg = &lon
	}
	if rec.Dist2DValid {
		d := rec.Dist2D
		v.Dist2DM = &d
	}
	return v
}

func (s *Status) SetSource(snap source.Snapshot) {
	s.source.Store(snap)
}

// MarkUpdate publishes one accepted navigation update.
func (s *Status) MarkUpdate(nowUTC time.Time, rec ncom.Record, counters ncom.Counters) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	v := ViewOf(rec)
	v.LastUpdateUTC = nowUTC.UTC().Format(time.RFC3339Nano)
	s.record.Store(v)
	s.counters.Store(counters)
	atomic.StoreInt64(&s.lastUpdateNano, nowUTC.UnixNano())
}

// SetCounters refreshes the stream counters without a record update, so
// skipped bytes remain visible while the stream is noise-only.
func (s *Status) SetCounters(counters ncom.Counters) {
	s.counters.Store(counters)
}

func (s *Status) SetSatellites(count int) {
	s.sats.Store(satsView{count: count, known: true})
}

type StatusSnapshot struct {
	Service    string          `json:"service"`
	NowUTC     string          `json:"now_utc"`
	UptimeSec  int64           `json:"uptime_sec"`
	Source     source.Snapshot `json:"source"`
	Bytes      uint64          `json:"bytes_total"`
	Packets    uint64          `json:"packets_total"`
	Skipped    uint64          `json:"skipped_total"`
	Satellites *int            `json:"satellites,omitempty"`
	Record     RecordView      `json:"record"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	counters := s.counters.Load().(ncom.Counters)

	snap := StatusSnapshot{
		Service:   "ncomrx",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Source:    s.source.Load().(source.Snapshot),
		Bytes:     counters.Bytes,
		Packets:   counters.Packets,
		Skipped:   counters.Skipped,
		Record:    s.record.Load().(RecordView),
	}
	if sv := s.sats.Load().(satsView); sv.known {
		n := sv.count
		snap.Satellites = &n
	}
	return snap
}
