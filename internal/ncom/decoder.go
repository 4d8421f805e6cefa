package ncom

import (
	"encoding/binary"
	"math"
)

const (
	FrameLen = 40
	SyncByte = 0xE7

	offTimeMS     = 1
	offNavStatus  = 3
	offFieldFlags = 4
	offLat        = 5
	offLon        = 13
	offDist       = 21
	offChecksumA  = 29
	offChannel    = 30
	offPayload    = 31
	offChecksumB  = 39

	flagPosValid  = 0x01
	flagDistValid = 0x02

	msPerMinute = 60000
)

// Nav status values carried in byte 3.
const (
	StatusInvalid  = 0
	StatusRawIMU   = 1
	StatusInit     = 2
	StatusLocking  = 3
	StatusLocked   = 4
	StatusTrigDown = 10
	StatusTrigUp   = 11
)

// Status channel numbers (byte 30).
const (
	ChannelTime       = 0
	ChannelSatellites = 1
	ChannelNone       = 0xFF
)

type state int

const (
	seekingSync state = iota
	accumulating
	validating
)

// Decoder is a single-stream, byte-at-a-time NCom decoder. It is not safe
// for concurrent use; decode independent streams with independent instances.
type Decoder struct {
	st  state
	buf [FrameLen]byte
	n   int

	numBytes   uint64
	numPackets uint64
	skipped    uint64

	// Sticky stream state assembled from the status channel.
	minutes      uint32
	minutesKnown bool
	utcOffset    int8
	utcKnown     bool
	satellites   uint8
	satsKnown    bool

	lastMS uint16
	haveMS bool

	rec Record
}

// New returns a decoder in the seeking-sync state with all counters zero and
// an all-invalid record.
func New() *Decoder {
	return &Decoder{}
}

// Feed consumes exactly one stream byte. It returns true when this byte
// completed a valid frame and the record was refreshed; the classification is
// available via Record. Corrupt bytes are absorbed silently: they only show
// up in SkippedBytes. Feed never blocks and never fails.
func (d *Decoder) Feed(b byte) bool {
	d.numBytes++
	return d.consume(b)
}

// NumBytes is the total number of bytes fed, regardless of outcome.
func (d *Decoder) NumBytes() uint64 { return d.numBytes }

// NumPackets is the number of frames accepted.
func (d *Decoder) NumPackets() uint64 { return d.numPackets }

// SkippedBytes is the number of bytes discarded without forming a valid frame.
func (d *Decoder) SkippedBytes() uint64 { return d.skipped }

// Counters bundles the stream accounting figures.
type Counters struct {
	Bytes   uint64
	Packets uint64
	Skipped uint64
}

// Counters returns a snapshot of the stream accounting figures.
func (d *Decoder) Counters() Counters {
	return Counters{Bytes: d.numBytes, Packets: d.numPackets, Skipped: d.skipped}
}

// Record returns a copy of the latest decoded record. Safe to call before the
// first accepted frame (every field reports invalid).
func (d *Decoder) Record() Record { return d.rec }

// Satellites reports the satellite count from the status channel, when known.
func (d *Decoder) Satellites() (int, bool) {
	return int(d.satellites), d.satsKnown
}

func (d *Decoder) consume(b byte) bool {
	switch d.st {
	case seekingSync:
		if b != SyncByte {
			d.skipped++
			return false
		}
		d.buf[0] = b
		d.n = 1
		d.st = accumulating
		return false

	case accumulating:
		d.buf[d.n] = b
		d.n++
		if d.n == offChecksumA+1 && !d.bodyValid() {
			return d.resync()
		}
		if d.n == FrameLen {
			d.st = validating
			return d.validate()
		}
		return false
	}
	// validating never persists across calls.
	return false
}

// bodyValid checks the mid-frame checksum and the structural sanity of the
// navigation body, allowing early rejection before the frame completes.
func (d *Decoder) bodyValid() bool {
	if checksum(d.buf[1:offChecksumA]) != d.buf[offChecksumA] {
		return false
	}
	if binary.LittleEndian.Uint16(d.buf[offTimeMS:]) >= msPerMinute {
		return false
	}
	switch d.buf[offNavStatus] {
	case StatusInvalid, StatusRawIMU, StatusInit, StatusLocking, StatusLocked,
		StatusTrigDown, StatusTrigUp:
		return true
	default:
		return false
	}
}

func (d *Decoder) validate() bool {
	if checksum(d.buf[1:offChecksumB]) != d.buf[offChecksumB] {
		return d.resync()
	}
	d.apply()
	d.numPackets++
	d.n = 0
	d.st = seekingSync
	return true
}

// resync drops the first buffered byte as noise and reinterprets the rest as
// a fresh stream: the discarded prefix may have hidden a real frame start.
// The pending run is shorter than one frame, so this cannot itself emit an
// update, and nesting is bounded by the frame length.
func (d *Decoder) resync() bool {
	var pending [FrameLen]byte
	m := copy(pending[:], d.buf[1:d.n])
	d.n = 0
	d.st = seekingSync
	d.skipped++

	upd := false
	for i := 0; i < m; i++ {
		if d.consume(pending[i]) {
			upd = true
		}
	}
	return upd
}

// apply refreshes the record from the validated frame in buf.
func (d *Decoder) apply() {
	gotMinutes := d.applyChannel()

	ms := binary.LittleEndian.Uint16(d.buf[offTimeMS:])
	nav := d.buf[offNavStatus]
	flags := d.buf[offFieldFlags]

	// The frame only carries milliseconds into the GPS minute; the minute
	// counter is sticky from channel 0. A backwards millisecond step without
	// an explicit minute refresh means the minute rolled over.
	if d.minutesKnown && d.haveMS && !gotMinutes && ms < d.lastMS {
		d.minutes++
	}
	d.lastMS = ms
	d.haveMS = true

	d.rec.TimeValid = d.minutesKnown
	if d.minutesKnown {
		d.rec.Time = float64(d.minutes)*60 + float64(ms)/1000
	}

	d.rec.UTCOffsetValid = d.utcKnown
	if d.utcKnown {
		d.rec.UTCOffset = float64(d.utcOffset)
	}

	posOK := flags&flagPosValid != 0
	d.rec.LatDeg = float64frombuf(d.buf[offLat:])
	d.rec.LonDeg = float64frombuf(d.buf[offLon:])
	d.rec.LatValid = posOK
	d.rec.LonValid = posOK

	d.rec.Dist2D = float64frombuf(d.buf[offDist:])
	d.rec.Dist2DValid = flags&flagDistValid != 0

	// A trigger packet also carries a regular sample; the trigger wins.
	switch nav {
	case StatusTrigDown:
		d.rec.Classification = ClassIn1Down
	case StatusTrigUp:
		d.rec.Classification = ClassIn1Up
	default:
		d.rec.Classification = ClassRegular
	}
}

// applyChannel folds the frame's status channel into the sticky stream state.
// Reports whether the channel carried an explicit minute counter.
func (d *Decoder) applyChannel() bool {
	payload := d.buf[offPayload : offPayload+8]
	switch d.buf[offChannel] {
	case ChannelTime:
		d.minutes = binary.LittleEndian.Uint32(payload)
		d.minutesKnown = true
		if payload[5]&0x01 != 0 {
			d.utcOffset = int8(payload[4])
			d.utcKnown = true
		}
		return true
	case ChannelSatellites:
		d.satellites = payload[0]
		d.satsKnown = true
	}
	// Unknown channels (and ChannelNone) are ignored.
	return false
}

func checksum(b []byte) byte {
	var s byte
	for _, v := range b {
		s += v
	}
	return s
}

func float64frombuf(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
