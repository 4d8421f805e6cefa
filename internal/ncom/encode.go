package ncom

import (
	"encoding/binary"
	"math"
)

// Frame describes the content of one wire frame for encoding. Receivers only
// decode; encoding exists for the simulator, capture tooling, and tests.
type Frame struct {
	MS        uint16 // milliseconds into the GPS minute
	NavStatus byte

	PosValid  bool
	DistValid bool
	LatDeg    float64
	LonDeg    float64
	Dist2D    float64

	Channel byte // ChannelNone when the slot is empty
	Payload [8]byte
}

// Encode renders the frame with both checksums filled in.
func (f Frame) Encode() []byte {
	b := make([]byte, FrameLen)
	b[0] = SyncByte
	binary.LittleEndian.PutUint16(b[offTimeMS:], f.MS)
	b[offNavStatus] = f.NavStatus

	var flags byte
	if f.PosValid {
		flags |= flagPosValid
	}
	if f.DistValid {
		flags |= flagDistValid
	}
	b[offFieldFlags] = flags

	binary.LittleEndian.PutUint64(b[offLat:], math.Float64bits(f.LatDeg))
	binary.LittleEndian.PutUint64(b[offLon:], math.Float64bits(f.LonDeg))
	binary.LittleEndian.PutUint64(b[offDist:], math.Float64bits(f.Dist2D))
	b[offChecksumA] = checksum(b[1:offChecksumA])

	b[offChannel] = f.Channel
	copy(b[offPayload:offPayload+8], f.Payload[:])
	b[offChecksumB] = checksum(b[1:offChecksumB])
	return b
}

// TimePayload builds the channel-0 payload: the GPS minute counter and,
// optionally, the GPS-UTC offset in seconds.
func TimePayload(minutes uint32, utcOffset int8, utcValid bool) [8]byte {
	var p [8]byte
	binary.LittleEndian.PutUint32(p[:], minutes)
	if utcValid {
		p[4] = byte(utcOffset)
		p[5] |= 0x01
	}
	return p
}

// SatellitesPayload builds the channel-1 payload.
func SatellitesPayload(count uint8) [8]byte {
	var p [8]byte
	p[0] = count
	return p
}
