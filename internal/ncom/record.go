package ncom

// Classification says why an update was emitted: an ordinary periodic sample
// or a discrete edge on the IN1 trigger input.
type Classification int

const (
	ClassRegular Classification = iota
	ClassIn1Down
	ClassIn1Up
)

func (c Classification) String() string {
	switch c {
	case ClassRegular:
		return "regular"
	case ClassIn1Down:
		return "in1_down"
	case ClassIn1Up:
		return "in1_up"
	default:
		return "unknown"
	}
}

// Record is the latest successfully decoded state. Each value field is paired
// with a validity flag; a value is meaningful only when its flag is set. The
// decoder overwrites the record in place on every accepted frame, so callers
// get an owned copy from Decoder.Record.
type Record struct {
	// Time is fractional seconds in the device's GPS time reference
	// (seconds since the GPS epoch). Epoch/civil conversion is a
	// presentation concern; see the textout package.
	Time      float64
	TimeValid bool

	// UTCOffset is the correction in seconds to add to Time to obtain UTC.
	UTCOffset      float64
	UTCOffsetValid bool

	LatDeg   float64
	LatValid bool

	LonDeg   float64
	LonValid bool

	// Dist2D is the cumulative horizontal distance travelled, in meters.
	Dist2D      float64
	Dist2DValid bool

	// Classification is always set on an accepted frame, never unknown.
	Classification Classification
}
