package ncom

// Package ncom implements an incremental decoder for the NCom navigation
// stream emitted by an inertial/GPS navigation unit.
//
// Bytes are fed one at a time (serial link, UDP payload, file); the decoder
// performs frame synchronization, validation, and loss-of-sync recovery on
// its own. Corruption is never an error: bad bytes are dropped, counted, and
// the decoder rescans for the next frame start.
//
// Wire format (fixed 40-byte frame, little-endian):
//
//	offset  size  field
//	0       1     sync byte 0xE7
//	1       2     milliseconds into the current GPS minute (0..59999)
//	3       1     nav status (see below)
//	4       1     field flags: bit0 position valid, bit1 distance valid
//	5       8     latitude, float64 degrees
//	13      8     longitude, float64 degrees
//	21      8     horizontal distance travelled, float64 meters
//	29      1     checksum A: sum of bytes 1..28 mod 256
//	30      1     status channel number (0xFF = none)
//	31      8     status channel payload
//	39      1     checksum B: sum of bytes 1..38 mod 256
//
// Nav status values 0..4 mark ordinary periodic samples (0 = invalid mode,
// 1 = raw IMU, 2 = ready to init, 3 = locking, 4 = locked); 10 and 11 mark
// packets emitted for a falling/rising edge on the IN1 trigger input. Any
// other value fails validation. A trigger packet still carries the full
// navigation payload, but its update is classified as the trigger only.
//
// The full timestamp is split across the stream: each frame carries only the
// millisecond count into the GPS minute, while the minute counter itself
// arrives over the cyclic status channel (channel 0, together with the
// GPS-UTC offset). The decoder keeps the minute counter sticky and detects
// minute wrap from a backwards millisecond step, so the exposed time is
// monotonically non-decreasing once valid. Unknown channel numbers are
// ignored for forward compatibility.
//
// Checksum A sits before the status channel so a corrupt frame is rejected
// midway instead of only at the final byte.
