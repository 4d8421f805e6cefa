package source

// Package source ingests the raw NCom byte stream.
//
// Three ingestion paths are supported: UDP (the receiver broadcasts NCom
// over the vehicle network), direct serial, and a deterministic simulator
// for bench bring-up without hardware.
//
// Sources deliver received chunks to a Handler callback. Chunks carry
// whatever the transport produced; they need not align with frame
// boundaries. The handler must not retain the slice past the call.
