// Package codec encodes entities for storage.
//
// Records are CBOR with Core Deterministic Encoding, wrapped in a small
// envelope holding a format tag and an xxhash64 checksum of the payload.
// Struct types meant for storage should tag their fields with integer
// keys (`cbor:"1,keyasint"`) so fields can be appended later without
// touching existing records; unknown fields are ignored on decode.
//
// Callers must not compare encoded bytes to test entity equality.
package codec
