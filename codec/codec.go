package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// Stored value layout:
//
//	[magic 'S'][format version][CBOR payload][xxhash64(payload), big-endian]
//
// The payload uses CBOR Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes regardless of Go map
// iteration order.
const (
	magic         byte = 'S'
	formatVersion byte = 1

	headerSize   = 2
	checksumSize = 8
	minSize      = headerSize + 1 + checksumSize
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Marshal never writes duplicate map keys.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		// Unknown fields are silently ignored so records written by a
		// newer schema still decode.
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v into a checksummed, deterministic binary record.
func Marshal(v any) ([]byte, error) {
	payload, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}

	buf := make([]byte, 0, headerSize+len(payload)+checksumSize)
	buf = append(buf, magic, formatVersion)
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64(payload))
	return buf, nil
}

// Unmarshal decodes a record produced by Marshal into v.
//
// Any mismatch between data and the expected layout is reported as a
// *CorruptionError.
func Unmarshal(data []byte, v any) error {
	if len(data) < minSize {
		return corrupt("truncated record: %d bytes", len(data))
	}
	if data[0] != magic {
		return corrupt("invalid tag 0x%02x", data[0])
	}
	if data[1] != formatVersion {
		return corrupt("unsupported format version %d", data[1])
	}

	payload := data[headerSize : len(data)-checksumSize]
	want := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if got := xxhash.Sum64(payload); got != want {
		return corrupt("checksum mismatch: stored %016x, computed %016x", want, got)
	}

	if err := decMode.Unmarshal(payload, v); err != nil {
		return &CorruptionError{Reason: "payload does not match schema", Err: err}
	}
	return nil
}
