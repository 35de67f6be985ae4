package kvstore

import (
	"bytes"
	"fmt"
)

// Key encoding for the shared keyspace.
// Key format: [collection][separator][id]
//
// Both components are escaped so that the separator byte (0x00) never
// appears inside them. The first 0x00 of a key therefore always ends the
// collection name, which makes the encoding injective and keeps every key
// of a collection contiguous under CollectionPrefix. Escaping preserves
// byte order, so keys of one collection sort by id.

const keySeparator byte = 0x00

// EncodeKey encodes a (collection, id) pair into a store key.
func EncodeKey(collection, id string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(collection) + len(id) + 1)
	writeEscaped(&buf, collection)
	buf.WriteByte(keySeparator)
	writeEscaped(&buf, id)
	return buf.Bytes()
}

// CollectionPrefix returns the prefix shared by all keys in a collection.
func CollectionPrefix(collection string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(collection) + 1)
	writeEscaped(&buf, collection)
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

// DecodeKey splits a store key back into its collection and id.
func DecodeKey(key []byte) (collection, id string, err error) {
	i := bytes.IndexByte(key, keySeparator)
	if i < 0 {
		return "", "", fmt.Errorf("%w: missing separator in %x", ErrMalformedKey, key)
	}
	c, err := unescape(key[:i])
	if err != nil {
		return "", "", err
	}
	rest := key[i+1:]
	if bytes.IndexByte(rest, keySeparator) >= 0 {
		return "", "", fmt.Errorf("%w: extra separator in %x", ErrMalformedKey, key)
	}
	d, err := unescape(rest)
	if err != nil {
		return "", "", err
	}
	return string(c), string(d), nil
}

// writeEscaped escapes null bytes (0x00) to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func writeEscaped(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
}

// unescape reverses writeEscaped. Dangling or unknown escapes are
// rejected with ErrMalformedKey.
func unescape(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != 0x01 {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, fmt.Errorf("%w: dangling escape", ErrMalformedKey)
		}
		switch b[i+1] {
		case 0x01:
			out = append(out, 0x00)
		case 0x02:
			out = append(out, 0x01)
		default:
			return nil, fmt.Errorf("%w: invalid escape 0x01 0x%02x", ErrMalformedKey, b[i+1])
		}
		i++
	}
	return out, nil
}
