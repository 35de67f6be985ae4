package kvstore

import (
	"fmt"
	"iter"
)

// Entry is one key-value pair produced by Scan.
type Entry struct {
	// Key is the raw store key.
	Key []byte
	// ID is the entity id recovered from Key.
	ID string
	// Value is the stored value. It is owned by the caller.
	Value []byte
}

// Scan returns a lazy, ordered sequence over every entry of a collection.
//
// Each call iterates a point-in-time snapshot: writes that happen after
// the scan starts are not observed, and no key is yielded twice or skipped.
// Iteration starts when the sequence is ranged over and stops as soon as
// the loop breaks.
//
// Failures are reported per item. A key that cannot be decoded yields an
// Entry carrying the raw Key together with an ErrMalformedKey error, and
// the scan continues. A storage failure is yielded once as an *IOError and
// ends the sequence.
func (s *Store) Scan(collection string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		prefix := CollectionPrefix(collection)
		stopped := false

		err := s.engine.scan(prefix, func(key, value []byte) bool {
			entry := Entry{Key: key, Value: value}
			c, id, err := DecodeKey(key)
			if err == nil && c != collection {
				err = fmt.Errorf("%w: key %x outside collection %q", ErrMalformedKey, key, collection)
			}
			if err != nil {
				stopped = !yield(entry, err)
				return !stopped
			}
			entry.ID = id
			stopped = !yield(entry, nil)
			return !stopped
		})
		if err != nil && !stopped {
			yield(Entry{}, wrapIO("scan", prefix, err))
		}
	}
}
