package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned by Update when a concurrent transaction wrote
	// the same key first. The store never retries on the caller's behalf.
	ErrConflict = errors.New("kvstore: conflicting concurrent update")

	// ErrMalformedKey is reported for keys that do not follow the key layout.
	ErrMalformedKey = errors.New("kvstore: malformed key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kvstore: store closed")

	// ErrSkip can be returned from an Update callback to leave the key
	// untouched. Update then returns nil.
	ErrSkip = errors.New("kvstore: skip update")
)

// IOError reports a failure of the underlying storage engine.
type IOError struct {
	Op  string // "put", "get", "update", "scan", "open" or "close"
	Key []byte // nil for whole-store operations
	Err error
}

func (e *IOError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("kvstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kvstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// wrapIO leaves sentinel errors of this package untouched and wraps
// everything else into an *IOError.
func wrapIO(op string, key []byte, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrClosed) {
		return err
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Key: key, Err: err}
}
