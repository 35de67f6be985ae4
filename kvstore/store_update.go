package kvstore

import "errors"

// callbackError marks errors produced by an Update callback so they are
// returned unchanged instead of being reported as storage failures.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }

func (e *callbackError) Unwrap() error { return e.err }

// Update runs a read-modify-write on a single key inside one engine
// transaction. fn receives the current value, or nil if the key does not
// exist, and returns the value to store.
//
// If fn returns ErrSkip the key is left untouched and Update returns nil.
// Any other error from fn aborts the update and is returned as is. On
// Badger a concurrent write to the same key makes Update fail with
// ErrConflict; it is never retried here.
func (s *Store) Update(collection, id string, fn func(current []byte) ([]byte, error)) error {
	key := EncodeKey(collection, id)
	err := s.engine.update(key, func(current []byte) ([]byte, error) {
		next, err := fn(current)
		if err != nil {
			return nil, &callbackError{err: err}
		}
		return next, nil
	})

	var cbErr *callbackError
	if errors.As(err, &cbErr) {
		if errors.Is(cbErr.err, ErrSkip) {
			return nil
		}
		return cbErr.err
	}
	return wrapIO("update", key, err)
}
