package kvstore

// engine is an ordered key-value backend (Badger, Bolt, in-memory).
//
// Every method is atomic for the single key it touches. Implementations
// synchronize internally; Store adds no locking of its own.
type engine interface {
	// put stores value under key, replacing any previous value.
	put(key, value []byte) error

	// get returns a copy of the value stored under key. ok is false if the
	// key does not exist.
	get(key []byte) (value []byte, ok bool, err error)

	// update runs fn against the current value of key (nil if absent) and
	// stores the result, all within one transaction. An error from fn
	// aborts the transaction and is returned unchanged.
	update(key []byte, fn func(current []byte) ([]byte, error)) error

	// scan calls fn for each key with the given prefix in ascending order,
	// over a point-in-time snapshot. Keys and values passed to fn are
	// owned by the caller. fn may write to the same engine. Iteration
	// stops when fn returns false.
	scan(prefix []byte, fn func(key, value []byte) bool) error

	// close releases the backend.
	close() error
}
