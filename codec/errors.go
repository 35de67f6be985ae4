package codec

import "fmt"

// CorruptionError reports stored bytes that do not decode to a valid
// entity. Since every write goes through Marshal, it points at damage in
// the storage layer.
type CorruptionError struct {
	// Key is the store key of the bad record, when known.
	Key []byte
	// ID is the entity id derived from the key, when known.
	ID     string
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := "corrupt record"
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptionError) Unwrap() error { return e.Err }

func corrupt(format string, args ...any) *CorruptionError {
	return &CorruptionError{Reason: fmt.Sprintf(format, args...)}
}
