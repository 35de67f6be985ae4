package collection

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator allocates identifiers for new entities.
type IDGenerator interface {
	NewID() (string, error)
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() (string, error)

func (f IDGeneratorFunc) NewID() (string, error) { return f() }

// UUIDv7 returns the default generator. It produces RFC 9562 version 7
// UUIDs in canonical text form: 48 bits of millisecond Unix time followed
// by a sub-millisecond sequence and random bits. Ids generated by one
// process are strictly increasing, even across goroutines, so their
// lexicographic order is their creation order.
func UUIDv7() IDGenerator {
	return IDGeneratorFunc(func() (string, error) {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate uuid v7: %w", err)
		}
		return id.String(), nil
	})
}
