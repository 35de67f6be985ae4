package collection

import "time"

// Meta is the identity and bookkeeping every stored entity carries.
type Meta struct {
	// ID is assigned on creation and never changes.
	ID string
	// CreatedAt is set on creation and never changes.
	CreatedAt time.Time
	// ModifiedAt is updated on every mutation and never precedes CreatedAt.
	ModifiedAt time.Time
}

// Entity is implemented by pointers to the records a Collection stores.
//
// The entity's encoded value must embed its own id; the store key is only
// an index.
type Entity interface {
	Meta() Meta
	SetMeta(Meta)
}

// EntityPtr constrains P to be *T implementing Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}
