package collection

import (
	"errors"
	"fmt"
	"iter"

	"github.com/acksell/seekr/clock"
	"github.com/acksell/seekr/codec"
	"github.com/acksell/seekr/kvstore"
)

// Collection is a typed view of one named collection in a kvstore.Store.
//
// A Collection holds no state besides its configuration and is safe for
// concurrent use; all synchronization happens in the store.
type Collection[T any, P EntityPtr[T]] struct {
	name  string
	store *kvstore.Store
	ids   IDGenerator
	clock clock.Clock
}

// ErrDuplicateID is returned by Create when the id generator returns an id
// that is already stored.
var ErrDuplicateID = errors.New("collection: id already in use")

type options struct {
	ids   IDGenerator
	clock clock.Clock
}

// Option configures a Collection.
type Option func(*options)

// WithIDGenerator replaces the default UUIDv7 generator. g must never
// return an id twice; Create rejects a repeated id with ErrDuplicateID.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithClock replaces the real clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New returns the collection called name in store.
func New[T any, P EntityPtr[T]](store *kvstore.Store, name string, opts ...Option) *Collection[T, P] {
	o := options{
		ids:   UUIDv7(),
		clock: clock.Real(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T, P]{
		name:  name,
		store: store,
		ids:   o.ids,
		clock: o.clock,
	}
}

// Name returns the collection name.
func (c *Collection[T, P]) Name() string {
	return c.name
}

// Create assigns a fresh id and creation time to entity, stores it and
// returns the stored entity. Whatever identity entity carried before is
// discarded. If the generated id is already stored, nothing is written
// and Create fails with ErrDuplicateID.
func (c *Collection[T, P]) Create(entity T) (T, error) {
	var zero T

	id, err := c.ids.NewID()
	if err != nil {
		return zero, err
	}
	if id == "" {
		return zero, fmt.Errorf("create %s: id generator returned an empty id", c.name)
	}

	now := c.clock.Now()
	P(&entity).SetMeta(Meta{ID: id, CreatedAt: now, ModifiedAt: now})

	data, err := codec.Marshal(&entity)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", c.name, err)
	}
	err = c.store.Update(c.name, id, func(current []byte) ([]byte, error) {
		if current != nil {
			return nil, fmt.Errorf("create %s %q: %w", c.name, id, ErrDuplicateID)
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}
	return entity, nil
}

// Get returns the entity with the given id. A missing entity is reported
// as ok == false with a nil error. A record that fails to decode yields a
// *codec.CorruptionError.
func (c *Collection[T, P]) Get(id string) (entity T, ok bool, err error) {
	var zero T

	data, ok, err := c.store.Get(c.name, id)
	if err != nil || !ok {
		return zero, false, err
	}
	entity, err = c.decode(kvstore.EncodeKey(c.name, id), id, data)
	if err != nil {
		return zero, false, err
	}
	return entity, true, nil
}

// Update applies mutate to the stored entity inside a single-key
// transaction and returns the result. A missing entity is reported as
// ok == false with a nil error.
//
// The id and creation time cannot be changed by mutate. The modification
// time is set to now, or to the creation time if the clock reads earlier.
// An error from mutate aborts the update and is returned unchanged.
func (c *Collection[T, P]) Update(id string, mutate func(*T) error) (entity T, ok bool, err error) {
	var zero T
	key := kvstore.EncodeKey(c.name, id)

	err = c.store.Update(c.name, id, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, kvstore.ErrSkip
		}
		rec, err := c.decode(key, id, current)
		if err != nil {
			return nil, err
		}

		before := P(&rec).Meta()
		if err := mutate(&rec); err != nil {
			return nil, err
		}
		modified := c.clock.Now()
		if modified.Before(before.CreatedAt) {
			modified = before.CreatedAt
		}
		P(&rec).SetMeta(Meta{ID: before.ID, CreatedAt: before.CreatedAt, ModifiedAt: modified})

		data, err := codec.Marshal(&rec)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", c.name, err)
		}
		entity, ok = rec, true
		return data, nil
	})
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	return entity, true, nil
}

// List returns every entity of the collection in store key order. With
// the default UUIDv7 ids that is creation order; no other sort is applied.
//
// The sequence is lazy and reads a snapshot taken when iteration starts.
// A record that fails to decode is yielded as a zero entity with a
// *codec.CorruptionError, and iteration continues with the next record.
// A storage failure is yielded as a *kvstore.IOError and ends the sequence.
func (c *Collection[T, P]) List() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for entry, err := range c.store.Scan(c.name) {
			if err != nil {
				if errors.Is(err, kvstore.ErrMalformedKey) {
					err = &codec.CorruptionError{Key: entry.Key, Reason: "malformed key", Err: err}
				}
				if !yield(zero, err) {
					return
				}
				continue
			}

			entity, err := c.decode(entry.Key, entry.ID, entry.Value)
			if !yield(entity, err) {
				return
			}
		}
	}
}

func (c *Collection[T, P]) decode(key []byte, id string, data []byte) (T, error) {
	var entity T
	if err := codec.Unmarshal(data, &entity); err != nil {
		var corruption *codec.CorruptionError
		if errors.As(err, &corruption) {
			corruption.Key = key
			corruption.ID = id
		}
		var zero T
		return zero, err
	}
	if got := P(&entity).Meta().ID; got != id {
		var zero T
		return zero, &codec.CorruptionError{
			Key:    key,
			ID:     id,
			Reason: fmt.Sprintf("record claims id %q", got),
		}
	}
	return entity, nil
}
