package kvstore

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// memoryEngine keeps all entries in a copy-on-write btree. Nothing is
// persisted; it exists for tests and throwaway instances.
type memoryEngine struct {
	mu     sync.Mutex
	tree   *btree.BTreeG[memEntry]
	closed bool
}

type memEntry struct {
	key   []byte
	value []byte
}

func lessEntry(l, r memEntry) bool {
	return bytes.Compare(l.key, r.key) < 0
}

func newMemoryEngine() *memoryEngine {
	return &memoryEngine{tree: btree.NewG(32, lessEntry)}
}

func (e *memoryEngine) put(key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.tree.ReplaceOrInsert(memEntry{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

func (e *memoryEngine) get(key []byte) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false, ErrClosed
	}
	entry, ok := e.tree.Get(memEntry{key: key})
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(entry.value), true, nil
}

func (e *memoryEngine) update(key []byte, fn func(current []byte) ([]byte, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	var current []byte
	if entry, ok := e.tree.Get(memEntry{key: key}); ok {
		current = bytes.Clone(entry.value)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	e.tree.ReplaceOrInsert(memEntry{key: bytes.Clone(key), value: bytes.Clone(next)})
	return nil
}

func (e *memoryEngine) scan(prefix []byte, fn func(key, value []byte) bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	// Clone is copy-on-write; later writes never show up in the snapshot.
	snapshot := e.tree.Clone()
	e.mu.Unlock()

	snapshot.AscendGreaterOrEqual(memEntry{key: prefix}, func(entry memEntry) bool {
		if !bytes.HasPrefix(entry.key, prefix) {
			return false
		}
		return fn(bytes.Clone(entry.key), bytes.Clone(entry.value))
	})
	return nil
}

func (e *memoryEngine) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.tree.Clear(false)
	return nil
}
