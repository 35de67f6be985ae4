package kvstore

import (
	"fmt"
	"log/slog"
)

// Backend selects the storage engine behind a Store.
type Backend string

const (
	// BackendBadger stores data in BadgerDB, on disk or in memory.
	BackendBadger Backend = "badger"
	// BackendBolt stores data in a single bbolt file.
	BackendBolt Backend = "bolt"
	// BackendMemory keeps data in an in-process btree. Nothing survives Close.
	BackendMemory Backend = "memory"
)

// Backends lists every supported backend.
var Backends = []Backend{BackendBadger, BackendBolt, BackendMemory}

// Options configures a Store.
type Options struct {
	// Backend selects the storage engine. Defaults to BackendBadger.
	Backend Backend
	// Path to the database directory (badger) or file (bolt).
	// If empty, badger runs in in-memory mode.
	Path string
	// InMemory forces badger into in-memory mode even if Path is set.
	InMemory bool
	// SyncWrites makes every write durable before it returns.
	SyncWrites bool
	// Logger receives engine-internal logging. If nil, it is discarded.
	Logger *slog.Logger
}

// Store is the single owner of the process-wide ordered key-value store.
//
// A Store is safe for concurrent use. It partitions the keyspace into named
// collections and offers per-key atomic operations only: nothing is
// atomic across two ids or two collections.
type Store struct {
	engine  engine
	backend Backend
}

// New opens a Store with the given options.
func New(opts Options) (*Store, error) {
	if opts.Backend == "" {
		opts.Backend = BackendBadger
	}

	var (
		eng engine
		err error
	)
	switch opts.Backend {
	case BackendBadger:
		eng, err = openBadger(opts)
	case BackendBolt:
		eng, err = openBolt(opts)
	case BackendMemory:
		eng = newMemoryEngine()
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	return &Store{
		engine:  eng,
		backend: opts.Backend,
	}, nil
}

// Backend reports which engine the store runs on.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close closes the underlying engine. The store is unusable afterwards.
func (s *Store) Close() error {
	return wrapIO("close", nil, s.engine.close())
}
