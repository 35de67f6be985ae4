package kvstore

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBackend struct {
	name string
	opts func(t *testing.T) Options
}

var testBackends = []testBackend{
	{"memory", func(t *testing.T) Options {
		return Options{Backend: BackendMemory}
	}},
	{"badger-in-memory", func(t *testing.T) Options {
		return Options{Backend: BackendBadger, InMemory: true}
	}},
	{"badger-disk", func(t *testing.T) Options {
		return Options{Backend: BackendBadger, Path: t.TempDir()}
	}},
	{"bolt", func(t *testing.T) Options {
		return Options{Backend: BackendBolt, Path: filepath.Join(t.TempDir(), "seekr.db")}
	}},
}

func newTestStore(t *testing.T, opts Options) *Store {
	store, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store *Store)) {
	for _, b := range testBackends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newTestStore(t, b.opts(t)))
		})
	}
}

func collect(t *testing.T, store *Store, collection string) ([]Entry, []error) {
	t.Helper()
	var entries []Entry
	var errs []error
	for entry, err := range store.Scan(collection) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, errs
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestStore_PutGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		t.Run("not found", func(t *testing.T) {
			value, ok, err := store.Get("clusters", "nonexistent")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, value)
		})

		t.Run("found after put", func(t *testing.T) {
			require.NoError(t, store.Put("clusters", "a", []byte("value-a")))

			value, ok, err := store.Get("clusters", "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("value-a"), value)
		})

		t.Run("idempotent put", func(t *testing.T) {
			require.NoError(t, store.Put("clusters", "b", []byte("same")))
			require.NoError(t, store.Put("clusters", "b", []byte("same")))

			value, ok, err := store.Get("clusters", "b")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("same"), value)

			entries, errs := collect(t, store, "clusters")
			require.Empty(t, errs)
			assert.Equal(t, []string{"a", "b"}, ids(entries))
		})

		t.Run("overwrite", func(t *testing.T) {
			require.NoError(t, store.Put("clusters", "c", []byte("old")))
			require.NoError(t, store.Put("clusters", "c", []byte("new")))

			value, _, err := store.Get("clusters", "c")
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), value)
		})

		t.Run("repeated get is stable", func(t *testing.T) {
			first, ok1, err1 := store.Get("clusters", "a")
			second, ok2, err2 := store.Get("clusters", "a")
			assert.Equal(t, first, second)
			assert.Equal(t, ok1, ok2)
			assert.Equal(t, err1, err2)
		})

		t.Run("returned value is a copy", func(t *testing.T) {
			value, _, err := store.Get("clusters", "a")
			require.NoError(t, err)
			value[0] = 'X'

			again, _, err := store.Get("clusters", "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("value-a"), again)
		})

		t.Run("collections are isolated", func(t *testing.T) {
			require.NoError(t, store.Put("topics", "a", []byte("topic-a")))

			value, _, err := store.Get("clusters", "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("value-a"), value)

			value, _, err = store.Get("topics", "a")
			require.NoError(t, err)
			assert.Equal(t, []byte("topic-a"), value)
		})
	})
}

func TestStore_Scan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		for _, id := range []string{"03", "01", "02"} {
			require.NoError(t, store.Put("clusters", id, []byte("cluster-"+id)))
		}
		require.NoError(t, store.Put("clusters2", "00", []byte("other")))
		require.NoError(t, store.Put("cluster", "s04", []byte("other")))
		require.NoError(t, store.Put("a", "z", []byte("before")))
		require.NoError(t, store.Put("z", "a", []byte("after")))

		t.Run("ordered and prefix bound", func(t *testing.T) {
			entries, errs := collect(t, store, "clusters")
			require.Empty(t, errs)
			assert.Equal(t, []string{"01", "02", "03"}, ids(entries))
			for _, e := range entries {
				assert.Equal(t, []byte("cluster-"+e.ID), e.Value)
				assert.Equal(t, EncodeKey("clusters", e.ID), e.Key)
			}
		})

		t.Run("empty collection", func(t *testing.T) {
			entries, errs := collect(t, store, "nothing-here")
			assert.Empty(t, errs)
			assert.Empty(t, entries)
		})

		t.Run("early break", func(t *testing.T) {
			var seen []string
			for entry, err := range store.Scan("clusters") {
				require.NoError(t, err)
				seen = append(seen, entry.ID)
				if len(seen) == 2 {
					break
				}
			}
			assert.Equal(t, []string{"01", "02"}, seen)
		})

		t.Run("sequence is reusable", func(t *testing.T) {
			seq := store.Scan("clusters")
			var first, second int
			for range seq {
				first++
			}
			for range seq {
				second++
			}
			assert.Equal(t, 3, first)
			assert.Equal(t, 3, second)
		})
	})
}

func TestStore_Scan_MalformedKeyIsPerItem(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		require.NoError(t, store.Put("clusters", "01", []byte("one")))
		require.NoError(t, store.Put("clusters", "03", []byte("three")))

		// A dangling escape inside the collection's range.
		bad := append(CollectionPrefix("clusters"), '0', '2', 0x01)
		require.NoError(t, store.engine.put(bad, []byte("garbage")))

		entries, errs := collect(t, store, "clusters")
		assert.Equal(t, []string{"01", "03"}, ids(entries))
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrMalformedKey)
	})
}

func TestStore_Scan_Snapshot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		require.NoError(t, store.Put("clusters", "01", []byte("one")))
		require.NoError(t, store.Put("clusters", "02", []byte("two")))

		var seen []string
		for entry, err := range store.Scan("clusters") {
			require.NoError(t, err)
			seen = append(seen, entry.ID)
			if entry.ID == "01" {
				require.NoError(t, store.Put("clusters", "03", []byte("three")))
				require.NoError(t, store.Put("clusters", "02", []byte("changed")))
			}
		}
		assert.Equal(t, []string{"01", "02"}, seen)

		entries, errs := collect(t, store, "clusters")
		require.Empty(t, errs)
		assert.Equal(t, []string{"01", "02", "03"}, ids(entries))
		assert.Equal(t, []byte("changed"), entries[1].Value)
	})
}

func TestStore_Scan_LargeWritesDuringScan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		require.NoError(t, store.Put("c", "seed", []byte("x")))

		big := bytes.Repeat([]byte{0xab}, 256<<10)
		done := make(chan error, 1)
		go func() {
			for _, err := range store.Scan("c") {
				if err != nil {
					done <- err
					return
				}
				for i := range 64 {
					if err := store.Put("other", fmt.Sprintf("big-%02d", i), big); err != nil {
						done <- err
						return
					}
				}
			}
			done <- nil
		}()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(30 * time.Second):
			t.Fatal("writes inside a scan did not complete")
		}

		value, ok, err := store.Get("other", "big-63")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, value, 256<<10)
	})
}

func TestStore_Update(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		t.Run("absent key sees nil", func(t *testing.T) {
			err := store.Update("clusters", "u1", func(current []byte) ([]byte, error) {
				assert.Nil(t, current)
				return []byte("v1"), nil
			})
			require.NoError(t, err)

			value, ok, err := store.Get("clusters", "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("v1"), value)
		})

		t.Run("modifies existing value", func(t *testing.T) {
			err := store.Update("clusters", "u1", func(current []byte) ([]byte, error) {
				return append(current, "+v2"...), nil
			})
			require.NoError(t, err)

			value, _, err := store.Get("clusters", "u1")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1+v2"), value)
		})

		t.Run("skip leaves key untouched", func(t *testing.T) {
			err := store.Update("clusters", "u2", func(current []byte) ([]byte, error) {
				return nil, ErrSkip
			})
			require.NoError(t, err)

			_, ok, err := store.Get("clusters", "u2")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("callback error is returned unchanged", func(t *testing.T) {
			boom := errors.New("boom")
			err := store.Update("clusters", "u1", func(current []byte) ([]byte, error) {
				return []byte("ignored"), boom
			})
			require.ErrorIs(t, err, boom)
			var ioErr *IOError
			assert.False(t, errors.As(err, &ioErr))

			value, _, err := store.Get("clusters", "u1")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1+v2"), value)
		})
	})
}

func TestStore_Update_ConflictBadger(t *testing.T) {
	store := newTestStore(t, Options{Backend: BackendBadger, InMemory: true})
	require.NoError(t, store.Put("clusters", "a", []byte("v1")))

	err := store.Update("clusters", "a", func(current []byte) ([]byte, error) {
		// A write committed by someone else after this transaction read the key.
		require.NoError(t, store.Put("clusters", "a", []byte("racer")))
		return []byte("loser"), nil
	})
	require.ErrorIs(t, err, ErrConflict)

	value, _, err := store.Get("clusters", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("racer"), value)
}

func TestStore_Concurrent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		const writers = 8
		const perWriter = 25

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					id := fmt.Sprintf("%02d-%03d", w, i)
					value := []byte("value-" + id)
					if err := store.Put("clusters", id, value); err != nil {
						t.Errorf("put %s: %v", id, err)
						return
					}
					got, ok, err := store.Get("clusters", id)
					if err != nil || !ok || string(got) != string(value) {
						t.Errorf("get %s: ok=%v err=%v value=%q", id, ok, err, got)
						return
					}
				}
			}(w)
		}

		// Scans run alongside the writers and must never see a torn value.
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				for entry, err := range store.Scan("clusters") {
					if err != nil {
						t.Errorf("scan: %v", err)
						return
					}
					if string(entry.Value) != "value-"+entry.ID {
						t.Errorf("torn value for %s: %q", entry.ID, entry.Value)
					}
				}
			}
		}()
		wg.Wait()

		entries, errs := collect(t, store, "clusters")
		require.Empty(t, errs)
		assert.Len(t, entries, writers*perWriter)
	})
}

func TestStore_Durable(t *testing.T) {
	tests := []struct {
		name string
		opts func(dir string) Options
	}{
		{"badger", func(dir string) Options {
			return Options{Backend: BackendBadger, Path: dir, SyncWrites: true}
		}},
		{"bolt", func(dir string) Options {
			return Options{Backend: BackendBolt, Path: filepath.Join(dir, "seekr.db"), SyncWrites: true}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			store, err := New(tt.opts(dir))
			require.NoError(t, err)
			require.NoError(t, store.Put("clusters", "a", []byte("survives")))
			require.NoError(t, store.Close())

			reopened := newTestStore(t, tt.opts(dir))
			value, ok, err := reopened.Get("clusters", "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("survives"), value)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for _, b := range testBackends {
		t.Run(b.name, func(t *testing.T) {
			store, err := New(b.opts(t))
			require.NoError(t, err)
			require.NoError(t, store.Close())

			err = store.Put("clusters", "a", []byte("x"))
			require.Error(t, err)

			_, _, err = store.Get("clusters", "a")
			require.Error(t, err)

			var scanErr error
			for _, err := range store.Scan("clusters") {
				scanErr = err
			}
			require.Error(t, scanErr)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Backend: "leveldb"})
	require.Error(t, err)

	_, err = New(Options{Backend: BackendBolt})
	require.Error(t, err)
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}
