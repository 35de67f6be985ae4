// Package kvstore maps named collections of entities onto one shared,
// ordered key-value store.
//
// Keys are derived from (collection, id) by EncodeKey. All keys of a
// collection share CollectionPrefix(collection) and sort by id, so a
// collection can be listed with a single prefix scan and several
// collections can live in the same store without interleaving.
//
// Three engines are available:
//
//   - BackendBadger: BadgerDB, on disk or in memory (the default)
//   - BackendBolt: a single bbolt file
//   - BackendMemory: an in-process btree, for tests
//
// Every operation is atomic for the one key it touches. There are no
// cross-key transactions. Values are opaque bytes; encoding them is the
// caller's concern.
package kvstore
