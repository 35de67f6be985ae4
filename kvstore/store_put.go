package kvstore

// Put stores value under (collection, id), replacing any existing value.
// Writing the same bytes twice is idempotent.
func (s *Store) Put(collection, id string, value []byte) error {
	key := EncodeKey(collection, id)
	return wrapIO("put", key, s.engine.put(key, value))
}
