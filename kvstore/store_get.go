package kvstore

// Get retrieves the value stored under (collection, id).
//
// A missing key is not an error: Get returns ok == false and a nil error.
// The returned slice is owned by the caller.
func (s *Store) Get(collection, id string) (value []byte, ok bool, err error) {
	key := EncodeKey(collection, id)
	value, ok, err = s.engine.get(key)
	if err != nil {
		return nil, false, wrapIO("get", key, err)
	}
	return value, ok, nil
}
