// Package collection provides typed access to one named collection of a
// kvstore.Store.
//
// A Collection translates entities through the codec package and the
// kvstore key layout:
//
//	registry := collection.New[clusters.Cluster](store, "clusters")
//	created, err := registry.Create(clusters.Cluster{Name: "broker-a"})
//	got, ok, err := registry.Get(created.ID)
//	for c, err := range registry.List() { ... }
//
// Entities get a UUIDv7 id on creation, so listing a collection returns
// entities in creation order without any secondary index.
package collection
