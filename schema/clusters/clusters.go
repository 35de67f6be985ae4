package clusters

import (
	"maps"
	"time"

	"github.com/acksell/seekr/collection"
)

// Collection is the name of the collection clusters are stored in.
const Collection = "clusters"

// Cluster describes an externally managed message-broker cluster.
//
// The cbor field numbers are the storage schema. Fields may be appended
// with new numbers; existing numbers must never be reused.
type Cluster struct {
	ID     string            `json:"id" cbor:"1,keyasint"`
	Kind   Kind              `json:"kind" cbor:"2,keyasint"`
	Name   string            `json:"name" cbor:"3,keyasint"`
	Config map[string]string `json:"config" cbor:"4,keyasint"`

	// CreatedAt and ModifiedAt are Unix milliseconds.
	CreatedAt  int64 `json:"created_at" cbor:"5,keyasint"`
	ModifiedAt int64 `json:"modified_at" cbor:"6,keyasint"`
}

// Meta implements collection.Entity.
func (c *Cluster) Meta() collection.Meta {
	return collection.Meta{
		ID:         c.ID,
		CreatedAt:  time.UnixMilli(c.CreatedAt),
		ModifiedAt: time.UnixMilli(c.ModifiedAt),
	}
}

// SetMeta implements collection.Entity. Timestamps are kept with
// millisecond precision.
func (c *Cluster) SetMeta(m collection.Meta) {
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt.UnixMilli()
	c.ModifiedAt = m.ModifiedAt.UnixMilli()
	if c.ModifiedAt < c.CreatedAt {
		c.ModifiedAt = c.CreatedAt
	}
}

// CreateClusterRequest is the body of a create call.
type CreateClusterRequest struct {
	Name   string            `json:"name"`
	Kind   Kind              `json:"kind"`
	Config map[string]string `json:"config"`
}

// Cluster converts the request into a new, not yet stored cluster.
func (r CreateClusterRequest) Cluster() Cluster {
	config := make(map[string]string, len(r.Config))
	maps.Copy(config, r.Config)
	return Cluster{
		Kind:   r.Kind,
		Name:   r.Name,
		Config: config,
	}
}

// CreateClusterResponse is the reply to a create call.
type CreateClusterResponse struct {
	Cluster *Cluster `json:"cluster"`
}

// ListClustersResponse is the reply to a list call.
type ListClustersResponse struct {
	Clusters []Cluster `json:"clusters"`
	Count    int64     `json:"count"`
}

// UpdateClusterRequest is the body of an update call. Absent fields are
// left unchanged; a present config replaces the whole map. The kind of a
// cluster cannot change.
type UpdateClusterRequest struct {
	Name   *string           `json:"name,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

// Apply writes the requested changes into c.
func (r UpdateClusterRequest) Apply(c *Cluster) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Config != nil {
		c.Config = make(map[string]string, len(r.Config))
		maps.Copy(c.Config, r.Config)
	}
}

// UpdateClusterResponse is the reply to an update call.
type UpdateClusterResponse struct {
	Cluster *Cluster `json:"cluster"`
}
