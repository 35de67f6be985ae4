// Package clusters defines the cluster schema shared by the API, the
// client and storage: the Cluster record, its Kind enum and the
// request/response payloads of the /api/v1/clusters endpoints.
//
// In JSON, kind is written as its enum name ("kind": "KAFKA"), not as the
// enum number. Kinds this build does not know are written as their number
// in a string ("kind": "42"). On input both the name and the plain number
// ("kind": 1) are accepted, so clients that send numeric kinds keep
// working.
package clusters
