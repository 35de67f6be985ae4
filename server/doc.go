// Package server implements the seekr HTTP API on top of the cluster
// collection.
//
// Routes:
//
//	POST /api/v1/clusters        create a cluster
//	GET  /api/v1/clusters        list clusters in creation order (?limit=n)
//	GET  /api/v1/clusters/{id}   get one cluster
//	PUT  /api/v1/clusters/{id}   change name and/or config
//	GET  /api/v1/version         build information
//	GET  /healthz                liveness
//
// Errors are returned as {"error": "..."}. Missing clusters are 404, bad
// request bodies 400, lost update races 409, store failures 500 and
// requests exceeding the configured timeout 503.
//
// # Usage
//
// Install and start the server:
//
//	go install github.com/acksell/seekr/cmd/seekr-server@latest
//	seekr-server --db ./seekr.db --port 5000
package server
