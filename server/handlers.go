package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/acksell/seekr/codec"
	"github.com/acksell/seekr/collection"
	"github.com/acksell/seekr/kvstore"
	"github.com/acksell/seekr/schema/clusters"
	"github.com/acksell/seekr/version"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// APIHandler provides the REST endpoints of the cluster registry.
type APIHandler struct {
	clusters *collection.Collection[clusters.Cluster, *clusters.Cluster]
	logger   *slog.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(registry *collection.Collection[clusters.Cluster, *clusters.Cluster], logger *slog.Logger) *APIHandler {
	return &APIHandler{
		clusters: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/clusters", h.createCluster)
	mux.HandleFunc("GET /api/v1/clusters", h.listClusters)
	mux.HandleFunc("GET /api/v1/clusters/{id}", h.getCluster)
	mux.HandleFunc("PUT /api/v1/clusters/{id}", h.updateCluster)
	mux.HandleFunc("GET /api/v1/version", h.version)
	mux.HandleFunc("GET /healthz", h.healthz)
}

// createCluster stores a new cluster and returns it with its id.
func (h *APIHandler) createCluster(w http.ResponseWriter, r *http.Request) {
	var req clusters.CreateClusterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.clusters.Create(req.Cluster())
	if err != nil {
		h.storeError(w, r, "create cluster", err)
		return
	}

	h.logger.Debug("cluster created", "id", created.ID, "kind", created.Kind)
	writeJSON(w, http.StatusOK, clusters.CreateClusterResponse{Cluster: &created})
}

// listClusters returns clusters in creation order. Records that cannot be
// decoded are skipped.
func (h *APIHandler) listClusters(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)

	resp := clusters.ListClustersResponse{Clusters: []clusters.Cluster{}}
	for c, err := range h.clusters.List() {
		if err != nil {
			var corruption *codec.CorruptionError
			if errors.As(err, &corruption) {
				h.logger.Warn("skipping corrupt cluster record", "id", corruption.ID, "error", err)
				continue
			}
			h.storeError(w, r, "list clusters", err)
			return
		}
		resp.Clusters = append(resp.Clusters, c)
		if limit > 0 && len(resp.Clusters) >= limit {
			break
		}
	}
	resp.Count = int64(len(resp.Clusters))

	writeJSON(w, http.StatusOK, resp)
}

// getCluster returns a single cluster.
func (h *APIHandler) getCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok, err := h.clusters.Get(id)
	if err != nil {
		h.storeError(w, r, "get cluster", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// updateCluster changes the name and/or config of a cluster.
func (h *APIHandler) updateCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req clusters.UpdateClusterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, ok, err := h.clusters.Update(id, func(c *clusters.Cluster) error {
		req.Apply(c)
		return nil
	})
	if err != nil {
		h.storeError(w, r, "update cluster", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, clusters.UpdateClusterResponse{Cluster: &updated})
}

func (h *APIHandler) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (h *APIHandler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// storeError logs a failed store operation and maps it to a status code.
func (h *APIHandler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, kvstore.ErrConflict) {
		writeError(w, http.StatusConflict, op+" failed: concurrent modification, retry the request")
		return
	}
	h.logger.Error(op+" failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, op+" failed: "+err.Error())
}

// Helper functions

// decodeBody parses the JSON request body into v. On failure it writes a
// 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
