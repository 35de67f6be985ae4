package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/seekr/clock"
	"github.com/acksell/seekr/collection"
	"github.com/acksell/seekr/config"
	"github.com/acksell/seekr/kvstore"
	"github.com/acksell/seekr/schema/clusters"
)

var epoch = time.UnixMilli(1718000000000)

func newTestServer(t *testing.T) (*Server, *clock.FakeClock) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = string(kvstore.BackendMemory)
	cfg.Storage.Path = ""

	fake := clock.Fake(epoch)
	s, err := NewServer(ServerConfig{
		Config:            cfg,
		Banner:            io.Discard,
		CollectionOptions: []collection.Option{collection.WithClock(fake)},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Shutdown(context.Background())
	})
	return s, fake
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func create(t *testing.T, h http.Handler, body string) clusters.Cluster {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/clusters", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[clusters.CreateClusterResponse](t, rec)
	require.NotNil(t, resp.Cluster)
	return *resp.Cluster
}

func TestAPI_EndToEnd(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	created := create(t, h, `{"name":"broker-a","kind":"KAFKA","config":{"retention.ms":"3600000"}}`)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "broker-a", created.Name)
	assert.Equal(t, clusters.KindKafka, created.Kind)
	assert.Equal(t, map[string]string{"retention.ms": "3600000"}, created.Config)
	assert.Equal(t, epoch.UnixMilli(), created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.ModifiedAt)

	rec := do(t, h, http.MethodGet, "/api/v1/clusters/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, created, decode[clusters.Cluster](t, rec))

	rec = do(t, h, http.MethodGet, "/api/v1/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[clusters.ListClustersResponse](t, rec)
	assert.Equal(t, int64(1), list.Count)
	assert.Equal(t, []clusters.Cluster{created}, list.Clusters)
}

func TestAPI_JSONShape(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/clusters", `{"name":"broker-a","kind":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	c := raw["cluster"]
	assert.Equal(t, "KAFKA", c["kind"])
	assert.Contains(t, c, "created_at")
	assert.Contains(t, c, "modified_at")
	assert.Equal(t, map[string]any{}, c["config"])
}

func TestAPI_CreateErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"unknown kind name", `{"name":"x","kind":"ZOOKEEPER"}`},
		{"config not a map", `{"name":"x","config":["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/clusters", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestAPI_GetNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/clusters/0190b5d2-7c1e-7a3b-9c2d-0e1f2a3b4c5d", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "not found")
}

func TestAPI_ListOrderAndLimit(t *testing.T) {
	s, fake := newTestServer(t)
	h := s.Handler()

	var want []string
	for _, name := range []string{"a", "b", "c", "d"} {
		want = append(want, create(t, h, `{"name":"`+name+`","kind":"REDPANDA"}`).Name)
		fake.Advance(time.Millisecond)
	}

	list := decode[clusters.ListClustersResponse](t, do(t, h, http.MethodGet, "/api/v1/clusters", ""))
	var got []string
	for _, c := range list.Clusters {
		got = append(got, c.Name)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int64(4), list.Count)

	list = decode[clusters.ListClustersResponse](t, do(t, h, http.MethodGet, "/api/v1/clusters?limit=2", ""))
	require.Len(t, list.Clusters, 2)
	assert.Equal(t, "a", list.Clusters[0].Name)
	assert.Equal(t, int64(2), list.Count)
}

func TestAPI_ListEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clusters":[],"count":0}`, rec.Body.String())
}

func TestAPI_CorruptRecord(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	good := create(t, h, `{"name":"good","kind":"KAFKA"}`)
	bad := create(t, h, `{"name":"bad","kind":"KAFKA"}`)
	require.NoError(t, s.store.Put(clusters.Collection, bad.ID, []byte("not a record")))

	rec := do(t, h, http.MethodGet, "/api/v1/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[clusters.ListClustersResponse](t, rec)
	assert.Equal(t, []clusters.Cluster{good}, list.Clusters)
	assert.Equal(t, int64(1), list.Count)

	rec = do(t, h, http.MethodGet, "/api/v1/clusters/"+bad.ID, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPI_Update(t *testing.T) {
	s, fake := newTestServer(t)
	h := s.Handler()

	created := create(t, h, `{"name":"broker-a","kind":"KAFKA","config":{"retention.ms":"3600000"}}`)
	fake.Advance(time.Minute)

	t.Run("rename", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/v1/clusters/"+created.ID, `{"name":"broker-b"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := *decode[clusters.UpdateClusterResponse](t, rec).Cluster

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "broker-b", updated.Name)
		assert.Equal(t, created.Config, updated.Config)
		assert.Equal(t, created.Kind, updated.Kind)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, epoch.Add(time.Minute).UnixMilli(), updated.ModifiedAt)
	})

	t.Run("kind is ignored", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/v1/clusters/"+created.ID, `{"kind":"REDPANDA","config":{}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		updated := *decode[clusters.UpdateClusterResponse](t, rec).Cluster
		assert.Equal(t, clusters.KindKafka, updated.Kind)
		assert.Empty(t, updated.Config)
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/v1/clusters/missing", `{"name":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/v1/clusters/"+created.ID, `name=x`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := do(t, h, http.MethodGet, "/api/v1/clusters/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "broker-b", decode[clusters.Cluster](t, rec).Name)
}

func TestAPI_StoreFailure(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	require.NoError(t, s.store.Close())

	rec := do(t, h, http.MethodGet, "/api/v1/clusters", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/clusters", `{"name":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPI_VersionAndHealth(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]string](t, rec)
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestAPI_CORS(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodOptions, "/api/v1/clusters", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = string(kvstore.BackendMemory)
	cfg.ShutdownTimeout = time.Second

	var banner bytes.Buffer
	s, err := NewServer(ServerConfig{Config: cfg, Banner: &banner})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/api/v1/clusters", "application/json", strings.NewReader(`{"name":"broker-a","kind":"KAFKA"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Contains(t, banner.String(), url)
	assert.Contains(t, banner.String(), "In-memory")

	_, _, err = s.store.Get(clusters.Collection, "anything")
	require.ErrorIs(t, err, kvstore.ErrClosed)
}
