// Package client is a typed Go client for the seekr HTTP API.
//
//	c := client.New("http://localhost:5000")
//	created, err := c.CreateCluster(ctx, clusters.CreateClusterRequest{
//		Name: "broker-a",
//		Kind: clusters.KindKafka,
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/acksell/seekr/schema/clusters"
	"github.com/acksell/seekr/version"
)

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("seekr: http %d", e.StatusCode)
	}
	return fmt.Sprintf("seekr: http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one seekr server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCluster stores a new cluster and returns it with its assigned id.
func (c *Client) CreateCluster(ctx context.Context, req clusters.CreateClusterRequest) (clusters.Cluster, error) {
	var resp clusters.CreateClusterResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/clusters", req, &resp); err != nil {
		return clusters.Cluster{}, err
	}
	if resp.Cluster == nil {
		return clusters.Cluster{}, errors.New("seekr: create response has no cluster")
	}
	return *resp.Cluster, nil
}

// ListClusters returns clusters in creation order. A limit of zero or less
// returns all of them.
func (c *Client) ListClusters(ctx context.Context, limit int) ([]clusters.Cluster, error) {
	path := "/api/v1/clusters"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp clusters.ListClustersResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Clusters, nil
}

// GetCluster returns the cluster with the given id. A missing cluster is
// reported as ok == false with a nil error.
func (c *Client) GetCluster(ctx context.Context, id string) (cluster clusters.Cluster, ok bool, err error) {
	err = c.do(ctx, http.MethodGet, "/api/v1/clusters/"+url.PathEscape(id), nil, &cluster)
	if IsNotFound(err) {
		return clusters.Cluster{}, false, nil
	}
	if err != nil {
		return clusters.Cluster{}, false, err
	}
	return cluster, true, nil
}

// UpdateCluster applies req to the cluster with the given id. A missing
// cluster is reported as ok == false with a nil error.
func (c *Client) UpdateCluster(ctx context.Context, id string, req clusters.UpdateClusterRequest) (cluster clusters.Cluster, ok bool, err error) {
	var resp clusters.UpdateClusterResponse
	err = c.do(ctx, http.MethodPut, "/api/v1/clusters/"+url.PathEscape(id), req, &resp)
	if IsNotFound(err) {
		return clusters.Cluster{}, false, nil
	}
	if err != nil {
		return clusters.Cluster{}, false, err
	}
	if resp.Cluster == nil {
		return clusters.Cluster{}, false, errors.New("seekr: update response has no cluster")
	}
	return *resp.Cluster, true, nil
}

// Version returns the server's build information.
func (c *Client) Version(ctx context.Context) (version.BuildInfo, error) {
	var info version.BuildInfo
	err := c.do(ctx, http.MethodGet, "/api/v1/version", nil, &info)
	return info, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
