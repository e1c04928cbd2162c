// Package qdrant is a minimal REST client for the Qdrant vector store.
// Only the endpoints the service needs are covered:
//   - POST   /collections/{name}/points/query — nearest-neighbour search
//   - PUT    /collections/{name}/points       — upsert points
//   - GET    /collections/{name}              — collection info (health)
//   - PUT    /collections/{name}              — create collection
//   - DELETE /collections/{name}              — drop collection
//
// Stdlib net/http; authentication via the "api-key" header when configured.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Payload is the stored document attached to each point.
type Payload struct {
	TicketID       string `json:"ticket_id"`
	ProblemText    string `json:"problem_text"`
	ResolutionText string `json:"resolution_text"`
	Language       string `json:"language,omitempty"`
	Category       string `json:"category,omitempty"`
}

// Point is a vector plus payload, identified by a UUID string.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a single search hit. Score is cosine similarity in [0,1];
// results below the requested threshold are filtered by Qdrant itself.
type ScoredPoint struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Client talks to a single Qdrant instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client with a 60s default timeout.
// apiKey may be empty for unauthenticated local instances.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ─── wire types ──────────────────────────────────────────────────────────────

type queryRequest struct {
	Query          []float32 `json:"query"`
	Limit          int       `json:"limit"`
	ScoreThreshold float64   `json:"score_threshold,omitempty"`
	WithPayload    bool      `json:"with_payload"`
}

type queryResponse struct {
	Result struct {
		Points []ScoredPoint `json:"points"`
	} `json:"result"`
	Status string `json:"status"`
}

type upsertRequest struct {
	Points []Point `json:"points"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// ─── operations ──────────────────────────────────────────────────────────────

// Search runs a nearest-neighbour query and returns hits score-descending,
// already filtered to scores >= threshold by the store.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]ScoredPoint, error) {
	body, err := json.Marshal(queryRequest{
		Query:          vector,
		Limit:          limit,
		ScoreThreshold: threshold,
		WithPayload:    true,
	})
	if err != nil {
		return nil, err
	}

	respBody, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/query", body)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	defer respBody.Close()

	var out queryResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&out); decodeErr != nil {
		return nil, fmt.Errorf("qdrant search: decode response: %w", decodeErr)
	}
	return out.Result.Points, nil
}

// Upsert writes points to the collection, waiting for the operation to land.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body, err := json.Marshal(upsertRequest{Points: points})
	if err != nil {
		return err
	}
	respBody, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body)
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	respBody.Close() //nolint:errcheck
	return nil
}

// CreateCollection creates a cosine-distance collection of the given dimension.
func (c *Client) CreateCollection(ctx context.Context, collection string, dim int) error {
	body, err := json.Marshal(createCollectionRequest{
		Vectors: vectorParams{Size: dim, Distance: "Cosine"},
	})
	if err != nil {
		return err
	}
	respBody, err := c.do(ctx, http.MethodPut, "/collections/"+collection, body)
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	respBody.Close() //nolint:errcheck
	return nil
}

// DeleteCollection drops the collection. Deleting a missing collection is an error.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	respBody, err := c.do(ctx, http.MethodDelete, "/collections/"+collection, nil)
	if err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	respBody.Close() //nolint:errcheck
	return nil
}

// HealthCheck fetches collection info — returns nil if the store is reachable
// and the collection exists.
func (c *Client) HealthCheck(ctx context.Context, collection string) error {
	respBody, err := c.do(ctx, http.MethodGet, "/collections/"+collection, nil)
	if err != nil {
		return fmt.Errorf("qdrant healthcheck: %w", err)
	}
	respBody.Close() //nolint:errcheck
	return nil
}

// do sends a request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (io.ReadCloser, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return resp.Body, nil
}
