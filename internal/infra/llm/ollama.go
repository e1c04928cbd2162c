// Package llm — Ollama HTTP adapter for local development.
// Calls the Ollama REST API using stdlib net/http:
//   - POST /api/embed — batch embedding
//   - POST /api/chat  — non-streaming chat completion
//   - GET  /api/tags  — health check (lists available models)
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider implements Provider against a running Ollama instance.
type OllamaProvider struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

// NewOllamaProvider creates an OllamaProvider with a 60s default timeout.
// LLM calls carry no internal retry; the client timeout is the only bound.
func NewOllamaProvider(baseURL, chatModel, embedModel string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    baseURL,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message    Message `json:"message"`
	DoneReason string  `json:"done_reason"`
	Done       bool    `json:"done"`
}

// Embed computes embeddings for the batch via a single POST /api/embed call.
func (p *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: model, Input: req.Texts})
	if err != nil {
		return nil, err
	}
	respBody, err := p.doPost(ctx, "/api/embed", body)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer respBody.Close()

	var out ollamaEmbedResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&out); decodeErr != nil {
		return nil, fmt.Errorf("decode embed response: %w", decodeErr)
	}
	if len(out.Embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(out.Embeddings), len(req.Texts))
	}
	return &EmbedResponse{Embeddings: out.Embeddings}, nil
}

// ChatCompletion performs a non-streaming chat via POST /api/chat.
func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	// Temperature is always transmitted: callers that ask for 0 mean greedy
	// decoding, and an absent key makes Ollama fall back to its 0.8 default.
	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens != 0 {
		opts["num_predict"] = req.MaxTokens
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options:  opts,
	})
	if err != nil {
		return nil, err
	}
	respBody, err := p.doPost(ctx, "/api/chat", body)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer respBody.Close()

	var out ollamaChatResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&out); decodeErr != nil {
		return nil, fmt.Errorf("decode chat response: %w", decodeErr)
	}
	return &ChatResponse{Content: out.Message.Content, StopReason: out.DoneReason}, nil
}

// ModelInfo returns static metadata for this provider/model.
func (p *OllamaProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.chatModel,
		Provider:  "ollama",
		Version:   "v1",
		MaxTokens: 4096,
	}
}

// HealthCheck calls GET /api/tags — returns nil if Ollama is reachable.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama healthcheck: build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama healthcheck: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

// doPost sends a POST request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (p *OllamaProvider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
