// Package llm — OpenAI / Azure OpenAI adapter.
// Uses the sashabaranov/go-openai client. When an API version is configured
// the adapter speaks the Azure dialect (deployment names instead of model
// names); otherwise it talks to the public OpenAI API or any compatible
// endpoint via BaseURL.
package llm

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig carries the credentials and deployment names for the adapter.
type OpenAIConfig struct {
	APIKey     string
	Endpoint   string // Azure resource endpoint or custom BaseURL; empty = api.openai.com
	APIVersion string // non-empty switches the client into Azure mode
	ChatModel  string // chat deployment/model name
	EmbedModel string // embedding deployment/model name
}

// OpenAIProvider implements Provider against OpenAI or Azure OpenAI.
type OpenAIProvider struct {
	client     *openai.Client
	chatModel  string
	embedModel string
	provider   string
}

// NewOpenAIProvider builds the client from config. Azure mode is selected
// when both Endpoint and APIVersion are set.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	var cc openai.ClientConfig
	provider := "openai"
	if cfg.Endpoint != "" && cfg.APIVersion != "" {
		cc = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		cc.APIVersion = cfg.APIVersion
		provider = "azure-openai"
	} else {
		cc = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			cc.BaseURL = cfg.Endpoint
		}
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cc),
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		provider:   provider,
	}
}

// ChatCompletion performs a non-streaming chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	// go-openai marshals Temperature with omitempty, so a zero would vanish
	// from the wire and the API would apply its default of 1.0. The library's
	// documented way to request greedy decoding is the smallest non-zero float.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: empty choices")
	}
	return &ChatResponse{
		Content:    resp.Choices[0].Message.Content,
		StopReason: string(resp.Choices[0].FinishReason),
		Tokens:     resp.Usage.TotalTokens,
	}, nil
}

// Embed computes embeddings for the whole batch in a single call.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: req.Texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return &EmbedResponse{Embeddings: embeddings, Tokens: resp.Usage.TotalTokens}, nil
}

// ModelInfo returns static metadata for this provider/model.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.chatModel,
		Provider:  p.provider,
		Version:   "v1",
		MaxTokens: 8192,
	}
}

// HealthCheck lists models — returns nil if the API is reachable and the key works.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai healthcheck: %w", err)
	}
	return nil
}
