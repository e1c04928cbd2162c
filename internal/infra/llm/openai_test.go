// Unit tests for OpenAIProvider.
// Points the go-openai client at an httptest server via the Endpoint override —
// no real API key needed for the wire-level assertions.
package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const openAIChatStubResponse = `{
	"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
	"usage": {"total_tokens": 3}
}`

// newChatCaptureServer returns a server that stubs /chat/completions and
// records the decoded request body into captured.
func newChatCaptureServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, openAIChatStubResponse) //nolint:errcheck
	}))
}

func TestOpenAIProvider_ChatCompletion_ZeroTemperature_OnWire(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := newChatCaptureServer(t, &captured)
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:    "test-key",
		Endpoint:  srv.URL,
		ChatModel: "gpt-4o-mini",
	})
	_, err := p.ChatCompletion(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "user", Content: "what about the other one?"}},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}

	// The client marshals temperature with omitempty, so an exact 0 would be
	// dropped and the API default (1.0) applied. Greedy decoding goes out as
	// the smallest positive float instead — the key must be present and the
	// value effectively zero.
	raw, ok := captured["temperature"]
	if !ok {
		t.Fatalf("temperature missing from request body: %v", captured)
	}
	temp, ok := raw.(float64)
	if !ok {
		t.Fatalf("temperature is not a number: %T", raw)
	}
	if temp <= 0 || temp > 1e-6 {
		t.Errorf("expected effectively-zero temperature on the wire, got %v", temp)
	}
}

func TestOpenAIProvider_ChatCompletion_NonzeroTemperature_Preserved(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := newChatCaptureServer(t, &captured)
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:    "test-key",
		Endpoint:  srv.URL,
		ChatModel: "gpt-4o-mini",
	})
	_, err := p.ChatCompletion(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "user", Content: "vpn drops every hour"}},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}

	temp, ok := captured["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from request body: %v", captured)
	}
	if temp < 0.29 || temp > 0.31 {
		t.Errorf("expected temperature 0.3 on the wire, got %v", temp)
	}
	if got := captured["max_tokens"]; got != float64(800) {
		t.Errorf("expected max_tokens 800 on the wire, got %v", got)
	}
}

func TestNewOpenAIProvider_ModeSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          OpenAIConfig
		wantProvider string
	}{
		{
			name:         "azure when endpoint and api version set",
			cfg:          OpenAIConfig{APIKey: "k", Endpoint: "https://example.openai.azure.com", APIVersion: "2024-02-01", ChatModel: "gpt-4o-mini"},
			wantProvider: "azure-openai",
		},
		{
			name:         "openai when api version absent",
			cfg:          OpenAIConfig{APIKey: "k", Endpoint: "https://example.test/v1", ChatModel: "gpt-4o-mini"},
			wantProvider: "openai",
		},
		{
			name:         "openai with defaults",
			cfg:          OpenAIConfig{APIKey: "k", ChatModel: "gpt-4o-mini"},
			wantProvider: "openai",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := NewOpenAIProvider(tc.cfg)
			if got := p.ModelInfo().Provider; got != tc.wantProvider {
				t.Errorf("expected provider %q, got %q", tc.wantProvider, got)
			}
		})
	}
}
