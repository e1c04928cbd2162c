// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import "os"

// Config holds runtime configuration for the resolv service.
type Config struct {
	// HTTP
	Port           string // PORT — default: "8000"
	AllowedOrigins string // ALLOWED_ORIGINS — comma-separated, default: "*"

	// Storage
	SQLitePath string // SQLITE_PATH — default: "tickets.db"

	// LLM
	LLMProvider     string // LLM_PROVIDER — "openai" (default) or "ollama"
	OpenAIKey       string // OPENAI_API_KEY
	OpenAIEndpoint  string // OPENAI_ENDPOINT — Azure resource endpoint or custom BaseURL
	OpenAIVersion   string // OPENAI_API_VERSION — non-empty switches to Azure mode
	ChatDeployment  string // OPENAI_CHAT_DEPLOYMENT — default: "gpt-4o-mini"
	EmbedDeployment string // OPENAI_EMBEDDING_DEPLOYMENT — default: "text-embedding-3-small"
	OllamaBaseURL   string // OLLAMA_BASE_URL — default: "http://localhost:11434"
	OllamaChatModel string // OLLAMA_CHAT_MODEL — default: "llama3.2:3b"
	OllamaEmbed     string // OLLAMA_EMBED_MODEL — default: "nomic-embed-text"

	// Vector store
	QdrantURL        string // QDRANT_URL — default: "http://localhost:6333"
	QdrantAPIKey     string // QDRANT_API_KEY
	QdrantCollection string // QDRANT_COLLECTION — default: "ticket_data_rag"
}

const (
	envKeyPort            = "PORT"
	envKeyAllowedOrigins  = "ALLOWED_ORIGINS"
	envKeySQLitePath      = "SQLITE_PATH"
	envKeyLLMProvider     = "LLM_PROVIDER"
	envKeyOpenAIKey       = "OPENAI_API_KEY"
	envKeyOpenAIEndpoint  = "OPENAI_ENDPOINT"
	envKeyOpenAIVersion   = "OPENAI_API_VERSION"
	envKeyChatDeployment  = "OPENAI_CHAT_DEPLOYMENT"
	envKeyEmbedDeployment = "OPENAI_EMBEDDING_DEPLOYMENT"
	envKeyOllamaBaseURL   = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel = "OLLAMA_CHAT_MODEL"
	envKeyOllamaEmbed     = "OLLAMA_EMBED_MODEL"
	envKeyQdrantURL       = "QDRANT_URL"
	envKeyQdrantAPIKey    = "QDRANT_API_KEY"
	envKeyQdrantColl      = "QDRANT_COLLECTION"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		Port:             envOr(envKeyPort, "8000"),
		AllowedOrigins:   envOr(envKeyAllowedOrigins, "*"),
		SQLitePath:       envOr(envKeySQLitePath, "tickets.db"),
		LLMProvider:      envOr(envKeyLLMProvider, "openai"),
		OpenAIKey:        os.Getenv(envKeyOpenAIKey),
		OpenAIEndpoint:   os.Getenv(envKeyOpenAIEndpoint),
		OpenAIVersion:    os.Getenv(envKeyOpenAIVersion),
		ChatDeployment:   envOr(envKeyChatDeployment, "gpt-4o-mini"),
		EmbedDeployment:  envOr(envKeyEmbedDeployment, "text-embedding-3-small"),
		OllamaBaseURL:    envOr(envKeyOllamaBaseURL, "http://localhost:11434"),
		OllamaChatModel:  envOr(envKeyOllamaChatModel, "llama3.2:3b"),
		OllamaEmbed:      envOr(envKeyOllamaEmbed, "nomic-embed-text"),
		QdrantURL:        envOr(envKeyQdrantURL, "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv(envKeyQdrantAPIKey),
		QdrantCollection: envOr(envKeyQdrantColl, "ticket_data_rag"),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
