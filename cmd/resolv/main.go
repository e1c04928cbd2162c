// resolv - intelligent ticket resolution API.
// Entry point: wires config, storage, LLM provider, vector store and the
// retrieval pipeline, then serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/resolvhq/resolv/internal/api"
	"github.com/resolvhq/resolv/internal/domain/ingest"
	"github.com/resolvhq/resolv/internal/domain/rag"
	"github.com/resolvhq/resolv/internal/domain/ticket"
	"github.com/resolvhq/resolv/internal/infra/config"
	"github.com/resolvhq/resolv/internal/infra/eventbus"
	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/internal/infra/qdrant"
	"github.com/resolvhq/resolv/internal/infra/sqlite"
	"github.com/resolvhq/resolv/internal/server"
	"github.com/resolvhq/resolv/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("resolv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(); err != nil {
		fmt.Fprintf(out, "resolv: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve() error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg := config.Load()

	db, err := sqlite.NewDB(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	store := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey)

	bus := eventbus.New()
	ticketSvc := ticket.NewServiceWithBus(db, bus)
	if err := ticketSvc.SyncCounters(context.Background()); err != nil {
		return fmt.Errorf("sync counters: %w", err)
	}

	pipeline := rag.NewPipeline(provider, store, cfg.QdrantCollection, rag.NewTokenizer(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexer := ingest.NewIndexer(provider, store, cfg.QdrantCollection, logger)
	go indexer.Start(ctx, bus)

	deps := api.Deps{
		Pipeline: pipeline,
		Tickets:  ticketSvc,
		Checks: map[string]api.HealthChecker{
			"qdrant": func(ctx context.Context) error {
				return store.HealthCheck(ctx, cfg.QdrantCollection)
			},
			"llm": provider.HealthCheck,
		},
		AllowedOrigins: strings.Split(cfg.AllowedOrigins, ","),
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Port = cfg.Port
	srv := server.NewServer(db, deps, srvCfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newProvider registers every constructible provider and routes to the
// configured one. The OpenAI adapter is only registered when a key is set,
// so a missing key surfaces as "provider not registered".
func newProvider(cfg config.Config) (llm.Provider, error) {
	providers := map[string]llm.Provider{
		"ollama": llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.OllamaEmbed),
	}
	if cfg.OpenAIKey != "" {
		providers["openai"] = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			Endpoint:   cfg.OpenAIEndpoint,
			APIVersion: cfg.OpenAIVersion,
			ChatModel:  cfg.ChatDeployment,
			EmbedModel: cfg.EmbedDeployment,
		})
	}
	return llm.NewRouter(providers, cfg.LLMProvider).Route(context.Background())
}

func printHelp(out io.Writer) {
	helpText := `resolv - intelligent ticket resolution API

Usage:
  resolv [options]

Options:
  --version    Show version information
  --help       Show this help message

Configuration is read from environment variables (PORT, SQLITE_PATH,
LLM_PROVIDER, OPENAI_API_KEY, OPENAI_ENDPOINT, QDRANT_URL,
QDRANT_COLLECTION, ...).

Examples:
  resolv --version
  PORT=8000 QDRANT_URL=http://localhost:6333 resolv`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
