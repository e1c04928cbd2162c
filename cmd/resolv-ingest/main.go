// resolv-ingest - batch loader for the retrieval corpus.
// Reads a YAML job config, parses the ticket CSV export, embeds the records
// and upserts them into the vector store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/resolvhq/resolv/internal/domain/ingest"
	"github.com/resolvhq/resolv/internal/infra/config"
	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/internal/infra/qdrant"
	"github.com/resolvhq/resolv/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("resolv-ingest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	jobPath := fs.String("job", "", "Path to the YAML job config")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *jobPath == "" {
		fmt.Fprintln(out, "usage: resolv-ingest -job <job.yaml>") //nolint:errcheck
		return 2
	}

	if err := runJob(*jobPath); err != nil {
		fmt.Fprintf(out, "resolv-ingest: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func runJob(jobPath string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	job, err := ingest.LoadJob(jobPath)
	if err != nil {
		return err
	}

	f, err := os.Open(job.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close() //nolint:errcheck

	records, err := ingest.ReadRecords(f)
	if err != nil {
		return err
	}
	logger.Printf("ingest: %d records from %s", len(records), job.Input)

	cfg := config.Load()
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	store := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := ingest.NewService(provider, store, logger)
	stats, err := svc.Run(ctx, job, records)
	if err != nil {
		return err
	}
	if stats.FailedBatches > 0 {
		return fmt.Errorf("%d batches failed", stats.FailedBatches)
	}
	return nil
}

// newProvider registers every constructible provider and routes to the
// configured one, mirroring the server binary.
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
