package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/internal/infra/qdrant"
)

// Job defaults.
const (
	DefaultBatchSize   = 25
	DefaultWorkers     = 4
	DefaultMaxRetries  = 5
	DefaultBackoffBase = 2 * time.Second
)

// JobConfig describes one batch ingestion run, loaded from a YAML file.
// BackoffBase is derived from backoff_seconds; yaml.v3 has no duration type.
type JobConfig struct {
	Input          string `yaml:"input"`
	Collection     string `yaml:"collection"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
	MaxRetries     int    `yaml:"max_retries"`
	BackoffSeconds int    `yaml:"backoff_seconds"`

	BackoffBase time.Duration `yaml:"-"`
}

// LoadJob reads a YAML job config and fills in defaults for omitted fields.
func LoadJob(path string) (*JobConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job config: %w", err)
	}
	var cfg JobConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse job config: %w", err)
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("job config: input is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("job config: collection is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffSeconds > 0 {
		cfg.BackoffBase = time.Duration(cfg.BackoffSeconds) * time.Second
	} else {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &cfg, nil
}

// Store is the vector-store surface the batch job needs.
// Implemented by qdrant.Client.
type Store interface {
	CreateCollection(ctx context.Context, collection string, dim int) error
	DeleteCollection(ctx context.Context, collection string) error
	Upsert(ctx context.Context, collection string, points []qdrant.Point) error
}

// Stats summarises a batch run.
type Stats struct {
	Total         int
	Skipped       int
	Upserted      int
	FailedBatches int
}

// Service runs batch ingestion: recreate the collection, embed records in
// batches through a worker pool, upsert the resulting points.
type Service struct {
	llm    llm.Provider
	store  Store
	logger *log.Logger
}

func NewService(provider llm.Provider, store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{llm: provider, store: store, logger: logger}
}

// Run executes the job. The collection is dropped and recreated with the
// dimension discovered by a probe embedding, so reruns are idempotent.
// Individual batch failures (after retries) are logged and counted, not
// fatal; a non-nil error means the run could not start at all.
func (s *Service) Run(ctx context.Context, cfg *JobConfig, records []Record) (*Stats, error) {
	stats := &Stats{Total: len(records)}

	type item struct {
		rec  Record
		text string
	}
	items := make([]item, 0, len(records))
	for _, rec := range records {
		text, ok := embeddingText(rec)
		if !ok {
			stats.Skipped++
			continue
		}
		items = append(items, item{rec: rec, text: text})
	}
	if len(items) == 0 {
		return stats, fmt.Errorf("no usable records in input")
	}

	dim, err := s.probeDimension(ctx, cfg, items[0].text)
	if err != nil {
		return stats, fmt.Errorf("probe embedding dimension: %w", err)
	}
	s.logger.Printf("ingest: vector dimension %d", dim)

	// Drop-and-recreate keeps reruns from mixing stale points in.
	if err := s.store.DeleteCollection(ctx, cfg.Collection); err != nil {
		s.logger.Printf("ingest: delete collection: %v", err)
	}
	if err := s.store.CreateCollection(ctx, cfg.Collection, dim); err != nil {
		return stats, fmt.Errorf("create collection: %w", err)
	}

	type batch struct {
		records []Record
		texts   []string
	}
	batches := make(chan batch)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				n, err := s.processBatch(ctx, cfg, b.records, b.texts)
				mu.Lock()
				if err != nil {
					stats.FailedBatches++
					s.logger.Printf("ingest: batch failed: %v", err)
				}
				stats.Upserted += n
				mu.Unlock()
			}
		}()
	}

	for start := 0; start < len(items); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		b := batch{
			records: make([]Record, 0, end-start),
			texts:   make([]string, 0, end-start),
		}
		for _, it := range items[start:end] {
			b.records = append(b.records, it.rec)
			b.texts = append(b.texts, it.text)
		}
		select {
		case batches <- b:
		case <-ctx.Done():
			close(batches)
			wg.Wait()
			return stats, ctx.Err()
		}
	}
	close(batches)
	wg.Wait()

	s.logger.Printf("ingest: done, %d/%d upserted, %d skipped, %d failed batches",
		stats.Upserted, stats.Total, stats.Skipped, stats.FailedBatches)
	return stats, nil
}

// probeDimension embeds one text to discover the provider's vector size.
func (s *Service) probeDimension(ctx context.Context, cfg *JobConfig, text string) (int, error) {
	vecs, err := s.embedWithRetry(ctx, cfg, []string{text})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("provider returned an empty probe vector")
	}
	return len(vecs[0]), nil
}

// processBatch embeds one batch and upserts the resulting points, each call
// wrapped in retry. Returns the number of points upserted.
func (s *Service) processBatch(ctx context.Context, cfg *JobConfig, records []Record, texts []string) (int, error) {
	vecs, err := s.embedWithRetry(ctx, cfg, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(records) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d records", len(vecs), len(records))
	}

	points := make([]qdrant.Point, len(records))
	for i, rec := range records {
		points[i] = qdrant.Point{
			ID:     PointID(rec.TicketID),
			Vector: vecs[i],
			Payload: qdrant.Payload{
				TicketID:       rec.TicketID,
				ProblemText:    rec.ProblemText,
				ResolutionText: rec.ResolutionText,
				Language:       rec.Language,
				Category:       rec.Category,
			},
		}
	}

	err = s.withRetry(ctx, cfg, func() error {
		return s.store.Upsert(ctx, cfg.Collection, points)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert batch: %w", err)
	}
	return len(points), nil
}

func (s *Service) embedWithRetry(ctx context.Context, cfg *JobConfig, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := s.withRetry(ctx, cfg, func() error {
		resp, err := s.llm.Embed(ctx, llm.EmbedRequest{Texts: texts})
		if err != nil {
			return err
		}
		vecs = resp.Embeddings
		return nil
	})
	return vecs, err
}

// withRetry runs fn up to cfg.MaxRetries times with exponential backoff
// (base, 2x per attempt).
func (s *Service) withRetry(ctx context.Context, cfg *JobConfig, fn func() error) error {
	var lastErr error
	delay := cfg.BackoffBase
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxRetries, lastErr)
}

// PointID derives the vector-store point ID for a ticket. Deterministic
// (UUIDv5 of the ticket ID) so re-ingesting the same export overwrites
// rather than duplicates; a record without a ticket ID gets a random ID.
func PointID(ticketID string) string {
	if ticketID == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(ticketID)).String()
}
