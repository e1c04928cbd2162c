package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/resolvhq/resolv/internal/domain/ticket"
	"github.com/resolvhq/resolv/internal/infra/eventbus"
	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/internal/infra/qdrant"
)

// Indexer feeds resolved escalations back into the retrieval corpus.
// It consumes ticket.resolved events and upserts one point per ticket,
// embedding the user's problem so future similar queries find the
// admin's solution.
type Indexer struct {
	llm        llm.Provider
	store      Store
	collection string
	logger     *log.Logger
}

func NewIndexer(provider llm.Provider, store Store, collection string, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	return &Indexer{llm: provider, store: store, collection: collection, logger: logger}
}

// Start consumes resolved-ticket events until ctx is cancelled.
// Runs in the calling goroutine; launch with: go idx.Start(ctx, bus)
// Indexing failures are logged and dropped, matching the bus's
// fire-and-forget semantics.
func (ix *Indexer) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(ticket.TopicTicketResolved)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			payload, ok := evt.Payload.(ticket.ResolvedEvent)
			if !ok {
				continue
			}
			if err := ix.Index(ctx, payload); err != nil {
				ix.logger.Printf("indexer: %s: %v", payload.TicketID, err)
			}
		}
	}
}

// Index embeds the resolved ticket's problem and upserts it with the
// solution as payload.
func (ix *Indexer) Index(ctx context.Context, evt ticket.ResolvedEvent) error {
	if strings.TrimSpace(evt.Solution) == "" {
		return fmt.Errorf("empty solution")
	}

	resp, err := ix.llm.Embed(ctx, llm.EmbedRequest{Texts: []string{evt.UserQuery}})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return fmt.Errorf("embed: provider returned no vector")
	}

	point := qdrant.Point{
		ID:     PointID(evt.TicketID),
		Vector: resp.Embeddings[0],
		Payload: qdrant.Payload{
			TicketID:       evt.TicketID,
			ProblemText:    evt.UserQuery,
			ResolutionText: evt.Solution,
		},
	}
	if err := ix.store.Upsert(ctx, ix.collection, []qdrant.Point{point}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
