// Package rag implements the retrieval-and-synthesis pipeline that answers
// support queries from historical ticket resolutions.
//
// Flow: follow-up detection → (optional) query rewriting → vector retrieval
// → dedup/ranking → token-budgeted context assembly → answer synthesis.
// Every stage that calls an external service converts its failure into a
// fixed user-facing answer; no error crosses the pipeline boundary. The
// pipeline holds no per-call state and is safe for concurrent use.
package rag

import (
	"context"
	"log"
	"strings"

	"github.com/resolvhq/resolv/internal/infra/llm"
	"github.com/resolvhq/resolv/internal/infra/qdrant"
)

const (
	minQueryWords            = 3
	similarityThreshold      = 0.70
	maxContextTokens         = 4000
	maxSolutionsForSynthesis = 5
	maxSolutionsToDisplay    = 3
	minSolutionTextLength    = 20
	promptOverheadTokens     = 500
	followUpHistoryTurns     = 5
	synthesisHistoryTurns    = 6

	// Multi-turn retrieval widening: when the session has more than one
	// prior user turn, the embedding input becomes the recent user turns.
	searchContextUserTurns = 3
	searchContextMaxChars  = 1000
)

// Fixed user-facing answers for each terminal pipeline outcome.
const (
	msgEmptyQuery      = "Please provide a query to search for solutions."
	msgNotInitialized  = "System not fully initialized. Please check environment variables."
	msgQueryTooShort   = "Your query is too short. Please provide more details for accurate suggestions."
	msgEmbeddingFailed = "Could not generate embeddings for the query. Please try again."
	msgRetrievalFailed = "An error occurred while searching for solutions. Please try again."
	msgNoMatches       = "I don't have any relevant solutions for this query. Please try a different query or raise a new ticket."
	msgContextUnusable = "I found some potential matches, but they were not suitable. Please try a different query."
	msgSynthesisFailed = "An error occurred while generating the answer. Please try again."
)

const systemPrompt = "You are an expert support assistant. " +
	"Refine the provided solution(s) into a clear, professional response. " +
	"Explain what should be done in simple terms. " +
	"Do not invent information or add external knowledge. " +
	"If multiple solutions are given, present them as separate numbered options. " +
	"Do not include any signature, contact information, or closing formalities. " +
	"Provide only the technical solution and helpful guidance. " +
	"When responding to follow-up questions, reference and build upon the conversation context."

// Searcher abstracts the vector store query the pipeline needs.
// Implemented by qdrant.Client; stubbed in tests.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]qdrant.ScoredPoint, error)
}

// Source attributes one included solution to its originating ticket.
type Source struct {
	Number   int     `json:"number"`
	TicketID string  `json:"ticket_id"`
	Score    float64 `json:"score"`
}

// Result is the terminal outcome of a pipeline run.
type Result struct {
	Answer         string
	Sources        []Source
	RewrittenQuery string // non-empty only when a follow-up was rewritten
}

// Pipeline sequences the retrieval-and-synthesis stages. All collaborators
// are injected once at construction and treated as immutable afterwards.
type Pipeline struct {
	llm        llm.Provider
	store      Searcher
	collection string
	tokens     *Tokenizer
	logger     *log.Logger
}

// NewPipeline wires the pipeline with its service clients.
// A nil logger falls back to log.Default().
func NewPipeline(provider llm.Provider, store Searcher, collection string, tokens *Tokenizer, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		llm:        provider,
		store:      store,
		collection: collection,
		tokens:     tokens,
		logger:     logger,
	}
}

// Run answers a query against the historical ticket base.
//
// The original query is preserved for response metadata even when a
// follow-up rewrite replaces it for retrieval and synthesis. Every early
// exit returns a fixed answer string with zero sources.
func (p *Pipeline) Run(ctx context.Context, query string, history []llm.Message) Result {
	if strings.TrimSpace(query) == "" {
		return Result{Answer: msgEmptyQuery}
	}
	if p.llm == nil || p.store == nil {
		return Result{Answer: msgNotInitialized}
	}

	effective := query
	rewritten := ""
	if p.isFollowUp(ctx, query, history) {
		if r := p.rewriteFollowUp(ctx, query, history); r != query {
			effective = r
			rewritten = r
			p.logger.Printf("follow-up rewritten: %s", r)
		}
	}

	if len(strings.Fields(effective)) < minQueryWords {
		return Result{Answer: msgQueryTooShort, RewrittenQuery: rewritten}
	}

	vector := p.embed(ctx, searchQueryFor(effective, history))
	if len(vector) == 0 {
		return Result{Answer: msgEmbeddingFailed, RewrittenQuery: rewritten}
	}

	hits, err := p.store.Search(ctx, p.collection, vector, maxSolutionsForSynthesis*3, similarityThreshold)
	if err != nil {
		p.logger.Printf("vector store query error: %v", err)
		return Result{Answer: msgRetrievalFailed, RewrittenQuery: rewritten}
	}

	solutions := dedupeAndRank(hits)
	if len(solutions) == 0 {
		return Result{Answer: msgNoMatches, RewrittenQuery: rewritten}
	}

	contextBlock, sources := p.buildContext(solutions, effective)
	if contextBlock == "" {
		return Result{Answer: msgContextUnusable, RewrittenQuery: rewritten}
	}

	answer, err := p.synthesize(ctx, effective, contextBlock, history)
	if err != nil {
		p.logger.Printf("answer synthesis error: %v", err)
		return Result{Answer: msgSynthesisFailed, RewrittenQuery: rewritten}
	}

	display := sources
	if len(display) > maxSolutionsToDisplay {
		display = display[:maxSolutionsToDisplay]
	}
	return Result{Answer: answer, Sources: display, RewrittenQuery: rewritten}
}

// embed turns text into a query vector. Any failure — including an empty
// input or an empty result — yields nil, which callers treat as "embedding
// unavailable" and surface as a terminal answer.
func (p *Pipeline) embed(ctx context.Context, text string) []float32 {
	if text == "" {
		return nil
	}
	resp, err := p.llm.Embed(ctx, llm.EmbedRequest{Texts: []string{text}})
	if err != nil {
		p.logger.Printf("embedding error: %v", err)
		return nil
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		p.logger.Printf("embedding error: provider returned no vector")
		return nil
	}
	return resp.Embeddings[0]
}

// searchQueryFor picks the text that gets embedded for retrieval.
// With more than one prior user turn in the session, the last few user
// turns (capped in length) replace the query — recent turns capture intent
// drift better than a short follow-up fragment. The query itself still
// drives the length guard and the final prompt.
func searchQueryFor(query string, history []llm.Message) string {
	if len(history) == 0 {
		return query
	}

	var userTurns []string
	for _, m := range history {
		if m.Role == "user" {
			userTurns = append(userTurns, m.Content)
		}
	}
	if len(userTurns) <= 1 {
		return query
	}
	if len(userTurns) > searchContextUserTurns {
		userTurns = userTurns[len(userTurns)-searchContextUserTurns:]
	}

	// The cap counts characters, not bytes — a byte slice could split a
	// multi-byte rune mid-sequence.
	joined := strings.Join(userTurns, " ")
	if len(joined) > searchContextMaxChars {
		if runes := []rune(joined); len(runes) > searchContextMaxChars {
			joined = string(runes[:searchContextMaxChars])
		}
	}
	if strings.TrimSpace(joined) == "" {
		return query
	}
	return joined
}

// synthesize builds the grounded prompt and asks the chat model for the
// final answer: system instructions, the recent conversation verbatim, then
// the query plus the budgeted context block.
func (p *Pipeline) synthesize(ctx context.Context, query, contextBlock string, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, synthesisHistoryTurns+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})

	recent := history
	if len(recent) > synthesisHistoryTurns {
		recent = recent[len(recent)-synthesisHistoryTurns:]
	}
	messages = append(messages, recent...)

	userPrompt := "User Query: " + query +
		"\n\nAvailable Solutions:\n" + contextBlock +
		"\n\nPlease provide a helpful response."
	messages = append(messages, llm.Message{Role: "user", Content: userPrompt})

	resp, err := p.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
