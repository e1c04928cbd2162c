package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/resolvhq/resolv/internal/infra/llm"
)

const followUpPromptTemplate = `Determine if QUESTION depends on conversation context.
Follow-up indicators: pronouns (it, that, they), references (earlier, same problem)

Conversation:
%s

Question: "%s"

Reply ONLY: YES or NO`

const rewritePromptTemplate = `Rewrite the follow-up question as standalone by adding context.
Rules: Preserve meaning, be concise, output ONLY the rewritten question.

Conversation:
%s

Follow-up: "%s"

Standalone Question:`

// isFollowUp decides whether the query depends on prior conversation turns.
// An empty history is never a follow-up. Any model failure is logged and
// treated as "not a follow-up" — the query is then handled as self-contained.
func (p *Pipeline) isFollowUp(ctx context.Context, query string, history []llm.Message) bool {
	if len(history) == 0 {
		return false
	}

	prompt := fmt.Sprintf(followUpPromptTemplate, formatHistory(history, followUpHistoryTurns), query)
	resp, err := p.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		p.logger.Printf("follow-up detection error: %v", err)
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(resp.Content)), "yes")
}

// rewriteFollowUp rewrites a follow-up query into a standalone one using the
// conversation context. Output shorter than three words is treated as
// unreliable and the original query is kept, as it is on any model failure.
func (p *Pipeline) rewriteFollowUp(ctx context.Context, query string, history []llm.Message) string {
	prompt := fmt.Sprintf(rewritePromptTemplate, formatHistory(history, followUpHistoryTurns), query)
	resp, err := p.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   150,
	})
	if err != nil {
		p.logger.Printf("follow-up rewrite error: %v", err)
		return query
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" || len(strings.Fields(rewritten)) < 3 {
		return query
	}
	return rewritten
}

// formatHistory renders the last maxTurns turns as "Role: content" lines.
func formatHistory(history []llm.Message, maxTurns int) string {
	if len(history) == 0 {
		return "No prior conversation."
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = capitalize(m.Role) + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
