package rag

import (
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/resolvhq/resolv/internal/infra/qdrant"
)

// Solution is a deduplicated candidate resolution, ready for budgeting.
type Solution struct {
	Text     string
	TicketID string
	Score    float64
}

// dedupeAndRank collapses near-duplicate candidate texts and orders the
// survivors by score descending.
//
// Each candidate's text is resolution_text when usable, else problem_text;
// HTML entities are unescaped and the text trimmed. Candidates shorter than
// minSolutionTextLength characters are dropped. Dedup key is the lowercased,
// whitespace-collapsed text; only the first occurrence per key survives —
// the highest-scoring one, since the store returns hits score-descending.
// The output is re-sorted by score as a guard against upstream ordering
// violations.
func dedupeAndRank(hits []qdrant.ScoredPoint) []Solution {
	seen := make(map[string]bool, len(hits))
	out := make([]Solution, 0, len(hits))

	for _, h := range hits {
		text := h.Payload.ResolutionText
		if !isUsableText(text) {
			text = h.Payload.ProblemText
		}
		text = strings.TrimSpace(html.UnescapeString(text))
		if utf8.RuneCountInString(text) < minSolutionTextLength {
			continue
		}

		key := normalizeText(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		ticketID := h.Payload.TicketID
		if ticketID == "" {
			ticketID = "N/A"
		}
		out = append(out, Solution{Text: text, TicketID: ticketID, Score: h.Score})
	}

	// Stable so equal scores keep first-seen order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// normalizeText lowercases and collapses all whitespace runs to single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// isUsableText reports whether s holds real content rather than a null-ish
// placeholder left over from the source export.
func isUsableText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none":
		return false
	}
	return true
}
