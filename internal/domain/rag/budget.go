package rag

import (
	"fmt"
	"strings"
)

// buildContext selects as many ranked solutions as fit inside the token
// budget and concatenates them wrapped in numbered tags.
//
// Selection is a greedy prefix fill: solutions are taken in rank order, at
// most maxSolutionsForSynthesis of them, and selection STOPS at the first
// one that would push the running total past the budget — later, possibly
// shorter, solutions are never considered. The budget reserves room for the
// query itself plus a fixed overhead for the prompt scaffolding.
//
// Returns the assembled context block and the parallel source list (one
// entry per included solution). An empty context means nothing fit.
func (p *Pipeline) buildContext(solutions []Solution, query string) (string, []Source) {
	selected := solutions
	if len(selected) > maxSolutionsForSynthesis {
		selected = selected[:maxSolutionsForSynthesis]
	}

	var b strings.Builder
	var sources []Source
	queryTokens := p.tokens.Count(query)
	total := 0

	for i, sol := range selected {
		cost := p.tokens.Count(sol.Text)
		if total+cost+queryTokens+promptOverheadTokens > maxContextTokens {
			break
		}
		fmt.Fprintf(&b, "<solution_%d>\n%s\n</solution_%d>\n\n", i+1, sol.Text, i+1)
		sources = append(sources, Source{Number: i + 1, TicketID: sol.TicketID, Score: sol.Score})
		total += cost
	}

	return b.String(), sources
}
