// Package ticket is the escalated-ticket store. Queries that the answer
// pipeline could not resolve to the user's satisfaction are escalated here
// for a human admin; resolving one publishes an event so the resolution can
// be indexed back into the retrieval corpus.
package ticket

import (
	"time"

	"github.com/resolvhq/resolv/internal/infra/llm"
)

// Ticket statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Comment types.
const (
	CommentTypeComment    = "comment"
	CommentTypeResolution = "resolution"
)

// TopicTicketResolved is published on the event bus when a ticket is
// resolved with an admin solution.
const TopicTicketResolved = "ticket.resolved"

// ResolvedEvent is the payload for TopicTicketResolved. The indexer embeds
// UserQuery+Solution and upserts them into the vector store.
type ResolvedEvent struct {
	TicketID  string
	UserQuery string
	Solution  string
}

type Ticket struct {
	ID                  string        `json:"ticket_id"`
	UserQuery           string        `json:"user_query"`
	AIAnswer            string        `json:"ai_answer"`
	UserFeedback        string        `json:"user_feedback"`
	Status              string        `json:"status"`
	SubmittedAt         time.Time     `json:"submitted_at"`
	ResolvedAt          *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy          *string       `json:"resolved_by,omitempty"`
	AdminSolution       *string       `json:"admin_solution,omitempty"`
	ConversationHistory []llm.Message `json:"conversation_history,omitempty"`
	Comments            []*Comment    `json:"comments,omitempty"`
}

type Comment struct {
	ID         string    `json:"comment_id"`
	TicketID   string    `json:"ticket_id"`
	Author     string    `json:"author"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
}

type CreateInput struct {
	UserQuery           string
	AIAnswer            string
	UserFeedback        string
	ConversationHistory []llm.Message
}

type AddCommentInput struct {
	TicketID     string
	Author       string
	AuthorName   string
	Content      string
	IsResolution bool
}

type ResolveInput struct {
	TicketID   string
	Solution   string
	ResolvedBy string
}

// Stats is the admin analytics snapshot.
type Stats struct {
	TotalTickets       int          `json:"total_tickets"`
	PendingTickets     int          `json:"pending_tickets"`
	ResolvedTickets    int          `json:"resolved_tickets"`
	ResolutionRate     float64      `json:"resolution_rate"`
	AvgResolutionHours float64      `json:"avg_resolution_hours"`
	RecentTickets      int          `json:"recent_tickets"`
	DailyCounts        []DailyCount `json:"daily_counts"`
}

// DailyCount is one day of the 30-day submission series.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}
