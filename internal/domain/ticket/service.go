package ticket

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resolvhq/resolv/internal/infra/eventbus"
	"github.com/resolvhq/resolv/internal/infra/llm"
)

// Service persists escalated tickets and their comments. Human-readable IDs
// ("ESC-%06d", "COMMENT-%06d") come from the counters table so they survive
// restarts and stay gap-free under concurrent escalations.
type Service struct {
	db  *sql.DB
	bus eventbus.EventBus
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func NewServiceWithBus(db *sql.DB, bus eventbus.EventBus) *Service {
	return &Service{db: db, bus: bus}
}

// NextTicketID allocates the next escalation ID, e.g. "ESC-001001".
func (s *Service) NextTicketID(ctx context.Context) (string, error) {
	n, err := s.nextCounter(ctx, "ticket")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ESC-%06d", n), nil
}

// NextCommentID allocates the next comment ID, e.g. "COMMENT-001001".
func (s *Service) NextCommentID(ctx context.Context) (string, error) {
	n, err := s.nextCounter(ctx, "comment")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COMMENT-%06d", n), nil
}

// nextCounter increments and reads a named counter in one transaction.
func (s *Service) nextCounter(ctx context.Context, name string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", name, err)
	}
	var value int64
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = ?`, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("read %s counter: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return value, nil
}

// SyncCounters raises each counter to the highest numeric suffix already
// present in its table. Run at startup so a restored database never reissues
// an existing ID.
func (s *Service) SyncCounters(ctx context.Context) error {
	type counterSync struct {
		counter string
		query   string
	}
	syncs := []counterSync{
		{"ticket", `SELECT COALESCE(MAX(CAST(substr(id, 5) AS INTEGER)), 1000) FROM tickets WHERE id LIKE 'ESC-%'`},
		{"comment", `SELECT COALESCE(MAX(CAST(substr(id, 9) AS INTEGER)), 1000) FROM comments WHERE id LIKE 'COMMENT-%'`},
	}
	for _, sc := range syncs {
		var maxSuffix int64
		if err := s.db.QueryRowContext(ctx, sc.query).Scan(&maxSuffix); err != nil {
			return fmt.Errorf("sync %s counter: %w", sc.counter, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE counters SET value = ? WHERE name = ? AND value < ?`,
			maxSuffix, sc.counter, maxSuffix); err != nil {
			return fmt.Errorf("sync %s counter: %w", sc.counter, err)
		}
	}
	return nil
}

// Create persists a new escalated ticket with status pending.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Ticket, error) {
	id, err := s.NextTicketID(ctx)
	if err != nil {
		return nil, err
	}

	history := ""
	if len(input.ConversationHistory) > 0 {
		raw, err := json.Marshal(input.ConversationHistory)
		if err != nil {
			return nil, fmt.Errorf("marshal conversation history: %w", err)
		}
		history = string(raw)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, user_query, ai_answer, user_feedback, status,
			submitted_at, conversation_history)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.UserQuery, input.AIAnswer, input.UserFeedback,
		StatusPending, now, nullString(history))
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns a ticket with its comments, or sql.ErrNoRows when absent.
func (s *Service) Get(ctx context.Context, ticketID string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_query, ai_answer, user_feedback, status,
			submitted_at, resolved_at, resolved_by, admin_solution,
			conversation_history
		FROM tickets WHERE id = ?`, ticketID)

	t, err := scanTicket(row)
	if err != nil {
		return nil, err
	}

	comments, err := s.listComments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	t.Comments = comments
	return t, nil
}

// List returns tickets newest first, optionally filtered by status.
// Comments are not loaded.
func (s *Service) List(ctx context.Context, status string) ([]*Ticket, error) {
	query := `
		SELECT id, user_query, ai_answer, user_feedback, status,
			submitted_at, resolved_at, resolved_by, admin_solution,
			conversation_history
		FROM tickets`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY submitted_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddComment appends a comment to a ticket. A resolution comment also flips
// the ticket to resolved; the admin solution is recorded only for comments
// authored by "admin".
func (s *Service) AddComment(ctx context.Context, input AddCommentInput) (*Comment, error) {
	t, err := s.Get(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}

	id, err := s.NextCommentID(ctx)
	if err != nil {
		return nil, err
	}

	commentType := CommentTypeComment
	if input.IsResolution {
		commentType = CommentTypeResolution
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comments (id, ticket_id, author, author_name, content, timestamp, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.TicketID, input.Author, input.AuthorName, input.Content,
		now.Format(time.RFC3339), commentType)
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	if input.IsResolution {
		if err := s.markResolved(ctx, t, input.Author, input.Content); err != nil {
			return nil, err
		}
	}

	return &Comment{
		ID:         id,
		TicketID:   input.TicketID,
		Author:     input.Author,
		AuthorName: input.AuthorName,
		Content:    input.Content,
		Timestamp:  now,
		Type:       commentType,
	}, nil
}

// Resolve records an admin solution as a resolution comment and flips the
// ticket status.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (*Ticket, error) {
	resolvedBy := input.ResolvedBy
	if resolvedBy == "" {
		resolvedBy = "admin"
	}
	_, err := s.AddComment(ctx, AddCommentInput{
		TicketID:     input.TicketID,
		Author:       resolvedBy,
		AuthorName:   resolvedBy,
		Content:      input.Solution,
		IsResolution: true,
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, input.TicketID)
}

// markResolved flips the ticket to resolved and publishes the resolved
// event. The admin solution column is only written for the "admin" author.
func (s *Service) markResolved(ctx context.Context, t *Ticket, author, solution string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `UPDATE tickets SET status = ?, resolved_at = ?, resolved_by = ? WHERE id = ?`
	args := []any{StatusResolved, now, author, t.ID}
	if author == "admin" {
		query = `UPDATE tickets SET status = ?, resolved_at = ?, resolved_by = ?, admin_solution = ? WHERE id = ?`
		args = []any{StatusResolved, now, author, solution, t.ID}
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("resolve ticket: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(TopicTicketResolved, ResolvedEvent{
			TicketID:  t.ID,
			UserQuery: t.UserQuery,
			Solution:  solution,
		})
	}
	return nil
}

// Stats computes the admin analytics snapshot from all tickets.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, submitted_at, resolved_at FROM tickets`)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	stats := &Stats{}
	daily := make(map[string]int)
	var totalResolutionHours float64

	for rows.Next() {
		var status, submittedRaw string
		var resolvedRaw *string
		if err := rows.Scan(&status, &submittedRaw, &resolvedRaw); err != nil {
			return nil, err
		}
		submitted, _ := time.Parse(time.RFC3339, submittedRaw)

		stats.TotalTickets++
		switch status {
		case StatusResolved:
			stats.ResolvedTickets++
			if resolvedRaw != nil {
				resolved, _ := time.Parse(time.RFC3339, *resolvedRaw)
				totalResolutionHours += resolved.Sub(submitted).Hours()
			}
		default:
			stats.PendingTickets++
		}
		if submitted.After(weekAgo) {
			stats.RecentTickets++
		}
		if submitted.After(monthAgo) {
			daily[submitted.Format("2006-01-02")]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalTickets > 0 {
		stats.ResolutionRate = float64(stats.ResolvedTickets) / float64(stats.TotalTickets) * 100
	}
	if stats.ResolvedTickets > 0 {
		stats.AvgResolutionHours = totalResolutionHours / float64(stats.ResolvedTickets)
	}

	// Fixed 30-day window, zero-filled, oldest first.
	stats.DailyCounts = make([]DailyCount, 0, 30)
	for i := 29; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		stats.DailyCounts = append(stats.DailyCounts, DailyCount{Date: date, Count: daily[date]})
	}

	return stats, nil
}

func (s *Service) listComments(ctx context.Context, ticketID string) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, author, author_name, content, timestamp, type
		FROM comments WHERE ticket_id = ? ORDER BY timestamp ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []*Comment
	for rows.Next() {
		var c Comment
		var ts string
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Author, &c.AuthorName,
			&c.Content, &ts, &c.Type); err != nil {
			return nil, err
		}
		c.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (*Ticket, error) {
	var t Ticket
	var submittedRaw string
	var resolvedRaw, historyRaw *string
	err := row.Scan(&t.ID, &t.UserQuery, &t.AIAnswer, &t.UserFeedback,
		&t.Status, &submittedRaw, &resolvedRaw, &t.ResolvedBy,
		&t.AdminSolution, &historyRaw)
	if err != nil {
		return nil, err
	}

	t.SubmittedAt, _ = time.Parse(time.RFC3339, submittedRaw)
	if resolvedRaw != nil {
		resolved, _ := time.Parse(time.RFC3339, *resolvedRaw)
		t.ResolvedAt = &resolved
	}
	if historyRaw != nil && *historyRaw != "" {
		var history []llm.Message
		if err := json.Unmarshal([]byte(*historyRaw), &history); err == nil {
			t.ConversationHistory = history
		}
	}
	return &t, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
