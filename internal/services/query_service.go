package services

import (
	"database/sql"
	"log"
	"time"

	"github.com/trustline/backoffice/internal/models"
)

// QueryService handles support requests filed through the public contact
// form. Filing needs no authentication; responding and resolving are bank
// staff operations.
type QueryService struct {
	db       *sql.DB
	audit    *AuditService
	notifier *NotificationService
}

func NewQueryService(db *sql.DB, audit *AuditService, notifier *NotificationService) *QueryService {
	return &QueryService{db: db, audit: audit, notifier: notifier}
}

const querySelect = `
	SELECT query_id, name, email, COALESCE(phone, ''), subject, message, category, priority,
	       COALESCE(response, ''), is_resolved, responded_at, responded_by, created_at
	FROM queries`

type CreateQueryRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=20"`
	Subject  string `json:"subject" validate:"required,max=150"`
	Message  string `json:"message" validate:"required,max=2000"`
	Category string `json:"category" validate:"max=30"`
	Priority string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

func (s *QueryService) Create(req CreateQueryRequest) (*models.Query, error) {
	if req.Category == "" {
		req.Category = "GENERAL"
	}
	if req.Priority == "" {
		req.Priority = models.QueryPriorityMedium
	}

	q := &models.Query{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Subject:  req.Subject,
		Message:  req.Message,
		Category: req.Category,
		Priority: req.Priority,
	}
	err := s.db.QueryRow(`
		INSERT INTO queries (name, email, phone, subject, message, category, priority, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW())
		RETURNING query_id, created_at`,
		req.Name, req.Email, req.Phone, req.Subject, req.Message, req.Category, req.Priority,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return nil, Internal("failed to file query", err)
	}

	log.Printf("[QUERY] Filed query %d (%s, priority %s)", q.ID, req.Category, req.Priority)
	return q, nil
}

func (s *QueryService) GetByID(queryID int64) (*models.Query, error) {
	q, err := scanQuery(s.db.QueryRow(querySelect+` WHERE query_id = $1`, queryID))
	if err == sql.ErrNoRows {
		return nil, NotFoundf("query %d not found", queryID)
	}
	if err != nil {
		return nil, Internal("failed to read query", err)
	}
	return q, nil
}

// Pending returns unresolved queries, most urgent and oldest first.
func (s *QueryService) Pending() ([]models.Query, error) {
	return s.list(querySelect + `
		WHERE is_resolved = false
		ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END, created_at ASC`)
}

func (s *QueryService) Resolved() ([]models.Query, error) {
	return s.list(querySelect+` WHERE is_resolved = true ORDER BY responded_at DESC LIMIT $1`, int64(200))
}

func (s *QueryService) ByCategory(category string) ([]models.Query, error) {
	return s.list(querySelect+` WHERE category = $1 ORDER BY created_at DESC`, category)
}

type RespondRequest struct {
	Response    string `json:"response" validate:"required,max=2000"`
	Resolve     bool   `json:"resolve"`
	RespondedBy int64  `json:"-"`
}

// Respond records a staff answer, optionally resolving the query, and mails
// the answer to the address it was filed under.
func (s *QueryService) Respond(queryID int64, req RespondRequest) (*models.Query, error) {
	q, err := s.GetByID(queryID)
	if err != nil {
		return nil, err
	}
	if q.IsResolved {
		return nil, InvalidStatef("query %d is already resolved", queryID)
	}

	now := time.Now()
	_, err = s.db.Exec(`
		UPDATE queries SET response = $1, is_resolved = $2, responded_at = $3, responded_by = $4
		WHERE query_id = $5`,
		req.Response, req.Resolve, now, req.RespondedBy, queryID)
	if err != nil {
		return nil, Internal("failed to respond to query", err)
	}

	q.Response = req.Response
	q.IsResolved = req.Resolve
	q.RespondedAt = &now
	q.RespondedBy = &req.RespondedBy

	log.Printf("[QUERY] Responded to query %d (resolved=%v)", queryID, req.Resolve)
	go s.audit.Record("RESPOND", "Query", queryID, req.RespondedBy, models.RoleBankUser, "query answered")
	go s.notifier.Notify(q.Email, TemplateQueryResponse, map[string]any{
		"subject":  q.Subject,
		"response": req.Response,
	})
	return q, nil
}

// SetResolved flips the resolved flag without touching the response text.
// Reopening a resolved query is allowed; support sometimes has to.
func (s *QueryService) SetResolved(queryID int64, resolved bool, actorID int64) error {
	res, err := s.db.Exec(`UPDATE queries SET is_resolved = $1 WHERE query_id = $2 AND is_resolved = $3`,
		resolved, queryID, !resolved)
	if err != nil {
		return Internal("failed to update query", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		q, err := s.GetByID(queryID)
		if err != nil {
			return err
		}
		return InvalidStatef("query %d is already %s", queryID, resolvedWord(q.IsResolved))
	}

	go s.audit.Record("STATUS_CHANGE", "Query", queryID, actorID, models.RoleBankUser,
		"query marked "+resolvedWord(resolved))
	return nil
}

func resolvedWord(resolved bool) string {
	if resolved {
		return "resolved"
	}
	return "unresolved"
}

// QueryStatistics summarizes the support backlog.
type QueryStatistics struct {
	TotalPending  int64 `json:"total_pending"`
	TotalResolved int64 `json:"total_resolved"`
	HighPriority  int64 `json:"high_priority_pending"`
}

func (s *QueryService) Statistics() (*QueryStatistics, error) {
	stats := &QueryStatistics{}
	err := s.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE NOT is_resolved),
			COUNT(*) FILTER (WHERE is_resolved),
			COUNT(*) FILTER (WHERE NOT is_resolved AND priority = 'HIGH')
		FROM queries`).
		Scan(&stats.TotalPending, &stats.TotalResolved, &stats.HighPriority)
	if err != nil {
		return nil, Internal("failed to read query statistics", err)
	}
	return stats, nil
}

func (s *QueryService) list(query string, args ...any) ([]models.Query, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal("failed to list queries", err)
	}
	defer rows.Close()

	queries := []models.Query{}
	for rows.Next() {
		q, err := scanQueryRows(rows)
		if err != nil {
			return nil, Internal("failed to scan query", err)
		}
		queries = append(queries, *q)
	}
	return queries, rows.Err()
}

func scanQuery(row *sql.Row) (*models.Query, error) {
	var q models.Query
	err := row.Scan(&q.ID, &q.Name, &q.Email, &q.Phone, &q.Subject, &q.Message, &q.Category,
		&q.Priority, &q.Response, &q.IsResolved, &q.RespondedAt, &q.RespondedBy, &q.CreatedAt)
	return &q, err
}

func scanQueryRows(rows *sql.Rows) (*models.Query, error) {
	var q models.Query
	err := rows.Scan(&q.ID, &q.Name, &q.Email, &q.Phone, &q.Subject, &q.Message, &q.Category,
		&q.Priority, &q.Response, &q.IsResolved, &q.RespondedAt, &q.RespondedBy, &q.CreatedAt)
	return &q, err
}
