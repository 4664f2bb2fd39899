package models

import "time"

const (
	QueryPriorityLow    = "LOW"
	QueryPriorityMedium = "MEDIUM"
	QueryPriorityHigh   = "HIGH"
)

// Query is a support request from the public contact form. It carries no
// account linkage; anyone can file one.
type Query struct {
	ID          int64      `json:"id" db:"query_id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Phone       string     `json:"phone,omitempty" db:"phone"`
	Subject     string     `json:"subject" db:"subject"`
	Message     string     `json:"message" db:"message"`
	Category    string     `json:"category" db:"category"`
	Priority    string     `json:"priority" db:"priority"`
	Response    string     `json:"response,omitempty" db:"response"`
	IsResolved  bool       `json:"is_resolved" db:"is_resolved"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
	RespondedBy *int64     `json:"responded_by,omitempty" db:"responded_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// DaysPending reports how long an unresolved query has been waiting.
func (q *Query) DaysPending(now time.Time) int {
	if q.IsResolved {
		return 0
	}
	return int(now.Sub(q.CreatedAt).Hours() / 24)
}
