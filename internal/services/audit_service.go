package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

// AuditService is the best-effort audit trail sink. It never returns an
// error to the triggering financial operation: a failed insert is logged
// and dropped.
type AuditService struct {
	db *sql.DB
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

type auditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	ActorID    int64     `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Details    string    `json:"details,omitempty"`
}

// Record writes one audit row. Callers fire it from a goroutine after
// their own commit; failures never propagate.
func (s *AuditService) Record(action, entityType string, entityID, actorID int64, actorRole, details string) {
	event := auditEvent{
		Timestamp:  time.Now(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Details:    details,
	}

	if s.db != nil {
		_, err := s.db.Exec(`
			INSERT INTO audit_logs (action, entity_type, entity_id, actor_id, actor_role, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			action, entityType, entityID, actorID, actorRole, details, event.Timestamp)
		if err != nil {
			log.Printf("[AUDIT] Insert failed (dropped): %v", err)
		}
	}

	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}

// RecordApproval logs an approve/reject decision on a payment or
// disbursement.
func (s *AuditService) RecordApproval(entityType string, entityID, approverID int64, approved bool, details string) {
	action := "APPROVE"
	if !approved {
		action = "REJECT"
	}
	s.Record(action, entityType, entityID, approverID, "BANK_USER", details)
}
