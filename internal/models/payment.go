package models

import "time"

// Approval statuses shared by payments and salary disbursements.
// APPROVED and REJECTED are terminal.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

type Payment struct {
	ID              int64      `json:"id" db:"payment_id"`
	ClientID        int64      `json:"client_id" db:"client_id"`
	BeneficiaryID   int64      `json:"beneficiary_id" db:"beneficiary_id"`
	Amount          int64      `json:"amount" db:"amount"` // in minor units, always > 0
	Purpose         string     `json:"purpose,omitempty" db:"purpose"`
	Status          string     `json:"status" db:"status"`
	ApprovedBy      *int64     `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	Remarks         string     `json:"remarks,omitempty" db:"remarks"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// PendingPayment is the bank-user work-queue view of a payment.
type PendingPayment struct {
	PaymentID       int64     `json:"payment_id"`
	ClientName      string    `json:"client_name"`
	BeneficiaryName string    `json:"beneficiary_name"`
	Amount          int64     `json:"amount"`
	Purpose         string    `json:"purpose,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	DaysPending     int       `json:"days_pending"`
	IsUrgent        bool      `json:"is_urgent"`
}
