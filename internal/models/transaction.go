package models

import "time"

// Transaction directions.
const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

// Transaction statuses. Rows are immutable once written.
const (
	TransactionCompleted = "COMPLETED"
	TransactionFailed    = "FAILED"
)

type Transaction struct {
	ID              int64     `json:"id" db:"transaction_id"`
	ReferenceNumber string    `json:"reference_number" db:"reference_number"`
	AccountID       int64     `json:"account_id" db:"account_id"`
	ClientID        int64     `json:"client_id" db:"client_id"`
	Amount          int64     `json:"amount" db:"amount"` // in minor units, always > 0
	Direction       string    `json:"direction" db:"direction"`
	Status          string    `json:"status" db:"status"`
	BalanceAfter    int64     `json:"balance_after" db:"balance_after"`
	PaymentID       *int64    `json:"payment_id,omitempty" db:"payment_id"`
	DetailID        *int64    `json:"disbursement_detail_id,omitempty" db:"disbursement_detail_id"`
	ApprovedBy      *int64    `json:"approved_by,omitempty" db:"approved_by"`
	Description     string    `json:"description,omitempty" db:"description"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// AccountStatement is the reconciliation view over a date window:
// ClosingBalance must equal OpeningBalance + TotalCredits - TotalDebits.
type AccountStatement struct {
	AccountNumber     string        `json:"account_number"`
	FromDate          time.Time     `json:"from_date"`
	ToDate            time.Time     `json:"to_date"`
	OpeningBalance    int64         `json:"opening_balance"`
	ClosingBalance    int64         `json:"closing_balance"`
	TotalCredits      int64         `json:"total_credits"`
	TotalDebits       int64         `json:"total_debits"`
	TotalTransactions int           `json:"total_transactions"`
	Transactions      []Transaction `json:"transactions"`
}
