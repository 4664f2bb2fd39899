package models

import "time"

// Account statuses. An account is never deleted, only moved to CLOSED.
const (
	AccountStatusActive   = "ACTIVE"
	AccountStatusInactive = "INACTIVE"
	AccountStatusClosed   = "CLOSED"
)

// Account types.
const (
	AccountTypeSavings = "SAVINGS"
	AccountTypeCurrent = "CURRENT"
	AccountTypeSalary  = "SALARY"
)

type Account struct {
	ID            int64     `json:"id" db:"account_id"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	ClientID      int64     `json:"client_id" db:"client_id"`
	BankID        int64     `json:"bank_id" db:"bank_id"`
	Balance       int64     `json:"balance" db:"balance"` // in minor units (paise)
	Version       int       `json:"version" db:"version"` // for optimistic locking
	Status        string    `json:"status" db:"status"`
	Type          string    `json:"type" db:"account_type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
