package models

import "time"

// Beneficiary is an external payee registered by a client. Only active
// beneficiaries may receive a payment.
type Beneficiary struct {
	ID            int64     `json:"id" db:"beneficiary_id"`
	ClientID      int64     `json:"client_id" db:"client_id"`
	Name          string    `json:"name" db:"beneficiary_name"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	BankName      string    `json:"bank_name" db:"bank_name"`
	IFSCCode      string    `json:"ifsc_code" db:"ifsc_code"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
