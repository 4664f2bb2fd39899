package models

import "time"

// Employee belongs to a client and is paid through salary disbursements.
// AccountID, when set, points at the employee's salary account held at the
// same bank; disbursement details snapshot it at create time.
type Employee struct {
	ID        int64     `json:"id" db:"employee_id"`
	ClientID  int64     `json:"client_id" db:"client_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	Salary    int64     `json:"salary" db:"salary"` // monthly, in minor units
	AccountID *int64    `json:"account_id,omitempty" db:"account_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
