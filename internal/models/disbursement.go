package models

import "time"

type SalaryDisbursement struct {
	ID              int64      `json:"id" db:"salary_disbursement_id"`
	ClientID        int64      `json:"client_id" db:"client_id"`
	TotalAmount     int64      `json:"total_amount" db:"total_amount"` // in minor units
	SalaryMonth     int        `json:"salary_month" db:"salary_month"`
	SalaryYear      int        `json:"salary_year" db:"salary_year"`
	AllEmployees    bool       `json:"all_employees" db:"all_employees"`
	Status          string     `json:"status" db:"status"`
	ApprovedBy      *int64     `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	Remarks         string     `json:"remarks,omitempty" db:"remarks"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// SalaryDisbursementDetail is one employee's line item. Success stays NULL
// until the batch processor settles it, then is written exactly once.
type SalaryDisbursementDetail struct {
	ID                int64      `json:"id" db:"detail_id"`
	DisbursementID    int64      `json:"disbursement_id" db:"salary_disbursement_id"`
	EmployeeID        int64      `json:"employee_id" db:"employee_id"`
	Amount            int64      `json:"amount" db:"amount"` // salary + bonus, in minor units
	EmployeeAccountID *int64     `json:"employee_account_id,omitempty" db:"employee_account_id"`
	Success           *bool      `json:"success" db:"success"`
	FailureReason     string     `json:"failure_reason,omitempty" db:"failure_reason"`
	TransactionID     *int64     `json:"transaction_id,omitempty" db:"transaction_id"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// DisbursementSummary carries the derived per-batch counts. Successful and
// Failed are computed from details, never stored on the disbursement row.
type DisbursementSummary struct {
	Disbursement SalaryDisbursement         `json:"disbursement"`
	Details      []SalaryDisbursementDetail `json:"details"`
	Total        int                        `json:"total_employees"`
	Successful   int                        `json:"successful"`
	Failed       int                        `json:"failed"`
	Unprocessed  int                        `json:"unprocessed"`
}

// Summarize derives the counts from the detail rows.
func Summarize(d SalaryDisbursement, details []SalaryDisbursementDetail) DisbursementSummary {
	s := DisbursementSummary{Disbursement: d, Details: details, Total: len(details)}
	for _, dt := range details {
		switch {
		case dt.Success == nil:
			s.Unprocessed++
		case *dt.Success:
			s.Successful++
		default:
			s.Failed++
		}
	}
	return s
}
