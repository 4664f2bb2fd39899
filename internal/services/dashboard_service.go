package services

import (
	"database/sql"

	"github.com/trustline/backoffice/internal/models"
)

// DashboardService aggregates the landing-page numbers for bank users and
// clients. Everything here is read-only.
type DashboardService struct {
	db            *sql.DB
	payments      *PaymentService
	disbursements *DisbursementService
	ledger        *TransactionService
}

func NewDashboardService(db *sql.DB, payments *PaymentService, disbursements *DisbursementService, ledger *TransactionService) *DashboardService {
	return &DashboardService{db: db, payments: payments, disbursements: disbursements, ledger: ledger}
}

type BankDashboard struct {
	BankID               int64 `json:"bank_id"`
	ClientCount          int   `json:"client_count"`
	AccountCount         int   `json:"account_count"`
	TotalBalance         int64 `json:"total_balance"`
	PendingPayments      int   `json:"pending_payments"`
	PendingDisbursements int   `json:"pending_disbursements"`
}

type ClientDashboard struct {
	ClientID                  int64                `json:"client_id"`
	TotalBalance              int64                `json:"total_balance"`
	AccountCount              int                  `json:"account_count"`
	PendingPayments           int                  `json:"pending_payments"`
	PendingPaymentAmount      int64                `json:"pending_payment_amount"`
	PendingDisbursements      int                  `json:"pending_disbursements"`
	PendingDisbursementAmount int64                `json:"pending_disbursement_amount"`
	EmployeeCount             int                  `json:"employee_count"`
	RecentTransactions        []models.Transaction `json:"recent_transactions"`
}

func (s *DashboardService) ForBank(bankID int64) (*BankDashboard, error) {
	d := BankDashboard{BankID: bankID}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM clients WHERE bank_id = $1`, bankID).Scan(&d.ClientCount)
	if err != nil {
		return nil, Internal("failed to count clients", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(a.balance), 0)
		FROM accounts a
		JOIN clients c ON a.client_id = c.client_id
		WHERE c.bank_id = $1 AND a.status != $2`,
		bankID, models.AccountStatusClosed).Scan(&d.AccountCount, &d.TotalBalance)
	if err != nil {
		return nil, Internal("failed to aggregate accounts", err)
	}

	if d.PendingPayments, err = s.payments.PendingCount(nil, &bankID); err != nil {
		return nil, err
	}

	if d.PendingDisbursements, err = s.disbursements.PendingCount(nil, &bankID); err != nil {
		return nil, err
	}

	return &d, nil
}

func (s *DashboardService) ForClient(clientID int64) (*ClientDashboard, error) {
	d := ClientDashboard{ClientID: clientID}

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(balance), 0)
		FROM accounts
		WHERE client_id = $1 AND status != $2`,
		clientID, models.AccountStatusClosed).Scan(&d.AccountCount, &d.TotalBalance)
	if err != nil {
		return nil, Internal("failed to aggregate accounts", err)
	}

	if d.PendingPayments, err = s.payments.PendingCount(&clientID, nil); err != nil {
		return nil, err
	}
	if d.PendingPaymentAmount, err = s.payments.TotalPendingAmount(clientID); err != nil {
		return nil, err
	}

	if d.PendingDisbursements, err = s.disbursements.PendingCount(&clientID, nil); err != nil {
		return nil, err
	}
	if d.PendingDisbursementAmount, err = s.disbursements.TotalPendingAmount(clientID); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM employees WHERE client_id = $1 AND is_active = TRUE`,
		clientID).Scan(&d.EmployeeCount)
	if err != nil {
		return nil, Internal("failed to count employees", err)
	}

	if d.RecentTransactions, err = s.ledger.Recent(clientID, 10); err != nil {
		return nil, err
	}

	return &d, nil
}
