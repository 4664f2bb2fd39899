package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/trustline/backoffice/internal/models"
)

// TransactionService owns the append-only transaction history and keeps it
// consistent with account balances: the balance mutation and the history
// insert always share one database transaction, so either both land or
// neither does.
type TransactionService struct {
	db    *sql.DB
	audit *AuditService
}

func NewTransactionService(db *sql.DB, audit *AuditService) *TransactionService {
	return &TransactionService{db: db, audit: audit}
}

// RecordInput describes one balance-affecting event.
type RecordInput struct {
	AccountID   int64
	ClientID    int64
	Amount      int64 // minor units, must be > 0
	Direction   string
	PaymentID   *int64
	DetailID    *int64
	ApprovedBy  *int64
	Description string
}

// Record mutates the balance and appends the history row as one atomic unit.
func (s *TransactionService) Record(in RecordInput) (*models.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	txn, err := s.RecordTx(tx, in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit transaction", err)
	}
	return txn, nil
}

// RecordTx performs the mutation inside a caller-owned tx so workflows can
// make an approval status flip and its ledger effect a single unit.
func (s *TransactionService) RecordTx(tx *sql.Tx, in RecordInput) (*models.Transaction, error) {
	if in.Amount <= 0 {
		return nil, Validationf("transaction amount must be positive")
	}
	if in.Direction != models.DirectionCredit && in.Direction != models.DirectionDebit {
		return nil, Validationf("invalid transaction direction %q", in.Direction)
	}

	account, err := lockAccount(tx, in.AccountID)
	if err != nil {
		return nil, err
	}

	// The history row is always stamped with the account's owner.
	if in.ClientID == 0 {
		in.ClientID = account.ClientID
	} else if in.ClientID != account.ClientID {
		return nil, Validationf("account %s does not belong to client %d", account.AccountNumber, in.ClientID)
	}

	var newBalance int64
	switch in.Direction {
	case models.DirectionCredit:
		if account.Status == models.AccountStatusClosed {
			return nil, Validationf("account %s is closed", account.AccountNumber)
		}
		newBalance = account.Balance + in.Amount
	case models.DirectionDebit:
		if account.Status != models.AccountStatusActive {
			return nil, Validationf("account %s is not active", account.AccountNumber)
		}
		if account.Balance < in.Amount {
			return nil, InsufficientFundsf("insufficient balance on account %s", account.AccountNumber)
		}
		newBalance = account.Balance - in.Amount
	}

	txn := &models.Transaction{
		ReferenceNumber: uuid.NewString(),
		AccountID:       in.AccountID,
		ClientID:        in.ClientID,
		Amount:          in.Amount,
		Direction:       in.Direction,
		Status:          models.TransactionCompleted,
		BalanceAfter:    newBalance,
		PaymentID:       in.PaymentID,
		DetailID:        in.DetailID,
		ApprovedBy:      in.ApprovedBy,
		Description:     in.Description,
	}

	err = tx.QueryRow(`
		INSERT INTO transactions
		(reference_number, account_id, client_id, amount, direction, status, balance_after,
		 payment_id, disbursement_detail_id, approved_by, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING transaction_id, created_at`,
		txn.ReferenceNumber, txn.AccountID, txn.ClientID, txn.Amount, txn.Direction, txn.Status,
		txn.BalanceAfter, txn.PaymentID, txn.DetailID, txn.ApprovedBy, txn.Description,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, Internal("failed to insert transaction", err)
	}

	if err := applyBalance(tx, in.AccountID, newBalance, account.Version); err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] %s %d on account %d, balance %d -> %d",
		in.Direction, in.Amount, in.AccountID, account.Balance, newBalance)
	return txn, nil
}

const transactionSelect = `
	SELECT transaction_id, reference_number, account_id, client_id, amount, direction, status,
	       balance_after, payment_id, disbursement_detail_id, approved_by, COALESCE(description, ''), created_at
	FROM transactions`

func (s *TransactionService) GetByID(transactionID int64) (*models.Transaction, error) {
	row := s.db.QueryRow(transactionSelect+` WHERE transaction_id = $1`, transactionID)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("transaction %d not found", transactionID)
	}
	if err != nil {
		return nil, Internal("failed to read transaction", err)
	}
	return txn, nil
}

// ByAccount returns the account's history, most recent first.
func (s *TransactionService) ByAccount(accountID int64, limit int) ([]models.Transaction, error) {
	return s.query(transactionSelect+` WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, clampLimit(limit))
}

func (s *TransactionService) ByClient(clientID int64, limit int) ([]models.Transaction, error) {
	return s.query(transactionSelect+` WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`, clientID, clampLimit(limit))
}

func (s *TransactionService) ByDateRange(accountID int64, from, to time.Time) ([]models.Transaction, error) {
	return s.query(transactionSelect+` WHERE account_id = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at DESC`,
		accountID, from, to)
}

func (s *TransactionService) ByPayment(paymentID int64) ([]models.Transaction, error) {
	return s.query(transactionSelect+` WHERE payment_id = $1 ORDER BY created_at DESC`, paymentID)
}

func (s *TransactionService) ByDisbursementDetail(detailID int64) ([]models.Transaction, error) {
	return s.query(transactionSelect+` WHERE disbursement_detail_id = $1 ORDER BY created_at DESC`, detailID)
}

// Recent returns the latest transactions across one client's accounts.
func (s *TransactionService) Recent(clientID int64, limit int) ([]models.Transaction, error) {
	return s.ByClient(clientID, limit)
}

// TotalCredits sums completed credits on an account over an optional window.
func (s *TransactionService) TotalCredits(accountID int64, from, to *time.Time) (int64, error) {
	return s.total(accountID, models.DirectionCredit, from, to)
}

// TotalDebits sums completed debits on an account over an optional window.
func (s *TransactionService) TotalDebits(accountID int64, from, to *time.Time) (int64, error) {
	return s.total(accountID, models.DirectionDebit, from, to)
}

func (s *TransactionService) total(accountID int64, direction string, from, to *time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = $1 AND direction = $2 AND status = $3`
	args := []any{accountID, direction, models.TransactionCompleted}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := s.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, Internal("failed to aggregate transactions", err)
	}
	return total, nil
}

// Statement builds the reconciliation view for a date window. The closing
// balance always equals opening + credits - debits over the window.
func (s *TransactionService) Statement(accountID int64, from, to time.Time) (*models.AccountStatement, error) {
	var accountNumber string
	var balance int64
	err := s.db.QueryRow(`SELECT account_number, balance FROM accounts WHERE account_id = $1`, accountID).
		Scan(&accountNumber, &balance)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account %d not found", accountID)
	}
	if err != nil {
		return nil, Internal("failed to read account", err)
	}

	credits, err := s.TotalCredits(accountID, &from, &to)
	if err != nil {
		return nil, err
	}
	debits, err := s.TotalDebits(accountID, &from, &to)
	if err != nil {
		return nil, err
	}

	// Balance after the window end, walked back to the window bounds.
	var creditsAfter, debitsAfter int64
	err = s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'CREDIT' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'DEBIT' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE account_id = $1 AND status = $2 AND created_at > $3`,
		accountID, models.TransactionCompleted, to).Scan(&creditsAfter, &debitsAfter)
	if err != nil {
		return nil, Internal("failed to aggregate transactions", err)
	}

	closing := balance - creditsAfter + debitsAfter
	opening := closing - credits + debits

	transactions, err := s.ByDateRange(accountID, from, to)
	if err != nil {
		return nil, err
	}

	return &models.AccountStatement{
		AccountNumber:     accountNumber,
		FromDate:          from,
		ToDate:            to,
		OpeningBalance:    opening,
		ClosingBalance:    closing,
		TotalCredits:      credits,
		TotalDebits:       debits,
		TotalTransactions: len(transactions),
		Transactions:      transactions,
	}, nil
}

func (s *TransactionService) query(query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal("failed to query transactions", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		txn, err := scanTransactionRows(rows)
		if err != nil {
			return nil, Internal("failed to scan transaction", err)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.ReferenceNumber, &t.AccountID, &t.ClientID, &t.Amount, &t.Direction,
		&t.Status, &t.BalanceAfter, &t.PaymentID, &t.DetailID, &t.ApprovedBy, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTransactionRows(rows *sql.Rows) (*models.Transaction, error) {
	var t models.Transaction
	err := rows.Scan(&t.ID, &t.ReferenceNumber, &t.AccountID, &t.ClientID, &t.Amount, &t.Direction,
		&t.Status, &t.BalanceAfter, &t.PaymentID, &t.DetailID, &t.ApprovedBy, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
