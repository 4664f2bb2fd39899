package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/trustline/backoffice/internal/models"
)

func TestTransactionService_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewAuditService(db))

	t.Run("credit mutates balance and appends history atomically", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 2, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10), int64(1), int64(1000), models.DirectionCredit,
				models.TransactionCompleted, int64(6000), nil, nil, nil, "Deposit").
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "created_at"}).AddRow(77, time.Now()))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(6000), sqlmock.AnyArg(), int64(10), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := service.Record(RecordInput{
			AccountID:   10,
			ClientID:    1,
			Amount:      1000,
			Direction:   models.DirectionCredit,
			Description: "Deposit",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(77), txn.ID)
		assert.Equal(t, int64(6000), txn.BalanceAfter)
		assert.NotEmpty(t, txn.ReferenceNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("client defaults to the account owner", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 2, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10), int64(1), int64(1000), models.DirectionCredit,
				models.TransactionCompleted, int64(6000), nil, nil, nil, "").
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "created_at"}).AddRow(78, time.Now()))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(6000), sqlmock.AnyArg(), int64(10), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		txn, err := service.Record(RecordInput{AccountID: 10, Amount: 1000, Direction: models.DirectionCredit})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), txn.ClientID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatched client rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 2, models.AccountStatusActive))
		mock.ExpectRollback()

		_, err := service.Record(RecordInput{AccountID: 10, ClientID: 9, Amount: 1000, Direction: models.DirectionCredit})
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit rejected on insufficient balance, nothing written", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 500, 2, models.AccountStatusActive))
		mock.ExpectRollback()

		_, err := service.Record(RecordInput{
			AccountID: 10,
			ClientID:  1,
			Amount:    1000,
			Direction: models.DirectionDebit,
		})
		assert.Error(t, err)
		assert.Equal(t, KindInsufficientFunds, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid direction rejected before any query", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := service.Record(RecordInput{AccountID: 10, ClientID: 1, Amount: 100, Direction: "SIDEWAYS"})
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("history insert failure rolls back the balance change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 2, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := service.Record(RecordInput{
			AccountID: 10,
			ClientID:  1,
			Amount:    1000,
			Direction: models.DirectionCredit,
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_ByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewAuditService(db))

	rows := sqlmock.NewRows([]string{"transaction_id", "reference_number", "account_id", "client_id", "amount",
		"direction", "status", "balance_after", "payment_id", "disbursement_detail_id", "approved_by", "description", "created_at"}).
		AddRow(2, "ref-2", 10, 1, 500, models.DirectionDebit, models.TransactionCompleted, 4500, nil, nil, nil, "", time.Now()).
		AddRow(1, "ref-1", 10, 1, 5000, models.DirectionCredit, models.TransactionCompleted, 5000, nil, nil, nil, "", time.Now())

	mock.ExpectQuery("SELECT transaction_id, reference_number").
		WithArgs(int64(10), 50).
		WillReturnRows(rows)

	txns, err := service.ByAccount(10, 0) // zero limit falls back to the default
	assert.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.Equal(t, models.DirectionDebit, txns[0].Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_Statement(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, NewAuditService(db))

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery("SELECT account_number, balance FROM accounts").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"account_number", "balance"}).AddRow("900011112222", 9000))

	// Credits and debits inside the window.
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
		WithArgs(int64(10), models.DirectionCredit, models.TransactionCompleted, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(4000))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
		WithArgs(int64(10), models.DirectionDebit, models.TransactionCompleted, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(1000))

	// Movement after the window: 2000 credited since.
	mock.ExpectQuery("FROM transactions").
		WithArgs(int64(10), models.TransactionCompleted, to).
		WillReturnRows(sqlmock.NewRows([]string{"credits", "debits"}).AddRow(2000, 0))

	mock.ExpectQuery("SELECT transaction_id, reference_number").
		WithArgs(int64(10), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "reference_number", "account_id", "client_id", "amount",
			"direction", "status", "balance_after", "payment_id", "disbursement_detail_id", "approved_by", "description", "created_at"}).
			AddRow(1, "ref-1", 10, 1, 4000, models.DirectionCredit, models.TransactionCompleted, 8000, nil, nil, nil, "", from.Add(time.Hour)).
			AddRow(2, "ref-2", 10, 1, 1000, models.DirectionDebit, models.TransactionCompleted, 7000, nil, nil, nil, "", from.Add(2*time.Hour)))

	statement, err := service.Statement(10, from, to)
	assert.NoError(t, err)
	// closing = 9000 - 2000 after-window credits = 7000
	assert.Equal(t, int64(7000), statement.ClosingBalance)
	// opening = closing - 4000 + 1000 = 4000
	assert.Equal(t, int64(4000), statement.OpeningBalance)
	assert.Equal(t, int64(4000), statement.TotalCredits)
	assert.Equal(t, int64(1000), statement.TotalDebits)
	assert.Equal(t, 2, statement.TotalTransactions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
