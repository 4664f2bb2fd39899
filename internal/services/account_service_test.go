package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/trustline/backoffice/internal/models"
)

func newAccountFixture(db *sql.DB) *AccountService {
	audit := NewAuditService(db)
	return NewAccountService(db, NewTransactionService(db, audit), audit, NewNotificationService(nil))
}

func accountLockRows(id int64, balance int64, version int, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "account_number", "client_id", "bank_id", "balance", "version", "status", "account_type"}).
		AddRow(id, "900011112222", 1, 1, balance, version, status, models.AccountTypeCurrent)
}

func TestAccountService_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newAccountFixture(db)

	t.Run("credit writes a history row with the balance change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 1, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10), int64(1), int64(1000), models.DirectionCredit,
				models.TransactionCompleted, int64(6000), nil, nil, nil, "Over-the-counter credit").
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "created_at"}).AddRow(501, time.Now()))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(6000), sqlmock.AnyArg(), int64(10), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		balance, err := service.Credit(10, 1000)
		assert.NoError(t, err)
		assert.Equal(t, int64(6000), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed history insert rolls the balance back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 1, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := service.Credit(10, 1000)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed account rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 1, models.AccountStatusClosed))
		mock.ExpectRollback()

		_, err := service.Credit(10, 1000)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := service.Credit(10, 0)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestAccountService_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newAccountFixture(db)

	t.Run("debit writes a history row with the balance change", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 3, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10), int64(1), int64(2000), models.DirectionDebit,
				models.TransactionCompleted, int64(3000), nil, nil, nil, "Over-the-counter debit").
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "created_at"}).AddRow(502, time.Now()))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(3000), sqlmock.AnyArg(), int64(10), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		balance, err := service.Debit(10, 2000)
		assert.NoError(t, err)
		assert.Equal(t, int64(3000), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance leaves account untouched", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 1500, 1, models.AccountStatusActive))
		mock.ExpectRollback()

		_, err := service.Debit(10, 2000)
		assert.Error(t, err)
		assert.Equal(t, KindInsufficientFunds, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 5000, 1, models.AccountStatusInactive))
		mock.ExpectRollback()

		_, err := service.Debit(10, 2000)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "account_number", "client_id", "bank_id", "balance", "version", "status", "account_type"}))
		mock.ExpectRollback()

		_, err := service.Debit(99, 2000)
		assert.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newAccountFixture(db)

	t.Run("activate inactive account", func(t *testing.T) {
		mock.ExpectQuery("SELECT status FROM accounts").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.AccountStatusInactive))
		mock.ExpectExec("UPDATE accounts SET status").
			WithArgs(models.AccountStatusActive, int64(10), models.AccountStatusClosed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateStatus(10, models.AccountStatusActive, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed account is terminal", func(t *testing.T) {
		mock.ExpectQuery("SELECT status FROM accounts").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.AccountStatusClosed))

		err := service.UpdateStatus(10, models.AccountStatusActive, 1)
		assert.Error(t, err)
		assert.Equal(t, KindInvalidState, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := service.UpdateStatus(10, "FROZEN", 1)
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestApplyBalance_OptimisticLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("stale version fails", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(4000), sqlmock.AnyArg(), int64(10), 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := applyBalance(tx, 10, 4000, 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")
	})
}

func TestGenerateAccountNumber(t *testing.T) {
	for i := 0; i < 20; i++ {
		n := generateAccountNumber()
		assert.Len(t, n, 12)
		assert.NotEqual(t, byte('0'), n[0])
		for _, c := range n {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestAccountService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newAccountFixture(db)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(7500))

		balance, err := service.GetBalance(10)
		assert.NoError(t, err)
		assert.Equal(t, int64(7500), balance)
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := service.GetBalance(99)
		assert.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestAccountService_CreateAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newAccountFixture(db)

	t.Run("duplicate account number", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM clients").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM accounts").
			WithArgs("900011112222").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.CreateAccount(CreateAccountRequest{
			ClientID:      1,
			BankID:        1,
			AccountType:   models.AccountTypeCurrent,
			AccountNumber: "900011112222",
		})
		assert.Error(t, err)
		assert.Equal(t, KindDuplicate, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("successful create", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM clients").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM accounts").
			WithArgs("900011112222").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs("900011112222", int64(1), int64(1), int64(2500), models.AccountStatusActive, models.AccountTypeCurrent).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "created_at", "updated_at"}).AddRow(42, now, now))

		account, err := service.CreateAccount(CreateAccountRequest{
			ClientID:       1,
			BankID:         1,
			AccountType:    models.AccountTypeCurrent,
			AccountNumber:  "900011112222",
			InitialBalance: 2500,
			Activate:       true,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(42), account.ID)
		assert.Equal(t, int64(2500), account.Balance)
		assert.Equal(t, models.AccountStatusActive, account.Status)
	})

	t.Run("concurrent insert loses cleanly", func(t *testing.T) {
		// The pre-check can pass for two writers at once; the constraint
		// decides, and the loser sees a duplicate rather than a 500.
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM clients").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM accounts").
			WithArgs("900011112222").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO accounts").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.CreateAccount(CreateAccountRequest{
			ClientID:      1,
			BankID:        1,
			AccountType:   models.AccountTypeCurrent,
			AccountNumber: "900011112222",
		})
		assert.Error(t, err)
		assert.Equal(t, KindDuplicate, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
