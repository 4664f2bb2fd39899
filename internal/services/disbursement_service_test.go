package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/trustline/backoffice/internal/config"
	"github.com/trustline/backoffice/internal/models"
)

func disbursementFixture(t *testing.T) (*DisbursementService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	audit := NewAuditService(db)
	ledger := NewTransactionService(db, audit)
	clients := NewClientService(db)
	employees := NewEmployeeService(db)
	notifier := NewNotificationService(nil)
	policy := &config.ApprovalPolicy{FlagPartialFailure: true, UrgentAfterDays: 3}

	service := NewDisbursementService(db, ledger, clients, employees, audit, notifier, policy)
	return service, mock, func() { db.Close() }
}

func clientRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"client_id", "client_name", "bank_id", "user_id", "contact_email", "is_verified", "created_at"}).
		AddRow(1, "Acme Corp", 1, 3, "ops@acme.example", true, time.Now())
}

func disbursementRow(id int64, status string, total int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"salary_disbursement_id", "client_id", "total_amount", "salary_month", "salary_year",
		"all_employees", "status", "approved_by", "approved_at", "remarks", "rejection_reason", "created_at"}).
		AddRow(id, 1, total, 8, 2026, true, status, nil, nil, "", "", time.Now())
}

func TestDisbursementService_Create(t *testing.T) {
	service, mock, closeDB := disbursementFixture(t)
	defer closeDB()

	t.Run("one batch per client per period", func(t *testing.T) {
		mock.ExpectQuery("SELECT client_id, client_name").
			WithArgs(int64(1)).
			WillReturnRows(clientRow())
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(1), 8, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Create(CreateDisbursementRequest{ClientID: 1, SalaryMonth: 8, SalaryYear: 2026, AllEmployees: true})
		assert.Error(t, err)
		assert.Equal(t, KindDuplicate, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("total is the sum of salary plus bonus per employee", func(t *testing.T) {
		mock.ExpectQuery("SELECT client_id, client_name").
			WithArgs(int64(1)).
			WillReturnRows(clientRow())
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(1), 8, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("SELECT employee_id, client_id").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"employee_id", "client_id", "full_name", "email", "salary", "account_id", "is_active", "created_at"}).
				AddRow(100, 1, "Ada", "ada@acme.example", 1500, 20, true, time.Now()).
				AddRow(101, 1, "Ben", "ben@acme.example", 1200, nil, true, time.Now()).
				AddRow(102, 1, "Cleo", "cleo@acme.example", 1500, 21, true, time.Now()))

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO salary_disbursements").
			WithArgs(int64(1), int64(4500), 8, 2026, true, models.ApprovalPending).
			WillReturnRows(sqlmock.NewRows([]string{"salary_disbursement_id", "created_at"}).AddRow(7, time.Now()))
		mock.ExpectQuery("INSERT INTO salary_disbursement_details").
			WithArgs(int64(7), int64(100), int64(1500), int64(20)).
			WillReturnRows(sqlmock.NewRows([]string{"detail_id"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO salary_disbursement_details").
			WithArgs(int64(7), int64(101), int64(1200), nil).
			WillReturnRows(sqlmock.NewRows([]string{"detail_id"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO salary_disbursement_details").
			WithArgs(int64(7), int64(102), int64(1500), int64(21)).
			WillReturnRows(sqlmock.NewRows([]string{"detail_id"}).AddRow(3))
		mock.ExpectCommit()

		summary, err := service.Create(CreateDisbursementRequest{ClientID: 1, SalaryMonth: 8, SalaryYear: 2026, AllEmployees: true})
		assert.NoError(t, err)
		assert.Equal(t, int64(4500), summary.Disbursement.TotalAmount)
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 3, summary.Unprocessed)
		assert.Equal(t, models.ApprovalPending, summary.Disbursement.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no active employees rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT client_id, client_name").
			WithArgs(int64(1)).
			WillReturnRows(clientRow())
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(1), 8, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("SELECT employee_id, client_id").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"employee_id", "client_id", "full_name", "email", "salary", "account_id", "is_active", "created_at"}))

		_, err := service.Create(CreateDisbursementRequest{ClientID: 1, SalaryMonth: 8, SalaryYear: 2026, AllEmployees: true})
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("selected employee of another client rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT client_id, client_name").
			WithArgs(int64(1)).
			WillReturnRows(clientRow())
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(int64(1), 8, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("SELECT employee_id, client_id").
			WithArgs(int64(200)).
			WillReturnRows(sqlmock.NewRows([]string{"employee_id", "client_id", "full_name", "email", "salary", "account_id", "is_active", "created_at"}).
				AddRow(200, 99, "Eve", "eve@other.example", 1000, nil, true, time.Now()))

		_, err := service.Create(CreateDisbursementRequest{ClientID: 1, SalaryMonth: 8, SalaryYear: 2026, EmployeeIDs: []int64{200}})
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDisbursementService_Approve(t *testing.T) {
	service, mock, closeDB := disbursementFixture(t)
	defer closeDB()

	t.Run("one failing line does not block the rest", func(t *testing.T) {
		// CAS flip PENDING -> APPROVED.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT client_id, status FROM salary_disbursements").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"client_id", "status"}).AddRow(1, models.ApprovalPending))
		mock.ExpectExec("UPDATE salary_disbursements").
			WithArgs(models.ApprovalApproved, int64(9), "", int64(7), models.ApprovalPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Two unprocessed details.
		mock.ExpectQuery("SELECT detail_id, salary_disbursement_id").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"detail_id", "salary_disbursement_id", "employee_id", "amount",
				"employee_account_id", "success", "failure_reason", "transaction_id", "processed_at"}).
				AddRow(1, 7, 100, 1500, nil, nil, "", nil, nil).
				AddRow(2, 7, 101, 1200, nil, nil, "", nil, nil))

		// Detail 1 settles in its own transaction.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id FROM accounts").
			WithArgs(int64(1), models.AccountStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(10))
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 2000, 1, models.AccountStatusActive))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10), int64(1), int64(1500), models.DirectionDebit,
				models.TransactionCompleted, int64(500), nil, int64(1), int64(9), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "created_at"}).AddRow(70, time.Now()))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(500), sqlmock.AnyArg(), int64(10), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE salary_disbursement_details").
			WithArgs(int64(70), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Detail 2 bounces on insufficient funds; its transaction rolls back
		// and the failure is recorded outside it.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT account_id FROM accounts").
			WithArgs(int64(1), models.AccountStatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(10))
		mock.ExpectQuery("SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type").
			WithArgs(int64(10)).
			WillReturnRows(accountLockRows(10, 500, 2, models.AccountStatusActive))
		mock.ExpectRollback()
		mock.ExpectExec("UPDATE salary_disbursement_details").
			WithArgs(sqlmock.AnyArg(), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Final summary read.
		mock.ExpectQuery("SELECT salary_disbursement_id, client_id").
			WithArgs(int64(7)).
			WillReturnRows(disbursementRow(7, models.ApprovalApproved, 2700))

		summary, err := service.Approve(7, 9, "")
		assert.NoError(t, err)
		assert.Equal(t, models.ApprovalApproved, summary.Disbursement.Status)
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Unprocessed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent approval loses the compare-and-set", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT client_id, status FROM salary_disbursements").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"client_id", "status"}).AddRow(1, models.ApprovalPending))
		mock.ExpectExec("UPDATE salary_disbursements").
			WithArgs(models.ApprovalApproved, int64(9), "", int64(7), models.ApprovalPending).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.Approve(7, 9, "")
		assert.Error(t, err)
		assert.Equal(t, KindInvalidState, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected batch cannot be approved", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT client_id, status FROM salary_disbursements").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"client_id", "status"}).AddRow(1, models.ApprovalRejected))
		mock.ExpectRollback()

		_, err := service.Approve(7, 9, "")
		assert.Error(t, err)
		assert.Equal(t, KindInvalidState, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDisbursementService_Reject(t *testing.T) {
	service, mock, closeDB := disbursementFixture(t)
	defer closeDB()

	t.Run("reason is mandatory", func(t *testing.T) {
		_, err := service.Reject(7, 9, "")
		assert.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("rejection settles no detail", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT client_id, status FROM salary_disbursements").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"client_id", "status"}).AddRow(1, models.ApprovalPending))
		mock.ExpectExec("UPDATE salary_disbursements").
			WithArgs(models.ApprovalRejected, int64(9), "budget freeze", int64(7), models.ApprovalPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		mock.ExpectQuery("SELECT salary_disbursement_id, client_id").
			WithArgs(int64(7)).
			WillReturnRows(disbursementRow(7, models.ApprovalRejected, 2700))
		mock.ExpectQuery("SELECT detail_id, salary_disbursement_id").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"detail_id", "salary_disbursement_id", "employee_id", "amount",
				"employee_account_id", "success", "failure_reason", "transaction_id", "processed_at"}).
				AddRow(1, 7, 100, 1500, nil, nil, "", nil, nil).
				AddRow(2, 7, 101, 1200, nil, nil, "", nil, nil))

		summary, err := service.Reject(7, 9, "budget freeze")
		assert.NoError(t, err)
		assert.Equal(t, models.ApprovalRejected, summary.Disbursement.Status)
		assert.Equal(t, 2, summary.Unprocessed)
		assert.Equal(t, 0, summary.Successful)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummarize(t *testing.T) {
	ok, failed := true, false
	d := models.SalaryDisbursement{ID: 7, Status: models.ApprovalApproved}
	details := []models.SalaryDisbursementDetail{
		{ID: 1, Success: &ok},
		{ID: 2, Success: &ok},
		{ID: 3, Success: &failed},
		{ID: 4},
	}

	s := models.Summarize(d, details)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Unprocessed)
}
