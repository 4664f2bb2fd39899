package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestBankService_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBankService(db, NewAuditService(db))

	t.Run("successful registration", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs("TRST0000001").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO banks").
			WithArgs("Trustline Bank", "TRST0000001", "1 Marina Road", "+2348000000", "support@trustline.example").
			WillReturnRows(sqlmock.NewRows([]string{"bank_id", "created_at"}).AddRow(3, time.Now()))

		bank, err := service.Create(CreateBankRequest{
			Name:          "Trustline Bank",
			IFSCCode:      "TRST0000001",
			Address:       "1 Marina Road",
			ContactNumber: "+2348000000",
			SupportEmail:  "support@trustline.example",
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(3), bank.ID)
		assert.Equal(t, "TRST0000001", bank.IFSCCode)
	})

	t.Run("duplicate IFSC code rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs("TRST0000001").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Create(CreateBankRequest{Name: "Other Bank", IFSCCode: "TRST0000001"})
		assert.Error(t, err)
		assert.Equal(t, KindDuplicate, KindOf(err))
	})

	t.Run("concurrent registration loses cleanly", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM banks").
			WithArgs("TRST0000002").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO banks").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.Create(CreateBankRequest{Name: "Race Bank", IFSCCode: "TRST0000002"})
		assert.Error(t, err)
		assert.Equal(t, KindDuplicate, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBankService_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBankService(db, NewAuditService(db))

	bankRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"bank_id", "bank_name", "ifsc_code", "address", "contact_number", "support_email", "created_at"}).
			AddRow(3, "Trustline Bank", "TRST0000001", "1 Marina Road", "+2348000000", "support@trustline.example", time.Now())
	}

	t.Run("only supplied fields change", func(t *testing.T) {
		mock.ExpectQuery("SELECT bank_id, bank_name, ifsc_code").
			WithArgs(int64(3)).
			WillReturnRows(bankRow())
		mock.ExpectExec("UPDATE banks SET").
			WithArgs("Trustline Bank", "2 Marina Road", "+2348000000", "support@trustline.example", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		bank, err := service.Update(3, UpdateBankRequest{Address: "2 Marina Road"})
		assert.NoError(t, err)
		assert.Equal(t, "Trustline Bank", bank.Name)
		assert.Equal(t, "2 Marina Road", bank.Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown bank", func(t *testing.T) {
		mock.ExpectQuery("SELECT bank_id, bank_name, ifsc_code").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"bank_id"}))

		_, err := service.Update(99, UpdateBankRequest{Name: "Ghost"})
		assert.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestBankService_Statistics(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBankService(db, NewAuditService(db))

	mock.ExpectQuery("SELECT bank_id, bank_name, ifsc_code").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"bank_id", "bank_name", "ifsc_code", "address", "contact_number", "support_email", "created_at"}).
			AddRow(3, "Trustline Bank", "TRST0000001", "", "", "", time.Now()))
	mock.ExpectQuery("SELECT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"users", "clients", "accounts", "balance"}).
			AddRow(4, 12, 30, 9_500_000))

	stats, err := service.Statistics(3)
	assert.NoError(t, err)
	assert.Equal(t, "Trustline Bank", stats.BankName)
	assert.Equal(t, int64(12), stats.TotalClients)
	assert.Equal(t, int64(9_500_000), stats.TotalBalance)
}
