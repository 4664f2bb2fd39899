package services

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/trustline/backoffice/internal/models"
)

// AccountService is the single authority over account balances. Every
// mutation goes through a row lock held for the whole check-and-write, so
// concurrent operations on the same account serialize; different accounts
// proceed in parallel.
type AccountService struct {
	db       *sql.DB
	ledger   *TransactionService
	audit    *AuditService
	notifier *NotificationService
}

func NewAccountService(db *sql.DB, ledger *TransactionService, audit *AuditService, notifier *NotificationService) *AccountService {
	return &AccountService{db: db, ledger: ledger, audit: audit, notifier: notifier}
}

type CreateAccountRequest struct {
	ClientID       int64  `json:"clientId" validate:"required,gt=0"`
	BankID         int64  `json:"bankId" validate:"required,gt=0"`
	AccountType    string `json:"accountType" validate:"required,oneof=SAVINGS CURRENT SALARY"`
	AccountNumber  string `json:"accountNumber,omitempty" validate:"omitempty,len=12,numeric"`
	InitialBalance int64  `json:"initialBalance" validate:"gte=0"`
	Activate       bool   `json:"activate"`
	CreatedBy      int64  `json:"-"`
}

// CreateAccount opens a new account for a client. The account number is
// generated from a CSPRNG unless the caller supplies one.
func (s *AccountService) CreateAccount(req CreateAccountRequest) (*models.Account, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`, req.ClientID).Scan(&exists); err != nil {
		return nil, Internal("failed to look up client", err)
	}
	if !exists {
		return nil, NotFoundf("client %d not found", req.ClientID)
	}

	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM banks WHERE bank_id = $1)`, req.BankID).Scan(&exists); err != nil {
		return nil, Internal("failed to look up bank", err)
	}
	if !exists {
		return nil, NotFoundf("bank %d not found", req.BankID)
	}

	number := req.AccountNumber
	if number == "" {
		number = generateAccountNumber()
	}

	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`, number).Scan(&exists); err != nil {
		return nil, Internal("failed to check account number", err)
	}
	if exists {
		return nil, Duplicatef("account number %s already exists", number)
	}

	status := models.AccountStatusInactive
	if req.Activate {
		status = models.AccountStatusActive
	}

	account := &models.Account{
		AccountNumber: number,
		ClientID:      req.ClientID,
		BankID:        req.BankID,
		Balance:       req.InitialBalance,
		Version:       1,
		Status:        status,
		Type:          req.AccountType,
	}

	err := s.db.QueryRow(`
		INSERT INTO accounts (account_number, client_id, bank_id, balance, version, status, account_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, NOW(), NOW())
		RETURNING account_id, created_at, updated_at`,
		number, req.ClientID, req.BankID, req.InitialBalance, status, req.AccountType,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, Duplicatef("account number %s already exists", number)
	}
	if err != nil {
		return nil, Internal("failed to create account", err)
	}

	log.Printf("[ACCOUNT] Created account %s for client %d", number, req.ClientID)
	go s.audit.Record("CREATE", "Account", account.ID, req.CreatedBy, models.RoleBankUser, "account opened")
	go s.notifyOpened(account)
	return account, nil
}

func (s *AccountService) notifyOpened(account *models.Account) {
	var email string
	err := s.db.QueryRow(`SELECT contact_email FROM clients WHERE client_id = $1`, account.ClientID).Scan(&email)
	if err != nil {
		log.Printf("[ACCOUNT] Skipping open notification for account %d: %v", account.ID, err)
		return
	}
	s.notifier.Notify(email, TemplateAccountOpened, map[string]any{
		"account_number": account.AccountNumber,
		"account_type":   account.Type,
	})
}

// Credit increases the account balance and returns the new balance. The
// mutation goes through the transaction ledger, so the balance change and
// its history row commit together; a credit with no transaction row cannot
// exist.
func (s *AccountService) Credit(accountID, amount int64) (int64, error) {
	txn, err := s.ledger.Record(RecordInput{
		AccountID:   accountID,
		Amount:      amount,
		Direction:   models.DirectionCredit,
		Description: "Over-the-counter credit",
	})
	if err != nil {
		return 0, err
	}
	return txn.BalanceAfter, nil
}

// Debit atomically checks and decreases the balance, recording the history
// row in the same unit. Insufficient funds is a terminal, reported
// condition; there are no retries.
func (s *AccountService) Debit(accountID, amount int64) (int64, error) {
	txn, err := s.ledger.Record(RecordInput{
		AccountID:   accountID,
		Amount:      amount,
		Direction:   models.DirectionDebit,
		Description: "Over-the-counter debit",
	})
	if err != nil {
		return 0, err
	}
	return txn.BalanceAfter, nil
}

// GetBalance is a point-in-time read with no side effect.
func (s *AccountService) GetBalance(accountID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM accounts WHERE account_id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, NotFoundf("account %d not found", accountID)
	}
	if err != nil {
		return 0, Internal("failed to read balance", err)
	}
	return balance, nil
}

func (s *AccountService) GetByID(accountID int64) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRow(accountSelect+` WHERE account_id = $1`, accountID))
}

func (s *AccountService) GetByNumber(accountNumber string) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRow(accountSelect+` WHERE account_number = $1`, accountNumber))
}

func (s *AccountService) GetByClient(clientID int64) ([]models.Account, error) {
	rows, err := s.db.Query(accountSelect+` WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, Internal("failed to list accounts", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.ClientID, &a.BankID, &a.Balance,
			&a.Version, &a.Status, &a.Type, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, Internal("failed to scan account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateStatus transitions an account between ACTIVE/INACTIVE/CLOSED.
// Accounts are never deleted; CLOSED is final.
func (s *AccountService) UpdateStatus(accountID int64, status string, actorID int64) error {
	if status != models.AccountStatusActive && status != models.AccountStatusInactive && status != models.AccountStatusClosed {
		return Validationf("invalid account status %q", status)
	}

	var current string
	err := s.db.QueryRow(`SELECT status FROM accounts WHERE account_id = $1`, accountID).Scan(&current)
	if err == sql.ErrNoRows {
		return NotFoundf("account %d not found", accountID)
	}
	if err != nil {
		return Internal("failed to read account status", err)
	}
	if current == models.AccountStatusClosed {
		return InvalidStatef("account %d is closed", accountID)
	}

	res, err := s.db.Exec(`UPDATE accounts SET status = $1, updated_at = NOW() WHERE account_id = $2 AND status <> $3`,
		status, accountID, models.AccountStatusClosed)
	if err != nil {
		return Internal("failed to update account status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return InvalidStatef("account %d is closed", accountID)
	}

	log.Printf("[ACCOUNT] Account %d status -> %s", accountID, status)
	go s.audit.Record("STATUS_CHANGE", "Account", accountID, actorID, models.RoleBankUser, "status set to "+status)
	return nil
}

const accountSelect = `
	SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type, created_at, updated_at
	FROM accounts`

func (s *AccountService) scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.ClientID, &a.BankID, &a.Balance,
		&a.Version, &a.Status, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account not found")
	}
	if err != nil {
		return nil, Internal("failed to read account", err)
	}
	return &a, nil
}

// lockAccount takes the row lock that serializes all balance mutations on
// one account. Held until the surrounding tx commits or rolls back.
func lockAccount(tx *sql.Tx, accountID int64) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(`
		SELECT account_id, account_number, client_id, bank_id, balance, version, status, account_type
		FROM accounts
		WHERE account_id = $1
		FOR UPDATE`, accountID).
		Scan(&a.ID, &a.AccountNumber, &a.ClientID, &a.BankID, &a.Balance, &a.Version, &a.Status, &a.Type)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("account %d not found", accountID)
	}
	if err != nil {
		return nil, Internal("failed to lock account", err)
	}
	return &a, nil
}

// applyBalance writes the new balance guarded by the version column. A zero
// row count means another writer slipped in despite the lock.
func applyBalance(tx *sql.Tx, accountID, newBalance int64, version int) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE account_id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)
	if err != nil {
		return Internal("failed to update balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Internal("failed to update balance", err)
	}
	if rowsAffected == 0 {
		return Internal("optimistic lock failed", errors.New("stale account version"))
	}
	return nil
}

// generateAccountNumber returns a 12-digit number from crypto/rand.
func generateAccountNumber() string {
	const digits = "0123456789"
	number := make([]byte, 12)
	for i := range number {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			panic(err) // CSPRNG failure is not recoverable
		}
		number[i] = digits[n.Int64()]
	}
	// Leading zero would collide with shorter numbers after formatting
	if number[0] == '0' {
		number[0] = '9'
	}
	return string(number)
}
