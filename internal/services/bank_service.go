package services

import (
	"database/sql"
	"log"

	"github.com/trustline/backoffice/internal/models"
)

// BankService manages the bank registry every other entity hangs off.
// Banks are created by super admins during platform setup; nothing else
// in the system can exist until at least one bank does.
type BankService struct {
	db    *sql.DB
	audit *AuditService
}

func NewBankService(db *sql.DB, audit *AuditService) *BankService {
	return &BankService{db: db, audit: audit}
}

const bankSelect = `
	SELECT bank_id, bank_name, ifsc_code, address, contact_number, support_email, created_at
	FROM banks`

type CreateBankRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	IFSCCode      string `json:"ifscCode" validate:"required,len=11,alphanum"`
	Address       string `json:"address" validate:"max=200"`
	ContactNumber string `json:"contactNumber" validate:"max=20"`
	SupportEmail  string `json:"supportEmail" validate:"omitempty,email"`
	CreatedBy     int64  `json:"-"`
}

func (s *BankService) Create(req CreateBankRequest) (*models.Bank, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM banks WHERE ifsc_code = $1)`, req.IFSCCode).Scan(&exists); err != nil {
		return nil, Internal("failed to check IFSC code", err)
	}
	if exists {
		return nil, Duplicatef("IFSC code %s already registered", req.IFSCCode)
	}

	bank := &models.Bank{
		Name:          req.Name,
		IFSCCode:      req.IFSCCode,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		SupportEmail:  req.SupportEmail,
	}
	err := s.db.QueryRow(`
		INSERT INTO banks (bank_name, ifsc_code, address, contact_number, support_email, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING bank_id, created_at`,
		req.Name, req.IFSCCode, req.Address, req.ContactNumber, req.SupportEmail,
	).Scan(&bank.ID, &bank.CreatedAt)
	if isUniqueViolation(err) {
		return nil, Duplicatef("bank name or IFSC code already registered")
	}
	if err != nil {
		return nil, Internal("failed to create bank", err)
	}

	log.Printf("[BANK] Registered bank %q (%s)", req.Name, req.IFSCCode)
	go s.audit.Record("CREATE", "Bank", bank.ID, req.CreatedBy, models.RoleSuperAdmin, "bank registered")
	return bank, nil
}

func (s *BankService) GetByID(bankID int64) (*models.Bank, error) {
	var b models.Bank
	err := s.db.QueryRow(bankSelect+` WHERE bank_id = $1`, bankID).
		Scan(&b.ID, &b.Name, &b.IFSCCode, &b.Address, &b.ContactNumber, &b.SupportEmail, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("bank %d not found", bankID)
	}
	if err != nil {
		return nil, Internal("failed to read bank", err)
	}
	return &b, nil
}

func (s *BankService) List() ([]models.Bank, error) {
	rows, err := s.db.Query(bankSelect + ` ORDER BY bank_name`)
	if err != nil {
		return nil, Internal("failed to list banks", err)
	}
	defer rows.Close()

	banks := []models.Bank{}
	for rows.Next() {
		var b models.Bank
		if err := rows.Scan(&b.ID, &b.Name, &b.IFSCCode, &b.Address, &b.ContactNumber, &b.SupportEmail, &b.CreatedAt); err != nil {
			return nil, Internal("failed to scan bank", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

type UpdateBankRequest struct {
	Name          string `json:"name" validate:"omitempty,min=2,max=100"`
	Address       string `json:"address" validate:"max=200"`
	ContactNumber string `json:"contactNumber" validate:"max=20"`
	SupportEmail  string `json:"supportEmail" validate:"omitempty,email"`
	UpdatedBy     int64  `json:"-"`
}

// Update applies only the fields the caller supplied. The IFSC code is
// immutable once a bank is registered.
func (s *BankService) Update(bankID int64, req UpdateBankRequest) (*models.Bank, error) {
	bank, err := s.GetByID(bankID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		bank.Name = req.Name
	}
	if req.Address != "" {
		bank.Address = req.Address
	}
	if req.ContactNumber != "" {
		bank.ContactNumber = req.ContactNumber
	}
	if req.SupportEmail != "" {
		bank.SupportEmail = req.SupportEmail
	}

	_, err = s.db.Exec(`
		UPDATE banks SET bank_name = $1, address = $2, contact_number = $3, support_email = $4
		WHERE bank_id = $5`,
		bank.Name, bank.Address, bank.ContactNumber, bank.SupportEmail, bankID)
	if isUniqueViolation(err) {
		return nil, Duplicatef("bank name %s already registered", bank.Name)
	}
	if err != nil {
		return nil, Internal("failed to update bank", err)
	}

	log.Printf("[BANK] Updated bank %d", bankID)
	go s.audit.Record("UPDATE", "Bank", bankID, req.UpdatedBy, models.RoleSuperAdmin, "bank details updated")
	return bank, nil
}

// BankStatistics is the operational summary shown on the admin dashboard.
type BankStatistics struct {
	BankID        int64  `json:"bank_id"`
	BankName      string `json:"bank_name"`
	TotalUsers    int64  `json:"total_users"`
	TotalClients  int64  `json:"total_clients"`
	TotalAccounts int64  `json:"total_accounts"`
	TotalBalance  int64  `json:"total_balance"`
}

func (s *BankService) Statistics(bankID int64) (*BankStatistics, error) {
	bank, err := s.GetByID(bankID)
	if err != nil {
		return nil, err
	}

	stats := &BankStatistics{BankID: bank.ID, BankName: bank.Name}
	err = s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM users WHERE bank_id = $1),
			(SELECT COUNT(*) FROM clients WHERE bank_id = $1),
			(SELECT COUNT(*) FROM accounts WHERE bank_id = $1),
			(SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE bank_id = $1)`,
		bankID).
		Scan(&stats.TotalUsers, &stats.TotalClients, &stats.TotalAccounts, &stats.TotalBalance)
	if err != nil {
		return nil, Internal("failed to read bank statistics", err)
	}
	return stats, nil
}
