package services

import (
	"database/sql"
	"log"

	"github.com/trustline/backoffice/internal/models"
)

// BeneficiaryService is the directory of registered payees.
type BeneficiaryService struct {
	db *sql.DB
}

func NewBeneficiaryService(db *sql.DB) *BeneficiaryService {
	return &BeneficiaryService{db: db}
}

const beneficiarySelect = `
	SELECT beneficiary_id, client_id, beneficiary_name, account_number, bank_name, ifsc_code, is_active, created_at
	FROM beneficiaries`

func (s *BeneficiaryService) GetByID(beneficiaryID int64) (*models.Beneficiary, error) {
	var b models.Beneficiary
	err := s.db.QueryRow(beneficiarySelect+` WHERE beneficiary_id = $1`, beneficiaryID).
		Scan(&b.ID, &b.ClientID, &b.Name, &b.AccountNumber, &b.BankName, &b.IFSCCode, &b.IsActive, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("beneficiary %d not found", beneficiaryID)
	}
	if err != nil {
		return nil, Internal("failed to read beneficiary", err)
	}
	return &b, nil
}

func (s *BeneficiaryService) GetByClient(clientID int64) ([]models.Beneficiary, error) {
	rows, err := s.db.Query(beneficiarySelect+` WHERE client_id = $1 ORDER BY beneficiary_name`, clientID)
	if err != nil {
		return nil, Internal("failed to list beneficiaries", err)
	}
	defer rows.Close()

	beneficiaries := []models.Beneficiary{}
	for rows.Next() {
		var b models.Beneficiary
		if err := rows.Scan(&b.ID, &b.ClientID, &b.Name, &b.AccountNumber, &b.BankName, &b.IFSCCode, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, Internal("failed to scan beneficiary", err)
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, rows.Err()
}

type CreateBeneficiaryRequest struct {
	ClientID      int64  `json:"clientId" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,min=2"`
	AccountNumber string `json:"accountNumber" validate:"required,min=8,max=20,numeric"`
	BankName      string `json:"bankName" validate:"required"`
	IFSCCode      string `json:"ifscCode" validate:"required,alphanum,len=11"`
}

func (s *BeneficiaryService) Create(req CreateBeneficiaryRequest) (*models.Beneficiary, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`, req.ClientID).Scan(&exists); err != nil {
		return nil, Internal("failed to look up client", err)
	}
	if !exists {
		return nil, NotFoundf("client %d not found", req.ClientID)
	}

	b := &models.Beneficiary{
		ClientID:      req.ClientID,
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		IFSCCode:      req.IFSCCode,
		IsActive:      true,
	}
	err := s.db.QueryRow(`
		INSERT INTO beneficiaries (client_id, beneficiary_name, account_number, bank_name, ifsc_code, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, true, NOW())
		RETURNING beneficiary_id, created_at`,
		req.ClientID, req.Name, req.AccountNumber, req.BankName, req.IFSCCode,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, Internal("failed to create beneficiary", err)
	}
	return b, nil
}

// SetActive toggles whether the beneficiary may receive payments.
func (s *BeneficiaryService) SetActive(beneficiaryID int64, active bool) error {
	res, err := s.db.Exec(`UPDATE beneficiaries SET is_active = $1 WHERE beneficiary_id = $2`, active, beneficiaryID)
	if err != nil {
		return Internal("failed to update beneficiary", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundf("beneficiary %d not found", beneficiaryID)
	}
	log.Printf("[BENEFICIARY] Beneficiary %d active=%t", beneficiaryID, active)
	return nil
}
