package services

import (
	"database/sql"
	"log"

	"github.com/trustline/backoffice/internal/models"
)

// ClientService resolves clients and the account their payments and
// disbursements debit from. Entities reference each other by id only;
// navigation happens through these lookups.
type ClientService struct {
	db *sql.DB
}

func NewClientService(db *sql.DB) *ClientService {
	return &ClientService{db: db}
}

const clientSelect = `
	SELECT client_id, client_name, bank_id, user_id, contact_email, is_verified, created_at
	FROM clients`

func (s *ClientService) GetByID(clientID int64) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRow(clientSelect+` WHERE client_id = $1`, clientID).
		Scan(&c.ID, &c.Name, &c.BankID, &c.UserID, &c.ContactEmail, &c.IsVerified, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("client %d not found", clientID)
	}
	if err != nil {
		return nil, Internal("failed to read client", err)
	}
	return &c, nil
}

func (s *ClientService) GetByBank(bankID int64) ([]models.Client, error) {
	rows, err := s.db.Query(clientSelect+` WHERE bank_id = $1 ORDER BY client_name`, bankID)
	if err != nil {
		return nil, Internal("failed to list clients", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.BankID, &c.UserID, &c.ContactEmail, &c.IsVerified, &c.CreatedAt); err != nil {
			return nil, Internal("failed to scan client", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetActiveAccount resolves the account a client's outgoing money moves
// through. Exactly the oldest active account wins when several exist.
func (s *ClientService) GetActiveAccount(clientID int64) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(accountSelect+`
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1`, clientID, models.AccountStatusActive).
		Scan(&a.ID, &a.AccountNumber, &a.ClientID, &a.BankID, &a.Balance,
			&a.Version, &a.Status, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no active account for client %d", clientID)
	}
	if err != nil {
		return nil, Internal("failed to resolve active account", err)
	}
	return &a, nil
}

type CreateClientRequest struct {
	Name         string `json:"name" validate:"required,min=2"`
	BankID       int64  `json:"bankId" validate:"required,gt=0"`
	UserID       int64  `json:"userId" validate:"required,gt=0"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
}

func (s *ClientService) Create(req CreateClientRequest) (*models.Client, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM banks WHERE bank_id = $1)`, req.BankID).Scan(&exists); err != nil {
		return nil, Internal("failed to look up bank", err)
	}
	if !exists {
		return nil, NotFoundf("bank %d not found", req.BankID)
	}

	c := &models.Client{
		Name:         req.Name,
		BankID:       req.BankID,
		UserID:       req.UserID,
		ContactEmail: req.ContactEmail,
	}
	err := s.db.QueryRow(`
		INSERT INTO clients (client_name, bank_id, user_id, contact_email, is_verified, created_at)
		VALUES ($1, $2, $3, $4, false, NOW())
		RETURNING client_id, created_at`,
		req.Name, req.BankID, req.UserID, req.ContactEmail,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, Internal("failed to create client", err)
	}

	log.Printf("[CLIENT] Onboarded client %q under bank %d", req.Name, req.BankID)
	return c, nil
}
