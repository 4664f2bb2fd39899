package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/trustline/backoffice/internal/config"
	"github.com/trustline/backoffice/internal/models"
)

// PaymentService drives a payment through PENDING -> APPROVED/REJECTED.
// Both terminal states are final. Approval and its ledger debit are one
// database transaction: if the debit fails, the payment stays PENDING.
type PaymentService struct {
	db            *sql.DB
	ledger        *TransactionService
	clients       *ClientService
	beneficiaries *BeneficiaryService
	audit         *AuditService
	notifier      *NotificationService
	policy        *config.ApprovalPolicy
}

func NewPaymentService(
	db *sql.DB,
	ledger *TransactionService,
	clients *ClientService,
	beneficiaries *BeneficiaryService,
	audit *AuditService,
	notifier *NotificationService,
	policy *config.ApprovalPolicy,
) *PaymentService {
	return &PaymentService{
		db:            db,
		ledger:        ledger,
		clients:       clients,
		beneficiaries: beneficiaries,
		audit:         audit,
		notifier:      notifier,
		policy:        policy,
	}
}

type CreatePaymentRequest struct {
	ClientID      int64  `json:"clientId" validate:"required,gt=0"`
	BeneficiaryID int64  `json:"beneficiaryId" validate:"required,gt=0"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Purpose       string `json:"purpose,omitempty" validate:"max=200"`
}

// Create registers a payment request in PENDING. No ledger effect until a
// bank user decides.
func (s *PaymentService) Create(req CreatePaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, Validationf("payment amount must be positive")
	}

	client, err := s.clients.GetByID(req.ClientID)
	if err != nil {
		return nil, err
	}

	beneficiary, err := s.beneficiaries.GetByID(req.BeneficiaryID)
	if err != nil {
		return nil, err
	}
	if beneficiary.ClientID != req.ClientID {
		return nil, Validationf("beneficiary %d does not belong to client %d", req.BeneficiaryID, req.ClientID)
	}
	if !beneficiary.IsActive {
		return nil, Validationf("beneficiary %q is not active", beneficiary.Name)
	}

	payment := &models.Payment{
		ClientID:      req.ClientID,
		BeneficiaryID: req.BeneficiaryID,
		Amount:        req.Amount,
		Purpose:       req.Purpose,
		Status:        models.ApprovalPending,
	}
	err = s.db.QueryRow(`
		INSERT INTO payments (client_id, beneficiary_id, amount, purpose, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING payment_id, created_at`,
		req.ClientID, req.BeneficiaryID, req.Amount, req.Purpose, models.ApprovalPending,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, Internal("failed to create payment", err)
	}

	log.Printf("[PAYMENT] Payment %d created: client %d -> beneficiary %q, amount %d",
		payment.ID, client.ID, beneficiary.Name, req.Amount)
	go s.audit.Record("CREATE", "Payment", payment.ID, client.UserID, models.RoleClient, "payment requested")
	return payment, nil
}

// Approve flips PENDING -> APPROVED and debits the client's active account
// in the same transaction. Under concurrent decisions on one payment
// exactly one caller wins; the rest get InvalidState.
func (s *PaymentService) Approve(paymentID, approverID int64, remarks string) (*models.Payment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var clientID, beneficiaryID, amount int64
	var status string
	err = tx.QueryRow(`
		SELECT client_id, beneficiary_id, amount, status
		FROM payments
		WHERE payment_id = $1
		FOR UPDATE`, paymentID).Scan(&clientID, &beneficiaryID, &amount, &status)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("payment %d not found", paymentID)
	}
	if err != nil {
		return nil, Internal("failed to read payment", err)
	}
	if status != models.ApprovalPending {
		return nil, InvalidStatef("payment %d is %s, not pending", paymentID, status)
	}

	if s.policy.RequireSameBank {
		if err := s.checkSameBank(tx, approverID, clientID); err != nil {
			return nil, err
		}
	}

	result, err := tx.Exec(`
		UPDATE payments
		SET status = $1, approved_by = $2, approved_at = NOW(), remarks = $3
		WHERE payment_id = $4 AND status = $5`,
		models.ApprovalApproved, approverID, remarks, paymentID, models.ApprovalPending)
	if err != nil {
		return nil, Internal("failed to approve payment", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, InvalidStatef("payment %d is no longer pending", paymentID)
	}

	var accountID int64
	err = tx.QueryRow(`
		SELECT account_id FROM accounts
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1`, clientID, models.AccountStatusActive).Scan(&accountID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no active account for client %d", clientID)
	}
	if err != nil {
		return nil, Internal("failed to resolve client account", err)
	}

	pid := paymentID
	aid := approverID
	if _, err := s.ledger.RecordTx(tx, RecordInput{
		AccountID:   accountID,
		ClientID:    clientID,
		Amount:      amount,
		Direction:   models.DirectionDebit,
		PaymentID:   &pid,
		ApprovedBy:  &aid,
		Description: fmt.Sprintf("Payment %d to beneficiary %d", paymentID, beneficiaryID),
	}); err != nil {
		// InsufficientFunds and friends roll the status flip back too;
		// the payment remains PENDING.
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit approval", err)
	}

	log.Printf("[PAYMENT] Payment %d approved by bank user %d", paymentID, approverID)
	go s.audit.RecordApproval("Payment", paymentID, approverID, true, remarks)
	go s.notifyDecision(clientID, paymentID, amount, TemplatePaymentApproved)

	return s.GetByID(paymentID)
}

// Reject flips PENDING -> REJECTED. A non-empty reason is required and no
// ledger mutation happens.
func (s *PaymentService) Reject(paymentID, approverID int64, reason string) (*models.Payment, error) {
	if reason == "" {
		return nil, Validationf("rejection reason is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var clientID, amount int64
	var status string
	err = tx.QueryRow(`
		SELECT client_id, amount, status FROM payments WHERE payment_id = $1 FOR UPDATE`,
		paymentID).Scan(&clientID, &amount, &status)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("payment %d not found", paymentID)
	}
	if err != nil {
		return nil, Internal("failed to read payment", err)
	}
	if status != models.ApprovalPending {
		return nil, InvalidStatef("payment %d is %s, not pending", paymentID, status)
	}

	if s.policy.RequireSameBank {
		if err := s.checkSameBank(tx, approverID, clientID); err != nil {
			return nil, err
		}
	}

	result, err := tx.Exec(`
		UPDATE payments
		SET status = $1, approved_by = $2, approved_at = NOW(), rejection_reason = $3
		WHERE payment_id = $4 AND status = $5`,
		models.ApprovalRejected, approverID, reason, paymentID, models.ApprovalPending)
	if err != nil {
		return nil, Internal("failed to reject payment", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, InvalidStatef("payment %d is no longer pending", paymentID)
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit rejection", err)
	}

	log.Printf("[PAYMENT] Payment %d rejected by bank user %d: %s", paymentID, approverID, reason)
	go s.audit.RecordApproval("Payment", paymentID, approverID, false, reason)
	go s.notifyDecision(clientID, paymentID, amount, TemplatePaymentRejected)

	return s.GetByID(paymentID)
}

// checkSameBank enforces the cross-tenant policy: the approving bank user
// must belong to the client's bank.
func (s *PaymentService) checkSameBank(tx *sql.Tx, approverID, clientID int64) error {
	var approverBank sql.NullInt64
	err := tx.QueryRow(`SELECT bank_id FROM users WHERE user_id = $1 AND role = $2`,
		approverID, models.RoleBankUser).Scan(&approverBank)
	if err == sql.ErrNoRows {
		return NotFoundf("bank user %d not found", approverID)
	}
	if err != nil {
		return Internal("failed to read approver", err)
	}

	var clientBank int64
	if err := tx.QueryRow(`SELECT bank_id FROM clients WHERE client_id = $1`, clientID).Scan(&clientBank); err != nil {
		return Internal("failed to read client bank", err)
	}

	if !approverBank.Valid || approverBank.Int64 != clientBank {
		return Validationf("approver does not belong to the client's bank")
	}
	return nil
}

func (s *PaymentService) notifyDecision(clientID, paymentID, amount int64, template string) {
	client, err := s.clients.GetByID(clientID)
	if err != nil {
		log.Printf("[PAYMENT] Skipping notification for payment %d: %v", paymentID, err)
		return
	}
	s.notifier.Notify(client.ContactEmail, template, map[string]any{
		"payment_id": paymentID,
		"amount":     amount,
	})
}

const paymentSelect = `
	SELECT payment_id, client_id, beneficiary_id, amount, COALESCE(purpose, ''), status,
	       approved_by, approved_at, COALESCE(remarks, ''), COALESCE(rejection_reason, ''), created_at
	FROM payments`

func (s *PaymentService) GetByID(paymentID int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.QueryRow(paymentSelect+` WHERE payment_id = $1`, paymentID).
		Scan(&p.ID, &p.ClientID, &p.BeneficiaryID, &p.Amount, &p.Purpose, &p.Status,
			&p.ApprovedBy, &p.ApprovedAt, &p.Remarks, &p.RejectionReason, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("payment %d not found", paymentID)
	}
	if err != nil {
		return nil, Internal("failed to read payment", err)
	}
	return &p, nil
}

func (s *PaymentService) GetByClient(clientID int64) ([]models.Payment, error) {
	return s.queryPayments(paymentSelect+` WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

func (s *PaymentService) GetByStatus(clientID int64, status string) ([]models.Payment, error) {
	return s.queryPayments(paymentSelect+` WHERE client_id = $1 AND status = $2 ORDER BY created_at DESC`, clientID, status)
}

func (s *PaymentService) GetByBeneficiary(beneficiaryID int64) ([]models.Payment, error) {
	return s.queryPayments(paymentSelect+` WHERE beneficiary_id = $1 ORDER BY created_at DESC`, beneficiaryID)
}

func (s *PaymentService) GetByDateRange(clientID int64, from, to time.Time) ([]models.Payment, error) {
	return s.queryPayments(paymentSelect+` WHERE client_id = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at DESC`,
		clientID, from, to)
}

// GetPendingByBank is the bank user work queue: pending payments of the
// bank's clients, oldest first, flagged urgent past the policy threshold.
func (s *PaymentService) GetPendingByBank(bankID int64) ([]models.PendingPayment, error) {
	rows, err := s.db.Query(`
		SELECT p.payment_id, c.client_name, b.beneficiary_name, p.amount, COALESCE(p.purpose, ''), p.created_at
		FROM payments p
		JOIN clients c ON p.client_id = c.client_id
		JOIN beneficiaries b ON p.beneficiary_id = b.beneficiary_id
		WHERE p.status = $1 AND c.bank_id = $2
		ORDER BY p.created_at ASC`, models.ApprovalPending, bankID)
	if err != nil {
		return nil, Internal("failed to list pending payments", err)
	}
	defer rows.Close()

	pending := []models.PendingPayment{}
	now := time.Now()
	for rows.Next() {
		var pp models.PendingPayment
		if err := rows.Scan(&pp.PaymentID, &pp.ClientName, &pp.BeneficiaryName, &pp.Amount, &pp.Purpose, &pp.CreatedAt); err != nil {
			return nil, Internal("failed to scan pending payment", err)
		}
		pp.DaysPending = int(now.Sub(pp.CreatedAt).Hours() / 24)
		pp.IsUrgent = pp.DaysPending > s.policy.UrgentAfterDays
		pending = append(pending, pp)
	}
	return pending, rows.Err()
}

func (s *PaymentService) PendingCount(clientID *int64, bankID *int64) (int, error) {
	query := `SELECT COUNT(*) FROM payments p JOIN clients c ON p.client_id = c.client_id WHERE p.status = $1`
	args := []any{models.ApprovalPending}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND p.client_id = $%d", len(args))
	}
	if bankID != nil {
		args = append(args, *bankID)
		query += fmt.Sprintf(" AND c.bank_id = $%d", len(args))
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, Internal("failed to count pending payments", err)
	}
	return count, nil
}

func (s *PaymentService) TotalPendingAmount(clientID int64) (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE client_id = $1 AND status = $2`,
		clientID, models.ApprovalPending).Scan(&total)
	if err != nil {
		return 0, Internal("failed to sum pending payments", err)
	}
	return total, nil
}

// PaymentStatistics aggregates a client's payment counts and amounts.
type PaymentStatistics struct {
	TotalCount    int   `json:"total_count"`
	PendingCount  int   `json:"pending_count"`
	ApprovedCount int   `json:"approved_count"`
	RejectedCount int   `json:"rejected_count"`
	TotalApproved int64 `json:"total_approved_amount"`
	PendingAmount int64 `json:"pending_amount"`
}

func (s *PaymentService) Statistics(clientID int64) (*PaymentStatistics, error) {
	var st PaymentStatistics
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'APPROVED'),
		       COUNT(*) FILTER (WHERE status = 'REJECTED'),
		       COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0)
		FROM payments
		WHERE client_id = $1`, clientID).
		Scan(&st.TotalCount, &st.PendingCount, &st.ApprovedCount, &st.RejectedCount, &st.TotalApproved, &st.PendingAmount)
	if err != nil {
		return nil, Internal("failed to aggregate payment statistics", err)
	}
	return &st, nil
}

func (s *PaymentService) queryPayments(query string, args ...any) ([]models.Payment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal("failed to query payments", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.BeneficiaryID, &p.Amount, &p.Purpose, &p.Status,
			&p.ApprovedBy, &p.ApprovedAt, &p.Remarks, &p.RejectionReason, &p.CreatedAt); err != nil {
			return nil, Internal("failed to scan payment", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
