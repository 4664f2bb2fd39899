package services

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/trustline/backoffice/internal/config"
	"github.com/trustline/backoffice/internal/models"
)

// DisbursementService handles monthly salary batches. Approval settles each
// employee line in its own transaction, so one bounced debit never blocks or
// reverses the rest of the batch.
type DisbursementService struct {
	db        *sql.DB
	ledger    *TransactionService
	clients   *ClientService
	employees *EmployeeService
	audit     *AuditService
	notifier  *NotificationService
	policy    *config.ApprovalPolicy
}

func NewDisbursementService(
	db *sql.DB,
	ledger *TransactionService,
	clients *ClientService,
	employees *EmployeeService,
	audit *AuditService,
	notifier *NotificationService,
	policy *config.ApprovalPolicy,
) *DisbursementService {
	return &DisbursementService{
		db:        db,
		ledger:    ledger,
		clients:   clients,
		employees: employees,
		audit:     audit,
		notifier:  notifier,
		policy:    policy,
	}
}

type CreateDisbursementRequest struct {
	ClientID     int64   `json:"clientId" validate:"required,gt=0"`
	SalaryMonth  int     `json:"salaryMonth" validate:"required,min=1,max=12"`
	SalaryYear   int     `json:"salaryYear" validate:"required,min=2000,max=2100"`
	AllEmployees bool    `json:"allEmployees"`
	EmployeeIDs  []int64 `json:"employeeIds,omitempty" validate:"omitempty,dive,gt=0"`
	Bonus        int64   `json:"bonus" validate:"min=0"` // per-employee, in minor units
}

// Create opens a PENDING batch with one detail per employee. Each detail
// snapshots the employee's salary account so later account changes do not
// redirect the payout. One batch per client per period.
func (s *DisbursementService) Create(req CreateDisbursementRequest) (*models.DisbursementSummary, error) {
	client, err := s.clients.GetByID(req.ClientID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM salary_disbursements
			WHERE client_id = $1 AND salary_month = $2 AND salary_year = $3
		)`, req.ClientID, req.SalaryMonth, req.SalaryYear).Scan(&exists)
	if err != nil {
		return nil, Internal("failed to check disbursement period", err)
	}
	if exists {
		return nil, Duplicatef("disbursement for client %d already exists for %d/%d",
			req.ClientID, req.SalaryMonth, req.SalaryYear)
	}

	employees, err := s.resolveEmployees(req)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, Validationf("no active employees to disburse")
	}

	var total int64
	for _, e := range employees {
		total += e.Salary + req.Bonus
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	d := models.SalaryDisbursement{
		ClientID:     req.ClientID,
		TotalAmount:  total,
		SalaryMonth:  req.SalaryMonth,
		SalaryYear:   req.SalaryYear,
		AllEmployees: req.AllEmployees,
		Status:       models.ApprovalPending,
	}
	err = tx.QueryRow(`
		INSERT INTO salary_disbursements
			(client_id, total_amount, salary_month, salary_year, all_employees, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING salary_disbursement_id, created_at`,
		d.ClientID, d.TotalAmount, d.SalaryMonth, d.SalaryYear, d.AllEmployees, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if isUniqueViolation(err) {
		return nil, Duplicatef("disbursement for client %d already exists for %d/%d",
			req.ClientID, req.SalaryMonth, req.SalaryYear)
	}
	if err != nil {
		return nil, Internal("failed to create disbursement", err)
	}

	details := make([]models.SalaryDisbursementDetail, 0, len(employees))
	for _, e := range employees {
		dt := models.SalaryDisbursementDetail{
			DisbursementID:    d.ID,
			EmployeeID:        e.ID,
			Amount:            e.Salary + req.Bonus,
			EmployeeAccountID: e.AccountID,
		}
		err = tx.QueryRow(`
			INSERT INTO salary_disbursement_details
				(salary_disbursement_id, employee_id, amount, employee_account_id)
			VALUES ($1, $2, $3, $4)
			RETURNING detail_id`,
			dt.DisbursementID, dt.EmployeeID, dt.Amount, dt.EmployeeAccountID,
		).Scan(&dt.ID)
		if err != nil {
			return nil, Internal("failed to create disbursement detail", err)
		}
		details = append(details, dt)
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit disbursement", err)
	}

	log.Printf("[DISBURSE] Disbursement %d created: client %d, %d/%d, %d employees, total %d",
		d.ID, req.ClientID, req.SalaryMonth, req.SalaryYear, len(details), total)
	go s.audit.Record("CREATE", "SalaryDisbursement", d.ID, client.UserID, models.RoleClient,
		fmt.Sprintf("%d employees for %d/%d", len(details), req.SalaryMonth, req.SalaryYear))

	summary := models.Summarize(d, details)
	return &summary, nil
}

func (s *DisbursementService) resolveEmployees(req CreateDisbursementRequest) ([]models.Employee, error) {
	if req.AllEmployees {
		return s.employees.GetActiveEmployees(req.ClientID)
	}
	if len(req.EmployeeIDs) == 0 {
		return nil, Validationf("employeeIds is required when allEmployees is false")
	}

	employees := make([]models.Employee, 0, len(req.EmployeeIDs))
	seen := map[int64]bool{}
	for _, id := range req.EmployeeIDs {
		if seen[id] {
			return nil, Validationf("duplicate employee %d in selection", id)
		}
		seen[id] = true

		e, err := s.employees.GetByID(id)
		if err != nil {
			return nil, err
		}
		if e.ClientID != req.ClientID {
			return nil, Validationf("employee %d does not belong to client %d", id, req.ClientID)
		}
		if !e.IsActive {
			return nil, Validationf("employee %q is not active", e.FullName)
		}
		employees = append(employees, *e)
	}
	return employees, nil
}

// Approve flips PENDING -> APPROVED, then settles every detail. Each line
// runs in its own transaction: a failure marks that detail failed and the
// loop continues. The batch stays APPROVED even when some lines fail; the
// derived counts expose the split.
func (s *DisbursementService) Approve(disbursementID, approverID int64, remarks string) (*models.DisbursementSummary, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var clientID int64
	var status string
	err = tx.QueryRow(`
		SELECT client_id, status FROM salary_disbursements
		WHERE salary_disbursement_id = $1
		FOR UPDATE`, disbursementID).Scan(&clientID, &status)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("disbursement %d not found", disbursementID)
	}
	if err != nil {
		return nil, Internal("failed to read disbursement", err)
	}
	if status != models.ApprovalPending {
		return nil, InvalidStatef("disbursement %d is %s, not pending", disbursementID, status)
	}

	result, err := tx.Exec(`
		UPDATE salary_disbursements
		SET status = $1, approved_by = $2, approved_at = NOW(), remarks = $3
		WHERE salary_disbursement_id = $4 AND status = $5`,
		models.ApprovalApproved, approverID, remarks, disbursementID, models.ApprovalPending)
	if err != nil {
		return nil, Internal("failed to approve disbursement", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, InvalidStatef("disbursement %d is no longer pending", disbursementID)
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit approval", err)
	}

	log.Printf("[DISBURSE] Disbursement %d approved by bank user %d, processing details",
		disbursementID, approverID)

	summary, err := s.processDetails(disbursementID, clientID, approverID)
	if err != nil {
		return nil, err
	}

	go s.audit.RecordApproval("SalaryDisbursement", disbursementID, approverID, true,
		fmt.Sprintf("%d succeeded, %d failed", summary.Successful, summary.Failed))
	go s.notifyDecision(clientID, disbursementID, TemplateDisbursementApproved, summary)

	if s.policy.FlagPartialFailure && summary.Failed > 0 {
		log.Printf("[DISBURSE] Disbursement %d completed with partial failures: %d of %d",
			disbursementID, summary.Failed, summary.Total)
	}
	return summary, nil
}

// processDetails settles unprocessed details, at most policy.DisbursementWorkers
// at a time. Each detail's debit (and the employee credit when an account was
// snapshotted) shares a transaction with the success marker, so the marker is
// written exactly once and only alongside the money movement.
func (s *DisbursementService) processDetails(disbursementID, clientID, approverID int64) (*models.DisbursementSummary, error) {
	details, err := s.GetDetails(disbursementID)
	if err != nil {
		return nil, err
	}

	workers := s.policy.DisbursementWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range details {
		dt := &details[i]
		if dt.Success != nil {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(dt *models.SalaryDisbursementDetail) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := s.settleDetail(dt, clientID, approverID); err != nil {
				if markErr := s.markDetailFailed(dt, err); markErr != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = markErr
					}
					mu.Unlock()
				}
			}
		}(dt)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	d, err := s.getDisbursement(disbursementID)
	if err != nil {
		return nil, err
	}
	summary := models.Summarize(*d, details)
	return &summary, nil
}

func (s *DisbursementService) settleDetail(dt *models.SalaryDisbursementDetail, clientID, approverID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var sourceID int64
	err = tx.QueryRow(`
		SELECT account_id FROM accounts
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1`, clientID, models.AccountStatusActive).Scan(&sourceID)
	if err == sql.ErrNoRows {
		return NotFoundf("no active account for client %d", clientID)
	}
	if err != nil {
		return Internal("failed to resolve client account", err)
	}

	txn, err := s.ledger.RecordTx(tx, RecordInput{
		AccountID:   sourceID,
		ClientID:    clientID,
		Amount:      dt.Amount,
		Direction:   models.DirectionDebit,
		DetailID:    &dt.ID,
		ApprovedBy:  &approverID,
		Description: fmt.Sprintf("Salary disbursement detail %d, employee %d", dt.ID, dt.EmployeeID),
	})
	if err != nil {
		return err
	}

	if dt.EmployeeAccountID != nil {
		// The credit row is stamped with the employee account's own
		// holder, which may differ from the paying client.
		if _, err := s.ledger.RecordTx(tx, RecordInput{
			AccountID:   *dt.EmployeeAccountID,
			Amount:      dt.Amount,
			Direction:   models.DirectionCredit,
			DetailID:    &dt.ID,
			ApprovedBy:  &approverID,
			Description: fmt.Sprintf("Salary credit, employee %d", dt.EmployeeID),
		}); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`
		UPDATE salary_disbursement_details
		SET success = TRUE, transaction_id = $1, processed_at = NOW()
		WHERE detail_id = $2 AND success IS NULL`,
		txn.ID, dt.ID)
	if err != nil {
		return Internal("failed to mark detail processed", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return InvalidStatef("detail %d already processed", dt.ID)
	}

	if err := tx.Commit(); err != nil {
		return Internal("failed to commit detail", err)
	}

	ok := true
	now := time.Now()
	dt.Success = &ok
	dt.TransactionID = &txn.ID
	dt.ProcessedAt = &now
	return nil
}

func (s *DisbursementService) markDetailFailed(dt *models.SalaryDisbursementDetail, cause error) error {
	reason := UserMessage(cause)
	result, err := s.db.Exec(`
		UPDATE salary_disbursement_details
		SET success = FALSE, failure_reason = $1, processed_at = NOW()
		WHERE detail_id = $2 AND success IS NULL`,
		reason, dt.ID)
	if err != nil {
		return Internal("failed to mark detail failed", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Settled by a concurrent processor; leave its outcome alone.
		return nil
	}

	log.Printf("[DISBURSE] Detail %d failed: %v", dt.ID, cause)
	failed := false
	now := time.Now()
	dt.Success = &failed
	dt.FailureReason = reason
	dt.ProcessedAt = &now
	return nil
}

// Reject flips PENDING -> REJECTED with a mandatory reason. No detail is
// processed and no money moves.
func (s *DisbursementService) Reject(disbursementID, approverID int64, reason string) (*models.DisbursementSummary, error) {
	if reason == "" {
		return nil, Validationf("rejection reason is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var clientID int64
	var status string
	err = tx.QueryRow(`
		SELECT client_id, status FROM salary_disbursements
		WHERE salary_disbursement_id = $1
		FOR UPDATE`, disbursementID).Scan(&clientID, &status)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("disbursement %d not found", disbursementID)
	}
	if err != nil {
		return nil, Internal("failed to read disbursement", err)
	}
	if status != models.ApprovalPending {
		return nil, InvalidStatef("disbursement %d is %s, not pending", disbursementID, status)
	}

	result, err := tx.Exec(`
		UPDATE salary_disbursements
		SET status = $1, approved_by = $2, approved_at = NOW(), rejection_reason = $3
		WHERE salary_disbursement_id = $4 AND status = $5`,
		models.ApprovalRejected, approverID, reason, disbursementID, models.ApprovalPending)
	if err != nil {
		return nil, Internal("failed to reject disbursement", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, InvalidStatef("disbursement %d is no longer pending", disbursementID)
	}

	if err := tx.Commit(); err != nil {
		return nil, Internal("failed to commit rejection", err)
	}

	log.Printf("[DISBURSE] Disbursement %d rejected by bank user %d: %s", disbursementID, approverID, reason)
	go s.audit.RecordApproval("SalaryDisbursement", disbursementID, approverID, false, reason)
	go s.notifyDecision(clientID, disbursementID, TemplateDisbursementRejected, nil)

	return s.GetSummary(disbursementID)
}

const disbursementSelect = `
	SELECT salary_disbursement_id, client_id, total_amount, salary_month, salary_year,
	       all_employees, status, approved_by, approved_at,
	       COALESCE(remarks, ''), COALESCE(rejection_reason, ''), created_at
	FROM salary_disbursements`

func (s *DisbursementService) getDisbursement(disbursementID int64) (*models.SalaryDisbursement, error) {
	var d models.SalaryDisbursement
	err := s.db.QueryRow(disbursementSelect+` WHERE salary_disbursement_id = $1`, disbursementID).
		Scan(&d.ID, &d.ClientID, &d.TotalAmount, &d.SalaryMonth, &d.SalaryYear,
			&d.AllEmployees, &d.Status, &d.ApprovedBy, &d.ApprovedAt,
			&d.Remarks, &d.RejectionReason, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("disbursement %d not found", disbursementID)
	}
	if err != nil {
		return nil, Internal("failed to read disbursement", err)
	}
	return &d, nil
}

// GetSummary returns the disbursement with its details and the counts
// derived from them.
func (s *DisbursementService) GetSummary(disbursementID int64) (*models.DisbursementSummary, error) {
	d, err := s.getDisbursement(disbursementID)
	if err != nil {
		return nil, err
	}
	details, err := s.GetDetails(disbursementID)
	if err != nil {
		return nil, err
	}
	summary := models.Summarize(*d, details)
	return &summary, nil
}

func (s *DisbursementService) GetDetails(disbursementID int64) ([]models.SalaryDisbursementDetail, error) {
	rows, err := s.db.Query(`
		SELECT detail_id, salary_disbursement_id, employee_id, amount,
		       employee_account_id, success, COALESCE(failure_reason, ''), transaction_id, processed_at
		FROM salary_disbursement_details
		WHERE salary_disbursement_id = $1
		ORDER BY detail_id ASC`, disbursementID)
	if err != nil {
		return nil, Internal("failed to query disbursement details", err)
	}
	defer rows.Close()

	details := []models.SalaryDisbursementDetail{}
	for rows.Next() {
		var dt models.SalaryDisbursementDetail
		if err := rows.Scan(&dt.ID, &dt.DisbursementID, &dt.EmployeeID, &dt.Amount,
			&dt.EmployeeAccountID, &dt.Success, &dt.FailureReason, &dt.TransactionID, &dt.ProcessedAt); err != nil {
			return nil, Internal("failed to scan disbursement detail", err)
		}
		details = append(details, dt)
	}
	return details, rows.Err()
}

func (s *DisbursementService) GetByClient(clientID int64) ([]models.SalaryDisbursement, error) {
	return s.queryDisbursements(disbursementSelect+` WHERE client_id = $1 ORDER BY salary_year DESC, salary_month DESC`, clientID)
}

func (s *DisbursementService) GetByStatus(clientID int64, status string) ([]models.SalaryDisbursement, error) {
	return s.queryDisbursements(disbursementSelect+` WHERE client_id = $1 AND status = $2 ORDER BY created_at DESC`, clientID, status)
}

// GetPendingByBank is the bank user work queue for salary batches.
func (s *DisbursementService) GetPendingByBank(bankID int64) ([]models.SalaryDisbursement, error) {
	return s.queryDisbursements(`
		SELECT d.salary_disbursement_id, d.client_id, d.total_amount, d.salary_month, d.salary_year,
		       d.all_employees, d.status, d.approved_by, d.approved_at,
		       COALESCE(d.remarks, ''), COALESCE(d.rejection_reason, ''), d.created_at
		FROM salary_disbursements d
		JOIN clients c ON d.client_id = c.client_id
		WHERE d.status = $1 AND c.bank_id = $2
		ORDER BY d.created_at ASC`, models.ApprovalPending, bankID)
}

// GetByPeriod looks up the single batch a client may have for a salary
// period.
func (s *DisbursementService) GetByPeriod(clientID int64, month, year int) (*models.SalaryDisbursement, error) {
	var d models.SalaryDisbursement
	err := s.db.QueryRow(disbursementSelect+` WHERE client_id = $1 AND salary_month = $2 AND salary_year = $3`,
		clientID, month, year).
		Scan(&d.ID, &d.ClientID, &d.TotalAmount, &d.SalaryMonth, &d.SalaryYear,
			&d.AllEmployees, &d.Status, &d.ApprovedBy, &d.ApprovedAt,
			&d.Remarks, &d.RejectionReason, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("no disbursement for client %d in %d/%d", clientID, month, year)
	}
	if err != nil {
		return nil, Internal("failed to read disbursement", err)
	}
	return &d, nil
}

// PendingCount counts pending batches scoped to a client, a bank, or both.
func (s *DisbursementService) PendingCount(clientID, bankID *int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM salary_disbursements d
		JOIN clients c ON d.client_id = c.client_id
		WHERE d.status = $1`
	args := []any{models.ApprovalPending}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND d.client_id = $%d", len(args))
	}
	if bankID != nil {
		args = append(args, *bankID)
		query += fmt.Sprintf(" AND c.bank_id = $%d", len(args))
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, Internal("failed to count pending disbursements", err)
	}
	return count, nil
}

func (s *DisbursementService) TotalPendingAmount(clientID int64) (int64, error) {
	var total int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(total_amount), 0)
		FROM salary_disbursements
		WHERE client_id = $1 AND status = $2`,
		clientID, models.ApprovalPending).Scan(&total)
	if err != nil {
		return 0, Internal("failed to total pending disbursements", err)
	}
	return total, nil
}

type DisbursementStatistics struct {
	TotalCount     int   `json:"total_count"`
	PendingCount   int   `json:"pending_count"`
	ApprovedCount  int   `json:"approved_count"`
	RejectedCount  int   `json:"rejected_count"`
	TotalDisbursed int64 `json:"total_disbursed"`
}

func (s *DisbursementService) Statistics(clientID int64) (*DisbursementStatistics, error) {
	var stats DisbursementStatistics
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3),
		       COUNT(*) FILTER (WHERE status = $4),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = $3), 0)
		FROM salary_disbursements
		WHERE client_id = $1`,
		clientID, models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected).
		Scan(&stats.TotalCount, &stats.PendingCount, &stats.ApprovedCount,
			&stats.RejectedCount, &stats.TotalDisbursed)
	if err != nil {
		return nil, Internal("failed to aggregate disbursement statistics", err)
	}
	return &stats, nil
}

func (s *DisbursementService) queryDisbursements(query string, args ...any) ([]models.SalaryDisbursement, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, Internal("failed to query disbursements", err)
	}
	defer rows.Close()

	disbursements := []models.SalaryDisbursement{}
	for rows.Next() {
		var d models.SalaryDisbursement
		if err := rows.Scan(&d.ID, &d.ClientID, &d.TotalAmount, &d.SalaryMonth, &d.SalaryYear,
			&d.AllEmployees, &d.Status, &d.ApprovedBy, &d.ApprovedAt,
			&d.Remarks, &d.RejectionReason, &d.CreatedAt); err != nil {
			return nil, Internal("failed to scan disbursement", err)
		}
		disbursements = append(disbursements, d)
	}
	return disbursements, rows.Err()
}

func (s *DisbursementService) notifyDecision(clientID, disbursementID int64, template string, summary *models.DisbursementSummary) {
	client, err := s.clients.GetByID(clientID)
	if err != nil {
		log.Printf("[DISBURSE] Skipping notification for disbursement %d: %v", disbursementID, err)
		return
	}
	payload := map[string]any{"disbursement_id": disbursementID}
	if summary != nil {
		payload["successful"] = summary.Successful
		payload["failed"] = summary.Failed
	}
	s.notifier.Notify(client.ContactEmail, template, payload)
}
