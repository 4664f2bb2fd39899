package services

import (
	"database/sql"
	"log"

	"github.com/trustline/backoffice/internal/models"
)

// EmployeeService is the directory of a client's payroll population.
type EmployeeService struct {
	db *sql.DB
}

func NewEmployeeService(db *sql.DB) *EmployeeService {
	return &EmployeeService{db: db}
}

const employeeSelect = `
	SELECT employee_id, client_id, full_name, email, salary, account_id, is_active, created_at
	FROM employees`

func (s *EmployeeService) GetByID(employeeID int64) (*models.Employee, error) {
	var e models.Employee
	err := s.db.QueryRow(employeeSelect+` WHERE employee_id = $1`, employeeID).
		Scan(&e.ID, &e.ClientID, &e.FullName, &e.Email, &e.Salary, &e.AccountID, &e.IsActive, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("employee %d not found", employeeID)
	}
	if err != nil {
		return nil, Internal("failed to read employee", err)
	}
	return &e, nil
}

// GetActiveEmployees returns the client's current payroll set.
func (s *EmployeeService) GetActiveEmployees(clientID int64) ([]models.Employee, error) {
	rows, err := s.db.Query(employeeSelect+` WHERE client_id = $1 AND is_active = true ORDER BY full_name`, clientID)
	if err != nil {
		return nil, Internal("failed to list employees", err)
	}
	defer rows.Close()
	return scanEmployees(rows)
}

func (s *EmployeeService) GetByClient(clientID int64) ([]models.Employee, error) {
	rows, err := s.db.Query(employeeSelect+` WHERE client_id = $1 ORDER BY full_name`, clientID)
	if err != nil {
		return nil, Internal("failed to list employees", err)
	}
	defer rows.Close()
	return scanEmployees(rows)
}

type CreateEmployeeRequest struct {
	ClientID  int64  `json:"clientId" validate:"required,gt=0"`
	FullName  string `json:"fullName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Salary    int64  `json:"salary" validate:"required,gt=0"`
	AccountID *int64 `json:"accountId,omitempty"`
}

func (s *EmployeeService) Create(req CreateEmployeeRequest) (*models.Employee, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM clients WHERE client_id = $1)`, req.ClientID).Scan(&exists); err != nil {
		return nil, Internal("failed to look up client", err)
	}
	if !exists {
		return nil, NotFoundf("client %d not found", req.ClientID)
	}

	e := &models.Employee{
		ClientID:  req.ClientID,
		FullName:  req.FullName,
		Email:     req.Email,
		Salary:    req.Salary,
		AccountID: req.AccountID,
		IsActive:  true,
	}
	err := s.db.QueryRow(`
		INSERT INTO employees (client_id, full_name, email, salary, account_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, true, NOW())
		RETURNING employee_id, created_at`,
		req.ClientID, req.FullName, req.Email, req.Salary, req.AccountID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, Internal("failed to create employee", err)
	}
	return e, nil
}

// Deactivate removes an employee from future disbursements. Past details
// keep referencing the row.
func (s *EmployeeService) Deactivate(employeeID int64) error {
	res, err := s.db.Exec(`UPDATE employees SET is_active = false WHERE employee_id = $1`, employeeID)
	if err != nil {
		return Internal("failed to deactivate employee", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundf("employee %d not found", employeeID)
	}
	log.Printf("[EMPLOYEE] Deactivated employee %d", employeeID)
	return nil
}

func scanEmployees(rows *sql.Rows) ([]models.Employee, error) {
	employees := []models.Employee{}
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.ClientID, &e.FullName, &e.Email, &e.Salary, &e.AccountID, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, Internal("failed to scan employee", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
