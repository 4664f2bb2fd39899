package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migrate creates the schema on startup. Statements are idempotent so a
// restart against an existing database is a no-op.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Println("Database schema up to date")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS banks (
		bank_id BIGSERIAL PRIMARY KEY,
		bank_name VARCHAR(100) NOT NULL UNIQUE,
		ifsc_code VARCHAR(11) NOT NULL UNIQUE,
		address VARCHAR(200) NOT NULL DEFAULT '',
		contact_number VARCHAR(20) NOT NULL DEFAULT '',
		support_email VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(100) NOT NULL UNIQUE,
		full_name VARCHAR(100) NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(20) NOT NULL CHECK (role IN ('SUPER_ADMIN', 'BANK_USER', 'CLIENT')),
		bank_id BIGINT REFERENCES banks(bank_id),
		client_id BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS clients (
		client_id BIGSERIAL PRIMARY KEY,
		client_name VARCHAR(100) NOT NULL,
		bank_id BIGINT NOT NULL REFERENCES banks(bank_id),
		user_id BIGINT NOT NULL REFERENCES users(user_id),
		contact_email VARCHAR(100) NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		account_id BIGSERIAL PRIMARY KEY,
		account_number VARCHAR(20) NOT NULL UNIQUE,
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		bank_id BIGINT NOT NULL REFERENCES banks(bank_id),
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE'
			CHECK (status IN ('ACTIVE', 'INACTIVE', 'CLOSED')),
		account_type VARCHAR(20) NOT NULL DEFAULT 'CURRENT',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_client ON accounts(client_id, status)`,

	`CREATE TABLE IF NOT EXISTS beneficiaries (
		beneficiary_id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		beneficiary_name VARCHAR(100) NOT NULL,
		account_number VARCHAR(20) NOT NULL,
		bank_name VARCHAR(100) NOT NULL,
		ifsc_code VARCHAR(11) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS employees (
		employee_id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		full_name VARCHAR(100) NOT NULL,
		email VARCHAR(100) NOT NULL,
		salary BIGINT NOT NULL CHECK (salary > 0),
		account_id BIGINT REFERENCES accounts(account_id),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		payment_id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		beneficiary_id BIGINT NOT NULL REFERENCES beneficiaries(beneficiary_id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		purpose VARCHAR(200),
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
		approved_by BIGINT REFERENCES users(user_id),
		approved_at TIMESTAMPTZ,
		remarks VARCHAR(200),
		rejection_reason VARCHAR(200),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_client ON payments(client_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS salary_disbursements (
		salary_disbursement_id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		total_amount BIGINT NOT NULL CHECK (total_amount > 0),
		salary_month INTEGER NOT NULL CHECK (salary_month BETWEEN 1 AND 12),
		salary_year INTEGER NOT NULL CHECK (salary_year BETWEEN 2000 AND 2100),
		all_employees BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
		approved_by BIGINT REFERENCES users(user_id),
		approved_at TIMESTAMPTZ,
		remarks VARCHAR(200),
		rejection_reason VARCHAR(200),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (client_id, salary_month, salary_year)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id BIGSERIAL PRIMARY KEY,
		reference_number VARCHAR(40) NOT NULL UNIQUE,
		account_id BIGINT NOT NULL REFERENCES accounts(account_id),
		client_id BIGINT NOT NULL REFERENCES clients(client_id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		direction VARCHAR(10) NOT NULL CHECK (direction IN ('CREDIT', 'DEBIT')),
		status VARCHAR(20) NOT NULL DEFAULT 'COMPLETED',
		balance_after BIGINT NOT NULL CHECK (balance_after >= 0),
		payment_id BIGINT REFERENCES payments(payment_id),
		disbursement_detail_id BIGINT,
		approved_by BIGINT REFERENCES users(user_id),
		description VARCHAR(200),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_client ON transactions(client_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS salary_disbursement_details (
		detail_id BIGSERIAL PRIMARY KEY,
		salary_disbursement_id BIGINT NOT NULL REFERENCES salary_disbursements(salary_disbursement_id),
		employee_id BIGINT NOT NULL REFERENCES employees(employee_id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		employee_account_id BIGINT REFERENCES accounts(account_id),
		success BOOLEAN,
		failure_reason VARCHAR(200),
		transaction_id BIGINT REFERENCES transactions(transaction_id),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_details_disbursement ON salary_disbursement_details(salary_disbursement_id)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		audit_id BIGSERIAL PRIMARY KEY,
		action VARCHAR(40) NOT NULL,
		entity_type VARCHAR(40) NOT NULL,
		entity_id BIGINT NOT NULL,
		actor_id BIGINT NOT NULL,
		actor_role VARCHAR(20) NOT NULL,
		details VARCHAR(500),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity_type, entity_id)`,

	`CREATE TABLE IF NOT EXISTS queries (
		query_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(100) NOT NULL,
		phone VARCHAR(20),
		subject VARCHAR(150) NOT NULL,
		message VARCHAR(2000) NOT NULL,
		category VARCHAR(30) NOT NULL DEFAULT 'GENERAL',
		priority VARCHAR(10) NOT NULL DEFAULT 'MEDIUM'
			CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH')),
		response VARCHAR(2000),
		is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		responded_at TIMESTAMPTZ,
		responded_by BIGINT REFERENCES users(user_id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_open ON queries(is_resolved, priority)`,
}
