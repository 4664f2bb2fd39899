package models

import "time"

// User roles. A single users table with a role column replaces any
// per-role table split; role-specific attributes live on the client and
// bank rows keyed back to the user.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleBankUser   = "BANK_USER"
	RoleClient     = "CLIENT"
)

type User struct {
	ID           int64      `json:"id" db:"user_id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	FullName     string     `json:"full_name" db:"full_name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	BankID       *int64     `json:"bank_id,omitempty" db:"bank_id"`     // set for BANK_USER and CLIENT
	ClientID     *int64     `json:"client_id,omitempty" db:"client_id"` // set for CLIENT
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type Bank struct {
	ID            int64     `json:"id" db:"bank_id"`
	Name          string    `json:"name" db:"bank_name"`
	IFSCCode      string    `json:"ifsc_code" db:"ifsc_code"`
	Address       string    `json:"address" db:"address"`
	ContactNumber string    `json:"contact_number" db:"contact_number"`
	SupportEmail  string    `json:"support_email" db:"support_email"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Client struct {
	ID           int64     `json:"id" db:"client_id"`
	Name         string    `json:"name" db:"client_name"`
	BankID       int64     `json:"bank_id" db:"bank_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ContactEmail string    `json:"contact_email" db:"contact_email"`
	IsVerified   bool      `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
