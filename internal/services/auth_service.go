package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/trustline/backoffice/internal/models"
)

// AuthService issues and revokes JWTs and manages user records. Passwords
// are argon2id, stored as base64(salt)$base64(hash). Revoked tokens sit in
// a redis blacklist until their natural expiry.
type AuthService struct {
	db    *sql.DB
	redis *redis.Client
	audit *AuditService
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, audit *AuditService) *AuthService {
	return &AuthService{db: db, redis: redisClient, audit: audit}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Role     string `json:"role" validate:"required,oneof=SUPER_ADMIN BANK_USER CLIENT"`
	BankID   *int64 `json:"bankId,omitempty" validate:"omitempty,gt=0"`
	ClientID *int64 `json:"clientId,omitempty" validate:"omitempty,gt=0"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login checks credentials and returns a signed token carrying the user's
// role and tenant scope.
func (s *AuthService) Login(req LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := s.db.QueryRow(`
		SELECT user_id, username, email, full_name, password_hash, role, bank_id, client_id, is_active, created_at
		FROM users WHERE username = $1`,
		strings.ToLower(req.Username)).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
			&user.Role, &user.BankID, &user.ClientID, &user.IsActive, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, Validationf("invalid credentials")
	}
	if err != nil {
		return nil, Internal("failed to read user", err)
	}
	if !user.IsActive {
		return nil, InvalidStatef("user account is disabled")
	}
	if !verifyPassword(req.Password, user.PasswordHash) {
		log.Printf("[AUTH] Invalid password for user: %s", user.Username)
		return nil, Validationf("invalid credentials")
	}

	token, err := s.generateJWT(&user)
	if err != nil {
		return nil, Internal("failed to generate token", err)
	}

	if _, err := s.db.Exec(`UPDATE users SET last_login = NOW() WHERE user_id = $1`, user.ID); err != nil {
		log.Printf("[AUTH] Failed to record last login for user %d: %v", user.ID, err)
	}

	log.Printf("[AUTH] Login successful for user %d (%s)", user.ID, user.Role)
	user.PasswordHash = ""
	return &AuthResponse{Token: token, User: user}, nil
}

// RegisterUser creates a user with a generated temporary password, which is
// returned once for out-of-band delivery and never stored in the clear.
// BANK_USER needs bankId; CLIENT needs bankId and clientId.
func (s *AuthService) RegisterUser(req RegisterUserRequest, actorID int64, actorRole string) (*models.User, string, error) {
	switch req.Role {
	case models.RoleBankUser:
		if req.BankID == nil {
			return nil, "", Validationf("bankId is required for bank users")
		}
	case models.RoleClient:
		if req.BankID == nil || req.ClientID == nil {
			return nil, "", Validationf("bankId and clientId are required for client users")
		}
	}

	username := strings.ToLower(req.Username)
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, strings.ToLower(req.Email)).Scan(&exists)
	if err != nil {
		return nil, "", Internal("failed to check user uniqueness", err)
	}
	if exists {
		return nil, "", Duplicatef("username or email already registered")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, "", Internal("failed to generate password", err)
	}
	hashed, err := hashPassword(tempPassword)
	if err != nil {
		return nil, "", Internal("failed to hash password", err)
	}

	user := models.User{
		Username: username,
		Email:    strings.ToLower(req.Email),
		FullName: req.FullName,
		Role:     req.Role,
		BankID:   req.BankID,
		ClientID: req.ClientID,
		IsActive: true,
	}
	err = s.db.QueryRow(`
		INSERT INTO users (username, email, full_name, password_hash, role, bank_id, client_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW())
		RETURNING user_id, created_at`,
		user.Username, user.Email, user.FullName, hashed, user.Role, user.BankID, user.ClientID,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return nil, "", Duplicatef("username or email already taken")
	}
	if err != nil {
		return nil, "", Internal("failed to create user", err)
	}

	log.Printf("[AUTH] User %d (%s) registered with role %s", user.ID, user.Username, user.Role)
	go s.audit.Record("CREATE", "User", user.ID, actorID, actorRole, fmt.Sprintf("role %s", user.Role))
	return &user, tempPassword, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (s *AuthService) ChangePassword(userID int64, req ChangePasswordRequest) error {
	var stored string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE user_id = $1`, userID).Scan(&stored)
	if err == sql.ErrNoRows {
		return NotFoundf("user %d not found", userID)
	}
	if err != nil {
		return Internal("failed to read user", err)
	}
	if !verifyPassword(req.CurrentPassword, stored) {
		return Validationf("current password is incorrect")
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return Internal("failed to hash password", err)
	}
	if _, err := s.db.Exec(`UPDATE users SET password_hash = $1 WHERE user_id = $2`, hashed, userID); err != nil {
		return Internal("failed to update password", err)
	}

	log.Printf("[AUTH] Password changed for user %d", userID)
	return nil
}

// RevokeToken blacklists a token in redis until its expiry window closes.
// With no redis the logout degrades to a no-op; the token ages out on its
// own.
func (s *AuthService) RevokeToken(ctx context.Context, token string) {
	if token == "" || s.redis == nil {
		return
	}
	key := fmt.Sprintf("blacklist:%s", token)
	expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
		log.Printf("[AUTH] Failed to blacklist token: %v", err)
	}
}

// IsRevoked reports whether a token has been blacklisted.
func (s *AuthService) IsRevoked(ctx context.Context, token string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, fmt.Sprintf("blacklist:%s", token)).Result()
	if err != nil {
		log.Printf("[AUTH] Blacklist check failed: %v", err)
		return false
	}
	return n > 0
}

func (s *AuthService) GetUser(userID int64) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(`
		SELECT user_id, username, email, full_name, role, bank_id, client_id, is_active, last_login, created_at
		FROM users WHERE user_id = $1`, userID).
		Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
			&user.Role, &user.BankID, &user.ClientID, &user.IsActive, &user.LastLogin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("user %d not found", userID)
	}
	if err != nil {
		return nil, Internal("failed to read user", err)
	}
	return &user, nil
}

func (s *AuthService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	}
	if user.BankID != nil {
		claims["bank_id"] = *user.BankID
	}
	if user.ClientID != nil {
		claims["client_id"] = *user.ClientID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}

func generateTempPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := cryptorand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
