package handlers

import (
	"log"
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

type AuthHandler struct {
	service   *services.AuthService
	validator *services.ValidationHelper
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Login authenticates a user
// @Summary Login
// @Description Authenticate with username and password, returns a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login request"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	resp, err := h.service.Login(req)
	if err != nil {
		// Credential failures surface as 401 rather than the kind mapping.
		if services.KindOf(err) == services.KindValidation {
			services.SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
			return
		}
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the caller's token
// @Summary Logout
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := r.Context().Value(middleware.ContextToken).(string); ok {
		h.service.RevokeToken(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Register creates a user with a one-time temporary password
// @Summary Register a user
// @Description Create a user record; the temporary password is returned once
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RegisterUserRequest true "Registration request"
// @Success 201 {object} map[string]any
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actorID, _ := middleware.UserID(r)
	user, tempPassword, err := h.service.RegisterUser(req, actorID, middleware.Role(r))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":              user,
		"temporaryPassword": tempPassword,
	})
}

// ChangePassword updates the caller's password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ChangePasswordRequest true "Password change request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req services.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	userID, ok := middleware.UserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	if err := h.service.ChangePassword(userID, req); err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	user, err := h.service.GetUser(userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
