package handlers

import (
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

type AccountHandler struct {
	accounts  *services.AccountService
	ledger    *services.TransactionService
	validator *services.ValidationHelper
}

func NewAccountHandler(accounts *services.AccountService, ledger *services.TransactionService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

// Create opens a new account
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateAccountRequest true "Account request"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.CreateAccount(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// Get returns one account
// @Summary Get account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	account, err := h.accounts.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Lookup resolves an account by its account number
// @Summary Look up account by number
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param number query string true "Account number"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/lookup [get]
func (h *AccountHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		services.SendServiceError(w, services.Validationf("account number is required"))
		return
	}
	account, err := h.accounts.GetByNumber(number)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Balance returns the current balance
// @Summary Get balance
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Success 200 {object} map[string]int64
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	balance, err := h.accounts.GetBalance(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// ListByClient returns a client's accounts
// @Summary List client accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {array} models.Account
// @Router /clients/{clientId}/accounts [get]
func (h *AccountHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	accounts, err := h.accounts.GetByClient(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type amountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Credit deposits into an account
// @Summary Credit account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body amountRequest true "Amount in minor units"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/{accountId}/credit [post]
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.accounts.Credit)
}

// Debit withdraws from an account
// @Summary Debit account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body amountRequest true "Amount in minor units"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{accountId}/debit [post]
func (h *AccountHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.accounts.Debit)
}

func (h *AccountHandler) move(w http.ResponseWriter, r *http.Request, op func(int64, int64) (int64, error)) {
	id, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	balance, err := op(id, req.Amount)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE CLOSED"`
}

// UpdateStatus changes an account's lifecycle status
// @Summary Update account status
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param request body statusRequest true "New status"
// @Success 200 {object} models.Account
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/{accountId}/status [put]
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	actorID, _ := middleware.UserID(r)
	if err := h.accounts.UpdateStatus(id, req.Status, actorID); err != nil {
		services.SendServiceError(w, err)
		return
	}
	account, err := h.accounts.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Statement returns the account statement for a window
// @Summary Account statement
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Success 200 {object} models.AccountStatement
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/statement [get]
func (h *AccountHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	statement, err := h.ledger.Statement(id, from, to)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}
