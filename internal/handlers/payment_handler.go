package handlers

import (
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

type PaymentHandler struct {
	payments  *services.PaymentService
	validator *services.ValidationHelper
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		validator: services.NewValidationHelper(),
	}
}

// Create submits a payment for approval
// @Summary Create payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreatePaymentRequest true "Payment request"
// @Success 201 {object} models.Payment
// @Failure 400 {object} services.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	// Client callers may only create payments for their own tenant.
	if clientID, ok := middleware.ClientID(r); ok && clientID != req.ClientID {
		services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	payment, err := h.payments.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type decisionRequest struct {
	Remarks string `json:"remarks,omitempty" validate:"max=200"`
	Reason  string `json:"reason,omitempty" validate:"max=200"`
}

// Approve approves a pending payment
// @Summary Approve payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Param request body decisionRequest false "Optional remarks"
// @Success 200 {object} models.Payment
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /payments/{paymentId}/approve [post]
func (h *PaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "paymentId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
	}

	approverID, ok := middleware.UserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	payment, err := h.payments.Approve(id, approverID, req.Remarks)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Reject rejects a pending payment
// @Summary Reject payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Param request body decisionRequest true "Rejection reason"
// @Success 200 {object} models.Payment
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /payments/{paymentId}/reject [post]
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "paymentId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	approverID, ok := middleware.UserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	payment, err := h.payments.Reject(id, approverID, req.Reason)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Get returns one payment
// @Summary Get payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} services.ErrorResponse
// @Router /payments/{paymentId} [get]
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "paymentId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	payment, err := h.payments.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// ListByClient returns a client's payments, optionally filtered by status
// or date range
// @Summary List client payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Success 200 {array} models.Payment
// @Router /clients/{clientId}/payments [get]
func (h *PaymentHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		payments, err := h.payments.GetByStatus(clientID, status)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payments)
		return
	}
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		from, to, err := dateRange(r)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		payments, err := h.payments.GetByDateRange(clientID, from, to)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payments)
		return
	}

	payments, err := h.payments.GetByClient(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// ListByBeneficiary returns a payee's payment history
// @Summary List payments to a beneficiary
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param beneficiaryId path int true "Beneficiary ID"
// @Success 200 {array} models.Payment
// @Router /beneficiaries/{beneficiaryId}/payments [get]
func (h *PaymentHandler) ListByBeneficiary(w http.ResponseWriter, r *http.Request) {
	beneficiaryID, err := pathID(r, "beneficiaryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	payments, err := h.payments.GetByBeneficiary(beneficiaryID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// Pending returns the approval queue for the caller's bank
// @Summary Pending payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PendingPayment
// @Router /payments/pending [get]
func (h *PaymentHandler) Pending(w http.ResponseWriter, r *http.Request) {
	bankID, ok := middleware.BankID(r)
	if !ok {
		services.SendErrorResponse(w, "Bank scope required", http.StatusForbidden, nil)
		return
	}
	pending, err := h.payments.GetPendingByBank(bankID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// Statistics returns a client's payment aggregates
// @Summary Payment statistics
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {object} services.PaymentStatistics
// @Router /clients/{clientId}/payments/statistics [get]
func (h *PaymentHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	stats, err := h.payments.Statistics(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
