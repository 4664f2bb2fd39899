package handlers

import (
	"net/http"
	"strconv"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/models"
	"github.com/trustline/backoffice/internal/services"
)

type DisbursementHandler struct {
	disbursements *services.DisbursementService
	validator     *services.ValidationHelper
}

func NewDisbursementHandler(disbursements *services.DisbursementService) *DisbursementHandler {
	return &DisbursementHandler{
		disbursements: disbursements,
		validator:     services.NewValidationHelper(),
	}
}

// Create opens a salary disbursement batch
// @Summary Create salary disbursement
// @Tags disbursements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateDisbursementRequest true "Disbursement request"
// @Success 201 {object} models.DisbursementSummary
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /disbursements [post]
func (h *DisbursementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDisbursementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if clientID, ok := middleware.ClientID(r); ok && clientID != req.ClientID {
		services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	summary, err := h.disbursements.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// Approve approves a pending batch and processes every employee line
// @Summary Approve disbursement
// @Description Approves the batch; lines settle independently and partial
// failures are reported in the summary counts
// @Tags disbursements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param disbursementId path int true "Disbursement ID"
// @Param request body decisionRequest false "Optional remarks"
// @Success 200 {object} models.DisbursementSummary
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /disbursements/{disbursementId}/approve [post]
func (h *DisbursementHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "disbursementId")
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
	summary, err := h.disbursements.Approve(id, approverID, req.Remarks)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Reject rejects a pending batch
// @Summary Reject disbursement
// @Tags disbursements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param disbursementId path int true "Disbursement ID"
// @Param request body decisionRequest true "Rejection reason"
// @Success 200 {object} models.DisbursementSummary
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /disbursements/{disbursementId}/reject [post]
func (h *DisbursementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "disbursementId")
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
	summary, err := h.disbursements.Reject(id, approverID, req.Reason)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Get returns a batch with its details and derived counts
// @Summary Get disbursement
// @Tags disbursements
// @Produce json
// @Security BearerAuth
// @Param disbursementId path int true "Disbursement ID"
// @Success 200 {object} models.DisbursementSummary
// @Failure 404 {object} services.ErrorResponse
// @Router /disbursements/{disbursementId} [get]
func (h *DisbursementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "disbursementId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	summary, err := h.disbursements.GetSummary(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListByClient returns a client's disbursement batches
// @Summary List client disbursements
// @Tags disbursements
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param month query int false "Salary month (with year, narrows to one batch)"
// @Param year query int false "Salary year"
// @Success 200 {array} models.SalaryDisbursement
// @Router /clients/{clientId}/disbursements [get]
func (h *DisbursementHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		disbursements, err := h.disbursements.GetByStatus(clientID, status)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, disbursements)
		return
	}

	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil {
			services.SendServiceError(w, services.Validationf("month must be a number"))
			return
		}
		year, err := strconv.Atoi(r.URL.Query().Get("year"))
		if err != nil {
			services.SendServiceError(w, services.Validationf("year must be a number"))
			return
		}
		d, err := h.disbursements.GetByPeriod(clientID, month, year)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []models.SalaryDisbursement{*d})
		return
	}

	disbursements, err := h.disbursements.GetByClient(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, disbursements)
}

// Statistics returns a client's disbursement counts and totals
// @Summary Disbursement statistics
// @Tags disbursements
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {object} services.DisbursementStatistics
// @Router /clients/{clientId}/disbursements/statistics [get]
func (h *DisbursementHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	stats, err := h.disbursements.Statistics(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Pending returns the approval queue for the caller's bank
// @Summary Pending disbursements
// @Tags disbursements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SalaryDisbursement
// @Router /disbursements/pending [get]
func (h *DisbursementHandler) Pending(w http.ResponseWriter, r *http.Request) {
	bankID, ok := middleware.BankID(r)
	if !ok {
		services.SendErrorResponse(w, "Bank scope required", http.StatusForbidden, nil)
		return
	}
	pending, err := h.disbursements.GetPendingByBank(bankID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}
