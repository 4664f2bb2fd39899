package handlers

import (
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

// BankHandler covers the bank registry. Registration and updates are super
// admin operations; reads are open to bank staff.
type BankHandler struct {
	banks     *services.BankService
	validator *services.ValidationHelper
}

func NewBankHandler(banks *services.BankService) *BankHandler {
	return &BankHandler{
		banks:     banks,
		validator: services.NewValidationHelper(),
	}
}

// Create registers a bank
// @Summary Register bank
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBankRequest true "Bank request"
// @Success 201 {object} models.Bank
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /banks [post]
func (h *BankHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	req.CreatedBy, _ = middleware.UserID(r)

	bank, err := h.banks.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

// Get returns one bank
// @Summary Get bank
// @Tags banks
// @Produce json
// @Security BearerAuth
// @Param bankId path int true "Bank ID"
// @Success 200 {object} models.Bank
// @Failure 404 {object} services.ErrorResponse
// @Router /banks/{bankId} [get]
func (h *BankHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bankId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	bank, err := h.banks.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// List returns all registered banks
// @Summary List banks
// @Tags banks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Bank
// @Router /banks [get]
func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.List()
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

// Update amends a bank's details
// @Summary Update bank
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bankId path int true "Bank ID"
// @Param request body services.UpdateBankRequest true "Update request"
// @Success 200 {object} models.Bank
// @Failure 404 {object} services.ErrorResponse
// @Router /banks/{bankId} [put]
func (h *BankHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bankId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.UpdateBankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	req.UpdatedBy, _ = middleware.UserID(r)

	bank, err := h.banks.Update(id, req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

// Statistics summarizes a bank's footprint
// @Summary Bank statistics
// @Tags banks
// @Produce json
// @Security BearerAuth
// @Param bankId path int true "Bank ID"
// @Success 200 {object} services.BankStatistics
// @Failure 404 {object} services.ErrorResponse
// @Router /banks/{bankId}/statistics [get]
func (h *BankHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bankId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	stats, err := h.banks.Statistics(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
