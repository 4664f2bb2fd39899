package handlers

import (
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Bank returns the bank user's landing aggregates
// @Summary Bank dashboard
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.BankDashboard
// @Router /dashboard/bank [get]
func (h *DashboardHandler) Bank(w http.ResponseWriter, r *http.Request) {
	bankID, ok := middleware.BankID(r)
	if !ok {
		services.SendErrorResponse(w, "Bank scope required", http.StatusForbidden, nil)
		return
	}
	d, err := h.dashboard.ForBank(bankID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Client returns the client's landing aggregates
// @Summary Client dashboard
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.ClientDashboard
// @Router /dashboard/client [get]
func (h *DashboardHandler) Client(w http.ResponseWriter, r *http.Request) {
	clientID, ok := middleware.ClientID(r)
	if !ok {
		services.SendErrorResponse(w, "Client scope required", http.StatusForbidden, nil)
		return
	}
	d, err := h.dashboard.ForClient(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
