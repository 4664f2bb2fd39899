package handlers

import (
	"net/http"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/services"
)

// ClientHandler covers the client directory plus its employees and
// beneficiaries.
type ClientHandler struct {
	clients       *services.ClientService
	employees     *services.EmployeeService
	beneficiaries *services.BeneficiaryService
	validator     *services.ValidationHelper
}

func NewClientHandler(clients *services.ClientService, employees *services.EmployeeService, beneficiaries *services.BeneficiaryService) *ClientHandler {
	return &ClientHandler{
		clients:       clients,
		employees:     employees,
		beneficiaries: beneficiaries,
		validator:     services.NewValidationHelper(),
	}
}

// Create registers a corporate client
// @Summary Create client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateClientRequest true "Client request"
// @Success 201 {object} models.Client
// @Failure 400 {object} services.ErrorResponse
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	client, err := h.clients.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// Get returns one client
// @Summary Get client
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {object} models.Client
// @Failure 404 {object} services.ErrorResponse
// @Router /clients/{clientId} [get]
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	client, err := h.clients.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// ActiveAccount resolves the account a client's payments debit from
// @Summary Client's active account
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /clients/{clientId}/accounts/active [get]
func (h *ClientHandler) ActiveAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	account, err := h.clients.GetActiveAccount(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListByBank returns the caller's bank clients
// @Summary List bank clients
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Client
// @Router /clients [get]
func (h *ClientHandler) ListByBank(w http.ResponseWriter, r *http.Request) {
	bankID, ok := middleware.BankID(r)
	if !ok {
		services.SendErrorResponse(w, "Bank scope required", http.StatusForbidden, nil)
		return
	}
	clients, err := h.clients.GetByBank(bankID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// CreateEmployee adds an employee to a client
// @Summary Create employee
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateEmployeeRequest true "Employee request"
// @Success 201 {object} models.Employee
// @Failure 400 {object} services.ErrorResponse
// @Router /employees [post]
func (h *ClientHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req services.CreateEmployeeRequest
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

	employee, err := h.employees.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

// ListEmployees returns a client's employees
// @Summary List employees
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Param active query bool false "Only active employees"
// @Success 200 {array} models.Employee
// @Router /clients/{clientId}/employees [get]
func (h *ClientHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var employees any
	if r.URL.Query().Get("active") == "true" {
		employees, err = h.employees.GetActiveEmployees(clientID)
	} else {
		employees, err = h.employees.GetByClient(clientID)
	}
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// DeactivateEmployee removes an employee from future disbursements
// @Summary Deactivate employee
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param employeeId path int true "Employee ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /employees/{employeeId} [delete]
func (h *ClientHandler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "employeeId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if err := h.employees.Deactivate(id); err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Employee deactivated"})
}

// CreateBeneficiary adds a payee for a client
// @Summary Create beneficiary
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBeneficiaryRequest true "Beneficiary request"
// @Success 201 {object} models.Beneficiary
// @Failure 400 {object} services.ErrorResponse
// @Router /beneficiaries [post]
func (h *ClientHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBeneficiaryRequest
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

	beneficiary, err := h.beneficiaries.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, beneficiary)
}

// ListBeneficiaries returns a client's payees
// @Summary List beneficiaries
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Success 200 {array} models.Beneficiary
// @Router /clients/{clientId}/beneficiaries [get]
func (h *ClientHandler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	beneficiaries, err := h.beneficiaries.GetByClient(clientID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, beneficiaries)
}

// DeactivateBeneficiary disables a payee
// @Summary Deactivate beneficiary
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param beneficiaryId path int true "Beneficiary ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /beneficiaries/{beneficiaryId} [delete]
func (h *ClientHandler) DeactivateBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "beneficiaryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if err := h.beneficiaries.SetActive(id, false); err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Beneficiary deactivated"})
}

// ActivateBeneficiary re-enables a payee for new payments
// @Summary Activate beneficiary
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param beneficiaryId path int true "Beneficiary ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /beneficiaries/{beneficiaryId}/activate [put]
func (h *ClientHandler) ActivateBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "beneficiaryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if err := h.beneficiaries.SetActive(id, true); err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Beneficiary activated"})
}
