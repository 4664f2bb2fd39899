package handlers

import (
	"net/http"
	"time"

	"github.com/trustline/backoffice/internal/middleware"
	"github.com/trustline/backoffice/internal/models"
	"github.com/trustline/backoffice/internal/services"
)

// QueryHandler covers the support inbox. Filing is public; everything else
// sits behind the bank staff routes.
type QueryHandler struct {
	queries   *services.QueryService
	validator *services.ValidationHelper
}

func NewQueryHandler(queries *services.QueryService) *QueryHandler {
	return &QueryHandler{
		queries:   queries,
		validator: services.NewValidationHelper(),
	}
}

// queryListItem decorates a query with how long it has been waiting.
type queryListItem struct {
	models.Query
	DaysPending int `json:"days_pending"`
}

func toListItems(queries []models.Query) []queryListItem {
	now := time.Now()
	items := make([]queryListItem, len(queries))
	for i, q := range queries {
		items[i] = queryListItem{Query: q, DaysPending: q.DaysPending(now)}
	}
	return items
}

// Create files a support query
// @Summary File support query
// @Tags queries
// @Accept json
// @Produce json
// @Param request body services.CreateQueryRequest true "Query request"
// @Success 201 {object} models.Query
// @Failure 400 {object} services.ErrorResponse
// @Router /queries [post]
func (h *QueryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	query, err := h.queries.Create(req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, query)
}

// Get returns one query
// @Summary Get query
// @Tags queries
// @Produce json
// @Security BearerAuth
// @Param queryId path int true "Query ID"
// @Success 200 {object} models.Query
// @Failure 404 {object} services.ErrorResponse
// @Router /queries/{queryId} [get]
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "queryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	query, err := h.queries.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query)
}

// List returns the support inbox, pending by default
// @Summary List queries
// @Tags queries
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending (default) or resolved"
// @Param category query string false "Filter by category"
// @Success 200 {array} models.Query
// @Router /queries [get]
func (h *QueryHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		queries []models.Query
		err     error
	)
	switch {
	case r.URL.Query().Get("category") != "":
		queries, err = h.queries.ByCategory(r.URL.Query().Get("category"))
	case r.URL.Query().Get("status") == "resolved":
		queries, err = h.queries.Resolved()
	default:
		queries, err = h.queries.Pending()
	}
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListItems(queries))
}

// Respond records a staff answer
// @Summary Respond to query
// @Tags queries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param queryId path int true "Query ID"
// @Param request body services.RespondRequest true "Response"
// @Success 200 {object} models.Query
// @Failure 409 {object} services.ErrorResponse
// @Router /queries/{queryId}/respond [post]
func (h *QueryHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "queryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	var req services.RespondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	req.RespondedBy, _ = middleware.UserID(r)

	query, err := h.queries.Respond(id, req)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query)
}

// Resolve marks a query resolved
// @Summary Resolve query
// @Tags queries
// @Security BearerAuth
// @Param queryId path int true "Query ID"
// @Success 204
// @Failure 409 {object} services.ErrorResponse
// @Router /queries/{queryId}/resolve [put]
func (h *QueryHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.setResolved(w, r, true)
}

// Reopen marks a resolved query unresolved
// @Summary Reopen query
// @Tags queries
// @Security BearerAuth
// @Param queryId path int true "Query ID"
// @Success 204
// @Failure 409 {object} services.ErrorResponse
// @Router /queries/{queryId}/reopen [put]
func (h *QueryHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.setResolved(w, r, false)
}

func (h *QueryHandler) setResolved(w http.ResponseWriter, r *http.Request, resolved bool) {
	id, err := pathID(r, "queryId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	actorID, _ := middleware.UserID(r)

	if err := h.queries.SetResolved(id, resolved, actorID); err != nil {
		services.SendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statistics summarizes the support backlog
// @Summary Query statistics
// @Tags queries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.QueryStatistics
// @Router /queries/statistics [get]
func (h *QueryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.Statistics()
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
