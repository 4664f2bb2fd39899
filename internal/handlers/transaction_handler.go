package handlers

import (
	"net/http"
	"strconv"

	"github.com/trustline/backoffice/internal/services"
)

type TransactionHandler struct {
	ledger *services.TransactionService
}

func NewTransactionHandler(ledger *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// Get returns one ledger entry
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param transactionId path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{transactionId} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "transactionId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	txn, err := h.ledger.GetByID(id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// ListByAccount returns an account's ledger entries, newest first
// @Summary List account transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param limit query int false "Max rows (default 50)"
// @Param from query string false "Window start (RFC 3339)"
// @Param to query string false "Window end (RFC 3339)"
// @Success 200 {array} models.Transaction
// @Router /accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		from, to, err := dateRange(r)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		txns, err := h.ledger.ByDateRange(accountID, from, to)
		if err != nil {
			services.SendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, txns)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txns, err := h.ledger.ByAccount(accountID, limit)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// ListByClient returns a client's ledger entries across all accounts
// @Summary List client transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param clientId path int true "Client ID"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} models.Transaction
// @Router /clients/{clientId}/transactions [get]
func (h *TransactionHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := pathID(r, "clientId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txns, err := h.ledger.ByClient(clientID, limit)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// ListByPayment returns the ledger entries recorded for a payment
// @Summary List payment transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {array} models.Transaction
// @Router /payments/{paymentId}/transactions [get]
func (h *TransactionHandler) ListByPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	txns, err := h.ledger.ByPayment(paymentID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// ListByDetail returns the ledger entries behind one disbursement line
// @Summary List disbursement detail transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param detailId path int true "Disbursement detail ID"
// @Success 200 {array} models.Transaction
// @Router /disbursement-details/{detailId}/transactions [get]
func (h *TransactionHandler) ListByDetail(w http.ResponseWriter, r *http.Request) {
	detailID, err := pathID(r, "detailId")
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	txns, err := h.ledger.ByDisbursementDetail(detailID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}
