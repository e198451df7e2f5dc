package handlers

import (
	"net/http"

	"github.com/ecoride/backend/internal/middleware"
	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/repository"
)

// CreditsHandler exposes the read-only ledger views: current balance and
// transaction history.
type CreditsHandler struct {
	ledger *repository.LedgerRepo
}

func NewCreditsHandler(ledger *repository.LedgerRepo) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// Balance returns the caller's credit balance
// @Summary Credit balance
// @Description Return the authenticated user's current credit balance
// @Tags credits
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /credits/balance [get]
func (h *CreditsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"credits": balance})
}

// Transactions returns the caller's ledger history
// @Summary Credit transactions
// @Description Return the authenticated user's credit transaction log, newest first
// @Tags credits
// @Produce json
// @Success 200 {array} models.CreditTransaction
// @Router /credits/transactions [get]
func (h *CreditsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	entries, err := h.ledger.ListTransactions(r.Context(), callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if entries == nil {
		entries = []models.CreditTransaction{}
	}

	respondJSON(w, http.StatusOK, entries)
}
