package http

import (
	"net/http"
	"strings"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type addDebtRequest struct {
	Customer domain.Customer `json:"customer"`
	Amount   decimal.Decimal `json:"amount"`
	RentalID *int32          `json:"rental_id,omitempty"`
}

type payDebtRequest struct {
	Mode   domain.SettlementMode `json:"mode"`
	Amount decimal.Decimal       `json:"amount"`
}

type payDebtResponse struct {
	Debt    *domain.Debt    `json:"debt"`
	Payment *domain.Payment `json:"payment"`
}

func (h *Handler) AddDebt(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	debt, err := h.ledger.AddDebt(r.Context(), accountID, req.Customer, req.Amount, req.RentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, debt)
}

// ListDebts pages through open debts, or searches them by customer name or
// phone with ?q=.
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		debts, err := h.ledger.SearchOpenDebts(r.Context(), accountID, query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.Debt]{Items: debts, Total: int32(len(debts))})
		return
	}

	page, pageSize := queryPage(r)
	debts, total, err := h.ledger.ListOpenDebts(r.Context(), accountID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Debt]{Items: debts, Total: total})
}

func (h *Handler) TotalDebt(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.ledger.TotalOpenDebt(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	accountID, debtID, err := accountAndID(r, "debtID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	debt, err := h.ledger.GetDebt(r.Context(), accountID, debtID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

// PayDebt takes money against a debt: mode "full" clears it, "partial" pays
// the given amount.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	accountID, debtID, err := accountAndID(r, "debtID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	debt, payment, err := h.coordinator.PayDebt(r.Context(), accountID, debtID, req.Mode, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payDebtResponse{Debt: debt, Payment: payment})
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	accountID, debtID, err := accountAndID(r, "debtID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.ledger.DeleteDebt(r.Context(), accountID, debtID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
