package http

import (
	"net/http"
	"strings"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type createRentalRequest struct {
	Customer domain.Customer     `json:"customer"`
	Lines    []domain.RentalLine `json:"lines"`
}

type returnRequest struct {
	Lines []domain.ReturnLine `json:"lines"`
}

type returnQuoteResponse struct {
	Lines []domain.AppliedReturn `json:"lines"`
	Cost  decimal.Decimal        `json:"cost"`
}

type rentalDetailResponse struct {
	*domain.Rental
	CurrentCost decimal.Decimal `json:"current_cost"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type paymentsResponse struct {
	Items []domain.Payment `json:"items"`
	Paid  decimal.Decimal  `json:"paid"`
}

type totalResponse struct {
	Total decimal.Decimal `json:"total"`
}

func (h *Handler) CreateRental(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.coordinator.CreateRental(r.Context(), accountID, req.Customer, req.Lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

// ListRentals pages through active rentals, or searches active rentals by
// customer name or phone with ?q=.
func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		rentals, err := h.rentals.SearchRentals(r.Context(), accountID, query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.Rental]{Items: rentals, Total: int32(len(rentals))})
		return
	}

	page, pageSize := queryPage(r)
	rentals, total, err := h.rentals.ListActiveRentals(r.Context(), accountID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Rental]{Items: rentals, Total: total})
}

func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.rentals.GetRental(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cost, err := h.rentals.ComputeRentalCost(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rentalDetailResponse{Rental: rental, CurrentCost: cost})
}

func (h *Handler) ReturnItems(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := h.coordinator.ReturnItems(r.Context(), accountID, rentalID, req.Lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) ReturnAll(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := h.coordinator.ReturnAll(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// QuoteReturn prices a return without applying it.
func (h *Handler) QuoteReturn(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lines, cost, err := h.rentals.ComputeReturnCost(r.Context(), accountID, rentalID, req.Lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, returnQuoteResponse{Lines: lines, Cost: cost})
}

func (h *Handler) SettleReturn(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.SettlementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.coordinator.SettleReturn(r.Context(), accountID, rentalID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CloseRental(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rental, err := h.rentals.CloseRental(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.ledger.ListPayments(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paid, err := h.ledger.TotalPaid(r.Context(), accountID, rentalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsResponse{Items: payments, Paid: paid})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	accountID, rentalID, err := accountAndID(r, "rentalID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.ledger.RecordPayment(r.Context(), accountID, &rentalID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}
