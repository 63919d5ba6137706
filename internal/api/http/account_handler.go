package http

import (
	"net/http"

	"rental-ledger-backend/internal/domain"
)

type registerAccountRequest struct {
	ExternalID int64  `json:"external_id"`
	FullName   string `json:"full_name"`
	ShopName   string `json:"shop_name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account := &domain.Account{
		ExternalID: req.ExternalID,
		FullName:   req.FullName,
		ShopName:   req.ShopName,
		Address:    req.Address,
		Phone:      req.Phone,
		IsActive:   true,
	}
	if err := h.accounts.RegisterAccount(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := queryPage(r)
	accounts, total, err := h.accounts.ListAccounts(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Account]{Items: accounts, Total: total})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if active {
		err = h.accounts.ActivateAccount(r.Context(), accountID)
	} else {
		err = h.accounts.DeactivateAccount(r.Context(), accountID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.DeleteAccount(r.Context(), accountID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.ledger.Summary(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
