package http

import (
	"fmt"
	"net/http"
	"strings"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type addToolRequest struct {
	Name       string          `json:"name"`
	Quantity   int32           `json:"quantity"`
	DailyPrice decimal.Decimal `json:"daily_price"`
}

// stockRequest moves stock by delta: positive restocks, negative withdraws.
type stockRequest struct {
	Delta int32 `json:"delta"`
}

func (h *Handler) AddTool(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addToolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tool := &domain.Tool{
		AccountID:  accountID,
		Name:       req.Name,
		Quantity:   req.Quantity,
		DailyPrice: req.DailyPrice,
	}
	if err := h.tools.AddTool(r.Context(), tool); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

// ListTools pages through the account's tools. ?q= searches by name and
// ?available=true returns only tools with stock on hand.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()

	if q.Get("available") == "true" {
		tools, err := h.tools.ListAvailableTools(r.Context(), accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[domain.Tool]{Items: tools, Total: int32(len(tools))})
		return
	}

	page, pageSize := queryPage(r)
	var (
		tools []domain.Tool
		total int32
	)
	if query := strings.TrimSpace(q.Get("q")); query != "" {
		tools, total, err = h.tools.SearchTools(r.Context(), accountID, query, page, pageSize)
	} else {
		tools, total, err = h.tools.ListTools(r.Context(), accountID, page, pageSize)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Tool]{Items: tools, Total: total})
}

func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	accountID, toolID, err := accountAndID(r, "toolID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tool, err := h.tools.GetTool(r.Context(), accountID, toolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) UpdateTool(w http.ResponseWriter, r *http.Request) {
	accountID, toolID, err := accountAndID(r, "toolID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var update domain.ToolUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, r, err)
		return
	}
	tool, err := h.tools.UpdateTool(r.Context(), accountID, toolID, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	accountID, toolID, err := accountAndID(r, "toolID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case req.Delta > 0:
		err = h.tools.IncrementStock(r.Context(), accountID, toolID, req.Delta)
	case req.Delta < 0:
		err = h.tools.DecrementStock(r.Context(), accountID, toolID, -req.Delta)
	default:
		err = fmt.Errorf("%w: zero stock delta", domain.ErrInvalidAmount)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	tool, err := h.tools.GetTool(r.Context(), accountID, toolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) DeleteTool(w http.ResponseWriter, r *http.Request) {
	accountID, toolID, err := accountAndID(r, "toolID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tools.DeleteTool(r.Context(), accountID, toolID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func accountAndID(r *http.Request, name string) (int32, int32, error) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, name)
	if err != nil {
		return 0, 0, err
	}
	return accountID, id, nil
}
