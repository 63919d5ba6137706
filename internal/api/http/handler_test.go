package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rental-ledger-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	NewRouter(s.handler).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateRental(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		s := newTestServer()
		customer := domain.Customer{Name: "Ann Lee", Phone: "555-0100"}
		lines := []domain.RentalLine{{ToolID: 9, Quantity: 1}}
		s.coordinator.On("CreateRental", mock.Anything, int32(1), customer, lines).Return(&domain.Rental{
			ID: 11, AccountID: 1, Customer: customer, Status: domain.RentalStatusActive,
			Items: []domain.RentalItem{{ID: 21, ToolID: 9, Quantity: 1, DailyPrice: decimal.NewFromInt(2000)}},
		}, nil)

		rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals",
			`{"customer":{"name":"Ann Lee","phone":"555-0100"},"lines":[{"tool_id":9,"quantity":1}]}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 11, body["id"])
		assert.Equal(t, "active", body["status"])
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		s := newTestServer()
		s.coordinator.On("CreateRental", mock.Anything, int32(1), mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: \"Drill\" has 0, requested 1", domain.ErrInsufficientStock))

		rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals",
			`{"customer":{"name":"Ann"},"lines":[{"tool_id":9,"quantity":1}]}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "insufficient stock")
	})

	t.Run("UnknownField", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals", `{"customer":{"name":"Ann"},"tools":[]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		s.coordinator.AssertNotCalled(t, "CreateRental", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer()
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()

	NewRouter(s.handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestReturnItems(t *testing.T) {
	s := newTestServer()
	lines := []domain.ReturnLine{{ItemID: 21, Quantity: 1}}
	s.coordinator.On("ReturnItems", mock.Anything, int32(1), int32(11), lines).Return(&domain.ReturnQuote{
		RentalID: 11, Days: 4, Cost: decimal.NewFromInt(8000), Due: decimal.NewFromInt(8000),
		Status: domain.RentalStatusReturned, FullyReturned: true,
	}, nil)

	rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals/11/returns", `{"lines":[{"item_id":21,"quantity":1}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "8000", body["due"])
	assert.Equal(t, true, body["fully_returned"])
}

func TestSettleReturn_TransientIsRetryable(t *testing.T) {
	s := newTestServer()
	s.coordinator.On("SettleReturn", mock.Anything, int32(1), int32(11), mock.Anything).
		Return(nil, fmt.Errorf("SettleReturn failed after 3 attempts: %w", domain.ErrTransient))

	rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals/11/settlement", `{"mode":"full"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestPayDebt(t *testing.T) {
	t.Run("Partial", func(t *testing.T) {
		s := newTestServer()
		s.coordinator.On("PayDebt", mock.Anything, int32(1), int32(31), domain.SettlementPartial,
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(2500)) })).
			Return(&domain.Debt{ID: 31, Amount: decimal.NewFromInt(4500)}, &domain.Payment{ID: 41, Amount: decimal.NewFromInt(2500)}, nil)

		rec := s.do(http.MethodPost, "/api/v1/accounts/1/debts/31/payments", `{"mode":"partial","amount":"2500"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "4500", body["debt"].(map[string]any)["amount"])
		assert.Equal(t, "2500", body["payment"].(map[string]any)["amount"])
	})

	t.Run("OverBalance", func(t *testing.T) {
		s := newTestServer()
		s.coordinator.On("PayDebt", mock.Anything, int32(1), int32(31), domain.SettlementPartial, mock.Anything).
			Return(nil, nil, fmt.Errorf("%w: 9000 exceeds balance 7000", domain.ErrInvalidAmount))

		rec := s.do(http.MethodPost, "/api/v1/accounts/1/debts/31/payments", `{"mode":"partial","amount":9000}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestGetRental(t *testing.T) {
	t.Run("WithLiveCost", func(t *testing.T) {
		s := newTestServer()
		s.rentals.On("GetRental", mock.Anything, int32(1), int32(11)).Return(&domain.Rental{ID: 11, Status: domain.RentalStatusActive}, nil)
		s.rentals.On("ComputeRentalCost", mock.Anything, int32(1), int32(11)).Return(decimal.NewFromInt(6000), nil)

		rec := s.do(http.MethodGet, "/api/v1/accounts/1/rentals/11", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 11, body["id"])
		assert.Equal(t, "6000", body["current_cost"])
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newTestServer()
		s.rentals.On("GetRental", mock.Anything, int32(1), int32(12)).Return(nil, domain.ErrNotFound)

		rec := s.do(http.MethodGet, "/api/v1/accounts/1/rentals/12", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCloseRental_Outstanding(t *testing.T) {
	s := newTestServer()
	s.rentals.On("CloseRental", mock.Anything, int32(1), int32(11)).Return(nil, fmt.Errorf("%w: 2 units still out", domain.ErrRentalOutstanding))

	rec := s.do(http.MethodPost, "/api/v1/accounts/1/rentals/11/close", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListPayments(t *testing.T) {
	s := newTestServer()
	s.ledger.On("ListPayments", mock.Anything, int32(1), int32(11)).Return([]domain.Payment{{ID: 41, Amount: decimal.NewFromInt(3000)}}, nil)
	s.ledger.On("TotalPaid", mock.Anything, int32(1), int32(11)).Return(decimal.NewFromInt(3000), nil)

	rec := s.do(http.MethodGet, "/api/v1/accounts/1/rentals/11/payments", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "3000", body["paid"])
	assert.Len(t, body["items"], 1)
}

func TestListTools(t *testing.T) {
	t.Run("Available", func(t *testing.T) {
		s := newTestServer()
		s.tools.On("ListAvailableTools", mock.Anything, int32(1)).Return([]domain.Tool{{ID: 9, Name: "Drill", Quantity: 2}}, nil)

		rec := s.do(http.MethodGet, "/api/v1/accounts/1/tools?available=true", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["total"])
	})

	t.Run("Search", func(t *testing.T) {
		s := newTestServer()
		s.tools.On("SearchTools", mock.Anything, int32(1), "drill", int32(2), int32(5)).Return([]domain.Tool{}, int32(0), nil)

		rec := s.do(http.MethodGet, "/api/v1/accounts/1/tools?q=drill&page=2&page_size=5", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		s.tools.AssertExpectations(t)
	})
}

func TestListRentals_SearchActive(t *testing.T) {
	s := newTestServer()
	s.rentals.On("SearchRentals", mock.Anything, int32(1), "555-01").Return([]domain.Rental{
		{ID: 11, AccountID: 1, Customer: domain.Customer{Name: "Ann Lee", Phone: "555-0100"}, Status: domain.RentalStatusActive},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/accounts/1/rentals?q=555-01", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])
	items := body["items"].([]any)
	assert.Equal(t, "active", items[0].(map[string]any)["status"])
	s.rentals.AssertExpectations(t)
}

func TestAdjustStock(t *testing.T) {
	t.Run("Withdraw", func(t *testing.T) {
		s := newTestServer()
		s.tools.On("DecrementStock", mock.Anything, int32(1), int32(9), int32(2)).Return(nil)
		s.tools.On("GetTool", mock.Anything, int32(1), int32(9)).Return(&domain.Tool{ID: 9, Quantity: 3}, nil)

		rec := s.do(http.MethodPost, "/api/v1/accounts/1/tools/9/stock", `{"delta":-2}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decodeBody(t, rec)["quantity"])
	})

	t.Run("ZeroDelta", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, "/api/v1/accounts/1/tools/9/stock", `{"delta":0}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDeleteTool_InUse(t *testing.T) {
	s := newTestServer()
	s.tools.On("DeleteTool", mock.Anything, int32(1), int32(9)).Return(fmt.Errorf("%w: 1 units still out", domain.ErrToolInUse))

	rec := s.do(http.MethodDelete, "/api/v1/accounts/1/tools/9", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTotalDebt(t *testing.T) {
	s := newTestServer()
	s.ledger.On("TotalOpenDebt", mock.Anything, int32(1)).Return(decimal.RequireFromString("7000.50"), nil)

	rec := s.do(http.MethodGet, "/api/v1/accounts/1/debts/total", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7000.5", decodeBody(t, rec)["total"])
}

func TestRegisterAccount_InternalErrorIsHidden(t *testing.T) {
	s := newTestServer()
	s.accounts.On("RegisterAccount", mock.Anything, mock.Anything).Return(errors.New("pq: relation \"accounts\" does not exist"))

	rec := s.do(http.MethodPost, "/api/v1/accounts", `{"external_id":42,"full_name":"Sam"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody(t, rec)["error"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInsufficientStock, http.StatusConflict},
		{domain.ErrToolInUse, http.StatusConflict},
		{domain.ErrDuplicateName, http.StatusConflict},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrTransient), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
