package http

import (
	"net/http"
	"time"

	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler serves the ledger's JSON API. Every route is scoped to one
// account.
type Handler struct {
	accounts    service.AccountService
	tools       service.ToolService
	rentals     service.RentalService
	ledger      service.LedgerService
	coordinator service.Coordinator
}

func NewHandler(
	accounts service.AccountService,
	tools service.ToolService,
	rentals service.RentalService,
	ledger service.LedgerService,
	coordinator service.Coordinator,
) *Handler {
	return &Handler{
		accounts:    accounts,
		tools:       tools,
		rentals:     rentals,
		ledger:      ledger,
		coordinator: coordinator,
	}
}

// NewRouter registers every route on a fresh router.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/accounts", h.RegisterAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)

	acct := api.PathPrefix("/accounts/{accountID:[0-9]+}").Subrouter()
	acct.HandleFunc("", h.GetAccount).Methods(http.MethodGet)
	acct.HandleFunc("", h.DeleteAccount).Methods(http.MethodDelete)
	acct.HandleFunc("/activate", h.ActivateAccount).Methods(http.MethodPost)
	acct.HandleFunc("/deactivate", h.DeactivateAccount).Methods(http.MethodPost)
	acct.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)

	acct.HandleFunc("/tools", h.ListTools).Methods(http.MethodGet)
	acct.HandleFunc("/tools", h.AddTool).Methods(http.MethodPost)
	acct.HandleFunc("/tools/{toolID:[0-9]+}", h.GetTool).Methods(http.MethodGet)
	acct.HandleFunc("/tools/{toolID:[0-9]+}", h.UpdateTool).Methods(http.MethodPatch)
	acct.HandleFunc("/tools/{toolID:[0-9]+}", h.DeleteTool).Methods(http.MethodDelete)
	acct.HandleFunc("/tools/{toolID:[0-9]+}/stock", h.AdjustStock).Methods(http.MethodPost)

	acct.HandleFunc("/rentals", h.ListRentals).Methods(http.MethodGet)
	acct.HandleFunc("/rentals", h.CreateRental).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}", h.GetRental).Methods(http.MethodGet)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/returns", h.ReturnItems).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/returns/all", h.ReturnAll).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/returns/quote", h.QuoteReturn).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/settlement", h.SettleReturn).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/close", h.CloseRental).Methods(http.MethodPost)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/payments", h.ListPayments).Methods(http.MethodGet)
	acct.HandleFunc("/rentals/{rentalID:[0-9]+}/payments", h.RecordPayment).Methods(http.MethodPost)

	acct.HandleFunc("/debts", h.ListDebts).Methods(http.MethodGet)
	acct.HandleFunc("/debts", h.AddDebt).Methods(http.MethodPost)
	acct.HandleFunc("/debts/total", h.TotalDebt).Methods(http.MethodGet)
	acct.HandleFunc("/debts/{debtID:[0-9]+}", h.GetDebt).Methods(http.MethodGet)
	acct.HandleFunc("/debts/{debtID:[0-9]+}", h.DeleteDebt).Methods(http.MethodDelete)
	acct.HandleFunc("/debts/{debtID:[0-9]+}/payments", h.PayDebt).Methods(http.MethodPost)

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestIDMiddleware tags every request with an id, echoed back in
// X-Request-ID and attached to context-aware log lines.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logger.ContextWithRequestID(r.Context(), id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.DebugContext(ctx, "Request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
