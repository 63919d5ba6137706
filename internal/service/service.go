package service

import (
	"context"
	"time"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type AccountService interface {
	RegisterAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id int32) (*domain.Account, error)
	GetAccountByExternalID(ctx context.Context, externalID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, page, pageSize int32) ([]domain.Account, int32, error)
	ListActiveAccounts(ctx context.Context) ([]domain.Account, error)
	ActivateAccount(ctx context.Context, id int32) error
	DeactivateAccount(ctx context.Context, id int32) error
	DeleteAccount(ctx context.Context, id int32) error
}

// ToolService is the inventory store of one account.
type ToolService interface {
	AddTool(ctx context.Context, tool *domain.Tool) error
	GetTool(ctx context.Context, accountID, toolID int32) (*domain.Tool, error)
	ListTools(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Tool, int32, error)
	ListAvailableTools(ctx context.Context, accountID int32) ([]domain.Tool, error)
	SearchTools(ctx context.Context, accountID int32, query string, page, pageSize int32) ([]domain.Tool, int32, error)
	UpdateTool(ctx context.Context, accountID, toolID int32, update domain.ToolUpdate) (*domain.Tool, error)
	DecrementStock(ctx context.Context, accountID, toolID int32, amount int32) error
	IncrementStock(ctx context.Context, accountID, toolID int32, amount int32) error
	DeleteTool(ctx context.Context, accountID, toolID int32) error
}

type RentalService interface {
	GetRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error)
	ListActiveRentals(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Rental, int32, error)
	SearchRentals(ctx context.Context, accountID int32, query string) ([]domain.Rental, error)
	ListUnreturnedItems(ctx context.Context, accountID, rentalID int32) ([]domain.RentalItem, error)
	ListStaleRentals(ctx context.Context, accountID int32, olderThan time.Duration) ([]domain.Rental, error)
	ComputeRentalCost(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error)
	ComputeReturnCost(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) ([]domain.AppliedReturn, decimal.Decimal, error)
	ProcessReturn(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) ([]domain.AppliedReturn, error)
	CloseRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error)
	IsFullyReturned(ctx context.Context, accountID, rentalID int32) (bool, error)
}

// LedgerService owns payments and debts.
type LedgerService interface {
	RecordPayment(ctx context.Context, accountID int32, rentalID *int32, amount decimal.Decimal) (*domain.Payment, error)
	TotalPaid(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error)
	ListPayments(ctx context.Context, accountID, rentalID int32) ([]domain.Payment, error)
	AddDebt(ctx context.Context, accountID int32, customer domain.Customer, amount decimal.Decimal, rentalID *int32) (*domain.Debt, error)
	SettleDebt(ctx context.Context, accountID, debtID int32, amount decimal.Decimal) (decimal.Decimal, error)
	GetDebt(ctx context.Context, accountID, debtID int32) (*domain.Debt, error)
	ListOpenDebts(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Debt, int32, error)
	SearchOpenDebts(ctx context.Context, accountID int32, query string) ([]domain.Debt, error)
	TotalOpenDebt(ctx context.Context, accountID int32) (decimal.Decimal, error)
	DeleteDebt(ctx context.Context, accountID, debtID int32) error
	Summary(ctx context.Context, accountID int32) (*domain.LedgerSummary, error)
}

// Coordinator runs the operations that span inventory, rentals and the
// payment ledger, each as one atomic unit.
type Coordinator interface {
	CreateRental(ctx context.Context, accountID int32, customer domain.Customer, lines []domain.RentalLine) (*domain.Rental, error)
	ReturnItems(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) (*domain.ReturnQuote, error)
	ReturnAll(ctx context.Context, accountID, rentalID int32) (*domain.ReturnQuote, error)
	SettleReturn(ctx context.Context, accountID, rentalID int32, req domain.SettlementRequest) (*domain.SettlementResult, error)
	PayDebt(ctx context.Context, accountID, debtID int32, mode domain.SettlementMode, amount decimal.Decimal) (*domain.Debt, *domain.Payment, error)
}

// Options tune the ledger services. Zero values are replaced by defaults.
type Options struct {
	Location      *time.Location
	Now           func() time.Time
	RetryAttempts int
	RetryBackoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 100 * time.Millisecond
	}
	return o
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
