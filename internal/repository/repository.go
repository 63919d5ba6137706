package repository

import (
	"context"
	"database/sql"
	"time"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories run the same
// SQL inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int32) (*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID int64) (*domain.Account, error)
	List(ctx context.Context, page, pageSize int32) ([]domain.Account, int32, error)
	ListActive(ctx context.Context) ([]domain.Account, error)
	SetActive(ctx context.Context, id int32, active bool) error
	Delete(ctx context.Context, id int32) error
}

// ToolRepository methods named Lock* read with FOR UPDATE and are only
// meaningful inside a transaction.
type ToolRepository interface {
	Create(ctx context.Context, tool *domain.Tool) error
	GetByID(ctx context.Context, accountID, id int32) (*domain.Tool, error)
	LockByID(ctx context.Context, accountID, id int32) (*domain.Tool, error)
	ListByAccount(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Tool, int32, error)
	ListAvailable(ctx context.Context, accountID int32) ([]domain.Tool, error)
	Search(ctx context.Context, accountID int32, query string, page, pageSize int32) ([]domain.Tool, int32, error)
	Update(ctx context.Context, tool *domain.Tool) error
	AdjustQuantity(ctx context.Context, accountID, id int32, delta int32) error
	CountOutstanding(ctx context.Context, toolID int32) (int32, error)
	Delete(ctx context.Context, accountID, id int32) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	CreateItem(ctx context.Context, item *domain.RentalItem) error
	GetByID(ctx context.Context, accountID, id int32) (*domain.Rental, error)
	LockByID(ctx context.Context, accountID, id int32) (*domain.Rental, error)
	ListItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error)
	LockItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error)
	LockItemsByIDs(ctx context.Context, rentalID int32, itemIDs []int32) ([]domain.RentalItem, error)
	AddReturned(ctx context.Context, itemID int32, quantity int32) error
	UpdateStatus(ctx context.Context, accountID, id int32, from, to domain.RentalStatus) error
	AddCharge(ctx context.Context, id int32, amount decimal.Decimal) error
	ListActive(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Rental, int32, error)
	Search(ctx context.Context, accountID int32, query string) ([]domain.Rental, error)
	ListStartedBefore(ctx context.Context, accountID int32, before time.Time) ([]domain.Rental, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	TotalForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error)
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error)
}

type DebtRepository interface {
	Create(ctx context.Context, debt *domain.Debt) error
	GetByID(ctx context.Context, accountID, id int32) (*domain.Debt, error)
	LockByID(ctx context.Context, accountID, id int32) (*domain.Debt, error)
	LockOpenByRental(ctx context.Context, accountID, rentalID int32) (*domain.Debt, error)
	Accumulate(ctx context.Context, id int32, amount decimal.Decimal, customer domain.Customer) error
	UpdateAmount(ctx context.Context, id int32, amount decimal.Decimal) error
	OpenAmountForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error)
	ListOpen(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Debt, int32, error)
	SearchOpen(ctx context.Context, accountID int32, query string) ([]domain.Debt, error)
	TotalOpen(ctx context.Context, accountID int32) (decimal.Decimal, error)
	Delete(ctx context.Context, accountID, id int32) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Accounts() AccountRepository
	Tools() ToolRepository
	Rentals() RentalRepository
	Payments() PaymentRepository
	Debts() DebtRepository
}

// Store hands out repositories on the pool and runs units of work in a
// transaction. fn's error rolls the transaction back; nil commits it.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
}
