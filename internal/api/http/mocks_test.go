package http

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// The mocks embed their interface; only the methods exercised here are
// overridden.

type MockAccountService struct {
	mock.Mock
	service.AccountService
}

func (m *MockAccountService) RegisterAccount(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type MockToolService struct {
	mock.Mock
	service.ToolService
}

func (m *MockToolService) GetTool(ctx context.Context, accountID, toolID int32) (*domain.Tool, error) {
	args := m.Called(ctx, accountID, toolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tool), args.Error(1)
}
func (m *MockToolService) ListAvailableTools(ctx context.Context, accountID int32) ([]domain.Tool, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Tool), args.Error(1)
}
func (m *MockToolService) SearchTools(ctx context.Context, accountID int32, query string, page, pageSize int32) ([]domain.Tool, int32, error) {
	args := m.Called(ctx, accountID, query, page, pageSize)
	return args.Get(0).([]domain.Tool), args.Get(1).(int32), args.Error(2)
}
func (m *MockToolService) DecrementStock(ctx context.Context, accountID, toolID int32, amount int32) error {
	args := m.Called(ctx, accountID, toolID, amount)
	return args.Error(0)
}
func (m *MockToolService) DeleteTool(ctx context.Context, accountID, toolID int32) error {
	args := m.Called(ctx, accountID, toolID)
	return args.Error(0)
}

type MockRentalService struct {
	mock.Mock
	service.RentalService
}

func (m *MockRentalService) GetRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error) {
	args := m.Called(ctx, accountID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalService) SearchRentals(ctx context.Context, accountID int32, query string) ([]domain.Rental, error) {
	args := m.Called(ctx, accountID, query)
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalService) ComputeRentalCost(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, rentalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockRentalService) CloseRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error) {
	args := m.Called(ctx, accountID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
	service.LedgerService
}

func (m *MockLedgerService) TotalOpenDebt(ctx context.Context, accountID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockLedgerService) ListPayments(ctx context.Context, accountID, rentalID int32) ([]domain.Payment, error) {
	args := m.Called(ctx, accountID, rentalID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockLedgerService) TotalPaid(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, rentalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) CreateRental(ctx context.Context, accountID int32, customer domain.Customer, lines []domain.RentalLine) (*domain.Rental, error) {
	args := m.Called(ctx, accountID, customer, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockCoordinator) ReturnItems(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) (*domain.ReturnQuote, error) {
	args := m.Called(ctx, accountID, rentalID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnQuote), args.Error(1)
}
func (m *MockCoordinator) ReturnAll(ctx context.Context, accountID, rentalID int32) (*domain.ReturnQuote, error) {
	args := m.Called(ctx, accountID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnQuote), args.Error(1)
}
func (m *MockCoordinator) SettleReturn(ctx context.Context, accountID, rentalID int32, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	args := m.Called(ctx, accountID, rentalID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}
func (m *MockCoordinator) PayDebt(ctx context.Context, accountID, debtID int32, mode domain.SettlementMode, amount decimal.Decimal) (*domain.Debt, *domain.Payment, error) {
	args := m.Called(ctx, accountID, debtID, mode, amount)
	var debt *domain.Debt
	var payment *domain.Payment
	if v := args.Get(0); v != nil {
		debt = v.(*domain.Debt)
	}
	if v := args.Get(1); v != nil {
		payment = v.(*domain.Payment)
	}
	return debt, payment, args.Error(2)
}

type testServer struct {
	accounts    *MockAccountService
	tools       *MockToolService
	rentals     *MockRentalService
	ledger      *MockLedgerService
	coordinator *MockCoordinator
	handler     *Handler
}

func newTestServer() *testServer {
	s := &testServer{
		accounts:    new(MockAccountService),
		tools:       new(MockToolService),
		rentals:     new(MockRentalService),
		ledger:      new(MockLedgerService),
		coordinator: new(MockCoordinator),
	}
	s.handler = NewHandler(s.accounts, s.tools, s.rentals, s.ledger, s.coordinator)
	return s
}
