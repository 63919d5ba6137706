package service

import (
	"context"
	"time"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAccountRepo) GetByID(ctx context.Context, id int32) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) GetByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) List(ctx context.Context, page, pageSize int32) ([]domain.Account, int32, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.Account), args.Get(1).(int32), args.Error(2)
}
func (m *MockAccountRepo) ListActive(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockAccountRepo) SetActive(ctx context.Context, id int32, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}
func (m *MockAccountRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockToolRepo
type MockToolRepo struct {
	mock.Mock
}

func (m *MockToolRepo) Create(ctx context.Context, t *domain.Tool) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *MockToolRepo) GetByID(ctx context.Context, accountID, id int32) (*domain.Tool, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tool), args.Error(1)
}
func (m *MockToolRepo) LockByID(ctx context.Context, accountID, id int32) (*domain.Tool, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tool), args.Error(1)
}
func (m *MockToolRepo) ListByAccount(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Tool, int32, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	return args.Get(0).([]domain.Tool), args.Get(1).(int32), args.Error(2)
}
func (m *MockToolRepo) ListAvailable(ctx context.Context, accountID int32) ([]domain.Tool, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Tool), args.Error(1)
}
func (m *MockToolRepo) Search(ctx context.Context, accountID int32, query string, page, pageSize int32) ([]domain.Tool, int32, error) {
	args := m.Called(ctx, accountID, query, page, pageSize)
	return args.Get(0).([]domain.Tool), args.Get(1).(int32), args.Error(2)
}
func (m *MockToolRepo) Update(ctx context.Context, t *domain.Tool) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
func (m *MockToolRepo) AdjustQuantity(ctx context.Context, accountID, id int32, delta int32) error {
	args := m.Called(ctx, accountID, id, delta)
	return args.Error(0)
}
func (m *MockToolRepo) CountOutstanding(ctx context.Context, toolID int32) (int32, error) {
	args := m.Called(ctx, toolID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockToolRepo) Delete(ctx context.Context, accountID, id int32) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, r *domain.Rental) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRentalRepo) CreateItem(ctx context.Context, item *domain.RentalItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, accountID, id int32) (*domain.Rental, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) LockByID(ctx context.Context, accountID, id int32) (*domain.Rental, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).([]domain.RentalItem), args.Error(1)
}
func (m *MockRentalRepo) LockItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).([]domain.RentalItem), args.Error(1)
}
func (m *MockRentalRepo) LockItemsByIDs(ctx context.Context, rentalID int32, itemIDs []int32) ([]domain.RentalItem, error) {
	args := m.Called(ctx, rentalID, itemIDs)
	return args.Get(0).([]domain.RentalItem), args.Error(1)
}
func (m *MockRentalRepo) AddReturned(ctx context.Context, itemID int32, quantity int32) error {
	args := m.Called(ctx, itemID, quantity)
	return args.Error(0)
}
func (m *MockRentalRepo) UpdateStatus(ctx context.Context, accountID, id int32, from, to domain.RentalStatus) error {
	args := m.Called(ctx, accountID, id, from, to)
	return args.Error(0)
}
func (m *MockRentalRepo) AddCharge(ctx context.Context, id int32, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}
func (m *MockRentalRepo) ListActive(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	return args.Get(0).([]domain.Rental), args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalRepo) Search(ctx context.Context, accountID int32, query string) ([]domain.Rental, error) {
	args := m.Called(ctx, accountID, query)
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListStartedBefore(ctx context.Context, accountID int32, before time.Time) ([]domain.Rental, error) {
	args := m.Called(ctx, accountID, before)
	return args.Get(0).([]domain.Rental), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) TotalForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockPaymentRepo) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// MockDebtRepo
type MockDebtRepo struct {
	mock.Mock
}

func (m *MockDebtRepo) Create(ctx context.Context, d *domain.Debt) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockDebtRepo) GetByID(ctx context.Context, accountID, id int32) (*domain.Debt, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Debt), args.Error(1)
}
func (m *MockDebtRepo) LockByID(ctx context.Context, accountID, id int32) (*domain.Debt, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Debt), args.Error(1)
}
func (m *MockDebtRepo) LockOpenByRental(ctx context.Context, accountID, rentalID int32) (*domain.Debt, error) {
	args := m.Called(ctx, accountID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Debt), args.Error(1)
}
func (m *MockDebtRepo) Accumulate(ctx context.Context, id int32, amount decimal.Decimal, customer domain.Customer) error {
	args := m.Called(ctx, id, amount, customer)
	return args.Error(0)
}
func (m *MockDebtRepo) UpdateAmount(ctx context.Context, id int32, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}
func (m *MockDebtRepo) OpenAmountForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockDebtRepo) ListOpen(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Debt, int32, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	return args.Get(0).([]domain.Debt), args.Get(1).(int32), args.Error(2)
}
func (m *MockDebtRepo) SearchOpen(ctx context.Context, accountID int32, query string) ([]domain.Debt, error) {
	args := m.Called(ctx, accountID, query)
	return args.Get(0).([]domain.Debt), args.Error(1)
}
func (m *MockDebtRepo) TotalOpen(ctx context.Context, accountID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockDebtRepo) Delete(ctx context.Context, accountID, id int32) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

// fakeStore hands the same mocks out inside and outside transactions and
// counts how each transaction ended. txErrs, when set, are returned by
// successive WithTx calls before fn runs, to simulate a failed begin.
type fakeStore struct {
	accounts *MockAccountRepo
	tools    *MockToolRepo
	rentals  *MockRentalRepo
	payments *MockPaymentRepo
	debts    *MockDebtRepo

	txErrs    []error
	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: new(MockAccountRepo),
		tools:    new(MockToolRepo),
		rentals:  new(MockRentalRepo),
		payments: new(MockPaymentRepo),
		debts:    new(MockDebtRepo),
	}
}

func (s *fakeStore) Accounts() repository.AccountRepository { return s.accounts }
func (s *fakeStore) Tools() repository.ToolRepository       { return s.tools }
func (s *fakeStore) Rentals() repository.RentalRepository   { return s.rentals }
func (s *fakeStore) Payments() repository.PaymentRepository { return s.payments }
func (s *fakeStore) Debts() repository.DebtRepository       { return s.debts }

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if len(s.txErrs) > 0 {
		err := s.txErrs[0]
		s.txErrs = s.txErrs[1:]
		if err != nil {
			s.rollbacks++
			return err
		}
	}
	if err := fn(s); err != nil {
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *fakeStore) assertExpectations(t mock.TestingT) {
	s.accounts.AssertExpectations(t)
	s.tools.AssertExpectations(t)
	s.rentals.AssertExpectations(t)
	s.payments.AssertExpectations(t)
	s.debts.AssertExpectations(t)
}

var testNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Location:      time.UTC,
		Now:           func() time.Time { return testNow },
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value rather than representation.
func decEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}
