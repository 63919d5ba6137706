package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"
	"rental-ledger-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ledgerService struct {
	store repository.Store
	opts  Options
}

func NewLedgerService(store repository.Store, opts Options) LedgerService {
	return &ledgerService{
		store: store,
		opts:  opts.withDefaults(),
	}
}

func positiveMoney(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = domain.RoundMoney(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	return amount, nil
}

func (s *ledgerService) RecordPayment(ctx context.Context, accountID int32, rentalID *int32, amount decimal.Decimal) (*domain.Payment, error) {
	amount, err := positiveMoney(amount)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = withRetry(ctx, s.opts, "RecordPayment", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			if rentalID != nil {
				if _, err := tx.Rentals().GetByID(ctx, accountID, *rentalID); err != nil {
					return fmt.Errorf("rental %d: %w", *rentalID, err)
				}
			}
			var err error
			payment, err = recordPayment(ctx, tx, accountID, rentalID, amount)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *ledgerService) TotalPaid(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error) {
	if _, err := s.store.Rentals().GetByID(ctx, accountID, rentalID); err != nil {
		return decimal.Zero, err
	}
	total, err := s.store.Payments().TotalForRental(ctx, rentalID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(total), nil
}

func (s *ledgerService) ListPayments(ctx context.Context, accountID, rentalID int32) ([]domain.Payment, error) {
	if _, err := s.store.Rentals().GetByID(ctx, accountID, rentalID); err != nil {
		return nil, err
	}
	return s.store.Payments().ListByRental(ctx, rentalID)
}

func (s *ledgerService) AddDebt(ctx context.Context, accountID int32, customer domain.Customer, amount decimal.Decimal, rentalID *int32) (*domain.Debt, error) {
	var debt *domain.Debt
	err := withRetry(ctx, s.opts, "AddDebt", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			var err error
			debt, err = addDebt(ctx, tx, accountID, customer, amount, rentalID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// SettleDebt reduces a debt without recording a payment. On a rental's debt
// the same amount is written off the rental's charges so it does not come
// back as due.
func (s *ledgerService) SettleDebt(ctx context.Context, accountID, debtID int32, amount decimal.Decimal) (decimal.Decimal, error) {
	amount, err := positiveMoney(amount)
	if err != nil {
		return decimal.Zero, err
	}

	var debt *domain.Debt
	err = withRetry(ctx, s.opts, "SettleDebt", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			locked, err := lockDebt(ctx, tx, accountID, debtID)
			if err != nil {
				return err
			}
			if debt, err = settleDebt(ctx, tx, locked, amount); err != nil {
				return err
			}
			return writeOff(ctx, tx, debt, amount)
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return debt.Amount, nil
}

func (s *ledgerService) GetDebt(ctx context.Context, accountID, debtID int32) (*domain.Debt, error) {
	return s.store.Debts().GetByID(ctx, accountID, debtID)
}

func (s *ledgerService) ListOpenDebts(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Debt, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Debts().ListOpen(ctx, accountID, page, pageSize)
}

func (s *ledgerService) SearchOpenDebts(ctx context.Context, accountID int32, query string) ([]domain.Debt, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search", domain.ErrInvalidInput)
	}
	return s.store.Debts().SearchOpen(ctx, accountID, query)
}

func (s *ledgerService) TotalOpenDebt(ctx context.Context, accountID int32) (decimal.Decimal, error) {
	total, err := s.store.Debts().TotalOpen(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(total), nil
}

// DeleteDebt forgives whatever is left on a debt and removes it.
func (s *ledgerService) DeleteDebt(ctx context.Context, accountID, debtID int32) error {
	var forgiven decimal.Decimal
	err := withRetry(ctx, s.opts, "DeleteDebt", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			debt, err := lockDebt(ctx, tx, accountID, debtID)
			if err != nil {
				return err
			}
			if err := writeOff(ctx, tx, debt, debt.Amount); err != nil {
				return err
			}
			forgiven = debt.Amount
			return tx.Debts().Delete(ctx, accountID, debtID)
		})
	})
	if err != nil {
		return err
	}
	logger.Info("Debt deleted", "accountID", accountID, "debtID", debtID, "forgiven", forgiven)
	return nil
}

// Summary rolls up active rentals and open debt for one account. It reads
// without locks and is only used for display and reports.
func (s *ledgerService) Summary(ctx context.Context, accountID int32) (*domain.LedgerSummary, error) {
	summary := &domain.LedgerSummary{AccountID: accountID, Valuation: decimal.Zero}
	now := s.opts.Now()

	for page := int32(1); ; page++ {
		rentals, total, err := s.store.Rentals().ListActive(ctx, accountID, page, maxPageSize)
		if err != nil {
			return nil, err
		}
		summary.ActiveRentals = total
		for _, r := range rentals {
			items, err := s.store.Rentals().ListItems(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			days := utils.ElapsedDays(r.StartedAt, now, s.opts.Location)
			summary.Valuation = summary.Valuation.Add(utils.RentalCost(items, days))
		}
		if len(rentals) < maxPageSize || page*maxPageSize >= total {
			break
		}
	}
	summary.Valuation = domain.RoundMoney(summary.Valuation)

	open, err := s.TotalOpenDebt(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary.OpenDebt = open
	return summary, nil
}

func recordPayment(ctx context.Context, tx repository.Repositories, accountID int32, rentalID *int32, amount decimal.Decimal) (*domain.Payment, error) {
	payment := &domain.Payment{
		AccountID: accountID,
		RentalID:  rentalID,
		Amount:    domain.RoundMoney(amount),
		Reference: uuid.NewString(),
	}
	if err := tx.Payments().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	logger.Info("Payment recorded", "accountID", accountID, "paymentID", payment.ID, "amount", payment.Amount, "reference", payment.Reference)
	return payment, nil
}

// addDebt books a shortfall. A debt tied to a rental accumulates onto that
// rental's open debt if there is one. The rental row is locked first and
// then the candidate debt row, so two shortfalls for one rental serialize
// and never produce two open rows.
func addDebt(ctx context.Context, tx repository.Repositories, accountID int32, customer domain.Customer, amount decimal.Decimal, rentalID *int32) (*domain.Debt, error) {
	amount, err := positiveMoney(amount)
	if err != nil {
		return nil, err
	}

	if rentalID != nil {
		if _, err := tx.Rentals().LockByID(ctx, accountID, *rentalID); err != nil {
			return nil, fmt.Errorf("rental %d: %w", *rentalID, err)
		}

		debt, err := tx.Debts().LockOpenByRental(ctx, accountID, *rentalID)
		switch {
		case err == nil:
			if strings.TrimSpace(customer.Name) == "" {
				customer = debt.Customer
			}
			if err := tx.Debts().Accumulate(ctx, debt.ID, amount, customer); err != nil {
				return nil, err
			}
			debt.Amount = domain.RoundMoney(debt.Amount.Add(amount))
			debt.Customer = domain.Customer{Name: customer.Name, Phone: customer.Phone}
			logger.Info("Debt accumulated", "accountID", accountID, "debtID", debt.ID, "added", amount, "amount", debt.Amount)
			return debt, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: debt needs a customer name", domain.ErrInvalidInput)
	}
	debt := &domain.Debt{
		AccountID: accountID,
		RentalID:  rentalID,
		Customer:  domain.Customer{Name: customer.Name, Phone: customer.Phone},
		Amount:    amount,
	}
	if err := tx.Debts().Create(ctx, debt); err != nil {
		return nil, err
	}
	logger.Info("Debt created", "accountID", accountID, "debtID", debt.ID, "amount", debt.Amount)
	return debt, nil
}

// lockDebt locks a debt. A debt tied to a rental is locked after the rental,
// the order addDebt uses, so balance reads under the rental lock see debts
// and payments move together.
func lockDebt(ctx context.Context, tx repository.Repositories, accountID, debtID int32) (*domain.Debt, error) {
	current, err := tx.Debts().GetByID(ctx, accountID, debtID)
	if err != nil {
		return nil, fmt.Errorf("debt %d: %w", debtID, err)
	}
	if current.RentalID != nil {
		if _, err := tx.Rentals().LockByID(ctx, accountID, *current.RentalID); err != nil {
			return nil, fmt.Errorf("rental %d: %w", *current.RentalID, err)
		}
	}
	debt, err := tx.Debts().LockByID(ctx, accountID, debtID)
	if err != nil {
		return nil, fmt.Errorf("debt %d: %w", debtID, err)
	}
	return debt, nil
}

// settleDebt subtracts amount from a debt locked by lockDebt. The row stays,
// at zero once cleared.
func settleDebt(ctx context.Context, tx repository.Repositories, debt *domain.Debt, amount decimal.Decimal) (*domain.Debt, error) {
	amount, err := positiveMoney(amount)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(debt.Amount) {
		return nil, fmt.Errorf("%w: %s exceeds balance %s", domain.ErrInvalidAmount, amount, debt.Amount)
	}

	remaining := domain.MaxMoney(domain.RoundMoney(debt.Amount.Sub(amount)), decimal.Zero)
	if err := tx.Debts().UpdateAmount(ctx, debt.ID, remaining); err != nil {
		return nil, err
	}
	debt.Amount = remaining
	return debt, nil
}

// writeOff takes an amount no longer owed off the debt's rental charges.
// The rental must already be locked.
func writeOff(ctx context.Context, tx repository.Repositories, debt *domain.Debt, amount decimal.Decimal) error {
	amount = domain.RoundMoney(amount)
	if debt.RentalID == nil || !amount.IsPositive() {
		return nil
	}
	return tx.Rentals().AddCharge(ctx, *debt.RentalID, amount.Neg())
}
