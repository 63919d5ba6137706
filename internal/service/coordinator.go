package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type coordinator struct {
	store repository.Store
	opts  Options
}

func NewCoordinator(store repository.Store, opts Options) Coordinator {
	return &coordinator{
		store: store,
		opts:  opts.withDefaults(),
	}
}

func validateRentalLines(customer domain.Customer, lines []domain.RentalLine) error {
	if strings.TrimSpace(customer.Name) == "" {
		return fmt.Errorf("%w: customer name is required", domain.ErrInvalidInput)
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: rental has no lines", domain.ErrInvalidAmount)
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: quantity %d for tool %d", domain.ErrInvalidAmount, l.Quantity, l.ToolID)
		}
		if l.DailyPrice != nil && l.DailyPrice.IsNegative() {
			return fmt.Errorf("%w: negative price for tool %d", domain.ErrInvalidAmount, l.ToolID)
		}
	}
	return nil
}

// CreateRental books every line in one transaction: header, stock
// decrements and items. Any failing line rolls the whole rental back.
func (c *coordinator) CreateRental(ctx context.Context, accountID int32, customer domain.Customer, lines []domain.RentalLine) (*domain.Rental, error) {
	if err := validateRentalLines(customer, lines); err != nil {
		return nil, err
	}
	logger.EnterMethod("coordinator.CreateRental", "accountID", accountID, "lines", len(lines))

	// Stock rows are locked in ascending tool order so two multi-tool
	// rentals cannot deadlock on each other.
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return lines[order[a]].ToolID < lines[order[b]].ToolID })

	var rental *domain.Rental
	err := withRetry(ctx, c.opts, "CreateRental", func() error {
		return c.store.WithTx(ctx, func(tx repository.Repositories) error {
			r := &domain.Rental{
				AccountID:    accountID,
				Customer:     customer,
				Status:       domain.RentalStatusActive,
				StartedAt:    c.opts.Now().UTC(),
				ChargedTotal: decimal.Zero,
			}
			if err := tx.Rentals().Create(ctx, r); err != nil {
				return err
			}

			tools := make([]*domain.Tool, len(lines))
			for _, i := range order {
				tool, err := decrementStock(ctx, tx, accountID, lines[i].ToolID, lines[i].Quantity)
				if err != nil {
					return err
				}
				tools[i] = tool
			}

			for i, line := range lines {
				price := tools[i].DailyPrice
				if line.DailyPrice != nil {
					price = *line.DailyPrice
				}
				item := domain.RentalItem{
					RentalID:   r.ID,
					ToolID:     line.ToolID,
					ToolName:   tools[i].Name,
					Quantity:   line.Quantity,
					DailyPrice: domain.RoundMoney(price),
				}
				if err := tx.Rentals().CreateItem(ctx, &item); err != nil {
					return err
				}
				r.Items = append(r.Items, item)
			}
			rental = r
			return nil
		})
	})
	if err != nil {
		logger.ExitMethodWithError("coordinator.CreateRental", err)
		return nil, err
	}

	logger.ExitMethod("coordinator.CreateRental", "rentalID", rental.ID)
	logger.Info("Rental created", "accountID", accountID, "rentalID", rental.ID, "customer", customer.Name, "units", rental.Outstanding())
	return rental, nil
}

// ReturnItems applies a return and prices it from the same locked snapshot,
// then reports what is still due on the rental. How the balance is paid is
// decided later by SettleReturn.
func (c *coordinator) ReturnItems(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) (*domain.ReturnQuote, error) {
	requested := false
	for _, l := range lines {
		if l.Quantity < 0 {
			return nil, fmt.Errorf("%w: return quantity %d", domain.ErrInvalidAmount, l.Quantity)
		}
		if l.Quantity > 0 {
			requested = true
		}
	}
	if !requested {
		return nil, fmt.Errorf("%w: nothing to return", domain.ErrInvalidAmount)
	}
	return c.returnItems(ctx, accountID, rentalID, lines, false)
}

func (c *coordinator) ReturnAll(ctx context.Context, accountID, rentalID int32) (*domain.ReturnQuote, error) {
	return c.returnItems(ctx, accountID, rentalID, nil, true)
}

func (c *coordinator) returnItems(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine, all bool) (*domain.ReturnQuote, error) {
	var quote *domain.ReturnQuote
	err := withRetry(ctx, c.opts, "ReturnItems", func() error {
		return c.store.WithTx(ctx, func(tx repository.Repositories) error {
			outcome, err := applyReturn(ctx, tx, c.opts, accountID, rentalID, lines, all)
			if err != nil {
				return err
			}
			paid, openDebt, due, err := rentalBalance(ctx, tx, outcome.Rental)
			if err != nil {
				return err
			}
			quote = &domain.ReturnQuote{
				RentalID:      outcome.Rental.ID,
				Lines:         outcome.Lines,
				Days:          outcome.Days,
				Cost:          outcome.Cost,
				Charged:       outcome.Rental.ChargedTotal,
				Paid:          paid,
				OpenDebt:      openDebt,
				Due:           due,
				Status:        outcome.Rental.Status,
				FullyReturned: outcome.FullyReturned,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Return processed", "accountID", accountID, "rentalID", rentalID, "lines", len(quote.Lines), "cost", quote.Cost, "due", quote.Due)
	return quote, nil
}

// rentalBalance derives what is still due from stored rows: everything
// charged so far, less payments against the rental and its open debt.
func rentalBalance(ctx context.Context, tx repository.Repositories, rental *domain.Rental) (paid, openDebt, due decimal.Decimal, err error) {
	paid, err = tx.Payments().TotalForRental(ctx, rental.ID)
	if err != nil {
		return
	}
	openDebt, err = tx.Debts().OpenAmountForRental(ctx, rental.ID)
	if err != nil {
		return
	}
	paid = domain.RoundMoney(paid)
	openDebt = domain.RoundMoney(openDebt)
	due = domain.MaxMoney(domain.RoundMoney(rental.ChargedTotal.Sub(paid).Sub(openDebt)), decimal.Zero)
	return
}

// SettleReturn decides how a rental's outstanding balance is paid: all of
// it, part of it with the rest carried as debt, or none of it. The rental is
// closed once nothing is left out.
func (c *coordinator) SettleReturn(ctx context.Context, accountID, rentalID int32, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("%w: settlement mode %q", domain.ErrInvalidInput, req.Mode)
	}
	if req.Mode == domain.SettlementPartial {
		if _, err := positiveMoney(req.Amount); err != nil {
			return nil, err
		}
	}

	var result *domain.SettlementResult
	err := withRetry(ctx, c.opts, "SettleReturn", func() error {
		return c.store.WithTx(ctx, func(tx repository.Repositories) error {
			rental, err := tx.Rentals().LockByID(ctx, accountID, rentalID)
			if err != nil {
				return fmt.Errorf("rental %d: %w", rentalID, err)
			}
			_, _, due, err := rentalBalance(ctx, tx, rental)
			if err != nil {
				return err
			}

			pay := decimal.Zero
			switch req.Mode {
			case domain.SettlementFull:
				pay = due
			case domain.SettlementPartial:
				pay = domain.RoundMoney(req.Amount)
				if pay.GreaterThan(due) {
					return fmt.Errorf("%w: %s exceeds amount due %s", domain.ErrInvalidAmount, pay, due)
				}
			}

			res := &domain.SettlementResult{
				RentalID:  rental.ID,
				Paid:      pay,
				Shortfall: domain.RoundMoney(due.Sub(pay)),
				Status:    rental.Status,
			}
			if pay.IsPositive() {
				if res.Payment, err = recordPayment(ctx, tx, accountID, &rental.ID, pay); err != nil {
					return err
				}
			}
			if res.Shortfall.IsPositive() {
				if res.Debt, err = addDebt(ctx, tx, accountID, rental.Customer, res.Shortfall, &rental.ID); err != nil {
					return err
				}
			}

			if rental.Status != domain.RentalStatusClosed {
				items, err := tx.Rentals().LockItems(ctx, rental.ID)
				if err != nil {
					return err
				}
				rental.Items = items
				if rental.Outstanding() <= 0 {
					if err := tx.Rentals().UpdateStatus(ctx, accountID, rental.ID, rental.Status, domain.RentalStatusClosed); err != nil {
						return err
					}
					res.Closed = true
				}
			}
			if res.Closed {
				res.Status = domain.RentalStatusClosed
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Return settled", "accountID", accountID, "rentalID", rentalID, "mode", req.Mode, "paid", result.Paid, "shortfall", result.Shortfall, "closed", result.Closed)
	return result, nil
}

// PayDebt settles a debt and records the money received in one transaction.
func (c *coordinator) PayDebt(ctx context.Context, accountID, debtID int32, mode domain.SettlementMode, amount decimal.Decimal) (*domain.Debt, *domain.Payment, error) {
	if mode != domain.SettlementFull && mode != domain.SettlementPartial {
		return nil, nil, fmt.Errorf("%w: debt payment mode %q", domain.ErrInvalidInput, mode)
	}

	var (
		debt    *domain.Debt
		payment *domain.Payment
	)
	err := withRetry(ctx, c.opts, "PayDebt", func() error {
		return c.store.WithTx(ctx, func(tx repository.Repositories) error {
			current, err := lockDebt(ctx, tx, accountID, debtID)
			if err != nil {
				return err
			}
			if !current.IsOpen() {
				return fmt.Errorf("%w: debt %d is already settled", domain.ErrInvalidAmount, debtID)
			}

			pay := amount
			if mode == domain.SettlementFull {
				pay = current.Amount
			}
			if debt, err = settleDebt(ctx, tx, current, pay); err != nil {
				return err
			}
			payment, err = recordPayment(ctx, tx, accountID, debt.RentalID, pay)
			return err
		})
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Debt paid", "accountID", accountID, "debtID", debtID, "paid", payment.Amount, "remaining", debt.Amount)
	return debt, payment, nil
}
