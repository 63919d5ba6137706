package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"
	"rental-ledger-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type rentalService struct {
	store repository.Store
	opts  Options
}

func NewRentalService(store repository.Store, opts Options) RentalService {
	return &rentalService{
		store: store,
		opts:  opts.withDefaults(),
	}
}

func (s *rentalService) GetRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error) {
	rental, err := s.store.Rentals().GetByID(ctx, accountID, rentalID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Rentals().ListItems(ctx, rental.ID)
	if err != nil {
		return nil, err
	}
	rental.Items = items
	return rental, nil
}

func (s *rentalService) ListActiveRentals(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Rental, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Rentals().ListActive(ctx, accountID, page, pageSize)
}

func (s *rentalService) SearchRentals(ctx context.Context, accountID int32, query string) ([]domain.Rental, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search", domain.ErrInvalidInput)
	}
	return s.store.Rentals().Search(ctx, accountID, query)
}

func (s *rentalService) ListUnreturnedItems(ctx context.Context, accountID, rentalID int32) ([]domain.RentalItem, error) {
	rental, err := s.GetRental(ctx, accountID, rentalID)
	if err != nil {
		return nil, err
	}
	var out []domain.RentalItem
	for _, item := range rental.Items {
		if item.Outstanding() > 0 {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *rentalService) ListStaleRentals(ctx context.Context, accountID int32, olderThan time.Duration) ([]domain.Rental, error) {
	return s.store.Rentals().ListStartedBefore(ctx, accountID, s.opts.Now().Add(-olderThan))
}

// ComputeRentalCost is a live, unlocked valuation of everything still out.
func (s *rentalService) ComputeRentalCost(ctx context.Context, accountID, rentalID int32) (decimal.Decimal, error) {
	rental, err := s.GetRental(ctx, accountID, rentalID)
	if err != nil {
		return decimal.Zero, err
	}
	days := utils.ElapsedDays(rental.StartedAt, s.opts.Now(), s.opts.Location)
	return utils.RentalCost(rental.Items, days), nil
}

// ComputeReturnCost quotes a return without applying it. The referenced
// items are read and locked in one statement so the quote sees one snapshot.
func (s *rentalService) ComputeReturnCost(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) ([]domain.AppliedReturn, decimal.Decimal, error) {
	var (
		applied []domain.AppliedReturn
		cost    decimal.Decimal
	)
	err := withRetry(ctx, s.opts, "ComputeReturnCost", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			rental, err := tx.Rentals().GetByID(ctx, accountID, rentalID)
			if err != nil {
				return err
			}
			items, err := tx.Rentals().LockItemsByIDs(ctx, rental.ID, returnItemIDs(lines))
			if err != nil {
				return err
			}
			days := utils.ElapsedDays(rental.StartedAt, s.opts.Now(), s.opts.Location)
			applied, cost = utils.ReturnCost(items, lines, days)
			return nil
		})
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return applied, cost, nil
}

func (s *rentalService) ProcessReturn(ctx context.Context, accountID, rentalID int32, lines []domain.ReturnLine) ([]domain.AppliedReturn, error) {
	var outcome *returnOutcome
	err := withRetry(ctx, s.opts, "ProcessReturn", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			var err error
			outcome, err = applyReturn(ctx, tx, s.opts, accountID, rentalID, lines, false)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return outcome.Lines, nil
}

func (s *rentalService) CloseRental(ctx context.Context, accountID, rentalID int32) (*domain.Rental, error) {
	var rental *domain.Rental
	err := withRetry(ctx, s.opts, "CloseRental", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			var err error
			rental, err = closeRental(ctx, tx, accountID, rentalID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rental, nil
}

func (s *rentalService) IsFullyReturned(ctx context.Context, accountID, rentalID int32) (bool, error) {
	rental, err := s.GetRental(ctx, accountID, rentalID)
	if err != nil {
		return false, err
	}
	return rental.Outstanding() <= 0, nil
}

func returnItemIDs(lines []domain.ReturnLine) []int32 {
	seen := make(map[int32]bool, len(lines))
	ids := make([]int32, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			ids = append(ids, l.ItemID)
		}
	}
	return ids
}

type returnOutcome struct {
	Rental        *domain.Rental
	Lines         []domain.AppliedReturn
	Days          int
	Cost          decimal.Decimal
	FullyReturned bool
}

// applyReturn credits returned units back to stock inside tx. The rental
// header and then all of its items are locked up front; every decision below
// is taken against that one snapshot. Over-requested quantities are clamped
// and unknown items skipped. When all is set, lines are ignored and
// everything outstanding comes back.
func applyReturn(ctx context.Context, tx repository.Repositories, opts Options, accountID, rentalID int32, lines []domain.ReturnLine, all bool) (*returnOutcome, error) {
	logger.EnterMethod("applyReturn", "accountID", accountID, "rentalID", rentalID, "lines", len(lines), "all", all)

	rental, err := tx.Rentals().LockByID(ctx, accountID, rentalID)
	if err != nil {
		return nil, fmt.Errorf("rental %d: %w", rentalID, err)
	}
	items, err := tx.Rentals().LockItems(ctx, rental.ID)
	if err != nil {
		return nil, err
	}
	if all {
		lines = nil
		for _, item := range items {
			if out := item.Outstanding(); out > 0 {
				lines = append(lines, domain.ReturnLine{ItemID: item.ID, Quantity: out})
			}
		}
	}

	days := utils.ElapsedDays(rental.StartedAt, opts.Now(), opts.Location)
	applied, cost := utils.ReturnCost(items, lines, days)

	returnedByItem := make(map[int32]int32)
	stockByTool := make(map[int32]int32)
	for _, line := range applied {
		if err := tx.Rentals().AddReturned(ctx, line.ItemID, line.Quantity); err != nil {
			return nil, err
		}
		returnedByItem[line.ItemID] += line.Quantity
		stockByTool[line.ToolID] += line.Quantity
	}

	// Ascending tool order keeps concurrent returns from deadlocking on stock rows.
	toolIDs := make([]int32, 0, len(stockByTool))
	for id := range stockByTool {
		toolIDs = append(toolIDs, id)
	}
	sort.Slice(toolIDs, func(i, j int) bool { return toolIDs[i] < toolIDs[j] })
	for _, id := range toolIDs {
		if err := tx.Tools().AdjustQuantity(ctx, accountID, id, stockByTool[id]); err != nil {
			return nil, fmt.Errorf("restock tool %d: %w", id, err)
		}
	}

	for i := range items {
		items[i].ReturnedQuantity += returnedByItem[items[i].ID]
	}
	rental.Items = items

	if cost.IsPositive() {
		if err := tx.Rentals().AddCharge(ctx, rental.ID, cost); err != nil {
			return nil, err
		}
		rental.ChargedTotal = domain.RoundMoney(rental.ChargedTotal.Add(cost))
	}

	fully := rental.Outstanding() <= 0
	if fully && rental.Status == domain.RentalStatusActive {
		if err := tx.Rentals().UpdateStatus(ctx, accountID, rental.ID, domain.RentalStatusActive, domain.RentalStatusReturned); err != nil {
			return nil, err
		}
		rental.Status = domain.RentalStatusReturned
	}

	logger.ExitMethod("applyReturn", "applied", len(applied), "cost", cost, "status", rental.Status)
	return &returnOutcome{
		Rental:        rental,
		Lines:         applied,
		Days:          days,
		Cost:          cost,
		FullyReturned: fully,
	}, nil
}

// closeRental finalizes a rental. Closing a closed rental is a no-op; an
// active rental closes directly only when nothing is still out.
func closeRental(ctx context.Context, tx repository.Repositories, accountID, rentalID int32) (*domain.Rental, error) {
	rental, err := tx.Rentals().LockByID(ctx, accountID, rentalID)
	if err != nil {
		return nil, fmt.Errorf("rental %d: %w", rentalID, err)
	}

	switch rental.Status {
	case domain.RentalStatusClosed:
		return rental, nil
	case domain.RentalStatusActive:
		items, err := tx.Rentals().LockItems(ctx, rental.ID)
		if err != nil {
			return nil, err
		}
		rental.Items = items
		if out := rental.Outstanding(); out > 0 {
			return nil, fmt.Errorf("%w: %d units still out", domain.ErrRentalOutstanding, out)
		}
	}

	if err := tx.Rentals().UpdateStatus(ctx, accountID, rental.ID, rental.Status, domain.RentalStatusClosed); err != nil {
		return nil, err
	}
	rental.Status = domain.RentalStatusClosed
	return rental, nil
}
