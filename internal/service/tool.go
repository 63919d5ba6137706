package service

import (
	"context"
	"fmt"
	"strings"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"
)

type toolService struct {
	store repository.Store
	opts  Options
}

func NewToolService(store repository.Store, opts Options) ToolService {
	return &toolService{
		store: store,
		opts:  opts.withDefaults(),
	}
}

func validateTool(t *domain.Tool) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: tool name is required", domain.ErrInvalidInput)
	}
	if t.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", domain.ErrInvalidAmount, t.Quantity)
	}
	if t.DailyPrice.IsNegative() {
		return fmt.Errorf("%w: daily price %s is negative", domain.ErrInvalidAmount, t.DailyPrice)
	}
	t.DailyPrice = domain.RoundMoney(t.DailyPrice)
	return nil
}

func (s *toolService) AddTool(ctx context.Context, tool *domain.Tool) error {
	if err := validateTool(tool); err != nil {
		return err
	}
	if err := s.store.Tools().Create(ctx, tool); err != nil {
		return fmt.Errorf("add tool %q: %w", tool.Name, err)
	}
	logger.Info("Tool added", "accountID", tool.AccountID, "toolID", tool.ID, "quantity", tool.Quantity)
	return nil
}

func (s *toolService) GetTool(ctx context.Context, accountID, toolID int32) (*domain.Tool, error) {
	return s.store.Tools().GetByID(ctx, accountID, toolID)
}

func (s *toolService) ListTools(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Tool, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Tools().ListByAccount(ctx, accountID, page, pageSize)
}

func (s *toolService) ListAvailableTools(ctx context.Context, accountID int32) ([]domain.Tool, error) {
	return s.store.Tools().ListAvailable(ctx, accountID)
}

func (s *toolService) SearchTools(ctx context.Context, accountID int32, query string, page, pageSize int32) ([]domain.Tool, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Tools().Search(ctx, accountID, strings.TrimSpace(query), page, pageSize)
}

func (s *toolService) UpdateTool(ctx context.Context, accountID, toolID int32, update domain.ToolUpdate) (*domain.Tool, error) {
	var tool *domain.Tool
	err := withRetry(ctx, s.opts, "UpdateTool", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			t, err := tx.Tools().LockByID(ctx, accountID, toolID)
			if err != nil {
				return err
			}
			if update.Name != nil {
				t.Name = *update.Name
			}
			if update.Quantity != nil {
				t.Quantity = *update.Quantity
			}
			if update.DailyPrice != nil {
				t.DailyPrice = *update.DailyPrice
			}
			if err := validateTool(t); err != nil {
				return err
			}
			if err := tx.Tools().Update(ctx, t); err != nil {
				return err
			}
			tool = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tool, nil
}

func (s *toolService) DecrementStock(ctx context.Context, accountID, toolID int32, amount int32) error {
	return withRetry(ctx, s.opts, "DecrementStock", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			_, err := decrementStock(ctx, tx, accountID, toolID, amount)
			return err
		})
	})
}

func (s *toolService) IncrementStock(ctx context.Context, accountID, toolID int32, amount int32) error {
	if amount <= 0 {
		return fmt.Errorf("%w: increment of %d", domain.ErrInvalidAmount, amount)
	}
	return withRetry(ctx, s.opts, "IncrementStock", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			return tx.Tools().AdjustQuantity(ctx, accountID, toolID, amount)
		})
	})
}

// DeleteTool removes a tool unless an active rental still holds some of it.
// The tool row lock makes this serialize with rentals booking the same tool.
func (s *toolService) DeleteTool(ctx context.Context, accountID, toolID int32) error {
	return withRetry(ctx, s.opts, "DeleteTool", func() error {
		return s.store.WithTx(ctx, func(tx repository.Repositories) error {
			if _, err := tx.Tools().LockByID(ctx, accountID, toolID); err != nil {
				return err
			}
			out, err := tx.Tools().CountOutstanding(ctx, toolID)
			if err != nil {
				return err
			}
			if out > 0 {
				return fmt.Errorf("%w: %d units still out", domain.ErrToolInUse, out)
			}
			return tx.Tools().Delete(ctx, accountID, toolID)
		})
	})
}

// decrementStock takes amount units out of a tool inside tx. The row is
// locked before the sufficiency check so concurrent decrements cannot both
// pass it.
func decrementStock(ctx context.Context, tx repository.Repositories, accountID, toolID int32, amount int32) (*domain.Tool, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: decrement of %d", domain.ErrInvalidAmount, amount)
	}
	tool, err := tx.Tools().LockByID(ctx, accountID, toolID)
	if err != nil {
		return nil, fmt.Errorf("tool %d: %w", toolID, err)
	}
	if tool.Quantity < amount {
		return nil, fmt.Errorf("%w: %q has %d, requested %d", domain.ErrInsufficientStock, tool.Name, tool.Quantity, amount)
	}
	if err := tx.Tools().AdjustQuantity(ctx, accountID, toolID, -amount); err != nil {
		return nil, err
	}
	tool.Quantity -= amount
	return tool, nil
}
