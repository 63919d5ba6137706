package service

import (
	"context"
	"fmt"
	"strings"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"
)

type accountService struct {
	accountRepo repository.AccountRepository
}

func NewAccountService(accountRepo repository.AccountRepository) AccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) RegisterAccount(ctx context.Context, account *domain.Account) error {
	account.FullName = strings.TrimSpace(account.FullName)
	if account.ExternalID == 0 {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	if account.FullName == "" {
		return fmt.Errorf("%w: full name is required", domain.ErrInvalidInput)
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return err
	}
	logger.Info("Account registered", "accountID", account.ID, "externalID", account.ExternalID)
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *accountService) GetAccountByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	return s.accountRepo.GetByExternalID(ctx, externalID)
}

func (s *accountService) ListAccounts(ctx context.Context, page, pageSize int32) ([]domain.Account, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.accountRepo.List(ctx, page, pageSize)
}

func (s *accountService) ListActiveAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.accountRepo.ListActive(ctx)
}

func (s *accountService) ActivateAccount(ctx context.Context, id int32) error {
	return s.accountRepo.SetActive(ctx, id, true)
}

func (s *accountService) DeactivateAccount(ctx context.Context, id int32) error {
	return s.accountRepo.SetActive(ctx, id, false)
}

// DeleteAccount removes the account and, by cascade, everything it owns.
func (s *accountService) DeleteAccount(ctx context.Context, id int32) error {
	if err := s.accountRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Warn("Account deleted", "accountID", id)
	return nil
}
