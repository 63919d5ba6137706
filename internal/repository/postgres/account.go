package postgres

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/repository"
)

type accountRepository struct {
	db repository.DBTX
}

func NewAccountRepository(db repository.DBTX) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, external_id, full_name, shop_name, address, phone, is_active, created_on`

func scanAccount(row interface{ Scan(...any) error }, a *domain.Account) error {
	return row.Scan(&a.ID, &a.ExternalID, &a.FullName, &a.ShopName, &a.Address, &a.Phone, &a.IsActive, &a.CreatedOn)
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (external_id, full_name, shop_name, address, phone, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_on`
	err := r.db.QueryRowContext(ctx, query, a.ExternalID, a.FullName, a.ShopName, a.Address, a.Phone, a.IsActive).Scan(&a.ID, &a.CreatedOn)
	return classifyError(err)
}

func (r *accountRepository) GetByID(ctx context.Context, id int32) (*domain.Account, error) {
	a := &domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if err := scanAccount(r.db.QueryRowContext(ctx, query, id), a); err != nil {
		return nil, classifyError(err)
	}
	return a, nil
}

func (r *accountRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	a := &domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`
	if err := scanAccount(r.db.QueryRowContext(ctx, query, externalID), a); err != nil {
		return nil, classifyError(err)
	}
	return a, nil
}

func (r *accountRepository) List(ctx context.Context, page, pageSize int32) ([]domain.Account, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&count); err != nil {
		return nil, 0, classifyError(err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, classifyError(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, 0, classifyError(err)
		}
		accounts = append(accounts, a)
	}
	return accounts, count, classifyError(rows.Err())
}

func (r *accountRepository) ListActive(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, classifyError(err)
		}
		accounts = append(accounts, a)
	}
	return accounts, classifyError(rows.Err())
}

func (r *accountRepository) SetActive(ctx context.Context, id int32, active bool) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE accounts SET is_active = $1 WHERE id = $2`, active, id))
}

// Delete removes the account; tools, rentals, payments and debts go with it.
func (r *accountRepository) Delete(ctx context.Context, id int32) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id))
}
