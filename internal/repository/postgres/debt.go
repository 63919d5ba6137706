package postgres

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type debtRepository struct {
	db repository.DBTX
}

func NewDebtRepository(db repository.DBTX) repository.DebtRepository {
	return &debtRepository{db: db}
}

const debtColumns = `id, account_id, rental_id, customer_name, customer_phone, amount, created_on`

func scanDebt(row interface{ Scan(...any) error }, d *domain.Debt) error {
	return row.Scan(&d.ID, &d.AccountID, &d.RentalID, &d.Customer.Name, &d.Customer.Phone, &d.Amount, &d.CreatedOn)
}

func (r *debtRepository) Create(ctx context.Context, d *domain.Debt) error {
	logger.EnterMethod("debtRepository.Create", "accountID", d.AccountID, "rentalID", d.RentalID, "amount", d.Amount)

	query := `INSERT INTO debts (account_id, rental_id, customer_name, customer_phone, amount)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_on`
	err := r.db.QueryRowContext(ctx, query, d.AccountID, d.RentalID, d.Customer.Name, d.Customer.Phone, d.Amount).Scan(&d.ID, &d.CreatedOn)
	if err != nil {
		logger.ExitMethodWithError("debtRepository.Create", err)
		return classifyError(err)
	}

	logger.ExitMethod("debtRepository.Create", "debtID", d.ID)
	return nil
}

func (r *debtRepository) GetByID(ctx context.Context, accountID, id int32) (*domain.Debt, error) {
	d := &domain.Debt{}
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1 AND account_id = $2`
	if err := scanDebt(r.db.QueryRowContext(ctx, query, id, accountID), d); err != nil {
		return nil, classifyError(err)
	}
	return d, nil
}

func (r *debtRepository) LockByID(ctx context.Context, accountID, id int32) (*domain.Debt, error) {
	d := &domain.Debt{}
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1 AND account_id = $2 FOR UPDATE`
	if err := scanDebt(r.db.QueryRowContext(ctx, query, id, accountID), d); err != nil {
		return nil, classifyError(err)
	}
	return d, nil
}

// LockOpenByRental locks the rental's open debt, or returns ErrNotFound when
// there is none.
func (r *debtRepository) LockOpenByRental(ctx context.Context, accountID, rentalID int32) (*domain.Debt, error) {
	d := &domain.Debt{}
	query := `SELECT ` + debtColumns + ` FROM debts
	          WHERE account_id = $1 AND rental_id = $2 AND amount > 0
	          ORDER BY id LIMIT 1 FOR UPDATE`
	if err := scanDebt(r.db.QueryRowContext(ctx, query, accountID, rentalID), d); err != nil {
		return nil, classifyError(err)
	}
	return d, nil
}

// Accumulate adds a new shortfall onto an existing debt and refreshes the
// customer contact details.
func (r *debtRepository) Accumulate(ctx context.Context, id int32, amount decimal.Decimal, customer domain.Customer) error {
	logger.EnterMethod("debtRepository.Accumulate", "debtID", id, "amount", amount)

	query := `UPDATE debts SET amount = amount + $1, customer_name = $2, customer_phone = $3 WHERE id = $4`
	if err := expectOne(r.db.ExecContext(ctx, query, amount, customer.Name, customer.Phone, id)); err != nil {
		logger.ExitMethodWithError("debtRepository.Accumulate", err)
		return err
	}

	logger.ExitMethod("debtRepository.Accumulate")
	return nil
}

func (r *debtRepository) UpdateAmount(ctx context.Context, id int32, amount decimal.Decimal) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE debts SET amount = $1 WHERE id = $2`, amount, id))
}

func (r *debtRepository) OpenAmountForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM debts WHERE rental_id = $1 AND amount > 0`, rentalID).Scan(&total)
	return total, classifyError(err)
}

func (r *debtRepository) ListOpen(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Debt, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM debts WHERE account_id = $1 AND amount > 0`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&count); err != nil {
		return nil, 0, classifyError(err)
	}

	query := `SELECT ` + debtColumns + ` FROM debts WHERE account_id = $1 AND amount > 0
	          ORDER BY created_on DESC, id DESC LIMIT $2 OFFSET $3`
	debts, err := r.list(ctx, query, accountID, pageSize, pageOffset(page, pageSize))
	return debts, count, err
}

func (r *debtRepository) SearchOpen(ctx context.Context, accountID int32, q string) ([]domain.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts
	          WHERE account_id = $1 AND amount > 0 AND (customer_name ILIKE $2 OR customer_phone ILIKE $2)
	          ORDER BY created_on DESC, id DESC`
	return r.list(ctx, query, accountID, "%"+q+"%")
}

func (r *debtRepository) TotalOpen(ctx context.Context, accountID int32) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM debts WHERE account_id = $1 AND amount > 0`, accountID).Scan(&total)
	return total, classifyError(err)
}

func (r *debtRepository) Delete(ctx context.Context, accountID, id int32) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1 AND account_id = $2`, id, accountID))
}

func (r *debtRepository) list(ctx context.Context, query string, args ...any) ([]domain.Debt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var debts []domain.Debt
	for rows.Next() {
		var d domain.Debt
		if err := scanDebt(rows, &d); err != nil {
			return nil, classifyError(err)
		}
		debts = append(debts, d)
	}
	return debts, classifyError(rows.Err())
}
