package postgres

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type paymentRepository struct {
	db repository.DBTX
}

func NewPaymentRepository(db repository.DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

// Create appends a payment. Payments are never updated or deleted.
func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (account_id, rental_id, amount, reference) VALUES ($1, $2, $3, $4) RETURNING id, paid_on`
	err := r.db.QueryRowContext(ctx, query, p.AccountID, p.RentalID, p.Amount, p.Reference).Scan(&p.ID, &p.PaidOn)
	return classifyError(err)
}

func (r *paymentRepository) TotalForRental(ctx context.Context, rentalID int32) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE rental_id = $1`, rentalID).Scan(&total)
	return total, classifyError(err)
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	query := `SELECT id, account_id, rental_id, amount, reference, paid_on FROM payments WHERE rental_id = $1 ORDER BY paid_on, id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.RentalID, &p.Amount, &p.Reference, &p.PaidOn); err != nil {
			return nil, classifyError(err)
		}
		payments = append(payments, p)
	}
	return payments, classifyError(rows.Err())
}
