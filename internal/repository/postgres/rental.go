package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type rentalRepository struct {
	db repository.DBTX
}

func NewRentalRepository(db repository.DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, account_id, customer_name, customer_address, customer_phone, status, started_at, charged_total`

func scanRental(row interface{ Scan(...any) error }, r *domain.Rental) error {
	return row.Scan(&r.ID, &r.AccountID, &r.Customer.Name, &r.Customer.Address, &r.Customer.Phone, &r.Status, &r.StartedAt, &r.ChargedTotal)
}

const itemSelect = `SELECT ri.id, ri.rental_id, ri.tool_id, t.name, ri.quantity, ri.returned_quantity, ri.daily_price
	FROM rental_items ri JOIN tools t ON t.id = ri.tool_id`

func (r *rentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "accountID", rental.AccountID, "customer", rental.Customer.Name)

	query := `INSERT INTO rentals (account_id, customer_name, customer_address, customer_phone, status, started_at, charged_total)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		rental.AccountID, rental.Customer.Name, rental.Customer.Address, rental.Customer.Phone,
		rental.Status, rental.StartedAt, rental.ChargedTotal,
	).Scan(&rental.ID)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Create", err)
		return classifyError(err)
	}

	logger.ExitMethod("rentalRepository.Create", "rentalID", rental.ID)
	return nil
}

func (r *rentalRepository) CreateItem(ctx context.Context, item *domain.RentalItem) error {
	query := `INSERT INTO rental_items (rental_id, tool_id, quantity, returned_quantity, daily_price)
	          VALUES ($1, $2, $3, 0, $4) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, item.RentalID, item.ToolID, item.Quantity, item.DailyPrice).Scan(&item.ID)
	return classifyError(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, accountID, id int32) (*domain.Rental, error) {
	rental := &domain.Rental{}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 AND account_id = $2`
	if err := scanRental(r.db.QueryRowContext(ctx, query, id, accountID), rental); err != nil {
		return nil, classifyError(err)
	}
	return rental, nil
}

// LockByID locks the rental header. Operations that touch a rental's items,
// charges or debts take this lock first so they serialize per rental.
func (r *rentalRepository) LockByID(ctx context.Context, accountID, id int32) (*domain.Rental, error) {
	rental := &domain.Rental{}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 AND account_id = $2 FOR UPDATE`
	if err := scanRental(r.db.QueryRowContext(ctx, query, id, accountID), rental); err != nil {
		return nil, classifyError(err)
	}
	return rental, nil
}

func (r *rentalRepository) ListItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error) {
	return r.items(ctx, itemSelect+` WHERE ri.rental_id = $1 ORDER BY ri.id`, rentalID)
}

// LockItems reads and locks every item of the rental in one statement.
func (r *rentalRepository) LockItems(ctx context.Context, rentalID int32) ([]domain.RentalItem, error) {
	return r.items(ctx, itemSelect+` WHERE ri.rental_id = $1 ORDER BY ri.id FOR UPDATE OF ri`, rentalID)
}

// LockItemsByIDs reads and locks the named items of the rental in one
// statement. Ids that do not belong to the rental are simply absent.
func (r *rentalRepository) LockItemsByIDs(ctx context.Context, rentalID int32, itemIDs []int32) ([]domain.RentalItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := itemSelect + ` WHERE ri.rental_id = $1 AND ri.id = ANY($2) ORDER BY ri.id FOR UPDATE OF ri`
	return r.items(ctx, query, rentalID, pq.Array(itemIDs))
}

func (r *rentalRepository) items(ctx context.Context, query string, args ...any) ([]domain.RentalItem, error) {
	logger.DatabaseCall("rentalRepository.items", query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("rentalRepository.items", 0, err)
		return nil, classifyError(err)
	}
	defer rows.Close()

	var items []domain.RentalItem
	for rows.Next() {
		var it domain.RentalItem
		if err := rows.Scan(&it.ID, &it.RentalID, &it.ToolID, &it.ToolName, &it.Quantity, &it.ReturnedQuantity, &it.DailyPrice); err != nil {
			return nil, classifyError(err)
		}
		items = append(items, it)
	}
	logger.DatabaseResult("rentalRepository.items", int64(len(items)), rows.Err())
	return items, classifyError(rows.Err())
}

func (r *rentalRepository) AddReturned(ctx context.Context, itemID int32, quantity int32) error {
	query := `UPDATE rental_items SET returned_quantity = returned_quantity + $1
	          WHERE id = $2 AND returned_quantity + $1 <= quantity`
	return expectOne(r.db.ExecContext(ctx, query, quantity, itemID))
}

// UpdateStatus moves the rental from one status to another. Moves outside the
// transition table, or from a status the row is no longer in, are refused.
func (r *rentalRepository) UpdateStatus(ctx context.Context, accountID, id int32, from, to domain.RentalStatus) error {
	logger.EnterMethod("rentalRepository.UpdateStatus", "rentalID", id, "from", from, "to", to)

	if !from.CanTransitionTo(to) {
		err := fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
		logger.ExitMethodWithError("rentalRepository.UpdateStatus", err)
		return err
	}

	query := `UPDATE rentals SET status = $1 WHERE id = $2 AND account_id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, id, accountID, from)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.UpdateStatus", err)
		return classifyError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyError(err)
	}
	if n == 0 {
		err := fmt.Errorf("%w: rental %d is not %s", domain.ErrInvalidTransition, id, from)
		logger.ExitMethodWithError("rentalRepository.UpdateStatus", err)
		return err
	}

	logger.ExitMethod("rentalRepository.UpdateStatus")
	return nil
}

// AddCharge adds a return charge to the rental's running total. A negative
// amount writes charges off; the total never drops below zero.
func (r *rentalRepository) AddCharge(ctx context.Context, id int32, amount decimal.Decimal) error {
	query := `UPDATE rentals SET charged_total = GREATEST(charged_total + $1, 0) WHERE id = $2`
	return expectOne(r.db.ExecContext(ctx, query, amount, id))
}

func (r *rentalRepository) ListActive(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Rental, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM rentals WHERE account_id = $1 AND status = 'active'`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&count); err != nil {
		return nil, 0, classifyError(err)
	}

	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE account_id = $1 AND status = 'active'
	          ORDER BY started_at DESC, id DESC LIMIT $2 OFFSET $3`
	rentals, err := r.list(ctx, query, accountID, pageSize, pageOffset(page, pageSize))
	return rentals, count, err
}

// Search finds active rentals by customer name or phone.
func (r *rentalRepository) Search(ctx context.Context, accountID int32, q string) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE account_id = $1 AND status = 'active' AND (customer_name ILIKE $2 OR customer_phone ILIKE $2)
	          ORDER BY started_at DESC, id DESC`
	return r.list(ctx, query, accountID, "%"+q+"%")
}

func (r *rentalRepository) ListStartedBefore(ctx context.Context, accountID int32, before time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE account_id = $1 AND status = 'active' AND started_at < $2
	          ORDER BY started_at`
	return r.list(ctx, query, accountID, before)
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...any) ([]domain.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		var rental domain.Rental
		if err := scanRental(rows, &rental); err != nil {
			return nil, classifyError(err)
		}
		rentals = append(rentals, rental)
	}
	return rentals, classifyError(rows.Err())
}
