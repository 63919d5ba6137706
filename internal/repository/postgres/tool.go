package postgres

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/repository"
)

type toolRepository struct {
	db repository.DBTX
}

func NewToolRepository(db repository.DBTX) repository.ToolRepository {
	return &toolRepository{db: db}
}

const toolColumns = `id, account_id, name, quantity, daily_price, created_on, deleted_on`

func scanTool(row interface{ Scan(...any) error }, t *domain.Tool) error {
	return row.Scan(&t.ID, &t.AccountID, &t.Name, &t.Quantity, &t.DailyPrice, &t.CreatedOn, &t.DeletedOn)
}

func (r *toolRepository) Create(ctx context.Context, t *domain.Tool) error {
	query := `INSERT INTO tools (account_id, name, quantity, daily_price) VALUES ($1, $2, $3, $4) RETURNING id, created_on`
	err := r.db.QueryRowContext(ctx, query, t.AccountID, t.Name, t.Quantity, t.DailyPrice).Scan(&t.ID, &t.CreatedOn)
	return classifyError(err)
}

func (r *toolRepository) GetByID(ctx context.Context, accountID, id int32) (*domain.Tool, error) {
	t := &domain.Tool{}
	query := `SELECT ` + toolColumns + ` FROM tools WHERE id = $1 AND account_id = $2 AND deleted_on IS NULL`
	if err := scanTool(r.db.QueryRowContext(ctx, query, id, accountID), t); err != nil {
		return nil, classifyError(err)
	}
	return t, nil
}

// LockByID reads the tool row and holds an exclusive lock on it until the
// enclosing transaction ends.
func (r *toolRepository) LockByID(ctx context.Context, accountID, id int32) (*domain.Tool, error) {
	t := &domain.Tool{}
	query := `SELECT ` + toolColumns + ` FROM tools WHERE id = $1 AND account_id = $2 AND deleted_on IS NULL FOR UPDATE`
	if err := scanTool(r.db.QueryRowContext(ctx, query, id, accountID), t); err != nil {
		return nil, classifyError(err)
	}
	return t, nil
}

func (r *toolRepository) ListByAccount(ctx context.Context, accountID int32, page, pageSize int32) ([]domain.Tool, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM tools WHERE account_id = $1 AND deleted_on IS NULL`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&count); err != nil {
		return nil, 0, classifyError(err)
	}

	query := `SELECT ` + toolColumns + ` FROM tools WHERE account_id = $1 AND deleted_on IS NULL ORDER BY name LIMIT $2 OFFSET $3`
	tools, err := r.list(ctx, query, accountID, pageSize, pageOffset(page, pageSize))
	return tools, count, err
}

func (r *toolRepository) ListAvailable(ctx context.Context, accountID int32) ([]domain.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE account_id = $1 AND deleted_on IS NULL AND quantity > 0 ORDER BY name`
	return r.list(ctx, query, accountID)
}

func (r *toolRepository) Search(ctx context.Context, accountID int32, q string, page, pageSize int32) ([]domain.Tool, int32, error) {
	pattern := "%" + q + "%"

	var count int32
	countQuery := `SELECT count(*) FROM tools WHERE account_id = $1 AND deleted_on IS NULL AND name ILIKE $2`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID, pattern).Scan(&count); err != nil {
		return nil, 0, classifyError(err)
	}

	query := `SELECT ` + toolColumns + ` FROM tools WHERE account_id = $1 AND deleted_on IS NULL AND name ILIKE $2 ORDER BY name LIMIT $3 OFFSET $4`
	tools, err := r.list(ctx, query, accountID, pattern, pageSize, pageOffset(page, pageSize))
	return tools, count, err
}

func (r *toolRepository) list(ctx context.Context, query string, args ...any) ([]domain.Tool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var tools []domain.Tool
	for rows.Next() {
		var t domain.Tool
		if err := scanTool(rows, &t); err != nil {
			return nil, classifyError(err)
		}
		tools = append(tools, t)
	}
	return tools, classifyError(rows.Err())
}

func (r *toolRepository) Update(ctx context.Context, t *domain.Tool) error {
	query := `UPDATE tools SET name = $1, quantity = $2, daily_price = $3 WHERE id = $4 AND account_id = $5 AND deleted_on IS NULL`
	return expectOne(r.db.ExecContext(ctx, query, t.Name, t.Quantity, t.DailyPrice, t.ID, t.AccountID))
}

// AdjustQuantity adds delta (negative to take stock out). Callers that
// decrement must hold the row lock and have checked sufficiency first; the
// CHECK constraint is the last line.
func (r *toolRepository) AdjustQuantity(ctx context.Context, accountID, id int32, delta int32) error {
	query := `UPDATE tools SET quantity = quantity + $1 WHERE id = $2 AND account_id = $3 AND deleted_on IS NULL`
	return expectOne(r.db.ExecContext(ctx, query, delta, id, accountID))
}

// CountOutstanding sums units of the tool still out on active rentals.
func (r *toolRepository) CountOutstanding(ctx context.Context, toolID int32) (int32, error) {
	var n int32
	query := `SELECT COALESCE(SUM(ri.quantity - ri.returned_quantity), 0)
	          FROM rental_items ri JOIN rentals r ON r.id = ri.rental_id
	          WHERE ri.tool_id = $1 AND r.status = 'active'`
	err := r.db.QueryRowContext(ctx, query, toolID).Scan(&n)
	return n, classifyError(err)
}

// Delete soft-deletes so historical rental items keep their tool reference.
func (r *toolRepository) Delete(ctx context.Context, accountID, id int32) error {
	query := `UPDATE tools SET deleted_on = now() WHERE id = $1 AND account_id = $2 AND deleted_on IS NULL`
	return expectOne(r.db.ExecContext(ctx, query, id, accountID))
}
