package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
	"rental-ledger-backend/internal/repository"

	"github.com/lib/pq"
)

// repos binds every repository to one DBTX.
type repos struct {
	accounts repository.AccountRepository
	tools    repository.ToolRepository
	rentals  repository.RentalRepository
	payments repository.PaymentRepository
	debts    repository.DebtRepository
}

func newRepos(db repository.DBTX) *repos {
	return &repos{
		accounts: NewAccountRepository(db),
		tools:    NewToolRepository(db),
		rentals:  NewRentalRepository(db),
		payments: NewPaymentRepository(db),
		debts:    NewDebtRepository(db),
	}
}

func (r *repos) Accounts() repository.AccountRepository { return r.accounts }
func (r *repos) Tools() repository.ToolRepository       { return r.tools }
func (r *repos) Rentals() repository.RentalRepository   { return r.rentals }
func (r *repos) Payments() repository.PaymentRepository { return r.payments }
func (r *repos) Debts() repository.DebtRepository       { return r.debts }

// TxTimeouts bound how long a transaction waits on row locks and on any
// single statement. Zero leaves the server default.
type TxTimeouts struct {
	Lock      time.Duration
	Statement time.Duration
}

type Store struct {
	*repos
	db       *sql.DB
	timeouts TxTimeouts
}

func NewStore(db *sql.DB, timeouts TxTimeouts) *Store {
	return &Store{
		repos:    newRepos(db),
		db:       db,
		timeouts: timeouts,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return classifyError(s.db.PingContext(ctx))
}

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken by fn are
// held until commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	logger.DatabaseCall("BeginTx", "", "isolation", "read committed")
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		logger.DatabaseResult("BeginTx", 0, err)
		return classifyError(err)
	}
	defer tx.Rollback()

	if s.timeouts.Lock > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.timeouts.Lock.Milliseconds())); err != nil {
			return classifyError(err)
		}
	}
	if s.timeouts.Statement > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", s.timeouts.Statement.Milliseconds())); err != nil {
			return classifyError(err)
		}
	}

	if err := fn(newRepos(tx)); err != nil {
		logger.TransactionResult(false, err, !errors.Is(err, domain.ErrTransient))
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("Commit", 0, err)
		return classifyError(err)
	}
	logger.TransactionResult(true, nil, false)
	return nil
}

// classifyError maps driver errors onto the ledger taxonomy. Lock and
// statement timeouts, serialization failures, deadlocks and lost connections
// are transient: nothing was committed, so the caller may retry.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "55P03", // lock_not_available
			pqErr.Code == "40001", // serialization_failure
			pqErr.Code == "40P01", // deadlock_detected
			pqErr.Code == "57014", // query_canceled (statement_timeout)
			pqErr.Code == "57P01", // admin_shutdown
			strings.HasPrefix(string(pqErr.Code), "08"):
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		case pqErr.Code == "23505":
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, pqErr.Detail)
		case pqErr.Code == "23503":
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Detail)
		case pqErr.Code == "23514":
			return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, pqErr.Constraint)
		}
	}
	return err
}

// expectOne turns a zero-row UPDATE or DELETE into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return classifyError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyError(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func pageOffset(page, pageSize int32) int32 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
