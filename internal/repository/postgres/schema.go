package postgres

import (
	"context"
	"database/sql"

	"rental-ledger-backend/internal/logger"
)

// schema is applied statement by statement on startup. Every statement is
// idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id          SERIAL PRIMARY KEY,
		external_id BIGINT NOT NULL UNIQUE,
		full_name   TEXT NOT NULL DEFAULT '',
		shop_name   TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT FALSE,
		created_on  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tools (
		id          SERIAL PRIMARY KEY,
		account_id  INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		quantity    INTEGER NOT NULL CHECK (quantity >= 0),
		daily_price NUMERIC(14,2) NOT NULL CHECK (daily_price >= 0),
		created_on  TIMESTAMPTZ NOT NULL DEFAULT now(),
		deleted_on  TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tools_account_name_uniq ON tools (account_id, name) WHERE deleted_on IS NULL`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id               SERIAL PRIMARY KEY,
		account_id       INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		customer_name    TEXT NOT NULL,
		customer_address TEXT NOT NULL DEFAULT '',
		customer_phone   TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'returned', 'closed')),
		started_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		charged_total    NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (charged_total >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS rentals_account_status_idx ON rentals (account_id, status)`,
	`CREATE TABLE IF NOT EXISTS rental_items (
		id                SERIAL PRIMARY KEY,
		rental_id         INTEGER NOT NULL REFERENCES rentals(id) ON DELETE CASCADE,
		tool_id           INTEGER NOT NULL REFERENCES tools(id),
		quantity          INTEGER NOT NULL CHECK (quantity > 0),
		returned_quantity INTEGER NOT NULL DEFAULT 0 CHECK (returned_quantity >= 0 AND returned_quantity <= quantity),
		daily_price       NUMERIC(14,2) NOT NULL CHECK (daily_price >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS rental_items_rental_idx ON rental_items (rental_id)`,
	`CREATE INDEX IF NOT EXISTS rental_items_tool_idx ON rental_items (tool_id)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id         SERIAL PRIMARY KEY,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		rental_id  INTEGER REFERENCES rentals(id) ON DELETE SET NULL,
		amount     NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		reference  UUID NOT NULL UNIQUE,
		paid_on    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS payments_rental_idx ON payments (rental_id)`,
	`CREATE TABLE IF NOT EXISTS debts (
		id             SERIAL PRIMARY KEY,
		account_id     INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		rental_id      INTEGER REFERENCES rentals(id) ON DELETE SET NULL,
		customer_name  TEXT NOT NULL,
		customer_phone TEXT NOT NULL DEFAULT '',
		amount         NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		created_on     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS debts_open_rental_uniq ON debts (rental_id) WHERE amount > 0 AND rental_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS debts_account_idx ON debts (account_id)`,
}

// Migrate creates the ledger tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.EnterMethod("postgres.Migrate", "statements", len(schema))
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.ExitMethodWithError("postgres.Migrate", err)
			return classifyError(err)
		}
	}
	logger.ExitMethod("postgres.Migrate")
	return nil
}
