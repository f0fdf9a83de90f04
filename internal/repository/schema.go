package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// schema is shared by Postgres and SQLite; {{id}} and {{ts}} are replaced
// with the dialect's column types.
const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id         {{id}} PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	route      TEXT NOT NULL DEFAULT '',
	group_name TEXT NOT NULL DEFAULT '',
	town       TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS loans (
	id                {{id}} PRIMARY KEY,
	client_id         {{id}} NOT NULL REFERENCES clients(id),
	principal         NUMERIC(14,2) NOT NULL,
	interest_rate     NUMERIC(9,4) NOT NULL,
	term_weeks        INTEGER NOT NULL CHECK (term_weeks > 0),
	start_date        DATE NOT NULL,
	total_amount      NUMERIC(14,2) NOT NULL,
	weekly_payment    NUMERIC(14,2) NOT NULL,
	total_paid        NUMERIC(14,2) NOT NULL DEFAULT 0,
	remaining_balance NUMERIC(14,2) NOT NULL,
	next_due_date     DATE,
	status            TEXT NOT NULL,
	renewed_from_id   {{id}} REFERENCES loans(id),
	created_at        {{ts}} NOT NULL,
	updated_at        {{ts}} NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS loans_one_active_per_client_uq
	ON loans (client_id) WHERE status <> 'completed';

CREATE TABLE IF NOT EXISTS payments (
	id           {{id}} PRIMARY KEY,
	loan_id      {{id}} NOT NULL REFERENCES loans(id) ON DELETE RESTRICT,
	client_id    {{id}} NOT NULL REFERENCES clients(id),
	amount       NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	payment_date DATE NOT NULL,
	status       TEXT NOT NULL,
	week         INTEGER NOT NULL CHECK (week > 0),
	created_at   {{ts}} NOT NULL,
	updated_at   {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS payments_loan_idx ON payments (loan_id);

CREATE UNIQUE INDEX IF NOT EXISTS payments_paid_week_uq
	ON payments (loan_id, week) WHERE status = 'paid';
`

// Schema renders the DDL for the given driver name.
func Schema(driver string) string {
	id, ts := "UUID", "TIMESTAMPTZ"
	if driver == DriverSQLite {
		id, ts = "TEXT", "DATETIME"
	}
	return strings.NewReplacer("{{id}}", id, "{{ts}}", ts).Replace(schema)
}

// Migrate creates the tables and indexes if they don't already exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(Schema(db.DriverName()), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CheckSchema selects every column the repositories read, so a missing table
// or a column dropped by a stale migration fails here instead of mid-request.
func CheckSchema(ctx context.Context, db sqlx.QueryerContext) error {
	tables := []struct{ name, columns string }{
		{"clients", clientColumns},
		{"loans", loanColumns},
		{"payments", paymentColumns},
	}
	for _, table := range tables {
		rows, err := db.QueryContext(ctx, `SELECT `+table.columns+` FROM `+table.name+` LIMIT 0`)
		if err != nil {
			return fmt.Errorf("table %s: %w", table.name, err)
		}
		rows.Close()
	}
	return nil
}
