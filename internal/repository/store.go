package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to "postgres" or "sqlite3". SQLite is limited to a single
// connection so that a transaction never waits on a sibling connection's lock.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	if driver == DriverSQLite && !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		return db, nil
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return db, nil
}

type repository struct {
	LoanRepository
	PaymentRepository
	ClientRepository
}

func newRepository(db sqlx.ExtContext) *repository {
	return &repository{
		LoanRepository:    NewLoanRepository(db),
		PaymentRepository: NewPaymentRepository(db),
		ClientRepository:  NewClientRepository(db),
	}
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	*repository
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		repository: newRepository(db),
		db:          db,
	}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(newRepository(tx)); err != nil {
		return err
	}

	return translate(tx.Commit())
}
