package postgres

import (
	"context"
	"database/sql"
)

// DBTX is the common surface of *sqlx.DB and *sqlx.Tx. Repositories accept
// it so tests can run against a transaction that is rolled back afterwards.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
