package storage

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // sqlite driver
)

// NewSqliteDB opens the local sqlite database. Every connection to
// ":memory:" is a separate database, so the pool is pinned to one connection.
func NewSqliteDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite %s", dsn)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
