package main

import (
	"database/sql"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// openDB opens dsn with the dialect it names. A "sqlite://" prefix
// selects the pure-Go sqlite driver, used for local development and
// the single-process demo path; anything else is treated as a
// Postgres DSN, the deployment target partitioning and skip-locked
// claiming are designed for.
func openDB(dsn string) (*bun.DB, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		sqldb, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}

	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	sqldb := sql.OpenDB(connector)
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
