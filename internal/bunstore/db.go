// Package bunstore implements the store contract on top of bun.
package bunstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-household-store/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to dsn with driver and returns a bun handle using the
// matching dialect.
func Open(driver, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// one connection keeps shared in-memory databases and transactions
		// on the same handle
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		sqldb.Close()
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// CreateSchema creates the table of every family and an index on each
// foreign key used by the cascade.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, d := range model.Descriptors() {
		record, ok := model.NewRecord(d.Family)
		if !ok {
			return fmt.Errorf("no record type for family %s", d.Family)
		}

		if _, err := db.NewCreateTable().Model(record).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %s: %w", d.Family.Table(), err)
		}

		if !d.Owned() {
			continue
		}
		_, err := db.NewCreateIndex().
			Model(record).
			Index(fmt.Sprintf("idx_%s_%s", d.Family.Table(), d.ForeignKey)).
			IfNotExists().
			Column(d.ForeignKey).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index on %s.%s: %w", d.Family.Table(), d.ForeignKey, err)
		}
	}
	return nil
}
