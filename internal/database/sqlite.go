package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// openSQLite opens a SQLite database through the ncruces driver, which is
// built with sqlite-vec.
func openSQLite(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dsn, err)
	}

	// each connection to :memory: is a separate database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
