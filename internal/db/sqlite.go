package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database at path (":memory:" for a private
// in-memory database). Foreign keys are enabled through the DSN so every
// connection the pool opens enforces them. SQLite serialises writers, so the
// pool is limited to one connection.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	var enabled int
	if err := conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		conn.Close()
		return nil, fmt.Errorf("check sqlite foreign keys: %w", err)
	}
	if enabled != 1 {
		conn.Close()
		return nil, fmt.Errorf("sqlite foreign keys are disabled for %s", path)
	}
	return conn, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}
