// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite, a pure-Go translation of SQLite: no CGo,
// no C compiler, cross-compiles like any other Go code. Queries go through
// sqlx so rows scan straight into the `db`-tagged model structs.
//
// The schema lives in migrations/*.sql, embedded into the binary and applied
// with golang-migrate (see migrate.go).
package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
)

// casefold(x) lowercases x with Unicode rules. SQLite's own LOWER(), LIKE
// and NOCASE only fold ASCII letters, so "éclair" would never match
// "Éclair" without it. NULL stays NULL.
func init() {
	err := msqlite.RegisterDeterministicScalarFunction("casefold", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
	if err != nil {
		panic(fmt.Sprintf("sqlite: registering casefold: %v", err))
	}
}

// DB wraps a sqlx connection pool and implements both
// repository.SnippetRepository and repository.UserRepository.
type DB struct {
	conn *sqlx.DB
}

// Open connects to the database at dbPath without touching the schema.
//
// dbPath examples:
//   - "data/snippets.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// The pool is capped at one connection. SQLite serializes writers anyway,
// and with ":memory:" every extra connection would see its own empty database.
func Open(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed during a write; foreign keys are off by default in SQLite.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return &DB{conn: conn}, nil
}

// New opens the database and applies all pending migrations.
//
//	db, err := sqlite.New("data/snippets.db")
//	if err != nil { ... }
//	defer db.Close()
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
