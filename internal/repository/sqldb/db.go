// Package sqldb implements the session repository on database/sql, serving
// the sqlite backend for embedded or development use and the mysql backend
// for deployments that already run MySQL. Both drivers use ? placeholders,
// so the two share everything but the upsert statement.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const createTableStmt = `
	CREATE TABLE IF NOT EXISTS user_sessions (
		token VARCHAR(36) PRIMARY KEY,
		user_id BIGINT NOT NULL,
		conversation_history TEXT NOT NULL,
		learning_progress TEXT NOT NULL,
		current_story_context TEXT NOT NULL,
		personality_adaptations TEXT NOT NULL,
		created_at VARCHAR(35) NOT NULL,
		last_activity VARCHAR(35) NOT NULL,
		expires_at VARCHAR(35) NOT NULL
	)
`

// DB wraps a database/sql handle together with the driver it was opened
// with, which selects the upsert dialect.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects with the given driver ("sqlite" or "mysql") and DSN and
// ensures the session table exists.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, createTableStmt); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure session table: %w", err)
	}

	return &DB{conn: conn, driver: driver}, nil
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database handle
func (db *DB) Close() error {
	return db.conn.Close()
}
