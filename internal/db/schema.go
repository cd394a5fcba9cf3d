package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Lots are stored as whole JSON
// documents; the extra columns mirror the fields the change feeds filter and
// order by. rev is the optimistic-concurrency token checked on every write.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'broker' CHECK (role IN ('broker', 'administrator', 'concierge', 'convoy')),
    levels        TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS lots (
    id            TEXT PRIMARY KEY,
    lot_id        TEXT NOT NULL,
    lot_type      TEXT NOT NULL,
    status        TEXT NOT NULL,
    mode          TEXT NOT NULL DEFAULT '',
    owner         TEXT NOT NULL,
    date_modified DATETIME NOT NULL,
    local_seq     INTEGER NOT NULL,
    rev           INTEGER NOT NULL DEFAULT 1,
    data          TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lots_lot_id ON lots(lot_id);
CREATE INDEX IF NOT EXISTS idx_lots_date_modified ON lots(date_modified);
CREATE UNIQUE INDEX IF NOT EXISTS idx_lots_local_seq ON lots(local_seq);

CREATE TABLE IF NOT EXISTS lot_id_counters (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL,
    rev   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS sequences (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate runs the database schema migrations. The schema statements are
// idempotent, so this is safe to run on every startup.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
