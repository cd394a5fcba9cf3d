package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetJWTSecret retrieves the JWT secret from the database, generating and
// storing one on first use. INSERT OR IGNORE + re-SELECT avoids a TOCTOU
// race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// GetServerID returns the persisted server id namespacing the lot identifier
// counters. A configured id wins over the stored one and is persisted, so a
// restarted instance keeps its counter namespace even when the flag is
// dropped.
func GetServerID(ctx context.Context, db *sql.DB, configured string) (string, error) {
	if configured != "" {
		_, err := db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES ('server_id', ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			configured,
		)
		if err != nil {
			return "", fmt.Errorf("storing server_id: %w", err)
		}
		return configured, nil
	}

	var stored string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'server_id'`,
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying server_id: %w", err)
	}
	return stored, nil
}
