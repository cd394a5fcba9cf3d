// Package lotid allocates the human-readable lot identifiers. Each calendar
// day has its own counter row; allocation is a read-increment-write cycle
// guarded by an optimistic revision token and retried on conflict.
package lotid

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openregistry/lotreg/internal/metrics"
)

const (
	defaultMaxAttempts = 1000
	defaultBackoff     = 50 * time.Millisecond
)

// Generator allocates lot identifiers of the form
// UA-LR-DGF-YYYY-MM-DD-NNNNNN[-server]. A non-empty ServerID namespaces the
// counters so parallel instances never hand out the same index.
type Generator struct {
	DB       *sql.DB
	ServerID string

	// MaxAttempts caps the conflict retry loop; zero means the default.
	// The counter is the one contended document in the system, so retries
	// are expected, but an unbounded loop would turn sustained contention
	// into a stuck request.
	MaxAttempts int
	// Backoff is the fixed sleep between attempts; zero means the default.
	Backoff time.Duration
}

// Generate returns the next identifier for the given creation time. Write
// conflicts are retried internally and are invisible to the caller; any
// other storage error propagates.
func (g *Generator) Generate(ctx context.Context, ctime time.Time) (string, error) {
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := g.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	key := g.counterKey(ctime)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		index, conflict, err := g.nextIndex(ctx, key)
		if err != nil {
			return "", err
		}
		if !conflict {
			return g.format(ctime, index), nil
		}
		metrics.LotIDConflicts.Inc()
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("allocating lot identifier %s: retries exhausted", key)
}

// nextIndex runs one read-increment-write cycle. The returned conflict flag
// asks the caller to retry; it is set when another writer got between our
// read and write.
func (g *Generator) nextIndex(ctx context.Context, key string) (index int64, conflict bool, err error) {
	var value, rev int64
	err = g.DB.QueryRowContext(ctx,
		`SELECT value, rev FROM lot_id_counters WHERE key = ?`, key,
	).Scan(&value, &rev)

	if err == sql.ErrNoRows {
		// First allocation of the day: hand out 1, store 2. A concurrent
		// first allocation loses the insert race and retries.
		_, err = g.DB.ExecContext(ctx,
			`INSERT INTO lot_id_counters (key, value, rev) VALUES (?, 2, 1)`, key,
		)
		if err != nil {
			return 0, true, nil
		}
		return 1, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading lot identifier counter %s: %w", key, err)
	}

	result, err := g.DB.ExecContext(ctx,
		`UPDATE lot_id_counters SET value = ?, rev = rev + 1 WHERE key = ? AND rev = ?`,
		value+1, key, rev,
	)
	if err != nil {
		return 0, false, fmt.Errorf("updating lot identifier counter %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("updating lot identifier counter %s: %w", key, err)
	}
	if affected == 0 {
		return 0, true, nil
	}
	return value, false, nil
}

// counterKey scopes counters by calendar date and, when configured, by the
// server instance.
func (g *Generator) counterKey(ctime time.Time) string {
	name := "lotID"
	if g.ServerID != "" {
		name += "_" + g.ServerID
	}
	return name + ":" + ctime.Format("2006-01-02")
}

func (g *Generator) format(ctime time.Time, index int64) string {
	suffix := ""
	if g.ServerID != "" {
		suffix = "-" + g.ServerID
	}
	return fmt.Sprintf("UA-LR-DGF-%04d-%02d-%02d-%06d%s",
		ctime.Year(), int(ctime.Month()), ctime.Day(), index, suffix)
}
