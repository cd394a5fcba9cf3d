package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Feed partitions. Real is the production partition (no mode), Test holds
// sandboxed lots, All spans both.
const (
	FeedReal = ""
	FeedTest = "test"
	FeedAll  = "_all_"
)

// FeedEntry is the projection served by the change feeds: enough for a
// downstream consumer to decide whether to fetch the full document.
type FeedEntry struct {
	ID           string    `json:"id"`
	LotID        string    `json:"lotID,omitempty"`
	LotType      string    `json:"lotType,omitempty"`
	Status       string    `json:"status,omitempty"`
	DateModified time.Time `json:"dateModified"`
	LocalSeq     int64     `json:"local_seq,omitempty"`
}

// FeedByDateModified lists non-draft lots modified strictly after offset,
// oldest first.
func FeedByDateModified(ctx context.Context, db *sql.DB, partition string, offset time.Time, limit int) ([]FeedEntry, error) {
	where, args := feedFilter(partition)
	where += ` AND date_modified > ?`
	args = append(args, offset.UTC())

	query := `SELECT id, lot_id, lot_type, status, date_modified, local_seq FROM lots WHERE ` +
		where + ` ORDER BY date_modified LIMIT ?`
	args = append(args, limit)

	return queryFeed(ctx, db, query, args...)
}

// FeedByLocalSeq lists non-draft lots with a storage sequence strictly after
// offset, in sequence order.
func FeedByLocalSeq(ctx context.Context, db *sql.DB, partition string, offset int64, limit int) ([]FeedEntry, error) {
	where, args := feedFilter(partition)
	where += ` AND local_seq > ?`
	args = append(args, offset)

	query := `SELECT id, lot_id, lot_type, status, date_modified, local_seq FROM lots WHERE ` +
		where + ` ORDER BY local_seq LIMIT ?`
	args = append(args, limit)

	return queryFeed(ctx, db, query, args...)
}

// feedFilter builds the WHERE clause shared by both feeds: drafts are never
// published, and the partition selects real, test or all lots.
func feedFilter(partition string) (string, []any) {
	where := `status != 'draft'`
	var args []any
	switch partition {
	case FeedAll:
	case FeedTest:
		where += ` AND mode = ?`
		args = append(args, FeedTest)
	default:
		where += ` AND mode = ''`
	}
	return where, args
}

func queryFeed(ctx context.Context, db *sql.DB, query string, args ...any) ([]FeedEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var entries []FeedEntry
	for rows.Next() {
		var e FeedEntry
		if err := rows.Scan(&e.ID, &e.LotID, &e.LotType, &e.Status, &e.DateModified, &e.LocalSeq); err != nil {
			return nil, fmt.Errorf("scanning lot listing: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
