package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openregistry/lotreg/internal/model"
	"github.com/openregistry/lotreg/internal/policy"
)

// ErrConflict is returned when a lot write loses an optimistic-concurrency
// race: the document's revision token changed between read and write.
// Conflicts on the lot document are surfaced, never silently retried.
var ErrConflict = errors.New("lot was modified concurrently")

// ErrNotFound is returned when a guarded write targets a lot that no longer
// exists.
var ErrNotFound = errors.New("lot not found")

// ValidationError is a storage-layer rejection of a document that violates
// a model invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InsertLot persists a freshly created lot with revision token 1 and a new
// change-feed sequence number.
func InsertLot(ctx context.Context, db *sql.DB, lot *model.Lot) error {
	if verr := validateDocument(lot); verr != nil {
		return verr
	}

	data, err := json.Marshal(lot)
	if err != nil {
		return fmt.Errorf("serializing lot: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSequence(ctx, tx, "lots")
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lots (id, lot_id, lot_type, status, mode, owner, date_modified, local_seq, rev, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		lot.ID, lot.LotID, lot.LotType, lot.Status, lot.Mode, lot.Owner,
		lot.DateModified.UTC(), seq, string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting lot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing lot insert: %w", err)
	}

	lot.Rev = 1
	lot.LocalSeq = seq
	return nil
}

// GetLot returns a lot by internal id, or nil if no such lot exists.
func GetLot(ctx context.Context, db *sql.DB, id string) (*model.Lot, error) {
	var data string
	var rev, seq int64
	err := db.QueryRowContext(ctx,
		`SELECT data, rev, local_seq FROM lots WHERE id = ?`, id,
	).Scan(&data, &rev, &seq)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lot: %w", err)
	}

	lot := &model.Lot{}
	if err := json.Unmarshal([]byte(data), lot); err != nil {
		return nil, fmt.Errorf("deserializing lot %s: %w", id, err)
	}
	lot.Rev = rev
	lot.LocalSeq = seq
	return lot, nil
}

// SaveLot persists a mutated lot. It appends exactly one revision record
// capturing the diff against before, bumps dateModified, and writes the whole
// document in a single statement guarded by before's revision token: either
// fields and revision land together or nothing does. An unchanged document is
// a no-op and leaves dateModified alone. The returned lot carries the new
// revision token.
func SaveLot(ctx context.Context, db *sql.DB, before, after *model.Lot, author string) (*model.Lot, error) {
	after.ApplyTestTitles()

	changes, err := diffLots(before, after)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return before, nil
	}

	after.Revisions = append(append([]model.Revision{}, before.Revisions...), model.Revision{
		Author:  author,
		Date:    time.Now().UTC(),
		Changes: changes,
		Rev:     before.Rev,
	})
	after.DateModified = time.Now().UTC()

	if verr := validateDocument(after); verr != nil {
		return nil, verr
	}
	if after.LotID != before.LotID {
		return nil, &ValidationError{Field: "lotID", Message: "lotID is immutable"}
	}
	if after.LotType != before.LotType {
		return nil, &ValidationError{Field: "lotType", Message: "lotType is immutable"}
	}

	data, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("serializing lot: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSequence(ctx, tx, "lots")
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE lots
		 SET status = ?, mode = ?, owner = ?, date_modified = ?, local_seq = ?, rev = rev + 1, data = ?
		 WHERE id = ? AND rev = ?`,
		after.Status, after.Mode, after.Owner, after.DateModified.UTC(), seq, string(data),
		after.ID, before.Rev,
	)
	if err != nil {
		return nil, fmt.Errorf("updating lot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating lot: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM lots WHERE id = ?`, after.ID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking lot existence: %w", err)
		}
		if exists == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing lot update: %w", err)
	}

	after.Rev = before.Rev + 1
	after.LocalSeq = seq
	return after, nil
}

// diffLots computes the revision change set between two lots, ignoring the
// bookkeeping fields the recorder itself maintains.
func diffLots(before, after *model.Lot) ([]model.Change, error) {
	beforeDoc, err := before.AsMap()
	if err != nil {
		return nil, err
	}
	afterDoc, err := after.AsMap()
	if err != nil {
		return nil, err
	}
	for _, doc := range []map[string]any{beforeDoc, afterDoc} {
		delete(doc, "revisions")
		delete(doc, "dateModified")
	}
	return policy.Diff(beforeDoc, afterDoc), nil
}

func validateDocument(lot *model.Lot) *ValidationError {
	if lot.ID == "" {
		return &ValidationError{Field: "id", Message: "This field is required."}
	}
	if lot.Title == "" {
		return &ValidationError{Field: "title", Message: "This field is required."}
	}
	if !model.ValidStatus(lot.Status) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("Value %q is not a valid status.", lot.Status)}
	}
	return nil
}

// nextSequence bumps and returns the named monotonic sequence inside the
// caller's transaction, so the change-feed cursor moves with the write it
// belongs to.
func nextSequence(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var value int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = value + 1
		 RETURNING value`, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("advancing sequence %s: %w", name, err)
	}
	return value, nil
}
