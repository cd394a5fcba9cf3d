package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/openregistry/lotreg/internal/db"
	"github.com/openregistry/lotreg/internal/model"
)

func insertFeedLot(t *testing.T, database *sql.DB, status, mode string) *model.Lot {
	t.Helper()

	lot := newLot()
	lot.Status = status
	lot.Mode = mode
	if err := InsertLot(context.Background(), database, lot); err != nil {
		t.Fatalf("InsertLot: %v", err)
	}
	return lot
}

func TestFeedExcludesDrafts(t *testing.T) {
	database := db.NewTestDB(t)

	insertFeedLot(t, database, model.StatusDraft, "")
	published := insertFeedLot(t, database, model.StatusPending, "")

	entries, err := FeedByDateModified(context.Background(), database, FeedAll, time.Time{}, 100)
	if err != nil {
		t.Fatalf("FeedByDateModified: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != published.ID {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFeedPartitions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	real := insertFeedLot(t, database, model.StatusPending, "")
	test := insertFeedLot(t, database, model.StatusPending, model.ModeTest)

	entries, err := FeedByDateModified(ctx, database, FeedReal, time.Time{}, 100)
	if err != nil {
		t.Fatalf("real feed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != real.ID {
		t.Errorf("real feed = %+v", entries)
	}

	entries, err = FeedByDateModified(ctx, database, FeedTest, time.Time{}, 100)
	if err != nil {
		t.Fatalf("test feed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != test.ID {
		t.Errorf("test feed = %+v", entries)
	}

	entries, err = FeedByDateModified(ctx, database, FeedAll, time.Time{}, 100)
	if err != nil {
		t.Fatalf("all feed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("all feed = %+v", entries)
	}
}

func TestFeedByDateModifiedCursor(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first := insertFeedLot(t, database, model.StatusPending, "")
	second := newLot()
	second.Status = model.StatusPending
	second.DateModified = first.DateModified.Add(time.Second)
	if err := InsertLot(ctx, database, second); err != nil {
		t.Fatalf("InsertLot: %v", err)
	}

	entries, err := FeedByDateModified(ctx, database, FeedAll, time.Time{}, 100)
	if err != nil {
		t.Fatalf("FeedByDateModified: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Fatalf("entries = %+v", entries)
	}

	// The cursor is exclusive: resuming from the first entry returns only
	// what came after it.
	entries, err = FeedByDateModified(ctx, database, FeedAll, entries[0].DateModified, 100)
	if err != nil {
		t.Fatalf("FeedByDateModified: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != second.ID {
		t.Errorf("resumed entries = %+v", entries)
	}
}

func TestFeedByLocalSeq(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first := insertFeedLot(t, database, model.StatusPending, "")
	second := insertFeedLot(t, database, model.StatusPending, "")

	entries, err := FeedByLocalSeq(ctx, database, FeedAll, 0, 100)
	if err != nil {
		t.Fatalf("FeedByLocalSeq: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Fatalf("entries = %+v", entries)
	}

	entries, err = FeedByLocalSeq(ctx, database, FeedAll, entries[0].LocalSeq, 100)
	if err != nil {
		t.Fatalf("FeedByLocalSeq: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != second.ID {
		t.Errorf("resumed entries = %+v", entries)
	}

	// A save moves the lot to the end of the sequence feed.
	after, _ := first.Clone()
	after.Description = "touched"
	if _, err := SaveLot(ctx, database, first, after, "broker1"); err != nil {
		t.Fatalf("SaveLot: %v", err)
	}
	entries, err = FeedByLocalSeq(ctx, database, FeedAll, 0, 100)
	if err != nil {
		t.Fatalf("FeedByLocalSeq: %v", err)
	}
	if len(entries) != 2 || entries[1].ID != first.ID {
		t.Errorf("after save entries = %+v", entries)
	}
}

func TestFeedLimit(t *testing.T) {
	database := db.NewTestDB(t)

	for i := 0; i < 5; i++ {
		insertFeedLot(t, database, model.StatusPending, "")
	}

	entries, err := FeedByLocalSeq(context.Background(), database, FeedAll, 0, 3)
	if err != nil {
		t.Fatalf("FeedByLocalSeq: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len = %d, want 3", len(entries))
	}
}
