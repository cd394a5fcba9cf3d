package model

import (
	"testing"
	"time"
)

func TestValidStatus(t *testing.T) {
	for _, s := range Statuses {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "Draft", "active", "pending.verification"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}

func TestAsMapFromMapRoundTrip(t *testing.T) {
	lot := &Lot{
		ID:           NewHexID(),
		LotID:        "UA-LR-DGF-2024-05-01-000001",
		LotType:      "basic",
		Status:       StatusPending,
		Title:        "Office furniture",
		Value:        &Value{Amount: 1500, Currency: "UAH", ValueAddedTaxIncluded: true},
		Assets:       []string{NewHexID(), NewHexID()},
		Owner:        "broker1",
		OwnerToken:   NewHexID(),
		Date:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		DateModified: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}

	doc, err := lot.AsMap()
	if err != nil {
		t.Fatalf("AsMap: %v", err)
	}
	if doc["lotID"] != lot.LotID || doc["status"] != StatusPending {
		t.Errorf("unexpected document: %v", doc)
	}
	if _, ok := doc["mode"]; ok {
		t.Error("empty mode should be omitted from the document")
	}

	back, err := FromMap(doc)
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if back.Title != lot.Title || back.Value.Amount != 1500 || len(back.Assets) != 2 {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestClone(t *testing.T) {
	lot := &Lot{
		ID:       NewHexID(),
		Title:    "original",
		Assets:   []string{NewHexID()},
		Rev:      4,
		LocalSeq: 17,
	}

	clone, err := lot.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	clone.Title = "changed"
	clone.Assets[0] = NewHexID()

	if lot.Title != "original" {
		t.Error("clone shares title with original")
	}
	if clone.Assets[0] == lot.Assets[0] {
		t.Error("clone shares asset slice with original")
	}
	if clone.Rev != 4 || clone.LocalSeq != 17 {
		t.Errorf("clone lost storage fields: rev=%d seq=%d", clone.Rev, clone.LocalSeq)
	}
}

func TestApplyTestTitles(t *testing.T) {
	lot := &Lot{Mode: ModeTest, Title: "Scrap metal"}
	lot.ApplyTestTitles()
	if lot.Title != TestTitlePrefix+"Scrap metal" {
		t.Errorf("title = %q", lot.Title)
	}

	// Idempotent: a second save must not stack prefixes.
	lot.ApplyTestTitles()
	if lot.Title != TestTitlePrefix+"Scrap metal" {
		t.Errorf("title after second apply = %q", lot.Title)
	}

	real := &Lot{Title: "Scrap metal"}
	real.ApplyTestTitles()
	if real.Title != "Scrap metal" {
		t.Errorf("real lot title = %q", real.Title)
	}
}

func TestNewHexID(t *testing.T) {
	id := NewHexID()
	if len(id) != 32 {
		t.Fatalf("len = %d, want 32", len(id))
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("non-hex rune %q in %q", r, id)
		}
	}
	if NewHexID() == id {
		t.Error("ids should not repeat")
	}
}
