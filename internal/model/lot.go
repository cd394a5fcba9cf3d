package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Lot is the central registry entity: a sellable asset bundle tracked
// through a multi-stage disposition lifecycle. The whole document is
// persisted as one record; Rev and LocalSeq are storage-layer fields and
// never appear in serialized output.
type Lot struct {
	ID            string     `json:"id"`
	LotID         string     `json:"lotID,omitempty"`
	LotType       string     `json:"lotType"`
	Status        string     `json:"status"`
	Mode          string     `json:"mode,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Value         *Value     `json:"value,omitempty"`
	Assets        []string   `json:"assets,omitempty"`
	Auctions      []string   `json:"auctions,omitempty"`
	Documents     []Document `json:"documents,omitempty"`
	Owner         string     `json:"owner,omitempty"`
	OwnerToken    string     `json:"owner_token,omitempty"`
	TransferToken string     `json:"transfer_token,omitempty"`
	TransferUsed  bool       `json:"transfer_token_used,omitempty"`
	Date          time.Time  `json:"date"`
	DateModified  time.Time  `json:"dateModified"`
	Revisions     []Revision `json:"revisions,omitempty"`

	Rev      int64 `json:"-"`
	LocalSeq int64 `json:"-"`
}

// Value is a monetary amount attached to a lot.
type Value struct {
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	ValueAddedTaxIncluded bool    `json:"valueAddedTaxIncluded"`
}

// Document is an attached file record. Only metadata is stored; the file
// body lives in an external document service.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	Format        string    `json:"format,omitempty"`
	DocumentType  string    `json:"documentType,omitempty"`
	DatePublished time.Time `json:"datePublished"`
	DateModified  time.Time `json:"dateModified"`
}

// Revision is one immutable audit record: the change set of a single
// accepted mutation together with the acting user.
type Revision struct {
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Changes []Change  `json:"changes"`
	Rev     int64     `json:"rev"`
}

// Change is a single JSON-patch style operation inside a revision.
type Change struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Lot statuses (latest schema).
const (
	StatusDraft              = "draft"
	StatusPending            = "pending"
	StatusDeleted            = "deleted"
	StatusPendingDeleted     = "pending.deleted"
	StatusVerification       = "verification"
	StatusRecomposed         = "recomposed"
	StatusActiveSalable      = "active.salable"
	StatusPendingDissolution = "pending.dissolution"
	StatusDissolved          = "dissolved"
	StatusActiveAwaiting     = "active.awaiting"
	StatusActiveAuction      = "active.auction"
	StatusPendingSold        = "pending.sold"
	StatusSold               = "sold"
)

// ModeTest marks sandboxed lots; they are excluded from the real change feed
// and get synthetic titles on save.
const ModeTest = "test"

// TestTitlePrefix is prepended to titles of test-mode lots.
const TestTitlePrefix = "[TESTING] "

// Statuses lists every valid lot status.
var Statuses = []string{
	StatusDraft,
	StatusPending,
	StatusDeleted,
	StatusPendingDeleted,
	StatusVerification,
	StatusRecomposed,
	StatusActiveSalable,
	StatusPendingDissolution,
	StatusDissolved,
	StatusActiveAwaiting,
	StatusActiveAuction,
	StatusPendingSold,
	StatusSold,
}

// ValidStatus reports whether s is a known lot status.
func ValidStatus(s string) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// LotFields lists every serializable field name of the Lot document.
// Permission matrices are validated against this set at startup.
var LotFields = []string{
	"id", "lotID", "lotType", "status", "mode", "title", "description",
	"value", "assets", "auctions", "documents", "owner", "owner_token",
	"transfer_token", "transfer_token_used", "date", "dateModified", "revisions",
}

// AsMap serializes the lot into its canonical document form, the shape
// patches and revision diffs operate on.
func (l *Lot) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("serializing lot: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("deserializing lot: %w", err)
	}
	return m, nil
}

// FromMap rebuilds a lot from its canonical document form.
func FromMap(m map[string]any) (*Lot, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("serializing lot document: %w", err)
	}
	lot := &Lot{}
	if err := json.Unmarshal(raw, lot); err != nil {
		return nil, fmt.Errorf("deserializing lot document: %w", err)
	}
	return lot, nil
}

// Clone returns a deep copy of the lot, including the storage-layer fields.
func (l *Lot) Clone() (*Lot, error) {
	doc, err := l.AsMap()
	if err != nil {
		return nil, err
	}
	clone, err := FromMap(doc)
	if err != nil {
		return nil, err
	}
	clone.Rev = l.Rev
	clone.LocalSeq = l.LocalSeq
	return clone, nil
}

// ApplyTestTitles rewrites descriptive fields of a test-mode lot so that
// sandbox data is unmistakable in downstream systems.
func (l *Lot) ApplyTestTitles() {
	if l.Mode != ModeTest {
		return
	}
	if l.Title != "" && !strings.HasPrefix(l.Title, TestTitlePrefix) {
		l.Title = TestTitlePrefix + l.Title
	}
}
