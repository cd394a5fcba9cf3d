package policy

import (
	"testing"
	"time"

	"github.com/openregistry/lotreg/internal/model"
)

func TestWritableFieldsOwner(t *testing.T) {
	tests := []struct {
		status string
		fields []string
	}{
		{model.StatusDraft, []string{"status"}},
		{model.StatusPending, []string{"title", "description", "value", "assets", "auctions", "status"}},
		{model.StatusActiveSalable, []string{"status"}},
		{model.StatusPendingDissolution, []string{"status"}},
		{model.StatusActiveAuction, []string{"title", "description", "value", "assets", "auctions", "status"}},
		// View-only statuses.
		{model.StatusDeleted, nil},
		{model.StatusVerification, nil},
		{model.StatusSold, nil},
		{model.StatusDissolved, nil},
	}

	for _, tt := range tests {
		set := WritableFields(tt.status, model.LotOwnerRole)
		if len(set) != len(tt.fields) {
			t.Errorf("WritableFields(%q, owner) has %d fields, want %d", tt.status, len(set), len(tt.fields))
			continue
		}
		for _, f := range tt.fields {
			if !set.Contains(f) {
				t.Errorf("WritableFields(%q, owner) missing %q", tt.status, f)
			}
		}
	}
}

func TestWritableFieldsFailClosed(t *testing.T) {
	if set := WritableFields("no-such-status", model.LotOwnerRole); len(set) != 0 {
		t.Errorf("unknown status should yield empty writable set, got %v", set)
	}
	if set := WritableFields(model.StatusPending, "auditor"); len(set) != 0 {
		t.Errorf("unknown role should yield empty writable set, got %v", set)
	}
	if set := WritableFields(model.StatusPending, ""); len(set) != 0 {
		t.Errorf("empty role should yield empty writable set, got %v", set)
	}
}

func TestWritableFieldsRoleOverrides(t *testing.T) {
	// Privileged roles keep their override in every status, including the
	// view-only ones.
	for _, status := range model.Statuses {
		admin := WritableFields(status, model.RoleAdministrator)
		if !admin.Contains("status") || !admin.Contains("mode") || len(admin) != 2 {
			t.Errorf("administrator override in %q = %v, want {status, mode}", status, admin)
		}

		concierge := WritableFields(status, model.RoleConcierge)
		if !concierge.Contains("status") || len(concierge) != 1 {
			t.Errorf("concierge override in %q = %v, want {status}", status, concierge)
		}

		convoy := WritableFields(status, model.RoleConvoy)
		if !convoy.Contains("status") || !convoy.Contains("auctions") || len(convoy) != 2 {
			t.Errorf("convoy override in %q = %v, want {status, auctions}", status, convoy)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{model.StatusDraft, model.StatusPending},
		{model.StatusPending, model.StatusVerification},
		{model.StatusPending, model.StatusPendingDeleted},
		{model.StatusPendingDeleted, model.StatusDeleted},
		{model.StatusVerification, model.StatusActiveSalable},
		{model.StatusActiveSalable, model.StatusActiveAwaiting},
		{model.StatusActiveAwaiting, model.StatusActiveAuction},
		{model.StatusActiveAuction, model.StatusPendingSold},
		{model.StatusPendingSold, model.StatusSold},
		{model.StatusPendingDissolution, model.StatusDissolved},
		{model.StatusPendingDissolution, model.StatusRecomposed},
		{model.StatusRecomposed, model.StatusPending},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("expected transition %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to string }{
		{model.StatusDraft, model.StatusSold},
		{model.StatusPending, model.StatusDraft},
		{model.StatusSold, model.StatusPending},
		{model.StatusDeleted, model.StatusPending},
		{model.StatusDissolved, model.StatusActiveSalable},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("expected transition %s -> %s to be denied", tt.from, tt.to)
		}
	}
}

func TestViewSerializeHidesCredentials(t *testing.T) {
	lot := &model.Lot{
		ID:            "a" + model.NewHexID()[1:],
		LotType:       "basic",
		Status:        model.StatusPending,
		Title:         "Warehouse equipment",
		Owner:         "broker1",
		OwnerToken:    "secret-owner-token",
		TransferToken: "secret-transfer-token",
		Date:          time.Now().UTC(),
		DateModified:  time.Now().UTC(),
		Revisions: []model.Revision{
			{Author: "broker1", Date: time.Now().UTC(), Rev: 1},
		},
	}

	view, err := ViewSerialize(lot)
	if err != nil {
		t.Fatalf("ViewSerialize: %v", err)
	}

	for _, hidden := range []string{"owner_token", "transfer_token", "transfer_token_used", "revisions"} {
		if _, leaked := view[hidden]; leaked {
			t.Errorf("view leaks %q", hidden)
		}
	}
	if view["title"] != "Warehouse equipment" {
		t.Errorf("view title = %v", view["title"])
	}
	if view["owner"] != "broker1" {
		t.Errorf("view owner = %v, owner should stay visible", view["owner"])
	}
}

func TestExtractCredentialsKeys(t *testing.T) {
	lot := &model.Lot{Owner: "broker1", TransferToken: "tok"}
	data := ExtractCredentials(lot)

	if len(data) != 2 {
		t.Fatalf("expected exactly 2 keys, got %d: %v", len(data), data)
	}
	if data["owner"] != "broker1" || data["transfer_token"] != "tok" {
		t.Errorf("unexpected credentials payload: %v", data)
	}
}
