package policy

import (
	"fmt"

	"github.com/openregistry/lotreg/internal/model"
)

// FieldSet is a set of writable lot field names.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from field names.
func NewFieldSet(fields ...string) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// Contains reports whether the set allows writing field.
func (s FieldSet) Contains(field string) bool {
	_, ok := s[field]
	return ok
}

// editFields is the broad owner-editable set used in statuses where a lot is
// still being composed.
var editFields = NewFieldSet("title", "description", "value", "assets", "auctions", "status")

// ownerEdit maps each status to the fields the lot owner may write while the
// lot is in that status. Statuses absent from the map are view-only for the
// owner; unknown statuses fail closed the same way.
var ownerEdit = map[string]FieldSet{
	model.StatusDraft:              NewFieldSet("status"),
	model.StatusPending:            editFields,
	model.StatusActiveSalable:      NewFieldSet("status"),
	model.StatusPendingDissolution: NewFieldSet("status"),
	model.StatusActiveAuction:      editFields,
}

// roleEdit maps the privileged roles to their writable fields, applicable in
// every status. The administrator gets a broad override; the automated
// accounts are limited to orchestration fields.
var roleEdit = map[string]FieldSet{
	model.RoleAdministrator: NewFieldSet("status", "mode"),
	model.RoleConcierge:     NewFieldSet("status"),
	model.RoleConvoy:        NewFieldSet("status", "auctions"),
}

// transitions maps each status to the statuses it may move to. A switch
// outside this map is an invalid transition regardless of role. deleted,
// dissolved and sold are terminal.
var transitions = map[string][]string{
	model.StatusDraft:              {model.StatusPending},
	model.StatusPending:            {model.StatusVerification, model.StatusPendingDeleted},
	model.StatusPendingDeleted:     {model.StatusDeleted},
	model.StatusVerification:       {model.StatusActiveSalable, model.StatusPending},
	model.StatusRecomposed:         {model.StatusPending},
	model.StatusActiveSalable:      {model.StatusActiveAwaiting, model.StatusPendingDissolution},
	model.StatusActiveAwaiting:     {model.StatusActiveAuction, model.StatusPendingDissolution},
	model.StatusActiveAuction:      {model.StatusPendingSold, model.StatusActiveSalable, model.StatusPendingDissolution},
	model.StatusPendingSold:        {model.StatusSold},
	model.StatusPendingDissolution: {model.StatusDissolved, model.StatusRecomposed},
}

// viewHidden lists the fields stripped from every status view: credentials
// and the audit trail never leave the service through the public surface.
var viewHidden = NewFieldSet("owner_token", "transfer_token", "transfer_token_used", "revisions")

func init() {
	// A field mask naming a field the model does not have is a programming
	// error; catch it at startup rather than silently never matching.
	known := NewFieldSet(model.LotFields...)
	check := func(origin string, set FieldSet) {
		for f := range set {
			if !known.Contains(f) {
				panic(fmt.Sprintf("policy: %s references unknown lot field %q", origin, f))
			}
		}
	}
	for status, set := range ownerEdit {
		check("ownerEdit["+status+"]", set)
	}
	for role, set := range roleEdit {
		check("roleEdit["+role+"]", set)
	}
	check("viewHidden", viewHidden)
	for from, targets := range transitions {
		if !model.ValidStatus(from) {
			panic(fmt.Sprintf("policy: transition from unknown status %q", from))
		}
		for _, to := range targets {
			if !model.ValidStatus(to) {
				panic(fmt.Sprintf("policy: transition %s -> %q names unknown status", from, to))
			}
		}
	}
}

// WritableFields returns the fields the given role may write while a lot is
// in the given status. An empty set means the role may not edit at all.
func WritableFields(status, role string) FieldSet {
	if set, ok := roleEdit[role]; ok {
		return set
	}
	if role == model.LotOwnerRole || role == model.RoleBroker {
		return ownerEdit[status]
	}
	return nil
}

// CanTransition reports whether a lot in from may be switched to to.
func CanTransition(from, to string) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ViewSerialize returns the status-view representation of a lot: the full
// document minus credentials and the revision trail.
func ViewSerialize(lot *model.Lot) (map[string]any, error) {
	doc, err := lot.AsMap()
	if err != nil {
		return nil, err
	}
	for field := range viewHidden {
		delete(doc, field)
	}
	return doc, nil
}

// ExtractCredentials returns the privileged credentials view used by the
// automated accounts: exactly the owner and the transfer token.
func ExtractCredentials(lot *model.Lot) map[string]any {
	return map[string]any{
		"owner":          lot.Owner,
		"transfer_token": lot.TransferToken,
	}
}
