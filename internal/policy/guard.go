package policy

import (
	"fmt"

	"github.com/openregistry/lotreg/internal/lottype"
	"github.com/openregistry/lotreg/internal/model"
)

// Actor is the authenticated user a guard decision is made for.
type Actor struct {
	Username string
	Role     string
	Levels   string
}

// EffectiveRole resolves the actor's role relative to a specific lot: the
// privileged roles keep their own identity, a broker owning the lot acts as
// lot_owner, and everyone else has no editing identity at all.
func EffectiveRole(actor Actor, lot *model.Lot) string {
	if actor.Role == model.RoleAdministrator || model.IsBot(actor.Role) {
		return actor.Role
	}
	if actor.Role == model.RoleBroker && actor.Username == lot.Owner {
		return model.LotOwnerRole
	}
	return ""
}

// ValidateCreate decides whether the actor may create the given lot. The lot
// carries the client-supplied initial field values; def is the resolved lot
// type.
func ValidateCreate(def lottype.Definition, actor Actor, lot *model.Lot) *Error {
	if model.IsBot(actor.Role) {
		return forbidden("accreditation", "Can't create lot as bot")
	}
	if !model.HasAccreditation(actor.Levels, def.CreateLevels) {
		return forbidden("accreditation", "Broker Accreditation level does not permit lot creation")
	}
	if lot.Mode == "" && model.TestOnlyAccreditation(actor.Levels) {
		return forbidden("mode", "Broker Accreditation level does not permit lot creation")
	}
	if lot.Status != "" && lot.Status != def.DefaultStatus {
		return forbidden("status", fmt.Sprintf("You can create only in %s status", def.DefaultStatus))
	}
	if lot.Mode != "" && lot.Mode != model.ModeTest {
		return invalid("mode", "Value must be one of ['test'].")
	}
	if lot.Title == "" {
		return invalid("title", "This field is required.")
	}
	if err := validateIDList("assets", lot.Assets); err != nil {
		return err
	}
	if err := validateIDList("auctions", lot.Auctions); err != nil {
		return err
	}
	if err := validateValue(lot.Value); err != nil {
		return err
	}
	return nil
}

// ValidatePatch decides whether the proposed patch may be applied to the
// current lot by the actor. On success it returns the patch narrowed to the
// fields the actor is actually allowed to write; fields outside that set are
// dropped, matching how role-filtered imports behaved upstream.
func ValidatePatch(cur *model.Lot, defaultStatus string, patch map[string]any, actor Actor) (map[string]any, *Error) {
	// List uniqueness is plain data validation and runs before any
	// status/role reasoning.
	for _, field := range []string{"assets", "auctions"} {
		if raw, ok := patch[field]; ok {
			ids, err := toIDList(field, raw)
			if err != nil {
				return nil, err
			}
			if verr := validateIDList(field, ids); verr != nil {
				return nil, verr
			}
		}
	}

	role := EffectiveRole(actor, cur)
	writable := WritableFields(cur.Status, role)
	if len(writable) == 0 {
		return nil, forbidden("data", fmt.Sprintf("Can't update lot in current (%s) status", cur.Status))
	}

	filtered := make(map[string]any, len(patch))
	for field, value := range patch {
		if writable.Contains(field) {
			filtered[field] = value
		}
	}

	if raw, ok := filtered["status"]; ok {
		status, isString := raw.(string)
		if !isString || !model.ValidStatus(status) {
			return nil, invalid("status", fmt.Sprintf("Value must be one of %v.", model.Statuses))
		}
		if status != cur.Status {
			if status == defaultStatus {
				return nil, forbidden("data", fmt.Sprintf("Can't switch lot to %s status", defaultStatus))
			}
			if !CanTransition(cur.Status, status) {
				return nil, forbidden("data", fmt.Sprintf("Can't switch lot to %s status", status))
			}
		}
	}

	if raw, ok := filtered["title"]; ok {
		if title, isString := raw.(string); !isString || title == "" {
			return nil, invalid("title", "This field is required.")
		}
	}
	if raw, ok := filtered["value"]; ok {
		value, err := toValue(raw)
		if err != nil {
			return nil, err
		}
		if verr := validateValue(value); verr != nil {
			return nil, verr
		}
	}
	if raw, ok := filtered["mode"]; ok {
		if mode, isString := raw.(string); !isString || (mode != "" && mode != model.ModeTest) {
			return nil, invalid("mode", "Value must be one of ['test'].")
		}
	}

	return filtered, nil
}

func validateIDList(field string, ids []string) *Error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !isHexID(id) {
			return invalid(field, "Hash value is wrong length.")
		}
		if _, dup := seen[id]; dup {
			return invalid(field, fmt.Sprintf("%s should be unique", titleCase(field)))
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateValue(v *model.Value) *Error {
	if v == nil {
		return nil
	}
	if v.Amount < 0 {
		return invalid("value", "Amount should be greater than 0.")
	}
	if v.Currency != "" && len(v.Currency) != 3 {
		return invalid("value", "Currency must be a three-letter code.")
	}
	return nil
}

func toIDList(field string, raw any) ([]string, *Error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid(field, "Expecting a list of strings.")
	}
	ids := make([]string, 0, len(list))
	for _, entry := range list {
		id, ok := entry.(string)
		if !ok {
			return nil, invalid(field, "Expecting a list of strings.")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toValue(raw any) (*model.Value, *Error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("value", "Expecting an object.")
	}
	v := &model.Value{}
	if amount, ok := m["amount"].(float64); ok {
		v.Amount = amount
	}
	if currency, ok := m["currency"].(string); ok {
		v.Currency = currency
	}
	return v, nil
}

// isHexID reports whether id is a 32-character lowercase hex identifier, the
// shape of internal ids for lots, assets and auctions.
func isHexID(id string) bool {
	if len(id) != 32 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func titleCase(field string) string {
	if field == "" {
		return field
	}
	return string(field[0]-'a'+'A') + field[1:]
}
