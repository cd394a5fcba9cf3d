package policy

import (
	"reflect"
	"sort"

	"github.com/openregistry/lotreg/internal/model"
)

// Diff computes the JSON-patch style change set between two serialized lot
// documents. Paths are top-level field pointers; an empty result means the
// mutation was a no-op and must not produce a revision.
func Diff(before, after map[string]any) []model.Change {
	fields := make(map[string]struct{}, len(before)+len(after))
	for f := range before {
		fields[f] = struct{}{}
	}
	for f := range after {
		fields[f] = struct{}{}
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	var changes []model.Change
	for _, f := range names {
		oldVal, hadOld := before[f]
		newVal, hasNew := after[f]
		switch {
		case hadOld && !hasNew:
			changes = append(changes, model.Change{Op: "remove", Path: "/" + f})
		case !hadOld && hasNew:
			changes = append(changes, model.Change{Op: "add", Path: "/" + f, Value: newVal})
		case !reflect.DeepEqual(oldVal, newVal):
			changes = append(changes, model.Change{Op: "replace", Path: "/" + f, Value: newVal})
		}
	}
	return changes
}

// ApplyPatch merges a validated patch into a serialized lot document,
// returning the patched document. The input document is not modified.
func ApplyPatch(doc, patch map[string]any) map[string]any {
	patched := make(map[string]any, len(doc)+len(patch))
	for f, v := range doc {
		patched[f] = v
	}
	for f, v := range patch {
		if v == nil {
			delete(patched, f)
			continue
		}
		patched[f] = v
	}
	return patched
}
