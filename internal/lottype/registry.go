// Package lottype holds the registered lot types. The registry is built once
// by the composition root and never mutated afterwards; handlers resolve the
// concrete type definition through it instead of a process-wide registry.
package lottype

import (
	"fmt"

	"github.com/openregistry/lotreg/internal/model"
)

// DefaultType is used when a create request carries no explicit lotType.
const DefaultType = "basic"

// Definition describes one concrete lot type: its default lifecycle entry
// point and the accreditation tiers required to create a lot of that type or
// to receive its ownership.
type Definition struct {
	Name           string
	DefaultStatus  string
	CreateLevels   string
	TransferLevels string
}

// Registry maps lotType discriminator values to their definitions.
type Registry struct {
	types map[string]Definition
}

// NewRegistry builds a registry from the given definitions. Definitions are
// validated up front so a misconfigured type fails at startup, not on the
// first request.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{types: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("lot type with empty name")
		}
		if !model.ValidStatus(def.DefaultStatus) {
			return nil, fmt.Errorf("lot type %q: unknown default status %q", def.Name, def.DefaultStatus)
		}
		if def.CreateLevels == "" {
			return nil, fmt.Errorf("lot type %q: empty create accreditation", def.Name)
		}
		if _, dup := r.types[def.Name]; dup {
			return nil, fmt.Errorf("lot type %q registered twice", def.Name)
		}
		r.types[def.Name] = def
	}
	return r, nil
}

// Default returns the registry with the standard lot types.
func Default() *Registry {
	r, err := NewRegistry(Definition{
		Name:           DefaultType,
		DefaultStatus:  model.StatusDraft,
		CreateLevels:   "12",
		TransferLevels: "3",
	})
	if err != nil {
		panic(err)
	}
	return r
}

// Get resolves a lotType value, falling back to the default type for an
// empty discriminator. The boolean is false for unregistered types.
func (r *Registry) Get(lotType string) (Definition, bool) {
	if lotType == "" {
		lotType = DefaultType
	}
	def, ok := r.types[lotType]
	return def, ok
}
