// Package types implements the type system every other store builds on:
// the tag registry, TypeInfo records, and the TypeConfig that seals them
// into an immutable, versioned registry round-tripped through types.dat.
// TypeConfig is always built programmatically by calling code via
// RegisterTag/RegisterFeature/RegisterType, never parsed from a
// style-sheet file.
package types

import (
	"github.com/pkg/errors"
)

// TagId is a stable, dense identifier for an interned OSM tag key.
// TagId 0 is reserved and denotes "ignore" (unregistered/unused tag).
type TagId uint32

const IgnoreTagId TagId = 0

// TagRegistry interns tag key strings to stable ids. It is keyed on tag
// keys rather than whole key=value pairs.
type TagRegistry struct {
	nameToId map[string]TagId
	idToName []string
}

func NewTagRegistry() *TagRegistry {
	return &TagRegistry{
		nameToId: map[string]TagId{},
		idToName: []string{""}, // index 0 reserved for IgnoreTagId
	}
}

// RegisterTag returns name's TagId, minting a new one if unseen. Idempotent.
func (r *TagRegistry) RegisterTag(name string) TagId {
	if name == "" {
		return IgnoreTagId
	}
	if id, ok := r.nameToId[name]; ok {
		return id
	}
	id := TagId(len(r.idToName))
	r.nameToId[name] = id
	r.idToName = append(r.idToName, name)
	return id
}

func (r *TagRegistry) Name(id TagId) string {
	if int(id) >= len(r.idToName) {
		return ""
	}
	return r.idToName[id]
}

func (r *TagRegistry) Lookup(name string) (TagId, bool) {
	id, ok := r.nameToId[name]
	return id, ok
}

func (r *TagRegistry) Len() int { return len(r.idToName) }

var errNotSealed = errors.New("types: TypeConfig not yet sealed")
