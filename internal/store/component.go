// Package store owns the entity/component bag: the map of entity to
// its set of components and the inverted index from component kind to
// the entities that carry it.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Recognized component kinds.
const (
	KindIdentity       = "identity"
	KindMobility       = "mobility"
	KindShape          = "shape"
	KindSolidity       = "solidity"
	KindVisual         = "visual"
	KindEntrance       = "entrance"
	KindPortable       = "portable"
	KindInventory      = "inventory"
	KindDurability     = "durability"
	KindContractLimit  = "contract_limit"
	KindMovementRules  = "movement_rules"
	KindWorldConds     = "world_conditions"
	KindWorldCommands  = "world_commands"
	KindCommandAccess  = "command_access"
)

// Component is a tagged record discriminated by Kind. Fields carries
// the kind-specific payload as decoded JSON (numbers as float64,
// nested objects/arrays as map[string]any / []any), which is exactly
// what the schema registry's jsonschema.Validate expects and what the
// wire form serializes back out to.
type Component struct {
	Kind   string
	Fields map[string]any
}

// Seq is a monotonically increasing insertion counter used to
// determine "oldest" for cardinality eviction. It is not part of the wire form.
type Record struct {
	Component
	Seq uint64
}

func (c Component) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["kind"] = c.Kind
	return json.Marshal(out)
}

func (c *Component) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind, _ := raw["kind"].(string)
	if kind == "" {
		return fmt.Errorf("store: component missing kind field")
	}
	delete(raw, "kind")
	c.Kind = kind
	c.Fields = raw
	return nil
}

// Clone returns a deep-enough copy for archetype cloning: top-level
// fields are copied; nested maps/slices are shared, which is
// safe because components are replaced wholesale, never mutated
// in place, by every operation in this package.
func (c Component) Clone() Component {
	out := Component{Kind: c.Kind, Fields: make(map[string]any, len(c.Fields))}
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	return out
}

// Merge shallow-merges override fields into a clone of c, used by
// archetype spawning to apply per-spawn overrides.
func (c Component) Merge(overrides map[string]any) Component {
	out := c.Clone()
	for k, v := range overrides {
		out.Fields[k] = v
	}
	return out
}

func (c Component) String(field string) (string, bool) {
	v, ok := c.Fields[field].(string)
	return v, ok
}

func (c Component) Float(field string) (float64, bool) {
	switch v := c.Fields[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (c Component) Bool(field string) (bool, bool) {
	v, ok := c.Fields[field].(bool)
	return v, ok
}

// SortedKinds returns kind names in a stable, deterministic order —
// used for entity snapshot serialization so wire output is reproducible.
func SortedKinds(kinds map[string]struct{}) []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultCardinality is the global per-kind cap Zero
// means unbounded.
var DefaultCardinality = map[string]int{
	KindIdentity:      1,
	KindMobility:      1,
	KindShape:         1,
	KindSolidity:      1,
	KindVisual:        1,
	KindEntrance:      1,
	KindPortable:      3,
	KindInventory:     1,
	KindDurability:    1,
	KindContractLimit: 1,
	KindMovementRules: 1,
	KindWorldConds:    1,
	KindWorldCommands: 1,
	KindCommandAccess: 1,
}
