// Package archetype implements the Archetype Catalog and Spawner: a
// named template for an entity's initial component set, and the
// function that turns a template plus per-spawn overrides into a live
// entity.
package archetype

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"voxelrealm/internal/layer"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// PlayerArchetypeID is reserved: spawning it always delegates to the
// player factory instead of cloning a stored template.
const PlayerArchetypeID = "player"

// Archetype is a named template component set.
type Archetype struct {
	ID         string
	Components []store.Component
}

// Catalog holds named archetype templates, overwritable by id.
type Catalog struct {
	templates map[string]Archetype
}

func NewCatalog() *Catalog {
	return &Catalog{templates: map[string]Archetype{}}
}

// Define stores or overwrites a template under a.ID.
func (c *Catalog) Define(a Archetype) {
	c.templates[a.ID] = a
}

func (c *Catalog) Get(id string) (Archetype, bool) {
	a, ok := c.templates[id]
	return a, ok
}

func (c *Catalog) List() []Archetype {
	out := make([]Archetype, 0, len(c.templates))
	for _, a := range c.templates {
		out = append(out, a)
	}
	return out
}

// Digest returns a content hash of the current template set, stable
// under insertion order. The admin surface reports it so operators can
// tell whether a running server's catalog matches what's on disk
// without diffing every archetype by hand.
func (c *Catalog) Digest() uint64 {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := xxhash.New()
	for _, id := range ids {
		tmpl := c.templates[id]
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
		kinds := make([]string, len(tmpl.Components))
		for i, comp := range tmpl.Components {
			kinds[i] = comp.Kind
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{0xff})
	}
	return h.Sum64()
}

// Spawner turns archetype templates into live entities.
type Spawner struct {
	catalog *Catalog
	store   *store.Store
	layers  *layer.Registry
}

func NewSpawner(catalog *Catalog, st *store.Store, layers *layer.Registry) *Spawner {
	return &Spawner{catalog: catalog, store: st, layers: layers}
}

// Overrides maps component kind to a shallow field override set,
// applied only to recognized kinds already present on the template
// (or, for the player factory, on the standard player set).
type Overrides map[string]map[string]any

// Spawn instantiates archetypeID in layerID at pos, applying overrides,
// and returns the fresh entity id.
func (s *Spawner) Spawn(archetypeID, layerID string, pos spatial.Vec3, overrides Overrides) (string, error) {
	if archetypeID == PlayerArchetypeID {
		return s.spawnPlayer(layerID, pos, overrides)
	}
	tmpl, ok := s.catalog.Get(archetypeID)
	if !ok {
		return "", fmt.Errorf("archetype: unknown archetype %q", archetypeID)
	}
	id := freshID(archetypeID)
	components := make([]store.Component, 0, len(tmpl.Components))
	for _, c := range tmpl.Components {
		clone := c.Clone()
		switch clone.Kind {
		case store.KindMobility:
			clone.Fields["position"] = map[string]any{"x": pos.X, "y": pos.Y, "z": pos.Z}
		}
		if ov, ok := overrides[clone.Kind]; ok {
			clone = clone.Merge(ov)
		}
		components = append(components, clone)
	}
	if err := s.store.Create(id, components); err != nil {
		return "", err
	}
	s.layers.SetEntityLayer(id, layerID)
	return id, nil
}

func freshID(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), uuid.New().String()[:8])
}
