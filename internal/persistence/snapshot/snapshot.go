// Package snapshot implements save/load of the full simulation state:
// every entity's components, every layer, and the archetype catalog,
// as a versioned JSON document compressed with zstd. The header is a
// field of that one document, and the whole document is compressed;
// JSON is used instead of gob so a snapshot can be inspected by hand
// after decompression.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// CurrentVersion is written into every new snapshot's header and
// checked on load.
const CurrentVersion = 1

type Header struct {
	Version  int    `json:"version"`
	ServerID string `json:"serverId"`
}

// EntityV1 is one entity's full component set as it existed at save
// time. Layer membership is captured separately in LayerMembershipV1
// since the layer registry, not the store, owns it.
type EntityV1 struct {
	ID         string            `json:"id"`
	Components []store.Component `json:"components"`
}

type LayerV1 struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ChunkSize  float64         `json:"chunkSize"`
	Gravity    float64         `json:"gravity"`
	Spawn      spatial.Vec3    `json:"spawn"`
	Bounds     *spatial.Box    `json:"bounds,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type ArchetypeV1 struct {
	ID         string            `json:"id"`
	Components []store.Component `json:"components"`
}

// LayerMembershipV1 records which layer an entity belongs to, since
// that association lives in the layer registry rather than as a
// component on the entity.
type LayerMembershipV1 struct {
	EntityID string `json:"entityId"`
	LayerID  string `json:"layerId"`
}

// DocumentV1 is the full state a save captures and a load restores.
type DocumentV1 struct {
	Header Header `json:"header"`

	Entities    []EntityV1          `json:"entities"`
	Layers      []LayerV1           `json:"layers"`
	Archetypes  []ArchetypeV1       `json:"archetypes"`
	Memberships []LayerMembershipV1 `json:"memberships"`
}

// Capture builds a DocumentV1 from the live store, layer registry, and
// archetype catalog. The caller must hold whatever serialization the
// concurrency model requires (in practice, this runs inside a
// worldproc.Process.Query closure).
func Capture(serverID string, st *store.Store, layers *layer.Registry, catalog *archetype.Catalog) DocumentV1 {
	doc := DocumentV1{Header: Header{Version: CurrentVersion, ServerID: serverID}}

	for _, id := range st.AllEntities() {
		doc.Entities = append(doc.Entities, EntityV1{ID: id, Components: st.All(id)})
		if layerID, ok := layers.EntityLayer(id); ok {
			doc.Memberships = append(doc.Memberships, LayerMembershipV1{EntityID: id, LayerID: layerID})
		}
	}

	for _, l := range layers.List() {
		doc.Layers = append(doc.Layers, LayerV1{
			ID:         l.ID,
			Name:       l.Name,
			ChunkSize:  l.ChunkSize,
			Gravity:    l.Gravity,
			Spawn:      l.Spawn,
			Bounds:     l.Bounds,
			Properties: l.Properties,
		})
	}

	for _, a := range catalog.List() {
		doc.Archetypes = append(doc.Archetypes, ArchetypeV1{ID: a.ID, Components: a.Components})
	}

	return doc
}

// Restore replays a DocumentV1 into a freshly constructed store, layer
// registry, and archetype catalog. Entity ids are preserved exactly as
// captured.
func Restore(doc DocumentV1, st *store.Store, layers *layer.Registry, catalog *archetype.Catalog) error {
	for _, l := range doc.Layers {
		if l.ID == layer.DefaultLayerID {
			continue // the registry seeds this one; skip re-creating it
		}
		if err := layers.Create(&layer.Layer{
			ID:         l.ID,
			Name:       l.Name,
			ChunkSize:  l.ChunkSize,
			Gravity:    l.Gravity,
			Spawn:      l.Spawn,
			Bounds:     l.Bounds,
			Properties: l.Properties,
		}); err != nil {
			return fmt.Errorf("restore layer %s: %w", l.ID, err)
		}
	}

	for _, a := range doc.Archetypes {
		catalog.Define(archetype.Archetype{ID: a.ID, Components: a.Components})
	}

	for _, e := range doc.Entities {
		if err := st.Create(e.ID, e.Components); err != nil {
			return fmt.Errorf("restore entity %s: %w", e.ID, err)
		}
	}

	for _, m := range doc.Memberships {
		layers.SetEntityLayer(m.EntityID, m.LayerID)
	}

	return nil
}

// Save writes doc to path as a zstd-compressed JSON document.
func Save(path string, doc DocumentV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads and decompresses the document at path.
func Load(path string) (DocumentV1, error) {
	var doc DocumentV1
	f, err := os.Open(path)
	if err != nil {
		return doc, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return doc, err
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Header.Version != CurrentVersion {
		return doc, fmt.Errorf("unsupported snapshot version %d", doc.Header.Version)
	}
	return doc, nil
}

// LatestPath returns the most recently modified snapshot file in dir,
// or "" if none exist. Used at startup to auto-resume from the last
// save when no explicit path is given.
func LatestPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var best string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".zst" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > bestMod {
			bestMod = mt
			best = filepath.Join(dir, e.Name())
		}
	}
	return best, nil
}
