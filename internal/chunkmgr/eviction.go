package chunkmgr

import (
	"sort"
	"time"

	"voxelrealm/internal/spatial"
)

// EvictionConfig holds the caps and delays governing the periodic
// chunk unload/retire sweep.
type EvictionConfig struct {
	MaxLoadedChunks   int
	MaxRetainedChunks int
	UnloadDelay       time.Duration
}

func DefaultEvictionConfig() EvictionConfig {
	return EvictionConfig{
		MaxLoadedChunks:   1000,
		MaxRetainedChunks: 20000,
		UnloadDelay:       60 * time.Second,
	}
}

// SweepResult reports what a Sweep call did, for logging/metrics.
type SweepResult struct {
	Unloaded         int
	Retired          int
	PrunedSubscribers int
}

// Sweep runs the periodic eviction task, called from the
// single-threaded executor's timer, not from a separate goroutine.
func (m *Manager) Sweep(cfg EvictionConfig) SweepResult {
	var res SweepResult
	res.PrunedSubscribers = m.pruneClosedSessions()

	loaded := m.loadedKeys()
	if len(loaded) > cfg.MaxLoadedChunks {
		sort.Slice(loaded, func(i, j int) bool {
			return m.chunks[loaded[i]].LastAccessed.Before(m.chunks[loaded[j]].LastAccessed)
		})
		toUnload := len(loaded) - cfg.MaxLoadedChunks + 100
		if toUnload > len(loaded) {
			toUnload = len(loaded)
		}
		for _, k := range loaded[:toUnload] {
			m.Unload(k)
			res.Unloaded++
		}
	}

	if len(m.chunks) > cfg.MaxRetainedChunks {
		cutoff := now().Add(-2 * cfg.UnloadDelay)
		for k, c := range m.chunks {
			if c.Loaded || len(c.Members) > 0 || len(c.Subscribers) > 0 {
				continue
			}
			if c.LastAccessed.After(cutoff) {
				continue
			}
			delete(m.chunks, k)
			delete(m.generated, k)
			res.Retired++
		}
	}
	return res
}

func (m *Manager) loadedKeys() []spatial.Key {
	var out []spatial.Key
	for k, c := range m.chunks {
		if c.Loaded {
			out = append(out, k)
		}
	}
	return out
}

func (m *Manager) pruneClosedSessions() int {
	pruned := 0
	for _, c := range m.chunks {
		for id, sub := range c.Subscribers {
			if !sub.IsAlive() {
				delete(c.Subscribers, id)
				pruned++
			}
		}
	}
	return pruned
}
