// Package durability implements the damage/heal/repair/destroy
// lifecycle: it keeps every identity-bearing entity's health in range,
// destroys entities whose health reaches zero, and retains a bounded
// event log per kind for query and audit.
package durability

import (
	"voxelrealm/internal/store"
)

const (
	defaultHealth = 1.0
	maxArmorCut   = 0.75
	armorPerPoint = 0.01
	eventCap      = 100
)

// EventKind names the three event log kinds.
type EventKind string

const (
	EventDamage  EventKind = "damage"
	EventHeal    EventKind = "heal"
	EventDestroy EventKind = "destroy"
)

// Event is one entry in the retained log.
type Event struct {
	Kind     EventKind
	EntityID string
	Amount   float64
	Source   string
	Seq      uint64
}

// DestroyHook fires while the destroyed entity's components are still
// present, before Remove is called.
type DestroyHook func(entityID string)

// System owns the health lifecycle for every entity carrying identity.
type System struct {
	store *store.Store

	log map[EventKind][]Event
	seq uint64

	onDestroy []DestroyHook
}

func NewSystem(st *store.Store) *System {
	return &System{
		store: st,
		log:   map[EventKind][]Event{EventDamage: nil, EventHeal: nil, EventDestroy: nil},
	}
}

func (s *System) OnDestroy(h DestroyHook) { s.onDestroy = append(s.onDestroy, h) }

// EnsureDefaults gives every identity-bearing entity that doesn't
// already carry a durability component a default {health=1,
// maxHealth=1}. It runs once per tick rather than synchronously on
// identity add so it never races the rest of an entity's initial
// component set being assembled in the same operation.
func (s *System) EnsureDefaults() {
	for _, id := range s.store.ListWith(store.KindIdentity) {
		if s.store.Get(id, store.KindDurability) != nil {
			continue
		}
		_ = s.store.Add(id, store.Component{Kind: store.KindDurability, Fields: map[string]any{
			"health":    defaultHealth,
			"maxHealth": defaultHealth,
		}})
	}
}

func health(c *store.Component) (h, max float64, armor float64, ok bool) {
	if c == nil {
		return 0, 0, 0, false
	}
	h, hok := c.Float("health")
	m, mok := c.Float("maxHealth")
	if !hok || !mok {
		return 0, 0, 0, false
	}
	a, _ := c.Float("armor")
	return h, m, a, true
}

// Damage applies amount, reduced by armor mitigation capped at 75%. It
// reports false if the mitigated amount is not strictly positive, in
// which case no state changes and nothing is logged.
func (s *System) Damage(entityID string, amount float64, source string) bool {
	c := s.store.Get(entityID, store.KindDurability)
	h, max, armor, ok := health(c)
	if !ok {
		return false
	}
	mitigation := armor * armorPerPoint
	if mitigation > maxArmorCut {
		mitigation = maxArmorCut
	}
	actual := amount * (1 - mitigation)
	if actual <= 0 {
		return false
	}
	newHealth := h - actual
	if newHealth < 0 {
		newHealth = 0
	}
	s.writeHealth(entityID, newHealth, max, armor)
	s.record(EventDamage, entityID, actual, source)
	if newHealth == 0 {
		s.destroy(entityID)
	}
	return true
}

// Heal restores gain, capped at maxHealth. It requires strictly
// positive gain.
func (s *System) Heal(entityID string, gain float64, source string) bool {
	if gain <= 0 {
		return false
	}
	c := s.store.Get(entityID, store.KindDurability)
	h, max, armor, ok := health(c)
	if !ok {
		return false
	}
	newHealth := h + gain
	if newHealth > max {
		newHealth = max
	}
	s.writeHealth(entityID, newHealth, max, armor)
	s.record(EventHeal, entityID, newHealth-h, source)
	return true
}

// Repair heals the entity to full health unconditionally.
func (s *System) Repair(entityID string, source string) bool {
	c := s.store.Get(entityID, store.KindDurability)
	h, max, armor, ok := health(c)
	if !ok {
		return false
	}
	if max > h {
		s.record(EventHeal, entityID, max-h, source)
	}
	s.writeHealth(entityID, max, max, armor)
	return true
}

func (s *System) writeHealth(entityID string, h, max, armor float64) {
	fields := map[string]any{"health": h, "maxHealth": max}
	if armor > 0 {
		fields["armor"] = armor
	}
	_ = s.store.Add(entityID, store.Component{Kind: store.KindDurability, Fields: fields})
}

func (s *System) destroy(entityID string) {
	for _, h := range s.onDestroy {
		h(entityID)
	}
	s.record(EventDestroy, entityID, 0, "")
	s.store.Remove(entityID)
}

func (s *System) record(kind EventKind, entityID string, amount float64, source string) {
	s.seq++
	ev := Event{Kind: kind, EntityID: entityID, Amount: amount, Source: source, Seq: s.seq}
	log := append(s.log[kind], ev)
	if len(log) > eventCap {
		log = log[len(log)-eventCap:]
	}
	s.log[kind] = log
}

// Events returns the retained log entries for kind, most recent last,
// optionally filtered to a single entity.
func (s *System) Events(kind EventKind, entityID string) []Event {
	all := s.log[kind]
	if entityID == "" {
		out := make([]Event, len(all))
		copy(out, all)
		return out
	}
	var out []Event
	for _, ev := range all {
		if ev.EntityID == entityID {
			out = append(out, ev)
		}
	}
	return out
}

// Tick runs the per-tick durability pass: default-durability
// assignment followed by the zero-health sweep.
func (s *System) Tick() {
	s.EnsureDefaults()
	s.Sweep()
}

// Sweep destroys any entity whose durability health is at or below
// zero but that is still present, catching writes made outside Damage
// (e.g. an admin edit or an archetype override).
func (s *System) Sweep() int {
	destroyed := 0
	for _, id := range s.store.ListWith(store.KindDurability) {
		c := s.store.Get(id, store.KindDurability)
		h, _, _, ok := health(c)
		if !ok || h > 0 {
			continue
		}
		s.destroy(id)
		destroyed++
	}
	return destroyed
}
