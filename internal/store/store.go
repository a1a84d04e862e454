package store

import (
	"sort"
	"sync/atomic"

	"voxelrealm/internal/schema"
)

// EntityAddHook fires after an entity is created.
type EntityAddHook func(id string)

// EntityRemoveHook fires after the entity's components were removed
// and the entity itself was dropped from the store.
type EntityRemoveHook func(id string)

// ComponentHook fires after a component of the registered kind is
// added or removed.
type ComponentHook func(id string, c Component)

// Store owns entity -> component-set and the inverted kind -> entity
// index. It is not internally synchronized: per the concurrency model
// all mutation is serialized by a single owning executor
// (internal/worldproc), and external readers go through a posted
// operation that copies out.
type Store struct {
	registry *schema.Registry

	// entities[id][kind] holds the ordered (oldest-first) records of
	// that kind currently on the entity.
	entities map[string]map[string][]*Record
	// index[kind] holds every entity id that owns at least one record
	// of that kind.
	index map[string]map[string]struct{}

	seq atomic.Uint64

	onEntityAdd    []EntityAddHook
	onEntityRemove []EntityRemoveHook
	onCompAdd      map[string][]ComponentHook
	onCompRemove   map[string][]ComponentHook

	// Reentrancy guard: active[id] > 0 means
	// a mutation is already in progress for that entity somewhere up
	// the call stack (almost always inside one of its own hooks).
	// Nested mutations targeting the same entity are queued instead of
	// executed inline.
	active   map[string]int
	deferred []func()
}

func New(registry *schema.Registry) *Store {
	return &Store{
		registry:     registry,
		entities:     map[string]map[string][]*Record{},
		index:        map[string]map[string]struct{}{},
		onCompAdd:    map[string][]ComponentHook{},
		onCompRemove: map[string][]ComponentHook{},
		active:       map[string]int{},
	}
}

func (s *Store) OnEntityAdd(h EntityAddHook)       { s.onEntityAdd = append(s.onEntityAdd, h) }
func (s *Store) OnEntityRemove(h EntityRemoveHook) { s.onEntityRemove = append(s.onEntityRemove, h) }
func (s *Store) OnComponentAdd(kind string, h ComponentHook) {
	s.onCompAdd[kind] = append(s.onCompAdd[kind], h)
}
func (s *Store) OnComponentRemove(kind string, h ComponentHook) {
	s.onCompRemove[kind] = append(s.onCompRemove[kind], h)
}

// beginOp reports whether this call is the outermost mutation in
// progress for id (and thus responsible for draining the deferred
// queue when it finishes), or whether the mutation should instead be
// queued because id is already being mutated further up the stack.
func (s *Store) beginOp(id string) (owns bool, reentrant bool) {
	if s.active[id] > 0 {
		return false, true
	}
	s.active[id]++
	return true, false
}

func (s *Store) endOp(id string, owns bool) {
	if !owns {
		return
	}
	s.active[id]--
	for len(s.deferred) > 0 {
		op := s.deferred[0]
		s.deferred = s.deferred[1:]
		op()
	}
}

func (s *Store) defer_(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// Exists reports whether id has been created and not yet removed.
func (s *Store) Exists(id string) bool {
	_, ok := s.entities[id]
	return ok
}

// Create makes a new entity with an initial component set. Each
// component is validated and indexed the same way Add would.
func (s *Store) Create(id string, components []Component) error {
	if s.Exists(id) {
		return &AlreadyExistsError{EntityID: id}
	}
	s.entities[id] = map[string][]*Record{}
	owns, reentrant := s.beginOp(id)
	if reentrant {
		// Creation can never be reentrant (the entity did not exist a
		// moment ago), but guard defensively for symmetry.
		s.defer_(func() { _ = s.Create(id, components) })
		return nil
	}
	defer s.endOp(id, owns)

	for _, c := range components {
		if err := s.addLocked(id, c); err != nil {
			delete(s.entities, id)
			s.removeFromAllIndexes(id)
			return err
		}
	}
	for _, h := range s.onEntityAdd {
		h(id)
	}
	return nil
}

// Add inserts a component onto an existing entity, applying the
// cardinality resolution: if the entity is already at the
// kind's limit, the oldest record of that kind is evicted (firing its
// remove hook) before the new one is added.
func (s *Store) Add(id string, c Component) error {
	if !s.Exists(id) {
		return &UnknownEntityError{EntityID: id}
	}
	owns, reentrant := s.beginOp(id)
	if reentrant {
		s.defer_(func() { _ = s.Add(id, c) })
		return nil
	}
	defer s.endOp(id, owns)
	return s.addLocked(id, c)
}

func (s *Store) addLocked(id string, c Component) error {
	if !s.registry.Known(c.Kind) {
		return &UnknownKindError{Kind: c.Kind}
	}
	if err := s.registry.Validate(c.Kind, c.Fields); err != nil {
		if ve, ok := err.(*schema.ValidationError); ok {
			return &InvalidComponentError{Kind: ve.Kind, Field: ve.Field, Msg: ve.Msg}
		}
		return &InvalidComponentError{Kind: c.Kind, Msg: err.Error()}
	}

	max := s.registry.MaxFor(s.contractLimitFields(id), c.Kind)
	byKind := s.entities[id]
	existing := byKind[c.Kind]
	for max > 0 && len(existing) >= max {
		oldest := existing[0]
		existing = existing[1:]
		byKind[c.Kind] = existing
		for _, h := range s.onCompRemove[c.Kind] {
			h(id, oldest.Component)
		}
	}
	if max == 0 || len(existing) < maxOrUnbounded(max) {
		rec := &Record{Component: c.Clone(), Seq: s.seq.Add(1)}
		existing = append(existing, rec)
		byKind[c.Kind] = existing
		s.indexOf(c.Kind)[id] = struct{}{}
		for _, h := range s.onCompAdd[c.Kind] {
			h(id, rec.Component)
		}
		return nil
	}
	if len(existing) == 0 {
		delete(byKind, c.Kind)
		delete(s.indexOf(c.Kind), id)
	}
	return &LimitExceededError{Kind: c.Kind, Max: max}
}

func maxOrUnbounded(max int) int {
	if max <= 0 {
		return 1<<31 - 1
	}
	return max
}

func (s *Store) contractLimitFields(id string) map[string]any {
	recs := s.entities[id][KindContractLimit]
	if len(recs) == 0 {
		return nil
	}
	return recs[len(recs)-1].Fields
}

func (s *Store) indexOf(kind string) map[string]struct{} {
	m, ok := s.index[kind]
	if !ok {
		m = map[string]struct{}{}
		s.index[kind] = m
	}
	return m
}

func (s *Store) removeFromAllIndexes(id string) {
	for _, m := range s.index {
		delete(m, id)
	}
}

// RemoveComponent removes every record of kind from id. It reports
// whether anything was removed.
func (s *Store) RemoveComponent(id, kind string) bool {
	if !s.Exists(id) {
		return false
	}
	owns, reentrant := s.beginOp(id)
	if reentrant {
		s.defer_(func() { s.RemoveComponent(id, kind) })
		return true
	}
	defer s.endOp(id, owns)
	return s.removeComponentLocked(id, kind)
}

func (s *Store) removeComponentLocked(id, kind string) bool {
	recs := s.entities[id][kind]
	if len(recs) == 0 {
		return false
	}
	delete(s.entities[id], kind)
	delete(s.indexOf(kind), id)
	for _, rec := range recs {
		for _, h := range s.onCompRemove[kind] {
			h(id, rec.Component)
		}
	}
	return true
}

// Remove destroys an entity: every component is removed (firing its
// remove hook, in unspecified order across kinds) and then the
// entity-remove hook fires. Observers see the entity present during
// component-remove hooks and absent once Remove returns.
func (s *Store) Remove(id string) bool {
	if !s.Exists(id) {
		return false
	}
	owns, reentrant := s.beginOp(id)
	if reentrant {
		s.defer_(func() { s.Remove(id) })
		return true
	}
	defer s.endOp(id, owns)

	kinds := make([]string, 0, len(s.entities[id]))
	for k := range s.entities[id] {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds) // removal order across kinds is otherwise unspecified
	for _, k := range kinds {
		s.removeComponentLocked(id, k)
	}
	delete(s.entities, id)
	for _, h := range s.onEntityRemove {
		h(id)
	}
	return true
}

// Get returns the most recently added record of kind on id, or nil if
// absent. For cardinality-1 kinds this is the only record.
func (s *Store) Get(id, kind string) *Component {
	recs := s.entities[id][kind]
	if len(recs) == 0 {
		return nil
	}
	c := recs[len(recs)-1].Component
	return &c
}

// GetAll returns every record of kind on id, oldest first (used for
// multi-cardinality kinds such as portable).
func (s *Store) GetAll(id, kind string) []Component {
	recs := s.entities[id][kind]
	out := make([]Component, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Component)
	}
	return out
}

// Kinds returns every kind currently present on id.
func (s *Store) Kinds(id string) []string {
	byKind, ok := s.entities[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(byKind))
	for k := range byKind {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns every component currently present on id, in
// deterministic kind order (oldest-first within a kind).
func (s *Store) All(id string) []Component {
	var out []Component
	for _, k := range s.Kinds(id) {
		out = append(out, s.GetAll(id, k)...)
	}
	return out
}

// AllEntities returns every entity id currently known to the store, in
// deterministic order. Used by the persistence layer to walk the full
// entity set for a save.
func (s *Store) AllEntities() []string {
	out := make([]string, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListWith returns every entity id owning at least one record of kind.
func (s *Store) ListWith(kind string) []string {
	m := s.index[kind]
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListWithAll returns the intersection of ListWith across kinds.
func (s *Store) ListWithAll(kinds []string) []string {
	if len(kinds) == 0 {
		return nil
	}
	sets := make([]map[string]struct{}, len(kinds))
	for i, k := range kinds {
		sets[i] = s.index[k]
	}
	var out []string
	for id := range sets[0] {
		in := true
		for _, s2 := range sets[1:] {
			if _, ok := s2[id]; !ok {
				in = false
				break
			}
		}
		if in {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ListWithAny returns the union of ListWith across kinds.
func (s *Store) ListWithAny(kinds []string) []string {
	seen := map[string]struct{}{}
	for _, k := range kinds {
		for id := range s.index[k] {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
