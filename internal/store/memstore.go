package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/patchlib/internal/library"
)

// MemStore is an in-memory library.RecordSource with the same ordering and
// write semantics as Store.
type MemStore struct {
	mu          sync.RWMutex
	sounds      map[library.UID]library.Sound
	collections map[library.CollectionID]*memCollection
	nextUID     library.UID
	nextID      library.CollectionID
}

type memCollection struct {
	name     string
	kind     library.CollectionKind
	position int
	slots    map[library.Slot]library.UID
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sounds:      make(map[library.UID]library.Sound),
		collections: make(map[library.CollectionID]*memCollection),
		nextUID:     1,
		nextID:      1,
	}
}

// Sounds returns every sound ordered by uid.
func (m *MemStore) Sounds(ctx context.Context) ([]library.Sound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]library.Sound, 0, len(m.sounds))
	for _, s := range m.sounds {
		out = append(out, cloneSound(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Sound returns a single sound or library.ErrNotFound.
func (m *MemStore) Sound(ctx context.Context, uid library.UID) (library.Sound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sounds[uid]
	if !ok {
		return library.Sound{}, fmt.Errorf("sound %d: %w", uid, library.ErrNotFound)
	}
	return cloneSound(s), nil
}

// Collections returns every collection, factory first, then by position and id.
func (m *MemStore) Collections(ctx context.Context) ([]library.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]library.CollectionID, 0, len(m.collections))
	for id := range m.collections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.collections[ids[i]], m.collections[ids[j]]
		if a.kind != b.kind {
			return a.kind > b.kind
		}
		if a.position != b.position {
			return a.position < b.position
		}
		return ids[i] < ids[j]
	})

	out := make([]library.Collection, 0, len(ids))
	for _, id := range ids {
		c := m.collections[id]
		slots := make([]library.Placement, 0, len(c.slots))
		for slot, uid := range c.slots {
			slots = append(slots, library.Placement{Slot: slot, UID: uid})
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
		out = append(out, library.Collection{ID: id, Name: c.name, Kind: c.kind, Slots: slots})
	}
	return out, nil
}

// CollectionByName looks up a collection id by name.
func (m *MemStore) CollectionByName(ctx context.Context, name string) (library.CollectionID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, c := range m.collections {
		if c.name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("collection %q: %w", name, library.ErrNotFound)
}

// PutSound inserts or replaces a sound. A zero UID allocates one.
func (m *MemStore) PutSound(ctx context.Context, s library.Sound) (library.UID, error) {
	if !s.Category.Valid() {
		return 0, fmt.Errorf("put sound: invalid category %d", int(s.Category))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.UID == 0 {
		s.UID = m.nextUID
	}
	if s.UID >= m.nextUID {
		m.nextUID = s.UID + 1
	}
	s.Name = library.PadName(s.Name)
	s.Tags = library.NormalizeTags(s.Tags)
	m.sounds[s.UID] = s
	return s.UID, nil
}

// DeleteSound removes a sound and every placement of it.
func (m *MemStore) DeleteSound(ctx context.Context, uid library.UID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sounds[uid]; !ok {
		return fmt.Errorf("delete sound: %w", library.ErrNotFound)
	}
	delete(m.sounds, uid)
	for _, c := range m.collections {
		for slot, occupant := range c.slots {
			if occupant == uid {
				delete(c.slots, slot)
			}
		}
	}
	return nil
}

// RenameSound changes a sound's display name.
func (m *MemStore) RenameSound(ctx context.Context, uid library.UID, name string) error {
	return m.editSound("rename sound", uid, func(s *library.Sound) {
		s.Name = library.PadName(name)
	})
}

// SetCategory changes a sound's category.
func (m *MemStore) SetCategory(ctx context.Context, uid library.UID, c library.Category) error {
	if !c.Valid() {
		return fmt.Errorf("set category: invalid category %d", int(c))
	}
	return m.editSound("set category", uid, func(s *library.Sound) {
		s.Category = c
	})
}

// SetTags replaces a sound's tag set.
func (m *MemStore) SetTags(ctx context.Context, uid library.UID, tags []string) error {
	return m.editSound("set tags", uid, func(s *library.Sound) {
		s.Tags = library.NormalizeTags(tags)
	})
}

func (m *MemStore) editSound(op string, uid library.UID, fn func(*library.Sound)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[uid]
	if !ok {
		return fmt.Errorf("%s: %w", op, library.ErrNotFound)
	}
	fn(&s)
	m.sounds[uid] = s
	return nil
}

// CreateCollection adds a collection after every existing one of its kind.
func (m *MemStore) CreateCollection(ctx context.Context, name string, kind library.CollectionKind) (library.CollectionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	position := 0
	for _, c := range m.collections {
		if c.name == name {
			return 0, fmt.Errorf("create collection: name %q already exists", name)
		}
		if c.kind == kind && c.position >= position {
			position = c.position + 1
		}
	}

	id := m.nextID
	m.nextID++
	m.collections[id] = &memCollection{
		name:     name,
		kind:     kind,
		position: position,
		slots:    make(map[library.Slot]library.UID),
	}
	return id, nil
}

// RenameCollection renames a user collection.
func (m *MemStore) RenameCollection(ctx context.Context, id library.CollectionID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.writable(id)
	if err != nil {
		return fmt.Errorf("rename collection: %w", err)
	}
	for otherID, other := range m.collections {
		if otherID != id && other.name == name {
			return fmt.Errorf("rename collection: name %q already exists", name)
		}
	}
	c.name = name
	return nil
}

// DeleteCollection removes a user collection and its placements.
func (m *MemStore) DeleteCollection(ctx context.Context, id library.CollectionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.writable(id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	delete(m.collections, id)
	return nil
}

// Place puts a sound into a slot of any collection, replacing the occupant.
// A sound already at another slot of the collection is refused.
func (m *MemStore) Place(ctx context.Context, id library.CollectionID, slot library.Slot, uid library.UID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slot.Valid() {
		return fmt.Errorf("place: %w", &library.SlotRangeError{Collection: id, Slot: slot})
	}
	c, ok := m.collections[id]
	if !ok {
		return fmt.Errorf("place: collection %d: %w", id, library.ErrNotFound)
	}
	if _, ok := m.sounds[uid]; !ok {
		return fmt.Errorf("place: sound %d: %w", uid, library.ErrNotFound)
	}
	if prev, ok := c.slotOf(uid); ok && prev != slot {
		return fmt.Errorf("place: %w", &library.DuplicatePlacementError{
			Collection: id, UID: uid, First: prev, Second: slot,
		})
	}
	c.slots[slot] = uid
	return nil
}

// WriteExport stores a batch of placements into a user collection.
// Nothing is written unless the whole batch is valid. An exported sound
// already held by the collection moves to its new slot.
func (m *MemStore) WriteExport(ctx context.Context, id library.CollectionID, writes []library.ExportWrite) error {
	if err := validateWrites(id, writes); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.writable(id)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	for _, w := range writes {
		if _, ok := m.sounds[w.UID]; !ok {
			return fmt.Errorf("write export: sound %d: %w", w.UID, library.ErrNotFound)
		}
	}
	for _, w := range writes {
		if prev, ok := c.slotOf(w.UID); ok {
			delete(c.slots, prev)
		}
	}
	for _, w := range writes {
		c.slots[w.Slot] = w.UID
	}
	return nil
}

func (c *memCollection) slotOf(uid library.UID) (library.Slot, bool) {
	for slot, occupant := range c.slots {
		if occupant == uid {
			return slot, true
		}
	}
	return library.NoSlot, false
}

func (m *MemStore) writable(id library.CollectionID) (*memCollection, error) {
	c, ok := m.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %d: %w", id, library.ErrNotFound)
	}
	if c.kind == library.KindFactory {
		return nil, fmt.Errorf("collection %d: %w", id, library.ErrReadOnly)
	}
	return c, nil
}

func cloneSound(s library.Sound) library.Sound {
	s.Tags = append([]string{}, s.Tags...)
	return s
}
