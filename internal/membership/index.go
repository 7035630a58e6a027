package membership

import (
	"fmt"
	"sort"

	"github.com/roach88/patchlib/internal/library"
)

// Location is one placement of a sound, resolved to its collection bit.
type Location struct {
	Collection library.CollectionID
	Bit        uint32
	Slot       library.Slot
}

// Index maps collections to bit positions and sounds to their placements.
type Index struct {
	order     []library.CollectionID
	names     []string
	kinds     []library.CollectionKind
	bits      map[library.CollectionID]uint32
	locations map[library.UID][]Location // sorted by Bit
	masks     map[library.UID]Mask
}

// Build indexes collections. Factory collections take the lowest bits in
// source order, user collections follow in source order.
//
// Collections that violate the slot invariant are rejected.
func Build(collections []library.Collection) (*Index, error) {
	ordered := make([]library.Collection, len(collections))
	copy(ordered, collections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind == library.KindFactory && ordered[j].Kind != library.KindFactory
	})

	idx := &Index{
		order:     make([]library.CollectionID, 0, len(ordered)),
		names:     make([]string, 0, len(ordered)),
		kinds:     make([]library.CollectionKind, 0, len(ordered)),
		bits:      make(map[library.CollectionID]uint32, len(ordered)),
		locations: make(map[library.UID][]Location),
		masks:     make(map[library.UID]Mask),
	}

	for _, c := range ordered {
		if _, dup := idx.bits[c.ID]; dup {
			return nil, fmt.Errorf("build membership: duplicate collection id %d", c.ID)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("build membership: %w", err)
		}
		bit := uint32(len(idx.order))
		idx.bits[c.ID] = bit
		idx.order = append(idx.order, c.ID)
		idx.names = append(idx.names, c.Name)
		idx.kinds = append(idx.kinds, c.Kind)

		for _, p := range c.Slots {
			idx.locations[p.UID] = append(idx.locations[p.UID], Location{Collection: c.ID, Bit: bit, Slot: p.Slot})
		}
	}

	for uid := range idx.locations {
		idx.masks[uid] = idx.Rederive(uid)
	}
	return idx, nil
}

// Len returns the number of indexed collections.
func (x *Index) Len() int {
	return len(x.order)
}

// Collections returns collection ids in bit order.
func (x *Index) Collections() []library.CollectionID {
	out := make([]library.CollectionID, len(x.order))
	copy(out, x.order)
	return out
}

// BitFor returns the bit assigned to a collection.
// ok is false for an unknown collection.
func (x *Index) BitFor(id library.CollectionID) (bit uint32, ok bool) {
	bit, ok = x.bits[id]
	return bit, ok
}

// MustBitFor is BitFor for callers that only hold ids obtained from this
// Index. It panics on an unknown collection.
func (x *Index) MustBitFor(id library.CollectionID) uint32 {
	bit, ok := x.bits[id]
	if !ok {
		panic(fmt.Sprintf("membership: no bit for unregistered collection %d", id))
	}
	return bit
}

// CollectionAt returns the collection holding bit.
func (x *Index) CollectionAt(bit uint32) (library.CollectionID, bool) {
	if int(bit) >= len(x.order) {
		return 0, false
	}
	return x.order[bit], true
}

// Name returns the name of a collection.
func (x *Index) Name(id library.CollectionID) (string, bool) {
	bit, ok := x.bits[id]
	if !ok {
		return "", false
	}
	return x.names[bit], true
}

// Kind returns the kind of a collection.
func (x *Index) Kind(id library.CollectionID) (library.CollectionKind, bool) {
	bit, ok := x.bits[id]
	if !ok {
		return 0, false
	}
	return x.kinds[bit], true
}

// SlotFor returns the slot a sound occupies in a collection.
func (x *Index) SlotFor(uid library.UID, id library.CollectionID) (library.Slot, bool) {
	bit, ok := x.bits[id]
	if !ok {
		return library.NoSlot, false
	}
	return x.Locate(uid, bit)
}

// Locate resolves a bit of a sound's mask back to its slot.
func (x *Index) Locate(uid library.UID, bit uint32) (library.Slot, bool) {
	locs := x.locations[uid]
	i := sort.Search(len(locs), func(i int) bool { return locs[i].Bit >= bit })
	if i < len(locs) && locs[i].Bit == bit {
		return locs[i].Slot, true
	}
	return library.NoSlot, false
}

// Locations returns every placement of a sound in bit order.
func (x *Index) Locations(uid library.UID) []Location {
	locs := x.locations[uid]
	out := make([]Location, len(locs))
	copy(out, locs)
	return out
}

// MaskFor returns a sound's membership mask. Unknown sounds have no membership.
func (x *Index) MaskFor(uid library.UID) Mask {
	return x.masks[uid]
}

// Rederive rebuilds a sound's mask from its placements.
func (x *Index) Rederive(uid library.UID) Mask {
	locs := x.locations[uid]
	bits := make([]uint32, len(locs))
	for i, l := range locs {
		bits[i] = l.Bit
	}
	return NewMask(bits...)
}

// MaskOf returns the mask selecting the given collections.
// Unknown ids contribute no bit.
func (x *Index) MaskOf(ids ...library.CollectionID) Mask {
	bits := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if bit, ok := x.bits[id]; ok {
			bits = append(bits, bit)
		}
	}
	return NewMask(bits...)
}
