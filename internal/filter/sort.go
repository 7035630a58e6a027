package filter

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/view"
)

// SortMode orders final rows for presentation.
type SortMode int

const (
	// SortBase keeps view order (sound uid order).
	SortBase SortMode = iota
	// SortSlot orders by slot within a collection. Rows absent from the
	// collection follow in base order.
	SortSlot
	// SortName orders by trimmed name, ordinal, ties by base order.
	SortName
	// SortCategory orders by category, then name, then base order.
	SortCategory
)

func (m SortMode) String() string {
	switch m {
	case SortBase:
		return "base"
	case SortSlot:
		return "slot"
	case SortName:
		return "name"
	case SortCategory:
		return "category"
	default:
		return fmt.Sprintf("SortMode(%d)", int(m))
	}
}

// ParseSortMode resolves a mode by name.
func ParseSortMode(s string) (SortMode, error) {
	for _, m := range []SortMode{SortBase, SortSlot, SortName, SortCategory} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown sort mode %q", s)
}

type sortKey struct {
	collection library.CollectionID
	mode       SortMode
}

// sortCacheSize bounds the number of cached orderings.
const sortCacheSize = 32

// sortCache holds full-library orderings of base positions keyed by
// (collection, mode). Filtering a cached order is linear; sorting is not.
type sortCache struct {
	orders *lru.Cache[sortKey, []uint32]
	hits   uint64
	misses uint64
}

func newSortCache() *sortCache {
	orders, err := lru.New[sortKey, []uint32](sortCacheSize)
	if err != nil {
		panic(fmt.Sprintf("filter: sort cache: %v", err))
	}
	return &sortCache{orders: orders}
}

// reset drops every order. Called on structural change.
func (c *sortCache) reset() {
	c.orders.Purge()
}

// invalidateRowOrder drops orders that depend on row fields. Slot orders
// only depend on membership and survive row edits.
func (c *sortCache) invalidateRowOrder() {
	for _, k := range c.orders.Keys() {
		if k.mode != SortSlot {
			c.orders.Remove(k)
		}
	}
}

func (c *sortCache) order(snap *view.Snapshot, key sortKey) []uint32 {
	if o, ok := c.orders.Get(key); ok {
		c.hits++
		return o
	}
	c.misses++
	o := buildOrder(snap, key)
	c.orders.Add(key, o)
	return o
}

func buildOrder(snap *view.Snapshot, key sortKey) []uint32 {
	n := snap.Len()
	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}

	switch key.mode {
	case SortSlot:
		idx := snap.Index()
		slotOf := make([]library.Slot, n)
		for i := range slotOf {
			slot, ok := idx.SlotFor(snap.Row(i).UID, key.collection)
			if !ok {
				slot = library.NoSlot
			}
			slotOf[i] = slot
		}
		sort.SliceStable(order, func(a, b int) bool {
			sa, sb := slotOf[order[a]], slotOf[order[b]]
			if (sa == library.NoSlot) != (sb == library.NoSlot) {
				return sb == library.NoSlot
			}
			return sa < sb
		})
	case SortName:
		sort.SliceStable(order, func(a, b int) bool {
			return snap.Row(int(order[a])).DisplayName() < snap.Row(int(order[b])).DisplayName()
		})
	case SortCategory:
		sort.SliceStable(order, func(a, b int) bool {
			ra, rb := snap.Row(int(order[a])), snap.Row(int(order[b]))
			if ra.Category != rb.Category {
				return ra.Category < rb.Category
			}
			return ra.DisplayName() < rb.DisplayName()
		})
	}
	return order
}

// Sorted returns the final rows ordered by mode. collection is used by
// SortSlot only.
func (p *Pipeline) Sorted(collection library.CollectionID, mode SortMode) []view.Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync()

	final := p.finalRows()
	if mode == SortBase {
		out := make([]view.Row, len(final))
		for i, pos := range final {
			out[i] = p.snap.Row(int(pos))
		}
		return out
	}
	if mode != SortSlot {
		collection = 0
	}

	keep := roaring.New()
	keep.AddMany(final)

	order := p.sorts.order(p.snap, sortKey{collection: collection, mode: mode})
	out := make([]view.Row, 0, len(final))
	for _, pos := range order {
		if keep.Contains(pos) {
			out = append(out, p.snap.Row(int(pos)))
		}
	}
	return out
}

// InvalidateSortCache drops every cached ordering.
func (p *Pipeline) InvalidateSortCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sorts.reset()
}

// SortCacheStats returns cache hits and misses.
func (p *Pipeline) SortCacheStats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sorts.hits, p.sorts.misses
}
