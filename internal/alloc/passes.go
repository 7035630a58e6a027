package alloc

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/patchlib/internal/library"
)

// slotPool tracks claimed slots.
type slotPool struct {
	used *roaring.Bitmap
}

func newPool() slotPool { return slotPool{used: roaring.New()} }

func (p slotPool) claimed(s library.Slot) bool { return p.used.Contains(uint32(s)) }

func (p slotPool) claim(s library.Slot) { p.used.Add(uint32(s)) }

// nextFrom returns the first free slot at or after start, wrapping to 0.
func (p slotPool) nextFrom(start library.Slot) library.Slot {
	for k := 0; k < library.SlotCount; k++ {
		s := library.Slot((int(start) + k) % library.SlotCount)
		if !p.claimed(s) {
			return s
		}
	}
	return library.NoSlot
}

// nextAtOrAbove returns the first free slot in [start, MaxSlot], or NoSlot.
func (p slotPool) nextAtOrAbove(start library.Slot) library.Slot {
	for s := start; s <= library.MaxSlot; s++ {
		if !p.claimed(s) {
			return s
		}
	}
	return library.NoSlot
}

// AutoIndex preserves source slots. Repeated sources after the first take the
// next free slot upward from their own source; unknown sources then take the
// lowest free slots. Batches larger than SlotCount that need resolution
// return DuplicatesMaximum (if any source repeats) or UnknownMaximum.
func AutoIndex(sources []library.Slot) ([]library.Slot, Alert) {
	dest := make([]library.Slot, len(sources))
	pool := newPool()
	var dups, unknowns []int
	for i, s := range sources {
		switch {
		case !s.Valid():
			unknowns = append(unknowns, i)
		case pool.claimed(s):
			dups = append(dups, i)
		default:
			pool.claim(s)
			dest[i] = s
		}
	}

	if len(dups) == 0 && len(unknowns) == 0 {
		return dest, AlertNone
	}
	if len(sources) > library.SlotCount {
		if len(dups) > 0 {
			return nil, AlertDuplicatesMaximum
		}
		return nil, AlertUnknownMaximum
	}

	for _, i := range dups {
		dest[i] = pool.nextFrom(sources[i])
		pool.claim(dest[i])
	}
	for _, i := range unknowns {
		dest[i] = pool.nextFrom(0)
		pool.claim(dest[i])
	}
	return dest, AlertNone
}

// Sources returns every candidate's source slot.
func Sources(cands []Candidate) []library.Slot {
	out := make([]library.Slot, len(cands))
	for i, c := range cands {
		out[i] = c.Source
	}
	return out
}

// Ordering returns candidate indices in the given order. Every ordering is
// stable with respect to insertion order.
func Ordering(cands []Candidate, order Order) []int {
	perm := make([]int, len(cands))
	for i := range perm {
		perm[i] = i
	}

	switch order {
	case OrderName:
		sort.SliceStable(perm, func(a, b int) bool {
			return cands[perm[a]].Name < cands[perm[b]].Name
		})
	case OrderCategory:
		sort.SliceStable(perm, func(a, b int) bool {
			return cands[perm[a]].Category < cands[perm[b]].Category
		})
	case OrderCategoryName:
		sort.SliceStable(perm, func(a, b int) bool {
			ca, cb := cands[perm[a]], cands[perm[b]]
			if ca.Category != cb.Category {
				return ca.Category < cb.Category
			}
			return ca.Name < cb.Name
		})
	case OrderTag:
		sort.SliceStable(perm, func(a, b int) bool {
			ta, tb := cands[perm[a]].FirstTag(), cands[perm[b]].FirstTag()
			if (ta == "") != (tb == "") {
				return tb == ""
			}
			return ta < tb
		})
	}
	return perm
}

// Sequential numbers candidates 0, 1, 2, ... in order. With reverse the
// first candidate in order receives the last number.
func Sequential(cands []Candidate, order Order, reverse bool) ([]library.Slot, Alert) {
	n := len(cands)
	if n > library.SlotCount {
		return nil, AlertUnknownMaximum
	}
	dest := make([]library.Slot, n)
	for k, i := range Ordering(cands, order) {
		if reverse {
			dest[i] = library.Slot(n - 1 - k)
		} else {
			dest[i] = library.Slot(k)
		}
	}
	return dest, AlertNone
}

// GroupBy selects the grouping key for Distribute.
type GroupBy int

const (
	GroupCategory GroupBy = iota
	GroupTag
)

// Groups partitions candidates. Category groups follow category id order;
// tag groups follow tag order with untagged candidates last. Empty groups are
// omitted and members keep insertion order.
func Groups(cands []Candidate, by GroupBy) [][]int {
	switch by {
	case GroupTag:
		byTag := map[string][]int{}
		var untagged []int
		for i, c := range cands {
			if t := c.FirstTag(); t != "" {
				byTag[t] = append(byTag[t], i)
			} else {
				untagged = append(untagged, i)
			}
		}
		tags := make([]string, 0, len(byTag))
		for t := range byTag {
			tags = append(tags, t)
		}
		sort.Strings(tags)
		groups := make([][]int, 0, len(tags)+1)
		for _, t := range tags {
			groups = append(groups, byTag[t])
		}
		if len(untagged) > 0 {
			groups = append(groups, untagged)
		}
		return groups
	default:
		var byCat [library.CategoryCount][]int
		var invalid []int
		for i, c := range cands {
			if c.Category.Valid() {
				byCat[c.Category] = append(byCat[c.Category], i)
			} else {
				invalid = append(invalid, i)
			}
		}
		groups := [][]int{}
		for _, g := range byCat {
			if len(g) > 0 {
				groups = append(groups, g)
			}
		}
		if len(invalid) > 0 {
			groups = append(groups, invalid)
		}
		return groups
	}
}

// Distribute packs groups into banks. When every group fits its own bank,
// group g fills bank g from program 0. Otherwise groups are packed in order:
// a group goes whole into the first bank with room for it, or is split across
// banks with room, in bank order.
//
// Within a group candidates keep insertion order, or name order for the
// name-based orders; reverse inverts each group.
func Distribute(cands []Candidate, by GroupBy, order Order, reverse bool) ([]library.Slot, Alert) {
	if len(cands) > library.SlotCount {
		return nil, AlertUnknownMaximum
	}

	groups := Groups(cands, by)
	for _, g := range groups {
		if order == OrderName || order == OrderCategoryName {
			sort.SliceStable(g, func(a, b int) bool { return cands[g[a]].Name < cands[g[b]].Name })
		}
		if reverse {
			for l, r := 0, len(g)-1; l < r; l, r = l+1, r-1 {
				g[l], g[r] = g[r], g[l]
			}
		}
	}

	dest := make([]library.Slot, len(cands))
	if oneGroupPerBank(groups) {
		for bank, g := range groups {
			for pos, i := range g {
				dest[i] = library.SlotOf(bank, pos)
			}
		}
		return dest, AlertNone
	}

	var fill [library.BankCount]int
	for i := range dest {
		dest[i] = library.NoSlot
	}
	omitted := false
	for _, g := range groups {
		if bank := firstBankWithRoom(fill, len(g)); bank >= 0 {
			for _, i := range g {
				dest[i] = library.SlotOf(bank, fill[bank])
				fill[bank]++
			}
			continue
		}
		rest := g
		for bank := 0; bank < library.BankCount && len(rest) > 0; bank++ {
			for fill[bank] < library.ProgramsPerBank && len(rest) > 0 {
				dest[rest[0]] = library.SlotOf(bank, fill[bank])
				fill[bank]++
				rest = rest[1:]
			}
		}
		if len(rest) > 0 {
			omitted = true
		}
	}
	if omitted {
		return nil, AlertUnknownMaximum
	}
	return dest, AlertNone
}

func oneGroupPerBank(groups [][]int) bool {
	if len(groups) > library.BankCount {
		return false
	}
	for _, g := range groups {
		if len(g) > library.ProgramsPerBank {
			return false
		}
	}
	return true
}

func firstBankWithRoom(fill [library.BankCount]int, need int) int {
	for bank, used := range fill {
		if library.ProgramsPerBank-used >= need {
			return bank
		}
	}
	return -1
}

// FixIndexes renumbers colliding destinations. The first occupant of a slot
// keeps it; later occupants move to the next free slot at or above their
// request. Anything pushed past MaxSlot, and any invalid destination, fills
// the lowest free slots. More than SlotCount destinations return
// DuplicatesMaximum.
func FixIndexes(dest []library.Slot) ([]library.Slot, Alert) {
	if len(dest) > library.SlotCount {
		return nil, AlertDuplicatesMaximum
	}

	out := make([]library.Slot, len(dest))
	copy(out, dest)
	pool := newPool()
	first := make([]bool, len(dest))
	for i, d := range dest {
		if d.Valid() && !pool.claimed(d) {
			pool.claim(d)
			first[i] = true
		}
	}

	var overflow []int
	for i, d := range dest {
		if first[i] {
			continue
		}
		if !d.Valid() {
			overflow = append(overflow, i)
			continue
		}
		s := pool.nextAtOrAbove(d)
		if s == library.NoSlot {
			overflow = append(overflow, i)
			continue
		}
		pool.claim(s)
		out[i] = s
	}
	for _, i := range overflow {
		out[i] = pool.nextFrom(0)
		pool.claim(out[i])
	}
	return out, AlertNone
}

// Assign runs the pass selected by opts.
func Assign(cands []Candidate, opts Options) ([]library.Slot, Alert) {
	switch opts.Mode {
	case ModeSequential:
		return Sequential(cands, opts.Order, opts.Reverse)
	case ModeDistributeCategory:
		return Distribute(cands, GroupCategory, opts.Order, opts.Reverse)
	case ModeDistributeTag:
		return Distribute(cands, GroupTag, opts.Order, opts.Reverse)
	default:
		return AutoIndex(Sources(cands))
	}
}

// Conflicts returns the positions whose destination is out of range or
// shared with an earlier position.
func Conflicts(dest []library.Slot) []int {
	seen := roaring.New()
	out := []int{}
	for i, d := range dest {
		if !d.Valid() || seen.Contains(uint32(d)) {
			out = append(out, i)
			continue
		}
		seen.Add(uint32(d))
	}
	return out
}
