package filter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/membership"
	"github.com/roach88/patchlib/internal/view"
)

// Kind identifies a stage's predicate.
type Kind int

const (
	KindName Kind = iota + 1
	KindCollection
	KindCategory
	KindTag
	KindBank
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindCollection:
		return "collection"
	case KindCategory:
		return "category"
	case KindTag:
		return "tag"
	case KindBank:
		return "bank"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind resolves a kind by its String name.
func ParseKind(s string) (Kind, error) {
	for k := KindName; k <= KindBank; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown stage kind %q", s)
}

// NoBank makes a bank stage accept every row.
const NoBank = -1

// Stage is a single predicate over view rows with a runtime-settable value.
//
// Only the fields of the stage's kind are used. Setting a value of another
// kind panics.
type Stage struct {
	kind Kind

	mu      sync.Mutex
	gen     uint64
	subs    []stageSub
	nextSub int

	// KindName
	name   string
	folded string

	// KindCollection
	collections []library.CollectionID

	// KindCategory
	categories  [library.CategoryCount]bool
	catSelected bool // non-empty selection, even if no category is defined

	// KindTag
	tags []string

	// KindBank
	bankCollection library.CollectionID
	bank           int
}

// NewNameStage returns a stage matching a case-insensitive name substring.
func NewNameStage() *Stage { return &Stage{kind: KindName} }

// NewCollectionStage returns a stage matching membership in any selected
// collection.
func NewCollectionStage() *Stage { return &Stage{kind: KindCollection} }

// NewCategoryStage returns a stage matching a set of categories.
func NewCategoryStage() *Stage { return &Stage{kind: KindCategory} }

// NewTagStage returns a stage requiring a set of tags.
func NewTagStage() *Stage { return &Stage{kind: KindTag} }

// NewBankStage returns a stage matching one bank of collection.
func NewBankStage(collection library.CollectionID) *Stage {
	return &Stage{kind: KindBank, bankCollection: collection, bank: NoBank}
}

// Kind returns the stage's predicate kind.
func (s *Stage) Kind() Kind { return s.kind }

// Generation increases every time the stage value changes.
func (s *Stage) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

type stageSub struct {
	id int
	fn func()
}

// OnChange registers fn to run after every value change. The returned
// function removes the registration.
func (s *Stage) OnChange(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, stageSub{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Stage) must(k Kind) {
	if s.kind != k {
		panic(fmt.Sprintf("filter: %s value set on %s stage", k, s.kind))
	}
}

// update applies fn under the lock, bumps the generation and notifies.
func (s *Stage) update(fn func()) {
	s.mu.Lock()
	fn()
	s.gen++
	fns := make([]func(), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SetName sets the substring. Padding is ignored; "" accepts everything.
func (s *Stage) SetName(substr string) {
	s.must(KindName)
	substr = library.TrimName(strings.TrimSpace(substr))
	s.update(func() {
		s.name = substr
		s.folded = cases.Fold().String(substr)
	})
}

// Name returns the current substring.
func (s *Stage) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetCollections selects collections. No ids accepts everything.
func (s *Stage) SetCollections(ids ...library.CollectionID) {
	s.must(KindCollection)
	sel := append([]library.CollectionID{}, ids...)
	sort.Slice(sel, func(i, j int) bool { return sel[i] < sel[j] })
	s.update(func() { s.collections = sel })
}

// Collections returns the selected collection ids.
func (s *Stage) Collections() []library.CollectionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.CollectionID{}, s.collections...)
}

// SetCategories selects categories. No categories accepts everything.
// Undefined categories match no row, so a selection of only undefined
// categories matches nothing.
func (s *Stage) SetCategories(cs ...library.Category) {
	s.must(KindCategory)
	s.update(func() {
		s.categories = [library.CategoryCount]bool{}
		s.catSelected = len(cs) > 0
		for _, c := range cs {
			if c.Valid() {
				s.categories[c] = true
			}
		}
	})
}

// Categories returns the selected categories in ascending order.
func (s *Stage) Categories() []library.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []library.Category{}
	for c, on := range s.categories {
		if on {
			out = append(out, library.Category(c))
		}
	}
	return out
}

// SetTags sets the required tags. No tags accepts everything.
func (s *Stage) SetTags(tags ...string) {
	s.must(KindTag)
	required := library.NormalizeTags(tags)
	s.update(func() { s.tags = required })
}

// Tags returns the required tags, sorted.
func (s *Stage) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.tags...)
}

// SetBank selects a bank of the stage's collection. NoBank (or any negative
// value) accepts everything.
func (s *Stage) SetBank(bank int) {
	s.must(KindBank)
	if bank < 0 {
		bank = NoBank
	}
	s.update(func() { s.bank = bank })
}

// SetBankCollection changes the browsed collection and resets the bank.
func (s *Stage) SetBankCollection(id library.CollectionID) {
	s.must(KindBank)
	s.update(func() {
		s.bankCollection = id
		s.bank = NoBank
	})
}

// Bank returns the browsed collection and selected bank.
func (s *Stage) Bank() (library.CollectionID, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bankCollection, s.bank
}

// Accepts evaluates the stage against one row. idx resolves collection ids
// and slots; it must be the index the row was built against.
func (s *Stage) Accepts(row view.Row, idx *membership.Index) bool {
	p, _ := s.bind(idx)
	return p.accepts(row)
}

// predicate is a stage value frozen and resolved against one index.
type predicate struct {
	kind   Kind
	all    bool
	none   bool
	folded string
	fold   cases.Caser
	mask   membership.Mask
	cats   [library.CategoryCount]bool
	tags   []string
	bit    uint32
	bank   int
	idx    *membership.Index
}

// bind snapshots the stage value and returns it with its generation.
func (s *Stage) bind(idx *membership.Index) (predicate, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := predicate{kind: s.kind, idx: idx}
	switch s.kind {
	case KindName:
		p.all = s.folded == ""
		p.folded = s.folded
		p.fold = cases.Fold()
	case KindCollection:
		p.all = len(s.collections) == 0
		p.mask = idx.MaskOf(s.collections...)
		// A selection of collections that no longer exist matches nothing.
		p.none = !p.all && p.mask.IsEmpty()
	case KindCategory:
		p.all = !s.catSelected
		p.cats = s.categories
	case KindTag:
		p.all = len(s.tags) == 0
		p.tags = s.tags
	case KindBank:
		p.all = s.bank < 0
		p.bank = s.bank
		if !p.all {
			bit, ok := idx.BitFor(s.bankCollection)
			p.none = !ok
			p.bit = bit
		}
	default:
		panic(fmt.Sprintf("filter: unknown stage kind %d", int(s.kind)))
	}
	return p, s.gen
}

func (p *predicate) accepts(row view.Row) bool {
	if p.all {
		return true
	}
	if p.none {
		return false
	}
	switch p.kind {
	case KindName:
		return strings.Contains(p.fold.String(row.DisplayName()), p.folded)
	case KindCollection:
		return row.Membership.Intersects(p.mask)
	case KindCategory:
		return row.Category.Valid() && p.cats[row.Category]
	case KindTag:
		return row.HasTags(p.tags)
	case KindBank:
		if !row.Membership.Has(p.bit) {
			return false
		}
		slot, ok := p.idx.Locate(row.UID, p.bit)
		return ok && slot.Bank() == p.bank
	default:
		panic(fmt.Sprintf("filter: unknown stage kind %d", int(p.kind)))
	}
}
