package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/view"
)

// accepted evaluates s against every fixture row.
func (f *fixture) accepted(s *Stage) []library.UID {
	snap := f.v.Snapshot()
	out := []library.UID{}
	for i := 0; i < snap.Len(); i++ {
		if s.Accepts(snap.Row(i), snap.Index()) {
			out = append(out, snap.Row(i).UID)
		}
	}
	return out
}

func TestNameStage(t *testing.T) {
	f := newFixture(t)
	s := NewNameStage()

	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))

	s.SetName("pad")
	assert.Equal(t, f.pick(1, 4), f.accepted(s))

	s.SetName("BASS")
	assert.Equal(t, f.pick(2, 5), f.accepted(s))

	s.SetName("ss b")
	assert.Equal(t, f.pick(3), f.accepted(s))

	s.SetName("   ")
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))
}

func TestNameStage_IgnoresPadding(t *testing.T) {
	f := newFixture(t)
	s := NewNameStage()

	// Names are padded to 16 runes; trailing spaces must not match.
	s.SetName("Bell ")
	assert.Equal(t, f.pick(3), f.accepted(s))
}

func TestCollectionStage(t *testing.T) {
	f := newFixture(t)
	s := NewCollectionStage()

	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))

	s.SetCollections(f.live)
	assert.Equal(t, f.pick(1, 2, 4), f.accepted(s))

	s.SetCollections(f.live, f.factory)
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))

	s.SetCollections(999)
	assert.Empty(t, f.accepted(s))

	s.SetCollections()
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))
}

func TestCategoryStage(t *testing.T) {
	f := newFixture(t)
	s := NewCategoryStage()

	s.SetCategories(9)
	assert.Equal(t, f.pick(1, 4), f.accepted(s))

	s.SetCategories(1, 2)
	assert.Equal(t, f.pick(2, 3, 5), f.accepted(s))
	assert.Equal(t, []library.Category{1, 2}, s.Categories())

	s.SetCategories()
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))
}

func TestCategoryStage_UndefinedCategories(t *testing.T) {
	f := newFixture(t)
	s := NewCategoryStage()

	s.SetCategories(99)
	assert.Empty(t, f.accepted(s))
	assert.Empty(t, s.Categories())

	s.SetCategories(99, 9)
	assert.Equal(t, f.pick(1, 4), f.accepted(s))
}

func TestTagStage_Superset(t *testing.T) {
	f := newFixture(t)
	s := NewTagStage()

	s.SetTags("dark")
	assert.Equal(t, f.pick(2, 4, 5), f.accepted(s))

	s.SetTags("warm", "dark")
	assert.Equal(t, f.pick(4), f.accepted(s))
	assert.Equal(t, []string{"dark", "warm"}, s.Tags())

	s.SetTags("analog", "dark")
	assert.Equal(t, f.pick(5), f.accepted(s))

	s.SetTags("missing")
	assert.Empty(t, f.accepted(s))

	s.SetTags()
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))
}

func TestBankStage(t *testing.T) {
	f := newFixture(t)
	s := NewBankStage(f.live)

	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))

	s.SetBank(1)
	assert.Equal(t, f.pick(1, 2), f.accepted(s))

	s.SetBank(0)
	assert.Equal(t, f.pick(4), f.accepted(s))

	s.SetBank(3)
	assert.Empty(t, f.accepted(s))

	s.SetBank(-7)
	_, bank := s.Bank()
	assert.Equal(t, NoBank, bank)
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))

	s.SetBankCollection(f.factory)
	s.SetBank(0)
	assert.Equal(t, f.pick(1, 2, 3, 4, 5), f.accepted(s))
}

func TestBankStage_UnknownCollectionMatchesNothing(t *testing.T) {
	f := newFixture(t)
	s := NewBankStage(999)
	s.SetBank(0)
	assert.Empty(t, f.accepted(s))
}

func TestStage_WrongKindPanics(t *testing.T) {
	assert.Panics(t, func() { NewNameStage().SetTags("x") })
	assert.Panics(t, func() { NewTagStage().SetName("x") })
	assert.Panics(t, func() { NewCategoryStage().SetBank(1) })
	assert.Panics(t, func() { NewBankStage(1).SetCollections(1) })
	assert.Panics(t, func() { NewCollectionStage().SetCategories(1) })
}

func TestStage_GenerationAndOnChange(t *testing.T) {
	s := NewCategoryStage()
	calls := 0
	s.OnChange(func() { calls++ })

	assert.Equal(t, uint64(0), s.Generation())
	s.SetCategories(1)
	s.SetCategories(2)
	assert.Equal(t, uint64(2), s.Generation())
	assert.Equal(t, 2, calls)
}

func TestStage_OnChangeRemove(t *testing.T) {
	s := NewTagStage()
	var first, second int
	remove := s.OnChange(func() { first++ })
	s.OnChange(func() { second++ })

	s.SetTags("dark")
	remove()
	remove()
	s.SetTags("warm")

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestStage_AcceptsEmptyRow(t *testing.T) {
	f := newFixture(t)
	idx := f.v.Snapshot().Index()

	s := NewCategoryStage()
	s.SetCategories(0)
	assert.True(t, s.Accepts(view.Row{Category: 0}, idx))
	assert.False(t, s.Accepts(view.Row{Category: library.CategoryCount}, idx))
}

func TestParseKind(t *testing.T) {
	for k := KindName; k <= KindBank; k++ {
		got, err := ParseKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("colour")
	assert.Error(t, err)
}
