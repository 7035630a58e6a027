// Package testutil provides deterministic libraries and fault-injecting
// record sources for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/store"
)

// SoundSpec describes a sound for LibraryBuilder.Sounds.
type SoundSpec struct {
	Name     string
	Category library.Category
	Tags     []string
}

// LibraryBuilder populates a MemStore with fatal-on-error helpers.
type LibraryBuilder struct {
	t     testing.TB
	Store *store.MemStore
}

// NewLibrary returns a builder over an empty MemStore.
func NewLibrary(t testing.TB) *LibraryBuilder {
	return &LibraryBuilder{t: t, Store: store.NewMemStore()}
}

// Sound adds a sound and returns its uid.
func (b *LibraryBuilder) Sound(name string, c library.Category, tags ...string) library.UID {
	b.t.Helper()
	uid, err := b.Store.PutSound(context.Background(), library.Sound{Name: name, Category: c, Tags: tags})
	if err != nil {
		b.t.Fatalf("put sound %q: %v", name, err)
	}
	return uid
}

// Sounds adds every spec in order and returns the uids.
func (b *LibraryBuilder) Sounds(specs ...SoundSpec) []library.UID {
	b.t.Helper()
	uids := make([]library.UID, 0, len(specs))
	for _, s := range specs {
		uids = append(uids, b.Sound(s.Name, s.Category, s.Tags...))
	}
	return uids
}

// Collection creates a collection and places uids at the given slots.
// slots and uids are paired by index.
func (b *LibraryBuilder) Collection(name string, kind library.CollectionKind, slots []library.Slot, uids []library.UID) library.CollectionID {
	b.t.Helper()
	if len(slots) != len(uids) {
		b.t.Fatalf("collection %q: %d slots for %d sounds", name, len(slots), len(uids))
	}
	ctx := context.Background()
	id, err := b.Store.CreateCollection(ctx, name, kind)
	if err != nil {
		b.t.Fatalf("create collection %q: %v", name, err)
	}
	for i := range slots {
		if err := b.Store.Place(ctx, id, slots[i], uids[i]); err != nil {
			b.t.Fatalf("place %d in %q: %v", uids[i], name, err)
		}
	}
	return id
}

// Sequential places uids at slots 0, 1, 2, ... of a new collection.
func (b *LibraryBuilder) Sequential(name string, kind library.CollectionKind, uids ...library.UID) library.CollectionID {
	b.t.Helper()
	slots := make([]library.Slot, len(uids))
	for i := range slots {
		slots[i] = library.Slot(i)
	}
	return b.Collection(name, kind, slots, uids)
}

// Synthetic adds n sounds cycling through every category, named
// "Sound 0000".. and tagged "t<i%tags>" when tags > 0.
func (b *LibraryBuilder) Synthetic(n, tags int) []library.UID {
	b.t.Helper()
	uids := make([]library.UID, 0, n)
	for i := 0; i < n; i++ {
		var tagSet []string
		if tags > 0 {
			tagSet = []string{syntheticTag(i % tags)}
		}
		uids = append(uids, b.Sound(syntheticName(i), library.Category(i%library.CategoryCount), tagSet...))
	}
	return uids
}

func syntheticName(i int) string {
	return fmt.Sprintf("Sound %04d", i)
}

func syntheticTag(i int) string {
	return "t" + string(rune('a'+i%26))
}
