package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/patchlib/internal/library"
)

func TestSounds_Empty(t *testing.T) {
	s := createTestStore(t)

	sounds, err := s.Sounds(context.Background())
	if err != nil {
		t.Fatalf("Sounds() failed: %v", err)
	}
	if sounds == nil {
		t.Error("Sounds() returned nil, want empty slice")
	}
	if len(sounds) != 0 {
		t.Errorf("Sounds() returned %d sounds, want 0", len(sounds))
	}
}

func TestSounds_OrderedByUID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, uid := range []library.UID{30, 10, 20} {
		if _, err := s.PutSound(ctx, library.Sound{UID: uid, Name: "x", Category: 0}); err != nil {
			t.Fatalf("PutSound(%d) failed: %v", uid, err)
		}
	}

	sounds, err := s.Sounds(ctx)
	if err != nil {
		t.Fatalf("Sounds() failed: %v", err)
	}
	if len(sounds) != 3 {
		t.Fatalf("Sounds() returned %d sounds, want 3", len(sounds))
	}
	for i, want := range []library.UID{10, 20, 30} {
		if sounds[i].UID != want {
			t.Errorf("sounds[%d].UID = %d, want %d", i, sounds[i].UID, want)
		}
	}
}

func TestSound_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	uid := putTestSound(t, s, "Warm Pad", 9, "warm", "analog")

	snd, err := s.Sound(ctx, uid)
	if err != nil {
		t.Fatalf("Sound() failed: %v", err)
	}
	if snd.Name != library.PadName("Warm Pad") {
		t.Errorf("Name = %q, want padded %q", snd.Name, library.PadName("Warm Pad"))
	}
	if snd.DisplayName() != "Warm Pad" {
		t.Errorf("DisplayName() = %q, want %q", snd.DisplayName(), "Warm Pad")
	}
	if snd.Category != 9 {
		t.Errorf("Category = %d, want 9", snd.Category)
	}
	if len(snd.Tags) != 2 || snd.Tags[0] != "analog" || snd.Tags[1] != "warm" {
		t.Errorf("Tags = %v, want [analog warm]", snd.Tags)
	}
}

func TestSound_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Sound(context.Background(), 404)
	if !errors.Is(err, library.ErrNotFound) {
		t.Errorf("Sound() error = %v, want ErrNotFound", err)
	}
}

func TestCollections_FactoryFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	user := createTestCollection(t, s, "Mine", library.KindUser)
	factory := createTestCollection(t, s, "Factory A", library.KindFactory)
	user2 := createTestCollection(t, s, "Mine 2", library.KindUser)

	collections, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections() failed: %v", err)
	}
	if len(collections) != 3 {
		t.Fatalf("Collections() returned %d, want 3", len(collections))
	}

	want := []library.CollectionID{factory, user, user2}
	for i, id := range want {
		if collections[i].ID != id {
			t.Errorf("collections[%d].ID = %d, want %d", i, collections[i].ID, id)
		}
	}
	if !collections[0].ReadOnly() {
		t.Error("factory collection not read-only")
	}
}

func TestCollections_SlotsOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := putTestSound(t, s, "A", 0)
	b := putTestSound(t, s, "B", 1)
	id := createTestCollection(t, s, "Mine", library.KindUser)

	if err := s.Place(ctx, id, 5, a); err != nil {
		t.Fatalf("Place() failed: %v", err)
	}
	if err := s.Place(ctx, id, 2, b); err != nil {
		t.Fatalf("Place() failed: %v", err)
	}

	collections, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections() failed: %v", err)
	}
	got := collections[0].Slots
	want := []library.Placement{{Slot: 2, UID: b}, {Slot: 5, UID: a}}
	if len(got) != len(want) {
		t.Fatalf("Slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slots[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCollections_EmptySlotsNonNil(t *testing.T) {
	s := createTestStore(t)
	createTestCollection(t, s, "Empty", library.KindUser)

	collections, err := s.Collections(context.Background())
	if err != nil {
		t.Fatalf("Collections() failed: %v", err)
	}
	if collections[0].Slots == nil {
		t.Error("Slots is nil, want empty slice")
	}
}

func TestCollectionByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	id := createTestCollection(t, s, "Mine", library.KindUser)

	got, err := s.CollectionByName(ctx, "Mine")
	if err != nil {
		t.Fatalf("CollectionByName() failed: %v", err)
	}
	if got != id {
		t.Errorf("CollectionByName() = %d, want %d", got, id)
	}

	if _, err := s.CollectionByName(ctx, "Nope"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("CollectionByName(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ImplementsRecordSource(t *testing.T) {
	var _ library.RecordSource = createTestStore(t)
}
