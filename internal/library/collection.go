package library

import "fmt"

// CollectionID identifies a collection.
type CollectionID int64

// CollectionKind distinguishes read-only factory collections from user ones.
type CollectionKind int

const (
	// KindUser is a mutable, user-defined collection.
	KindUser CollectionKind = iota
	// KindFactory is a read-only collection with fixed identity.
	KindFactory
)

func (k CollectionKind) String() string {
	if k == KindFactory {
		return "factory"
	}
	return "user"
}

// Placement records that a sound occupies a slot.
type Placement struct {
	Slot Slot
	UID  UID
}

// Collection is a named container of up to SlotCount placements.
type Collection struct {
	ID    CollectionID
	Name  string
	Kind  CollectionKind
	Slots []Placement
}

// ReadOnly reports whether exports into the collection are refused.
func (c Collection) ReadOnly() bool {
	return c.Kind == KindFactory
}

// SlotConflictError reports two sounds claiming one slot of a collection.
type SlotConflictError struct {
	Collection CollectionID
	Slot       Slot
	First      UID
	Second     UID
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("collection %d: slot %s claimed by sounds %d and %d",
		e.Collection, e.Slot, e.First, e.Second)
}

// SlotRangeError reports a placement outside [0, MaxSlot].
type SlotRangeError struct {
	Collection CollectionID
	Slot       Slot
}

func (e *SlotRangeError) Error() string {
	return fmt.Sprintf("collection %d: slot %d out of range [0, %d]", e.Collection, int(e.Slot), MaxSlot)
}

// DuplicatePlacementError reports one sound placed in two slots of a
// collection. A sound occupies at most one slot per collection.
type DuplicatePlacementError struct {
	Collection CollectionID
	UID        UID
	First      Slot
	Second     Slot
}

func (e *DuplicatePlacementError) Error() string {
	return fmt.Sprintf("collection %d: sound %d placed at both %s and %s",
		e.Collection, e.UID, e.First, e.Second)
}

// Validate checks the slot invariants of c.
func (c Collection) Validate() error {
	occupied := make(map[Slot]UID, len(c.Slots))
	placed := make(map[UID]Slot, len(c.Slots))
	for _, p := range c.Slots {
		if !p.Slot.Valid() {
			return &SlotRangeError{Collection: c.ID, Slot: p.Slot}
		}
		if prev, ok := occupied[p.Slot]; ok {
			return &SlotConflictError{Collection: c.ID, Slot: p.Slot, First: prev, Second: p.UID}
		}
		if prev, ok := placed[p.UID]; ok {
			return &DuplicatePlacementError{Collection: c.ID, UID: p.UID, First: prev, Second: p.Slot}
		}
		occupied[p.Slot] = p.UID
		placed[p.UID] = p.Slot
	}
	return nil
}
