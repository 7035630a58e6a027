package library

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a sound or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned when writing into a factory collection.
	ErrReadOnly = errors.New("collection is read-only")
)

// ExportWrite places one sound into a destination slot.
type ExportWrite struct {
	UID  UID
	Slot Slot
}

// RecordSource is the persistent store consumed by the index.
//
// Implementations must return sounds in UID insertion order and collections in
// a stable order with factory collections first. Calls are treated as
// synchronous; retry policy belongs to the implementation.
type RecordSource interface {
	// Sounds enumerates every sound.
	Sounds(ctx context.Context) ([]Sound, error)

	// Sound returns a single sound, or ErrNotFound.
	Sound(ctx context.Context, uid UID) (Sound, error)

	// Collections enumerates every collection with its placements.
	Collections(ctx context.Context) ([]Collection, error)

	// WriteExport stores a batch of placements into a collection.
	WriteExport(ctx context.Context, collection CollectionID, writes []ExportWrite) error
}
