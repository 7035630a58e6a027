package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/patchlib/internal/library"
)

// PutSound inserts or replaces a sound. A zero UID asks the database to
// allocate one; the stored UID is returned.
func (s *Store) PutSound(ctx context.Context, snd library.Sound) (library.UID, error) {
	if !snd.Category.Valid() {
		return 0, fmt.Errorf("put sound: invalid category %d", int(snd.Category))
	}
	tagsJSON, err := marshalTags(snd.Tags)
	if err != nil {
		return 0, fmt.Errorf("put sound: %w", err)
	}

	if snd.UID == 0 {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO sounds (name, category, tags) VALUES (?, ?, ?)
		`, library.PadName(snd.Name), int(snd.Category), tagsJSON)
		if err != nil {
			return 0, fmt.Errorf("put sound: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("put sound: last insert id: %w", err)
		}
		return library.UID(id), nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sounds (uid, name, category, tags) VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			tags = excluded.tags
	`, int64(snd.UID), library.PadName(snd.Name), int(snd.Category), tagsJSON)
	if err != nil {
		return 0, fmt.Errorf("put sound: %w", err)
	}
	return snd.UID, nil
}

// DeleteSound removes a sound and every placement of it.
func (s *Store) DeleteSound(ctx context.Context, uid library.UID) error {
	return s.execOne(ctx, "delete sound", `DELETE FROM sounds WHERE uid = ?`, int64(uid))
}

// RenameSound changes a sound's display name.
func (s *Store) RenameSound(ctx context.Context, uid library.UID, name string) error {
	return s.execOne(ctx, "rename sound",
		`UPDATE sounds SET name = ? WHERE uid = ?`, library.PadName(name), int64(uid))
}

// SetCategory changes a sound's category.
func (s *Store) SetCategory(ctx context.Context, uid library.UID, c library.Category) error {
	if !c.Valid() {
		return fmt.Errorf("set category: invalid category %d", int(c))
	}
	return s.execOne(ctx, "set category",
		`UPDATE sounds SET category = ? WHERE uid = ?`, int(c), int64(uid))
}

// SetTags replaces a sound's tag set.
func (s *Store) SetTags(ctx context.Context, uid library.UID, tags []string) error {
	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return fmt.Errorf("set tags: %w", err)
	}
	return s.execOne(ctx, "set tags", `UPDATE sounds SET tags = ? WHERE uid = ?`, tagsJSON, int64(uid))
}

// CreateCollection adds a collection after every existing one of its kind.
func (s *Store) CreateCollection(ctx context.Context, name string, kind library.CollectionKind) (library.CollectionID, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, kind, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM collections WHERE kind = ?))
	`, name, int(kind), int(kind))
	if err != nil {
		return 0, fmt.Errorf("create collection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create collection: last insert id: %w", err)
	}
	return library.CollectionID(id), nil
}

// RenameCollection renames a user collection.
func (s *Store) RenameCollection(ctx context.Context, id library.CollectionID, name string) error {
	if err := s.requireWritable(ctx, s.db, id); err != nil {
		return fmt.Errorf("rename collection: %w", err)
	}
	return s.execOne(ctx, "rename collection",
		`UPDATE collections SET name = ? WHERE id = ?`, name, int64(id))
}

// DeleteCollection removes a user collection and its placements.
func (s *Store) DeleteCollection(ctx context.Context, id library.CollectionID) error {
	if err := s.requireWritable(ctx, s.db, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.execOne(ctx, "delete collection", `DELETE FROM collections WHERE id = ?`, int64(id))
}

// Place puts a sound into a slot of any collection, replacing the occupant.
// It bypasses the read-only check and is meant for imports. A sound already
// placed at another slot of the collection returns a
// *library.DuplicatePlacementError.
func (s *Store) Place(ctx context.Context, id library.CollectionID, slot library.Slot, uid library.UID) error {
	if !slot.Valid() {
		return fmt.Errorf("place: %w", &library.SlotRangeError{Collection: id, Slot: slot})
	}

	var existing int
	err := s.db.QueryRowContext(ctx, `
		SELECT slot FROM slots WHERE collection_id = ? AND uid = ? AND slot != ?
	`, int64(id), int64(uid), int(slot)).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("place: %w", &library.DuplicatePlacementError{
			Collection: id, UID: uid, First: library.Slot(existing), Second: slot,
		})
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("place: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO slots (collection_id, slot, uid) VALUES (?, ?, ?)
		ON CONFLICT(collection_id, slot) DO UPDATE SET uid = excluded.uid
	`, int64(id), int(slot), int64(uid))
	if err != nil {
		return fmt.Errorf("place: %w", err)
	}
	return nil
}

// WriteExport stores a batch of placements into a user collection in one
// transaction. Existing occupants of the destination slots are replaced, and
// an exported sound already held by the collection moves to its new slot.
// Factory collections return library.ErrReadOnly; the batch must be
// duplicate-free and in range or nothing is written.
// A busy or locked database is retried with exponential backoff.
func (s *Store) WriteExport(ctx context.Context, id library.CollectionID, writes []library.ExportWrite) error {
	if err := validateWrites(id, writes); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return s.withRetry(ctx, func() error {
		return s.writeExport(ctx, id, writes)
	})
}

func (s *Store) writeExport(ctx context.Context, id library.CollectionID, writes []library.ExportWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write export: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.requireWritable(ctx, tx, id); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	// Clear every exported sound's old placement first so swaps inside the
	// batch never trip the (collection_id, uid) constraint.
	unplace, err := tx.PrepareContext(ctx, `DELETE FROM slots WHERE collection_id = ? AND uid = ?`)
	if err != nil {
		return fmt.Errorf("write export: prepare: %w", err)
	}
	defer unplace.Close()

	for _, w := range writes {
		if _, err := unplace.ExecContext(ctx, int64(id), int64(w.UID)); err != nil {
			return fmt.Errorf("write export: clear sound %d: %w", w.UID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slots (collection_id, slot, uid) VALUES (?, ?, ?)
		ON CONFLICT(collection_id, slot) DO UPDATE SET uid = excluded.uid
	`)
	if err != nil {
		return fmt.Errorf("write export: prepare: %w", err)
	}
	defer stmt.Close()

	for _, w := range writes {
		if _, err := stmt.ExecContext(ctx, int64(id), int(w.Slot), int64(w.UID)); err != nil {
			return fmt.Errorf("write export: slot %s: %w", w.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write export: commit: %w", err)
	}
	return nil
}

func validateWrites(id library.CollectionID, writes []library.ExportWrite) error {
	seen := make(map[library.Slot]library.UID, len(writes))
	placed := make(map[library.UID]library.Slot, len(writes))
	for _, w := range writes {
		if !w.Slot.Valid() {
			return &library.SlotRangeError{Collection: id, Slot: w.Slot}
		}
		if prev, ok := seen[w.Slot]; ok {
			return &library.SlotConflictError{Collection: id, Slot: w.Slot, First: prev, Second: w.UID}
		}
		if prev, ok := placed[w.UID]; ok {
			return &library.DuplicatePlacementError{Collection: id, UID: w.UID, First: prev, Second: w.Slot}
		}
		seen[w.Slot] = w.UID
		placed[w.UID] = w.Slot
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// requireWritable returns ErrNotFound for a missing collection and
// ErrReadOnly for a factory one.
func (s *Store) requireWritable(ctx context.Context, q queryRower, id library.CollectionID) error {
	var kind int
	err := q.QueryRowContext(ctx, `SELECT kind FROM collections WHERE id = ?`, int64(id)).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("collection %d: %w", id, library.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if library.CollectionKind(kind) == library.KindFactory {
		return fmt.Errorf("collection %d: %w", id, library.ErrReadOnly)
	}
	return nil
}

// execOne runs a statement expected to touch exactly one row.
// Zero rows affected maps to library.ErrNotFound.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, library.ErrNotFound)
	}
	return nil
}
